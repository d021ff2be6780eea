package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RECORD SESSION COMMAND
// Records a finished tutoring session: session count, hours and the global
// streak move, session XP goes through the ledger, then achievements are
// evaluated against the updated profile.
// ══════════════════════════════════════════════════════════════════════════════

// RecordSessionCommand contains a finished session.
type RecordSessionCommand struct {
	// LearnerID is the opaque learner identifier.
	LearnerID string `validate:"required"`

	// DurationHours is the session length. Must not be negative.
	DurationHours float64

	// ActivityType is a free-form label such as "tutoring" or "review".
	ActivityType string `validate:"required,max=64"`

	// Description is an optional note.
	Description string `validate:"max=1000"`

	// Rating is the optional 1..5 session rating.
	Rating *int
}

// RecordSessionResult contains the result of recording a session.
type RecordSessionResult struct {
	// Profile is the learner's profile after the session.
	Profile *gamification.LearnerProfile

	// XPEarned is the session XP (achievement points not included).
	XPEarned int

	// LevelUp is true when the session XP raised the level.
	LevelUp bool

	// NewLevel is the level after the session.
	NewLevel int

	// Rank is the rank after the session.
	Rank gamification.Rank

	// UnlockedAchievements lists achievements unlocked by this session.
	UnlockedAchievements []engine.UnlockedAchievement
}

// RecordSessionHandler handles the RecordSessionCommand.
type RecordSessionHandler struct {
	engine *engine.Engine
	runner *Runner
	log    *logger.Logger
}

// NewRecordSessionHandler creates a new RecordSessionHandler.
func NewRecordSessionHandler(eng *engine.Engine, runner *Runner, log *logger.Logger) *RecordSessionHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RecordSessionHandler{engine: eng, runner: runner, log: log}
}

// Handle executes the record session command.
func (h *RecordSessionHandler) Handle(ctx context.Context, cmd RecordSessionCommand) (*RecordSessionResult, error) {
	if err := validateCommand("record_session", cmd); err != nil {
		return nil, err
	}
	if cmd.DurationHours < 0 {
		return nil, shared.ErrInvalidDuration
	}
	if cmd.Rating != nil && (*cmd.Rating < 1 || *cmd.Rating > 5) {
		return nil, shared.ErrInvalidRating
	}

	loc := h.engine.Config().Location
	xp := gamification.SessionXP(cmd.DurationHours, cmd.Rating)

	var result *RecordSessionResult
	err := h.runner.Run(ctx, "record_session", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		profile, err := engine.LoadProfile(ctx, tx, cmd.LearnerID, now)
		if err != nil {
			return err
		}
		streak := profile.RecordSession(cmd.DurationHours, now, loc)
		if err := tx.Gamification().SaveProfile(ctx, profile); err != nil {
			return fmt.Errorf("record_session: save profile: %w", err)
		}
		if streak != gamification.StreakUnchanged {
			events.Add(shared.NewStreakUpdatedEvent(cmd.LearnerID, gamification.StreakScopeGlobal, profile.Streak.Current, profile.Streak.Longest, now))
		}

		credit, err := h.engine.Ledger.Credit(ctx, tx, events, engine.Credit{
			LearnerID: cmd.LearnerID,
			Amount:    xp,
			Source:    gamification.SourceSession,
		}, now)
		if err != nil {
			return err
		}
		events.Add(shared.NewSessionRecordedEvent(cmd.LearnerID, cmd.ActivityType, cmd.DurationHours, xp, now))

		unlocked, err := h.engine.Achievements.Evaluate(ctx, tx, events, cmd.LearnerID, now)
		if err != nil {
			return err
		}

		final, err := engine.LoadProfile(ctx, tx, cmd.LearnerID, now)
		if err != nil {
			return err
		}

		result = &RecordSessionResult{
			Profile:              final,
			XPEarned:             xp,
			LevelUp:              credit.Level.LeveledUp(),
			NewLevel:             final.Level,
			Rank:                 final.Rank,
			UnlockedAchievements: unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("session recorded",
		logger.LearnerID(cmd.LearnerID),
		logger.String("activity_type", cmd.ActivityType),
		logger.XPAmount(xp),
		logger.Int("level", result.NewLevel),
	)
	return result, nil
}
