package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP LEDGER
// Every XP award in the system goes through Credit: the global profile
// (total XP, level, rank), today's daily goal and, for language-scoped
// awards, the language progress and its streak.
// ══════════════════════════════════════════════════════════════════════════════

// Credit describes one XP award.
type Credit struct {
	LearnerID string
	Amount    int
	Source    gamification.XPSource

	// LanguageID scopes the award to a language; empty for global awards.
	LanguageID string
}

// CreditResult reports what the award changed.
type CreditResult struct {
	Level          gamification.LevelChange
	DailyGoal      *gamification.DailyGoal
	DailyGoalMet   bool
	Language       *progress.LanguageProgress
	LanguageStreak gamification.StreakChange
	TotalXP        int
}

// Ledger implements the XP path.
type Ledger struct {
	config Config
	log    *logger.Logger
}

// Credit applies c inside tx. Zero-amount credits still count as language
// practice for the streak but leave the profile and daily goal untouched.
func (l *Ledger) Credit(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, c Credit, now time.Time) (*CreditResult, error) {
	res := &CreditResult{}

	if c.Amount > 0 {
		profile, err := LoadProfile(ctx, tx, c.LearnerID, now)
		if err != nil {
			return nil, err
		}
		res.Level = profile.AddXP(c.Amount, now)
		if err := tx.Gamification().SaveProfile(ctx, profile); err != nil {
			return nil, fmt.Errorf("ledger: save profile: %w", err)
		}
		res.TotalXP = profile.TotalXP

		events.Add(shared.NewXPGainedEvent(c.LearnerID, c.Amount, string(c.Source), c.LanguageID, profile.TotalXP, now))
		if res.Level.LeveledUp() {
			events.Add(shared.NewLevelUpEvent(c.LearnerID, res.Level.OldLevel, res.Level.NewLevel, string(profile.Rank), now))
		}

		goal, met, err := l.bumpDailyGoal(ctx, tx, events, c.LearnerID, c.Amount, 0, now)
		if err != nil {
			return nil, err
		}
		res.DailyGoal, res.DailyGoalMet = goal, met
	}

	if c.LanguageID != "" {
		lang, err := LoadLanguage(ctx, tx, c.LearnerID, c.LanguageID, now)
		if err != nil {
			return nil, err
		}
		res.LanguageStreak = lang.Practice(c.Amount, now, l.config.Location)
		if err := tx.Progress().SaveLanguage(ctx, lang); err != nil {
			return nil, fmt.Errorf("ledger: save language progress: %w", err)
		}
		res.Language = lang
		if res.LanguageStreak != gamification.StreakUnchanged {
			events.Add(shared.NewStreakUpdatedEvent(c.LearnerID, c.LanguageID, lang.Streak.Current, lang.Streak.Longest, now))
		}
	}

	l.log.Debug("xp credited",
		logger.LearnerID(c.LearnerID),
		logger.XPAmount(c.Amount),
		logger.String("source", string(c.Source)),
		logger.String("language_id", c.LanguageID),
	)

	return res, nil
}

// CountLesson adds one completed lesson to today's daily goal.
func (l *Ledger) CountLesson(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, learnerID string, now time.Time) (*gamification.DailyGoal, error) {
	goal, _, err := l.bumpDailyGoal(ctx, tx, events, learnerID, 0, 1, now)
	return goal, err
}

func (l *Ledger) bumpDailyGoal(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, learnerID string, xp, lessons int, now time.Time) (*gamification.DailyGoal, bool, error) {
	goal, err := LoadDailyGoal(ctx, tx, learnerID, timeutil.DayKey(now, l.config.Location), l.config.DailyTargets)
	if err != nil {
		return nil, false, err
	}
	met := goal.Add(xp, lessons, now)
	if err := tx.Gamification().SaveDailyGoal(ctx, goal); err != nil {
		return nil, false, fmt.Errorf("ledger: save daily goal: %w", err)
	}
	if met {
		events.Add(shared.NewDailyGoalCompletedEvent(learnerID, goal.Day, goal.XPEarned, goal.LessonsCompleted, now))
	}
	return goal, met, nil
}

// ══════════════════════════════════════════════════════════════════════════════
// GET-OR-CREATE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// LoadProfile returns the learner's profile or a fresh one.
func LoadProfile(ctx context.Context, tx uow.UnitOfWork, learnerID string, now time.Time) (*gamification.LearnerProfile, error) {
	p, err := tx.Gamification().GetProfile(ctx, learnerID)
	if err == nil {
		return p, nil
	}
	if shared.IsNotFound(err) {
		return gamification.NewLearnerProfile(learnerID, now), nil
	}
	return nil, fmt.Errorf("ledger: load profile: %w", err)
}

// LoadDailyGoal returns the goal for day or a fresh one with targets.
func LoadDailyGoal(ctx context.Context, tx uow.UnitOfWork, learnerID string, day time.Time, targets gamification.DailyGoalTargets) (*gamification.DailyGoal, error) {
	g, err := tx.Gamification().GetDailyGoal(ctx, learnerID, day)
	if err == nil {
		return g, nil
	}
	if shared.IsNotFound(err) {
		return gamification.NewDailyGoal(learnerID, day, targets), nil
	}
	return nil, fmt.Errorf("ledger: load daily goal: %w", err)
}

// LoadLanguage returns the language progress or a fresh one.
func LoadLanguage(ctx context.Context, tx uow.UnitOfWork, learnerID, languageID string, now time.Time) (*progress.LanguageProgress, error) {
	p, err := tx.Progress().GetLanguage(ctx, learnerID, languageID)
	if err == nil {
		return p, nil
	}
	if shared.IsNotFound(err) {
		return progress.NewLanguageProgress(learnerID, languageID, now), nil
	}
	return nil, fmt.Errorf("ledger: load language progress: %w", err)
}
