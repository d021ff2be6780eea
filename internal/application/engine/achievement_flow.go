package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ACHIEVEMENT FLOW
// Loads the catalog and the learner's rows, runs the rule table against the
// profile snapshot, persists changed rows and credits reward points.
// ══════════════════════════════════════════════════════════════════════════════

// UnlockedAchievement is returned for notification purposes.
type UnlockedAchievement struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Type         string    `json:"type"`
	RewardPoints int       `json:"reward_points"`
	UnlockedAt   time.Time `json:"unlocked_at"`
}

// AchievementFlow evaluates achievements for one learner.
type AchievementFlow struct {
	catalog catalog.Catalog
	ledger  *Ledger
	config  Config
	log     *logger.Logger
}

// Evaluate checks every active, not yet completed achievement and returns
// the ones unlocked by this pass.
func (f *AchievementFlow) Evaluate(
	ctx context.Context,
	tx uow.UnitOfWork,
	events *shared.EventCollector,
	learnerID string,
	now time.Time,
) ([]UnlockedAchievement, error) {
	defs, err := f.catalog.ListActiveAchievements(ctx)
	if err != nil {
		return nil, fmt.Errorf("achievements: list catalog: %w", err)
	}
	if len(defs) == 0 {
		return nil, nil
	}

	profile, err := LoadProfile(ctx, tx, learnerID, now)
	if err != nil {
		return nil, err
	}

	rows, err := tx.Gamification().ListUserAchievements(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("achievements: list rows: %w", err)
	}
	existing := make(map[string]*gamification.UserAchievement, len(rows))
	for _, r := range rows {
		existing[r.AchievementID] = r
	}

	outcomes := gamification.EvaluateAchievements(learnerID, defs, existing, profile.Snapshot(), now)

	unlocked := make([]UnlockedAchievement, 0)
	points := 0
	for _, out := range outcomes {
		if !out.Changed {
			continue
		}
		if err := tx.Gamification().SaveUserAchievement(ctx, out.Row); err != nil {
			return nil, fmt.Errorf("achievements: save %s: %w", out.Definition.ID, err)
		}
		if !out.Unlocked {
			continue
		}

		unlocked = append(unlocked, UnlockedAchievement{
			ID:           out.Definition.ID,
			Name:         out.Definition.Name,
			Type:         string(out.Definition.Type),
			RewardPoints: out.Definition.RewardPoints,
			UnlockedAt:   now,
		})
		points += max(out.Definition.RewardPoints, 0)
		events.Add(shared.NewAchievementUnlockedEvent(learnerID, out.Definition.ID, out.Definition.Name, out.Definition.RewardPoints, now))

		f.log.Info("achievement unlocked",
			logger.LearnerID(learnerID),
			logger.String("achievement_id", out.Definition.ID),
		)
	}

	// Reward points do not feed any rule, so crediting them cannot unlock
	// further achievements in the same pass.
	if f.config.AwardAchievementPoints && points > 0 {
		if _, err := f.ledger.Credit(ctx, tx, events, Credit{
			LearnerID: learnerID,
			Amount:    points,
			Source:    gamification.SourceAchievement,
		}, now); err != nil {
			return nil, err
		}
	}

	return unlocked, nil
}
