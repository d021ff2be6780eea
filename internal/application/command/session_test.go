package command

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

func TestRecordSession(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	res, err := h.session.Handle(ctx, RecordSessionCommand{
		LearnerID:     learner,
		DurationHours: 1,
		ActivityType:  "tutoring",
		Rating:        ptr(5),
	})
	require.NoError(t, err)
	assert.Equal(t, 70, res.XPEarned)
	assert.False(t, res.LevelUp)
	assert.Equal(t, gamification.RankBronze, res.Rank)
	require.Len(t, res.UnlockedAchievements, 1)
	assert.Equal(t, "first-session", res.UnlockedAchievements[0].ID)

	profile := h.profile(t)
	assert.Equal(t, 70+5, profile.TotalXP, "reward points are credited")
	assert.Equal(t, 1, profile.TotalSessions)
	assert.Equal(t, 1.0, profile.TotalHours)
	assert.Equal(t, 1, profile.Streak.Current)
}

func TestRecordSession_StreakAchievement(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := RecordSessionCommand{LearnerID: learner, DurationHours: 0.5, ActivityType: "review"}

	var last *RecordSessionResult
	for day := 0; day < 3; day++ {
		res, err := h.session.Handle(ctx, cmd)
		require.NoError(t, err)
		assert.Equal(t, gamification.SessionMinXP, res.XPEarned)
		last = res
		h.clock.Advance(24 * time.Hour)
	}

	require.Len(t, last.UnlockedAchievements, 1)
	assert.Equal(t, "streak-3", last.UnlockedAchievements[0].ID)

	profile := h.profile(t)
	assert.Equal(t, 3, profile.Streak.Current)
	assert.Equal(t, 3*25+5+20, profile.TotalXP)

	rows, err := h.store.Snapshot().Gamification().ListUserAchievements(ctx, learner)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	for _, r := range rows {
		assert.True(t, r.Completed, r.AchievementID)
	}
	assert.Equal(t, 2, h.events.count(shared.EventAchievementUnlocked))
}

func TestRecordSession_SameDayKeepsStreak(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	cmd := RecordSessionCommand{LearnerID: learner, DurationHours: 2, ActivityType: "tutoring"}

	_, err := h.session.Handle(ctx, cmd)
	require.NoError(t, err)
	h.clock.Advance(3 * time.Hour)
	_, err = h.session.Handle(ctx, cmd)
	require.NoError(t, err)

	profile := h.profile(t)
	assert.Equal(t, 1, profile.Streak.Current)
	assert.Equal(t, 2, profile.TotalSessions)
	assert.Equal(t, 1, h.events.count(shared.EventStreakUpdated))
}

func TestRecordSession_Validation(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	_, err := h.session.Handle(ctx, RecordSessionCommand{LearnerID: learner, DurationHours: -1, ActivityType: "tutoring"})
	assert.ErrorIs(t, err, shared.ErrInvalidDuration)

	_, err = h.session.Handle(ctx, RecordSessionCommand{LearnerID: learner, DurationHours: 1, ActivityType: "tutoring", Rating: ptr(6)})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)

	_, err = h.session.Handle(ctx, RecordSessionCommand{LearnerID: learner, DurationHours: 1, ActivityType: "tutoring", Rating: ptr(0)})
	assert.ErrorIs(t, err, shared.ErrInvalidRating)

	_, err = h.session.Handle(ctx, RecordSessionCommand{LearnerID: learner, DurationHours: 1})
	assert.True(t, shared.IsValidation(err))

	_, err = h.store.Snapshot().Gamification().GetProfile(ctx, learner)
	assert.ErrorIs(t, err, shared.ErrProfileNotFound)
}
