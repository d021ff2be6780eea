package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/circuitbreaker"
)

// liveClient connects to TEST_REDIS_ADDR and flushes the selected database.
func liveClient(t *testing.T) *redis.Client {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	cfg := DefaultConfig()
	cfg.Addr = addr
	cfg.DB = 15
	client, err := NewClient(context.Background(), cfg)
	require.NoError(t, err)
	require.NoError(t, client.FlushDB(context.Background()).Err())
	t.Cleanup(func() { _ = client.Close() })
	return client
}

// deadClient points at a port nothing listens on.
func deadClient(t *testing.T) *redis.Client {
	t.Helper()
	client := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	t.Cleanup(func() { _ = client.Close() })
	return client
}

func sampleView() *query.UserProgressDTO {
	return &query.UserProgressDTO{
		LearnerID:   "learner-1",
		Languages:   []query.LanguageProgressDTO{{LanguageID: "lang-es", XPEarned: 40, CurrentStreak: 2}},
		DailyGoal:   query.DailyGoalDTO{Day: "2025-04-02", XPEarned: 40, XPGoal: 50, LessonsGoal: 3},
		Profile:     query.ProfileSummaryDTO{TotalXP: 40, Level: 1, Rank: "Novice"},
		GeneratedAt: time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC),
	}
}

func TestCache_RejectsEmptyKey(t *testing.T) {
	c := NewCache(deadClient(t))
	ctx := context.Background()

	assert.ErrorIs(t, c.Set(ctx, "", 1, time.Minute), ErrCacheKeyEmpty)
	var dest int
	assert.ErrorIs(t, c.Get(ctx, "", &dest), ErrCacheKeyEmpty)
	assert.NoError(t, c.Delete(ctx))
}

func TestProgressCache_OpenCircuitDegradesToMiss(t *testing.T) {
	breaker := circuitbreaker.New("progress-cache",
		circuitbreaker.WithFailureThreshold(2),
		circuitbreaker.WithCoolDown(time.Hour),
	)
	pc := NewProgressCache(NewCache(deadClient(t)), 0, breaker)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		view, _, err := pc.GetProgress(ctx, "learner-1")
		assert.Error(t, err, "failures surface while the circuit is closed")
		assert.Nil(t, view)
	}
	require.Equal(t, circuitbreaker.StateOpen, breaker.State())

	view, gen, err := pc.GetProgress(ctx, "learner-1")
	assert.NoError(t, err)
	assert.Nil(t, view)
	assert.Zero(t, gen)

	assert.NoError(t, pc.SetProgress(ctx, sampleView(), gen), "writes are skipped while open")

	err = pc.InvalidateProgress(ctx, "learner-1")
	assert.Error(t, err, "invalidation is still attempted")
	assert.Equal(t, circuitbreaker.StateOpen, breaker.State())
}

func TestProgressCache_RoundTrip(t *testing.T) {
	client := liveClient(t)
	pc := NewProgressCache(NewCache(client), time.Minute, circuitbreaker.CacheBreaker("progress-cache", nil))
	ctx := context.Background()

	missing, gen, err := pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Zero(t, gen)

	want := sampleView()
	require.NoError(t, pc.SetProgress(ctx, want, gen))

	got, _, err := pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, want.Languages, got.Languages)
	assert.Equal(t, want.Profile, got.Profile)
	assert.True(t, want.GeneratedAt.Equal(got.GeneratedAt))

	ttl, err := client.TTL(ctx, progressKey("learner-1")).Result()
	require.NoError(t, err)
	assert.LessOrEqual(t, ttl, time.Minute)

	require.NoError(t, pc.InvalidateProgress(ctx, "learner-1"))
	missing, next, err := pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Nil(t, missing)
	assert.Equal(t, gen+1, next)
}

func TestProgressCache_InvalidationDropsOlderWrite(t *testing.T) {
	client := liveClient(t)
	pc := NewProgressCache(NewCache(client), time.Minute, nil)
	ctx := context.Background()

	_, gen, err := pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)

	// A command commits and invalidates while the view is being built.
	require.NoError(t, pc.InvalidateProgress(ctx, "learner-1"))

	require.NoError(t, pc.SetProgress(ctx, sampleView(), gen))
	view, current, err := pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.Nil(t, view, "a view built before the invalidation is not cached")

	require.NoError(t, pc.SetProgress(ctx, sampleView(), current))
	view, _, err = pc.GetProgress(ctx, "learner-1")
	require.NoError(t, err)
	assert.NotNil(t, view)

	ttl, err := client.TTL(ctx, generationKey("learner-1")).Result()
	require.NoError(t, err)
	assert.Greater(t, ttl, time.Minute)
}

func TestProgressCache_CorruptEntry(t *testing.T) {
	client := liveClient(t)
	pc := NewProgressCache(NewCache(client), time.Minute, nil)
	ctx := context.Background()

	require.NoError(t, client.Set(ctx, progressKey("learner-1"), "{not json", time.Minute).Err())
	view, _, err := pc.GetProgress(ctx, "learner-1")
	assert.ErrorIs(t, err, ErrCacheSerialization)
	assert.Nil(t, view)
}

func TestLearnerLocker(t *testing.T) {
	client := liveClient(t)
	locker := NewLearnerLocker(client, time.Second, 100*time.Millisecond)
	ctx := context.Background()

	unlock, err := locker.Lock(ctx, "learner-1")
	require.NoError(t, err)

	_, err = locker.Lock(ctx, "learner-1")
	assert.True(t, shared.IsConflict(err), "a busy lease is a retryable conflict")

	other, err := locker.Lock(ctx, "learner-2")
	require.NoError(t, err)
	other()

	unlock()
	again, err := locker.Lock(ctx, "learner-1")
	require.NoError(t, err)
	again()

	cancelled, cancel := context.WithCancel(ctx)
	hold, err := locker.Lock(ctx, "learner-3")
	require.NoError(t, err)
	defer hold()
	cancel()
	_, err = NewLearnerLocker(client, time.Second, time.Minute).Lock(cancelled, "learner-3")
	assert.True(t, errors.Is(err, context.Canceled), "got %v", err)
}
