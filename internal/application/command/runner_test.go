package command

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/memory"
)

// racingFactory lets a competing writer commit right after a command's
// transaction took its snapshot.
type racingFactory struct {
	inner  uow.Factory
	race   func()
	always bool
	begins int
}

func (f *racingFactory) Begin(ctx context.Context) (uow.UnitOfWork, error) {
	tx, err := f.inner.Begin(ctx)
	f.begins++
	if err == nil && f.race != nil {
		f.race()
		if !f.always {
			f.race = nil
		}
	}
	return tx, err
}

// bumpProfile commits a concurrent XP award for learner.
func bumpProfile(t *testing.T, store *memory.Store, amount int) {
	t.Helper()
	ctx := context.Background()
	tx, err := store.Begin(ctx)
	require.NoError(t, err)
	p, err := engine.LoadProfile(ctx, tx, learner, day0)
	require.NoError(t, err)
	p.AddXP(amount, day0)
	require.NoError(t, tx.Gamification().SaveProfile(ctx, p))
	require.NoError(t, tx.Commit(ctx))
}

func TestRunner_RetriesOnConflict(t *testing.T) {
	rf := &racingFactory{}
	h := newHarnessWith(t, func(f uow.Factory) uow.Factory { rf.inner = f; return rf })
	h.startLesson(t, "u1-l1")
	xpEvents := h.events.count(shared.EventXPGained)

	rf.race = func() { bumpProfile(t, h.store, 100) }
	res := h.answer(t, "u1-l1-e1", "Hola")
	assert.Equal(t, 2, res.XPEarned)
	assert.Equal(t, 3, rf.begins, "start plus two submit attempts")

	assert.Equal(t, 102, h.profile(t).TotalXP, "both writers survive")
	answers, err := h.store.Snapshot().Progress().ListAnswers(context.Background(), learner, "u1-l1")
	require.NoError(t, err)
	assert.Len(t, answers, 1, "failed attempt left no answer row")
	assert.Equal(t, xpEvents+1, h.events.count(shared.EventXPGained), "events of the failed attempt are dropped")
}

func TestRunner_GivesUpAfterConfiguredAttempts(t *testing.T) {
	rf := &racingFactory{}
	h := newHarnessWith(t, func(f uow.Factory) uow.Factory { rf.inner = f; return rf })
	h.startLesson(t, "u1-l1")

	rf.always = true
	rf.race = func() { bumpProfile(t, h.store, 1) }
	_, err := h.submit.Handle(context.Background(), SubmitAnswerCommand{LearnerID: learner, ExerciseID: "u1-l1-e1", AnswerText: "Hola"})
	assert.ErrorIs(t, err, shared.ErrOptimisticLock)
	assert.Equal(t, 1+4, rf.begins)
}

func TestRunner_DoesNotRetryOtherErrors(t *testing.T) {
	store := memory.NewStore()
	rf := &racingFactory{inner: store}
	r := NewRunner(rf, nil, nil, nil, nil, RunnerConfig{ConflictRetries: 3, ConflictBackoff: time.Microsecond})

	boom := errors.New("boom")
	err := r.Run(context.Background(), "test", learner, func(context.Context, uow.UnitOfWork, *shared.EventCollector, time.Time) error {
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, rf.begins)
}

type countingLocker struct {
	mu       sync.Mutex
	locked   []string
	unlocked int
	err      error
}

func (l *countingLocker) Lock(_ context.Context, learnerID string) (func(), error) {
	if l.err != nil {
		return nil, l.err
	}
	l.mu.Lock()
	l.locked = append(l.locked, learnerID)
	l.mu.Unlock()
	return func() {
		l.mu.Lock()
		l.unlocked++
		l.mu.Unlock()
	}, nil
}

func TestRunner_HoldsLearnerLock(t *testing.T) {
	locker := &countingLocker{}
	r := NewRunner(memory.NewStore(), locker, nil, nil, nil, DefaultRunnerConfig())

	err := r.Run(context.Background(), "test", learner, func(context.Context, uow.UnitOfWork, *shared.EventCollector, time.Time) error {
		assert.Zero(t, locker.unlocked, "lock held while the body runs")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{learner}, locker.locked)
	assert.Equal(t, 1, locker.unlocked)

	locker.err = shared.ErrTimeout
	err = r.Run(context.Background(), "test", learner, func(context.Context, uow.UnitOfWork, *shared.EventCollector, time.Time) error {
		t.Fatal("body must not run without the lock")
		return nil
	})
	assert.ErrorIs(t, err, shared.ErrTimeout)
}

func TestRunner_PublishesAfterCommit(t *testing.T) {
	events := &recorder{}
	store := memory.NewStore()
	r := NewRunner(store, nil, events, nil, nil, DefaultRunnerConfig())

	err := r.Run(context.Background(), "test", learner, func(_ context.Context, _ uow.UnitOfWork, c *shared.EventCollector, now time.Time) error {
		c.Add(shared.NewXPGainedEvent(learner, 5, "exercise", "", 5, now))
		assert.Empty(t, events.events, "not published before commit")
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, events.count(shared.EventXPGained))

	store.FailOn("Commit", errors.New("commit failed"))
	err = r.Run(context.Background(), "test", learner, func(_ context.Context, _ uow.UnitOfWork, c *shared.EventCollector, now time.Time) error {
		c.Add(shared.NewXPGainedEvent(learner, 5, "exercise", "", 10, now))
		return nil
	})
	assert.Error(t, err)
	assert.Equal(t, 1, events.count(shared.EventXPGained))
}
