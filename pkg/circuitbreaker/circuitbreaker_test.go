package circuitbreaker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

var errDown = errors.New("redis down")

func fail(context.Context) error    { return errDown }
func succeed(context.Context) error { return nil }

func newTestBreaker(clock *timeutil.FixedClock, transitions *[]State) *CircuitBreaker {
	return New("test",
		WithFailureThreshold(2),
		WithSuccessThreshold(1),
		WithCoolDown(10*time.Second),
		WithClock(clock),
		WithOnStateChange(func(_ string, _, to State) {
			*transitions = append(*transitions, to)
		}),
	)
}

func TestCircuitBreaker_OpensAndRecovers(t *testing.T) {
	clock := &timeutil.FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []State
	cb := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateClosed, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())

	calls := 0
	err := cb.Execute(ctx, func(context.Context) error { calls++; return nil })
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRejected(err))
	assert.Zero(t, calls)

	clock.Advance(10 * time.Second)
	require.NoError(t, cb.Execute(ctx, succeed))
	assert.Equal(t, StateClosed, cb.State())

	assert.Equal(t, []State{StateOpen, StateHalfOpen, StateClosed}, transitions)
}

func TestCircuitBreaker_FailedProbeReopens(t *testing.T) {
	clock := &timeutil.FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []State
	cb := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(11 * time.Second)

	assert.ErrorIs(t, cb.Execute(ctx, fail), errDown)
	assert.Equal(t, StateOpen, cb.State())
	assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrCircuitOpen, "cool-down restarts")
}

func TestCircuitBreaker_ProbeLimit(t *testing.T) {
	clock := &timeutil.FixedClock{T: time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)}
	var transitions []State
	cb := newTestBreaker(clock, &transitions)
	ctx := context.Background()

	_ = cb.Execute(ctx, fail)
	_ = cb.Execute(ctx, fail)
	clock.Advance(time.Minute)

	err := cb.Execute(ctx, func(ctx context.Context) error {
		// A second call while the probe is in flight is rejected.
		assert.ErrorIs(t, cb.Execute(ctx, succeed), ErrTooManyProbes)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, StateClosed, cb.State())
}

func TestCircuitBreaker_IsFailureFilter(t *testing.T) {
	cb := New("filter", WithFailureThreshold(1), WithIsFailure(func(err error) bool {
		return !errors.Is(err, context.Canceled)
	}))

	assert.ErrorIs(t, cb.Execute(context.Background(), func(context.Context) error { return context.Canceled }), context.Canceled)
	assert.Equal(t, StateClosed, cb.State())

	cb.Observe(errDown)
	assert.Equal(t, StateOpen, cb.State())

	cb.Reset()
	assert.Equal(t, StateClosed, cb.State())
	assert.Equal(t, Counts{}, cb.Counts())
}

func TestCacheBreaker(t *testing.T) {
	cb := CacheBreaker("progress_cache", nil)
	assert.Equal(t, "progress_cache", cb.Name())

	for i := 0; i < 3; i++ {
		_ = cb.Execute(context.Background(), fail)
	}
	assert.Equal(t, StateOpen, cb.State())
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "closed", StateClosed.String())
	assert.Equal(t, "open", StateOpen.String())
	assert.Equal(t, "half-open", StateHalfOpen.String())
	assert.Equal(t, "unknown", State(9).String())
}
