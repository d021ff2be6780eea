package messaging

import (
	"context"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

var at = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func xpEvent(learnerID string) shared.Event {
	return shared.NewXPGainedEvent(learnerID, 10, "exercise", "lang-es", 10, at)
}

func TestInMemoryEventBus_Dispatch(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	var typed, all []string
	require.NoError(t, bus.Subscribe(shared.EventXPGained, func(e shared.Event) error {
		typed = append(typed, e.AggregateID())
		return nil
	}))
	require.NoError(t, bus.SubscribeAll(func(e shared.Event) error {
		all = append(all, string(e.EventType()))
		return nil
	}))

	require.NoError(t, bus.Publish(xpEvent("learner-1")))
	require.NoError(t, bus.Publish(shared.NewLevelUpEvent("learner-1", 1, 2, "Bronze", at)))

	assert.Equal(t, []string{"learner-1"}, typed)
	assert.Equal(t, []string{string(shared.EventXPGained), string(shared.EventLevelUp)}, all)

	m := bus.Metrics()
	assert.EqualValues(t, 2, m.TotalPublished)
	assert.EqualValues(t, 3, m.TotalHandlerExecs)
	assert.Zero(t, m.HandlerFailures)
}

func TestInMemoryEventBus_HandlerFailuresAreContained(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: false})
	defer bus.Close()

	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { panic("boom") }))
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error { return assert.AnError }))

	assert.NoError(t, bus.Publish(xpEvent("learner-1")), "handler failures never reach the publisher")
	assert.EqualValues(t, 2, bus.Metrics().HandlerFailures)
}

func TestInMemoryEventBus_Async(t *testing.T) {
	bus := NewInMemoryEventBus(InMemoryEventBusConfig{AsyncMode: true, WorkerPoolSize: 2})

	var handled atomic.Int32
	require.NoError(t, bus.SubscribeAll(func(shared.Event) error {
		handled.Add(1)
		return nil
	}))

	for i := 0; i < 20; i++ {
		require.NoError(t, bus.Publish(xpEvent("learner-1")))
	}
	bus.Wait()
	assert.EqualValues(t, 20, handled.Load())

	require.NoError(t, bus.Close())
	assert.ErrorIs(t, bus.Publish(xpEvent("learner-1")), ErrEventBusClosed)
	assert.ErrorIs(t, bus.SubscribeAll(func(shared.Event) error { return nil }), ErrEventBusClosed)
}

func TestInMemoryEventBus_RejectsNil(t *testing.T) {
	bus := NewInMemoryEventBus(DefaultInMemoryEventBusConfig())
	defer bus.Close()

	assert.Error(t, bus.Publish(nil))
	assert.Error(t, bus.Subscribe(shared.EventXPGained, nil))
}

func TestRedisEventBus_FanOut(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	client := redis.NewClient(&redis.Options{Addr: addr})
	defer client.Close()

	cfg := RedisEventBusConfig{
		Channel: "lingo-progress:test:" + t.Name(),
		Local:   InMemoryEventBusConfig{AsyncMode: false},
	}
	sender, err := NewRedisEventBus(ctx, client, cfg)
	require.NoError(t, err)
	defer sender.Close()
	receiver, err := NewRedisEventBus(ctx, client, cfg)
	require.NoError(t, err)
	defer receiver.Close()

	var (
		mu       sync.Mutex
		local    int
		received []shared.Event
	)
	require.NoError(t, sender.SubscribeAll(func(shared.Event) error {
		mu.Lock()
		local++
		mu.Unlock()
		return nil
	}))
	require.NoError(t, receiver.SubscribeAll(func(e shared.Event) error {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
		return nil
	}))

	require.NoError(t, sender.Publish(xpEvent("learner-7")))

	assert.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(received) == 1
	}, 5*time.Second, 20*time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, local, "own events are not dispatched twice")
	env, ok := received[0].(Envelope)
	require.True(t, ok)
	assert.Equal(t, shared.EventXPGained, env.EventType())
	assert.Equal(t, "learner-7", env.AggregateID())
	assert.True(t, at.Equal(env.OccurredAt()))
}
