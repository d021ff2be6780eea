package redis

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// unlockScript deletes the lock only if it still holds our token.
var unlockScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LearnerLocker serializes commands of one learner across instances with
// SET NX leases.
type LearnerLocker struct {
	client *redis.Client
	ttl    time.Duration
	wait   time.Duration
	poll   time.Duration
}

var _ uow.Locker = (*LearnerLocker)(nil)

// NewLearnerLocker creates a locker. wait bounds how long Lock polls for a
// busy lease.
func NewLearnerLocker(client *redis.Client, ttl, wait time.Duration) *LearnerLocker {
	if ttl <= 0 {
		ttl = TTLLearnerLock
	}
	if wait <= 0 {
		wait = 2 * time.Second
	}
	return &LearnerLocker{client: client, ttl: ttl, wait: wait, poll: 25 * time.Millisecond}
}

// Lock implements uow.Locker. A lease still busy after the wait window
// yields shared.ErrConcurrentModification.
func (l *LearnerLocker) Lock(ctx context.Context, learnerID string) (func(), error) {
	key := PrefixLock + learnerID
	token := uuid.NewString()
	deadline := time.Now().Add(l.wait)

	for {
		ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, err
		}
		if ok {
			return func() {
				ctx, cancel := context.WithTimeout(context.Background(), time.Second)
				defer cancel()
				_ = unlockScript.Run(ctx, l.client, []string{key}, token).Err()
			}, nil
		}
		if time.Now().After(deadline) {
			return nil, shared.WrapError("redis", "LockLearner", shared.ErrConcurrentModification, "learner is busy", errors.New(key))
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(l.poll):
		}
	}
}
