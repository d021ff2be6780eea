package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/pkg/circuitbreaker"
)

// ProgressCache stores GetUserProgress views, one key per learner, next to a
// per-learner generation counter that every invalidation increments.
// Reads and writes go through a circuit breaker; while it is open a read is a
// miss and a write is skipped. Invalidation is always attempted.
type ProgressCache struct {
	cache   *Cache
	ttl     time.Duration
	breaker *circuitbreaker.CircuitBreaker
}

var _ query.ProgressCache = (*ProgressCache)(nil)

// NewProgressCache creates a ProgressCache. ttl <= 0 uses TTLProgressView.
// A nil breaker disables the protection.
func NewProgressCache(cache *Cache, ttl time.Duration, breaker *circuitbreaker.CircuitBreaker) *ProgressCache {
	if ttl <= 0 {
		ttl = TTLProgressView
	}
	return &ProgressCache{cache: cache, ttl: ttl, breaker: breaker}
}

func progressKey(learnerID string) string {
	return PrefixProgress + learnerID
}

func generationKey(learnerID string) string {
	return PrefixProgressGeneration + learnerID
}

// generationTTL keeps the counter well past the lifetime of a view.
func (p *ProgressCache) generationTTL() time.Duration {
	return 2 * p.ttl
}

func (p *ProgressCache) guard(ctx context.Context, fn func(context.Context) error) error {
	if p.breaker == nil {
		return fn(ctx)
	}
	return p.breaker.Execute(ctx, fn)
}

// GetProgress implements query.ProgressCache. The view and the generation are
// read in one round trip.
func (p *ProgressCache) GetProgress(ctx context.Context, learnerID string) (*query.UserProgressDTO, int64, error) {
	var (
		view       *query.UserProgressDTO
		generation int64
	)
	err := p.guard(ctx, func(ctx context.Context) error {
		pipe := p.cache.Client().Pipeline()
		viewCmd := pipe.Get(ctx, progressKey(learnerID))
		genCmd := pipe.Get(ctx, generationKey(learnerID))
		if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
			return err
		}

		gen, err := genCmd.Int64()
		switch {
		case errors.Is(err, redis.Nil):
		case err != nil:
			return fmt.Errorf("%w: generation: %v", ErrCacheSerialization, err)
		default:
			generation = gen
		}

		data, err := viewCmd.Bytes()
		if errors.Is(err, redis.Nil) {
			return nil
		}
		if err != nil {
			return err
		}
		var v query.UserProgressDTO
		if err := json.Unmarshal(data, &v); err != nil {
			return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
		}
		view = &v
		return nil
	})
	switch {
	case circuitbreaker.IsRejected(err):
		return nil, 0, nil
	case err != nil:
		return nil, 0, err
	}
	return view, generation, nil
}

// SetProgress implements query.ProgressCache. The generation key is watched so
// an invalidation landing between the check and the write aborts the write.
func (p *ProgressCache) SetProgress(ctx context.Context, view *query.UserProgressDTO, generation int64) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrCacheSerialization, err)
	}
	genKey := generationKey(view.LearnerID)

	err = p.guard(ctx, func(ctx context.Context) error {
		err := p.cache.Client().Watch(ctx, func(tx *redis.Tx) error {
			current, err := tx.Get(ctx, genKey).Int64()
			if err != nil && !errors.Is(err, redis.Nil) {
				return err
			}
			if current != generation {
				return errStaleView
			}
			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, progressKey(view.LearnerID), data, p.ttl)
				return nil
			})
			return err
		}, genKey)
		if errors.Is(err, errStaleView) || errors.Is(err, redis.TxFailedErr) {
			return nil
		}
		return err
	})
	if circuitbreaker.IsRejected(err) {
		return nil
	}
	return err
}

// errStaleView marks a write dropped because the learner was invalidated.
var errStaleView = errors.New("progress view is stale")

// InvalidateProgress implements query.ProgressCache.
func (p *ProgressCache) InvalidateProgress(ctx context.Context, learnerID string) error {
	genKey := generationKey(learnerID)
	_, err := p.cache.Client().TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, genKey)
		pipe.Expire(ctx, genKey, p.generationTTL())
		pipe.Del(ctx, progressKey(learnerID))
		return nil
	})
	if p.breaker != nil {
		p.breaker.Observe(err)
	}
	return err
}
