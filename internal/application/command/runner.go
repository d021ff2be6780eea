// Package command contains write operations (CQRS - Commands).
package command

import (
	"context"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
	"github.com/alem-hub/lingo-progress/pkg/retry"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

var tracer = otel.Tracer("github.com/alem-hub/lingo-progress/internal/application/command")

var validate = validator.New(validator.WithRequiredStructEnabled())

// validateCommand runs struct-tag validation and maps failures to ErrValidation.
func validateCommand(op string, cmd any) error {
	if err := validate.Struct(cmd); err != nil {
		return shared.WrapError("command", op, shared.ErrValidation, "invalid command", err)
	}
	return nil
}

// ══════════════════════════════════════════════════════════════════════════════
// RUNNER
// Every command executes inside one unit of work. Optimistic-lock conflicts
// re-run the whole command; every other failure is returned as is.
// Events are published only after a successful commit.
// ══════════════════════════════════════════════════════════════════════════════

// RunnerConfig contains configuration for the Runner.
type RunnerConfig struct {
	// ConflictRetries is the number of attempts on optimistic-lock conflict.
	ConflictRetries int

	// ConflictBackoff is the first delay between attempts.
	ConflictBackoff time.Duration
}

// DefaultRunnerConfig returns default configuration.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		ConflictRetries: 4,
		ConflictBackoff: 5 * time.Millisecond,
	}
}

// Runner executes command bodies transactionally.
type Runner struct {
	uows      uow.Factory
	locker    uow.Locker
	publisher shared.EventPublisher
	clock     timeutil.Clock
	retrier   *retry.Retrier
	log       *logger.Logger
}

// NewRunner creates a new Runner. locker, publisher, clock and log may be nil.
func NewRunner(
	uows uow.Factory,
	locker uow.Locker,
	publisher shared.EventPublisher,
	clock timeutil.Clock,
	log *logger.Logger,
	config RunnerConfig,
) *Runner {
	if locker == nil {
		locker = uow.NoopLocker{}
	}
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if log == nil {
		log = logger.Nop()
	}
	if config.ConflictRetries <= 0 {
		config = DefaultRunnerConfig()
	}

	r := &Runner{
		uows:      uows,
		locker:    locker,
		publisher: publisher,
		clock:     clock,
		log:       log.With(logger.Component("command_runner")),
	}
	r.retrier = retry.New(
		retry.WithMaxAttempts(config.ConflictRetries),
		retry.WithInitialDelay(config.ConflictBackoff),
		retry.WithRetryIf(shared.IsConflict),
		retry.WithOnRetry(func(attempt int, err error, delay time.Duration) {
			r.log.Warn("optimistic lock conflict, retrying",
				logger.Int("attempt", attempt),
				logger.Duration("delay", delay),
				logger.Err(err),
			)
		}),
	)
	return r
}

// Body is the transactional part of a command.
type Body func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error

// Run executes body for learnerID. op names the span and log entries.
func (r *Runner) Run(ctx context.Context, op, learnerID string, body Body) error {
	ctx, span := tracer.Start(ctx, "command."+op, trace.WithAttributes(
		attribute.String("learner.id", learnerID),
	))
	defer span.End()

	start := time.Now()
	log := r.log.With(logger.Operation(op), logger.LearnerID(learnerID))

	unlock, err := r.locker.Lock(ctx, learnerID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "lock")
		return err
	}
	defer unlock()

	events := &shared.EventCollector{}
	err = r.retrier.Do(ctx, func(ctx context.Context) error {
		events.Reset()
		return r.attempt(ctx, events, body)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Debug("command failed", logger.Err(err), logger.Latency(time.Since(start)))
		return err
	}

	if perr := events.PublishAll(r.publisher); perr != nil {
		log.Warn("failed to publish events", logger.Err(perr))
	}
	span.SetAttributes(attribute.Int("events.count", len(events.Events())))
	log.Debug("command executed", logger.Latency(time.Since(start)))
	return nil
}

func (r *Runner) attempt(ctx context.Context, events *shared.EventCollector, body Body) error {
	tx, err := r.uows.Begin(ctx)
	if err != nil {
		return err
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := body(ctx, tx, events, r.clock.Now()); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return err
	}
	committed = true
	return nil
}

// Now returns the runner's clock reading.
func (r *Runner) Now() time.Time {
	return r.clock.Now()
}
