// Package eventhandler содержит обработчики доменных событий.
// Обработчики вызываются после фиксации транзакции и отвечают за
// побочные эффекты: сброс кэшей и журналирование значимых событий.
package eventhandler

import (
	"context"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/query"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ═══════════════════════════════════════════════════════════════════════════
// ON PROGRESS CHANGED HANDLER
// Любое событие ученика делает его сводку прогресса устаревшей.
// ═══════════════════════════════════════════════════════════════════════════

// milestoneEvents - события, которые стоит видеть в логе на уровне Info.
var milestoneEvents = map[shared.EventType]bool{
	shared.EventCourseCompleted:     true,
	shared.EventLevelUp:             true,
	shared.EventAchievementUnlocked: true,
	shared.EventCertificateIssued:   true,
	shared.EventCertificateRevoked:  true,
}

// OnProgressChangedHandler сбрасывает кэш сводки прогресса.
type OnProgressChangedHandler struct {
	cache   query.ProgressCache
	timeout time.Duration
	logger  *logger.Logger
}

// NewOnProgressChangedHandler создаёт обработчик. cache может быть nil:
// тогда обработчик только журналирует события.
func NewOnProgressChangedHandler(cache query.ProgressCache, log *logger.Logger) *OnProgressChangedHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &OnProgressChangedHandler{
		cache:   cache,
		timeout: 2 * time.Second,
		logger:  log.With(logger.Component("on_progress_changed")),
	}
}

// Register подписывает обработчик на все события.
func (h *OnProgressChangedHandler) Register(bus shared.EventSubscriber) error {
	return bus.SubscribeAll(h.Handle)
}

// Handle обрабатывает одно событие.
func (h *OnProgressChangedHandler) Handle(event shared.Event) error {
	learnerID := event.AggregateID()
	if learnerID == "" {
		return nil
	}

	if milestoneEvents[event.EventType()] {
		h.logger.Info("progress milestone",
			logger.LearnerID(learnerID),
			logger.String("event_type", string(event.EventType())),
			logger.Any("payload", event.Payload()),
		)
	}

	if h.cache == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	defer cancel()
	return h.cache.InvalidateProgress(ctx, learnerID)
}
