// Package uow определяет единицу работы: все записи одной команды
// фиксируются вместе или не фиксируются вовсе.
package uow

import (
	"context"

	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
)

// UnitOfWork представляет единицу работы с транзакционной семантикой.
type UnitOfWork interface {
	// Progress возвращает репозиторий прогресса в рамках транзакции.
	Progress() progress.Repository

	// Gamification возвращает репозиторий игрового прогресса.
	Gamification() gamification.Repository

	// Certifications возвращает репозиторий сертификатов.
	Certifications() certification.Repository

	// Commit фиксирует транзакцию. Конфликт версий даёт shared.ErrOptimisticLock.
	Commit(ctx context.Context) error

	// Rollback откатывает транзакцию. Повторный вызов безопасен.
	Rollback(ctx context.Context) error
}

// Factory создаёт единицы работы.
type Factory interface {
	// Begin начинает новую транзакцию.
	Begin(ctx context.Context) (UnitOfWork, error)
}

// Locker сериализует команды одного ученика (single-writer).
type Locker interface {
	// Lock захватывает блокировку ученика; unlock освобождает её.
	Lock(ctx context.Context, learnerID string) (unlock func(), err error)
}

// NoopLocker не блокирует ничего; защита обеспечивается версиями строк.
type NoopLocker struct{}

// Lock implements Locker.
func (NoopLocker) Lock(context.Context, string) (func(), error) {
	return func() {}, nil
}
