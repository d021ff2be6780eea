package gamification

import (
	"context"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Реализации находятся в infrastructure/persistence.
// Save* методы работают как upsert с проверкой Version: новая строка
// имеет Version == 0, после успешного сохранения Version увеличивается.
// При несовпадении версии возвращается shared.ErrOptimisticLock.
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище игрового прогресса.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Profile
	// ─────────────────────────────────────────────────────────────────────────

	// GetProfile возвращает профиль ученика.
	// Возвращает shared.ErrProfileNotFound, если профиля нет.
	GetProfile(ctx context.Context, learnerID string) (*LearnerProfile, error)

	// SaveProfile создаёт или обновляет профиль.
	SaveProfile(ctx context.Context, p *LearnerProfile) error

	// ─────────────────────────────────────────────────────────────────────────
	// Daily Goal
	// ─────────────────────────────────────────────────────────────────────────

	// GetDailyGoal возвращает цель за день.
	// Возвращает shared.ErrDailyGoalNotFound, если записи нет.
	GetDailyGoal(ctx context.Context, learnerID string, day time.Time) (*DailyGoal, error)

	// SaveDailyGoal создаёт или обновляет цель за день.
	SaveDailyGoal(ctx context.Context, g *DailyGoal) error

	// ─────────────────────────────────────────────────────────────────────────
	// Achievements
	// ─────────────────────────────────────────────────────────────────────────

	// ListUserAchievements возвращает все строки достижений ученика.
	ListUserAchievements(ctx context.Context, learnerID string) ([]*UserAchievement, error)

	// SaveUserAchievement создаёт или обновляет строку достижения.
	SaveUserAchievement(ctx context.Context, a *UserAchievement) error
}
