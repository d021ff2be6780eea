package gamification

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// DAILY GOAL
// ══════════════════════════════════════════════════════════════════════════════

const (
	// DefaultDailyXPGoal - цель по XP на день.
	DefaultDailyXPGoal = 50

	// DefaultDailyLessonsGoal - цель по урокам на день.
	DefaultDailyLessonsGoal = 3
)

// DailyGoalTargets - фиксированные цели на день.
type DailyGoalTargets struct {
	XPGoal      int
	LessonsGoal int
}

// DefaultDailyGoalTargets возвращает цели по умолчанию.
func DefaultDailyGoalTargets() DailyGoalTargets {
	return DailyGoalTargets{
		XPGoal:      DefaultDailyXPGoal,
		LessonsGoal: DefaultDailyLessonsGoal,
	}
}

// DailyGoal - прогресс ученика за один календарный день.
type DailyGoal struct {
	// LearnerID - идентификатор ученика.
	LearnerID string `json:"learner_id"`

	// Day - календарный день (полночь, UTC-представление).
	Day time.Time `json:"day"`

	// XPEarned - XP, заработанный за день.
	XPEarned int `json:"xp_earned"`

	// LessonsCompleted - уроков завершено за день.
	LessonsCompleted int `json:"lessons_completed"`

	// XPGoal - цель по XP.
	XPGoal int `json:"xp_goal"`

	// LessonsGoal - цель по урокам.
	LessonsGoal int `json:"lessons_goal"`

	// Completed - обе цели достигнуты.
	Completed bool `json:"completed"`

	// CompletedAt - когда цель была достигнута.
	CompletedAt *time.Time `json:"completed_at,omitempty"`

	// Version - токен оптимистичной блокировки.
	Version int `json:"-"`
}

// NewDailyGoal создаёт пустую дневную цель.
func NewDailyGoal(learnerID string, day time.Time, targets DailyGoalTargets) *DailyGoal {
	return &DailyGoal{
		LearnerID:   learnerID,
		Day:         day,
		XPGoal:      targets.XPGoal,
		LessonsGoal: targets.LessonsGoal,
	}
}

// IsMet проверяет обе оси: выполнение только одной цели не засчитывается.
func (g *DailyGoal) IsMet() bool {
	return g.XPEarned >= g.XPGoal && g.LessonsCompleted >= g.LessonsGoal
}

// Add увеличивает счётчики и возвращает true, если цель была выполнена
// именно этим вызовом.
func (g *DailyGoal) Add(xp, lessons int, now time.Time) bool {
	if xp > 0 {
		g.XPEarned += xp
	}
	if lessons > 0 {
		g.LessonsCompleted += lessons
	}
	if g.Completed || !g.IsMet() {
		return false
	}
	g.Completed = true
	at := now
	g.CompletedAt = &at
	return true
}
