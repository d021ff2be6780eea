package gamification

import (
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// LEARNER PROFILE
// ══════════════════════════════════════════════════════════════════════════════

// LearnerProfile - глобальный игровой прогресс ученика: суммарный XP,
// уровень, ранг и серия занятий. Языковые серии хранятся отдельно.
type LearnerProfile struct {
	// LearnerID - непрозрачный идентификатор от сервиса аутентификации.
	LearnerID string `json:"learner_id"`

	// TotalXP - весь начисленный XP из всех источников.
	TotalXP int `json:"total_xp"`

	// Level - уровень, вычисленный из TotalXP.
	Level int `json:"level"`

	// Rank - ранг, вычисленный из Level.
	Rank Rank `json:"rank"`

	// Streak - глобальная серия занятий.
	Streak Streak `json:"streak"`

	// TotalSessions - завершённые занятия.
	TotalSessions int `json:"total_sessions"`

	// TotalHours - суммарная длительность занятий.
	TotalHours float64 `json:"total_hours"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Version - токен оптимистичной блокировки.
	Version int `json:"-"`
}

// NewLearnerProfile создаёт профиль с нулевым прогрессом.
func NewLearnerProfile(learnerID string, now time.Time) *LearnerProfile {
	return &LearnerProfile{
		LearnerID: learnerID,
		Level:     1,
		Rank:      RankBronze,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// LevelChange описывает изменение уровня после начисления XP.
type LevelChange struct {
	OldLevel int
	NewLevel int
}

// LeveledUp сообщает, вырос ли уровень.
func (c LevelChange) LeveledUp() bool {
	return c.NewLevel > c.OldLevel
}

// AddXP начисляет XP и пересчитывает уровень и ранг.
func (p *LearnerProfile) AddXP(amount int, now time.Time) LevelChange {
	change := LevelChange{OldLevel: p.Level}
	if amount > 0 {
		p.TotalXP += amount
	}
	p.Level = LevelForXP(p.TotalXP)
	p.Rank = RankForLevel(p.Level)
	p.UpdatedAt = now
	change.NewLevel = p.Level
	return change
}

// RecordSession учитывает завершённое занятие и обновляет глобальную серию.
func (p *LearnerProfile) RecordSession(durationHours float64, now time.Time, loc *time.Location) StreakChange {
	p.TotalSessions++
	if durationHours > 0 {
		p.TotalHours += durationHours
	}
	p.UpdatedAt = now
	return p.Streak.RecordActivity(now, loc)
}

// Snapshot возвращает данные для проверки достижений.
func (p *LearnerProfile) Snapshot() Snapshot {
	return Snapshot{
		CompletedSessions: p.TotalSessions,
		CurrentStreak:     p.Streak.Current,
	}
}
