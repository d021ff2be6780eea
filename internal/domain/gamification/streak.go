package gamification

import (
	"time"

	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// STREAK TRACKER
// ══════════════════════════════════════════════════════════════════════════════

// StreakScopeGlobal - область глобальной серии занятий.
const StreakScopeGlobal = "global"

// Streak - серия последовательных календарных дней активности.
// Одна и та же структура используется для глобального профиля и для
// прогресса по каждому языку.
type Streak struct {
	// Current - текущая серия дней.
	Current int `json:"current"`

	// Longest - лучшая серия за всё время.
	Longest int `json:"longest"`

	// LastActiveAt - время последней активности, nil если активности не было.
	LastActiveAt *time.Time `json:"last_active_at,omitempty"`
}

// StreakChange - результат RecordActivity.
type StreakChange int

const (
	// StreakUnchanged - активность в тот же день.
	StreakUnchanged StreakChange = iota
	// StreakExtended - активность на следующий день.
	StreakExtended
	// StreakReset - серия началась заново.
	StreakReset
)

// RecordActivity регистрирует активность в момент now.
// Дни считаются по полуночи в loc (nil = UTC). LastActiveAt обновляется всегда.
func (s *Streak) RecordActivity(now time.Time, loc *time.Location) StreakChange {
	change := StreakReset

	if s.LastActiveAt != nil {
		switch days := timeutil.DaysBetween(*s.LastActiveAt, now, loc); {
		case days <= 0:
			// Тот же день. Отрицательная разница (часы рассинхронизированы)
			// тоже не двигает серию.
			change = StreakUnchanged
		case days == 1:
			change = StreakExtended
		}
	}

	switch change {
	case StreakExtended:
		s.Current++
	case StreakReset:
		s.Current = 1
	}
	if s.Current > s.Longest {
		s.Longest = s.Current
	}

	at := now
	s.LastActiveAt = &at
	return change
}

// IsBroken сообщает, что с последней активности прошло больше одного дня.
func (s Streak) IsBroken(now time.Time, loc *time.Location) bool {
	if s.LastActiveAt == nil {
		return false
	}
	return timeutil.DaysBetween(*s.LastActiveAt, now, loc) > 1
}

// Effective возвращает серию для отображения: 0, если она уже прервана.
// Состояние при этом не меняется.
func (s Streak) Effective(now time.Time, loc *time.Location) int {
	if s.IsBroken(now, loc) {
		return 0
	}
	return s.Current
}
