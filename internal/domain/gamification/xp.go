// Package gamification содержит правила начисления XP, уровней, рангов,
// серий (streak), дневных целей и достижений.
package gamification

import (
	"math"
)

// ══════════════════════════════════════════════════════════════════════════════
// XP CALCULATOR
// ══════════════════════════════════════════════════════════════════════════════

const (
	// SessionXPPerHour - базовый XP за час занятия с репетитором.
	SessionXPPerHour = 50

	// SessionMinXP - минимальная награда за занятие, независимо от длительности.
	SessionMinXP = 25

	// RatingBaseline - оценка, при которой бонус за рейтинг равен нулю.
	RatingBaseline = 3

	// RatingBonusStep - XP за каждый пункт оценки выше/ниже базовой.
	RatingBonusStep = 10

	// HintPenalty - доля награды, снимаемая за каждую подсказку.
	HintPenalty = 0.2

	// XPPerLevelUnit - делитель в формуле уровня.
	XPPerLevelUnit = 100
)

// XPSource описывает, за что начислен XP.
type XPSource string

const (
	SourceExercise      XPSource = "exercise"
	SourceLesson        XPSource = "lesson_completion"
	SourceUnit          XPSource = "unit_completion"
	SourceCourse        XPSource = "course_completion"
	SourceSession       XPSource = "session"
	SourceAchievement   XPSource = "achievement"
	SourceCertification XPSource = "certification"
)

// SessionXP считает XP за завершённое занятие.
// rating == nil означает, что оценки нет и бонус не применяется.
func SessionXP(durationHours float64, rating *int) int {
	base := int(math.Floor(durationHours * SessionXPPerHour))
	bonus := 0
	if rating != nil {
		bonus = (*rating - RatingBaseline) * RatingBonusStep
	}
	return max(base+bonus, SessionMinXP)
}

// ExerciseXP считает XP за ответ на упражнение.
// Неверный ответ или нулевая награда дают 0; иначе каждая подсказка
// снимает 20%, но не ниже 1 XP.
func ExerciseXP(reward int, correct bool, hintsUsed int) int {
	if !correct || reward <= 0 {
		return 0
	}
	if hintsUsed < 0 {
		hintsUsed = 0
	}
	award := int(math.Floor(float64(reward) * (1 - float64(hintsUsed)*HintPenalty)))
	return max(1, award)
}

// ══════════════════════════════════════════════════════════════════════════════
// LEVELS & RANKS
// ══════════════════════════════════════════════════════════════════════════════

// LevelForXP возвращает уровень для суммарного XP: floor(sqrt(xp/100)) + 1.
func LevelForXP(totalXP int) int {
	if totalXP <= 0 {
		return 1
	}
	return int(math.Floor(math.Sqrt(float64(totalXP)/XPPerLevelUnit))) + 1
}

// XPForLevel возвращает минимальный суммарный XP, начиная с которого
// достигается уровень level.
func XPForLevel(level int) int {
	if level <= 1 {
		return 0
	}
	n := level - 1
	return n * n * XPPerLevelUnit
}

// LevelProgress описывает положение внутри текущего уровня.
type LevelProgress struct {
	// Level - текущий уровень.
	Level int `json:"level"`

	// XPIntoLevel - XP, набранный с начала текущего уровня.
	XPIntoLevel int `json:"xp_into_level"`

	// XPForNextLevel - сколько XP занимает текущий уровень целиком.
	XPForNextLevel int `json:"xp_for_next_level"`
}

// ProgressForXP вычисляет LevelProgress для суммарного XP.
func ProgressForXP(totalXP int) LevelProgress {
	level := LevelForXP(totalXP)
	floor := XPForLevel(level)
	return LevelProgress{
		Level:          level,
		XPIntoLevel:    totalXP - floor,
		XPForNextLevel: XPForLevel(level+1) - floor,
	}
}

// Rank - ранг, выводимый из уровня.
type Rank string

const (
	RankBronze   Rank = "Bronze"
	RankSilver   Rank = "Silver"
	RankGold     Rank = "Gold"
	RankPlatinum Rank = "Platinum"
	RankDiamond  Rank = "Diamond"
)

// rankThresholds упорядочены от старшего к младшему, побеждает первое совпадение.
var rankThresholds = []struct {
	minLevel int
	rank     Rank
}{
	{50, RankDiamond},
	{30, RankPlatinum},
	{20, RankGold},
	{10, RankSilver},
}

// RankForLevel возвращает ранг для уровня.
func RankForLevel(level int) Rank {
	for _, t := range rankThresholds {
		if level >= t.minLevel {
			return t.rank
		}
	}
	return RankBronze
}
