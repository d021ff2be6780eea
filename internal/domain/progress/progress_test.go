package progress

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
)

var now = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func TestLessonScore(t *testing.T) {
	assert.Equal(t, 0, LessonScore(0, 0))
	assert.Equal(t, 60, LessonScore(3, 5))
	assert.Equal(t, 100, LessonScore(4, 4))
	assert.Equal(t, 67, LessonScore(2, 3))
	assert.Equal(t, 13, LessonScore(1, 8), "halves round up")
}

func TestTallyAnswers(t *testing.T) {
	answers := []*ExerciseAnswer{{IsCorrect: true}, {IsCorrect: false}, {IsCorrect: true}}
	correct, total := TallyAnswers(answers)
	assert.Equal(t, 2, correct)
	assert.Equal(t, 3, total)

	correct, total = TallyAnswers(nil)
	assert.Zero(t, correct)
	assert.Zero(t, total)
}

func TestStarsForScore(t *testing.T) {
	assert.Equal(t, 3, StarsForScore(90))
	assert.Equal(t, 2, StarsForScore(89.9))
	assert.Equal(t, 2, StarsForScore(70))
	assert.Equal(t, 1, StarsForScore(69.99))
	assert.Equal(t, 1, StarsForScore(0))
}

func TestLessonProgress_Lifecycle(t *testing.T) {
	var missing *LessonProgress
	assert.Equal(t, LessonNotStarted, missing.Status())

	lp := NewLessonProgress("l1", "lesson-1", "unit-1", "course-1", 2, now)
	assert.Equal(t, LessonInProgress, lp.Status())
	assert.Equal(t, 1, lp.Attempts)

	lp.ApplyAnswer(true, 3, now)
	lp.ApplyAnswer(false, 0, now)
	lp.ApplyAnswer(false, 0, now)
	lp.ApplyAnswer(false, 0, now)
	assert.Equal(t, 3, lp.XPEarned)
	assert.Equal(t, 0, lp.Hearts, "hearts never go negative")
	assert.True(t, lp.IsExhausted())

	lp.Restart(5, now.Add(time.Minute))
	assert.Equal(t, 5, lp.Hearts)
	assert.Equal(t, 2, lp.Attempts)
	assert.Equal(t, 3, lp.XPEarned, "restart keeps earned XP")

	lp.Complete(80, 10, now.Add(2*time.Minute))
	assert.Equal(t, LessonCompleted, lp.Status())
	assert.Equal(t, 80, lp.Score)
	assert.Equal(t, 13, lp.XPEarned)
	require.NotNil(t, lp.CompletedAt)

	lp.Restart(5, now.Add(3*time.Minute))
	assert.True(t, lp.Completed, "restarting a completed lesson keeps it completed")
}

func TestLessonProgress_CompleteIgnoresNegativeBonus(t *testing.T) {
	lp := NewLessonProgress("l1", "lesson-1", "unit-1", "course-1", 5, now)
	lp.Complete(100, -5, now)
	assert.Equal(t, 0, lp.XPEarned)
}

func TestRollupUnit(t *testing.T) {
	done := func(id string, score, xp int) *LessonProgress {
		lp := NewLessonProgress("l1", id, "u", "c", 5, now)
		lp.XPEarned = xp
		lp.Complete(score, 0, now)
		return lp
	}

	t.Run("empty unit never completes", func(t *testing.T) {
		r := RollupUnit(nil, map[string]*LessonProgress{})
		assert.False(t, r.Complete)
		assert.Zero(t, r.Stars)
	})

	t.Run("partial", func(t *testing.T) {
		r := RollupUnit([]string{"a", "b"}, IndexLessons([]*LessonProgress{done("a", 100, 12)}))
		assert.False(t, r.Complete)
		assert.Equal(t, 12, r.LessonsXP)
		assert.Equal(t, 100.0, r.AverageScore)
		assert.Zero(t, r.Stars)
	})

	t.Run("in-progress lesson does not count", func(t *testing.T) {
		started := NewLessonProgress("l1", "b", "u", "c", 5, now)
		started.XPEarned = 7
		r := RollupUnit([]string{"a", "b"}, IndexLessons([]*LessonProgress{done("a", 100, 12), started}))
		assert.False(t, r.Complete)
		assert.Equal(t, 12, r.LessonsXP)
	})

	t.Run("complete", func(t *testing.T) {
		r := RollupUnit([]string{"a", "b"}, IndexLessons([]*LessonProgress{done("a", 100, 12), done("b", 60, 8)}))
		assert.True(t, r.Complete)
		assert.Equal(t, 20, r.LessonsXP)
		assert.Equal(t, 80.0, r.AverageScore)
		assert.Equal(t, 2, r.Stars)
	})
}

func TestRollupCourse(t *testing.T) {
	unit := func(id string, completed bool, xp int) *UnitProgress {
		up := NewUnitProgress("l1", id, "c", now)
		up.Completed = completed
		up.XPEarned = xp
		return up
	}

	assert.False(t, RollupCourse(nil, nil).Complete)

	r := RollupCourse([]string{"u1", "u2"}, IndexUnits([]*UnitProgress{unit("u1", true, 30), unit("u2", false, 0)}))
	assert.False(t, r.Complete)
	assert.Equal(t, 30, r.UnitsXP)

	r = RollupCourse([]string{"u1", "u2"}, IndexUnits([]*UnitProgress{unit("u1", true, 30), unit("u2", true, 25)}))
	assert.True(t, r.Complete)
	assert.Equal(t, 55, r.UnitsXP)
}

func TestCourseStats(t *testing.T) {
	a := NewLessonProgress("l1", "a", "u", "c", 5, now)
	a.Complete(90, 0, now)
	b := NewLessonProgress("l1", "b", "u", "c", 5, now)
	b.Complete(60, 0, now)
	c := NewLessonProgress("l1", "c", "u", "c", 5, now)

	avg, completed := CourseStats([]*LessonProgress{a, b, c})
	assert.Equal(t, 75.0, avg)
	assert.Equal(t, 2, completed)

	avg, completed = CourseStats([]*LessonProgress{c})
	assert.Zero(t, avg)
	assert.Zero(t, completed)
}

func TestLanguageProgress_Practice(t *testing.T) {
	lp := NewLanguageProgress("l1", "lang-es", now)

	assert.Equal(t, gamification.StreakReset, lp.Practice(10, now, nil))
	assert.Equal(t, gamification.StreakUnchanged, lp.Practice(0, now.Add(time.Hour), nil))
	assert.Equal(t, gamification.StreakExtended, lp.Practice(5, now.AddDate(0, 0, 1), nil))

	assert.Equal(t, 15, lp.XPEarned)
	assert.Equal(t, 2, lp.Streak.Current)
	require.NotNil(t, lp.LastPracticedAt())
	assert.Equal(t, now.AddDate(0, 0, 1), *lp.LastPracticedAt())
}
