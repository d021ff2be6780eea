package progress

import (
	"math"
)

// LessonScore - процент верных ответов, округлённый до целого.
// Урок без ответов получает 0.
func LessonScore(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return int(math.Round(float64(correct) / float64(total) * 100))
}

// TallyAnswers считает верные и все ответы урока.
func TallyAnswers(answers []*ExerciseAnswer) (correct, total int) {
	for _, a := range answers {
		total++
		if a.IsCorrect {
			correct++
		}
	}
	return correct, total
}

// StarsForScore переводит среднюю оценку юнита в звёзды.
func StarsForScore(avg float64) int {
	switch {
	case avg >= 90:
		return 3
	case avg >= 70:
		return 2
	default:
		return 1
	}
}

// UnitRollup - сводка по урокам юнита.
type UnitRollup struct {
	// Complete - у юнита есть уроки, и все они завершены.
	Complete bool

	// LessonsXP - сумма XP завершённых уроков.
	LessonsXP int

	// AverageScore - средняя оценка завершённых уроков.
	AverageScore float64

	// Stars - звёзды по средней оценке (имеет смысл при Complete).
	Stars int
}

// RollupUnit сводит прогресс уроков юнита. lessonIDs - состав юнита по
// каталогу, byLesson - строки прогресса ученика по ID урока.
// Юнит без уроков считается незавершённым.
func RollupUnit(lessonIDs []string, byLesson map[string]*LessonProgress) UnitRollup {
	var r UnitRollup
	if len(lessonIDs) == 0 {
		return r
	}

	completed, scoreSum := 0, 0
	for _, id := range lessonIDs {
		lp, ok := byLesson[id]
		if !ok || !lp.Completed {
			continue
		}
		completed++
		scoreSum += lp.Score
		r.LessonsXP += lp.XPEarned
	}

	if completed > 0 {
		r.AverageScore = float64(scoreSum) / float64(completed)
	}
	r.Complete = completed == len(lessonIDs)
	if r.Complete {
		r.Stars = StarsForScore(r.AverageScore)
	}
	return r
}

// CourseRollup - сводка по юнитам курса.
type CourseRollup struct {
	// Complete - у курса есть юниты, и все они завершены.
	Complete bool

	// UnitsXP - сумма XP завершённых юнитов.
	UnitsXP int
}

// RollupCourse сводит прогресс юнитов курса. Курс без юнитов
// считается незавершённым.
func RollupCourse(unitIDs []string, byUnit map[string]*UnitProgress) CourseRollup {
	var r CourseRollup
	if len(unitIDs) == 0 {
		return r
	}

	completed := 0
	for _, id := range unitIDs {
		up, ok := byUnit[id]
		if !ok || !up.Completed {
			continue
		}
		completed++
		r.UnitsXP += up.XPEarned
	}

	r.Complete = completed == len(unitIDs)
	return r
}

// CourseStats - средняя оценка и количество завершённых уроков курса.
func CourseStats(lessons []*LessonProgress) (avg float64, completed int) {
	sum := 0
	for _, lp := range lessons {
		if !lp.Completed {
			continue
		}
		completed++
		sum += lp.Score
	}
	if completed == 0 {
		return 0, 0
	}
	return float64(sum) / float64(completed), completed
}

// IndexLessons строит индекс строк прогресса по ID урока.
func IndexLessons(rows []*LessonProgress) map[string]*LessonProgress {
	out := make(map[string]*LessonProgress, len(rows))
	for _, r := range rows {
		out[r.LessonID] = r
	}
	return out
}

// IndexUnits строит индекс строк прогресса по ID юнита.
func IndexUnits(rows []*UnitProgress) map[string]*UnitProgress {
	out := make(map[string]*UnitProgress, len(rows))
	for _, r := range rows {
		out[r.UnitID] = r
	}
	return out
}
