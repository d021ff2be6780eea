// Package progress содержит иерархический прогресс ученика:
// ответ на упражнение → урок → юнит → курс, а также прогресс по языку.
package progress

import (
	"time"

	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
)

// ══════════════════════════════════════════════════════════════════════════════
// EXERCISE ANSWER
// ══════════════════════════════════════════════════════════════════════════════

// ExerciseAnswer - неизменяемая запись одной попытки. Попытки не
// дедуплицируются: каждая отправка даёт новую строку.
type ExerciseAnswer struct {
	ID         string `json:"id"`
	LearnerID  string `json:"learner_id"`
	ExerciseID string `json:"exercise_id"`
	LessonID   string `json:"lesson_id"`
	AnswerText string `json:"answer_text"`
	IsCorrect  bool   `json:"is_correct"`

	// TimeSpent - секунды на ответ, nil если клиент не прислал.
	TimeSpent *int `json:"time_spent,omitempty"`

	HintsUsed int       `json:"hints_used"`
	XPEarned  int       `json:"xp_earned"`
	CreatedAt time.Time `json:"created_at"`
}

// ══════════════════════════════════════════════════════════════════════════════
// LESSON PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// LessonStatus - состояние урока.
type LessonStatus string

const (
	LessonNotStarted LessonStatus = "not_started"
	LessonInProgress LessonStatus = "in_progress"
	LessonCompleted  LessonStatus = "completed"
)

// LessonProgress - прогресс по уроку (learner, lesson).
type LessonProgress struct {
	LearnerID string `json:"learner_id"`
	LessonID  string `json:"lesson_id"`
	UnitID    string `json:"unit_id"`
	CourseID  string `json:"course_id"`

	// Hearts - оставшийся бюджет ошибок.
	Hearts int `json:"hearts"`

	// Attempts - сколько раз урок начинался.
	Attempts int `json:"attempts"`

	// XPEarned - XP за упражнения плюс бонус за завершение.
	XPEarned int `json:"xp_earned"`

	Completed   bool       `json:"completed"`
	Score       int        `json:"score"`
	StartedAt   time.Time  `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`

	// Version - токен оптимистичной блокировки.
	Version int `json:"-"`
}

// NewLessonProgress создаёт прогресс при первом старте урока.
func NewLessonProgress(learnerID, lessonID, unitID, courseID string, hearts int, now time.Time) *LessonProgress {
	return &LessonProgress{
		LearnerID: learnerID,
		LessonID:  lessonID,
		UnitID:    unitID,
		CourseID:  courseID,
		Hearts:    hearts,
		Attempts:  1,
		StartedAt: now,
		UpdatedAt: now,
	}
}

// Status возвращает состояние урока.
func (p *LessonProgress) Status() LessonStatus {
	if p == nil {
		return LessonNotStarted
	}
	if p.Completed {
		return LessonCompleted
	}
	return LessonInProgress
}

// Restart - повторный старт: сердца восстанавливаются, попытка считается.
// Завершённый урок остаётся завершённым.
func (p *LessonProgress) Restart(hearts int, now time.Time) {
	p.Hearts = hearts
	p.Attempts++
	p.UpdatedAt = now
}

// ApplyAnswer учитывает проверенный ответ. Неверный ответ снимает сердце
// (не ниже нуля); блокировка при нуле - решение вызывающей стороны.
func (p *LessonProgress) ApplyAnswer(correct bool, xp int, now time.Time) {
	if correct {
		p.XPEarned += xp
	} else if p.Hearts > 0 {
		p.Hearts--
	}
	p.UpdatedAt = now
}

// IsExhausted сообщает, что сердца закончились.
func (p *LessonProgress) IsExhausted() bool {
	return p.Hearts <= 0
}

// Complete отмечает урок завершённым с заданной оценкой и бонусом.
func (p *LessonProgress) Complete(score, bonus int, now time.Time) {
	at := now
	p.Completed = true
	p.Score = score
	p.XPEarned += max(bonus, 0)
	p.CompletedAt = &at
	p.UpdatedAt = now
}

// ══════════════════════════════════════════════════════════════════════════════
// UNIT / COURSE / LANGUAGE PROGRESS
// ══════════════════════════════════════════════════════════════════════════════

// UnitProgress - прогресс по юниту.
type UnitProgress struct {
	LearnerID string `json:"learner_id"`
	UnitID    string `json:"unit_id"`
	CourseID  string `json:"course_id"`

	// Unlocked - юнит открыт (начат хотя бы один урок).
	Unlocked bool `json:"unlocked"`

	Completed bool `json:"completed"`

	// Stars - 1..3 после завершения, 0 до него.
	Stars int `json:"stars"`

	// XPEarned - XP завершённых уроков плюс бонус юнита.
	XPEarned int `json:"xp_earned"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"-"`
}

// NewUnitProgress создаёт открытый юнит.
func NewUnitProgress(learnerID, unitID, courseID string, now time.Time) *UnitProgress {
	return &UnitProgress{
		LearnerID: learnerID,
		UnitID:    unitID,
		CourseID:  courseID,
		Unlocked:  true,
		UpdatedAt: now,
	}
}

// CourseProgress - прогресс по курсу.
type CourseProgress struct {
	LearnerID  string `json:"learner_id"`
	CourseID   string `json:"course_id"`
	LanguageID string `json:"language_id"`

	Completed bool `json:"completed"`

	// XPEarned - XP завершённых юнитов плюс бонус за курс.
	XPEarned int `json:"xp_earned"`

	// AverageScore - средняя оценка завершённых уроков курса.
	AverageScore float64 `json:"average_score"`

	// CompletedLessons - число завершённых уроков курса.
	CompletedLessons int `json:"completed_lessons"`

	CompletedAt *time.Time `json:"completed_at,omitempty"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Version     int        `json:"-"`
}

// NewCourseProgress создаёт пустой прогресс курса.
func NewCourseProgress(learnerID, courseID, languageID string, now time.Time) *CourseProgress {
	return &CourseProgress{
		LearnerID:  learnerID,
		CourseID:   courseID,
		LanguageID: languageID,
		UpdatedAt:  now,
	}
}

// LanguageProgress - XP и серия по одному языку. Серия независима от
// глобальной серии занятий.
type LanguageProgress struct {
	LearnerID  string              `json:"learner_id"`
	LanguageID string              `json:"language_id"`
	XPEarned   int                 `json:"xp_earned"`
	Streak     gamification.Streak `json:"streak"`
	UpdatedAt  time.Time           `json:"updated_at"`
	Version    int                 `json:"-"`
}

// NewLanguageProgress создаёт пустой прогресс по языку.
func NewLanguageProgress(learnerID, languageID string, now time.Time) *LanguageProgress {
	return &LanguageProgress{
		LearnerID:  learnerID,
		LanguageID: languageID,
		UpdatedAt:  now,
	}
}

// Practice начисляет XP по языку и обновляет языковую серию.
func (p *LanguageProgress) Practice(xp int, now time.Time, loc *time.Location) gamification.StreakChange {
	if xp > 0 {
		p.XPEarned += xp
	}
	p.UpdatedAt = now
	return p.Streak.RecordActivity(now, loc)
}

// LastPracticedAt возвращает время последней практики.
func (p *LanguageProgress) LastPracticedAt() *time.Time {
	return p.Streak.LastActiveAt
}
