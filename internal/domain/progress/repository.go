package progress

import (
	"context"
)

// ══════════════════════════════════════════════════════════════════════════════
// REPOSITORY INTERFACES
// Save* работают как upsert с проверкой Version (см. gamification.Repository).
// ══════════════════════════════════════════════════════════════════════════════

// Repository - хранилище иерархического прогресса.
type Repository interface {
	// ─────────────────────────────────────────────────────────────────────────
	// Answers
	// ─────────────────────────────────────────────────────────────────────────

	// CreateAnswer сохраняет попытку.
	CreateAnswer(ctx context.Context, a *ExerciseAnswer) error

	// ListAnswers возвращает все попытки ученика по упражнениям урока.
	ListAnswers(ctx context.Context, learnerID, lessonID string) ([]*ExerciseAnswer, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Lessons
	// ─────────────────────────────────────────────────────────────────────────

	// GetLesson возвращает shared.ErrLessonProgressNotFound, если урок не начат.
	GetLesson(ctx context.Context, learnerID, lessonID string) (*LessonProgress, error)
	SaveLesson(ctx context.Context, p *LessonProgress) error
	ListLessonsByUnit(ctx context.Context, learnerID, unitID string) ([]*LessonProgress, error)
	ListLessonsByCourse(ctx context.Context, learnerID, courseID string) ([]*LessonProgress, error)

	// ─────────────────────────────────────────────────────────────────────────
	// Units & Courses
	// ─────────────────────────────────────────────────────────────────────────

	// GetUnit возвращает shared.ErrUnitProgressNotFound, если строки нет.
	GetUnit(ctx context.Context, learnerID, unitID string) (*UnitProgress, error)
	SaveUnit(ctx context.Context, p *UnitProgress) error
	ListUnitsByCourse(ctx context.Context, learnerID, courseID string) ([]*UnitProgress, error)

	// GetCourse возвращает shared.ErrCourseProgressNotFound, если строки нет.
	GetCourse(ctx context.Context, learnerID, courseID string) (*CourseProgress, error)
	SaveCourse(ctx context.Context, p *CourseProgress) error

	// ─────────────────────────────────────────────────────────────────────────
	// Languages
	// ─────────────────────────────────────────────────────────────────────────

	// GetLanguage возвращает shared.ErrLanguageProgressMissing, если строки нет.
	GetLanguage(ctx context.Context, learnerID, languageID string) (*LanguageProgress, error)
	SaveLanguage(ctx context.Context, p *LanguageProgress) error
	ListLanguages(ctx context.Context, learnerID string) ([]*LanguageProgress, error)
}
