package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// progressRepo implements progress.Repository inside one transaction.
type progressRepo struct {
	q Querier
}

// ─────────────────────────────────────────────────────────────────────────────
// Answers
// ─────────────────────────────────────────────────────────────────────────────

func (r *progressRepo) CreateAnswer(ctx context.Context, a *progress.ExerciseAnswer) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO exercise_answers
			(id, learner_id, exercise_id, lesson_id, answer_text, is_correct, time_spent, hints_used, xp_earned, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		a.ID, a.LearnerID, a.ExerciseID, a.LessonID, a.AnswerText, a.IsCorrect, a.TimeSpent, a.HintsUsed, a.XPEarned, a.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert answer: %w", err)
	}
	return nil
}

func (r *progressRepo) ListAnswers(ctx context.Context, learnerID, lessonID string) ([]*progress.ExerciseAnswer, error) {
	rows, err := r.q.Query(ctx, `
		SELECT id, learner_id, exercise_id, lesson_id, answer_text, is_correct, time_spent, hints_used, xp_earned, created_at
		FROM exercise_answers
		WHERE learner_id = $1 AND lesson_id = $2
		ORDER BY created_at`, learnerID, lessonID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list answers: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.ExerciseAnswer, error) {
		a := &progress.ExerciseAnswer{}
		err := row.Scan(&a.ID, &a.LearnerID, &a.ExerciseID, &a.LessonID, &a.AnswerText, &a.IsCorrect, &a.TimeSpent, &a.HintsUsed, &a.XPEarned, &a.CreatedAt)
		return a, err
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Lessons
// ─────────────────────────────────────────────────────────────────────────────

const lessonColumns = `learner_id, lesson_id, unit_id, course_id, hearts, attempts, xp_earned,
	completed, score, started_at, completed_at, updated_at, version`

func scanLesson(row pgx.Row) (*progress.LessonProgress, error) {
	p := &progress.LessonProgress{}
	err := row.Scan(&p.LearnerID, &p.LessonID, &p.UnitID, &p.CourseID, &p.Hearts, &p.Attempts, &p.XPEarned,
		&p.Completed, &p.Score, &p.StartedAt, &p.CompletedAt, &p.UpdatedAt, &p.Version)
	return p, err
}

func (r *progressRepo) GetLesson(ctx context.Context, learnerID, lessonID string) (*progress.LessonProgress, error) {
	p, err := scanLesson(r.q.QueryRow(ctx,
		`SELECT `+lessonColumns+` FROM lesson_progress WHERE learner_id = $1 AND lesson_id = $2`,
		learnerID, lessonID))
	if IsNoRows(err) {
		return nil, shared.ErrLessonProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get lesson progress: %w", err)
	}
	return p, nil
}

func (r *progressRepo) SaveLesson(ctx context.Context, p *progress.LessonProgress) error {
	return saveVersioned(ctx, r.q, &p.Version, `
		INSERT INTO lesson_progress (`+lessonColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, 1)
		ON CONFLICT (learner_id, lesson_id) DO NOTHING`, `
		UPDATE lesson_progress SET
			unit_id = $3, course_id = $4, hearts = $5, attempts = $6, xp_earned = $7,
			completed = $8, score = $9, started_at = $10, completed_at = $11, updated_at = $12,
			version = version + 1
		WHERE learner_id = $1 AND lesson_id = $2 AND version = $13`,
		p.LearnerID, p.LessonID, p.UnitID, p.CourseID, p.Hearts, p.Attempts, p.XPEarned,
		p.Completed, p.Score, p.StartedAt, p.CompletedAt, p.UpdatedAt,
	)
}

func (r *progressRepo) listLessons(ctx context.Context, where string, args ...any) ([]*progress.LessonProgress, error) {
	rows, err := r.q.Query(ctx, `SELECT `+lessonColumns+` FROM lesson_progress WHERE `+where, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres: list lesson progress: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.LessonProgress, error) {
		return scanLesson(row)
	})
}

func (r *progressRepo) ListLessonsByUnit(ctx context.Context, learnerID, unitID string) ([]*progress.LessonProgress, error) {
	return r.listLessons(ctx, `learner_id = $1 AND unit_id = $2`, learnerID, unitID)
}

func (r *progressRepo) ListLessonsByCourse(ctx context.Context, learnerID, courseID string) ([]*progress.LessonProgress, error) {
	return r.listLessons(ctx, `learner_id = $1 AND course_id = $2`, learnerID, courseID)
}

// ─────────────────────────────────────────────────────────────────────────────
// Units
// ─────────────────────────────────────────────────────────────────────────────

const unitColumns = `learner_id, unit_id, course_id, unlocked, completed, stars, xp_earned,
	completed_at, updated_at, version`

func scanUnit(row pgx.Row) (*progress.UnitProgress, error) {
	p := &progress.UnitProgress{}
	err := row.Scan(&p.LearnerID, &p.UnitID, &p.CourseID, &p.Unlocked, &p.Completed, &p.Stars, &p.XPEarned,
		&p.CompletedAt, &p.UpdatedAt, &p.Version)
	return p, err
}

func (r *progressRepo) GetUnit(ctx context.Context, learnerID, unitID string) (*progress.UnitProgress, error) {
	p, err := scanUnit(r.q.QueryRow(ctx,
		`SELECT `+unitColumns+` FROM unit_progress WHERE learner_id = $1 AND unit_id = $2`,
		learnerID, unitID))
	if IsNoRows(err) {
		return nil, shared.ErrUnitProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get unit progress: %w", err)
	}
	return p, nil
}

func (r *progressRepo) SaveUnit(ctx context.Context, p *progress.UnitProgress) error {
	return saveVersioned(ctx, r.q, &p.Version, `
		INSERT INTO unit_progress (`+unitColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		ON CONFLICT (learner_id, unit_id) DO NOTHING`, `
		UPDATE unit_progress SET
			course_id = $3, unlocked = $4, completed = $5, stars = $6, xp_earned = $7,
			completed_at = $8, updated_at = $9, version = version + 1
		WHERE learner_id = $1 AND unit_id = $2 AND version = $10`,
		p.LearnerID, p.UnitID, p.CourseID, p.Unlocked, p.Completed, p.Stars, p.XPEarned,
		p.CompletedAt, p.UpdatedAt,
	)
}

func (r *progressRepo) ListUnitsByCourse(ctx context.Context, learnerID, courseID string) ([]*progress.UnitProgress, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+unitColumns+` FROM unit_progress WHERE learner_id = $1 AND course_id = $2`,
		learnerID, courseID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list unit progress: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.UnitProgress, error) {
		return scanUnit(row)
	})
}

// ─────────────────────────────────────────────────────────────────────────────
// Courses
// ─────────────────────────────────────────────────────────────────────────────

func (r *progressRepo) GetCourse(ctx context.Context, learnerID, courseID string) (*progress.CourseProgress, error) {
	p := &progress.CourseProgress{}
	err := r.q.QueryRow(ctx, `
		SELECT learner_id, course_id, language_id, completed, xp_earned, average_score,
			completed_lessons, completed_at, updated_at, version
		FROM course_progress WHERE learner_id = $1 AND course_id = $2`, learnerID, courseID,
	).Scan(&p.LearnerID, &p.CourseID, &p.LanguageID, &p.Completed, &p.XPEarned, &p.AverageScore,
		&p.CompletedLessons, &p.CompletedAt, &p.UpdatedAt, &p.Version)
	if IsNoRows(err) {
		return nil, shared.ErrCourseProgressNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get course progress: %w", err)
	}
	return p, nil
}

func (r *progressRepo) SaveCourse(ctx context.Context, p *progress.CourseProgress) error {
	return saveVersioned(ctx, r.q, &p.Version, `
		INSERT INTO course_progress
			(learner_id, course_id, language_id, completed, xp_earned, average_score,
			 completed_lessons, completed_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, 1)
		ON CONFLICT (learner_id, course_id) DO NOTHING`, `
		UPDATE course_progress SET
			language_id = $3, completed = $4, xp_earned = $5, average_score = $6,
			completed_lessons = $7, completed_at = $8, updated_at = $9, version = version + 1
		WHERE learner_id = $1 AND course_id = $2 AND version = $10`,
		p.LearnerID, p.CourseID, p.LanguageID, p.Completed, p.XPEarned, p.AverageScore,
		p.CompletedLessons, p.CompletedAt, p.UpdatedAt,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Languages
// ─────────────────────────────────────────────────────────────────────────────

const languageColumns = `learner_id, language_id, xp_earned, current_streak, longest_streak,
	last_active_at, updated_at, version`

func scanLanguage(row pgx.Row) (*progress.LanguageProgress, error) {
	p := &progress.LanguageProgress{}
	err := row.Scan(&p.LearnerID, &p.LanguageID, &p.XPEarned, &p.Streak.Current, &p.Streak.Longest,
		&p.Streak.LastActiveAt, &p.UpdatedAt, &p.Version)
	return p, err
}

func (r *progressRepo) GetLanguage(ctx context.Context, learnerID, languageID string) (*progress.LanguageProgress, error) {
	p, err := scanLanguage(r.q.QueryRow(ctx,
		`SELECT `+languageColumns+` FROM language_progress WHERE learner_id = $1 AND language_id = $2`,
		learnerID, languageID))
	if IsNoRows(err) {
		return nil, shared.ErrLanguageProgressMissing
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get language progress: %w", err)
	}
	return p, nil
}

func (r *progressRepo) SaveLanguage(ctx context.Context, p *progress.LanguageProgress) error {
	return saveVersioned(ctx, r.q, &p.Version, `
		INSERT INTO language_progress (`+languageColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, 1)
		ON CONFLICT (learner_id, language_id) DO NOTHING`, `
		UPDATE language_progress SET
			xp_earned = $3, current_streak = $4, longest_streak = $5,
			last_active_at = $6, updated_at = $7, version = version + 1
		WHERE learner_id = $1 AND language_id = $2 AND version = $8`,
		p.LearnerID, p.LanguageID, p.XPEarned, p.Streak.Current, p.Streak.Longest,
		p.Streak.LastActiveAt, p.UpdatedAt,
	)
}

func (r *progressRepo) ListLanguages(ctx context.Context, learnerID string) ([]*progress.LanguageProgress, error) {
	rows, err := r.q.Query(ctx,
		`SELECT `+languageColumns+` FROM language_progress WHERE learner_id = $1 ORDER BY language_id`,
		learnerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list language progress: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*progress.LanguageProgress, error) {
		return scanLanguage(row)
	})
}
