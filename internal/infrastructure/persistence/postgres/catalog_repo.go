package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/grading"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// Read-only curriculum tables. Reads go through the pool, outside of any
// progress transaction.
// ══════════════════════════════════════════════════════════════════════════════

// CatalogRepository implements catalog.Catalog on PostgreSQL.
type CatalogRepository struct {
	conn *Connection
}

var _ catalog.Catalog = (*CatalogRepository)(nil)

// NewCatalogRepository creates a catalog repository.
func NewCatalogRepository(conn *Connection) *CatalogRepository {
	return &CatalogRepository{conn: conn}
}

func (r *CatalogRepository) getOne(ctx context.Context, notFound error, sql string, id string, dest ...any) error {
	err := r.conn.Pool().QueryRow(ctx, sql, id).Scan(dest...)
	if IsNoRows(err) {
		return notFound
	}
	if err != nil {
		return fmt.Errorf("postgres: catalog lookup %s: %w", id, err)
	}
	return nil
}

func (r *CatalogRepository) GetExercise(ctx context.Context, id string) (*catalog.Exercise, error) {
	e := &catalog.Exercise{}
	var typ string
	err := r.getOne(ctx, shared.ErrExerciseNotFound, `
		SELECT id, lesson_id, type, prompt, correct_answer, explanation, xp_reward
		FROM exercises WHERE id = $1`, id,
		&e.ID, &e.LessonID, &typ, &e.Prompt, &e.CorrectAnswer, &e.Explanation, &e.XPReward)
	if err != nil {
		return nil, err
	}
	e.Type = grading.ExerciseType(typ)
	return e, nil
}

func (r *CatalogRepository) GetLesson(ctx context.Context, id string) (*catalog.Lesson, error) {
	l := &catalog.Lesson{}
	err := r.getOne(ctx, shared.ErrLessonNotFound, `
		SELECT id, unit_id, title, position, xp_reward, hearts FROM lessons WHERE id = $1`, id,
		&l.ID, &l.UnitID, &l.Title, &l.Order, &l.XPReward, &l.Hearts)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *CatalogRepository) GetUnit(ctx context.Context, id string) (*catalog.Unit, error) {
	u := &catalog.Unit{}
	err := r.getOne(ctx, shared.ErrUnitNotFound, `
		SELECT id, course_id, title, position, xp_reward FROM units WHERE id = $1`, id,
		&u.ID, &u.CourseID, &u.Title, &u.Order, &u.XPReward)
	if err != nil {
		return nil, err
	}
	return u, nil
}

func (r *CatalogRepository) GetCourse(ctx context.Context, id string) (*catalog.Course, error) {
	c := &catalog.Course{}
	err := r.getOne(ctx, shared.ErrCourseNotFound, `
		SELECT id, language_id, title FROM courses WHERE id = $1`, id,
		&c.ID, &c.LanguageID, &c.Title)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CatalogRepository) GetLanguage(ctx context.Context, id string) (*catalog.Language, error) {
	l := &catalog.Language{}
	err := r.getOne(ctx, shared.ErrLanguageNotFound, `
		SELECT id, code, name FROM languages WHERE id = $1`, id,
		&l.ID, &l.Code, &l.Name)
	if err != nil {
		return nil, err
	}
	return l, nil
}

func (r *CatalogRepository) GetCertification(ctx context.Context, id string) (*certification.Certification, error) {
	c := &certification.Certification{}
	err := r.getOne(ctx, shared.ErrCertificationNotFound, `
		SELECT id, course_id, name, description, minimum_score, required_lessons, minimum_xp
		FROM certifications WHERE id = $1`, id,
		&c.ID, &c.CourseID, &c.Name, &c.Description,
		&c.Criteria.MinimumScore, &c.Criteria.RequiredLessons, &c.Criteria.MinimumXP)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func (r *CatalogRepository) listIDs(ctx context.Context, sql, parentID string) ([]string, error) {
	rows, err := r.conn.Pool().Query(ctx, sql, parentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list catalog ids: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *CatalogRepository) ListLessonIDs(ctx context.Context, unitID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM lessons WHERE unit_id = $1 ORDER BY position, id`, unitID)
}

func (r *CatalogRepository) ListUnitIDs(ctx context.Context, courseID string) ([]string, error) {
	return r.listIDs(ctx, `SELECT id FROM units WHERE course_id = $1 ORDER BY position, id`, courseID)
}

func (r *CatalogRepository) ListActiveAchievements(ctx context.Context) ([]gamification.AchievementDefinition, error) {
	rows, err := r.conn.Pool().Query(ctx, `
		SELECT id, name, description, type, requirement, reward_points, active
		FROM achievements WHERE active ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list achievements: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (gamification.AchievementDefinition, error) {
		var (
			a   gamification.AchievementDefinition
			typ string
		)
		err := row.Scan(&a.ID, &a.Name, &a.Description, &typ, &a.Requirement, &a.RewardPoints, &a.Active)
		a.Type = gamification.AchievementType(typ)
		return a, err
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// SEEDING
// ══════════════════════════════════════════════════════════════════════════════

// Import upserts every entry of seed in one transaction, parents first.
func (r *CatalogRepository) Import(ctx context.Context, seed catalog.Seed) error {
	return r.conn.WithTx(ctx, func(tx pgx.Tx) error {
		batch := &pgx.Batch{}
		for _, l := range seed.Languages {
			batch.Queue(`INSERT INTO languages (id, code, name) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET code = EXCLUDED.code, name = EXCLUDED.name`,
				l.ID, l.Code, l.Name)
		}
		for _, c := range seed.Courses {
			batch.Queue(`INSERT INTO courses (id, language_id, title) VALUES ($1, $2, $3)
				ON CONFLICT (id) DO UPDATE SET language_id = EXCLUDED.language_id, title = EXCLUDED.title`,
				c.ID, c.LanguageID, c.Title)
		}
		for _, u := range seed.Units {
			batch.Queue(`INSERT INTO units (id, course_id, title, position, xp_reward) VALUES ($1, $2, $3, $4, $5)
				ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id, title = EXCLUDED.title,
					position = EXCLUDED.position, xp_reward = EXCLUDED.xp_reward`,
				u.ID, u.CourseID, u.Title, u.Order, u.XPReward)
		}
		for _, l := range seed.Lessons {
			batch.Queue(`INSERT INTO lessons (id, unit_id, title, position, xp_reward, hearts) VALUES ($1, $2, $3, $4, $5, $6)
				ON CONFLICT (id) DO UPDATE SET unit_id = EXCLUDED.unit_id, title = EXCLUDED.title,
					position = EXCLUDED.position, xp_reward = EXCLUDED.xp_reward, hearts = EXCLUDED.hearts`,
				l.ID, l.UnitID, l.Title, l.Order, l.XPReward, l.Hearts)
		}
		for _, e := range seed.Exercises {
			batch.Queue(`INSERT INTO exercises (id, lesson_id, type, prompt, correct_answer, explanation, xp_reward)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET lesson_id = EXCLUDED.lesson_id, type = EXCLUDED.type,
					prompt = EXCLUDED.prompt, correct_answer = EXCLUDED.correct_answer,
					explanation = EXCLUDED.explanation, xp_reward = EXCLUDED.xp_reward`,
				e.ID, e.LessonID, string(e.Type), e.Prompt, e.CorrectAnswer, e.Explanation, e.XPReward)
		}
		for _, a := range seed.Achievements {
			batch.Queue(`INSERT INTO achievements (id, name, description, type, requirement, reward_points, active)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, description = EXCLUDED.description,
					type = EXCLUDED.type, requirement = EXCLUDED.requirement,
					reward_points = EXCLUDED.reward_points, active = EXCLUDED.active`,
				a.ID, a.Name, a.Description, string(a.Type), a.Requirement, a.RewardPoints, a.Active)
		}
		for _, c := range seed.Certifications {
			batch.Queue(`INSERT INTO certifications (id, course_id, name, description, minimum_score, required_lessons, minimum_xp)
				VALUES ($1, $2, $3, $4, $5, $6, $7)
				ON CONFLICT (id) DO UPDATE SET course_id = EXCLUDED.course_id, name = EXCLUDED.name,
					description = EXCLUDED.description, minimum_score = EXCLUDED.minimum_score,
					required_lessons = EXCLUDED.required_lessons, minimum_xp = EXCLUDED.minimum_xp`,
				c.ID, c.CourseID, c.Name, c.Description,
				c.Criteria.MinimumScore, c.Criteria.RequiredLessons, c.Criteria.MinimumXP)
		}
		if batch.Len() == 0 {
			return nil
		}
		if err := tx.SendBatch(ctx, batch).Close(); err != nil {
			return fmt.Errorf("postgres: import catalog: %w", err)
		}
		return nil
	})
}
