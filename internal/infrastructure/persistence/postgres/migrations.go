package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
)

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATOR
// ══════════════════════════════════════════════════════════════════════════════

// Migration represents a database migration.
type Migration struct {
	Version   int
	Name      string
	UpSQL     string
	DownSQL   string
	AppliedAt time.Time
	IsApplied bool
}

// Migrator applies embedded migrations and tracks them in schema_migrations.
type Migrator struct {
	conn       *Connection
	migrations []Migration
	tableName  string
}

// NewMigrator creates a new migrator with embedded migrations.
func NewMigrator(conn *Connection) *Migrator {
	return &Migrator{
		conn:       conn,
		migrations: GetMigrations(),
		tableName:  "schema_migrations",
	}
}

func (m *Migrator) ensureTable(ctx context.Context) error {
	_, err := m.conn.Pool().Exec(ctx, fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			version INTEGER PRIMARY KEY,
			name TEXT NOT NULL,
			applied_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`, m.tableName))
	if err != nil {
		return fmt.Errorf("failed to create migrations table: %w", err)
	}
	return nil
}

func (m *Migrator) applied(ctx context.Context) (map[int]time.Time, error) {
	rows, err := m.conn.Pool().Query(ctx, fmt.Sprintf("SELECT version, applied_at FROM %s ORDER BY version", m.tableName))
	if err != nil {
		return nil, fmt.Errorf("failed to query applied migrations: %w", err)
	}
	defer rows.Close()

	applied := make(map[int]time.Time)
	for rows.Next() {
		var version int
		var at time.Time
		if err := rows.Scan(&version, &at); err != nil {
			return nil, fmt.Errorf("failed to scan migration row: %w", err)
		}
		applied[version] = at
	}
	return applied, rows.Err()
}

// Migrate applies all pending migrations, each in its own transaction.
func (m *Migrator) Migrate(ctx context.Context) (int, error) {
	if err := m.ensureTable(ctx); err != nil {
		return 0, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return 0, err
	}

	count := 0
	for _, mig := range m.migrations {
		if _, ok := applied[mig.Version]; ok {
			continue
		}
		err := m.conn.WithTx(ctx, func(tx pgx.Tx) error {
			if _, err := tx.Exec(ctx, mig.UpSQL); err != nil {
				return err
			}
			_, err := tx.Exec(ctx, fmt.Sprintf("INSERT INTO %s (version, name) VALUES ($1, $2)", m.tableName), mig.Version, mig.Name)
			return err
		})
		if err != nil {
			return count, fmt.Errorf("%w: version %d: %v", ErrMigrationFailed, mig.Version, err)
		}
		count++
	}
	return count, nil
}

// Rollback reverts the last applied migration.
func (m *Migrator) Rollback(ctx context.Context) error {
	if err := m.ensureTable(ctx); err != nil {
		return err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return err
	}

	last := 0
	for v := range applied {
		last = max(last, v)
	}
	if last == 0 {
		return nil
	}

	var target *Migration
	for i := range m.migrations {
		if m.migrations[i].Version == last {
			target = &m.migrations[i]
		}
	}
	if target == nil || target.DownSQL == "" {
		return fmt.Errorf("%w: missing down SQL for migration %d", ErrMigrationFailed, last)
	}

	return m.conn.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, target.DownSQL); err != nil {
			return fmt.Errorf("failed to rollback migration %d: %w", last, err)
		}
		_, err := tx.Exec(ctx, fmt.Sprintf("DELETE FROM %s WHERE version = $1", m.tableName), last)
		return err
	})
}

// Status returns every known migration with its applied state.
func (m *Migrator) Status(ctx context.Context) ([]Migration, error) {
	if err := m.ensureTable(ctx); err != nil {
		return nil, err
	}
	applied, err := m.applied(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]Migration, len(m.migrations))
	copy(result, m.migrations)
	for i := range result {
		if at, ok := applied[result[i].Version]; ok {
			result[i].IsApplied = true
			result[i].AppliedAt = at
		}
	}
	return result, nil
}

// GetMigrations returns all embedded migrations.
func GetMigrations() []Migration {
	return []Migration{
		{Version: 1, Name: "create_catalog", UpSQL: migration001Up, DownSQL: migration001Down},
		{Version: 2, Name: "create_progress", UpSQL: migration002Up, DownSQL: migration002Down},
		{Version: 3, Name: "create_gamification", UpSQL: migration003Up, DownSQL: migration003Down},
		{Version: 4, Name: "create_certifications", UpSQL: migration004Up, DownSQL: migration004Down},
	}
}

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 001: CATALOG
// ══════════════════════════════════════════════════════════════════════════════

const migration001Up = `
CREATE TABLE IF NOT EXISTS languages (
    id TEXT PRIMARY KEY,
    code VARCHAR(16) NOT NULL UNIQUE,
    name VARCHAR(100) NOT NULL
);

CREATE TABLE IF NOT EXISTS courses (
    id TEXT PRIMARY KEY,
    language_id TEXT NOT NULL REFERENCES languages(id),
    title VARCHAR(200) NOT NULL
);

CREATE TABLE IF NOT EXISTS units (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL REFERENCES courses(id),
    title VARCHAR(200) NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    xp_reward INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_units_course ON units(course_id, position);

CREATE TABLE IF NOT EXISTS lessons (
    id TEXT PRIMARY KEY,
    unit_id TEXT NOT NULL REFERENCES units(id),
    title VARCHAR(200) NOT NULL,
    position INTEGER NOT NULL DEFAULT 0,
    xp_reward INTEGER NOT NULL DEFAULT 0,
    hearts INTEGER NOT NULL DEFAULT 0
);
CREATE INDEX IF NOT EXISTS idx_lessons_unit ON lessons(unit_id, position);

CREATE TABLE IF NOT EXISTS exercises (
    id TEXT PRIMARY KEY,
    lesson_id TEXT NOT NULL REFERENCES lessons(id),
    type VARCHAR(32) NOT NULL,
    prompt TEXT NOT NULL DEFAULT '',
    correct_answer TEXT NOT NULL,
    explanation TEXT NOT NULL DEFAULT '',
    xp_reward INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS achievements (
    id TEXT PRIMARY KEY,
    name VARCHAR(100) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    type VARCHAR(20) NOT NULL,
    requirement INTEGER NOT NULL,
    reward_points INTEGER NOT NULL DEFAULT 0,
    active BOOLEAN NOT NULL DEFAULT TRUE,

    CONSTRAINT valid_achievement_type CHECK (type IN ('milestone', 'streak', 'completion', 'social'))
);

CREATE TABLE IF NOT EXISTS certifications (
    id TEXT PRIMARY KEY,
    course_id TEXT NOT NULL REFERENCES courses(id),
    name VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    minimum_score DOUBLE PRECISION,
    required_lessons INTEGER,
    minimum_xp INTEGER
);
`

const migration001Down = `
DROP TABLE IF EXISTS certifications;
DROP TABLE IF EXISTS achievements;
DROP TABLE IF EXISTS exercises;
DROP TABLE IF EXISTS lessons;
DROP TABLE IF EXISTS units;
DROP TABLE IF EXISTS courses;
DROP TABLE IF EXISTS languages;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 002: PROGRESS
// Every mutable row carries a version column for compare-and-swap updates.
// ══════════════════════════════════════════════════════════════════════════════

const migration002Up = `
CREATE TABLE IF NOT EXISTS exercise_answers (
    id UUID PRIMARY KEY,
    learner_id TEXT NOT NULL,
    exercise_id TEXT NOT NULL,
    lesson_id TEXT NOT NULL,
    answer_text TEXT NOT NULL,
    is_correct BOOLEAN NOT NULL,
    time_spent INTEGER,
    hints_used INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_answers_learner_lesson ON exercise_answers(learner_id, lesson_id);

CREATE TABLE IF NOT EXISTS lesson_progress (
    learner_id TEXT NOT NULL,
    lesson_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    course_id TEXT NOT NULL,
    hearts INTEGER NOT NULL,
    attempts INTEGER NOT NULL,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    score INTEGER NOT NULL DEFAULT 0,
    started_at TIMESTAMPTZ NOT NULL,
    completed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, lesson_id),
    CONSTRAINT valid_hearts CHECK (hearts >= 0)
);
CREATE INDEX IF NOT EXISTS idx_lesson_progress_unit ON lesson_progress(learner_id, unit_id);
CREATE INDEX IF NOT EXISTS idx_lesson_progress_course ON lesson_progress(learner_id, course_id);

CREATE TABLE IF NOT EXISTS unit_progress (
    learner_id TEXT NOT NULL,
    unit_id TEXT NOT NULL,
    course_id TEXT NOT NULL,
    unlocked BOOLEAN NOT NULL DEFAULT FALSE,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    stars INTEGER NOT NULL DEFAULT 0,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, unit_id)
);
CREATE INDEX IF NOT EXISTS idx_unit_progress_course ON unit_progress(learner_id, course_id);

CREATE TABLE IF NOT EXISTS course_progress (
    learner_id TEXT NOT NULL,
    course_id TEXT NOT NULL,
    language_id TEXT NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    average_score DOUBLE PRECISION NOT NULL DEFAULT 0,
    completed_lessons INTEGER NOT NULL DEFAULT 0,
    completed_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, course_id)
);

CREATE TABLE IF NOT EXISTS language_progress (
    learner_id TEXT NOT NULL,
    language_id TEXT NOT NULL,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_at TIMESTAMPTZ,
    updated_at TIMESTAMPTZ NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, language_id)
);
`

const migration002Down = `
DROP TABLE IF EXISTS language_progress;
DROP TABLE IF EXISTS course_progress;
DROP TABLE IF EXISTS unit_progress;
DROP TABLE IF EXISTS lesson_progress;
DROP TABLE IF EXISTS exercise_answers;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 003: GAMIFICATION
// ══════════════════════════════════════════════════════════════════════════════

const migration003Up = `
CREATE TABLE IF NOT EXISTS learner_profiles (
    learner_id TEXT PRIMARY KEY,
    total_xp INTEGER NOT NULL DEFAULT 0,
    level INTEGER NOT NULL DEFAULT 1,
    rank VARCHAR(20) NOT NULL,
    current_streak INTEGER NOT NULL DEFAULT 0,
    longest_streak INTEGER NOT NULL DEFAULT 0,
    last_active_at TIMESTAMPTZ,
    total_sessions INTEGER NOT NULL DEFAULT 0,
    total_hours DOUBLE PRECISION NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL,
    updated_at TIMESTAMPTZ NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    CONSTRAINT valid_total_xp CHECK (total_xp >= 0)
);

CREATE TABLE IF NOT EXISTS daily_goals (
    learner_id TEXT NOT NULL,
    day DATE NOT NULL,
    xp_earned INTEGER NOT NULL DEFAULT 0,
    lessons_completed INTEGER NOT NULL DEFAULT 0,
    xp_goal INTEGER NOT NULL,
    lessons_goal INTEGER NOT NULL,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, day)
);

CREATE TABLE IF NOT EXISTS user_achievements (
    learner_id TEXT NOT NULL,
    achievement_id TEXT NOT NULL,
    progress INTEGER NOT NULL DEFAULT 0,
    completed BOOLEAN NOT NULL DEFAULT FALSE,
    completed_at TIMESTAMPTZ,
    version INTEGER NOT NULL DEFAULT 1,

    PRIMARY KEY (learner_id, achievement_id)
);
`

const migration003Down = `
DROP TABLE IF EXISTS user_achievements;
DROP TABLE IF EXISTS daily_goals;
DROP TABLE IF EXISTS learner_profiles;
`

// ══════════════════════════════════════════════════════════════════════════════
// MIGRATION 004: CERTIFICATIONS
// ══════════════════════════════════════════════════════════════════════════════

const migration004Up = `
CREATE TABLE IF NOT EXISTS user_certifications (
    id UUID PRIMARY KEY,
    learner_id TEXT NOT NULL,
    certification_id TEXT NOT NULL,
    course_id TEXT NOT NULL,
    certificate_number VARCHAR(64) NOT NULL,
    score DOUBLE PRECISION NOT NULL,
    issued_at TIMESTAMPTZ NOT NULL,
    revoked BOOLEAN NOT NULL DEFAULT FALSE,
    revoked_at TIMESTAMPTZ,
    verification_hash CHAR(64) NOT NULL,
    version INTEGER NOT NULL DEFAULT 1,

    CONSTRAINT uq_certificate_number UNIQUE (certificate_number)
);

CREATE UNIQUE INDEX IF NOT EXISTS uq_active_certificate
    ON user_certifications(learner_id, certification_id) WHERE NOT revoked;
`

const migration004Down = `
DROP TABLE IF EXISTS user_certifications;
`
