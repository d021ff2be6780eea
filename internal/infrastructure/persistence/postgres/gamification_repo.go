package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// gamificationRepo implements gamification.Repository inside one transaction.
type gamificationRepo struct {
	q Querier
}

// ─────────────────────────────────────────────────────────────────────────────
// Profile
// ─────────────────────────────────────────────────────────────────────────────

func (r *gamificationRepo) GetProfile(ctx context.Context, learnerID string) (*gamification.LearnerProfile, error) {
	p := &gamification.LearnerProfile{}
	var rank string
	err := r.q.QueryRow(ctx, `
		SELECT learner_id, total_xp, level, rank, current_streak, longest_streak, last_active_at,
			total_sessions, total_hours, created_at, updated_at, version
		FROM learner_profiles WHERE learner_id = $1`, learnerID,
	).Scan(&p.LearnerID, &p.TotalXP, &p.Level, &rank, &p.Streak.Current, &p.Streak.Longest, &p.Streak.LastActiveAt,
		&p.TotalSessions, &p.TotalHours, &p.CreatedAt, &p.UpdatedAt, &p.Version)
	if IsNoRows(err) {
		return nil, shared.ErrProfileNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get profile: %w", err)
	}
	p.Rank = gamification.Rank(rank)
	return p, nil
}

func (r *gamificationRepo) SaveProfile(ctx context.Context, p *gamification.LearnerProfile) error {
	return saveVersioned(ctx, r.q, &p.Version, `
		INSERT INTO learner_profiles
			(learner_id, total_xp, level, rank, current_streak, longest_streak, last_active_at,
			 total_sessions, total_hours, created_at, updated_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, 1)
		ON CONFLICT (learner_id) DO NOTHING`, `
		UPDATE learner_profiles SET
			total_xp = $2, level = $3, rank = $4, current_streak = $5, longest_streak = $6,
			last_active_at = $7, total_sessions = $8, total_hours = $9, created_at = $10,
			updated_at = $11, version = version + 1
		WHERE learner_id = $1 AND version = $12`,
		p.LearnerID, p.TotalXP, p.Level, string(p.Rank), p.Streak.Current, p.Streak.Longest, p.Streak.LastActiveAt,
		p.TotalSessions, p.TotalHours, p.CreatedAt, p.UpdatedAt,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Daily Goal
// ─────────────────────────────────────────────────────────────────────────────

func (r *gamificationRepo) GetDailyGoal(ctx context.Context, learnerID string, day time.Time) (*gamification.DailyGoal, error) {
	g := &gamification.DailyGoal{}
	err := r.q.QueryRow(ctx, `
		SELECT learner_id, day, xp_earned, lessons_completed, xp_goal, lessons_goal, completed, completed_at, version
		FROM daily_goals WHERE learner_id = $1 AND day = $2`, learnerID, day.UTC(),
	).Scan(&g.LearnerID, &g.Day, &g.XPEarned, &g.LessonsCompleted, &g.XPGoal, &g.LessonsGoal, &g.Completed, &g.CompletedAt, &g.Version)
	if IsNoRows(err) {
		return nil, shared.ErrDailyGoalNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get daily goal: %w", err)
	}
	return g, nil
}

func (r *gamificationRepo) SaveDailyGoal(ctx context.Context, g *gamification.DailyGoal) error {
	return saveVersioned(ctx, r.q, &g.Version, `
		INSERT INTO daily_goals
			(learner_id, day, xp_earned, lessons_completed, xp_goal, lessons_goal, completed, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, 1)
		ON CONFLICT (learner_id, day) DO NOTHING`, `
		UPDATE daily_goals SET
			xp_earned = $3, lessons_completed = $4, xp_goal = $5, lessons_goal = $6,
			completed = $7, completed_at = $8, version = version + 1
		WHERE learner_id = $1 AND day = $2 AND version = $9`,
		g.LearnerID, g.Day.UTC(), g.XPEarned, g.LessonsCompleted, g.XPGoal, g.LessonsGoal, g.Completed, g.CompletedAt,
	)
}

// ─────────────────────────────────────────────────────────────────────────────
// Achievements
// ─────────────────────────────────────────────────────────────────────────────

func (r *gamificationRepo) ListUserAchievements(ctx context.Context, learnerID string) ([]*gamification.UserAchievement, error) {
	rows, err := r.q.Query(ctx, `
		SELECT learner_id, achievement_id, progress, completed, completed_at, version
		FROM user_achievements WHERE learner_id = $1 ORDER BY achievement_id`, learnerID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user achievements: %w", err)
	}
	return pgx.CollectRows(rows, func(row pgx.CollectableRow) (*gamification.UserAchievement, error) {
		a := &gamification.UserAchievement{}
		err := row.Scan(&a.LearnerID, &a.AchievementID, &a.Progress, &a.Completed, &a.CompletedAt, &a.Version)
		return a, err
	})
}

func (r *gamificationRepo) SaveUserAchievement(ctx context.Context, a *gamification.UserAchievement) error {
	return saveVersioned(ctx, r.q, &a.Version, `
		INSERT INTO user_achievements (learner_id, achievement_id, progress, completed, completed_at, version)
		VALUES ($1, $2, $3, $4, $5, 1)
		ON CONFLICT (learner_id, achievement_id) DO NOTHING`, `
		UPDATE user_achievements SET
			progress = $3, completed = $4, completed_at = $5, version = version + 1
		WHERE learner_id = $1 AND achievement_id = $2 AND version = $6`,
		a.LearnerID, a.AchievementID, a.Progress, a.Completed, a.CompletedAt,
	)
}
