// Package query contains read operations (CQRS - Queries).
package query

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

var tracer = otel.Tracer("github.com/alem-hub/lingo-progress/internal/application/query")

// ══════════════════════════════════════════════════════════════════════════════
// GET USER PROGRESS QUERY
// Сводка прогресса ученика: языки с сериями, цель дня и профиль.
// Серии показываются "эффективными": пропущенный день даёт 0 без записи.
// ══════════════════════════════════════════════════════════════════════════════

// GetUserProgressQuery содержит параметры запроса.
type GetUserProgressQuery struct {
	// LearnerID - идентификатор ученика.
	LearnerID string

	// SkipCache - читать напрямую из хранилища.
	SkipCache bool
}

// LanguageProgressDTO - прогресс по одному языку.
type LanguageProgressDTO struct {
	LanguageID      string     `json:"language_id"`
	XPEarned        int        `json:"xp_earned"`
	CurrentStreak   int        `json:"current_streak"`
	LongestStreak   int        `json:"longest_streak"`
	LastPracticedAt *time.Time `json:"last_practiced_at,omitempty"`
}

// DailyGoalDTO - цель на сегодня.
type DailyGoalDTO struct {
	Day              string `json:"day"`
	XPEarned         int    `json:"xp_earned"`
	XPGoal           int    `json:"xp_goal"`
	LessonsCompleted int    `json:"lessons_completed"`
	LessonsGoal      int    `json:"lessons_goal"`
	Completed        bool   `json:"completed"`
}

// ProfileSummaryDTO - глобальный игровой прогресс.
type ProfileSummaryDTO struct {
	TotalXP        int     `json:"total_xp"`
	Level          int     `json:"level"`
	Rank           string  `json:"rank"`
	XPIntoLevel    int     `json:"xp_into_level"`
	XPForNextLevel int     `json:"xp_for_next_level"`
	CurrentStreak  int     `json:"current_streak"`
	LongestStreak  int     `json:"longest_streak"`
	TotalSessions  int     `json:"total_sessions"`
	TotalHours     float64 `json:"total_hours"`
}

// UserProgressDTO - ответ запроса.
type UserProgressDTO struct {
	LearnerID string                `json:"learner_id"`
	Languages []LanguageProgressDTO `json:"languages"`
	DailyGoal DailyGoalDTO          `json:"daily_goal"`
	Profile   ProfileSummaryDTO     `json:"profile"`

	// GeneratedAt - момент сборки; кэш с другим днём считается устаревшим.
	GeneratedAt time.Time `json:"generated_at"`
}

// ProgressCache - кэш сводки прогресса.
//
// Каждая инвалидация увеличивает поколение записи ученика. Сводка, собранная
// после чтения поколения g, сохраняется только пока поколение равно g, поэтому
// инвалидация во время сборки не перекрывается устаревшей записью.
type ProgressCache interface {
	// GetProgress возвращает сводку (nil при промахе) и текущее поколение.
	GetProgress(ctx context.Context, learnerID string) (*UserProgressDTO, int64, error)

	// SetProgress сохраняет сводку, если поколение всё ещё равно generation.
	// Отброшенная запись не считается ошибкой.
	SetProgress(ctx context.Context, view *UserProgressDTO, generation int64) error

	InvalidateProgress(ctx context.Context, learnerID string) error
}

// GetUserProgressHandler обрабатывает запрос.
type GetUserProgressHandler struct {
	uows    uow.Factory
	cache   ProgressCache
	clock   timeutil.Clock
	loc     *time.Location
	targets gamification.DailyGoalTargets
	log     *logger.Logger
}

// NewGetUserProgressHandler создаёт обработчик. cache может быть nil.
func NewGetUserProgressHandler(
	uows uow.Factory,
	cache ProgressCache,
	clock timeutil.Clock,
	loc *time.Location,
	targets gamification.DailyGoalTargets,
	log *logger.Logger,
) *GetUserProgressHandler {
	if clock == nil {
		clock = timeutil.SystemClock{}
	}
	if loc == nil {
		loc = time.UTC
	}
	if targets == (gamification.DailyGoalTargets{}) {
		targets = gamification.DefaultDailyGoalTargets()
	}
	if log == nil {
		log = logger.Nop()
	}
	return &GetUserProgressHandler{
		uows:    uows,
		cache:   cache,
		clock:   clock,
		loc:     loc,
		targets: targets,
		log:     log.With(logger.Component("get_user_progress")),
	}
}

// Handle выполняет запрос.
func (h *GetUserProgressHandler) Handle(ctx context.Context, q GetUserProgressQuery) (*UserProgressDTO, error) {
	if q.LearnerID == "" {
		return nil, shared.NewDomainError("query", "GetUserProgress", shared.ErrInvalidInput, "learner_id is required")
	}

	ctx, span := tracer.Start(ctx, "query.get_user_progress")
	defer span.End()
	span.SetAttributes(attribute.String("learner.id", q.LearnerID))

	now := h.clock.Now()

	// The generation is read even when the cached view is skipped: it must be
	// taken before the storage snapshot for the write-back to be safe.
	writeBack := false
	var generation int64
	if h.cache != nil {
		cached, gen, err := h.cache.GetProgress(ctx, q.LearnerID)
		switch {
		case err != nil:
			h.log.Warn("progress cache read failed", logger.LearnerID(q.LearnerID), logger.Err(err))
		case cached != nil && !q.SkipCache && timeutil.IsSameDay(cached.GeneratedAt, now, h.loc):
			span.SetAttributes(attribute.Bool("cache.hit", true))
			return cached, nil
		default:
			writeBack, generation = true, gen
		}
	}

	view, err := h.build(ctx, q.LearnerID, now)
	if err != nil {
		return nil, err
	}

	if writeBack {
		if err := h.cache.SetProgress(ctx, view, generation); err != nil {
			h.log.Warn("progress cache write failed", logger.LearnerID(q.LearnerID), logger.Err(err))
		}
	}
	return view, nil
}

func (h *GetUserProgressHandler) build(ctx context.Context, learnerID string, now time.Time) (*UserProgressDTO, error) {
	tx, err := h.uows.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	langs, err := tx.Progress().ListLanguages(ctx, learnerID)
	if err != nil {
		return nil, fmt.Errorf("get_user_progress: list languages: %w", err)
	}
	sort.Slice(langs, func(i, j int) bool { return langs[i].LanguageID < langs[j].LanguageID })

	view := &UserProgressDTO{
		LearnerID:   learnerID,
		Languages:   make([]LanguageProgressDTO, 0, len(langs)),
		GeneratedAt: now,
	}
	for _, l := range langs {
		view.Languages = append(view.Languages, LanguageProgressDTO{
			LanguageID:      l.LanguageID,
			XPEarned:        l.XPEarned,
			CurrentStreak:   l.Streak.Effective(now, h.loc),
			LongestStreak:   l.Streak.Longest,
			LastPracticedAt: l.LastPracticedAt(),
		})
	}

	day := timeutil.DayKey(now, h.loc)
	goal, err := tx.Gamification().GetDailyGoal(ctx, learnerID, day)
	switch {
	case err == nil:
	case shared.IsNotFound(err):
		goal = gamification.NewDailyGoal(learnerID, day, h.targets)
	default:
		return nil, fmt.Errorf("get_user_progress: load daily goal: %w", err)
	}
	view.DailyGoal = DailyGoalDTO{
		Day:              timeutil.FormatDateStr(day),
		XPEarned:         goal.XPEarned,
		XPGoal:           goal.XPGoal,
		LessonsCompleted: goal.LessonsCompleted,
		LessonsGoal:      goal.LessonsGoal,
		Completed:        goal.Completed,
	}

	profile, err := tx.Gamification().GetProfile(ctx, learnerID)
	switch {
	case err == nil:
	case shared.IsNotFound(err):
		profile = gamification.NewLearnerProfile(learnerID, now)
	default:
		return nil, fmt.Errorf("get_user_progress: load profile: %w", err)
	}
	lp := gamification.ProgressForXP(profile.TotalXP)
	view.Profile = ProfileSummaryDTO{
		TotalXP:        profile.TotalXP,
		Level:          lp.Level,
		Rank:           string(gamification.RankForLevel(lp.Level)),
		XPIntoLevel:    lp.XPIntoLevel,
		XPForNextLevel: lp.XPForNextLevel,
		CurrentStreak:  profile.Streak.Effective(now, h.loc),
		LongestStreak:  profile.Streak.Longest,
		TotalSessions:  profile.TotalSessions,
		TotalHours:     profile.TotalHours,
	}

	return view, nil
}
