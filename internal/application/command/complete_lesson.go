package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETE LESSON COMMAND
// Scores the lesson from its answer rows and runs the completion cascade.
// Completing an already completed lesson changes nothing.
// ══════════════════════════════════════════════════════════════════════════════

// CompleteLessonCommand contains the data to complete a lesson.
type CompleteLessonCommand struct {
	// LearnerID is the opaque learner identifier.
	LearnerID string `validate:"required"`

	// LessonID is the lesson to complete.
	LessonID string `validate:"required"`
}

// CompleteLessonResult contains the result of completing a lesson.
type CompleteLessonResult struct {
	// Lesson is the lesson progress row after the call.
	Lesson *progress.LessonProgress

	// AlreadyCompleted is true when the call was a no-op.
	AlreadyCompleted bool

	// UnitCompleted is true when this completion finished the unit.
	UnitCompleted bool

	// CourseCompleted is true when this completion finished the course.
	CourseCompleted bool

	// XPAwarded sums the completion bonuses credited by this call.
	XPAwarded int

	// UnlockedAchievements lists achievements unlocked by this call.
	UnlockedAchievements []engine.UnlockedAchievement
}

// CompleteLessonHandler handles the CompleteLessonCommand.
type CompleteLessonHandler struct {
	catalog catalog.Catalog
	engine  *engine.Engine
	runner  *Runner
	log     *logger.Logger
}

// NewCompleteLessonHandler creates a new CompleteLessonHandler.
func NewCompleteLessonHandler(cat catalog.Catalog, eng *engine.Engine, runner *Runner, log *logger.Logger) *CompleteLessonHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &CompleteLessonHandler{catalog: cat, engine: eng, runner: runner, log: log}
}

// Handle executes the complete lesson command.
func (h *CompleteLessonHandler) Handle(ctx context.Context, cmd CompleteLessonCommand) (*CompleteLessonResult, error) {
	if err := validateCommand("complete_lesson", cmd); err != nil {
		return nil, err
	}

	path, err := catalog.ResolveLesson(ctx, h.catalog, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	var result *CompleteLessonResult
	err = h.runner.Run(ctx, "complete_lesson", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		lp, err := tx.Progress().GetLesson(ctx, cmd.LearnerID, cmd.LessonID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrLessonNotStarted
			}
			return fmt.Errorf("complete_lesson: load lesson: %w", err)
		}
		if lp.Completed {
			result = &CompleteLessonResult{Lesson: lp, AlreadyCompleted: true}
			return nil
		}

		cascade, err := h.engine.Cascade.CompleteLesson(ctx, tx, events, path, lp, now)
		if err != nil {
			return err
		}

		unlocked, err := h.engine.Achievements.Evaluate(ctx, tx, events, cmd.LearnerID, now)
		if err != nil {
			return err
		}

		result = &CompleteLessonResult{
			Lesson:               cascade.Lesson,
			UnitCompleted:        cascade.UnitCompleted,
			CourseCompleted:      cascade.CourseCompleted,
			XPAwarded:            cascade.XPAwarded,
			UnlockedAchievements: unlocked,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.AlreadyCompleted {
		h.log.Debug("lesson already completed",
			logger.LearnerID(cmd.LearnerID),
			logger.LessonID(cmd.LessonID),
		)
	}
	return result, nil
}
