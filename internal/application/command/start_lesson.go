package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// START LESSON COMMAND
// Opens a lesson attempt. The first call creates the row, later calls refill
// hearts and count another attempt. The unit is unlocked and the course row
// is created on first contact.
// ══════════════════════════════════════════════════════════════════════════════

// StartLessonCommand contains the data to start a lesson.
type StartLessonCommand struct {
	// LearnerID is the opaque learner identifier.
	LearnerID string `validate:"required"`

	// LessonID is the lesson to start.
	LessonID string `validate:"required"`
}

// StartLessonResult contains the result of starting a lesson.
type StartLessonResult struct {
	// Lesson is the lesson progress row after the call.
	Lesson *progress.LessonProgress

	// Restarted is true when the lesson had been started before.
	Restarted bool
}

// StartLessonHandler handles the StartLessonCommand.
type StartLessonHandler struct {
	catalog       catalog.Catalog
	runner        *Runner
	defaultHearts int
	log           *logger.Logger
}

// NewStartLessonHandler creates a new StartLessonHandler.
func NewStartLessonHandler(cat catalog.Catalog, runner *Runner, log *logger.Logger) *StartLessonHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &StartLessonHandler{catalog: cat, runner: runner, defaultHearts: catalog.DefaultLessonHearts, log: log}
}

// WithDefaultHearts overrides the budget used for lessons that set none.
func (h *StartLessonHandler) WithDefaultHearts(n int) *StartLessonHandler {
	if n > 0 {
		h.defaultHearts = n
	}
	return h
}

// Handle executes the start lesson command.
func (h *StartLessonHandler) Handle(ctx context.Context, cmd StartLessonCommand) (*StartLessonResult, error) {
	if err := validateCommand("start_lesson", cmd); err != nil {
		return nil, err
	}

	path, err := catalog.ResolveLesson(ctx, h.catalog, cmd.LessonID)
	if err != nil {
		return nil, err
	}

	var result *StartLessonResult
	err = h.runner.Run(ctx, "start_lesson", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		res, err := startLesson(ctx, tx, cmd.LearnerID, path, h.heartsFor(path.Lesson), now)
		if err != nil {
			return err
		}
		events.Add(shared.LessonStartedEvent{
			BaseEvent: shared.NewBaseEvent(shared.EventLessonStarted, cmd.LearnerID, now),
			LessonID:  cmd.LessonID,
			Attempts:  res.Lesson.Attempts,
			Hearts:    res.Lesson.Hearts,
		})
		result = res
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Debug("lesson started",
		logger.LearnerID(cmd.LearnerID),
		logger.LessonID(cmd.LessonID),
		logger.Int("attempts", result.Lesson.Attempts),
	)
	return result, nil
}

func (h *StartLessonHandler) heartsFor(l catalog.Lesson) int {
	if l.Hearts > 0 {
		return l.Hearts
	}
	return h.defaultHearts
}

func startLesson(ctx context.Context, tx uow.UnitOfWork, learnerID string, path *catalog.LessonPath, hearts int, now time.Time) (*StartLessonResult, error) {
	repo := tx.Progress()

	res := &StartLessonResult{}
	lp, err := repo.GetLesson(ctx, learnerID, path.Lesson.ID)
	switch {
	case err == nil:
		lp.Restart(hearts, now)
		res.Restarted = true
	case shared.IsNotFound(err):
		lp = progress.NewLessonProgress(learnerID, path.Lesson.ID, path.Unit.ID, path.Course.ID, hearts, now)
	default:
		return nil, fmt.Errorf("start_lesson: load lesson: %w", err)
	}
	if err := repo.SaveLesson(ctx, lp); err != nil {
		return nil, fmt.Errorf("start_lesson: save lesson: %w", err)
	}
	res.Lesson = lp

	up, err := repo.GetUnit(ctx, learnerID, path.Unit.ID)
	switch {
	case err == nil:
		if !up.Unlocked {
			up.Unlocked = true
			up.UpdatedAt = now
			if err := repo.SaveUnit(ctx, up); err != nil {
				return nil, fmt.Errorf("start_lesson: save unit: %w", err)
			}
		}
	case shared.IsNotFound(err):
		if err := repo.SaveUnit(ctx, progress.NewUnitProgress(learnerID, path.Unit.ID, path.Course.ID, now)); err != nil {
			return nil, fmt.Errorf("start_lesson: create unit: %w", err)
		}
	default:
		return nil, fmt.Errorf("start_lesson: load unit: %w", err)
	}

	if _, err := repo.GetCourse(ctx, learnerID, path.Course.ID); err != nil {
		if !shared.IsNotFound(err) {
			return nil, fmt.Errorf("start_lesson: load course: %w", err)
		}
		if err := repo.SaveCourse(ctx, progress.NewCourseProgress(learnerID, path.Course.ID, path.LanguageID(), now)); err != nil {
			return nil, fmt.Errorf("start_lesson: create course: %w", err)
		}
	}

	return res, nil
}
