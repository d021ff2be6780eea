package command

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/grading"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// SUBMIT ANSWER COMMAND
// Grades one attempt, stores it, moves hearts and lesson XP and credits the
// award through the ledger. Every submission is a new attempt row.
// ══════════════════════════════════════════════════════════════════════════════

// SubmitAnswerCommand contains one answer attempt.
type SubmitAnswerCommand struct {
	// LearnerID is the opaque learner identifier.
	LearnerID string `validate:"required"`

	// ExerciseID is the exercise being answered.
	ExerciseID string `validate:"required"`

	// AnswerText is the submitted answer. Blank answers are rejected
	// because partial matching would accept them.
	AnswerText string `validate:"required"`

	// TimeSpent is the optional time spent in seconds.
	TimeSpent *int `validate:"omitempty,gte=0"`

	// HintsUsed is the number of hints revealed before answering.
	HintsUsed int
}

// SubmitAnswerResult contains the graded outcome.
type SubmitAnswerResult struct {
	IsCorrect       bool   `json:"is_correct"`
	XPEarned        int    `json:"xp_earned"`
	CorrectAnswer   string `json:"correct_answer"`
	Explanation     string `json:"explanation,omitempty"`
	HeartsRemaining int    `json:"hearts_remaining"`

	// AnswerID identifies the stored attempt.
	AnswerID string `json:"answer_id"`
}

// SubmitAnswerHandler handles the SubmitAnswerCommand.
type SubmitAnswerHandler struct {
	catalog catalog.Catalog
	engine  *engine.Engine
	runner  *Runner
	log     *logger.Logger
}

// NewSubmitAnswerHandler creates a new SubmitAnswerHandler.
func NewSubmitAnswerHandler(cat catalog.Catalog, eng *engine.Engine, runner *Runner, log *logger.Logger) *SubmitAnswerHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &SubmitAnswerHandler{catalog: cat, engine: eng, runner: runner, log: log}
}

// Handle executes the submit answer command.
func (h *SubmitAnswerHandler) Handle(ctx context.Context, cmd SubmitAnswerCommand) (*SubmitAnswerResult, error) {
	if err := validateCommand("submit_answer", cmd); err != nil {
		return nil, err
	}
	if cmd.HintsUsed < 0 {
		return nil, shared.ErrInvalidHintsUsed
	}

	exercise, err := h.catalog.GetExercise(ctx, cmd.ExerciseID)
	if err != nil {
		return nil, err
	}
	path, err := catalog.ResolveLesson(ctx, h.catalog, exercise.LessonID)
	if err != nil {
		return nil, err
	}

	correct := grading.Evaluate(exercise.Type, exercise.CorrectAnswer, cmd.AnswerText)

	var result *SubmitAnswerResult
	err = h.runner.Run(ctx, "submit_answer", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		lp, err := tx.Progress().GetLesson(ctx, cmd.LearnerID, exercise.LessonID)
		if err != nil {
			if shared.IsNotFound(err) {
				return shared.ErrLessonNotStarted
			}
			return fmt.Errorf("submit_answer: load lesson: %w", err)
		}

		// Answers to a completed lesson are practice: hearts still move,
		// XP does not, so lesson XP keeps matching what was credited.
		xp := 0
		if !lp.Completed {
			xp = gamification.ExerciseXP(exercise.XPReward, correct, cmd.HintsUsed)
		}

		answer := &progress.ExerciseAnswer{
			ID:         uuid.NewString(),
			LearnerID:  cmd.LearnerID,
			ExerciseID: exercise.ID,
			LessonID:   exercise.LessonID,
			AnswerText: cmd.AnswerText,
			IsCorrect:  correct,
			TimeSpent:  cmd.TimeSpent,
			HintsUsed:  cmd.HintsUsed,
			XPEarned:   xp,
			CreatedAt:  now,
		}
		if err := tx.Progress().CreateAnswer(ctx, answer); err != nil {
			return fmt.Errorf("submit_answer: store answer: %w", err)
		}

		lp.ApplyAnswer(correct, xp, now)
		if err := tx.Progress().SaveLesson(ctx, lp); err != nil {
			return fmt.Errorf("submit_answer: save lesson: %w", err)
		}

		if _, err := h.engine.Ledger.Credit(ctx, tx, events, engine.Credit{
			LearnerID:  cmd.LearnerID,
			Amount:     xp,
			Source:     gamification.SourceExercise,
			LanguageID: path.LanguageID(),
		}, now); err != nil {
			return err
		}

		events.Add(shared.AnswerSubmittedEvent{
			BaseEvent:  shared.NewBaseEvent(shared.EventAnswerSubmitted, cmd.LearnerID, now),
			ExerciseID: exercise.ID,
			LessonID:   exercise.LessonID,
			IsCorrect:  correct,
			XPEarned:   xp,
			Hearts:     lp.Hearts,
		})

		result = &SubmitAnswerResult{
			IsCorrect:       correct,
			XPEarned:        xp,
			CorrectAnswer:   exercise.CorrectAnswer,
			Explanation:     exercise.Explanation,
			HeartsRemaining: lp.Hearts,
			AnswerID:        answer.ID,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Debug("answer submitted",
		logger.LearnerID(cmd.LearnerID),
		logger.ExerciseID(cmd.ExerciseID),
		logger.Bool("correct", result.IsCorrect),
		logger.XPAmount(result.XPEarned),
	)
	return result, nil
}
