package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// COMPLETION CASCADE
// lesson completion → RecheckUnit → (unit completed) → RecheckCourse.
// Each level has exactly one re-check function, called by the level below.
// ══════════════════════════════════════════════════════════════════════════════

// CascadeResult reports everything a lesson completion changed.
type CascadeResult struct {
	Lesson *progress.LessonProgress
	Unit   *progress.UnitProgress
	Course *progress.CourseProgress

	UnitCompleted   bool
	CourseCompleted bool

	// XPAwarded sums the completion bonuses credited by the cascade.
	XPAwarded int
}

// Cascade implements the progress aggregator's completion rules.
type Cascade struct {
	catalog catalog.Catalog
	ledger  *Ledger
	config  Config
	log     *logger.Logger
}

// CompleteLesson marks lp completed and cascades upwards. lp must be an
// in-progress row loaded in tx. Completed rows are the caller's concern.
func (c *Cascade) CompleteLesson(
	ctx context.Context,
	tx uow.UnitOfWork,
	events *shared.EventCollector,
	path *catalog.LessonPath,
	lp *progress.LessonProgress,
	now time.Time,
) (*CascadeResult, error) {
	learnerID := lp.LearnerID
	languageID := path.LanguageID()

	answers, err := tx.Progress().ListAnswers(ctx, learnerID, lp.LessonID)
	if err != nil {
		return nil, fmt.Errorf("cascade: list answers: %w", err)
	}
	correct, total := progress.TallyAnswers(answers)
	score := progress.LessonScore(correct, total)

	lp.Complete(score, path.Lesson.XPReward, now)
	if err := tx.Progress().SaveLesson(ctx, lp); err != nil {
		return nil, fmt.Errorf("cascade: save lesson: %w", err)
	}
	events.Add(shared.NewLessonCompletedEvent(learnerID, lp.LessonID, lp.XPEarned, score, now))

	res := &CascadeResult{Lesson: lp}

	if _, err := c.ledger.Credit(ctx, tx, events, Credit{
		LearnerID:  learnerID,
		Amount:     path.Lesson.XPReward,
		Source:     gamification.SourceLesson,
		LanguageID: languageID,
	}, now); err != nil {
		return nil, err
	}
	res.XPAwarded += max(path.Lesson.XPReward, 0)

	if _, err := c.ledger.CountLesson(ctx, tx, events, learnerID, now); err != nil {
		return nil, err
	}

	unit, unitDone, err := c.RecheckUnit(ctx, tx, events, learnerID, path.Unit, languageID, now)
	if err != nil {
		return nil, err
	}
	res.Unit, res.UnitCompleted = unit, unitDone
	if unitDone {
		res.XPAwarded += max(path.Unit.XPReward, 0)
	}

	course, err := requireCourse(ctx, tx, learnerID, path.Course.ID)
	if err != nil {
		return nil, err
	}
	if err := c.refreshCourseStats(ctx, tx, course, now); err != nil {
		return nil, err
	}

	courseDone := false
	if unitDone {
		if courseDone, err = c.RecheckCourse(ctx, tx, events, course, path.Course, now); err != nil {
			return nil, err
		}
	}
	if err := tx.Progress().SaveCourse(ctx, course); err != nil {
		return nil, fmt.Errorf("cascade: save course: %w", err)
	}
	res.Course, res.CourseCompleted = course, courseDone
	if courseDone {
		res.XPAwarded += c.config.CourseCompletionBonus
	}

	c.log.Info("lesson completed",
		logger.LearnerID(learnerID),
		logger.LessonID(lp.LessonID),
		logger.Int("score", score),
		logger.Bool("unit_completed", unitDone),
		logger.Bool("course_completed", courseDone),
	)

	return res, nil
}

// RecheckUnit completes the unit if every one of its lessons is completed.
// A unit without lessons never completes. Returns the unit row and whether
// it became completed in this call.
func (c *Cascade) RecheckUnit(
	ctx context.Context,
	tx uow.UnitOfWork,
	events *shared.EventCollector,
	learnerID string,
	unit catalog.Unit,
	languageID string,
	now time.Time,
) (*progress.UnitProgress, bool, error) {
	up, err := tx.Progress().GetUnit(ctx, learnerID, unit.ID)
	if err != nil {
		if shared.IsNotFound(err) {
			return nil, false, shared.ErrUnitNotStarted
		}
		return nil, false, fmt.Errorf("cascade: load unit: %w", err)
	}
	if up.Completed {
		return up, false, nil
	}

	lessonIDs, err := c.catalog.ListLessonIDs(ctx, unit.ID)
	if err != nil {
		return nil, false, fmt.Errorf("cascade: list lessons: %w", err)
	}
	rows, err := tx.Progress().ListLessonsByUnit(ctx, learnerID, unit.ID)
	if err != nil {
		return nil, false, fmt.Errorf("cascade: list lesson progress: %w", err)
	}

	rollup := progress.RollupUnit(lessonIDs, progress.IndexLessons(rows))
	if !rollup.Complete {
		return up, false, nil
	}

	at := now
	up.Completed = true
	up.CompletedAt = &at
	up.Stars = rollup.Stars
	up.XPEarned = rollup.LessonsXP + max(unit.XPReward, 0)
	up.UpdatedAt = now
	if err := tx.Progress().SaveUnit(ctx, up); err != nil {
		return nil, false, fmt.Errorf("cascade: save unit: %w", err)
	}
	events.Add(shared.NewUnitCompletedEvent(learnerID, unit.ID, up.XPEarned, up.Stars, now))

	if _, err := c.ledger.Credit(ctx, tx, events, Credit{
		LearnerID:  learnerID,
		Amount:     unit.XPReward,
		Source:     gamification.SourceUnit,
		LanguageID: languageID,
	}, now); err != nil {
		return nil, false, err
	}

	return up, true, nil
}

// RecheckCourse completes the course if every one of its units is completed.
// A course without units never completes. cp is mutated but not saved.
func (c *Cascade) RecheckCourse(
	ctx context.Context,
	tx uow.UnitOfWork,
	events *shared.EventCollector,
	cp *progress.CourseProgress,
	course catalog.Course,
	now time.Time,
) (bool, error) {
	if cp.Completed {
		return false, nil
	}

	unitIDs, err := c.catalog.ListUnitIDs(ctx, course.ID)
	if err != nil {
		return false, fmt.Errorf("cascade: list units: %w", err)
	}
	rows, err := tx.Progress().ListUnitsByCourse(ctx, cp.LearnerID, course.ID)
	if err != nil {
		return false, fmt.Errorf("cascade: list unit progress: %w", err)
	}

	rollup := progress.RollupCourse(unitIDs, progress.IndexUnits(rows))
	if !rollup.Complete {
		return false, nil
	}

	bonus := c.config.CourseCompletionBonus
	at := now
	cp.Completed = true
	cp.CompletedAt = &at
	cp.XPEarned = rollup.UnitsXP + bonus
	cp.UpdatedAt = now
	events.Add(shared.NewCourseCompletedEvent(cp.LearnerID, course.ID, cp.XPEarned, int(cp.AverageScore), now))

	if _, err := c.ledger.Credit(ctx, tx, events, Credit{
		LearnerID:  cp.LearnerID,
		Amount:     bonus,
		Source:     gamification.SourceCourse,
		LanguageID: course.LanguageID,
	}, now); err != nil {
		return false, err
	}

	return true, nil
}

// refreshCourseStats recomputes the running average and the completed lesson
// count from the lesson rows of the course.
func (c *Cascade) refreshCourseStats(ctx context.Context, tx uow.UnitOfWork, cp *progress.CourseProgress, now time.Time) error {
	rows, err := tx.Progress().ListLessonsByCourse(ctx, cp.LearnerID, cp.CourseID)
	if err != nil {
		return fmt.Errorf("cascade: list course lessons: %w", err)
	}
	cp.AverageScore, cp.CompletedLessons = progress.CourseStats(rows)
	cp.UpdatedAt = now
	return nil
}

func requireCourse(ctx context.Context, tx uow.UnitOfWork, learnerID, courseID string) (*progress.CourseProgress, error) {
	cp, err := tx.Progress().GetCourse(ctx, learnerID, courseID)
	if err == nil {
		return cp, nil
	}
	if errors.Is(err, shared.ErrNotFound) {
		return nil, shared.ErrCourseNotStarted
	}
	return nil, fmt.Errorf("cascade: load course: %w", err)
}
