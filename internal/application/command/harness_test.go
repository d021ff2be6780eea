package command

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/grading"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/internal/infrastructure/persistence/memory"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

const learner = "learner-1"

var day0 = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func ptr[T any](v T) *T { return &v }

// recorder collects published events.
type recorder struct {
	mu     sync.Mutex
	events []shared.Event
}

func (r *recorder) Publish(e shared.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) count(t shared.EventType) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, e := range r.events {
		if e.EventType() == t {
			n++
		}
	}
	return n
}

// testCatalog builds one course with two units:
//
//	u1: u1-l1 (3 exercises, 5 hearts), u1-l2 (1 exercise)
//	u2: u2-l1 (1 exercise)
func testCatalog() *memory.Catalog {
	c := memory.NewCatalog()
	c.AddLanguage(catalog.Language{ID: "lang-es", Code: "es", Name: "Spanish"})
	c.AddCourse(catalog.Course{ID: "c1", LanguageID: "lang-es", Title: "Basics"})
	c.AddUnit(
		catalog.Unit{ID: "u1", CourseID: "c1", Order: 1, XPReward: 20},
		catalog.Unit{ID: "u2", CourseID: "c1", Order: 2, XPReward: 15},
	)
	c.AddLesson(
		catalog.Lesson{ID: "u1-l1", UnitID: "u1", Order: 1, XPReward: 10, Hearts: 5},
		catalog.Lesson{ID: "u1-l2", UnitID: "u1", Order: 2, XPReward: 10},
		catalog.Lesson{ID: "u2-l1", UnitID: "u2", Order: 1, XPReward: 10},
	)
	c.AddExercise(
		catalog.Exercise{ID: "u1-l1-e1", LessonID: "u1-l1", Type: grading.TypeMultipleChoice, CorrectAnswer: "Hola", XPReward: 2},
		catalog.Exercise{ID: "u1-l1-e2", LessonID: "u1-l1", Type: grading.TypeTranslation, CorrectAnswer: "Buenos dias", XPReward: 3},
		catalog.Exercise{ID: "u1-l1-e3", LessonID: "u1-l1", Type: grading.TypeMultipleChoice, CorrectAnswer: "Adios", XPReward: 2},
		catalog.Exercise{ID: "u1-l2-e1", LessonID: "u1-l2", Type: grading.TypeFillBlank, CorrectAnswer: "luego", XPReward: 2},
		catalog.Exercise{ID: "u2-l1-e1", LessonID: "u2-l1", Type: grading.TypeSentenceBuilding, CorrectAnswer: "yo como una manzana", XPReward: 3},
	)
	c.AddAchievement(
		gamification.AchievementDefinition{ID: "first-session", Name: "First Session", Type: gamification.AchievementMilestone, Requirement: 1, RewardPoints: 5, Active: true},
		gamification.AchievementDefinition{ID: "streak-3", Name: "Three Days", Type: gamification.AchievementStreak, Requirement: 3, RewardPoints: 20, Active: true},
	)
	c.AddCertification(certification.Certification{
		ID:       "cert-a1",
		CourseID: "c1",
		Name:     "Spanish A1",
		Criteria: certification.Criteria{MinimumScore: ptr(80.0), RequiredLessons: ptr(3)},
	})
	return c
}

type harness struct {
	store   *memory.Store
	catalog *memory.Catalog
	clock   *timeutil.FixedClock
	events  *recorder
	engine  *engine.Engine
	runner  *Runner

	start    *StartLessonHandler
	submit   *SubmitAnswerHandler
	complete *CompleteLessonHandler
	session  *RecordSessionHandler
	issue    *IssueCertificationHandler
	revoke   *RevokeCertificationHandler
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	return newHarnessWith(t, nil)
}

// newHarnessWith lets a test wrap the store's factory.
func newHarnessWith(t *testing.T, wrap func(uow.Factory) uow.Factory) *harness {
	t.Helper()
	h := &harness{
		store:   memory.NewStore(),
		catalog: testCatalog(),
		clock:   &timeutil.FixedClock{T: day0},
		events:  &recorder{},
	}
	var uows uow.Factory = h.store
	if wrap != nil {
		uows = wrap(uows)
	}
	h.engine = engine.New(h.catalog, engine.DefaultConfig(), nil)
	h.runner = NewRunner(uows, nil, h.events, h.clock, nil, RunnerConfig{ConflictRetries: 4, ConflictBackoff: time.Microsecond})

	h.start = NewStartLessonHandler(h.catalog, h.runner, nil)
	h.submit = NewSubmitAnswerHandler(h.catalog, h.engine, h.runner, nil)
	h.complete = NewCompleteLessonHandler(h.catalog, h.engine, h.runner, nil)
	h.session = NewRecordSessionHandler(h.engine, h.runner, nil)
	h.issue = NewIssueCertificationHandler(h.catalog, h.engine, h.runner, nil)
	h.revoke = NewRevokeCertificationHandler(h.runner, nil)
	return h
}

func (h *harness) startLesson(t *testing.T, lessonID string) *StartLessonResult {
	t.Helper()
	res, err := h.start.Handle(context.Background(), StartLessonCommand{LearnerID: learner, LessonID: lessonID})
	require.NoError(t, err)
	return res
}

func (h *harness) answer(t *testing.T, exerciseID, text string) *SubmitAnswerResult {
	t.Helper()
	res, err := h.submit.Handle(context.Background(), SubmitAnswerCommand{LearnerID: learner, ExerciseID: exerciseID, AnswerText: text})
	require.NoError(t, err)
	return res
}

func (h *harness) completeLesson(t *testing.T, lessonID string) *CompleteLessonResult {
	t.Helper()
	res, err := h.complete.Handle(context.Background(), CompleteLessonCommand{LearnerID: learner, LessonID: lessonID})
	require.NoError(t, err)
	return res
}

// finishCourse plays the whole course: u1-l1 scores 60, the rest 100.
func (h *harness) finishCourse(t *testing.T) {
	t.Helper()
	h.startLesson(t, "u1-l1")
	h.answer(t, "u1-l1-e1", "Hola")
	h.answer(t, "u1-l1-e3", "adios")
	h.answer(t, "u1-l1-e2", "buenos dias")
	h.answer(t, "u1-l1-e1", "Bonjour")
	h.answer(t, "u1-l1-e3", "Ciao")
	h.completeLesson(t, "u1-l1")

	h.startLesson(t, "u1-l2")
	h.answer(t, "u1-l2-e1", "luego")
	h.completeLesson(t, "u1-l2")

	h.startLesson(t, "u2-l1")
	h.answer(t, "u2-l1-e1", "manzana una como yo")
	h.completeLesson(t, "u2-l1")
}

func (h *harness) profile(t *testing.T) *gamification.LearnerProfile {
	t.Helper()
	p, err := h.store.Snapshot().Gamification().GetProfile(context.Background(), learner)
	require.NoError(t, err)
	return p
}

// withConflictRetries rebuilds the runner and handlers with a larger retry
// budget for tests that run commands from many goroutines.
func (h *harness) withConflictRetries(attempts int) *harness {
	h.runner = NewRunner(h.store, nil, h.events, h.clock, nil, RunnerConfig{ConflictRetries: attempts, ConflictBackoff: time.Microsecond})
	h.start = NewStartLessonHandler(h.catalog, h.runner, nil)
	h.submit = NewSubmitAnswerHandler(h.catalog, h.engine, h.runner, nil)
	h.complete = NewCompleteLessonHandler(h.catalog, h.engine, h.runner, nil)
	h.session = NewRecordSessionHandler(h.engine, h.runner, nil)
	h.issue = NewIssueCertificationHandler(h.catalog, h.engine, h.runner, nil)
	h.revoke = NewRevokeCertificationHandler(h.runner, nil)
	return h
}
