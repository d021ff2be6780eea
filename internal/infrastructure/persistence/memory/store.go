// Package memory implements the persistence ports in process memory.
// Transactions run on a private snapshot and are validated against
// concurrent commits at Commit time, mirroring the optimistic locking of
// the Postgres store. Used by tests and by the server's dev mode.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

type pair struct{ learner, entity string }

type dayKey struct {
	learner string
	day     time.Time
}

type dataset struct {
	answers      []progress.ExerciseAnswer
	lessons      *table[pair, progress.LessonProgress]
	units        *table[pair, progress.UnitProgress]
	courses      *table[pair, progress.CourseProgress]
	languages    *table[pair, progress.LanguageProgress]
	profiles     *table[string, gamification.LearnerProfile]
	goals        *table[dayKey, gamification.DailyGoal]
	achievements *table[pair, gamification.UserAchievement]
	certs        *table[string, certification.UserCertification]
}

func newDataset() *dataset {
	return &dataset{
		lessons:      newTable[pair](func(v *progress.LessonProgress) *int { return &v.Version }),
		units:        newTable[pair](func(v *progress.UnitProgress) *int { return &v.Version }),
		courses:      newTable[pair](func(v *progress.CourseProgress) *int { return &v.Version }),
		languages:    newTable[pair](func(v *progress.LanguageProgress) *int { return &v.Version }),
		profiles:     newTable[string](func(v *gamification.LearnerProfile) *int { return &v.Version }),
		goals:        newTable[dayKey](func(v *gamification.DailyGoal) *int { return &v.Version }),
		achievements: newTable[pair](func(v *gamification.UserAchievement) *int { return &v.Version }),
		certs:        newTable[string](func(v *certification.UserCertification) *int { return &v.Version }),
	}
}

func (d *dataset) clone() *dataset {
	return &dataset{
		answers:      append([]progress.ExerciseAnswer(nil), d.answers...),
		lessons:      d.lessons.clone(),
		units:        d.units.clone(),
		courses:      d.courses.clone(),
		languages:    d.languages.clone(),
		profiles:     d.profiles.clone(),
		goals:        d.goals.clone(),
		achievements: d.achievements.clone(),
		certs:        d.certs.clone(),
	}
}

// Store is an in-memory uow.Factory.
type Store struct {
	mu       sync.Mutex
	data     *dataset
	failures map[string]error
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		data:     newDataset(),
		failures: make(map[string]error),
	}
}

// FailOn makes the named repository operation (e.g. "SaveCourse") return err
// until cleared with a nil err. Used to exercise rollback paths.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

func (s *Store) failure(op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.failures[op]
}

// Begin implements uow.Factory.
func (s *Store) Begin(ctx context.Context) (uow.UnitOfWork, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	view := s.data.clone()
	s.mu.Unlock()

	return &tx{
		store:        s,
		view:         view,
		baseAnswers:  len(view.answers),
		lessons:      writeSet[pair]{},
		units:        writeSet[pair]{},
		courses:      writeSet[pair]{},
		languages:    writeSet[pair]{},
		profiles:     writeSet[string]{},
		goals:        writeSet[dayKey]{},
		achievements: writeSet[pair]{},
		certs:        writeSet[string]{},
	}, nil
}

// Snapshot returns a committed, read-only view for assertions in tests.
func (s *Store) Snapshot() uow.UnitOfWork {
	s.mu.Lock()
	view := s.data.clone()
	s.mu.Unlock()
	return &tx{store: s, view: view, done: true}
}

type tx struct {
	store       *Store
	view        *dataset
	baseAnswers int
	done        bool

	lessons      writeSet[pair]
	units        writeSet[pair]
	courses      writeSet[pair]
	languages    writeSet[pair]
	profiles     writeSet[string]
	goals        writeSet[dayKey]
	achievements writeSet[pair]
	certs        writeSet[string]
}

func (t *tx) Progress() progress.Repository            { return progressRepo{t} }
func (t *tx) Gamification() gamification.Repository    { return gamificationRepo{t} }
func (t *tx) Certifications() certification.Repository { return certificationRepo{t} }

// begin guards every repository call: injected failures first, then
// use after Commit/Rollback.
func (t *tx) begin(op string, write bool) error {
	if err := t.store.failure(op); err != nil {
		return err
	}
	if write && t.done {
		return shared.ErrInvalidState
	}
	return nil
}

// Commit validates every touched row against the committed state and
// applies the transaction's writes atomically.
func (t *tx) Commit(ctx context.Context) error {
	if t.done {
		return nil
	}
	t.done = true
	if err := t.store.failure("Commit"); err != nil {
		return err
	}

	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()

	base := s.data
	for _, err := range []error{
		validate(base.lessons, t.lessons),
		validate(base.units, t.units),
		validate(base.courses, t.courses),
		validate(base.languages, t.languages),
		validate(base.profiles, t.profiles),
		validate(base.goals, t.goals),
		validate(base.achievements, t.achievements),
		validate(base.certs, t.certs),
	} {
		if err != nil {
			return err
		}
	}

	// Unique constraints on certificates are rechecked against rows
	// committed by concurrent transactions.
	for id := range t.certs {
		c := t.view.certs.rows[id]
		for otherID, other := range base.certs.rows {
			if otherID == id {
				continue
			}
			if other.CertificateNumber == c.CertificateNumber {
				return shared.ErrCertificateNumberTaken
			}
			if !c.Revoked && !other.Revoked &&
				other.LearnerID == c.LearnerID && other.CertificationID == c.CertificationID {
				return shared.ErrCertificateAlreadyIssued
			}
		}
	}

	apply(base.lessons, t.view.lessons, t.lessons)
	apply(base.units, t.view.units, t.units)
	apply(base.courses, t.view.courses, t.courses)
	apply(base.languages, t.view.languages, t.languages)
	apply(base.profiles, t.view.profiles, t.profiles)
	apply(base.goals, t.view.goals, t.goals)
	apply(base.achievements, t.view.achievements, t.achievements)
	apply(base.certs, t.view.certs, t.certs)
	base.answers = append(base.answers, t.view.answers[t.baseAnswers:]...)
	return nil
}

// Rollback discards the transaction view.
func (t *tx) Rollback(context.Context) error {
	t.done = true
	return nil
}
