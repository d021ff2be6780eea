package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/progress"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

var t0 = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)

func seedLesson(t *testing.T, s *Store) {
	t.Helper()
	ctx := context.Background()
	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Progress().SaveLesson(ctx, progress.NewLessonProgress("learner-1", "l1", "u1", "c1", 5, t0)))
	require.NoError(t, tx.Commit(ctx))
}

func TestStore_CommitMakesWritesVisible(t *testing.T) {
	s := NewStore()
	seedLesson(t, s)

	lp, err := s.Snapshot().Progress().GetLesson(context.Background(), "learner-1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 1, lp.Version)
	assert.Equal(t, 5, lp.Hearts)
}

func TestStore_RollbackDiscardsWrites(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, err := s.Begin(ctx)
	require.NoError(t, err)
	require.NoError(t, tx.Progress().SaveLesson(ctx, progress.NewLessonProgress("learner-1", "l1", "u1", "c1", 5, t0)))
	require.NoError(t, tx.Progress().CreateAnswer(ctx, &progress.ExerciseAnswer{ID: "a1", LearnerID: "learner-1", LessonID: "l1"}))
	require.NoError(t, tx.Rollback(ctx))

	snap := s.Snapshot().Progress()
	_, err = snap.GetLesson(ctx, "learner-1", "l1")
	assert.ErrorIs(t, err, shared.ErrLessonProgressNotFound)
	answers, err := snap.ListAnswers(ctx, "learner-1", "l1")
	require.NoError(t, err)
	assert.Empty(t, answers)
}

func TestStore_ReadsAreIsolated(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	reader, err := s.Begin(ctx)
	require.NoError(t, err)
	seedLesson(t, s)

	_, err = reader.Progress().GetLesson(ctx, "learner-1", "l1")
	assert.ErrorIs(t, err, shared.ErrLessonProgressNotFound, "snapshot taken before the commit")
}

func TestStore_ConcurrentUpdateConflicts(t *testing.T) {
	s := NewStore()
	seedLesson(t, s)
	ctx := context.Background()

	a, err := s.Begin(ctx)
	require.NoError(t, err)
	b, err := s.Begin(ctx)
	require.NoError(t, err)

	la, err := a.Progress().GetLesson(ctx, "learner-1", "l1")
	require.NoError(t, err)
	lb, err := b.Progress().GetLesson(ctx, "learner-1", "l1")
	require.NoError(t, err)

	la.ApplyAnswer(true, 2, t0)
	lb.ApplyAnswer(false, 0, t0)
	require.NoError(t, a.Progress().SaveLesson(ctx, la))
	require.NoError(t, b.Progress().SaveLesson(ctx, lb))

	require.NoError(t, a.Commit(ctx))
	assert.ErrorIs(t, b.Commit(ctx), shared.ErrOptimisticLock)

	lp, err := s.Snapshot().Progress().GetLesson(ctx, "learner-1", "l1")
	require.NoError(t, err)
	assert.Equal(t, 2, lp.XPEarned)
	assert.Equal(t, 2, lp.Version)
}

func TestStore_ConcurrentInsertConflicts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	a, _ := s.Begin(ctx)
	b, _ := s.Begin(ctx)
	require.NoError(t, a.Progress().SaveLanguage(ctx, progress.NewLanguageProgress("learner-1", "lang-es", t0)))
	require.NoError(t, b.Progress().SaveLanguage(ctx, progress.NewLanguageProgress("learner-1", "lang-es", t0)))

	require.NoError(t, a.Commit(ctx))
	assert.ErrorIs(t, b.Commit(ctx), shared.ErrOptimisticLock)
}

func TestStore_StaleVersionRejectedOnSave(t *testing.T) {
	s := NewStore()
	seedLesson(t, s)
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	stale := progress.NewLessonProgress("learner-1", "l1", "u1", "c1", 5, t0)
	assert.ErrorIs(t, tx.Progress().SaveLesson(ctx, stale), shared.ErrOptimisticLock)
}

func TestStore_FailOn(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	boom := errors.New("disk on fire")

	s.FailOn("SaveCourse", boom)
	tx, _ := s.Begin(ctx)
	err := tx.Progress().SaveCourse(ctx, progress.NewCourseProgress("learner-1", "c1", "lang-es", t0))
	assert.ErrorIs(t, err, boom)

	s.FailOn("SaveCourse", nil)
	assert.NoError(t, tx.Progress().SaveCourse(ctx, progress.NewCourseProgress("learner-1", "c1", "lang-es", t0)))

	s.FailOn("Commit", boom)
	assert.ErrorIs(t, tx.Commit(ctx), boom)
	s.FailOn("Commit", nil)

	_, err = s.Snapshot().Progress().GetCourse(ctx, "learner-1", "c1")
	assert.ErrorIs(t, err, shared.ErrCourseProgressNotFound)
}

func TestStore_WritesAfterDoneAreRejected(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.Commit(ctx))
	err := tx.Progress().SaveLanguage(ctx, progress.NewLanguageProgress("learner-1", "lang-es", t0))
	assert.ErrorIs(t, err, shared.ErrInvalidState)

	err = s.Snapshot().Progress().SaveLanguage(ctx, progress.NewLanguageProgress("learner-1", "lang-es", t0))
	assert.ErrorIs(t, err, shared.ErrInvalidState)
}

func TestStore_BeginHonoursContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStore().Begin(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func cert(id, learner, number string) *certification.UserCertification {
	return &certification.UserCertification{
		ID:                id,
		LearnerID:         learner,
		CertificationID:   "es-a1",
		CourseID:          "es-basics",
		CertificateNumber: number,
		IssuedAt:          t0,
	}
}

func TestStore_CertificateUniqueness(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.Certifications().Create(ctx, cert("c1", "learner-1", "CERT-1")))
	assert.ErrorIs(t, tx.Certifications().Create(ctx, cert("c2", "learner-2", "CERT-1")), shared.ErrCertificateNumberTaken)
	assert.ErrorIs(t, tx.Certifications().Create(ctx, cert("c3", "learner-1", "CERT-3")), shared.ErrCertificateAlreadyIssued)
	require.NoError(t, tx.Commit(ctx))

	exists, err := s.Snapshot().Certifications().NumberExists(ctx, "CERT-1")
	require.NoError(t, err)
	assert.True(t, exists)
	exists, err = s.Snapshot().Certifications().NumberExists(ctx, "CERT-404")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestStore_CertificateUniquenessAcrossTransactions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	t.Run("same number", func(t *testing.T) {
		a, _ := s.Begin(ctx)
		b, _ := s.Begin(ctx)
		require.NoError(t, a.Certifications().Create(ctx, cert("n1", "learner-1", "CERT-N")))
		require.NoError(t, b.Certifications().Create(ctx, cert("n2", "learner-2", "CERT-N")))
		require.NoError(t, a.Commit(ctx))
		assert.ErrorIs(t, b.Commit(ctx), shared.ErrCertificateNumberTaken)
	})

	t.Run("second active certificate", func(t *testing.T) {
		a, _ := s.Begin(ctx)
		b, _ := s.Begin(ctx)
		require.NoError(t, a.Certifications().Create(ctx, cert("d1", "learner-3", "CERT-D1")))
		require.NoError(t, b.Certifications().Create(ctx, cert("d2", "learner-3", "CERT-D2")))
		require.NoError(t, a.Commit(ctx))
		assert.ErrorIs(t, b.Commit(ctx), shared.ErrCertificateAlreadyIssued)
	})
}

func TestStore_ReissueAfterRevoke(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	tx, _ := s.Begin(ctx)
	require.NoError(t, tx.Certifications().Create(ctx, cert("c1", "learner-1", "CERT-1")))
	require.NoError(t, tx.Commit(ctx))

	tx, _ = s.Begin(ctx)
	c, err := tx.Certifications().Get(ctx, "learner-1", "es-a1")
	require.NoError(t, err)
	require.NoError(t, c.Revoke(t0.Add(time.Hour)))
	require.NoError(t, tx.Certifications().Update(ctx, c))
	require.NoError(t, tx.Commit(ctx))

	fresh := cert("c2", "learner-1", "CERT-2")
	fresh.IssuedAt = t0.Add(2 * time.Hour)
	tx, _ = s.Begin(ctx)
	require.NoError(t, tx.Certifications().Create(ctx, fresh))
	require.NoError(t, tx.Commit(ctx))

	latest, err := s.Snapshot().Certifications().Get(ctx, "learner-1", "es-a1")
	require.NoError(t, err)
	assert.Equal(t, "c2", latest.ID)
	assert.False(t, latest.Revoked)
}

func TestStore_UpdateMissingCertificate(t *testing.T) {
	tx, _ := NewStore().Begin(context.Background())
	err := tx.Certifications().Update(context.Background(), cert("ghost", "learner-1", "CERT-X"))
	assert.ErrorIs(t, err, shared.ErrCertificateNotFound)
}
