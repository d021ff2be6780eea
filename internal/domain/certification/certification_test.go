package certification

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

func float(v float64) *float64 { return &v }
func integer(v int) *int       { return &v }

func TestEvaluate(t *testing.T) {
	cert := Certification{
		ID:       "es-a1",
		CourseID: "es-basics",
		Criteria: Criteria{
			MinimumScore:    float(80),
			RequiredLessons: integer(3),
			MinimumXP:       integer(50),
		},
	}

	t.Run("all criteria met", func(t *testing.T) {
		e := Evaluate(cert, Metrics{AverageScore: 80, CompletedLessons: 3, TotalXP: 50})
		assert.True(t, e.Eligible)
		assert.Equal(t, "es-a1", e.CertificationID)
		require.Len(t, e.Checks, 3)
		for _, c := range e.Checks {
			assert.True(t, c.Passed, c.Criterion)
		}
	})

	t.Run("one failing criterion blocks", func(t *testing.T) {
		e := Evaluate(cert, Metrics{AverageScore: 95, CompletedLessons: 2, TotalXP: 500})
		assert.False(t, e.Eligible)

		var failed []CriterionKind
		for _, c := range e.Checks {
			if !c.Passed {
				failed = append(failed, c.Criterion)
			}
		}
		assert.Equal(t, []CriterionKind{CriterionRequiredLessons}, failed)
	})

	t.Run("absent criteria are skipped", func(t *testing.T) {
		e := Evaluate(Certification{ID: "x", Criteria: Criteria{MinimumXP: integer(10)}}, Metrics{TotalXP: 10})
		assert.True(t, e.Eligible)
		require.Len(t, e.Checks, 1)
		assert.Equal(t, CriterionMinimumXP, e.Checks[0].Criterion)
		assert.Equal(t, 10.0, e.Checks[0].Required)
	})

	t.Run("no criteria means eligible", func(t *testing.T) {
		e := Evaluate(Certification{ID: "free"}, Metrics{})
		assert.True(t, e.Eligible)
		assert.Empty(t, e.Checks)
	})
}

func TestUserCertification_Revoke(t *testing.T) {
	now := time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)
	c := &UserCertification{ID: "c1"}

	require.NoError(t, c.Revoke(now))
	assert.True(t, c.Revoked)
	require.NotNil(t, c.RevokedAt)
	assert.Equal(t, now, *c.RevokedAt)

	err := c.Revoke(now.Add(time.Hour))
	assert.ErrorIs(t, err, shared.ErrCertificateRevoked)
	assert.Equal(t, now, *c.RevokedAt)
}

func TestUserCertification_SealAndVerify(t *testing.T) {
	c := &UserCertification{
		CertificateNumber: "CERT-20250501-LEARNE-ABCD1234",
		LearnerID:         "learner-1",
		CertificationID:   "es-a1",
		Score:             91.5,
		IssuedAt:          time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC),
	}
	assert.False(t, c.Verify(), "unsealed certificate never verifies")

	c.Seal()
	assert.Len(t, c.VerificationHash, 64)
	assert.True(t, c.Verify())

	// The same instant in another zone keeps the fingerprint.
	c.IssuedAt = c.IssuedAt.In(time.FixedZone("UTC+5", 5*3600))
	assert.True(t, c.Verify())

	// Revocation does not touch sealed fields.
	require.NoError(t, c.Revoke(time.Now()))
	assert.True(t, c.Verify())

	c.Score = 99
	assert.False(t, c.Verify())
}

func TestFormatNumber(t *testing.T) {
	now := time.Date(2025, 5, 1, 23, 0, 0, 0, time.UTC)

	n := FormatNumber(now, "3f2a-9bc1-ffff", "ab12cd34")
	assert.Equal(t, "CERT-20250501-3F2A9B-AB12CD34", n)

	n = FormatNumber(now, "ab", "x")
	assert.Equal(t, "CERT-20250501-AB-X", n)

	n = FormatNumber(now, "---", "x")
	assert.True(t, strings.HasPrefix(n, "CERT-20250501-ANON-"))
}
