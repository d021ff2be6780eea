// Package certification проверяет критерии сертификации по курсу и
// описывает выданные сертификаты.
package certification

import (
	"encoding/hex"
	"fmt"
	"strconv"
	"strings"
	"time"
	"unicode"

	"golang.org/x/crypto/blake2b"

	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/timeutil"
)

// ══════════════════════════════════════════════════════════════════════════════
// CATALOG
// ══════════════════════════════════════════════════════════════════════════════

// Criteria - необязательные пороги. Отсутствующий критерий выполняется всегда.
type Criteria struct {
	MinimumScore    *float64 `json:"minimum_score,omitempty"`
	RequiredLessons *int     `json:"required_lessons,omitempty"`
	MinimumXP       *int     `json:"minimum_xp,omitempty"`
}

// Certification - сертификация из каталога, принадлежит курсу.
type Certification struct {
	ID          string   `json:"id"`
	CourseID    string   `json:"course_id"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	Criteria    Criteria `json:"criteria"`
}

// ══════════════════════════════════════════════════════════════════════════════
// ELIGIBILITY
// ══════════════════════════════════════════════════════════════════════════════

// Metrics - накопленные показатели ученика по курсу.
type Metrics struct {
	AverageScore     float64 `json:"average_score"`
	CompletedLessons int     `json:"completed_lessons"`
	TotalXP          int     `json:"total_xp"`
}

// CriterionKind - имя критерия.
type CriterionKind string

const (
	CriterionMinimumScore    CriterionKind = "minimum_score"
	CriterionRequiredLessons CriterionKind = "required_lessons"
	CriterionMinimumXP       CriterionKind = "minimum_xp"
)

// Check - результат проверки одного критерия.
type Check struct {
	Criterion CriterionKind `json:"criterion"`
	Required  float64       `json:"required"`
	Actual    float64       `json:"actual"`
	Passed    bool          `json:"passed"`
}

// Eligibility - результат проверки всех критериев.
type Eligibility struct {
	CertificationID string  `json:"certification_id"`
	Eligible        bool    `json:"eligible"`
	Checks          []Check `json:"checks"`
	Metrics         Metrics `json:"metrics"`
	AlreadyIssued   bool    `json:"already_issued"`
}

// criterion извлекает порог (если задан) и фактическое значение.
type criterion struct {
	kind      CriterionKind
	threshold func(Criteria) (float64, bool)
	actual    func(Metrics) float64
}

var criteria = []criterion{
	{
		kind: CriterionMinimumScore,
		threshold: func(c Criteria) (float64, bool) {
			if c.MinimumScore == nil {
				return 0, false
			}
			return *c.MinimumScore, true
		},
		actual: func(m Metrics) float64 { return m.AverageScore },
	},
	{
		kind: CriterionRequiredLessons,
		threshold: func(c Criteria) (float64, bool) {
			if c.RequiredLessons == nil {
				return 0, false
			}
			return float64(*c.RequiredLessons), true
		},
		actual: func(m Metrics) float64 { return float64(m.CompletedLessons) },
	},
	{
		kind: CriterionMinimumXP,
		threshold: func(c Criteria) (float64, bool) {
			if c.MinimumXP == nil {
				return 0, false
			}
			return float64(*c.MinimumXP), true
		},
		actual: func(m Metrics) float64 { return float64(m.TotalXP) },
	},
}

// Evaluate сравнивает показатели с критериями сертификации.
// Итог - логическое И по всем заданным критериям.
func Evaluate(cert Certification, m Metrics) Eligibility {
	result := Eligibility{
		CertificationID: cert.ID,
		Eligible:        true,
		Checks:          make([]Check, 0, len(criteria)),
		Metrics:         m,
	}

	for _, c := range criteria {
		required, present := c.threshold(cert.Criteria)
		if !present {
			continue
		}
		actual := c.actual(m)
		passed := actual >= required
		result.Checks = append(result.Checks, Check{
			Criterion: c.kind,
			Required:  required,
			Actual:    actual,
			Passed:    passed,
		})
		result.Eligible = result.Eligible && passed
	}

	return result
}

// ══════════════════════════════════════════════════════════════════════════════
// ISSUED CERTIFICATES
// ══════════════════════════════════════════════════════════════════════════════

// UserCertification - выданный сертификат. После выдачи меняется только
// признак отзыва.
type UserCertification struct {
	ID                string     `json:"id"`
	LearnerID         string     `json:"learner_id"`
	CertificationID   string     `json:"certification_id"`
	CourseID          string     `json:"course_id"`
	CertificateNumber string     `json:"certificate_number"`
	Score             float64    `json:"score"`
	IssuedAt          time.Time  `json:"issued_at"`
	Revoked           bool       `json:"revoked"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`
	VerificationHash  string     `json:"verification_hash"`
	Version           int        `json:"-"`
}

// Revoke отзывает сертификат. Повторный отзыв - ошибка.
func (u *UserCertification) Revoke(now time.Time) error {
	if u.Revoked {
		return shared.ErrCertificateRevoked
	}
	at := now
	u.Revoked = true
	u.RevokedAt = &at
	return nil
}

// Seal вычисляет отпечаток выданного сертификата.
func (u *UserCertification) Seal() {
	u.VerificationHash = Fingerprint(u)
}

// Verify сверяет сохранённый отпечаток с данными сертификата.
func (u *UserCertification) Verify() bool {
	return u.VerificationHash != "" && u.VerificationHash == Fingerprint(u)
}

// Fingerprint - blake2b-256 от неизменяемых полей сертификата.
func Fingerprint(u *UserCertification) string {
	payload := strings.Join([]string{
		u.CertificateNumber,
		u.LearnerID,
		u.CertificationID,
		strconv.FormatFloat(u.Score, 'f', 2, 64),
		u.IssuedAt.UTC().Format(time.RFC3339Nano),
	}, "|")
	sum := blake2b.Sum256([]byte(payload))
	return hex.EncodeToString(sum[:])
}

// learnerFragmentLen - сколько символов идентификатора ученика попадает в номер.
const learnerFragmentLen = 6

// FormatNumber собирает номер сертификата:
// CERT-<YYYYMMDD>-<фрагмент ID ученика>-<случайный суффикс>.
// Уникальность обеспечивается суффиксом и проверкой при сохранении.
func FormatNumber(now time.Time, learnerID, suffix string) string {
	fragment := make([]rune, 0, learnerFragmentLen)
	for _, r := range strings.ToUpper(learnerID) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			fragment = append(fragment, r)
		}
		if len(fragment) == learnerFragmentLen {
			break
		}
	}
	if len(fragment) == 0 {
		fragment = []rune("ANON")
	}
	return fmt.Sprintf("CERT-%s-%s-%s", timeutil.CompactDate(now), string(fragment), strings.ToUpper(suffix))
}
