package query

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// ══════════════════════════════════════════════════════════════════════════════
// CERTIFICATION QUERIES
// Проверка допуска к сертификации и проверка подлинности сертификата.
// ══════════════════════════════════════════════════════════════════════════════

// CheckCertificationHandler вычисляет допуск без изменения состояния.
type CheckCertificationHandler struct {
	uows    uow.Factory
	catalog catalog.Catalog
}

// NewCheckCertificationHandler создаёт обработчик.
func NewCheckCertificationHandler(uows uow.Factory, cat catalog.Catalog) *CheckCertificationHandler {
	return &CheckCertificationHandler{uows: uows, catalog: cat}
}

// Handle возвращает результат по каждому заданному критерию.
func (h *CheckCertificationHandler) Handle(ctx context.Context, learnerID, certificationID string) (*certification.Eligibility, error) {
	if learnerID == "" || certificationID == "" {
		return nil, shared.NewDomainError("query", "CheckCertification", shared.ErrInvalidInput, "learner_id and certification_id are required")
	}

	ctx, span := tracer.Start(ctx, "query.check_certification")
	defer span.End()
	span.SetAttributes(
		attribute.String("learner.id", learnerID),
		attribute.String("certification.id", certificationID),
	)

	tx, err := h.uows.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	check, err := engine.CheckEligibility(ctx, tx, h.catalog, learnerID, certificationID)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("eligible", check.Eligibility.Eligible))
	return &check.Eligibility, nil
}

// VerificationDTO - результат проверки сертификата по номеру.
type VerificationDTO struct {
	CertificateNumber string     `json:"certificate_number"`
	CertificationID   string     `json:"certification_id"`
	LearnerID         string     `json:"learner_id"`
	Score             float64    `json:"score"`
	IssuedAt          time.Time  `json:"issued_at"`
	Revoked           bool       `json:"revoked"`
	RevokedAt         *time.Time `json:"revoked_at,omitempty"`

	// Authentic - отпечаток совпадает с данными.
	Authentic bool `json:"authentic"`

	// Valid - подлинный и не отозван.
	Valid bool `json:"valid"`
}

// VerifyCertificateHandler проверяет сертификат по номеру.
type VerifyCertificateHandler struct {
	uows uow.Factory
}

// NewVerifyCertificateHandler создаёт обработчик.
func NewVerifyCertificateHandler(uows uow.Factory) *VerifyCertificateHandler {
	return &VerifyCertificateHandler{uows: uows}
}

// Handle ищет сертификат и сверяет отпечаток.
func (h *VerifyCertificateHandler) Handle(ctx context.Context, number string) (*VerificationDTO, error) {
	if number == "" {
		return nil, shared.NewDomainError("query", "VerifyCertificate", shared.ErrInvalidInput, "certificate number is required")
	}

	ctx, span := tracer.Start(ctx, "query.verify_certificate")
	defer span.End()

	tx, err := h.uows.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	cert, err := tx.Certifications().GetByNumber(ctx, number)
	if err != nil {
		return nil, err
	}

	authentic := cert.Verify()
	span.SetAttributes(attribute.Bool("authentic", authentic))
	return &VerificationDTO{
		CertificateNumber: cert.CertificateNumber,
		CertificationID:   cert.CertificationID,
		LearnerID:         cert.LearnerID,
		Score:             cert.Score,
		IssuedAt:          cert.IssuedAt,
		Revoked:           cert.Revoked,
		RevokedAt:         cert.RevokedAt,
		Authentic:         authentic,
		Valid:             authentic && !cert.Revoked,
	}, nil
}
