package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/alem-hub/lingo-progress/internal/application/engine"
	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/gamification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// ISSUE CERTIFICATION COMMAND
// Re-checks eligibility inside the transaction, allocates a unique
// certificate number, stores the certificate and credits the bonus.
// ══════════════════════════════════════════════════════════════════════════════

// numberAttempts bounds certificate number generation per transaction.
const numberAttempts = 5

// IssueCertificationCommand contains the data to issue a certificate.
type IssueCertificationCommand struct {
	// LearnerID is the opaque learner identifier.
	LearnerID string `validate:"required"`

	// CertificationID is the catalog certification.
	CertificationID string `validate:"required"`
}

// IssueCertificationResult contains the issued certificate.
type IssueCertificationResult struct {
	Certificate *certification.UserCertification
	Eligibility certification.Eligibility
	XPAwarded   int
}

// IssueCertificationHandler handles the IssueCertificationCommand.
type IssueCertificationHandler struct {
	catalog catalog.Catalog
	engine  *engine.Engine
	runner  *Runner
	log     *logger.Logger

	// suffix generates the random part of certificate numbers.
	suffix func() string
}

// NewIssueCertificationHandler creates a new IssueCertificationHandler.
func NewIssueCertificationHandler(cat catalog.Catalog, eng *engine.Engine, runner *Runner, log *logger.Logger) *IssueCertificationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &IssueCertificationHandler{
		catalog: cat,
		engine:  eng,
		runner:  runner,
		log:     log,
		suffix:  randomSuffix,
	}
}

func randomSuffix() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:8]
}

// Handle executes the issue certification command.
func (h *IssueCertificationHandler) Handle(ctx context.Context, cmd IssueCertificationCommand) (*IssueCertificationResult, error) {
	if err := validateCommand("issue_certification", cmd); err != nil {
		return nil, err
	}

	var result *IssueCertificationResult
	err := h.runner.Run(ctx, "issue_certification", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		check, err := engine.CheckEligibility(ctx, tx, h.catalog, cmd.LearnerID, cmd.CertificationID)
		if err != nil {
			return err
		}
		if check.Eligibility.AlreadyIssued {
			return shared.ErrCertificateAlreadyIssued
		}
		if !check.Eligibility.Eligible {
			return shared.ErrNotEligible
		}

		number, err := h.allocateNumber(ctx, tx, cmd.LearnerID, now)
		if err != nil {
			return err
		}

		cert := &certification.UserCertification{
			ID:                uuid.NewString(),
			LearnerID:         cmd.LearnerID,
			CertificationID:   check.Certification.ID,
			CourseID:          check.Certification.CourseID,
			CertificateNumber: number,
			Score:             check.Eligibility.Metrics.AverageScore,
			IssuedAt:          now.Truncate(time.Microsecond),
		}
		cert.Seal()
		if err := tx.Certifications().Create(ctx, cert); err != nil {
			return fmt.Errorf("issue_certification: store certificate: %w", err)
		}

		// A course removed from the catalog leaves the bonus without a language.
		languageID := ""
		course, err := h.catalog.GetCourse(ctx, check.Certification.CourseID)
		switch {
		case err == nil:
			languageID = course.LanguageID
		case !shared.IsNotFound(err):
			return fmt.Errorf("issue_certification: load course: %w", err)
		}

		bonus := h.engine.Config().CertificationBonus
		if _, err := h.engine.Ledger.Credit(ctx, tx, events, engine.Credit{
			LearnerID:  cmd.LearnerID,
			Amount:     bonus,
			Source:     gamification.SourceCertification,
			LanguageID: languageID,
		}, now); err != nil {
			return err
		}

		events.Add(shared.NewCertificateEvent(shared.EventCertificateIssued, cmd.LearnerID, cert.CertificationID, cert.CertificateNumber, now))

		result = &IssueCertificationResult{
			Certificate: cert,
			Eligibility: check.Eligibility,
			XPAwarded:   max(bonus, 0),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("certificate issued",
		logger.LearnerID(cmd.LearnerID),
		logger.CertificationID(cmd.CertificationID),
		logger.String("certificate_number", result.Certificate.CertificateNumber),
	)
	return result, nil
}

// allocateNumber draws numbers until one is free. The store's uniqueness
// check on Create still guards against a concurrent issuer.
func (h *IssueCertificationHandler) allocateNumber(ctx context.Context, tx uow.UnitOfWork, learnerID string, now time.Time) (string, error) {
	for range numberAttempts {
		number := certification.FormatNumber(now, learnerID, h.suffix())
		taken, err := tx.Certifications().NumberExists(ctx, number)
		if err != nil {
			return "", fmt.Errorf("issue_certification: check number: %w", err)
		}
		if !taken {
			return number, nil
		}
	}
	return "", shared.ErrCertificateNumberTaken
}
