package command

import (
	"context"
	"fmt"
	"time"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
	"github.com/alem-hub/lingo-progress/pkg/logger"
)

// RevokeCertificationCommand revokes a certificate by its number.
type RevokeCertificationCommand struct {
	// LearnerID owns the certificate.
	LearnerID string `validate:"required"`

	// CertificateNumber is the printed certificate number.
	CertificateNumber string `validate:"required"`
}

// RevokeCertificationHandler handles the RevokeCertificationCommand.
// XP credited at issuance is kept.
type RevokeCertificationHandler struct {
	runner *Runner
	log    *logger.Logger
}

// NewRevokeCertificationHandler creates a new RevokeCertificationHandler.
func NewRevokeCertificationHandler(runner *Runner, log *logger.Logger) *RevokeCertificationHandler {
	if log == nil {
		log = logger.Nop()
	}
	return &RevokeCertificationHandler{runner: runner, log: log}
}

// Handle executes the revoke command.
func (h *RevokeCertificationHandler) Handle(ctx context.Context, cmd RevokeCertificationCommand) (*certification.UserCertification, error) {
	if err := validateCommand("revoke_certification", cmd); err != nil {
		return nil, err
	}

	var revoked *certification.UserCertification
	err := h.runner.Run(ctx, "revoke_certification", cmd.LearnerID, func(ctx context.Context, tx uow.UnitOfWork, events *shared.EventCollector, now time.Time) error {
		cert, err := tx.Certifications().GetByNumber(ctx, cmd.CertificateNumber)
		if err != nil {
			return err
		}
		// Another learner's certificate is reported as missing.
		if cert.LearnerID != cmd.LearnerID {
			return shared.ErrCertificateNotFound
		}
		if err := cert.Revoke(now); err != nil {
			return err
		}
		if err := tx.Certifications().Update(ctx, cert); err != nil {
			return fmt.Errorf("revoke_certification: save: %w", err)
		}
		events.Add(shared.NewCertificateEvent(shared.EventCertificateRevoked, cmd.LearnerID, cert.CertificationID, cert.CertificateNumber, now))
		revoked = cert
		return nil
	})
	if err != nil {
		return nil, err
	}

	h.log.Info("certificate revoked",
		logger.LearnerID(cmd.LearnerID),
		logger.String("certificate_number", cmd.CertificateNumber),
	)
	return revoked, nil
}
