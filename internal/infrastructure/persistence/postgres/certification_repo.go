package postgres

import (
	"context"
	"fmt"

	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

const (
	constraintCertificateNumber = "uq_certificate_number"
	constraintActiveCertificate = "uq_active_certificate"
)

// certificationRepo implements certification.Repository inside one transaction.
type certificationRepo struct {
	q Querier
}

const certificateColumns = `id, learner_id, certification_id, course_id, certificate_number, score,
	issued_at, revoked, revoked_at, verification_hash, version`

func (r *certificationRepo) scanOne(ctx context.Context, where string, args ...any) (*certification.UserCertification, error) {
	c := &certification.UserCertification{}
	err := r.q.QueryRow(ctx, `SELECT `+certificateColumns+` FROM user_certifications WHERE `+where, args...).
		Scan(&c.ID, &c.LearnerID, &c.CertificationID, &c.CourseID, &c.CertificateNumber, &c.Score,
			&c.IssuedAt, &c.Revoked, &c.RevokedAt, &c.VerificationHash, &c.Version)
	if IsNoRows(err) {
		return nil, shared.ErrCertificateNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get certificate: %w", err)
	}
	return c, nil
}

func (r *certificationRepo) Get(ctx context.Context, learnerID, certificationID string) (*certification.UserCertification, error) {
	return r.scanOne(ctx, `learner_id = $1 AND certification_id = $2 ORDER BY issued_at DESC LIMIT 1`,
		learnerID, certificationID)
}

func (r *certificationRepo) GetByNumber(ctx context.Context, number string) (*certification.UserCertification, error) {
	return r.scanOne(ctx, `certificate_number = $1`, number)
}

func (r *certificationRepo) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM user_certifications WHERE certificate_number = $1)`, number,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("postgres: check certificate number: %w", err)
	}
	return exists, nil
}

// Create inserts a certificate. A unique violation aborts the surrounding
// transaction, so both mapped errors end the unit of work.
func (r *certificationRepo) Create(ctx context.Context, c *certification.UserCertification) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO user_certifications (`+certificateColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, 1)`,
		c.ID, c.LearnerID, c.CertificationID, c.CourseID, c.CertificateNumber, c.Score,
		c.IssuedAt, c.Revoked, c.RevokedAt, c.VerificationHash,
	)
	switch {
	case err == nil:
		c.Version = 1
		return nil
	case IsUniqueViolation(err, constraintCertificateNumber):
		return shared.ErrCertificateNumberTaken
	case IsUniqueViolation(err, constraintActiveCertificate):
		return shared.ErrCertificateAlreadyIssued
	default:
		return fmt.Errorf("postgres: insert certificate: %w", err)
	}
}

func (r *certificationRepo) Update(ctx context.Context, c *certification.UserCertification) error {
	if c.Version == 0 {
		return shared.ErrCertificateNotFound
	}
	return saveVersioned(ctx, r.q, &c.Version, "", `
		UPDATE user_certifications SET
			revoked = $2, revoked_at = $3, version = version + 1
		WHERE id = $1 AND version = $4`,
		c.ID, c.Revoked, c.RevokedAt,
	)
}
