package engine

import (
	"context"
	"fmt"

	"github.com/alem-hub/lingo-progress/internal/application/uow"
	"github.com/alem-hub/lingo-progress/internal/domain/catalog"
	"github.com/alem-hub/lingo-progress/internal/domain/certification"
	"github.com/alem-hub/lingo-progress/internal/domain/shared"
)

// CertificationCheck is an eligibility decision together with the catalog
// entry and the learner's current certificate, if any.
type CertificationCheck struct {
	Certification *certification.Certification
	Eligibility   certification.Eligibility

	// Current is the latest certificate for this certification, nil if
	// none was ever issued.
	Current *certification.UserCertification
}

// CheckEligibility reads the course metrics inside tx and evaluates the
// certification's criteria. A course without a progress row counts as
// zero metrics.
func CheckEligibility(ctx context.Context, tx uow.UnitOfWork, cat catalog.Catalog, learnerID, certificationID string) (*CertificationCheck, error) {
	cert, err := cat.GetCertification(ctx, certificationID)
	if err != nil {
		return nil, err
	}

	var metrics certification.Metrics
	cp, err := tx.Progress().GetCourse(ctx, learnerID, cert.CourseID)
	switch {
	case err == nil:
		metrics = certification.Metrics{
			AverageScore:     cp.AverageScore,
			CompletedLessons: cp.CompletedLessons,
			TotalXP:          cp.XPEarned,
		}
	case shared.IsNotFound(err):
	default:
		return nil, fmt.Errorf("certification: load course progress: %w", err)
	}

	check := &CertificationCheck{
		Certification: cert,
		Eligibility:   certification.Evaluate(*cert, metrics),
	}

	current, err := tx.Certifications().Get(ctx, learnerID, certificationID)
	switch {
	case err == nil:
		check.Current = current
		check.Eligibility.AlreadyIssued = !current.Revoked
	case shared.IsNotFound(err):
	default:
		return nil, fmt.Errorf("certification: load certificate: %w", err)
	}

	return check, nil
}
