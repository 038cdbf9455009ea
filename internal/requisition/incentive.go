package requisition

import (
	"context"
	"strings"

	"go.uber.org/zap"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// AccrueIncentive links a job to the freelancer and recomputes the total as
// the sum of the current referral amounts of every linked job. Linking the
// same job twice leaves the set unchanged; linked reports whether the job
// was new.
func (s *Service) AccrueIncentive(ctx context.Context, jobCode string, freelancer *models.User) (inc *models.Incentive, linked bool, err error) {
	ctx, span := tracer.Start(ctx, "Service.AccrueIncentive")
	defer span.End()
	span.SetAttributes(telemetry.String("job.code", jobCode))

	if err := requireActor(freelancer); err != nil {
		return nil, false, err
	}
	if freelancer.Role != models.RoleFreelancer {
		return nil, false, apperrors.Unauthorized("incentives accrue to freelancers only", nil)
	}
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, false, err
	}

	linked, err = s.store.LinkIncentiveJob(ctx, freelancer.ID, job.ID, s.clock())
	if err != nil {
		span.RecordError(err)
		return nil, false, err
	}
	inc, err = s.store.GetIncentive(ctx, freelancer.ID)
	if err != nil {
		return nil, false, err
	}
	s.logger.Info("incentive recomputed",
		zap.String("freelancer_id", freelancer.ID),
		zap.String("job_code", job.JobCode),
		zap.Bool("linked", linked),
		zap.Float64("amount", inc.IncentiveAmount))
	return inc, linked, nil
}

// Incentive returns the freelancer's accrued total
func (s *Service) Incentive(ctx context.Context, freelancerID string) (*models.Incentive, error) {
	if strings.TrimSpace(freelancerID) == "" {
		return nil, apperrors.InvalidInput("freelancer id is required", nil)
	}
	return s.store.GetIncentive(ctx, freelancerID)
}
