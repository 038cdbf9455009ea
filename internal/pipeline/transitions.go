package pipeline

import (
	"fmt"

	"go.uber.org/zap"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

// allowedTransitions is the candidate status graph. A rejected candidate
// only returns to the pipeline by registering again.
var allowedTransitions = map[models.CandidateStatus][]models.CandidateStatus{
	models.StatusPending:     {models.StatusAssigned, models.StatusOnHold, models.StatusShortlisted, models.StatusRejected, models.StatusBench},
	models.StatusAssigned:    {models.StatusOnHold, models.StatusShortlisted, models.StatusRejected, models.StatusBench},
	models.StatusOnHold:      {models.StatusAssigned, models.StatusShortlisted, models.StatusRejected, models.StatusBench},
	models.StatusShortlisted: {models.StatusApproved, models.StatusOnHold, models.StatusRejected, models.StatusBench},
	models.StatusApproved:    {models.StatusPipeline, models.StatusRejected},
	models.StatusPipeline:    {models.StatusReview, models.StatusRejected},
	models.StatusReview:      {models.StatusHired, models.StatusRejected},
	models.StatusBench:       {models.StatusAssigned, models.StatusShortlisted, models.StatusDeployed, models.StatusRejected},
	models.StatusHired:       {models.StatusEmployee, models.StatusTrainee, models.StatusDeployed},
	models.StatusEmployee:    {models.StatusDeployed},
	models.StatusTrainee:     {models.StatusDeployed},
	models.StatusDeployed:    {models.StatusBench},
}

// CanTransition reports whether the graph has an edge from -> to. Writing the
// current status again is always allowed.
func CanTransition(from, to models.CandidateStatus) bool {
	if from == to {
		return true
	}
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// checkTransition enforces the graph in strict mode; otherwise an unexpected
// move is logged and let through.
func (s *Service) checkTransition(c *models.Candidate, to models.CandidateStatus) error {
	if CanTransition(c.Status, to) {
		return nil
	}
	if s.cfg.StrictTransitions {
		return apperrors.InvalidInput(fmt.Sprintf("cannot move candidate from %s to %s", c.Status, to), nil)
	}
	s.logger.Warn("unexpected candidate status transition",
		zap.String("candidate_id", c.ID),
		zap.String("from", string(c.Status)),
		zap.String("to", string(to)))
	return nil
}
