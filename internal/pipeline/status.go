package pipeline

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// ChangeStatus moves the candidate to status and runs the side effect tied
// to the new status. A failed rejection email is logged; the status change
// stands.
func (s *Service) ChangeStatus(ctx context.Context, id string, status models.CandidateStatus, actor *models.User) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.ChangeStatus")
	defer span.End()
	span.SetAttributes(
		telemetry.String("candidate.id", id),
		telemetry.String("candidate.status", string(status)),
	)

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown status %q", status), nil)
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, status); err != nil {
		return nil, err
	}

	now := s.clock()
	patch := database.CandidatePatch{"status": status}
	if status == models.StatusRejected {
		patch["rejected_at"] = &now
	}
	c, err := s.store.UpdateCandidate(ctx, id, patch, now)
	if err != nil {
		return nil, err
	}

	switch status {
	case models.StatusShortlisted:
		s.notifier.Notify(ctx, models.Notification{
			Title:      "Candidate shortlisted",
			SenderID:   actor.ID,
			EntityType: models.EntityActivity,
			Message:    fmt.Sprintf("%s shortlisted %s", actor.FullName(), c.FullName()),
			Metadata:   map[string]string{"candidate_id": c.ID},
		})
	case models.StatusBench:
		s.notifier.Notify(ctx, models.Notification{
			Title:      "Candidate moved to bench",
			SenderID:   actor.ID,
			EntityType: models.EntityActivity,
			Message:    fmt.Sprintf("%s hired %s for Bench", actor.FullName(), c.FullName()),
			Metadata:   map[string]string{"candidate_id": c.ID},
		})
	case models.StatusRejected:
		_, err := s.notifier.SendEmail(ctx, notify.Email{
			Template:  notify.TemplateRejection,
			To:        []string{c.Email},
			Variables: map[string]string{"name": c.FullName()},
		})
		if err != nil {
			span.RecordError(err)
			s.logger.Warn("rejection email not delivered",
				zap.String("candidate_id", c.ID),
				zap.Error(err))
		}
	}
	return c, nil
}
