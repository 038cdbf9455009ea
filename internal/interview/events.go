package interview

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// EventInput schedules a round. When Candidate.CandidateID is set, missing
// snapshot fields are filled from the candidate record.
type EventInput struct {
	Candidate     models.CandidateSnapshot
	Interviewer   models.Interviewer
	Organization  models.OrgSnapshot
	EventName     string
	InterviewDate time.Time
	MeetingLink   string
}

func fill(dst *string, v string) {
	if strings.TrimSpace(*dst) == "" {
		*dst = v
	}
}

func (s *Service) snapshot(ctx context.Context, in *EventInput) error {
	if in.Candidate.CandidateID == "" {
		return nil
	}
	c, err := s.store.GetCandidate(ctx, in.Candidate.CandidateID)
	if err != nil {
		return err
	}
	fill(&in.Candidate.Name, c.FullName())
	fill(&in.Candidate.Email, c.Email)
	fill(&in.Candidate.Mobile, c.Mobile)
	fill(&in.Candidate.Resume, c.Resume)
	if in.Candidate.CandidateType == "" {
		in.Candidate.CandidateType = c.CandidateType
	}
	return nil
}

func validate(in EventInput, actor *models.User) error {
	var missing []string
	need := func(v, field string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, field)
		}
	}
	need(in.Candidate.Name, "candidate.name")
	need(in.Candidate.Email, "candidate.email")
	need(in.Candidate.Mobile, "candidate.mobile")
	need(in.Candidate.Resume, "candidate.resume")
	need(in.Interviewer.InterviewerID, "interviewer.id")
	need(in.Interviewer.Name, "interviewer.name")
	need(in.Interviewer.Email, "interviewer.email")
	need(in.EventName, "eventName")
	need(in.Organization.CompanyID, "organization.id")
	need(in.Organization.Name, "organization.name")
	if actor == nil || actor.ID == "" {
		missing = append(missing, "scheduledBy")
	}
	if in.InterviewDate.IsZero() {
		missing = append(missing, "interviewDate")
	}
	if len(missing) > 0 {
		return apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}
	return nil
}

// Create schedules a round and emails the candidate and the interviewer in
// parallel. Rounds without a meeting link give the interviewer the
// candidate's contact details instead. A failed email is returned as a
// Delivery error next to the stored event.
func (s *Service) Create(ctx context.Context, in EventInput, actor *models.User) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Service.Create")
	defer span.End()

	if err := s.snapshot(ctx, &in); err != nil {
		return nil, err
	}
	if err := validate(in, actor); err != nil {
		return nil, err
	}
	link := strings.TrimSpace(in.MeetingLink)
	if withoutLink(in.EventName) {
		link = ""
	}

	now := s.clock()
	e := &models.Event{
		ID:            newID(),
		Candidate:     in.Candidate,
		Interviewer:   in.Interviewer,
		Organization:  in.Organization,
		ScheduledBy:   actor.ID,
		EventName:     strings.TrimSpace(in.EventName),
		InterviewDate: in.InterviewDate.UTC(),
		MeetingLink:   link,
		Status:        models.EventPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	e.Candidate.Email = strings.ToLower(strings.TrimSpace(e.Candidate.Email))
	if err := s.store.CreateEvent(ctx, e); err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.String("event.id", e.ID), telemetry.Bool("event.has_link", link != ""))
	s.logger.Info("event scheduled",
		zap.String("event_id", e.ID),
		zap.String("candidate_id", e.Candidate.CandidateID),
		zap.String("round", e.EventName))

	vars := s.vars(e)
	toCandidate := notify.Email{Template: notify.TemplateInterviewCandidate, To: []string{e.Candidate.Email}, Variables: vars}
	toInterviewer := notify.Email{Template: notify.TemplateInterviewInterviewer, To: []string{e.Interviewer.Email}, Variables: vars}
	if link == "" {
		toCandidate.Template = notify.TemplateInterviewCandidateNL
		toInterviewer.Template = notify.TemplateInterviewScreening
	}
	if err := s.sendAll(ctx, toCandidate, toInterviewer); err != nil {
		span.RecordError(err)
		return e, apperrors.Delivery("interview emails not delivered", err)
	}
	return e, nil
}

// EventUpdate reschedules a round; nil fields are left alone
type EventUpdate struct {
	Interviewer   *models.Interviewer
	EventName     *string
	InterviewDate *time.Time
	MeetingLink   *string
}

// Update reschedules a round. Rounds held without a meeting link never
// store one. The interviewer is always told about the change; the
// candidate only when the update carries a meeting link.
func (s *Service) Update(ctx context.Context, id string, u EventUpdate) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Service.Update")
	defer span.End()
	span.SetAttributes(telemetry.String("event.id", id))

	current, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}

	patch := database.EventPatch{}
	name := current.EventName
	if u.EventName != nil {
		name = strings.TrimSpace(*u.EventName)
		if name == "" {
			return nil, apperrors.InvalidInput("eventName cannot be empty", nil)
		}
		patch["event_name"] = name
	}
	if u.Interviewer != nil {
		if u.Interviewer.InterviewerID == "" || u.Interviewer.Email == "" {
			return nil, apperrors.InvalidInput("interviewer id and email are required", nil)
		}
		patch["interviewer_id"] = u.Interviewer.InterviewerID
		patch["interviewer_name"] = u.Interviewer.Name
		patch["interviewer_email"] = u.Interviewer.Email
	}
	if u.InterviewDate != nil {
		if u.InterviewDate.IsZero() {
			return nil, apperrors.InvalidInput("interviewDate cannot be empty", nil)
		}
		patch["interview_date"] = u.InterviewDate.UTC()
	}

	newLink := ""
	switch {
	case withoutLink(name):
		if current.MeetingLink != "" {
			patch["meeting_link"] = ""
		}
	case u.MeetingLink != nil:
		newLink = strings.TrimSpace(*u.MeetingLink)
		patch["meeting_link"] = newLink
	}

	if len(patch) == 0 {
		return current, nil
	}
	e, err := s.store.UpdateEvent(ctx, id, patch, s.clock())
	if err != nil {
		return nil, err
	}

	vars := s.vars(e)
	emails := []notify.Email{{Template: notify.TemplateRescheduleInterviewer, To: []string{e.Interviewer.Email}, Variables: vars}}
	if newLink != "" {
		emails = append(emails, notify.Email{Template: notify.TemplateRescheduleCandidate, To: []string{e.Candidate.Email}, Variables: vars})
	}
	if err := s.sendAll(ctx, emails...); err != nil {
		span.RecordError(err)
		return e, apperrors.Delivery("reschedule emails not delivered", err)
	}
	return e, nil
}

var nextStatuses = map[models.EventStatus][]models.EventStatus{
	models.EventPending:   {models.EventSubmitted, models.EventApproved, models.EventRejected},
	models.EventSubmitted: {models.EventApproved, models.EventRejected},
}

// CanMove reports whether a round in status from may move to to
func CanMove(from, to models.EventStatus) bool {
	for _, next := range nextStatuses[from] {
		if next == to {
			return true
		}
	}
	return false
}

// SetStatus records the feedback outcome of a round. A rejected round
// rejects the candidate and tells them; an approved round only sends the
// candidate a note. Setting the current status again changes nothing.
func (s *Service) SetStatus(ctx context.Context, id string, status models.EventStatus, actor *models.User) (*models.Event, error) {
	ctx, span := tracer.Start(ctx, "Service.SetStatus")
	defer span.End()
	span.SetAttributes(telemetry.String("event.id", id), telemetry.String("event.status", string(status)))

	if !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown event status %q", status), nil)
	}
	current, err := s.store.GetEvent(ctx, id)
	if err != nil {
		return nil, err
	}
	if current.Status == status {
		return current, nil
	}
	if !CanMove(current.Status, status) {
		return nil, apperrors.InvalidInput(fmt.Sprintf("cannot move event from %s to %s", current.Status, status), nil)
	}

	now := s.clock()
	e, err := s.store.UpdateEvent(ctx, id, database.EventPatch{"status": status}, now)
	if err != nil {
		return nil, err
	}

	var template notify.TemplateKey
	switch status {
	case models.EventRejected:
		template = notify.TemplateRoundRejected
		if err := s.rejectCandidate(ctx, e, now); err != nil {
			return e, err
		}
	case models.EventApproved:
		template = notify.TemplateRoundApproved
	default:
		return e, nil
	}

	if _, err := s.mailer.SendEmail(ctx, notify.Email{Template: template, To: []string{e.Candidate.Email}, Variables: s.vars(e)}); err != nil {
		span.RecordError(err)
		s.logger.Warn("round outcome email not delivered",
			zap.String("event_id", e.ID),
			zap.String("template", string(template)),
			zap.Error(err))
		return e, err
	}
	return e, nil
}

func (s *Service) rejectCandidate(ctx context.Context, e *models.Event, now time.Time) error {
	if e.Candidate.CandidateID == "" {
		return nil
	}
	_, err := s.store.UpdateCandidate(ctx, e.Candidate.CandidateID, database.CandidatePatch{
		"status":      models.StatusRejected,
		"rejected_at": &now,
	}, now)
	if apperrors.Is(err, apperrors.ErrTypeNotFound) {
		s.logger.Warn("rejected round references a missing candidate",
			zap.String("event_id", e.ID),
			zap.String("candidate_id", e.Candidate.CandidateID))
		return nil
	}
	return err
}
