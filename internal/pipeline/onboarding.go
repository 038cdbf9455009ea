package pipeline

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// File is an uploaded document
type File struct {
	Filename    string
	ContentType string
	Content     []byte
}

var pdfMagic = []byte("%PDF-")

func (f *File) isPDF() bool {
	if f == nil || !bytes.HasPrefix(f.Content, pdfMagic) {
		return false
	}
	return f.ContentType == "application/pdf" || strings.EqualFold(filepath.Ext(f.Filename), ".pdf")
}

func (f *File) dataURI() string {
	return "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(f.Content)
}

// UploadConsent shortlists the candidate. When consent is required the file
// must be a PDF and is stored on the candidate. Vendor uploads notify the BU.
func (s *Service) UploadConsent(ctx context.Context, id string, file *File, required bool, actor *models.User) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.UploadConsent")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", id), telemetry.Bool("consent.required", required))

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	patch := database.CandidatePatch{"status": models.StatusShortlisted}
	if required {
		if file == nil || len(file.Content) == 0 {
			return nil, apperrors.InvalidInput("consent form is required", nil)
		}
		if !file.isPDF() {
			return nil, apperrors.InvalidInput("consent form must be a PDF", nil)
		}
		patch["consent_form"] = file.dataURI()
		patch["is_consent_uploaded"] = true
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, models.StatusShortlisted); err != nil {
		return nil, err
	}
	c, err := s.store.UpdateCandidate(ctx, id, patch, s.clock())
	if err != nil {
		return nil, err
	}

	if actor.Role == models.RoleVendor {
		s.notifier.Notify(ctx, models.Notification{
			Title:      "Consent uploaded",
			SenderID:   actor.ID,
			EntityType: models.EntityBUNotification,
			Message:    fmt.Sprintf("%s uploaded the consent form for %s", actor.FullName(), c.FullName()),
			Metadata:   map[string]string{"candidate_id": c.ID},
		})
	}
	return c, nil
}

// OnboardingInit carries the joining details recorded when onboarding starts
type OnboardingInit struct {
	Position        string
	JoiningDate     time.Time
	OrganizationID  string
	JoiningFeedback string
}

// InitiateOnboarding approves the candidate and records the joining details
func (s *Service) InitiateOnboarding(ctx context.Context, id string, in OnboardingInit, actor *models.User) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.InitiateOnboarding")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", id))

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var missing []string
	if strings.TrimSpace(in.Position) == "" {
		missing = append(missing, "position")
	}
	if in.JoiningDate.IsZero() {
		missing = append(missing, "joiningDate")
	}
	if strings.TrimSpace(in.OrganizationID) == "" {
		missing = append(missing, "organizationId")
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	if _, err := s.store.GetOrganization(ctx, in.OrganizationID); err != nil {
		return nil, err
	}
	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, models.StatusApproved); err != nil {
		return nil, err
	}

	joining := in.JoiningDate.UTC()
	c, err := s.store.UpdateCandidate(ctx, id, database.CandidatePatch{
		"status":           models.StatusApproved,
		"designation":      strings.TrimSpace(in.Position),
		"joining_date":     &joining,
		"organization_id":  in.OrganizationID,
		"joining_feedback": in.JoiningFeedback,
	}, s.clock())
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.Notification{
		Title:      "Onboarding initiated",
		SenderID:   actor.ID,
		ReceiverID: c.AssignedTo,
		EntityType: models.EntityNotification,
		Message:    fmt.Sprintf("%s initiated onboarding for %s as %s", actor.FullName(), c.FullName(), c.Designation),
		Metadata:   map[string]string{"candidate_id": c.ID},
	})
	return c, nil
}

// OfferLetter is the offer sent to an approved candidate
type OfferLetter struct {
	JoiningDate time.Time
	Designation string
	File        *File
}

// SendOfferLetter moves the candidate into the onboarding pipeline and emails
// the offer with the letter attached. The onboarding link depends on whether
// the candidate is experienced.
func (s *Service) SendOfferLetter(ctx context.Context, id string, offer OfferLetter, actor *models.User) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.SendOfferLetter")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", id))

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	var missing []string
	if offer.File == nil || len(offer.File.Content) == 0 {
		missing = append(missing, "file")
	}
	if offer.JoiningDate.IsZero() {
		missing = append(missing, "joiningDate")
	}
	if strings.TrimSpace(offer.Designation) == "" {
		missing = append(missing, "designation")
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, models.StatusPipeline); err != nil {
		return nil, err
	}

	now := s.clock()
	joining := offer.JoiningDate.UTC()
	c, err := s.store.UpdateCandidate(ctx, id, database.CandidatePatch{
		"status":                   models.StatusPipeline,
		"onboarding_initiated":     true,
		"onboarding_initiate_date": &now,
		"joining_date":             &joining,
		"designation":              strings.TrimSpace(offer.Designation),
	}, now)
	if err != nil {
		return nil, err
	}

	contentType := offer.File.ContentType
	if contentType == "" {
		contentType = "application/pdf"
	}
	filename := offer.File.Filename
	if filename == "" {
		filename = "offer-letter.pdf"
	}
	_, err = s.notifier.SendEmail(ctx, notify.Email{
		Template: notify.TemplateOfferLetter,
		To:       []string{c.Email},
		Variables: map[string]string{
			"name":            c.FullName(),
			"designation":     c.Designation,
			"joining_date":    joining.Format("2006-01-02"),
			"onboarding_link": s.onboardingLink(c),
		},
		Attachments: []notify.Attachment{{Filename: filename, ContentType: contentType, Content: offer.File.Content}},
	})
	if err != nil {
		return c, err
	}
	return c, nil
}

// ReinitiateOnboarding discards the submitted onboarding form and asks the
// candidate to submit it again
func (s *Service) ReinitiateOnboarding(ctx context.Context, id, reason string, actor *models.User) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.ReinitiateOnboarding")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", id))

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return nil, apperrors.InvalidInput("a reason is required", nil)
	}

	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, models.StatusReview); err != nil {
		return nil, err
	}
	if _, err := s.store.DeleteOnboardingForm(ctx, id); err != nil {
		return nil, err
	}
	c, err := s.store.UpdateCandidate(ctx, id, database.CandidatePatch{
		"status":                 models.StatusReview,
		"onboarding_reinitiated": true,
	}, s.clock())
	if err != nil {
		return nil, err
	}

	_, err = s.notifier.SendEmail(ctx, notify.Email{
		Template: notify.TemplateOnboardingResubmit,
		To:       []string{c.Email},
		Variables: map[string]string{
			"name":            c.FullName(),
			"reason":          reason,
			"onboarding_link": s.onboardingLink(c),
		},
	})
	if err != nil {
		return c, err
	}
	return c, nil
}

// CompleteOnboarding marks the candidate hired
func (s *Service) CompleteOnboarding(ctx context.Context, id string, actor *models.User) (*models.Candidate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	current, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkTransition(current, models.StatusHired); err != nil {
		return nil, err
	}
	return s.store.UpdateCandidate(ctx, id, database.CandidatePatch{"status": models.StatusHired}, s.clock())
}

// SubmitOnboardingForm stores the candidate's onboarding form and moves the
// candidate to review. Only one form may exist per candidate.
func (s *Service) SubmitOnboardingForm(ctx context.Context, form models.OnboardingForm) (*models.OnboardingForm, error) {
	ctx, span := tracer.Start(ctx, "Service.SubmitOnboardingForm")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", form.CandidateID))

	form.Email = strings.ToLower(strings.TrimSpace(form.Email))
	form.FullName = strings.TrimSpace(form.FullName)
	var missing []string
	if form.CandidateID == "" {
		missing = append(missing, "candidateId")
	}
	if form.Email == "" {
		missing = append(missing, "email")
	}
	if form.FullName == "" {
		missing = append(missing, "fullName")
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}

	current, err := s.store.GetCandidate(ctx, form.CandidateID)
	if err != nil {
		return nil, err
	}
	if !current.OnboardingInitiated {
		return nil, apperrors.InvalidInput("onboarding has not been initiated for this candidate", nil)
	}
	if err := s.checkTransition(current, models.StatusReview); err != nil {
		return nil, err
	}

	form.ID = newID()
	form.SubmittedAt = s.clock()
	if err := s.store.CreateOnboardingForm(ctx, &form); err != nil {
		return nil, err
	}
	if _, err := s.store.UpdateCandidate(ctx, form.CandidateID, database.CandidatePatch{
		"status":                 models.StatusReview,
		"onboarding_reinitiated": false,
	}, form.SubmittedAt); err != nil {
		return nil, err
	}
	return &form, nil
}

// OnboardingForm returns the candidate's submitted form
func (s *Service) OnboardingForm(ctx context.Context, candidateID string) (*models.OnboardingForm, error) {
	return s.store.GetOnboardingForm(ctx, candidateID)
}
