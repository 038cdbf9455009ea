// Package interview schedules interview rounds and drives their feedback
// status. Every round keeps a snapshot of the candidate, interviewer and
// organization taken when it was scheduled.
package interview

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

var tracer = telemetry.GetTracer("talentflow/interview")

type Store interface {
	CreateEvent(ctx context.Context, e *models.Event) error
	GetEvent(ctx context.Context, id string) (*models.Event, error)
	UpdateEvent(ctx context.Context, id string, patch database.EventPatch, now time.Time) (*models.Event, error)
	ListEventsForCandidate(ctx context.Context, candidateID string) ([]*models.Event, error)
	DeleteEvent(ctx context.Context, id string) error

	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch database.CandidatePatch, now time.Time) (*models.Candidate, error)
}

// Mailer sends templated email
type Mailer interface {
	SendEmail(ctx context.Context, e notify.Email) (notify.Receipt, error)
}

type Service struct {
	store        Store
	mailer       Mailer
	linksBaseURL string
	logger       *zap.Logger
	now          func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, mailer Mailer, linksBaseURL string, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:        store,
		mailer:       mailer,
		linksBaseURL: strings.TrimRight(linksBaseURL, "/"),
		logger:       logger,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

// withoutLink reports whether rounds with this name are held without a
// meeting link
func withoutLink(eventName string) bool {
	switch strings.ToLower(strings.TrimSpace(eventName)) {
	case "screening", "orientation":
		return true
	}
	return false
}

func (s *Service) feedbackLink(e *models.Event) string {
	kind := "technical"
	if withoutLink(e.EventName) {
		kind = "screening"
	}
	return fmt.Sprintf("%s/feedback/%s/%s", s.linksBaseURL, kind, e.ID)
}

func formatDate(t time.Time) string {
	return t.UTC().Format("Mon, 02 Jan 2006 15:04 MST")
}

func (s *Service) vars(e *models.Event) map[string]string {
	return map[string]string{
		"name":             e.Candidate.Name,
		"round":            e.EventName,
		"date":             formatDate(e.InterviewDate),
		"meeting_link":     e.MeetingLink,
		"organization":     e.Organization.Name,
		"interviewer_name": e.Interviewer.Name,
		"candidate_name":   e.Candidate.Name,
		"candidate_email":  e.Candidate.Email,
		"candidate_mobile": e.Candidate.Mobile,
		"resume":           e.Candidate.Resume,
		"feedback_link":    s.feedbackLink(e),
	}
}

// sendAll sends every email concurrently and waits for all of them. Each
// failure is kept; the result joins them.
func (s *Service) sendAll(ctx context.Context, emails ...notify.Email) error {
	errs := make([]error, len(emails))
	var g errgroup.Group
	for i, e := range emails {
		g.Go(func() error {
			if _, err := s.mailer.SendEmail(ctx, e); err != nil {
				errs[i] = fmt.Errorf("%s to %s: %w", e.Template, strings.Join(e.To, ","), err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return errors.Join(errs...)
}

// Get returns one round
func (s *Service) Get(ctx context.Context, id string) (*models.Event, error) {
	return s.store.GetEvent(ctx, id)
}

// ListForCandidate returns the candidate's rounds, newest first
func (s *Service) ListForCandidate(ctx context.Context, candidateID string) ([]*models.Event, error) {
	if strings.TrimSpace(candidateID) == "" {
		return nil, apperrors.InvalidInput("candidate id is required", nil)
	}
	return s.store.ListEventsForCandidate(ctx, candidateID)
}

// Delete removes a round
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.store.DeleteEvent(ctx, id); err != nil {
		return err
	}
	s.logger.Info("event deleted", zap.String("event_id", id))
	return nil
}

func newID() string {
	return uuid.NewString()
}
