// Package pipeline owns the candidate lifecycle: registration, assignment,
// status changes and onboarding, together with the notifications and
// emails each transition triggers.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

var tracer = telemetry.GetTracer("talentflow/pipeline")

// Store is the part of the entity store the lifecycle manager uses
type Store interface {
	CreateCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	FindCandidateByContact(ctx context.Context, email, mobile string) (*models.Candidate, error)
	UpdateCandidate(ctx context.Context, id string, patch database.CandidatePatch, now time.Time) (*models.Candidate, error)
	AppendRemark(ctx context.Context, candidateID string, r models.Remark) error
	ListRemarks(ctx context.Context, candidateID string) ([]models.Remark, error)
	ListCandidates(ctx context.Context, f database.CandidateFilter) ([]*models.Candidate, error)
	CountCandidatesByStatus(ctx context.Context) (map[models.CandidateStatus]int, error)
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetOrganization(ctx context.Context, id string) (*models.Organization, error)
	CreateOnboardingForm(ctx context.Context, f *models.OnboardingForm) error
	GetOnboardingForm(ctx context.Context, candidateID string) (*models.OnboardingForm, error)
	DeleteOnboardingForm(ctx context.Context, candidateID string) (bool, error)
}

// Notifier is the side-effect sink
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
	SendEmail(ctx context.Context, e notify.Email) (notify.Receipt, error)
}

// Config holds the lifecycle policy knobs
type Config struct {
	CoolingOffFresher     time.Duration
	CoolingOffExperienced time.Duration
	StrictTransitions     bool
	LinksBaseURL          string
}

// DefaultConfig matches the shipped configuration file
func DefaultConfig() Config {
	return Config{
		CoolingOffFresher:     60 * 24 * time.Hour,
		CoolingOffExperienced: 90 * 24 * time.Hour,
		StrictTransitions:     true,
		LinksBaseURL:          "http://localhost:3000",
	}
}

type Service struct {
	store    Store
	notifier Notifier
	cfg      Config
	logger   *zap.Logger
	now      func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, notifier Notifier, cfg Config, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:    store,
		notifier: notifier,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *Service) clock() time.Time {
	return s.now().UTC()
}

func requireActor(actor *models.User) error {
	if actor == nil || actor.ID == "" {
		return apperrors.Unauthorized("an acting user is required", nil)
	}
	return nil
}

// Get returns one candidate with remarks and referred jobs
func (s *Service) Get(ctx context.Context, id string) (*models.Candidate, error) {
	return s.store.GetCandidate(ctx, id)
}

// List returns candidate summaries matching f
func (s *Service) List(ctx context.Context, f database.CandidateFilter) ([]*models.Candidate, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown status %q", f.Status), nil)
	}
	return s.store.ListCandidates(ctx, f)
}

// Counts groups candidates by status
func (s *Service) Counts(ctx context.Context) (map[models.CandidateStatus]int, error) {
	return s.store.CountCandidatesByStatus(ctx)
}

// AddRemark appends an audit entry written by actor
func (s *Service) AddRemark(ctx context.Context, id, text string, actor *models.User) (*models.Candidate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, apperrors.InvalidInput("remark text is required", nil)
	}
	r := models.Remark{Title: text, AuthorID: actor.ID, AuthorName: actor.FullName(), Date: s.clock()}
	if err := s.store.AppendRemark(ctx, id, r); err != nil {
		return nil, err
	}
	return s.store.GetCandidate(ctx, id)
}

// Remarks returns the candidate's audit trail, oldest first
func (s *Service) Remarks(ctx context.Context, id string) ([]models.Remark, error) {
	if _, err := s.store.GetCandidate(ctx, id); err != nil {
		return nil, err
	}
	return s.store.ListRemarks(ctx, id)
}

// AssignToSelf makes actor the owner of the candidate. Any previous owner is
// replaced.
func (s *Service) AssignToSelf(ctx context.Context, id string, actor *models.User) (*models.Candidate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	return s.assign(ctx, id, actor.ID, actor.FullName())
}

// Reassign hands the candidate to targetUserID and notifies the new owner.
// An empty targetPocName is filled from the user record.
func (s *Service) Reassign(ctx context.Context, id, targetUserID, targetPocName string, actor *models.User) (*models.Candidate, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if strings.TrimSpace(targetUserID) == "" {
		return nil, apperrors.InvalidInput("target user is required", nil)
	}
	if strings.TrimSpace(targetPocName) == "" {
		target, err := s.store.GetUser(ctx, targetUserID)
		if err != nil {
			return nil, err
		}
		targetPocName = target.FullName()
	}

	c, err := s.assign(ctx, id, targetUserID, targetPocName)
	if err != nil {
		return nil, err
	}

	s.notifier.Notify(ctx, models.Notification{
		Title:      "Candidate assigned",
		SenderID:   actor.ID,
		ReceiverID: targetUserID,
		EntityType: models.EntityCandidateAssigned,
		Message:    fmt.Sprintf("%s assigned %s to you", actor.FullName(), c.FullName()),
		Metadata:   map[string]string{"candidate_id": c.ID},
	})
	return c, nil
}

func (s *Service) assign(ctx context.Context, id, userID, poc string) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.assign")
	defer span.End()
	span.SetAttributes(telemetry.String("candidate.id", id))

	c, err := s.store.GetCandidate(ctx, id)
	if err != nil {
		return nil, err
	}
	patch := database.CandidatePatch{
		"assigned_to": userID,
		"is_assigned": true,
		"poc":         poc,
	}
	if c.Status == models.StatusPending {
		patch["status"] = models.StatusAssigned
	}
	return s.store.UpdateCandidate(ctx, id, patch, s.clock())
}

func (s *Service) onboardingLink(c *models.Candidate) string {
	track := "fresher"
	if c.IsExperienced {
		track = "experienced"
	}
	return fmt.Sprintf("%s/onboarding/%s/%s", strings.TrimRight(s.cfg.LinksBaseURL, "/"), track, c.ID)
}

func newID() string {
	return uuid.NewString()
}
