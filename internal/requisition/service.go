// Package requisition runs the job side of the workflow: job postings,
// candidate referrals and BU approval, freelancer incentives and the sweep
// that retires expired jobs.
package requisition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/pipeline"
	"github.com/khrees2412/talentflow/internal/sequence"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

var tracer = telemetry.GetTracer("talentflow/requisition")

// Store is the part of the entity store the workflow uses
type Store interface {
	CreateOrganization(ctx context.Context, o *models.Organization) error
	GetOrganizationByName(ctx context.Context, name string) (*models.Organization, error)
	ListOrganizations(ctx context.Context) ([]*models.Organization, error)

	CreateJob(ctx context.Context, j *models.Job) error
	GetJobByCode(ctx context.Context, code string) (*models.Job, error)
	ListJobs(ctx context.Context, status models.JobStatus) ([]*models.Job, error)
	UpdateJob(ctx context.Context, id string, patch database.JobPatch, now time.Time) (*models.Job, error)
	DeactivateExpiredJobs(ctx context.Context, now time.Time) (int64, error)

	AddReferral(ctx context.Context, r models.Referral) (bool, error)
	ApproveReferrals(ctx context.Context, jobID string, candidateIDs []string, approvedBy string, at time.Time) (int64, error)
	ListReferrals(ctx context.Context, jobID string) ([]models.Referral, error)
	ListReferredCandidates(ctx context.Context, jobID string, q database.ReferralQuery) ([]database.ReferredCandidate, int, error)

	GetCandidate(ctx context.Context, id string) (*models.Candidate, error)
	FindCandidateByContact(ctx context.Context, email, mobile string) (*models.Candidate, error)
	AddCandidateJob(ctx context.Context, candidateID, jobID string, now time.Time) (bool, error)
	GetUser(ctx context.Context, id string) (*models.User, error)

	GetIncentive(ctx context.Context, freelancerID string) (*models.Incentive, error)
	LinkIncentiveJob(ctx context.Context, freelancerID, jobID string, now time.Time) (bool, error)
}

// Notifier records in-app notifications
type Notifier interface {
	Notify(ctx context.Context, n models.Notification)
}

// Registrar creates candidates referred by vendors
type Registrar interface {
	Register(ctx context.Context, kind pipeline.Kind, reg pipeline.Registration) (*models.Candidate, error)
}

type Service struct {
	store     Store
	seq       sequence.Sequencer
	notifier  Notifier
	registrar Registrar
	logger    *zap.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(store Store, seq sequence.Sequencer, notifier Notifier, registrar Registrar, logger *zap.Logger, opts ...Option) *Service {
	s := &Service{
		store:     store,
		seq:       seq,
		notifier:  notifier,
		registrar: registrar,
		logger:    logger,
		now:       time.Now,
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

// RegisterOrganization adds a client company; names are unique
func (s *Service) RegisterOrganization(ctx context.Context, name string) (*models.Organization, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.InvalidInput("organization name is required", nil)
	}
	org := &models.Organization{ID: uuid.NewString(), Name: name, CreatedAt: s.clock()}
	if err := s.store.CreateOrganization(ctx, org); err != nil {
		return nil, err
	}
	return org, nil
}

func (s *Service) Organizations(ctx context.Context) ([]*models.Organization, error) {
	return s.store.ListOrganizations(ctx)
}

// GetJob looks a job up by its code
func (s *Service) GetJob(ctx context.Context, jobCode string) (*models.Job, error) {
	if strings.TrimSpace(jobCode) == "" {
		return nil, apperrors.InvalidInput("job id is required", nil)
	}
	return s.store.GetJobByCode(ctx, jobCode)
}

// ListJobs returns jobs newest first; an empty status lists all of them
func (s *Service) ListJobs(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	if status != "" && !status.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown job status %q", status), nil)
	}
	return s.store.ListJobs(ctx, status)
}

// Referrals returns the raw referral entries of a job in insertion order
func (s *Service) Referrals(ctx context.Context, jobCode string) ([]models.Referral, error) {
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, err
	}
	return s.store.ListReferrals(ctx, job.ID)
}
