package requisition

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/pipeline"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// ReferralReport splits the requested candidates into newly added and
// already referred
type ReferralReport struct {
	Added   []string `json:"added"`
	Skipped []string `json:"skipped"`
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// ReferCandidates attaches candidates to a job. Candidates already on the job
// are skipped without touching their entry. With approved set the referral
// comes from the BU: entries start approved and the job creator is notified.
func (s *Service) ReferCandidates(ctx context.Context, jobCode string, candidateIDs []string, hrID string, actor *models.User, approved bool) (*ReferralReport, error) {
	ctx, span := tracer.Start(ctx, "Service.ReferCandidates")
	defer span.End()
	span.SetAttributes(telemetry.String("job.code", jobCode), telemetry.Bool("referral.approved", approved))

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if approved && actor.Role != models.RoleBU && actor.Role != models.RoleAdmin {
		return nil, apperrors.Unauthorized("only BU users can refer pre-approved candidates", nil)
	}
	ids := dedupe(candidateIDs)
	if len(ids) == 0 {
		return nil, apperrors.InvalidInput("at least one candidate is required", nil)
	}
	if hrID = strings.TrimSpace(hrID); hrID == "" {
		hrID = actor.ID
	}

	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, err
	}
	for _, id := range ids {
		if _, err := s.store.GetCandidate(ctx, id); err != nil {
			return nil, err
		}
	}

	now := s.clock()
	report := &ReferralReport{Added: []string{}, Skipped: []string{}}
	for _, id := range ids {
		r := models.Referral{JobID: job.ID, CandidateID: id, AddedBy: hrID, AddedAt: now, ApprovedByBU: approved}
		if approved {
			r.BUApprovalDate = &now
			r.BUApprovedBy = actor.ID
		}
		added, err := s.store.AddReferral(ctx, r)
		if err != nil {
			return nil, err
		}
		if added {
			report.Added = append(report.Added, id)
		} else {
			report.Skipped = append(report.Skipped, id)
		}
		if _, err := s.store.AddCandidateJob(ctx, id, job.ID, now); err != nil {
			return nil, err
		}
	}
	span.SetAttributes(telemetry.Int("referral.added", len(report.Added)), telemetry.Int("referral.skipped", len(report.Skipped)))
	s.logger.Info("candidates referred",
		zap.String("job_code", job.JobCode),
		zap.Int("added", len(report.Added)),
		zap.Int("skipped", len(report.Skipped)))

	if approved {
		s.notifyCreator(ctx, job, actor, "Candidates referred",
			fmt.Sprintf("%s referred %d candidate(s) to %s", actor.FullName(), len(report.Added), job.JobCode))
	}
	return report, nil
}

// ApproveCandidates marks the listed candidates as BU approved in one bulk
// update. Candidates that are not on the job are ignored. The job creator
// gets a single notification.
func (s *Service) ApproveCandidates(ctx context.Context, jobCode string, candidateIDs []string, actor *models.User) (int64, error) {
	ctx, span := tracer.Start(ctx, "Service.ApproveCandidates")
	defer span.End()
	span.SetAttributes(telemetry.String("job.code", jobCode))

	if err := requireActor(actor); err != nil {
		return 0, err
	}
	ids := dedupe(candidateIDs)
	if len(ids) == 0 {
		return 0, apperrors.InvalidInput("at least one candidate is required", nil)
	}
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return 0, err
	}

	n, err := s.store.ApproveReferrals(ctx, job.ID, ids, actor.ID, s.clock())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(telemetry.Int("referral.approved", int(n)))
	s.notifyCreator(ctx, job, actor, "Candidates approved",
		fmt.Sprintf("%s approved %d candidate(s) for %s", actor.FullName(), n, job.JobCode))
	return n, nil
}

func (s *Service) notifyCreator(ctx context.Context, job *models.Job, actor *models.User, title, message string) {
	s.notifier.Notify(ctx, models.Notification{
		Title:      title,
		SenderID:   actor.ID,
		ReceiverID: job.CreatedBy,
		EntityType: models.EntityNotification,
		Message:    message,
		Metadata:   map[string]string{"job_id": job.JobCode},
	})
}

// CandidateView is the flattened candidate-centric row of the referral views
type CandidateView struct {
	CandidateID    string                 `json:"candidate_id"`
	FirstName      string                 `json:"first_name"`
	LastName       string                 `json:"last_name"`
	Email          string                 `json:"email"`
	Mobile         string                 `json:"mobile"`
	Resume         string                 `json:"resume"`
	Skills         []string               `json:"skills"`
	CandidateType  models.CandidateType   `json:"candidate_type"`
	Status         models.CandidateStatus `json:"status"`
	AddedAt        time.Time              `json:"added_at"`
	ApprovedByBU   bool                   `json:"approved_by_bu"`
	BUApprovalDate *time.Time             `json:"bu_approval_date,omitempty"`
	MatchScore     float64                `json:"match_score"`
}

func toViews(job *models.Job, rows []database.ReferredCandidate) []CandidateView {
	views := make([]CandidateView, 0, len(rows))
	for _, rc := range rows {
		c := rc.Candidate
		views = append(views, CandidateView{
			CandidateID:    c.ID,
			FirstName:      c.FirstName,
			LastName:       c.LastName,
			Email:          c.Email,
			Mobile:         c.Mobile,
			Resume:         c.Resume,
			Skills:         c.Skills,
			CandidateType:  c.CandidateType,
			Status:         c.Status,
			AddedAt:        rc.Referral.AddedAt,
			ApprovedByBU:   rc.Referral.ApprovedByBU,
			BUApprovalDate: rc.Referral.BUApprovalDate,
			MatchScore:     MatchScore(job, c),
		})
	}
	return views
}

// ListShortlisted returns the job's referred candidates whose status is
// shortlisted, optionally only those the BU approved
func (s *Service) ListShortlisted(ctx context.Context, jobCode string, onlyBUApproved bool) ([]CandidateView, error) {
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, err
	}
	q := database.ReferralQuery{Status: models.StatusShortlisted}
	if onlyBUApproved {
		approved := true
		q.ApprovedByBU = &approved
	}
	rows, _, err := s.store.ListReferredCandidates(ctx, job.ID, q)
	if err != nil {
		return nil, err
	}
	return toViews(job, rows), nil
}

const defaultPageSize = 20

// ListReferredPending pages through referrals the BU has not approved yet.
// The total counts every match of the same filter.
func (s *Service) ListReferredPending(ctx context.Context, jobCode string, q database.ReferralQuery) ([]CandidateView, int, error) {
	if q.CandidateType != "" && !q.CandidateType.Valid() {
		return nil, 0, apperrors.InvalidInput(fmt.Sprintf("unknown candidate type %q", q.CandidateType), nil)
	}
	if q.Offset < 0 || q.Limit < 0 {
		return nil, 0, apperrors.InvalidInput("page and limit must be positive", nil)
	}
	if q.Limit == 0 {
		q.Limit = defaultPageSize
	}
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, 0, err
	}
	pending := false
	q.ApprovedByBU = &pending

	rows, total, err := s.store.ListReferredCandidates(ctx, job.ID, q)
	if err != nil {
		return nil, 0, err
	}
	return toViews(job, rows), total, nil
}

// VendorCandidate is a candidate submitted by a vendor against a job
type VendorCandidate struct {
	FirstName       string
	LastName        string
	Email           string
	Mobile          string
	Resume          string
	Skills          []string
	TotalExperience float64
	CurrentCompany  string
	Location        string
	VendorName      string
}

// ReferFromVendor refers a vendor's candidate to a job. A known candidate is
// attached unless already referred to this job; an unknown one is registered
// as a vendor candidate first.
func (s *Service) ReferFromVendor(ctx context.Context, jobCode, vendorID string, vc VendorCandidate) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.ReferFromVendor")
	defer span.End()
	span.SetAttributes(telemetry.String("job.code", jobCode), telemetry.String("vendor.id", vendorID))

	vendor, err := s.store.GetUser(ctx, vendorID)
	if err != nil {
		return nil, err
	}
	if vendor.Role != models.RoleVendor {
		return nil, apperrors.Unauthorized("only vendor users can refer vendor candidates", nil)
	}
	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, err
	}

	email := strings.ToLower(strings.TrimSpace(vc.Email))
	mobile := strings.TrimSpace(vc.Mobile)
	if email == "" || mobile == "" {
		return nil, apperrors.InvalidInput("missing required fields: email, mobile", nil)
	}

	c, err := s.store.FindCandidateByContact(ctx, email, mobile)
	switch {
	case err == nil:
		if c.HasReferral(job.ID) {
			return nil, apperrors.Conflict(fmt.Sprintf("candidate is already referred to %s", job.JobCode), nil)
		}
	case apperrors.Is(err, apperrors.ErrTypeNotFound):
		c, err = s.registrar.Register(ctx, pipeline.KindVendor, pipeline.Registration{
			FirstName:       vc.FirstName,
			LastName:        vc.LastName,
			Email:           email,
			Mobile:          mobile,
			Resume:          vc.Resume,
			Skills:          vc.Skills,
			TotalExperience: vc.TotalExperience,
			CurrentCompany:  vc.CurrentCompany,
			Location:        vc.Location,
			Vendor:          vendor,
			VendorName:      vc.VendorName,
		})
		if err != nil {
			if c == nil || !apperrors.IsDelivery(err) {
				return nil, err
			}
			s.logger.Warn("vendor registration email not delivered",
				zap.String("candidate_id", c.ID), zap.Error(err))
		}
	default:
		return nil, err
	}

	now := s.clock()
	if _, err := s.store.AddReferral(ctx, models.Referral{
		JobID: job.ID, CandidateID: c.ID, AddedBy: vendor.ID, AddedAt: now,
	}); err != nil {
		return nil, err
	}
	if _, err := s.store.AddCandidateJob(ctx, c.ID, job.ID, now); err != nil {
		return nil, err
	}
	return s.store.GetCandidate(ctx, c.ID)
}
