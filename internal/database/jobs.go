package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

const jobColumns = `id, job_code, title, organization_id, organization_name, location, description,
	domains, skills, experience_min, experience_max, no_of_positions, budget_min, budget_max,
	modified_budget_min, modified_budget_max, referral_amount, status, visibility, created_by,
	end_date, created_at, updated_at`

// JobPatch is a partial job update keyed by column name
type JobPatch map[string]any

var jobPatchColumns = map[string]bool{
	"title": true, "location": true, "description": true, "domains": true, "skills": true,
	"experience_min": true, "experience_max": true, "no_of_positions": true,
	"budget_min": true, "budget_max": true, "modified_budget_min": true, "modified_budget_max": true,
	"referral_amount": true, "status": true, "visibility": true, "end_date": true,
}

func scanJob(row rowScanner) (*models.Job, error) {
	j := &models.Job{}
	var domains, skills stringList
	var modMin, modMax sql.NullFloat64
	var status, visibility string
	var endDate sql.NullTime
	err := row.Scan(&j.ID, &j.JobCode, &j.Title, &j.OrganizationID, &j.OrganizationName,
		&j.Location, &j.Description, &domains, &skills, &j.ExperienceMin, &j.ExperienceMax,
		&j.NoOfPositions, &j.BudgetMin, &j.BudgetMax, &modMin, &modMax, &j.ReferralAmount,
		&status, &visibility, &j.CreatedBy, &endDate, &j.CreatedAt, &j.UpdatedAt)
	if err != nil {
		return nil, err
	}
	j.Domains = domains
	j.Skills = skills
	j.Status = models.JobStatus(status)
	j.Visibility = models.Visibility(visibility)
	j.EndDate = timePtr(endDate)
	if modMin.Valid && modMax.Valid {
		j.ModifiedBudget = &models.Budget{Min: modMin.Float64, Max: modMax.Float64}
	}
	return j, nil
}

// CreateJob inserts a job; a duplicate job code is a Conflict
func (s *Store) CreateJob(ctx context.Context, j *models.Job) error {
	query := `INSERT INTO jobs (id, job_code, title, organization_id, organization_name, location,
			  description, domains, skills, experience_min, experience_max, no_of_positions,
			  budget_min, budget_max, referral_amount, status, visibility, created_by, end_date,
			  created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, j.ID, j.JobCode, j.Title, j.OrganizationID,
		j.OrganizationName, j.Location, j.Description, stringList(j.Domains), stringList(j.Skills),
		j.ExperienceMin, j.ExperienceMax, j.NoOfPositions, j.BudgetMin, j.BudgetMax,
		j.ReferralAmount, string(j.Status), string(j.Visibility), j.CreatedBy, nullTime(j.EndDate),
		j.CreatedAt.UTC(), j.UpdatedAt.UTC())
	return translate(err, "job")
}

// GetJob looks a job up by internal id
func (s *Store) GetJob(ctx context.Context, id string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id=?`, id))
	if err != nil {
		return nil, translate(err, "job")
	}
	return j, nil
}

// GetJobByCode looks a job up by its JOB-<year>-NNNN code
func (s *Store) GetJobByCode(ctx context.Context, code string) (*models.Job, error) {
	j, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE job_code=?`,
		strings.ToUpper(strings.TrimSpace(code))))
	if err != nil {
		return nil, translate(err, "job")
	}
	return j, nil
}

// ListJobs returns jobs newest first, optionally filtered by status
func (s *Store) ListJobs(ctx context.Context, status models.JobStatus) ([]*models.Job, error) {
	query := `SELECT ` + jobColumns + ` FROM jobs`
	args := []any{}
	if status != "" {
		query += ` WHERE status=?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, job_code DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Internal("list jobs", err)
	}
	defer rows.Close()

	jobs := []*models.Job{}
	for rows.Next() {
		j, err := scanJob(rows)
		if err != nil {
			return nil, apperrors.Internal("scan job", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// UpdateJob writes only the columns present in patch
func (s *Store) UpdateJob(ctx context.Context, id string, patch JobPatch, now time.Time) (*models.Job, error) {
	if len(patch) == 0 {
		return s.GetJob(ctx, id)
	}

	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+2)
	for col, val := range patch {
		if !jobPatchColumns[col] {
			return nil, apperrors.Internal(fmt.Sprintf("job column %q is not patchable", col), nil)
		}
		sets = append(sets, col+"=?")
		switch v := val.(type) {
		case models.JobStatus:
			args = append(args, string(v))
		case models.Visibility:
			args = append(args, string(v))
		default:
			args = append(args, normalizeArg(val))
		}
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now.UTC(), id)

	result, err := s.db.ExecContext(ctx, `UPDATE jobs SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return nil, translate(err, "job")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperrors.NotFound("job not found", nil)
	}
	return s.GetJob(ctx, id)
}

// DeactivateExpiredJobs flips Active jobs whose end date has passed to Inactive
func (s *Store) DeactivateExpiredJobs(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx,
		`UPDATE jobs SET status='Inactive', updated_at=?
		 WHERE status='Active' AND end_date IS NOT NULL AND end_date < ?`, now.UTC(), now.UTC())
	if err != nil {
		return 0, apperrors.Internal("deactivate expired jobs", err)
	}
	return result.RowsAffected()
}

// Referral operations

// AddReferral attaches a candidate to a job. An existing (job, candidate) pair
// is left untouched and added is false.
func (s *Store) AddReferral(ctx context.Context, r models.Referral) (bool, error) {
	query := `INSERT INTO referrals (job_id, candidate_id, added_by, added_at, approved_by_bu,
			  bu_approval_date, bu_approved_by)
			  VALUES (?, ?, ?, ?, ?, ?, ?)
			  ON CONFLICT(job_id, candidate_id) DO NOTHING`
	result, err := s.db.ExecContext(ctx, query, r.JobID, r.CandidateID, r.AddedBy, r.AddedAt.UTC(),
		r.ApprovedByBU, nullTime(r.BUApprovalDate), r.BUApprovedBy)
	if err != nil {
		return false, translate(err, "referral")
	}
	n, _ := result.RowsAffected()
	return n > 0, nil
}

// ApproveReferrals marks every listed candidate that is a member of the job as
// BU approved, in one statement. Non-members are ignored.
func (s *Store) ApproveReferrals(ctx context.Context, jobID string, candidateIDs []string, approvedBy string, at time.Time) (int64, error) {
	if len(candidateIDs) == 0 {
		return 0, nil
	}
	args := []any{at.UTC(), approvedBy, jobID}
	for _, id := range candidateIDs {
		args = append(args, id)
	}
	query := `UPDATE referrals SET approved_by_bu=1, bu_approval_date=?, bu_approved_by=?
			  WHERE job_id=? AND candidate_id IN (` + placeholders(len(candidateIDs)) + `)`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, apperrors.Internal("approve referrals", err)
	}
	return result.RowsAffected()
}

const referralColumns = `r.job_id, r.candidate_id, r.added_by, r.added_at, r.approved_by_bu,
	r.bu_approval_date, r.bu_approved_by`

func scanReferral(dest *models.Referral, approvedAt *sql.NullTime) []any {
	return []any{&dest.JobID, &dest.CandidateID, &dest.AddedBy, &dest.AddedAt,
		&dest.ApprovedByBU, approvedAt, &dest.BUApprovedBy}
}

// ListReferrals returns the job's referral entries in insertion order
func (s *Store) ListReferrals(ctx context.Context, jobID string) ([]models.Referral, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+referralColumns+` FROM referrals r WHERE r.job_id=? ORDER BY r.added_at, r.candidate_id`, jobID)
	if err != nil {
		return nil, apperrors.Internal("list referrals", err)
	}
	defer rows.Close()

	referrals := []models.Referral{}
	for rows.Next() {
		var r models.Referral
		var approvedAt sql.NullTime
		if err := rows.Scan(scanReferral(&r, &approvedAt)...); err != nil {
			return nil, apperrors.Internal("scan referral", err)
		}
		r.BUApprovalDate = timePtr(approvedAt)
		referrals = append(referrals, r)
	}
	return referrals, rows.Err()
}

// ReferredCandidate is one referral joined with its candidate
type ReferredCandidate struct {
	Referral  models.Referral
	Candidate *models.Candidate
}

// ReferralQuery filters the referral views
type ReferralQuery struct {
	Status        models.CandidateStatus
	ApprovedByBU  *bool
	CandidateType models.CandidateType
	Search        string
	Limit         int
	Offset        int
}

func prefixed(prefix, columns string) string {
	parts := strings.Split(columns, ",")
	for i, p := range parts {
		parts[i] = prefix + strings.TrimSpace(p)
	}
	return strings.Join(parts, ", ")
}

// ListReferredCandidates joins the job's referrals with their candidates. The
// returned total counts every row matching q, ignoring Limit and Offset.
func (s *Store) ListReferredCandidates(ctx context.Context, jobID string, q ReferralQuery) ([]ReferredCandidate, int, error) {
	where := []string{"r.job_id=?"}
	args := []any{jobID}
	if q.Status != "" {
		where = append(where, "c.status=?")
		args = append(args, string(q.Status))
	}
	if q.ApprovedByBU != nil {
		where = append(where, "r.approved_by_bu=?")
		args = append(args, *q.ApprovedByBU)
	}
	if q.CandidateType != "" {
		where = append(where, "c.candidate_type=?")
		args = append(args, string(q.CandidateType))
	}
	if q.Search != "" {
		like := "%" + strings.ToLower(strings.TrimSpace(q.Search)) + "%"
		where = append(where, `(lower(c.first_name || ' ' || c.last_name) LIKE ? OR lower(c.email) LIKE ?
			OR c.mobile LIKE ? OR lower(c.skills) LIKE ?)`)
		args = append(args, like, like, like, like)
	}
	from := ` FROM referrals r JOIN candidates c ON c.id = r.candidate_id WHERE ` + strings.Join(where, " AND ")

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*)`+from, args...).Scan(&total); err != nil {
		return nil, 0, apperrors.Internal("count referred candidates", err)
	}

	query := `SELECT ` + referralColumns + `, ` + prefixed("c.", candidateColumns) + from +
		` ORDER BY r.added_at, r.candidate_id`
	pageArgs := append([]any{}, args...)
	if q.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		pageArgs = append(pageArgs, q.Limit, q.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, pageArgs...)
	if err != nil {
		return nil, 0, apperrors.Internal("list referred candidates", err)
	}
	defer rows.Close()

	out := []ReferredCandidate{}
	for rows.Next() {
		var rc ReferredCandidate
		var approvedAt sql.NullTime
		c, err := scanCandidate(joinedScanner{rows: rows, head: scanReferral(&rc.Referral, &approvedAt)})
		if err != nil {
			return nil, 0, apperrors.Internal("scan referred candidate", err)
		}
		rc.Referral.BUApprovalDate = timePtr(approvedAt)
		rc.Candidate = c
		out = append(out, rc)
	}
	return out, total, rows.Err()
}

// joinedScanner prepends destinations for the leading columns of a join so
// scanCandidate can be reused on the trailing candidate columns.
type joinedScanner struct {
	rows *sql.Rows
	head []any
}

func (j joinedScanner) Scan(dest ...any) error {
	return j.rows.Scan(append(append([]any{}, j.head...), dest...)...)
}
