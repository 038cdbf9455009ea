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

const candidateColumns = `id, first_name, last_name, email, mobile, candidate_type, is_experienced,
	is_dummy, is_referred, vendor_referred, resume, skills, qualification, passing_year,
	total_experience, current_company, location, assigned_to, is_assigned, poc, status,
	rejected_at, vendor_manager_id, vendor_manager_name, vendor_name, vendor_email,
	onboarding_initiated, onboarding_initiate_date, onboarding_reinitiated, joining_date,
	designation, organization_id, joining_feedback, consent_form, is_consent_uploaded,
	created_at, updated_at`

// CandidatePatch is a partial candidate update keyed by column name
type CandidatePatch map[string]any

// patchable candidate columns; anything else is a programming error
var candidatePatchColumns = map[string]bool{
	"first_name": true, "last_name": true, "email": true, "mobile": true,
	"candidate_type": true, "is_experienced": true, "is_dummy": true, "is_referred": true,
	"vendor_referred": true, "resume": true, "skills": true, "qualification": true,
	"passing_year": true, "total_experience": true, "current_company": true, "location": true,
	"assigned_to": true, "is_assigned": true, "poc": true, "status": true, "rejected_at": true,
	"vendor_manager_id": true, "vendor_manager_name": true, "vendor_name": true, "vendor_email": true,
	"onboarding_initiated": true, "onboarding_initiate_date": true, "onboarding_reinitiated": true,
	"joining_date": true, "designation": true, "organization_id": true, "joining_feedback": true,
	"consent_form": true, "is_consent_uploaded": true,
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCandidate(row rowScanner) (*models.Candidate, error) {
	c := &models.Candidate{}
	var skills stringList
	var rejectedAt, initiateDate, joiningDate sql.NullTime
	var candidateType, status string
	err := row.Scan(&c.ID, &c.FirstName, &c.LastName, &c.Email, &c.Mobile, &candidateType,
		&c.IsExperienced, &c.IsDummy, &c.IsReferred, &c.VendorReferred, &c.Resume, &skills,
		&c.Qualification, &c.PassingYear, &c.TotalExperience, &c.CurrentCompany, &c.Location,
		&c.AssignedTo, &c.IsAssigned, &c.Poc, &status, &rejectedAt, &c.VendorManagerID,
		&c.VendorManagerName, &c.VendorName, &c.VendorEmail, &c.OnboardingInitiated,
		&initiateDate, &c.OnboardingReinitiated, &joiningDate, &c.Designation,
		&c.OrganizationID, &c.JoiningFeedback, &c.ConsentForm, &c.IsConsentUploaded,
		&c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		return nil, err
	}
	c.CandidateType = models.CandidateType(candidateType)
	c.Status = models.CandidateStatus(status)
	c.Skills = skills
	c.RejectedAt = timePtr(rejectedAt)
	c.OnboardingInitiateDate = timePtr(initiateDate)
	c.JoiningDate = timePtr(joiningDate)
	return c, nil
}

// CreateCandidate inserts a new candidate. Duplicate email or mobile is a Conflict.
func (s *Store) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	query := `INSERT INTO candidates (id, first_name, last_name, email, mobile, candidate_type,
			  is_experienced, is_dummy, is_referred, vendor_referred, resume, skills, qualification,
			  passing_year, total_experience, current_company, location, assigned_to, is_assigned,
			  poc, status, vendor_manager_id, vendor_manager_name, vendor_name, vendor_email,
			  created_at, updated_at)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, c.ID, c.FirstName, c.LastName, c.Email, c.Mobile,
		string(c.CandidateType), c.IsExperienced, c.IsDummy, c.IsReferred, c.VendorReferred,
		c.Resume, stringList(c.Skills), c.Qualification, c.PassingYear, c.TotalExperience,
		c.CurrentCompany, c.Location, c.AssignedTo, c.IsAssigned, c.Poc, string(c.Status),
		c.VendorManagerID, c.VendorManagerName, c.VendorName, c.VendorEmail,
		c.CreatedAt.UTC(), c.UpdatedAt.UTC())
	return translate(err, "candidate")
}

// GetCandidate loads a candidate with its remarks and referred jobs
func (s *Store) GetCandidate(ctx context.Context, id string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE id=?`
	c, err := scanCandidate(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		return nil, translate(err, "candidate")
	}
	if err := s.loadCandidateRelations(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

// FindCandidateByContact returns the candidate owning email or mobile
func (s *Store) FindCandidateByContact(ctx context.Context, email, mobile string) (*models.Candidate, error) {
	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE email=? OR mobile=? LIMIT 1`
	c, err := scanCandidate(s.db.QueryRowContext(ctx, query, strings.ToLower(email), mobile))
	if err != nil {
		return nil, translate(err, "candidate")
	}
	if err := s.loadCandidateRelations(ctx, c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Store) loadCandidateRelations(ctx context.Context, c *models.Candidate) error {
	remarks, err := s.ListRemarks(ctx, c.ID)
	if err != nil {
		return err
	}
	c.Remarks = remarks

	rows, err := s.db.QueryContext(ctx,
		`SELECT job_id FROM candidate_jobs WHERE candidate_id=? ORDER BY added_at, job_id`, c.ID)
	if err != nil {
		return apperrors.Internal("load referred jobs", err)
	}
	defer rows.Close()

	c.JobsReferred = []string{}
	for rows.Next() {
		var jobID string
		if err := rows.Scan(&jobID); err != nil {
			return apperrors.Internal("scan referred job", err)
		}
		c.JobsReferred = append(c.JobsReferred, jobID)
	}
	return rows.Err()
}

// UpdateCandidate applies patch in a single statement and returns the fresh record
func (s *Store) UpdateCandidate(ctx context.Context, id string, patch CandidatePatch, now time.Time) (*models.Candidate, error) {
	if len(patch) == 0 {
		return s.GetCandidate(ctx, id)
	}

	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+2)
	for col, val := range patch {
		if !candidatePatchColumns[col] {
			return nil, apperrors.Internal(fmt.Sprintf("candidate column %q is not patchable", col), nil)
		}
		sets = append(sets, col+"=?")
		args = append(args, normalizeArg(val))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now.UTC(), id)

	query := `UPDATE candidates SET ` + strings.Join(sets, ", ") + ` WHERE id=?`
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, translate(err, "candidate")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperrors.NotFound("candidate not found", nil)
	}
	return s.GetCandidate(ctx, id)
}

func normalizeArg(v any) any {
	switch val := v.(type) {
	case []string:
		return stringList(val)
	case *time.Time:
		return nullTime(val)
	case time.Time:
		return val.UTC()
	case models.CandidateStatus:
		return string(val)
	case models.CandidateType:
		return string(val)
	}
	return v
}

// AppendRemark adds one audit entry. It never touches existing entries.
func (s *Store) AppendRemark(ctx context.Context, candidateID string, r models.Remark) error {
	query := `INSERT INTO candidate_remarks (candidate_id, title, author_id, author_name, created_at)
			  SELECT id, ?, ?, ?, ? FROM candidates WHERE id=?`
	result, err := s.db.ExecContext(ctx, query, r.Title, r.AuthorID, r.AuthorName, r.Date.UTC(), candidateID)
	if err != nil {
		return apperrors.Internal("append remark", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("candidate not found", nil)
	}
	_, err = s.db.ExecContext(ctx, `UPDATE candidates SET updated_at=? WHERE id=?`, r.Date.UTC(), candidateID)
	return translate(err, "candidate")
}

// ListRemarks returns remarks in insertion order
func (s *Store) ListRemarks(ctx context.Context, candidateID string) ([]models.Remark, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT title, author_id, author_name, created_at FROM candidate_remarks
		 WHERE candidate_id=? ORDER BY id`, candidateID)
	if err != nil {
		return nil, apperrors.Internal("list remarks", err)
	}
	defer rows.Close()

	remarks := []models.Remark{}
	for rows.Next() {
		var r models.Remark
		if err := rows.Scan(&r.Title, &r.AuthorID, &r.AuthorName, &r.Date); err != nil {
			return nil, apperrors.Internal("scan remark", err)
		}
		remarks = append(remarks, r)
	}
	return remarks, rows.Err()
}

// AddCandidateJob adds jobID to the candidate's referred set and marks the
// candidate as referred. Adding an existing job is a no-op; added reports
// whether the set changed.
func (s *Store) AddCandidateJob(ctx context.Context, candidateID, jobID string, now time.Time) (bool, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return false, apperrors.Internal("begin transaction", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx,
		`INSERT INTO candidate_jobs (candidate_id, job_id, added_at) VALUES (?, ?, ?)
		 ON CONFLICT(candidate_id, job_id) DO NOTHING`, candidateID, jobID, now.UTC())
	if err != nil {
		return false, translate(err, "candidate job")
	}
	added, _ := result.RowsAffected()

	if _, err := tx.ExecContext(ctx,
		`UPDATE candidates SET is_referred=1, updated_at=? WHERE id=?`, now.UTC(), candidateID); err != nil {
		return false, translate(err, "candidate")
	}
	if err := tx.Commit(); err != nil {
		return false, apperrors.Internal("commit candidate job", err)
	}
	return added > 0, nil
}

// CandidateFilter narrows ListCandidates
type CandidateFilter struct {
	Status        models.CandidateStatus
	CandidateType models.CandidateType
	AssignedTo    string
	Search        string
	Limit         int
	Offset        int
}

// ListCandidates returns summary rows (without remarks or referred jobs),
// most recently updated first.
func (s *Store) ListCandidates(ctx context.Context, f CandidateFilter) ([]*models.Candidate, error) {
	where := []string{"1=1"}
	args := []any{}
	if f.Status != "" {
		where = append(where, "status=?")
		args = append(args, string(f.Status))
	}
	if f.CandidateType != "" {
		where = append(where, "candidate_type=?")
		args = append(args, string(f.CandidateType))
	}
	if f.AssignedTo != "" {
		where = append(where, "assigned_to=?")
		args = append(args, f.AssignedTo)
	}
	if f.Search != "" {
		like := "%" + strings.ToLower(f.Search) + "%"
		where = append(where, "(lower(first_name || ' ' || last_name) LIKE ? OR lower(email) LIKE ? OR lower(skills) LIKE ?)")
		args = append(args, like, like, like)
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 50
	}
	args = append(args, limit, f.Offset)

	query := `SELECT ` + candidateColumns + ` FROM candidates WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY updated_at DESC LIMIT ? OFFSET ?`
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Internal("list candidates", err)
	}
	defer rows.Close()

	candidates := []*models.Candidate{}
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, apperrors.Internal("scan candidate", err)
		}
		candidates = append(candidates, c)
	}
	return candidates, rows.Err()
}

// CountCandidatesByStatus groups candidates by pipeline status
func (s *Store) CountCandidatesByStatus(ctx context.Context) (map[models.CandidateStatus]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(*) FROM candidates GROUP BY status`)
	if err != nil {
		return nil, apperrors.Internal("count candidates", err)
	}
	defer rows.Close()

	counts := map[models.CandidateStatus]int{}
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, apperrors.Internal("scan count", err)
		}
		counts[models.CandidateStatus(status)] = n
	}
	return counts, rows.Err()
}
