package database

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

const eventColumns = `id, candidate_id, candidate_name, candidate_email, candidate_mobile,
	candidate_resume, candidate_type, interviewer_id, interviewer_name, interviewer_email,
	organization_id, organization_name, scheduled_by, event_name, interview_date, meeting_link,
	status, created_at, updated_at`

func scanEvent(row rowScanner) (*models.Event, error) {
	e := &models.Event{}
	var candidateType, status string
	err := row.Scan(&e.ID, &e.Candidate.CandidateID, &e.Candidate.Name, &e.Candidate.Email,
		&e.Candidate.Mobile, &e.Candidate.Resume, &candidateType, &e.Interviewer.InterviewerID,
		&e.Interviewer.Name, &e.Interviewer.Email, &e.Organization.CompanyID, &e.Organization.Name,
		&e.ScheduledBy, &e.EventName, &e.InterviewDate, &e.MeetingLink, &status,
		&e.CreatedAt, &e.UpdatedAt)
	if err != nil {
		return nil, err
	}
	e.Candidate.CandidateType = models.CandidateType(candidateType)
	e.Status = models.EventStatus(status)
	return e, nil
}

func (s *Store) CreateEvent(ctx context.Context, e *models.Event) error {
	query := `INSERT INTO events (` + eventColumns + `)
			  VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := s.db.ExecContext(ctx, query, e.ID, e.Candidate.CandidateID, e.Candidate.Name,
		e.Candidate.Email, e.Candidate.Mobile, e.Candidate.Resume, string(e.Candidate.CandidateType),
		e.Interviewer.InterviewerID, e.Interviewer.Name, e.Interviewer.Email,
		e.Organization.CompanyID, e.Organization.Name, e.ScheduledBy, e.EventName,
		e.InterviewDate.UTC(), e.MeetingLink, string(e.Status), e.CreatedAt.UTC(), e.UpdatedAt.UTC())
	return translate(err, "event")
}

func (s *Store) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	e, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id=?`, id))
	if err != nil {
		return nil, translate(err, "event")
	}
	return e, nil
}

// EventPatch is a partial event update keyed by column name
type EventPatch map[string]any

var eventPatchColumns = map[string]bool{
	"interviewer_id": true, "interviewer_name": true, "interviewer_email": true,
	"event_name": true, "interview_date": true, "meeting_link": true, "status": true,
}

func (s *Store) UpdateEvent(ctx context.Context, id string, patch EventPatch, now time.Time) (*models.Event, error) {
	if len(patch) == 0 {
		return s.GetEvent(ctx, id)
	}
	sets := make([]string, 0, len(patch)+1)
	args := make([]any, 0, len(patch)+2)
	for col, val := range patch {
		if !eventPatchColumns[col] {
			return nil, apperrors.Internal("event column "+col+" is not patchable", nil)
		}
		sets = append(sets, col+"=?")
		if st, ok := val.(models.EventStatus); ok {
			val = string(st)
		}
		args = append(args, normalizeArg(val))
	}
	sets = append(sets, "updated_at=?")
	args = append(args, now.UTC(), id)

	result, err := s.db.ExecContext(ctx, `UPDATE events SET `+strings.Join(sets, ", ")+` WHERE id=?`, args...)
	if err != nil {
		return nil, translate(err, "event")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return nil, apperrors.NotFound("event not found", nil)
	}
	return s.GetEvent(ctx, id)
}

// ListEventsForCandidate returns the candidate's rounds, newest first
func (s *Store) ListEventsForCandidate(ctx context.Context, candidateID string) ([]*models.Event, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE candidate_id=? ORDER BY created_at DESC, id DESC`, candidateID)
	if err != nil {
		return nil, apperrors.Internal("list events", err)
	}
	defer rows.Close()

	events := []*models.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, apperrors.Internal("scan event", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (s *Store) DeleteEvent(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM events WHERE id=?`, id)
	if err != nil {
		return apperrors.Internal("delete event", err)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return apperrors.NotFound("event not found", nil)
	}
	return nil
}
