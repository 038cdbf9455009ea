package models

import "time"

type EventStatus string

const (
	EventPending   EventStatus = "pending"
	EventSubmitted EventStatus = "submitted"
	EventApproved  EventStatus = "approved"
	EventRejected  EventStatus = "rejected"
)

func (s EventStatus) Valid() bool {
	switch s {
	case EventPending, EventSubmitted, EventApproved, EventRejected:
		return true
	}
	return false
}

// Event is one interview round. Candidate, Interviewer and Organization are
// snapshots taken when the event is created.
type Event struct {
	ID            string            `json:"id"`
	Candidate     CandidateSnapshot `json:"candidate"`
	Interviewer   Interviewer       `json:"interviewer"`
	Organization  OrgSnapshot       `json:"organization"`
	ScheduledBy   string            `json:"scheduled_by"`
	EventName     string            `json:"event_name"`
	InterviewDate time.Time         `json:"interview_date"`
	MeetingLink   string            `json:"meeting_link,omitempty"`
	Status        EventStatus       `json:"status"`
	CreatedAt     time.Time         `json:"created_at"`
	UpdatedAt     time.Time         `json:"updated_at"`
}

type CandidateSnapshot struct {
	CandidateID   string        `json:"candidate_id"`
	Name          string        `json:"name"`
	Email         string        `json:"email"`
	Mobile        string        `json:"mobile"`
	Resume        string        `json:"resume"`
	CandidateType CandidateType `json:"candidate_type,omitempty"`
}

type Interviewer struct {
	InterviewerID string `json:"interviewer_id"`
	Name          string `json:"name"`
	Email         string `json:"email"`
}

type OrgSnapshot struct {
	CompanyID string `json:"company_id"`
	Name      string `json:"name"`
}
