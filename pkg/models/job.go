package models

import "time"

type JobStatus string

const (
	JobActive   JobStatus = "Active"
	JobInactive JobStatus = "Inactive"
	JobOnHold   JobStatus = "On Hold"
	JobFilled   JobStatus = "Filled"
)

func (s JobStatus) Valid() bool {
	switch s {
	case JobActive, JobInactive, JobOnHold, JobFilled:
		return true
	}
	return false
}

type Visibility string

const (
	VisibilityTA     Visibility = "ta"
	VisibilityBU     Visibility = "bu"
	VisibilityVendor Visibility = "vendor"
	VisibilityAll    Visibility = "all"
)

func (v Visibility) Valid() bool {
	switch v {
	case VisibilityTA, VisibilityBU, VisibilityVendor, VisibilityAll:
		return true
	}
	return false
}

// Job is a requisition that collects referred candidates
type Job struct {
	ID               string     `json:"id"`
	JobCode          string     `json:"job_id"` // JOB-<year>-NNNN
	Title            string     `json:"title"`
	OrganizationID   string     `json:"organization_id"`
	OrganizationName string     `json:"organization_name"`
	Location         string     `json:"location"`
	Description      string     `json:"description"`
	Domains          []string   `json:"domains"`
	Skills           []string   `json:"skills"`
	ExperienceMin    float64    `json:"experience_min"`
	ExperienceMax    float64    `json:"experience_max"`
	NoOfPositions    int        `json:"no_of_positions"`
	BudgetMin        float64    `json:"budget_min"`
	BudgetMax        float64    `json:"budget_max"`
	ModifiedBudget   *Budget    `json:"modified_budget,omitempty"`
	ReferralAmount   float64    `json:"referral_amount"`
	Status           JobStatus  `json:"status"`
	Visibility       Visibility `json:"visibility"`
	CreatedBy        string     `json:"created_by"`
	EndDate          *time.Time `json:"end_date,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// Budget is an override of the canonical budget range
type Budget struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// Referral attaches a candidate to a job, pending BU approval.
// There is at most one referral per (job, candidate) pair.
type Referral struct {
	JobID          string     `json:"job_id"`
	CandidateID    string     `json:"candidate_id"`
	AddedBy        string     `json:"added_by"`
	AddedAt        time.Time  `json:"added_at"`
	ApprovedByBU   bool       `json:"approved_by_bu"`
	BUApprovalDate *time.Time `json:"bu_approval_date,omitempty"`
	BUApprovedBy   string     `json:"bu_approved_by,omitempty"`
}
