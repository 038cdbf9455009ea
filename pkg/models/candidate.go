package models

import "time"

// CandidateStatus is the primary pipeline state of a candidate
type CandidateStatus string

const (
	StatusPending     CandidateStatus = "pending"
	StatusAssigned    CandidateStatus = "assigned"
	StatusOnHold      CandidateStatus = "onhold"
	StatusShortlisted CandidateStatus = "shortlisted"
	StatusPipeline    CandidateStatus = "pipeline"
	StatusBench       CandidateStatus = "bench"
	StatusApproved    CandidateStatus = "approved"
	StatusReview      CandidateStatus = "review"
	StatusEmployee    CandidateStatus = "employee"
	StatusTrainee     CandidateStatus = "trainee"
	StatusDeployed    CandidateStatus = "deployed"
	StatusRejected    CandidateStatus = "rejected"
	StatusHired       CandidateStatus = "hired"
)

// CandidateStatuses lists every status in pipeline order
var CandidateStatuses = []CandidateStatus{
	StatusPending, StatusAssigned, StatusOnHold, StatusShortlisted, StatusApproved,
	StatusPipeline, StatusReview, StatusHired, StatusBench, StatusEmployee,
	StatusTrainee, StatusDeployed, StatusRejected,
}

// Valid reports whether s is one of the known statuses
func (s CandidateStatus) Valid() bool {
	for _, v := range CandidateStatuses {
		if v == s {
			return true
		}
	}
	return false
}

type CandidateType string

const (
	CandidateInternal CandidateType = "internal"
	CandidateExternal CandidateType = "external"
	CandidateVendor   CandidateType = "vendor"
)

func (t CandidateType) Valid() bool {
	return t == CandidateInternal || t == CandidateExternal || t == CandidateVendor
}

// Candidate is a person moving through the recruitment pipeline
type Candidate struct {
	ID              string        `json:"id"`
	FirstName       string        `json:"first_name"`
	LastName        string        `json:"last_name"`
	Email           string        `json:"email"`
	Mobile          string        `json:"mobile"`
	CandidateType   CandidateType `json:"candidate_type"`
	IsExperienced   bool          `json:"is_experienced"`
	IsDummy         bool          `json:"is_dummy"`
	IsReferred      bool          `json:"is_referred"`
	VendorReferred  bool          `json:"vendor_referred"`
	Resume          string        `json:"resume"`
	Skills          []string      `json:"skills"`
	Qualification   string        `json:"qualification,omitempty"`
	PassingYear     int           `json:"passing_year,omitempty"`
	TotalExperience float64       `json:"total_experience,omitempty"`
	CurrentCompany  string        `json:"current_company,omitempty"`
	Location        string        `json:"location,omitempty"`

	// Assignment. Poc is a snapshot of the assignee's name at assignment time.
	AssignedTo string `json:"assigned_to,omitempty"`
	IsAssigned bool   `json:"is_assigned"`
	Poc        string `json:"poc,omitempty"`

	Status     CandidateStatus `json:"status"`
	RejectedAt *time.Time      `json:"rejected_at,omitempty"`
	Remarks    []Remark        `json:"remarks"`

	JobsReferred      []string `json:"jobs_referred"`
	VendorManagerID   string   `json:"vendor_manager_id,omitempty"`
	VendorManagerName string   `json:"vendor_manager_name,omitempty"`
	VendorName        string   `json:"vendor_name,omitempty"`
	VendorEmail       string   `json:"vendor_email,omitempty"`

	OnboardingInitiated    bool       `json:"onboarding_initiated"`
	OnboardingInitiateDate *time.Time `json:"onboarding_initiate_date,omitempty"`
	OnboardingReinitiated  bool       `json:"onboarding_reinitiated"`
	JoiningDate            *time.Time `json:"joining_date,omitempty"`
	Designation            string     `json:"designation,omitempty"`
	OrganizationID         string     `json:"organization_id,omitempty"`
	JoiningFeedback        string     `json:"joining_feedback,omitempty"`
	ConsentForm            string     `json:"consent_form,omitempty"`
	IsConsentUploaded      bool       `json:"is_consent_uploaded"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// FullName joins first and last name
func (c *Candidate) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}

// HasReferral reports whether jobID is already in JobsReferred
func (c *Candidate) HasReferral(jobID string) bool {
	for _, id := range c.JobsReferred {
		if id == jobID {
			return true
		}
	}
	return false
}

// Remark is one audit entry on a candidate; remarks are never edited or removed
type Remark struct {
	Title      string    `json:"title"`
	AuthorID   string    `json:"author_id"`
	AuthorName string    `json:"author_name"`
	Date       time.Time `json:"date"`
}

// OnboardingForm is the post-offer data collection document, one per candidate
type OnboardingForm struct {
	ID          string `json:"id"`
	CandidateID string `json:"candidate_id"`
	Email       string `json:"email"`

	FullName       string `json:"full_name"`
	FatherName     string `json:"father_name,omitempty"`
	DateOfBirth    string `json:"date_of_birth,omitempty"`
	Gender         string `json:"gender,omitempty"`
	Mobile         string `json:"mobile,omitempty"`
	CurrentAddress string `json:"current_address,omitempty"`
	PermanentAddr  string `json:"permanent_address,omitempty"`
	PANNumber      string `json:"pan_number,omitempty"`
	AadharNumber   string `json:"aadhar_number,omitempty"`

	BankName      string `json:"bank_name,omitempty"`
	AccountNumber string `json:"account_number,omitempty"`
	IFSCCode      string `json:"ifsc_code,omitempty"`

	Documents map[string]string `json:"documents,omitempty"`

	SubmittedAt time.Time `json:"submitted_at"`
}
