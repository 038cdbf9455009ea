package models

import (
	"strings"
	"time"
)

// Role is the role of an authenticated actor
type Role string

const (
	RoleTA         Role = "ta"
	RoleHR         Role = "hr"
	RoleBU         Role = "bu"
	RoleVendor     Role = "vendor"
	RoleFreelancer Role = "freelancer"
	RoleAdmin      Role = "admin"
)

// Valid reports whether r is a known role
func (r Role) Valid() bool {
	switch r {
	case RoleTA, RoleHR, RoleBU, RoleVendor, RoleFreelancer, RoleAdmin:
		return true
	}
	return false
}

// User is an actor that drives the workflow (TA, HR, BU, vendor, freelancer)
type User struct {
	ID        string    `json:"id"`
	FirstName string    `json:"first_name"`
	LastName  string    `json:"last_name"`
	Email     string    `json:"email"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// FullName returns the display name copied into snapshot fields
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// Organization is a client company that owns job requisitions
type Organization struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Notification is an append-only fan-out record, one per side effect
type Notification struct {
	ID         string            `json:"id"`
	Title      string            `json:"title"`
	SenderID   string            `json:"sender_id"`
	ReceiverID string            `json:"receiver_id,omitempty"`
	Priority   Priority          `json:"priority"`
	IsRead     bool              `json:"is_read"`
	EntityType EntityType        `json:"entity_type"`
	Message    string            `json:"message"`
	Metadata   map[string]string `json:"metadata,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityNormal Priority = "normal"
	PriorityHigh   Priority = "high"
)

// EntityType classifies a notification for the consumer that renders it
type EntityType string

const (
	EntityNotification      EntityType = "notification"
	EntityActivity          EntityType = "activity"
	EntityHRNotification    EntityType = "hr_notification"
	EntityBUNotification    EntityType = "bu_notification"
	EntityCandidateAssigned EntityType = "candidate-assigned"
)

// Incentive is the payable amount accrued by one freelancer.
// IncentiveAmount is always the sum of ReferralAmount over JobIDs.
type Incentive struct {
	FreelancerID    string    `json:"freelancer_id"`
	JobIDs          []string  `json:"job_ids"`
	IncentiveAmount float64   `json:"incentive_amount"`
	UpdatedAt       time.Time `json:"updated_at"`
}
