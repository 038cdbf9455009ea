package pipeline

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// Kind selects the registration form and its required fields
type Kind string

const (
	KindFresher     Kind = "fresher"
	KindExperienced Kind = "experienced"
	KindVendor      Kind = "vendor"
	KindDummy       Kind = "dummy"
)

func (k Kind) Valid() bool {
	switch k {
	case KindFresher, KindExperienced, KindVendor, KindDummy:
		return true
	}
	return false
}

// Registration is the submitted candidate profile
type Registration struct {
	FirstName       string
	LastName        string
	Email           string
	Mobile          string
	Resume          string
	Skills          []string
	Qualification   string
	PassingYear     int
	TotalExperience float64
	CurrentCompany  string
	Location        string
	CandidateType   models.CandidateType
	// Vendor is the referring vendor user; required for KindVendor
	Vendor     *models.User
	VendorName string
}

func (r *Registration) normalize() {
	r.FirstName = strings.TrimSpace(r.FirstName)
	r.LastName = strings.TrimSpace(r.LastName)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Mobile = strings.TrimSpace(r.Mobile)
	r.Resume = strings.TrimSpace(r.Resume)
}

func (r *Registration) validate(kind Kind) error {
	var missing []string
	need := func(ok bool, field string) {
		if !ok {
			missing = append(missing, field)
		}
	}

	need(r.FirstName != "", "firstName")
	need(r.Email != "", "email")
	need(r.Mobile != "", "mobile")

	switch kind {
	case KindFresher:
		need(r.LastName != "", "lastName")
		need(r.Qualification != "", "qualification")
		need(r.PassingYear > 0, "passingYear")
		need(r.Resume != "", "resume")
	case KindExperienced:
		need(r.LastName != "", "lastName")
		need(r.Resume != "", "resume")
		need(r.TotalExperience > 0, "totalExperience")
		need(r.CurrentCompany != "", "currentCompany")
	case KindVendor:
		need(r.LastName != "", "lastName")
		need(r.Resume != "", "resume")
		need(r.Vendor != nil, "vendor")
	}

	if len(missing) > 0 {
		return apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}
	if !strings.Contains(r.Email, "@") {
		return apperrors.InvalidInput(fmt.Sprintf("invalid email %q", r.Email), nil)
	}
	if r.CandidateType != "" && !r.CandidateType.Valid() {
		return apperrors.InvalidInput(fmt.Sprintf("unknown candidate type %q", r.CandidateType), nil)
	}
	if kind == KindVendor && r.Vendor.Role != models.RoleVendor {
		return apperrors.Unauthorized("only vendor users can register vendor candidates", nil)
	}
	return nil
}

// Register creates a candidate of the given kind. A rejected candidate with
// the same email or mobile is reset to pending once the cooling-off window
// has passed. A welcome email failure is returned as a Delivery error next
// to the persisted candidate.
func (s *Service) Register(ctx context.Context, kind Kind, reg Registration) (*models.Candidate, error) {
	ctx, span := tracer.Start(ctx, "Service.Register")
	defer span.End()
	span.SetAttributes(telemetry.String("registration.kind", string(kind)))

	if !kind.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown registration kind %q", kind), nil)
	}
	reg.normalize()
	if err := reg.validate(kind); err != nil {
		return nil, err
	}

	existing, err := s.store.FindCandidateByContact(ctx, reg.Email, reg.Mobile)
	switch {
	case err == nil:
		if existing.Status != models.StatusRejected {
			return nil, apperrors.Conflict("a candidate with this email or mobile already exists", nil)
		}
		if err := s.checkCoolingOff(kind, existing); err != nil {
			return nil, err
		}
	case apperrors.Is(err, apperrors.ErrTypeNotFound):
		existing = nil
	default:
		return nil, err
	}

	var c *models.Candidate
	if existing != nil {
		c, err = s.store.UpdateCandidate(ctx, existing.ID, s.reregistrationPatch(kind, reg), s.clock())
	} else {
		c = s.newCandidate(kind, reg)
		err = s.store.CreateCandidate(ctx, c)
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("candidate registered",
		zap.String("candidate_id", c.ID),
		zap.String("kind", string(kind)),
		zap.Bool("reregistered", existing != nil))

	if kind == KindDummy {
		return c, nil
	}
	email := notify.Email{
		Template:  notify.TemplateRegistration,
		To:        []string{c.Email},
		Variables: map[string]string{"name": c.FullName()},
	}
	if kind == KindVendor {
		email.Template = notify.TemplateVendorRegistration
		email.Variables["vendor_name"] = c.VendorName
	}
	if _, err := s.notifier.SendEmail(ctx, email); err != nil {
		return c, err
	}
	return c, nil
}

func (s *Service) checkCoolingOff(kind Kind, c *models.Candidate) error {
	// fresher and experienced forms pick their own window; the other kinds
	// follow the stored profile
	window := s.cfg.CoolingOffFresher
	if kind == KindExperienced || (kind != KindFresher && c.IsExperienced) {
		window = s.cfg.CoolingOffExperienced
	}

	rejectedAt := c.UpdatedAt
	if c.RejectedAt != nil {
		rejectedAt = *c.RejectedAt
	}
	eligible := rejectedAt.Add(window)
	if s.clock().Before(eligible) {
		return apperrors.InvalidInput(fmt.Sprintf(
			"candidate was rejected on %s and may register again from %s",
			rejectedAt.Format("2006-01-02"), eligible.Format("2006-01-02")), nil)
	}
	return nil
}

func (s *Service) newCandidate(kind Kind, reg Registration) *models.Candidate {
	now := s.clock()
	c := &models.Candidate{
		ID:              newID(),
		FirstName:       reg.FirstName,
		LastName:        reg.LastName,
		Email:           reg.Email,
		Mobile:          reg.Mobile,
		CandidateType:   reg.CandidateType,
		IsExperienced:   kind == KindExperienced || reg.TotalExperience > 0,
		IsDummy:         kind == KindDummy,
		Resume:          reg.Resume,
		Skills:          reg.Skills,
		Qualification:   reg.Qualification,
		PassingYear:     reg.PassingYear,
		TotalExperience: reg.TotalExperience,
		CurrentCompany:  reg.CurrentCompany,
		Location:        reg.Location,
		Status:          models.StatusPending,
		Remarks:         []models.Remark{},
		JobsReferred:    []string{},
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if c.CandidateType == "" {
		c.CandidateType = models.CandidateExternal
	}
	if kind == KindVendor {
		applyVendor(c, reg)
	}
	return c
}

func applyVendor(c *models.Candidate, reg Registration) {
	c.CandidateType = models.CandidateVendor
	c.VendorReferred = true
	c.VendorManagerID = reg.Vendor.ID
	c.VendorManagerName = reg.Vendor.FullName()
	c.VendorEmail = reg.Vendor.Email
	c.VendorName = reg.VendorName
	if c.VendorName == "" {
		c.VendorName = reg.Vendor.FullName()
	}
}

// reregistrationPatch refreshes the profile of a rejected candidate and puts
// it back at the start of the pipeline. Remarks and referrals are kept.
func (s *Service) reregistrationPatch(kind Kind, reg Registration) database.CandidatePatch {
	fresh := s.newCandidate(kind, reg)
	patch := database.CandidatePatch{
		"first_name":       fresh.FirstName,
		"last_name":        fresh.LastName,
		"email":            fresh.Email,
		"mobile":           fresh.Mobile,
		"candidate_type":   fresh.CandidateType,
		"is_experienced":   fresh.IsExperienced,
		"is_dummy":         fresh.IsDummy,
		"resume":           fresh.Resume,
		"skills":           fresh.Skills,
		"qualification":    fresh.Qualification,
		"passing_year":     fresh.PassingYear,
		"total_experience": fresh.TotalExperience,
		"current_company":  fresh.CurrentCompany,
		"location":         fresh.Location,
		"status":           models.StatusPending,
		"assigned_to":      "",
		"is_assigned":      false,
		"poc":              "",
	}
	if kind == KindVendor {
		patch["vendor_referred"] = true
		patch["vendor_manager_id"] = fresh.VendorManagerID
		patch["vendor_manager_name"] = fresh.VendorManagerName
		patch["vendor_name"] = fresh.VendorName
		patch["vendor_email"] = fresh.VendorEmail
	}
	return patch
}
