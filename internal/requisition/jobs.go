package requisition

import (
	"context"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/sequence"
	"github.com/khrees2412/talentflow/internal/telemetry"
	"github.com/khrees2412/talentflow/pkg/models"
)

// JobInput is a new job posting
type JobInput struct {
	Title            string
	OrganizationName string
	Location         string
	Description      string
	Domains          []string
	Skills           []string
	ExperienceMin    float64
	ExperienceMax    float64
	NoOfPositions    int
	BudgetMin        float64
	BudgetMax        float64
	ReferralAmount   float64
	Visibility       models.Visibility
	EndDate          *time.Time
}

func cleanList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

func checkRange(name string, min, max float64) error {
	if min < 0 || max < 0 {
		return apperrors.InvalidInput(name+" cannot be negative", nil)
	}
	if max > 0 && min > max {
		return apperrors.InvalidInput(fmt.Sprintf("%s minimum %.2f exceeds maximum %.2f", name, min, max), nil)
	}
	return nil
}

// CreateJob posts a job for an existing organization and assigns the next
// JOB-<year>-NNNN code
func (s *Service) CreateJob(ctx context.Context, in JobInput, actor *models.User) (*models.Job, error) {
	ctx, span := tracer.Start(ctx, "Service.CreateJob")
	defer span.End()

	if err := requireActor(actor); err != nil {
		return nil, err
	}
	in.Title = strings.TrimSpace(in.Title)
	in.OrganizationName = strings.TrimSpace(in.OrganizationName)
	in.Location = strings.TrimSpace(in.Location)
	in.Description = strings.TrimSpace(in.Description)
	in.Domains = cleanList(in.Domains)
	in.Skills = cleanList(in.Skills)

	var missing []string
	if in.Title == "" {
		missing = append(missing, "title")
	}
	if in.OrganizationName == "" {
		missing = append(missing, "organizationName")
	}
	if in.Location == "" {
		missing = append(missing, "location")
	}
	if in.Description == "" {
		missing = append(missing, "description")
	}
	if len(in.Domains) == 0 {
		missing = append(missing, "domain")
	}
	if len(missing) > 0 {
		return nil, apperrors.InvalidInput("missing required fields: "+strings.Join(missing, ", "), nil)
	}
	if in.Visibility == "" {
		in.Visibility = models.VisibilityAll
	}
	if !in.Visibility.Valid() {
		return nil, apperrors.InvalidInput(fmt.Sprintf("unknown visibility %q", in.Visibility), nil)
	}
	if err := checkRange("experience", in.ExperienceMin, in.ExperienceMax); err != nil {
		return nil, err
	}
	if err := checkRange("budget", in.BudgetMin, in.BudgetMax); err != nil {
		return nil, err
	}
	if in.ReferralAmount < 0 || in.NoOfPositions < 0 {
		return nil, apperrors.InvalidInput("referral amount and positions cannot be negative", nil)
	}

	org, err := s.store.GetOrganizationByName(ctx, in.OrganizationName)
	if err != nil {
		return nil, err
	}

	now := s.clock()
	seq, err := s.seq.Next(ctx, sequence.JobCounter(now))
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	job := &models.Job{
		ID:               uuid.NewString(),
		JobCode:          sequence.FormatJobCode(now, seq),
		Title:            in.Title,
		OrganizationID:   org.ID,
		OrganizationName: org.Name,
		Location:         in.Location,
		Description:      in.Description,
		Domains:          in.Domains,
		Skills:           in.Skills,
		ExperienceMin:    in.ExperienceMin,
		ExperienceMax:    in.ExperienceMax,
		NoOfPositions:    in.NoOfPositions,
		BudgetMin:        in.BudgetMin,
		BudgetMax:        in.BudgetMax,
		ReferralAmount:   in.ReferralAmount,
		Status:           models.JobActive,
		Visibility:       in.Visibility,
		CreatedBy:        actor.ID,
		EndDate:          in.EndDate,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.store.CreateJob(ctx, job); err != nil {
		return nil, err
	}
	span.SetAttributes(telemetry.String("job.code", job.JobCode))
	s.logger.Info("job created", zap.String("job_code", job.JobCode), zap.String("organization", org.Name))
	return job, nil
}

// JobUpdate lists the fields to change; nil fields are left alone
type JobUpdate struct {
	Title             *string
	Location          *string
	Description       *string
	Domains           []string
	Skills            []string
	ExperienceMin     *float64
	ExperienceMax     *float64
	NoOfPositions     *int
	BudgetMin         *float64
	BudgetMax         *float64
	ModifiedBudgetMin *float64
	ModifiedBudgetMax *float64
	ReferralAmount    *float64
	Status            *models.JobStatus
	Visibility        *models.Visibility
	EndDate           *time.Time
}

type jobDiff struct {
	patch   database.JobPatch
	changed []string
}

func (d *jobDiff) set(field, column string, value any) {
	d.patch[column] = value
	d.changed = append(d.changed, field)
}

func diffString(d *jobDiff, field, column string, next *string, current string) {
	if next == nil {
		return
	}
	if v := strings.TrimSpace(*next); v != current {
		d.set(field, column, v)
	}
}

func diffFloat(d *jobDiff, field, column string, next *float64, current float64) {
	if next != nil && *next != current {
		d.set(field, column, *next)
	}
}

func diffList(d *jobDiff, field, column string, next, current []string) {
	if next == nil {
		return
	}
	if v := cleanList(next); !slices.Equal(v, current) {
		d.set(field, column, v)
	}
}

func pick(next *float64, current float64) float64 {
	if next != nil {
		return *next
	}
	return current
}

// UpdateJob writes only the fields whose values differ from the stored job
// and reports their names. The modified budget is stored only when it
// differs from the canonical budget. An empty diff writes nothing.
func (s *Service) UpdateJob(ctx context.Context, jobCode string, u JobUpdate) (*models.Job, []string, error) {
	ctx, span := tracer.Start(ctx, "Service.UpdateJob")
	defer span.End()
	span.SetAttributes(telemetry.String("job.code", jobCode))

	job, err := s.GetJob(ctx, jobCode)
	if err != nil {
		return nil, nil, err
	}

	d := &jobDiff{patch: database.JobPatch{}}
	if u.Title != nil && strings.TrimSpace(*u.Title) == "" {
		return nil, nil, apperrors.InvalidInput("title cannot be empty", nil)
	}
	if u.Domains != nil && len(cleanList(u.Domains)) == 0 {
		return nil, nil, apperrors.InvalidInput("at least one domain is required", nil)
	}
	diffString(d, "title", "title", u.Title, job.Title)
	diffString(d, "location", "location", u.Location, job.Location)
	diffString(d, "description", "description", u.Description, job.Description)
	diffList(d, "domains", "domains", u.Domains, job.Domains)
	diffList(d, "skills", "skills", u.Skills, job.Skills)

	expMin, expMax := pick(u.ExperienceMin, job.ExperienceMin), pick(u.ExperienceMax, job.ExperienceMax)
	if err := checkRange("experience", expMin, expMax); err != nil {
		return nil, nil, err
	}
	diffFloat(d, "experience_min", "experience_min", u.ExperienceMin, job.ExperienceMin)
	diffFloat(d, "experience_max", "experience_max", u.ExperienceMax, job.ExperienceMax)

	budgetMin, budgetMax := pick(u.BudgetMin, job.BudgetMin), pick(u.BudgetMax, job.BudgetMax)
	if err := checkRange("budget", budgetMin, budgetMax); err != nil {
		return nil, nil, err
	}
	diffFloat(d, "budget_min", "budget_min", u.BudgetMin, job.BudgetMin)
	diffFloat(d, "budget_max", "budget_max", u.BudgetMax, job.BudgetMax)

	if u.ModifiedBudgetMin != nil || u.ModifiedBudgetMax != nil {
		curMin, curMax := budgetMin, budgetMax
		if job.ModifiedBudget != nil {
			curMin, curMax = job.ModifiedBudget.Min, job.ModifiedBudget.Max
		}
		modMin, modMax := pick(u.ModifiedBudgetMin, curMin), pick(u.ModifiedBudgetMax, curMax)
		if modMin < 0 || modMin > modMax {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf(
				"modified budget must satisfy 0 <= min <= max, got %.2f..%.2f", modMin, modMax), nil)
		}
		canonical := modMin == budgetMin && modMax == budgetMax
		unchanged := job.ModifiedBudget != nil && job.ModifiedBudget.Min == modMin && job.ModifiedBudget.Max == modMax
		if !canonical && !unchanged {
			d.patch["modified_budget_min"] = modMin
			d.patch["modified_budget_max"] = modMax
			d.changed = append(d.changed, "modified_budget")
		}
	}

	if u.NoOfPositions != nil {
		if *u.NoOfPositions < 0 {
			return nil, nil, apperrors.InvalidInput("positions cannot be negative", nil)
		}
		if *u.NoOfPositions != job.NoOfPositions {
			d.set("no_of_positions", "no_of_positions", *u.NoOfPositions)
		}
	}
	if u.ReferralAmount != nil && *u.ReferralAmount < 0 {
		return nil, nil, apperrors.InvalidInput("referral amount cannot be negative", nil)
	}
	diffFloat(d, "referral_amount", "referral_amount", u.ReferralAmount, job.ReferralAmount)

	if u.Status != nil {
		if !u.Status.Valid() {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unknown job status %q", *u.Status), nil)
		}
		if *u.Status != job.Status {
			d.set("status", "status", *u.Status)
		}
	}
	if u.Visibility != nil {
		if !u.Visibility.Valid() {
			return nil, nil, apperrors.InvalidInput(fmt.Sprintf("unknown visibility %q", *u.Visibility), nil)
		}
		if *u.Visibility != job.Visibility {
			d.set("visibility", "visibility", *u.Visibility)
		}
	}
	if u.EndDate != nil && (job.EndDate == nil || !u.EndDate.Equal(*job.EndDate)) {
		end := u.EndDate.UTC()
		d.set("end_date", "end_date", &end)
	}

	if len(d.patch) == 0 {
		return job, []string{}, nil
	}
	updated, err := s.store.UpdateJob(ctx, job.ID, d.patch, s.clock())
	if err != nil {
		return nil, nil, err
	}
	sort.Strings(d.changed)
	s.logger.Info("job updated", zap.String("job_code", job.JobCode), zap.Strings("fields", d.changed))
	return updated, d.changed, nil
}

// SweepExpiredJobs retires Active jobs whose end date has passed
func (s *Service) SweepExpiredJobs(ctx context.Context) (int64, error) {
	ctx, span := tracer.Start(ctx, "Service.SweepExpiredJobs")
	defer span.End()

	n, err := s.store.DeactivateExpiredJobs(ctx, s.clock())
	if err != nil {
		span.RecordError(err)
		return 0, err
	}
	span.SetAttributes(telemetry.Int("jobs.deactivated", int(n)))
	if n > 0 {
		s.logger.Info("expired jobs deactivated", zap.Int64("count", n))
	}
	return n, nil
}
