package requisition

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/internal/pipeline"
	"github.com/khrees2412/talentflow/internal/sequence"
	"github.com/khrees2412/talentflow/pkg/models"
)

var testNow = time.Date(2025, 5, 1, 12, 0, 0, 0, time.UTC)

type fakeNotifier struct {
	mu            sync.Mutex
	notifications []models.Notification
}

func (f *fakeNotifier) Notify(_ context.Context, n models.Notification) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.notifications = append(f.notifications, n)
}

func (f *fakeNotifier) SendEmail(context.Context, notify.Email) (notify.Receipt, error) {
	return notify.Receipt{Rejected: []string{}}, nil
}

func (f *fakeNotifier) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.notifications)
}

type harness struct {
	svc      *Service
	store    *database.Store
	notifier *fakeNotifier
	reg      *pipeline.Service
	bu       *models.User
	ta       *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	clock := func() time.Time { return testNow }
	n := &fakeNotifier{}
	reg := pipeline.NewService(store, n, pipeline.DefaultConfig(), zap.NewNop(), pipeline.WithClock(clock))
	h := &harness{
		store:    store,
		notifier: n,
		reg:      reg,
		svc:      NewService(store, sequence.NewStore(store), n, reg, zap.NewNop(), WithClock(clock)),
		bu:       &models.User{ID: "bu-1", FirstName: "Bina", LastName: "Unni", Role: models.RoleBU},
		ta:       &models.User{ID: "ta-1", FirstName: "Tara", LastName: "Iyer", Role: models.RoleTA},
	}
	if _, err := h.svc.RegisterOrganization(context.Background(), "Acme"); err != nil {
		t.Fatalf("RegisterOrganization: %v", err)
	}
	return h
}

func jobInput(title string, referral float64) JobInput {
	return JobInput{
		Title:            title,
		OrganizationName: "Acme",
		Location:         "Pune",
		Description:      "Build and run payment services",
		Domains:          []string{"fintech"},
		Skills:           []string{"go", "postgres"},
		ExperienceMin:    2,
		ExperienceMax:    5,
		BudgetMin:        10,
		BudgetMax:        20,
		ReferralAmount:   referral,
	}
}

func (h *harness) job(t *testing.T, title string, referral float64) *models.Job {
	t.Helper()
	j, err := h.svc.CreateJob(context.Background(), jobInput(title, referral), h.bu)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	return j
}

func (h *harness) candidate(t *testing.T, n int) *models.Candidate {
	t.Helper()
	c, err := h.reg.Register(context.Background(), pipeline.KindDummy, pipeline.Registration{
		FirstName: fmt.Sprintf("Cand%d", n),
		LastName:  "Test",
		Email:     fmt.Sprintf("c%d@example.com", n),
		Mobile:    fmt.Sprintf("90000000%02d", n),
		Skills:    []string{"go"},
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return c
}

func TestCreateJob(t *testing.T) {
	h := newHarness(t)

	tests := []struct {
		name     string
		mutate   func(*JobInput)
		wantType apperrors.ErrorType
	}{
		{"valid", func(*JobInput) {}, ""},
		{"missing title", func(in *JobInput) { in.Title = " " }, apperrors.ErrTypeInvalidInput},
		{"no domains", func(in *JobInput) { in.Domains = []string{""} }, apperrors.ErrTypeInvalidInput},
		{"unknown organization", func(in *JobInput) { in.OrganizationName = "Globex" }, apperrors.ErrTypeNotFound},
		{"bad visibility", func(in *JobInput) { in.Visibility = "public" }, apperrors.ErrTypeInvalidInput},
		{"inverted budget", func(in *JobInput) { in.BudgetMin = 30 }, apperrors.ErrTypeInvalidInput},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := jobInput("Backend Engineer", 100)
			tt.mutate(&in)
			job, err := h.svc.CreateJob(context.Background(), in, h.bu)
			if tt.wantType != "" {
				if !apperrors.Is(err, tt.wantType) {
					t.Fatalf("expected %s, got %v", tt.wantType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("CreateJob: %v", err)
			}
			if job.JobCode != "JOB-2025-0001" || job.Status != models.JobActive || job.Visibility != models.VisibilityAll {
				t.Errorf("unexpected job: %+v", job)
			}
			if job.CreatedBy != "bu-1" || job.OrganizationName != "Acme" {
				t.Errorf("creator or organization not recorded: %+v", job)
			}
		})
	}
}

func TestCreateJobConcurrentCodes(t *testing.T) {
	h := newHarness(t)
	const n = 12

	codes := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			j, err := h.svc.CreateJob(context.Background(), jobInput(fmt.Sprintf("Role %d", i), 0), h.bu)
			errs[i] = err
			if err == nil {
				codes[i] = j.JobCode
			}
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("CreateJob %d: %v", i, err)
		}
	}
	sort.Strings(codes)
	for i, code := range codes {
		if want := fmt.Sprintf("JOB-2025-%04d", i+1); code != want {
			t.Errorf("codes[%d] = %s, want %s", i, code, want)
		}
	}
}

func ptr[T any](v T) *T { return &v }

func TestUpdateJob(t *testing.T) {
	h := newHarness(t)
	job := h.job(t, "Backend Engineer", 100)
	ctx := context.Background()

	tests := []struct {
		name        string
		update      JobUpdate
		wantChanged []string
		wantType    apperrors.ErrorType
	}{
		{"no-op", JobUpdate{Title: ptr("Backend Engineer"), Skills: []string{"go", "postgres"}}, []string{}, ""},
		{"title and positions", JobUpdate{Title: ptr("Senior Backend Engineer"), NoOfPositions: ptr(3)}, []string{"no_of_positions", "title"}, ""},
		{"modified budget", JobUpdate{ModifiedBudgetMin: ptr(12.0), ModifiedBudgetMax: ptr(18.0)}, []string{"modified_budget"}, ""},
		{"same modified budget", JobUpdate{ModifiedBudgetMin: ptr(12.0), ModifiedBudgetMax: ptr(18.0)}, []string{}, ""},
		{"inverted modified budget", JobUpdate{ModifiedBudgetMin: ptr(25.0), ModifiedBudgetMax: ptr(18.0)}, nil, apperrors.ErrTypeInvalidInput},
		{"negative modified budget", JobUpdate{ModifiedBudgetMin: ptr(-1.0)}, nil, apperrors.ErrTypeInvalidInput},
		{"bad status", JobUpdate{Status: ptr(models.JobStatus("Closed"))}, nil, apperrors.ErrTypeInvalidInput},
		{"status", JobUpdate{Status: ptr(models.JobOnHold)}, []string{"status"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, changed, err := h.svc.UpdateJob(ctx, job.JobCode, tt.update)
			if tt.wantType != "" {
				if !apperrors.Is(err, tt.wantType) {
					t.Fatalf("expected %s, got %v", tt.wantType, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("UpdateJob: %v", err)
			}
			if fmt.Sprint(changed) != fmt.Sprint(tt.wantChanged) {
				t.Errorf("changed = %v, want %v", changed, tt.wantChanged)
			}
			if got == nil {
				t.Fatal("expected job")
			}
		})
	}

	final, err := h.svc.GetJob(ctx, job.JobCode)
	if err != nil {
		t.Fatalf("GetJob: %v", err)
	}
	if final.ModifiedBudget == nil || final.ModifiedBudget.Min != 12 || final.ModifiedBudget.Max != 18 {
		t.Errorf("modified budget not stored: %+v", final.ModifiedBudget)
	}
	if final.Title != "Senior Backend Engineer" || final.Status != models.JobOnHold {
		t.Errorf("unexpected final job: %+v", final)
	}
}

func TestUpdateJobCanonicalModifiedBudget(t *testing.T) {
	h := newHarness(t)
	job := h.job(t, "Backend Engineer", 100)

	_, changed, err := h.svc.UpdateJob(context.Background(), job.JobCode, JobUpdate{ModifiedBudgetMin: ptr(10.0), ModifiedBudgetMax: ptr(20.0)})
	if err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if len(changed) != 0 {
		t.Errorf("a modified budget equal to the canonical one should not be written, got %v", changed)
	}
}

func TestReferCandidatesIdempotent(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.job(t, "Backend Engineer", 100)
	c1, c2 := h.candidate(t, 1), h.candidate(t, 2)

	report, err := h.svc.ReferCandidates(ctx, job.JobCode, []string{c1.ID, c2.ID}, "", h.ta, false)
	if err != nil {
		t.Fatalf("ReferCandidates: %v", err)
	}
	if len(report.Added) != 2 || len(report.Skipped) != 0 {
		t.Errorf("unexpected first report: %+v", report)
	}

	report, err = h.svc.ReferCandidates(ctx, job.JobCode, []string{c1.ID, c1.ID}, "", h.ta, false)
	if err != nil {
		t.Fatalf("ReferCandidates: %v", err)
	}
	if len(report.Added) != 0 || len(report.Skipped) != 1 || report.Skipped[0] != c1.ID {
		t.Errorf("unexpected second report: %+v", report)
	}

	refs, err := h.svc.Referrals(ctx, job.JobCode)
	if err != nil {
		t.Fatalf("Referrals: %v", err)
	}
	if len(refs) != 2 {
		t.Errorf("expected 2 referral entries, got %d", len(refs))
	}

	got, _ := h.store.GetCandidate(ctx, c1.ID)
	if !got.IsReferred || len(got.JobsReferred) != 1 || got.JobsReferred[0] != job.ID {
		t.Errorf("candidate referral set wrong: referred=%v jobs=%v", got.IsReferred, got.JobsReferred)
	}
	if h.notifier.count() != 0 {
		t.Errorf("TA referrals do not notify")
	}

	if _, err := h.svc.ReferCandidates(ctx, job.JobCode, []string{"missing"}, "", h.ta, false); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found for unknown candidate, got %v", err)
	}
}

func TestReferCandidatesByBU(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.job(t, "Backend Engineer", 100)
	c1 := h.candidate(t, 1)

	if _, err := h.svc.ReferCandidates(ctx, job.JobCode, []string{c1.ID}, "", h.ta, true); !apperrors.Is(err, apperrors.ErrTypeUnauthorized) {
		t.Fatalf("expected unauthorized for TA pre-approval, got %v", err)
	}

	if _, err := h.svc.ReferCandidates(ctx, job.JobCode, []string{c1.ID}, "hr-7", h.bu, true); err != nil {
		t.Fatalf("ReferCandidates: %v", err)
	}
	refs, _ := h.svc.Referrals(ctx, job.JobCode)
	if len(refs) != 1 || !refs[0].ApprovedByBU || refs[0].AddedBy != "hr-7" || refs[0].BUApprovedBy != "bu-1" {
		t.Errorf("unexpected referral: %+v", refs)
	}
	if h.notifier.count() != 1 || h.notifier.notifications[0].ReceiverID != job.CreatedBy {
		t.Errorf("BU referral should notify the job creator once: %+v", h.notifier.notifications)
	}
}

func TestApproveCandidatesBulk(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.job(t, "Backend Engineer", 100)
	c1, c2, c3 := h.candidate(t, 1), h.candidate(t, 2), h.candidate(t, 3)

	if _, err := h.svc.ReferCandidates(ctx, job.JobCode, []string{c1.ID, c3.ID}, "", h.ta, false); err != nil {
		t.Fatalf("ReferCandidates: %v", err)
	}
	n, err := h.svc.ApproveCandidates(ctx, job.JobCode, []string{c1.ID, c2.ID, c3.ID}, h.bu)
	if err != nil {
		t.Fatalf("ApproveCandidates: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 approvals, got %d", n)
	}
	if h.notifier.count() != 1 {
		t.Errorf("expected exactly one notification, got %d", h.notifier.count())
	}

	refs, _ := h.svc.Referrals(ctx, job.JobCode)
	if len(refs) != 2 {
		t.Fatalf("non-members must not be added, got %d entries", len(refs))
	}
	for _, r := range refs {
		if !r.ApprovedByBU || r.BUApprovedBy != "bu-1" || r.BUApprovalDate == nil {
			t.Errorf("referral not approved: %+v", r)
		}
	}
}

func TestListReferralViews(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.job(t, "Backend Engineer", 100)

	var ids []string
	for i := 1; i <= 5; i++ {
		ids = append(ids, h.candidate(t, i).ID)
	}
	if _, err := h.svc.ReferCandidates(ctx, job.JobCode, ids, "", h.ta, false); err != nil {
		t.Fatalf("ReferCandidates: %v", err)
	}
	if _, err := h.svc.ApproveCandidates(ctx, job.JobCode, ids[:1], h.bu); err != nil {
		t.Fatalf("ApproveCandidates: %v", err)
	}
	for _, id := range ids[:2] {
		if _, err := h.store.UpdateCandidate(ctx, id, database.CandidatePatch{"status": models.StatusShortlisted}, testNow); err != nil {
			t.Fatalf("UpdateCandidate: %v", err)
		}
	}

	page, total, err := h.svc.ListReferredPending(ctx, job.JobCode, database.ReferralQuery{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListReferredPending: %v", err)
	}
	if total != 4 || len(page) != 2 {
		t.Errorf("expected page of 2 out of 4, got %d of %d", len(page), total)
	}

	found, total, err := h.svc.ListReferredPending(ctx, job.JobCode, database.ReferralQuery{Search: "c3@"})
	if err != nil {
		t.Fatalf("ListReferredPending search: %v", err)
	}
	if total != 1 || len(found) != 1 || found[0].Email != "c3@example.com" {
		t.Errorf("search returned %+v (total %d)", found, total)
	}

	if _, _, err := h.svc.ListReferredPending(ctx, job.JobCode, database.ReferralQuery{CandidateType: "alien"}); !apperrors.Is(err, apperrors.ErrTypeInvalidInput) {
		t.Errorf("expected invalid candidate type, got %v", err)
	}

	all, err := h.svc.ListShortlisted(ctx, job.JobCode, false)
	if err != nil {
		t.Fatalf("ListShortlisted: %v", err)
	}
	if len(all) != 2 {
		t.Errorf("expected 2 shortlisted, got %d", len(all))
	}
	approved, err := h.svc.ListShortlisted(ctx, job.JobCode, true)
	if err != nil {
		t.Fatalf("ListShortlisted: %v", err)
	}
	if len(approved) != 1 || approved[0].CandidateID != ids[0] || approved[0].FirstName != "Cand1" {
		t.Errorf("unexpected approved shortlist: %+v", approved)
	}
	if approved[0].MatchScore <= 0 {
		t.Errorf("expected a match score, got %v", approved[0].MatchScore)
	}
}

func TestReferFromVendor(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	job := h.job(t, "Backend Engineer", 100)

	vendor := &models.User{ID: "v-1", FirstName: "Vik", LastName: "Shah", Email: "vik@agency.com", Role: models.RoleVendor, CreatedAt: testNow}
	if err := h.store.CreateUser(ctx, vendor); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := h.store.CreateUser(ctx, &models.User{ID: "ta-1", FirstName: "Tara", Email: "tara@example.com", Role: models.RoleTA, CreatedAt: testNow}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	vc := VendorCandidate{FirstName: "Nia", LastName: "Das", Email: "nia@example.com", Mobile: "9111111111", Resume: "https://r/nia.pdf"}

	if _, err := h.svc.ReferFromVendor(ctx, job.JobCode, "ta-1", vc); !apperrors.Is(err, apperrors.ErrTypeUnauthorized) {
		t.Fatalf("expected unauthorized for non-vendor, got %v", err)
	}

	c, err := h.svc.ReferFromVendor(ctx, job.JobCode, "v-1", vc)
	if err != nil {
		t.Fatalf("ReferFromVendor: %v", err)
	}
	if c.CandidateType != models.CandidateVendor || !c.VendorReferred || c.VendorManagerID != "v-1" {
		t.Errorf("vendor candidate not seeded: %+v", c)
	}
	if !c.HasReferral(job.ID) {
		t.Errorf("candidate not attached to job")
	}

	if _, err := h.svc.ReferFromVendor(ctx, job.JobCode, "v-1", vc); !apperrors.Is(err, apperrors.ErrTypeConflict) {
		t.Errorf("expected conflict on double referral, got %v", err)
	}

	other := h.job(t, "Data Engineer", 100)
	again, err := h.svc.ReferFromVendor(ctx, other.JobCode, "v-1", vc)
	if err != nil {
		t.Fatalf("attach existing candidate: %v", err)
	}
	if again.ID != c.ID || len(again.JobsReferred) != 2 {
		t.Errorf("existing candidate should be attached, got %+v", again)
	}
}

func TestAccrueIncentiveRecomputes(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	freelancer := &models.User{ID: "f-1", FirstName: "Farah", Role: models.RoleFreelancer}

	j1 := h.job(t, "J1", 500)
	j2 := h.job(t, "J2", 300)
	j3 := h.job(t, "J3", 100)

	for _, j := range []*models.Job{j1, j2} {
		if _, _, err := h.svc.AccrueIncentive(ctx, j.JobCode, freelancer); err != nil {
			t.Fatalf("AccrueIncentive: %v", err)
		}
	}
	inc, err := h.svc.Incentive(ctx, "f-1")
	if err != nil {
		t.Fatalf("Incentive: %v", err)
	}
	if inc.IncentiveAmount != 800 {
		t.Errorf("expected 800, got %v", inc.IncentiveAmount)
	}

	if _, _, err := h.svc.UpdateJob(ctx, j1.JobCode, JobUpdate{ReferralAmount: ptr(700.0)}); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	inc, linked, err := h.svc.AccrueIncentive(ctx, j3.JobCode, freelancer)
	if err != nil {
		t.Fatalf("AccrueIncentive: %v", err)
	}
	if !linked || inc.IncentiveAmount != 1100 || len(inc.JobIDs) != 3 {
		t.Errorf("expected 1100 over 3 jobs, got %v over %v", inc.IncentiveAmount, inc.JobIDs)
	}

	inc, linked, err = h.svc.AccrueIncentive(ctx, j3.JobCode, freelancer)
	if err != nil {
		t.Fatalf("AccrueIncentive repeat: %v", err)
	}
	if linked || inc.IncentiveAmount != 1100 || len(inc.JobIDs) != 3 {
		t.Errorf("repeat link must not change the set: linked=%v amount=%v", linked, inc.IncentiveAmount)
	}

	if _, _, err := h.svc.AccrueIncentive(ctx, j1.JobCode, h.ta); !apperrors.Is(err, apperrors.ErrTypeUnauthorized) {
		t.Errorf("expected unauthorized for non-freelancer, got %v", err)
	}
	if _, err := h.svc.Incentive(ctx, "nobody"); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestSweepExpiredJobs(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()

	expired := jobInput("Expired", 0)
	past := testNow.Add(-time.Hour)
	expired.EndDate = &past
	old, err := h.svc.CreateJob(ctx, expired, h.bu)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}
	live := jobInput("Live", 0)
	future := testNow.AddDate(0, 1, 0)
	live.EndDate = &future
	fresh, err := h.svc.CreateJob(ctx, live, h.bu)
	if err != nil {
		t.Fatalf("CreateJob: %v", err)
	}

	n, err := h.svc.SweepExpiredJobs(ctx)
	if err != nil {
		t.Fatalf("SweepExpiredJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 job deactivated, got %d", n)
	}
	if got, _ := h.svc.GetJob(ctx, old.JobCode); got.Status != models.JobInactive {
		t.Errorf("expired job status = %s", got.Status)
	}
	if got, _ := h.svc.GetJob(ctx, fresh.JobCode); got.Status != models.JobActive {
		t.Errorf("live job status = %s", got.Status)
	}
}

func TestSweeperStopsOnCancel(t *testing.T) {
	h := newHarness(t)
	sweeper := NewSweeper(h.svc, time.Hour, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- sweeper.Start(ctx) }()
	cancel()

	select {
	case err := <-done:
		if err != context.Canceled {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("sweeper did not stop")
	}
	if sweeper.Running() {
		t.Error("sweeper should not be running after Start returns")
	}
}

func TestMatchScore(t *testing.T) {
	job := &models.Job{Skills: []string{"Go", "Postgres"}, ExperienceMin: 2, ExperienceMax: 5, Location: "Pune, India"}

	tests := []struct {
		name string
		c    *models.Candidate
		want float64
	}{
		{"perfect", &models.Candidate{Skills: []string{"go", "postgres"}, TotalExperience: 3, Location: "Pune"}, 1},
		{"half skills", &models.Candidate{Skills: []string{"go"}, TotalExperience: 3, Location: "Pune"}, 0.7},
		{"no skills", &models.Candidate{TotalExperience: 3, Location: "Pune"}, 0.4},
		{"far outside range", &models.Candidate{Skills: []string{"go", "postgres"}, TotalExperience: 10, Location: "Pune"}, 0.75},
		{"same country", &models.Candidate{Skills: []string{"go", "postgres"}, TotalExperience: 3, Location: "Chennai, India"}, 0.94},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchScore(job, tt.c); got != tt.want {
				t.Errorf("MatchScore = %v, want %v", got, tt.want)
			}
		})
	}
}
