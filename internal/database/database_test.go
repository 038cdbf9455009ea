package database

import (
	"context"
	"fmt"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

var testNow = time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)

// createTestStore creates a migrated store in a temporary directory
func createTestStore(t testing.TB) *Store {
	t.Helper()
	store, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func seedCandidate(t *testing.T, s *Store, id, email, mobile string) *models.Candidate {
	t.Helper()
	c := &models.Candidate{
		ID:            id,
		FirstName:     "Test",
		LastName:      id,
		Email:         email,
		Mobile:        mobile,
		CandidateType: models.CandidateExternal,
		Skills:        []string{"go", "sql"},
		Status:        models.StatusPending,
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if err := s.CreateCandidate(context.Background(), c); err != nil {
		t.Fatalf("failed to create candidate %s: %v", id, err)
	}
	return c
}

func seedJob(t *testing.T, s *Store, id, code string, referralAmount float64) *models.Job {
	t.Helper()
	ctx := context.Background()
	if _, err := s.GetOrganization(ctx, "org-1"); err != nil {
		org := &models.Organization{ID: "org-1", Name: "Acme", CreatedAt: testNow}
		if err := s.CreateOrganization(ctx, org); err != nil {
			t.Fatalf("failed to create organization: %v", err)
		}
	}
	j := &models.Job{
		ID:               id,
		JobCode:          code,
		Title:            "Backend Engineer",
		OrganizationID:   "org-1",
		OrganizationName: "Acme",
		Location:         "Remote",
		Description:      "Build services",
		Skills:           []string{"go"},
		NoOfPositions:    1,
		BudgetMin:        10,
		BudgetMax:        20,
		ReferralAmount:   referralAmount,
		Status:           models.JobActive,
		Visibility:       models.VisibilityAll,
		CreatedBy:        "ta-1",
		CreatedAt:        testNow,
		UpdatedAt:        testNow,
	}
	if err := s.CreateJob(ctx, j); err != nil {
		t.Fatalf("failed to create job %s: %v", id, err)
	}
	return j
}

func TestNextSequence(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.NextSequence(ctx, "job-2025")
		if err != nil {
			t.Fatalf("NextSequence: %v", err)
		}
		if got != want {
			t.Errorf("expected %d, got %d", want, got)
		}
	}

	got, err := s.NextSequence(ctx, "job-2026")
	if err != nil {
		t.Fatalf("NextSequence: %v", err)
	}
	if got != 1 {
		t.Errorf("new counter should start at 1, got %d", got)
	}
}

func TestNextSequenceConcurrent(t *testing.T) {
	s := createTestStore(t)
	const workers = 20

	var wg sync.WaitGroup
	results := make(chan int64, workers)
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.NextSequence(context.Background(), "job-2025")
			if err != nil {
				errs <- err
				return
			}
			results <- n
		}()
	}
	wg.Wait()
	close(results)
	close(errs)

	for err := range errs {
		t.Fatalf("NextSequence: %v", err)
	}
	var got []int
	for n := range results {
		got = append(got, int(n))
	}
	sort.Ints(got)
	for i, n := range got {
		if n != i+1 {
			t.Fatalf("sequence values not contiguous: %v", got)
		}
	}
}

func TestCreateCandidateUniqueContact(t *testing.T) {
	s := createTestStore(t)
	seedCandidate(t, s, "c1", "first@example.com", "9000000001")

	tests := []struct {
		name   string
		email  string
		mobile string
	}{
		{"duplicate email", "first@example.com", "9000000002"},
		{"duplicate mobile", "other@example.com", "9000000001"},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &models.Candidate{
				ID:            fmt.Sprintf("dup-%d", i),
				FirstName:     "Dup",
				Email:         tt.email,
				Mobile:        tt.mobile,
				CandidateType: models.CandidateExternal,
				Status:        models.StatusPending,
				CreatedAt:     testNow,
				UpdatedAt:     testNow,
			}
			err := s.CreateCandidate(context.Background(), c)
			if !apperrors.Is(err, apperrors.ErrTypeConflict) {
				t.Errorf("expected conflict, got %v", err)
			}
		})
	}
}

func TestUpdateCandidate(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	rejectedAt := testNow.Add(time.Hour)
	updated, err := s.UpdateCandidate(ctx, "c1", CandidatePatch{
		"status":      models.StatusRejected,
		"rejected_at": &rejectedAt,
		"skills":      []string{"rust"},
	}, rejectedAt)
	if err != nil {
		t.Fatalf("UpdateCandidate: %v", err)
	}
	if updated.Status != models.StatusRejected {
		t.Errorf("expected rejected, got %s", updated.Status)
	}
	if updated.RejectedAt == nil || !updated.RejectedAt.Equal(rejectedAt) {
		t.Errorf("rejected_at not persisted: %v", updated.RejectedAt)
	}
	if len(updated.Skills) != 1 || updated.Skills[0] != "rust" {
		t.Errorf("skills not persisted: %v", updated.Skills)
	}
	if updated.FirstName != "Test" {
		t.Errorf("untouched field changed: %q", updated.FirstName)
	}

	_, err = s.UpdateCandidate(ctx, "missing", CandidatePatch{"status": models.StatusBench}, testNow)
	if !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAppendRemark(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	for i, title := range []string{"first", "second", "third"} {
		r := models.Remark{Title: title, AuthorID: "ta-1", AuthorName: "Tara", Date: testNow.Add(time.Duration(i) * time.Minute)}
		if err := s.AppendRemark(ctx, "c1", r); err != nil {
			t.Fatalf("AppendRemark: %v", err)
		}
	}

	c, err := s.GetCandidate(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if len(c.Remarks) != 3 || c.Remarks[0].Title != "first" || c.Remarks[2].Title != "third" {
		t.Errorf("remarks out of order: %+v", c.Remarks)
	}

	err = s.AppendRemark(ctx, "missing", models.Remark{Title: "x", Date: testNow})
	if !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestAddReferralIdempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 0)
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	ref := models.Referral{JobID: "j1", CandidateID: "c1", AddedBy: "ta-1", AddedAt: testNow}
	added, err := s.AddReferral(ctx, ref)
	if err != nil || !added {
		t.Fatalf("first AddReferral: added=%v err=%v", added, err)
	}
	added, err = s.AddReferral(ctx, ref)
	if err != nil || added {
		t.Fatalf("second AddReferral: added=%v err=%v", added, err)
	}

	refs, err := s.ListReferrals(ctx, "j1")
	if err != nil {
		t.Fatalf("ListReferrals: %v", err)
	}
	if len(refs) != 1 {
		t.Errorf("expected 1 referral, got %d", len(refs))
	}
}

func TestAddCandidateJob(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 0)
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	for i, want := range []bool{true, false} {
		added, err := s.AddCandidateJob(ctx, "c1", "j1", testNow)
		if err != nil {
			t.Fatalf("AddCandidateJob #%d: %v", i, err)
		}
		if added != want {
			t.Errorf("AddCandidateJob #%d: expected added=%v", i, want)
		}
	}

	c, err := s.GetCandidate(ctx, "c1")
	if err != nil {
		t.Fatalf("GetCandidate: %v", err)
	}
	if !c.IsReferred || len(c.JobsReferred) != 1 || c.JobsReferred[0] != "j1" {
		t.Errorf("unexpected referred state: referred=%v jobs=%v", c.IsReferred, c.JobsReferred)
	}
}

func TestApproveReferrals(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 0)
	for i := 1; i <= 3; i++ {
		id := fmt.Sprintf("c%d", i)
		seedCandidate(t, s, id, id+"@example.com", fmt.Sprintf("900000000%d", i))
		if _, err := s.AddReferral(ctx, models.Referral{JobID: "j1", CandidateID: id, AddedBy: "ta-1", AddedAt: testNow}); err != nil {
			t.Fatalf("AddReferral: %v", err)
		}
	}

	n, err := s.ApproveReferrals(ctx, "j1", []string{"c1", "c2", "not-referred"}, "bu-1", testNow)
	if err != nil {
		t.Fatalf("ApproveReferrals: %v", err)
	}
	if n != 2 {
		t.Errorf("expected 2 approvals, got %d", n)
	}

	pending := false
	rows, total, err := s.ListReferredCandidates(ctx, "j1", ReferralQuery{ApprovedByBU: &pending})
	if err != nil {
		t.Fatalf("ListReferredCandidates: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Candidate.ID != "c3" {
		t.Errorf("expected only c3 pending, got total=%d rows=%d", total, len(rows))
	}

	approved := true
	rows, _, err = s.ListReferredCandidates(ctx, "j1", ReferralQuery{ApprovedByBU: &approved})
	if err != nil {
		t.Fatalf("ListReferredCandidates: %v", err)
	}
	for _, rc := range rows {
		if rc.Referral.BUApprovedBy != "bu-1" || rc.Referral.BUApprovalDate == nil {
			t.Errorf("approval metadata missing for %s", rc.Candidate.ID)
		}
	}
}

func TestListReferredCandidatesPaging(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 0)
	for i := 1; i <= 5; i++ {
		id := fmt.Sprintf("c%d", i)
		seedCandidate(t, s, id, id+"@example.com", fmt.Sprintf("900000000%d", i))
		ref := models.Referral{JobID: "j1", CandidateID: id, AddedBy: "ta-1", AddedAt: testNow.Add(time.Duration(i) * time.Second)}
		if _, err := s.AddReferral(ctx, ref); err != nil {
			t.Fatalf("AddReferral: %v", err)
		}
	}

	rows, total, err := s.ListReferredCandidates(ctx, "j1", ReferralQuery{Limit: 2, Offset: 2})
	if err != nil {
		t.Fatalf("ListReferredCandidates: %v", err)
	}
	if total != 5 {
		t.Errorf("expected total 5, got %d", total)
	}
	if len(rows) != 2 || rows[0].Candidate.ID != "c3" || rows[1].Candidate.ID != "c4" {
		t.Errorf("unexpected page: %d rows", len(rows))
	}

	rows, total, err = s.ListReferredCandidates(ctx, "j1", ReferralQuery{Search: "C2@EXAMPLE"})
	if err != nil {
		t.Fatalf("ListReferredCandidates: %v", err)
	}
	if total != 1 || len(rows) != 1 || rows[0].Candidate.ID != "c2" {
		t.Errorf("search should match only c2, got total=%d", total)
	}
}

func TestLinkIncentiveJob(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 800)
	seedJob(t, s, "j2", "JOB-2025-0002", 300)

	tests := []struct {
		job        string
		wantLinked bool
		wantAmount float64
	}{
		{"j1", true, 800},
		{"j2", true, 1100},
		{"j1", false, 1100},
	}

	for _, tt := range tests {
		linked, err := s.LinkIncentiveJob(ctx, "fl-1", tt.job, testNow)
		if err != nil {
			t.Fatalf("LinkIncentiveJob(%s): %v", tt.job, err)
		}
		if linked != tt.wantLinked {
			t.Errorf("LinkIncentiveJob(%s): expected linked=%v", tt.job, tt.wantLinked)
		}
		inc, err := s.GetIncentive(ctx, "fl-1")
		if err != nil {
			t.Fatalf("GetIncentive: %v", err)
		}
		if inc.IncentiveAmount != tt.wantAmount {
			t.Errorf("after %s: expected %.0f, got %.0f", tt.job, tt.wantAmount, inc.IncentiveAmount)
		}
	}

	if _, err := s.GetIncentive(ctx, "nobody"); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestDeactivateExpiredJobs(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedJob(t, s, "j1", "JOB-2025-0001", 0)
	seedJob(t, s, "j2", "JOB-2025-0002", 0)

	past := testNow.Add(-24 * time.Hour)
	future := testNow.Add(24 * time.Hour)
	if _, err := s.UpdateJob(ctx, "j1", JobPatch{"end_date": &past}, testNow); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}
	if _, err := s.UpdateJob(ctx, "j2", JobPatch{"end_date": &future}, testNow); err != nil {
		t.Fatalf("UpdateJob: %v", err)
	}

	n, err := s.DeactivateExpiredJobs(ctx, testNow)
	if err != nil {
		t.Fatalf("DeactivateExpiredJobs: %v", err)
	}
	if n != 1 {
		t.Errorf("expected 1 job deactivated, got %d", n)
	}
	j1, _ := s.GetJob(ctx, "j1")
	j2, _ := s.GetJob(ctx, "j2")
	if j1.Status != models.JobInactive || j2.Status != models.JobActive {
		t.Errorf("unexpected statuses: j1=%s j2=%s", j1.Status, j2.Status)
	}
}

func TestEventsNewestFirst(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	for i, name := range []string{"Screening", "Technical"} {
		e := &models.Event{
			ID:            fmt.Sprintf("e%d", i),
			Candidate:     models.CandidateSnapshot{CandidateID: "c1", Name: "Test", Email: "c1@example.com"},
			Interviewer:   models.Interviewer{InterviewerID: "u1", Name: "Ian", Email: "ian@example.com"},
			Organization:  models.OrgSnapshot{CompanyID: "org-1", Name: "Acme"},
			ScheduledBy:   "ta-1",
			EventName:     name,
			InterviewDate: testNow.Add(48 * time.Hour),
			Status:        models.EventPending,
			CreatedAt:     testNow.Add(time.Duration(i) * time.Hour),
			UpdatedAt:     testNow.Add(time.Duration(i) * time.Hour),
		}
		if err := s.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent: %v", err)
		}
	}

	events, err := s.ListEventsForCandidate(ctx, "c1")
	if err != nil {
		t.Fatalf("ListEventsForCandidate: %v", err)
	}
	if len(events) != 2 || events[0].EventName != "Technical" {
		t.Errorf("expected newest first, got %d events", len(events))
	}

	if err := s.DeleteEvent(ctx, "e0"); err != nil {
		t.Fatalf("DeleteEvent: %v", err)
	}
	if err := s.DeleteEvent(ctx, "e0"); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found on second delete, got %v", err)
	}
}

func TestOnboardingFormUnique(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	form := &models.OnboardingForm{ID: "f1", CandidateID: "c1", Email: "C1@example.com", FullName: "Test c1", SubmittedAt: testNow}
	if err := s.CreateOnboardingForm(ctx, form); err != nil {
		t.Fatalf("CreateOnboardingForm: %v", err)
	}
	dup := &models.OnboardingForm{ID: "f2", CandidateID: "c1", Email: "c1@example.com", SubmittedAt: testNow}
	if err := s.CreateOnboardingForm(ctx, dup); !apperrors.Is(err, apperrors.ErrTypeConflict) {
		t.Errorf("expected conflict, got %v", err)
	}

	got, err := s.GetOnboardingForm(ctx, "c1")
	if err != nil {
		t.Fatalf("GetOnboardingForm: %v", err)
	}
	if got.FullName != "Test c1" {
		t.Errorf("unexpected form: %+v", got)
	}

	deleted, err := s.DeleteOnboardingForm(ctx, "c1")
	if err != nil || !deleted {
		t.Fatalf("DeleteOnboardingForm: deleted=%v err=%v", deleted, err)
	}
}

func TestNotificationsMetadata(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	n := &models.Notification{
		ID:         "n1",
		Title:      "Candidate approved",
		SenderID:   "bu-1",
		ReceiverID: "ta-1",
		Priority:   models.PriorityHigh,
		EntityType: models.EntityBUNotification,
		Message:    "2 candidates approved",
		Metadata:   map[string]string{"job_id": "JOB-2025-0001"},
		CreatedAt:  testNow,
	}
	if err := s.CreateNotification(ctx, n); err != nil {
		t.Fatalf("CreateNotification: %v", err)
	}

	list, err := s.ListNotifications(ctx, NotificationFilter{ReceiverID: "ta-1", UnreadOnly: true})
	if err != nil {
		t.Fatalf("ListNotifications: %v", err)
	}
	if len(list) != 1 || list[0].Metadata["job_id"] != "JOB-2025-0001" {
		t.Fatalf("unexpected notifications: %+v", list)
	}

	if err := s.MarkNotificationRead(ctx, "n1"); err != nil {
		t.Fatalf("MarkNotificationRead: %v", err)
	}
	list, _ = s.ListNotifications(ctx, NotificationFilter{ReceiverID: "ta-1", UnreadOnly: true})
	if len(list) != 0 {
		t.Errorf("expected no unread notifications, got %d", len(list))
	}
}

// TestForeignKeyConstraint verifies foreign keys are enabled
func TestForeignKeyConstraint(t *testing.T) {
	s := createTestStore(t)
	seedCandidate(t, s, "c1", "c1@example.com", "9000000001")

	_, err := s.AddReferral(context.Background(), models.Referral{JobID: "missing", CandidateID: "c1", AddedBy: "ta-1", AddedAt: testNow})
	if err == nil {
		t.Error("should have failed due to foreign key constraint")
	}
}

// BenchmarkNextSequence benchmarks the atomic counter
func BenchmarkNextSequence(b *testing.B) {
	s := createTestStore(b)
	ctx := context.Background()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := s.NextSequence(ctx, "bench"); err != nil {
			b.Fatal(err)
		}
	}
}
