package interview

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/khrees2412/talentflow/internal/database"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/internal/notify"
	"github.com/khrees2412/talentflow/pkg/models"
)

var testNow = time.Date(2025, 7, 14, 9, 30, 0, 0, time.UTC)

type fakeMailer struct {
	mu     sync.Mutex
	sent   []notify.Email
	failTo map[string]bool
}

func (f *fakeMailer) SendEmail(_ context.Context, e notify.Email) (notify.Receipt, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, e)
	for _, to := range e.To {
		if f.failTo[to] {
			return notify.Receipt{Rejected: e.To}, apperrors.Delivery("recipient rejected", errors.New(to))
		}
	}
	return notify.Receipt{Rejected: []string{}}, nil
}

func (f *fakeMailer) templates() map[notify.TemplateKey]notify.Email {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := map[notify.TemplateKey]notify.Email{}
	for _, e := range f.sent {
		out[e.Template] = e
	}
	return out
}

type harness struct {
	svc    *Service
	store  *database.Store
	mailer *fakeMailer
	now    time.Time
	actor  *models.User
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { store.Close() })

	h := &harness{
		store:  store,
		mailer: &fakeMailer{failTo: map[string]bool{}},
		now:    testNow,
		actor:  &models.User{ID: "ta-1", FirstName: "Tara", Role: models.RoleTA},
	}
	h.svc = NewService(store, h.mailer, "https://talent.example.com/", zap.NewNop(), WithClock(func() time.Time { return h.now }))
	return h
}

func (h *harness) candidate(t *testing.T) *models.Candidate {
	t.Helper()
	c := &models.Candidate{
		ID:            "cand-1",
		FirstName:     "Asha",
		LastName:      "Rao",
		Email:         "asha@example.com",
		Mobile:        "9000000001",
		CandidateType: models.CandidateExternal,
		Resume:        "https://files.example.com/asha.pdf",
		Skills:        []string{"go"},
		Status:        models.StatusShortlisted,
		Remarks:       []models.Remark{},
		JobsReferred:  []string{},
		CreatedAt:     testNow,
		UpdatedAt:     testNow,
	}
	if err := h.store.CreateCandidate(context.Background(), c); err != nil {
		t.Fatalf("CreateCandidate: %v", err)
	}
	return c
}

func input(round, link string) EventInput {
	return EventInput{
		Candidate:     models.CandidateSnapshot{CandidateID: "cand-1"},
		Interviewer:   models.Interviewer{InterviewerID: "int-1", Name: "Ivan", Email: "ivan@example.com"},
		Organization:  models.OrgSnapshot{CompanyID: "org-1", Name: "Acme"},
		EventName:     round,
		InterviewDate: testNow.Add(48 * time.Hour),
		MeetingLink:   link,
	}
}

func (h *harness) create(t *testing.T, round, link string) *models.Event {
	t.Helper()
	e, err := h.svc.Create(context.Background(), input(round, link), h.actor)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	return e
}

func TestCreateValidation(t *testing.T) {
	h := newHarness(t)
	h.candidate(t)

	tests := []struct {
		name     string
		mutate   func(*EventInput)
		actor    *models.User
		wantType apperrors.ErrorType
	}{
		{"missing interviewer email", func(in *EventInput) { in.Interviewer.Email = "" }, h.actor, apperrors.ErrTypeInvalidInput},
		{"missing date", func(in *EventInput) { in.InterviewDate = time.Time{} }, h.actor, apperrors.ErrTypeInvalidInput},
		{"missing organization", func(in *EventInput) { in.Organization = models.OrgSnapshot{} }, h.actor, apperrors.ErrTypeInvalidInput},
		{"no scheduler", func(*EventInput) {}, nil, apperrors.ErrTypeInvalidInput},
		{"unknown candidate", func(in *EventInput) { in.Candidate.CandidateID = "ghost" }, h.actor, apperrors.ErrTypeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := input("Technical", "https://meet.example.com/x")
			tt.mutate(&in)
			if _, err := h.svc.Create(context.Background(), in, tt.actor); !apperrors.Is(err, tt.wantType) {
				t.Errorf("expected %s, got %v", tt.wantType, err)
			}
		})
	}

	events, err := h.svc.ListForCandidate(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("ListForCandidate: %v", err)
	}
	if len(events) != 0 || len(h.mailer.sent) != 0 {
		t.Errorf("failed validation must not store or send: %d events, %d emails", len(events), len(h.mailer.sent))
	}
}

func TestCreateEmailVariants(t *testing.T) {
	tests := []struct {
		round           string
		link            string
		wantLink        string
		wantCandidate   notify.TemplateKey
		wantInterviewer notify.TemplateKey
		wantFeedback    string
	}{
		{"Technical", "https://meet.example.com/abc", "https://meet.example.com/abc", notify.TemplateInterviewCandidate, notify.TemplateInterviewInterviewer, "/feedback/technical/"},
		{"Technical", "", "", notify.TemplateInterviewCandidateNL, notify.TemplateInterviewScreening, "/feedback/technical/"},
		{"Screening", "https://meet.example.com/abc", "", notify.TemplateInterviewCandidateNL, notify.TemplateInterviewScreening, "/feedback/screening/"},
		{"Orientation", "", "", notify.TemplateInterviewCandidateNL, notify.TemplateInterviewScreening, "/feedback/screening/"},
	}

	for _, tt := range tests {
		t.Run(tt.round+"/"+tt.link, func(t *testing.T) {
			h := newHarness(t)
			h.candidate(t)
			e := h.create(t, tt.round, tt.link)

			if e.MeetingLink != tt.wantLink {
				t.Errorf("meeting link = %q, want %q", e.MeetingLink, tt.wantLink)
			}
			if e.Status != models.EventPending || e.ScheduledBy != "ta-1" {
				t.Errorf("unexpected event: %+v", e)
			}
			if e.Candidate.Name != "Asha Rao" || e.Candidate.Resume == "" {
				t.Errorf("candidate snapshot not filled: %+v", e.Candidate)
			}

			sent := h.mailer.templates()
			if len(h.mailer.sent) != 2 {
				t.Fatalf("expected 2 emails, got %d", len(h.mailer.sent))
			}
			toCandidate, ok := sent[tt.wantCandidate]
			if !ok || toCandidate.To[0] != "asha@example.com" {
				t.Errorf("candidate email missing: %+v", sent)
			}
			toInterviewer, ok := sent[tt.wantInterviewer]
			if !ok || toInterviewer.To[0] != "ivan@example.com" {
				t.Errorf("interviewer email missing: %+v", sent)
			}
			want := "https://talent.example.com" + tt.wantFeedback + e.ID
			if toInterviewer.Variables["feedback_link"] != want {
				t.Errorf("feedback link = %q, want %q", toInterviewer.Variables["feedback_link"], want)
			}
		})
	}
}

func TestCreateEmailFailures(t *testing.T) {
	tests := []struct {
		name     string
		failTo   []string
		wantErrs []string
	}{
		{"interviewer only", []string{"ivan@example.com"}, []string{string(notify.TemplateInterviewInterviewer)}},
		{"both", []string{"ivan@example.com", "asha@example.com"}, []string{
			string(notify.TemplateInterviewInterviewer), string(notify.TemplateInterviewCandidate),
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.candidate(t)
			for _, to := range tt.failTo {
				h.mailer.failTo[to] = true
			}

			e, err := h.svc.Create(context.Background(), input("Technical", "https://meet.example.com/x"), h.actor)
			if !apperrors.IsDelivery(err) {
				t.Fatalf("expected delivery error, got %v", err)
			}
			if e == nil {
				t.Fatal("event must be returned with a delivery error")
			}
			if len(h.mailer.sent) != 2 {
				t.Errorf("both emails must be attempted, got %d", len(h.mailer.sent))
			}
			for _, want := range tt.wantErrs {
				if !strings.Contains(err.Error(), want) {
					t.Errorf("error %q does not mention %s", err, want)
				}
			}
			if _, err := h.svc.Get(context.Background(), e.ID); err != nil {
				t.Errorf("event should be stored: %v", err)
			}
		})
	}
}

func TestUpdate(t *testing.T) {
	later := testNow.Add(72 * time.Hour)
	link := "https://meet.example.com/new"
	screening := "Screening"

	tests := []struct {
		name       string
		round      string
		initial    string
		update     EventUpdate
		wantLink   string
		wantEmails []notify.TemplateKey
	}{
		{"date only", "Technical", "https://meet.example.com/x", EventUpdate{InterviewDate: &later},
			"https://meet.example.com/x", []notify.TemplateKey{notify.TemplateRescheduleInterviewer}},
		{"new link", "Technical", "https://meet.example.com/x", EventUpdate{InterviewDate: &later, MeetingLink: &link},
			link, []notify.TemplateKey{notify.TemplateRescheduleInterviewer, notify.TemplateRescheduleCandidate}},
		{"link stripped on screening", "Screening", "", EventUpdate{InterviewDate: &later, MeetingLink: &link},
			"", []notify.TemplateKey{notify.TemplateRescheduleInterviewer}},
		{"renamed to screening clears link", "Technical", "https://meet.example.com/x", EventUpdate{EventName: &screening},
			"", []notify.TemplateKey{notify.TemplateRescheduleInterviewer}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.candidate(t)
			e := h.create(t, tt.round, tt.initial)
			h.mailer.sent = nil

			got, err := h.svc.Update(context.Background(), e.ID, tt.update)
			if err != nil {
				t.Fatalf("Update: %v", err)
			}
			if got.MeetingLink != tt.wantLink {
				t.Errorf("meeting link = %q, want %q", got.MeetingLink, tt.wantLink)
			}
			if tt.update.InterviewDate != nil && !got.InterviewDate.Equal(later) {
				t.Errorf("interview date not updated: %v", got.InterviewDate)
			}
			sent := h.mailer.templates()
			if len(h.mailer.sent) != len(tt.wantEmails) {
				t.Fatalf("expected %d emails, got %d", len(tt.wantEmails), len(h.mailer.sent))
			}
			for _, key := range tt.wantEmails {
				if _, ok := sent[key]; !ok {
					t.Errorf("missing %s email", key)
				}
			}
		})
	}
}

func TestUpdateMissingEvent(t *testing.T) {
	h := newHarness(t)
	later := testNow.Add(time.Hour)
	if _, err := h.svc.Update(context.Background(), "ghost", EventUpdate{InterviewDate: &later}); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found, got %v", err)
	}
}

func TestCanMove(t *testing.T) {
	tests := []struct {
		from, to models.EventStatus
		want     bool
	}{
		{models.EventPending, models.EventSubmitted, true},
		{models.EventPending, models.EventApproved, true},
		{models.EventPending, models.EventRejected, true},
		{models.EventSubmitted, models.EventApproved, true},
		{models.EventSubmitted, models.EventRejected, true},
		{models.EventSubmitted, models.EventPending, false},
		{models.EventApproved, models.EventRejected, false},
		{models.EventRejected, models.EventSubmitted, false},
	}
	for _, tt := range tests {
		if got := CanMove(tt.from, tt.to); got != tt.want {
			t.Errorf("CanMove(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
		}
	}
}

func TestSetStatus(t *testing.T) {
	tests := []struct {
		name          string
		steps         []models.EventStatus
		wantType      apperrors.ErrorType
		wantEmail     notify.TemplateKey
		wantCandidate models.CandidateStatus
	}{
		{"submitted", []models.EventStatus{models.EventSubmitted}, "", "", models.StatusShortlisted},
		{"approved", []models.EventStatus{models.EventSubmitted, models.EventApproved}, "", notify.TemplateRoundApproved, models.StatusShortlisted},
		{"rejected", []models.EventStatus{models.EventRejected}, "", notify.TemplateRoundRejected, models.StatusRejected},
		{"terminal", []models.EventStatus{models.EventApproved, models.EventRejected}, apperrors.ErrTypeInvalidInput, notify.TemplateRoundApproved, models.StatusShortlisted},
		{"unknown", []models.EventStatus{"cancelled"}, apperrors.ErrTypeInvalidInput, "", models.StatusShortlisted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			h.candidate(t)
			e := h.create(t, "Technical", "https://meet.example.com/x")
			h.mailer.sent = nil

			var err error
			for _, status := range tt.steps {
				_, err = h.svc.SetStatus(context.Background(), e.ID, status, h.actor)
			}
			if tt.wantType != "" {
				if !apperrors.Is(err, tt.wantType) {
					t.Fatalf("expected %s, got %v", tt.wantType, err)
				}
			} else if err != nil {
				t.Fatalf("SetStatus: %v", err)
			}

			if tt.wantEmail == "" && len(h.mailer.sent) != 0 {
				t.Errorf("expected no email, got %d", len(h.mailer.sent))
			}
			if tt.wantEmail != "" {
				if len(h.mailer.sent) != 1 || h.mailer.sent[0].Template != tt.wantEmail {
					t.Errorf("expected one %s email, got %+v", tt.wantEmail, h.mailer.sent)
				}
			}

			c, _ := h.store.GetCandidate(context.Background(), "cand-1")
			if c.Status != tt.wantCandidate {
				t.Errorf("candidate status = %s, want %s", c.Status, tt.wantCandidate)
			}
			if tt.wantCandidate == models.StatusRejected && c.RejectedAt == nil {
				t.Error("rejection time not recorded")
			}
		})
	}
}

func TestListForCandidateNewestFirst(t *testing.T) {
	h := newHarness(t)
	h.candidate(t)

	first := h.create(t, "Screening", "")
	h.now = testNow.Add(time.Hour)
	second := h.create(t, "Technical", "https://meet.example.com/x")

	events, err := h.svc.ListForCandidate(context.Background(), "cand-1")
	if err != nil {
		t.Fatalf("ListForCandidate: %v", err)
	}
	if len(events) != 2 || events[0].ID != second.ID || events[1].ID != first.ID {
		t.Errorf("expected newest first, got %v", events)
	}
}

func TestDelete(t *testing.T) {
	h := newHarness(t)
	h.candidate(t)
	e := h.create(t, "Technical", "https://meet.example.com/x")
	ctx := context.Background()

	if err := h.svc.Delete(ctx, e.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := h.svc.Get(ctx, e.ID); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if err := h.svc.Delete(ctx, e.ID); !apperrors.Is(err, apperrors.ErrTypeNotFound) {
		t.Errorf("second delete should be not found, got %v", err)
	}
}
