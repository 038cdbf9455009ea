package app

import (
	"context"
	"testing"
	"time"

	"github.com/khrees2412/talentflow/internal/config"
	apperrors "github.com/khrees2412/talentflow/internal/errors"
	"github.com/khrees2412/talentflow/pkg/models"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	cfg := config.Defaults(t.TempDir())
	cfg.LogFormat = "development"
	a, err := New(context.Background(), cfg)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewWiresServices(t *testing.T) {
	a := newTestApp(t)
	if a.Store == nil || a.Dispatcher == nil || a.Candidates == nil || a.Jobs == nil || a.Interviews == nil {
		t.Fatal("expected every service to be wired")
	}
	if a.NATS != nil {
		t.Error("NATS should stay disconnected without nats_url")
	}
	if a.LocalMailer == nil {
		t.Error("expected a local mailer")
	}
}

func TestActor(t *testing.T) {
	a := newTestApp(t)
	ctx := context.Background()

	if _, err := a.Actor(ctx, ""); !apperrors.Is(err, apperrors.ErrTypeUnauthorized) {
		t.Fatalf("expected unauthorized without an actor, got %v", err)
	}

	u := &models.User{ID: "ta-1", FirstName: "Tara", LastName: "Iyer", Email: "tara@example.com", Role: models.RoleTA, CreatedAt: time.Now().UTC()}
	if err := a.Store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	a.Config.ActorID = "ta-1"
	got, err := a.Actor(ctx, "")
	if err != nil {
		t.Fatalf("Actor: %v", err)
	}
	if got.Role != models.RoleTA {
		t.Errorf("unexpected actor %+v", got)
	}

	if _, err := a.Actor(ctx, "ghost"); !apperrors.Is(err, apperrors.ErrTypeUnauthorized) {
		t.Errorf("expected unauthorized for unknown override, got %v", err)
	}
}

func TestContextRoundTrip(t *testing.T) {
	if FromContext(context.Background()) != nil {
		t.Fatal("expected nil app in empty context")
	}
	a := &App{}
	if FromContext(WithApp(context.Background(), a)) != a {
		t.Error("app not carried by context")
	}
}
