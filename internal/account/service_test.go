package account

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"interviewgo/internal/config"
	"interviewgo/internal/interview"
	"interviewgo/internal/models"
	"interviewgo/internal/storage"
)

func newTestService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	cfg := &config.Config{
		Databases: map[string]config.DatabaseConfig{
			"sqlite3": {DSN: ":memory:"},
		},
	}
	db, err := storage.Open("sqlite3", cfg)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	if err := storage.Migrate(db, "sqlite3"); err != nil {
		t.Fatalf("migrate db: %v", err)
	}
	return NewService(db), db
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if user.ID <= 0 || user.Username != "alice" {
		t.Fatalf("unexpected user: %+v", user)
	}

	got, err := svc.Login(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if got.ID != user.ID {
		t.Fatalf("login returned user %d, want %d", got.ID, user.ID)
	}

	if _, err := svc.Login(ctx, "alice", "wrong"); err == nil {
		t.Fatalf("expected login failure with wrong password")
	}
	if _, err := svc.Login(ctx, "nobody", "secret"); err == nil {
		t.Fatalf("expected login failure for unknown user")
	}
	if _, err := svc.RegisterUser(ctx, "alice", "other"); err == nil {
		t.Fatalf("expected duplicate username rejection")
	}
	if _, err := svc.RegisterUser(ctx, "  ", "pw"); err == nil {
		t.Fatalf("expected blank username rejection")
	}
}

func TestGetAndDeleteUser(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	user, err := svc.RegisterUser(ctx, "bob", "pw")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	got, err := svc.GetUser(ctx, user.ID)
	if err != nil || got.Username != "bob" {
		t.Fatalf("get user: %v %+v", err, got)
	}

	if err := svc.DeleteUser(ctx, user.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := svc.DeleteUser(ctx, user.ID); !errors.Is(err, sql.ErrNoRows) {
		t.Fatalf("second delete err = %v, want sql.ErrNoRows", err)
	}
}

func finishedSession(username string, status interview.Status, started time.Time) *interview.Session {
	return &interview.Session{
		Username: username,
		Turns: []models.Turn{
			{Role: models.RoleSystem, Content: "prompt"},
			{Role: models.RoleInterviewer, Content: "question"},
			{Role: models.RoleRespondent, Content: "answer"},
		},
		Status:    status,
		StartedAt: started,
	}
}

func TestRecordAndListInterviewOutcomes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	started := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	ended := started.Add(125 * time.Second)
	out, err := svc.RecordInterviewOutcome(ctx, finishedSession("carol", interview.StatusCompleted, started), ended)
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if out.ID <= 0 {
		t.Fatalf("expected outcome id, got %d", out.ID)
	}
	if out.Turns != 2 {
		t.Fatalf("turns = %d, want 2 visible turns", out.Turns)
	}
	if out.DurationMinutes < 2.07 || out.DurationMinutes > 2.09 {
		t.Fatalf("duration = %f", out.DurationMinutes)
	}

	if _, err := svc.RecordInterviewOutcome(ctx, finishedSession("carol", interview.StatusActive, started), ended); err == nil {
		t.Fatalf("expected rejection of non-terminal session")
	}

	later := finishedSession("carol", interview.StatusAborted, started.Add(time.Hour))
	if _, err := svc.RecordInterviewOutcome(ctx, later, started.Add(2*time.Hour)); err != nil {
		t.Fatalf("record second: %v", err)
	}

	outcomes, err := svc.ListInterviewOutcomes(ctx, "carol")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	// Most recent first.
	if outcomes[0].Status != string(interview.StatusAborted) {
		t.Fatalf("first outcome status = %s", outcomes[0].Status)
	}

	empty, err := svc.ListInterviewOutcomes(ctx, "nobody")
	if err != nil {
		t.Fatalf("list empty: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected no outcomes, got %d", len(empty))
	}
}
