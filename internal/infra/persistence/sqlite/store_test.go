package sqlite

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"smarthika/pkg/domain"
)

func TestStorePersistsAcrossReopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "survey.db")
	store, err := NewStore(path)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	if store.Path() != path || store.DB() == nil {
		t.Fatalf("unexpected store accessors")
	}
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	if _, err := store.CreateSession(ctx, domain.Session{ID: "s1", Record: domain.DefaultRecord(), CreatedAt: now}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.UpdateSession(ctx, "s1", func(s *domain.Session) error {
		s.Record.Canvas.TotalArea = 4.5
		return nil
	}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := store.RecordAttempt(ctx, domain.SubmissionAttempt{ID: "a1", SessionID: "s1", Success: true}); err != nil {
		t.Fatalf("attempt: %v", err)
	}
	if _, err := store.CreateSession(ctx, domain.Session{ID: "s2", CreatedAt: now}); err != nil {
		t.Fatalf("create s2: %v", err)
	}
	if ok, err := store.DeleteSession(ctx, "s2"); err != nil || !ok {
		t.Fatalf("delete: %v %v", ok, err)
	}
	if err := store.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	reopened, err := NewStore(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer func() { _ = reopened.Close() }()
	got, ok, err := reopened.GetSession(ctx, "s1")
	if err != nil || !ok {
		t.Fatalf("expected s1 after reopen: %v", err)
	}
	if got.Record.Canvas.TotalArea != 4.5 {
		t.Fatalf("expected persisted area, got %v", got.Record.Canvas.TotalArea)
	}
	if _, ok, _ := reopened.GetSession(ctx, "s2"); ok {
		t.Fatalf("deleted session came back")
	}
	attempts, _ := reopened.ListAttempts(ctx, "s1")
	if len(attempts) != 1 || !attempts[0].Success {
		t.Fatalf("expected persisted attempt, got %+v", attempts)
	}
}

func TestStoreFailedMutationSkipsPersist(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "s.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.UpdateSession(ctx, "missing", func(*domain.Session) error { return nil }); err == nil {
		t.Fatalf("expected missing session error")
	}
	if ok, err := store.DeleteSession(ctx, "missing"); ok || err != nil {
		t.Fatalf("expected missing delete to be a no-op, got %v %v", ok, err)
	}
	var n int
	if err := store.DB().QueryRow(`SELECT COUNT(*) FROM state`).Scan(&n); err != nil {
		t.Fatalf("count: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected no snapshot rows, got %d", n)
	}
}

func TestStoreRestoresMemoryWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	store, err := NewStore(filepath.Join(t.TempDir(), "survey.db"))
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	defer func() { _ = store.Close() }()
	if _, err := store.CreateSession(ctx, domain.Session{ID: "s1", CurrentStep: 1}); err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := store.DB().Exec(`DROP TABLE state`); err != nil {
		t.Fatalf("drop: %v", err)
	}

	if _, err := store.UpdateSession(ctx, "s1", func(s *domain.Session) error {
		s.CurrentStep = 4
		return nil
	}); err == nil {
		t.Fatalf("expected persist error")
	}
	got, ok, _ := store.GetSession(ctx, "s1")
	if !ok || got.CurrentStep != 1 {
		t.Fatalf("update must be undone, got %+v", got)
	}
	if _, err := store.CreateSession(ctx, domain.Session{ID: "s2"}); err == nil {
		t.Fatalf("expected persist error")
	}
	if _, ok, _ := store.GetSession(ctx, "s2"); ok {
		t.Fatalf("failed create must not stay in memory")
	}
	if err := store.RecordAttempt(ctx, domain.SubmissionAttempt{ID: "a1", SessionID: "s1"}); err == nil {
		t.Fatalf("expected persist error")
	}
	if attempts, _ := store.ListAttempts(ctx, "s1"); len(attempts) != 0 {
		t.Fatalf("failed attempt must not stay in memory: %+v", attempts)
	}
}
