package services

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestSessionService(t *testing.T, repo *fakeSessionRepo) SessionService {
	t.Helper()
	svc, err := NewSessionService(SessionServiceDeps{
		Repository: repo,
		Clock:      fixedClock(time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)),
	})
	if err != nil {
		t.Fatalf("NewSessionService error: %v", err)
	}
	return svc
}

func TestSessionLoadOrCreateReturnsFreshSession(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestSessionService(t, repo)

	session, err := svc.LoadOrCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if session.ID != "user-1" {
		t.Fatalf("session ID = %q, want user-1", session.ID)
	}
	if session.Revision != 0 {
		t.Fatalf("fresh session revision = %d, want 0", session.Revision)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("fresh session persisted eagerly")
	}
}

func TestSessionSaveIncrementsRevision(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestSessionService(t, repo)

	session, err := svc.LoadOrCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	session.Set("state", "main_menu")

	saved, err := svc.Save(context.Background(), session)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if saved.Revision != 1 {
		t.Fatalf("saved revision = %d, want 1", saved.Revision)
	}
	if saved.UpdatedAt.IsZero() {
		t.Fatalf("saved UpdatedAt is zero")
	}
}

func TestSessionSaveConflictOnStaleRevision(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestSessionService(t, repo)

	first, err := svc.LoadOrCreate(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("LoadOrCreate error: %v", err)
	}
	if _, err := svc.Save(context.Background(), first); err != nil {
		t.Fatalf("first Save error: %v", err)
	}

	// Stale copy still carries revision 0.
	if _, err := svc.Save(context.Background(), first); !errors.Is(err, ErrSessionConflict) {
		t.Fatalf("stale Save error = %v, want ErrSessionConflict", err)
	}
}

func TestSessionLoadOrCreateRejectsBlankID(t *testing.T) {
	svc := newTestSessionService(t, newFakeSessionRepo())
	if _, err := svc.LoadOrCreate(context.Background(), "  "); !errors.Is(err, ErrSessionInvalidInput) {
		t.Fatalf("blank id error = %v, want ErrSessionInvalidInput", err)
	}
}

func TestSessionLoadOrCreateTranslatesBackendFailure(t *testing.T) {
	repo := newFakeSessionRepo()
	repo.loadErr = errRepoUnavailable
	svc := newTestSessionService(t, repo)

	if _, err := svc.LoadOrCreate(context.Background(), "user-1"); !errors.Is(err, ErrSessionUnavailable) {
		t.Fatalf("backend failure error = %v, want ErrSessionUnavailable", err)
	}
}

func TestSessionReset(t *testing.T) {
	repo := newFakeSessionRepo()
	svc := newTestSessionService(t, repo)

	session, _ := svc.LoadOrCreate(context.Background(), "user-1")
	if _, err := svc.Save(context.Background(), session); err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if err := svc.Reset(context.Background(), "user-1"); err != nil {
		t.Fatalf("Reset error: %v", err)
	}
	if len(repo.sessions) != 0 {
		t.Fatalf("session survived reset")
	}
}
