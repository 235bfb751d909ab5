package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/craftline/shopbot/internal/repositories"
)

var (
	errSessionRepositoryRequired = errors.New("session service: repository is required")
	errSessionClockRequired      = errors.New("session service: clock is required")
)

// ErrSessionInvalidInput indicates the caller supplied invalid input.
var ErrSessionInvalidInput = errors.New("session service: invalid input")

// ErrSessionConflict indicates a concurrent update won the write race; reload and retry.
var ErrSessionConflict = errors.New("session service: conflict")

// ErrSessionUnavailable indicates the session backend cannot fulfil the request.
var ErrSessionUnavailable = errors.New("session service: unavailable")

// SessionServiceDeps wires the repository dependencies for session operations.
type SessionServiceDeps struct {
	Repository repositories.SessionRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type sessionService struct {
	repo   repositories.SessionRepository
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewSessionService constructs a SessionService enforcing dependency validation.
func NewSessionService(deps SessionServiceDeps) (SessionService, error) {
	if deps.Repository == nil {
		return nil, errSessionRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errSessionClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &sessionService{
		repo:   deps.Repository,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

func (s *sessionService) LoadOrCreate(ctx context.Context, sessionID string) (Session, error) {
	if s == nil || s.repo == nil {
		return Session{}, ErrSessionUnavailable
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return Session{}, ErrSessionInvalidInput
	}

	session, err := s.repo.Load(ctx, id)
	if err != nil {
		if isRepoNotFound(err) {
			s.logger(ctx, "session.created", map[string]any{"sessionID": id})
			return newSession(id), nil
		}
		return Session{}, translateSessionRepoError(err)
	}
	return session, nil
}

func (s *sessionService) Save(ctx context.Context, session Session) (Session, error) {
	if s == nil || s.repo == nil {
		return Session{}, ErrSessionUnavailable
	}
	if strings.TrimSpace(session.ID) == "" {
		return Session{}, ErrSessionInvalidInput
	}

	session.UpdatedAt = s.now()
	saved, err := s.repo.Save(ctx, session)
	if err != nil {
		if errors.Is(err, repositories.ErrSessionRevisionMismatch) {
			s.logger(ctx, "session.save_conflict", map[string]any{
				"sessionID": session.ID,
				"revision":  session.Revision,
			})
			return Session{}, ErrSessionConflict
		}
		return Session{}, translateSessionRepoError(err)
	}
	return saved, nil
}

func (s *sessionService) Reset(ctx context.Context, sessionID string) error {
	if s == nil || s.repo == nil {
		return ErrSessionUnavailable
	}
	id := strings.TrimSpace(sessionID)
	if id == "" {
		return ErrSessionInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return translateSessionRepoError(err)
	}
	return nil
}

func translateSessionRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsConflict() {
			return ErrSessionConflict
		}
		return ErrSessionUnavailable
	}
	return ErrSessionUnavailable
}
