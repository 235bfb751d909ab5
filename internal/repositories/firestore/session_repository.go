package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	domain "github.com/craftline/shopbot/internal/domain"
	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
	"github.com/craftline/shopbot/internal/repositories"
)

const sessionCollection = "sessions"

type sessionDocument struct {
	State     string         `firestore:"state,omitempty"`
	Values    map[string]any `firestore:"values,omitempty"`
	Revision  int64          `firestore:"revision"`
	UpdatedAt time.Time      `firestore:"updatedAt"`
	ExpiresAt *time.Time     `firestore:"expiresAt,omitempty"`
}

// SessionRepository persists conversation sessions within Firestore.
type SessionRepository struct {
	base     *pfirestore.BaseRepository[sessionDocument]
	provider *pfirestore.Provider
	ttl      time.Duration
	now      func() time.Time
}

// SessionRepositoryOption customises session persistence.
type SessionRepositoryOption func(*SessionRepository)

// WithSessionTTL stamps each saved session with an expiry so a Firestore TTL
// policy on expiresAt can reap abandoned conversations.
func WithSessionTTL(ttl time.Duration) SessionRepositoryOption {
	return func(r *SessionRepository) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewSessionRepository constructs a Firestore-backed session repository.
func NewSessionRepository(provider *pfirestore.Provider, opts ...SessionRepositoryOption) (*SessionRepository, error) {
	if provider == nil {
		return nil, errors.New("session repository requires firestore provider")
	}
	base := pfirestore.NewBaseRepository[sessionDocument](provider, sessionCollection, nil, nil)
	repo := &SessionRepository{
		base:     base,
		provider: provider,
		now:      time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(repo)
		}
	}
	return repo, nil
}

// Load fetches the session for the given chat user.
func (r *SessionRepository) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	if r == nil || r.base == nil {
		return domain.Session{}, errors.New("session repository not initialised")
	}
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return domain.Session{}, errors.New("session repository: session id is required")
	}

	doc, err := r.base.Get(ctx, sessionID)
	if err != nil {
		return domain.Session{}, err
	}
	return sessionFromDocument(sessionID, doc.Data), nil
}

// Save writes the session back under an optimistic revision guard. The stored
// revision must equal the session's revision; the saved session is returned
// with the revision incremented.
func (r *SessionRepository) Save(ctx context.Context, session domain.Session) (domain.Session, error) {
	if r == nil || r.base == nil {
		return domain.Session{}, errors.New("session repository not initialised")
	}
	sessionID := strings.TrimSpace(session.ID)
	if sessionID == "" {
		return domain.Session{}, errors.New("session repository: session id is required")
	}

	saved := session.Clone()
	saved.ID = sessionID
	saved.Revision = session.Revision + 1
	saved.UpdatedAt = r.now().UTC()

	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, sessionID)
		if err != nil {
			return err
		}

		snap, err := tx.Get(ref)
		switch {
		case err == nil:
			var current sessionDocument
			if decodeErr := snap.DataTo(&current); decodeErr != nil {
				return decodeErr
			}
			if current.Revision != session.Revision {
				return repositories.ErrSessionRevisionMismatch
			}
		case status.Code(err) == codes.NotFound:
			if session.Revision != 0 {
				return repositories.ErrSessionRevisionMismatch
			}
		default:
			return err
		}

		doc := sessionDocument{
			State:     saved.State,
			Values:    saved.Values,
			Revision:  saved.Revision,
			UpdatedAt: saved.UpdatedAt,
		}
		if r.ttl > 0 {
			expires := saved.UpdatedAt.Add(r.ttl)
			doc.ExpiresAt = &expires
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrSessionRevisionMismatch) {
			return domain.Session{}, repositories.ErrSessionRevisionMismatch
		}
		return domain.Session{}, err
	}
	return saved, nil
}

// Delete removes the session document.
func (r *SessionRepository) Delete(ctx context.Context, sessionID string) error {
	if r == nil || r.base == nil {
		return errors.New("session repository not initialised")
	}
	_, err := r.base.Delete(ctx, sessionID)
	return err
}

func sessionFromDocument(id string, doc sessionDocument) domain.Session {
	values := doc.Values
	if values == nil {
		values = make(map[string]any)
	}
	return domain.Session{
		ID:        id,
		State:     doc.State,
		Values:    values,
		Revision:  doc.Revision,
		UpdatedAt: doc.UpdatedAt,
	}
}
