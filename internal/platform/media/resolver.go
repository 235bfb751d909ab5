package media

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/storage"

	"github.com/craftline/shopbot/internal/domain"
)

const defaultURLTTL = 15 * time.Minute

var (
	errNoSigner      = errors.New("media: signer is required")
	errInvalidBucket = errors.New("media: bucket name is required")
)

// Resolver turns catalog media references into time limited download URLs.
type Resolver struct {
	signer Signer
	bucket string
	ttl    time.Duration
	scheme storage.SigningScheme
	now    func() time.Time
}

// ResolverOption customises resolver behaviour.
type ResolverOption func(*Resolver)

// WithURLTTL overrides the lifetime of generated URLs.
func WithURLTTL(ttl time.Duration) ResolverOption {
	return func(r *Resolver) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// WithClock injects a custom clock (useful for tests).
func WithClock(clock func() time.Time) ResolverOption {
	return func(r *Resolver) {
		if clock != nil {
			r.now = clock
		}
	}
}

// NewResolver constructs a Resolver for the given media bucket.
func NewResolver(signer Signer, bucket string, opts ...ResolverOption) (*Resolver, error) {
	if signer == nil || strings.TrimSpace(signer.Email()) == "" {
		return nil, errNoSigner
	}
	if strings.TrimSpace(bucket) == "" {
		return nil, errInvalidBucket
	}

	resolver := &Resolver{
		signer: signer,
		bucket: strings.TrimSpace(bucket),
		ttl:    defaultURLTTL,
		scheme: storage.SigningSchemeV4,
		now:    time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(resolver)
		}
	}
	return resolver, nil
}

// Resolve returns a signed download URL for the referenced media object.
// An empty reference resolves to an empty URL without error.
func (r *Resolver) Resolve(ctx context.Context, ref domain.MediaRef) (string, error) {
	if r == nil || r.signer == nil {
		return "", errNoSigner
	}
	if ref.IsZero() {
		return "", nil
	}

	object := strings.TrimPrefix(strings.TrimSpace(ref.Path), "/")
	if object == "" {
		return "", nil
	}

	opts := &storage.SignedURLOptions{
		GoogleAccessID: r.signer.Email(),
		Method:         "GET",
		Expires:        r.now().Add(r.ttl),
		Scheme:         r.scheme,
		SignBytes: func(payload []byte) ([]byte, error) {
			return r.signer.SignBytes(ctx, payload)
		},
	}

	url, err := storage.SignedURL(r.bucket, object, opts)
	if err != nil {
		return "", err
	}
	return url, nil
}
