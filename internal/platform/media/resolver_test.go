package media

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/craftline/shopbot/internal/domain"
)

type fakeSigner struct {
	email string
}

func (f fakeSigner) Email() string { return f.email }

func (f fakeSigner) SignBytes(context.Context, []byte) ([]byte, error) {
	return []byte("signature"), nil
}

func TestNewResolverValidation(t *testing.T) {
	if _, err := NewResolver(nil, "bucket"); err == nil {
		t.Error("expected error for nil signer")
	}
	if _, err := NewResolver(fakeSigner{email: "svc@example.iam.gserviceaccount.com"}, " "); err == nil {
		t.Error("expected error for empty bucket")
	}
	if _, err := NewResolver(fakeSigner{}, "bucket"); err == nil {
		t.Error("expected error for signer without email")
	}
}

func TestResolveEmptyReference(t *testing.T) {
	resolver, err := NewResolver(fakeSigner{email: "svc@example.iam.gserviceaccount.com"}, "craftline-media")
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}

	url, err := resolver.Resolve(context.Background(), domain.MediaRef{})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if url != "" {
		t.Errorf("expected empty url for empty reference, got %q", url)
	}
}

func TestResolveSignsObjectPath(t *testing.T) {
	clock := func() time.Time { return time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC) }
	resolver, err := NewResolver(
		fakeSigner{email: "svc@example.iam.gserviceaccount.com"},
		"craftline-media",
		WithURLTTL(30*time.Minute),
		WithClock(clock),
	)
	if err != nil {
		t.Fatalf("NewResolver returned error: %v", err)
	}

	ref := domain.MediaRef{Kind: domain.MediaPhoto, Path: "/products/mug/hero.jpg"}
	url, err := resolver.Resolve(context.Background(), ref)
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if !strings.Contains(url, "craftline-media") {
		t.Errorf("expected bucket in url, got %q", url)
	}
	if !strings.Contains(url, "products/mug/hero.jpg") {
		t.Errorf("expected object path in url, got %q", url)
	}
}
