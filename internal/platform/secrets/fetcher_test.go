package secrets

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type fakeSecretClient struct {
	responses map[string]string
	err       error
	calls     atomic.Int64
}

func (f *fakeSecretClient) AccessSecretVersion(_ context.Context, req *secretmanagerpb.AccessSecretVersionRequest, _ ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	f.calls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	value, ok := f.responses[req.GetName()]
	if !ok {
		return nil, status.Error(codes.NotFound, "secret version not found")
	}
	return &secretmanagerpb.AccessSecretVersionResponse{
		Payload: &secretmanagerpb.SecretPayload{Data: []byte(value)},
	}, nil
}

func (f *fakeSecretClient) Close() error { return nil }

func newTestFetcher(t *testing.T, client secretManagerClient, opts ...Option) *Fetcher {
	t.Helper()
	opts = append([]Option{WithClient(client), WithDefaultProject("craftline-dev"), WithFallbackPath("")}, opts...)
	fetcher, err := NewFetcher(context.Background(), opts...)
	if err != nil {
		t.Fatalf("NewFetcher returned error: %v", err)
	}
	return fetcher
}

func TestResolveSecretShortRef(t *testing.T) {
	client := &fakeSecretClient{responses: map[string]string{
		"projects/craftline-dev/secrets/sink-token/versions/latest": "token-value\n",
	}}
	fetcher := newTestFetcher(t, client)

	value, err := fetcher.ResolveSecret(context.Background(), "secret://sink-token")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "token-value" {
		t.Errorf("expected trimmed payload, got %q", value)
	}
}

func TestResolveSecretProjectAndVersion(t *testing.T) {
	client := &fakeSecretClient{responses: map[string]string{
		"projects/other-proj/secrets/webhook/versions/7": "v7",
	}}
	fetcher := newTestFetcher(t, client)

	value, err := fetcher.ResolveSecret(context.Background(), "secret://other-proj/webhook#7")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "v7" {
		t.Errorf("unexpected value: %q", value)
	}
}

func TestResolveSecretCaches(t *testing.T) {
	client := &fakeSecretClient{responses: map[string]string{
		"projects/craftline-dev/secrets/sink-token/versions/latest": "cached",
	}}
	fetcher := newTestFetcher(t, client)

	for i := 0; i < 3; i++ {
		if _, err := fetcher.ResolveSecret(context.Background(), "secret://sink-token"); err != nil {
			t.Fatalf("ResolveSecret returned error: %v", err)
		}
	}
	if calls := client.calls.Load(); calls != 1 {
		t.Errorf("expected a single backend call, got %d", calls)
	}
}

func TestResolveSecretNotFound(t *testing.T) {
	fetcher := newTestFetcher(t, &fakeSecretClient{})

	_, err := fetcher.ResolveSecret(context.Background(), "secret://missing")
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestResolveSecretFallbackFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "secrets.local")
	contents := "# local overrides\nsecret://sink-token=local-token\n"
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write fallback file: %v", err)
	}

	client := &fakeSecretClient{err: status.Error(codes.Unavailable, "backend down")}
	fetcher := newTestFetcher(t, client, WithFallbackPath(path))

	value, err := fetcher.ResolveSecret(context.Background(), "secret://sink-token")
	if err != nil {
		t.Fatalf("ResolveSecret returned error: %v", err)
	}
	if value != "local-token" {
		t.Errorf("expected fallback value, got %q", value)
	}
}

func TestResolveSecretRejectsUnknownScheme(t *testing.T) {
	fetcher := newTestFetcher(t, &fakeSecretClient{})

	if _, err := fetcher.ResolveSecret(context.Background(), "vault://nope"); err == nil {
		t.Fatal("expected error for unsupported scheme")
	}
}
