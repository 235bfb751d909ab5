package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
	"github.com/craftline/shopbot/internal/repositories"
)

// Registry bundles the Firestore-backed repositories behind the
// repositories.Registry contract.
type Registry struct {
	provider *pfirestore.Provider

	sessions *SessionRepository
	catalog  *CatalogRepository
	carts    *CartRepository
	orders   *OrderRepository
}

// NewRegistry constructs the full repository set on top of a shared provider.
func NewRegistry(provider *pfirestore.Provider, sessionOpts ...SessionRepositoryOption) (*Registry, error) {
	if provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	sessions, err := NewSessionRepository(provider, sessionOpts...)
	if err != nil {
		return nil, err
	}
	catalog, err := NewCatalogRepository(provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(provider)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider: provider,
		sessions: sessions,
		catalog:  catalog,
		carts:    carts,
		orders:   orders,
	}, nil
}

// Close releases the shared Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

// Sessions returns the session repository.
func (r *Registry) Sessions() repositories.SessionRepository { return r.sessions }

// Catalog returns the catalog repository.
func (r *Registry) Catalog() repositories.CatalogRepository { return r.catalog }

// Carts returns the cart repository.
func (r *Registry) Carts() repositories.CartRepository { return r.carts }

// Orders returns the order repository.
func (r *Registry) Orders() repositories.OrderRepository { return r.orders }
