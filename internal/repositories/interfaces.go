package repositories

import (
	"context"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Sessions() SessionRepository
	Catalog() CatalogRepository
	Carts() CartRepository
	Orders() OrderRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// SessionRepository persists per-user conversation sessions.
type SessionRepository interface {
	// Load fetches the session for the chat user. Missing sessions surface
	// as a not-found repository error.
	Load(ctx context.Context, sessionID string) (domain.Session, error)
	// Save writes the session back. The stored revision must match the
	// session's revision or the save fails with a conflict; on success the
	// returned session carries the incremented revision.
	Save(ctx context.Context, session domain.Session) (domain.Session, error)
	// Delete removes the session entirely. Deleting a missing session is a no-op.
	Delete(ctx context.Context, sessionID string) error
}

// ProductListFilter narrows catalog listings.
type ProductListFilter struct {
	Category      string
	PublishedOnly bool
	Limit         int
}

// CatalogRepository serves the product assortment and per-product base configurations.
type CatalogRepository interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, filter ProductListFilter) ([]domain.Product, error)
	GetProduct(ctx context.Context, productID string) (domain.Product, error)
	// GetBaseConfiguration returns the catalog-defined configuration for a
	// product with every option at its default choice.
	GetBaseConfiguration(ctx context.Context, productID string) (domain.ProductConfiguration, error)
	ListAdditionals(ctx context.Context, category string) ([]domain.ProductAdditional, error)
	ListDeliveryMethods(ctx context.Context) ([]domain.DeliveryMethod, error)
}

// CartRepository owns persistence of per-user carts.
type CartRepository interface {
	Get(ctx context.Context, userID string) (domain.Cart, error)
	Save(ctx context.Context, cart domain.Cart) (domain.Cart, error)
	Clear(ctx context.Context, userID string) error
}

// OrderListFilter narrows order listings.
type OrderListFilter struct {
	Status domain.OrderStatus
	Limit  int
}

// OrderRepository persists placed orders and their status transitions.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (domain.Order, error)
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter OrderListFilter) ([]domain.Order, error)
}
