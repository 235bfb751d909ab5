package services

import (
	"context"

	domain "github.com/craftline/shopbot/internal/domain"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product              = domain.Product
	ProductAdditional    = domain.ProductAdditional
	ProductConfiguration = domain.ProductConfiguration
	ConfigurationOption  = domain.ConfigurationOption
	DeliveryMethod       = domain.DeliveryMethod
	Cart                 = domain.Cart
	CartEntry            = domain.CartEntry
	Order                = domain.Order
	OrderStatus          = domain.OrderStatus
	Session              = domain.Session
	LocalizedText        = domain.LocalizedText
	LocalizedMoney       = domain.LocalizedMoney
	MediaRef             = domain.MediaRef
)

// ProductPage is one page of the assortment listing.
type ProductPage struct {
	Products []Product
	Page     int
	HasMore  bool
}

// CatalogService serves the published assortment, per-product base
// configurations, and catalog-level reference data.
type CatalogService interface {
	ListCategories(ctx context.Context) ([]string, error)
	ListProducts(ctx context.Context, category string, page int) (ProductPage, error)
	GetProduct(ctx context.Context, productID string) (Product, error)
	// BaseConfiguration returns the catalog-defined configuration for the
	// product with every option at its default choice.
	BaseConfiguration(ctx context.Context, productID string) (ProductConfiguration, error)
	// ReviveConfiguration reconciles a persisted configuration against the
	// current catalog, dropping vanished options and disallowed additionals.
	ReviveConfiguration(ctx context.Context, stale ProductConfiguration) (ProductConfiguration, error)
	AdditionalsFor(ctx context.Context, product Product) ([]ProductAdditional, error)
	DeliveryMethods(ctx context.Context) ([]DeliveryMethod, error)
	// MediaURL resolves a catalog media reference into a short-lived URL.
	// Zero references resolve to an empty URL without error.
	MediaURL(ctx context.Context, ref MediaRef) (string, error)
}

// AddEntryCommand captures the input for adding a configured product to a cart.
type AddEntryCommand struct {
	UserID        string
	Product       Product
	Configuration ProductConfiguration
}

// CartService owns the per-user cart lifecycle.
type CartService interface {
	GetOrCreateCart(ctx context.Context, userID string) (Cart, error)
	AddConfiguredEntry(ctx context.Context, cmd AddEntryCommand) (Cart, CartEntry, error)
	RemoveEntry(ctx context.Context, userID, entryID string) (Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// PlaceOrderCommand captures the input for turning a cart into an order.
type PlaceOrderCommand struct {
	UserID   string
	Delivery DeliveryMethod
	Currency string
}

// OrderService places orders from carts and drives their status lifecycle.
type OrderService interface {
	PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error)
	GetOrder(ctx context.Context, orderID string) (Order, error)
	// ConfirmPayment marks the manual payment confirmation for the order.
	ConfirmPayment(ctx context.Context, orderID string) (Order, error)
	CancelOrder(ctx context.Context, orderID string) (Order, error)
	MarkShipped(ctx context.Context, orderID string) (Order, error)
	MarkCompleted(ctx context.Context, orderID string) (Order, error)
	ListOrders(ctx context.Context, userID string) ([]Order, error)
}

// SessionService loads and persists per-user conversation sessions.
type SessionService interface {
	// LoadOrCreate returns the stored session or a fresh one when absent.
	LoadOrCreate(ctx context.Context, sessionID string) (Session, error)
	Save(ctx context.Context, session Session) (Session, error)
	Reset(ctx context.Context, sessionID string) error
}
