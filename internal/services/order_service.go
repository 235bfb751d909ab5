package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/platform/events"
	"github.com/craftline/shopbot/internal/repositories"
)

var (
	errOrderRepositoryRequired = errors.New("order service: repository is required")
	errOrderCartsRequired      = errors.New("order service: cart repository is required")
	errOrderClockRequired      = errors.New("order service: clock is required")
)

// ErrOrderInvalidInput indicates the caller supplied invalid input.
var ErrOrderInvalidInput = errors.New("order service: invalid input")

// ErrOrderNotFound indicates the requested order does not exist.
var ErrOrderNotFound = errors.New("order service: not found")

// ErrOrderEmptyCart indicates an order was placed from a cart with no entries.
var ErrOrderEmptyCart = errors.New("order service: cart is empty")

// ErrOrderTransitionInvalid indicates the requested status change is not
// permitted from the order's current status.
var ErrOrderTransitionInvalid = errors.New("order service: invalid status transition")

// ErrOrderUnavailable indicates the order backend cannot fulfil the request.
var ErrOrderUnavailable = errors.New("order service: unavailable")

// OrderServiceDeps wires the repository and event dependencies for order operations.
type OrderServiceDeps struct {
	Repository      repositories.OrderRepository
	Carts           repositories.CartRepository
	Events          events.Publisher
	Clock           func() time.Time
	DefaultCurrency string
	Logger          func(context.Context, string, map[string]any)
	IDGenerator     func() string
}

type orderService struct {
	repo     repositories.OrderRepository
	carts    repositories.CartRepository
	events   events.Publisher
	newID    func() string
	now      func() time.Time
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewOrderService constructs an OrderService enforcing dependency validation.
func NewOrderService(deps OrderServiceDeps) (OrderService, error) {
	if deps.Repository == nil {
		return nil, errOrderRepositoryRequired
	}
	if deps.Carts == nil {
		return nil, errOrderCartsRequired
	}
	if deps.Clock == nil {
		return nil, errOrderClockRequired
	}

	currency := domain.NormalizeCurrency(deps.DefaultCurrency)
	if currency == "" {
		currency = "USD"
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &orderService{
		repo:     deps.Repository,
		carts:    deps.Carts,
		events:   deps.Events,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		currency: currency,
		logger:   logger,
	}, nil
}

// PlaceOrder snapshots the user's cart into a new awaiting-payment order and
// clears the cart. The order settles in a single currency; entry prices stay
// localized inside the entries for audit.
func (s *orderService) PlaceOrder(ctx context.Context, cmd PlaceOrderCommand) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Order{}, ErrOrderInvalidInput
	}
	if strings.TrimSpace(cmd.Delivery.ID) == "" {
		return Order{}, ErrOrderInvalidInput
	}

	currency := domain.NormalizeCurrency(cmd.Currency)
	if currency == "" {
		currency = s.currency
	}

	cart, err := s.carts.Get(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Order{}, ErrOrderEmptyCart
		}
		return Order{}, translateOrderRepoError(err)
	}
	if len(cart.Entries) == 0 {
		return Order{}, ErrOrderEmptyCart
	}

	now := s.now()
	delivery := cmd.Delivery.Clone()
	order := domain.Order{
		ID:           s.newID(),
		UserID:       uid,
		Entries:      cart.Clone().Entries,
		Currency:     currency,
		Delivery:     &delivery,
		Total:        cart.Total().Amount(currency) + delivery.Price.Amount(currency),
		PriceBlocked: cart.PriceBlocked(),
		Status:       domain.OrderStatusAwaitingPayment,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	placed, err := s.repo.Insert(ctx, order)
	if err != nil {
		return Order{}, translateOrderRepoError(err)
	}

	if err := s.carts.Clear(ctx, uid); err != nil {
		s.logger(ctx, "order.cart_clear_failed", map[string]any{
			"userID":  uid,
			"orderID": placed.ID,
			"error":   err.Error(),
		})
	}

	s.publish(ctx, events.Message{
		Event:      events.EventOrderPlaced,
		UserID:     uid,
		OrderID:    placed.ID,
		Amount:     placed.Total,
		Currency:   placed.Currency,
		OccurredAt: now,
	})
	s.logger(ctx, "order.placed", map[string]any{
		"userID":  uid,
		"orderID": placed.ID,
		"total":   placed.Total,
	})
	return placed, nil
}

func (s *orderService) GetOrder(ctx context.Context, orderID string) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, ErrOrderInvalidInput
	}
	order, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return Order{}, translateOrderRepoError(err)
	}
	return order, nil
}

// ConfirmPayment records the manual payment confirmation for an
// awaiting-payment order.
func (s *orderService) ConfirmPayment(ctx context.Context, orderID string) (Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusConfirmed, events.EventOrderPaymentConfirmed)
}

func (s *orderService) CancelOrder(ctx context.Context, orderID string) (Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusCanceled, events.EventOrderStatusChanged)
}

func (s *orderService) MarkShipped(ctx context.Context, orderID string) (Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusShipped, events.EventOrderStatusChanged)
}

func (s *orderService) MarkCompleted(ctx context.Context, orderID string) (Order, error) {
	return s.transition(ctx, orderID, domain.OrderStatusCompleted, events.EventOrderStatusChanged)
}

func (s *orderService) ListOrders(ctx context.Context, userID string) ([]Order, error) {
	if s == nil || s.repo == nil {
		return nil, ErrOrderUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return nil, ErrOrderInvalidInput
	}
	orders, err := s.repo.ListByUser(ctx, uid, repositories.OrderListFilter{})
	if err != nil {
		return nil, translateOrderRepoError(err)
	}
	return orders, nil
}

func (s *orderService) transition(ctx context.Context, orderID string, status domain.OrderStatus, event string) (Order, error) {
	if s == nil || s.repo == nil {
		return Order{}, ErrOrderUnavailable
	}
	id := strings.TrimSpace(orderID)
	if id == "" {
		return Order{}, ErrOrderInvalidInput
	}

	at := s.now()
	updated, err := s.repo.UpdateStatus(ctx, id, status, at)
	if err != nil {
		if errors.Is(err, repositories.ErrOrderTransitionInvalid) {
			return Order{}, ErrOrderTransitionInvalid
		}
		return Order{}, translateOrderRepoError(err)
	}

	s.publish(ctx, events.Message{
		Event:      event,
		UserID:     updated.UserID,
		OrderID:    updated.ID,
		Amount:     updated.Total,
		Currency:   updated.Currency,
		OccurredAt: at,
		Payload:    map[string]any{"status": string(status)},
	})
	s.logger(ctx, "order.status_changed", map[string]any{
		"orderID": updated.ID,
		"status":  string(status),
	})
	return updated, nil
}

func (s *orderService) publish(ctx context.Context, message events.Message) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Publish(ctx, message); err != nil {
		s.logger(ctx, "order.event_publish_failed", map[string]any{
			"event": message.Event,
			"error": err.Error(),
		})
	}
}

func translateOrderRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrOrderNotFound
		case repoErr.IsUnavailable():
			return ErrOrderUnavailable
		}
		return ErrOrderUnavailable
	}
	return ErrOrderUnavailable
}
