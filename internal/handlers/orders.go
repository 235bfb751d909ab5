package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craftline/shopbot/internal/platform/httpx"
	"github.com/craftline/shopbot/internal/services"
)

// OrderHandlers exposes operator endpoints for the manual order lifecycle:
// placement from a cart, payment confirmation, shipping, completion,
// cancellation.
type OrderHandlers struct {
	orders  services.OrderService
	catalog services.CatalogService
}

// NewOrderHandlers constructs the operator order handlers.
func NewOrderHandlers(orders services.OrderService, catalog services.CatalogService) *OrderHandlers {
	return &OrderHandlers{orders: orders, catalog: catalog}
}

// Routes wires the /orders endpoints onto the provided router.
func (h *OrderHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.placeOrder)
	r.Get("/{orderID}", h.getOrder)
	r.Post("/{orderID}/confirm-payment", h.transition(func(ctx context.Context, s services.OrderService, id string) (services.Order, error) {
		return s.ConfirmPayment(ctx, id)
	}))
	r.Post("/{orderID}/ship", h.transition(func(ctx context.Context, s services.OrderService, id string) (services.Order, error) {
		return s.MarkShipped(ctx, id)
	}))
	r.Post("/{orderID}/complete", h.transition(func(ctx context.Context, s services.OrderService, id string) (services.Order, error) {
		return s.MarkCompleted(ctx, id)
	}))
	r.Post("/{orderID}/cancel", h.transition(func(ctx context.Context, s services.OrderService, id string) (services.Order, error) {
		return s.CancelOrder(ctx, id)
	}))
}

type placeOrderRequest struct {
	UserID           string `json:"userId"`
	DeliveryMethodID string `json:"deliveryMethodId"`
	Currency         string `json:"currency"`
}

const maxOrderBodySize = 16 * 1024

func (h *OrderHandlers) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil || h.catalog == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}

	var req placeOrderRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxOrderBodySize)).Decode(&req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", "request body must be valid JSON", http.StatusBadRequest))
		return
	}

	methods, err := h.catalog.DeliveryMethods(ctx)
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("catalog_unavailable", "failed to load delivery methods", http.StatusServiceUnavailable))
		return
	}
	var delivery services.DeliveryMethod
	for _, method := range methods {
		if method.ID == strings.TrimSpace(req.DeliveryMethodID) {
			delivery = method
			break
		}
	}
	if delivery.ID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "unknown delivery method", http.StatusBadRequest))
		return
	}

	order, err := h.orders.PlaceOrder(ctx, services.PlaceOrderCommand{
		UserID:   req.UserID,
		Delivery: delivery,
		Currency: req.Currency,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrOrderEmptyCart):
			httpx.WriteError(ctx, w, httpx.NewError("empty_cart", "the cart has no entries", http.StatusConflict))
		case errors.Is(err, services.ErrOrderInvalidInput):
			httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "userId and deliveryMethodId are required", http.StatusBadRequest))
		default:
			h.writeOrderError(ctx, w, err)
		}
		return
	}
	writeOrderPayload(w, http.StatusCreated, order)
}

func (h *OrderHandlers) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.orders == nil {
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
		return
	}
	order, err := h.orders.GetOrder(ctx, chi.URLParam(r, "orderID"))
	if err != nil {
		h.writeOrderError(ctx, w, err)
		return
	}
	writeOrderPayload(w, http.StatusOK, order)
}

func (h *OrderHandlers) transition(apply func(context.Context, services.OrderService, string) (services.Order, error)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if h.orders == nil {
			httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service is unavailable", http.StatusServiceUnavailable))
			return
		}
		order, err := apply(ctx, h.orders, chi.URLParam(r, "orderID"))
		if err != nil {
			h.writeOrderError(ctx, w, err)
			return
		}
		writeOrderPayload(w, http.StatusOK, order)
	}
}

func (h *OrderHandlers) writeOrderError(ctx context.Context, w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, services.ErrOrderInvalidInput):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "order id is required", http.StatusBadRequest))
	case errors.Is(err, services.ErrOrderNotFound):
		httpx.WriteError(ctx, w, httpx.NewError("order_not_found", "order not found", http.StatusNotFound))
	case errors.Is(err, services.ErrOrderTransitionInvalid):
		httpx.WriteError(ctx, w, httpx.NewError("invalid_transition", "the order cannot change to the requested status", http.StatusConflict))
	default:
		httpx.WriteError(ctx, w, httpx.NewError("order_service_unavailable", "order service failed", http.StatusServiceUnavailable))
	}
}

type orderPayload struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Status      string     `json:"status"`
	Currency    string     `json:"currency"`
	Total       int64      `json:"total"`
	QuoteNeeded bool       `json:"quoteNeeded,omitempty"`
	Delivery    string     `json:"delivery,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
	ConfirmedAt *time.Time `json:"confirmedAt,omitempty"`
	CanceledAt  *time.Time `json:"canceledAt,omitempty"`
}

func writeOrderPayload(w http.ResponseWriter, status int, order services.Order) {
	payload := orderPayload{
		ID:          order.ID,
		UserID:      order.UserID,
		Status:      string(order.Status),
		Currency:    order.Currency,
		Total:       order.Total,
		QuoteNeeded: order.PriceBlocked,
		CreatedAt:   order.CreatedAt,
		UpdatedAt:   order.UpdatedAt,
		ConfirmedAt: order.ConfirmedAt,
		CanceledAt:  order.CanceledAt,
	}
	if order.Delivery != nil {
		payload.Delivery = strings.TrimSpace(order.Delivery.ID)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}
