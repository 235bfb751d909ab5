package handlers

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/craftline/shopbot/internal/conversation"
	"github.com/craftline/shopbot/internal/platform/httpx"
	"github.com/craftline/shopbot/internal/platform/requestctx"
)

const (
	maxEventBodySize    = 16 * 1024
	webhookSecretHeader = "X-Webhook-Secret"
)

// EventEngine is the conversation entry point the webhook feeds.
type EventEngine interface {
	Handle(ctx context.Context, event conversation.Event) error
}

// EventHandlers receives inbound chat events from the transport bridge and
// feeds them to the conversation engine.
type EventHandlers struct {
	engine  EventEngine
	limiter rateLimiter
	secret  string
}

// EventHandlerOption customises the webhook handlers.
type EventHandlerOption func(*EventHandlers)

// WithEventRateLimit caps accepted events per user per minute.
func WithEventRateLimit(perMinute int, clock func() time.Time) EventHandlerOption {
	return func(h *EventHandlers) {
		h.limiter = newSimpleRateLimiter(perMinute, time.Minute, clock)
	}
}

// WithWebhookSecret requires the shared secret header on every event.
func WithWebhookSecret(secret string) EventHandlerOption {
	return func(h *EventHandlers) {
		h.secret = strings.TrimSpace(secret)
	}
}

// NewEventHandlers constructs the webhook handlers.
func NewEventHandlers(engine EventEngine, opts ...EventHandlerOption) *EventHandlers {
	h := &EventHandlers{engine: engine}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes wires the /events endpoints onto the provided router.
func (h *EventHandlers) Routes(r chi.Router) {
	if r == nil {
		return
	}
	r.Post("/", h.postEvent)
}

type inboundEventRequest struct {
	UserID string `json:"userId"`
	Text   string `json:"text"`
}

func (h *EventHandlers) postEvent(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if h.engine == nil {
		httpx.WriteError(ctx, w, httpx.NewError("engine_unavailable", "conversation engine is unavailable", http.StatusServiceUnavailable))
		return
	}
	if !h.authorized(r) {
		httpx.WriteError(ctx, w, httpx.NewError("unauthenticated", "missing or invalid webhook secret", http.StatusUnauthorized))
		return
	}

	body, err := io.ReadAll(io.LimitReader(r.Body, maxEventBodySize))
	if err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", "failed to read request body", http.StatusBadRequest))
		return
	}
	var req inboundEventRequest
	if err := json.Unmarshal(body, &req); err != nil {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_body", "request body must be valid JSON", http.StatusBadRequest))
		return
	}
	userID := strings.TrimSpace(req.UserID)
	if userID == "" {
		httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "userId is required", http.StatusBadRequest))
		return
	}

	if h.limiter != nil && !h.limiter.Allow(userID) {
		httpx.WriteError(ctx, w, httpx.NewError("rate_limited", "too many events for this user", http.StatusTooManyRequests))
		return
	}

	ctx = requestctx.WithUserID(ctx, userID)
	if err := h.engine.Handle(ctx, conversation.Event{UserID: userID, Text: req.Text}); err != nil {
		if errors.Is(err, conversation.ErrEngineInvalidInput) {
			httpx.WriteError(ctx, w, httpx.NewError("invalid_input", "event is not handleable", http.StatusBadRequest))
			return
		}
		httpx.WriteError(ctx, w, httpx.NewError("engine_failure", "failed to process the event", http.StatusInternalServerError))
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "accepted"})
}

func (h *EventHandlers) authorized(r *http.Request) bool {
	if h.secret == "" {
		return true
	}
	provided := strings.TrimSpace(r.Header.Get(webhookSecretHeader))
	return subtle.ConstantTimeCompare([]byte(provided), []byte(h.secret)) == 1
}
