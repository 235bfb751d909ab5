package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/services"
)

var tracer = otel.Tracer("github.com/craftline/shopbot/internal/conversation")

var (
	errEngineSessionsRequired = errors.New("conversation engine: session service is required")
	errEngineCatalogRequired  = errors.New("conversation engine: catalog service is required")
	errEngineCartsRequired    = errors.New("conversation engine: cart service is required")
	errEngineOrdersRequired   = errors.New("conversation engine: order service is required")
	errEngineSinkRequired     = errors.New("conversation engine: sink is required")
	errEngineClockRequired    = errors.New("conversation engine: clock is required")
)

// ErrEngineInvalidInput indicates the inbound event is structurally unusable.
var ErrEngineInvalidInput = errors.New("conversation engine: invalid input")

const genericErrorText = "Something went wrong. Returning to the main menu."

// EngineDeps wires the collaborating services into the conversation engine.
type EngineDeps struct {
	Sessions services.SessionService
	Catalog  services.CatalogService
	Carts    services.CartService
	Orders   services.OrderService
	Sink     Sink
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
	Language string
	Currency string
	Symbols  domain.CurrencySymbols
}

// Engine drives the per-user conversation state machine. One inbound event
// advances one user's session by exactly one step; concurrent events for the
// same user are dropped by the gate.
type Engine struct {
	sessions services.SessionService
	catalog  services.CatalogService
	carts    services.CartService
	orders   services.OrderService
	sink     Sink
	gate     *userGate
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
	language string
	currency string
	symbols  domain.CurrencySymbols

	handlers map[string]handlerFunc
}

type handlerFunc func(ctx context.Context, t *turn) error

// turn carries the mutable per-event working set through a handler.
type turn struct {
	session domain.Session
	event   Event
}

// NewEngine constructs an Engine enforcing dependency validation.
func NewEngine(deps EngineDeps) (*Engine, error) {
	if deps.Sessions == nil {
		return nil, errEngineSessionsRequired
	}
	if deps.Catalog == nil {
		return nil, errEngineCatalogRequired
	}
	if deps.Carts == nil {
		return nil, errEngineCartsRequired
	}
	if deps.Orders == nil {
		return nil, errEngineOrdersRequired
	}
	if deps.Sink == nil {
		return nil, errEngineSinkRequired
	}
	if deps.Clock == nil {
		return nil, errEngineClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}
	language := strings.TrimSpace(deps.Language)
	if language == "" {
		language = domain.DefaultLanguage
	}
	currency := domain.NormalizeCurrency(deps.Currency)
	if currency == "" {
		currency = "USD"
	}

	engine := &Engine{
		sessions: deps.Sessions,
		catalog:  deps.Catalog,
		carts:    deps.Carts,
		orders:   deps.Orders,
		sink:     deps.Sink,
		gate:     newUserGate(),
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
		language: language,
		currency: currency,
		symbols:  deps.Symbols,
	}
	engine.handlers = map[string]handlerFunc{
		StateMainMenu:           engine.handleMainMenu,
		StateBrowsingAssortment: engine.handleBrowsingAssortment,
		StateViewingProduct:     engine.handleViewingProduct,
		StateFormingEntry:       engine.handleFormingEntry,
		StateOptionSelect:       engine.handleOptionSelect,
		StateChoiceEditValue:    engine.handleChoiceEditValue,
		StateSwitchesEditing:    engine.handleSwitchesEditing,
		StateAdditionalsEditing: engine.handleAdditionalsEditing,
	}
	return engine, nil
}

// Handle advances the user's conversation by one event. A second event for
// the same user arriving mid-handling is dropped. Handler failures surface to
// the user as one generic message plus a forced return to the main menu.
func (e *Engine) Handle(ctx context.Context, event Event) error {
	uid := strings.TrimSpace(event.UserID)
	if uid == "" {
		return ErrEngineInvalidInput
	}
	event.UserID = uid

	if !e.gate.tryAcquire(uid) {
		e.logger(ctx, "conversation.event_dropped", map[string]any{"userID": uid})
		return nil
	}
	defer e.gate.release(uid)

	session, err := e.sessions.LoadOrCreate(ctx, uid)
	if err != nil {
		e.logger(ctx, "conversation.session_load_failed", map[string]any{
			"userID": uid,
			"error":  err.Error(),
		})
		_ = e.send(ctx, uid, View{Text: genericErrorText})
		return err
	}
	if strings.TrimSpace(session.State) == "" {
		session.State = StateMainMenu
	}

	ctx, span := tracer.Start(ctx, "conversation.handle")
	span.SetAttributes(attribute.String("conversation.state", session.State))
	defer span.End()

	t := &turn{session: session, event: event}
	if err := e.dispatch(ctx, t); err != nil {
		span.SetStatus(otelcodes.Error, err.Error())
		return e.recoverTurn(ctx, t, err)
	}
	return e.persist(ctx, t)
}

// dispatch runs the state handler, converting panics into errors so the
// blanket recovery path below stays the single failure boundary.
func (e *Engine) dispatch(ctx context.Context, t *turn) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("conversation engine: handler panic: %v", r)
		}
	}()

	handler, ok := e.handlers[t.session.State]
	if !ok {
		t.session.State = StateMainMenu
		handler = e.handleMainMenu
	}
	return handler(ctx, t)
}

// recoverTurn is the blanket recovery path: one generic message, session
// forced back to the main menu, no partial rollback of already-persisted
// snapshots.
func (e *Engine) recoverTurn(ctx context.Context, t *turn, cause error) error {
	e.logger(ctx, "conversation.handler_failed", map[string]any{
		"userID": t.event.UserID,
		"state":  t.session.State,
		"error":  cause.Error(),
	})

	_ = e.send(ctx, t.event.UserID, View{
		Text:  genericErrorText,
		Items: e.mainMenuItems(),
	})

	t.session.State = StateMainMenu
	if _, err := e.sessions.Save(ctx, t.session); err != nil {
		e.logger(ctx, "conversation.recovery_save_failed", map[string]any{
			"userID": t.event.UserID,
			"error":  err.Error(),
		})
	}
	return nil
}

func (e *Engine) persist(ctx context.Context, t *turn) error {
	saved, err := e.sessions.Save(ctx, t.session)
	if err != nil {
		if errors.Is(err, services.ErrSessionConflict) {
			// A concurrent event won the write race; this turn's changes are
			// dropped rather than retried.
			e.logger(ctx, "conversation.session_write_dropped", map[string]any{
				"userID": t.event.UserID,
				"state":  t.session.State,
			})
			return nil
		}
		e.logger(ctx, "conversation.session_save_failed", map[string]any{
			"userID": t.event.UserID,
			"error":  err.Error(),
		})
		return err
	}
	t.session = saved
	return nil
}

func (e *Engine) send(ctx context.Context, userID string, view View) error {
	return e.sink.Send(ctx, userID, view)
}

func (e *Engine) formatPrice(price domain.LocalizedMoney, blocked bool) string {
	if blocked {
		return "price on request"
	}
	return price.Format(e.currency, e.symbols)
}

// configuration restores the in-progress configuration from the session and
// re-synchronizes it against the current catalog, so selections survive
// catalog edits made mid-session without resurrecting removed options. The
// revived snapshot replaces the stored one.
func (e *Engine) configuration(ctx context.Context, t *turn) (domain.ProductConfiguration, error) {
	stale, err := t.configuration()
	if err != nil {
		return domain.ProductConfiguration{}, err
	}
	revived, err := e.catalog.ReviveConfiguration(ctx, stale)
	if err != nil {
		return domain.ProductConfiguration{}, err
	}
	t.saveConfiguration(revived)
	return revived, nil
}

// configuration decodes the raw configuration snapshot from the session.
func (t *turn) configuration() (domain.ProductConfiguration, error) {
	raw, ok := t.session.Get(keyConfiguration).(map[string]any)
	if !ok {
		return domain.ProductConfiguration{}, fmt.Errorf("conversation engine: no configuration in session")
	}
	return domain.ConfigurationFromSnapshot(raw)
}

func (t *turn) saveConfiguration(cfg domain.ProductConfiguration) {
	t.session.Set(keyConfiguration, cfg.Snapshot())
}

func (t *turn) clearConfiguration() {
	t.session.Delete(keyConfiguration)
	t.session.Delete(keyOptionKey)
	t.session.Delete(keyBeforeOption)
}

func (t *turn) text() string {
	return strings.TrimSpace(t.event.Text)
}
