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
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartNotFound indicates the requested cart or entry does not exist.
var ErrCartNotFound = errors.New("cart service: not found")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartUnavailable indicates the cart backend cannot fulfil the request.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// CartServiceDeps wires the repository and event dependencies for cart operations.
type CartServiceDeps struct {
	Repository  repositories.CartRepository
	Events      events.Publisher
	Clock       func() time.Time
	Logger      func(context.Context, string, map[string]any)
	IDGenerator func() string
}

type cartService struct {
	repo   repositories.CartRepository
	events events.Publisher
	newID  func() string
	now    func() time.Time
	logger func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:   deps.Repository,
		events: deps.Events,
		newID:  idGen,
		now:    func() time.Time { return deps.Clock().UTC() },
		logger: logger,
	}, nil
}

// GetOrCreateCart loads the cart for the user, returning an empty cart when absent.
func (s *cartService) GetOrCreateCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.Get(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{UserID: uid}, nil
		}
		return Cart{}, translateCartRepoError(err)
	}
	return cart, nil
}

// AddConfiguredEntry appends a configured product to the user's cart, pricing
// the entry from its configuration plus the product's base price.
func (s *cartService) AddConfiguredEntry(ctx context.Context, cmd AddEntryCommand) (Cart, CartEntry, error) {
	if s == nil || s.repo == nil {
		return Cart{}, CartEntry{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(cmd.UserID)
	if uid == "" {
		return Cart{}, CartEntry{}, ErrCartInvalidInput
	}
	if strings.TrimSpace(cmd.Product.ID) == "" {
		return Cart{}, CartEntry{}, ErrCartInvalidInput
	}
	if cmd.Configuration.ProductID != cmd.Product.ID {
		return Cart{}, CartEntry{}, ErrCartInvalidInput
	}

	cfg := cmd.Configuration.Clone()
	if err := cfg.RefreshPrice(); err != nil {
		return Cart{}, CartEntry{}, ErrCartInvalidInput
	}

	cart, err := s.repo.Get(ctx, uid)
	if err != nil {
		if !isRepoNotFound(err) {
			return Cart{}, CartEntry{}, translateCartRepoError(err)
		}
		cart = Cart{UserID: uid}
	}

	entry := domain.CartEntry{
		ID:            s.newID(),
		ProductID:     cmd.Product.ID,
		ProductName:   cmd.Product.Name.Clone(),
		Configuration: cfg,
		Price:         cmd.Product.BasePrice.Add(cfg.Price),
		PriceBlocked:  cfg.PriceBlocked,
		AddedAt:       s.now(),
	}
	cart.Entries = append(cart.Entries, entry)

	saved, err := s.repo.Save(ctx, cart)
	if err != nil {
		return Cart{}, CartEntry{}, translateCartRepoError(err)
	}

	s.publish(ctx, events.Message{
		Event:      events.EventCartEntryAdded,
		UserID:     uid,
		ProductID:  entry.ProductID,
		EntryID:    entry.ID,
		OccurredAt: entry.AddedAt,
	})
	s.logger(ctx, "cart.entry_added", map[string]any{
		"userID":    uid,
		"productID": entry.ProductID,
		"entryID":   entry.ID,
	})
	return saved, entry, nil
}

// RemoveEntry deletes one entry by id. Unknown entry ids fail with not found.
func (s *cartService) RemoveEntry(ctx context.Context, userID, entryID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	eid := strings.TrimSpace(entryID)
	if uid == "" || eid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.Get(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartNotFound
		}
		return Cart{}, translateCartRepoError(err)
	}

	kept := cart.Entries[:0:0]
	found := false
	for _, entry := range cart.Entries {
		if entry.ID == eid {
			found = true
			continue
		}
		kept = append(kept, entry)
	}
	if !found {
		return Cart{}, ErrCartNotFound
	}
	cart.Entries = kept

	saved, err := s.repo.Save(ctx, cart)
	if err != nil {
		return Cart{}, translateCartRepoError(err)
	}
	return saved, nil
}

func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrCartInvalidInput
	}
	if err := s.repo.Clear(ctx, uid); err != nil {
		return translateCartRepoError(err)
	}
	return nil
}

func (s *cartService) publish(ctx context.Context, message events.Message) {
	if s.events == nil {
		return
	}
	if _, err := s.events.Publish(ctx, message); err != nil {
		s.logger(ctx, "cart.event_publish_failed", map[string]any{
			"event": message.Event,
			"error": err.Error(),
		})
	}
}

func translateCartRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCartNotFound
		case repoErr.IsConflict():
			return ErrCartConflict
		case repoErr.IsUnavailable():
			return ErrCartUnavailable
		}
		return ErrCartUnavailable
	}
	return ErrCartUnavailable
}
