package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/platform/events"
	"github.com/craftline/shopbot/internal/repositories"
)

type repoError struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repoError) Error() string       { return "repo error" }
func (e *repoError) IsNotFound() bool    { return e.notFound }
func (e *repoError) IsConflict() bool    { return e.conflict }
func (e *repoError) IsUnavailable() bool { return e.unavailable }

var (
	errRepoNotFound    = &repoError{notFound: true}
	errRepoUnavailable = &repoError{unavailable: true}
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func sequentialIDs(prefix string) func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("%s-%d", prefix, n)
	}
}

func usd(amount int64) domain.LocalizedMoney {
	return domain.NewLocalizedMoney(map[string]int64{"USD": amount})
}

func en(value string) domain.LocalizedText {
	return domain.NewLocalizedText(map[string]string{"en": value})
}

func testProduct(id string) domain.Product {
	return domain.Product{
		ID:          id,
		Category:    "mugs",
		Name:        en("Mug " + id),
		BasePrice:   usd(1000),
		IsPublished: true,
	}
}

func testConfiguration(t *testing.T, productID string) domain.ProductConfiguration {
	t.Helper()
	opt := domain.ConfigurationOption{
		Name:   en("Size"),
		Prompt: en("Pick a size"),
		Order:  []string{"small", "large"},
		Choices: map[string]domain.OptionVariant{
			"small": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Small")}),
			"large": domain.NewChoiceVariant(domain.ConfigurationChoice{Label: en("Large"), Price: usd(500)}),
		},
		Chosen: "large",
	}
	cfg, err := domain.NewProductConfiguration(productID, map[string]domain.ConfigurationOption{"size": opt}, []string{"size"})
	if err != nil {
		t.Fatalf("NewProductConfiguration error: %v", err)
	}
	return cfg
}

type fakeSessionRepo struct {
	sessions map[string]domain.Session
	loadErr  error
	saveErr  error
	deleted  []string
}

func newFakeSessionRepo() *fakeSessionRepo {
	return &fakeSessionRepo{sessions: map[string]domain.Session{}}
}

func (r *fakeSessionRepo) Load(ctx context.Context, sessionID string) (domain.Session, error) {
	if r.loadErr != nil {
		return domain.Session{}, r.loadErr
	}
	session, ok := r.sessions[sessionID]
	if !ok {
		return domain.Session{}, errRepoNotFound
	}
	return session, nil
}

func (r *fakeSessionRepo) Save(ctx context.Context, session domain.Session) (domain.Session, error) {
	if r.saveErr != nil {
		return domain.Session{}, r.saveErr
	}
	stored, ok := r.sessions[session.ID]
	if ok && stored.Revision != session.Revision {
		return domain.Session{}, repositories.ErrSessionRevisionMismatch
	}
	if !ok && session.Revision != 0 {
		return domain.Session{}, repositories.ErrSessionRevisionMismatch
	}
	session.Revision++
	r.sessions[session.ID] = session
	return session, nil
}

func (r *fakeSessionRepo) Delete(ctx context.Context, sessionID string) error {
	delete(r.sessions, sessionID)
	r.deleted = append(r.deleted, sessionID)
	return nil
}

type fakeCatalogRepo struct {
	categories  []string
	products    []domain.Product
	configs     map[string]domain.ProductConfiguration
	additionals []domain.ProductAdditional
	delivery    []domain.DeliveryMethod
	err         error
}

func (r *fakeCatalogRepo) ListCategories(ctx context.Context) ([]string, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.categories, nil
}

func (r *fakeCatalogRepo) ListProducts(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.Product, 0, len(r.products))
	for _, product := range r.products {
		if filter.Category != "" && product.Category != filter.Category {
			continue
		}
		if filter.PublishedOnly && !product.IsPublished {
			continue
		}
		out = append(out, product)
	}
	return out, nil
}

func (r *fakeCatalogRepo) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r.err != nil {
		return domain.Product{}, r.err
	}
	for _, product := range r.products {
		if product.ID == productID {
			return product, nil
		}
	}
	return domain.Product{}, errRepoNotFound
}

func (r *fakeCatalogRepo) GetBaseConfiguration(ctx context.Context, productID string) (domain.ProductConfiguration, error) {
	if r.err != nil {
		return domain.ProductConfiguration{}, r.err
	}
	cfg, ok := r.configs[productID]
	if !ok {
		return domain.ProductConfiguration{}, errRepoNotFound
	}
	return cfg.Clone(), nil
}

func (r *fakeCatalogRepo) ListAdditionals(ctx context.Context, category string) ([]domain.ProductAdditional, error) {
	if r.err != nil {
		return nil, r.err
	}
	out := make([]domain.ProductAdditional, 0, len(r.additionals))
	for _, add := range r.additionals {
		if category != "" && add.Category != category {
			continue
		}
		out = append(out, add)
	}
	return out, nil
}

func (r *fakeCatalogRepo) ListDeliveryMethods(ctx context.Context) ([]domain.DeliveryMethod, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.delivery, nil
}

type fakeCartRepo struct {
	carts    map[string]domain.Cart
	getErr   error
	saveErr  error
	clearErr error
	cleared  []string
}

func newFakeCartRepo() *fakeCartRepo {
	return &fakeCartRepo{carts: map[string]domain.Cart{}}
}

func (r *fakeCartRepo) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if r.getErr != nil {
		return domain.Cart{}, r.getErr
	}
	cart, ok := r.carts[userID]
	if !ok {
		return domain.Cart{}, errRepoNotFound
	}
	return cart.Clone(), nil
}

func (r *fakeCartRepo) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r.saveErr != nil {
		return domain.Cart{}, r.saveErr
	}
	r.carts[cart.UserID] = cart.Clone()
	return cart, nil
}

func (r *fakeCartRepo) Clear(ctx context.Context, userID string) error {
	if r.clearErr != nil {
		return r.clearErr
	}
	delete(r.carts, userID)
	r.cleared = append(r.cleared, userID)
	return nil
}

type fakeOrderRepo struct {
	orders    map[string]domain.Order
	insertErr error
	updateErr error
}

func newFakeOrderRepo() *fakeOrderRepo {
	return &fakeOrderRepo{orders: map[string]domain.Order{}}
}

func (r *fakeOrderRepo) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r.insertErr != nil {
		return domain.Order{}, r.insertErr
	}
	r.orders[order.ID] = order.Clone()
	return order, nil
}

func (r *fakeOrderRepo) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	return order.Clone(), nil
}

func (r *fakeOrderRepo) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) (domain.Order, error) {
	if r.updateErr != nil {
		return domain.Order{}, r.updateErr
	}
	order, ok := r.orders[orderID]
	if !ok {
		return domain.Order{}, errRepoNotFound
	}
	if !domain.CanTransition(order.Status, status) {
		return domain.Order{}, repositories.ErrOrderTransitionInvalid
	}
	order.Status = status
	order.UpdatedAt = at
	r.orders[orderID] = order
	return order.Clone(), nil
}

func (r *fakeOrderRepo) ListByUser(ctx context.Context, userID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
	out := make([]domain.Order, 0, len(r.orders))
	for _, order := range r.orders {
		if order.UserID != userID {
			continue
		}
		if filter.Status != "" && order.Status != filter.Status {
			continue
		}
		out = append(out, order.Clone())
	}
	return out, nil
}

type fakePublisher struct {
	messages []events.Message
	err      error
}

func (p *fakePublisher) Publish(ctx context.Context, message events.Message) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	p.messages = append(p.messages, message)
	return fmt.Sprintf("msg-%d", len(p.messages)), nil
}
