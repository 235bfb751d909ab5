package conversation

import (
	"context"
	"fmt"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/services"
)

func usd(amount int64) domain.LocalizedMoney {
	return domain.NewLocalizedMoney(map[string]int64{"USD": amount})
}

func en(value string) domain.LocalizedText {
	return domain.NewLocalizedText(map[string]string{"en": value})
}

type fakeSessions struct {
	sessions map[string]domain.Session
	saveErr  error
	loadErr  error
}

func newFakeSessions() *fakeSessions {
	return &fakeSessions{sessions: map[string]domain.Session{}}
}

func (s *fakeSessions) LoadOrCreate(ctx context.Context, sessionID string) (domain.Session, error) {
	if s.loadErr != nil {
		return domain.Session{}, s.loadErr
	}
	if session, ok := s.sessions[sessionID]; ok {
		return session.Clone(), nil
	}
	return domain.NewSession(sessionID), nil
}

func (s *fakeSessions) Save(ctx context.Context, session domain.Session) (domain.Session, error) {
	if s.saveErr != nil {
		return domain.Session{}, s.saveErr
	}
	stored, ok := s.sessions[session.ID]
	if ok && stored.Revision != session.Revision {
		return domain.Session{}, services.ErrSessionConflict
	}
	session.Revision++
	s.sessions[session.ID] = session.Clone()
	return session, nil
}

func (s *fakeSessions) Reset(ctx context.Context, sessionID string) error {
	delete(s.sessions, sessionID)
	return nil
}

func (s *fakeSessions) stored(sessionID string) domain.Session {
	return s.sessions[sessionID]
}

type fakeCatalog struct {
	categories  []string
	products    map[string]domain.Product
	order       []string
	configs     map[string]domain.ProductConfiguration
	additionals []domain.ProductAdditional
	delivery    []domain.DeliveryMethod
	mediaURLs   map[string]string
	failWith    error
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{
		products: map[string]domain.Product{},
		configs:  map[string]domain.ProductConfiguration{},
	}
}

func (c *fakeCatalog) addProduct(product domain.Product, cfg domain.ProductConfiguration) {
	c.products[product.ID] = product
	c.configs[product.ID] = cfg
	c.order = append(c.order, product.ID)
	for _, category := range c.categories {
		if category == product.Category {
			return
		}
	}
	c.categories = append(c.categories, product.Category)
}

func (c *fakeCatalog) ListCategories(ctx context.Context) ([]string, error) {
	if c.failWith != nil {
		return nil, c.failWith
	}
	return c.categories, nil
}

func (c *fakeCatalog) ListProducts(ctx context.Context, category string, page int) (services.ProductPage, error) {
	if c.failWith != nil {
		return services.ProductPage{}, c.failWith
	}
	out := services.ProductPage{Page: page}
	if page > 0 {
		return out, nil
	}
	for _, id := range c.order {
		product := c.products[id]
		if category == "" || product.Category == category {
			out.Products = append(out.Products, product)
		}
	}
	return out, nil
}

func (c *fakeCatalog) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if c.failWith != nil {
		return domain.Product{}, c.failWith
	}
	product, ok := c.products[productID]
	if !ok {
		return domain.Product{}, services.ErrCatalogNotFound
	}
	return product, nil
}

func (c *fakeCatalog) BaseConfiguration(ctx context.Context, productID string) (domain.ProductConfiguration, error) {
	if c.failWith != nil {
		return domain.ProductConfiguration{}, c.failWith
	}
	cfg, ok := c.configs[productID]
	if !ok {
		return domain.ProductConfiguration{}, services.ErrCatalogNotFound
	}
	return cfg.Clone(), nil
}

func (c *fakeCatalog) ReviveConfiguration(ctx context.Context, stale domain.ProductConfiguration) (domain.ProductConfiguration, error) {
	base, err := c.BaseConfiguration(ctx, stale.ProductID)
	if err != nil {
		return domain.ProductConfiguration{}, err
	}
	product := c.products[stale.ProductID]
	allowed, _ := c.AdditionalsFor(ctx, product)
	return stale.Merge(base, allowed)
}

func (c *fakeCatalog) AdditionalsFor(ctx context.Context, product domain.Product) ([]domain.ProductAdditional, error) {
	if c.failWith != nil {
		return nil, c.failWith
	}
	var allowed []domain.ProductAdditional
	for _, add := range c.additionals {
		if add.Category == product.Category && add.AllowedFor(product.ID) {
			allowed = append(allowed, add)
		}
	}
	return allowed, nil
}

func (c *fakeCatalog) DeliveryMethods(ctx context.Context) ([]domain.DeliveryMethod, error) {
	return c.delivery, nil
}

func (c *fakeCatalog) MediaURL(ctx context.Context, ref domain.MediaRef) (string, error) {
	if ref.IsZero() {
		return "", nil
	}
	return c.mediaURLs[ref.Path], nil
}

type fakeCarts struct {
	carts   map[string]domain.Cart
	nextID  int
	addErr  error
	cleared []string
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: map[string]domain.Cart{}}
}

func (c *fakeCarts) GetOrCreateCart(ctx context.Context, userID string) (domain.Cart, error) {
	cart, ok := c.carts[userID]
	if !ok {
		return domain.Cart{UserID: userID}, nil
	}
	return cart.Clone(), nil
}

func (c *fakeCarts) AddConfiguredEntry(ctx context.Context, cmd services.AddEntryCommand) (domain.Cart, domain.CartEntry, error) {
	if c.addErr != nil {
		return domain.Cart{}, domain.CartEntry{}, c.addErr
	}
	c.nextID++
	entry := domain.CartEntry{
		ID:            fmt.Sprintf("entry-%d", c.nextID),
		ProductID:     cmd.Product.ID,
		ProductName:   cmd.Product.Name.Clone(),
		Configuration: cmd.Configuration.Clone(),
		Price:         cmd.Product.BasePrice.Add(cmd.Configuration.Price),
		PriceBlocked:  cmd.Configuration.PriceBlocked,
	}
	cart := c.carts[cmd.UserID]
	cart.UserID = cmd.UserID
	cart.Entries = append(cart.Entries, entry)
	c.carts[cmd.UserID] = cart
	return cart.Clone(), entry, nil
}

func (c *fakeCarts) RemoveEntry(ctx context.Context, userID, entryID string) (domain.Cart, error) {
	cart := c.carts[userID]
	kept := cart.Entries[:0:0]
	for _, entry := range cart.Entries {
		if entry.ID != entryID {
			kept = append(kept, entry)
		}
	}
	cart.Entries = kept
	c.carts[userID] = cart
	return cart.Clone(), nil
}

func (c *fakeCarts) ClearCart(ctx context.Context, userID string) error {
	delete(c.carts, userID)
	c.cleared = append(c.cleared, userID)
	return nil
}

type fakeOrders struct {
	orders []domain.Order
}

func (o *fakeOrders) PlaceOrder(ctx context.Context, cmd services.PlaceOrderCommand) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (o *fakeOrders) GetOrder(ctx context.Context, orderID string) (domain.Order, error) {
	for _, order := range o.orders {
		if order.ID == orderID {
			return order, nil
		}
	}
	return domain.Order{}, services.ErrOrderNotFound
}

func (o *fakeOrders) ConfirmPayment(ctx context.Context, orderID string) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (o *fakeOrders) CancelOrder(ctx context.Context, orderID string) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (o *fakeOrders) MarkShipped(ctx context.Context, orderID string) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (o *fakeOrders) MarkCompleted(ctx context.Context, orderID string) (domain.Order, error) {
	return domain.Order{}, services.ErrOrderUnavailable
}

func (o *fakeOrders) ListOrders(ctx context.Context, userID string) ([]domain.Order, error) {
	var out []domain.Order
	for _, order := range o.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, nil
}

type sentView struct {
	userID string
	view   View
}

type fakeSink struct {
	sent    []sentView
	sendErr error
	block   chan struct{}
}

func (s *fakeSink) Send(ctx context.Context, userID string, view View) error {
	if s.block != nil {
		<-s.block
	}
	if s.sendErr != nil {
		return s.sendErr
	}
	s.sent = append(s.sent, sentView{userID: userID, view: view})
	return nil
}

func (s *fakeSink) last() View {
	if len(s.sent) == 0 {
		return View{}
	}
	return s.sent[len(s.sent)-1].view
}

func (s *fakeSink) labels() []string {
	view := s.last()
	out := make([]string, 0, len(view.Items))
	for _, item := range view.Items {
		out = append(out, item.Label)
	}
	return out
}
