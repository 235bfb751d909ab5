package conversation

import (
	"context"
	"fmt"
	"strings"

	domain "github.com/craftline/shopbot/internal/domain"
)

func (e *Engine) mainMenuItems() []ViewItem {
	return []ViewItem{
		{Label: labelCatalog},
		{Label: labelCart},
		{Label: labelOrders},
	}
}

func (e *Engine) handleMainMenu(ctx context.Context, t *turn) error {
	switch t.text() {
	case labelCatalog:
		t.session.Delete(keyCategory)
		t.session.Delete(keyPage)
		t.session.State = StateBrowsingAssortment
		return e.renderCategories(ctx, t)
	case labelCart:
		return e.renderCartSummary(ctx, t)
	case labelOrders:
		return e.renderOrders(ctx, t)
	}
	return e.send(ctx, t.event.UserID, View{
		Text:  "What would you like to do?",
		Items: e.mainMenuItems(),
	})
}

func (e *Engine) handleBrowsingAssortment(ctx context.Context, t *turn) error {
	if t.text() == labelMainMenu {
		t.session.State = StateMainMenu
		return e.handleMainMenu(ctx, &turn{session: t.session, event: Event{UserID: t.event.UserID}})
	}

	category := t.session.GetString(keyCategory)
	if category == "" {
		return e.pickCategory(ctx, t)
	}
	return e.pickProduct(ctx, t, category)
}

func (e *Engine) pickCategory(ctx context.Context, t *turn) error {
	categories, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	choice := t.text()
	for _, category := range categories {
		if category == choice {
			t.session.Set(keyCategory, category)
			t.session.Set(keyPage, 0)
			return e.renderProducts(ctx, t, category)
		}
	}
	return e.renderCategories(ctx, t)
}

func (e *Engine) pickProduct(ctx context.Context, t *turn, category string) error {
	switch t.text() {
	case labelBack:
		t.session.Delete(keyCategory)
		t.session.Delete(keyPage)
		return e.renderCategories(ctx, t)
	case labelMore:
		t.session.Set(keyPage, sessionInt(t.session.Get(keyPage))+1)
		return e.renderProducts(ctx, t, category)
	}

	page, err := e.catalog.ListProducts(ctx, category, sessionInt(t.session.Get(keyPage)))
	if err != nil {
		return err
	}
	choice := t.text()
	for _, product := range page.Products {
		if strings.TrimSpace(product.Name.Get(e.language)) == choice {
			t.session.Set(keyProductID, product.ID)
			t.session.State = StateViewingProduct
			return e.renderProduct(ctx, t, product, "")
		}
	}
	return e.renderProducts(ctx, t, category)
}

func (e *Engine) handleViewingProduct(ctx context.Context, t *turn) error {
	product, err := e.catalog.GetProduct(ctx, t.session.GetString(keyProductID))
	if err != nil {
		return err
	}

	switch t.text() {
	case labelConfig:
		cfg, err := e.catalog.BaseConfiguration(ctx, product.ID)
		if err != nil {
			return err
		}
		t.saveConfiguration(cfg)
		t.session.State = StateFormingEntry
		return e.renderEntry(ctx, t, cfg, product)
	case labelBack:
		t.session.Delete(keyProductID)
		t.session.State = StateBrowsingAssortment
		return e.renderProducts(ctx, t, t.session.GetString(keyCategory))
	case labelMainMenu:
		t.session.State = StateMainMenu
		return e.handleMainMenu(ctx, &turn{session: t.session, event: Event{UserID: t.event.UserID}})
	}
	return e.renderProduct(ctx, t, product, "")
}

func (e *Engine) renderCategories(ctx context.Context, t *turn) error {
	categories, err := e.catalog.ListCategories(ctx)
	if err != nil {
		return err
	}
	items := make([]ViewItem, 0, len(categories)+1)
	for _, category := range categories {
		items = append(items, ViewItem{Label: category})
	}
	items = append(items, ViewItem{Label: labelMainMenu})
	return e.send(ctx, t.event.UserID, View{
		Text:  "Pick a category.",
		Items: items,
	})
}

func (e *Engine) renderProducts(ctx context.Context, t *turn, category string) error {
	page, err := e.catalog.ListProducts(ctx, category, sessionInt(t.session.Get(keyPage)))
	if err != nil {
		return err
	}
	items := make([]ViewItem, 0, len(page.Products)+3)
	for _, product := range page.Products {
		items = append(items, ViewItem{Label: product.Name.Get(e.language)})
	}
	if page.HasMore {
		items = append(items, ViewItem{Label: labelMore})
	}
	items = append(items, ViewItem{Label: labelBack}, ViewItem{Label: labelMainMenu})
	return e.send(ctx, t.event.UserID, View{
		Text:  fmt.Sprintf("%s:", category),
		Items: items,
	})
}

func (e *Engine) renderProduct(ctx context.Context, t *turn, product domain.Product, lead string) error {
	mediaURL, err := e.catalog.MediaURL(ctx, product.Media)
	if err != nil {
		// Media is decorative; render text-only rather than failing the turn.
		mediaURL = ""
	}

	var text strings.Builder
	if lead != "" {
		text.WriteString(lead)
		text.WriteString("\n\n")
	}
	text.WriteString(product.Name.Get(e.language))
	if description := product.Description.Get(e.language); description != "" {
		text.WriteString("\n")
		text.WriteString(description)
	}
	text.WriteString("\n")
	text.WriteString(e.formatPrice(product.BasePrice, false))

	view := View{
		Text:     text.String(),
		MediaURL: mediaURL,
		Items: []ViewItem{
			{Label: labelConfig},
			{Label: labelBack},
			{Label: labelMainMenu},
		},
	}
	if mediaURL != "" {
		view.MediaKind = product.Media.Kind
	}
	return e.send(ctx, t.event.UserID, view)
}

func (e *Engine) renderCartSummary(ctx context.Context, t *turn) error {
	cart, err := e.carts.GetOrCreateCart(ctx, t.event.UserID)
	if err != nil {
		return err
	}
	if len(cart.Entries) == 0 {
		return e.send(ctx, t.event.UserID, View{
			Text:  "Your cart is empty.",
			Items: e.mainMenuItems(),
		})
	}

	var text strings.Builder
	text.WriteString("Your cart:\n")
	for _, entry := range cart.Entries {
		fmt.Fprintf(&text, "- %s: %s\n", entry.ProductName.Get(e.language), e.formatPrice(entry.Price, entry.PriceBlocked))
	}
	fmt.Fprintf(&text, "Total: %s", e.formatPrice(cart.Total(), cart.PriceBlocked()))
	return e.send(ctx, t.event.UserID, View{
		Text:  text.String(),
		Items: e.mainMenuItems(),
	})
}

func (e *Engine) renderOrders(ctx context.Context, t *turn) error {
	orders, err := e.orders.ListOrders(ctx, t.event.UserID)
	if err != nil {
		return err
	}
	if len(orders) == 0 {
		return e.send(ctx, t.event.UserID, View{
			Text:  "You have no orders yet.",
			Items: e.mainMenuItems(),
		})
	}

	var text strings.Builder
	text.WriteString("Your orders:\n")
	for _, order := range orders {
		total := domain.NewLocalizedMoney(map[string]int64{order.Currency: order.Total})
		fmt.Fprintf(&text, "- %s: %s (%s)\n", order.ID, total.Format(order.Currency, e.symbols), order.Status)
	}
	return e.send(ctx, t.event.UserID, View{
		Text:  strings.TrimRight(text.String(), "\n"),
		Items: e.mainMenuItems(),
	})
}

// sessionInt normalises numeric session values, which come back from the
// document store as int64.
func sessionInt(value any) int {
	switch v := value.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return 0
}
