package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/craftline/shopbot/internal/domain"
	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
	"github.com/craftline/shopbot/internal/repositories"
)

const orderCollection = "orders"

type orderDocument struct {
	UserID       string              `firestore:"userId"`
	Entries      []cartEntryDocument `firestore:"entries,omitempty"`
	Currency     string              `firestore:"currency"`
	Delivery     *deliveryDocument   `firestore:"delivery,omitempty"`
	Total        int64               `firestore:"total"`
	PriceBlocked bool                `firestore:"priceBlocked"`
	Status       string              `firestore:"status"`
	CreatedAt    time.Time           `firestore:"createdAt"`
	UpdatedAt    time.Time           `firestore:"updatedAt"`
	ConfirmedAt  *time.Time          `firestore:"confirmedAt,omitempty"`
	CanceledAt   *time.Time          `firestore:"canceledAt,omitempty"`
}

type deliveryDocument struct {
	ID    string            `firestore:"id"`
	Name  map[string]string `firestore:"name,omitempty"`
	Price map[string]int64  `firestore:"price,omitempty"`
}

// OrderRepository persists placed orders within Firestore.
type OrderRepository struct {
	base     *pfirestore.BaseRepository[orderDocument]
	provider *pfirestore.Provider
	now      func() time.Time
}

// NewOrderRepository constructs a Firestore-backed order repository.
func NewOrderRepository(provider *pfirestore.Provider) (*OrderRepository, error) {
	if provider == nil {
		return nil, errors.New("order repository requires firestore provider")
	}
	return &OrderRepository{
		base:     pfirestore.NewBaseRepository[orderDocument](provider, orderCollection, nil, nil),
		provider: provider,
		now:      time.Now,
	}, nil
}

// Insert persists a new order under its pre-assigned ID.
func (r *OrderRepository) Insert(ctx context.Context, order domain.Order) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	orderID := strings.TrimSpace(order.ID)
	if orderID == "" {
		return domain.Order{}, errors.New("order repository: order id is required")
	}

	doc := orderToDocument(order)
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = r.now().UTC()
	}
	doc.UpdatedAt = doc.CreatedAt

	result, err := r.base.Set(ctx, orderID, doc)
	if err != nil {
		return domain.Order{}, err
	}

	saved := order.Clone()
	saved.ID = orderID
	saved.CreatedAt = doc.CreatedAt
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// FindByID fetches an order by its ID.
func (r *OrderRepository) FindByID(ctx context.Context, orderID string) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	doc, err := r.base.Get(ctx, orderID)
	if err != nil {
		return domain.Order{}, err
	}
	return orderFromDocument(doc.ID, doc.Data)
}

// UpdateStatus transitions the order to a new status inside a transaction,
// enforcing the legal transition table.
func (r *OrderRepository) UpdateStatus(ctx context.Context, orderID string, status domain.OrderStatus, at time.Time) (domain.Order, error) {
	if r == nil || r.base == nil {
		return domain.Order{}, errors.New("order repository not initialised")
	}
	if at.IsZero() {
		at = r.now()
	}
	at = at.UTC()

	var updated domain.Order
	err := r.provider.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		ref, err := r.base.DocumentRef(ctx, orderID)
		if err != nil {
			return err
		}
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}

		var doc orderDocument
		if err := snap.DataTo(&doc); err != nil {
			return err
		}

		current := domain.OrderStatus(doc.Status)
		if !domain.CanTransition(current, status) {
			return repositories.ErrOrderTransitionInvalid
		}

		doc.Status = string(status)
		doc.UpdatedAt = at
		switch status {
		case domain.OrderStatusConfirmed:
			doc.ConfirmedAt = &at
		case domain.OrderStatusCanceled:
			doc.CanceledAt = &at
		}

		updated, err = orderFromDocument(orderID, doc)
		if err != nil {
			return err
		}
		return tx.Set(ref, doc)
	})
	if err != nil {
		return domain.Order{}, err
	}
	return updated, nil
}

// ListByUser returns the user's orders, newest first.
func (r *OrderRepository) ListByUser(ctx context.Context, userID string, filter repositories.OrderListFilter) ([]domain.Order, error) {
	if r == nil || r.base == nil {
		return nil, errors.New("order repository not initialised")
	}

	docs, err := r.base.Query(ctx, func(query firestore.Query) firestore.Query {
		query = query.Where("userId", "==", strings.TrimSpace(userID))
		if filter.Status != "" {
			query = query.Where("status", "==", string(filter.Status))
		}
		query = query.OrderBy("createdAt", firestore.Desc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(docs))
	for _, doc := range docs {
		order, err := orderFromDocument(doc.ID, doc.Data)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, nil
}

func orderToDocument(order domain.Order) orderDocument {
	doc := orderDocument{
		UserID:       strings.TrimSpace(order.UserID),
		Currency:     domain.NormalizeCurrency(order.Currency),
		Total:        order.Total,
		PriceBlocked: order.PriceBlocked,
		Status:       string(order.Status),
		ConfirmedAt:  order.ConfirmedAt,
		CanceledAt:   order.CanceledAt,
	}
	if !order.CreatedAt.IsZero() {
		doc.CreatedAt = order.CreatedAt.UTC()
	}
	for _, entry := range order.Entries {
		doc.Entries = append(doc.Entries, entryToDocument(entry))
	}
	if order.Delivery != nil {
		doc.Delivery = &deliveryDocument{
			ID:    order.Delivery.ID,
			Name:  map[string]string(order.Delivery.Name),
			Price: map[string]int64(order.Delivery.Price),
		}
	}
	return doc
}

func orderFromDocument(id string, doc orderDocument) (domain.Order, error) {
	order := domain.Order{
		ID:           id,
		UserID:       doc.UserID,
		Currency:     domain.NormalizeCurrency(doc.Currency),
		Total:        doc.Total,
		PriceBlocked: doc.PriceBlocked,
		Status:       domain.OrderStatus(doc.Status),
		CreatedAt:    doc.CreatedAt,
		UpdatedAt:    doc.UpdatedAt,
		ConfirmedAt:  doc.ConfirmedAt,
		CanceledAt:   doc.CanceledAt,
	}
	for _, entryDoc := range doc.Entries {
		entry, err := entryFromDocument(entryDoc)
		if err != nil {
			return domain.Order{}, err
		}
		order.Entries = append(order.Entries, entry)
	}
	if doc.Delivery != nil {
		order.Delivery = &domain.DeliveryMethod{
			ID:    doc.Delivery.ID,
			Name:  domain.NewLocalizedText(doc.Delivery.Name),
			Price: domain.NewLocalizedMoney(doc.Delivery.Price),
		}
	}
	return order, nil
}
