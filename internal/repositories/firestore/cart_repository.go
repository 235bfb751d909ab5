package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
)

const cartCollection = "carts"

type cartDocument struct {
	Entries   []cartEntryDocument `firestore:"entries,omitempty"`
	UpdatedAt time.Time           `firestore:"updatedAt"`
}

type cartEntryDocument struct {
	ID            string            `firestore:"id"`
	ProductID     string            `firestore:"productId"`
	ProductName   map[string]string `firestore:"productName,omitempty"`
	Configuration map[string]any    `firestore:"configuration,omitempty"`
	Price         map[string]int64  `firestore:"price,omitempty"`
	PriceBlocked  bool              `firestore:"priceBlocked"`
	AddedAt       time.Time         `firestore:"addedAt"`
}

// CartRepository persists per-user carts within Firestore. The cart document
// embeds full configuration snapshots so entries survive catalog changes.
type CartRepository struct {
	base *pfirestore.BaseRepository[cartDocument]
	now  func() time.Time
}

// NewCartRepository constructs a Firestore-backed cart repository.
func NewCartRepository(provider *pfirestore.Provider) (*CartRepository, error) {
	if provider == nil {
		return nil, errors.New("cart repository requires firestore provider")
	}
	return &CartRepository{
		base: pfirestore.NewBaseRepository[cartDocument](provider, cartCollection, nil, nil),
		now:  time.Now,
	}, nil
}

// Get fetches the cart for a user. A missing document surfaces as a not-found
// repository error.
func (r *CartRepository) Get(ctx context.Context, userID string) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	doc, err := r.base.Get(ctx, userID)
	if err != nil {
		return domain.Cart{}, err
	}
	return cartFromDocument(doc.ID, doc.Data)
}

// Save upserts the full cart document for the user.
func (r *CartRepository) Save(ctx context.Context, cart domain.Cart) (domain.Cart, error) {
	if r == nil || r.base == nil {
		return domain.Cart{}, errors.New("cart repository not initialised")
	}
	userID := strings.TrimSpace(cart.UserID)
	if userID == "" {
		return domain.Cart{}, errors.New("cart repository: user id is required")
	}

	doc := cartDocument{
		Entries:   make([]cartEntryDocument, 0, len(cart.Entries)),
		UpdatedAt: r.now().UTC(),
	}
	for _, entry := range cart.Entries {
		doc.Entries = append(doc.Entries, entryToDocument(entry))
	}

	result, err := r.base.Set(ctx, userID, doc)
	if err != nil {
		return domain.Cart{}, err
	}

	saved := cart.Clone()
	saved.UserID = userID
	saved.UpdatedAt = result.UpdateTime
	return saved, nil
}

// Clear removes the cart document for the user.
func (r *CartRepository) Clear(ctx context.Context, userID string) error {
	if r == nil || r.base == nil {
		return errors.New("cart repository not initialised")
	}
	_, err := r.base.Delete(ctx, userID)
	return err
}

func entryToDocument(entry domain.CartEntry) cartEntryDocument {
	return cartEntryDocument{
		ID:            entry.ID,
		ProductID:     entry.ProductID,
		ProductName:   map[string]string(entry.ProductName),
		Configuration: entry.Configuration.Snapshot(),
		Price:         map[string]int64(entry.Price),
		PriceBlocked:  entry.PriceBlocked,
		AddedAt:       entry.AddedAt,
	}
}

func entryFromDocument(doc cartEntryDocument) (domain.CartEntry, error) {
	configuration, err := domain.ConfigurationFromSnapshot(doc.Configuration)
	if err != nil {
		return domain.CartEntry{}, err
	}
	return domain.CartEntry{
		ID:            doc.ID,
		ProductID:     doc.ProductID,
		ProductName:   domain.NewLocalizedText(doc.ProductName),
		Configuration: configuration,
		Price:         domain.NewLocalizedMoney(doc.Price),
		PriceBlocked:  doc.PriceBlocked,
		AddedAt:       doc.AddedAt,
	}, nil
}

func cartFromDocument(userID string, doc cartDocument) (domain.Cart, error) {
	cart := domain.Cart{
		UserID:    userID,
		UpdatedAt: doc.UpdatedAt,
	}
	for _, entryDoc := range doc.Entries {
		entry, err := entryFromDocument(entryDoc)
		if err != nil {
			return domain.Cart{}, err
		}
		cart.Entries = append(cart.Entries, entry)
	}
	return cart, nil
}
