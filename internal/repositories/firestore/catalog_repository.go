package firestore

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"cloud.google.com/go/firestore"

	domain "github.com/craftline/shopbot/internal/domain"
	pfirestore "github.com/craftline/shopbot/internal/platform/firestore"
	"github.com/craftline/shopbot/internal/repositories"
)

const (
	productCollection        = "products"
	additionalCollection     = "additionals"
	deliveryMethodCollection = "delivery_methods"
)

type productDocument struct {
	Category      string            `firestore:"category"`
	Name          map[string]string `firestore:"name"`
	Description   map[string]string `firestore:"description,omitempty"`
	MediaKind     string            `firestore:"mediaKind,omitempty"`
	MediaPath     string            `firestore:"mediaPath,omitempty"`
	BasePrice     map[string]int64  `firestore:"basePrice,omitempty"`
	IsPublished   bool              `firestore:"isPublished"`
	Configuration map[string]any    `firestore:"configuration,omitempty"`
	UpdatedAt     time.Time         `firestore:"updatedAt"`
}

type additionalDocument struct {
	Name               map[string]string `firestore:"name"`
	Price              map[string]int64  `firestore:"price,omitempty"`
	Category           string            `firestore:"category"`
	DisallowedProducts []string          `firestore:"disallowedProducts,omitempty"`
}

type deliveryMethodDocument struct {
	Name  map[string]string `firestore:"name"`
	Price map[string]int64  `firestore:"price,omitempty"`
	Order int               `firestore:"order"`
}

// CatalogRepository serves the published assortment from Firestore.
type CatalogRepository struct {
	products    *pfirestore.BaseRepository[productDocument]
	additionals *pfirestore.BaseRepository[additionalDocument]
	deliveries  *pfirestore.BaseRepository[deliveryMethodDocument]
}

// NewCatalogRepository constructs a Firestore-backed catalog repository.
func NewCatalogRepository(provider *pfirestore.Provider) (*CatalogRepository, error) {
	if provider == nil {
		return nil, errors.New("catalog repository requires firestore provider")
	}
	return &CatalogRepository{
		products:    pfirestore.NewBaseRepository[productDocument](provider, productCollection, nil, nil),
		additionals: pfirestore.NewBaseRepository[additionalDocument](provider, additionalCollection, nil, nil),
		deliveries:  pfirestore.NewBaseRepository[deliveryMethodDocument](provider, deliveryMethodCollection, nil, nil),
	}, nil
}

// ListCategories returns the distinct categories of published products, sorted.
func (r *CatalogRepository) ListCategories(ctx context.Context) ([]string, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.products.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.Where("isPublished", "==", true).Select("category")
	})
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	categories := make([]string, 0)
	for _, doc := range docs {
		category := strings.TrimSpace(doc.Data.Category)
		if category == "" {
			continue
		}
		if _, ok := seen[category]; ok {
			continue
		}
		seen[category] = struct{}{}
		categories = append(categories, category)
	}
	sort.Strings(categories)
	return categories, nil
}

// ListProducts returns products matching the filter, ordered by document ID.
func (r *CatalogRepository) ListProducts(ctx context.Context, filter repositories.ProductListFilter) ([]domain.Product, error) {
	if r == nil || r.products == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.products.Query(ctx, func(query firestore.Query) firestore.Query {
		if filter.PublishedOnly {
			query = query.Where("isPublished", "==", true)
		}
		if category := strings.TrimSpace(filter.Category); category != "" {
			query = query.Where("category", "==", category)
		}
		query = query.OrderBy(firestore.DocumentID, firestore.Asc)
		if filter.Limit > 0 {
			query = query.Limit(filter.Limit)
		}
		return query
	})
	if err != nil {
		return nil, err
	}

	products := make([]domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, productFromDocument(doc.ID, doc.Data))
	}
	return products, nil
}

// GetProduct fetches a single product by ID.
func (r *CatalogRepository) GetProduct(ctx context.Context, productID string) (domain.Product, error) {
	if r == nil || r.products == nil {
		return domain.Product{}, errors.New("catalog repository not initialised")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.Product{}, err
	}
	return productFromDocument(doc.ID, doc.Data), nil
}

// GetBaseConfiguration hydrates the catalog-defined configuration for a product.
func (r *CatalogRepository) GetBaseConfiguration(ctx context.Context, productID string) (domain.ProductConfiguration, error) {
	if r == nil || r.products == nil {
		return domain.ProductConfiguration{}, errors.New("catalog repository not initialised")
	}
	doc, err := r.products.Get(ctx, productID)
	if err != nil {
		return domain.ProductConfiguration{}, err
	}
	if len(doc.Data.Configuration) == 0 {
		return domain.NewProductConfiguration(doc.ID, nil, nil)
	}
	return domain.ConfigurationFromSnapshot(doc.Data.Configuration)
}

// ListAdditionals returns the add-ons available for a category.
func (r *CatalogRepository) ListAdditionals(ctx context.Context, category string) ([]domain.ProductAdditional, error) {
	if r == nil || r.additionals == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.additionals.Query(ctx, func(query firestore.Query) firestore.Query {
		if trimmed := strings.TrimSpace(category); trimmed != "" {
			query = query.Where("category", "==", trimmed)
		}
		return query.OrderBy(firestore.DocumentID, firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	additionals := make([]domain.ProductAdditional, 0, len(docs))
	for _, doc := range docs {
		additionals = append(additionals, domain.ProductAdditional{
			ID:                 doc.ID,
			Name:               domain.NewLocalizedText(doc.Data.Name),
			Price:              domain.NewLocalizedMoney(doc.Data.Price),
			Category:           doc.Data.Category,
			DisallowedProducts: append([]string(nil), doc.Data.DisallowedProducts...),
		})
	}
	return additionals, nil
}

// ListDeliveryMethods returns the configured delivery channels in display order.
func (r *CatalogRepository) ListDeliveryMethods(ctx context.Context) ([]domain.DeliveryMethod, error) {
	if r == nil || r.deliveries == nil {
		return nil, errors.New("catalog repository not initialised")
	}

	docs, err := r.deliveries.Query(ctx, func(query firestore.Query) firestore.Query {
		return query.OrderBy("order", firestore.Asc)
	})
	if err != nil {
		return nil, err
	}

	methods := make([]domain.DeliveryMethod, 0, len(docs))
	for _, doc := range docs {
		methods = append(methods, domain.DeliveryMethod{
			ID:    doc.ID,
			Name:  domain.NewLocalizedText(doc.Data.Name),
			Price: domain.NewLocalizedMoney(doc.Data.Price),
		})
	}
	return methods, nil
}

func productFromDocument(id string, doc productDocument) domain.Product {
	return domain.Product{
		ID:          id,
		Category:    doc.Category,
		Name:        domain.NewLocalizedText(doc.Name),
		Description: domain.NewLocalizedText(doc.Description),
		Media: domain.MediaRef{
			Kind: domain.MediaKind(doc.MediaKind),
			Path: doc.MediaPath,
		},
		BasePrice:   domain.NewLocalizedMoney(doc.BasePrice),
		IsPublished: doc.IsPublished,
		UpdatedAt:   doc.UpdatedAt,
	}
}
