package services

import (
	"context"
	"errors"
	"strings"
	"time"

	domain "github.com/craftline/shopbot/internal/domain"
	"github.com/craftline/shopbot/internal/repositories"
)

var (
	errCatalogRepositoryRequired = errors.New("catalog service: repository is required")
	errCatalogClockRequired      = errors.New("catalog service: clock is required")
)

const defaultCatalogPageSize = 8

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogNotFound indicates the requested catalog entity does not exist.
var ErrCatalogNotFound = errors.New("catalog service: not found")

// ErrCatalogUnavailable indicates the catalog backend cannot fulfil the request.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// MediaURLResolver resolves stored media references into fetchable URLs.
type MediaURLResolver interface {
	Resolve(ctx context.Context, ref domain.MediaRef) (string, error)
}

// CatalogServiceDeps wires the repository and media dependencies for catalog operations.
type CatalogServiceDeps struct {
	Repository repositories.CatalogRepository
	Media      MediaURLResolver
	Clock      func() time.Time
	PageSize   int
	Logger     func(context.Context, string, map[string]any)
}

type catalogService struct {
	repo     repositories.CatalogRepository
	media    MediaURLResolver
	now      func() time.Time
	pageSize int
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Repository == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCatalogClockRequired
	}

	pageSize := deps.PageSize
	if pageSize <= 0 {
		pageSize = defaultCatalogPageSize
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		repo:     deps.Repository,
		media:    deps.Media,
		now:      func() time.Time { return deps.Clock().UTC() },
		pageSize: pageSize,
		logger:   logger,
	}, nil
}

func (s *catalogService) ListCategories(ctx context.Context) ([]string, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	categories, err := s.repo.ListCategories(ctx)
	if err != nil {
		return nil, translateCatalogRepoError(err)
	}
	return categories, nil
}

// ListProducts returns one page of the published assortment for a category.
// Pages are zero-based; a page past the end is empty, not an error.
func (s *catalogService) ListProducts(ctx context.Context, category string, page int) (ProductPage, error) {
	if s == nil || s.repo == nil {
		return ProductPage{}, ErrCatalogUnavailable
	}
	if page < 0 {
		return ProductPage{}, ErrCatalogInvalidInput
	}

	filter := repositories.ProductListFilter{
		Category:      strings.TrimSpace(category),
		PublishedOnly: true,
	}
	products, err := s.repo.ListProducts(ctx, filter)
	if err != nil {
		return ProductPage{}, translateCatalogRepoError(err)
	}

	start := page * s.pageSize
	if start >= len(products) {
		return ProductPage{Page: page}, nil
	}
	end := start + s.pageSize
	if end > len(products) {
		end = len(products)
	}
	return ProductPage{
		Products: products[start:end],
		Page:     page,
		HasMore:  end < len(products),
	}, nil
}

func (s *catalogService) GetProduct(ctx context.Context, productID string) (Product, error) {
	if s == nil || s.repo == nil {
		return Product{}, ErrCatalogUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return Product{}, ErrCatalogInvalidInput
	}
	product, err := s.repo.GetProduct(ctx, id)
	if err != nil {
		return Product{}, translateCatalogRepoError(err)
	}
	return product, nil
}

func (s *catalogService) BaseConfiguration(ctx context.Context, productID string) (ProductConfiguration, error) {
	if s == nil || s.repo == nil {
		return ProductConfiguration{}, ErrCatalogUnavailable
	}
	id := strings.TrimSpace(productID)
	if id == "" {
		return ProductConfiguration{}, ErrCatalogInvalidInput
	}
	cfg, err := s.repo.GetBaseConfiguration(ctx, id)
	if err != nil {
		return ProductConfiguration{}, translateCatalogRepoError(err)
	}
	return cfg, nil
}

// ReviveConfiguration merges a configuration restored from a session or cart
// against the catalog's current base, so stale selections survive catalog
// edits without resurrecting removed options.
func (s *catalogService) ReviveConfiguration(ctx context.Context, stale ProductConfiguration) (ProductConfiguration, error) {
	if s == nil || s.repo == nil {
		return ProductConfiguration{}, ErrCatalogUnavailable
	}
	if strings.TrimSpace(stale.ProductID) == "" {
		return ProductConfiguration{}, ErrCatalogInvalidInput
	}

	product, err := s.repo.GetProduct(ctx, stale.ProductID)
	if err != nil {
		return ProductConfiguration{}, translateCatalogRepoError(err)
	}
	base, err := s.repo.GetBaseConfiguration(ctx, product.ID)
	if err != nil {
		return ProductConfiguration{}, translateCatalogRepoError(err)
	}
	allowed, err := s.additionalsFor(ctx, product)
	if err != nil {
		return ProductConfiguration{}, err
	}

	merged, err := stale.Merge(base, allowed)
	if err != nil {
		s.logger(ctx, "catalog.configuration_merge_failed", map[string]any{
			"productID": stale.ProductID,
			"error":     err.Error(),
		})
		return ProductConfiguration{}, ErrCatalogUnavailable
	}
	return merged, nil
}

func (s *catalogService) AdditionalsFor(ctx context.Context, product Product) ([]ProductAdditional, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	if strings.TrimSpace(product.ID) == "" {
		return nil, ErrCatalogInvalidInput
	}
	return s.additionalsFor(ctx, product)
}

func (s *catalogService) additionalsFor(ctx context.Context, product Product) ([]ProductAdditional, error) {
	all, err := s.repo.ListAdditionals(ctx, product.Category)
	if err != nil {
		return nil, translateCatalogRepoError(err)
	}
	allowed := make([]ProductAdditional, 0, len(all))
	for _, add := range all {
		if add.AllowedFor(product.ID) {
			allowed = append(allowed, add)
		}
	}
	return allowed, nil
}

func (s *catalogService) DeliveryMethods(ctx context.Context) ([]DeliveryMethod, error) {
	if s == nil || s.repo == nil {
		return nil, ErrCatalogUnavailable
	}
	methods, err := s.repo.ListDeliveryMethods(ctx)
	if err != nil {
		return nil, translateCatalogRepoError(err)
	}
	return methods, nil
}

// MediaURL resolves a media reference to a signed URL. Without a configured
// resolver, and for zero references, the URL is empty and no error is raised
// so text-only rendering keeps working.
func (s *catalogService) MediaURL(ctx context.Context, ref MediaRef) (string, error) {
	if s == nil {
		return "", ErrCatalogUnavailable
	}
	if s.media == nil || ref.IsZero() {
		return "", nil
	}
	url, err := s.media.Resolve(ctx, ref)
	if err != nil {
		s.logger(ctx, "catalog.media_resolve_failed", map[string]any{
			"path":  ref.Path,
			"error": err.Error(),
		})
		return "", ErrCatalogUnavailable
	}
	return url, nil
}

func translateCatalogRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		switch {
		case repoErr.IsNotFound():
			return ErrCatalogNotFound
		case repoErr.IsUnavailable():
			return ErrCatalogUnavailable
		}
		return ErrCatalogUnavailable
	}
	return ErrCatalogUnavailable
}
