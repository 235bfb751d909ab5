package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/craftline/shopbot/internal/conversation"
	"github.com/craftline/shopbot/internal/platform/config"
	"github.com/craftline/shopbot/internal/platform/events"
	"github.com/craftline/shopbot/internal/platform/observability"
	"github.com/craftline/shopbot/internal/repositories"
	"github.com/craftline/shopbot/internal/services"
)

// Dependencies lists the platform clients the container wires into services.
// Production wiring provides real implementations, tests supply fakes.
type Dependencies struct {
	Registry repositories.Registry
	Events   events.Publisher
	Media    services.MediaURLResolver
	Sink     conversation.Sink
	Logger   *zap.Logger
}

// Services bundles the service-layer contracts the conversation engine and
// handlers rely upon.
type Services struct {
	Sessions services.SessionService
	Catalog  services.CatalogService
	Carts    services.CartService
	Orders   services.OrderService
}

// Container wires repositories, services, and the conversation engine for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services
	Engine       *conversation.Engine
}

// NewContainer constructs the runtime dependencies.
func NewContainer(_ context.Context, cfg config.Config, deps Dependencies) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Sink == nil {
		return nil, errors.New("conversation sink is required")
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(cfg, deps, svc)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
		Engine:       engine,
	}, nil
}

// Close releases resources such as repository clients.
func (c *Container) Close(ctx context.Context) error {
	if c == nil || c.Repositories == nil {
		return nil
	}
	return c.Repositories.Close(ctx)
}

func buildServices(cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services

	logger := observability.EventLogger(deps.Logger)

	sessionSvc, err := services.NewSessionService(services.SessionServiceDeps{
		Repository: deps.Registry.Sessions(),
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build session service: %w", err)
	}
	svc.Sessions = sessionSvc

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Repository: deps.Registry.Catalog(),
		Media:      deps.Media,
		Clock:      time.Now,
		PageSize:   cfg.Bot.CatalogPageSize,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: deps.Registry.Carts(),
		Events:     deps.Events,
		Clock:      time.Now,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Carts = cartSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Repository:      deps.Registry.Orders(),
		Carts:           deps.Registry.Carts(),
		Events:          deps.Events,
		Clock:           time.Now,
		DefaultCurrency: cfg.Pricing.DefaultCurrency,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	return svc, nil
}

func buildEngine(cfg config.Config, deps Dependencies, svc Services) (*conversation.Engine, error) {
	engine, err := conversation.NewEngine(conversation.EngineDeps{
		Sessions: svc.Sessions,
		Catalog:  svc.Catalog,
		Carts:    svc.Carts,
		Orders:   svc.Orders,
		Sink:     deps.Sink,
		Clock:    time.Now,
		Logger:   observability.EventLogger(deps.Logger),
		Language: cfg.Bot.DefaultLanguage,
		Currency: cfg.Pricing.DefaultCurrency,
		Symbols:  cfg.Pricing.Symbols,
	})
	if err != nil {
		return nil, fmt.Errorf("build conversation engine: %w", err)
	}
	return engine, nil
}
