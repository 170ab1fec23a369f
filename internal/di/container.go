package di

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/velvra/api/internal/payments"
	"github.com/velvra/api/internal/platform/cache"
	"github.com/velvra/api/internal/platform/config"
	"github.com/velvra/api/internal/platform/events"
	"github.com/velvra/api/internal/platform/requestctx"
	"github.com/velvra/api/internal/repositories"
	"github.com/velvra/api/internal/services"
)

// Services bundles the service-layer contracts that handlers rely upon. Concrete implementations
// are assembled via dependency injection in NewContainer.
type Services struct {
	Catalog  services.CatalogService
	Cart     services.CartService
	Wishlist services.WishlistService
	Checkout services.CheckoutService
	Orders   services.OrderService
	System   services.SystemService
}

// Dependencies carries the infrastructure the container wires services from.
// Registry and Payments are required; Cache and Events fall back to in-memory
// and no-op implementations respectively.
type Dependencies struct {
	Registry repositories.Registry
	Payments payments.Provider
	Cache    cache.Cache
	Events   events.Publisher
	Logger   *zap.Logger
	Build    services.BuildInfo
	Clock    func() time.Time
}

// Container wires repositories, services, and supporting infrastructure for runtime use.
type Container struct {
	Config       config.Config
	Repositories repositories.Registry
	Services     Services

	cache cache.Cache
}

// NewContainer constructs the runtime dependencies. Production wiring provides real
// implementations, while tests can supply in-memory registries and stub providers.
func NewContainer(ctx context.Context, cfg config.Config, deps Dependencies) (*Container, error) {
	if deps.Registry == nil {
		return nil, errors.New("repositories registry is required")
	}
	if deps.Payments == nil {
		return nil, errors.New("payments provider is required")
	}

	if deps.Clock == nil {
		deps.Clock = time.Now
	}
	if deps.Events == nil {
		deps.Events = events.NoopPublisher{}
	}
	if deps.Cache == nil {
		deps.Cache = cache.NewMemoryCache()
	}

	svc, err := buildServices(cfg, deps)
	if err != nil {
		return nil, err
	}

	return &Container{
		Config:       cfg,
		Repositories: deps.Registry,
		Services:     svc,
		cache:        deps.Cache,
	}, nil
}

// Close releases resources such as repository clients and cache connections.
func (c *Container) Close(ctx context.Context) error {
	if c == nil {
		return nil
	}
	var errs []error
	if c.cache != nil {
		if err := c.cache.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if c.Repositories != nil {
		if err := c.Repositories.Close(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func buildServices(cfg config.Config, deps Dependencies) (Services, error) {
	var svc Services
	reg := deps.Registry
	logger := serviceLogger(deps.Logger)

	listingCache := deps.Cache
	if !cfg.Features.EnableCatalogCache {
		listingCache = nil
	}
	eventsPublisher := deps.Events
	if !cfg.Features.EnableViewEvents {
		eventsPublisher = events.NoopPublisher{}
	}

	catalogSvc, err := services.NewCatalogService(services.CatalogServiceDeps{
		Products: reg.Products(),
		Counters: reg.Counters(),
		Cache:    listingCache,
		CacheTTL: cfg.Catalog.CacheTTL,
		Events:   eventsPublisher,
		Clock:    deps.Clock,
		Logger:   logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build catalog service: %w", err)
	}
	svc.Catalog = catalogSvc

	cartSvc, err := services.NewCartService(services.CartServiceDeps{
		Repository: reg.Carts(),
		Products:   reg.Products(),
		Shipping: services.ShippingPolicy{
			FlatFee:           cfg.Shipping.FlatFee,
			FreeShippingAbove: cfg.Shipping.FreeShippingAbove,
		},
		DefaultCurrency: cfg.Shipping.Currency,
		Clock:           deps.Clock,
		Logger:          logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build cart service: %w", err)
	}
	svc.Cart = cartSvc

	wishlistSvc, err := services.NewWishlistService(services.WishlistServiceDeps{
		Repository: reg.Wishlists(),
		Products:   reg.Products(),
		Clock:      deps.Clock,
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build wishlist service: %w", err)
	}
	svc.Wishlist = wishlistSvc

	checkoutSvc, err := services.NewCheckoutService(services.CheckoutServiceDeps{
		Carts:      cartSvc,
		Orders:     reg.Orders(),
		Provider:   deps.Payments,
		Events:     deps.Events,
		Clock:      deps.Clock,
		Logger:     logger,
		SuccessURL: cfg.PSP.SuccessURL,
		CancelURL:  cfg.PSP.CancelURL,
		SessionTTL: cfg.Catalog.CheckoutSessionTTL,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build checkout service: %w", err)
	}
	svc.Checkout = checkoutSvc

	orderSvc, err := services.NewOrderService(services.OrderServiceDeps{
		Repository: reg.Orders(),
		Logger:     logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build order service: %w", err)
	}
	svc.Orders = orderSvc

	systemSvc, err := services.NewSystemService(services.SystemServiceDeps{
		Health: reg.Health(),
		Build:  deps.Build,
		Clock:  deps.Clock,
		Logger: logger,
	})
	if err != nil {
		return Services{}, fmt.Errorf("build system service: %w", err)
	}
	svc.System = systemSvc

	return svc, nil
}

// serviceLogger adapts a zap logger to the structured event callback the
// services accept, preferring the request-scoped logger when one is on the
// context so service events carry the request fields. A nil logger produces
// a no-op callback.
func serviceLogger(logger *zap.Logger) func(context.Context, string, map[string]any) {
	if logger == nil {
		return nil
	}
	return func(ctx context.Context, event string, fields map[string]any) {
		target := logger
		if requestctx.HasLogger(ctx) {
			target = requestctx.Logger(ctx)
		}
		zapFields := make([]zap.Field, 0, len(fields))
		for key, value := range fields {
			zapFields = append(zapFields, zap.Any(key, value))
		}
		target.Info(event, zapFields...)
	}
}
