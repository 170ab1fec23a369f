package firestore

import (
	"context"
	"errors"

	pfirestore "github.com/velvra/api/internal/platform/firestore"
	"github.com/velvra/api/internal/repositories"
)

// RegistryConfig collects dependencies for the Firestore-backed registry.
type RegistryConfig struct {
	Provider *pfirestore.Provider

	// CounterShards controls write fan-out for sharded counters. Zero selects
	// the repository default.
	CounterShards int

	// HealthProbes back the readiness report. At least one probe is required;
	// callers usually register Firestore plus their cache and event broker.
	HealthProbes  []repositories.DependencyProbe
	HealthOptions []repositories.DependencyHealthOption
}

// Registry wires the concrete Firestore repositories behind the
// repositories.Registry interface.
type Registry struct {
	provider *pfirestore.Provider

	products  *ProductRepository
	carts     *CartRepository
	wishlists *WishlistRepository
	orders    *OrderRepository
	counters  *CounterRepository
	health    repositories.HealthRepository
}

// NewRegistry constructs every repository up front so wiring failures surface
// at startup rather than on first use.
func NewRegistry(cfg RegistryConfig) (*Registry, error) {
	if cfg.Provider == nil {
		return nil, errors.New("registry requires firestore provider")
	}

	products, err := NewProductRepository(cfg.Provider)
	if err != nil {
		return nil, err
	}
	carts, err := NewCartRepository(cfg.Provider)
	if err != nil {
		return nil, err
	}
	wishlists, err := NewWishlistRepository(cfg.Provider)
	if err != nil {
		return nil, err
	}
	orders, err := NewOrderRepository(cfg.Provider)
	if err != nil {
		return nil, err
	}
	counters, err := NewCounterRepository(cfg.Provider, cfg.CounterShards)
	if err != nil {
		return nil, err
	}
	health, err := repositories.NewDependencyHealthRepository(cfg.HealthProbes, cfg.HealthOptions...)
	if err != nil {
		return nil, err
	}

	return &Registry{
		provider:  cfg.Provider,
		products:  products,
		carts:     carts,
		wishlists: wishlists,
		orders:    orders,
		counters:  counters,
		health:    health,
	}, nil
}

// Close releases the underlying Firestore client.
func (r *Registry) Close(ctx context.Context) error {
	if r == nil || r.provider == nil {
		return nil
	}
	return r.provider.Close(ctx)
}

func (r *Registry) Products() repositories.ProductRepository { return r.products }

func (r *Registry) Carts() repositories.CartRepository { return r.carts }

func (r *Registry) Wishlists() repositories.WishlistRepository { return r.wishlists }

func (r *Registry) Orders() repositories.OrderRepository { return r.orders }

func (r *Registry) Counters() repositories.CounterRepository { return r.counters }

func (r *Registry) Health() repositories.HealthRepository { return r.health }

var _ repositories.Registry = (*Registry)(nil)
