package repositories

import (
	"context"
	"time"

	domain "github.com/velvra/api/internal/domain"
)

// Registry exposes typed repository accessors and lifecycle hooks for dependency injection.
type Registry interface {
	Close(ctx context.Context) error

	Products() ProductRepository
	Carts() CartRepository
	Wishlists() WishlistRepository
	Orders() OrderRepository
	Counters() CounterRepository
	Health() HealthRepository
}

// RepositoryError wraps low-level persistence failures with categorisation used by services.
type RepositoryError interface {
	error
	IsNotFound() bool
	IsConflict() bool
	IsUnavailable() bool
}

// ProductRepository serves the published catalog. Listings return the full
// collection because filtering, search and ordering happen in-process.
type ProductRepository interface {
	ListAll(ctx context.Context) ([]domain.Product, error)
	FindByID(ctx context.Context, productID string) (domain.Product, error)
	// CatalogVersion identifies the current catalog snapshot. It changes
	// whenever any product document is written and keys derived caches.
	CatalogVersion(ctx context.Context) (string, error)
}

// CartRepository owns the single cart document per user. Mutations run inside
// a transaction so concurrent writers to the same cart serialise cleanly.
type CartRepository interface {
	GetCart(ctx context.Context, userID string) (domain.Cart, error)
	// MutateCart loads the cart (or an empty one when absent), applies mutate
	// and persists the result atomically. The returned cart reflects the
	// committed state.
	MutateCart(ctx context.Context, userID string, mutate func(cart domain.Cart) (domain.Cart, error)) (domain.Cart, error)
	DeleteCart(ctx context.Context, userID string) error
}

// WishlistRepository tracks saved products per user.
type WishlistRepository interface {
	List(ctx context.Context, userID string) (domain.Wishlist, error)
	Put(ctx context.Context, userID string, productID string, addedAt time.Time) (bool, error)
	Delete(ctx context.Context, userID string, productID string) error
}

// OrderRepository persists order headers and provides query helpers for users.
type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) error
	Update(ctx context.Context, order domain.Order) error
	FindByID(ctx context.Context, orderID string) (domain.Order, error)
	FindByCheckoutSession(ctx context.Context, sessionID string) (domain.Order, error)
	ListByUser(ctx context.Context, userID string, filter OrderListFilter) ([]domain.Order, error)
}

// OrderListFilter narrows order listings for a user.
type OrderListFilter struct {
	Status []domain.OrderStatus
	After  *time.Time
	Limit  int
}

// CounterRepository provides transaction-safe counters, sharded to absorb
// write-heavy keys such as product view tallies.
type CounterRepository interface {
	Increment(ctx context.Context, counterID string, delta int64) error
	Value(ctx context.Context, counterID string) (int64, error)
	Values(ctx context.Context, counterIDs []string) (map[string]int64, error)
}

// HealthRepository exposes status of downstream dependencies for health checks.
type HealthRepository interface {
	Collect(ctx context.Context) (domain.SystemHealthReport, error)
}
