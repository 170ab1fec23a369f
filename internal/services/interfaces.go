package services

import (
	"context"
	"errors"
	"time"

	"github.com/velvra/api/internal/catalog"
	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/repositories"
)

// Type aliases expose domain models to the services package without reversing dependency direction.
type (
	Product            = domain.Product
	Cart               = domain.Cart
	CartLine           = domain.CartLine
	CartTotals         = domain.CartTotals
	Wishlist           = domain.Wishlist
	WishlistEntry      = domain.WishlistEntry
	Order              = domain.Order
	OrderLine          = domain.OrderLine
	OrderStatus        = domain.OrderStatus
	CheckoutSession    = domain.CheckoutSession
	SystemHealthReport = domain.SystemHealthReport
)

// ProductListing is the result of a catalog query: the matching products in
// final order plus the derived presentation state the client mirrors into the
// URL bar.
type ProductListing struct {
	Products []Product
	// Total is the match count after filtering, before any client paging.
	Total int
	// ActiveFilters drives the filter badge.
	ActiveFilters int
	// CanonicalQuery is the URL-encoded normalized filter state.
	CanonicalQuery string
}

// GetProductCommand fetches one product, optionally recording the view.
type GetProductCommand struct {
	ProductID  string
	UserID     string
	RecordView bool
}

// CatalogService answers storefront listing and detail reads.
type CatalogService interface {
	ListProducts(ctx context.Context, spec catalog.FilterSpec) (ProductListing, error)
	GetProduct(ctx context.Context, cmd GetProductCommand) (Product, error)
}

// AddCartItemCommand adds quantity for an identity triple, merging with an
// existing line when present.
type AddCartItemCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// SetCartQuantityCommand sets the absolute quantity for a line. Zero removes
// the line.
type SetCartQuantityCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
	Quantity  int
}

// AdjustCartQuantityCommand shifts a line quantity by delta. Decrementing a
// quantity-one line removes it.
type AdjustCartQuantityCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
	Delta     int
}

// RemoveCartItemCommand drops the line matching the identity triple.
type RemoveCartItemCommand struct {
	UserID    string
	ProductID string
	Size      string
	Color     string
}

// CartService manages the authoritative server-held cart per user.
type CartService interface {
	GetCart(ctx context.Context, userID string) (Cart, error)
	AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error)
	SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) (Cart, error)
	AdjustQuantity(ctx context.Context, cmd AdjustCartQuantityCommand) (Cart, error)
	RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error)
	ClearCart(ctx context.Context, userID string) error
}

// WishlistService maintains the per-user saved-product set.
type WishlistService interface {
	ListWishlist(ctx context.Context, userID string) (Wishlist, error)
	AddToWishlist(ctx context.Context, userID, productID string) (Wishlist, error)
	RemoveFromWishlist(ctx context.Context, userID, productID string) (Wishlist, error)
}

// CreateCheckoutSessionCommand opens a payment session for the user's cart.
type CreateCheckoutSessionCommand struct {
	UserID        string
	CustomerEmail string
	SuccessURL    string
	CancelURL     string
}

// ConfirmCheckoutCommand reconciles a returning client with the gateway's
// session state.
type ConfirmCheckoutCommand struct {
	UserID    string
	SessionID string
}

// CheckoutService coordinates gateway session creation and confirmation.
type CheckoutService interface {
	CreateCheckoutSession(ctx context.Context, cmd CreateCheckoutSessionCommand) (CheckoutSession, error)
	ConfirmCheckout(ctx context.Context, cmd ConfirmCheckoutCommand) (Order, error)
}

// OrderListCommand filters a user's order history.
type OrderListCommand struct {
	UserID string
	Status []OrderStatus
	After  *time.Time
	Limit  int
}

// OrderService serves order history reads scoped to the owning user.
type OrderService interface {
	ListOrders(ctx context.Context, cmd OrderListCommand) ([]Order, error)
	GetOrder(ctx context.Context, userID, orderID string) (Order, error)
}

// SystemService aggregates dependency health for readiness checks.
type SystemService interface {
	CheckHealth(ctx context.Context) (SystemHealthReport, error)
}

func isRepoNotFound(err error) bool {
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		return repoErr.IsNotFound()
	}
	return false
}
