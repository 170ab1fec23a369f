package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/velvra/api/internal/repositories"
)

var (
	errWishlistRepositoryRequired = errors.New("wishlist service: repository is required")
	errWishlistProductsRequired   = errors.New("wishlist service: product repository is required")
	errWishlistClockRequired      = errors.New("wishlist service: clock is required")
)

// ErrWishlistInvalidInput indicates the caller supplied invalid input.
var ErrWishlistInvalidInput = errors.New("wishlist service: invalid input")

// ErrWishlistUnavailable indicates the wishlist backend cannot serve the request.
var ErrWishlistUnavailable = errors.New("wishlist service: unavailable")

// ErrWishlistProductUnknown indicates the product does not exist in the catalog.
var ErrWishlistProductUnknown = errors.New("wishlist service: product unknown")

// WishlistServiceDeps wires the repositories for wishlist operations.
type WishlistServiceDeps struct {
	Repository repositories.WishlistRepository
	Products   repositories.ProductRepository
	Clock      func() time.Time
	Logger     func(context.Context, string, map[string]any)
}

type wishlistService struct {
	repo     repositories.WishlistRepository
	products repositories.ProductRepository
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewWishlistService constructs a WishlistService enforcing dependency validation.
func NewWishlistService(deps WishlistServiceDeps) (WishlistService, error) {
	if deps.Repository == nil {
		return nil, errWishlistRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errWishlistProductsRequired
	}
	if deps.Clock == nil {
		return nil, errWishlistClockRequired
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &wishlistService{
		repo:     deps.Repository,
		products: deps.Products,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// ListWishlist returns the user's saved products, oldest first.
func (s *wishlistService) ListWishlist(ctx context.Context, userID string) (Wishlist, error) {
	if s == nil || s.repo == nil {
		return Wishlist{}, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Wishlist{}, ErrWishlistInvalidInput
	}

	list, err := s.repo.List(ctx, uid)
	if err != nil {
		return Wishlist{}, s.translateRepoError(err)
	}
	return list, nil
}

// AddToWishlist saves a product for the user. Saving an already-saved product
// is a no-op; the entry keeps its original timestamp.
func (s *wishlistService) AddToWishlist(ctx context.Context, userID, productID string) (Wishlist, error) {
	if s == nil || s.repo == nil {
		return Wishlist{}, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return Wishlist{}, ErrWishlistInvalidInput
	}

	if _, err := s.products.FindByID(ctx, pid); err != nil {
		if isRepoNotFound(err) {
			return Wishlist{}, ErrWishlistProductUnknown
		}
		return Wishlist{}, s.translateRepoError(err)
	}

	added, err := s.repo.Put(ctx, uid, pid, s.now())
	if err != nil {
		return Wishlist{}, s.translateRepoError(err)
	}
	if added {
		s.logger(ctx, "wishlist.product_added", map[string]any{"userID": uid, "productID": pid})
	}

	list, err := s.repo.List(ctx, uid)
	if err != nil {
		return Wishlist{}, s.translateRepoError(err)
	}
	return list, nil
}

// RemoveFromWishlist drops a saved product. Removing an absent product is a
// no-op.
func (s *wishlistService) RemoveFromWishlist(ctx context.Context, userID, productID string) (Wishlist, error) {
	if s == nil || s.repo == nil {
		return Wishlist{}, ErrWishlistUnavailable
	}
	uid := strings.TrimSpace(userID)
	pid := strings.TrimSpace(productID)
	if uid == "" || pid == "" {
		return Wishlist{}, ErrWishlistInvalidInput
	}

	if err := s.repo.Delete(ctx, uid, pid); err != nil {
		return Wishlist{}, s.translateRepoError(err)
	}

	list, err := s.repo.List(ctx, uid)
	if err != nil {
		return Wishlist{}, s.translateRepoError(err)
	}
	return list, nil
}

func (s *wishlistService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrWishlistProductUnknown
		}
		return ErrWishlistUnavailable
	}
	return ErrWishlistUnavailable
}

var _ WishlistService = (*wishlistService)(nil)
