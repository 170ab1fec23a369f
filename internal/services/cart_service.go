package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/repositories"
)

var (
	errCartRepositoryRequired = errors.New("cart service: repository is required")
	errCartProductsRequired   = errors.New("cart service: product repository is required")
	errCartClockRequired      = errors.New("cart service: clock is required")
)

// ErrCartInvalidInput indicates the caller supplied invalid input.
var ErrCartInvalidInput = errors.New("cart service: invalid input")

// ErrCartUnavailable indicates the cart backend cannot serve the request.
var ErrCartUnavailable = errors.New("cart service: unavailable")

// ErrCartConflict indicates the cart could not be updated due to concurrent modifications.
var ErrCartConflict = errors.New("cart service: conflict")

// ErrCartProductUnavailable indicates the product cannot be added: unknown,
// out of stock, or the requested size is not offered.
var ErrCartProductUnavailable = errors.New("cart service: product unavailable")

// ShippingPolicy computes the shipping charge from the cart subtotal. All
// amounts are minor currency units.
type ShippingPolicy struct {
	FlatFee           int64
	FreeShippingAbove int64
}

// Charge returns the shipping amount for a subtotal. Empty carts ship free;
// subtotals at or above the free-shipping threshold waive the fee.
func (p ShippingPolicy) Charge(subtotal int64, items int) int64 {
	if items <= 0 || subtotal <= 0 {
		return 0
	}
	if p.FreeShippingAbove > 0 && subtotal >= p.FreeShippingAbove {
		return 0
	}
	if p.FlatFee < 0 {
		return 0
	}
	return p.FlatFee
}

// CartServiceDeps wires the repositories and policies for cart operations.
type CartServiceDeps struct {
	Repository      repositories.CartRepository
	Products        repositories.ProductRepository
	Shipping        ShippingPolicy
	Clock           func() time.Time
	DefaultCurrency string
	Logger          func(context.Context, string, map[string]any)
	IDGenerator     func() string
}

type cartService struct {
	repo     repositories.CartRepository
	products repositories.ProductRepository
	shipping ShippingPolicy
	newID    func() string
	now      func() time.Time
	currency string
	logger   func(context.Context, string, map[string]any)
}

// NewCartService constructs a CartService enforcing dependency validation.
func NewCartService(deps CartServiceDeps) (CartService, error) {
	if deps.Repository == nil {
		return nil, errCartRepositoryRequired
	}
	if deps.Products == nil {
		return nil, errCartProductsRequired
	}
	if deps.Clock == nil {
		return nil, errCartClockRequired
	}

	currency := strings.ToUpper(strings.TrimSpace(deps.DefaultCurrency))
	if currency == "" {
		currency = "NGN"
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	idGen := deps.IDGenerator
	if idGen == nil {
		idGen = func() string { return ulid.Make().String() }
	}

	return &cartService{
		repo:     deps.Repository,
		products: deps.Products,
		shipping: deps.Shipping,
		newID:    idGen,
		now:      func() time.Time { return deps.Clock().UTC() },
		currency: currency,
		logger:   logger,
	}, nil
}

// GetCart loads the user's cart with derived totals. Users without a
// persisted cart get an empty one; the document is created on first mutation.
func (s *cartService) GetCart(ctx context.Context, userID string) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return Cart{}, ErrCartInvalidInput
	}

	cart, err := s.repo.GetCart(ctx, uid)
	if err != nil {
		if isRepoNotFound(err) {
			return s.withTotals(s.emptyCart(uid)), nil
		}
		return Cart{}, s.translateRepoError(err)
	}
	return s.withTotals(cart), nil
}

// AddItem merges quantity into the line matching the identity triple, or
// appends a new line carrying a price snapshot taken now. Later product price
// changes never rewrite existing snapshots.
func (s *cartService) AddItem(ctx context.Context, cmd AddCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity <= 0 {
		return Cart{}, ErrCartInvalidInput
	}

	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		if isRepoNotFound(err) {
			return Cart{}, ErrCartProductUnavailable
		}
		return Cart{}, s.translateRepoError(err)
	}
	if !product.InStock {
		return Cart{}, ErrCartProductUnavailable
	}

	size := strings.TrimSpace(cmd.Size)
	if size != "" && len(product.Sizes) > 0 && !containsFold(product.Sizes, size) {
		return Cart{}, ErrCartProductUnavailable
	}
	color := strings.TrimSpace(cmd.Color)
	if color == "" {
		color = product.Color
	}

	now := s.now()
	cart, err := s.repo.MutateCart(ctx, uid, func(cart domain.Cart) (domain.Cart, error) {
		cart = s.prepareCart(cart, uid)
		for i := range cart.Lines {
			if cart.Lines[i].SameIdentity(productID, size, color) {
				cart.Lines[i].Quantity += cmd.Quantity
				cart.Lines[i].UpdatedAt = &now
				cart.UpdatedAt = now
				return cart, nil
			}
		}

		line := domain.CartLine{
			ID:        s.newID(),
			ProductID: productID,
			Name:      product.Name,
			Size:      size,
			Color:     color,
			Quantity:  cmd.Quantity,
			UnitPrice: product.Price,
			AddedAt:   now,
		}
		if len(product.Images) > 0 {
			line.ImageURL = product.Images[0]
		}
		cart.Lines = append(cart.Lines, line)
		cart.UpdatedAt = now
		return cart, nil
	})
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}

	s.logger(ctx, "cart.item_added", map[string]any{
		"userID":    uid,
		"productID": productID,
		"quantity":  cmd.Quantity,
	})
	return s.withTotals(cart), nil
}

// SetQuantity sets the absolute quantity of the matching line. Zero removes
// the line; setting a line that does not exist is a no-op.
func (s *cartService) SetQuantity(ctx context.Context, cmd SetCartQuantityCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, ErrCartInvalidInput
	}
	if cmd.Quantity < 0 {
		return Cart{}, ErrCartInvalidInput
	}

	size := strings.TrimSpace(cmd.Size)
	color := strings.TrimSpace(cmd.Color)
	now := s.now()

	cart, err := s.repo.MutateCart(ctx, uid, func(cart domain.Cart) (domain.Cart, error) {
		cart = s.prepareCart(cart, uid)
		for i := range cart.Lines {
			if !cart.Lines[i].SameIdentity(productID, size, color) {
				continue
			}
			if cmd.Quantity == 0 {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			} else {
				cart.Lines[i].Quantity = cmd.Quantity
				cart.Lines[i].UpdatedAt = &now
			}
			cart.UpdatedAt = now
			break
		}
		return cart, nil
	})
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.withTotals(cart), nil
}

// AdjustQuantity shifts the matching line by delta. A decrement that reaches
// zero removes the line entirely; adjusting an absent line is a no-op.
func (s *cartService) AdjustQuantity(ctx context.Context, cmd AdjustCartQuantityCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" || cmd.Delta == 0 {
		return Cart{}, ErrCartInvalidInput
	}

	size := strings.TrimSpace(cmd.Size)
	color := strings.TrimSpace(cmd.Color)
	now := s.now()

	cart, err := s.repo.MutateCart(ctx, uid, func(cart domain.Cart) (domain.Cart, error) {
		cart = s.prepareCart(cart, uid)
		for i := range cart.Lines {
			if !cart.Lines[i].SameIdentity(productID, size, color) {
				continue
			}
			quantity := cart.Lines[i].Quantity + cmd.Delta
			if quantity <= 0 {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			} else {
				cart.Lines[i].Quantity = quantity
				cart.Lines[i].UpdatedAt = &now
			}
			cart.UpdatedAt = now
			break
		}
		return cart, nil
	})
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.withTotals(cart), nil
}

// RemoveItem drops the line matching the identity triple. Removing an absent
// line is a no-op.
func (s *cartService) RemoveItem(ctx context.Context, cmd RemoveCartItemCommand) (Cart, error) {
	if s == nil || s.repo == nil {
		return Cart{}, ErrCartUnavailable
	}

	uid := strings.TrimSpace(cmd.UserID)
	productID := strings.TrimSpace(cmd.ProductID)
	if uid == "" || productID == "" {
		return Cart{}, ErrCartInvalidInput
	}

	size := strings.TrimSpace(cmd.Size)
	color := strings.TrimSpace(cmd.Color)
	now := s.now()

	cart, err := s.repo.MutateCart(ctx, uid, func(cart domain.Cart) (domain.Cart, error) {
		cart = s.prepareCart(cart, uid)
		for i := range cart.Lines {
			if cart.Lines[i].SameIdentity(productID, size, color) {
				cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
				cart.UpdatedAt = now
				break
			}
		}
		return cart, nil
	})
	if err != nil {
		return Cart{}, s.translateRepoError(err)
	}
	return s.withTotals(cart), nil
}

// ClearCart deletes the persisted cart. Clearing an absent cart succeeds.
func (s *cartService) ClearCart(ctx context.Context, userID string) error {
	if s == nil || s.repo == nil {
		return ErrCartUnavailable
	}
	uid := strings.TrimSpace(userID)
	if uid == "" {
		return ErrCartInvalidInput
	}
	if err := s.repo.DeleteCart(ctx, uid); err != nil {
		return s.translateRepoError(err)
	}
	return nil
}

func (s *cartService) emptyCart(uid string) domain.Cart {
	return domain.Cart{
		ID:            uid,
		UserID:        uid,
		Currency:      s.currency,
		Lines:         []domain.CartLine{},
		SchemaVersion: domain.CartSchemaVersion,
	}
}

func (s *cartService) prepareCart(cart domain.Cart, uid string) domain.Cart {
	cart.ID = uid
	cart.UserID = uid
	if strings.TrimSpace(cart.Currency) == "" {
		cart.Currency = s.currency
	}
	if cart.Lines == nil {
		cart.Lines = []domain.CartLine{}
	}
	return cart
}

func (s *cartService) withTotals(cart domain.Cart) domain.Cart {
	totals := s.computeTotals(cart)
	cart.Totals = &totals
	return cart
}

func (s *cartService) computeTotals(cart domain.Cart) domain.CartTotals {
	subtotal := cart.Subtotal()
	items := cart.TotalItems()
	shipping := s.shipping.Charge(subtotal, items)
	return domain.CartTotals{
		Subtotal: subtotal,
		Shipping: shipping,
		Total:    subtotal + shipping,
		Items:    items,
	}
}

func containsFold(values []string, want string) bool {
	for _, value := range values {
		if strings.EqualFold(strings.TrimSpace(value), want) {
			return true
		}
	}
	return false
}

func (s *cartService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) && repoErr.IsConflict() {
		return ErrCartConflict
	}
	return ErrCartUnavailable
}

var _ CartService = (*cartService)(nil)
