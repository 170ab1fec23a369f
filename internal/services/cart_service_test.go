package services

import (
	"context"
	"errors"
	"testing"
	"time"

	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/repositories"
)

func testClock() func() time.Time {
	now := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)
	return func() time.Time { return now }
}

func newTestCartService(t *testing.T, repo repositories.CartRepository, products repositories.ProductRepository) CartService {
	t.Helper()
	service, err := NewCartService(CartServiceDeps{
		Repository: repo,
		Products:   products,
		Shipping:   ShippingPolicy{FlatFee: 250000, FreeShippingAbove: 5000000},
		Clock:      testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing cart service: %v", err)
	}
	return service
}

func TestCartServiceGetCartReturnsEmptyWhenAbsent(t *testing.T) {
	repo := &stubCartRepository{
		getFunc: func(ctx context.Context, userID string) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.GetCart(context.Background(), " user-1 ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.UserID != "user-1" {
		t.Fatalf("expected user id user-1, got %q", cart.UserID)
	}
	if cart.Currency != "NGN" {
		t.Fatalf("expected default currency NGN, got %q", cart.Currency)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected empty lines")
	}
	if cart.Totals == nil || cart.Totals.Total != 0 {
		t.Fatalf("expected zero totals, got %+v", cart.Totals)
	}
	if cart.Totals.Shipping != 0 {
		t.Fatalf("expected no shipping on empty cart, got %d", cart.Totals.Shipping)
	}
}

func TestCartServiceAddItemSnapshotsProduct(t *testing.T) {
	repo := newMemoryCartRepository()
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{
				ID:      "prod-1",
				Name:    "Silk Midi Dress",
				Price:   1200000,
				Color:   "ivory",
				Sizes:   []string{"S", "M", "L"},
				Images:  []string{"https://cdn.example/prod-1.jpg"},
				InStock: true,
			}, nil
		},
	}
	service := newTestCartService(t, repo, products)

	cart, err := service.AddItem(context.Background(), AddCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Size:      "M",
		Quantity:  2,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(cart.Lines))
	}
	line := cart.Lines[0]
	if line.UnitPrice != 1200000 {
		t.Fatalf("expected snapshot price 1200000, got %d", line.UnitPrice)
	}
	if line.Name != "Silk Midi Dress" {
		t.Fatalf("expected snapshot name, got %q", line.Name)
	}
	if line.Color != "ivory" {
		t.Fatalf("expected product color fallback, got %q", line.Color)
	}
	if line.ImageURL != "https://cdn.example/prod-1.jpg" {
		t.Fatalf("expected first image snapshot, got %q", line.ImageURL)
	}
	if line.ID == "" {
		t.Fatalf("expected generated line id")
	}
	if cart.Totals.Subtotal != 2400000 {
		t.Fatalf("expected subtotal 2400000, got %d", cart.Totals.Subtotal)
	}
	if cart.Totals.Shipping != 250000 {
		t.Fatalf("expected flat shipping fee, got %d", cart.Totals.Shipping)
	}
	if cart.Totals.Total != 2650000 {
		t.Fatalf("expected total 2650000, got %d", cart.Totals.Total)
	}
	if cart.SchemaVersion != domain.CartSchemaVersion {
		t.Fatalf("expected schema version %d, got %d", domain.CartSchemaVersion, cart.SchemaVersion)
	}
}

func TestCartServiceAddItemMergesSameIdentityKeepingSnapshot(t *testing.T) {
	repo := newMemoryCartRepository()
	price := int64(1000000)
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Cashmere Coat", Price: price, Sizes: []string{"M"}, InStock: true}, nil
		},
	}
	service := newTestCartService(t, repo, products)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Size: "M", Color: "camel", Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// A later price change must not rewrite the existing snapshot.
	price = 1500000
	cart, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Size: "M", Color: "camel", Quantity: 2})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected merged single line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].Quantity != 3 {
		t.Fatalf("expected merged quantity 3, got %d", cart.Lines[0].Quantity)
	}
	if cart.Lines[0].UnitPrice != 1000000 {
		t.Fatalf("expected original snapshot price, got %d", cart.Lines[0].UnitPrice)
	}
	if cart.Lines[0].UpdatedAt == nil {
		t.Fatalf("expected merged line updated timestamp")
	}
}

func TestCartServiceAddItemDistinctSizesStayDistinct(t *testing.T) {
	repo := newMemoryCartRepository()
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Wool Trouser", Price: 800000, Sizes: []string{"S", "M"}, InStock: true}, nil
		},
	}
	service := newTestCartService(t, repo, products)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Size: "S", Quantity: 1}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Size: "M", Quantity: 1})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 2 {
		t.Fatalf("expected 2 distinct lines, got %d", len(cart.Lines))
	}
}

func TestCartServiceAddItemRejectsUnavailableProduct(t *testing.T) {
	repo := newMemoryCartRepository()
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			switch productID {
			case "out-of-stock":
				return domain.Product{ID: productID, InStock: false, Price: 100}, nil
			case "sized":
				return domain.Product{ID: productID, InStock: true, Price: 100, Sizes: []string{"S"}}, nil
			}
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, repo, products)
	ctx := context.Background()

	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "u", ProductID: "missing", Quantity: 1}); !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("expected ErrCartProductUnavailable for unknown product, got %v", err)
	}
	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "u", ProductID: "out-of-stock", Quantity: 1}); !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("expected ErrCartProductUnavailable for out of stock, got %v", err)
	}
	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "u", ProductID: "sized", Size: "XL", Quantity: 1}); !errors.Is(err, ErrCartProductUnavailable) {
		t.Fatalf("expected ErrCartProductUnavailable for unoffered size, got %v", err)
	}
	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "u", ProductID: "sized", Size: "S", Quantity: 0}); !errors.Is(err, ErrCartInvalidInput) {
		t.Fatalf("expected ErrCartInvalidInput for zero quantity, got %v", err)
	}
}

func TestCartServiceSetQuantityZeroRemovesLine(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{
		UserID:   "user-1",
		Currency: "NGN",
		Lines: []domain.CartLine{
			{ID: "l1", ProductID: "prod-1", Size: "M", Quantity: 2, UnitPrice: 100},
			{ID: "l2", ProductID: "prod-2", Quantity: 1, UnitPrice: 200},
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.SetQuantity(context.Background(), SetCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Size:      "M",
		Quantity:  0,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected 1 remaining line, got %d", len(cart.Lines))
	}
	if cart.Lines[0].ID != "l2" {
		t.Fatalf("expected l2 to survive, got %q", cart.Lines[0].ID)
	}
}

func TestCartServiceSetQuantityAbsentLineIsNoop(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{UserID: "user-1", Lines: []domain.CartLine{{ID: "l1", ProductID: "prod-1", Quantity: 1, UnitPrice: 100}}}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.SetQuantity(context.Background(), SetCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Size:      "XL",
		Quantity:  3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 1 {
		t.Fatalf("expected untouched cart, got %+v", cart.Lines)
	}
}

func TestCartServiceAdjustQuantityAbsentLineIsNoop(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{UserID: "user-1", Lines: []domain.CartLine{{ID: "l1", ProductID: "prod-1", Quantity: 2, UnitPrice: 100}}}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.AdjustQuantity(context.Background(), AdjustCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prod-9",
		Delta:     1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
		t.Fatalf("expected untouched cart, got %+v", cart.Lines)
	}
}

func TestCartServiceAdjustQuantityDecrementAtOneRemoves(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{
		UserID: "user-1",
		Lines:  []domain.CartLine{{ID: "l1", ProductID: "prod-1", Size: "M", Color: "noir", Quantity: 1, UnitPrice: 100}},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.AdjustQuantity(context.Background(), AdjustCartQuantityCommand{
		UserID:    "user-1",
		ProductID: "prod-1",
		Size:      "M",
		Color:     "noir",
		Delta:     -1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 0 {
		t.Fatalf("expected line removed, got %d lines", len(cart.Lines))
	}
	if cart.Totals.Items != 0 {
		t.Fatalf("expected zero items, got %d", cart.Totals.Items)
	}
}

func TestCartServiceQuantitiesAreUncapped(t *testing.T) {
	repo := newMemoryCartRepository()
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: "prod-1", Name: "Linen Shirt", Price: 100, InStock: true}, nil
		},
	}
	service := newTestCartService(t, repo, products)
	ctx := context.Background()

	// Stock checks belong to the caller; merging never clamps.
	if _, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 60}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	cart, err := service.AddItem(ctx, AddCartItemCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 60})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Lines[0].Quantity != 120 {
		t.Fatalf("expected merged quantity 120, got %d", cart.Lines[0].Quantity)
	}

	cart, err = service.SetQuantity(ctx, SetCartQuantityCommand{UserID: "user-1", ProductID: "prod-1", Quantity: 500})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Lines[0].Quantity != 500 {
		t.Fatalf("expected quantity 500, got %d", cart.Lines[0].Quantity)
	}

	cart, err = service.AdjustQuantity(ctx, AdjustCartQuantityCommand{UserID: "user-1", ProductID: "prod-1", Delta: 100})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Lines[0].Quantity != 600 {
		t.Fatalf("expected quantity 600, got %d", cart.Lines[0].Quantity)
	}
}

func TestCartServiceMutateRepoNotFoundIsUnavailable(t *testing.T) {
	repo := &stubCartRepository{
		mutateFunc: func(ctx context.Context, userID string, mutate func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
			return domain.Cart{}, &repositoryErrorStub{notFound: true}
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	_, err := service.RemoveItem(context.Background(), RemoveCartItemCommand{UserID: "user-1", ProductID: "prod-1"})
	if !errors.Is(err, ErrCartUnavailable) {
		t.Fatalf("expected ErrCartUnavailable, got %v", err)
	}
}

func TestCartServiceFreeShippingAboveThreshold(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{
		UserID: "user-1",
		Lines:  []domain.CartLine{{ID: "l1", ProductID: "prod-1", Quantity: 5, UnitPrice: 1000000}},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.GetCart(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cart.Totals.Subtotal != 5000000 {
		t.Fatalf("expected subtotal 5000000, got %d", cart.Totals.Subtotal)
	}
	if cart.Totals.Shipping != 0 {
		t.Fatalf("expected free shipping at threshold, got %d", cart.Totals.Shipping)
	}
	if cart.Totals.Total != 5000000 {
		t.Fatalf("expected total equal subtotal, got %d", cart.Totals.Total)
	}
}

func TestCartServiceRemoveItemAbsentIsNoop(t *testing.T) {
	repo := newMemoryCartRepository()
	repo.cart = &domain.Cart{UserID: "user-1", Lines: []domain.CartLine{{ID: "l1", ProductID: "prod-1", Quantity: 1}}}
	service := newTestCartService(t, repo, &stubProductRepository{})

	cart, err := service.RemoveItem(context.Background(), RemoveCartItemCommand{
		UserID:    "user-1",
		ProductID: "prod-9",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cart.Lines) != 1 {
		t.Fatalf("expected untouched cart, got %d lines", len(cart.Lines))
	}
}

func TestCartServiceClearCartDelegates(t *testing.T) {
	deleted := false
	repo := &stubCartRepository{
		deleteFunc: func(ctx context.Context, userID string) error {
			if userID != "user-1" {
				t.Fatalf("unexpected user id %q", userID)
			}
			deleted = true
			return nil
		},
	}
	service := newTestCartService(t, repo, &stubProductRepository{})

	if err := service.ClearCart(context.Background(), "user-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !deleted {
		t.Fatalf("expected delete to be called")
	}
}

// --- stubs shared across service tests ---

type stubCartRepository struct {
	getFunc    func(ctx context.Context, userID string) (domain.Cart, error)
	mutateFunc func(ctx context.Context, userID string, mutate func(domain.Cart) (domain.Cart, error)) (domain.Cart, error)
	deleteFunc func(ctx context.Context, userID string) error
}

func (s *stubCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if s.getFunc != nil {
		return s.getFunc(ctx, userID)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartRepository) MutateCart(ctx context.Context, userID string, mutate func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	if s.mutateFunc != nil {
		return s.mutateFunc(ctx, userID, mutate)
	}
	return domain.Cart{}, errors.New("not implemented")
}

func (s *stubCartRepository) DeleteCart(ctx context.Context, userID string) error {
	if s.deleteFunc != nil {
		return s.deleteFunc(ctx, userID)
	}
	return errors.New("not implemented")
}

// memoryCartRepository mimics the transactional store: mutate reads the held
// cart, applies the callback, and persists the result.
type memoryCartRepository struct {
	cart *domain.Cart
}

func newMemoryCartRepository() *memoryCartRepository {
	return &memoryCartRepository{}
}

func (m *memoryCartRepository) GetCart(ctx context.Context, userID string) (domain.Cart, error) {
	if m.cart == nil {
		return domain.Cart{}, &repositoryErrorStub{notFound: true}
	}
	return *m.cart, nil
}

func (m *memoryCartRepository) MutateCart(ctx context.Context, userID string, mutate func(domain.Cart) (domain.Cart, error)) (domain.Cart, error) {
	var current domain.Cart
	if m.cart != nil {
		current = *m.cart
	}
	mutated, err := mutate(current)
	if err != nil {
		return domain.Cart{}, err
	}
	mutated.SchemaVersion = domain.CartSchemaVersion
	m.cart = &mutated
	return mutated, nil
}

func (m *memoryCartRepository) DeleteCart(ctx context.Context, userID string) error {
	m.cart = nil
	return nil
}

type stubProductRepository struct {
	listFunc    func(ctx context.Context) ([]domain.Product, error)
	findFunc    func(ctx context.Context, productID string) (domain.Product, error)
	versionFunc func(ctx context.Context) (string, error)
}

func (s *stubProductRepository) ListAll(ctx context.Context) ([]domain.Product, error) {
	if s.listFunc != nil {
		return s.listFunc(ctx)
	}
	return nil, errors.New("not implemented")
}

func (s *stubProductRepository) FindByID(ctx context.Context, productID string) (domain.Product, error) {
	if s.findFunc != nil {
		return s.findFunc(ctx, productID)
	}
	return domain.Product{}, errors.New("not implemented")
}

func (s *stubProductRepository) CatalogVersion(ctx context.Context) (string, error) {
	if s.versionFunc != nil {
		return s.versionFunc(ctx)
	}
	return "v1", nil
}

type repositoryErrorStub struct {
	notFound    bool
	conflict    bool
	unavailable bool
}

func (e *repositoryErrorStub) Error() string {
	return "repository error"
}

func (e *repositoryErrorStub) IsNotFound() bool {
	return e.notFound
}

func (e *repositoryErrorStub) IsConflict() bool {
	return e.conflict
}

func (e *repositoryErrorStub) IsUnavailable() bool {
	return e.unavailable
}
