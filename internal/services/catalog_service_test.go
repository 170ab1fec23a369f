package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/velvra/api/internal/catalog"
	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/platform/cache"
	"github.com/velvra/api/internal/platform/events"
)

func sampleProducts() []domain.Product {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	return []domain.Product{
		{ID: "p1", Name: "Leather Tote", Category: "bags", Price: 900000, CreatedAt: base.Add(2 * time.Hour)},
		{ID: "p2", Name: "Silk Scarf", Category: "accessories", Price: 300000, CreatedAt: base.Add(time.Hour)},
		{ID: "p3", Name: "Wool Coat", Category: "outerwear", Price: 2500000, Featured: true, CreatedAt: base},
	}
}

func TestCatalogServiceListProductsMemoizesByVersionAndQuery(t *testing.T) {
	listCalls := 0
	products := &stubProductRepository{
		listFunc: func(ctx context.Context) ([]domain.Product, error) {
			listCalls++
			return sampleProducts(), nil
		},
		versionFunc: func(ctx context.Context) (string, error) { return "v7", nil },
	}

	service, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Cache:    cache.NewMemoryCache(),
		Clock:    testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	ctx := context.Background()
	spec := catalog.FilterSpec{Category: "bags", Sort: catalog.SortNewest}

	first, err := service.ListProducts(ctx, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if first.Total != 1 || first.Products[0].ID != "p1" {
		t.Fatalf("unexpected first listing: %+v", first)
	}
	if first.ActiveFilters != 1 {
		t.Fatalf("expected 1 active filter, got %d", first.ActiveFilters)
	}
	if first.CanonicalQuery == "" {
		t.Fatalf("expected canonical query")
	}

	second, err := service.ListProducts(ctx, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listCalls != 1 {
		t.Fatalf("expected repeat query served from cache, repo called %d times", listCalls)
	}
	if second.Total != first.Total || second.CanonicalQuery != first.CanonicalQuery {
		t.Fatalf("expected identical listing from cache")
	}
}

func TestCatalogServiceListProductsVersionChangeMissesCache(t *testing.T) {
	listCalls := 0
	version := "v1"
	products := &stubProductRepository{
		listFunc: func(ctx context.Context) ([]domain.Product, error) {
			listCalls++
			return sampleProducts(), nil
		},
		versionFunc: func(ctx context.Context) (string, error) { return version, nil },
	}

	service, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Cache:    cache.NewMemoryCache(),
		Clock:    testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	ctx := context.Background()
	if _, err := service.ListProducts(ctx, catalog.FilterSpec{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	version = "v2"
	if _, err := service.ListProducts(ctx, catalog.FilterSpec{}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected catalog version change to bypass cached entry, repo called %d times", listCalls)
	}
}

func TestCatalogServiceListProductsPopularSortBypassesCache(t *testing.T) {
	listCalls := 0
	products := &stubProductRepository{
		listFunc: func(ctx context.Context) ([]domain.Product, error) {
			listCalls++
			return sampleProducts(), nil
		},
	}
	counters := &stubCounterRepository{
		valuesFunc: func(ctx context.Context, ids []string) (map[string]int64, error) {
			return map[string]int64{
				"product_views:p2": 50,
				"product_views:p1": 10,
			}, nil
		},
	}

	service, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Counters: counters,
		Cache:    cache.NewMemoryCache(),
		Clock:    testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	ctx := context.Background()
	spec := catalog.FilterSpec{Sort: catalog.SortPopular}

	listing, err := service.ListProducts(ctx, spec)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listing.Products[0].ID != "p2" {
		t.Fatalf("expected most viewed product first, got %q", listing.Products[0].ID)
	}
	if listing.Products[0].Views != 50 {
		t.Fatalf("expected merged view count 50, got %d", listing.Products[0].Views)
	}

	if _, err := service.ListProducts(ctx, spec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if listCalls != 2 {
		t.Fatalf("expected popularity sort to skip the cache, repo called %d times", listCalls)
	}
}

func TestCatalogServiceGetProductRecordsView(t *testing.T) {
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, Name: "Leather Tote"}, nil
		},
	}

	var incremented []string
	counters := &stubCounterRepository{
		incrementFunc: func(ctx context.Context, counterID string, delta int64) error {
			if delta != 1 {
				t.Fatalf("expected delta 1, got %d", delta)
			}
			incremented = append(incremented, counterID)
			return nil
		},
		valueFunc: func(ctx context.Context, counterID string) (int64, error) {
			return 41, nil
		},
	}
	publisher := &stubEventPublisher{}

	service, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Counters: counters,
		Events:   publisher,
		Clock:    testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	product, err := service.GetProduct(context.Background(), GetProductCommand{
		ProductID:  "p1",
		UserID:     "user-1",
		RecordView: true,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if product.Views != 41 {
		t.Fatalf("expected merged view count, got %d", product.Views)
	}
	if len(incremented) != 1 || incremented[0] != "product_views:p1" {
		t.Fatalf("expected view counter increment, got %v", incremented)
	}
	if len(publisher.views) != 1 || publisher.views[0].ProductID != "p1" {
		t.Fatalf("expected product view event, got %v", publisher.views)
	}
}

func TestCatalogServiceGetProductViewFailuresStaySilent(t *testing.T) {
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{ID: productID, Views: 7}, nil
		},
	}
	counters := &stubCounterRepository{
		incrementFunc: func(ctx context.Context, counterID string, delta int64) error {
			return errors.New("shard write failed")
		},
		valueFunc: func(ctx context.Context, counterID string) (int64, error) {
			return 0, errors.New("read failed")
		},
	}

	service, err := NewCatalogService(CatalogServiceDeps{
		Products: products,
		Counters: counters,
		Clock:    testClock(),
	})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	product, err := service.GetProduct(context.Background(), GetProductCommand{ProductID: "p1", RecordView: true})
	if err != nil {
		t.Fatalf("expected counter failures to stay silent, got %v", err)
	}
	if product.Views != 7 {
		t.Fatalf("expected stored view count fallback, got %d", product.Views)
	}
}

func TestCatalogServiceGetProductNotFound(t *testing.T) {
	products := &stubProductRepository{
		findFunc: func(ctx context.Context, productID string) (domain.Product, error) {
			return domain.Product{}, &repositoryErrorStub{notFound: true}
		},
	}

	service, err := NewCatalogService(CatalogServiceDeps{Products: products, Clock: testClock()})
	if err != nil {
		t.Fatalf("unexpected error constructing catalog service: %v", err)
	}

	if _, err := service.GetProduct(context.Background(), GetProductCommand{ProductID: "missing"}); !errors.Is(err, ErrProductNotFound) {
		t.Fatalf("expected ErrProductNotFound, got %v", err)
	}
	if _, err := service.GetProduct(context.Background(), GetProductCommand{}); !errors.Is(err, ErrCatalogInvalidInput) {
		t.Fatalf("expected ErrCatalogInvalidInput, got %v", err)
	}
}

type stubCounterRepository struct {
	incrementFunc func(ctx context.Context, counterID string, delta int64) error
	valueFunc     func(ctx context.Context, counterID string) (int64, error)
	valuesFunc    func(ctx context.Context, counterIDs []string) (map[string]int64, error)
}

func (s *stubCounterRepository) Increment(ctx context.Context, counterID string, delta int64) error {
	if s.incrementFunc != nil {
		return s.incrementFunc(ctx, counterID, delta)
	}
	return nil
}

func (s *stubCounterRepository) Value(ctx context.Context, counterID string) (int64, error) {
	if s.valueFunc != nil {
		return s.valueFunc(ctx, counterID)
	}
	return 0, nil
}

func (s *stubCounterRepository) Values(ctx context.Context, counterIDs []string) (map[string]int64, error) {
	if s.valuesFunc != nil {
		return s.valuesFunc(ctx, counterIDs)
	}
	return map[string]int64{}, nil
}

type stubEventPublisher struct {
	views  []events.ProductViewEvent
	orders []events.OrderEvent

	viewErr  error
	orderErr error
}

func (s *stubEventPublisher) PublishProductView(ctx context.Context, event events.ProductViewEvent) (string, error) {
	if s.viewErr != nil {
		return "", s.viewErr
	}
	s.views = append(s.views, event)
	return "msg-view", nil
}

func (s *stubEventPublisher) PublishOrderEvent(ctx context.Context, event events.OrderEvent) (string, error) {
	if s.orderErr != nil {
		return "", s.orderErr
	}
	s.orders = append(s.orders, event)
	return "msg-order", nil
}
