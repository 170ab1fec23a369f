package services

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/velvra/api/internal/catalog"
	domain "github.com/velvra/api/internal/domain"
	"github.com/velvra/api/internal/platform/cache"
	"github.com/velvra/api/internal/platform/events"
	"github.com/velvra/api/internal/repositories"
)

var (
	errCatalogRepositoryRequired = errors.New("catalog service: product repository is required")
	errCatalogClockRequired      = errors.New("catalog service: clock is required")
)

// ErrCatalogInvalidInput indicates the caller supplied invalid input.
var ErrCatalogInvalidInput = errors.New("catalog service: invalid input")

// ErrCatalogUnavailable indicates the catalog backend cannot serve the request.
var ErrCatalogUnavailable = errors.New("catalog service: unavailable")

// ErrProductNotFound indicates the requested product does not exist.
var ErrProductNotFound = errors.New("catalog service: product not found")

const (
	viewCounterPrefix      = "product_views:"
	defaultCatalogCacheTTL = 5 * time.Minute
)

// CatalogServiceDeps wires repositories and optional read-side infrastructure
// for catalog queries.
type CatalogServiceDeps struct {
	Products repositories.ProductRepository
	Counters repositories.CounterRepository
	Cache    cache.Cache
	CacheTTL time.Duration
	Events   events.Publisher
	Clock    func() time.Time
	Logger   func(context.Context, string, map[string]any)
}

type catalogService struct {
	products repositories.ProductRepository
	counters repositories.CounterRepository
	cache    cache.Cache
	cacheTTL time.Duration
	events   events.Publisher
	now      func() time.Time
	logger   func(context.Context, string, map[string]any)
}

// NewCatalogService constructs a CatalogService enforcing dependency validation.
func NewCatalogService(deps CatalogServiceDeps) (CatalogService, error) {
	if deps.Products == nil {
		return nil, errCatalogRepositoryRequired
	}
	if deps.Clock == nil {
		return nil, errCatalogClockRequired
	}

	ttl := deps.CacheTTL
	if ttl <= 0 {
		ttl = defaultCatalogCacheTTL
	}

	logger := deps.Logger
	if logger == nil {
		logger = func(context.Context, string, map[string]any) {}
	}

	return &catalogService{
		products: deps.Products,
		counters: deps.Counters,
		cache:    deps.Cache,
		cacheTTL: ttl,
		events:   deps.Events,
		now:      func() time.Time { return deps.Clock().UTC() },
		logger:   logger,
	}, nil
}

// ListProducts runs the filter pipeline over the published catalog. Results
// for a given (catalog version, canonical query) pair are memoized; the
// popularity sort bypasses the cache because view tallies move independently
// of the catalog version.
func (s *catalogService) ListProducts(ctx context.Context, spec catalog.FilterSpec) (ProductListing, error) {
	if s == nil || s.products == nil {
		return ProductListing{}, ErrCatalogUnavailable
	}

	spec = catalog.Normalize(spec)
	canonical := catalog.EncodeQuery(spec).Encode()
	activeFilters := catalog.ActiveFilterCount(spec)

	cacheable := s.cache != nil && spec.Sort != catalog.SortPopular
	var cacheKey string
	if cacheable {
		version, err := s.products.CatalogVersion(ctx)
		if err != nil {
			s.logger(ctx, "catalog.version_failed", map[string]any{"error": err.Error()})
			cacheable = false
		} else {
			cacheKey = listingCacheKey(version, canonical)
			if listing, ok := s.cachedListing(ctx, cacheKey); ok {
				listing.ActiveFilters = activeFilters
				listing.CanonicalQuery = canonical
				return listing, nil
			}
		}
	}

	products, err := s.products.ListAll(ctx)
	if err != nil {
		return ProductListing{}, s.translateRepoError(err)
	}

	if spec.Sort == catalog.SortPopular {
		s.mergeViewCounts(ctx, products)
	}

	results := catalog.Query(products, spec)
	listing := ProductListing{
		Products:       results,
		Total:          len(results),
		ActiveFilters:  activeFilters,
		CanonicalQuery: canonical,
	}

	if cacheable {
		s.storeListing(ctx, cacheKey, listing)
	}
	return listing, nil
}

// GetProduct loads a single product. When RecordView is set the view tally and
// the product-view event fire best-effort; failures are logged, never
// surfaced.
func (s *catalogService) GetProduct(ctx context.Context, cmd GetProductCommand) (Product, error) {
	if s == nil || s.products == nil {
		return Product{}, ErrCatalogUnavailable
	}

	id := strings.TrimSpace(cmd.ProductID)
	if id == "" {
		return Product{}, ErrCatalogInvalidInput
	}

	product, err := s.products.FindByID(ctx, id)
	if err != nil {
		return Product{}, s.translateRepoError(err)
	}

	if s.counters != nil {
		if views, err := s.counters.Value(ctx, viewCounterPrefix+id); err == nil {
			product.Views = views
		} else {
			s.logger(ctx, "catalog.view_count_failed", map[string]any{"productID": id, "error": err.Error()})
		}
	}

	if cmd.RecordView {
		s.recordView(ctx, id, strings.TrimSpace(cmd.UserID))
	}
	return product, nil
}

func (s *catalogService) recordView(ctx context.Context, productID, userID string) {
	if s.counters != nil {
		if err := s.counters.Increment(ctx, viewCounterPrefix+productID, 1); err != nil {
			s.logger(ctx, "catalog.view_increment_failed", map[string]any{"productID": productID, "error": err.Error()})
		}
	}
	if s.events != nil {
		_, err := s.events.PublishProductView(ctx, events.ProductViewEvent{
			ProductID: productID,
			UserID:    userID,
			ViewedAt:  s.now(),
		})
		if err != nil {
			s.logger(ctx, "catalog.view_event_failed", map[string]any{"productID": productID, "error": err.Error()})
		}
	}
}

func (s *catalogService) mergeViewCounts(ctx context.Context, products []domain.Product) {
	if s.counters == nil || len(products) == 0 {
		return
	}

	ids := make([]string, 0, len(products))
	for _, product := range products {
		ids = append(ids, viewCounterPrefix+product.ID)
	}
	values, err := s.counters.Values(ctx, ids)
	if err != nil {
		// Popularity degrades to stored values rather than failing the query.
		s.logger(ctx, "catalog.view_counts_failed", map[string]any{"error": err.Error()})
		return
	}
	for i := range products {
		if views, ok := values[viewCounterPrefix+products[i].ID]; ok {
			products[i].Views = views
		}
	}
}

func (s *catalogService) cachedListing(ctx context.Context, key string) (ProductListing, bool) {
	payload, err := s.cache.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, cache.ErrMiss) {
			s.logger(ctx, "catalog.cache_get_failed", map[string]any{"error": err.Error()})
		}
		return ProductListing{}, false
	}

	var products []domain.Product
	if err := json.Unmarshal(payload, &products); err != nil {
		s.logger(ctx, "catalog.cache_decode_failed", map[string]any{"error": err.Error()})
		return ProductListing{}, false
	}
	return ProductListing{Products: products, Total: len(products)}, true
}

func (s *catalogService) storeListing(ctx context.Context, key string, listing ProductListing) {
	payload, err := json.Marshal(listing.Products)
	if err != nil {
		s.logger(ctx, "catalog.cache_encode_failed", map[string]any{"error": err.Error()})
		return
	}
	if err := s.cache.Set(ctx, key, payload, s.cacheTTL); err != nil {
		s.logger(ctx, "catalog.cache_set_failed", map[string]any{"error": err.Error()})
	}
}

func listingCacheKey(version, canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return "catalog:listing:" + version + ":" + hex.EncodeToString(sum[:])
}

func (s *catalogService) translateRepoError(err error) error {
	if err == nil {
		return nil
	}
	var repoErr repositories.RepositoryError
	if errors.As(err, &repoErr) {
		if repoErr.IsNotFound() {
			return ErrProductNotFound
		}
		return ErrCatalogUnavailable
	}
	return ErrCatalogUnavailable
}

var _ CatalogService = (*catalogService)(nil)
