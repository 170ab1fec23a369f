// Package catalog implements the storefront's pure product query engine:
// composable filters, stable multi-key sorting, typo-tolerant search, and the
// URL query-string codec that makes filter state shareable.
//
// Query is a pure function over its inputs. It never mutates the product
// slice it is given, never performs I/O, and is safe to re-run on every
// filter toggle. Callers may memoize results keyed by (catalog version,
// canonical spec encoding).
package catalog

import (
	"sort"
	"strings"

	"github.com/velvra/api/internal/domain"
)

// Sort enumerates the supported listing orders.
type Sort string

const (
	// SortFeatured is the default order: featured products first, then
	// everything by recency. With a search query present, match relevance
	// takes over (see Query).
	SortFeatured Sort = "featured"
	// SortPriceLow orders by ascending price.
	SortPriceLow Sort = "price-low"
	// SortPriceHigh orders by descending price.
	SortPriceHigh Sort = "price-high"
	// SortNewest orders by descending creation time.
	SortNewest Sort = "newest"
	// SortPopular orders by descending view counter, missing counters as 0.
	SortPopular Sort = "popular"
)

// PriceUnbounded is the serializable sentinel for an open-ended upper price
// bound. It is a sentinel, not a literal infinity, so it survives the URL
// round-trip.
const PriceUnbounded int64 = -1

// PriceRange is a closed interval in minor currency units. Max ==
// PriceUnbounded means no upper bound.
type PriceRange struct {
	Min int64
	Max int64
}

// Bounded reports whether the range has a finite upper bound.
func (r PriceRange) Bounded() bool {
	return r.Max != PriceUnbounded
}

// Contains reports inclusive membership of a price in the range.
func (r PriceRange) Contains(price int64) bool {
	if price < r.Min {
		return false
	}
	if r.Bounded() && price > r.Max {
		return false
	}
	return true
}

// FilterSpec is the combined filter/sort/search choice set driving a query.
// All fields degrade: empty or malformed dimensions pass every product
// through rather than erroring (filters are advisory, never fatal).
type FilterSpec struct {
	Category    string
	Subcategory string
	Colors      []string
	Sizes       []string
	Price       *PriceRange
	SearchQuery string
	Sort        Sort
}

// Normalize trims scalar fields, drops empty set members, and coerces an
// unknown sort to the featured default. Query normalizes internally; this is
// exported for callers that build canonical cache keys.
func Normalize(spec FilterSpec) FilterSpec {
	spec.Category = strings.TrimSpace(spec.Category)
	spec.Subcategory = strings.TrimSpace(spec.Subcategory)
	spec.Colors = dedupeTrimmed(spec.Colors)
	spec.Sizes = dedupeTrimmed(spec.Sizes)
	spec.SearchQuery = strings.TrimSpace(spec.SearchQuery)
	switch spec.Sort {
	case SortPriceLow, SortPriceHigh, SortNewest, SortPopular:
	default:
		spec.Sort = SortFeatured
	}
	if spec.Price != nil {
		price := *spec.Price
		if price.Min < 0 {
			price.Min = 0
		}
		if price.Max < 0 {
			price.Max = PriceUnbounded
		} else if price.Max < price.Min {
			// Inverted ranges match nothing rather than erroring.
			price.Max = price.Min - 1
		}
		spec.Price = &price
	}
	return spec
}

// ActiveFilterCount returns the number of active filter dimensions for badge
// display: category and subcategory count one each, every selected color and
// size counts individually, a price range counts once. Search and sort do
// not count.
func ActiveFilterCount(spec FilterSpec) int {
	spec = Normalize(spec)
	count := 0
	if spec.Category != "" {
		count++
	}
	if spec.Subcategory != "" {
		count++
	}
	count += len(spec.Colors)
	count += len(spec.Sizes)
	if spec.Price != nil {
		count++
	}
	return count
}

// Query filters and orders the product set according to spec. The input
// slice is never mutated; the returned slice is freshly allocated. Filter
// stages narrow independently, so their application order cannot change the
// result set. Sorting is stable: products with equal keys keep their input
// order.
func Query(products []domain.Product, spec FilterSpec) []domain.Product {
	spec = Normalize(spec)

	colorSet := toLowerSet(spec.Colors)
	sizeSet := toLowerSet(spec.Sizes)

	filtered := make([]domain.Product, 0, len(products))
	for _, product := range products {
		if !matchesScalar(product.Category, spec.Category) {
			continue
		}
		if !matchesScalar(product.Subcategory, spec.Subcategory) {
			continue
		}
		if !matchesColor(product, colorSet) {
			continue
		}
		if !matchesSizes(product, sizeSet) {
			continue
		}
		if spec.Price != nil && !spec.Price.Contains(product.Price) {
			continue
		}
		filtered = append(filtered, product)
	}

	relevance := map[string]int{}
	if spec.SearchQuery != "" {
		filtered, relevance = searchFilter(filtered, spec.SearchQuery)
	}

	orderResults(filtered, spec, relevance)
	return filtered
}

func matchesScalar(value, want string) bool {
	if want == "" {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(value), want)
}

func matchesColor(product domain.Product, colors map[string]struct{}) bool {
	if len(colors) == 0 {
		return true
	}
	_, ok := colors[strings.ToLower(strings.TrimSpace(product.Color))]
	return ok
}

// matchesSizes requires at least one of the product's sizes to be selected.
// A sizeless product always fails a non-empty size filter.
func matchesSizes(product domain.Product, sizes map[string]struct{}) bool {
	if len(sizes) == 0 {
		return true
	}
	for _, size := range product.Sizes {
		if _, ok := sizes[strings.ToLower(strings.TrimSpace(size))]; ok {
			return true
		}
	}
	return false
}

func orderResults(products []domain.Product, spec FilterSpec, relevance map[string]int) {
	switch spec.Sort {
	case SortPriceLow:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price < products[j].Price
		})
	case SortPriceHigh:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Price > products[j].Price
		})
	case SortNewest:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	case SortPopular:
		sort.SliceStable(products, func(i, j int) bool {
			return products[i].Views > products[j].Views
		})
	default:
		if spec.SearchQuery != "" {
			// Default sort with an active search is relevance mode.
			sort.SliceStable(products, func(i, j int) bool {
				return relevance[products[i].ID] > relevance[products[j].ID]
			})
			return
		}
		sort.SliceStable(products, func(i, j int) bool {
			if products[i].Featured != products[j].Featured {
				return products[i].Featured
			}
			return products[i].CreatedAt.After(products[j].CreatedAt)
		})
	}
}

func toLowerSet(values []string) map[string]struct{} {
	if len(values) == 0 {
		return nil
	}
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[strings.ToLower(value)] = struct{}{}
	}
	return set
}

func dedupeTrimmed(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	var result []string
	for _, value := range values {
		trimmed := strings.TrimSpace(value)
		if trimmed == "" {
			continue
		}
		key := strings.ToLower(trimmed)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		result = append(result, trimmed)
	}
	return result
}
