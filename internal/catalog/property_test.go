package catalog

import (
	"fmt"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"github.com/velvra/api/internal/domain"
)

var (
	genCategories = gen.OneConstOf("jewelry", "clothing", "bags", "shoes")
	genColors     = gen.OneConstOf("gold", "silver", "black", "emerald", "brown")
	genSizes      = gen.OneConstOf("S", "M", "L", "XL")
)

func genProducts() gopter.Gen {
	genProduct := gopter.CombineGens(
		gen.IntRange(0, 1_000_000), // price in minor units
		genCategories,
		genColors,
		gen.SliceOf(genSizes),
		gen.Bool(),               // featured
		gen.IntRange(0, 100_000), // age in minutes
	).Map(func(parts []interface{}) domain.Product {
		sizes, _ := parts[3].([]string)
		return domain.Product{
			Price:     int64(parts[0].(int)),
			Category:  parts[1].(string),
			Color:     parts[2].(string),
			Sizes:     sizes,
			Featured:  parts[4].(bool),
			CreatedAt: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC).Add(-time.Duration(parts[5].(int)) * time.Minute),
		}
	})
	return gen.SliceOf(genProduct).Map(func(products []domain.Product) []domain.Product {
		for i := range products {
			products[i].ID = fmt.Sprintf("p%03d", i)
			products[i].Name = fmt.Sprintf("%s %s %03d", products[i].Color, products[i].Category, i)
		}
		return products
	})
}

func genSpec() gopter.Gen {
	return gopter.CombineGens(
		gen.OneConstOf("", "jewelry", "clothing", "bags", "unknown"),
		gen.SliceOf(genColors),
		gen.SliceOf(genSizes),
		gen.Bool(),
		gen.IntRange(0, 500_000),
		gen.IntRange(-1, 1_000_000),
		gen.OneConstOf(string(SortFeatured), string(SortPriceLow), string(SortPriceHigh), string(SortNewest), string(SortPopular), "bogus"),
	).Map(func(parts []interface{}) FilterSpec {
		colors, _ := parts[1].([]string)
		sizes, _ := parts[2].([]string)
		spec := FilterSpec{
			Category: parts[0].(string),
			Colors:   colors,
			Sizes:    sizes,
			Sort:     Sort(parts[6].(string)),
		}
		if parts[3].(bool) {
			spec.Price = &PriceRange{Min: int64(parts[4].(int)), Max: int64(parts[5].(int))}
		}
		return spec
	})
}

func sameIDSet(a, b []domain.Product) bool {
	if len(a) != len(b) {
		return false
	}
	seen := make(map[string]int, len(a))
	for _, p := range a {
		seen[p.ID]++
	}
	for _, p := range b {
		seen[p.ID]--
		if seen[p.ID] < 0 {
			return false
		}
	}
	return true
}

// Filter dimensions are independent narrowings: applying them in either
// order must land on the same result set.
func TestPropertyFilterCompositionCommutes(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("category then color equals color then category", prop.ForAll(
		func(products []domain.Product, category string, color string) bool {
			catFirst := Query(Query(products, FilterSpec{Category: category}), FilterSpec{Colors: []string{color}})
			colorFirst := Query(Query(products, FilterSpec{Colors: []string{color}}), FilterSpec{Category: category})
			combined := Query(products, FilterSpec{Category: category, Colors: []string{color}})
			return sameIDSet(catFirst, colorFirst) && sameIDSet(catFirst, combined)
		},
		genProducts(),
		genCategories,
		genColors,
	))

	properties.TestingRun(t)
}

// Encoding a spec and decoding it back must reproduce the same result set
// for any product population.
func TestPropertyURLRoundTripPreservesResults(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("query(decode(encode(spec))) == query(spec)", prop.ForAll(
		func(products []domain.Product, spec FilterSpec) bool {
			direct := Query(products, spec)
			viaURL := Query(products, DecodeQuery(EncodeQuery(spec)))
			if len(direct) != len(viaURL) {
				return false
			}
			for i := range direct {
				if direct[i].ID != viaURL[i].ID {
					return false
				}
			}
			return true
		},
		genProducts(),
		genSpec(),
	))

	properties.TestingRun(t)
}

// Query never mutates its input and always returns a subset.
func TestPropertyQueryIsNonDestructive(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("result is a subset and input order is preserved", prop.ForAll(
		func(products []domain.Product, spec FilterSpec) bool {
			snapshot := make([]string, len(products))
			for i, p := range products {
				snapshot[i] = p.ID
			}

			result := Query(products, spec)
			if len(result) > len(products) {
				return false
			}

			for i, p := range products {
				if snapshot[i] != p.ID {
					return false
				}
			}
			return true
		},
		genProducts(),
		genSpec(),
	))

	properties.TestingRun(t)
}
