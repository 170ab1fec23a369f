package catalog

import (
	"strings"
	"unicode"

	"github.com/sahilm/fuzzy"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/velvra/api/internal/domain"
)

// Search text is folded once per product: lowercased, accent marks stripped,
// whitespace collapsed. This keeps matching tolerant of diacritics ("crêpe"
// vs "crepe") without the engine caring about locale.
var searchFolder = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func foldSearchText(value string) string {
	folded, _, err := transform.String(searchFolder, value)
	if err != nil {
		folded = value
	}
	return strings.ToLower(strings.Join(strings.Fields(folded), " "))
}

type productCorpus struct {
	products []domain.Product
	haystack []string
}

func newProductCorpus(products []domain.Product) productCorpus {
	haystack := make([]string, len(products))
	for i, product := range products {
		parts := []string{product.Name}
		if product.Description != "" {
			parts = append(parts, product.Description)
		}
		if len(product.Tags) > 0 {
			parts = append(parts, strings.Join(product.Tags, " "))
		}
		haystack[i] = foldSearchText(strings.Join(parts, " "))
	}
	return productCorpus{products: products, haystack: haystack}
}

func (c productCorpus) String(i int) string { return c.haystack[i] }
func (c productCorpus) Len() int            { return len(c.haystack) }

// searchFilter removes products that do not fuzzily match the query and
// returns per-product match scores. Order of the returned slice follows the
// input order so explicit sorts stay stable; relevance ordering is applied
// later only under the default sort.
func searchFilter(products []domain.Product, query string) ([]domain.Product, map[string]int) {
	needle := foldSearchText(query)
	if needle == "" {
		return products, map[string]int{}
	}

	corpus := newProductCorpus(products)
	matches := fuzzy.FindFrom(needle, corpus)

	keep := make(map[int]int, len(matches))
	for _, match := range matches {
		keep[match.Index] = match.Score
	}

	result := make([]domain.Product, 0, len(keep))
	relevance := make(map[string]int, len(keep))
	for i, product := range products {
		score, ok := keep[i]
		if !ok {
			// A plain substring hit is always acceptable even when the
			// subsequence scorer rejects it.
			if !strings.Contains(corpus.haystack[i], needle) {
				continue
			}
			score = len(needle)
		}
		result = append(result, product)
		relevance[product.ID] = score
	}
	return result, relevance
}
