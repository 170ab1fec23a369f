package catalog

import (
	"net/url"
	"strconv"
	"strings"
)

// Query-string keys owned by the filter state contract. This is the only
// wire-like format the engine defines; everything else is JSON over HTTP.
const (
	paramCategory    = "category"
	paramSubcategory = "subcategory"
	paramColor       = "color"
	paramSize        = "size"
	paramPriceMin    = "priceMin"
	paramPriceMax    = "priceMax"
	paramSearch      = "search"
	paramSort        = "sort"
)

// EncodeQuery renders the spec as canonical query-string values: comma-joined
// sets, plain scalars, and both price keys present whenever a range is set
// (an unbounded max encodes as the -1 sentinel). Absent dimensions produce
// no key at all.
func EncodeQuery(spec FilterSpec) url.Values {
	values := url.Values{}
	ApplyQuery(spec, values)
	return values
}

// ApplyQuery mirrors the spec into an existing value set, explicitly
// deleting keys for absent dimensions so stale state cannot linger in a
// shared URL.
func ApplyQuery(spec FilterSpec, values url.Values) {
	spec = Normalize(spec)

	setOrDelete := func(key, value string) {
		if value == "" {
			values.Del(key)
			return
		}
		values.Set(key, value)
	}

	setOrDelete(paramCategory, spec.Category)
	setOrDelete(paramSubcategory, spec.Subcategory)
	setOrDelete(paramColor, strings.Join(spec.Colors, ","))
	setOrDelete(paramSize, strings.Join(spec.Sizes, ","))
	setOrDelete(paramSearch, spec.SearchQuery)

	if spec.Price == nil {
		values.Del(paramPriceMin)
		values.Del(paramPriceMax)
	} else {
		values.Set(paramPriceMin, strconv.FormatInt(spec.Price.Min, 10))
		values.Set(paramPriceMax, strconv.FormatInt(spec.Price.Max, 10))
	}

	if spec.Sort == SortFeatured {
		values.Del(paramSort)
	} else {
		values.Set(paramSort, string(spec.Sort))
	}
}

// DecodeQuery reconstructs a FilterSpec from query-string values. Decoding
// never fails: malformed price values drop the price filter, unknown sort
// tokens fall back to the featured default, and unknown category/color/size
// tokens are kept as-is (they simply match zero products).
func DecodeQuery(values url.Values) FilterSpec {
	spec := FilterSpec{
		Category:    strings.TrimSpace(values.Get(paramCategory)),
		Subcategory: strings.TrimSpace(values.Get(paramSubcategory)),
		Colors:      splitList(values.Get(paramColor)),
		Sizes:       splitList(values.Get(paramSize)),
		SearchQuery: strings.TrimSpace(values.Get(paramSearch)),
		Sort:        Sort(strings.TrimSpace(values.Get(paramSort))),
	}
	spec.Price = decodePriceRange(values.Get(paramPriceMin), values.Get(paramPriceMax))
	return Normalize(spec)
}

func decodePriceRange(rawMin, rawMax string) *PriceRange {
	rawMin = strings.TrimSpace(rawMin)
	rawMax = strings.TrimSpace(rawMax)
	if rawMin == "" && rawMax == "" {
		return nil
	}

	min := int64(0)
	if rawMin != "" {
		parsed, err := strconv.ParseInt(rawMin, 10, 64)
		if err != nil || parsed < 0 {
			return nil
		}
		min = parsed
	}

	max := PriceUnbounded
	if rawMax != "" {
		parsed, err := strconv.ParseInt(rawMax, 10, 64)
		if err != nil {
			return nil
		}
		if parsed >= 0 {
			max = parsed
		}
	}

	return &PriceRange{Min: min, Max: max}
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
