package services

import (
	"encoding/json"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/storefront/catalog/internal/domain/entities"
)

// Query-string parameter names understood by FromQuery
const (
	filtersParam        = "filters"
	tagsParam           = "tags"
	availabilityParam   = "availability"
	priceMinParam       = "price_min"
	priceMaxParam       = "price_max"
	metadataParamPrefix = "meta."
)

var availabilityAliases = map[string]string{
	"instock":    entities.AvailabilityInStock,
	"outofstock": entities.AvailabilityOutOfStock,
	"pre_order":  entities.AvailabilityPreorder,
}

// FilterNormalizer turns loosely typed client filter input into canonical
// entities.Filters. It never rejects input: anything it cannot interpret is
// dropped, so a bad filter degrades to "no filter".
type FilterNormalizer struct {
	metadataKeys map[string]bool
}

// NewFilterNormalizer creates a normalizer that accepts metadata filters on
// the registered keys only. With no keys registered every metadata filter is
// dropped.
func NewFilterNormalizer(metadataKeys []string) *FilterNormalizer {
	keys := make(map[string]bool, len(metadataKeys))
	for _, k := range metadataKeys {
		if k = strings.TrimSpace(k); entities.ValidMetadataKey(k) {
			keys[k] = true
		}
	}
	return &FilterNormalizer{metadataKeys: keys}
}

// FromRaw coerces decoded JSON (or equivalent) into canonical filters
func (n *FilterNormalizer) FromRaw(raw map[string]any) entities.Filters {
	f := entities.EmptyFilters()
	if raw == nil {
		return f
	}

	f.Tags = coerceStrings(raw["tags"])
	f.Availability = coerceStrings(raw["availability"])

	if price, ok := raw["price"].(map[string]any); ok {
		if v, ok := coerceFloat(price["min"]); ok {
			f.Price.Min = &v
		}
		if v, ok := coerceFloat(price["max"]); ok {
			f.Price.Max = &v
		}
	}

	if metadata, ok := raw["metadata"].(map[string]any); ok {
		for key, value := range metadata {
			f.Metadata[key] = coerceStrings(value)
		}
	}

	return n.Normalize(f)
}

// FromQuery reads filters from a query string: a JSON document in "filters"
// when present, otherwise the flat tags / availability / price_min /
// price_max / meta.<key> parameters. Repeated and comma-separated values are
// both accepted.
func (n *FilterNormalizer) FromQuery(q url.Values) entities.Filters {
	if doc := strings.TrimSpace(q.Get(filtersParam)); doc != "" {
		var raw map[string]any
		if err := json.Unmarshal([]byte(doc), &raw); err != nil {
			return entities.EmptyFilters()
		}
		return n.FromRaw(raw)
	}

	raw := map[string]any{
		"tags":         splitQueryValues(q[tagsParam]),
		"availability": splitQueryValues(q[availabilityParam]),
	}

	price := map[string]any{}
	if v := q.Get(priceMinParam); v != "" {
		price["min"] = v
	}
	if v := q.Get(priceMaxParam); v != "" {
		price["max"] = v
	}
	raw["price"] = price

	metadata := map[string]any{}
	for param, values := range q {
		if key, ok := strings.CutPrefix(param, metadataParamPrefix); ok {
			metadata[key] = splitQueryValues(values)
		}
	}
	raw["metadata"] = metadata

	return n.FromRaw(raw)
}

// Normalize canonicalises typed filters: values are trimmed and deduplicated
// in first-seen order, unknown availability values and unregistered metadata
// keys are dropped, invalid price bounds are removed and inverted bounds are
// swapped. Normalize is idempotent.
func (n *FilterNormalizer) Normalize(f entities.Filters) entities.Filters {
	out := entities.EmptyFilters()
	out.Tags = dedupe(f.Tags)

	for _, v := range dedupe(f.Availability) {
		if canonical, ok := canonicalAvailability(v); ok {
			out.Availability = appendUnique(out.Availability, canonical)
		}
	}

	if f.Price.Min != nil && validPrice(*f.Price.Min) {
		v := *f.Price.Min
		out.Price.Min = &v
	}
	if f.Price.Max != nil && validPrice(*f.Price.Max) {
		v := *f.Price.Max
		out.Price.Max = &v
	}
	if out.Price.Min != nil && out.Price.Max != nil && *out.Price.Min > *out.Price.Max {
		out.Price.Min, out.Price.Max = out.Price.Max, out.Price.Min
	}

	for key, values := range f.Metadata {
		key = strings.TrimSpace(key)
		if !n.metadataKeys[key] {
			continue
		}
		if cleaned := dedupe(values); len(cleaned) > 0 {
			out.Metadata[key] = append(out.Metadata[key], cleaned...)
			out.Metadata[key] = dedupe(out.Metadata[key])
		}
	}

	return out
}

func canonicalAvailability(v string) (string, bool) {
	v = strings.ToLower(strings.TrimSpace(v))
	v = strings.NewReplacer(" ", "_", "-", "_").Replace(v)
	if entities.IsKnownAvailability(v) {
		return v, true
	}
	if alias, ok := availabilityAliases[v]; ok {
		return alias, true
	}
	if alias, ok := availabilityAliases[strings.ReplaceAll(v, "_", "")]; ok {
		return alias, true
	}
	return "", false
}

func validPrice(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// coerceStrings accepts a single string (comma-separated), a list of strings
// or scalars, or a single number. Everything else yields nil.
func coerceStrings(v any) []string {
	switch t := v.(type) {
	case string:
		return strings.Split(t, ",")
	case []string:
		return t
	case []any:
		out := make([]string, 0, len(t))
		for _, item := range t {
			if s, ok := scalarString(item); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		if s, ok := scalarString(t); ok {
			return []string{s}
		}
	}
	return nil
}

func scalarString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case json.Number:
		return t.String(), true
	}
	return "", false
}

func coerceFloat(v any) (float64, bool) {
	var f float64
	switch t := v.(type) {
	case float64:
		f = t
	case int:
		f = float64(t)
	case json.Number:
		parsed, err := t.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}
	return f, validPrice(f)
}

func splitQueryValues(values []string) []any {
	out := []any{}
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			out = append(out, part)
		}
	}
	return out
}

func dedupe(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = appendUnique(out, v)
		}
	}
	return out
}

func appendUnique(values []string, v string) []string {
	for _, existing := range values {
		if existing == v {
			return values
		}
	}
	return append(values, v)
}
