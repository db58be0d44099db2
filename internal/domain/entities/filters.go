package entities

import "regexp"

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidMetadataKey reports whether key can name a metadata facet. Keys end
// up in backend field names, so only letters, digits and underscores pass.
func ValidMetadataKey(key string) bool {
	return metadataKeyPattern.MatchString(key)
}

// PriceRange bounds a price filter. Both bounds are inclusive.
type PriceRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// IsSet reports whether either bound is present
func (p PriceRange) IsSet() bool {
	return p.Min != nil || p.Max != nil
}

// Contains reports whether price lies within the range
func (p PriceRange) Contains(price float64) bool {
	if p.Min != nil && price < *p.Min {
		return false
	}
	if p.Max != nil && price > *p.Max {
		return false
	}
	return true
}

// Filters is the canonical filter state of a category listing. An empty field
// means no constraint on that facet.
type Filters struct {
	Tags         []string            `json:"tags"`
	Availability []string            `json:"availability"`
	Price        PriceRange          `json:"price"`
	Metadata     map[string][]string `json:"metadata"`
}

// EmptyFilters returns filters with every collection initialised
func EmptyFilters() Filters {
	return Filters{
		Tags:         []string{},
		Availability: []string{},
		Metadata:     map[string][]string{},
	}
}

// IsEmpty reports whether no constraint is active
func (f Filters) IsEmpty() bool {
	if len(f.Tags) > 0 || len(f.Availability) > 0 || f.Price.IsSet() {
		return false
	}
	for _, values := range f.Metadata {
		if len(values) > 0 {
			return false
		}
	}
	return true
}

// Clone returns a deep copy
func (f Filters) Clone() Filters {
	out := Filters{
		Tags:         append([]string{}, f.Tags...),
		Availability: append([]string{}, f.Availability...),
		Metadata:     make(map[string][]string, len(f.Metadata)),
	}
	if f.Price.Min != nil {
		v := *f.Price.Min
		out.Price.Min = &v
	}
	if f.Price.Max != nil {
		v := *f.Price.Max
		out.Price.Max = &v
	}
	for k, values := range f.Metadata {
		out.Metadata[k] = append([]string{}, values...)
	}
	return out
}

// Without returns a copy with the given facet's own constraint removed.
// Brand is not part of Filters, so removing it is a no-op here.
func (f Filters) Without(field FacetField) Filters {
	out := f.Clone()
	switch field.Kind {
	case FacetKindTags:
		out.Tags = []string{}
	case FacetKindAvailability:
		out.Availability = []string{}
	case FacetKindPrice:
		out.Price = PriceRange{}
	case FacetKindMetadata:
		delete(out.Metadata, field.MetadataKey)
	}
	return out
}

// Selected returns the active values of a terms facet
func (f Filters) Selected(field FacetField) []string {
	switch field.Kind {
	case FacetKindTags:
		return f.Tags
	case FacetKindAvailability:
		return f.Availability
	case FacetKindMetadata:
		return f.Metadata[field.MetadataKey]
	}
	return nil
}

// ToRaw renders the filters in the loosely typed shape accepted from clients
func (f Filters) ToRaw() map[string]any {
	price := map[string]any{}
	if f.Price.Min != nil {
		price["min"] = *f.Price.Min
	}
	if f.Price.Max != nil {
		price["max"] = *f.Price.Max
	}
	metadata := make(map[string]any, len(f.Metadata))
	for k, values := range f.Metadata {
		metadata[k] = toAnySlice(values)
	}
	return map[string]any{
		"tags":         toAnySlice(f.Tags),
		"availability": toAnySlice(f.Availability),
		"price":        price,
		"metadata":     metadata,
	}
}

func toAnySlice(values []string) []any {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = v
	}
	return out
}
