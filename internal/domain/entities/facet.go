package entities

// FacetKind identifies a filterable product dimension
type FacetKind string

const (
	FacetKindBrand        FacetKind = "brand"
	FacetKindTags         FacetKind = "tags"
	FacetKindAvailability FacetKind = "availability"
	FacetKindMetadata     FacetKind = "metadata"
	FacetKindPrice        FacetKind = "price"
)

// metadataKeyPrefix namespaces metadata facet keys so they cannot collide with
// the built-in dimensions.
const metadataKeyPrefix = "metadata."

// FacetField addresses one facet dimension. MetadataKey is set only for
// FacetKindMetadata.
type FacetField struct {
	Kind        FacetKind
	MetadataKey string
}

// MetadataField returns the facet field for a product metadata key
func MetadataField(key string) FacetField {
	return FacetField{Kind: FacetKindMetadata, MetadataKey: key}
}

// Key returns the facet_key exposed to clients
func (f FacetField) Key() string {
	if f.Kind == FacetKindMetadata {
		return metadataKeyPrefix + f.MetadataKey
	}
	return string(f.Kind)
}

// AggregationType describes how a facet's values are aggregated
type AggregationType string

const (
	AggregationTerms AggregationType = "terms"
	AggregationRange AggregationType = "range"
)

// DisplayType hints how the storefront renders a facet
type DisplayType string

const (
	DisplayCheckbox DisplayType = "checkbox"
	DisplayToggle   DisplayType = "toggle"
	DisplaySlider   DisplayType = "slider"
)

// FacetDefinition is one entry of the ordered facet configuration
type FacetDefinition struct {
	Field           FacetField
	Label           string
	AggregationType AggregationType
	DisplayType     DisplayType
}

// FacetValue is one selectable option of a terms facet
type FacetValue struct {
	Value    string `json:"value"`
	Label    string `json:"label"`
	Count    int    `json:"count"`
	Selected bool   `json:"selected"`
}

// FacetRange is the bounds of a range facet
type FacetRange struct {
	Min  float64 `json:"min"`
	Max  float64 `json:"max"`
	Step float64 `json:"step"`
}

// FacetAggregation is one filterable dimension with its options for the
// current filtered product set
type FacetAggregation struct {
	FacetKey        string          `json:"facet_key"`
	FacetLabel      string          `json:"facet_label"`
	AggregationType AggregationType `json:"aggregation_type"`
	DisplayType     DisplayType     `json:"display_type"`
	Values          []FacetValue    `json:"values,omitempty"`
	Range           *FacetRange     `json:"range,omitempty"`
}

// FacetBucket is a raw value/count pair returned by the query backend
type FacetBucket struct {
	Value string `json:"value"`
	Count int    `json:"count"`
}

// PriceStats holds price bounds over a product set
type PriceStats struct {
	Min   float64 `json:"min"`
	Max   float64 `json:"max"`
	Count int     `json:"count"`
}
