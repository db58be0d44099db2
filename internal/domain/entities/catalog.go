package entities

import "github.com/storefront/catalog/pkg/pagination"

// Sortable product fields
const (
	SortFieldTitle     = "title"
	SortFieldPrice     = "price"
	SortFieldCreatedAt = "created_at"
	SortFieldUpdatedAt = "updated_at"
)

// ProductOrder is a single sort instruction. A zero value means the backend's
// natural order.
type ProductOrder struct {
	Field      string
	Descending bool
}

// IsZero reports whether no explicit order was requested
func (o ProductOrder) IsZero() bool {
	return o.Field == ""
}

// CategoryProductsRequest asks for one page of a category listing
type CategoryProductsRequest struct {
	CategoryID  string  `json:"category_id"`
	Page        int     `json:"page,omitempty"`
	PageSize    int     `json:"page_size,omitempty"`
	OrderBy     string  `json:"order_by,omitempty"`
	Filters     Filters `json:"filters"`
	SearchQuery string  `json:"search_query,omitempty"`
	BrandID     string  `json:"brand_id,omitempty"`
}

// CategoryProductsResponse is one page of a category listing
type CategoryProductsResponse struct {
	Data     []*Product              `json:"data"`
	Metadata pagination.PageMetadata `json:"metadata"`
}

// CategoryFacetsRequest asks for the facet aggregations of a category listing
type CategoryFacetsRequest struct {
	CategoryID  string
	BrandID     string
	SearchQuery string
	Filters     Filters
}

// FacetsResponse carries the facets of a category under the applied filters
type FacetsResponse struct {
	CategoryID     string             `json:"category_id"`
	TotalProducts  int                `json:"total_products"`
	Facets         []FacetAggregation `json:"facets"`
	AppliedFilters Filters            `json:"applied_filters"`
}
