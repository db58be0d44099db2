package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/storefront/catalog/internal/application/services"
	"github.com/storefront/catalog/internal/domain/entities"
)

// CategoryProductLister lists one page of a category
type CategoryProductLister interface {
	ListCategoryProducts(ctx context.Context, req entities.CategoryProductsRequest) (*entities.CategoryProductsResponse, error)
}

// CategoryFacetAggregator computes the facets of a category
type CategoryFacetAggregator interface {
	GetCategoryFacets(ctx context.Context, req entities.CategoryFacetsRequest) (*entities.FacetsResponse, error)
}

// CategoryReader looks up a single category
type CategoryReader interface {
	GetCategory(ctx context.Context, id string) (*entities.Category, error)
}

// CatalogHandler handles category listing and facet requests
type CatalogHandler struct {
	products   CategoryProductLister
	facets     CategoryFacetAggregator
	categories CategoryReader
	normalizer *services.FilterNormalizer
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(
	products CategoryProductLister,
	facets CategoryFacetAggregator,
	categories CategoryReader,
	normalizer *services.FilterNormalizer,
) *CatalogHandler {
	return &CatalogHandler{
		products:   products,
		facets:     facets,
		categories: categories,
		normalizer: normalizer,
	}
}

// categoryProductsBody is the wire form of a listing request. Filters stay
// raw so the normalizer can coerce loosely typed client input; anything other
// than an object means no filters.
type categoryProductsBody struct {
	CategoryID  flexString `json:"category_id"`
	Page        flexInt    `json:"page"`
	PageSize    flexInt    `json:"page_size"`
	OrderBy     flexString `json:"order_by"`
	Filters     any        `json:"filters"`
	SearchQuery flexString `json:"search_query"`
	BrandID     flexString `json:"brand_id"`
}

// ListCategoryProducts handles POST /api/store/category-products
func (h *CatalogHandler) ListCategoryProducts(w http.ResponseWriter, r *http.Request) {
	var body categoryProductsBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		respondWithError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rawFilters, _ := body.Filters.(map[string]any)
	req := entities.CategoryProductsRequest{
		CategoryID:  strings.TrimSpace(string(body.CategoryID)),
		Page:        int(body.Page),
		PageSize:    int(body.PageSize),
		OrderBy:     string(body.OrderBy),
		Filters:     h.normalizer.FromRaw(rawFilters),
		SearchQuery: string(body.SearchQuery),
		BrandID:     strings.TrimSpace(string(body.BrandID)),
	}

	resp, err := h.products.ListCategoryProducts(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GetCategoryFacets handles GET /api/store/category-facets
func (h *CatalogHandler) GetCategoryFacets(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	req := entities.CategoryFacetsRequest{
		CategoryID:  strings.TrimSpace(query.Get("category_id")),
		BrandID:     strings.TrimSpace(query.Get("brand_id")),
		SearchQuery: query.Get("search_query"),
		Filters:     h.normalizer.FromQuery(query),
	}

	resp, err := h.facets.GetCategoryFacets(r.Context(), req)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, resp)
}

// GetCategory handles GET /api/store/categories/{id}
func (h *CatalogHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	categoryID := r.PathValue("id")
	if categoryID == "" {
		respondWithError(w, http.StatusBadRequest, "category ID is required")
		return
	}

	category, err := h.categories.GetCategory(r.Context(), categoryID)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, category)
}

// flexInt accepts a JSON integer or a string holding one. Anything else,
// including null, fractions and words, decodes to zero so the service applies
// its defaults.
type flexInt int

func (f *flexInt) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if unquoted, err := strconv.Unquote(s); err == nil {
		s = strings.TrimSpace(unquoted)
	}

	n, err := strconv.Atoi(s)
	if err != nil {
		n = 0
	}
	*f = flexInt(n)
	return nil
}

// flexString accepts a JSON string or a bare number. Other values decode to
// the empty string.
type flexString string

func (f *flexString) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case string:
		*f = flexString(t)
	case float64:
		*f = flexString(strconv.FormatFloat(t, 'f', -1, 64))
	default:
		*f = ""
	}
	return nil
}
