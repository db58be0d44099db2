package handlers

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/pkg/pagination"
)

// BrandLister lists brands page by page
type BrandLister interface {
	ListBrands(ctx context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error)
}

// BrandHandler handles brand listing requests
type BrandHandler struct {
	brands       BrandLister
	defaultLimit int
	maxLimit     int
}

// NewBrandHandler creates a new brand handler. Requested limits above
// maxLimit are capped.
func NewBrandHandler(brands BrandLister, defaultLimit, maxLimit int) *BrandHandler {
	if defaultLimit < 1 {
		defaultLimit = 24
	}
	if maxLimit < defaultLimit {
		maxLimit = defaultLimit
	}
	return &BrandHandler{
		brands:       brands,
		defaultLimit: defaultLimit,
		maxLimit:     maxLimit,
	}
}

// ListBrands handles GET /api/store/brands
func (h *BrandHandler) ListBrands(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	limit := h.defaultLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		if n > 0 {
			limit = n
		}
	}
	if limit > h.maxLimit {
		limit = h.maxLimit
	}

	offset := 0
	if v := query.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			respondWithError(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = n
	}

	filter := repositories.BrandFilter{
		Query:  strings.TrimSpace(query.Get("q")),
		Limit:  limit,
		Offset: offset,
	}

	brands, total, err := h.brands.ListBrands(r.Context(), filter)
	if err != nil {
		respondWithAppError(w, r, err)
		return
	}

	respondWithJSON(w, http.StatusOK, pagination.ToPaginatedResponse(pagination.Params[*entities.Brand]{
		Data:    brands,
		Count:   total,
		Limit:   limit,
		Offset:  offset,
		DataKey: "brands",
	}))
}
