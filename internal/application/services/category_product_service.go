package services

import (
	"context"
	"fmt"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	apperrors "github.com/storefront/catalog/pkg/errors"
	"github.com/storefront/catalog/pkg/pagination"
)

// ListingOptions bounds category listing pagination
type ListingOptions struct {
	DefaultPageSize int
	MaxPageSize     int
}

// CategoryProductService lists the products of a category under the
// storefront filters
type CategoryProductService struct {
	catalog    repositories.CatalogRepository
	products   repositories.ProductQueryRepository
	normalizer *FilterNormalizer
	opts       ListingOptions
}

// NewCategoryProductService creates a new category product service
func NewCategoryProductService(
	catalog repositories.CatalogRepository,
	products repositories.ProductQueryRepository,
	normalizer *FilterNormalizer,
	opts ListingOptions,
) *CategoryProductService {
	if opts.DefaultPageSize < 1 {
		opts.DefaultPageSize = 24
	}
	if opts.MaxPageSize < opts.DefaultPageSize {
		opts.MaxPageSize = opts.DefaultPageSize
	}
	return &CategoryProductService{
		catalog:    catalog,
		products:   products,
		normalizer: normalizer,
		opts:       opts,
	}
}

// ListCategoryProducts returns one page of a category's products. Filters are
// ANDed across facets and ORed within a facet.
func (s *CategoryProductService) ListCategoryProducts(ctx context.Context, req entities.CategoryProductsRequest) (*entities.CategoryProductsResponse, error) {
	ctx, span := observability.StartSpan(ctx, "CategoryProductService.ListCategoryProducts")
	defer span.End()

	categoryID := strings.TrimSpace(req.CategoryID)
	if categoryID == "" {
		return nil, apperrors.NewValidationError("category_id is required")
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = s.opts.DefaultPageSize
	}
	if pageSize > s.opts.MaxPageSize {
		return nil, apperrors.NewValidationError(fmt.Sprintf("page_size must not exceed %d", s.opts.MaxPageSize))
	}

	observability.SetSpanAttributes(span,
		attribute.String("catalog.category_id", categoryID),
		attribute.Int("catalog.page", page),
		attribute.Int("catalog.page_size", pageSize),
	)

	filters := s.normalizer.Normalize(req.Filters)
	predicate, err := resolvePredicate(ctx, s.catalog, categoryID, req.BrandID, req.SearchQuery, filters)
	if err != nil {
		observability.RecordError(span, err)
		return nil, err
	}

	offset := pagination.OffsetForPage(page, pageSize)
	resp := &entities.CategoryProductsResponse{Data: []*entities.Product{}}

	if predicate.MatchesNothing() {
		resp.Metadata = pagination.NewPageMetadata(0, pageSize, offset)
		return resp, nil
	}

	products, total, err := s.products.QueryProducts(ctx, repositories.ProductQuery{
		Predicate: predicate,
		Order:     ParseOrderBy(req.OrderBy),
		Limit:     pageSize,
		Offset:    offset,
	})
	if err != nil {
		observability.RecordError(span, err)
		observability.LoggerFromContext(ctx).Error().Err(err).
			Str("category_id", categoryID).
			Msg("category product query failed")
		return nil, apperrors.WrapExternal("failed to query category products", err)
	}

	if products != nil {
		resp.Data = products
	}
	resp.Metadata = pagination.NewPageMetadata(total, pageSize, offset)

	return resp, nil
}

// ParseOrderBy reads an order_by value such as "price" or "-created_at".
// Unknown fields yield the zero order so the backend's natural order applies.
func ParseOrderBy(orderBy string) entities.ProductOrder {
	orderBy = strings.TrimSpace(orderBy)
	descending := strings.HasPrefix(orderBy, "-")
	field := strings.ToLower(strings.TrimPrefix(orderBy, "-"))

	switch field {
	case entities.SortFieldTitle, entities.SortFieldPrice, entities.SortFieldCreatedAt, entities.SortFieldUpdatedAt:
		return entities.ProductOrder{Field: field, Descending: descending}
	}
	return entities.ProductOrder{}
}
