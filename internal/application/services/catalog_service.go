package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

// CatalogService exposes the category and brand lookups used by the storefront
type CatalogService struct {
	repo repositories.CatalogRepository
}

// NewCatalogService creates a new catalog service
func NewCatalogService(repo repositories.CatalogRepository) *CatalogService {
	return &CatalogService{repo: repo}
}

// GetCategory retrieves an active category by ID
func (s *CatalogService) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, apperrors.NewValidationError("category id is required")
	}
	return lookupCategory(ctx, s.repo, id)
}

// ListBrands retrieves a page of brands
func (s *CatalogService) ListBrands(ctx context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error) {
	if filter.Limit < 0 || filter.Offset < 0 {
		return nil, 0, apperrors.NewValidationError("limit and offset must not be negative")
	}
	brands, total, err := s.repo.ListBrands(ctx, filter)
	if err != nil {
		return nil, 0, apperrors.WrapExternal("failed to list brands", err)
	}
	return brands, total, nil
}

func lookupCategory(ctx context.Context, repo repositories.CatalogRepository, id string) (*entities.Category, error) {
	category, err := repo.GetCategory(ctx, id)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, apperrors.NewNotFoundError(fmt.Sprintf("category %s not found", id))
		}
		return nil, apperrors.WrapExternal("failed to load category", err)
	}
	if category == nil || !category.IsActive {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("category %s not found", id))
	}
	return category, nil
}

// resolvePredicate validates the category and brand scope of a listing and
// builds the predicate shared by product listing and facet aggregation.
func resolvePredicate(ctx context.Context, repo repositories.CatalogRepository, categoryID, brandID, search string, filters entities.Filters) (repositories.ProductPredicate, error) {
	predicate := repositories.ProductPredicate{
		CategoryID: categoryID,
		Search:     strings.TrimSpace(search),
		Filters:    filters,
	}

	if _, err := lookupCategory(ctx, repo, categoryID); err != nil {
		return predicate, err
	}

	brandID = strings.TrimSpace(brandID)
	if brandID == "" {
		return predicate, nil
	}

	brand, err := repo.GetBrand(ctx, brandID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return predicate, apperrors.NewNotFoundError(fmt.Sprintf("brand %s not found", brandID))
		}
		return predicate, apperrors.WrapExternal("failed to load brand", err)
	}
	if brand == nil {
		return predicate, apperrors.NewNotFoundError(fmt.Sprintf("brand %s not found", brandID))
	}

	ids, err := repo.ProductIDsForBrand(ctx, brandID)
	if err != nil {
		return predicate, apperrors.WrapExternal("failed to load brand products", err)
	}
	if ids == nil {
		ids = []string{}
	}
	predicate.ProductIDs = ids

	return predicate, nil
}
