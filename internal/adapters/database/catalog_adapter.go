package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

// CatalogAdapter implements CatalogRepository
type CatalogAdapter struct {
	client *postgres.Client
	db     *goqu.Database
}

// NewCatalogAdapter creates a new catalog adapter
func NewCatalogAdapter(client *postgres.Client) repositories.CatalogRepository {
	return &CatalogAdapter{
		client: client,
		db:     goqu.New("postgres", client.DB()),
	}
}

var brandColumns = []interface{}{"id", "name", "handle", "logo_url", "created_at"}

// GetCategory retrieves a category by ID
func (a *CatalogAdapter) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	query, args, err := a.db.From("categories").
		Select("id", "name", "handle", "parent_id", "is_active").
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build category query", err)
	}

	var (
		category entities.Category
		handle   sql.NullString
		parentID sql.NullString
	)
	err = a.client.DB().QueryRowContext(ctx, query, args...).Scan(
		&category.ID,
		&category.Name,
		&handle,
		&parentID,
		&category.IsActive,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("category with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get category", err)
	}

	category.Handle = handle.String
	category.ParentID = parentID.String
	return &category, nil
}

// GetBrand retrieves a brand by ID
func (a *CatalogAdapter) GetBrand(ctx context.Context, id string) (*entities.Brand, error) {
	query, args, err := a.db.From("brands").
		Select(brandColumns...).
		Where(goqu.Ex{"id": id}).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build brand query", err)
	}

	brand, err := scanBrand(a.client.DB().QueryRowContext(ctx, query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, apperrors.NewNotFoundError(fmt.Sprintf("brand with id %s not found", id))
	}
	if err != nil {
		return nil, apperrors.NewInternalError("failed to get brand", err)
	}
	return brand, nil
}

// GetBrandsByIDs retrieves multiple brands by their IDs
func (a *CatalogAdapter) GetBrandsByIDs(ctx context.Context, ids []string) ([]*entities.Brand, error) {
	if len(ids) == 0 {
		return []*entities.Brand{}, nil
	}

	query, args, err := a.db.From("brands").
		Select(brandColumns...).
		Where(goqu.I("id").In(ids)).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build brands query", err)
	}

	return a.queryBrands(ctx, query, args)
}

// ListBrands retrieves a page of brands ordered by name
func (a *CatalogAdapter) ListBrands(ctx context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error) {
	ds := a.db.From("brands")
	if filter.Query != "" {
		pattern := "%" + escapeLike(filter.Query) + "%"
		ds = ds.Where(goqu.Or(
			goqu.I("name").ILike(pattern),
			goqu.I("handle").ILike(pattern),
		))
	}

	countSQL, countArgs, err := ds.Select(goqu.COUNT("*")).ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build brand count query", err)
	}

	var total int
	if err := a.client.DB().QueryRowContext(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, apperrors.NewInternalError("failed to count brands", err)
	}
	if total == 0 || filter.Offset >= total {
		return []*entities.Brand{}, total, nil
	}

	pageDS := ds.Select(brandColumns...).Order(goqu.I("name").Asc(), goqu.I("id").Asc())
	if filter.Limit > 0 {
		pageDS = pageDS.Limit(uint(filter.Limit))
	}
	if filter.Offset > 0 {
		pageDS = pageDS.Offset(uint(filter.Offset))
	}

	query, args, err := pageDS.ToSQL()
	if err != nil {
		return nil, 0, apperrors.NewInternalError("failed to build brands query", err)
	}

	brands, err := a.queryBrands(ctx, query, args)
	if err != nil {
		return nil, 0, err
	}
	return brands, total, nil
}

// ProductIDsForBrand returns the IDs of the products linked to a brand
func (a *CatalogAdapter) ProductIDsForBrand(ctx context.Context, brandID string) ([]string, error) {
	query, args, err := a.db.From("product_brands").
		Select("product_id").
		Where(goqu.Ex{"brand_id": brandID}).
		Order(goqu.I("product_id").Asc()).
		ToSQL()
	if err != nil {
		return nil, apperrors.NewInternalError("failed to build brand products query", err)
	}

	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to list brand products", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, apperrors.NewInternalError("failed to scan brand product", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate brand products", err)
	}

	return ids, nil
}

func (a *CatalogAdapter) queryBrands(ctx context.Context, query string, args []interface{}) ([]*entities.Brand, error) {
	rows, err := a.client.DB().QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperrors.NewInternalError("failed to query brands", err)
	}
	defer rows.Close()

	brands := []*entities.Brand{}
	for rows.Next() {
		brand, err := scanBrand(rows)
		if err != nil {
			return nil, apperrors.NewInternalError("failed to scan brand", err)
		}
		brands = append(brands, brand)
	}
	if err := rows.Err(); err != nil {
		return nil, apperrors.NewInternalError("failed to iterate brands", err)
	}

	return brands, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBrand(row rowScanner) (*entities.Brand, error) {
	var (
		brand   entities.Brand
		handle  sql.NullString
		logoURL sql.NullString
	)
	if err := row.Scan(&brand.ID, &brand.Name, &handle, &logoURL, &brand.CreatedAt); err != nil {
		return nil, err
	}
	brand.Handle = handle.String
	brand.LogoURL = logoURL.String
	return &brand, nil
}
