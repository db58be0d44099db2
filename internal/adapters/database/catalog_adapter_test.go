package database

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/catalog/internal/domain/repositories"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

var brandRowColumns = []string{"id", "name", "handle", "logo_url", "created_at"}

func TestCatalogAdapter_GetCategory(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)

	mock.ExpectQuery(`SELECT "id", "name", "handle", "parent_id", "is_active" FROM "categories" WHERE \("id" = 'c1'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"id", "name", "handle", "parent_id", "is_active"}).
			AddRow("c1", "Clothing", "clothing", nil, true))

	category, err := adapter.GetCategory(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, "Clothing", category.Name)
	assert.Equal(t, "clothing", category.Handle)
	assert.Empty(t, category.ParentID)
	assert.True(t, category.IsActive)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogAdapter_GetCategory_NotFound(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)

	mock.ExpectQuery(`FROM "categories"`).WillReturnError(sql.ErrNoRows)

	_, err := adapter.GetCategory(context.Background(), "missing")
	assert.True(t, apperrors.IsNotFound(err))
}

func TestCatalogAdapter_GetBrand(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)
	created := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`FROM "brands" WHERE \("id" = 'b1'\)`).
		WillReturnRows(sqlmock.NewRows(brandRowColumns).AddRow("b1", "Acme", "acme", nil, created))
	mock.ExpectQuery(`FROM "brands" WHERE \("id" = 'nope'\)`).
		WillReturnRows(sqlmock.NewRows(brandRowColumns))

	brand, err := adapter.GetBrand(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, "Acme", brand.Name)
	assert.Equal(t, created, brand.CreatedAt)

	_, err = adapter.GetBrand(context.Background(), "nope")
	assert.True(t, apperrors.IsNotFound(err))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogAdapter_GetBrandsByIDs(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`FROM "brands" WHERE \("id" IN \('b1', 'b2'\)\)`).
		WillReturnRows(sqlmock.NewRows(brandRowColumns).
			AddRow("b1", "Acme", "acme", "https://cdn.example.com/acme.png", now).
			AddRow("b2", "Globex", "globex", nil, now))

	brands, err := adapter.GetBrandsByIDs(context.Background(), []string{"b1", "b2"})
	require.NoError(t, err)
	require.Len(t, brands, 2)
	assert.Equal(t, "https://cdn.example.com/acme.png", brands[0].LogoURL)

	brands, err = adapter.GetBrandsByIDs(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, brands)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogAdapter_ListBrands(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)
	now := time.Now()

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "brands" WHERE \(\("name" ILIKE '%ac%'\) OR \("handle" ILIKE '%ac%'\)\)`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`FROM "brands" .*ORDER BY "name" ASC, "id" ASC LIMIT 2 OFFSET 1`).
		WillReturnRows(sqlmock.NewRows(brandRowColumns).
			AddRow("b4", "Acorn", "acorn", nil, now).
			AddRow("b5", "Actual", "actual", nil, now))

	brands, total, err := adapter.ListBrands(context.Background(), repositories.BrandFilter{Query: "ac", Limit: 2, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	require.Len(t, brands, 2)
	assert.Equal(t, "Acorn", brands[0].Name)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCatalogAdapter_ProductIDsForBrand(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewCatalogAdapter(client)

	mock.ExpectQuery(`SELECT "product_id" FROM "product_brands" WHERE \("brand_id" = 'b1'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}).AddRow("p1").AddRow("p2"))
	mock.ExpectQuery(`FROM "product_brands" WHERE \("brand_id" = 'b9'\)`).
		WillReturnRows(sqlmock.NewRows([]string{"product_id"}))

	ids, err := adapter.ProductIDsForBrand(context.Background(), "b1")
	require.NoError(t, err)
	assert.Equal(t, []string{"p1", "p2"}, ids)

	ids, err = adapter.ProductIDsForBrand(context.Background(), "b9")
	require.NoError(t, err)
	assert.NotNil(t, ids)
	assert.Empty(t, ids)
	assert.NoError(t, mock.ExpectationsWereMet())
}
