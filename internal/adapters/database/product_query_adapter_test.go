package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

func setupMockClient(t *testing.T) (*postgres.Client, sqlmock.Sqlmock) {
	t.Helper()
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { mockDB.Close() })
	return postgres.NewClientFromDB(mockDB), mock
}

var productRowColumns = []string{
	"id", "title", "handle", "description", "thumbnail", "tags", "availability", "price",
	"currency_code", "metadata", "category_ids", "brand_ids", "created_at", "updated_at",
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestProductQueryAdapter_QueryProducts(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProductQueryAdapter(client)
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "products" WHERE .*"products"\."status" = 'published'.*"product_categories".*'c1'`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))

	mock.ExpectQuery(`SELECT "products"\."id".*ORDER BY "products"\."price" DESC, "products"\."id" ASC LIMIT 2 OFFSET 2`).
		WillReturnRows(sqlmock.NewRows(productRowColumns).
			AddRow("p1", "Red Shirt", "red-shirt", nil, nil, `{cotton,summer}`, "in_stock", 19.99, "USD",
				[]byte(`{"color":"red","size":42,"gift":true}`), `{c1}`, `{b1}`, now, now).
			AddRow("p2", "Blue Shirt", nil, "Soft", nil, `{}`, "out_of_stock", 25.0, nil,
				nil, `{c1,c9}`, `{}`, now, now))

	products, total, err := adapter.QueryProducts(context.Background(), repositories.ProductQuery{
		Predicate: repositories.ProductPredicate{CategoryID: "c1"},
		Order:     entities.ProductOrder{Field: entities.SortFieldPrice, Descending: true},
		Limit:     2,
		Offset:    2,
	})
	require.NoError(t, err)
	assert.Equal(t, 5, total)
	require.Len(t, products, 2)

	assert.Equal(t, "p1", products[0].ID)
	assert.Equal(t, "red-shirt", products[0].Handle)
	assert.Equal(t, []string{"cotton", "summer"}, products[0].Tags)
	assert.Equal(t, map[string]string{"color": "red", "size": "42", "gift": "true"}, products[0].Metadata)
	assert.Equal(t, []string{"c1"}, products[0].CategoryIDs)
	assert.Equal(t, []string{"b1"}, products[0].BrandIDs)
	assert.Equal(t, 19.99, products[0].Price)

	assert.Equal(t, "Soft", products[1].Description)
	assert.Empty(t, products[1].Tags)
	assert.Empty(t, products[1].Metadata)
	assert.Equal(t, []string{"c1", "c9"}, products[1].CategoryIDs)

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductQueryAdapter_QueryProducts_SkipsPageBeyondTotal(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProductQueryAdapter(client)

	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "products"`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	products, total, err := adapter.QueryProducts(context.Background(), repositories.ProductQuery{
		Predicate: repositories.ProductPredicate{CategoryID: "c1"},
		Limit:     10,
		Offset:    10,
	})
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.NotNil(t, products)
	assert.Empty(t, products)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductQueryAdapter_CountProducts_Predicate(t *testing.T) {
	tests := []struct {
		name      string
		predicate repositories.ProductPredicate
		pattern   string
	}{
		{
			name:      "tags overlap",
			predicate: repositories.ProductPredicate{CategoryID: "c1", Filters: entities.Filters{Tags: []string{"cotton"}}},
			pattern:   `products\.tags && '\{"cotton"\}'`,
		},
		{
			name:      "availability",
			predicate: repositories.ProductPredicate{CategoryID: "c1", Filters: entities.Filters{Availability: []string{"in_stock", "preorder"}}},
			pattern:   `"products"\."availability" IN \('in_stock', 'preorder'\)`,
		},
		{
			name: "inclusive price bounds",
			predicate: repositories.ProductPredicate{CategoryID: "c1", Filters: entities.Filters{
				Price: entities.PriceRange{Min: floatPtr(10.5), Max: floatPtr(99.5)},
			}},
			pattern: `"products"\."price" >= 10\.5.*"products"\."price" <= 99\.5`,
		},
		{
			name: "metadata",
			predicate: repositories.ProductPredicate{CategoryID: "c1", Filters: entities.Filters{
				Metadata: map[string][]string{"color": {"red"}},
			}},
			pattern: `products\.metadata ->> 'color' = ANY\('\{"red"\}'\)`,
		},
		{
			name:      "search",
			predicate: repositories.ProductPredicate{CategoryID: "c1", Search: "shirt"},
			pattern:   `"products"\."title" ILIKE '%shirt%'.*"products"\."description" ILIKE '%shirt%'`,
		},
		{
			name:      "product id restriction",
			predicate: repositories.ProductPredicate{CategoryID: "c1", ProductIDs: []string{"p1", "p2"}},
			pattern:   `"products"\."id" IN \('p1', 'p2'\)`,
		},
		{
			name:      "empty product id restriction",
			predicate: repositories.ProductPredicate{CategoryID: "c1", ProductIDs: []string{}},
			pattern:   `FALSE`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, mock := setupMockClient(t)
			adapter := NewProductQueryAdapter(client)

			mock.ExpectQuery(`SELECT COUNT\(\*\) FROM "products" WHERE .*` + tt.pattern).
				WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(7))

			total, err := adapter.CountProducts(context.Background(), tt.predicate)
			require.NoError(t, err)
			assert.Equal(t, 7, total)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestProductQueryAdapter_AggregateTerms(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProductQueryAdapter(client)

	mock.ExpectQuery(`SELECT "facet_value", COUNT\(DISTINCT.*unnest\(products\.tags\) AS "facet_value".*GROUP BY "facet_value" ORDER BY "product_count" DESC, "facet_value" ASC LIMIT 10`).
		WillReturnRows(sqlmock.NewRows([]string{"facet_value", "product_count"}).
			AddRow("cotton", 3).
			AddRow("summer", 2))

	buckets, err := adapter.AggregateTerms(context.Background(),
		repositories.ProductPredicate{CategoryID: "c1"},
		entities.FacetField{Kind: entities.FacetKindTags},
		10,
	)
	require.NoError(t, err)
	assert.Equal(t, []entities.FacetBucket{{Value: "cotton", Count: 3}, {Value: "summer", Count: 2}}, buckets)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductQueryAdapter_AggregateTerms_FacetExpressions(t *testing.T) {
	tests := []struct {
		field   entities.FacetField
		pattern string
	}{
		{field: entities.FacetField{Kind: entities.FacetKindBrand}, pattern: `unnest\(ARRAY\(SELECT pb\.brand_id FROM product_brands pb`},
		{field: entities.FacetField{Kind: entities.FacetKindAvailability}, pattern: `products\.availability AS "facet_value"`},
		{field: entities.MetadataField("color"), pattern: `products\.metadata ->> 'color' AS "facet_value"`},
	}

	for _, tt := range tests {
		t.Run(tt.field.Key(), func(t *testing.T) {
			client, mock := setupMockClient(t)
			adapter := NewProductQueryAdapter(client)

			mock.ExpectQuery(tt.pattern).
				WillReturnRows(sqlmock.NewRows([]string{"facet_value", "product_count"}))

			buckets, err := adapter.AggregateTerms(context.Background(), repositories.ProductPredicate{CategoryID: "c1"}, tt.field, 5)
			require.NoError(t, err)
			assert.Empty(t, buckets)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	client, _ := setupMockClient(t)
	_, err := NewProductQueryAdapter(client).AggregateTerms(context.Background(),
		repositories.ProductPredicate{CategoryID: "c1"},
		entities.FacetField{Kind: entities.FacetKindPrice},
		5,
	)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
}

func TestProductQueryAdapter_AggregatePrice(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProductQueryAdapter(client)

	mock.ExpectQuery(`SELECT COALESCE\(MIN\("products"\."price"\), 0\) AS "min_price", COALESCE\(MAX\("products"\."price"\), 0\) AS "max_price"`).
		WillReturnRows(sqlmock.NewRows([]string{"min_price", "max_price", "product_count"}).AddRow(5.0, 120.0, 5))

	stats, err := adapter.AggregatePrice(context.Background(), repositories.ProductPredicate{CategoryID: "c1"})
	require.NoError(t, err)
	assert.Equal(t, &entities.PriceStats{Min: 5, Max: 120, Count: 5}, stats)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProductQueryAdapter_QueryError(t *testing.T) {
	client, mock := setupMockClient(t)
	adapter := NewProductQueryAdapter(client)
	dbErr := errors.New("connection reset")

	mock.ExpectQuery(`SELECT COUNT\(\*\)`).WillReturnError(dbErr)

	_, _, err := adapter.QueryProducts(context.Background(), repositories.ProductQuery{
		Predicate: repositories.ProductPredicate{CategoryID: "c1"},
		Limit:     10,
	})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrorTypeInternal, apperrors.TypeOf(err))
	assert.ErrorIs(t, err, dbErr)
}

func TestOrderExpressions(t *testing.T) {
	assert.Len(t, orderExpressions(entities.ProductOrder{}), 2)
	assert.Len(t, orderExpressions(entities.ProductOrder{Field: entities.SortFieldTitle}), 2)
}

func TestDecodeMetadata(t *testing.T) {
	got, err := decodeMetadata([]byte(`{"color":"red","weight":1.5,"dims":{"w":2},"empty":null}`))
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"color": "red", "weight": "1.5", "dims": `{"w":2}`}, got)

	got, err = decodeMetadata(nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	_, err = decodeMetadata([]byte(`[1,2]`))
	assert.Error(t, err)
}

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `50\% off\_now`, escapeLike("50% off_now"))
	assert.Equal(t, `a\\b`, escapeLike(`a\b`))
}
