package repositories

import (
	"context"

	"github.com/storefront/catalog/internal/domain/entities"
)

// CatalogRepository resolves the categories and brands a listing is scoped by
type CatalogRepository interface {
	// GetCategory retrieves a category by ID
	GetCategory(ctx context.Context, id string) (*entities.Category, error)

	// GetBrand retrieves a brand by ID
	GetBrand(ctx context.Context, id string) (*entities.Brand, error)

	// GetBrandsByIDs retrieves multiple brands by their IDs
	GetBrandsByIDs(ctx context.Context, ids []string) ([]*entities.Brand, error)

	// ListBrands retrieves a page of brands and the total matching count
	ListBrands(ctx context.Context, filter BrandFilter) ([]*entities.Brand, int, error)

	// ProductIDsForBrand returns the IDs of the products linked to a brand
	ProductIDsForBrand(ctx context.Context, brandID string) ([]string, error)
}

// ProductQueryRepository is the product query capability the listing and facet
// services run against. Implementations translate a ProductPredicate into
// their own query language.
type ProductQueryRepository interface {
	// QueryProducts returns one page of matching products and the total match count
	QueryProducts(ctx context.Context, query ProductQuery) ([]*entities.Product, int, error)

	// CountProducts counts the products matching a predicate
	CountProducts(ctx context.Context, predicate ProductPredicate) (int, error)

	// AggregateTerms counts matching products per value of a terms facet
	AggregateTerms(ctx context.Context, predicate ProductPredicate, field entities.FacetField, limit int) ([]entities.FacetBucket, error)

	// AggregatePrice returns price bounds over the matching products
	AggregatePrice(ctx context.Context, predicate ProductPredicate) (*entities.PriceStats, error)
}

// BrandFilter defines filters for listing brands
type BrandFilter struct {
	Query  string
	Limit  int
	Offset int
}

// ProductPredicate is the full set of constraints of a product query. All
// constraints are ANDed; values inside one facet are ORed.
type ProductPredicate struct {
	CategoryID string

	// ProductIDs restricts matches to a set of products. nil means no
	// restriction; an empty non-nil slice matches nothing.
	ProductIDs []string

	Search  string
	Filters entities.Filters
}

// MatchesNothing reports whether the predicate is known to select no products
func (p ProductPredicate) MatchesNothing() bool {
	return p.ProductIDs != nil && len(p.ProductIDs) == 0
}

// ProductQuery is a paged product query
type ProductQuery struct {
	Predicate ProductPredicate
	Order     entities.ProductOrder
	Limit     int
	Offset    int
}

// ProductIndex is a search index kept in sync with the published catalog
type ProductIndex interface {
	IndexProduct(ctx context.Context, product *entities.Product) error
}
