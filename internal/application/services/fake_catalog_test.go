package services

import (
	"context"
	"errors"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
	apperrors "github.com/storefront/catalog/pkg/errors"
)

// fakeCatalog is an in-memory CatalogRepository and ProductQueryRepository
// that evaluates predicates the same way the database adapter does.
type fakeCatalog struct {
	categories map[string]*entities.Category
	brands     map[string]*entities.Brand
	products   []*entities.Product

	queryErr     error
	queryCalls   int
	brandBatches int
}

func newFakeCatalog() *fakeCatalog {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	product := func(id, title string, tags []string, availability string, price float64, color string, cats, brands []string, day int) *entities.Product {
		p := &entities.Product{
			ID:           id,
			Title:        title,
			Tags:         tags,
			Availability: availability,
			Price:        price,
			Metadata:     map[string]string{},
			CategoryIDs:  cats,
			BrandIDs:     brands,
			CreatedAt:    base.AddDate(0, 0, day),
			UpdatedAt:    base.AddDate(0, 0, day),
		}
		if color != "" {
			p.Metadata["color"] = color
		}
		return p
	}

	return &fakeCatalog{
		categories: map[string]*entities.Category{
			"c1": {ID: "c1", Name: "Clothing", IsActive: true},
			"c2": {ID: "c2", Name: "Archive", IsActive: false},
			"c3": {ID: "c3", Name: "Empty", IsActive: true},
		},
		brands: map[string]*entities.Brand{
			"b1": {ID: "b1", Name: "Acme"},
			"b2": {ID: "b2", Name: "Globex"},
			"b3": {ID: "b3", Name: "Initech"},
		},
		products: []*entities.Product{
			product("p1", "Red Shirt", []string{"cotton", "summer"}, entities.AvailabilityInStock, 19.99, "red", []string{"c1"}, []string{"b1"}, 1),
			product("p2", "Blue Shirt", []string{"cotton"}, entities.AvailabilityOutOfStock, 25, "blue", []string{"c1"}, []string{"b1"}, 2),
			product("p3", "Green Jacket", []string{"winter"}, entities.AvailabilityInStock, 120, "green", []string{"c1"}, []string{"b2"}, 3),
			product("p4", "Red Jacket", []string{"winter", "summer"}, entities.AvailabilityPreorder, 89.5, "red", []string{"c1"}, []string{"b2"}, 4),
			product("p5", "Socks", []string{"cotton"}, entities.AvailabilityInStock, 5, "", []string{"c1"}, nil, 5),
			product("p6", "Hat", []string{"summer"}, entities.AvailabilityInStock, 15, "", []string{"c2"}, nil, 6),
		},
	}
}

func (f *fakeCatalog) GetCategory(_ context.Context, id string) (*entities.Category, error) {
	c, ok := f.categories[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("category not found")
	}
	return c, nil
}

func (f *fakeCatalog) GetBrand(_ context.Context, id string) (*entities.Brand, error) {
	b, ok := f.brands[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("brand not found")
	}
	return b, nil
}

func (f *fakeCatalog) GetBrandsByIDs(_ context.Context, ids []string) ([]*entities.Brand, error) {
	f.brandBatches++
	var out []*entities.Brand
	for _, id := range ids {
		if b, ok := f.brands[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (f *fakeCatalog) ListBrands(_ context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error) {
	var all []*entities.Brand
	for _, b := range f.brands {
		if filter.Query == "" || strings.Contains(strings.ToLower(b.Name), strings.ToLower(filter.Query)) {
			all = append(all, b)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Name < all[j].Name })
	total := len(all)
	if filter.Offset > len(all) {
		return []*entities.Brand{}, total, nil
	}
	all = all[filter.Offset:]
	if filter.Limit > 0 && filter.Limit < len(all) {
		all = all[:filter.Limit]
	}
	return all, total, nil
}

func (f *fakeCatalog) ProductIDsForBrand(_ context.Context, brandID string) ([]string, error) {
	var ids []string
	for _, p := range f.products {
		if slices.Contains(p.BrandIDs, brandID) {
			ids = append(ids, p.ID)
		}
	}
	return ids, nil
}

func (f *fakeCatalog) QueryProducts(_ context.Context, query repositories.ProductQuery) ([]*entities.Product, int, error) {
	f.queryCalls++
	if f.queryErr != nil {
		return nil, 0, f.queryErr
	}
	matched := f.match(query.Predicate)
	if !query.Order.IsZero() {
		sort.SliceStable(matched, func(i, j int) bool {
			if query.Order.Descending {
				return lessBy(query.Order.Field, matched[j], matched[i])
			}
			return lessBy(query.Order.Field, matched[i], matched[j])
		})
	}
	total := len(matched)
	if query.Offset >= len(matched) {
		return []*entities.Product{}, total, nil
	}
	matched = matched[query.Offset:]
	if query.Limit < len(matched) {
		matched = matched[:query.Limit]
	}
	return matched, total, nil
}

func (f *fakeCatalog) CountProducts(_ context.Context, predicate repositories.ProductPredicate) (int, error) {
	if f.queryErr != nil {
		return 0, f.queryErr
	}
	return len(f.match(predicate)), nil
}

func (f *fakeCatalog) AggregateTerms(_ context.Context, predicate repositories.ProductPredicate, field entities.FacetField, limit int) ([]entities.FacetBucket, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	counts := map[string]int{}
	for _, p := range f.match(predicate) {
		for _, v := range facetValues(p, field) {
			counts[v]++
		}
	}
	buckets := make([]entities.FacetBucket, 0, len(counts))
	for v, c := range counts {
		buckets = append(buckets, entities.FacetBucket{Value: v, Count: c})
	}
	sort.Slice(buckets, func(i, j int) bool {
		if buckets[i].Count != buckets[j].Count {
			return buckets[i].Count > buckets[j].Count
		}
		return buckets[i].Value < buckets[j].Value
	})
	if limit > 0 && len(buckets) > limit {
		buckets = buckets[:limit]
	}
	return buckets, nil
}

func (f *fakeCatalog) AggregatePrice(_ context.Context, predicate repositories.ProductPredicate) (*entities.PriceStats, error) {
	if f.queryErr != nil {
		return nil, f.queryErr
	}
	stats := &entities.PriceStats{}
	for i, p := range f.match(predicate) {
		if i == 0 || p.Price < stats.Min {
			stats.Min = p.Price
		}
		if i == 0 || p.Price > stats.Max {
			stats.Max = p.Price
		}
		stats.Count++
	}
	return stats, nil
}

func (f *fakeCatalog) match(pred repositories.ProductPredicate) []*entities.Product {
	var out []*entities.Product
	for _, p := range f.products {
		if pred.CategoryID != "" && !slices.Contains(p.CategoryIDs, pred.CategoryID) {
			continue
		}
		if pred.ProductIDs != nil && !slices.Contains(pred.ProductIDs, p.ID) {
			continue
		}
		if pred.Search != "" && !strings.Contains(strings.ToLower(p.Title), strings.ToLower(pred.Search)) {
			continue
		}
		if len(pred.Filters.Tags) > 0 && !overlaps(p.Tags, pred.Filters.Tags) {
			continue
		}
		if len(pred.Filters.Availability) > 0 && !slices.Contains(pred.Filters.Availability, p.Availability) {
			continue
		}
		if !pred.Filters.Price.Contains(p.Price) {
			continue
		}
		metaOK := true
		for key, values := range pred.Filters.Metadata {
			if len(values) > 0 && !slices.Contains(values, p.Metadata[key]) {
				metaOK = false
			}
		}
		if metaOK {
			out = append(out, p)
		}
	}
	return out
}

func facetValues(p *entities.Product, field entities.FacetField) []string {
	switch field.Kind {
	case entities.FacetKindBrand:
		return p.BrandIDs
	case entities.FacetKindTags:
		return p.Tags
	case entities.FacetKindAvailability:
		return []string{p.Availability}
	case entities.FacetKindMetadata:
		if v, ok := p.Metadata[field.MetadataKey]; ok {
			return []string{v}
		}
	}
	return nil
}

func lessBy(field string, a, b *entities.Product) bool {
	switch field {
	case entities.SortFieldTitle:
		return a.Title < b.Title
	case entities.SortFieldPrice:
		return a.Price < b.Price
	case entities.SortFieldCreatedAt:
		return a.CreatedAt.Before(b.CreatedAt)
	default:
		return a.UpdatedAt.Before(b.UpdatedAt)
	}
}

func overlaps(a, b []string) bool {
	for _, v := range a {
		if slices.Contains(b, v) {
			return true
		}
	}
	return false
}

var errBackendDown = errors.New("connection refused")

func floatPtr(v float64) *float64 {
	return &v
}
