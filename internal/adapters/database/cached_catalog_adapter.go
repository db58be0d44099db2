package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/providers"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/observability"
)

// CachedCatalogAdapter wraps a CatalogRepository with read-through caching of
// category and brand lookups
type CachedCatalogAdapter struct {
	adapter repositories.CatalogRepository
	cache   providers.CacheProvider
	ttl     int
}

// NewCachedCatalogAdapter creates a new cached catalog adapter. ttlSeconds
// applies to every cached lookup.
func NewCachedCatalogAdapter(adapter repositories.CatalogRepository, cache providers.CacheProvider, ttlSeconds int) repositories.CatalogRepository {
	return &CachedCatalogAdapter{
		adapter: adapter,
		cache:   cache,
		ttl:     ttlSeconds,
	}
}

// Cache key generators
func categoryCacheKey(id string) string {
	return fmt.Sprintf("category:%s", id)
}

func brandCacheKey(id string) string {
	return fmt.Sprintf("brand:%s", id)
}

func brandProductsCacheKey(id string) string {
	return fmt.Sprintf("brand:%s:products", id)
}

// GetCategory retrieves a category by ID with caching
func (a *CachedCatalogAdapter) GetCategory(ctx context.Context, id string) (*entities.Category, error) {
	key := categoryCacheKey(id)

	var category entities.Category
	if a.lookup(ctx, key, &category) {
		return &category, nil
	}

	result, err := a.adapter.GetCategory(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(key, result)
	return result, nil
}

// GetBrand retrieves a brand by ID with caching
func (a *CachedCatalogAdapter) GetBrand(ctx context.Context, id string) (*entities.Brand, error) {
	key := brandCacheKey(id)

	var brand entities.Brand
	if a.lookup(ctx, key, &brand) {
		return &brand, nil
	}

	result, err := a.adapter.GetBrand(ctx, id)
	if err != nil {
		return nil, err
	}

	a.store(key, result)
	return result, nil
}

// GetBrandsByIDs retrieves multiple brands, fetching only cache misses from
// the underlying repository
func (a *CachedCatalogAdapter) GetBrandsByIDs(ctx context.Context, ids []string) ([]*entities.Brand, error) {
	if len(ids) == 0 {
		return []*entities.Brand{}, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = brandCacheKey(id)
	}

	cached, err := a.cache.GetMulti(ctx, keys)
	if err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Msg("Failed to read brands from cache")
		cached = map[string][]byte{}
	}

	brands := make([]*entities.Brand, 0, len(ids))
	missing := make([]string, 0)
	for i, id := range ids {
		if data, ok := cached[keys[i]]; ok {
			var brand entities.Brand
			if err := json.Unmarshal(data, &brand); err == nil {
				brands = append(brands, &brand)
				continue
			}
		}
		missing = append(missing, id)
	}

	if len(missing) == 0 {
		return brands, nil
	}

	fetched, err := a.adapter.GetBrandsByIDs(ctx, missing)
	if err != nil {
		return nil, err
	}
	for _, brand := range fetched {
		a.store(brandCacheKey(brand.ID), brand)
	}

	return append(brands, fetched...), nil
}

// ListBrands is not cached; brand pages are covered by the HTTP response cache
func (a *CachedCatalogAdapter) ListBrands(ctx context.Context, filter repositories.BrandFilter) ([]*entities.Brand, int, error) {
	return a.adapter.ListBrands(ctx, filter)
}

// ProductIDsForBrand returns the product IDs of a brand with caching
func (a *CachedCatalogAdapter) ProductIDsForBrand(ctx context.Context, brandID string) ([]string, error) {
	key := brandProductsCacheKey(brandID)

	var ids []string
	if a.lookup(ctx, key, &ids) {
		return ids, nil
	}

	result, err := a.adapter.ProductIDsForBrand(ctx, brandID)
	if err != nil {
		return nil, err
	}

	a.store(key, result)
	return result, nil
}

func (a *CachedCatalogAdapter) lookup(ctx context.Context, key string, dest interface{}) bool {
	data, err := a.cache.Get(ctx, key)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, dest); err != nil {
		observability.LoggerFromContext(ctx).Warn().Err(err).Str("key", key).Msg("Failed to unmarshal cached value")
		return false
	}
	return true
}

// store updates the cache asynchronously to avoid blocking the response
func (a *CachedCatalogAdapter) store(key string, value interface{}) {
	data, err := json.Marshal(value)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Failed to marshal value for cache")
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := a.cache.Set(ctx, key, data, a.ttl); err != nil {
			log.Warn().Err(err).Str("key", key).Msg("Failed to write cache")
		}
	}()
}
