package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/domain/repositories"
)

const warmPageSize = 100

// CacheWarmingService primes brand lookups so the first facet requests after
// a deploy or a reindex do not all miss. catalog is expected to be the cached
// repository; reading through it stores every brand it resolves.
type CacheWarmingService struct {
	catalog   repositories.CatalogRepository
	maxBrands int
}

// NewCacheWarmingService creates a warmer that resolves at most maxBrands brands
func NewCacheWarmingService(catalog repositories.CatalogRepository, maxBrands int) *CacheWarmingService {
	if maxBrands <= 0 {
		maxBrands = 1000
	}
	return &CacheWarmingService{catalog: catalog, maxBrands: maxBrands}
}

// WarmCache resolves brand labels and brand product sets and returns the
// number of brands warmed
func (s *CacheWarmingService) WarmCache(ctx context.Context) (int, error) {
	start := time.Now()
	warmed := 0

	for offset := 0; offset < s.maxBrands; offset += warmPageSize {
		limit := min(warmPageSize, s.maxBrands-offset)
		page, total, err := s.catalog.ListBrands(ctx, repositories.BrandFilter{Limit: limit, Offset: offset})
		if err != nil {
			return warmed, fmt.Errorf("failed to list brands: %w", err)
		}
		if len(page) == 0 {
			break
		}

		ids := make([]string, len(page))
		for i, b := range page {
			ids[i] = b.ID
		}
		if _, err := s.catalog.GetBrandsByIDs(ctx, ids); err != nil {
			return warmed, fmt.Errorf("failed to resolve brands: %w", err)
		}
		for _, id := range ids {
			if _, err := s.catalog.ProductIDsForBrand(ctx, id); err != nil {
				log.Warn().Err(err).Str("brand_id", id).Msg("Failed to warm brand products")
			}
		}
		warmed += len(page)

		if offset+len(page) >= total {
			break
		}
	}

	log.Info().Int("brands", warmed).Dur("duration", time.Since(start)).Msg("Cache warming completed")
	return warmed, nil
}
