package services

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/providers"
)

// Cache key patterns owned by the API process. They match the keys written
// by the response cache middleware and the cached catalog adapter.
const (
	responseCachePattern = "http:*"
	categoryCachePattern = "category:*"
	brandCachePattern    = "brand:*"
)

// CacheInvalidationService drops cached catalog reads when catalog events arrive
type CacheInvalidationService struct {
	cache    providers.CacheProvider
	eventBus providers.EventBus
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewCacheInvalidationService creates a new cache invalidation service
func NewCacheInvalidationService(cache providers.CacheProvider, eventBus providers.EventBus) *CacheInvalidationService {
	ctx, cancel := context.WithCancel(context.Background())
	return &CacheInvalidationService{
		cache:    cache,
		eventBus: eventBus,
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Start begins listening for catalog events
func (s *CacheInvalidationService) Start() error {
	events, err := s.eventBus.Subscribe(s.ctx, providers.EventChannelCatalogUpdates)
	if err != nil {
		return fmt.Errorf("failed to subscribe to catalog updates: %w", err)
	}

	go s.processEvents(events)
	log.Info().Msg("Cache invalidation service started")
	return nil
}

// Stop stops the cache invalidation service
func (s *CacheInvalidationService) Stop() {
	s.cancel()
	log.Info().Msg("Cache invalidation service stopped")
}

func (s *CacheInvalidationService) processEvents(events <-chan *entities.CatalogEvent) {
	for {
		select {
		case <-s.ctx.Done():
			return
		case event, ok := <-events:
			if !ok {
				return
			}
			if event == nil {
				continue
			}
			s.handleEvent(event)
		}
	}
}

func (s *CacheInvalidationService) handleEvent(event *entities.CatalogEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	logger := log.With().Str("event_id", event.ID).Str("event_type", string(event.EventType)).Logger()

	var err error
	switch event.EventType {
	case entities.CatalogEventReindexed:
		err = s.InvalidateAll(ctx)
	case entities.CatalogEventCategoryUpdated:
		err = s.InvalidateCategory(ctx, event.CategoryID)
	default:
		logger.Debug().Msg("Ignoring catalog event")
		return
	}

	if err != nil {
		logger.Warn().Err(err).Msg("Cache invalidation failed")
		return
	}
	logger.Info().Msg("Invalidated catalog caches")
}

// InvalidateAll drops every cached response and lookup. Used after a full reindex.
func (s *CacheInvalidationService) InvalidateAll(ctx context.Context) error {
	for _, pattern := range []string{responseCachePattern, categoryCachePattern, brandCachePattern} {
		if err := s.cache.DeletePattern(ctx, pattern); err != nil {
			return fmt.Errorf("failed to invalidate pattern %s: %w", pattern, err)
		}
	}
	return nil
}

// InvalidateCategory drops the cached category lookup and all cached
// responses, since facet responses are keyed by a hash of the request.
func (s *CacheInvalidationService) InvalidateCategory(ctx context.Context, categoryID string) error {
	if categoryID != "" {
		if err := s.cache.Delete(ctx, fmt.Sprintf("category:%s", categoryID)); err != nil {
			return fmt.Errorf("failed to invalidate category %s: %w", categoryID, err)
		}
	}
	if err := s.cache.DeletePattern(ctx, responseCachePattern); err != nil {
		return fmt.Errorf("failed to invalidate responses: %w", err)
	}
	return nil
}
