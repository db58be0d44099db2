package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/adapters/cache"
	"github.com/storefront/catalog/internal/adapters/database"
	"github.com/storefront/catalog/internal/adapters/events"
	"github.com/storefront/catalog/internal/adapters/instrumented"
	"github.com/storefront/catalog/internal/adapters/search"
	"github.com/storefront/catalog/internal/api/handlers"
	"github.com/storefront/catalog/internal/api/middleware"
	"github.com/storefront/catalog/internal/api/routes"
	"github.com/storefront/catalog/internal/application/services"
	"github.com/storefront/catalog/internal/domain/repositories"
	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	"github.com/storefront/catalog/internal/infrastructure/clients/redis"
	"github.com/storefront/catalog/internal/infrastructure/clients/typesense"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	"github.com/storefront/catalog/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	observability.InitLogger(cfg.OTEL.ServiceName, cfg.Env)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.OTEL.Enabled && cfg.OTEL.Endpoint != "" {
		shutdown, err := observability.Setup(ctx, cfg.OTEL.ServiceName, cfg.OTEL.ServiceVersion, cfg.OTEL.Endpoint)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to set up OpenTelemetry")
		} else {
			defer func() {
				ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := shutdown(ctx); err != nil {
					log.Error().Err(err).Msg("Error shutting down OpenTelemetry")
				}
			}()
			log.Info().Str("endpoint", cfg.OTEL.Endpoint).Msg("OpenTelemetry initialized")
		}
	}

	metrics, err := observability.InitMetrics()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize metrics")
	}

	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize PostgreSQL client")
	}
	defer pgClient.Close()

	// Category and brand lookups, cached when Redis is available
	var catalogRepo repositories.CatalogRepository = database.NewCatalogAdapter(pgClient)
	var cacheMiddleware *middleware.CacheMiddleware
	if cfg.Redis.Enabled {
		redisClient, err := redis.NewClient(ctx, &cfg.Redis)
		if err != nil {
			log.Warn().Err(err).Msg("Redis unavailable, continuing without cache")
		} else {
			defer redisClient.Close()
			lookupCache := cache.NewRedisAdapter(redisClient, "catalog:")
			catalogRepo = database.NewCachedCatalogAdapter(catalogRepo, lookupCache, cfg.Catalog.LookupCacheTTL)
			cacheMiddleware = middleware.NewCacheMiddleware(lookupCache, cfg.Catalog.ResponseCacheTTL, metrics)

			eventBus := events.NewRedisEventBus(redisClient)
			defer eventBus.Close()
			invalidation := services.NewCacheInvalidationService(lookupCache, eventBus)
			if err := invalidation.Start(); err != nil {
				log.Warn().Err(err).Msg("Failed to start cache invalidation")
			} else {
				defer invalidation.Stop()
			}
			log.Info().Msg("Redis caching enabled")

			if cfg.Catalog.WarmBrands > 0 {
				go func(catalog repositories.CatalogRepository) {
					warmCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
					defer cancel()
					if _, err := services.NewCacheWarmingService(catalog, cfg.Catalog.WarmBrands).WarmCache(warmCtx); err != nil {
						log.Warn().Err(err).Msg("Cache warming failed")
					}
				}(catalogRepo)
			}
		}
	}

	productQuery, err := newProductQuery(ctx, cfg, pgClient)
	if err != nil {
		log.Fatal().Err(err).Str("backend", cfg.Catalog.QueryBackend).Msg("Failed to initialize product query backend")
	}
	productQuery = instrumented.NewProductQueryAdapter(productQuery, cfg.Catalog.QueryBackend, metrics)

	normalizer := services.NewFilterNormalizer(cfg.Catalog.MetadataKeys())
	metadataFacets := make([]services.MetadataFacetOption, 0, len(cfg.Catalog.MetadataFacets))
	for _, f := range cfg.Catalog.MetadataFacets {
		metadataFacets = append(metadataFacets, services.MetadataFacetOption{Key: f.Key, Label: f.Label})
	}

	catalogService := services.NewCatalogService(catalogRepo)
	productService := services.NewCategoryProductService(catalogRepo, productQuery, normalizer, services.ListingOptions{
		DefaultPageSize: cfg.Catalog.DefaultPageSize,
		MaxPageSize:     cfg.Catalog.MaxPageSize,
	})
	facetService := services.NewFacetService(catalogRepo, productQuery, normalizer, services.FacetOptions{
		Metadata:       metadataFacets,
		PriceStep:      cfg.Catalog.PriceStep,
		MaxFacetValues: cfg.Catalog.MaxFacetValues,
	})

	catalogHandler := handlers.NewCatalogHandler(productService, facetService, catalogService, normalizer)
	brandHandler := handlers.NewBrandHandler(catalogService, cfg.Catalog.DefaultPageSize, cfg.Catalog.MaxPageSize)

	router := routes.NewRouter(catalogHandler, brandHandler, catalogRepo, routes.RouterOptions{
		CacheMiddleware: cacheMiddleware,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		Metrics:         metrics,
	})

	serverAddr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         serverAddr,
		Handler:      router.SetupRoutes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", serverAddr).Str("backend", cfg.Catalog.QueryBackend).Msg("Server starting")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Server shutting down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Error during server shutdown")
	}

	log.Info().Msg("Server stopped")
}

// newProductQuery selects the product query backend
func newProductQuery(ctx context.Context, cfg *config.Config, pgClient *postgres.Client) (repositories.ProductQueryRepository, error) {
	switch cfg.Catalog.QueryBackend {
	case config.QueryBackendTypesense:
		tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
		if err != nil {
			return nil, err
		}
		if err := tsClient.InitSchema(ctx); err != nil {
			return nil, err
		}
		return search.NewTypesenseAdapter(tsClient), nil
	default:
		return database.NewProductQueryAdapter(pgClient), nil
	}
}
