package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/adapters/database"
	"github.com/storefront/catalog/internal/adapters/events"
	"github.com/storefront/catalog/internal/adapters/search"
	"github.com/storefront/catalog/internal/application/services"
	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/providers"
	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	"github.com/storefront/catalog/internal/infrastructure/clients/redis"
	"github.com/storefront/catalog/internal/infrastructure/clients/typesense"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	"github.com/storefront/catalog/pkg/config"
)

func main() {
	var reset bool
	var intervalFlag string
	var batchSize int
	var categoryID string
	flag.BoolVar(&reset, "reset", false, "recreate the Typesense products collection before indexing")
	flag.StringVar(&categoryID, "category", "", "reindex only the products of this category")
	flag.StringVar(&intervalFlag, "interval", "", "repeat interval for reindexing (e.g. 6h, 30m)")
	flag.IntVar(&batchSize, "batch", 250, "products read per page")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger(cfg.OTEL.ServiceName+"-indexer", cfg.Env)

	intervalValue := strings.TrimSpace(intervalFlag)
	if intervalValue == "" {
		intervalValue = strings.TrimSpace(os.Getenv("REINDEX_INTERVAL"))
	}

	var interval time.Duration
	if intervalValue != "" {
		interval, err = time.ParseDuration(intervalValue)
		if err != nil {
			log.Fatal().Err(err).Str("interval", intervalValue).Msg("Invalid interval")
		}
		if interval <= 0 {
			log.Fatal().Msg("Interval must be greater than zero")
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	for {
		if err := indexOnce(ctx, cfg, reset, batchSize, strings.TrimSpace(categoryID)); err != nil {
			log.Error().Err(err).Msg("Reindex failed")
		}

		if interval <= 0 {
			return
		}
		reset = false
		log.Info().Dur("interval", interval).Msg("Reindex complete, waiting for next run")

		select {
		case <-ctx.Done():
			log.Info().Msg("Indexer shutting down")
			return
		case <-time.After(interval):
		}
	}
}

func indexOnce(ctx context.Context, cfg *config.Config, reset bool, batchSize int, categoryID string) error {
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		return err
	}
	defer pgClient.Close()

	tsClient, err := typesense.NewClient(ctx, &cfg.Typesense)
	if err != nil {
		return err
	}

	if reset || os.Getenv("RESET_TYPESENSE") == "true" {
		log.Info().Msg("Recreating products collection")
		err = tsClient.ResetSchema(ctx)
	} else {
		err = tsClient.InitSchema(ctx)
	}
	if err != nil {
		return err
	}

	start := time.Now()
	indexer := services.NewProductIndexer(
		database.NewProductQueryAdapter(pgClient),
		search.NewTypesenseAdapter(tsClient),
		batchSize,
	)

	var indexed, failed int
	if categoryID != "" {
		indexed, failed, err = indexer.IndexCategory(ctx, categoryID)
	} else {
		indexed, failed, err = indexer.IndexAll(ctx)
	}
	log.Info().
		Str("category_id", categoryID).
		Int("indexed", indexed).
		Int("failed", failed).
		Dur("duration", time.Since(start)).
		Msg("Indexed products into Typesense")
	if err != nil {
		return err
	}

	if cfg.Redis.Enabled {
		publishIndexEvent(ctx, &cfg.Redis, indexEvent(categoryID, indexed))
	}
	return nil
}

func indexEvent(categoryID string, indexed int) *entities.CatalogEvent {
	eventType := entities.CatalogEventReindexed
	if categoryID != "" {
		eventType = entities.CatalogEventCategoryUpdated
	}
	event := entities.NewCatalogEvent(eventType)
	event.CategoryID = categoryID
	event.ProductCount = indexed
	return event
}

// publishIndexEvent tells running API processes to drop their cached reads.
// Failure only delays freshness until cache TTLs expire.
func publishIndexEvent(ctx context.Context, cfg *config.RedisConfig, event *entities.CatalogEvent) {
	redisClient, err := redis.NewClient(ctx, cfg)
	if err != nil {
		log.Warn().Err(err).Msg("Redis unavailable, skipping reindex notification")
		return
	}
	defer redisClient.Close()

	bus := events.NewRedisEventBus(redisClient)
	defer bus.Close()

	if err := bus.Publish(ctx, providers.EventChannelCatalogUpdates, event); err != nil {
		log.Warn().Err(err).Str("event_type", string(event.EventType)).Msg("Failed to publish reindex notification")
	}
}
