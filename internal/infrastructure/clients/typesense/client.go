package typesense

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/typesense/typesense-go/v2/typesense"
	"github.com/typesense/typesense-go/v2/typesense/api"
	"github.com/typesense/typesense-go/v2/typesense/api/pointer"

	"github.com/storefront/catalog/pkg/config"
	"github.com/storefront/catalog/pkg/retry"
)

const (
	ProductsCollection = "products"

	// MetadataFieldPrefix prefixes the flattened product metadata fields
	MetadataFieldPrefix = "meta_"
)

// Client represents a Typesense client
type Client struct {
	client *typesense.Client
}

// NewClient creates a new Typesense client with exponential backoff retry
func NewClient(ctx context.Context, cfg *config.TypesenseConfig) (*Client, error) {
	client := typesense.NewClient(
		typesense.WithServer(cfg.URL),
		typesense.WithAPIKey(cfg.APIKey),
		typesense.WithConnectionTimeout(5*time.Second),
	)

	err := retry.Do(ctx, retry.DefaultConfig(), "Typesense", func(ctx context.Context) error {
		healthy, err := client.Health(ctx, 2*time.Second)
		if err != nil {
			return err
		}
		if !healthy {
			return fmt.Errorf("typesense reported unhealthy")
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Typesense after retries: %w", err)
	}

	log.Info().Str("url", cfg.URL).Msg("Connected to Typesense")
	return &Client{client: client}, nil
}

// Client returns the underlying Typesense client
func (c *Client) Client() *typesense.Client {
	return c.client
}

// ProductsSchema describes the products collection. Metadata keys are
// flattened into meta_<key> string fields picked up by a wildcard field.
func ProductsSchema() *api.CollectionSchema {
	return &api.CollectionSchema{
		Name: ProductsCollection,
		Fields: []api.Field{
			{Name: "title", Type: "string", Sort: pointer.True()},
			{Name: "description", Type: "string", Optional: pointer.True()},
			{Name: "handle", Type: "string", Index: pointer.False(), Optional: pointer.True()},
			{Name: "thumbnail", Type: "string", Index: pointer.False(), Optional: pointer.True()},
			{Name: "currency_code", Type: "string", Index: pointer.False(), Optional: pointer.True()},
			{Name: "category_ids", Type: "string[]", Facet: pointer.True()},
			{Name: "brand_ids", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "tags", Type: "string[]", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "availability", Type: "string", Facet: pointer.True()},
			{Name: "price", Type: "float", Facet: pointer.True()},
			{Name: MetadataFieldPrefix + ".*", Type: "string", Facet: pointer.True(), Optional: pointer.True()},
			{Name: "created_at", Type: "int64"},
			{Name: "updated_at", Type: "int64"},
		},
		DefaultSortingField: pointer.String("created_at"),
	}
}

// InitSchema ensures the products collection exists
func (c *Client) InitSchema(ctx context.Context) error {
	collections, err := c.client.Collections().Retrieve(ctx)
	if err != nil {
		return fmt.Errorf("failed to retrieve collections: %w", err)
	}

	for _, col := range collections {
		if col.Name == ProductsCollection {
			log.Debug().Str("collection", ProductsCollection).Msg("Typesense collection already exists")
			return nil
		}
	}

	if _, err := c.client.Collections().Create(ctx, ProductsSchema()); err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	log.Info().Str("collection", ProductsCollection).Msg("Created Typesense collection")
	return nil
}

// ResetSchema drops and recreates the products collection
func (c *Client) ResetSchema(ctx context.Context) error {
	if _, err := c.client.Collection(ProductsCollection).Delete(ctx); err != nil {
		log.Warn().Err(err).Str("collection", ProductsCollection).Msg("Failed to delete collection, it may not exist")
	}
	return c.InitSchema(ctx)
}
