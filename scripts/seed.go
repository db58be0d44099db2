package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/doug-martin/goqu/v9"
	_ "github.com/doug-martin/goqu/v9/dialect/postgres"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/storefront/catalog/internal/infrastructure/clients/postgres"
	"github.com/storefront/catalog/internal/infrastructure/observability"
	"github.com/storefront/catalog/pkg/config"
)

// seedNamespace keeps generated ids stable across runs so reseeding is idempotent
var seedNamespace = uuid.MustParse("6f1d3c5e-8a4b-4c1e-9f2a-0d7b5e3a1c90")

const schema = `
CREATE TABLE IF NOT EXISTS categories (
	id text PRIMARY KEY,
	name text NOT NULL,
	handle text NOT NULL UNIQUE,
	parent_id text REFERENCES categories(id),
	is_active boolean NOT NULL DEFAULT true
);
CREATE TABLE IF NOT EXISTS brands (
	id text PRIMARY KEY,
	name text NOT NULL,
	handle text NOT NULL UNIQUE,
	logo_url text,
	created_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS products (
	id text PRIMARY KEY,
	title text NOT NULL,
	handle text UNIQUE,
	description text,
	thumbnail text,
	tags text[] NOT NULL DEFAULT '{}',
	availability text NOT NULL DEFAULT 'in_stock',
	price numeric(12,2) NOT NULL DEFAULT 0,
	currency_code text,
	metadata jsonb,
	status text NOT NULL DEFAULT 'draft',
	created_at timestamptz NOT NULL DEFAULT now(),
	updated_at timestamptz NOT NULL DEFAULT now()
);
CREATE TABLE IF NOT EXISTS product_categories (
	product_id text NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	category_id text NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
	PRIMARY KEY (product_id, category_id)
);
CREATE TABLE IF NOT EXISTS product_brands (
	product_id text NOT NULL REFERENCES products(id) ON DELETE CASCADE,
	brand_id text NOT NULL REFERENCES brands(id) ON DELETE CASCADE,
	PRIMARY KEY (product_id, brand_id)
);
CREATE INDEX IF NOT EXISTS idx_products_tags ON products USING gin (tags);
CREATE INDEX IF NOT EXISTS idx_products_metadata ON products USING gin (metadata);
CREATE INDEX IF NOT EXISTS idx_product_categories_category ON product_categories (category_id);
CREATE INDEX IF NOT EXISTS idx_product_brands_brand ON product_brands (brand_id);
`

type seedProduct struct {
	title        string
	tags         []string
	availability string
	price        float64
	metadata     map[string]string
	category     string
	brand        string
}

func seedID(kind, handle string) string {
	return uuid.NewSHA1(seedNamespace, []byte(kind+":"+handle)).String()
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}
	observability.InitLogger("catalog-seed", cfg.Env)

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to DB")
	}
	defer pgClient.Close()

	db := goqu.New("postgres", pgClient.DB())

	if _, err := pgClient.DB().ExecContext(ctx, schema); err != nil {
		log.Fatal().Err(err).Msg("Failed to create schema")
	}

	if os.Getenv("RESET_DB") == "true" {
		log.Info().Msg("RESET_DB=true detected, truncating tables before seeding")
		if _, err := pgClient.DB().ExecContext(ctx,
			`TRUNCATE TABLE product_brands, product_categories, products, brands, categories CASCADE`); err != nil {
			log.Fatal().Err(err).Msg("Failed to truncate tables")
		}
	}

	categories := []struct{ name, handle string }{
		{"Clothing", "clothing"},
		{"Outerwear", "outerwear"},
		{"Accessories", "accessories"},
	}
	for _, c := range categories {
		insert(ctx, db, "categories", goqu.Record{
			"id":        seedID("category", c.handle),
			"name":      c.name,
			"handle":    c.handle,
			"is_active": true,
		})
	}

	brands := []struct{ name, handle string }{
		{"Acme", "acme"},
		{"Globex", "globex"},
		{"Initech", "initech"},
	}
	for _, b := range brands {
		insert(ctx, db, "brands", goqu.Record{
			"id":         seedID("brand", b.handle),
			"name":       b.name,
			"handle":     b.handle,
			"created_at": time.Now().UTC(),
		})
	}

	products := []seedProduct{
		{"Red Shirt", []string{"cotton", "summer"}, "in_stock", 19.99, map[string]string{"color": "red", "material": "cotton"}, "clothing", "acme"},
		{"Blue Shirt", []string{"cotton"}, "out_of_stock", 25, map[string]string{"color": "blue", "material": "cotton"}, "clothing", "acme"},
		{"Linen Trousers", []string{"linen", "summer"}, "in_stock", 59, map[string]string{"color": "beige", "material": "linen"}, "clothing", "initech"},
		{"Green Jacket", []string{"winter"}, "in_stock", 120, map[string]string{"color": "green", "material": "wool"}, "outerwear", "globex"},
		{"Red Jacket", []string{"winter", "summer"}, "preorder", 89.5, map[string]string{"color": "red", "material": "nylon"}, "outerwear", "globex"},
		{"Rain Coat", []string{"waterproof"}, "in_stock", 75, map[string]string{"color": "yellow", "material": "nylon"}, "outerwear", "acme"},
		{"Wool Socks", []string{"cotton", "winter"}, "in_stock", 5, map[string]string{"color": "grey", "material": "wool"}, "accessories", ""},
		{"Sun Hat", []string{"summer"}, "in_stock", 15, map[string]string{"color": "white", "material": "straw"}, "accessories", "initech"},
	}

	now := time.Now().UTC()
	for i, p := range products {
		handle := slug(p.title)
		productID := seedID("product", handle)
		metadata, err := json.Marshal(p.metadata)
		if err != nil {
			log.Fatal().Err(err).Str("product", p.title).Msg("Failed to encode metadata")
		}

		insert(ctx, db, "products", goqu.Record{
			"id":            productID,
			"title":         p.title,
			"handle":        handle,
			"description":   p.title + " from the demo catalog",
			"tags":          pq.Array(p.tags),
			"availability":  p.availability,
			"price":         p.price,
			"currency_code": "USD",
			"metadata":      string(metadata),
			"status":        "published",
			"created_at":    now.Add(time.Duration(i) * time.Minute),
			"updated_at":    now.Add(time.Duration(i) * time.Minute),
		})
		insert(ctx, db, "product_categories", goqu.Record{
			"product_id":  productID,
			"category_id": seedID("category", p.category),
		})
		if p.brand != "" {
			insert(ctx, db, "product_brands", goqu.Record{
				"product_id": productID,
				"brand_id":   seedID("brand", p.brand),
			})
		}
	}

	log.Info().
		Int("categories", len(categories)).
		Int("brands", len(brands)).
		Int("products", len(products)).
		Msg("Seeding completed")
}

func insert(ctx context.Context, db *goqu.Database, table string, row goqu.Record) {
	query, args, err := db.Insert(table).Rows(row).OnConflict(goqu.DoNothing()).ToSQL()
	if err != nil {
		log.Fatal().Err(err).Str("table", table).Msg("Failed to build insert")
	}
	if _, err := db.ExecContext(ctx, query, args...); err != nil {
		log.Fatal().Err(err).Str("table", table).Msg("Failed to insert row")
	}
}

func slug(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z':
			out = append(out, r+('a'-'A'))
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			out = append(out, r)
		default:
			out = append(out, '-')
		}
	}
	return string(out)
}
