package config

import (
	"context"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/joho/godotenv"

	"github.com/storefront/catalog/pkg/secrets"
)

var metadataKeyPattern = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// Query backends for product listing and facet counts
const (
	QueryBackendPostgres  = "postgres"
	QueryBackendTypesense = "typesense"
)

// Config holds all application configuration
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Typesense TypesenseConfig
	OTEL      OTELConfig
	Catalog   CatalogConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// TypesenseConfig holds Typesense configuration
type TypesenseConfig struct {
	URL    string
	APIKey string
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// CatalogConfig holds listing and facet settings
type CatalogConfig struct {
	QueryBackend     string
	DefaultPageSize  int
	MaxPageSize      int
	PriceStep        float64
	MaxFacetValues   int
	MetadataFacets   []MetadataFacet
	LookupCacheTTL   int // seconds
	ResponseCacheTTL int // seconds
	// WarmBrands caps how many brands are primed into the lookup cache at startup. 0 disables warming.
	WarmBrands int
}

// MetadataFacet registers a product metadata key as a filterable facet
type MetadataFacet struct {
	Key   string
	Label string
}

// Load loads configuration from environment variables. A .env file in the
// working directory is read first when present; real env vars win. With
// VAULT_ENABLED=true the Vault secret is exported into the environment
// before any value is read.
func Load() (*Config, error) {
	_ = godotenv.Load()

	if _, err := secrets.ApplyVaultSecrets(context.Background(), secrets.VaultConfigFromEnv()); err != nil {
		return nil, fmt.Errorf("failed to load vault secrets: %w", err)
	}

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", []string{"*"}),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "storefront"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Typesense: TypesenseConfig{
			URL:    getEnv("TYPESENSE_URL", "http://localhost:8108"),
			APIKey: getEnv("TYPESENSE_API_KEY", "xyz"),
		},
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "storefront-catalog"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
		Catalog: CatalogConfig{
			QueryBackend:     strings.ToLower(getEnv("CATALOG_QUERY_BACKEND", QueryBackendPostgres)),
			DefaultPageSize:  getEnvAsInt("CATALOG_DEFAULT_PAGE_SIZE", 24),
			MaxPageSize:      getEnvAsInt("CATALOG_MAX_PAGE_SIZE", 100),
			PriceStep:        getEnvAsFloat("CATALOG_PRICE_STEP", 1),
			MaxFacetValues:   getEnvAsInt("CATALOG_MAX_FACET_VALUES", 50),
			MetadataFacets:   parseMetadataFacets(getEnv("CATALOG_METADATA_FACETS", "")),
			LookupCacheTTL:   getEnvAsInt("CATALOG_LOOKUP_CACHE_TTL", 300),
			ResponseCacheTTL: getEnvAsInt("CATALOG_RESPONSE_CACHE_TTL", 60),
			WarmBrands:       getEnvAsInt("CATALOG_WARM_BRANDS", 500),
		},
	}

	if err := cfg.Catalog.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *CatalogConfig) validate() error {
	switch c.QueryBackend {
	case QueryBackendPostgres, QueryBackendTypesense:
	default:
		return fmt.Errorf("unsupported CATALOG_QUERY_BACKEND %q", c.QueryBackend)
	}
	if c.DefaultPageSize < 1 {
		return fmt.Errorf("CATALOG_DEFAULT_PAGE_SIZE must be positive, got %d", c.DefaultPageSize)
	}
	if c.MaxPageSize < c.DefaultPageSize {
		return fmt.Errorf("CATALOG_MAX_PAGE_SIZE (%d) must be >= CATALOG_DEFAULT_PAGE_SIZE (%d)", c.MaxPageSize, c.DefaultPageSize)
	}
	if c.PriceStep <= 0 {
		return fmt.Errorf("CATALOG_PRICE_STEP must be positive")
	}
	for _, f := range c.MetadataFacets {
		if !metadataKeyPattern.MatchString(f.Key) {
			return fmt.Errorf("CATALOG_METADATA_FACETS key %q may only contain letters, digits and underscores", f.Key)
		}
	}
	return nil
}

// MetadataKeys returns the registered metadata facet keys in configuration order
func (c *CatalogConfig) MetadataKeys() []string {
	keys := make([]string, 0, len(c.MetadataFacets))
	for _, f := range c.MetadataFacets {
		keys = append(keys, f.Key)
	}
	return keys
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// parseMetadataFacets parses "material:Material,fit:Fit" into facet registrations.
// A missing label falls back to the key.
func parseMetadataFacets(value string) []MetadataFacet {
	facets := []MetadataFacet{}
	seen := map[string]bool{}
	for _, part := range strings.Split(value, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		key, label, _ := strings.Cut(part, ":")
		key = strings.TrimSpace(key)
		label = strings.TrimSpace(label)
		if key == "" || seen[key] {
			continue
		}
		if label == "" {
			label = key
		}
		seen[key] = true
		facets = append(facets, MetadataFacet{Key: key, Label: label})
	}
	return facets
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
