package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_TypesenseConfig(t *testing.T) {
	t.Setenv("TYPESENSE_URL", "http://test-typesense:8108")
	t.Setenv("TYPESENSE_API_KEY", "test-key")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "http://test-typesense:8108", cfg.Typesense.URL)
	assert.Equal(t, "test-key", cfg.Typesense.APIKey)
}

func TestLoad_CatalogDefaults(t *testing.T) {
	t.Setenv("CATALOG_QUERY_BACKEND", "")
	t.Setenv("CATALOG_DEFAULT_PAGE_SIZE", "")
	t.Setenv("CATALOG_MAX_PAGE_SIZE", "")
	t.Setenv("CATALOG_METADATA_FACETS", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, QueryBackendPostgres, cfg.Catalog.QueryBackend)
	assert.Equal(t, 24, cfg.Catalog.DefaultPageSize)
	assert.Equal(t, 100, cfg.Catalog.MaxPageSize)
	assert.Equal(t, 1.0, cfg.Catalog.PriceStep)
	assert.Empty(t, cfg.Catalog.MetadataFacets)
}

func TestLoad_MetadataFacets(t *testing.T) {
	t.Setenv("CATALOG_METADATA_FACETS", "material:Material, fit , material:Dup,:NoKey,color:Colour")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []MetadataFacet{
		{Key: "material", Label: "Material"},
		{Key: "fit", Label: "fit"},
		{Key: "color", Label: "Colour"},
	}, cfg.Catalog.MetadataFacets)
	assert.Equal(t, []string{"material", "fit", "color"}, cfg.Catalog.MetadataKeys())
}

func TestLoad_RejectsInvalidCatalogSettings(t *testing.T) {
	t.Run("unknown backend", func(t *testing.T) {
		t.Setenv("CATALOG_QUERY_BACKEND", "elastic")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("max below default", func(t *testing.T) {
		t.Setenv("CATALOG_DEFAULT_PAGE_SIZE", "50")
		t.Setenv("CATALOG_MAX_PAGE_SIZE", "10")
		_, err := Load()
		assert.Error(t, err)
	})

	t.Run("metadata key with operators", func(t *testing.T) {
		t.Setenv("CATALOG_METADATA_FACETS", "color:Colour,x:=`a`")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("ALLOWED_ORIGINS", "http://localhost:3000, https://shop.example.com")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000", "https://shop.example.com"}, cfg.Server.AllowedOrigins)
}

func TestDatabaseDSN(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", Database: "shop", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5433 user=u password=p dbname=shop sslmode=disable", db.DatabaseDSN())
}
