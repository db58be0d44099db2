package services

import (
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storefront/catalog/internal/adapters/search"
	"github.com/storefront/catalog/internal/domain/entities"
	"github.com/storefront/catalog/internal/domain/repositories"
)

func TestFilterNormalizer_FromRaw(t *testing.T) {
	n := NewFilterNormalizer([]string{"color", "size"})

	f := n.FromRaw(map[string]any{
		"tags":         " cotton, summer,,cotton ",
		"availability": []any{"In Stock", "bogus", "in_stock", "pre-order", 3.0},
		"price":        map[string]any{"min": "50", "max": 10.0},
		"metadata": map[string]any{
			"color":    []any{"red", " red ", ""},
			"size":     42.0,
			"material": []any{"wool"},
		},
	})

	assert.Equal(t, []string{"cotton", "summer"}, f.Tags)
	assert.Equal(t, []string{"in_stock", "preorder"}, f.Availability)
	require.NotNil(t, f.Price.Min)
	require.NotNil(t, f.Price.Max)
	assert.Equal(t, 10.0, *f.Price.Min)
	assert.Equal(t, 50.0, *f.Price.Max)
	assert.Equal(t, map[string][]string{"color": {"red"}, "size": {"42"}}, f.Metadata)
}

func TestFilterNormalizer_FromRaw_DropsInvalidInput(t *testing.T) {
	n := NewFilterNormalizer(nil)

	tests := []struct {
		name string
		raw  map[string]any
	}{
		{name: "nil", raw: nil},
		{name: "empty", raw: map[string]any{}},
		{name: "wrong shapes", raw: map[string]any{
			"tags":         map[string]any{"a": 1},
			"availability": true,
			"price":        "cheap",
			"metadata":     []any{"color"},
		}},
		{name: "unparseable price", raw: map[string]any{
			"price": map[string]any{"min": "abc", "max": -5.0},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := n.FromRaw(tt.raw)
			assert.True(t, f.IsEmpty())
			assert.NotNil(t, f.Tags)
			assert.NotNil(t, f.Availability)
			assert.NotNil(t, f.Metadata)
		})
	}
}

func TestFilterNormalizer_DropsMetadataWithoutRegistry(t *testing.T) {
	n := NewFilterNormalizer(nil)

	f := n.FromRaw(map[string]any{
		"metadata": map[string]any{"material": "wool,silk"},
	})

	assert.Empty(t, f.Metadata)
}

func TestFilterNormalizer_DropsMetadataKeysWithOperators(t *testing.T) {
	for _, registry := range [][]string{nil, {"color", "x:=`a` || id"}} {
		n := NewFilterNormalizer(registry)

		f := n.FromRaw(map[string]any{
			"metadata": map[string]any{
				"x:=`a` || id": []any{"p_other"},
				"color":        "red",
			},
		})

		assert.NotContains(t, f.Metadata, "x:=`a` || id")
	}

	f := NewFilterNormalizer([]string{"color"}).FromRaw(map[string]any{
		"metadata": map[string]any{"x:=`a` || id": []any{"p_other"}},
	})
	got, ok := search.BuildFilterBy(repositories.ProductPredicate{CategoryID: "c1", Filters: f})
	require.True(t, ok)
	assert.Equal(t, "category_ids:=`c1`", got)
}

func TestFilterNormalizer_Idempotent(t *testing.T) {
	n := NewFilterNormalizer([]string{"color"})

	first := n.FromRaw(map[string]any{
		"tags":         []any{"b", "a", "b"},
		"availability": "out of stock, in_stock",
		"price":        map[string]any{"min": 100.0, "max": 20.0},
		"metadata":     map[string]any{"color": []any{"red", "blue"}},
	})

	assert.Equal(t, first, n.FromRaw(first.ToRaw()))
	assert.Equal(t, first, n.Normalize(first))
}

func TestFilterNormalizer_FromQuery(t *testing.T) {
	n := NewFilterNormalizer([]string{"color"})

	t.Run("flat parameters", func(t *testing.T) {
		q := url.Values{
			"tags":         {"cotton,summer", "winter"},
			"availability": {"in_stock"},
			"price_min":    {"5"},
			"price_max":    {"50"},
			"meta.color":   {"red,blue"},
			"meta.finish":  {"matte"},
			"page":         {"2"},
		}

		f := n.FromQuery(q)

		assert.Equal(t, []string{"cotton", "summer", "winter"}, f.Tags)
		assert.Equal(t, []string{entities.AvailabilityInStock}, f.Availability)
		assert.Equal(t, 5.0, *f.Price.Min)
		assert.Equal(t, 50.0, *f.Price.Max)
		assert.Equal(t, map[string][]string{"color": {"red", "blue"}}, f.Metadata)
	})

	t.Run("json document", func(t *testing.T) {
		q := url.Values{
			"filters": {`{"tags":["cotton"],"price":{"max":30}}`},
			"tags":    {"ignored"},
		}

		f := n.FromQuery(q)

		assert.Equal(t, []string{"cotton"}, f.Tags)
		assert.Nil(t, f.Price.Min)
		assert.Equal(t, 30.0, *f.Price.Max)
	})

	t.Run("malformed json yields no filters", func(t *testing.T) {
		f := n.FromQuery(url.Values{"filters": {`{"tags":`}})
		assert.True(t, f.IsEmpty())
	})
}
