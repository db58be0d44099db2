package main

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/storefront/catalog/internal/domain/entities"
)

func TestIndexEvent(t *testing.T) {
	full := indexEvent("", 120)
	assert.Equal(t, entities.CatalogEventReindexed, full.EventType)
	assert.Empty(t, full.CategoryID)
	assert.Equal(t, 120, full.ProductCount)

	scoped := indexEvent("c1", 4)
	assert.Equal(t, entities.CatalogEventCategoryUpdated, scoped.EventType)
	assert.Equal(t, "c1", scoped.CategoryID)
	assert.Equal(t, 4, scoped.ProductCount)
}
