package entities

import (
	"time"

	"github.com/google/uuid"
)

// CatalogEventType represents the type of catalog change
type CatalogEventType string

const (
	// CatalogEventReindexed is published after the search index was rebuilt
	CatalogEventReindexed CatalogEventType = "catalog.reindexed"
	// CatalogEventCategoryUpdated is published when a single category changed
	CatalogEventCategoryUpdated CatalogEventType = "catalog.category_updated"
)

// CatalogEvent announces a change to catalog data that readers may have cached
type CatalogEvent struct {
	ID           string           `json:"id"`
	EventType    CatalogEventType `json:"event_type"`
	CategoryID   string           `json:"category_id,omitempty"`
	ProductCount int              `json:"product_count,omitempty"`
	Timestamp    time.Time        `json:"timestamp"`
}

// NewCatalogEvent creates a catalog event stamped with a fresh id
func NewCatalogEvent(eventType CatalogEventType) *CatalogEvent {
	return &CatalogEvent{
		ID:        uuid.NewString(),
		EventType: eventType,
		Timestamp: time.Now().UTC(),
	}
}
