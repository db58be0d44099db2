package entities

import (
	"time"
)

// Product availability values
const (
	AvailabilityInStock    = "in_stock"
	AvailabilityOutOfStock = "out_of_stock"
	AvailabilityPreorder   = "preorder"
)

// AvailabilityLabels maps availability values to their storefront labels
var AvailabilityLabels = map[string]string{
	AvailabilityInStock:    "In Stock",
	AvailabilityOutOfStock: "Out of Stock",
	AvailabilityPreorder:   "Pre-order",
}

// IsKnownAvailability reports whether v is a supported availability value
func IsKnownAvailability(v string) bool {
	_, ok := AvailabilityLabels[v]
	return ok
}

// Product represents a published storefront product
type Product struct {
	ID           string            `json:"id" db:"id"`
	Title        string            `json:"title" db:"title"`
	Handle       string            `json:"handle" db:"handle"`
	Description  string            `json:"description,omitempty" db:"description"`
	Thumbnail    string            `json:"thumbnail,omitempty" db:"thumbnail"`
	Tags         []string          `json:"tags" db:"tags"`
	Availability string            `json:"availability" db:"availability"`
	Price        float64           `json:"price" db:"price"`
	CurrencyCode string            `json:"currency_code" db:"currency_code"`
	Metadata     map[string]string `json:"metadata,omitempty" db:"metadata"`
	CategoryIDs  []string          `json:"category_ids,omitempty"`
	BrandIDs     []string          `json:"brand_ids,omitempty"`
	CreatedAt    time.Time         `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time         `json:"updated_at" db:"updated_at"`
}

// Category represents a product category
type Category struct {
	ID       string `json:"id" db:"id"`
	Name     string `json:"name" db:"name"`
	Handle   string `json:"handle" db:"handle"`
	ParentID string `json:"parent_id,omitempty" db:"parent_id"`
	IsActive bool   `json:"is_active" db:"is_active"`
}

// Brand represents a product brand
type Brand struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	Handle    string    `json:"handle" db:"handle"`
	LogoURL   string    `json:"logo_url,omitempty" db:"logo_url"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}
