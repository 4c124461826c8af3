package model

import (
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// Product represents the product master data
type Product struct {
	ID          string  `json:"id"`
	TenantID    string  `json:"tenant_id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	SKU         string  `json:"sku"`
	Price       float64 `json:"price"`
	CostPrice   float64 `json:"cost_price"`
	Stock       int     `json:"stock"`
	CategoryID  string  `json:"category_id"`
	Brand       string  `json:"brand,omitempty"`
	Supplier    string  `json:"supplier,omitempty"`
	IsActive    bool    `json:"is_active"`

	// TrackBatches controls whether sales deplete stock through the batch
	// allocation engine or by direct decrement.
	TrackBatches bool `json:"track_batches"`

	// Reorder planning inputs consumed by the prediction service.
	MinimumStockLevel int `json:"minimum_stock_level"`
	ReorderFrequency  int `json:"reorder_frequency"`

	CreatedAt time.Time `json:"created_at"`
	SyncMeta
}

func (p *Product) GetID() string             { return p.ID }
func (p *Product) GetEntityType() EntityType { return EntityProduct }

// Validate checks required fields and positive-amount constraints.
func (p *Product) Validate() error {
	if p.ID == "" {
		return apperr.Validation("product id is required")
	}
	if p.Name == "" {
		return apperr.Validation("product name is required")
	}
	if p.SKU == "" {
		return apperr.Validation("product sku is required")
	}
	if p.Price <= 0 {
		return apperr.Validation("product price must be greater than zero")
	}
	if p.Stock < 0 {
		return apperr.Validation("product stock cannot be negative")
	}
	return nil
}

// Category represents a product category
type Category struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	SyncMeta
}

func (c *Category) GetID() string             { return c.ID }
func (c *Category) GetEntityType() EntityType { return EntityCategory }

func (c *Category) Validate() error {
	if c.ID == "" {
		return apperr.Validation("category id is required")
	}
	if c.Name == "" {
		return apperr.Validation("category name is required")
	}
	return nil
}
