package model

import (
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// StockBatch is a received lot of a product with its own cost and expiry.
type StockBatch struct {
	ID                string     `json:"id"`
	TenantID          string     `json:"tenant_id"`
	ProductID         string     `json:"product_id"`
	BatchNumber       string     `json:"batch_number"`
	QuantityReceived  int        `json:"quantity_received"`
	QuantityCurrent   int        `json:"quantity_current"`
	UnitCost          float64    `json:"unit_cost"`
	ReceivedDate      time.Time  `json:"received_date"`
	ExpiryDate        *time.Time `json:"expiry_date,omitempty"`
	SupplierName      string     `json:"supplier_name,omitempty"`
	SupplierReference string     `json:"supplier_reference,omitempty"`
	Notes             string     `json:"notes,omitempty"`
	SyncMeta
}

func (b *StockBatch) GetID() string             { return b.ID }
func (b *StockBatch) GetEntityType() EntityType { return EntityBatch }

func (b *StockBatch) Validate() error {
	if b.ID == "" {
		return apperr.Validation("batch id is required")
	}
	if b.ProductID == "" {
		return apperr.Validation("batch product id is required")
	}
	if b.QuantityReceived <= 0 {
		return apperr.Validation("batch quantity received must be greater than zero")
	}
	if b.QuantityCurrent < 0 || b.QuantityCurrent > b.QuantityReceived {
		return apperr.Validation("batch quantity current must be between zero and quantity received")
	}
	if b.UnitCost < 0 {
		return apperr.Validation("batch unit cost cannot be negative")
	}
	return nil
}

// StockAllocation is the ephemeral result of depleting one batch during an
// allocation. UnitCost is copied at allocation time so later price changes
// do not rewrite the cost of goods already sold.
type StockAllocation struct {
	BatchID           string  `json:"batch_id"`
	AllocatedQuantity int     `json:"allocated_quantity"`
	UnitCost          float64 `json:"unit_cost"`
}

// MovementType classifies a stock movement.
type MovementType string

const (
	MovementIn     MovementType = "in"
	MovementOut    MovementType = "out"
	MovementAdjust MovementType = "adjust"
)

// StockMovement is one audit ledger entry. Quantity is negative for
// outbound movements.
type StockMovement struct {
	ID            string       `json:"id"`
	TenantID      string       `json:"tenant_id"`
	ProductID     string       `json:"product_id"`
	BatchID       string       `json:"batch_id,omitempty"`
	Type          MovementType `json:"type"`
	Quantity      int          `json:"quantity"`
	ReferenceType string       `json:"reference_type,omitempty"`
	ReferenceID   string       `json:"reference_id,omitempty"`
	CreatedAt     time.Time    `json:"created_at"`
}
