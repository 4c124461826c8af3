package model

import (
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// TransactionType classifies a transaction record.
type TransactionType string

const (
	TransactionSale   TransactionType = "sale"
	TransactionRefund TransactionType = "refund"
)

// TransactionItem is one sold line within a transaction.
type TransactionItem struct {
	ProductID   string  `json:"product_id"`
	ProductName string  `json:"product_name"`
	Quantity    int     `json:"quantity"`
	UnitPrice   float64 `json:"unit_price"`
	Discount    float64 `json:"discount"`
	LineTotal   float64 `json:"line_total"`

	// Allocations records which batches the line consumed, with the unit
	// cost frozen at allocation time.
	Allocations []StockAllocation `json:"allocations,omitempty"`
}

// PaymentMethod identifies how a payment was tendered.
type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentCard     PaymentMethod = "card"
	PaymentTransfer PaymentMethod = "transfer"
)

// Payment is one tender against a transaction.
type Payment struct {
	Method PaymentMethod `json:"method"`
	Amount float64       `json:"amount"`
}

// Transaction is the durable record of a completed sale.
type Transaction struct {
	ID         string            `json:"id"`
	TenantID   string            `json:"tenant_id"`
	Type       TransactionType   `json:"type"`
	CustomerID string            `json:"customer_id,omitempty"`
	Items      []TransactionItem `json:"items"`
	Subtotal   float64           `json:"subtotal"`
	Tax        float64           `json:"tax"`
	Discount   float64           `json:"discount"`
	Total      float64           `json:"total"`
	Payments   []Payment         `json:"payments"`
	ChangeDue  float64           `json:"change_due"`
	CreatedAt  time.Time         `json:"created_at"`
	SyncMeta
}

func (t *Transaction) GetID() string             { return t.ID }
func (t *Transaction) GetEntityType() EntityType { return EntityTransaction }

func (t *Transaction) Validate() error {
	if t.ID == "" {
		return apperr.Validation("transaction id is required")
	}
	switch t.Type {
	case TransactionSale, TransactionRefund:
	default:
		return apperr.Newf(apperr.KindValidation, "invalid transaction type %q", t.Type)
	}
	if len(t.Items) == 0 {
		return apperr.Validation("transaction must have at least one item")
	}
	if t.Total <= 0 {
		return apperr.Validation("transaction total must be greater than zero")
	}
	return nil
}
