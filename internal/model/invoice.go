package model

import (
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// InvoiceStatus represents the lifecycle state of an invoice.
type InvoiceStatus string

const (
	InvoiceDraft InvoiceStatus = "draft"
	InvoiceSent  InvoiceStatus = "sent"
	InvoicePaid  InvoiceStatus = "paid"
	InvoiceVoid  InvoiceStatus = "void"
)

// Invoice represents a billing document for a sale or service.
type Invoice struct {
	ID            string        `json:"id"`
	TenantID      string        `json:"tenant_id"`
	InvoiceNumber string        `json:"invoice_number"`
	CustomerID    string        `json:"customer_id,omitempty"`
	TransactionID string        `json:"transaction_id,omitempty"`
	Amount        float64       `json:"amount"`
	Status        InvoiceStatus `json:"status"`
	IssuedAt      time.Time     `json:"issued_at"`
	DueAt         *time.Time    `json:"due_at,omitempty"`
	SyncMeta
}

func (i *Invoice) GetID() string             { return i.ID }
func (i *Invoice) GetEntityType() EntityType { return EntityInvoice }

func (i *Invoice) Validate() error {
	if i.ID == "" {
		return apperr.Validation("invoice id is required")
	}
	if i.InvoiceNumber == "" {
		return apperr.Validation("invoice number is required")
	}
	if i.Amount <= 0 {
		return apperr.Validation("invoice amount must be greater than zero")
	}
	switch i.Status {
	case InvoiceDraft, InvoiceSent, InvoicePaid, InvoiceVoid:
	default:
		return apperr.Newf(apperr.KindValidation, "invalid invoice status %q", i.Status)
	}
	return nil
}
