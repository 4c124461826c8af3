package model

import (
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
)

// Customer represents a customer record
type Customer struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Phone     string    `json:"phone,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	SyncMeta
}

func (c *Customer) GetID() string             { return c.ID }
func (c *Customer) GetEntityType() EntityType { return EntityCustomer }

func (c *Customer) Validate() error {
	if c.ID == "" {
		return apperr.Validation("customer id is required")
	}
	if c.Name == "" {
		return apperr.Validation("customer name is required")
	}
	return nil
}
