package model

import "time"

// EntityRecord is the row shape of the local entity store: one JSON payload
// per (entity_type, tenant_id, entity_id). Every domain entity round-trips
// through this table; the store never interprets the payload.
type EntityRecord struct {
	EntityType string    `json:"entity_type" gorm:"primaryKey;type:varchar(50)"`
	TenantID   string    `json:"tenant_id" gorm:"primaryKey;type:varchar(64);index"`
	EntityID   string    `json:"entity_id" gorm:"primaryKey;type:varchar(64)"`
	Payload    []byte    `json:"payload" gorm:"type:jsonb"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// TableName overrides GORM's default pluralization
func (EntityRecord) TableName() string {
	return "entity_records"
}
