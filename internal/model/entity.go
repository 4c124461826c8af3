package model

import "time"

// EntityType identifies a syncable entity kind.
type EntityType string

const (
	EntityProduct     EntityType = "product"
	EntityCategory    EntityType = "category"
	EntityCustomer    EntityType = "customer"
	EntityTransaction EntityType = "transaction"
	EntityInvoice     EntityType = "invoice"
	EntityBatch       EntityType = "batch"

	// EntityMovement is persisted locally for audit but never queued for
	// remote sync; movements travel with the batch they belong to.
	EntityMovement EntityType = "stock_movement"

	// EntitySyncOperation is the store partition holding the mutation queue.
	EntitySyncOperation EntityType = "sync_operation"
)

// Syncable is implemented by every entity the sync engine can persist
// locally and replicate to the remote store.
type Syncable interface {
	GetID() string
	GetEntityType() EntityType
	Validate() error

	// Touch records a local modification: the entity becomes local-only
	// and its concurrency token advances.
	Touch(now time.Time)

	// MarkSynced records server acknowledgment without advancing the token.
	MarkSynced()

	// IsSynced reports whether the server has acknowledged the current state.
	IsSynced() bool

	// Token returns the concurrency token the client last observed.
	Token() time.Time
}

// SyncMeta carries the two-state lifecycle (local-only vs synced) and the
// optimistic concurrency token. Embed it in every syncable entity.
type SyncMeta struct {
	Synced       bool      `json:"synced"`
	LastModified time.Time `json:"last_modified"`
}

// Touch is the single authoritative local-only transition.
func (m *SyncMeta) Touch(now time.Time) {
	m.Synced = false
	m.LastModified = now
}

// MarkSynced is the single authoritative synced transition.
func (m *SyncMeta) MarkSynced() {
	m.Synced = true
}

// IsSynced reports server acknowledgment of the current state.
func (m *SyncMeta) IsSynced() bool {
	return m.Synced
}

// Token returns the client-observed concurrency token.
func (m *SyncMeta) Token() time.Time {
	return m.LastModified
}
