package model

import (
	"encoding/json"
	"time"
)

// SyncOp is the mutation verb carried by a queued operation.
type SyncOp string

const (
	OpCreate SyncOp = "create"
	OpUpdate SyncOp = "update"
	OpDelete SyncOp = "delete"
)

// SyncStatus is the lifecycle state of a queued operation.
type SyncStatus string

const (
	SyncPending SyncStatus = "pending"
	SyncSyncing SyncStatus = "syncing"
	SyncFailed  SyncStatus = "failed"
	SyncDone    SyncStatus = "synced"
)

// DefaultMaxRetries bounds transient retries before an operation is
// retained as failed.
const DefaultMaxRetries = 3

// SyncOperation is one queued mutation awaiting remote acknowledgment.
// Only the sync executor mutates Status, RetryCount and LastError.
type SyncOperation struct {
	ID         string          `json:"id"`
	Seq        int64           `json:"seq"`
	EntityType EntityType      `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	Operation  SyncOp          `json:"operation"`
	Payload    json.RawMessage `json:"payload"`
	OwnerID    string          `json:"owner_id"`
	Timestamp  time.Time       `json:"timestamp"`
	RetryCount int             `json:"retry_count"`
	MaxRetries int             `json:"max_retries"`
	Status     SyncStatus      `json:"status"`
	LastError  string          `json:"last_error,omitempty"`

	// Token is the concurrency token observed when the mutation was made
	// locally; update dispatches submit it for the server comparison.
	Token time.Time `json:"token"`
}
