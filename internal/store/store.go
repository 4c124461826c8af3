// Package store provides the durable, tenant-partitioned local entity
// store. Entities and the mutation queue both persist through it.
package store

import (
	"context"
	"time"
)

// Record is one stored entity payload. The store never interprets Payload.
type Record struct {
	EntityID  string
	Payload   []byte
	UpdatedAt time.Time
}

// Store is the local entity store contract. Implementations must be
// crash-tolerant: a corrupt read degrades to absent, it never errors upward.
type Store interface {
	// GetAll returns every record of the given type for the tenant.
	GetAll(ctx context.Context, entityType, tenantID string) ([]Record, error)

	// Get returns one record, or ErrNotFound.
	Get(ctx context.Context, entityType, tenantID, entityID string) (*Record, error)

	// Put inserts or replaces a record.
	Put(ctx context.Context, entityType, tenantID, entityID string, payload []byte) error

	// Delete removes a record. Deleting an absent record is not an error.
	Delete(ctx context.Context, entityType, tenantID, entityID string) error
}

// ErrNotFound is returned by Get for absent records.
var ErrNotFound = notFoundError{}

type notFoundError struct{}

func (notFoundError) Error() string { return "record not found" }
