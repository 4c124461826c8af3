// Package gateway defines the remote store contract consumed by the sync
// engine, and the HTTP adapter that implements it. All failures returned
// from a Gateway carry an apperr kind; callers never parse message text.
package gateway

import (
	"context"
	"encoding/json"
	"time"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
)

// Gateway is the remote store write surface. Update must submit the
// client-observed concurrency token so the server can reject stale writes
// with a conflict kind.
type Gateway interface {
	Insert(ctx context.Context, entityType model.EntityType, payload json.RawMessage) error
	Update(ctx context.Context, entityType model.EntityType, entityID string, payload json.RawMessage, token time.Time) error
	Delete(ctx context.Context, entityType model.EntityType, entityID string) error
}
