// Package sync implements the offline mutation queue, the executor that
// drains it against the remote gateway, and the entity sync service that
// feeds it. Retries are cycle-based: one attempt per explicit drain, no
// internal timers.
package sync

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
)

// Queue is the ordered, durable log of pending mutations for one owner.
// It persists through the local entity store and is always injected,
// never reached through ambient state.
type Queue struct {
	store  store.Store
	owner  string
	logger *zap.Logger
	mu     sync.Mutex
}

// NewQueue creates a queue for the given owner.
func NewQueue(s store.Store, ownerID string, logger *zap.Logger) *Queue {
	return &Queue{store: s, owner: ownerID, logger: logger}
}

// Owner returns the owner this queue belongs to.
func (q *Queue) Owner() string {
	return q.owner
}

// Enqueue appends an operation, preserving arrival order across all entity
// kinds. Missing identity fields are filled in.
func (q *Queue) Enqueue(ctx context.Context, op *model.SyncOperation) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if op.ID == "" {
		op.ID = uuid.New().String()
	}
	if op.Timestamp.IsZero() {
		op.Timestamp = time.Now()
	}
	if op.MaxRetries <= 0 {
		op.MaxRetries = model.DefaultMaxRetries
	}
	if op.Status == "" {
		op.Status = model.SyncPending
	}
	op.OwnerID = q.owner

	ops, err := q.loadAll(ctx)
	if err != nil {
		return err
	}
	var maxSeq int64
	for _, existing := range ops {
		if existing.Seq > maxSeq {
			maxSeq = existing.Seq
		}
	}
	op.Seq = maxSeq + 1

	if err := q.persist(ctx, op); err != nil {
		return err
	}

	q.logger.Info("Enqueued sync operation",
		zap.String("operation_id", op.ID),
		zap.String("entity_type", string(op.EntityType)),
		zap.String("entity_id", op.EntityID),
		zap.String("operation", string(op.Operation)),
		zap.String("owner_id", op.OwnerID))
	return nil
}

// DequeueAll returns every operation in original insertion order. Retained
// failed operations are included so callers can observe them.
func (q *Queue) DequeueAll(ctx context.Context) ([]*model.SyncOperation, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.loadAll(ctx)
}

// Update mutates one operation through patch and persists the result.
func (q *Queue) Update(ctx context.Context, id string, patch func(*model.SyncOperation)) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	rec, err := q.store.Get(ctx, string(model.EntitySyncOperation), q.owner, id)
	if err != nil {
		return err
	}
	var op model.SyncOperation
	if err := json.Unmarshal(rec.Payload, &op); err != nil {
		// A corrupt operation cannot be patched; drop it rather than fail
		// the whole drain.
		q.logger.Warn("Dropping unparseable sync operation", zap.String("operation_id", id), zap.Error(err))
		return q.store.Delete(ctx, string(model.EntitySyncOperation), q.owner, id)
	}
	patch(&op)
	return q.persist(ctx, &op)
}

// Remove deletes an operation, normally after a successful dispatch.
func (q *Queue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.store.Delete(ctx, string(model.EntitySyncOperation), q.owner, id)
}

// PendingCount returns the number of operations still awaiting sync,
// including retained failed ones.
func (q *Queue) PendingCount(ctx context.Context) (int, error) {
	ops, err := q.DequeueAll(ctx)
	if err != nil {
		return 0, err
	}
	return len(ops), nil
}

// loadAll reads and orders the persisted queue. An unparseable operation
// is skipped: availability over one bad read.
func (q *Queue) loadAll(ctx context.Context) ([]*model.SyncOperation, error) {
	records, err := q.store.GetAll(ctx, string(model.EntitySyncOperation), q.owner)
	if err != nil {
		return nil, err
	}

	ops := make([]*model.SyncOperation, 0, len(records))
	for _, rec := range records {
		var op model.SyncOperation
		if err := json.Unmarshal(rec.Payload, &op); err != nil {
			q.logger.Warn("Skipping unparseable sync operation",
				zap.String("entity_id", rec.EntityID),
				zap.Error(err))
			continue
		}
		ops = append(ops, &op)
	}
	sort.Slice(ops, func(i, j int) bool { return ops[i].Seq < ops[j].Seq })
	return ops, nil
}

func (q *Queue) persist(ctx context.Context, op *model.SyncOperation) error {
	payload, err := json.Marshal(op)
	if err != nil {
		return err
	}
	return q.store.Put(ctx, string(model.EntitySyncOperation), q.owner, op.ID, payload)
}

// Queues hands out one queue per owner so the executor and the entity
// sync services share queue instances instead of global state.
type Queues struct {
	store  store.Store
	logger *zap.Logger
	mu     sync.Mutex
	byID   map[string]*Queue
}

// NewQueues creates the per-owner queue registry.
func NewQueues(s store.Store, logger *zap.Logger) *Queues {
	return &Queues{store: s, logger: logger, byID: make(map[string]*Queue)}
}

// For returns the queue for ownerID, creating it on first use.
func (qs *Queues) For(ownerID string) *Queue {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	q, ok := qs.byID[ownerID]
	if !ok {
		q = NewQueue(qs.store, ownerID, qs.logger)
		qs.byID[ownerID] = q
	}
	return q
}

// Owners lists owners that have used a queue in this process. The cron
// re-drain walks this list.
func (qs *Queues) Owners() []string {
	qs.mu.Lock()
	defer qs.mu.Unlock()
	owners := make([]string, 0, len(qs.byID))
	for owner := range qs.byID {
		owners = append(owners, owner)
	}
	sort.Strings(owners)
	return owners
}
