package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/gateway"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	"github.com/ScepterCode/Storemaster-sub002/prometheus"
)

// Failure records one operation that did not sync during a drain cycle.
type Failure struct {
	Operation model.SyncOperation `json:"operation"`
	Kind      apperr.Kind         `json:"kind"`
	Error     string              `json:"error"`
}

// Report summarizes one drain cycle. It is returned to the caller and
// never persisted.
type Report struct {
	TotalOperations int       `json:"total_operations"`
	Successful      int       `json:"successful"`
	Failed          int       `json:"failed"`
	Failures        []Failure `json:"failures,omitempty"`
}

// Status is the sync status surface for one owner.
type Status struct {
	PendingOperations int        `json:"pending_operations"`
	LastSyncTime      *time.Time `json:"last_sync_time,omitempty"`
}

// Executor drains mutation queues against the remote gateway. It is the
// only component that mutates SyncOperation status, retry count and error.
type Executor struct {
	store  store.Store
	queues *Queues
	gw     gateway.Gateway
	logger *zap.Logger

	mu       sync.Mutex
	draining map[string]*sync.Mutex // per-owner drain serialization
	lastSync map[string]time.Time
}

// NewExecutor creates a sync executor.
func NewExecutor(s store.Store, queues *Queues, gw gateway.Gateway, logger *zap.Logger) *Executor {
	return &Executor{
		store:    s,
		queues:   queues,
		gw:       gw,
		logger:   logger,
		draining: make(map[string]*sync.Mutex),
		lastSync: make(map[string]time.Time),
	}
}

// SyncAll drains every pending operation for the owner, sequentially and
// in FIFO order. One retry per call: backoff is cycle-based, there is no
// internal timer. Overlapping calls for the same owner serialize here.
func (e *Executor) SyncAll(ctx context.Context, ownerID string) (*Report, error) {
	ownerMu := e.ownerMutex(ownerID)
	ownerMu.Lock()
	defer ownerMu.Unlock()

	started := time.Now()
	queue := e.queues.For(ownerID)
	ops, err := queue.DequeueAll(ctx)
	if err != nil {
		return nil, err
	}

	report := &Report{}

	// Barrier: once an operation on an entity fails (this cycle or a
	// retained failure from an earlier one), later operations on that
	// entity are not attempted ahead of it.
	blocked := make(map[string]bool)
	for _, op := range ops {
		if op.Status == model.SyncFailed {
			blocked[op.EntityID] = true
		}
	}

	for _, op := range ops {
		if op.Status == model.SyncFailed {
			continue // retained, awaiting manual attention
		}
		if blocked[op.EntityID] {
			e.logger.Debug("Operation blocked behind earlier failure",
				zap.String("operation_id", op.ID),
				zap.String("entity_id", op.EntityID))
			continue
		}

		report.TotalOperations++

		if err := queue.Update(ctx, op.ID, func(o *model.SyncOperation) {
			o.Status = model.SyncSyncing
		}); err != nil {
			return nil, err
		}

		dispatchErr := e.dispatch(ctx, op)
		if dispatchErr == nil {
			if err := queue.Remove(ctx, op.ID); err != nil {
				return nil, err
			}
			if err := e.markEntitySynced(ctx, op); err != nil {
				e.logger.Warn("Failed to mark entity synced",
					zap.String("entity_id", op.EntityID),
					zap.Error(err))
			}
			report.Successful++
			prometheus.RecordSyncOperation(string(op.EntityType), "success")
			e.logger.Info("Sync operation applied",
				zap.String("operation_id", op.ID),
				zap.String("entity_type", string(op.EntityType)),
				zap.String("entity_id", op.EntityID))
			continue
		}

		kind := apperr.KindOf(dispatchErr)
		report.Failed++
		report.Failures = append(report.Failures, Failure{
			Operation: *op,
			Kind:      kind,
			Error:     dispatchErr.Error(),
		})
		prometheus.RecordSyncOperation(string(op.EntityType), string(kind))

		switch kind {
		case apperr.KindValidation:
			// A malformed payload will never succeed. Remove immediately
			// and surface through the report.
			if err := queue.Remove(ctx, op.ID); err != nil {
				return nil, err
			}
			e.logger.Error("Sync operation rejected as invalid, removed",
				zap.String("operation_id", op.ID),
				zap.Error(dispatchErr))

		default:
			// Conflict and transient failures consume one retry. Both are
			// retried on a later drain; a conflict additionally signals the
			// caller to refresh local state before resubmitting.
			blocked[op.EntityID] = true
			if err := queue.Update(ctx, op.ID, func(o *model.SyncOperation) {
				o.RetryCount++
				o.LastError = dispatchErr.Error()
				if o.RetryCount >= o.MaxRetries {
					o.Status = model.SyncFailed
				} else {
					o.Status = model.SyncPending
				}
			}); err != nil {
				return nil, err
			}
			e.logger.Warn("Sync operation failed",
				zap.String("operation_id", op.ID),
				zap.String("kind", string(kind)),
				zap.Int("retry_count", op.RetryCount+1),
				zap.Int("max_retries", op.MaxRetries),
				zap.Error(dispatchErr))
		}
	}

	e.mu.Lock()
	e.lastSync[ownerID] = time.Now()
	e.mu.Unlock()

	prometheus.ObserveDrainDuration(time.Since(started))
	e.logger.Info("Drain cycle completed",
		zap.String("owner_id", ownerID),
		zap.Int("total", report.TotalOperations),
		zap.Int("successful", report.Successful),
		zap.Int("failed", report.Failed))
	return report, nil
}

// Status reports the pending depth and last drain time for an owner.
func (e *Executor) Status(ctx context.Context, ownerID string) (*Status, error) {
	pending, err := e.queues.For(ownerID).PendingCount(ctx)
	if err != nil {
		return nil, err
	}
	prometheus.SetQueueDepth(ownerID, pending)

	status := &Status{PendingOperations: pending}
	e.mu.Lock()
	if last, ok := e.lastSync[ownerID]; ok {
		status.LastSyncTime = &last
	}
	e.mu.Unlock()
	return status, nil
}

// Queue returns the owner's queued operations in insertion order.
func (e *Executor) Queue(ctx context.Context, ownerID string) ([]*model.SyncOperation, error) {
	return e.queues.For(ownerID).DequeueAll(ctx)
}

func (e *Executor) ownerMutex(ownerID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	m, ok := e.draining[ownerID]
	if !ok {
		m = &sync.Mutex{}
		e.draining[ownerID] = m
	}
	return m
}

// dispatch routes one operation to the gateway by entity type and verb.
func (e *Executor) dispatch(ctx context.Context, op *model.SyncOperation) error {
	switch op.Operation {
	case model.OpCreate:
		return e.gw.Insert(ctx, op.EntityType, op.Payload)
	case model.OpUpdate:
		return e.gw.Update(ctx, op.EntityType, op.EntityID, op.Payload, op.Token)
	case model.OpDelete:
		return e.gw.Delete(ctx, op.EntityType, op.EntityID)
	default:
		return apperr.Newf(apperr.KindValidation, "unknown operation %q", op.Operation)
	}
}

// markEntitySynced flips the local record to synced after a successful
// dispatch. If the record was modified again after the operation was
// queued, its token has advanced and the record stays local-only.
func (e *Executor) markEntitySynced(ctx context.Context, op *model.SyncOperation) error {
	if op.Operation == model.OpDelete {
		return nil
	}
	rec, err := e.store.Get(ctx, string(op.EntityType), op.OwnerID, op.EntityID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil
		}
		return err
	}

	var entity map[string]interface{}
	if err := json.Unmarshal(rec.Payload, &entity); err != nil {
		return err
	}

	var queued map[string]interface{}
	if err := json.Unmarshal(op.Payload, &queued); err == nil {
		if entity["last_modified"] != queued["last_modified"] {
			return nil
		}
	}

	entity["synced"] = true
	payload, err := json.Marshal(entity)
	if err != nil {
		return err
	}
	return e.store.Put(ctx, string(op.EntityType), op.OwnerID, op.EntityID, payload)
}
