package sync

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/gateway"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
)

// Result is the uniform outcome of an entity write. Success reports local
// durability; Synced reports server acknowledgment only. A write that
// lands locally but not remotely is a success with Synced=false.
type Result struct {
	Success bool            `json:"success"`
	Synced  bool            `json:"synced"`
	Data    json.RawMessage `json:"data,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Service is the entity sync service: it validates an entity, attempts the
// remote write, and falls back to local write plus enqueue when the remote
// store cannot take it. One instance serves one entity kind.
type Service struct {
	entityType model.EntityType
	store      store.Store
	queues     *Queues
	gw         gateway.Gateway
	logger     *zap.Logger
	maxRetries int
	now        func() time.Time
}

// NewService creates an entity sync service for one entity kind.
func NewService(entityType model.EntityType, s store.Store, queues *Queues, gw gateway.Gateway, maxRetries int, logger *zap.Logger) *Service {
	if maxRetries <= 0 {
		maxRetries = model.DefaultMaxRetries
	}
	return &Service{
		entityType: entityType,
		store:      s,
		queues:     queues,
		gw:         gw,
		logger:     logger,
		maxRetries: maxRetries,
		now:        time.Now,
	}
}

// Sync validates and writes the entity. Validation failures (including a
// missing owner) return an error and touch nothing. Remote failures never
// block local durability: the entity is persisted local-only and exactly
// one operation is enqueued.
func (s *Service) Sync(ctx context.Context, entity model.Syncable, ownerID string, op model.SyncOp) (*Result, error) {
	return s.sync(ctx, entity, ownerID, op, false)
}

// SyncCommit behaves like Sync except that a remote conflict aborts
// instead of queuing: nothing is persisted and the conflict is returned.
// The sale-commit path uses this so stale data is never silently
// committed; everywhere else a conflict is just another retryable failure.
func (s *Service) SyncCommit(ctx context.Context, entity model.Syncable, ownerID string, op model.SyncOp) (*Result, error) {
	return s.sync(ctx, entity, ownerID, op, true)
}

func (s *Service) sync(ctx context.Context, entity model.Syncable, ownerID string, op model.SyncOp, failOnConflict bool) (*Result, error) {
	if ownerID == "" {
		return nil, apperr.Validation("owner id is required")
	}
	if entity.GetEntityType() != s.entityType {
		return nil, apperr.Newf(apperr.KindValidation, "entity type %q does not match service type %q",
			entity.GetEntityType(), s.entityType)
	}
	if err := entity.Validate(); err != nil {
		return nil, err
	}

	if op == model.OpDelete {
		return s.syncDelete(ctx, entity, ownerID)
	}

	// The token the server must compare against is the one observed
	// before this write advances it.
	prevToken := entity.Token()
	entity.Touch(s.now())

	payload, err := json.Marshal(entity)
	if err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "failed to serialize entity", err)
	}

	var remoteErr error
	switch op {
	case model.OpCreate:
		remoteErr = s.gw.Insert(ctx, s.entityType, payload)
	case model.OpUpdate:
		remoteErr = s.gw.Update(ctx, s.entityType, entity.GetID(), payload, prevToken)
	default:
		return nil, apperr.Newf(apperr.KindValidation, "unknown operation %q", op)
	}

	if failOnConflict && apperr.IsKind(remoteErr, apperr.KindConflict) {
		return nil, remoteErr
	}

	if remoteErr == nil {
		entity.MarkSynced()
		payload, err = json.Marshal(entity)
		if err != nil {
			return nil, apperr.Wrap(apperr.KindValidation, "failed to serialize entity", err)
		}
		if err := s.store.Put(ctx, string(s.entityType), ownerID, entity.GetID(), payload); err != nil {
			return nil, err
		}
		return &Result{Success: true, Synced: true, Data: payload}, nil
	}

	// Remote write failed: persist local-only and queue the mutation.
	if err := s.store.Put(ctx, string(s.entityType), ownerID, entity.GetID(), payload); err != nil {
		return nil, err
	}
	if err := s.enqueue(ctx, entity, ownerID, op, payload, prevToken); err != nil {
		return nil, err
	}

	s.logger.Info("Entity persisted locally, sync deferred",
		zap.String("entity_type", string(s.entityType)),
		zap.String("entity_id", entity.GetID()),
		zap.String("kind", string(apperr.KindOf(remoteErr))))
	return &Result{Success: true, Synced: false, Data: payload, Error: remoteErr.Error()}, nil
}

func (s *Service) syncDelete(ctx context.Context, entity model.Syncable, ownerID string) (*Result, error) {
	if err := s.store.Delete(ctx, string(s.entityType), ownerID, entity.GetID()); err != nil {
		return nil, err
	}

	remoteErr := s.gw.Delete(ctx, s.entityType, entity.GetID())
	if remoteErr == nil {
		return &Result{Success: true, Synced: true}, nil
	}

	if err := s.enqueue(ctx, entity, ownerID, model.OpDelete, nil, entity.Token()); err != nil {
		return nil, err
	}
	return &Result{Success: true, Synced: false, Error: remoteErr.Error()}, nil
}

func (s *Service) enqueue(ctx context.Context, entity model.Syncable, ownerID string, op model.SyncOp, payload json.RawMessage, token time.Time) error {
	return s.queues.For(ownerID).Enqueue(ctx, &model.SyncOperation{
		EntityType: s.entityType,
		EntityID:   entity.GetID(),
		Operation:  op,
		Payload:    payload,
		OwnerID:    ownerID,
		Timestamp:  s.now(),
		MaxRetries: s.maxRetries,
		Status:     model.SyncPending,
		Token:      token,
	})
}

// Services bundles one sync service per entity kind, matching the queue
// and gateway they share.
type Services struct {
	Products     *Service
	Categories   *Service
	Customers    *Service
	Transactions *Service
	Invoices     *Service
	Batches      *Service
}

// NewServices builds the full per-entity-kind service set.
func NewServices(s store.Store, queues *Queues, gw gateway.Gateway, maxRetries int, logger *zap.Logger) *Services {
	return &Services{
		Products:     NewService(model.EntityProduct, s, queues, gw, maxRetries, logger),
		Categories:   NewService(model.EntityCategory, s, queues, gw, maxRetries, logger),
		Customers:    NewService(model.EntityCustomer, s, queues, gw, maxRetries, logger),
		Transactions: NewService(model.EntityTransaction, s, queues, gw, maxRetries, logger),
		Invoices:     NewService(model.EntityInvoice, s, queues, gw, maxRetries, logger),
		Batches:      NewService(model.EntityBatch, s, queues, gw, maxRetries, logger),
	}
}
