// Package inventory implements batch-tracked stock: FEFO allocation,
// batch receiving and the stock movement ledger.
package inventory

import (
	"context"
	"encoding/json"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	"github.com/ScepterCode/Storemaster-sub002/prometheus"
)

// AllocationResult is the outcome of one FEFO allocation: the batches that
// were depleted, in consumption order, and the ledger entries written.
type AllocationResult struct {
	ProductID   string
	Allocations []model.StockAllocation
	Batches     []*model.StockBatch
	MovementIDs []string
}

// TotalCost returns the cost of the allocated stock at frozen unit costs.
func (r *AllocationResult) TotalCost() float64 {
	var total float64
	for _, a := range r.Allocations {
		total += float64(a.AllocatedQuantity) * a.UnitCost
	}
	return total
}

// Engine selects and depletes stock batches. Allocations for the same
// product serialize on a per-product lock so two concurrent sales cannot
// both read the same available quantity and overdraw it.
type Engine struct {
	store  store.Store
	logger *zap.Logger

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// NewEngine creates a batch allocation engine.
func NewEngine(s store.Store, logger *zap.Logger) *Engine {
	return &Engine{store: s, logger: logger, locks: make(map[string]*sync.Mutex)}
}

// Allocate selects batches first-expiry-first-out and depletes them until
// quantityNeeded is satisfied. Batches without an expiry are consumed
// last. If total availability falls short the allocation fails whole: no
// batch is mutated.
func (e *Engine) Allocate(ctx context.Context, tenantID, productID string, quantityNeeded int, referenceType, referenceID string) (*AllocationResult, error) {
	if quantityNeeded <= 0 {
		return nil, apperr.Validation("allocation quantity must be greater than zero")
	}

	productMu := e.productMutex(tenantID, productID)
	productMu.Lock()
	defer productMu.Unlock()

	batches, err := e.loadOpenBatches(ctx, tenantID, productID)
	if err != nil {
		return nil, err
	}
	sortFEFO(batches)

	available := 0
	for _, b := range batches {
		available += b.QuantityCurrent
	}
	if available < quantityNeeded {
		prometheus.RecordAllocation("insufficient_stock")
		return nil, apperr.Newf(apperr.KindInsufficientStock,
			"insufficient stock for product %s: need %d, available %d", productID, quantityNeeded, available)
	}

	result := &AllocationResult{ProductID: productID}
	now := time.Now()
	remaining := quantityNeeded
	for _, batch := range batches {
		if remaining == 0 {
			break
		}
		take := batch.QuantityCurrent
		if take > remaining {
			take = remaining
		}
		batch.QuantityCurrent -= take
		batch.Touch(now)
		remaining -= take

		result.Allocations = append(result.Allocations, model.StockAllocation{
			BatchID:           batch.ID,
			AllocatedQuantity: take,
			UnitCost:          batch.UnitCost,
		})
		result.Batches = append(result.Batches, batch)
	}

	for _, batch := range result.Batches {
		if err := e.putBatch(ctx, tenantID, batch); err != nil {
			return nil, err
		}
	}
	for _, alloc := range result.Allocations {
		movementID, err := e.recordMovement(ctx, tenantID, &model.StockMovement{
			ProductID:     productID,
			BatchID:       alloc.BatchID,
			Type:          model.MovementOut,
			Quantity:      -alloc.AllocatedQuantity,
			ReferenceType: referenceType,
			ReferenceID:   referenceID,
			CreatedAt:     now,
		})
		if err != nil {
			return nil, err
		}
		result.MovementIDs = append(result.MovementIDs, movementID)
	}

	prometheus.RecordAllocation("allocated")
	e.logger.Info("Stock allocated",
		zap.String("product_id", productID),
		zap.Int("quantity", quantityNeeded),
		zap.Int("batches", len(result.Batches)),
		zap.String("reference_type", referenceType),
		zap.String("reference_id", referenceID))
	return result, nil
}

// Release restores the quantities consumed by a prior allocation and
// removes its ledger entries. Used when a sale aborts after allocating.
func (e *Engine) Release(ctx context.Context, tenantID string, result *AllocationResult) error {
	productMu := e.productMutex(tenantID, result.ProductID)
	productMu.Lock()
	defer productMu.Unlock()

	now := time.Now()
	for i, alloc := range result.Allocations {
		batch, err := e.getBatch(ctx, tenantID, alloc.BatchID)
		if err != nil {
			return err
		}
		batch.QuantityCurrent += alloc.AllocatedQuantity
		batch.Touch(now)
		if err := e.putBatch(ctx, tenantID, batch); err != nil {
			return err
		}
		if i < len(result.MovementIDs) {
			if err := e.store.Delete(ctx, string(model.EntityMovement), tenantID, result.MovementIDs[i]); err != nil {
				return err
			}
		}
	}

	prometheus.RecordAllocation("released")
	e.logger.Info("Allocation released",
		zap.String("product_id", result.ProductID),
		zap.Int("batches", len(result.Allocations)))
	return nil
}

// Receive creates a batch for a received lot, derives its batch number and
// writes the inbound ledger entry.
func (e *Engine) Receive(ctx context.Context, tenantID string, product *model.Product, batch *model.StockBatch) error {
	if batch.ID == "" {
		batch.ID = uuid.New().String()
	}
	batch.TenantID = tenantID
	batch.ProductID = product.ID
	if batch.QuantityCurrent == 0 {
		batch.QuantityCurrent = batch.QuantityReceived
	}
	if batch.ReceivedDate.IsZero() {
		batch.ReceivedDate = time.Now()
	}
	if batch.BatchNumber == "" {
		batch.BatchNumber = GenerateBatchNumber(product.Name, batch.ReceivedDate)
	}
	if err := batch.Validate(); err != nil {
		return err
	}

	productMu := e.productMutex(tenantID, product.ID)
	productMu.Lock()
	defer productMu.Unlock()

	batch.Touch(time.Now())
	if err := e.putBatch(ctx, tenantID, batch); err != nil {
		return err
	}
	if _, err := e.recordMovement(ctx, tenantID, &model.StockMovement{
		ProductID:     product.ID,
		BatchID:       batch.ID,
		Type:          model.MovementIn,
		Quantity:      batch.QuantityReceived,
		ReferenceType: "batch_receipt",
		ReferenceID:   batch.ID,
		CreatedAt:     time.Now(),
	}); err != nil {
		return err
	}

	e.logger.Info("Batch received",
		zap.String("product_id", product.ID),
		zap.String("batch_number", batch.BatchNumber),
		zap.Int("quantity", batch.QuantityReceived))
	return nil
}

// BatchesFor returns all batches of a product, open or exhausted.
func (e *Engine) BatchesFor(ctx context.Context, tenantID, productID string) ([]*model.StockBatch, error) {
	return e.loadBatches(ctx, tenantID, productID, false)
}

// AvailableQuantity sums quantityCurrent across a product's open batches.
func (e *Engine) AvailableQuantity(ctx context.Context, tenantID, productID string) (int, error) {
	batches, err := e.loadOpenBatches(ctx, tenantID, productID)
	if err != nil {
		return 0, err
	}
	total := 0
	for _, b := range batches {
		total += b.QuantityCurrent
	}
	return total, nil
}

func (e *Engine) loadOpenBatches(ctx context.Context, tenantID, productID string) ([]*model.StockBatch, error) {
	return e.loadBatches(ctx, tenantID, productID, true)
}

func (e *Engine) loadBatches(ctx context.Context, tenantID, productID string, openOnly bool) ([]*model.StockBatch, error) {
	records, err := e.store.GetAll(ctx, string(model.EntityBatch), tenantID)
	if err != nil {
		return nil, err
	}
	batches := make([]*model.StockBatch, 0, len(records))
	for _, rec := range records {
		var batch model.StockBatch
		if err := json.Unmarshal(rec.Payload, &batch); err != nil {
			e.logger.Warn("Skipping unparseable batch record", zap.String("entity_id", rec.EntityID), zap.Error(err))
			continue
		}
		if batch.ProductID != productID {
			continue
		}
		if openOnly && batch.QuantityCurrent <= 0 {
			continue
		}
		batches = append(batches, &batch)
	}
	return batches, nil
}

func (e *Engine) getBatch(ctx context.Context, tenantID, batchID string) (*model.StockBatch, error) {
	rec, err := e.store.Get(ctx, string(model.EntityBatch), tenantID, batchID)
	if err != nil {
		return nil, err
	}
	var batch model.StockBatch
	if err := json.Unmarshal(rec.Payload, &batch); err != nil {
		return nil, err
	}
	return &batch, nil
}

func (e *Engine) putBatch(ctx context.Context, tenantID string, batch *model.StockBatch) error {
	payload, err := json.Marshal(batch)
	if err != nil {
		return err
	}
	return e.store.Put(ctx, string(model.EntityBatch), tenantID, batch.ID, payload)
}

func (e *Engine) recordMovement(ctx context.Context, tenantID string, movement *model.StockMovement) (string, error) {
	if movement.ID == "" {
		movement.ID = uuid.New().String()
	}
	movement.TenantID = tenantID
	payload, err := json.Marshal(movement)
	if err != nil {
		return "", err
	}
	if err := e.store.Put(ctx, string(model.EntityMovement), tenantID, movement.ID, payload); err != nil {
		return "", err
	}
	return movement.ID, nil
}

func (e *Engine) productMutex(tenantID, productID string) *sync.Mutex {
	e.mu.Lock()
	defer e.mu.Unlock()
	key := tenantID + "\x00" + productID
	m, ok := e.locks[key]
	if !ok {
		m = &sync.Mutex{}
		e.locks[key] = m
	}
	return m
}

// sortFEFO orders batches by soonest expiry first. Never-expiring stock
// sorts last; ties break on received date, then batch id, so allocation
// order is deterministic.
func sortFEFO(batches []*model.StockBatch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		switch {
		case a.ExpiryDate == nil && b.ExpiryDate == nil:
			// fall through to tie-break
		case a.ExpiryDate == nil:
			return false
		case b.ExpiryDate == nil:
			return true
		case !a.ExpiryDate.Equal(*b.ExpiryDate):
			return a.ExpiryDate.Before(*b.ExpiryDate)
		}
		if !a.ReceivedDate.Equal(b.ReceivedDate) {
			return a.ReceivedDate.Before(b.ReceivedDate)
		}
		return a.ID < b.ID
	})
}
