package sale

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/inventory"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
	"github.com/ScepterCode/Storemaster-sub002/prometheus"
)

// Result is the outcome of a completed sale.
type Result struct {
	Transaction *model.Transaction `json:"transaction"`
	ChangeDue   float64            `json:"change_due"`

	// Synced reports remote acknowledgment of the transaction record; the
	// sale itself is complete either way.
	Synced   bool     `json:"synced"`
	Warnings []string `json:"warnings,omitempty"`
}

// Orchestrator drives a cart through validation, allocation, inventory
// commit and transaction recording.
type Orchestrator struct {
	store    store.Store
	engine   *inventory.Engine
	services *syncsvc.Services
	logger   *zap.Logger
}

// NewOrchestrator creates a sale orchestrator.
func NewOrchestrator(s store.Store, engine *inventory.Engine, services *syncsvc.Services, logger *zap.Logger) *Orchestrator {
	return &Orchestrator{store: s, engine: engine, services: services, logger: logger}
}

// ProcessSale runs the sale to completion. Validation failures and
// inventory conflicts abort with the cart intact; offline sync failures
// do not abort, because local durability of the sale outranks immediate
// remote acknowledgment. On success the cart resets to building.
func (o *Orchestrator) ProcessSale(ctx context.Context, cart *Cart, payments []model.Payment) (*Result, error) {
	cart.mu.Lock()
	defer cart.mu.Unlock()

	if cart.state != StateBuilding {
		return nil, apperr.Newf(apperr.KindValidation, "cart is %s, expected building", cart.state)
	}
	if len(cart.items) == 0 {
		return nil, apperr.Validation("cannot process an empty sale")
	}

	// Validating
	cart.state = StateValidating
	products, changeDue, err := o.validate(ctx, cart, payments)
	if err != nil {
		cart.state = StateAborted
		prometheus.RecordSale("aborted_validation", 0)
		cart.state = StateBuilding
		return nil, err
	}

	// Allocating
	cart.state = StateAllocating
	allocations, err := o.allocate(ctx, cart, products)
	if err != nil {
		cart.state = StateAborted
		o.releaseAll(ctx, cart.TenantID, allocations)
		prometheus.RecordSale("aborted_validation", 0)
		cart.state = StateBuilding
		return nil, err
	}

	// Committing. A failure here may land after some lines were already
	// persisted, so the abort compensates those before handing the cart
	// back for retry.
	cart.state = StateCommitting
	warnings, committed, err := o.commit(ctx, cart, products, allocations)
	if err != nil {
		cart.state = StateAborted
		o.compensate(ctx, cart.TenantID, committed, allocations)
		prometheus.RecordSale("aborted_conflict", 0)
		cart.state = StateBuilding
		return nil, err
	}

	// Transaction record. Its sync failure is a warning, never a
	// rollback: reversing a completed sale is worse than a delayed record.
	tx := o.buildTransaction(cart, payments, changeDue, allocations)
	txSynced := false
	txResult, txErr := o.services.Transactions.Sync(ctx, tx, cart.TenantID, model.OpCreate)
	switch {
	case txErr != nil:
		warnings = append(warnings, fmt.Sprintf("transaction record not saved remotely: %v", txErr))
	case !txResult.Synced:
		warnings = append(warnings, "transaction record pending sync: "+txResult.Error)
	default:
		txSynced = true
	}

	cart.state = StateCompleted
	cart.reset()

	prometheus.RecordSale("completed", tx.Total)
	o.logger.Info("Sale completed",
		zap.String("transaction_id", tx.ID),
		zap.String("tenant_id", tx.TenantID),
		zap.Float64("total", tx.Total),
		zap.Bool("synced", txSynced),
		zap.Int("warnings", len(warnings)))

	return &Result{
		Transaction: tx,
		ChangeDue:   changeDue,
		Synced:      txSynced,
		Warnings:    warnings,
	}, nil
}

// validate confirms product existence, recorded stock and payment cover.
// Nothing is mutated; any shortfall aborts the whole sale here.
func (o *Orchestrator) validate(ctx context.Context, cart *Cart, payments []model.Payment) (map[string]*model.Product, float64, error) {
	products := make(map[string]*model.Product, len(cart.items))
	for _, item := range cart.items {
		product, err := o.loadProduct(ctx, cart.TenantID, item.ProductID)
		if err != nil {
			return nil, 0, err
		}
		if !product.IsActive {
			return nil, 0, apperr.Newf(apperr.KindValidation, "product %s is inactive", product.Name)
		}
		if product.Stock < item.Quantity {
			return nil, 0, apperr.Newf(apperr.KindInsufficientStock,
				"insufficient stock for %s: need %d, have %d", product.Name, item.Quantity, product.Stock)
		}
		products[item.ProductID] = product
	}

	if len(payments) == 0 {
		return nil, 0, apperr.Validation("at least one payment is required")
	}
	var tendered, cash float64
	for _, p := range payments {
		if p.Amount <= 0 {
			return nil, 0, apperr.Validation("payment amount must be greater than zero")
		}
		tendered += p.Amount
		if p.Method == model.PaymentCash {
			cash += p.Amount
		}
	}
	total := cart.totals.Total
	if tendered < total {
		return nil, 0, apperr.Newf(apperr.KindValidation,
			"payments %.2f do not cover total %.2f", tendered, total)
	}
	changeDue := round2(tendered - total)
	if changeDue > cash {
		return nil, 0, apperr.Validation("non-cash payments cannot exceed the amount due")
	}
	return products, changeDue, nil
}

// allocate depletes stock per line: FEFO through the batch engine for
// batch-tracked products, direct decrement otherwise.
func (o *Orchestrator) allocate(ctx context.Context, cart *Cart, products map[string]*model.Product) (map[string]*inventory.AllocationResult, error) {
	saleRef := uuid.New().String()
	allocations := make(map[string]*inventory.AllocationResult)
	for _, item := range cart.items {
		product := products[item.ProductID]
		if !product.TrackBatches {
			continue
		}
		result, err := o.engine.Allocate(ctx, cart.TenantID, item.ProductID, item.Quantity, "sale", saleRef)
		if err != nil {
			return allocations, err
		}
		allocations[item.ProductID] = result
	}
	return allocations, nil
}

// commitLog records which writes a commit attempt persisted before a
// failure, so the abort path can undo exactly those.
type commitLog struct {
	products []committedLine
	batches  []*model.StockBatch
}

type committedLine struct {
	product  *model.Product
	quantity int
}

// commit persists the depleted stock through the entity sync services. A
// conflict aborts the sale and names the conflicting products; offline
// failures queue and proceed. The returned log covers every line and
// batch that was persisted, whether or not the commit finished.
func (o *Orchestrator) commit(ctx context.Context, cart *Cart, products map[string]*model.Product, allocations map[string]*inventory.AllocationResult) ([]string, *commitLog, error) {
	var warnings []string
	var conflicted []string
	committed := &commitLog{}

	for _, item := range cart.items {
		product := products[item.ProductID]
		product.Stock -= item.Quantity

		result, err := o.services.Products.SyncCommit(ctx, product, cart.TenantID, model.OpUpdate)
		if err != nil {
			if apperr.IsKind(err, apperr.KindConflict) {
				conflicted = append(conflicted, product.Name)
				break
			}
			return nil, committed, err
		}
		committed.products = append(committed.products, committedLine{product: product, quantity: item.Quantity})
		if !result.Synced {
			warnings = append(warnings, fmt.Sprintf("stock update for %s pending sync", product.Name))
		}
		prometheus.UpdateProductInventory(product.ID, product.Name, float64(product.Stock))

		allocation, ok := allocations[item.ProductID]
		if !ok {
			continue
		}
		for _, batch := range allocation.Batches {
			batchResult, err := o.services.Batches.SyncCommit(ctx, batch, cart.TenantID, model.OpUpdate)
			if err != nil {
				if apperr.IsKind(err, apperr.KindConflict) {
					conflicted = append(conflicted, product.Name)
				} else {
					return nil, committed, err
				}
				break
			}
			committed.batches = append(committed.batches, batch)
			if !batchResult.Synced {
				warnings = append(warnings, fmt.Sprintf("batch %s update pending sync", batch.BatchNumber))
			}
		}
		if len(conflicted) > 0 {
			break
		}
	}

	if len(conflicted) > 0 {
		return nil, committed, apperr.Newf(apperr.KindConflict,
			"inventory changed for %s; refresh inventory and retry the sale", strings.Join(conflicted, ", "))
	}
	return warnings, committed, nil
}

// compensate undoes the persisted writes of a sale that aborted partway
// through commit. Allocations come back through the engine's release
// path; stock restores for already-committed lines go through the sync
// service so they replicate the same way the decrements did, and batches
// whose depleted quantity already reached the remote store get their
// restored quantity re-synced on top.
func (o *Orchestrator) compensate(ctx context.Context, tenantID string, committed *commitLog, allocations map[string]*inventory.AllocationResult) {
	o.releaseAll(ctx, tenantID, allocations)
	if committed == nil {
		return
	}

	for _, line := range committed.products {
		product := line.product
		product.Stock += line.quantity
		if _, err := o.services.Products.Sync(ctx, product, tenantID, model.OpUpdate); err != nil {
			o.logger.Error("Failed to restore stock for aborted sale",
				zap.String("product_id", product.ID),
				zap.Error(err))
			continue
		}
		prometheus.UpdateProductInventory(product.ID, product.Name, float64(product.Stock))
	}

	for _, batch := range committed.batches {
		restored, err := o.loadBatch(ctx, tenantID, batch.ID)
		if err != nil {
			o.logger.Error("Failed to reload batch for aborted sale",
				zap.String("batch_id", batch.ID),
				zap.Error(err))
			continue
		}
		if _, err := o.services.Batches.Sync(ctx, restored, tenantID, model.OpUpdate); err != nil {
			o.logger.Error("Failed to restore batch for aborted sale",
				zap.String("batch_id", batch.ID),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) buildTransaction(cart *Cart, payments []model.Payment, changeDue float64, allocations map[string]*inventory.AllocationResult) *model.Transaction {
	items := make([]model.TransactionItem, 0, len(cart.items))
	for _, line := range cart.items {
		item := model.TransactionItem{
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Discount:    line.Discount,
			LineTotal:   line.LineTotal,
		}
		if allocation, ok := allocations[line.ProductID]; ok {
			item.Allocations = allocation.Allocations
		}
		items = append(items, item)
	}

	return &model.Transaction{
		ID:         uuid.New().String(),
		TenantID:   cart.TenantID,
		Type:       model.TransactionSale,
		CustomerID: cart.CustomerID,
		Items:      items,
		Subtotal:   cart.totals.Subtotal,
		Tax:        cart.totals.Tax,
		Discount:   cart.totals.Discount,
		Total:      cart.totals.Total,
		Payments:   payments,
		ChangeDue:  changeDue,
		CreatedAt:  time.Now(),
	}
}

func (o *Orchestrator) releaseAll(ctx context.Context, tenantID string, allocations map[string]*inventory.AllocationResult) {
	for _, allocation := range allocations {
		if allocation == nil {
			continue
		}
		if err := o.engine.Release(ctx, tenantID, allocation); err != nil {
			o.logger.Error("Failed to release allocation",
				zap.String("product_id", allocation.ProductID),
				zap.Error(err))
		}
	}
}

func (o *Orchestrator) loadProduct(ctx context.Context, tenantID, productID string) (*model.Product, error) {
	rec, err := o.store.Get(ctx, string(model.EntityProduct), tenantID, productID)
	if err != nil {
		if err == store.ErrNotFound {
			return nil, apperr.Newf(apperr.KindValidation, "product %s not found", productID)
		}
		return nil, err
	}
	var product model.Product
	if err := json.Unmarshal(rec.Payload, &product); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "product record is corrupt", err)
	}
	return &product, nil
}

func (o *Orchestrator) loadBatch(ctx context.Context, tenantID, batchID string) (*model.StockBatch, error) {
	rec, err := o.store.Get(ctx, string(model.EntityBatch), tenantID, batchID)
	if err != nil {
		return nil, err
	}
	var batch model.StockBatch
	if err := json.Unmarshal(rec.Payload, &batch); err != nil {
		return nil, apperr.Wrap(apperr.KindValidation, "batch record is corrupt", err)
	}
	return &batch, nil
}
