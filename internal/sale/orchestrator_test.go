package sale

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/inventory"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
	syncsvc "github.com/ScepterCode/Storemaster-sub002/internal/sync"
)

const testTenant = "tenant-1"

// scriptedGateway returns defaultErr for every call unless an entity id
// has its own scripted outcome.
type scriptedGateway struct {
	mu         sync.Mutex
	defaultErr error
	errs       map[string]error
}

func (g *scriptedGateway) failWith(entityID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.errs == nil {
		g.errs = make(map[string]error)
	}
	g.errs[entityID] = err
}

func (g *scriptedGateway) outcome(entityID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if err, ok := g.errs[entityID]; ok {
		return err
	}
	return g.defaultErr
}

func (g *scriptedGateway) Insert(ctx context.Context, entityType model.EntityType, payload json.RawMessage) error {
	var body struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &body)
	return g.outcome(body.ID)
}

func (g *scriptedGateway) Update(ctx context.Context, entityType model.EntityType, entityID string, payload json.RawMessage, token time.Time) error {
	return g.outcome(entityID)
}

func (g *scriptedGateway) Delete(ctx context.Context, entityType model.EntityType, entityID string) error {
	return g.outcome(entityID)
}

type saleFixture struct {
	store        *store.MemoryStore
	gw           *scriptedGateway
	queues       *syncsvc.Queues
	engine       *inventory.Engine
	orchestrator *Orchestrator
}

func newSaleFixture(t *testing.T) *saleFixture {
	t.Helper()
	mem := store.NewMemoryStore()
	gw := &scriptedGateway{}
	logger := zap.NewNop()
	queues := syncsvc.NewQueues(mem, logger)
	services := syncsvc.NewServices(mem, queues, gw, 3, logger)
	engine := inventory.NewEngine(mem, logger)
	return &saleFixture{
		store:        mem,
		gw:           gw,
		queues:       queues,
		engine:       engine,
		orchestrator: NewOrchestrator(mem, engine, services, logger),
	}
}

func (f *saleFixture) seedProduct(t *testing.T, product *model.Product) {
	t.Helper()
	product.TenantID = testTenant
	payload, err := json.Marshal(product)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), string(model.EntityProduct), testTenant, product.ID, payload))
}

func (f *saleFixture) seedBatch(t *testing.T, batch *model.StockBatch) {
	t.Helper()
	batch.TenantID = testTenant
	if batch.QuantityCurrent == 0 {
		batch.QuantityCurrent = batch.QuantityReceived
	}
	payload, err := json.Marshal(batch)
	require.NoError(t, err)
	require.NoError(t, f.store.Put(context.Background(), string(model.EntityBatch), testTenant, batch.ID, payload))
}

func (f *saleFixture) storedProduct(t *testing.T, id string) *model.Product {
	t.Helper()
	rec, err := f.store.Get(context.Background(), string(model.EntityProduct), testTenant, id)
	require.NoError(t, err)
	var product model.Product
	require.NoError(t, json.Unmarshal(rec.Payload, &product))
	return &product
}

func (f *saleFixture) storedBatch(t *testing.T, id string) *model.StockBatch {
	t.Helper()
	rec, err := f.store.Get(context.Background(), string(model.EntityBatch), testTenant, id)
	require.NoError(t, err)
	var batch model.StockBatch
	require.NoError(t, json.Unmarshal(rec.Payload, &batch))
	return &batch
}

func (f *saleFixture) transactionCount(t *testing.T) int {
	t.Helper()
	records, err := f.store.GetAll(context.Background(), string(model.EntityTransaction), testTenant)
	require.NoError(t, err)
	return len(records)
}

func cashPayment(amount float64) []model.Payment {
	return []model.Payment{{Method: model.PaymentCash, Amount: amount}}
}

func TestProcessSaleCompletes(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true, TrackBatches: true,
	})
	f.seedBatch(t, &model.StockBatch{
		ID: "b1", ProductID: "p1", BatchNumber: "COF-20240101-AAAA",
		QuantityReceived: 10, UnitCost: 12.00, ReceivedDate: time.Now(),
	})

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0.075))

	result, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(60.00))
	require.NoError(t, err)

	assert.True(t, result.Synced)
	assert.Equal(t, 6.25, result.ChangeDue)
	assert.Empty(t, result.Warnings)

	tx := result.Transaction
	require.NotNil(t, tx)
	assert.Equal(t, 50.00, tx.Subtotal)
	assert.Equal(t, 3.75, tx.Tax)
	assert.Equal(t, 53.75, tx.Total)
	require.Len(t, tx.Items, 1)
	require.Len(t, tx.Items[0].Allocations, 1)
	assert.Equal(t, "b1", tx.Items[0].Allocations[0].BatchID)
	assert.Equal(t, 2, tx.Items[0].Allocations[0].AllocatedQuantity)

	// Inventory depleted and persisted.
	assert.Equal(t, 8, f.storedProduct(t, "p1").Stock)
	assert.Equal(t, 8, f.storedBatch(t, "b1").QuantityCurrent)
	assert.Equal(t, 1, f.transactionCount(t))

	// Cart is ready for the next sale.
	assert.Equal(t, StateBuilding, cart.State())
	assert.Empty(t, cart.Items())
}

func TestProcessSaleRejectsEmptyCart(t *testing.T) {
	f := newSaleFixture(t)
	cart := NewCart(testTenant)

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(10))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestProcessSaleRejectsInsufficientStock(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 1, IsActive: true,
	})

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(100))
	require.Error(t, err)
	assert.Equal(t, apperr.KindInsufficientStock, apperr.KindOf(err))
	assert.Equal(t, StateBuilding, cart.State())
	assert.Len(t, cart.Items(), 1)
}

func TestProcessSaleRejectsShortPayment(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true,
	})

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(40))
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestProcessSaleRejectsNonCashOverpayment(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true,
	})

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	payments := []model.Payment{{Method: model.PaymentCard, Amount: 60.00}}
	_, err := f.orchestrator.ProcessSale(context.Background(), cart, payments)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestProcessSaleConflictAbortsAndRestoresInventory(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true, TrackBatches: true,
	})
	f.seedBatch(t, &model.StockBatch{
		ID: "b1", ProductID: "p1", BatchNumber: "COF-20240101-AAAA",
		QuantityReceived: 10, UnitCost: 12.00, ReceivedDate: time.Now(),
	})

	f.gw.failWith("p1", apperr.Conflict("token mismatch"))

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(100))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// The sale aborted whole: allocations released, nothing recorded, and
	// the cart still holds its lines for a retry after refresh.
	assert.Equal(t, 10, f.storedBatch(t, "b1").QuantityCurrent)
	assert.Equal(t, 10, f.storedProduct(t, "p1").Stock)
	assert.Zero(t, f.transactionCount(t))
	assert.Equal(t, StateBuilding, cart.State())
	assert.Len(t, cart.Items(), 1)
}

func TestProcessSaleConflictRestoresCommittedLines(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true,
	})
	f.seedProduct(t, &model.Product{
		ID: "p2", Name: "Tea Leaves", SKU: "SKU-2", Price: 10.00,
		Stock: 10, IsActive: true,
	})
	f.gw.failWith("p2", apperr.Conflict("token mismatch"))

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))
	require.NoError(t, cart.AddItem("p2", "Tea Leaves", 1, 10.00, 0))

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(100))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// The first line was committed before the second conflicted; the abort
	// must put its stock back, not just skip the transaction record.
	assert.Equal(t, 10, f.storedProduct(t, "p1").Stock)
	assert.Equal(t, 10, f.storedProduct(t, "p2").Stock)
	assert.Zero(t, f.transactionCount(t))
	assert.Equal(t, StateBuilding, cart.State())
	assert.Len(t, cart.Items(), 2)

	// The restore replicated immediately, so nothing is left queued.
	pending, err := f.queues.For(testTenant).PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestProcessSaleConflictResyncsReleasedBatches(t *testing.T) {
	f := newSaleFixture(t)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true, TrackBatches: true,
	})
	f.seedBatch(t, &model.StockBatch{
		ID: "b1", ProductID: "p1", BatchNumber: "COF-20240101-AAAA",
		QuantityReceived: 10, UnitCost: 12.00, ReceivedDate: time.Now(),
	})
	f.seedProduct(t, &model.Product{
		ID: "p2", Name: "Tea Leaves", SKU: "SKU-2", Price: 10.00,
		Stock: 10, IsActive: true,
	})
	f.gw.failWith("p2", apperr.Conflict("token mismatch"))

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))
	require.NoError(t, cart.AddItem("p2", "Tea Leaves", 1, 10.00, 0))

	_, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(100))
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// The batch's depleted quantity was acknowledged remotely before the
	// abort; releasing it locally is not enough, the restored quantity has
	// to be written through sync again.
	batch := f.storedBatch(t, "b1")
	assert.Equal(t, 10, batch.QuantityCurrent)
	assert.True(t, batch.Synced)
	assert.Equal(t, 10, f.storedProduct(t, "p1").Stock)
	assert.Zero(t, f.transactionCount(t))
}

func TestProcessSaleOfflineCompletesWithWarnings(t *testing.T) {
	f := newSaleFixture(t)
	f.gw.defaultErr = apperr.Transient("gateway unreachable", nil)
	f.seedProduct(t, &model.Product{
		ID: "p1", Name: "Coffee Beans", SKU: "SKU-1", Price: 25.00,
		Stock: 10, IsActive: true,
	})

	cart := NewCart(testTenant)
	require.NoError(t, cart.AddItem("p1", "Coffee Beans", 2, 25.00, 0))

	result, err := f.orchestrator.ProcessSale(context.Background(), cart, cashPayment(50.00))
	require.NoError(t, err)

	// Offline never blocks the sale; it just defers replication.
	assert.False(t, result.Synced)
	assert.NotEmpty(t, result.Warnings)
	assert.Equal(t, 1, f.transactionCount(t))
	assert.Equal(t, 8, f.storedProduct(t, "p1").Stock)
	assert.Equal(t, StateBuilding, cart.State())

	pending, err := f.queues.For(testTenant).PendingCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, pending) // product update + transaction create
}
