package sync

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
)

// fakeGateway scripts remote outcomes per entity id. The zero value
// accepts everything.
type fakeGateway struct {
	mu    sync.Mutex
	errs  map[string]error
	calls []string
}

func (g *fakeGateway) failWith(entityID string, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.errs == nil {
		g.errs = make(map[string]error)
	}
	g.errs[entityID] = err
}

func (g *fakeGateway) succeed(entityID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.errs, entityID)
}

func (g *fakeGateway) record(verb, entityID string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, verb+" "+entityID)
	return g.errs[entityID]
}

func (g *fakeGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

func (g *fakeGateway) Insert(ctx context.Context, entityType model.EntityType, payload json.RawMessage) error {
	var body struct {
		ID string `json:"id"`
	}
	_ = json.Unmarshal(payload, &body)
	return g.record("insert", body.ID)
}

func (g *fakeGateway) Update(ctx context.Context, entityType model.EntityType, entityID string, payload json.RawMessage, token time.Time) error {
	return g.record("update", entityID)
}

func (g *fakeGateway) Delete(ctx context.Context, entityType model.EntityType, entityID string) error {
	return g.record("delete", entityID)
}

func transientErr() error {
	return apperr.Transient("gateway unreachable", nil)
}

func conflictErr() error {
	return apperr.Conflict("token mismatch")
}

func validationErr() error {
	return apperr.Validation("malformed payload")
}

func testProduct(id string) *model.Product {
	return &model.Product{
		ID:       id,
		TenantID: "tenant-1",
		Name:     "Coffee Beans",
		SKU:      "SKU-" + id,
		Price:    12.50,
		Stock:    40,
		IsActive: true,
	}
}

func newTestService(s store.Store, gw *fakeGateway) (*Service, *Queues) {
	queues := NewQueues(s, zap.NewNop())
	svc := NewService(model.EntityProduct, s, queues, gw, 3, zap.NewNop())
	return svc, queues
}

func newTestExecutor(s store.Store, queues *Queues, gw *fakeGateway) *Executor {
	return NewExecutor(s, queues, gw, zap.NewNop())
}
