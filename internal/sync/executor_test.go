package sync

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ScepterCode/Storemaster-sub002/internal/apperr"
	"github.com/ScepterCode/Storemaster-sub002/internal/model"
	"github.com/ScepterCode/Storemaster-sub002/internal/store"
)

const testOwner = "tenant-1"

// enqueueOffline pushes an entity through the service while the gateway
// rejects everything, leaving one pending operation behind.
func enqueueOffline(t *testing.T, svc *Service, gw *fakeGateway, id string) {
	t.Helper()
	gw.failWith(id, transientErr())
	result, err := svc.Sync(context.Background(), testProduct(id), testOwner, model.OpCreate)
	require.NoError(t, err)
	require.False(t, result.Synced)
}

func TestSyncAllAppliesAndRemovesOperations(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")
	gw.succeed("p1")

	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.TotalOperations)
	assert.Equal(t, 1, report.Successful)
	assert.Zero(t, report.Failed)

	pending, err := queues.For(testOwner).PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)

	// The local record flips to synced once the server acknowledges.
	rec, err := mem.Get(ctx, string(model.EntityProduct), testOwner, "p1")
	require.NoError(t, err)
	var stored model.Product
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.True(t, stored.Synced)
}

func TestSyncAllIsIdempotentWhenQueueIsEmpty(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")
	gw.succeed("p1")

	_, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)

	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, report.TotalOperations)
	assert.Zero(t, report.Successful)
	assert.Zero(t, report.Failed)
}

func TestSyncAllRemovesInvalidOperations(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")
	gw.failWith("p1", validationErr())

	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, apperr.KindValidation, report.Failures[0].Kind)

	// Invalid operations are removed, not retried.
	pending, err := queues.For(testOwner).PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncAllRetriesTransientUntilExhausted(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")

	// Each drain consumes one retry; the third marks the operation failed.
	for cycle := 1; cycle <= 3; cycle++ {
		report, err := exec.SyncAll(ctx, testOwner)
		require.NoError(t, err)
		assert.Equal(t, 1, report.TotalOperations, "cycle %d", cycle)
		assert.Equal(t, 1, report.Failed, "cycle %d", cycle)

		ops, err := queues.For(testOwner).DequeueAll(ctx)
		require.NoError(t, err)
		require.Len(t, ops, 1)
		assert.Equal(t, cycle, ops[0].RetryCount)
		if cycle < 3 {
			assert.Equal(t, model.SyncPending, ops[0].Status)
		} else {
			assert.Equal(t, model.SyncFailed, ops[0].Status)
		}
	}

	// A failed operation is retained but no longer attempted.
	callsBefore := gw.callCount()
	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, report.TotalOperations)
	assert.Equal(t, callsBefore, gw.callCount())

	ops, err := queues.For(testOwner).DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, model.SyncFailed, ops[0].Status)
}

func TestSyncAllConflictConsumesRetry(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")
	gw.failWith("p1", conflictErr())

	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, apperr.KindConflict, report.Failures[0].Kind)

	ops, err := queues.For(testOwner).DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Equal(t, model.SyncPending, ops[0].Status)
}

func TestSyncAllBlocksLaterOperationsOnFailedEntity(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	// Two queued mutations of the same entity plus one of another.
	gw.failWith("p1", transientErr())
	gw.failWith("p2", transientErr())
	_, err := svc.Sync(ctx, testProduct("p1"), testOwner, model.OpCreate)
	require.NoError(t, err)
	_, err = svc.Sync(ctx, testProduct("p1"), testOwner, model.OpUpdate)
	require.NoError(t, err)
	_, err = svc.Sync(ctx, testProduct("p2"), testOwner, model.OpCreate)
	require.NoError(t, err)
	gw.succeed("p2")

	report, err := exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)

	// p1 create fails and blocks the p1 update this cycle; p2 proceeds.
	assert.Equal(t, 2, report.TotalOperations)
	assert.Equal(t, 1, report.Successful)
	assert.Equal(t, 1, report.Failed)

	ops, err := queues.For(testOwner).DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 2)
	assert.Equal(t, model.OpCreate, ops[0].Operation)
	assert.Equal(t, 1, ops[0].RetryCount)
	assert.Equal(t, model.OpUpdate, ops[1].Operation)
	assert.Zero(t, ops[1].RetryCount)
}

func TestMarkEntitySyncedSkipsNewerLocalWrite(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	enqueueOffline(t, svc, gw, "p1")

	// A later local write advances the token while the op is still queued:
	// the drained create must not mark the newer state as synced.
	rec, err := mem.Get(ctx, string(model.EntityProduct), testOwner, "p1")
	require.NoError(t, err)
	var current map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Payload, &current))
	current["last_modified"] = "2030-01-01T00:00:00Z"
	newer, err := json.Marshal(current)
	require.NoError(t, err)
	require.NoError(t, mem.Put(ctx, string(model.EntityProduct), testOwner, "p1", newer))

	gw.succeed("p1")
	_, err = exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)

	rec, err = mem.Get(ctx, string(model.EntityProduct), testOwner, "p1")
	require.NoError(t, err)
	var stored model.Product
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.False(t, stored.Synced)
}

func TestExecutorStatus(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)
	exec := newTestExecutor(mem, queues, gw)

	status, err := exec.Status(ctx, testOwner)
	require.NoError(t, err)
	assert.Zero(t, status.PendingOperations)
	assert.Nil(t, status.LastSyncTime)

	enqueueOffline(t, svc, gw, "p1")

	status, err = exec.Status(ctx, testOwner)
	require.NoError(t, err)
	assert.Equal(t, 1, status.PendingOperations)

	_, err = exec.SyncAll(ctx, testOwner)
	require.NoError(t, err)

	status, err = exec.Status(ctx, testOwner)
	require.NoError(t, err)
	assert.NotNil(t, status.LastSyncTime)
}
