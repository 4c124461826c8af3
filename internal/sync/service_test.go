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

func TestSyncOnlineWritesThrough(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)

	result, err := svc.Sync(ctx, testProduct("p1"), "tenant-1", model.OpCreate)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.True(t, result.Synced)
	assert.Empty(t, result.Error)

	rec, err := mem.Get(ctx, string(model.EntityProduct), "tenant-1", "p1")
	require.NoError(t, err)
	var stored model.Product
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.True(t, stored.Synced)
	assert.False(t, stored.LastModified.IsZero())

	pending, err := queues.For("tenant-1").PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncOfflineFallsBackToLocalAndQueues(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)

	gw.failWith("p1", transientErr())
	result, err := svc.Sync(ctx, testProduct("p1"), "tenant-1", model.OpCreate)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Synced)
	assert.NotEmpty(t, result.Error)

	rec, err := mem.Get(ctx, string(model.EntityProduct), "tenant-1", "p1")
	require.NoError(t, err)
	var stored model.Product
	require.NoError(t, json.Unmarshal(rec.Payload, &stored))
	assert.False(t, stored.Synced)

	// Exactly one operation queued for the failed write.
	ops, err := queues.For("tenant-1").DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, model.OpCreate, ops[0].Operation)
	assert.Equal(t, "p1", ops[0].EntityID)
	assert.Equal(t, model.SyncPending, ops[0].Status)
}

func TestSyncRejectsMissingOwner(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem, &fakeGateway{})

	_, err := svc.Sync(context.Background(), testProduct("p1"), "", model.OpCreate)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSyncValidationFailureTouchesNothing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	svc, queues := newTestService(mem, &fakeGateway{})

	bad := testProduct("p1")
	bad.Price = 0

	_, err := svc.Sync(ctx, bad, "tenant-1", model.OpCreate)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	_, err = mem.Get(ctx, string(model.EntityProduct), "tenant-1", "p1")
	assert.Equal(t, store.ErrNotFound, err)

	pending, err := queues.For("tenant-1").PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncRejectsMismatchedEntityType(t *testing.T) {
	mem := store.NewMemoryStore()
	svc, _ := newTestService(mem, &fakeGateway{})

	category := &model.Category{ID: "c1", TenantID: "tenant-1", Name: "Drinks"}
	_, err := svc.Sync(context.Background(), category, "tenant-1", model.OpCreate)
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestSyncCommitReturnsConflictWithoutQueueing(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)

	gw.failWith("p1", conflictErr())
	_, err := svc.SyncCommit(ctx, testProduct("p1"), "tenant-1", model.OpUpdate)
	require.Error(t, err)
	assert.Equal(t, apperr.KindConflict, apperr.KindOf(err))

	// Nothing persisted, nothing queued: the caller decides what happens.
	_, err = mem.Get(ctx, string(model.EntityProduct), "tenant-1", "p1")
	assert.Equal(t, store.ErrNotFound, err)

	pending, err := queues.For("tenant-1").PendingCount(ctx)
	require.NoError(t, err)
	assert.Zero(t, pending)
}

func TestSyncCommitQueuesTransientFailures(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)

	gw.failWith("p1", transientErr())
	result, err := svc.SyncCommit(ctx, testProduct("p1"), "tenant-1", model.OpUpdate)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Synced)

	pending, err := queues.For("tenant-1").PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, pending)
}

func TestSyncDeleteOfflineQueuesDelete(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemoryStore()
	gw := &fakeGateway{}
	svc, queues := newTestService(mem, gw)

	product := testProduct("p1")
	result, err := svc.Sync(ctx, product, "tenant-1", model.OpCreate)
	require.NoError(t, err)
	require.True(t, result.Synced)

	gw.failWith("p1", transientErr())
	result, err = svc.Sync(ctx, product, "tenant-1", model.OpDelete)
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.Synced)

	// Local record is gone either way.
	_, err = mem.Get(ctx, string(model.EntityProduct), "tenant-1", "p1")
	assert.Equal(t, store.ErrNotFound, err)

	ops, err := queues.For("tenant-1").DequeueAll(ctx)
	require.NoError(t, err)
	require.Len(t, ops, 1)
	assert.Equal(t, model.OpDelete, ops[0].Operation)
}
