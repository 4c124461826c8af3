package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store used by tests and by embedded setups
// that run without a database. It mirrors GormStore semantics, including
// payload isolation: callers never share slices with the store.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]map[string]memRecord // partition key -> entity id -> record
	seq     int64
}

type memRecord struct {
	payload   []byte
	updatedAt time.Time
	seq       int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]map[string]memRecord)}
}

func partitionKey(entityType, tenantID string) string {
	return entityType + "\x00" + tenantID
}

func (s *MemoryStore) GetAll(ctx context.Context, entityType, tenantID string) ([]Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	partition := s.records[partitionKey(entityType, tenantID)]
	records := make([]Record, 0, len(partition))
	for id, rec := range partition {
		records = append(records, Record{
			EntityID:  id,
			Payload:   clonePayload(rec.payload),
			UpdatedAt: rec.updatedAt,
		})
	}
	// Stable insertion order, matching the persistent store's updated_at sort.
	seqs := make(map[string]int64, len(partition))
	for id, rec := range partition {
		seqs[id] = rec.seq
	}
	sort.Slice(records, func(i, j int) bool {
		return seqs[records[i].EntityID] < seqs[records[j].EntityID]
	})
	return records, nil
}

func (s *MemoryStore) Get(ctx context.Context, entityType, tenantID, entityID string) (*Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.records[partitionKey(entityType, tenantID)][entityID]
	if !ok {
		return nil, ErrNotFound
	}
	return &Record{EntityID: entityID, Payload: clonePayload(rec.payload), UpdatedAt: rec.updatedAt}, nil
}

func (s *MemoryStore) Put(ctx context.Context, entityType, tenantID, entityID string, payload []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := partitionKey(entityType, tenantID)
	partition, ok := s.records[key]
	if !ok {
		partition = make(map[string]memRecord)
		s.records[key] = partition
	}
	seq := s.seq
	if existing, ok := partition[entityID]; ok {
		seq = existing.seq // replace keeps original ordering position
	} else {
		s.seq++
	}
	partition[entityID] = memRecord{
		payload:   clonePayload(payload),
		updatedAt: time.Now(),
		seq:       seq,
	}
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, entityType, tenantID, entityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.records[partitionKey(entityType, tenantID)], entityID)
	return nil
}

func clonePayload(b []byte) []byte {
	if b == nil {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
