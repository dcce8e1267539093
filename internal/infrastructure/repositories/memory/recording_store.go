package memory

import (
	"context"
	"sort"
	"sync"

	"voicelink/internal/core/domain"
	"voicelink/internal/core/ports"
)

type MemoryRecordingStore struct {
	records map[string]*domain.RecordingRecord
	mu      sync.RWMutex
}

func NewMemoryRecordingStore() ports.RecordingStore {
	return &MemoryRecordingStore{
		records: make(map[string]*domain.RecordingRecord),
	}
}

func (r *MemoryRecordingStore) Save(ctx context.Context, rec *domain.RecordingRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	cp := *rec
	r.records[rec.ID] = &cp
	return nil
}

func (r *MemoryRecordingStore) GetByID(ctx context.Context, id string) (*domain.RecordingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, exists := r.records[id]
	if !exists {
		return nil, domain.ErrRecordNotFound
	}
	cp := *rec
	return &cp, nil
}

func (r *MemoryRecordingStore) ListBySession(ctx context.Context, sessionID string) ([]*domain.RecordingRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*domain.RecordingRecord
	for _, rec := range r.records {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].StartedAt.Before(out[j].StartedAt)
	})
	return out, nil
}

func (r *MemoryRecordingStore) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; !exists {
		return domain.ErrRecordNotFound
	}
	delete(r.records, id)
	return nil
}
