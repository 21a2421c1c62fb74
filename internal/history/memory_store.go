package history

import (
	"context"
	"sort"
	"sync"

	"repolens/internal/types"
)

type MemoryStore struct {
	mu   sync.RWMutex
	byID map[string]types.HistoryRecord
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{byID: make(map[string]types.HistoryRecord)}
}

func (s *MemoryStore) Save(_ context.Context, rec types.HistoryRecord) error {
	if err := validateRecord(rec); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[rec.ID] = rec
	return nil
}

func (s *MemoryStore) List(_ context.Context, userID string, limit int) ([]types.HistoryRecord, error) {
	limit = normalizeLimit(limit)
	s.mu.RLock()
	out := make([]types.HistoryRecord, 0)
	for _, rec := range s.byID {
		if rec.UserID == userID {
			out = append(out, rec)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID > out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (types.HistoryRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return types.HistoryRecord{}, ErrNotFound
	}
	return rec, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return ErrNotFound
	}
	delete(s.byID, id)
	return nil
}
