package artifact

import (
	"context"
	"sort"
	"strings"
	"sync"
)

type MemoryStore struct {
	mu   sync.RWMutex
	data map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{data: make(map[string][]byte)}
}

func (s *MemoryStore) Put(_ context.Context, analysisID, name string, content []byte) error {
	analysisID, name, err := validate(analysisID, name)
	if err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[objectKey(analysisID, name)] = append([]byte(nil), content...)
	return nil
}

func (s *MemoryStore) Get(_ context.Context, analysisID, name string) ([]byte, error) {
	analysisID, name, err := validate(analysisID, name)
	if err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	raw, ok := s.data[objectKey(analysisID, name)]
	if !ok {
		return nil, ErrNotFound
	}
	return append([]byte(nil), raw...), nil
}

func (s *MemoryStore) List(_ context.Context, analysisID string) ([]string, error) {
	analysisID, _, err := validate(analysisID, "x")
	if err != nil {
		return nil, err
	}
	prefix := analysisID + "/"
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, 2)
	for key := range s.data {
		if strings.HasPrefix(key, prefix) {
			out = append(out, strings.TrimPrefix(key, prefix))
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *MemoryStore) URL(context.Context, string, string) (string, error) {
	return "", nil
}
