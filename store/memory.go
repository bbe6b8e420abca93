package store

import (
	"context"
	"sync"
)

// MemoryStore keeps the blob in process memory. Useful for tests and for
// running the shell without persistence.
type MemoryStore struct {
	mu   sync.Mutex
	blob []byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(context.Context) ([]byte, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.blob == nil {
		return nil, nil
	}
	return append([]byte{}, s.blob...), nil
}

func (s *MemoryStore) Save(_ context.Context, blob []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.blob = append([]byte{}, blob...)
	return nil
}

func (s *MemoryStore) Close() error {
	return nil
}
