package snapshot

import (
	"context"
	"fmt"
	"io"
	"sync"
)

// Memory keeps page artifacts in-process and returns pseudo URIs. Intended
// for tests and database-less runs.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory builds an empty in-process store.
func NewMemory() *Memory {
	return &Memory{data: make(map[string][]byte)}
}

// Save implements Store.
func (s *Memory) Save(_ context.Context, key string, _ string, data io.Reader) (string, error) {
	buf, err := io.ReadAll(data)
	if err != nil {
		return "", fmt.Errorf("read snapshot data: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = append([]byte(nil), buf...)
	return "memory://" + key, nil
}

// Get returns a stored artifact for test assertions.
func (s *Memory) Get(key string) ([]byte, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	buf, ok := s.data[key]
	return buf, ok
}

// Len reports how many artifacts are stored.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}
