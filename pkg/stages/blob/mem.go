package blob

import (
    "context"
    "fmt"
    "sync"
)

// MemStore is an in-memory store used in tests and single-process setups.
type MemStore struct {
    mu sync.RWMutex
    m  map[string][]byte
    // PutCount tracks writes per URI for idempotency assertions.
    puts map[string]int
}

func NewMemStore() *MemStore {
    return &MemStore{m: make(map[string][]byte), puts: make(map[string]int)}
}

func (s *MemStore) Get(_ context.Context, uri string) ([]byte, error) {
    s.mu.RLock()
    defer s.mu.RUnlock()
    b, ok := s.m[uri]
    if !ok {
        return nil, fmt.Errorf("blob get %s: not found", uri)
    }
    out := make([]byte, len(b))
    copy(out, b)
    return out, nil
}

func (s *MemStore) Put(_ context.Context, uri string, data []byte) error {
    s.mu.Lock()
    defer s.mu.Unlock()
    s.m[uri] = append([]byte(nil), data...)
    s.puts[uri]++
    return nil
}

// PutCount returns the number of writes to uri.
func (s *MemStore) PutCount(uri string) int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return s.puts[uri]
}

// Len returns the number of stored objects.
func (s *MemStore) Len() int {
    s.mu.RLock()
    defer s.mu.RUnlock()
    return len(s.m)
}
