// Package cache provides the persistent key-value store behind the HTTP
// fetch layer. Responses are keyed by request identity and survive process
// restarts, so repeated graph builds for the same paper avoid the network.
package cache

import "sync"

// Store is a key-value cache. Implementations must be safe for concurrent
// use.
type Store interface {
	// Get returns the cached value for key and whether it was present.
	Get(key string) ([]byte, bool, error)

	// Put stores value under key, replacing any existing entry.
	Put(key string, value []byte) error
}

// Memory is an in-process Store with no persistence. Useful for tests and
// for running without a cache file.
type Memory struct {
	mu sync.RWMutex
	m  map[string][]byte
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{m: make(map[string][]byte)}
}

// Get implements Store.
func (s *Memory) Get(key string) ([]byte, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.m[key]
	if !ok {
		return nil, false, nil
	}
	out := make([]byte, len(v))
	copy(out, v)
	return out, true, nil
}

// Put implements Store.
func (s *Memory) Put(key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	v := make([]byte, len(value))
	copy(v, value)
	s.m[key] = v
	return nil
}

// Len returns the number of cached entries.
func (s *Memory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.m)
}
