// Package memstore is the default in-process persistence.Store: a
// mutex-guarded map, used whenever PersistenceDSN is empty (spec.md §6).
package memstore

import (
	"context"
	"sync"

	"github.com/nellia/prospectord/pkg/persistence"
)

// Store is an in-memory persistence.Store. The zero value is not usable;
// construct with New.
type Store struct {
	mu   sync.RWMutex
	blobs map[string][]byte
}

// New returns an empty Store.
func New() *Store {
	return &Store{blobs: make(map[string][]byte)}
}

// Put stores blob under key, replacing any prior value.
func (s *Store) Put(ctx context.Context, key string, blob []byte) error {
	cp := append([]byte(nil), blob...)
	s.mu.Lock()
	s.blobs[key] = cp
	s.mu.Unlock()
	return nil
}

// Get returns the blob stored under key, or persistence.ErrNotFound.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	s.mu.RLock()
	blob, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return nil, persistence.ErrNotFound
	}
	return append([]byte(nil), blob...), nil
}

var _ persistence.Store = (*Store)(nil)
