package store

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/raphaelgruber/sidekick/internal/models"
)

// MemoryStore keeps collections in memory.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[models.Kind][]json.RawMessage
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		collections: make(map[models.Kind][]json.RawMessage),
	}
}

// Load implements Store.
func (s *MemoryStore) Load(ctx context.Context, kind models.Kind) ([]json.RawMessage, error) {
	if err := ctx.Err(); err != nil {
		return nil, &IOError{Op: "load", Kind: kind, Err: err}
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	return cloneRecords(s.collections[kind]), nil
}

// Save implements Store.
func (s *MemoryStore) Save(ctx context.Context, kind models.Kind, records []json.RawMessage) error {
	if err := ctx.Err(); err != nil {
		return &IOError{Op: "save", Kind: kind, Err: err}
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	s.collections[kind] = cloneRecords(records)
	return nil
}

func cloneRecords(in []json.RawMessage) []json.RawMessage {
	out := make([]json.RawMessage, len(in))
	for i, r := range in {
		out[i] = append(json.RawMessage(nil), r...)
	}
	return out
}
