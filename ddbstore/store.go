// Package ddbstore persists owner trees.
//
// A tree is stored as one DynamoDB item keyed by the owner id; every entry of
// the tree becomes a top-level attribute of the item.
package ddbstore

import (
	"context"
	"errors"
	"sync"

	"github.com/oriumgames/cardinal/tree"
)

// ErrNotFound is returned by Load when no tree was saved for an owner.
var ErrNotFound = errors.New("ddbstore: tree not found")

// Store loads and saves owner trees.
type Store interface {
	Load(ctx context.Context, id string) (*tree.Compound, error)
	Save(ctx context.Context, id string, t *tree.Compound) error
	Delete(ctx context.Context, id string) error
}

// MemoryStore keeps trees in memory. It is meant for tests and single
// process setups.
type MemoryStore struct {
	mu    sync.RWMutex
	trees map[string]*tree.Compound
}

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{trees: make(map[string]*tree.Compound)}
}

// Load returns a copy of the tree saved under id.
func (m *MemoryStore) Load(_ context.Context, id string) (*tree.Compound, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	t, ok := m.trees[id]
	if !ok {
		return nil, ErrNotFound
	}
	return t.Clone(), nil
}

// Save stores a copy of t under id.
func (m *MemoryStore) Save(_ context.Context, id string, t *tree.Compound) error {
	m.mu.Lock()
	m.trees[id] = t.Clone()
	m.mu.Unlock()
	return nil
}

// Delete removes the tree saved under id.
func (m *MemoryStore) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	delete(m.trees, id)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored trees.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.trees)
}
