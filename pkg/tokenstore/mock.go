package tokenstore

import (
	"context"
	"fmt"
	"sync"
)

// MemStore is an in-memory Store for tests.
type MemStore struct {
	mu      sync.Mutex
	records map[string]Record
	version map[string]int
}

// NewMemStore returns an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]Record),
		version: make(map[string]int),
	}
}

// Load implements Store.
func (m *MemStore) Load(_ context.Context, account string) (Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.records[account]
	if !ok {
		return Record{}, ErrNotFound
	}
	return rec, nil
}

// Save implements Store.
func (m *MemStore) Save(_ context.Context, account string, rec Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[account] = rec
	m.version[account]++
	return nil
}

// Delete implements Store.
func (m *MemStore) Delete(_ context.Context, account string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, account)
	m.version[account]++
	return nil
}

// Fingerprint implements Store.
func (m *MemStore) Fingerprint(account string) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.records[account]; !ok {
		return ""
	}
	return fmt.Sprintf("v%d", m.version[account])
}
