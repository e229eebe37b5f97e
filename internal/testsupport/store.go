package testsupport

import (
	"context"
	"sync"
	"testing"

	"concierge/internal/logging"
	"concierge/internal/records"
	"concierge/internal/registry"
	"concierge/internal/store"
)

// MemoryStore is a store.Store kept in memory with injectable failures.
type MemoryStore struct {
	mu      sync.Mutex
	saved   records.Collection
	hasData bool
	saves   int
	saveErr error
	loadErr error
}

// NewMemoryStore returns a store whose first Load yields initial.
func NewMemoryStore(initial records.Collection) *MemoryStore {
	m := &MemoryStore{}
	if initial.Tickets != nil || initial.Tasks != nil {
		m.saved = copyCollection(initial)
		m.hasData = true
	}
	return m
}

func (m *MemoryStore) Load(context.Context) (records.Collection, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.loadErr != nil {
		return records.Collection{}, m.loadErr
	}
	if !m.hasData {
		return records.NewCollection(), nil
	}
	return copyCollection(m.saved), nil
}

func (m *MemoryStore) Save(_ context.Context, c records.Collection) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	m.saved = copyCollection(c)
	m.hasData = true
	m.saves++
	return nil
}

func (m *MemoryStore) Location() string { return "memory" }

func (m *MemoryStore) Close() error { return nil }

// FailSaves makes every later Save return err; nil restores normal saves.
func (m *MemoryStore) FailSaves(err error) {
	m.mu.Lock()
	m.saveErr = err
	m.mu.Unlock()
}

// FailLoads makes every later Load return err.
func (m *MemoryStore) FailLoads(err error) {
	m.mu.Lock()
	m.loadErr = err
	m.mu.Unlock()
}

// Saved returns the last successfully saved collection.
func (m *MemoryStore) Saved() records.Collection {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyCollection(m.saved)
}

// SaveCount returns the number of successful saves.
func (m *MemoryStore) SaveCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.saves
}

func copyCollection(c records.Collection) records.Collection {
	out := records.NewCollection()
	for id, ticket := range c.Tickets {
		out.Tickets[id] = ticket
	}
	for _, task := range c.Tasks {
		out.Tasks = append(out.Tasks, task.Clone())
	}
	return out
}

// MustOpenRegistry opens a registry over st and closes it when the test ends.
func MustOpenRegistry(t testing.TB, st store.Store) *registry.Registry {
	t.Helper()
	reg, err := registry.Open(context.Background(), st, logging.NewNop())
	if err != nil {
		t.Fatalf("open registry: %v", err)
	}
	t.Cleanup(func() { _ = reg.Close(context.Background()) })
	return reg
}
