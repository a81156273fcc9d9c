package recordstore

import (
	"context"
	"fmt"
	"sync"
)

// MemoryStore keeps collections in process memory. It backs local development
// and tests; each call is atomic but, like the remote stores, nothing spans calls.
type MemoryStore struct {
	mu          sync.RWMutex
	collections map[string][][]string
}

// NewMemoryStore constructs an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{collections: make(map[string][][]string)}
}

// Seed replaces a collection's contents; row 1 is conventionally the header.
func (m *MemoryStore) Seed(collection string, rows [][]string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.collections[collection] = copyGrid(rows)
}

// EnsureCollection creates collection with the given header if it does not exist yet.
func (m *MemoryStore) EnsureCollection(collection string, header []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.collections[collection]; !ok {
		m.collections[collection] = [][]string{append([]string(nil), header...)}
	}
}

// Snapshot returns a copy of a collection.
func (m *MemoryStore) Snapshot(collection string) [][]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copyGrid(m.collections[collection])
}

func (m *MemoryStore) ReadRange(ctx context.Context, collection, rng string) ([][]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, Transient(err)
	}
	r, err := ParseRange(rng)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	grid, ok := m.collections[collection]
	if !ok {
		return nil, unknownCollection(collection)
	}
	return copyGrid(r.Window(grid)), nil
}

func (m *MemoryStore) WriteCell(ctx context.Context, collection, cell, value string) error {
	return m.BatchWrite(ctx, collection, []CellUpdate{{Cell: cell, Value: value}})
}

func (m *MemoryStore) BatchWrite(ctx context.Context, collection string, updates []CellUpdate) error {
	if err := ctx.Err(); err != nil {
		return Transient(err)
	}
	type target struct{ col, row int }
	targets := make([]target, len(updates))
	for i, u := range updates {
		col, row, err := ParseCell(u.Cell)
		if err != nil {
			return err
		}
		targets[i] = target{col: col, row: row}
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	grid, ok := m.collections[collection]
	if !ok {
		return unknownCollection(collection)
	}
	for i, t := range targets {
		for len(grid) < t.row {
			grid = append(grid, []string{})
		}
		row := grid[t.row-1]
		for len(row) <= t.col {
			row = append(row, "")
		}
		row[t.col] = updates[i].Value
		grid[t.row-1] = row
	}
	m.collections[collection] = grid
	return nil
}

func (m *MemoryStore) AppendRow(ctx context.Context, collection string, row []string) error {
	if err := ctx.Err(); err != nil {
		return Transient(err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	grid, ok := m.collections[collection]
	if !ok {
		return unknownCollection(collection)
	}
	m.collections[collection] = append(grid, append([]string(nil), row...))
	return nil
}

func unknownCollection(collection string) error {
	return Fatal(fmt.Errorf("unknown collection %q", collection))
}

func copyGrid(grid [][]string) [][]string {
	if grid == nil {
		return nil
	}
	out := make([][]string, len(grid))
	for i, row := range grid {
		out[i] = append([]string{}, row...)
	}
	return out
}
