package memory

import (
	"context"
	"sort"
	"sync"

	"ledger/internal/core"
	ports "ledger/internal/sheets"
)

// Mirror is an in-process ExpenseMirror, used when no spreadsheet is configured.
type Mirror struct {
	mu      sync.Mutex
	entries map[int64]core.ExpenseEntry
}

var _ ports.ExpenseMirror = (*Mirror)(nil)

func New() *Mirror {
	return &Mirror{entries: make(map[int64]core.ExpenseEntry)}
}

func (m *Mirror) UpsertEntry(_ context.Context, e core.ExpenseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[e.ID] = e
	return nil
}

func (m *Mirror) DeleteEntry(_ context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, id)
	return nil
}

func (m *Mirror) ReplaceAll(_ context.Context, entries []core.ExpenseEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[int64]core.ExpenseEntry, len(entries))
	for _, e := range entries {
		m.entries[e.ID] = e
	}
	return nil
}

// Rows returns the mirrored rows ordered by id, as they would appear in a sheet.
func (m *Mirror) Rows() [][]any {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]int64, 0, len(m.entries))
	for id := range m.entries {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	rows := make([][]any, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, ports.EntryRow(m.entries[id]))
	}
	return rows
}

// Entry returns the mirrored entry for id.
func (m *Mirror) Entry(id int64) (core.ExpenseEntry, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.entries[id]
	return e, ok
}

func (m *Mirror) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
