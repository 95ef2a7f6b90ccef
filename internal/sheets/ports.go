package sheets

import (
	"context"
	"fmt"
	"strings"
	"time"

	"ledger/internal/core"
)

// Ports for outbound adapters.
type (
	// ExpenseMirror keeps an external copy of the ledger, one row per entry
	// keyed by entry id.
	ExpenseMirror interface {
		UpsertEntry(ctx context.Context, e core.ExpenseEntry) error
		DeleteEntry(ctx context.Context, id int64) error
		// ReplaceAll rewrites the mirror so it holds exactly entries.
		ReplaceAll(ctx context.Context, entries []core.ExpenseEntry) error
	}
)

// Header is the first row written by ReplaceAll.
var Header = []any{"ID", "Date", "Items", "Total", "Created At"}

// EntryRow renders an entry as a mirror row matching Header.
func EntryRow(e core.ExpenseEntry) []any {
	created := ""
	if !e.CreatedAt.IsZero() {
		created = e.CreatedAt.UTC().Format(time.RFC3339)
	}
	return []any{e.ID, e.Date, ItemsSummary(e.Items), e.Total, created}
}

// ItemsSummary renders items as "name cost; name cost".
func ItemsSummary(items []core.ExpenseItem) string {
	parts := make([]string, 0, len(items))
	for _, it := range items {
		parts = append(parts, fmt.Sprintf("%s %d", it.Name, it.Cost))
	}
	return strings.Join(parts, "; ")
}
