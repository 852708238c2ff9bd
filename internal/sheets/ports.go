// Package sheets mirrors expense change events into a spreadsheet ledger.
package sheets

import (
	"context"
	"time"

	"expenseai/internal/core"
)

// LedgerRow is one appended change event. Rows are never edited; a deletion is its own row.
type LedgerRow struct {
	EventID  string
	Action   string
	Expense  core.Expense
	Recorded time.Time
}

// Ports for outbound adapters.
type (
	LedgerWriter interface {
		AppendRow(ctx context.Context, row LedgerRow) (rowRef string, err error)
	}

	LedgerReader interface {
		// HasEvent reports whether a row with the event id was already appended.
		HasEvent(ctx context.Context, eventID string) (bool, error)
		// Rows returns every ledger row in sheet order.
		Rows(ctx context.Context) ([]LedgerRow, error)
	}

	Ledger interface {
		LedgerWriter
		LedgerReader
	}
)

// Header is the first ledger row.
var Header = []string{"Recorded", "Event", "Action", "Expense ID", "Date", "Category", "Amount", "Description"}
