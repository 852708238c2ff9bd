// Package worker mirrors expense change events into the spreadsheet ledger.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"expenseai/internal/amqp"
	"expenseai/internal/core"
	"expenseai/internal/sheets"
)

type (
	// EventConsumer delivers events until ctx ends. amqp.Client implements it.
	EventConsumer interface {
		ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error
	}

	// ExpenseSource lists the current store contents for the startup backfill.
	ExpenseSource interface {
		FindAll(ctx context.Context) ([]core.Expense, error)
	}
)

// LedgerWorker appends one ledger row per change event. Redelivered events are skipped by id.
type LedgerWorker struct {
	ledger sheets.Ledger
	now    func() time.Time
}

func NewLedgerWorker(ledger sheets.Ledger) *LedgerWorker {
	return &LedgerWorker{ledger: ledger, now: time.Now}
}

// Run consumes events until ctx is cancelled.
func (w *LedgerWorker) Run(ctx context.Context, consumer EventConsumer) error {
	slog.InfoContext(ctx, "Ledger worker started")
	err := consumer.ConsumeExpenseEvents(ctx, w.HandleEvent)
	if ctx.Err() != nil {
		slog.InfoContext(ctx, "Ledger worker stopped")
		return nil
	}
	return err
}

// HandleEvent processes a single expense event from AMQP.
func (w *LedgerWorker) HandleEvent(ctx context.Context, ev *amqp.ExpenseEvent) error {
	slog.InfoContext(ctx, "Processing expense event",
		"event_id", ev.ID,
		"action", ev.Action,
		"expense_id", ev.Expense.ID)

	seen, err := w.ledger.HasEvent(ctx, ev.ID)
	if err != nil {
		return fmt.Errorf("check ledger for event %s: %w", ev.ID, err)
	}
	if seen {
		slog.InfoContext(ctx, "Event already in ledger, skipping", "event_id", ev.ID)
		return nil
	}

	recorded := ev.Timestamp
	if recorded.IsZero() {
		recorded = w.now()
	}
	ref, err := w.ledger.AppendRow(ctx, sheets.LedgerRow{
		EventID:  ev.ID,
		Action:   ev.Action,
		Expense:  ev.Expense,
		Recorded: recorded,
	})
	if err != nil {
		return fmt.Errorf("append event %s to ledger: %w", ev.ID, err)
	}

	slog.InfoContext(ctx, "Appended expense event to ledger",
		"event_id", ev.ID,
		"action", ev.Action,
		"expense_id", ev.Expense.ID,
		"row", ref)
	return nil
}

// StartupSync appends a snapshot row for every stored expense the ledger has never seen.
// It recovers from events lost while the worker or broker was down.
func (w *LedgerWorker) StartupSync(ctx context.Context, source ExpenseSource) (int, error) {
	rows, err := w.ledger.Rows(ctx)
	if err != nil {
		return 0, fmt.Errorf("read ledger: %w", err)
	}
	known := make(map[int64]struct{}, len(rows))
	for _, r := range rows {
		known[r.Expense.ID] = struct{}{}
	}

	expenses, err := source.FindAll(ctx)
	if err != nil {
		return 0, fmt.Errorf("list expenses for startup sync: %w", err)
	}

	synced, failed := 0, 0
	for _, e := range expenses {
		if _, ok := known[e.ID]; ok {
			continue
		}
		_, err := w.ledger.AppendRow(ctx, sheets.LedgerRow{
			EventID:  snapshotEventID(e.ID),
			Action:   amqp.ActionCreated,
			Expense:  e,
			Recorded: w.now(),
		})
		if err != nil {
			slog.ErrorContext(ctx, "Failed to backfill expense", "expense_id", e.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Startup sync completed",
		"stored", len(expenses),
		"synced", synced,
		"errors", failed)

	if failed > 0 {
		return synced, fmt.Errorf("startup sync: %d of %d expenses failed", failed, synced+failed)
	}
	return synced, nil
}

func snapshotEventID(id int64) string {
	return fmt.Sprintf("snapshot-%d", id)
}
