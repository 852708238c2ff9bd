package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseai/internal/amqp"
	"expenseai/internal/core"
	"expenseai/internal/sheets"
	sheetsmem "expenseai/internal/sheets/memory"
	storemem "expenseai/internal/storage/memory"
)

func dinner() core.Expense {
	return core.Expense{
		ID:          1,
		Date:        core.NewDate(2025, 6, 2),
		Category:    core.CategoryFood,
		Amount:      decimal.NewFromInt(30),
		Description: "Dinner",
	}
}

type failingLedger struct {
	sheets.Ledger
	appendErr error
	hasErr    error
}

func (f failingLedger) AppendRow(ctx context.Context, row sheets.LedgerRow) (string, error) {
	if f.appendErr != nil {
		return "", f.appendErr
	}
	return f.Ledger.AppendRow(ctx, row)
}

func (f failingLedger) HasEvent(ctx context.Context, id string) (bool, error) {
	if f.hasErr != nil {
		return false, f.hasErr
	}
	return f.Ledger.HasEvent(ctx, id)
}

func TestHandleEvent_AppendsOnce(t *testing.T) {
	ledger := sheetsmem.New()
	w := NewLedgerWorker(ledger)
	ctx := context.Background()

	ev := amqp.NewExpenseEvent(amqp.ActionCreated, dinner())
	require.NoError(t, w.HandleEvent(ctx, ev))
	require.NoError(t, w.HandleEvent(ctx, ev))

	rows, err := ledger.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, ev.ID, rows[0].EventID)
	assert.Equal(t, amqp.ActionCreated, rows[0].Action)
	assert.Equal(t, "Dinner", rows[0].Expense.Description)
	assert.True(t, ev.Timestamp.Equal(rows[0].Recorded))
}

func TestHandleEvent_ZeroTimestampUsesClock(t *testing.T) {
	ledger := sheetsmem.New()
	w := NewLedgerWorker(ledger)
	fixed := time.Date(2025, 6, 30, 8, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return fixed }

	require.NoError(t, w.HandleEvent(context.Background(), &amqp.ExpenseEvent{ID: "e1", Action: amqp.ActionDeleted, Expense: dinner()}))

	rows, _ := ledger.Rows(context.Background())
	require.Len(t, rows, 1)
	assert.Equal(t, fixed, rows[0].Recorded)
}

func TestHandleEvent_Errors(t *testing.T) {
	boom := errors.New("sheets down")
	tests := []struct {
		name   string
		ledger sheets.Ledger
	}{
		{"lookup fails", failingLedger{Ledger: sheetsmem.New(), hasErr: boom}},
		{"append fails", failingLedger{Ledger: sheetsmem.New(), appendErr: boom}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewLedgerWorker(tt.ledger).HandleEvent(context.Background(), amqp.NewExpenseEvent(amqp.ActionUpdated, dinner()))
			assert.ErrorIs(t, err, boom)
		})
	}
}

type fakeConsumer struct {
	events []*amqp.ExpenseEvent
	errs   []error
}

func (f *fakeConsumer) ConsumeExpenseEvents(ctx context.Context, handler func(context.Context, *amqp.ExpenseEvent) error) error {
	for _, ev := range f.events {
		f.errs = append(f.errs, handler(ctx, ev))
	}
	<-ctx.Done()
	return ctx.Err()
}

func TestRun_ConsumesUntilCancelled(t *testing.T) {
	ledger := sheetsmem.New()
	w := NewLedgerWorker(ledger)
	consumer := &fakeConsumer{events: []*amqp.ExpenseEvent{
		amqp.NewExpenseEvent(amqp.ActionCreated, dinner()),
		amqp.NewExpenseEvent(amqp.ActionDeleted, dinner()),
	}}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, consumer) }()

	require.Eventually(t, func() bool {
		rows, _ := ledger.Rows(context.Background())
		return len(rows) == 2
	}, time.Second, 5*time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}

func TestStartupSync_BackfillsUnknownExpenses(t *testing.T) {
	ctx := context.Background()
	store := storemem.New(
		dinner(),
		core.Expense{Date: core.NewDate(2025, 6, 8), Category: core.CategoryShopping, Amount: decimal.NewFromInt(300), Description: "Buy clothes"},
	)
	ledger := sheetsmem.New()
	_, err := ledger.AppendRow(ctx, sheets.LedgerRow{EventID: "e1", Action: amqp.ActionCreated, Expense: core.Expense{ID: 1}})
	require.NoError(t, err)

	w := NewLedgerWorker(ledger)
	synced, err := w.StartupSync(ctx, store)
	require.NoError(t, err)
	assert.Equal(t, 1, synced)

	rows, _ := ledger.Rows(ctx)
	require.Len(t, rows, 2)
	assert.Equal(t, "snapshot-2", rows[1].EventID)
	assert.Equal(t, int64(2), rows[1].Expense.ID)

	synced, err = w.StartupSync(ctx, store)
	require.NoError(t, err)
	assert.Zero(t, synced)
}

func TestStartupSync_ReportsFailures(t *testing.T) {
	ctx := context.Background()
	store := storemem.New(dinner())
	w := NewLedgerWorker(failingLedger{Ledger: sheetsmem.New(), appendErr: errors.New("quota")})

	synced, err := w.StartupSync(ctx, store)
	assert.Error(t, err)
	assert.Zero(t, synced)
}
