package storage

import (
	"context"

	"expenseai/internal/core"
)

// Repository is the expense store port. Implementations return core.ErrNotFound
// (wrapped) for missing ids.
type Repository interface {
	FindAll(ctx context.Context) ([]core.Expense, error)
	FindByID(ctx context.Context, id int64) (core.Expense, error)
	FindByDate(ctx context.Context, date core.Date) ([]core.Expense, error)
	// FindByDateRange returns expenses with from <= date <= to.
	FindByDateRange(ctx context.Context, from, to core.Date) ([]core.Expense, error)
	// Save inserts when e.ID is zero and replaces the stored record otherwise.
	Save(ctx context.Context, e core.Expense) (core.Expense, error)
	ExistsByID(ctx context.Context, id int64) (bool, error)
	DeleteByID(ctx context.Context, id int64) error
	Count(ctx context.Context) (int64, error)
	Close() error
}
