package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"expenseai/internal/core"
	"expenseai/internal/storage"
)

// Event actions published after a successful write.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

const defaultTopExpenses = 5

// Categorizer resolves free text to a vocabulary label.
type Categorizer interface {
	Classify(ctx context.Context, text string) (core.Category, error)
}

// Publisher announces expense changes to downstream consumers.
type Publisher interface {
	PublishExpenseEvent(ctx context.Context, action string, e core.Expense) error
}

// ExpenseService orchestrates expense operations across the store, the category
// classifier and the event publisher.
type ExpenseService struct {
	repo       storage.Repository
	classifier Categorizer
	publisher  Publisher
	topN       int
}

type Option func(*ExpenseService)

// WithPublisher enables change events; without it writes are only stored.
func WithPublisher(p Publisher) Option {
	return func(s *ExpenseService) { s.publisher = p }
}

// WithTopExpenses sets how many expenses a monthly summary lists.
func WithTopExpenses(n int) Option {
	return func(s *ExpenseService) {
		if n > 0 {
			s.topN = n
		}
	}
}

func NewExpenseService(repo storage.Repository, classifier Categorizer, opts ...Option) *ExpenseService {
	s := &ExpenseService{repo: repo, classifier: classifier, topN: defaultTopExpenses}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *ExpenseService) List(ctx context.Context) ([]core.Expense, error) {
	return s.repo.FindAll(ctx)
}

func (s *ExpenseService) Get(ctx context.Context, id int64) (core.Expense, error) {
	return s.repo.FindByID(ctx, id)
}

func (s *ExpenseService) ByDate(ctx context.Context, date core.Date) ([]core.Expense, error) {
	return s.repo.FindByDate(ctx, date)
}

func (s *ExpenseService) ByMonth(ctx context.Context, month core.Month) ([]core.Expense, error) {
	return s.repo.FindByDateRange(ctx, month.First(), month.Last())
}

// NormalizeCategory maps category onto the vocabulary. An exact case-insensitive match
// wins; otherwise the description (or the category text when there is none) is classified.
func (s *ExpenseService) NormalizeCategory(ctx context.Context, category, description string) (core.Category, error) {
	if c, ok := core.ParseCategory(category); ok {
		return c, nil
	}
	if s.classifier == nil {
		return "", fmt.Errorf("%w: unknown category %q", core.ErrInvalidArgument, category)
	}

	text := description
	if strings.TrimSpace(text) == "" {
		text = category
	}
	c, err := s.classifier.Classify(ctx, text)
	if err != nil {
		return "", err
	}
	slog.InfoContext(ctx, "Category resolved by classifier", "input", category, "category", c)
	return c, nil
}

// Create normalizes and stores a new expense.
func (s *ExpenseService) Create(ctx context.Context, e core.Expense) (core.Expense, error) {
	cat, err := s.NormalizeCategory(ctx, string(e.Category), e.Description)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = 0
	e.Category = cat
	if err := validate(e); err != nil {
		return core.Expense{}, err
	}

	saved, err := s.repo.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense: %w", err)
	}
	s.publish(ctx, ActionCreated, saved)
	return saved, nil
}

// Replace overwrites every field of an existing expense.
func (s *ExpenseService) Replace(ctx context.Context, id int64, e core.Expense) (core.Expense, error) {
	exists, err := s.repo.ExistsByID(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}
	if !exists {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}

	cat, err := s.NormalizeCategory(ctx, string(e.Category), e.Description)
	if err != nil {
		return core.Expense{}, err
	}
	e.ID = id
	e.Category = cat
	return s.store(ctx, e)
}

// Update applies a partial change to the expense with the given id.
func (s *ExpenseService) Update(ctx context.Context, id int64, patch core.ExpensePatch) (core.Expense, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return core.Expense{}, err
	}

	if patch.Category != nil {
		desc := current.Description
		if patch.Description != nil {
			desc = *patch.Description
		}
		cat, err := s.NormalizeCategory(ctx, *patch.Category, desc)
		if err != nil {
			return core.Expense{}, err
		}
		normalized := string(cat)
		patch.Category = &normalized
	}

	return s.store(ctx, patch.Apply(current))
}

// UpdateByDateAndDescription updates the expense on date whose description matches,
// ignoring case. With several matches the most recently created one is chosen.
func (s *ExpenseService) UpdateByDateAndDescription(ctx context.Context, date core.Date, description string, patch core.ExpensePatch) (core.Expense, error) {
	match, err := s.FindByDateAndDescription(ctx, date, description)
	if err != nil {
		return core.Expense{}, err
	}
	return s.Update(ctx, match.ID, patch)
}

// FindByDateAndDescription returns the highest-id expense on date whose description
// equals description, ignoring case and surrounding space.
func (s *ExpenseService) FindByDateAndDescription(ctx context.Context, date core.Date, description string) (core.Expense, error) {
	onDate, err := s.repo.FindByDate(ctx, date)
	if err != nil {
		return core.Expense{}, err
	}

	want := strings.TrimSpace(description)
	var (
		match core.Expense
		found bool
	)
	for _, e := range onDate {
		if strings.EqualFold(strings.TrimSpace(e.Description), want) && (!found || e.ID > match.ID) {
			match, found = e, true
		}
	}
	if !found {
		return core.Expense{}, fmt.Errorf("expense on %s described %q: %w", date, description, core.ErrNotFound)
	}
	return match, nil
}

func (s *ExpenseService) Delete(ctx context.Context, id int64) error {
	existing, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByID(ctx, id); err != nil {
		return err
	}
	s.publish(ctx, ActionDeleted, existing)
	return nil
}

// MonthlyTotals groups the month's expenses by stored category. Writes only store
// vocabulary labels, so no classification happens here.
func (s *ExpenseService) MonthlyTotals(ctx context.Context, month core.Month) (core.MonthlyTotals, error) {
	expenses, err := s.ByMonth(ctx, month)
	if err != nil {
		return core.MonthlyTotals{}, err
	}
	return MonthlyTotalsOf(expenses), nil
}

// MonthlySummary loads the month and the previous month concurrently and aggregates them.
func (s *ExpenseService) MonthlySummary(ctx context.Context, month core.Month) (core.MonthlySummary, error) {
	var current, previous []core.Expense

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		current, err = s.ByMonth(gctx, month)
		return err
	})
	g.Go(func() error {
		var err error
		previous, err = s.ByMonth(gctx, month.Previous())
		return err
	})
	if err := g.Wait(); err != nil {
		return core.MonthlySummary{}, fmt.Errorf("load expenses for %s: %w", month, err)
	}

	return BuildMonthlySummary(month, current, SumAmounts(previous), s.topN), nil
}

// SampleExpenses is the data set loaded into an empty store on first start.
func SampleExpenses() []core.Expense {
	return []core.Expense{
		{Date: core.NewDate(2025, 6, 2), Category: core.CategoryFood, Amount: decimal.NewFromInt(30), Description: "Dinner"},
		{Date: core.NewDate(2025, 6, 8), Category: core.CategoryShopping, Amount: decimal.NewFromInt(300), Description: "Buy clothes"},
		{Date: core.NewDate(2025, 6, 15), Category: core.CategoryGroceries, Amount: decimal.RequireFromString("88.99"), Description: "Supermarket"},
	}
}

// SeedIfEmpty stores the sample expenses when the store has none and returns how many
// were added.
func (s *ExpenseService) SeedIfEmpty(ctx context.Context) (int, error) {
	n, err := s.repo.Count(ctx)
	if err != nil {
		return 0, err
	}
	if n > 0 {
		return 0, nil
	}

	samples := SampleExpenses()
	for _, e := range samples {
		if _, err := s.repo.Save(ctx, e); err != nil {
			return 0, fmt.Errorf("seed expense: %w", err)
		}
	}
	slog.InfoContext(ctx, "Seeded sample expenses", "count", len(samples))
	return len(samples), nil
}

func (s *ExpenseService) store(ctx context.Context, e core.Expense) (core.Expense, error) {
	if err := validate(e); err != nil {
		return core.Expense{}, err
	}
	saved, err := s.repo.Save(ctx, e)
	if err != nil {
		return core.Expense{}, fmt.Errorf("save expense %d: %w", e.ID, err)
	}
	s.publish(ctx, ActionUpdated, saved)
	return saved, nil
}

func validate(e core.Expense) error {
	if err := e.Validate(); err != nil {
		return fmt.Errorf("%w: %w", core.ErrInvalidArgument, err)
	}
	return nil
}

func (s *ExpenseService) publish(ctx context.Context, action string, e core.Expense) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping expense event", "action", action, "id", e.ID)
		return
	}
	// The store is the source of truth; a lost event must not fail the write
	if err := s.publisher.PublishExpenseEvent(ctx, action, e); err != nil {
		slog.ErrorContext(ctx, "Failed to publish expense event",
			"action", action, "id", e.ID, "error", err)
	}
}

// Close releases the underlying store.
func (s *ExpenseService) Close() error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.Close(); err != nil {
		return fmt.Errorf("close expense store: %w", err)
	}
	return nil
}
