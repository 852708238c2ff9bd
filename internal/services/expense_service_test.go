package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"expenseai/internal/core"
	"expenseai/internal/storage/memory"
)

type stubClassifier struct {
	mu     sync.Mutex
	calls  []string
	result core.Category
	err    error
}

func (s *stubClassifier) Classify(_ context.Context, text string) (core.Category, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, text)
	return s.result, s.err
}

type recordingPublisher struct {
	mu      sync.Mutex
	actions []string
	err     error
}

func (p *recordingPublisher) PublishExpenseEvent(_ context.Context, action string, _ core.Expense) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.actions = append(p.actions, action)
	return p.err
}

func newService(t *testing.T, seed ...core.Expense) (*ExpenseService, *stubClassifier, *recordingPublisher) {
	t.Helper()
	cls := &stubClassifier{result: core.CategoryEntertainment}
	pub := &recordingPublisher{}
	svc := NewExpenseService(memory.New(seed...), cls, WithPublisher(pub), WithTopExpenses(3))
	t.Cleanup(func() { svc.Close() })
	return svc, cls, pub
}

func strPtr(s string) *string { return &s }

func TestNewExpenseService(t *testing.T) {
	svc := NewExpenseService(nil, nil)
	if svc == nil {
		t.Fatal("NewExpenseService should return a non-nil service")
	}
	if svc.topN != defaultTopExpenses {
		t.Fatalf("expected default top %d, got %d", defaultTopExpenses, svc.topN)
	}
	if err := svc.Close(); err != nil {
		t.Fatalf("Close should not return error with nil components: %v", err)
	}
}

func TestCreate_RoundTrip(t *testing.T) {
	ctx := context.Background()
	svc, cls, pub := newService(t)

	saved, err := svc.Create(ctx, core.Expense{
		Date:        core.NewDate(2025, 6, 2),
		Category:    "FOOD",
		Amount:      decimal.NewFromInt(30),
		Description: "Dinner",
	})
	require.NoError(t, err)
	assert.NotZero(t, saved.ID)

	got, err := svc.ByDate(ctx, core.NewDate(2025, 6, 2))
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, core.CategoryFood, got[0].Category)
	assert.True(t, got[0].Amount.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "Dinner", got[0].Description)

	assert.Empty(t, cls.calls)
	assert.Equal(t, []string{ActionCreated}, pub.actions)
}

func TestNormalizeCategory(t *testing.T) {
	ctx := context.Background()
	svc, cls, _ := newService(t)

	c, err := svc.NormalizeCategory(ctx, "food", "anything")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryFood, c)
	assert.Empty(t, cls.calls, "vocabulary matches must not reach the classifier")

	c, err = svc.NormalizeCategory(ctx, "xyz", "movie tickets")
	require.NoError(t, err)
	assert.Equal(t, core.CategoryEntertainment, c)
	assert.Equal(t, []string{"movie tickets"}, cls.calls)

	_, err = svc.NormalizeCategory(ctx, "cinema", "  ")
	require.NoError(t, err)
	assert.Equal(t, "cinema", cls.calls[1], "blank description falls back to the category text")
}

func TestNormalizeCategory_ClassifierUnavailable(t *testing.T) {
	svc, cls, _ := newService(t)
	cls.err = core.ErrClassifierUnavailable

	_, err := svc.Create(context.Background(), core.Expense{Date: core.NewDate(2025, 6, 1), Category: "???", Amount: decimal.NewFromInt(1)})
	assert.True(t, errors.Is(err, core.ErrClassifierUnavailable))
}

func TestNormalizeCategory_NoClassifier(t *testing.T) {
	svc := NewExpenseService(memory.New(), nil)
	_, err := svc.NormalizeCategory(context.Background(), "xyz", "")
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
}

func TestCreate_RejectsInvalid(t *testing.T) {
	svc, _, pub := newService(t)
	_, err := svc.Create(context.Background(), core.Expense{Category: "FOOD", Amount: decimal.NewFromInt(3)})
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))

	_, err = svc.Create(context.Background(), core.Expense{Date: core.NewDate(2025, 6, 1), Category: "FOOD", Amount: decimal.NewFromInt(-3)})
	assert.True(t, errors.Is(err, core.ErrInvalidArgument))
	assert.Empty(t, pub.actions)
}

func TestUpdate_Partial(t *testing.T) {
	ctx := context.Background()
	svc, cls, pub := newService(t, SampleExpenses()...)

	amount := decimal.NewFromInt(35)
	got, err := svc.Update(ctx, 1, core.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	assert.True(t, got.Amount.Equal(amount))
	assert.Equal(t, "Dinner", got.Description)
	assert.Equal(t, core.CategoryFood, got.Category)
	assert.Equal(t, "2025-06-02", got.Date.String())

	got, err = svc.Update(ctx, 1, core.ExpensePatch{Category: strPtr("groceries")})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryGroceries, got.Category)

	got, err = svc.Update(ctx, 1, core.ExpensePatch{Category: strPtr("fun"), Description: strPtr("cinema night")})
	require.NoError(t, err)
	assert.Equal(t, core.CategoryEntertainment, got.Category)
	assert.Equal(t, []string{"cinema night"}, cls.calls)

	assert.Equal(t, []string{ActionUpdated, ActionUpdated, ActionUpdated}, pub.actions)

	_, err = svc.Update(ctx, 99, core.ExpensePatch{Amount: &amount})
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestUpdateByDateAndDescription_PicksHighestID(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	first, err := svc.Create(ctx, core.Expense{Date: core.NewDate(2025, 6, 2), Category: "FOOD", Amount: decimal.NewFromInt(30), Description: "Dinner"})
	require.NoError(t, err)
	second, err := svc.Create(ctx, core.Expense{Date: core.NewDate(2025, 6, 2), Category: "FOOD", Amount: decimal.NewFromInt(45), Description: "dinner"})
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)

	amount := decimal.NewFromInt(50)
	got, err := svc.UpdateByDateAndDescription(ctx, core.NewDate(2025, 6, 2), "DINNER", core.ExpensePatch{Amount: &amount})
	require.NoError(t, err)
	assert.Equal(t, second.ID, got.ID)
	assert.True(t, got.Amount.Equal(amount))

	untouched, err := svc.Get(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, untouched.Amount.Equal(decimal.NewFromInt(30)))

	_, err = svc.UpdateByDateAndDescription(ctx, core.NewDate(2025, 6, 3), "Dinner", core.ExpensePatch{Amount: &amount})
	assert.True(t, errors.Is(err, core.ErrNotFound))
	_, err = svc.UpdateByDateAndDescription(ctx, core.NewDate(2025, 6, 2), "Din", core.ExpensePatch{Amount: &amount})
	assert.True(t, errors.Is(err, core.ErrNotFound), "match must be exact, not a prefix")
}

func TestReplace(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t, SampleExpenses()...)

	got, err := svc.Replace(ctx, 2, core.Expense{Date: core.NewDate(2025, 6, 9), Category: "shopping", Amount: decimal.NewFromInt(280), Description: "Jacket"})
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.ID)
	assert.Equal(t, core.CategoryShopping, got.Category)

	_, err = svc.Replace(ctx, 42, got)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t, SampleExpenses()...)

	require.NoError(t, svc.Delete(ctx, 1))
	assert.Equal(t, []string{ActionDeleted}, pub.actions)

	err := svc.Delete(ctx, 1)
	assert.True(t, errors.Is(err, core.ErrNotFound))
}

func TestPublishFailureDoesNotFailWrite(t *testing.T) {
	svc, _, pub := newService(t)
	pub.err = errors.New("broker down")

	_, err := svc.Create(context.Background(), core.Expense{Date: core.NewDate(2025, 6, 1), Category: "OTHER", Amount: decimal.NewFromInt(1)})
	assert.NoError(t, err)
}

func TestMonthlyTotals(t *testing.T) {
	svc, cls, _ := newService(t, append(SampleExpenses(),
		core.Expense{Date: core.NewDate(2025, 7, 1), Category: core.CategoryFood, Amount: decimal.NewFromInt(999)})...)

	june, _ := core.ParseMonth("2025-06")
	got, err := svc.MonthlyTotals(context.Background(), june)
	require.NoError(t, err)
	assert.Equal(t, "418.99", got.TotalAmount.String())
	assert.Equal(t, "30", got.Totals[core.CategoryFood].String())
	assert.Equal(t, "300", got.Totals[core.CategoryShopping].String())
	assert.Equal(t, "88.99", got.Totals[core.CategoryGroceries].String())
	assert.Empty(t, cls.calls, "totals group stored categories without classifying")
}

func TestMonthlyTotals_ClassifierDown(t *testing.T) {
	svc, cls, _ := newService(t, SampleExpenses()...)
	cls.err = core.ErrClassifierUnavailable

	june, _ := core.ParseMonth("2025-06")
	got, err := svc.MonthlyTotals(context.Background(), june)
	require.NoError(t, err)
	assert.Equal(t, "418.99", got.TotalAmount.String())
}

func TestMonthlySummary_ComparesWithPreviousMonth(t *testing.T) {
	svc, _, _ := newService(t, append(SampleExpenses(),
		core.Expense{Date: core.NewDate(2025, 5, 20), Category: core.CategoryTransport, Amount: decimal.NewFromInt(200)})...)

	june, _ := core.ParseMonth("2025-06")
	s, err := svc.MonthlySummary(context.Background(), june)
	require.NoError(t, err)
	assert.Equal(t, "418.99", s.Total.String())
	assert.Equal(t, "109.5", s.VsLastMonthPercent.String())
	assert.Len(t, s.TopExpenses, 3)
	assert.Equal(t, "Buy clothes", s.TopExpenses[0].Description)
}

func TestSeedIfEmpty(t *testing.T) {
	ctx := context.Background()
	svc, _, pub := newService(t)

	n, err := svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	n, err = svc.SeedIfEmpty(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	all, _ := svc.List(ctx)
	assert.Len(t, all, 3)
	assert.Empty(t, pub.actions, "seeding does not publish events")
}
