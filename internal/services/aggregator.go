package services

import (
	"sort"

	"github.com/shopspring/decimal"

	"expenseai/internal/core"
)

var hundred = decimal.NewFromInt(100)

// BuildMonthlySummary derives the monthly view from the month's expenses and the previous
// month's total. The average divides by the days in the month, also for the current one.
func BuildMonthlySummary(month core.Month, expenses []core.Expense, previousTotal decimal.Decimal, topN int) core.MonthlySummary {
	totals := MonthlyTotalsOf(expenses)

	return core.MonthlySummary{
		Month:              month,
		Total:              totals.TotalAmount,
		ByCategory:         totals.Totals,
		AverageDailySpend:  totals.TotalAmount.DivRound(decimal.NewFromInt(int64(month.Days())), 2),
		VsLastMonthPercent: PercentChange(totals.TotalAmount, previousTotal),
		TopExpenses:        TopExpenses(expenses, topN),
	}
}

// MonthlyTotalsOf sums amounts per category and overall.
func MonthlyTotalsOf(expenses []core.Expense) core.MonthlyTotals {
	out := core.MonthlyTotals{
		Totals:      make(map[core.Category]decimal.Decimal),
		TotalAmount: decimal.Zero,
	}
	for _, e := range expenses {
		out.Totals[e.Category] = out.Totals[e.Category].Add(e.Amount)
		out.TotalAmount = out.TotalAmount.Add(e.Amount)
	}
	return out
}

// SumAmounts returns the total of all amounts.
func SumAmounts(expenses []core.Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}

// PercentChange is (current-previous)/previous*100 rounded to two places, and exactly
// zero when previous is zero.
func PercentChange(current, previous decimal.Decimal) decimal.Decimal {
	if previous.IsZero() {
		return decimal.Zero
	}
	return current.Sub(previous).Mul(hundred).DivRound(previous, 2)
}

// TopExpenses returns the n largest expenses: amount descending, then earlier date, then
// lower id.
func TopExpenses(expenses []core.Expense, n int) []core.Expense {
	if n <= 0 {
		return []core.Expense{}
	}
	sorted := append([]core.Expense(nil), expenses...)
	sort.SliceStable(sorted, func(i, j int) bool {
		a, b := sorted[i], sorted[j]
		if c := a.Amount.Cmp(b.Amount); c != 0 {
			return c > 0
		}
		if !a.Date.Equal(b.Date.Time) {
			return a.Date.Before(b.Date.Time)
		}
		return a.ID < b.ID
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}
	if sorted == nil {
		sorted = []core.Expense{}
	}
	return sorted
}
