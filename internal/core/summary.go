package core

import "github.com/shopspring/decimal"

// MonthlySummary is a derived, never persisted view over one calendar month.
type MonthlySummary struct {
	Month              Month                        `json:"month"`
	Total              decimal.Decimal              `json:"total"`
	ByCategory         map[Category]decimal.Decimal `json:"byCategory"`
	AverageDailySpend  decimal.Decimal              `json:"averageDailySpend"`
	VsLastMonthPercent decimal.Decimal              `json:"vsLastMonthPercent"`
	TopExpenses        []Expense                    `json:"topExpenses"`
}

// MonthlyTotals is the per-category breakdown handed to the assistant verbatim.
type MonthlyTotals struct {
	Totals      map[Category]decimal.Decimal `json:"totals"`
	TotalAmount decimal.Decimal              `json:"totalAmount"`
}

type Insight struct {
	Content string `json:"content"`
}
