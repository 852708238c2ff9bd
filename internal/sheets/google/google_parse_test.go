package google

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseRows(t *testing.T) {
	values := [][]any{
		{"Recorded", "Event", "Action", "Expense ID", "Date", "Category", "Amount", "Description"},
		{"2025-06-02T10:00:00Z", "e1", "created", float64(1), "2025-06-02", "FOOD", float64(30), "Dinner"},
		{},
		{"2025-06-08T10:00:00Z", "e2", "updated", float64(1234567), "2025-06-08", "SHOPPING", "300,50"},
		{"not a time", "e3", "created", float64(3), "2025-06-15", "GROCERIES", 88.99, "Supermarket"},
		{"2025-06-15T10:00:00Z", "e4", "created"},
	}

	rows, skipped := parseRows(values)

	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d: %+v", len(rows), rows)
	}
	if len(skipped) != 2 {
		t.Fatalf("expected 2 skipped rows, got %v", skipped)
	}

	if rows[0].EventID != "e1" || rows[0].Expense.Description != "Dinner" || !rows[0].Expense.Amount.Equal(decimal.NewFromInt(30)) {
		t.Errorf("unexpected first row: %+v", rows[0])
	}
	if rows[1].Expense.ID != 1234567 {
		t.Errorf("large id parsed as %d", rows[1].Expense.ID)
	}
	if !rows[1].Expense.Amount.Equal(decimal.RequireFromString("300.50")) {
		t.Errorf("decimal comma parsed as %s", rows[1].Expense.Amount)
	}
	if rows[1].Expense.Description != "" {
		t.Errorf("missing description should be empty, got %q", rows[1].Expense.Description)
	}
	if got := skipped[0].Error(); got[:5] != "row 5" {
		t.Errorf("skipped error should name the sheet row, got %q", got)
	}
}

func TestToStrings(t *testing.T) {
	got := toStrings([]any{float64(1e7), " x ", 88.99, true})
	want := []string{"10000000", "x", "88.99", "true"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("toStrings[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}
