package google

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"expenseai/internal/core"
	ports "expenseai/internal/sheets"
)

const recordedLayout = time.RFC3339

// parseRows converts a values matrix (as returned by Sheets API) into ledger rows.
// A leading header row is skipped; malformed rows are reported with their 1-based sheet row.
func parseRows(values [][]any) ([]ports.LedgerRow, []error) {
	var (
		out     []ports.LedgerRow
		skipped []error
	)
	for i, raw := range values {
		cols := toStrings(raw)
		if i == 0 && len(cols) > 0 && strings.EqualFold(cols[0], ports.Header[0]) {
			continue
		}
		if len(cols) == 0 || strings.Join(cols, "") == "" {
			continue
		}
		row, err := parseRow(cols)
		if err != nil {
			skipped = append(skipped, fmt.Errorf("row %d: %w", i+1, err))
			continue
		}
		out = append(out, row)
	}
	return out, skipped
}

func parseRow(cols []string) (ports.LedgerRow, error) {
	if len(cols) < 7 {
		return ports.LedgerRow{}, fmt.Errorf("expected at least 7 columns, got %d", len(cols))
	}

	recorded, err := time.Parse(recordedLayout, cols[0])
	if err != nil {
		return ports.LedgerRow{}, fmt.Errorf("recorded time %q: %w", cols[0], err)
	}
	id, err := strconv.ParseInt(cols[3], 10, 64)
	if err != nil {
		return ports.LedgerRow{}, fmt.Errorf("expense id %q: %w", cols[3], err)
	}
	date, err := core.ParseDate(cols[4])
	if err != nil {
		return ports.LedgerRow{}, err
	}
	amount, err := decimal.NewFromString(strings.ReplaceAll(cols[6], ",", "."))
	if err != nil {
		return ports.LedgerRow{}, fmt.Errorf("amount %q: %w", cols[6], err)
	}

	return ports.LedgerRow{
		EventID:  cols[1],
		Action:   cols[2],
		Recorded: recorded,
		Expense: core.Expense{
			ID:          id,
			Date:        date,
			Category:    core.Category(cols[5]),
			Amount:      amount,
			Description: safeGet(cols, 7),
		},
	}, nil
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		// unformatted numbers decode as float64; avoid exponent notation
		if f, ok := v.(float64); ok {
			out[i] = strconv.FormatFloat(f, 'f', -1, 64)
			continue
		}
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}
