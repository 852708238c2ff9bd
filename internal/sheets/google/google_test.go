package google

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"expenseai/internal/core"
	ports "expenseai/internal/sheets"
)

// fakeSheets serves the subset of the Sheets values API the ledger uses.
type fakeSheets struct {
	mu      sync.Mutex
	values  [][]any
	appends []gsheet.ValueRange
	queries []string
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, r.Method+" "+r.URL.Path+"?"+r.URL.RawQuery)

	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, ":append"):
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		if err := json.Unmarshal(body, &vr); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.appends = append(f.appends, vr)
		f.values = append(f.values, vr.Values...)
		json.NewEncoder(w).Encode(map[string]any{
			"spreadsheetId": "sheet-1",
			"updates":       map[string]any{"updatedRange": "Ledger!A2:H2", "updatedRows": 1},
		})
	case r.Method == http.MethodPut:
		body, _ := io.ReadAll(r.Body)
		var vr gsheet.ValueRange
		json.Unmarshal(body, &vr)
		f.values = append(vr.Values, f.values...)
		json.NewEncoder(w).Encode(map[string]any{"updatedRows": 1})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "B:B"):
		col := make([][]any, 0, len(f.values))
		for _, row := range f.values {
			if len(row) > 1 {
				col = append(col, []any{row[1]})
			}
		}
		json.NewEncoder(w).Encode(map[string]any{"values": col})
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "A1:H1"):
		if len(f.values) == 0 {
			json.NewEncoder(w).Encode(map[string]any{})
			return
		}
		json.NewEncoder(w).Encode(map[string]any{"values": f.values[:1]})
	case r.Method == http.MethodGet:
		json.NewEncoder(w).Encode(map[string]any{"values": f.values})
	default:
		http.NotFound(w, r)
	}
}

func newTestClient(t *testing.T, fake *fakeSheets) *Client {
	t.Helper()
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return NewWithService(svc, "sheet-1", "")
}

func sampleRow() ports.LedgerRow {
	return ports.LedgerRow{
		EventID:  "0b9c1f7e-6f0e-4d55-9c59-0d8f3c1e8a21",
		Action:   "created",
		Recorded: time.Date(2025, 6, 15, 9, 30, 0, 0, time.UTC),
		Expense: core.Expense{
			ID:          3,
			Date:        core.NewDate(2025, 6, 15),
			Category:    core.CategoryGroceries,
			Amount:      decimal.RequireFromString("88.99"),
			Description: "Supermarket",
		},
	}
}

func TestNew_MissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Config{ServiceAccountJSON: "{}"})
	require.Error(t, err)
	assert.Equal(t, "missing GOOGLE_SPREADSHEET_ID", err.Error())
}

func TestServiceAccountCredentials(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "sa.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"type":"service_account"}`), 0o600))
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")

	tests := []struct {
		name    string
		cfg     Config
		want    string
		wantErr string
	}{
		{name: "inline json wins", cfg: Config{ServiceAccountJSON: `{"inline":true}`, ServiceAccountFile: file}, want: `{"inline":true}`},
		{name: "file", cfg: Config{ServiceAccountFile: file}, want: `{"type":"service_account"}`},
		{name: "missing file", cfg: Config{ServiceAccountFile: filepath.Join(dir, "nope.json")}, wantErr: "read service account file"},
		{name: "nothing configured", cfg: Config{}, wantErr: "missing service account credentials"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := serviceAccountCredentials(context.Background(), tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, string(got))
		})
	}
}

func TestServiceAccountCredentials_ApplicationDefaultFallback(t *testing.T) {
	file := filepath.Join(t.TempDir(), "adc.json")
	require.NoError(t, os.WriteFile(file, []byte(`{"adc":1}`), 0o600))
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", file)

	got, err := serviceAccountCredentials(context.Background(), Config{})
	require.NoError(t, err)
	assert.Equal(t, `{"adc":1}`, string(got))
}

func TestNewWithService_DefaultSheetName(t *testing.T) {
	c := NewWithService(nil, " sheet-1 ", "  ")
	assert.Equal(t, "Ledger", c.sheet)
	assert.Equal(t, "sheet-1", c.spreadsheetID)
	assert.Equal(t, "Ledger!A:H", c.rng("A:H"))
}

func TestClient_NilService(t *testing.T) {
	c := &Client{spreadsheetID: "test", sheet: "Ledger"}
	ctx := context.Background()

	_, err := c.AppendRow(ctx, sampleRow())
	assert.Error(t, err)
	_, err = c.HasEvent(ctx, "x")
	assert.Error(t, err)
	_, err = c.Rows(ctx)
	assert.Error(t, err)
}

func TestClient_AppendRow(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)

	ref, err := c.AppendRow(context.Background(), sampleRow())
	require.NoError(t, err)
	assert.Equal(t, "Ledger!A2:H2", ref)

	require.Len(t, fake.appends, 1)
	require.Len(t, fake.appends[0].Values, 1)
	row := fake.appends[0].Values[0]
	assert.Equal(t, []any{
		"2025-06-15T09:30:00Z",
		"0b9c1f7e-6f0e-4d55-9c59-0d8f3c1e8a21",
		"created",
		float64(3),
		"2025-06-15",
		"GROCERIES",
		88.99,
		"Supermarket",
	}, row)

	require.NotEmpty(t, fake.queries)
	assert.Contains(t, fake.queries[0], "valueInputOption=RAW")
	assert.Contains(t, fake.queries[0], "insertDataOption=INSERT_ROWS")
}

func TestClient_AppendRowRequiresEventID(t *testing.T) {
	c := newTestClient(t, &fakeSheets{})
	row := sampleRow()
	row.EventID = ""
	_, err := c.AppendRow(context.Background(), row)
	assert.Error(t, err)
}

func TestClient_HasEventAndRows(t *testing.T) {
	fake := &fakeSheets{}
	c := newTestClient(t, fake)
	ctx := context.Background()

	require.NoError(t, c.EnsureHeader(ctx))
	require.NoError(t, c.EnsureHeader(ctx))
	_, err := c.AppendRow(ctx, sampleRow())
	require.NoError(t, err)

	found, err := c.HasEvent(ctx, sampleRow().EventID)
	require.NoError(t, err)
	assert.True(t, found)

	found, err = c.HasEvent(ctx, "other")
	require.NoError(t, err)
	assert.False(t, found)

	rows, err := c.Rows(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	want := sampleRow()
	assert.Equal(t, want.EventID, rows[0].EventID)
	assert.Equal(t, want.Expense.ID, rows[0].Expense.ID)
	assert.True(t, want.Expense.Amount.Equal(rows[0].Expense.Amount))
	assert.True(t, want.Recorded.Equal(rows[0].Recorded))
}
