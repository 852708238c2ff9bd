package memory

import (
	"context"
	"fmt"
	"sync"

	"expenseai/internal/sheets"
)

var _ sheets.Ledger = (*Store)(nil)

type Store struct {
	mu   sync.Mutex
	rows []sheets.LedgerRow
}

func New() *Store {
	return &Store{}
}

// AppendRow stores the row and returns a synthetic row reference.
func (s *Store) AppendRow(_ context.Context, row sheets.LedgerRow) (string, error) {
	if row.EventID == "" {
		return "", fmt.Errorf("ledger row has no event id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = append(s.rows, row)
	return fmt.Sprintf("mem:%d", len(s.rows)), nil
}

func (s *Store) HasEvent(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, r := range s.rows {
		if r.EventID == eventID {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) Rows(_ context.Context) ([]sheets.LedgerRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]sheets.LedgerRow(nil), s.rows...), nil
}
