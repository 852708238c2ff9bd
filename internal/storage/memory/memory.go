package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"expenseai/internal/core"
	"expenseai/internal/storage"
)

// Store keeps expenses in process memory. Ids increase monotonically and are never reused.
type Store struct {
	mu     sync.Mutex
	nextID int64
	items  map[int64]core.Expense
}

var _ storage.Repository = (*Store)(nil)

// New returns a store holding seed. It panics when a seed expense fails validation.
func New(seed ...core.Expense) *Store {
	s := &Store{items: make(map[int64]core.Expense)}
	for i, e := range seed {
		e.ID = 0
		if _, err := s.Save(context.Background(), e); err != nil {
			panic(fmt.Sprintf("memory: seed expense %d: %v", i, err))
		}
	}
	return s
}

func (s *Store) FindAll(_ context.Context) ([]core.Expense, error) {
	return s.filter(func(core.Expense) bool { return true }), nil
}

func (s *Store) FindByID(_ context.Context, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.items[id]
	if !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	return e, nil
}

func (s *Store) FindByDate(_ context.Context, date core.Date) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool { return e.Date.Equal(date.Time) }), nil
}

func (s *Store) FindByDateRange(_ context.Context, from, to core.Date) ([]core.Expense, error) {
	return s.filter(func(e core.Expense) bool {
		return !e.Date.Before(from.Time) && !e.Date.After(to.Time)
	}), nil
}

// Save stores the expense, assigning the next id on insert.
func (s *Store) Save(_ context.Context, e core.Expense) (core.Expense, error) {
	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if e.ID == 0 {
		s.nextID++
		e.ID = s.nextID
	} else if _, ok := s.items[e.ID]; !ok {
		return core.Expense{}, fmt.Errorf("expense %d: %w", e.ID, core.ErrNotFound)
	}
	s.items[e.ID] = e
	return e, nil
}

func (s *Store) ExistsByID(_ context.Context, id int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[id]
	return ok, nil
}

func (s *Store) DeleteByID(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return fmt.Errorf("expense %d: %w", id, core.ErrNotFound)
	}
	delete(s.items, id)
	return nil
}

func (s *Store) Count(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return int64(len(s.items)), nil
}

func (s *Store) Close() error { return nil }

// filter returns matches ordered by date then id, like the SQLite store.
func (s *Store) filter(keep func(core.Expense) bool) []core.Expense {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Expense, 0, len(s.items))
	for _, e := range s.items {
		if keep(e) {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.Before(out[j].Date.Time)
		}
		return out[i].ID < out[j].ID
	})
	return out
}
