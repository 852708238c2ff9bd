package http

import (
	"log/slog"
	"net/http"

	"expenseai/internal/core"
)

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	expenses, err := s.expenses.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(expenses))
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	e, err := s.expenses.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleExpensesByDate(w http.ResponseWriter, r *http.Request) {
	date, err := core.ParseDate(r.PathValue("date"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.expenses.ByDate(r.Context(), date)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(expenses))
}

func (s *Server) handleExpensesByMonth(w http.ResponseWriter, r *http.Request) {
	month, err := core.ParseMonth(r.PathValue("yearMonth"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	expenses, err := s.expenses.ByMonth(r.Context(), month)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(expenses))
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}

	slog.InfoContext(r.Context(), "Expense created",
		"id", saved.ID,
		"date", saved.Date.String(),
		"category", saved.Category,
		"amount", saved.Amount.String())
	writeJSON(w, http.StatusCreated, saved)
}

func (s *Server) handleReplaceExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var req expenseRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	e, err := req.toExpense()
	if err != nil {
		writeError(w, r, err)
		return
	}

	saved, err := s.expenses.Replace(r.Context(), id, e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Expense replaced", "id", saved.ID)
	writeJSON(w, http.StatusOK, saved)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.expenses.Delete(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	slog.InfoContext(r.Context(), "Expense deleted", "id", id)
	w.WriteHeader(http.StatusNoContent)
}

// nonNil makes empty results encode as [] rather than null.
func nonNil(expenses []core.Expense) []core.Expense {
	if expenses == nil {
		return []core.Expense{}
	}
	return expenses
}
