package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"expenseai/internal/core"
)

const maxBodyBytes = 1 << 20

type (
	// expenseRequest is the body of POST /expenses and PUT /expenses/{id}.
	expenseRequest struct {
		Date        string           `json:"date"`
		Category    string           `json:"category"`
		Amount      *decimal.Decimal `json:"amount"`
		Description string           `json:"description"`
	}

	chatRequest struct {
		Message string `json:"message"`
	}

	chatResponse struct {
		Reply string `json:"reply"`
	}
)

// decodeJSON reads a single JSON object from the body into dst. Unknown fields and
// trailing data are rejected.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("%w: request body is empty", core.ErrInvalidArgument)
		case errors.As(err, &maxErr):
			return fmt.Errorf("%w: request body exceeds %d bytes", core.ErrInvalidArgument, maxErr.Limit)
		default:
			return fmt.Errorf("%w: malformed JSON body: %v", core.ErrInvalidArgument, err)
		}
	}
	if dec.More() {
		return fmt.Errorf("%w: request body must hold a single JSON object", core.ErrInvalidArgument)
	}
	return nil
}

// toExpense validates the request shape. Category is passed through for the service
// to normalize.
func (req expenseRequest) toExpense() (core.Expense, error) {
	date, err := core.ParseDate(req.Date)
	if err != nil {
		return core.Expense{}, err
	}
	if req.Amount == nil {
		return core.Expense{}, fmt.Errorf("%w: amount is required", core.ErrInvalidArgument)
	}
	return core.Expense{
		Date:        date,
		Category:    core.Category(sanitizeInput(req.Category)),
		Amount:      *req.Amount,
		Description: sanitizeInput(req.Description),
	}, nil
}

func pathID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: id %q must be a positive integer", core.ErrInvalidArgument, raw)
	}
	return id, nil
}

// sanitizeInput removes control characters except tab and newlines, and trims whitespace.
func sanitizeInput(s string) string {
	return strings.TrimSpace(strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s))
}
