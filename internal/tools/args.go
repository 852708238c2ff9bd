package tools

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"expenseai/internal/core"
)

// ID accepts an expense id as a JSON number (3 or 3.0) or a numeric string, which
// is how models tend to send them.
type ID int64

func (id *ID) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*id = ID(n)
		return nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int64(f)) {
		return fmt.Errorf("%w: id %s is not an integer", core.ErrInvalidArgument, string(b))
	}
	*id = ID(int64(f))
	return nil
}

var _ json.Unmarshaler = (*ID)(nil)

func parseDate(field, s string) (core.Date, error) {
	if strings.TrimSpace(s) == "" {
		return core.Date{}, fmt.Errorf("%w: %s is required (yyyy-MM-dd)", core.ErrInvalidArgument, field)
	}
	return core.ParseDate(s)
}

func parseMonth(s string) (core.Month, error) {
	if strings.TrimSpace(s) == "" {
		return core.Month{}, fmt.Errorf("%w: yearMonth is required (yyyy-MM)", core.ErrInvalidArgument)
	}
	return core.ParseMonth(s)
}
