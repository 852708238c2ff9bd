package core

import (
	"fmt"
	"strings"
	"time"
)

// Month is a calendar month, independent of time zone.
type Month struct {
	Year  int
	Month time.Month
}

// ParseMonth parses a yyyy-MM string.
func ParseMonth(s string) (Month, error) {
	t, err := time.Parse(monthLayout, strings.TrimSpace(s))
	if err != nil {
		return Month{}, fmt.Errorf("%w: month %q must be yyyy-MM", ErrInvalidArgument, s)
	}
	return Month{Year: t.Year(), Month: t.Month()}, nil
}

// CurrentMonth returns the month containing today (UTC).
func CurrentMonth() Month {
	return Today().Month()
}

func (m Month) String() string {
	return fmt.Sprintf("%04d-%02d", m.Year, int(m.Month))
}

// First returns the first day of the month.
func (m Month) First() Date {
	return NewDate(m.Year, int(m.Month), 1)
}

// Last returns the last day of the month.
func (m Month) Last() Date {
	return Date{Time: m.First().AddDate(0, 1, -1)}
}

// Days returns the number of days in the month.
func (m Month) Days() int {
	return m.Last().Day()
}

func (m Month) Previous() Month {
	prev := m.First().AddDate(0, -1, 0)
	return Month{Year: prev.Year(), Month: prev.Month()}
}

// Contains reports whether d falls within the month, both ends inclusive.
func (m Month) Contains(d Date) bool {
	return d.Year() == m.Year && d.Time.Month() == m.Month
}

func (m Month) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

func (m Month) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

func (m *Month) UnmarshalText(b []byte) error {
	parsed, err := ParseMonth(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
