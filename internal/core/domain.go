package core

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	CategoryFood          Category = "FOOD"
	CategoryGroceries     Category = "GROCERIES"
	CategoryEntertainment Category = "ENTERTAINMENT"
	CategoryTransport     Category = "TRANSPORT"
	CategoryShopping      Category = "SHOPPING"
	CategoryOther         Category = "OTHER"
)

const (
	dateLayout  = "2006-01-02"
	monthLayout = "2006-01"
)

type (
	// Category is a label from the closed expense vocabulary.
	Category string

	Date struct {
		time.Time
	}

	Expense struct {
		ID          int64           `json:"id"`
		Date        Date            `json:"date"`
		Category    Category        `json:"category"`
		Amount      decimal.Decimal `json:"amount"`
		Description string          `json:"description"`
	}

	// ExpensePatch carries a partial update. Nil fields are left unchanged.
	ExpensePatch struct {
		Date        *Date
		Category    *string
		Amount      *decimal.Decimal
		Description *string
	}
)

// vocabulary order is significant: classification ties resolve to the earliest label.
var vocabulary = []Category{
	CategoryFood,
	CategoryGroceries,
	CategoryEntertainment,
	CategoryTransport,
	CategoryShopping,
	CategoryOther,
}

var (
	ErrInvalidAmount    = errors.New("invalid amount")
	ErrInvalidCategory  = errors.New("invalid category")
	ErrZeroDate         = errors.New("date cannot be zero")
	ErrDescriptionLimit = errors.New("description too long (max 500 characters)")
)

func init() {
	// amounts travel as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true
}

// Categories returns the vocabulary in its fixed order.
func Categories() []Category {
	return append([]Category(nil), vocabulary...)
}

// ParseCategory matches s against the vocabulary, ignoring case and surrounding space.
func ParseCategory(s string) (Category, bool) {
	s = strings.TrimSpace(s)
	for _, c := range vocabulary {
		if strings.EqualFold(s, string(c)) {
			return c, true
		}
	}
	return "", false
}

func (c Category) String() string { return string(c) }

func (c Category) Validate() error {
	if _, ok := ParseCategory(string(c)); !ok || strings.ToUpper(string(c)) != string(c) {
		return fmt.Errorf("%w: %q", ErrInvalidCategory, string(c))
	}
	return nil
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses a yyyy-MM-dd string.
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, fmt.Errorf("%w: date %q must be yyyy-MM-dd", ErrInvalidArgument, s)
	}
	return Date{Time: t}, nil
}

// Today returns the current UTC calendar day.
func Today() Date {
	now := time.Now().UTC()
	return NewDate(now.Year(), int(now.Month()), now.Day())
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrZeroDate
	}
	return nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

// Month returns the calendar month containing d.
func (d Date) Month() Month {
	return Month{Year: d.Year(), Month: d.Time.Month()}
}

func (d Date) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Date) UnmarshalText(b []byte) error {
	parsed, err := ParseDate(string(b))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// MarshalJSON overrides the promoted time.Time encoding.
func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.String() + `"`), nil
}

func (d *Date) UnmarshalJSON(b []byte) error {
	s, err := strconv.Unquote(string(b))
	if err != nil {
		return fmt.Errorf("%w: date must be a yyyy-MM-dd string", ErrInvalidArgument)
	}
	return d.UnmarshalText([]byte(s))
}

func (e Expense) Validate() error {
	if err := e.Date.Validate(); err != nil {
		return err
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if len(e.Description) > 500 {
		return ErrDescriptionLimit
	}
	return e.Category.Validate()
}

// Apply returns a copy of e with the non-nil patch fields set. Category is taken verbatim;
// callers normalize it first.
func (p ExpensePatch) Apply(e Expense) Expense {
	if p.Date != nil {
		e.Date = *p.Date
	}
	if p.Category != nil {
		e.Category = Category(*p.Category)
	}
	if p.Amount != nil {
		e.Amount = *p.Amount
	}
	if p.Description != nil {
		e.Description = *p.Description
	}
	return e
}
