package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"expenseai/internal/core"
)

// Event actions published on expense changes.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// ExpenseEvent describes a single change to the expense store. It carries the full record so
// consumers never read back from the store, which may already hold a newer version.
type ExpenseEvent struct {
	ID        string       `json:"id"`
	Action    string       `json:"action"`
	Expense   core.Expense `json:"expense"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewExpenseEvent stamps a new event with a random id and the current time.
func NewExpenseEvent(action string, e core.Expense) *ExpenseEvent {
	return &ExpenseEvent{
		ID:        uuid.NewString(),
		Action:    action,
		Expense:   e,
		Timestamp: time.Now().UTC(),
	}
}

func (m *ExpenseEvent) Validate() error {
	switch m.Action {
	case ActionCreated, ActionUpdated, ActionDeleted:
	default:
		return fmt.Errorf("unknown action %q", m.Action)
	}
	if m.Expense.ID <= 0 {
		return fmt.Errorf("event %s has no expense id", m.ID)
	}
	return nil
}

// ToJSON converts the event to JSON bytes
func (m *ExpenseEvent) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseEventFromJSON decodes and validates an event.
func ExpenseEventFromJSON(data []byte) (*ExpenseEvent, error) {
	var msg ExpenseEvent
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if err := msg.Validate(); err != nil {
		return nil, err
	}
	return &msg, nil
}
