package amqp

import (
	"encoding/json"
	"time"
)

// ExpenseExportMessage is the lightweight message queued when an expense is
// submitted. It carries only the composite key; the worker fetches the full
// record from the store before exporting it.
type ExpenseExportMessage struct {
	UserEmail        string    `json:"user_email"`
	ExpenseTimestamp string    `json:"expense_timestamp"`
	Timestamp        time.Time `json:"timestamp"`
}

// NewExpenseExportMessage creates an export message for the given expense key
func NewExpenseExportMessage(userEmail, expenseTimestamp string) *ExpenseExportMessage {
	return &ExpenseExportMessage{
		UserEmail:        userEmail,
		ExpenseTimestamp: expenseTimestamp,
		Timestamp:        time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseExportMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseExportMessageFromJSON creates a message from JSON bytes
func ExpenseExportMessageFromJSON(data []byte) (*ExpenseExportMessage, error) {
	var msg ExpenseExportMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
