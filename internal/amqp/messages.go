package amqp

import (
	"encoding/json"
	"time"

	"budgetdash/internal/core"
)

// ExpenseAppendedMessage announces one record that reached the ledger.
// It carries the full record so consumers never need to read it back.
type ExpenseAppendedMessage struct {
	RowRef      string             `json:"rowRef"`
	Expense     core.ExpenseRecord `json:"expense"`
	PublishedAt time.Time          `json:"publishedAt"`
}

// NewExpenseAppendedMessage wraps rec and the backend's row reference.
func NewExpenseAppendedMessage(rec core.ExpenseRecord, rowRef string) *ExpenseAppendedMessage {
	return &ExpenseAppendedMessage{
		RowRef:      rowRef,
		Expense:     rec,
		PublishedAt: time.Now().UTC(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *ExpenseAppendedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// ExpenseAppendedMessageFromJSON decodes a message body.
func ExpenseAppendedMessageFromJSON(data []byte) (*ExpenseAppendedMessage, error) {
	var msg ExpenseAppendedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
