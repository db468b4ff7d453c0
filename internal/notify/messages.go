package notify

import (
	"encoding/json"
	"time"
)

// Change actions carried on the transaction change feed.
const (
	ActionCreated = "created"
	ActionUpdated = "updated"
	ActionDeleted = "deleted"
)

// TransactionChangedMessage is the lightweight change-feed message. It carries
// only the transaction id, action, and version; consumers fetch the current
// row from the database, so a stale message is harmless.
type TransactionChangedMessage struct {
	ID        string    `json:"id"`
	Action    string    `json:"action"`
	Version   int64     `json:"version"`
	Timestamp time.Time `json:"timestamp"`
}

// NewTransactionChangedMessage creates a change message for the given row.
func NewTransactionChangedMessage(id, action string, version int64) *TransactionChangedMessage {
	return &TransactionChangedMessage{
		ID:        id,
		Action:    action,
		Version:   version,
		Timestamp: time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *TransactionChangedMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// TransactionChangedMessageFromJSON creates a message from JSON bytes
func TransactionChangedMessageFromJSON(data []byte) (*TransactionChangedMessage, error) {
	var msg TransactionChangedMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	return &msg, nil
}
