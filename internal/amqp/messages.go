package amqp

import (
	"encoding/json"
	"errors"
	"time"
)

// Reasons carried by InsightRefreshMessage.
const (
	ReasonTransactionCreated = "transaction_created"
	ReasonImport             = "import"
	ReasonManual             = "manual"
)

// InsightRefreshMessage asks the worker to regenerate a user's stored
// insights. It carries only identifiers; the worker reads the history itself.
type InsightRefreshMessage struct {
	UserID         int64     `json:"user_id"`
	Reason         string    `json:"reason"`
	TransactionIDs []int64   `json:"transaction_ids,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}

func NewInsightRefreshMessage(userID int64, reason string, txIDs ...int64) *InsightRefreshMessage {
	return &InsightRefreshMessage{
		UserID:         userID,
		Reason:         reason,
		TransactionIDs: txIDs,
		Timestamp:      time.Now(),
	}
}

// ToJSON converts the message to JSON bytes
func (m *InsightRefreshMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InsightRefreshMessageFromJSON decodes a message and rejects ones without a user.
func InsightRefreshMessageFromJSON(data []byte) (*InsightRefreshMessage, error) {
	var msg InsightRefreshMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.UserID <= 0 {
		return nil, errors.New("message has no user_id")
	}
	return &msg, nil
}
