package amqp

import (
	"encoding/json"
	"time"
)

// Event types published on the transaction stream.
const (
	EventTransactionsCreated  = "transactions.created"
	EventTransactionsDeleted  = "transactions.deleted"
	EventTransactionsImported = "transactions.imported"
)

// TransactionEvent notifies downstream consumers that transactions changed.
// Payloads carry ids only; consumers re-read state through the API.
type TransactionEvent struct {
	Type       string    `json:"type"`
	UserID     string    `json:"user_id"`
	AccountID  string    `json:"account_id,omitempty"`
	IDs        []string  `json:"ids,omitempty"`
	Count      int       `json:"count"`
	OccurredAt time.Time `json:"occurred_at"`
}

func NewTransactionEvent(eventType, userID, accountID string, ids []string) *TransactionEvent {
	return &TransactionEvent{
		Type:       eventType,
		UserID:     userID,
		AccountID:  accountID,
		IDs:        ids,
		Count:      len(ids),
		OccurredAt: time.Now().UTC(),
	}
}

func (e *TransactionEvent) ToJSON() ([]byte, error) {
	return json.Marshal(e)
}

func TransactionEventFromJSON(data []byte) (*TransactionEvent, error) {
	var e TransactionEvent
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}
	return &e, nil
}
