// Package worker consumes transaction events off the broker.
package worker

import (
	"fmt"

	"finbook/internal/amqp"
	applog "finbook/internal/log"
)

// AuditWorker records a structured audit line for every transaction event.
// It is the consuming end of the events the API publishes; downstream
// integrations hang off the same queue.
type AuditWorker struct {
	log *applog.Logger
}

func NewAuditWorker(log *applog.Logger) *AuditWorker {
	return &AuditWorker{log: log.WithComponent(applog.ComponentWorker)}
}

// HandleEvent is the AMQP consumer callback. A non-nil return nacks the
// delivery for redelivery, so only transient failures should error.
func (w *AuditWorker) HandleEvent(event *amqp.TransactionEvent) error {
	if event == nil {
		return fmt.Errorf("nil event")
	}
	switch event.Type {
	case amqp.EventTransactionsCreated, amqp.EventTransactionsDeleted, amqp.EventTransactionsImported:
	default:
		// Unknown types are logged and acked; redelivering them cannot help.
		w.log.Warn("Unknown event type", "type", event.Type, "user_id", event.UserID)
		return nil
	}

	w.log.Info("Transaction event",
		"type", event.Type,
		"user_id", event.UserID,
		"account_id", event.AccountID,
		"count", event.Count,
		"occurred_at", event.OccurredAt)
	return nil
}
