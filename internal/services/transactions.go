package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"finbook/internal/amqp"
	"finbook/internal/core"
	"finbook/internal/importer"
	"finbook/internal/storage"
)

// TransactionStore is the persistence surface the service writes through.
type TransactionStore interface {
	CreateTransaction(ctx context.Context, userID string, t core.Transaction) error
	BulkCreateTransactions(ctx context.Context, userID string, txs []core.Transaction) error
	UpdateTransaction(ctx context.Context, userID string, t core.Transaction) error
	DeleteTransaction(ctx context.Context, userID, id string) error
	BulkDeleteTransactions(ctx context.Context, userID string, ids []string) ([]string, error)
	ListTransactions(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionDetail, error)
	GetTransaction(ctx context.Context, userID, id string) (storage.TransactionDetail, error)
}

// EventPublisher emits change notifications. Publishing is best-effort; a
// failed publish never fails the write that triggered it.
type EventPublisher interface {
	PublishTransactionEvent(ctx context.Context, event *amqp.TransactionEvent) error
}

// Invalidator drops derived state for a user after a write.
type Invalidator interface {
	Invalidate(userID string)
}

// TransactionService owns transaction writes: id assignment, validation,
// persistence, summary invalidation and event publishing.
type TransactionService struct {
	store     TransactionStore
	events    EventPublisher
	summaries Invalidator

	newID func() string
}

// NewTransactionService wires the service. events may be nil when no broker
// is configured; summaries may be nil in tests.
func NewTransactionService(store TransactionStore, events EventPublisher, summaries Invalidator) *TransactionService {
	return &TransactionService{
		store:     store,
		events:    events,
		summaries: summaries,
		newID:     uuid.NewString,
	}
}

func (s *TransactionService) Create(ctx context.Context, userID string, t core.Transaction) (core.Transaction, error) {
	t.ID = s.newID()
	if err := t.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if err := s.store.CreateTransaction(ctx, userID, t); err != nil {
		return core.Transaction{}, err
	}
	s.afterWrite(ctx, amqp.EventTransactionsCreated, userID, t.AccountID, []string{t.ID})
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, userID string, t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	if err := s.store.UpdateTransaction(ctx, userID, t); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.EventTransactionsCreated, userID, t.AccountID, []string{t.ID})
	return nil
}

func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	if err := s.store.DeleteTransaction(ctx, userID, id); err != nil {
		return err
	}
	s.afterWrite(ctx, amqp.EventTransactionsDeleted, userID, "", []string{id})
	return nil
}

// BulkCreate persists a batch of transactions atomically. Validation failures
// reject the whole batch before anything is written.
func (s *TransactionService) BulkCreate(ctx context.Context, userID string, txs []core.Transaction) ([]core.Transaction, error) {
	for i := range txs {
		txs[i].ID = s.newID()
		if err := txs[i].Validate(); err != nil {
			return nil, fmt.Errorf("transaction %d: %w", i, err)
		}
	}
	if err := s.store.BulkCreateTransactions(ctx, userID, txs); err != nil {
		return nil, err
	}
	ids := make([]string, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	s.afterWrite(ctx, amqp.EventTransactionsCreated, userID, "", ids)
	return txs, nil
}

// BulkDelete removes the user's transactions among ids and reports the ids
// actually deleted.
func (s *TransactionService) BulkDelete(ctx context.Context, userID string, ids []string) ([]string, error) {
	deleted, err := s.store.BulkDeleteTransactions(ctx, userID, ids)
	if err != nil {
		return nil, err
	}
	if len(deleted) > 0 {
		s.afterWrite(ctx, amqp.EventTransactionsDeleted, userID, "", deleted)
	}
	return deleted, nil
}

func (s *TransactionService) List(ctx context.Context, f storage.TransactionFilter) ([]storage.TransactionDetail, error) {
	return s.store.ListTransactions(ctx, f)
}

func (s *TransactionService) Get(ctx context.Context, userID, id string) (storage.TransactionDetail, error) {
	return s.store.GetTransaction(ctx, userID, id)
}

// Import persists reconciled records into the target account as one atomic
// batch and returns the created transactions.
func (s *TransactionService) Import(ctx context.Context, userID, accountID string, records []importer.Record) ([]core.Transaction, error) {
	if accountID == "" {
		return nil, core.ErrNoAccount
	}
	txs := make([]core.Transaction, 0, len(records))
	for i, rec := range records {
		date, err := core.ParseDate(rec.Date)
		if err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		t := core.Transaction{
			ID:        s.newID(),
			Amount:    core.Money{Miliunits: rec.Amount},
			Payee:     rec.Payee,
			Notes:     rec.Notes,
			Date:      date,
			AccountID: accountID,
		}
		if err := t.Validate(); err != nil {
			return nil, fmt.Errorf("record %d: %w", i, err)
		}
		txs = append(txs, t)
	}
	if err := s.store.BulkCreateTransactions(ctx, userID, txs); err != nil {
		return nil, err
	}
	ids := make([]string, len(txs))
	for i, t := range txs {
		ids[i] = t.ID
	}
	s.afterWrite(ctx, amqp.EventTransactionsImported, userID, accountID, ids)
	return txs, nil
}

func (s *TransactionService) afterWrite(ctx context.Context, eventType, userID, accountID string, ids []string) {
	if s.summaries != nil {
		s.summaries.Invalidate(userID)
	}
	if s.events == nil {
		return
	}
	event := amqp.NewTransactionEvent(eventType, userID, accountID, ids)
	if err := s.events.PublishTransactionEvent(ctx, event); err != nil {
		slog.WarnContext(ctx, "Failed to publish transaction event",
			"type", eventType, "user_id", userID, "error", err)
	}
}
