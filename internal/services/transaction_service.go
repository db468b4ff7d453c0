// Package services provides business logic and orchestration services.
package services

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"dealtrack/internal/core"
	"dealtrack/internal/notify"
)

// Repository is the storage surface the transaction service needs.
type Repository interface {
	Create(ctx context.Context, userID string, p core.Payload) (core.Transaction, error)
	Update(ctx context.Context, userID, id string, p core.Payload) (core.Transaction, error)
	Get(ctx context.Context, userID, id string) (core.Transaction, error)
	List(ctx context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error)
	Delete(ctx context.Context, userID, id string) error
}

// ChangePublisher emits change-feed messages. May be nil when the broker is
// not configured.
type ChangePublisher interface {
	PublishTransactionChanged(ctx context.Context, id, action string, version int64) error
	Close() error
}

// TransactionService orchestrates transaction writes: SQLite first, then a
// best-effort change message. A broker outage never fails the user's request;
// the export worker catches up from current database state on the next
// message.
type TransactionService struct {
	repo      Repository
	publisher ChangePublisher
}

func NewTransactionService(repo Repository, publisher ChangePublisher) *TransactionService {
	return &TransactionService{
		repo:      repo,
		publisher: publisher,
	}
}

// Create persists a submitted wizard payload and announces the new row.
func (s *TransactionService) Create(ctx context.Context, userID string, p core.Payload) (core.Transaction, error) {
	txn, err := s.repo.Create(ctx, userID, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}

	s.publishChange(ctx, txn.ID, notify.ActionCreated, txn.Version)
	return txn, nil
}

// Update replaces a transaction's data and announces the new version.
func (s *TransactionService) Update(ctx context.Context, userID, id string, p core.Payload) (core.Transaction, error) {
	txn, err := s.repo.Update(ctx, userID, id, p)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}

	s.publishChange(ctx, txn.ID, notify.ActionUpdated, txn.Version)
	return txn, nil
}

// Get fetches one transaction scoped to its owner.
func (s *TransactionService) Get(ctx context.Context, userID, id string) (core.Transaction, error) {
	return s.repo.Get(ctx, userID, id)
}

// List returns the owner's transactions, newest first, optionally filtered
// by status.
func (s *TransactionService) List(ctx context.Context, userID string, status core.TransactionStatus) ([]core.Transaction, error) {
	return s.repo.List(ctx, userID, status)
}

// Delete removes a transaction and announces the removal.
func (s *TransactionService) Delete(ctx context.Context, userID, id string) error {
	txn, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, userID, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}

	s.publishChange(ctx, id, notify.ActionDeleted, txn.Version)
	return nil
}

func (s *TransactionService) publishChange(ctx context.Context, id, action string, version int64) {
	if s.publisher == nil {
		slog.WarnContext(ctx, "Change publisher not available, skipping message",
			"id", id, "action", action)
		return
	}
	if err := s.publisher.PublishTransactionChanged(ctx, id, action, version); err != nil {
		// The row is already persisted; the change feed is best effort.
		slog.ErrorContext(ctx, "Failed to publish change message",
			"id", id, "action", action, "error", err)
	}
}

// Close closes the underlying storage and broker connections.
func (s *TransactionService) Close() error {
	var errs []error

	if closer, ok := s.repo.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}

	if s.publisher != nil {
		if err := s.publisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("notify: %w", err))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("close transaction service: %v", errs)
	}

	return nil
}
