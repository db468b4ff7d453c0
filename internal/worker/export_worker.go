// Package worker exports closed deals to the commission report sink.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"dealtrack/internal/core"
	"dealtrack/internal/export"
	"dealtrack/internal/notify"
	"dealtrack/internal/storage"
)

// ExportStorage is the storage surface the export worker needs.
type ExportStorage interface {
	GetByID(ctx context.Context, id string) (core.Transaction, error)
	ListUnexportedClosed(ctx context.Context, limit int) ([]core.Transaction, error)
	IsExported(ctx context.Context, id string, version int64) (bool, error)
	MarkExported(ctx context.Context, id string, version int64, reportRef string) error
}

// ExportWorker mirrors closed transactions into the commission report. It is
// driven by change-feed messages, with a periodic database scan as the backup
// path for lost messages.
type ExportWorker struct {
	storage   ExportStorage
	reports   export.ReportWriter
	batchSize int
}

func NewExportWorker(storage ExportStorage, reports export.ReportWriter, batchSize int) *ExportWorker {
	return &ExportWorker{
		storage:   storage,
		reports:   reports,
		batchSize: batchSize,
	}
}

// HandleChangeMessage processes a single change-feed message. Deletions and
// non-closed deals are skipped; exporting is idempotent per (id, version).
func (w *ExportWorker) HandleChangeMessage(ctx context.Context, msg *notify.TransactionChangedMessage) error {
	slog.InfoContext(ctx, "Processing change message",
		"id", msg.ID,
		"action", msg.Action,
		"version", msg.Version)

	if msg.Action == notify.ActionDeleted {
		// Reports are append-only; a deleted deal simply stops updating.
		slog.DebugContext(ctx, "Skipping deleted transaction", "id", msg.ID)
		return nil
	}

	txn, err := w.storage.GetByID(ctx, msg.ID)
	if errors.Is(err, storage.ErrNotFound) {
		// Deleted between publish and consume.
		slog.WarnContext(ctx, "Transaction vanished before export", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	return w.exportIfDue(ctx, txn)
}

func (w *ExportWorker) exportIfDue(ctx context.Context, txn core.Transaction) error {
	if txn.Status != core.StatusClosed {
		slog.DebugContext(ctx, "Transaction not closed, nothing to export",
			"id", txn.ID, "status", txn.Status)
		return nil
	}

	done, err := w.storage.IsExported(ctx, txn.ID, txn.Version)
	if err != nil {
		return fmt.Errorf("check export state: %w", err)
	}
	if done {
		slog.DebugContext(ctx, "Transaction version already exported",
			"id", txn.ID, "version", txn.Version)
		return nil
	}

	ref, err := w.reports.AppendDeal(ctx, txn)
	if err != nil {
		return fmt.Errorf("append deal to report: %w", err)
	}

	if err := w.storage.MarkExported(ctx, txn.ID, txn.Version, ref); err != nil {
		// The row reached the sink; a failed mark means one extra row on the
		// next pass, not data loss.
		slog.ErrorContext(ctx, "Failed to mark as exported",
			"id", txn.ID, "error", err)
		return nil
	}

	slog.InfoContext(ctx, "Deal exported",
		"id", txn.ID,
		"version", txn.Version,
		"report_ref", ref,
		"client_name", txn.ClientName)

	return nil
}

// ProcessPendingExports scans for closed deals the change feed missed.
func (w *ExportWorker) ProcessPendingExports(ctx context.Context) error {
	pending, err := w.storage.ListUnexportedClosed(ctx, w.batchSize)
	if err != nil {
		return fmt.Errorf("list pending exports: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending exports", "count", len(pending))

	for _, txn := range pending {
		if err := w.exportIfDue(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to export pending deal",
				"id", txn.ID, "error", err)
		}
	}
	return nil
}

// StartupExportCheck drains the pending backlog once at worker startup, with a
// larger batch to recover from downtime.
func (w *ExportWorker) StartupExportCheck(ctx context.Context) error {
	pending, err := w.storage.ListUnexportedClosed(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("list pending exports for startup check: %w", err)
	}
	if len(pending) == 0 {
		slog.InfoContext(ctx, "No pending exports found on startup")
		return nil
	}

	slog.InfoContext(ctx, "Found pending exports on startup, processing...",
		"count", len(pending))

	successCount := 0
	errorCount := 0
	for _, txn := range pending {
		if err := w.exportIfDue(ctx, txn); err != nil {
			slog.ErrorContext(ctx, "Failed to export deal during startup",
				"id", txn.ID, "error", err)
			errorCount++
			continue
		}
		successCount++
	}

	slog.InfoContext(ctx, "Startup export check completed",
		"total", len(pending),
		"exported", successCount,
		"errors", errorCount)

	return nil
}
