// Package worker exports ledger transactions to the configured destination,
// driven by AMQP events with a periodic scan as a safety net.
package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"fairshare/internal/amqp"
	"fairshare/internal/core"
	"fairshare/internal/sheets"
	"fairshare/internal/storage"
)

// Store is the part of the persisted ledger the worker reads and updates.
type Store interface {
	GetTransaction(ctx context.Context, id string) (core.Transaction, error)
	GetPendingSync(ctx context.Context, limit int) ([]storage.PendingSync, error)
	MarkSynced(ctx context.Context, id string) error
	MarkSyncError(ctx context.Context, id string) error
}

// SyncWorker handles synchronization of transactions from SQLite to the
// transfer sheet.
type SyncWorker struct {
	store     Store
	exporter  sheets.Exporter
	batchSize int
}

func NewSyncWorker(store Store, exporter sheets.Exporter, batchSize int) *SyncWorker {
	if batchSize < 1 {
		batchSize = 10
	}
	return &SyncWorker{
		store:     store,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleEvent dispatches one AMQP event. A returned error makes the
// consumer requeue the message.
func (w *SyncWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	switch ev.Type {
	case amqp.EventCreated:
		return w.HandleCreated(ctx, ev.ID)
	case amqp.EventDeleted:
		return w.HandleDeleted(ctx, ev.ID)
	default:
		slog.WarnContext(ctx, "Ignoring unknown event type", "type", ev.Type, "transaction_id", ev.ID)
		return nil
	}
}

// HandleCreated exports a newly created transaction. A transaction that no
// longer exists was deleted before export and is skipped.
func (w *SyncWorker) HandleCreated(ctx context.Context, id string) error {
	slog.InfoContext(ctx, "Processing created event", "transaction_id", id)

	tx, err := w.store.GetTransaction(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction gone before export, skipping", "transaction_id", id)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	if err := w.syncTransaction(ctx, tx); err != nil {
		return fmt.Errorf("sync transaction: %w", err)
	}
	return nil
}

// HandleDeleted removes the exported rows of a deleted transaction.
func (w *SyncWorker) HandleDeleted(ctx context.Context, id string) error {
	slog.InfoContext(ctx, "Processing deleted event", "transaction_id", id)

	removed, err := w.exporter.DeleteTransaction(ctx, id)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to delete exported rows", "transaction_id", id, "error", err)
		return fmt.Errorf("delete exported rows: %w", err)
	}

	slog.InfoContext(ctx, "Successfully deleted exported rows", "transaction_id", id, "rows", removed)
	return nil
}

// ProcessPending exports transactions that haven't been synced yet.
// It is the backup path when AMQP messages are lost.
func (w *SyncWorker) ProcessPending(ctx context.Context) (synced, failed int, err error) {
	return w.processBatch(ctx, w.batchSize)
}

// StartupSyncCheck exports a larger batch of pending transactions at
// worker startup, recovering from downtime.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	synced, failed, err := w.processBatch(ctx, w.batchSize*5)
	if err != nil {
		return fmt.Errorf("startup sync check: %w", err)
	}
	if synced+failed == 0 {
		slog.InfoContext(ctx, "No pending transactions found on startup")
		return nil
	}
	slog.InfoContext(ctx, "Startup sync completed",
		"total", synced+failed,
		"synced", synced,
		"errors", failed)
	return nil
}

// Run calls ProcessPending every interval until ctx is done.
func (w *SyncWorker) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, _, err := w.ProcessPending(ctx); err != nil {
				slog.ErrorContext(ctx, "Periodic sync failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) processBatch(ctx context.Context, limit int) (synced, failed int, err error) {
	pending, err := w.store.GetPendingSync(ctx, limit)
	if err != nil {
		return 0, 0, fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return 0, 0, nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	for _, p := range pending {
		tx, err := w.store.GetTransaction(ctx, p.ID)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to get transaction", "transaction_id", p.ID, "error", err)
			if err := w.store.MarkSyncError(ctx, p.ID); err != nil {
				slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", p.ID, "error", err)
			}
			failed++
			continue
		}
		if err := w.syncTransaction(ctx, tx); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "transaction_id", p.ID, "attempts", p.Attempts, "error", err)
			failed++
			continue
		}
		synced++
	}
	return synced, failed, nil
}

func (w *SyncWorker) syncTransaction(ctx context.Context, tx core.Transaction) error {
	ref, err := w.exporter.ExportTransaction(ctx, tx)
	if err != nil {
		if markErr := w.store.MarkSyncError(ctx, tx.ID); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "transaction_id", tx.ID, "error", markErr)
		}
		return fmt.Errorf("export transaction: %w", err)
	}

	// The export itself succeeded, so a failed status update only means the
	// transaction is exported again later, which the exporter tolerates.
	if err := w.store.MarkSynced(ctx, tx.ID); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "transaction_id", tx.ID, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"transaction_id", tx.ID,
		"sheets_ref", ref,
		"title", tx.Title,
		"transfers", len(tx.Transfers))
	return nil
}
