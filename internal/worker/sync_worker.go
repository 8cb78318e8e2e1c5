package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets"
	"budget/internal/storage"
)

// SyncStore is the storage the worker reads from and records sync results in.
type SyncStore interface {
	sheets.TransactionReader
	sheets.CategoryReader
	GetVersion(ctx context.Context, id int64) (int64, error)
	GetPendingSyncTransactions(ctx context.Context, limit int) ([]storage.PendingSyncTransaction, error)
	MarkSynced(ctx context.Context, id, version int64) error
	MarkSyncError(ctx context.Context, id int64) error
}

// SyncWorker exports transactions from SQLite to Google Sheets
type SyncWorker struct {
	storage   SyncStore
	exporter  sheets.TransactionExporter
	batchSize int
}

func NewSyncWorker(storage SyncStore, exporter sheets.TransactionExporter, batchSize int) *SyncWorker {
	if batchSize <= 0 {
		batchSize = 10
	}
	return &SyncWorker{
		storage:   storage,
		exporter:  exporter,
		batchSize: batchSize,
	}
}

// HandleSyncMessage processes a single transaction sync message from AMQP.
// Messages for deleted rows or superseded versions are dropped.
func (w *SyncWorker) HandleSyncMessage(ctx context.Context, msg *amqp.TransactionSyncMessage) error {
	slog.InfoContext(ctx, "Processing sync message",
		"message_id", msg.MessageID,
		"id", msg.ID,
		"version", msg.Version)

	current, err := w.storage.GetVersion(ctx, msg.ID)
	if errors.Is(err, core.ErrNotFound) {
		slog.InfoContext(ctx, "Transaction no longer exists, dropping message", "id", msg.ID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("get transaction version: %w", err)
	}
	if current > msg.Version {
		slog.InfoContext(ctx, "Stale sync message, newer version pending",
			"id", msg.ID, "message_version", msg.Version, "current_version", current)
		return nil
	}

	return w.sync(ctx, msg.ID, current)
}

// ProcessPendingTransactions exports rows still marked pending. It is the
// fallback for messages lost while the broker was unreachable.
func (w *SyncWorker) ProcessPendingTransactions(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize)
}

// StartupSyncCheck runs a larger sweep when the worker starts.
func (w *SyncWorker) StartupSyncCheck(ctx context.Context) error {
	return w.sweep(ctx, w.batchSize*5)
}

// RunPendingSweep calls ProcessPendingTransactions every interval until ctx
// is done.
func (w *SyncWorker) RunPendingSweep(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.ProcessPendingTransactions(ctx); err != nil {
				slog.ErrorContext(ctx, "Pending sweep failed", "error", err)
			}
		}
	}
}

func (w *SyncWorker) sweep(ctx context.Context, limit int) error {
	pending, err := w.storage.GetPendingSyncTransactions(ctx, limit)
	if err != nil {
		return fmt.Errorf("get pending transactions: %w", err)
	}
	if len(pending) == 0 {
		return nil
	}

	slog.InfoContext(ctx, "Processing pending transactions", "count", len(pending))

	synced, failed := 0, 0
	for _, p := range pending {
		if err := w.sync(ctx, p.ID, p.Version); err != nil {
			slog.ErrorContext(ctx, "Failed to sync transaction", "id", p.ID, "error", err)
			failed++
			continue
		}
		synced++
	}

	slog.InfoContext(ctx, "Pending sweep completed",
		"total", len(pending),
		"synced", synced,
		"errors", failed)
	return nil
}

func (w *SyncWorker) sync(ctx context.Context, id, version int64) error {
	t, err := w.storage.GetTransaction(ctx, id)
	if err != nil {
		return fmt.Errorf("get transaction from storage: %w", err)
	}

	category := ""
	if cats, err := w.storage.ListCategories(ctx); err == nil {
		category = cats.Name(t.CategoryID)
	} else {
		slog.WarnContext(ctx, "Failed to load categories, exporting category id", "error", err)
	}

	ref, err := w.exporter.AppendTransaction(ctx, t, category)
	if err != nil {
		if markErr := w.storage.MarkSyncError(ctx, id); markErr != nil {
			slog.ErrorContext(ctx, "Failed to mark sync error", "id", id, "error", markErr)
		}
		return fmt.Errorf("append to sheets: %w", err)
	}

	// Don't return an error here: the export already happened.
	if err := w.storage.MarkSynced(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to mark as synced", "id", id, "error", err)
	}

	slog.InfoContext(ctx, "Successfully synced transaction",
		"id", id,
		"version", version,
		"sheets_ref", ref,
		"value_cents", t.Value.Cents)
	return nil
}
