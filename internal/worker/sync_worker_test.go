package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budget/internal/amqp"
	"budget/internal/core"
	"budget/internal/sheets/memory"
	"budget/internal/storage"
)

type failingExporter struct{}

func (failingExporter) AppendTransaction(context.Context, core.Transaction, string) (string, error) {
	return "", errors.New("quota exceeded")
}

func newRepo(t *testing.T) *storage.SQLiteRepository {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "budget.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func create(t *testing.T, repo *storage.SQLiteRepository, desc string) core.Transaction {
	t.Helper()
	tx, err := repo.CreateTransaction(context.Background(), core.Transaction{
		CategoryID: "1", Description: desc, Value: core.Money{Cents: -995}, Date: core.NewDate(2024, 6, 1),
	})
	if err != nil {
		t.Fatal(err)
	}
	return tx
}

func TestHandleSyncMessageExportsAndMarksSynced(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	sheet := memory.New(nil)
	w := NewSyncWorker(repo, sheet, 10)

	tx := create(t, repo, "Market")
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1)); err != nil {
		t.Fatal(err)
	}

	rows := sheet.Rows()
	if len(rows) != 1 || rows[0][2] != "Groceries" || rows[0][3] != "Market" {
		t.Fatalf("rows = %v", rows)
	}
	if s, _ := repo.SyncStatus(ctx, tx.ID); s != "synced" {
		t.Fatalf("status = %q", s)
	}
}

func TestHandleSyncMessageSkipsStaleAndDeleted(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	sheet := memory.New(nil)
	w := NewSyncWorker(repo, sheet, 10)

	tx := create(t, repo, "Old")
	tx.Description = "New"
	if err := repo.UpdateTransaction(ctx, tx); err != nil {
		t.Fatal(err)
	}

	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1)); err != nil {
		t.Fatal(err)
	}
	if len(sheet.Rows()) != 0 {
		t.Fatalf("stale message exported")
	}

	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(9999, 1)); err != nil {
		t.Fatalf("deleted transaction should be dropped, got %v", err)
	}
}

func TestExportFailureMarksError(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	w := NewSyncWorker(repo, failingExporter{}, 10)

	tx := create(t, repo, "x")
	if err := w.HandleSyncMessage(ctx, amqp.NewTransactionSyncMessage(tx.ID, 1)); err == nil {
		t.Fatal("expected error so the message is requeued")
	}
	if s, _ := repo.SyncStatus(ctx, tx.ID); s != "error" {
		t.Fatalf("status = %q, want error", s)
	}
}

func TestProcessPendingTransactions(t *testing.T) {
	ctx := context.Background()
	repo := newRepo(t)
	sheet := memory.New(nil)
	w := NewSyncWorker(repo, sheet, 10)

	for _, d := range []string{"a", "b", "c"} {
		create(t, repo, d)
	}
	if err := w.StartupSyncCheck(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(sheet.Rows()); n != 3 {
		t.Fatalf("exported %d rows, want 3", n)
	}

	if err := w.ProcessPendingTransactions(ctx); err != nil {
		t.Fatal(err)
	}
	if n := len(sheet.Rows()); n != 3 {
		t.Fatalf("second sweep re-exported rows: %d", n)
	}
}
