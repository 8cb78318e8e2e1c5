package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"budget/internal/core"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "budget.db"))
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	t.Cleanup(func() { repo.Close() })
	return repo
}

func TestMigrationsSeedCategories(t *testing.T) {
	repo := newTestRepo(t)
	cats, err := repo.ListCategories(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(cats) != len(core.SeedCategories()) {
		t.Fatalf("got %d categories, want %d", len(cats), len(core.SeedCategories()))
	}
	if cats["1"] != "Groceries" || cats[core.DefaultCategoryID] == "" {
		t.Fatalf("categories = %v", cats)
	}
}

func TestRunMigrationsIsRepeatable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "budget.db")
	for i := 0; i < 2; i++ {
		version, err := RunMigrations(path)
		if err != nil {
			t.Fatalf("run %d: %v", i, err)
		}
		if version != 2 {
			t.Fatalf("run %d: version = %d, want 2", i, version)
		}
	}
}

func TestTransactionLifecycle(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	created, err := repo.CreateTransaction(ctx, core.Transaction{
		CategoryID:  "1",
		Description: "Market",
		Value:       core.Money{Cents: -4250},
		Date:        core.NewDate(2024, 5, 17),
	})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == 0 {
		t.Fatalf("ID not assigned")
	}

	got, err := repo.GetTransaction(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Description != "Market" || got.Value.Cents != -4250 || got.Date.ISO() != "2024-05-17" {
		t.Fatalf("got %+v", got)
	}

	got.Description = "Farmers market"
	if err := repo.UpdateTransaction(ctx, got); err != nil {
		t.Fatal(err)
	}
	if v, _ := repo.GetVersion(ctx, got.ID); v != 2 {
		t.Fatalf("version = %d, want 2", v)
	}

	all, err := repo.ListTransactions(ctx)
	if err != nil || len(all) != 1 || all[0].Description != "Farmers market" {
		t.Fatalf("list = %+v, err = %v", all, err)
	}

	if err := repo.DeleteTransaction(ctx, got.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.GetTransaction(ctx, got.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("err after delete = %v", err)
	}
	if err := repo.DeleteTransaction(ctx, got.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
	if err := repo.UpdateTransaction(ctx, got); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("update of missing row err = %v", err)
	}
}

func TestSyncStatusTracking(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	tx, err := repo.CreateTransaction(ctx, core.Transaction{CategoryID: "14", Description: "Pay", Value: core.Money{Cents: 100000}, Date: core.NewDate(2024, 1, 1)})
	if err != nil {
		t.Fatal(err)
	}

	pending, err := repo.GetPendingSyncTransactions(ctx, 10)
	if err != nil || len(pending) != 1 || pending[0].ID != tx.ID || pending[0].Version != 1 {
		t.Fatalf("pending = %+v, err = %v", pending, err)
	}

	// A stale version must not flip the status.
	if err := repo.MarkSynced(ctx, tx.ID, 99); err != nil {
		t.Fatal(err)
	}
	if s, _ := repo.SyncStatus(ctx, tx.ID); s != "pending" {
		t.Fatalf("status = %q after stale mark", s)
	}

	if err := repo.MarkSynced(ctx, tx.ID, 1); err != nil {
		t.Fatal(err)
	}
	if s, _ := repo.SyncStatus(ctx, tx.ID); s != "synced" {
		t.Fatalf("status = %q, want synced", s)
	}
	if pending, _ := repo.GetPendingSyncTransactions(ctx, 10); len(pending) != 0 {
		t.Fatalf("still pending: %+v", pending)
	}

	if err := repo.MarkSyncError(ctx, tx.ID); err != nil {
		t.Fatal(err)
	}
	if s, _ := repo.SyncStatus(ctx, tx.ID); s != "error" {
		t.Fatalf("status = %q, want error", s)
	}
}
