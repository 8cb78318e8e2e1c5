package memory

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"budget/internal/core"
)

func TestMemoryStoreCRUD(t *testing.T) {
	ctx := context.Background()
	s := New(core.Categories{"1": "Groceries"})

	a, err := s.CreateTransaction(ctx, core.Transaction{CategoryID: "1", Description: "a", Value: core.Money{Cents: -100}})
	if err != nil || a.ID != 1 {
		t.Fatalf("create: %+v %v", a, err)
	}
	b, _ := s.CreateTransaction(ctx, core.Transaction{CategoryID: "1", Description: "b", Value: core.Money{Cents: 200}})

	if _, err := s.CreateTransaction(ctx, core.Transaction{CategoryID: "1", Description: "zero"}); !errors.Is(err, core.ErrZeroAmount) {
		t.Fatalf("zero amount err = %v", err)
	}

	b.Description = "b2"
	if err := s.UpdateTransaction(ctx, b); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTransaction(ctx, a.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTransaction(ctx, a.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("get deleted err = %v", err)
	}

	list, _ := s.ListTransactions(ctx)
	if len(list) != 1 || list[0].Description != "b2" {
		t.Fatalf("list = %+v", list)
	}
}

func TestMemoryStoreExport(t *testing.T) {
	s := New(nil)
	ref, err := s.AppendTransaction(context.Background(), core.Transaction{ID: 7, Description: "Rent", Value: core.Money{Cents: -150000}, Date: core.NewDate(2024, 2, 1)}, "Rent")
	if err != nil || ref != "mem:1" {
		t.Fatalf("ref=%q err=%v", ref, err)
	}
	rows := s.Rows()
	want := []string{"7", "2024-02-01", "Rent", "Rent", "-1500.00"}
	if len(rows) != 1 || len(rows[0]) != len(want) {
		t.Fatalf("rows = %v", rows)
	}
	for i := range want {
		if rows[0][i] != want[i] {
			t.Fatalf("row = %v, want %v", rows[0], want)
		}
	}
}

func TestNewFromFilesSeedsAndDedupe(t *testing.T) {
	dir := t.TempDir()
	// No files -> defaults
	s := NewFromFiles(dir)
	cats, _ := s.ListCategories(context.Background())
	if cats[core.DefaultCategoryID] == "" {
		t.Fatalf("expected built-in categories when file is missing")
	}

	content := "# header\n1=Groceries\n2 = School\n1=Duplicate\nbroken line\n\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_categories.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s = NewFromFiles(dir)
	cats, _ = s.ListCategories(context.Background())
	if len(cats) != 2 || cats["1"] != "Groceries" || cats["2"] != "School" {
		t.Fatalf("unexpected cats: %v", cats)
	}
}

func TestNewFromFilesSeedsTransactions(t *testing.T) {
	dir := t.TempDir()
	content := "# date;category;amount;description\n" +
		"2024-03-01;14;2500.00;Salary\n" +
		"2024-03-02;1;-42,30;Weekly shop\n" +
		"2024-03-03;99;-5;Unknown category\n" +
		"not-a-date;1;-5;Bad date\n" +
		"2024-03-04;1;abc;Bad amount\n" +
		"2024-03-05;1;-5\n"
	if err := os.WriteFile(filepath.Join(dir, "seed_transactions.txt"), []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	s := NewFromFiles(dir)
	list, _ := s.ListTransactions(context.Background())
	if len(list) != 2 {
		t.Fatalf("seeded %d transactions, want 2: %+v", len(list), list)
	}
	if list[0].ID != 1 || list[0].Value.Cents != 250000 || list[0].Date.ISO() != "2024-03-01" {
		t.Fatalf("first = %+v", list[0])
	}
	if list[1].Value.Cents != -4230 || list[1].Description != "Weekly shop" {
		t.Fatalf("second = %+v", list[1])
	}

	created, _ := s.CreateTransaction(context.Background(), core.Transaction{CategoryID: "1", Description: "next", Value: core.Money{Cents: -1}})
	if created.ID != 3 {
		t.Fatalf("next id = %d, want 3", created.ID)
	}
}
