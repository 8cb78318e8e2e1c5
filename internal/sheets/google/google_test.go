package google

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	"budget/internal/core"
)

func TestNewMissingSpreadsheetID(t *testing.T) {
	_, err := New(context.Background(), Options{})
	if err == nil || err.Error() != "missing GOOGLE_SPREADSHEET_ID" {
		t.Fatalf("err = %v", err)
	}
}

func TestNewMissingCredentials(t *testing.T) {
	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet"})
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("err = %v", err)
	}
}

func TestNewUnreadableCredentialsFile(t *testing.T) {
	_, err := New(context.Background(), Options{SpreadsheetID: "sheet", CredentialsFile: t.TempDir() + "/missing.json"})
	if err == nil || !strings.Contains(err.Error(), "read service account file") {
		t.Fatalf("err = %v", err)
	}
}

func TestAppendTransactionValidates(t *testing.T) {
	c := &Client{spreadsheetID: "test"} // svc is nil

	_, err := c.AppendTransaction(context.Background(), core.Transaction{Description: "x", CategoryID: "1"}, "Groceries")
	if !errors.Is(err, core.ErrZeroAmount) {
		t.Fatalf("err = %v, want ErrZeroAmount", err)
	}

	_, err = c.AppendTransaction(context.Background(), core.Transaction{Description: "x", CategoryID: "1", Value: core.Money{Cents: 5}}, "Groceries")
	if err == nil || !strings.Contains(err.Error(), "not initialized") {
		t.Fatalf("err = %v", err)
	}
}

func TestTransactionRow(t *testing.T) {
	tx := core.Transaction{ID: 3, CategoryID: "8", Description: "Rent", Value: core.Money{Cents: -120050}, Date: core.NewDate(2024, 4, 1)}

	got := TransactionRow(tx, "Rent")
	want := []any{int64(3), "2024-04-01", "Rent", "Rent", -1200.5}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("row = %#v, want %#v", got, want)
	}

	if got := TransactionRow(tx, ""); got[2] != "8" {
		t.Fatalf("missing category should fall back to id, got %v", got[2])
	}
}
