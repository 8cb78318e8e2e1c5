package core

import (
	"errors"
	"testing"
	"time"
)

func TestDateValidate(t *testing.T) {
	cases := []struct {
		d  Date
		ok bool
	}{
		{NewDate(2025, 1, 1), true},
		{NewDate(2025, 12, 31), true},
		{Date{Time: time.Time{}}, false}, // zero time
	}
	for i, tc := range cases {
		err := tc.d.Validate()
		if tc.ok && err != nil {
			t.Fatalf("case %d expected ok, got %v", i, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestMoneyValidate(t *testing.T) {
	if err := (Money{Cents: -1}).Validate(); err != nil {
		t.Fatalf("expected ok for outflow, got %v", err)
	}
	if err := (Money{Cents: 0}).Validate(); !errors.Is(err, ErrZeroAmount) {
		t.Fatalf("expected ErrZeroAmount, got %v", err)
	}
	if !(Money{Cents: -5}).IsOutflow() || (Money{Cents: 5}).IsOutflow() {
		t.Fatalf("IsOutflow mismatch")
	}
	if (Money{Cents: -5}).Abs().Cents != 5 {
		t.Fatalf("Abs mismatch")
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		CategoryID:  "1",
		Description: "Groceries",
		Value:       Money{Cents: -2500},
		Date:        NewDate(2025, 1, 1),
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{CategoryID: "1", Description: "", Value: Money{Cents: 1}},
		{CategoryID: "1", Description: "a", Value: Money{Cents: 0}},
		{CategoryID: "", Description: "a", Value: Money{Cents: 1}},
	}
	for i, tr := range bads {
		if err := tr.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestDateISO(t *testing.T) {
	if got := NewDate(2024, 3, 9).ISO(); got != "2024-03-09" {
		t.Fatalf("ISO = %q", got)
	}
	if got := (Date{}).ISO(); got != "" {
		t.Fatalf("zero ISO = %q", got)
	}
}
