package services

import (
	"context"
	"errors"
	"testing"

	"budget/internal/core"
	"budget/internal/sheets/memory"
	"budget/internal/state"
)

type fakePublisher struct {
	calls []int64
	err   error
}

func (p *fakePublisher) PublishTransactionSync(_ context.Context, id, _ int64) error {
	p.calls = append(p.calls, id)
	return p.err
}

func newTestService(t *testing.T, pub Publisher) (*TransactionService, *memory.Store) {
	t.Helper()
	store := memory.New(core.Categories{"1": "Groceries", "16": "Other"})
	svc := NewTransactionService(store, store, pub, nil)
	if err := svc.Hydrate(context.Background()); err != nil {
		t.Fatalf("Hydrate: %v", err)
	}
	return svc, store
}

func TestHydrateLoadsState(t *testing.T) {
	store := memory.New(core.Categories{"1": "Groceries"})
	store.CreateTransaction(context.Background(), core.Transaction{CategoryID: "1", Description: "a", Value: core.Money{Cents: 5}})

	svc := NewTransactionService(store, store, nil, nil)
	if err := svc.Hydrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	st := svc.State().State()
	if len(st.Transactions) != 1 || st.Categories["1"] != "Groceries" {
		t.Fatalf("state = %+v", st)
	}
}

func TestHydratePublishesOnce(t *testing.T) {
	store := memory.New(core.Categories{"1": "Groceries"})
	store.CreateTransaction(context.Background(), core.Transaction{CategoryID: "1", Description: "a", Value: core.Money{Cents: 5}})

	svc := NewTransactionService(store, store, nil, nil)
	var seen []state.State
	unsub := svc.State().Subscribe(func(st state.State) { seen = append(seen, st) })
	defer unsub()

	if err := svc.Hydrate(context.Background()); err != nil {
		t.Fatal(err)
	}
	if len(seen) != 1 {
		t.Fatalf("Hydrate published %d states, want 1", len(seen))
	}
	if len(seen[0].Transactions) != 1 || seen[0].Categories["1"] != "Groceries" {
		t.Fatalf("published state = %+v", seen[0])
	}
}

func TestCreatePublishesAndUpdatesState(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, pub)

	var published []state.State
	unsub := svc.State().Subscribe(func(s state.State) { published = append(published, s) })
	defer unsub()

	created, err := svc.Create(context.Background(), core.Transaction{CategoryID: "1", Description: "Market", Value: core.Money{Cents: -1250}})
	if err != nil {
		t.Fatal(err)
	}
	if len(pub.calls) != 1 || pub.calls[0] != created.ID {
		t.Fatalf("publish calls = %v", pub.calls)
	}
	if len(published) != 1 {
		t.Fatalf("state published %d times", len(published))
	}
	if _, ok := state.GetTransactionByID(svc.State().State(), created.ID); !ok {
		t.Fatalf("created transaction missing from state")
	}
}

func TestCreateSucceedsWhenPublishFails(t *testing.T) {
	svc, store := newTestService(t, &fakePublisher{err: errors.New("broker down")})

	created, err := svc.Create(context.Background(), core.Transaction{CategoryID: "1", Description: "x", Value: core.Money{Cents: 1}})
	if err != nil {
		t.Fatalf("Create should not fail on publish error: %v", err)
	}
	if _, err := store.GetTransaction(context.Background(), created.ID); err != nil {
		t.Fatalf("transaction not stored: %v", err)
	}
}

func TestCreateValidates(t *testing.T) {
	pub := &fakePublisher{}
	svc, _ := newTestService(t, pub)

	tests := []struct {
		name string
		tx   core.Transaction
		want error
	}{
		{"zero amount", core.Transaction{CategoryID: "1", Description: "x"}, core.ErrZeroAmount},
		{"empty description", core.Transaction{CategoryID: "1", Value: core.Money{Cents: 1}}, core.ErrEmptyDescription},
		{"unknown category", core.Transaction{CategoryID: "99", Description: "x", Value: core.Money{Cents: 1}}, core.ErrUnknownCategory},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.Create(context.Background(), tt.tx); !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
	if len(pub.calls) != 0 {
		t.Fatalf("invalid transactions were published: %v", pub.calls)
	}
}

func TestUpdateAndDelete(t *testing.T) {
	svc, _ := newTestService(t, nil)
	ctx := context.Background()

	created, _ := svc.Create(ctx, core.Transaction{CategoryID: "1", Description: "x", Value: core.Money{Cents: 1}})
	created.Description = "y"
	if err := svc.Update(ctx, created); err != nil {
		t.Fatal(err)
	}
	if got, _ := state.GetTransactionByID(svc.State().State(), created.ID); got.Description != "y" {
		t.Fatalf("state not updated: %+v", got)
	}

	if err := svc.Delete(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	if _, ok := state.GetTransactionByID(svc.State().State(), created.ID); ok {
		t.Fatalf("deleted transaction still in state")
	}
	if err := svc.Delete(ctx, created.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete err = %v", err)
	}
}

func TestCloseWithoutClosers(t *testing.T) {
	svc, _ := newTestService(t, nil)
	if err := svc.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
