package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"budget/internal/core"
	"budget/internal/log"
	"budget/internal/sheets"
	"budget/internal/state"
)

// Publisher queues a transaction for export.
type Publisher interface {
	PublishTransactionSync(ctx context.Context, id, version int64) error
}

// versioned stores expose the row version used for sync messages.
type versioned interface {
	GetVersion(ctx context.Context, id int64) (int64, error)
}

// TransactionService orchestrates transaction writes across the store, the
// in-process state and the sync queue.
type TransactionService struct {
	store     sheets.TransactionStore
	cats      sheets.CategoryReader
	publisher Publisher
	state     *state.Store
}

// NewTransactionService wires the service. publisher may be nil.
func NewTransactionService(store sheets.TransactionStore, cats sheets.CategoryReader, publisher Publisher, st *state.Store) *TransactionService {
	if st == nil {
		st = state.NewStore(state.State{})
	}
	return &TransactionService{
		store:     store,
		cats:      cats,
		publisher: publisher,
		state:     st,
	}
}

// State returns the store holding the current snapshot.
func (s *TransactionService) State() *state.Store { return s.state }

// Hydrate loads transactions and categories concurrently and replaces the
// in-process state.
func (s *TransactionService) Hydrate(ctx context.Context) error {
	var (
		txs  []core.Transaction
		cats core.Categories
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		txs, err = s.store.ListTransactions(gctx)
		if err != nil {
			return fmt.Errorf("load transactions: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		cats, err = s.cats.ListCategories(gctx)
		if err != nil {
			return fmt.Errorf("load categories: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	s.state.Dispatch(state.Load{Transactions: txs, Categories: cats})

	slog.InfoContext(ctx, "State hydrated",
		"transactions", len(txs),
		"categories", len(cats))
	return nil
}

// Create validates and stores a new transaction, then queues it for export.
func (s *TransactionService) Create(ctx context.Context, t core.Transaction) (core.Transaction, error) {
	if err := s.validate(t); err != nil {
		return core.Transaction{}, err
	}

	// Save locally first (fast, reliable)
	created, err := s.store.CreateTransaction(ctx, t)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("save transaction: %w", err)
	}
	s.state.Dispatch(state.AddTransaction{Transaction: created})
	log.LogTransactionSaved(ctx, log.OpCreate, created)

	s.publish(ctx, created.ID)
	return created, nil
}

// Update replaces an existing transaction and queues the new version.
func (s *TransactionService) Update(ctx context.Context, t core.Transaction) error {
	if err := s.validate(t); err != nil {
		return err
	}
	if err := s.store.UpdateTransaction(ctx, t); err != nil {
		return fmt.Errorf("update transaction: %w", err)
	}
	s.state.Dispatch(state.UpdateTransaction{Transaction: t})
	log.LogTransactionSaved(ctx, log.OpUpdate, t)

	s.publish(ctx, t.ID)
	return nil
}

// Delete removes a transaction. Rows already exported stay in the sheet.
func (s *TransactionService) Delete(ctx context.Context, id int64) error {
	if err := s.store.DeleteTransaction(ctx, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.state.Dispatch(state.RemoveTransaction{ID: id})
	return nil
}

func (s *TransactionService) validate(t core.Transaction) error {
	if err := t.Validate(); err != nil {
		return err
	}
	cats := state.GetCategories(s.state.State())
	if len(cats) > 0 && !cats.Has(t.CategoryID) {
		return fmt.Errorf("%w: %q", core.ErrUnknownCategory, t.CategoryID)
	}
	return nil
}

// publish is best effort: the row is already stored and the worker's pending
// sweep picks up anything that was not queued.
func (s *TransactionService) publish(ctx context.Context, id int64) {
	if s.publisher == nil {
		slog.DebugContext(ctx, "No publisher configured, skipping sync message", "id", id)
		return
	}

	version := int64(1)
	if v, ok := s.store.(versioned); ok {
		got, err := v.GetVersion(ctx, id)
		if err != nil {
			slog.ErrorContext(ctx, "Failed to read transaction version", "id", id, "error", err)
			return
		}
		version = got
	}

	if err := s.publisher.PublishTransactionSync(ctx, id, version); err != nil {
		slog.ErrorContext(ctx, "Failed to publish sync message",
			"id", id, "version", version, "error", err)
	}
}

// Close closes the store and publisher when they support it.
func (s *TransactionService) Close() error {
	var errs []error
	if c, ok := s.store.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("storage: %w", err))
		}
	}
	if c, ok := s.publisher.(interface{ Close() error }); ok {
		if err := c.Close(); err != nil {
			errs = append(errs, fmt.Errorf("amqp: %w", err))
		}
	}
	return errors.Join(errs...)
}
