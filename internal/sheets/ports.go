// Package sheets defines the ports between the budget application and its
// storage and export adapters.
package sheets

import (
	"context"

	"budget/internal/core"
)

// Ports for outbound adapters.
type (
	// TransactionReader loads booked transactions.
	TransactionReader interface {
		ListTransactions(ctx context.Context) ([]core.Transaction, error)
		// GetTransaction returns core.ErrNotFound for unknown ids.
		GetTransaction(ctx context.Context, id int64) (core.Transaction, error)
	}

	// TransactionWriter persists transactions. CreateTransaction assigns the ID.
	TransactionWriter interface {
		CreateTransaction(ctx context.Context, t core.Transaction) (core.Transaction, error)
		UpdateTransaction(ctx context.Context, t core.Transaction) error
		DeleteTransaction(ctx context.Context, id int64) error
	}

	// TransactionStore is a full read/write store.
	TransactionStore interface {
		TransactionReader
		TransactionWriter
	}

	// CategoryReader lists the category table.
	CategoryReader interface {
		ListCategories(ctx context.Context) (core.Categories, error)
	}

	// TransactionExporter appends a transaction to an external ledger.
	TransactionExporter interface {
		AppendTransaction(ctx context.Context, t core.Transaction, category string) (rowRef string, err error)
	}
)
