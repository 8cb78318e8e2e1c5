// Package backend builds the transaction service for the configured data
// backend.
package backend

import (
	"context"

	"budget/internal/services"
	"budget/internal/sheets"
)

// Backend is what a data backend must provide to the web application.
type Backend interface {
	sheets.TransactionStore
	sheets.CategoryReader
}

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the wired service and its lifecycle hooks.
type BackendResult struct {
	Backend Backend
	Service *services.TransactionService
	// Ready reports whether the backend can serve requests.
	Ready   func(ctx context.Context) error
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, cfg Config) (*BackendResult, error)
}

// Config holds configuration for backend creation
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// AMQP publishing; empty URL disables it.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	// Memory backend specific
	DataDirectory string
}

// BackendType represents the type of backend
type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
