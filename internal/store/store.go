// Package store defines the ledger's persistence port. The engine only
// ever touches sales through this interface, so the volatile in-memory
// store and the sqlite adapter are interchangeable.
package store

import (
	"context"

	"ventas/internal/core"
)

// LedgerStore owns the sale collection and the identifier sequence.
type LedgerStore interface {
	// NextID returns an identifier one greater than the last issued.
	// The sequence never reuses an identifier, including after Remove.
	NextID(ctx context.Context) (int64, error)

	Insert(ctx context.Context, s *core.Sale) error

	// Update persists a mutated sale (payment applied, monthly close).
	Update(ctx context.Context, s *core.Sale) error

	// Remove hard-deletes a sale, reporting whether a record existed.
	Remove(ctx context.Context, id int64) (bool, error)

	// Get returns the sale, or nil without error when unknown.
	Get(ctx context.Context, id int64) (*core.Sale, error)

	// All returns every sale in insertion order.
	All(ctx context.Context) ([]*core.Sale, error)
}
