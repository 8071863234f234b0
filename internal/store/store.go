// Package store abstracts the remote document database as a generic
// transactional key-value store with query-by-field support. Documents are
// JSON; collections are flat namespaces keyed by string IDs.
package store

import (
	"context"
	"errors"
)

// Errors returned by store implementations.
var (
	ErrNotFound    = errors.New("document not found")
	ErrConflict    = errors.New("transaction conflict")
	ErrUnavailable = errors.New("store unavailable")
)

// Filter is a single equality condition on a top-level document field.
type Filter struct {
	Field string
	Value any
}

// Where builds a Filter.
func Where(field string, value any) Filter {
	return Filter{Field: field, Value: value}
}

// Tx exposes the operations available inside a transaction. All reads and
// writes through a Tx commit atomically or not at all; on write contention
// the whole transaction fails with ErrConflict and may be retried.
type Tx interface {
	// Get unmarshals the document into v. Returns ErrNotFound if absent.
	Get(ctx context.Context, collection, id string, v any) error
	// Set creates or fully replaces a document.
	Set(ctx context.Context, collection, id string, v any) error
	// Update merges the given top-level fields into an existing document.
	Update(ctx context.Context, collection, id string, fields map[string]any) error
	// Delete removes a document. Deleting an absent document is a no-op.
	Delete(ctx context.Context, collection, id string) error
}

// Store is the remote document database client. The store is the only point
// of true cross-session concurrency; all exclusion goes through
// RunTransaction or Increment, never read-then-set.
type Store interface {
	Tx

	// Query unmarshals all documents in the collection matching every filter
	// into v, which must be a pointer to a slice. No filters returns the
	// whole collection.
	Query(ctx context.Context, collection string, filters []Filter, v any) error

	// Increment atomically adds delta to an integer field of an existing
	// document. Concurrent increments never lose updates.
	Increment(ctx context.Context, collection, id, field string, delta int64) error

	// RunTransaction executes fn atomically. fn may be invoked more than
	// once if the implementation retries internally; it must be free of
	// side effects outside the transaction.
	RunTransaction(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}
