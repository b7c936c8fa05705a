package order

import (
	"context"
	"errors"
)

// Common errors for log operations.
var (
	// ErrOrderNotFound is returned when no record matches an order ID.
	ErrOrderNotFound = errors.New("order not found")
	// ErrLogClosed is returned when operating on a closed log.
	ErrLogClosed = errors.New("order log is closed")
)

// Log is the append-only order log. Appends from concurrent sessions
// must be serialized by the implementation so no record is lost or
// interleaved. Records are immutable once appended except for the
// status field, changed via UpdateStatus.
type Log interface {
	// Append writes one order record to the end of the log.
	Append(ctx context.Context, o *Order) error

	// List returns all records in append order.
	List(ctx context.Context) ([]*Order, error)

	// Get returns the record with the given order ID.
	// Returns ErrOrderNotFound if no record matches.
	Get(ctx context.Context, orderID string) (*Order, error)

	// UpdateStatus changes one record's status field, keyed by order ID.
	// Returns ErrOrderNotFound if no record matches.
	UpdateStatus(ctx context.Context, orderID, status string) error

	// Close releases any resources held by the log.
	Close() error
}
