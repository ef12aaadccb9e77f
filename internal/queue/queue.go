package queue

import (
	"context"
	"encoding/json"
)

// Store defines the persistence contract for the offline operation queue.
//
// Why this exists:
// - The sync coordinator should express drain behavior, not SQL details.
// - Enqueue/remove semantics (append-only, id-ordered, idempotent removal)
//   must stay consistent across callers so replay ordering remains safe.
// - Tests can validate sync behavior via this abstraction.
type Store interface {
	// Init prepares schema/connection state before the queue is used.
	Init(ctx context.Context) error

	// Close releases resources held by the storage backend.
	Close() error

	// Enqueue appends a new operation with a fresh id and the current
	// timestamp, returning the stored record. Payload contents are never
	// inspected; only a storage fault can fail this call.
	Enqueue(ctx context.Context, typ OperationType, payload json.RawMessage) (Operation, error)

	// ListAll returns every pending operation ordered by id ascending.
	// Read-only, no side effects.
	ListAll(ctx context.Context) ([]Operation, error)

	// Remove deletes the operation with that id if present. Removing an
	// absent id is a no-op, not an error.
	//
	// Why: the coordinator removes each operation after confirmed remote
	// success, and overlapping drains may race on the same id.
	Remove(ctx context.Context, id int64) error

	// Clear deletes all pending operations unconditionally. Destructive;
	// confirmation is the caller's responsibility.
	Clear(ctx context.Context) error

	// Count returns the number of pending operations.
	Count(ctx context.Context) (int64, error)
}
