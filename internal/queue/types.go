package queue

import "encoding/json"

// OperationType tags a queued write with the remote endpoint it replays to.
type OperationType string

const (
	OpCreateSale    OperationType = "create_sale"
	OpCreatePayment OperationType = "create_payment"
)

// Valid reports whether t is one of the known operation types. The set is
// closed: an unknown tag has no replay endpoint and must be rejected at
// enqueue time, not discovered during sync.
func (t OperationType) Valid() bool {
	switch t {
	case OpCreateSale, OpCreatePayment:
		return true
	}
	return false
}

// Operation is a pending write held locally until confirmed by the remote API.
// Payload is opaque to the queue; it is whatever the matching remote endpoint
// expects for this type.
type Operation struct {
	ID             int64           `json:"id"`
	Type           OperationType   `json:"type"`
	Payload        json.RawMessage `json:"payload"`
	IdempotencyKey string          `json:"idempotencyKey"`
	Timestamp      int64           `json:"timestamp"`
}
