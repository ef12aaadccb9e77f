package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS operations (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	type TEXT NOT NULL,
	payload TEXT NOT NULL,
	idempotency_key TEXT NOT NULL,
	timestamp INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_operations_timestamp
ON operations(timestamp);
`

// SQLiteQueue is a SQLite-backed implementation of Store. AUTOINCREMENT
// guarantees ids are never reused, so replay order survives removals.
type SQLiteQueue struct {
	db *sql.DB
}

func OpenSQLite(path string) (*SQLiteQueue, error) {
	if path == "" {
		return nil, errors.New("sqlite path is required")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return &SQLiteQueue{db: db}, nil
}

func (q *SQLiteQueue) Init(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, "PRAGMA journal_mode = WAL;"); err != nil {
		return fmt.Errorf("enable wal: %w", err)
	}
	if _, err := q.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Close() error {
	return q.db.Close()
}

func (q *SQLiteQueue) Enqueue(ctx context.Context, typ OperationType, payload json.RawMessage) (Operation, error) {
	if !typ.Valid() {
		return Operation{}, fmt.Errorf("unknown operation type: %q", typ)
	}
	op := Operation{
		Type:           typ,
		Payload:        payload,
		IdempotencyKey: uuid.NewString(),
		Timestamp:      time.Now().UnixMilli(),
	}
	result, err := q.db.ExecContext(ctx, `
		INSERT INTO operations (type, payload, idempotency_key, timestamp)
		VALUES (?, ?, ?, ?)
	`, string(op.Type), string(op.Payload), op.IdempotencyKey, op.Timestamp)
	if err != nil {
		return Operation{}, fmt.Errorf("enqueue operation: %w", err)
	}
	op.ID, err = result.LastInsertId()
	if err != nil {
		return Operation{}, fmt.Errorf("enqueue operation id: %w", err)
	}
	return op, nil
}

func (q *SQLiteQueue) ListAll(ctx context.Context) ([]Operation, error) {
	rows, err := q.db.QueryContext(ctx, `
		SELECT id, type, payload, idempotency_key, timestamp
		FROM operations
		ORDER BY id ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := make([]Operation, 0)
	for rows.Next() {
		var op Operation
		var typ, payload string
		if err := rows.Scan(&op.ID, &typ, &payload, &op.IdempotencyKey, &op.Timestamp); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		op.Type = OperationType(typ)
		op.Payload = []byte(payload)
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

func (q *SQLiteQueue) Remove(ctx context.Context, id int64) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM operations WHERE id = ?", id); err != nil {
		return fmt.Errorf("remove operation %d: %w", id, err)
	}
	return nil
}

func (q *SQLiteQueue) Clear(ctx context.Context) error {
	if _, err := q.db.ExecContext(ctx, "DELETE FROM operations"); err != nil {
		return fmt.Errorf("clear operations: %w", err)
	}
	return nil
}

func (q *SQLiteQueue) Count(ctx context.Context) (int64, error) {
	var count int64
	row := q.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM operations")
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count operations: %w", err)
	}
	return count, nil
}
