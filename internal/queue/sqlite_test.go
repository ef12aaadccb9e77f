package queue

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newSQLiteQueue(t *testing.T) *SQLiteQueue {
	t.Helper()
	path := filepath.Join(t.TempDir(), "queue.db")
	q, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, q.Init(context.Background()))
	t.Cleanup(func() { _ = q.Close() })
	return q
}

func TestEnqueueAssignsIDAndTimestamp(t *testing.T) {
	q := newSQLiteQueue(t)

	op, err := q.Enqueue(context.Background(), OpCreateSale, []byte(`{"customer_id":7,"items":[]}`))
	require.NoError(t, err)
	require.Equal(t, int64(1), op.ID)
	require.NotZero(t, op.Timestamp)
	require.NotEmpty(t, op.IdempotencyKey)

	ops, err := q.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, OpCreateSale, ops[0].Type)
	require.JSONEq(t, `{"customer_id":7,"items":[]}`, string(ops[0].Payload))
}

func TestEnqueueRejectsUnknownType(t *testing.T) {
	q := newSQLiteQueue(t)

	_, err := q.Enqueue(context.Background(), OperationType("delete_sale"), []byte(`{}`))
	require.Error(t, err)

	ops, err := q.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestListAllReturnsInsertionOrder(t *testing.T) {
	q := newSQLiteQueue(t)

	for i := 0; i < 5; i++ {
		typ := OpCreateSale
		if i%2 == 1 {
			typ = OpCreatePayment
		}
		_, err := q.Enqueue(context.Background(), typ, []byte(`{}`))
		require.NoError(t, err)
	}

	ops, err := q.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 5)
	for i := 1; i < len(ops); i++ {
		require.Greater(t, ops[i].ID, ops[i-1].ID)
	}
}

func TestRemoveIsIdempotent(t *testing.T) {
	q := newSQLiteQueue(t)

	op, err := q.Enqueue(context.Background(), OpCreatePayment, []byte(`{"sale_id":1,"amount":50}`))
	require.NoError(t, err)

	require.NoError(t, q.Remove(context.Background(), op.ID))
	require.NoError(t, q.Remove(context.Background(), op.ID))
	require.NoError(t, q.Remove(context.Background(), 999))

	ops, err := q.ListAll(context.Background())
	require.NoError(t, err)
	require.Empty(t, ops)
}

func TestIDsAreNeverReused(t *testing.T) {
	q := newSQLiteQueue(t)

	first, err := q.Enqueue(context.Background(), OpCreateSale, []byte(`{}`))
	require.NoError(t, err)
	require.NoError(t, q.Remove(context.Background(), first.ID))

	second, err := q.Enqueue(context.Background(), OpCreateSale, []byte(`{}`))
	require.NoError(t, err)
	require.Greater(t, second.ID, first.ID)
}

func TestClear(t *testing.T) {
	q := newSQLiteQueue(t)

	for i := 0; i < 3; i++ {
		_, err := q.Enqueue(context.Background(), OpCreateSale, []byte(`{}`))
		require.NoError(t, err)
	}
	count, err := q.Count(context.Background())
	require.NoError(t, err)
	require.Equal(t, int64(3), count)

	require.NoError(t, q.Clear(context.Background()))

	count, err = q.Count(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestQueueSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "queue.db")
	q, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, q.Init(context.Background()))
	_, err = q.Enqueue(context.Background(), OpCreateSale, []byte(`{"customer_id":7}`))
	require.NoError(t, err)
	require.NoError(t, q.Close())

	reopened, err := OpenSQLite(path)
	require.NoError(t, err)
	require.NoError(t, reopened.Init(context.Background()))
	defer reopened.Close()

	ops, err := reopened.ListAll(context.Background())
	require.NoError(t, err)
	require.Len(t, ops, 1)
	require.Equal(t, OpCreateSale, ops[0].Type)
}
