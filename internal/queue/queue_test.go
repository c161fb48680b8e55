package queue

import (
    "context"
    "testing"
    "time"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
)

func mockQueue(t *testing.T) (*Store, sqlmock.Sqlmock, *database.DB) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    wrapped := &database.DB{DB: db}
    return New(wrapped), mock, wrapped
}

func TestMarkFailedChargesAttempt(t *testing.T) {
    store, mock, _ := mockQueue(t)

    mock.ExpectExec(`UPDATE provisioning_queue SET attempts = attempts \+ 1`).
        WithArgs("item-1", "router unreachable", maxAttempts).
        WillReturnResult(sqlmock.NewResult(0, 1))

    require.NoError(t, store.MarkFailed(context.Background(), "item-1", "router unreachable"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestReleaseDoesNotChargeAttempt(t *testing.T) {
    store, mock, _ := mockQueue(t)

    // Anchored so a regression that touches attempts cannot match.
    mock.ExpectExec(`^UPDATE provisioning_queue SET status = 'pending', updated_at = NOW\(\) WHERE id = \$1 AND status = 'processing'$`).
        WithArgs("item-1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    require.NoError(t, store.Release(context.Background(), "item-1"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

// stoppedContext reports cancellation the way a consumer sees it between
// claiming a batch and working the first item.
type stoppedContext struct {
    context.Context
}

func (stoppedContext) Err() error { return context.Canceled }

func TestShutdownReleasesClaimedItems(t *testing.T) {
    store, mock, db := mockQueue(t)
    consumer := NewConsumer(db, store, logger.New(), time.Second)

    mock.ExpectQuery(`UPDATE provisioning_queue SET status = 'processing'`).
        WithArgs(5).
        WillReturnRows(sqlmock.NewRows(
            []string{"id", "router_id", "operation", "payload", "status", "attempts", "last_error"}).
            AddRow("item-1", 1, "create_access_entry", []byte(`{}`), "processing", 0, nil))
    mock.ExpectExec(`SET status = 'pending'`).
        WithArgs("item-1").
        WillReturnResult(sqlmock.NewResult(0, 1))

    done, failed := consumer.ProcessPending(stoppedContext{context.Background()}, 5)
    assert.Zero(t, done)
    assert.Zero(t, failed)
    assert.NoError(t, mock.ExpectationsWereMet())
}
