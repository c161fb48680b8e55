package radiusstore

import (
    "context"
    "testing"

    "github.com/DATA-DOG/go-sqlmock"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"

    "isp-netops.com/engine/pkg/database"
)

const (
    upsertCheckSQL  = `INSERT INTO radcheck \(username, attribute, op, value\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(username, attribute\) DO UPDATE`
    upsertReplySQL  = `INSERT INTO radreply \(username, attribute, op, value\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(username, attribute\) DO UPDATE`
    defaultReplySQL = `INSERT INTO radreply \(username, attribute, op, value\) VALUES \(\$1, \$2, \$3, \$4\) ON CONFLICT \(username, attribute\) DO NOTHING`
    planSpeedsSQL   = `SELECT download_mbps, upload_mbps, burst_down_mbps, burst_up_mbps FROM plans WHERE id = \$1`
)

func mockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
    t.Helper()
    db, mock, err := sqlmock.New()
    require.NoError(t, err)
    t.Cleanup(func() { db.Close() })
    return New(&database.DB{DB: db}), mock
}

func expectPlanSpeeds(mock sqlmock.Sqlmock, planID, down, up int) {
    mock.ExpectQuery(planSpeedsSQL).WithArgs(planID).WillReturnRows(
        sqlmock.NewRows([]string{"download_mbps", "upload_mbps", "burst_down_mbps", "burst_up_mbps"}).
            AddRow(down, up, nil, nil))
}

func expectProvision(mock sqlmock.Sqlmock, username, password, attribute, value string) {
    mock.ExpectBegin()
    mock.ExpectExec(upsertCheckSQL).WithArgs(username, "Cleartext-Password", ":=", password).
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectExec(upsertReplySQL).WithArgs(username, attribute, "=", value).
        WillReturnResult(sqlmock.NewResult(0, 1))
    for _, d := range [][2]string{
        {"Framed-Protocol", "PPP"},
        {"Framed-Compression", "Van-Jacobson-TCP-IP"},
        {"Service-Type", "Framed-User"},
    } {
        mock.ExpectExec(defaultReplySQL).WithArgs(username, d[0], "=", d[1]).
            WillReturnResult(sqlmock.NewResult(0, 1))
    }
    mock.ExpectCommit()
}

// Provisioning the same user twice issues the same conflict-aware
// statements both times, so the (username, attribute) pair stays unique
// no matter how often the orchestrator retries.
func TestProvisionUserIsRepeatable(t *testing.T) {
    store, mock := mockStore(t)

    for i := 0; i < 2; i++ {
        expectPlanSpeeds(mock, 7, 100, 20)
        expectProvision(mock, "alice", "hunter2", "Mikrotik-Rate-Limit", "100M/20M")
        require.NoError(t, store.ProvisionUser(context.Background(), "alice", "hunter2", 7, "mikrotik"))
    }

    assert.NoError(t, mock.ExpectationsWereMet())
}

// Deprovision clears all three tables in one transaction, after which
// the check-entry lookup comes back empty.
func TestDeprovisionThenLookupFindsNoCheckEntry(t *testing.T) {
    store, mock := mockStore(t)

    mock.ExpectBegin()
    for _, table := range []string{"radcheck", "radreply", "radusergroup"} {
        mock.ExpectExec(`DELETE FROM ` + table + ` WHERE username = \$1`).WithArgs("alice").
            WillReturnResult(sqlmock.NewResult(0, 1))
    }
    mock.ExpectCommit()
    mock.ExpectQuery(`SELECT COUNT\(\*\) FROM radcheck WHERE username = \$1 AND attribute = 'Cleartext-Password'`).
        WithArgs("alice").
        WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))

    result := store.Deprovision(context.Background(), "alice")
    require.True(t, result.Success, result.Error)

    canAuth, err := store.HasCheckEntry(context.Background(), "alice")
    require.NoError(t, err)
    assert.False(t, canAuth)

    assert.NoError(t, mock.ExpectationsWereMet())
}

// A speed change deletes the rate attributes the other vendors use
// before upserting the current one, so a vendor migration cannot leave
// a stale limit behind.
func TestUpdateSpeedPurgesStaleRateAttributes(t *testing.T) {
    store, mock := mockStore(t)

    expectPlanSpeeds(mock, 9, 50, 10)
    mock.ExpectBegin()
    for _, stale := range []string{
        "WISPr-Bandwidth-Max-Down",
        "ERX-Qos-Profile-Name",
        "Cisco-AVPair",
        "Filter-Id",
    } {
        mock.ExpectExec(`DELETE FROM radreply WHERE username = \$1 AND attribute = \$2`).
            WithArgs("alice", stale).
            WillReturnResult(sqlmock.NewResult(0, 0))
    }
    mock.ExpectExec(upsertReplySQL).WithArgs("alice", "Mikrotik-Rate-Limit", "=", "50M/10M").
        WillReturnResult(sqlmock.NewResult(0, 1))
    mock.ExpectCommit()

    require.NoError(t, store.UpdateSpeed(context.Background(), "alice", 9, "mikrotik"))
    assert.NoError(t, mock.ExpectationsWereMet())
}

func TestProvisionUserUnknownPlan(t *testing.T) {
    store, mock := mockStore(t)

    mock.ExpectQuery(planSpeedsSQL).WithArgs(404).
        WillReturnRows(sqlmock.NewRows([]string{"download_mbps", "upload_mbps", "burst_down_mbps", "burst_up_mbps"}))

    err := store.ProvisionUser(context.Background(), "alice", "hunter2", 404, "mikrotik")
    assert.ErrorIs(t, err, ErrPlanNotFound)
}
