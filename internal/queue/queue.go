package queue

import (
    "context"
    "database/sql"
    "encoding/json"
    "fmt"

    "github.com/google/uuid"
    "isp-netops.com/engine/pkg/database"
)

// Maximum delivery attempts before an item stays failed for operator
// attention.
const maxAttempts = 3

// Store is the durable work-item queue for routers whose control channel
// is asynchronous (ssh/netconf). Items are produced by the orchestrator
// and consumed by the worker binary.
type Store struct {
    db *database.DB
}

func New(db *database.DB) *Store {
    return &Store{db: db}
}

type Item struct {
    ID        string
    RouterID  int
    Operation string
    Payload   json.RawMessage
    Status    string
    Attempts  int
    LastError sql.NullString
}

func (s *Store) Enqueue(ctx context.Context, routerID int, operation string, payload interface{}) (string, error) {
    encoded, err := json.Marshal(payload)
    if err != nil {
        return "", fmt.Errorf("failed to encode queue payload: %w", err)
    }

    id := uuid.NewString()
    _, err = s.db.ExecContext(ctx, `
        INSERT INTO provisioning_queue (id, router_id, operation, payload, status)
        VALUES ($1, $2, $3, $4, 'pending')
    `, id, routerID, operation, encoded)
    if err != nil {
        return "", fmt.Errorf("failed to enqueue %s for router %d: %w", operation, routerID, err)
    }

    return id, nil
}

// ClaimPending atomically moves up to limit pending items to processing.
// SKIP LOCKED keeps concurrent consumers from double-claiming.
func (s *Store) ClaimPending(ctx context.Context, limit int) ([]Item, error) {
    rows, err := s.db.QueryContext(ctx, `
        UPDATE provisioning_queue SET status = 'processing', updated_at = NOW()
        WHERE id IN (
            SELECT id FROM provisioning_queue
            WHERE status = 'pending'
            ORDER BY created_at
            LIMIT $1
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, router_id, operation, payload, status, attempts, last_error
    `, limit)
    if err != nil {
        return nil, fmt.Errorf("failed to claim queue items: %w", err)
    }
    defer rows.Close()

    var items []Item
    for rows.Next() {
        var item Item
        if err := rows.Scan(&item.ID, &item.RouterID, &item.Operation, &item.Payload,
            &item.Status, &item.Attempts, &item.LastError); err != nil {
            return nil, fmt.Errorf("failed to scan queue item: %w", err)
        }
        items = append(items, item)
    }

    return items, rows.Err()
}

func (s *Store) MarkDone(ctx context.Context, id string) error {
    _, err := s.db.ExecContext(ctx, `
        UPDATE provisioning_queue SET status = 'done', last_error = NULL, updated_at = NOW()
        WHERE id = $1
    `, id)
    return err
}

// MarkFailed records the failure and re-queues the item until it runs out
// of attempts.
func (s *Store) MarkFailed(ctx context.Context, id, errMsg string) error {
    _, err := s.db.ExecContext(ctx, `
        UPDATE provisioning_queue
        SET attempts = attempts + 1,
            last_error = $2,
            status = CASE WHEN attempts + 1 >= $3 THEN 'failed' ELSE 'pending' END,
            updated_at = NOW()
        WHERE id = $1
    `, id, errMsg, maxAttempts)
    return err
}

// Release puts a claimed item back to pending without charging an
// attempt. Used when the consumer stops before working the item.
func (s *Store) Release(ctx context.Context, id string) error {
    _, err := s.db.ExecContext(ctx, `
        UPDATE provisioning_queue SET status = 'pending', updated_at = NOW()
        WHERE id = $1 AND status = 'processing'
    `, id)
    return err
}

func (s *Store) Pending(ctx context.Context, limit int) ([]Item, error) {
    rows, err := s.db.QueryContext(ctx, `
        SELECT id, router_id, operation, payload, status, attempts, last_error
        FROM provisioning_queue
        WHERE status IN ('pending', 'processing', 'failed')
        ORDER BY created_at
        LIMIT $1
    `, limit)
    if err != nil {
        return nil, fmt.Errorf("failed to list queue items: %w", err)
    }
    defer rows.Close()

    var items []Item
    for rows.Next() {
        var item Item
        if err := rows.Scan(&item.ID, &item.RouterID, &item.Operation, &item.Payload,
            &item.Status, &item.Attempts, &item.LastError); err != nil {
            return nil, err
        }
        items = append(items, item)
    }

    return items, rows.Err()
}
