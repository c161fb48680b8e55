package queue

import (
    "context"
    "encoding/json"
    "fmt"
    "time"

    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
)

// Consumer drains the provisioning queue. Items whose router has a
// reachable management API are delivered over it; the rest fail with a
// reason and burn an attempt, so stuck routers surface in /api/queue
// instead of silently piling up.
type Consumer struct {
    db            *database.DB
    store         *Store
    logger        *logger.Logger
    routerTimeout time.Duration
}

func NewConsumer(db *database.DB, store *Store, log *logger.Logger, routerTimeout time.Duration) *Consumer {
    if routerTimeout <= 0 {
        routerTimeout = 10 * time.Second
    }
    return &Consumer{db: db, store: store, logger: log, routerTimeout: routerTimeout}
}

type queuedEntry struct {
    ConnectionType string `json:"ConnectionType"`
    Username       string `json:"Username"`
    Password       string `json:"Password"`
    Profile        string `json:"Profile"`
    StaticIP       string `json:"StaticIP"`
    ServiceID      int    `json:"ServiceID"`
    Script         string `json:"script"`
}

// ProcessPending claims up to limit items and works them off one by one.
func (c *Consumer) ProcessPending(ctx context.Context, limit int) (done, failed int) {
    items, err := c.store.ClaimPending(ctx, limit)
    if err != nil {
        c.logger.Error("queue claim failed", "error", err.Error())
        return 0, 0
    }

    for _, item := range items {
        if ctx.Err() != nil {
            // Put the unworked item back for the next pass. The claim
            // context is gone, so the release gets its own.
            if err := c.store.Release(context.Background(), item.ID); err != nil {
                c.logger.Warn("failed to release queue item", "item_id", item.ID, "error", err.Error())
            }
            continue
        }

        if err := c.process(ctx, item); err != nil {
            failed++
            if markErr := c.store.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
                c.logger.Warn("failed to mark queue item failed", "item_id", item.ID, "error", markErr.Error())
            }
            c.logger.Warn("queue item failed", "item_id", item.ID, "operation", item.Operation, "error", err.Error())
        } else {
            done++
            if markErr := c.store.MarkDone(ctx, item.ID); markErr != nil {
                c.logger.Warn("failed to mark queue item done", "item_id", item.ID, "error", markErr.Error())
            }
        }
    }
    return done, failed
}

func (c *Consumer) process(ctx context.Context, item Item) error {
    var host, username, password string
    var port int
    err := c.db.QueryRowContext(ctx, `
        SELECT host, port, COALESCE(username, ''), COALESCE(password, '')
        FROM routers WHERE id = $1
    `, item.RouterID).Scan(&host, &port, &username, &password)
    if err != nil {
        return fmt.Errorf("router %d not found for queue item", item.RouterID)
    }
    if username == "" || password == "" {
        return fmt.Errorf("router %d has no management credentials; item needs manual delivery", item.RouterID)
    }

    var entry queuedEntry
    if err := json.Unmarshal(item.Payload, &entry); err != nil {
        return fmt.Errorf("unreadable payload: %w", err)
    }

    client, err := routeros.NewClient(host, port, username, password)
    if err != nil {
        return err
    }
    client.SetTimeout(c.routerTimeout)

    if err := client.Connect(ctx); err != nil {
        return err
    }
    defer client.Disconnect()

    var result routeros.CommandResult
    switch item.Operation {
    case "create_access_entry":
        result = client.CreatePPPoESecret(ctx, entry.Username, entry.Password, entry.Profile, "pppoe")
    case "remove_access_entry":
        result = client.RemovePPPoESecret(ctx, entry.Username)
    case "suspend_access_entry":
        result = client.DisablePPPoESecret(ctx, entry.Username)
    case "resume_access_entry":
        result = client.EnablePPPoESecret(ctx, entry.Username)
    case "set_access_profile":
        result = client.SetPPPoESecretProfile(ctx, entry.Username, entry.Profile)
    case "apply_script":
        result = client.RunScript(ctx, "isp-managed-baseline", entry.Script)
    default:
        return fmt.Errorf("unknown queue operation %q", item.Operation)
    }

    if !result.Success {
        return fmt.Errorf("operation %s on router %d failed: %s", item.Operation, item.RouterID, result.Error)
    }
    return nil
}
