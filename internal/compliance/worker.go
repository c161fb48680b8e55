package compliance

import (
    "context"
    "fmt"
    "sync/atomic"
    "time"

    "github.com/google/uuid"
    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/internal/vendors"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
    "isp-netops.com/engine/pkg/redis"
)

const enforceLeaseKey = "enforcement:sweep"

// EnforcementSummary is the per-sweep aggregate. A sweep that was skipped
// because another one is running reports all zeros.
type EnforcementSummary struct {
    Checked   int `json:"checked"`
    Compliant int `json:"compliant"`
    Repaired  int `json:"repaired"`
    Failed    int `json:"failed"`
}

// Worker repairs drifted routers by regenerating and re-applying the
// idempotent provisioning script. One sweep at a time: an in-process flag
// guards this instance and, when Redis is configured, a TTL lease guards
// the fleet.
type Worker struct {
    db      *database.DB
    checker *Checker
    queue   *queue.Store
    redis   *redis.RedisClient
    logger  *logger.Logger

    radiusIP      string
    leaseTTL      time.Duration
    routerTimeout time.Duration

    running atomic.Bool
}

func NewWorker(db *database.DB, checker *Checker, q *queue.Store, r *redis.RedisClient, log *logger.Logger, radiusIP string, leaseTTL, routerTimeout time.Duration) *Worker {
    if leaseTTL <= 0 {
        leaseTTL = 10 * time.Minute
    }
    if routerTimeout <= 0 {
        routerTimeout = 10 * time.Second
    }
    return &Worker{
        db:            db,
        checker:       checker,
        queue:         q,
        redis:         r,
        logger:        log,
        radiusIP:      radiusIP,
        leaseTTL:      leaseTTL,
        routerTimeout: routerTimeout,
    }
}

// EnforceAllRouters sweeps every active router: check, and repair the
// non-compliant ones. A second call while a sweep is in flight returns
// immediately with a zero summary; sweeps never queue.
func (w *Worker) EnforceAllRouters(ctx context.Context) EnforcementSummary {
    var summary EnforcementSummary

    if !w.running.CompareAndSwap(false, true) {
        return summary
    }
    defer w.running.Store(false)

    holder := uuid.NewString()
    if w.redis != nil {
        acquired, err := w.redis.AcquireLease(enforceLeaseKey, holder, w.leaseTTL)
        if err != nil {
            w.logger.Warn("enforcement lease check failed, proceeding single-instance", "error", err.Error())
        } else if !acquired {
            return summary
        } else {
            defer w.redis.ReleaseLease(enforceLeaseKey, holder)
        }
    }

    routers, err := ActiveRouters(ctx, w.db)
    if err != nil {
        w.logger.Error("enforcement sweep could not list routers", "error", err.Error())
        return summary
    }

    for _, router := range routers {
        if ctx.Err() != nil {
            break
        }

        summary.Checked++
        _, repaired, compliant := w.enforceOne(ctx, router)
        switch {
        case compliant:
            summary.Compliant++
        case repaired:
            summary.Repaired++
        default:
            summary.Failed++
        }

        if w.redis != nil {
            w.redis.RenewLease(enforceLeaseKey, holder, w.leaseTTL)
        }
    }

    w.writeSummaryLog(ctx, summary)
    return summary
}

// EnforceRouter runs the same check-then-repair logic for a single
// router, synchronously, without the singleton guard.
func (w *Worker) EnforceRouter(ctx context.Context, routerID int) (*models.ComplianceRecord, error) {
    router, err := LoadRouter(ctx, w.db, routerID)
    if err != nil {
        return nil, err
    }

    record, _, _ := w.enforceOne(ctx, router)
    return record, nil
}

// enforceOne checks one router and repairs it if it drifted. Returns the
// final record plus (repaired, wasCompliant).
func (w *Worker) enforceOne(ctx context.Context, router *models.Router) (*models.ComplianceRecord, bool, bool) {
    record := w.checker.CheckRouter(ctx, router, w.radiusIP)
    if record.OverallStatus == "compliant" {
        w.persistRouterStatus(ctx, router.ID, record)
        return record, false, true
    }

    script := GenerateProvisioningScript(router, w.radiusIP, w.radiusSecret(router))

    applied := w.applyScript(ctx, router, script)
    if applied {
        // Re-audit so the persisted state reflects the repair.
        record = w.checker.CheckRouter(ctx, router, w.radiusIP)
    }

    w.persistRouterStatus(ctx, router.ID, record)
    return record, applied && record.OverallStatus == "compliant", false
}

// applyScript feeds the generated script into the router's command set.
// Routers without a synchronous control channel get the script queued for
// the out-of-process worker instead.
func (w *Worker) applyScript(ctx context.Context, router *models.Router, script string) bool {
    if !vendors.SupportsDirectPush(router.Vendor) || !router.HasCredentials() {
        if w.queue != nil {
            if _, err := w.queue.Enqueue(ctx, router.ID, "apply_script", map[string]string{"script": script}); err != nil {
                w.logger.Warn("failed to queue provisioning script", "router_id", router.ID, "error", err.Error())
            }
        }
        return false
    }

    client, err := routeros.NewClient(router.Host, router.Port, router.Username.String, router.Password.String)
    if err != nil {
        w.logger.Warn("cannot build client for repair", "router_id", router.ID, "error", err.Error())
        return false
    }
    client.SetTimeout(w.routerTimeout)

    if err := client.Connect(ctx); err != nil {
        w.logger.Warn("cannot reach router for repair", "router_id", router.ID, "error", err.Error())
        return false
    }
    defer client.Disconnect()

    result := client.RunScript(ctx, "isp-managed-baseline", script)
    if !result.Success {
        w.logger.Warn("provisioning script failed", "router_id", router.ID, "error", result.Error)
        return false
    }
    return true
}

func (w *Worker) radiusSecret(router *models.Router) string {
    if router.RadiusSecret.Valid {
        return router.RadiusSecret.String
    }
    return ""
}

func (w *Worker) persistRouterStatus(ctx context.Context, routerID int, record *models.ComplianceRecord) {
    status := record.OverallStatus
    if status != "compliant" {
        status = "non_compliant"
    }

    notes := ""
    if len(record.Issues) > 0 {
        notes = record.Issues[0]
        if len(record.Issues) > 1 {
            notes = fmt.Sprintf("%s (+%d more)", notes, len(record.Issues)-1)
        }
    }

    _, err := w.db.ExecContext(ctx, `
        UPDATE routers SET compliance_status = $2, compliance_notes = $3, last_checked_at = NOW(), updated_at = NOW()
        WHERE id = $1
    `, routerID, status, notes)
    if err != nil {
        w.logger.Warn("failed to persist router compliance status", "router_id", routerID, "error", err.Error())
    }
}

// writeSummaryLog records one row per sweep. Log failures are swallowed:
// observability must never crash the sweep.
func (w *Worker) writeSummaryLog(ctx context.Context, summary EnforcementSummary) {
    message := fmt.Sprintf("enforcement sweep: checked=%d compliant=%d repaired=%d failed=%d",
        summary.Checked, summary.Compliant, summary.Repaired, summary.Failed)

    _, err := w.db.ExecContext(ctx,
        `INSERT INTO system_logs (level, source, message) VALUES ('INFO', 'enforcement', $1)`, message)
    if err != nil {
        w.logger.Warn("failed to write sweep summary log", "error", err.Error())
    }

    w.logger.Info("enforcement sweep finished",
        "checked", summary.Checked, "compliant", summary.Compliant,
        "repaired", summary.Repaired, "failed", summary.Failed)
}
