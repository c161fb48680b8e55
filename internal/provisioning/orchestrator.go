package provisioning

import (
    "context"
    "database/sql"
    "errors"
    "fmt"
    "time"

    "isp-netops.com/engine/internal/coa"
    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/radiusstore"
    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/internal/vendors"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
)

var (
    ErrServiceNotFound    = errors.New("customer service not found")
    ErrRouterNotFound     = errors.New("service has no router assigned")
    ErrMissingCredentials = errors.New("router credentials are not configured")
)

// Orchestrator decides, per service, how access is enforced: RADIUS
// tables only, a direct push to the device, or both.
type Orchestrator struct {
    db     *database.DB
    radius *radiusstore.Store
    queue  *queue.Store
    coa    *coa.Sender
    logger *logger.Logger

    routerTimeout  time.Duration
    connectTimeout time.Duration
}

func NewOrchestrator(db *database.DB, radius *radiusstore.Store, q *queue.Store, coaSender *coa.Sender, log *logger.Logger, routerTimeout, connectTimeout time.Duration) *Orchestrator {
    if routerTimeout <= 0 {
        routerTimeout = 10 * time.Second
    }
    if connectTimeout <= 0 {
        connectTimeout = 5 * time.Second
    }
    return &Orchestrator{
        db:             db,
        radius:         radius,
        queue:          q,
        coa:            coaSender,
        logger:         log,
        routerTimeout:  routerTimeout,
        connectTimeout: connectTimeout,
    }
}

// StepResult is the outcome of one sub-operation of a provisioning call.
type StepResult struct {
    Success bool   `json:"success"`
    Detail  string `json:"detail,omitempty"`
}

// ProvisionResult reports each sub-operation independently so a hybrid
// call whose direct push failed is visible as a partial success, not a
// total failure masking the committed RADIUS write.
type ProvisionResult struct {
    Method           string      `json:"method"`
    RadiusResult     *StepResult `json:"radius_result,omitempty"`
    DirectPushResult *StepResult `json:"direct_push_result,omitempty"`
}

// ProvisionUserCredentials grants network access for one service's
// credentials according to the router's provisioning mode.
func (o *Orchestrator) ProvisionUserCredentials(ctx context.Context, serviceID int, username, password string, ip, profile *string) (*ProvisionResult, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }
    if !svc.PlanID.Valid {
        return nil, fmt.Errorf("service %d has no plan assigned", serviceID)
    }
    planID := int(svc.PlanID.Int64)

    entry := vendors.AccessEntry{
        ServiceID:      serviceID,
        ConnectionType: svc.ConnectionType,
        Username:       username,
        Password:       password,
    }
    if ip != nil {
        entry.StaticIP = *ip
    }
    if profile != nil {
        entry.Profile = *profile
    }

    switch router.Mode() {
    case "direct_push":
        step, err := o.directPush(ctx, router, entry, false)
        if err != nil {
            return nil, err
        }
        if !step.Success {
            return &ProvisionResult{Method: "direct", DirectPushResult: step},
                fmt.Errorf("direct push to %s failed: %s", router.Host, step.Detail)
        }
        return &ProvisionResult{Method: "direct", DirectPushResult: step}, nil

    case "hybrid":
        if err := o.radius.ProvisionUser(ctx, username, password, planID, router.Vendor); err != nil {
            return nil, err
        }
        result := &ProvisionResult{
            Method:       "hybrid",
            RadiusResult: &StepResult{Success: true},
        }
        if router.HasCredentials() {
            // Best-effort addition: RADIUS already committed, so a push
            // failure degrades the result instead of failing the call.
            step, err := o.directPush(ctx, router, entry, true)
            if err != nil {
                step = &StepResult{Success: false, Detail: err.Error()}
            }
            result.DirectPushResult = step
            if !step.Success {
                o.logger.Warn("hybrid direct push failed after radius success",
                    "service_id", serviceID, "router", router.Host, "error", step.Detail)
            }
        }
        return result, nil

    default: // radius_only
        if err := o.radius.ProvisionUser(ctx, username, password, planID, router.Vendor); err != nil {
            return nil, err
        }
        return &ProvisionResult{
            Method:       "radius",
            RadiusResult: &StepResult{Success: true},
        }, nil
    }
}

// DeprovisionUserCredentials revokes access, mirroring the provisioning
// mode, and kicks any live session off the NAS.
func (o *Orchestrator) DeprovisionUserCredentials(ctx context.Context, serviceID int, username string) (*ProvisionResult, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }

    mode := router.Mode()
    result := &ProvisionResult{Method: mode}

    if mode == "radius_only" || mode == "hybrid" {
        dep := o.radius.Deprovision(ctx, username)
        result.RadiusResult = &StepResult{Success: dep.Success, Detail: dep.Error}
    }

    if (mode == "direct_push" || mode == "hybrid") && router.HasCredentials() {
        entry := vendors.AccessEntry{
            ServiceID:      serviceID,
            ConnectionType: svc.ConnectionType,
            Username:       username,
        }
        step, err := o.removePush(ctx, router, entry)
        if err != nil {
            step = &StepResult{Success: false, Detail: err.Error()}
        }
        result.DirectPushResult = step
    }

    o.disconnectSession(ctx, router, username)
    return result, nil
}

// disconnectSession sends a best-effort Disconnect-Request for any open
// accounting session. Failures are logged, never surfaced.
func (o *Orchestrator) disconnectSession(ctx context.Context, router *models.Router, username string) {
    if o.coa == nil || !router.RadiusSecret.Valid || router.RadiusSecret.String == "" {
        return
    }

    nasIP, sessionID, found, err := o.radius.ActiveSession(ctx, username)
    if err != nil || !found {
        return
    }

    if err := o.coa.Disconnect(ctx, nasIP, router.RadiusSecret.String, username, sessionID); err != nil {
        o.logger.Warn("coa disconnect failed", "username", username, "nas", nasIP, "error", err.Error())
    }
}

func (o *Orchestrator) directPush(ctx context.Context, router *models.Router, entry vendors.AccessEntry, bestEffort bool) (*StepResult, error) {
    driver, _, err := o.openDriver(ctx, router)
    if err != nil {
        if bestEffort {
            return &StepResult{Success: false, Detail: err.Error()}, nil
        }
        return nil, err
    }
    defer driver.Disconnect()

    cmd := driver.CreateAccessEntry(ctx, entry)
    return &StepResult{Success: cmd.Success, Detail: cmd.Error}, nil
}

func (o *Orchestrator) removePush(ctx context.Context, router *models.Router, entry vendors.AccessEntry) (*StepResult, error) {
    driver, _, err := o.openDriver(ctx, router)
    if err != nil {
        return &StepResult{Success: false, Detail: err.Error()}, nil
    }
    defer driver.Disconnect()

    cmd := driver.RemoveAccessEntry(ctx, entry)
    return &StepResult{Success: cmd.Success, Detail: cmd.Error}, nil
}

// openDriver builds the vendor driver for a router and connects it.
// Unsupported vendors and missing credentials come back as precondition
// errors before any network activity.
func (o *Orchestrator) openDriver(ctx context.Context, router *models.Router) (vendors.RouterDriver, *routeros.Client, error) {
    var client *routeros.Client

    if vendors.SupportsDirectPush(router.Vendor) {
        if !router.HasCredentials() {
            return nil, nil, fmt.Errorf("router %s: %w", router.Host, ErrMissingCredentials)
        }
        var err error
        client, err = routeros.NewClient(router.Host, router.Port, router.Username.String, router.Password.String)
        if err != nil {
            return nil, nil, err
        }
        client.SetTimeout(o.routerTimeout)
    }

    driver, err := vendors.DriverFor(router.Vendor, client, o.queue, router.ID)
    if err != nil {
        return nil, nil, err
    }

    if err := o.connectWithDeadline(ctx, driver); err != nil {
        return nil, nil, err
    }
    return driver, client, nil
}

// connectWithDeadline races the connect against a wall-clock guard so an
// unreachable router cannot stall a sweep for the full request timeout.
func (o *Orchestrator) connectWithDeadline(ctx context.Context, driver vendors.RouterDriver) error {
    connectCtx, cancel := context.WithTimeout(ctx, o.connectTimeout)
    defer cancel()

    done := make(chan error, 1)
    go func() {
        done <- driver.Connect(connectCtx)
    }()

    select {
    case err := <-done:
        return err
    case <-time.After(o.connectTimeout + time.Second):
        return fmt.Errorf("router connection timed out after %s", o.connectTimeout)
    }
}

func (o *Orchestrator) loadServiceAndRouter(ctx context.Context, serviceID int) (*models.CustomerService, *models.Router, error) {
    svc, err := o.loadService(ctx, serviceID)
    if err != nil {
        return nil, nil, err
    }
    if !svc.RouterID.Valid {
        return nil, nil, fmt.Errorf("service %d: %w", serviceID, ErrRouterNotFound)
    }

    router, err := o.loadRouter(ctx, int(svc.RouterID.Int64))
    if err != nil {
        return nil, nil, err
    }
    return svc, router, nil
}

func (o *Orchestrator) loadService(ctx context.Context, serviceID int) (*models.CustomerService, error) {
    var svc models.CustomerService
    err := o.db.QueryRowContext(ctx, `
        SELECT id, customer_id, router_id, connection_type, username, password, static_ip,
               plan_id, billing_period_days, status, router_provisioned
        FROM customer_services WHERE id = $1
    `, serviceID).Scan(&svc.ID, &svc.CustomerID, &svc.RouterID, &svc.ConnectionType,
        &svc.Username, &svc.Password, &svc.StaticIP, &svc.PlanID,
        &svc.BillingPeriodDays, &svc.Status, &svc.RouterProvisioned)

    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("service %d: %w", serviceID, ErrServiceNotFound)
    }
    if err != nil {
        return nil, fmt.Errorf("failed to load service %d: %w", serviceID, err)
    }
    return &svc, nil
}

func (o *Orchestrator) loadRouter(ctx context.Context, routerID int) (*models.Router, error) {
    var router models.Router
    err := o.db.QueryRowContext(ctx, `
        SELECT id, name, vendor, connection_method, host, port, username, password,
               management_ip, radius_secret, provisioning_mode, status
        FROM routers WHERE id = $1
    `, routerID).Scan(&router.ID, &router.Name, &router.Vendor, &router.ConnectionMethod,
        &router.Host, &router.Port, &router.Username, &router.Password,
        &router.ManagementIP, &router.RadiusSecret, &router.ProvisioningMode, &router.Status)

    if err == sql.ErrNoRows {
        return nil, fmt.Errorf("router %d not found", routerID)
    }
    if err != nil {
        return nil, fmt.Errorf("failed to load router %d: %w", routerID, err)
    }
    return &router, nil
}
