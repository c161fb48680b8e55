package provisioning

import (
    "context"
    "fmt"

    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/vendors"
)

// LifecycleOutcome is the recorded result of one billing-triggered
// provision or deprovision. Router failures land here, not in an error:
// this path runs from background sweeps where one bad router must not
// look like a crash.
type LifecycleOutcome struct {
    ServiceID int    `json:"service_id"`
    Success   bool   `json:"success"`
    Message   string `json:"message"`
}

// ProvisionServiceToRouter pushes one service's access entry onto its
// router and durably records the outcome on the service row plus the
// activity and router logs.
func (o *Orchestrator) ProvisionServiceToRouter(ctx context.Context, serviceID int) (*LifecycleOutcome, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }

    entry, err := accessEntryFor(svc)
    if err != nil {
        return nil, err
    }

    outcome := &LifecycleOutcome{ServiceID: serviceID}

    step, err := o.directPush(ctx, router, *entry, true)
    if err != nil {
        step = &StepResult{Success: false, Detail: err.Error()}
    }

    if step.Success {
        outcome.Success = true
        outcome.Message = fmt.Sprintf("service %d provisioned to router %s", serviceID, router.Host)
        o.markProvisioned(ctx, serviceID, true)
    } else {
        outcome.Message = fmt.Sprintf("failed to provision service %d to router %s: %s", serviceID, router.Host, step.Detail)
        o.logger.Warn("service provisioning failed", "service_id", serviceID, "router", router.Host, "error", step.Detail)
    }

    o.writeActivityLog(ctx, svc.CustomerID, "service_provision", outcome.Message)
    o.writeRouterLog(ctx, router.ID, "provision", outcome.Success, outcome.Message)
    return outcome, nil
}

// DeprovisionServiceFromRouter removes the access entry and clears the
// provisioned flag. Same background-sweep contract as provisioning.
func (o *Orchestrator) DeprovisionServiceFromRouter(ctx context.Context, serviceID int) (*LifecycleOutcome, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }

    entry, err := accessEntryFor(svc)
    if err != nil {
        return nil, err
    }

    outcome := &LifecycleOutcome{ServiceID: serviceID}

    step, err := o.removePush(ctx, router, *entry)
    if err != nil {
        step = &StepResult{Success: false, Detail: err.Error()}
    }

    if step.Success {
        outcome.Success = true
        outcome.Message = fmt.Sprintf("service %d deprovisioned from router %s", serviceID, router.Host)
        o.markProvisioned(ctx, serviceID, false)
        if svc.Username.Valid {
            o.disconnectSession(ctx, router, svc.Username.String)
        }
    } else {
        outcome.Message = fmt.Sprintf("failed to deprovision service %d from router %s: %s", serviceID, router.Host, step.Detail)
        o.logger.Warn("service deprovisioning failed", "service_id", serviceID, "router", router.Host, "error", step.Detail)
    }

    o.writeActivityLog(ctx, svc.CustomerID, "service_deprovision", outcome.Message)
    o.writeRouterLog(ctx, router.ID, "deprovision", outcome.Success, outcome.Message)
    return outcome, nil
}

// accessEntryFor validates that the service carries everything its
// connection type needs before any router is contacted.
func accessEntryFor(svc *models.CustomerService) (*vendors.AccessEntry, error) {
    entry := &vendors.AccessEntry{
        ServiceID:      svc.ID,
        ConnectionType: svc.ConnectionType,
    }

    switch svc.ConnectionType {
    case "static_ip":
        if !svc.StaticIP.Valid || svc.StaticIP.String == "" {
            return nil, fmt.Errorf("service %d is static_ip but has no static IP assigned", svc.ID)
        }
        entry.StaticIP = svc.StaticIP.String
    case "dhcp":
        if !svc.StaticIP.Valid || svc.StaticIP.String == "" {
            return nil, fmt.Errorf("service %d is dhcp but has no lease address assigned", svc.ID)
        }
        entry.StaticIP = svc.StaticIP.String
    default: // pppoe
        if !svc.Username.Valid || svc.Username.String == "" || !svc.Password.Valid || svc.Password.String == "" {
            return nil, fmt.Errorf("service %d is pppoe but has no credentials assigned", svc.ID)
        }
        entry.Username = svc.Username.String
        entry.Password = svc.Password.String
    }
    return entry, nil
}

func (o *Orchestrator) markProvisioned(ctx context.Context, serviceID int, provisioned bool) {
    var query string
    if provisioned {
        query = `UPDATE customer_services SET router_provisioned = true, provisioned_at = NOW(), updated_at = NOW() WHERE id = $1`
    } else {
        query = `UPDATE customer_services SET router_provisioned = false, deprovisioned_at = NOW(), updated_at = NOW() WHERE id = $1`
    }
    if _, err := o.db.ExecContext(ctx, query, serviceID); err != nil {
        o.logger.Warn("failed to update service provisioned flag", "service_id", serviceID, "error", err.Error())
    }
}

// Log writes are best-effort; observability must never fail the primary
// operation.
func (o *Orchestrator) writeActivityLog(ctx context.Context, customerID int, action, message string) {
    _, err := o.db.ExecContext(ctx,
        `INSERT INTO activity_logs (customer_id, action, message) VALUES ($1, $2, $3)`,
        customerID, action, message)
    if err != nil {
        o.logger.Warn("failed to write activity log", "action", action, "error", err.Error())
    }
}

func (o *Orchestrator) writeRouterLog(ctx context.Context, routerID int, action string, success bool, message string) {
    _, err := o.db.ExecContext(ctx,
        `INSERT INTO router_logs (router_id, action, success, message) VALUES ($1, $2, $3, $4)`,
        routerID, action, success, message)
    if err != nil {
        o.logger.Warn("failed to write router log", "router_id", routerID, "error", err.Error())
    }
}
