package provisioning

import (
    "context"
    "fmt"

    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/internal/vendors"
)

// Subscriber lifecycle beyond provision/deprovision: suspension for
// non-payment, reactivation, and plan speed changes. All three follow the
// router's provisioning mode the same way ProvisionUserCredentials does.

// SuspendUserCredentials cuts authentication without destroying the
// user's authorization rows, so reactivation is a single write. Any live
// session is kicked so the suspension takes effect immediately.
func (o *Orchestrator) SuspendUserCredentials(ctx context.Context, serviceID int, username string) (*ProvisionResult, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }

    mode := router.Mode()
    result := &ProvisionResult{Method: mode}

    if mode == "radius_only" || mode == "hybrid" {
        active, err := o.radius.HasCheckEntry(ctx, username)
        if err != nil {
            return nil, err
        }
        if !active {
            result.RadiusResult = &StepResult{Success: true, Detail: "already suspended"}
        } else {
            if err := o.radius.Suspend(ctx, username); err != nil {
                return nil, err
            }
            result.RadiusResult = &StepResult{Success: true}
        }
    }

    if (mode == "direct_push" || mode == "hybrid") && router.HasCredentials() {
        entry := vendors.AccessEntry{
            ServiceID:      serviceID,
            ConnectionType: svc.ConnectionType,
            Username:       username,
        }
        if svc.StaticIP.Valid {
            entry.StaticIP = svc.StaticIP.String
        }
        result.DirectPushResult = o.pushOp(ctx, router, func(ctx context.Context, d vendors.RouterDriver) routeros.CommandResult {
            return d.SuspendAccessEntry(ctx, entry)
        })
    }

    o.disconnectSession(ctx, router, username)
    return result, nil
}

// UnsuspendUserCredentials restores authentication. No disconnect is sent;
// the subscriber simply reconnects.
func (o *Orchestrator) UnsuspendUserCredentials(ctx context.Context, serviceID int, username, password string) (*ProvisionResult, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }

    mode := router.Mode()
    result := &ProvisionResult{Method: mode}

    if mode == "radius_only" || mode == "hybrid" {
        if err := o.radius.Unsuspend(ctx, username, password); err != nil {
            return nil, err
        }
        result.RadiusResult = &StepResult{Success: true}
    }

    if (mode == "direct_push" || mode == "hybrid") && router.HasCredentials() {
        entry := vendors.AccessEntry{
            ServiceID:      serviceID,
            ConnectionType: svc.ConnectionType,
            Username:       username,
            Password:       password,
        }
        if svc.StaticIP.Valid {
            entry.StaticIP = svc.StaticIP.String
        }
        result.DirectPushResult = o.pushOp(ctx, router, func(ctx context.Context, d vendors.RouterDriver) routeros.CommandResult {
            return d.ResumeAccessEntry(ctx, entry)
        })
    }

    return result, nil
}

// ChangeUserSpeed moves the user onto a new plan's rate. The RADIUS
// attribute is rewritten for the router's vendor; when a profile name is
// given and the router is directly reachable, the device-side profile is
// updated too. The session is kicked so the new rate applies on
// reconnect instead of at the next natural re-auth.
func (o *Orchestrator) ChangeUserSpeed(ctx context.Context, serviceID int, username string, planID int, profile *string) (*ProvisionResult, error) {
    svc, router, err := o.loadServiceAndRouter(ctx, serviceID)
    if err != nil {
        return nil, err
    }
    if planID == 0 {
        if !svc.PlanID.Valid {
            return nil, fmt.Errorf("service %d has no plan assigned", serviceID)
        }
        planID = int(svc.PlanID.Int64)
    }

    mode := router.Mode()
    result := &ProvisionResult{Method: mode}

    if mode == "radius_only" || mode == "hybrid" {
        if err := o.radius.UpdateSpeed(ctx, username, planID, router.Vendor); err != nil {
            return nil, err
        }
        result.RadiusResult = &StepResult{Success: true}
    }

    if profile != nil && *profile != "" &&
        (mode == "direct_push" || mode == "hybrid") && router.HasCredentials() {
        entry := vendors.AccessEntry{
            ServiceID:      serviceID,
            ConnectionType: svc.ConnectionType,
            Username:       username,
            Profile:        *profile,
        }
        result.DirectPushResult = o.pushOp(ctx, router, func(ctx context.Context, d vendors.RouterDriver) routeros.CommandResult {
            return d.SetAccessProfile(ctx, entry)
        })
    }

    o.disconnectSession(ctx, router, username)
    return result, nil
}

// pushOp runs one driver operation best-effort and folds every failure
// into the step result.
func (o *Orchestrator) pushOp(ctx context.Context, router *models.Router, op func(context.Context, vendors.RouterDriver) routeros.CommandResult) *StepResult {
    driver, _, err := o.openDriver(ctx, router)
    if err != nil {
        return &StepResult{Success: false, Detail: err.Error()}
    }
    defer driver.Disconnect()

    cmd := op(ctx, driver)
    return &StepResult{Success: cmd.Success, Detail: cmd.Error}
}
