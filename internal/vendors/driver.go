package vendors

import (
    "context"
    "errors"
    "fmt"
    "net/http"

    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/routeros"
)

// ErrDirectPushUnsupported marks vendors whose equipment we can only
// drive through RADIUS. Callers must fail explicitly, never fall back
// silently.
var ErrDirectPushUnsupported = errors.New("direct push not implemented for this vendor")

// AccessEntry is the vendor-neutral description of one customer's access
// credential on a router.
type AccessEntry struct {
    ServiceID      int
    ConnectionType string
    Username       string
    Password       string
    Profile        string
    StaticIP       string
    MAC            string
}

// RouterDriver is one vendor's way of pushing an access entry onto a
// device. Implementations wrap the Protocol Client or the provisioning
// queue; command failures come back as CommandResult values.
type RouterDriver interface {
    Connect(ctx context.Context) error
    CreateAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult
    RemoveAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult
    SuspendAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult
    ResumeAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult
    SetAccessProfile(ctx context.Context, entry AccessEntry) routeros.CommandResult
    QueryCompliance(ctx context.Context) routeros.CommandResult
    Disconnect()
}

// DriverFor picks the driver for a vendor. Synchronous vendors get a
// client-backed driver; vendors with an asynchronous control channel get
// the queue-backed driver; ubiquiti and juniper have no direct-push path
// at all.
func DriverFor(vendor string, client *routeros.Client, store *queue.Store, routerID int) (RouterDriver, error) {
    switch vendor {
    case "mikrotik":
        if client == nil {
            return nil, fmt.Errorf("mikrotik driver requires a connected client")
        }
        return &mikrotikDriver{client: client}, nil
    case "cisco":
        if client == nil {
            return nil, fmt.Errorf("cisco driver requires a connected client")
        }
        return &ciscoDriver{client: client}, nil
    case "ubiquiti", "juniper":
        return nil, fmt.Errorf("vendor %s: %w", vendor, ErrDirectPushUnsupported)
    default:
        if store == nil {
            return nil, fmt.Errorf("vendor %s needs the provisioning queue", vendor)
        }
        return &queuedDriver{store: store, routerID: routerID, vendor: vendor}, nil
    }
}

// mikrotikDriver drives RouterOS devices over the REST client.
type mikrotikDriver struct {
    client *routeros.Client
}

func (d *mikrotikDriver) Connect(ctx context.Context) error {
    return d.client.Connect(ctx)
}

func (d *mikrotikDriver) CreateAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    switch entry.ConnectionType {
    case "static_ip":
        return d.client.AddFirewallRule(ctx, map[string]interface{}{
            "chain":       "forward",
            "src-address": entry.StaticIP,
            "action":      "accept",
        }, serviceTag(entry.ServiceID))
    case "dhcp":
        return d.client.AssignDHCPLease(ctx, entry.MAC, entry.StaticIP, serviceTag(entry.ServiceID))
    default:
        return d.client.CreatePPPoESecret(ctx, entry.Username, entry.Password, entry.Profile, "pppoe")
    }
}

func (d *mikrotikDriver) RemoveAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    switch entry.ConnectionType {
    case "static_ip":
        return d.client.RemoveFirewallRuleByComment(ctx, serviceTag(entry.ServiceID))
    case "dhcp":
        return d.client.ReleaseDHCPLease(ctx, serviceTag(entry.ServiceID))
    default:
        return d.client.RemovePPPoESecret(ctx, entry.Username)
    }
}

// SuspendAccessEntry disables the secret rather than deleting it, so
// resuming is cheap and the customer's stored password survives. Non-PPPoE
// entries have no disabled flag; suspension removes them outright.
func (d *mikrotikDriver) SuspendAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    if entry.ConnectionType == "static_ip" || entry.ConnectionType == "dhcp" {
        return d.RemoveAccessEntry(ctx, entry)
    }
    return d.client.DisablePPPoESecret(ctx, entry.Username)
}

func (d *mikrotikDriver) ResumeAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    if entry.ConnectionType == "static_ip" || entry.ConnectionType == "dhcp" {
        return d.CreateAccessEntry(ctx, entry)
    }
    return d.client.EnablePPPoESecret(ctx, entry.Username)
}

func (d *mikrotikDriver) SetAccessProfile(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.SetPPPoESecretProfile(ctx, entry.Username, entry.Profile)
}

func (d *mikrotikDriver) QueryCompliance(ctx context.Context) routeros.CommandResult {
    return d.client.GetRadiusServers(ctx)
}

func (d *mikrotikDriver) Disconnect() {
    d.client.Disconnect()
}

// ciscoDriver speaks the same REST contract; Cisco gear behind a RESTCONF
// gateway exposes subscriber sessions the same way, so only the entry
// shape differs.
type ciscoDriver struct {
    client *routeros.Client
}

func (d *ciscoDriver) Connect(ctx context.Context) error {
    return d.client.Connect(ctx)
}

func (d *ciscoDriver) CreateAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodPut, "/subscriber/session", map[string]interface{}{
        "username": entry.Username,
        "password": entry.Password,
        "policy":   entry.Profile,
    })
}

func (d *ciscoDriver) RemoveAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodDelete, "/subscriber/session/"+entry.Username, nil)
}

func (d *ciscoDriver) SuspendAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodPatch, "/subscriber/session/"+entry.Username, map[string]interface{}{
        "enabled": false,
    })
}

func (d *ciscoDriver) ResumeAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodPatch, "/subscriber/session/"+entry.Username, map[string]interface{}{
        "enabled": true,
    })
}

func (d *ciscoDriver) SetAccessProfile(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodPatch, "/subscriber/session/"+entry.Username, map[string]interface{}{
        "policy": entry.Profile,
    })
}

func (d *ciscoDriver) QueryCompliance(ctx context.Context) routeros.CommandResult {
    return d.client.Execute(ctx, http.MethodGet, "/aaa/radius", nil)
}

func (d *ciscoDriver) Disconnect() {
    d.client.Disconnect()
}

// queuedDriver records the operation durably for the out-of-process
// ssh/netconf worker instead of touching the device.
type queuedDriver struct {
    store    *queue.Store
    routerID int
    vendor   string
}

func (d *queuedDriver) Connect(ctx context.Context) error {
    // Nothing to reach: the control channel is the queue itself.
    return nil
}

func (d *queuedDriver) CreateAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.enqueue(ctx, "create_access_entry", entry)
}

func (d *queuedDriver) RemoveAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.enqueue(ctx, "remove_access_entry", entry)
}

func (d *queuedDriver) SuspendAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.enqueue(ctx, "suspend_access_entry", entry)
}

func (d *queuedDriver) ResumeAccessEntry(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.enqueue(ctx, "resume_access_entry", entry)
}

func (d *queuedDriver) SetAccessProfile(ctx context.Context, entry AccessEntry) routeros.CommandResult {
    return d.enqueue(ctx, "set_access_profile", entry)
}

func (d *queuedDriver) QueryCompliance(ctx context.Context) routeros.CommandResult {
    return routeros.CommandResult{
        Success: false,
        Error:   fmt.Sprintf("vendor %s has no synchronous compliance query", d.vendor),
    }
}

func (d *queuedDriver) Disconnect() {}

func (d *queuedDriver) enqueue(ctx context.Context, operation string, entry AccessEntry) routeros.CommandResult {
    id, err := d.store.Enqueue(ctx, d.routerID, operation, entry)
    if err != nil {
        return routeros.CommandResult{Success: false, Error: err.Error()}
    }
    return routeros.CommandResult{Success: true, Data: []byte(fmt.Sprintf(`{"queued":"%s"}`, id))}
}

func serviceTag(serviceID int) string {
    return fmt.Sprintf("ISP_MANAGED:SVC_%d", serviceID)
}
