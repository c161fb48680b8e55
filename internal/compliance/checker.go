package compliance

import (
    "context"
    "encoding/json"
    "fmt"
    "strings"
    "time"

    "isp-netops.com/engine/internal/models"
    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
)

// Firewall comment tags that mark rules as managed by this platform.
const (
    TagRadius        = "ISP_MANAGED:RADIUS"
    TagCoA           = "ISP_MANAGED:COA"
    TagFasttrackSafe = "ISP_MANAGED:FASTTRACK_SAFE"
)

// Checker audits a router's live configuration against the managed
// baseline. Read-only; it never mutates device state.
type Checker struct {
    db            *database.DB
    logger        *logger.Logger
    routerTimeout time.Duration
}

func NewChecker(db *database.DB, log *logger.Logger, routerTimeout time.Duration) *Checker {
    if routerTimeout <= 0 {
        routerTimeout = 10 * time.Second
    }
    return &Checker{db: db, logger: log, routerTimeout: routerTimeout}
}

// CheckRouter runs every rule against one router. Checks that could not
// run stay false: an unreachable router is treated as non-compliant, not
// unknown (fail-closed).
func (c *Checker) CheckRouter(ctx context.Context, router *models.Router, radiusIP string) *models.ComplianceRecord {
    record := &models.ComplianceRecord{
        RouterID:  router.ID,
        CheckedAt: time.Now(),
    }

    client, err := routeros.NewClient(router.Host, router.Port, router.Username.String, router.Password.String)
    if err != nil {
        record.Issues = append(record.Issues, err.Error())
        c.finish(ctx, record)
        return record
    }
    client.SetTimeout(c.routerTimeout)

    if err := client.Connect(ctx); err != nil {
        record.Issues = append(record.Issues, err.Error())
        c.finish(ctx, record)
        return record
    }
    defer client.Disconnect()

    c.checkRadius(ctx, client, record, radiusIP)
    c.checkCoA(ctx, client, record)
    c.checkDNS(ctx, client, record)
    c.checkFirewall(ctx, client, record)
    c.checkServices(ctx, client, record)

    c.finish(ctx, record)
    return record
}

// CheckAllRouters audits every active router.
func (c *Checker) CheckAllRouters(ctx context.Context, radiusIP string) ([]*models.ComplianceRecord, error) {
    routers, err := ActiveRouters(ctx, c.db)
    if err != nil {
        return nil, err
    }

    var records []*models.ComplianceRecord
    for _, router := range routers {
        records = append(records, c.CheckRouter(ctx, router, radiusIP))
    }
    return records, nil
}

func (c *Checker) checkRadius(ctx context.Context, client *routeros.Client, record *models.ComplianceRecord, radiusIP string) {
    result := client.GetRadiusServers(ctx)
    if !result.Success {
        record.Issues = append(record.Issues, "radius server list unavailable: "+result.Error)
        return
    }

    var servers []struct {
        Address string `json:"address"`
    }
    if err := json.Unmarshal(result.Data, &servers); err != nil {
        record.Issues = append(record.Issues, "unreadable radius server list")
        return
    }

    for _, s := range servers {
        if s.Address == radiusIP {
            record.RadiusOk = true
            record.AccountingOk = true
            return
        }
    }
    record.Issues = append(record.Issues, fmt.Sprintf("no RADIUS entry for %s", radiusIP))
}

func (c *Checker) checkCoA(ctx context.Context, client *routeros.Client, record *models.ComplianceRecord) {
    result := client.GetRadiusIncoming(ctx)
    if !result.Success {
        record.Issues = append(record.Issues, "radius incoming settings unavailable: "+result.Error)
        return
    }

    var incoming struct {
        Accept string `json:"accept"`
    }
    if err := json.Unmarshal(result.Data, &incoming); err != nil {
        record.Issues = append(record.Issues, "unreadable radius incoming settings")
        return
    }

    if incoming.Accept == "true" || incoming.Accept == "yes" {
        record.CoAOk = true
    } else {
        record.Issues = append(record.Issues, "CoA (radius incoming) is not accepted")
    }
}

func (c *Checker) checkDNS(ctx context.Context, client *routeros.Client, record *models.ComplianceRecord) {
    result := client.GetDNSSettings(ctx)
    if !result.Success {
        record.Issues = append(record.Issues, "dns settings unavailable: "+result.Error)
        return
    }

    var dns struct {
        Servers string `json:"servers"`
    }
    if err := json.Unmarshal(result.Data, &dns); err != nil {
        record.Issues = append(record.Issues, "unreadable dns settings")
        return
    }

    if strings.TrimSpace(dns.Servers) != "" {
        record.DNSOk = true
    } else {
        record.Issues = append(record.Issues, "no DNS servers configured")
    }
}

func (c *Checker) checkFirewall(ctx context.Context, client *routeros.Client, record *models.ComplianceRecord) {
    result := client.GetFirewallRules(ctx)
    if !result.Success {
        record.Issues = append(record.Issues, "firewall rules unavailable: "+result.Error)
        return
    }

    var rules []struct {
        Comment string `json:"comment"`
    }
    if err := json.Unmarshal(result.Data, &rules); err != nil {
        record.Issues = append(record.Issues, "unreadable firewall rule list")
        return
    }

    tags := make(map[string]bool)
    for _, rule := range rules {
        tags[rule.Comment] = true
    }

    if tags[TagRadius] && tags[TagCoA] {
        record.FirewallOk = true
    } else {
        record.Issues = append(record.Issues, "managed RADIUS/CoA firewall rules missing")
    }

    if tags[TagFasttrackSafe] {
        record.FasttrackSafe = true
    } else {
        record.Issues = append(record.Issues, "fasttrack bypass rule missing")
    }
}

func (c *Checker) checkServices(ctx context.Context, client *routeros.Client, record *models.ComplianceRecord) {
    result := client.GetIPServices(ctx)
    if !result.Success {
        record.Issues = append(record.Issues, "ip services unavailable: "+result.Error)
        return
    }

    var services []struct {
        Name     string `json:"name"`
        Disabled string `json:"disabled"`
    }
    if err := json.Unmarshal(result.Data, &services); err != nil {
        record.Issues = append(record.Issues, "unreadable ip service list")
        return
    }

    insecure := map[string]bool{"telnet": false, "ftp": false, "www": false}
    for _, svc := range services {
        if _, watched := insecure[svc.Name]; watched {
            insecure[svc.Name] = svc.Disabled == "true" || svc.Disabled == "yes"
        }
    }

    record.SecurityOk = true
    for name, disabled := range insecure {
        if !disabled {
            record.SecurityOk = false
            record.Issues = append(record.Issues, fmt.Sprintf("management service %s is enabled", name))
        }
    }
}

// Classify derives the overall status from the rule results: compliant
// only when everything passed, broken when fewer than half did.
func Classify(record *models.ComplianceRecord) string {
    checks := record.Checks()
    passed := 0
    for _, ok := range checks {
        if ok {
            passed++
        }
    }

    switch {
    case passed == len(checks):
        return "compliant"
    case passed*2 < len(checks):
        return "broken"
    default:
        return "partial"
    }
}

// finish classifies the record and upserts it; one row per router, no
// history kept here.
func (c *Checker) finish(ctx context.Context, record *models.ComplianceRecord) {
    record.OverallStatus = Classify(record)

    issues, _ := json.Marshal(record.Issues)
    _, err := c.db.ExecContext(ctx, `
        INSERT INTO router_compliance
            (router_id, radius_ok, accounting_ok, coa_ok, dns_ok, firewall_ok,
             fasttrack_safe, security_ok, issues, overall_status, checked_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
        ON CONFLICT (router_id) DO UPDATE SET
            radius_ok = EXCLUDED.radius_ok,
            accounting_ok = EXCLUDED.accounting_ok,
            coa_ok = EXCLUDED.coa_ok,
            dns_ok = EXCLUDED.dns_ok,
            firewall_ok = EXCLUDED.firewall_ok,
            fasttrack_safe = EXCLUDED.fasttrack_safe,
            security_ok = EXCLUDED.security_ok,
            issues = EXCLUDED.issues,
            overall_status = EXCLUDED.overall_status,
            checked_at = EXCLUDED.checked_at
    `, record.RouterID, record.RadiusOk, record.AccountingOk, record.CoAOk, record.DNSOk,
        record.FirewallOk, record.FasttrackSafe, record.SecurityOk, issues,
        record.OverallStatus, record.CheckedAt)
    if err != nil {
        c.logger.Warn("failed to persist compliance record", "router_id", record.RouterID, "error", err.Error())
    }
}

// LoadRouter fetches one router with the fields checks and repairs need.
func LoadRouter(ctx context.Context, db *database.DB, routerID int) (*models.Router, error) {
    var router models.Router
    err := db.QueryRowContext(ctx, `
        SELECT id, name, vendor, connection_method, host, port, username, password,
               management_ip, radius_secret, provisioning_mode, status
        FROM routers WHERE id = $1
    `, routerID).Scan(&router.ID, &router.Name, &router.Vendor, &router.ConnectionMethod,
        &router.Host, &router.Port, &router.Username, &router.Password,
        &router.ManagementIP, &router.RadiusSecret, &router.ProvisioningMode, &router.Status)
    if err != nil {
        return nil, fmt.Errorf("router %d not found", routerID)
    }
    return &router, nil
}

// ActiveRouters loads every router eligible for checks and enforcement.
func ActiveRouters(ctx context.Context, db *database.DB) ([]*models.Router, error) {
    rows, err := db.QueryContext(ctx, `
        SELECT id, name, vendor, connection_method, host, port, username, password,
               management_ip, radius_secret, provisioning_mode, status
        FROM routers WHERE status = 'active' ORDER BY id
    `)
    if err != nil {
        return nil, fmt.Errorf("failed to list active routers: %w", err)
    }
    defer rows.Close()

    var routers []*models.Router
    for rows.Next() {
        var router models.Router
        if err := rows.Scan(&router.ID, &router.Name, &router.Vendor, &router.ConnectionMethod,
            &router.Host, &router.Port, &router.Username, &router.Password,
            &router.ManagementIP, &router.RadiusSecret, &router.ProvisioningMode, &router.Status); err != nil {
            return nil, err
        }
        routers = append(routers, &router)
    }
    return routers, rows.Err()
}
