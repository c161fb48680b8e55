package models

import (
    "database/sql"
    "time"
)

type User struct {
    ID           int            `json:"id"`
    Email        string         `json:"email"`
    PasswordHash string         `json:"-"`
    Role         string         `json:"role"`
    FullName     sql.NullString `json:"full_name"`
    IsActive     bool           `json:"is_active"`
    CreatedAt    time.Time      `json:"created_at"`
    UpdatedAt    time.Time      `json:"updated_at"`
}

type Plan struct {
    ID            int           `json:"id"`
    Name          string        `json:"name"`
    DownloadMbps  sql.NullInt64 `json:"download_mbps"`
    UploadMbps    sql.NullInt64 `json:"upload_mbps"`
    BurstDownMbps sql.NullInt64 `json:"burst_down_mbps"`
    BurstUpMbps   sql.NullInt64 `json:"burst_up_mbps"`
    PriceMonthly  float64       `json:"price_monthly"`
    IsActive      bool          `json:"is_active"`
    CreatedAt     time.Time     `json:"created_at"`
}

// Router is a managed network device. Credentials are the management API
// login, not the RADIUS secret.
type Router struct {
    ID               int            `json:"id"`
    Name             string         `json:"name"`
    Vendor           string         `json:"vendor"`
    ConnectionMethod string         `json:"connection_method"`
    Host             string         `json:"host"`
    Port             int            `json:"port"`
    Username         sql.NullString `json:"username"`
    Password         sql.NullString `json:"-"`
    ManagementIP     sql.NullString `json:"management_ip"`
    RadiusSecret     sql.NullString `json:"-"`
    ProvisioningMode sql.NullString `json:"provisioning_mode"`
    CurrentSessions  int            `json:"current_sessions"`
    MaxSessions      int            `json:"max_sessions"`
    Status           string         `json:"status"`
    ComplianceStatus sql.NullString `json:"compliance_status"`
    ComplianceNotes  sql.NullString `json:"compliance_notes"`
    LastCheckedAt    sql.NullTime   `json:"last_checked_at"`
    CreatedAt        time.Time      `json:"created_at"`
    UpdatedAt        time.Time      `json:"updated_at"`
}

// HasCredentials reports whether the router can be driven directly over
// its management API.
func (r *Router) HasCredentials() bool {
    return r.Host != "" && r.Username.Valid && r.Username.String != "" &&
        r.Password.Valid && r.Password.String != ""
}

func (r *Router) Mode() string {
    if r.ProvisioningMode.Valid && r.ProvisioningMode.String != "" {
        return r.ProvisioningMode.String
    }
    return "radius_only"
}

type CustomerService struct {
    ID                int            `json:"id"`
    CustomerID        int            `json:"customer_id"`
    RouterID          sql.NullInt64  `json:"router_id"`
    ConnectionType    string         `json:"connection_type"`
    Username          sql.NullString `json:"username"`
    Password          sql.NullString `json:"-"`
    StaticIP          sql.NullString `json:"static_ip"`
    PlanID            sql.NullInt64  `json:"plan_id"`
    BillingPeriodDays int            `json:"billing_period_days"`
    Status            string         `json:"status"`
    RouterProvisioned bool           `json:"router_provisioned"`
    ProvisionedAt     sql.NullTime   `json:"provisioned_at"`
    DeprovisionedAt   sql.NullTime   `json:"deprovisioned_at"`
    NextBillingDate   sql.NullTime   `json:"next_billing_date"`
    ExpiryDate        sql.NullTime   `json:"expiry_date"`
    CreatedAt         time.Time      `json:"created_at"`
    UpdatedAt         time.Time      `json:"updated_at"`
}

// RadiusAttribute is one (username, attribute, op, value) tuple from the
// radcheck or radreply table. At most one row exists per (username,
// attribute); every write is an upsert.
// RadiusAttribute is one radcheck or radreply row; Source says which
// table it came from.
type RadiusAttribute struct {
    ID        int    `json:"id"`
    Username  string `json:"username"`
    Attribute string `json:"attribute"`
    Op        string `json:"op"`
    Value     string `json:"value"`
    Source    string `json:"source"`
}

type ComplianceRecord struct {
    RouterID      int       `json:"router_id"`
    RadiusOk      bool      `json:"radius_ok"`
    AccountingOk  bool      `json:"accounting_ok"`
    CoAOk         bool      `json:"coa_ok"`
    DNSOk         bool      `json:"dns_ok"`
    FirewallOk    bool      `json:"firewall_ok"`
    FasttrackSafe bool      `json:"fasttrack_safe"`
    SecurityOk    bool      `json:"security_ok"`
    Issues        []string  `json:"issues"`
    OverallStatus string    `json:"overall_status"`
    CheckedAt     time.Time `json:"checked_at"`
}

// Checks returns the rule results in a fixed order for classification.
func (c *ComplianceRecord) Checks() []bool {
    return []bool{c.RadiusOk, c.AccountingOk, c.CoAOk, c.DNSOk, c.FirewallOk, c.FasttrackSafe, c.SecurityOk}
}

type SystemLog struct {
    ID        int       `json:"id"`
    Level     string    `json:"level"`
    Source    string    `json:"source"`
    Message   string    `json:"message"`
    Metadata  []byte    `json:"metadata"`
    CreatedAt time.Time `json:"created_at"`
}
