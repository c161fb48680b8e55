package handlers

import (
    "encoding/json"
    "net/http"

    "isp-netops.com/engine/internal/compliance"
)

type ComplianceResponse struct {
    RouterID      int             `json:"router_id"`
    RouterName    string          `json:"router_name"`
    RadiusOk      bool            `json:"radius_ok"`
    AccountingOk  bool            `json:"accounting_ok"`
    CoAOk         bool            `json:"coa_ok"`
    DNSOk         bool            `json:"dns_ok"`
    FirewallOk    bool            `json:"firewall_ok"`
    FasttrackSafe bool            `json:"fasttrack_safe"`
    SecurityOk    bool            `json:"security_ok"`
    Issues        json.RawMessage `json:"issues"`
    OverallStatus string          `json:"overall_status"`
    CheckedAt     string          `json:"checked_at"`
}

func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
    rows, err := h.db.Query(`
        SELECT rc.router_id, rt.name, rc.radius_ok, rc.accounting_ok, rc.coa_ok, rc.dns_ok,
               rc.firewall_ok, rc.fasttrack_safe, rc.security_ok, rc.issues, rc.overall_status,
               to_char(rc.checked_at, 'YYYY-MM-DD"T"HH24:MI:SSZ')
        FROM router_compliance rc
        JOIN routers rt ON rc.router_id = rt.id
        ORDER BY rc.router_id
    `)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var records []ComplianceResponse
    for rows.Next() {
        var rec ComplianceResponse
        rows.Scan(&rec.RouterID, &rec.RouterName, &rec.RadiusOk, &rec.AccountingOk, &rec.CoAOk,
            &rec.DNSOk, &rec.FirewallOk, &rec.FasttrackSafe, &rec.SecurityOk, &rec.Issues,
            &rec.OverallStatus, &rec.CheckedAt)
        records = append(records, rec)
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: records})
}

func (h *Handler) GetRouterCompliance(w http.ResponseWriter, r *http.Request) {
    routerID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    var rec ComplianceResponse
    err := h.db.QueryRow(`
        SELECT rc.router_id, rt.name, rc.radius_ok, rc.accounting_ok, rc.coa_ok, rc.dns_ok,
               rc.firewall_ok, rc.fasttrack_safe, rc.security_ok, rc.issues, rc.overall_status,
               to_char(rc.checked_at, 'YYYY-MM-DD"T"HH24:MI:SSZ')
        FROM router_compliance rc
        JOIN routers rt ON rc.router_id = rt.id
        WHERE rc.router_id = $1
    `, routerID).Scan(&rec.RouterID, &rec.RouterName, &rec.RadiusOk, &rec.AccountingOk, &rec.CoAOk,
        &rec.DNSOk, &rec.FirewallOk, &rec.FasttrackSafe, &rec.SecurityOk, &rec.Issues,
        &rec.OverallStatus, &rec.CheckedAt)

    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "No compliance record for router"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: rec})
}

// CheckAllRouters runs a full compliance audit synchronously. Intended
// for operators; the scheduled path lives in the worker binary.
func (h *Handler) CheckAllRouters(w http.ResponseWriter, r *http.Request) {
    records, err := h.checker.CheckAllRouters(r.Context(), h.cfg.RadiusServerIP)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: records})
}

// CheckRouterCompliance audits one router immediately without repairing
// anything.
func (h *Handler) CheckRouterCompliance(w http.ResponseWriter, r *http.Request) {
    routerID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    router, err := compliance.LoadRouter(r.Context(), h.db, routerID)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    record := h.checker.CheckRouter(r.Context(), router, h.cfg.RadiusServerIP)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: record})
}

func (h *Handler) RunEnforcement(w http.ResponseWriter, r *http.Request) {
    summary := h.enforcer.EnforceAllRouters(r.Context())
    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: summary})
}

func (h *Handler) EnforceRouter(w http.ResponseWriter, r *http.Request) {
    routerID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    record, err := h.enforcer.EnforceRouter(r.Context(), routerID)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: record})
}

// GetRouterScript returns the generated provisioning script as plain
// text for manual application on routers we cannot reach directly.
func (h *Handler) GetRouterScript(w http.ResponseWriter, r *http.Request) {
    routerID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    router, err := compliance.LoadRouter(r.Context(), h.db, routerID)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    secret := ""
    if router.RadiusSecret.Valid {
        secret = router.RadiusSecret.String
    }

    script := compliance.GenerateProvisioningScript(router, h.cfg.RadiusServerIP, secret)
    w.Header().Set("Content-Type", "text/plain; charset=utf-8")
    w.Write([]byte(script))
}

func (h *Handler) GetQueue(w http.ResponseWriter, r *http.Request) {
    items, err := h.queue.Pending(r.Context(), 100)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: items})
}
