package handlers

import (
    "encoding/json"
    "net/http"
    "strconv"

    "github.com/gorilla/mux"
    "isp-netops.com/engine/internal/compliance"
    "isp-netops.com/engine/internal/routeros"
    "isp-netops.com/engine/internal/vendors"
)

type RouterResponse struct {
    ID               int    `json:"id"`
    Name             string `json:"name"`
    Vendor           string `json:"vendor"`
    ConnectionMethod string `json:"connection_method"`
    Host             string `json:"host"`
    Port             int    `json:"port"`
    ProvisioningMode string `json:"provisioning_mode"`
    CurrentSessions  int    `json:"current_sessions"`
    MaxSessions      int    `json:"max_sessions"`
    Status           string `json:"status"`
    ComplianceStatus string `json:"compliance_status"`
    LastCheckedAt    string `json:"last_checked_at,omitempty"`
}

type CreateRouterRequest struct {
    Name             string `json:"name"`
    Vendor           string `json:"vendor"`
    ConnectionMethod string `json:"connection_method"`
    Host             string `json:"host"`
    Port             int    `json:"port"`
    Username         string `json:"username"`
    Password         string `json:"password"`
    ManagementIP     string `json:"management_ip"`
    RadiusSecret     string `json:"radius_secret"`
    ProvisioningMode string `json:"provisioning_mode"`
    MaxSessions      int    `json:"max_sessions"`
}

func (h *Handler) GetRouters(w http.ResponseWriter, r *http.Request) {
    rows, err := h.db.Query(`
        SELECT id, name, vendor, connection_method, host, port,
               COALESCE(provisioning_mode, 'radius_only'), current_sessions, max_sessions,
               status, COALESCE(compliance_status, 'unchecked'),
               COALESCE(to_char(last_checked_at, 'YYYY-MM-DD"T"HH24:MI:SSZ'), '')
        FROM routers ORDER BY id
    `)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var routers []RouterResponse
    for rows.Next() {
        var rt RouterResponse
        rows.Scan(&rt.ID, &rt.Name, &rt.Vendor, &rt.ConnectionMethod, &rt.Host, &rt.Port,
            &rt.ProvisioningMode, &rt.CurrentSessions, &rt.MaxSessions, &rt.Status,
            &rt.ComplianceStatus, &rt.LastCheckedAt)
        routers = append(routers, rt)
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: routers})
}

func (h *Handler) GetRouter(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    id := vars["id"]

    var rt RouterResponse
    err := h.db.QueryRow(`
        SELECT id, name, vendor, connection_method, host, port,
               COALESCE(provisioning_mode, 'radius_only'), current_sessions, max_sessions,
               status, COALESCE(compliance_status, 'unchecked'),
               COALESCE(to_char(last_checked_at, 'YYYY-MM-DD"T"HH24:MI:SSZ'), '')
        FROM routers WHERE id = $1
    `, id).Scan(&rt.ID, &rt.Name, &rt.Vendor, &rt.ConnectionMethod, &rt.Host, &rt.Port,
        &rt.ProvisioningMode, &rt.CurrentSessions, &rt.MaxSessions, &rt.Status,
        &rt.ComplianceStatus, &rt.LastCheckedAt)

    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: rt})
}

func (h *Handler) CreateRouter(w http.ResponseWriter, r *http.Request) {
    var req CreateRouterRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.Name == "" || req.Vendor == "" || req.Host == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Name, vendor and host are required"})
        return
    }

    if req.ConnectionMethod == "" {
        req.ConnectionMethod = "api"
    }
    if req.Port == 0 {
        req.Port = 443
    }
    if req.ProvisioningMode == "" {
        req.ProvisioningMode = vendors.Capabilities(req.Vendor).RecommendedMode
    }
    if req.MaxSessions == 0 {
        req.MaxSessions = 500
    }

    var routerID int
    err := h.db.QueryRow(`
        INSERT INTO routers (name, vendor, connection_method, host, port, username, password,
                             management_ip, radius_secret, provisioning_mode, max_sessions, status)
        VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11, 'active')
        RETURNING id
    `, req.Name, req.Vendor, req.ConnectionMethod, req.Host, req.Port, req.Username,
        req.Password, req.ManagementIP, req.RadiusSecret, req.ProvisioningMode, req.MaxSessions).Scan(&routerID)

    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to create router"})
        return
    }

    h.logger.Info("Router registered", "router_id", routerID, "vendor", req.Vendor, "host", req.Host)
    h.sendJSON(w, http.StatusCreated, Response{
        Success: true,
        Message: "Router registered",
        Data:    map[string]int{"id": routerID},
    })
}

func (h *Handler) UpdateRouterStatus(w http.ResponseWriter, r *http.Request) {
    vars := mux.Vars(r)
    id, err := strconv.Atoi(vars["id"])
    if err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid router id"})
        return
    }

    var req struct {
        Status string `json:"status"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || (req.Status != "active" && req.Status != "inactive") {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Status must be active or inactive"})
        return
    }

    if _, err := h.db.Exec(`UPDATE routers SET status = $2, updated_at = NOW() WHERE id = $1`, id, req.Status); err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Failed to update router"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Router updated"})
}

// routerClient loads a router and opens a management session to it.
// Writes the error response itself when anything fails.
func (h *Handler) routerClient(w http.ResponseWriter, r *http.Request) (*routeros.Client, bool) {
    id, ok := h.pathID(w, r)
    if !ok {
        return nil, false
    }

    router, err := compliance.LoadRouter(r.Context(), h.db, id)
    if err != nil {
        h.sendJSON(w, http.StatusNotFound, Response{Success: false, Error: "Router not found"})
        return nil, false
    }
    if !router.HasCredentials() {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Router has no management credentials"})
        return nil, false
    }

    client, err := routeros.NewClient(router.Host, router.Port, router.Username.String, router.Password.String)
    if err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: err.Error()})
        return nil, false
    }
    client.SetTimeout(h.cfg.RouterTimeout)

    if err := client.Connect(r.Context()); err != nil {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: err.Error()})
        return nil, false
    }
    return client, true
}

// GetRouterHealth reports live system resources and interface state for
// the NOC dashboard.
func (h *Handler) GetRouterHealth(w http.ResponseWriter, r *http.Request) {
    client, ok := h.routerClient(w, r)
    if !ok {
        return
    }
    defer client.Disconnect()

    resources := client.GetSystemResources(r.Context())
    if !resources.Success {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: resources.Error})
        return
    }
    interfaces := client.GetInterfaces(r.Context())

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
        "resources":  resources.Data,
        "interfaces": interfaces.Data,
    }})
}

// GetRouterSessions lists the active PPP sessions on the device.
func (h *Handler) GetRouterSessions(w http.ResponseWriter, r *http.Request) {
    client, ok := h.routerClient(w, r)
    if !ok {
        return
    }
    defer client.Disconnect()

    sessions := client.GetActiveSessions(r.Context())
    if !sessions.Success {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: sessions.Error})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: sessions.Data})
}

// GetRouterLogs returns the device's own log ring, not our router_logs
// table.
func (h *Handler) GetRouterLogs(w http.ResponseWriter, r *http.Request) {
    client, ok := h.routerClient(w, r)
    if !ok {
        return
    }
    defer client.Disconnect()

    logs := client.GetLogs(r.Context())
    if !logs.Success {
        h.sendJSON(w, http.StatusBadGateway, Response{Success: false, Error: logs.Error})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: logs.Data})
}

// GetRouterCapabilities exposes the static vendor capability table so the
// admin UI can pick sensible provisioning modes.
func (h *Handler) GetRouterCapabilities(w http.ResponseWriter, r *http.Request) {
    vendor := r.URL.Query().Get("vendor")
    if vendor == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "vendor query parameter is required"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: vendors.Capabilities(vendor)})
}
