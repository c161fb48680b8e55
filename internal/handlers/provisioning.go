package handlers

import (
    "encoding/json"
    "errors"
    "net/http"
    "strconv"
    "time"

    "github.com/gorilla/mux"
    "isp-netops.com/engine/internal/provisioning"
    "isp-netops.com/engine/internal/vendors"
)

type ProvisionUserRequest struct {
    ServiceID int     `json:"service_id"`
    Username  string  `json:"username"`
    Password  string  `json:"password"`
    IP        *string `json:"ip,omitempty"`
    Profile   *string `json:"profile,omitempty"`
}

func (h *Handler) ProvisionUserCredentials(w http.ResponseWriter, r *http.Request) {
    var req ProvisionUserRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.ServiceID == 0 || req.Username == "" || req.Password == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Service ID, username and password are required"})
        return
    }

    result, err := h.orchestrator.ProvisionUserCredentials(r.Context(), req.ServiceID, req.Username, req.Password, req.IP, req.Profile)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        } else if errors.Is(err, vendors.ErrDirectPushUnsupported) || errors.Is(err, provisioning.ErrMissingCredentials) {
            status = http.StatusBadRequest
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.logger.Info("User credentials provisioned", "service_id", req.ServiceID, "username", req.Username, "method", result.Method)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Credentials provisioned", Data: result})
}

func (h *Handler) DeprovisionUserCredentials(w http.ResponseWriter, r *http.Request) {
    var req struct {
        ServiceID int    `json:"service_id"`
        Username  string `json:"username"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServiceID == 0 || req.Username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Service ID and username are required"})
        return
    }

    result, err := h.orchestrator.DeprovisionUserCredentials(r.Context(), req.ServiceID, req.Username)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Credentials deprovisioned", Data: result})
}

// SuspendUserCredentials cuts a subscriber off for non-payment while
// keeping their authorization rows for cheap reactivation.
func (h *Handler) SuspendUserCredentials(w http.ResponseWriter, r *http.Request) {
    var req struct {
        ServiceID int    `json:"service_id"`
        Username  string `json:"username"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServiceID == 0 || req.Username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Service ID and username are required"})
        return
    }

    result, err := h.orchestrator.SuspendUserCredentials(r.Context(), req.ServiceID, req.Username)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.logger.Info("User suspended", "service_id", req.ServiceID, "username", req.Username)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "User suspended", Data: result})
}

func (h *Handler) UnsuspendUserCredentials(w http.ResponseWriter, r *http.Request) {
    var req struct {
        ServiceID int    `json:"service_id"`
        Username  string `json:"username"`
        Password  string `json:"password"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServiceID == 0 || req.Username == "" || req.Password == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Service ID, username and password are required"})
        return
    }

    result, err := h.orchestrator.UnsuspendUserCredentials(r.Context(), req.ServiceID, req.Username, req.Password)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.logger.Info("User unsuspended", "service_id", req.ServiceID, "username", req.Username)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "User unsuspended", Data: result})
}

// ChangeUserSpeed rewrites the subscriber's rate attribute after a plan
// change and kicks the live session so the new rate takes effect.
func (h *Handler) ChangeUserSpeed(w http.ResponseWriter, r *http.Request) {
    var req struct {
        ServiceID int     `json:"service_id"`
        Username  string  `json:"username"`
        PlanID    int     `json:"plan_id"`
        Profile   *string `json:"profile,omitempty"`
    }
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ServiceID == 0 || req.Username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Service ID and username are required"})
        return
    }

    result, err := h.orchestrator.ChangeUserSpeed(r.Context(), req.ServiceID, req.Username, req.PlanID, req.Profile)
    if err != nil {
        status := http.StatusInternalServerError
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.logger.Info("User speed changed", "service_id", req.ServiceID, "username", req.Username, "plan_id", req.PlanID)
    h.sendJSON(w, http.StatusOK, Response{Success: true, Message: "Speed updated", Data: result})
}

// GetUserAccessStatus reports whether a username can currently
// authenticate and whether it has a live session, straight from the
// RADIUS tables.
func (h *Handler) GetUserAccessStatus(w http.ResponseWriter, r *http.Request) {
    username := mux.Vars(r)["username"]
    if username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Username is required"})
        return
    }

    canAuth, err := h.radius.HasCheckEntry(r.Context(), username)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    nasIP, sessionID, online, err := h.radius.ActiveSession(r.Context(), username)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    data := map[string]interface{}{
        "username":         username,
        "can_authenticate": canAuth,
        "online":           online,
    }
    if online {
        data["nas_ip"] = nasIP
        data["session_id"] = sessionID
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: data})
}

// GetUserAttributes dumps the raw radcheck/radreply rows for a user.
// Values are returned as stored, so this is gated to admin and noc.
func (h *Handler) GetUserAttributes(w http.ResponseWriter, r *http.Request) {
    username := mux.Vars(r)["username"]
    if username == "" {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Username is required"})
        return
    }

    attrs, err := h.radius.ListAttributes(r.Context(), username)
    if err != nil {
        h.logger.Error("Failed to list attributes", "username", username, "error", err)
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: map[string]interface{}{
        "username":   username,
        "attributes": attrs,
        "count":      len(attrs),
    }})
}

func (h *Handler) ProvisionService(w http.ResponseWriter, r *http.Request) {
    serviceID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    outcome, err := h.orchestrator.ProvisionServiceToRouter(r.Context(), serviceID)
    if err != nil {
        status := http.StatusBadRequest
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: outcome.Success, Message: outcome.Message, Data: outcome})
}

func (h *Handler) DeprovisionService(w http.ResponseWriter, r *http.Request) {
    serviceID, ok := h.pathID(w, r)
    if !ok {
        return
    }

    outcome, err := h.orchestrator.DeprovisionServiceFromRouter(r.Context(), serviceID)
    if err != nil {
        status := http.StatusBadRequest
        if errors.Is(err, provisioning.ErrServiceNotFound) {
            status = http.StatusNotFound
        }
        h.sendJSON(w, status, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{Success: outcome.Success, Message: outcome.Message, Data: outcome})
}

// RunProvisionSweep triggers the billing-driven sweeps on demand; the
// worker binary runs the same calls on a schedule.
func (h *Handler) RunProvisionSweep(w http.ResponseWriter, r *http.Request) {
    opts := provisioning.SweepOptions{BatchSize: h.cfg.SweepBatchSize, Workers: h.cfg.SweepWorkers}

    provisioned, err := h.orchestrator.CheckAndProvisionActiveServices(r.Context(), opts)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
        return
    }

    deprovisioned, err := h.orchestrator.CheckAndDeprovisionInactiveServices(r.Context(), opts)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: err.Error()})
        return
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "provisioned":   provisioned,
            "deprovisioned": deprovisioned,
        },
    })
}

type ProrationRequest struct {
    AmountPaid   float64 `json:"amount_paid"`
    InvoiceTotal float64 `json:"invoice_total"`
    PeriodDays   int     `json:"period_days"`
}

// PreviewProration lets the billing layer preview how many days a partial
// payment buys before committing it.
func (h *Handler) PreviewProration(w http.ResponseWriter, r *http.Request) {
    var req ProrationRequest
    if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid request body"})
        return
    }

    if req.InvoiceTotal <= 0 || req.PeriodDays <= 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invoice total and period days must be positive"})
        return
    }

    days := provisioning.CalculateActivationDays(req.AmountPaid, req.InvoiceTotal, req.PeriodDays)
    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Data: map[string]interface{}{
            "activation_days": days,
            "expiry_date":     provisioning.ActivationExpiry(time.Now(), req.AmountPaid, req.InvoiceTotal, req.PeriodDays).Format("2006-01-02"),
        },
    })
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
    id, err := strconv.Atoi(mux.Vars(r)["id"])
    if err != nil || id <= 0 {
        h.sendJSON(w, http.StatusBadRequest, Response{Success: false, Error: "Invalid id"})
        return 0, false
    }
    return id, true
}
