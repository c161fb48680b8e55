package handlers

import (
    "encoding/json"
    "net/http"
    "time"

    "isp-netops.com/engine/internal/compliance"
    "isp-netops.com/engine/internal/config"
    "isp-netops.com/engine/internal/provisioning"
    "isp-netops.com/engine/internal/queue"
    "isp-netops.com/engine/internal/radiusstore"
    "isp-netops.com/engine/pkg/database"
    "isp-netops.com/engine/pkg/logger"
)

type Handler struct {
    db           *database.DB
    logger       *logger.Logger
    cfg          *config.Config
    orchestrator *provisioning.Orchestrator
    radius       *radiusstore.Store
    checker      *compliance.Checker
    enforcer     *compliance.Worker
    queue        *queue.Store
}

func New(db *database.DB, l *logger.Logger, cfg *config.Config, orch *provisioning.Orchestrator,
    radius *radiusstore.Store, checker *compliance.Checker, enforcer *compliance.Worker, q *queue.Store) *Handler {
    return &Handler{
        db:           db,
        logger:       l,
        cfg:          cfg,
        orchestrator: orch,
        radius:       radius,
        checker:      checker,
        enforcer:     enforcer,
        queue:        q,
    }
}

type Response struct {
    Success bool        `json:"success"`
    Message string      `json:"message,omitempty"`
    Data    interface{} `json:"data,omitempty"`
    Error   string      `json:"error,omitempty"`
}

func (h *Handler) sendJSON(w http.ResponseWriter, status int, resp Response) {
    w.Header().Set("Content-Type", "application/json")
    w.WriteHeader(status)
    json.NewEncoder(w).Encode(resp)
}

func (h *Handler) HealthCheck(w http.ResponseWriter, r *http.Request) {
    var dbStatus string
    if err := h.db.Ping(); err != nil {
        dbStatus = "disconnected"
    } else {
        dbStatus = "connected"
    }

    h.sendJSON(w, http.StatusOK, Response{
        Success: true,
        Message: "ISP NetOps Provisioning Engine is running",
        Data: map[string]interface{}{
            "version":   "1.0.0",
            "timestamp": time.Now().Format(time.RFC3339),
            "database":  dbStatus,
        },
    })
}
