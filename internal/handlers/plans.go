package handlers

import (
    "net/http"

    "isp-netops.com/engine/internal/models"
)

// GetPlans lists service plans. Speeds feed the per-vendor rate
// attributes at provisioning time, so inactive plans are included for
// operators to see.
func (h *Handler) GetPlans(w http.ResponseWriter, r *http.Request) {
    rows, err := h.db.Query(`
        SELECT id, name, download_mbps, upload_mbps, burst_down_mbps, burst_up_mbps,
               price_monthly, is_active, created_at
        FROM plans ORDER BY id
    `)
    if err != nil {
        h.sendJSON(w, http.StatusInternalServerError, Response{Success: false, Error: "Database error"})
        return
    }
    defer rows.Close()

    var plans []models.Plan
    for rows.Next() {
        var p models.Plan
        rows.Scan(&p.ID, &p.Name, &p.DownloadMbps, &p.UploadMbps, &p.BurstDownMbps, &p.BurstUpMbps,
            &p.PriceMonthly, &p.IsActive, &p.CreatedAt)
        plans = append(plans, p)
    }

    h.sendJSON(w, http.StatusOK, Response{Success: true, Data: plans})
}
