package handlers

import (
    "bytes"
    "encoding/json"
    "net/http"
    "net/http/httptest"
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func prorationRequest(t *testing.T, body interface{}) *httptest.ResponseRecorder {
    t.Helper()

    payload, err := json.Marshal(body)
    require.NoError(t, err)

    req := httptest.NewRequest(http.MethodPost, "/api/billing/proration", bytes.NewReader(payload))
    rec := httptest.NewRecorder()

    h := &Handler{}
    h.PreviewProration(rec, req)
    return rec
}

func TestPreviewProration(t *testing.T) {
    rec := prorationRequest(t, ProrationRequest{AmountPaid: 1500, InvoiceTotal: 3000, PeriodDays: 30})
    assert.Equal(t, http.StatusOK, rec.Code)

    var resp Response
    require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
    assert.True(t, resp.Success)

    data, ok := resp.Data.(map[string]interface{})
    require.True(t, ok)
    assert.Equal(t, float64(15), data["activation_days"])
    assert.NotEmpty(t, data["expiry_date"])
}

func TestPreviewProrationRejectsBadTotals(t *testing.T) {
    rec := prorationRequest(t, ProrationRequest{AmountPaid: 100, InvoiceTotal: 0, PeriodDays: 30})
    assert.Equal(t, http.StatusBadRequest, rec.Code)

    rec = prorationRequest(t, ProrationRequest{AmountPaid: 100, InvoiceTotal: 500, PeriodDays: 0})
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPreviewProrationRejectsGarbage(t *testing.T) {
    req := httptest.NewRequest(http.MethodPost, "/api/billing/proration", bytes.NewReader([]byte("{not json")))
    rec := httptest.NewRecorder()

    h := &Handler{}
    h.PreviewProration(rec, req)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
}
