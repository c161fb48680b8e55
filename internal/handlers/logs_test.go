package handlers

import (
    "net/http"
    "net/http/httptest"
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
)

func postLog(t *testing.T, body string) *httptest.ResponseRecorder {
    t.Helper()
    h := &Handler{}
    req := httptest.NewRequest(http.MethodPost, "/api/logs", strings.NewReader(body))
    rec := httptest.NewRecorder()
    h.CreateSystemLog(rec, req)
    return rec
}

func TestCreateSystemLogRejectsUnknownSource(t *testing.T) {
    rec := postLog(t, `{"level":"INFO","source":"billing","message":"x"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "Unknown log source")
}

func TestCreateSystemLogRejectsBadLevel(t *testing.T) {
    rec := postLog(t, `{"level":"TRACE","source":"sweep","message":"x"}`)
    assert.Equal(t, http.StatusBadRequest, rec.Code)
    assert.Contains(t, rec.Body.String(), "Invalid log level")
}
