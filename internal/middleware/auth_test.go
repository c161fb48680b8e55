package middleware

import (
    "context"
    "net/http"
    "net/http/httptest"
    "testing"
    "time"

    "github.com/golang-jwt/jwt/v5"
    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

func signToken(t *testing.T, secret string, role string) string {
    t.Helper()
    claims := Claims{
        UserID: 42,
        Email:  "noc@example.net",
        Role:   role,
        RegisteredClaims: jwt.RegisteredClaims{
            ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
        },
    }
    token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
    require.NoError(t, err)
    return token
}

func TestAuthAcceptsConfiguredSecret(t *testing.T) {
    var got *Claims
    handler := Auth("engine-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        got = GetUserFromContext(r)
    }))

    req := httptest.NewRequest(http.MethodGet, "/api/routers", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, "engine-secret", "noc"))
    rec := httptest.NewRecorder()
    handler.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusOK, rec.Code)
    require.NotNil(t, got)
    assert.Equal(t, 42, got.UserID)
    assert.Equal(t, "noc", got.Role)
}

func TestAuthRejectsForeignSecret(t *testing.T) {
    handler := Auth("engine-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        t.Fatal("handler must not run")
    }))

    req := httptest.NewRequest(http.MethodGet, "/api/routers", nil)
    req.Header.Set("Authorization", "Bearer "+signToken(t, "some-other-secret", "admin"))
    rec := httptest.NewRecorder()
    handler.ServeHTTP(rec, req)

    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthRequiresBearerToken(t *testing.T) {
    handler := Auth("engine-secret")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        t.Fatal("handler must not run")
    }))

    req := httptest.NewRequest(http.MethodGet, "/api/routers", nil)
    rec := httptest.NewRecorder()
    handler.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)

    req.Header.Set("Authorization", "Basic abc")
    rec = httptest.NewRecorder()
    handler.ServeHTTP(rec, req)
    assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRole(t *testing.T) {
    handler := RequireRole("admin", "noc")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        w.WriteHeader(http.StatusNoContent)
    }))

    request := func(role string) *http.Request {
        req := httptest.NewRequest(http.MethodPost, "/api/enforcement/run", nil)
        ctx := context.WithValue(req.Context(), UserContextKey, &Claims{Role: role})
        return req.WithContext(ctx)
    }

    rec := httptest.NewRecorder()
    handler.ServeHTTP(rec, request("noc"))
    assert.Equal(t, http.StatusNoContent, rec.Code)

    rec = httptest.NewRecorder()
    handler.ServeHTTP(rec, request("operator"))
    assert.Equal(t, http.StatusForbidden, rec.Code)
}
