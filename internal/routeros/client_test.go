package routeros

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/http/httptest"
    "net/url"
    "strconv"
    "strings"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
)

// testClient points a client at an httptest server standing in for a
// router's REST API.
func testClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
    t.Helper()
    srv := httptest.NewServer(handler)

    u, err := url.Parse(srv.URL)
    require.NoError(t, err)
    port, err := strconv.Atoi(u.Port())
    require.NoError(t, err)

    client, err := NewClient(u.Hostname(), port, "admin", "secret")
    require.NoError(t, err)
    client.SetTLS(false)
    t.Cleanup(srv.Close)
    return client, srv
}

func TestNewClientValidation(t *testing.T) {
    _, err := NewClient("", 443, "admin", "secret")
    assert.ErrorContains(t, err, "host")

    _, err = NewClient("10.0.0.1", 443, "", "secret")
    assert.ErrorContains(t, err, "username")

    _, err = NewClient("10.0.0.1", 443, "admin", "")
    assert.ErrorContains(t, err, "password")
}

func TestConnect(t *testing.T) {
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, "/rest/system/identity", r.URL.Path)

        user, pass, ok := r.BasicAuth()
        assert.True(t, ok)
        assert.Equal(t, "admin", user)
        assert.Equal(t, "secret", pass)

        json.NewEncoder(w).Encode(map[string]string{"name": "edge-router-1"})
    }))

    require.NoError(t, client.Connect(context.Background()))
    assert.True(t, client.Connected())

    client.Disconnect()
    assert.False(t, client.Connected())
}

func TestConnectFailureNamesHost(t *testing.T) {
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "bad credentials", http.StatusUnauthorized)
    }))

    err := client.Connect(context.Background())
    require.Error(t, err)
    assert.Contains(t, err.Error(), client.Host())
}

func TestExecuteFoldsRemoteFailureIntoResult(t *testing.T) {
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        http.Error(w, "internal failure", http.StatusInternalServerError)
    }))

    result := client.Execute(context.Background(), http.MethodGet, "/system/resource", nil)
    assert.False(t, result.Success)
    assert.Contains(t, result.Error, "HTTP 500")
}

func TestExecuteUnreachableRouter(t *testing.T) {
    client, err := NewClient("127.0.0.1", 1, "admin", "secret")
    require.NoError(t, err)
    client.SetTimeout(300 * time.Millisecond)

    result := client.Execute(context.Background(), http.MethodGet, "/system/identity", nil)
    assert.False(t, result.Success)
    assert.NotEmpty(t, result.Error)
}

func TestExecuteRequiresPath(t *testing.T) {
    client, err := NewClient("10.0.0.1", 443, "admin", "secret")
    require.NoError(t, err)

    result := client.Execute(context.Background(), http.MethodGet, "", nil)
    assert.False(t, result.Success)
    assert.Contains(t, result.Error, "path")
}

func TestCreatePPPoESecretSendsJSONBody(t *testing.T) {
    var captured map[string]interface{}
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        assert.Equal(t, http.MethodPut, r.Method)
        assert.Equal(t, "/rest/ppp/secret", r.URL.Path)
        assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
        json.NewDecoder(r.Body).Decode(&captured)
        w.Write([]byte(`{}`))
    }))

    result := client.CreatePPPoESecret(context.Background(), "alice", "pw123", "20M-plan", "")
    require.True(t, result.Success, result.Error)
    assert.Equal(t, "alice", captured["name"])
    assert.Equal(t, "pw123", captured["password"])
    assert.Equal(t, "pppoe", captured["service"])
    assert.Equal(t, "20M-plan", captured["profile"])
}

func TestRemovePPPoESecretLooksUpID(t *testing.T) {
    var deleted string
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch {
        case r.Method == http.MethodGet && r.URL.Path == "/rest/ppp/secret":
            fmt.Fprint(w, `[{".id":"*1A","name":"alice"}]`)
        case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/rest/ppp/secret/"):
            deleted = strings.TrimPrefix(r.URL.Path, "/rest/ppp/secret/")
            w.Write([]byte(`{}`))
        default:
            http.NotFound(w, r)
        }
    }))

    result := client.RemovePPPoESecret(context.Background(), "alice")
    require.True(t, result.Success, result.Error)
    assert.Equal(t, "*1A", deleted)
}

func TestRemovePPPoESecretMissingEntry(t *testing.T) {
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        fmt.Fprint(w, `[]`)
    }))

    result := client.RemovePPPoESecret(context.Background(), "ghost")
    assert.False(t, result.Success)
    assert.Contains(t, result.Error, "no entry")
}

func TestDisableAndEnablePPPoESecret(t *testing.T) {
    var patched []string
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch {
        case r.Method == http.MethodGet && r.URL.Path == "/rest/ppp/secret":
            fmt.Fprint(w, `[{".id":"*2B","name":"bob"}]`)
        case r.Method == http.MethodPatch && r.URL.Path == "/rest/ppp/secret/*2B":
            var body map[string]interface{}
            require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
            patched = append(patched, fmt.Sprintf("%v", body["disabled"]))
            w.Write([]byte(`{}`))
        default:
            http.NotFound(w, r)
        }
    }))

    result := client.DisablePPPoESecret(context.Background(), "bob")
    require.True(t, result.Success, result.Error)

    result = client.EnablePPPoESecret(context.Background(), "bob")
    require.True(t, result.Success, result.Error)

    assert.Equal(t, []string{"yes", "no"}, patched)
}

func TestLookupEscapesSecretName(t *testing.T) {
    name := "cafe & bar #3"
    var deleted, queried string
    client, _ := testClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
        switch {
        case r.Method == http.MethodGet && r.URL.Path == "/rest/ppp/secret":
            queried = r.URL.Query().Get("name")
            fmt.Fprintf(w, `[{".id":"*3C","name":%q}]`, name)
        case r.Method == http.MethodDelete && strings.HasPrefix(r.URL.Path, "/rest/ppp/secret/"):
            deleted = strings.TrimPrefix(r.URL.Path, "/rest/ppp/secret/")
            w.Write([]byte(`{}`))
        default:
            http.NotFound(w, r)
        }
    }))

    result := client.RemovePPPoESecret(context.Background(), name)
    require.True(t, result.Success, result.Error)
    assert.Equal(t, name, queried)
    assert.Equal(t, "*3C", deleted)
}
