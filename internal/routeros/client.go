package routeros

import (
    "bytes"
    "context"
    "encoding/json"
    "fmt"
    "io"
    "net/http"
    "time"
)

const defaultTimeout = 10 * time.Second

// CommandResult is the outcome of one device command. Remote failures
// (HTTP errors, timeouts, non-2xx) are carried in the result, not raised:
// batch callers must be able to continue past individual failures.
type CommandResult struct {
    Success bool            `json:"success"`
    Data    json.RawMessage `json:"data,omitempty"`
    Error   string          `json:"error,omitempty"`
}

// Client is one authenticated session against a single router's REST
// management API. Connect must succeed before commands are issued;
// Disconnect must be called on every exit path by callers that opened
// the connection.
type Client struct {
    host     string
    port     int
    username string
    password string
    timeout  time.Duration

    useTLS     bool
    httpClient *http.Client
    connected  bool
}

// NewClient validates the connection parameters up front. Missing
// credentials are a caller bug and fail before any network activity.
func NewClient(host string, port int, username, password string) (*Client, error) {
    if host == "" {
        return nil, fmt.Errorf("router client: host is required")
    }
    if username == "" {
        return nil, fmt.Errorf("router client: username is required for %s", host)
    }
    if password == "" {
        return nil, fmt.Errorf("router client: password is required for %s", host)
    }
    if port <= 0 {
        port = 443
    }

    return &Client{
        host:       host,
        port:       port,
        username:   username,
        password:   password,
        useTLS:     port != 80,
        timeout:    defaultTimeout,
        httpClient: &http.Client{Timeout: defaultTimeout},
    }, nil
}

// SetTLS overrides the scheme, for routers with www-ssl disabled.
func (c *Client) SetTLS(enabled bool) {
    c.useTLS = enabled
}

func (c *Client) SetTimeout(d time.Duration) {
    if d > 0 {
        c.timeout = d
        c.httpClient.Timeout = d
    }
}

func (c *Client) Host() string {
    return c.host
}

// Connect issues a lightweight identity query to confirm reachability and
// credentials. Unlike Execute, a failure here is returned as an error:
// callers treat an unreachable router as a precondition violation.
func (c *Client) Connect(ctx context.Context) error {
    result := c.Execute(ctx, http.MethodGet, "/system/identity", nil)
    if !result.Success {
        return fmt.Errorf("failed to connect to router %s: %s", c.host, result.Error)
    }
    c.connected = true
    return nil
}

func (c *Client) Connected() bool {
    return c.connected
}

// Disconnect releases local session state. Safe to call repeatedly and on
// clients that never connected.
func (c *Client) Disconnect() {
    c.connected = false
}

func (c *Client) baseURL() string {
    scheme := "https"
    if !c.useTLS {
        scheme = "http"
    }
    return fmt.Sprintf("%s://%s:%d/rest", scheme, c.host, c.port)
}

// Execute issues one HTTP request with Basic auth and a bounded timeout.
// The path is the REST path below /rest, e.g. "/ppp/secret". Non-GET
// methods send params as a JSON body.
func (c *Client) Execute(ctx context.Context, method, path string, params map[string]interface{}) CommandResult {
    if path == "" {
        return CommandResult{Success: false, Error: "command path is required"}
    }

    var body io.Reader
    if method != http.MethodGet && params != nil {
        encoded, err := json.Marshal(params)
        if err != nil {
            return CommandResult{Success: false, Error: fmt.Sprintf("failed to encode command body: %v", err)}
        }
        body = bytes.NewReader(encoded)
    }

    ctx, cancel := context.WithTimeout(ctx, c.timeout)
    defer cancel()

    req, err := http.NewRequestWithContext(ctx, method, c.baseURL()+path, body)
    if err != nil {
        return CommandResult{Success: false, Error: fmt.Sprintf("failed to build request: %v", err)}
    }
    req.SetBasicAuth(c.username, c.password)
    if body != nil {
        req.Header.Set("Content-Type", "application/json")
    }

    resp, err := c.httpClient.Do(req)
    if err != nil {
        return CommandResult{Success: false, Error: fmt.Sprintf("request to %s failed: %v", c.host, err)}
    }
    defer resp.Body.Close()

    data, err := io.ReadAll(resp.Body)
    if err != nil {
        return CommandResult{Success: false, Error: fmt.Sprintf("failed to read response from %s: %v", c.host, err)}
    }

    if resp.StatusCode < 200 || resp.StatusCode > 299 {
        return CommandResult{
            Success: false,
            Error:   fmt.Sprintf("router %s returned HTTP %d: %s", c.host, resp.StatusCode, truncate(string(data), 200)),
        }
    }

    return CommandResult{Success: true, Data: data}
}

func truncate(s string, n int) string {
    if len(s) <= n {
        return s
    }
    return s[:n] + "..."
}
