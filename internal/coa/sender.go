package coa

import (
    "context"
    "fmt"

    "layeh.com/radius"
    "layeh.com/radius/rfc2865"
    "layeh.com/radius/rfc2866"
)

// Sender pushes RADIUS Disconnect-Requests to a NAS so suspended or
// deprovisioned users drop immediately instead of riding out their
// current PPP session. Best-effort: callers log failures and move on.
type Sender struct {
    port int
}

func NewSender(port int) *Sender {
    if port <= 0 {
        port = 3799
    }
    return &Sender{port: port}
}

// Disconnect sends a Disconnect-Request for one session and waits for the
// NAS to ACK it.
func (s *Sender) Disconnect(ctx context.Context, nasAddr, secret, username, sessionID string) error {
    if nasAddr == "" || secret == "" {
        return fmt.Errorf("disconnect for %s: NAS address and shared secret are required", username)
    }

    packet := radius.New(radius.CodeDisconnectRequest, []byte(secret))
    if err := rfc2865.UserName_SetString(packet, username); err != nil {
        return fmt.Errorf("failed to build disconnect for %s: %w", username, err)
    }
    if sessionID != "" {
        if err := rfc2866.AcctSessionID_SetString(packet, sessionID); err != nil {
            return fmt.Errorf("failed to build disconnect for %s: %w", username, err)
        }
    }

    response, err := radius.Exchange(ctx, packet, fmt.Sprintf("%s:%d", nasAddr, s.port))
    if err != nil {
        return fmt.Errorf("disconnect exchange with %s failed: %w", nasAddr, err)
    }

    if response.Code != radius.CodeDisconnectACK {
        return fmt.Errorf("NAS %s refused disconnect for %s: %s", nasAddr, username, response.Code)
    }
    return nil
}
