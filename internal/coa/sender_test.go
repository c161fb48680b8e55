package coa

import (
    "context"
    "net"
    "strconv"
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "layeh.com/radius"
    "layeh.com/radius/rfc2865"
)

// fakeNAS runs an in-process RADIUS endpoint answering Disconnect-
// Requests, and returns the port it listens on.
func fakeNAS(t *testing.T, secret string, ack bool) int {
    t.Helper()

    conn, err := net.ListenPacket("udp", "127.0.0.1:0")
    require.NoError(t, err)

    server := &radius.PacketServer{
        Handler: radius.HandlerFunc(func(w radius.ResponseWriter, r *radius.Request) {
            code := radius.CodeDisconnectNAK
            if ack && rfc2865.UserName_GetString(r.Packet) != "" {
                code = radius.CodeDisconnectACK
            }
            w.Write(r.Response(code))
        }),
        SecretSource: radius.StaticSecretSource([]byte(secret)),
    }

    go server.Serve(conn)
    t.Cleanup(func() { server.Shutdown(context.Background()) })

    _, portStr, err := net.SplitHostPort(conn.LocalAddr().String())
    require.NoError(t, err)
    port, err := strconv.Atoi(portStr)
    require.NoError(t, err)
    return port
}

func TestDisconnectAcked(t *testing.T) {
    port := fakeNAS(t, "shared", true)
    sender := NewSender(port)

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()

    err := sender.Disconnect(ctx, "127.0.0.1", "shared", "alice", "sess-001")
    assert.NoError(t, err)
}

func TestDisconnectRefused(t *testing.T) {
    port := fakeNAS(t, "shared", false)
    sender := NewSender(port)

    ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
    defer cancel()

    err := sender.Disconnect(ctx, "127.0.0.1", "shared", "alice", "sess-001")
    assert.ErrorContains(t, err, "refused")
}

func TestDisconnectRequiresTarget(t *testing.T) {
    sender := NewSender(3799)

    err := sender.Disconnect(context.Background(), "", "shared", "alice", "")
    assert.Error(t, err)

    err = sender.Disconnect(context.Background(), "10.0.0.1", "", "alice", "")
    assert.Error(t, err)
}
