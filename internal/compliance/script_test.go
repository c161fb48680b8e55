package compliance

import (
    "strings"
    "testing"

    "github.com/stretchr/testify/assert"
    "isp-netops.com/engine/internal/models"
)

func TestGenerateProvisioningScript(t *testing.T) {
    router := &models.Router{ID: 1, Name: "edge-1", Host: "10.1.0.1", Vendor: "mikrotik"}
    script := GenerateProvisioningScript(router, "10.0.0.2", "s3cret")

    // Every managed tag must appear so the compliance checker can find
    // the rules the script creates.
    assert.Contains(t, script, TagRadius)
    assert.Contains(t, script, TagCoA)
    assert.Contains(t, script, TagFasttrackSafe)

    assert.Contains(t, script, "/radius add address=10.0.0.2 secret=\"s3cret\"")
    assert.Contains(t, script, "/radius incoming set accept=yes port=3799")
    assert.Contains(t, script, "/ppp aaa set use-radius=yes accounting=yes")

    for _, svc := range []string{"telnet", "ftp", "www"} {
        assert.Contains(t, script, "/ip service disable "+svc)
    }
}

func TestGenerateProvisioningScriptIsGuarded(t *testing.T) {
    router := &models.Router{ID: 1, Name: "edge-1", Host: "10.1.0.1", Vendor: "mikrotik"}
    script := GenerateProvisioningScript(router, "10.0.0.2", "s3cret")

    // Each add must sit behind a find guard so re-running never
    // duplicates configuration. The DNS section carries an extra guard
    // around its set, so guards can exceed adds but never trail them.
    adds := strings.Count(script, " add ")
    guards := strings.Count(script, ":if ([:len [")
    assert.Greater(t, adds, 0)
    assert.GreaterOrEqual(t, guards, adds, "every add needs an idempotency guard")
}
