package compliance

import (
    "context"
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestEnforceAllRoutersSkipsWhenSweepInFlight(t *testing.T) {
    w := &Worker{}
    w.running.Store(true)

    // A second sweep must return a zero summary immediately; the guard
    // fires before any router or database access.
    summary := w.EnforceAllRouters(context.Background())
    assert.Equal(t, EnforcementSummary{}, summary)

    // The in-flight sweep's flag must survive the skipped call.
    assert.True(t, w.running.Load())
}
