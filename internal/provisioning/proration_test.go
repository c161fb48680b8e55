package provisioning

import (
    "testing"
    "time"

    "github.com/stretchr/testify/assert"
)

func TestCalculateActivationDays(t *testing.T) {
    tests := []struct {
        name       string
        paid       float64
        total      float64
        periodDays int
        want       int
    }{
        {"half payment buys half the period", 1500, 3000, 30, 15},
        {"full payment buys the full period", 3000, 3000, 30, 30},
        {"token payment still buys one day", 1, 3000, 30, 1},
        {"zero payment floors to one day", 0, 3000, 30, 1},
        {"third of the period", 1000, 3000, 30, 10},
        {"floor, never round up", 999, 3000, 30, 9},
        {"weekly period", 500, 1000, 7, 3},
        {"invalid total floors to one day", 100, 0, 30, 1},
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            assert.Equal(t, tt.want, CalculateActivationDays(tt.paid, tt.total, tt.periodDays))
        })
    }
}

func TestActivationExpiry(t *testing.T) {
    now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
    expiry := ActivationExpiry(now, 1500, 3000, 30)
    assert.Equal(t, time.Date(2026, 3, 16, 12, 0, 0, 0, time.UTC), expiry)
}
