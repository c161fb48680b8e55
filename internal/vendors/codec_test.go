package vendors

import (
    "testing"

    "github.com/stretchr/testify/assert"
)

func TestFormatSpeedAttribute(t *testing.T) {
    tests := []struct {
        name      string
        vendor    string
        down, up  int
        burst     *BurstSpec
        attribute string
        value     string
    }{
        {
            name:   "mikrotik with burst",
            vendor: "mikrotik", down: 20, up: 5,
            burst:     &BurstSpec{DownMbps: 30, UpMbps: 10},
            attribute: "Mikrotik-Rate-Limit",
            value:     "20M/5M 30M/10M",
        },
        {
            name:   "mikrotik without burst",
            vendor: "mikrotik", down: 20, up: 5,
            attribute: "Mikrotik-Rate-Limit",
            value:     "20M/5M",
        },
        {
            name:   "ubiquiti download in bps",
            vendor: "ubiquiti", down: 50, up: 10,
            attribute: "WISPr-Bandwidth-Max-Down",
            value:     "50000000",
        },
        {
            name:   "juniper qos profile",
            vendor: "juniper", down: 100, up: 40,
            attribute: "ERX-Qos-Profile-Name",
            value:     "profile-100M-40M",
        },
        {
            name:   "cisco avpair",
            vendor: "cisco", down: 25, up: 25,
            attribute: "Cisco-AVPair",
            value:     "subscriber:sub-qos-policy-in=rate-limit-25M",
        },
        {
            name:   "unknown vendor falls back to Filter-Id",
            vendor: "zyxel", down: 10, up: 2,
            attribute: "Filter-Id",
            value:     "speed-10M-2M",
        },
    }

    for _, tt := range tests {
        t.Run(tt.name, func(t *testing.T) {
            attribute, value := FormatSpeedAttribute(tt.vendor, tt.down, tt.up, tt.burst)
            assert.Equal(t, tt.attribute, attribute)
            assert.Equal(t, tt.value, value)
        })
    }
}

func TestFormatSpeedAttributeNeverEmpty(t *testing.T) {
    vendors := []string{"mikrotik", "ubiquiti", "juniper", "cisco", "something-else", ""}
    for _, vendor := range vendors {
        attribute, value := FormatSpeedAttribute(vendor, 1, 1, nil)
        assert.NotEmpty(t, attribute, "vendor %q", vendor)
        assert.NotEmpty(t, value, "vendor %q", vendor)
    }
}

func TestRateAttributeNamesCoverCodecOutput(t *testing.T) {
    known := make(map[string]bool)
    for _, name := range RateAttributeNames {
        known[name] = true
    }

    for _, vendor := range []string{"mikrotik", "ubiquiti", "juniper", "cisco", "other"} {
        attribute, _ := FormatSpeedAttribute(vendor, 10, 10, nil)
        assert.True(t, known[attribute], "attribute %s for vendor %s missing from RateAttributeNames", attribute, vendor)
    }
}

func TestCapabilities(t *testing.T) {
    assert.True(t, SupportsDirectPush("mikrotik"))
    assert.True(t, SupportsDirectPush("cisco"))
    assert.False(t, SupportsDirectPush("ubiquiti"))
    assert.False(t, SupportsDirectPush("juniper"))
    assert.False(t, SupportsDirectPush("unknown-vendor"))

    generic := Capabilities("unknown-vendor")
    assert.Equal(t, "radius_only", generic.RecommendedMode)
    assert.NotEmpty(t, generic.AuthMethods)
}
