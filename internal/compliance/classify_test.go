package compliance

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "isp-netops.com/engine/internal/models"
)

func recordWithPasses(n int) *models.ComplianceRecord {
    record := &models.ComplianceRecord{}
    flags := []*bool{
        &record.RadiusOk, &record.AccountingOk, &record.CoAOk, &record.DNSOk,
        &record.FirewallOk, &record.FasttrackSafe, &record.SecurityOk,
    }
    for i := 0; i < n && i < len(flags); i++ {
        *flags[i] = true
    }
    return record
}

func TestClassify(t *testing.T) {
    tests := []struct {
        passes int
        want   string
    }{
        {7, "compliant"},
        {6, "partial"},
        {5, "partial"},
        {4, "partial"},
        {3, "broken"},
        {2, "broken"},
        {1, "broken"},
        {0, "broken"},
    }

    for _, tt := range tests {
        assert.Equal(t, tt.want, Classify(recordWithPasses(tt.passes)), "%d/7 checks passing", tt.passes)
    }
}
