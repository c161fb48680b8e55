package vendors

import (
    "testing"

    "github.com/stretchr/testify/assert"
    "github.com/stretchr/testify/require"
    "isp-netops.com/engine/internal/routeros"
)

func TestDriverForUnsupportedVendors(t *testing.T) {
    for _, vendor := range []string{"ubiquiti", "juniper"} {
        driver, err := DriverFor(vendor, nil, nil, 1)
        require.Error(t, err, "vendor %s", vendor)
        assert.ErrorIs(t, err, ErrDirectPushUnsupported)
        assert.Nil(t, driver)
    }
}

func TestDriverForRequiresClient(t *testing.T) {
    _, err := DriverFor("mikrotik", nil, nil, 1)
    assert.Error(t, err)

    _, err = DriverFor("cisco", nil, nil, 1)
    assert.Error(t, err)
}

func TestDriverForMikrotik(t *testing.T) {
    client, err := routeros.NewClient("192.0.2.1", 443, "admin", "secret")
    require.NoError(t, err)

    driver, err := DriverFor("mikrotik", client, nil, 1)
    require.NoError(t, err)
    assert.IsType(t, &mikrotikDriver{}, driver)
}

func TestDriverForGenericRequiresQueue(t *testing.T) {
    _, err := DriverFor("huawei", nil, nil, 1)
    assert.Error(t, err)
}

func TestServiceTag(t *testing.T) {
    assert.Equal(t, "ISP_MANAGED:SVC_42", serviceTag(42))
}
