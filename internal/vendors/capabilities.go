package vendors

// VendorCapability describes what one vendor's equipment supports. Static
// compile-time table, no lifecycle.
type VendorCapability struct {
    AuthMethods      []string
    EnforcementModes []string
    RecommendedMode  string
    DirectPush       bool
}

var capabilities = map[string]VendorCapability{
    "mikrotik": {
        AuthMethods:      []string{"radius", "api"},
        EnforcementModes: []string{"radius_only", "direct_push", "hybrid"},
        RecommendedMode:  "hybrid",
        DirectPush:       true,
    },
    "ubiquiti": {
        AuthMethods:      []string{"radius"},
        EnforcementModes: []string{"radius_only"},
        RecommendedMode:  "radius_only",
        DirectPush:       false,
    },
    "juniper": {
        AuthMethods:      []string{"radius"},
        EnforcementModes: []string{"radius_only"},
        RecommendedMode:  "radius_only",
        DirectPush:       false,
    },
    "cisco": {
        AuthMethods:      []string{"radius", "api"},
        EnforcementModes: []string{"radius_only", "direct_push", "hybrid"},
        RecommendedMode:  "radius_only",
        DirectPush:       true,
    },
}

var genericCapability = VendorCapability{
    AuthMethods:      []string{"radius"},
    EnforcementModes: []string{"radius_only"},
    RecommendedMode:  "radius_only",
    DirectPush:       false,
}

func Capabilities(vendor string) VendorCapability {
    if cap, ok := capabilities[vendor]; ok {
        return cap
    }
    return genericCapability
}

func SupportsDirectPush(vendor string) bool {
    return Capabilities(vendor).DirectPush
}
