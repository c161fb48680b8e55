package vendors

import "fmt"

// BurstSpec is an optional burst rate pair. Burst is only emitted when
// both values are present, so the pair travels together.
type BurstSpec struct {
    DownMbps int
    UpMbps   int
}

// FormatSpeedAttribute maps a generic speed profile to the RADIUS reply
// attribute one vendor's equipment understands. Pure lookup, never fails;
// unknown vendors fall back to a standard Filter-Id.
//
// Ubiquiti only takes the download rate here: WISPr-Bandwidth-Max-Up is a
// separate attribute and must be written by a second call. That asymmetry
// is the vendor's, not ours.
func FormatSpeedAttribute(vendor string, downMbps, upMbps int, burst *BurstSpec) (attribute, value string) {
    switch vendor {
    case "mikrotik":
        value = fmt.Sprintf("%dM/%dM", downMbps, upMbps)
        if burst != nil {
            value += fmt.Sprintf(" %dM/%dM", burst.DownMbps, burst.UpMbps)
        }
        return "Mikrotik-Rate-Limit", value
    case "ubiquiti":
        return "WISPr-Bandwidth-Max-Down", fmt.Sprintf("%d", downMbps*1000000)
    case "juniper":
        return "ERX-Qos-Profile-Name", fmt.Sprintf("profile-%dM-%dM", downMbps, upMbps)
    case "cisco":
        return "Cisco-AVPair", fmt.Sprintf("subscriber:sub-qos-policy-in=rate-limit-%dM", downMbps)
    default:
        return "Filter-Id", fmt.Sprintf("speed-%dM-%dM", downMbps, upMbps)
    }
}

// RateAttributeNames is every attribute name FormatSpeedAttribute can
// emit. Speed updates purge rows under the stale names so a router vendor
// migration cannot leave an old rate limit behind.
var RateAttributeNames = []string{
    "Mikrotik-Rate-Limit",
    "WISPr-Bandwidth-Max-Down",
    "ERX-Qos-Profile-Name",
    "Cisco-AVPair",
    "Filter-Id",
}
