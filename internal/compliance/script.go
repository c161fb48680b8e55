package compliance

import (
    "fmt"
    "strings"

    "isp-netops.com/engine/internal/models"
)

// GenerateProvisioningScript renders the idempotent RouterOS script that
// brings a router to the managed baseline: RADIUS client, CoA, DNS,
// tagged firewall rules, fasttrack bypass, and management hardening.
// Every add is guarded by a find so re-running the script only creates
// what is missing and never duplicates configuration.
func GenerateProvisioningScript(router *models.Router, radiusIP, radiusSecret string) string {
    var b strings.Builder

    fmt.Fprintf(&b, "# Managed baseline for %s (%s)\n", router.Name, router.Host)
    b.WriteString("# Safe to re-run: only missing configuration is added.\n\n")

    // RADIUS client for PPP and login, with accounting.
    fmt.Fprintf(&b, ":if ([:len [/radius find address=%s]] = 0) do={\n", radiusIP)
    fmt.Fprintf(&b, "    /radius add address=%s secret=\"%s\" service=ppp,login timeout=3s\n", radiusIP, radiusSecret)
    b.WriteString("}\n")
    b.WriteString("/ppp aaa set use-radius=yes accounting=yes interim-update=5m\n\n")

    // CoA so the RADIUS server can disconnect sessions mid-flight.
    b.WriteString("/radius incoming set accept=yes port=3799\n\n")

    // DNS, only when nothing is configured.
    b.WriteString(":if ([:len [/ip dns get servers]] = 0) do={\n")
    b.WriteString("    /ip dns set servers=1.1.1.1,8.8.8.8 allow-remote-requests=no\n")
    b.WriteString("}\n\n")

    fmt.Fprintf(&b, ":if ([:len [/ip firewall filter find comment=\"%s\"]] = 0) do={\n", TagRadius)
    fmt.Fprintf(&b, "    /ip firewall filter add chain=input protocol=udp dst-port=1812,1813 src-address=%s action=accept comment=\"%s\" place-before=0\n", radiusIP, TagRadius)
    b.WriteString("}\n")

    fmt.Fprintf(&b, ":if ([:len [/ip firewall filter find comment=\"%s\"]] = 0) do={\n", TagCoA)
    fmt.Fprintf(&b, "    /ip firewall filter add chain=input protocol=udp dst-port=3799 src-address=%s action=accept comment=\"%s\" place-before=0\n", radiusIP, TagCoA)
    b.WriteString("}\n")

    // Keep RADIUS traffic out of fasttrack so CoA and accounting see it.
    fmt.Fprintf(&b, ":if ([:len [/ip firewall filter find comment=\"%s\"]] = 0) do={\n", TagFasttrackSafe)
    fmt.Fprintf(&b, "    /ip firewall filter add chain=forward protocol=udp port=1812,1813,3799 action=accept comment=\"%s\" place-before=0\n", TagFasttrackSafe)
    b.WriteString("}\n\n")

    // Management hardening: plaintext services off.
    b.WriteString("/ip service disable telnet\n")
    b.WriteString("/ip service disable ftp\n")
    b.WriteString("/ip service disable www\n")

    return b.String()
}
