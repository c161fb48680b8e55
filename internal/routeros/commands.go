package routeros

import (
    "context"
    "encoding/json"
    "fmt"
    "net/http"
    "net/url"
)

// Higher-level device operations. Each is a thin wrapper over Execute and
// inherits its non-throwing contract.

func (c *Client) CreatePPPoESecret(ctx context.Context, name, password, profile, service string) CommandResult {
    if service == "" {
        service = "pppoe"
    }
    params := map[string]interface{}{
        "name":     name,
        "password": password,
        "service":  service,
    }
    if profile != "" {
        params["profile"] = profile
    }
    return c.Execute(ctx, http.MethodPut, "/ppp/secret", params)
}

// RemovePPPoESecret looks the secret up by name first; RouterOS deletes by
// internal id, not by name.
func (c *Client) RemovePPPoESecret(ctx context.Context, name string) CommandResult {
    id, result := c.findID(ctx, "/ppp/secret", "name", name)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodDelete, "/ppp/secret/"+id, nil)
}

func (c *Client) SetPPPoESecretProfile(ctx context.Context, name, profile string) CommandResult {
    id, result := c.findID(ctx, "/ppp/secret", "name", name)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodPatch, "/ppp/secret/"+id, map[string]interface{}{
        "profile": profile,
    })
}

func (c *Client) DisablePPPoESecret(ctx context.Context, name string) CommandResult {
    id, result := c.findID(ctx, "/ppp/secret", "name", name)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodPatch, "/ppp/secret/"+id, map[string]interface{}{
        "disabled": "yes",
    })
}

func (c *Client) EnablePPPoESecret(ctx context.Context, name string) CommandResult {
    id, result := c.findID(ctx, "/ppp/secret", "name", name)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodPatch, "/ppp/secret/"+id, map[string]interface{}{
        "disabled": "no",
    })
}

func (c *Client) AssignDHCPLease(ctx context.Context, mac, address, comment string) CommandResult {
    return c.Execute(ctx, http.MethodPut, "/ip/dhcp-server/lease", map[string]interface{}{
        "mac-address": mac,
        "address":     address,
        "comment":     comment,
    })
}

func (c *Client) ReleaseDHCPLease(ctx context.Context, comment string) CommandResult {
    id, result := c.findID(ctx, "/ip/dhcp-server/lease", "comment", comment)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodDelete, "/ip/dhcp-server/lease/"+id, nil)
}

func (c *Client) AddFirewallRule(ctx context.Context, params map[string]interface{}, comment string) CommandResult {
    if params == nil {
        params = map[string]interface{}{}
    }
    params["comment"] = comment
    return c.Execute(ctx, http.MethodPut, "/ip/firewall/filter", params)
}

func (c *Client) RemoveFirewallRuleByComment(ctx context.Context, comment string) CommandResult {
    id, result := c.findID(ctx, "/ip/firewall/filter", "comment", comment)
    if id == "" {
        return result
    }
    return c.Execute(ctx, http.MethodDelete, "/ip/firewall/filter/"+id, nil)
}

func (c *Client) GetInterfaces(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/interface", nil)
}

func (c *Client) GetSystemResources(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/system/resource", nil)
}

func (c *Client) GetLogs(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/log", nil)
}

func (c *Client) GetActiveSessions(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/ppp/active", nil)
}

func (c *Client) GetFirewallRules(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/ip/firewall/filter", nil)
}

func (c *Client) GetRadiusServers(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/radius", nil)
}

func (c *Client) GetRadiusIncoming(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/radius/incoming", nil)
}

func (c *Client) GetDNSSettings(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/ip/dns", nil)
}

func (c *Client) GetIPServices(ctx context.Context) CommandResult {
    return c.Execute(ctx, http.MethodGet, "/ip/service", nil)
}

// RunScript uploads a script under the given name and runs it once. Used
// by the enforcement worker to apply generated provisioning scripts.
func (c *Client) RunScript(ctx context.Context, name, source string) CommandResult {
    // Drop any previous upload under the same name so re-runs don't fail
    // on a duplicate script entry.
    if id, _ := c.findID(ctx, "/system/script", "name", name); id != "" {
        c.Execute(ctx, http.MethodDelete, "/system/script/"+id, nil)
    }

    result := c.Execute(ctx, http.MethodPut, "/system/script", map[string]interface{}{
        "name":   name,
        "source": source,
        "policy": "read,write,policy,test",
    })
    if !result.Success {
        return result
    }

    id, lookup := c.findID(ctx, "/system/script", "name", name)
    if id == "" {
        return lookup
    }
    return c.Execute(ctx, http.MethodPost, "/system/script/run", map[string]interface{}{
        ".id": id,
    })
}

// findID resolves a RouterOS object id by matching one field of a listing.
// Returns the raw lookup result when no id was found so callers can
// surface the underlying error.
func (c *Client) findID(ctx context.Context, path, field, value string) (string, CommandResult) {
    // Usernames can carry spaces and URL metacharacters.
    result := c.Execute(ctx, http.MethodGet, path+"?"+url.Values{field: {value}}.Encode(), nil)
    if !result.Success {
        return "", result
    }

    var entries []map[string]interface{}
    if err := json.Unmarshal(result.Data, &entries); err != nil {
        return "", CommandResult{Success: false, Error: fmt.Sprintf("unexpected listing from %s: %v", c.host, err)}
    }

    for _, entry := range entries {
        if fmt.Sprintf("%v", entry[field]) == value {
            if id, ok := entry[".id"].(string); ok {
                return id, result
            }
        }
    }
    return "", CommandResult{Success: false, Error: fmt.Sprintf("no entry with %s=%s on %s%s", field, value, c.host, path)}
}
