package tenant

import (
	"encoding/json"
	"os"
	"strings"

	"github.com/Sebastian25gb/nubla-siem/logging"
)

// HostMap resolves a normalized event's host to an owning tenant. It is a
// plain read-only map loaded once at startup; unlike the Registry it has
// no reload semantics of its own.
type HostMap struct {
	byHost map[string]string
}

// LoadHostMap reads a JSON object of host→tenant_id pairs from path. A
// missing or empty path yields an empty map, never an error: the mapping
// is optional.
func LoadHostMap(path string, log *logging.Logger) *HostMap {
	if log == nil {
		log = logging.NewDiscard()
	}
	hm := &HostMap{byHost: map[string]string{}}
	if path == "" {
		return hm
	}
	data, err := os.ReadFile(path)
	if err != nil {
		log.Warn("host_tenant_map_missing", logging.F("path", path), logging.F("error", err))
		return hm
	}
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		log.Warn("host_tenant_map_invalid", logging.F("path", path), logging.F("error", err))
		return &HostMap{byHost: map[string]string{}}
	}
	for k, v := range raw {
		hm.byHost[strings.ToLower(k)] = v
	}
	return hm
}

// Lookup returns the tenant mapped to host, if any. host is normalized
// (trimmed, lowercased, spaces folded to hyphens) before matching; keys were
// only lowercased when LoadHostMap loaded them, so a device name like
// "Host 01 " matches a map entry of "host-01" or "Host-01".
func (hm *HostMap) Lookup(host string) (string, bool) {
	if hm == nil || host == "" {
		return "", false
	}
	key := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(host), " ", "-"))
	t, ok := hm.byHost[key]
	return t, ok
}
