package broker

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebastian25gb/nubla-siem/tenant"
)

func TestApplySeverityMapping(t *testing.T) {
	cases := map[string]string{
		"error":   "critical",
		"alert":   "high",
		"warning": "medium",
		"warn":    "medium",
		"WARN":    "medium",
		"notice":  "notice",
	}
	c := &Consumer{}
	for in, want := range cases {
		doc := map[string]interface{}{"severity": in}
		c.applySeverityMapping(doc)
		assert.Equal(t, want, doc["severity"], "input %q", in)
	}
}

func TestApplySeverityMapping_NoSeverityIsNoop(t *testing.T) {
	c := &Consumer{}
	doc := map[string]interface{}{}
	c.applySeverityMapping(doc)
	_, ok := doc["severity"]
	assert.False(t, ok)
}

func TestHasTenant(t *testing.T) {
	assert.False(t, hasTenant(map[string]interface{}{}))
	assert.False(t, hasTenant(map[string]interface{}{"tenant_id": "default"}))
	assert.False(t, hasTenant(map[string]interface{}{"tenant_id": ""}))
	assert.True(t, hasTenant(map[string]interface{}{"tenant_id": "acme"}))
}

func TestApplyHostTenantMapping_OverridesDefaultTenant(t *testing.T) {
	c := &Consumer{hostMap: loadInlineHostMap(t, map[string]string{"web01": "acme"})}

	doc := map[string]interface{}{"tenant_id": "default", "host": "web01"}
	c.applyHostTenantMapping(doc)
	assert.Equal(t, "acme", doc["tenant_id"])
}

func TestApplyHostTenantMapping_DoesNotOverrideExplicitTenant(t *testing.T) {
	c := &Consumer{hostMap: loadInlineHostMap(t, map[string]string{"web01": "acme"})}

	doc := map[string]interface{}{"tenant_id": "ghost", "host": "web01"}
	c.applyHostTenantMapping(doc)
	assert.Equal(t, "ghost", doc["tenant_id"])
}

// loadInlineHostMap writes a throwaway host-map file so the test can reuse
// tenant.LoadHostMap rather than poking at its unexported field directly.
func loadInlineHostMap(t *testing.T, m map[string]string) *tenant.HostMap {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "hostmap.json")
	body := "{"
	first := true
	for k, v := range m {
		if !first {
			body += ","
		}
		first = false
		body += `"` + k + `":"` + v + `"`
	}
	body += "}"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return tenant.LoadHostMap(path, nil)
}
