package tenant

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebastian25gb/nubla-siem/logging"
)

func writeTenants(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "tenants.json")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestRegistry_ReloadBareStrings(t *testing.T) {
	dir := t.TempDir()
	path := writeTenants(t, dir, `["acme", "globex"]`)

	r := New(path, logging.NewDiscard())
	r.Reload()

	assert.True(t, r.IsValid("acme"))
	assert.True(t, r.IsValid("globex"))
	assert.False(t, r.IsValid("ghost"))
	assert.Equal(t, 2, r.Size())
}

func TestRegistry_ReloadObjectEntries(t *testing.T) {
	dir := t.TempDir()
	path := writeTenants(t, dir, `[{"id":"acme","policy_id":"p1","active":true}]`)

	r := New(path, logging.NewDiscard())
	r.Reload()

	assert.True(t, r.IsValid("acme"))
	meta, ok := r.Metadata("acme")
	require.True(t, ok)
	assert.Equal(t, "p1", meta.PolicyID)
}

func TestRegistry_MissingFileYieldsEmptySet(t *testing.T) {
	r := New("/nonexistent/path/tenants.json", logging.NewDiscard())
	r.Reload()

	assert.Equal(t, 0, r.Size())
	assert.False(t, r.IsValid("acme"))
}

func TestRegistry_MalformedFileYieldsEmptySet(t *testing.T) {
	dir := t.TempDir()
	path := writeTenants(t, dir, `not json`)

	r := New(path, logging.NewDiscard())
	r.Reload()

	assert.Equal(t, 0, r.Size())
}

func TestRegistry_ReloadAtomicallyReplacesSnapshot(t *testing.T) {
	dir := t.TempDir()
	path := writeTenants(t, dir, `["acme"]`)

	r := New(path, logging.NewDiscard())
	r.Reload()
	assert.True(t, r.IsValid("acme"))
	assert.False(t, r.IsValid("globex"))

	writeTenants(t, dir, `["globex"]`)
	r.Reload()
	assert.False(t, r.IsValid("acme"))
	assert.True(t, r.IsValid("globex"))
}

func TestHostMap_LookupMissingPathYieldsEmpty(t *testing.T) {
	hm := LoadHostMap("", logging.NewDiscard())
	_, ok := hm.Lookup("anyhost")
	assert.False(t, ok)
}

func TestHostMap_Lookup(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostmap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"web01":"acme"}`), 0o644))

	hm := LoadHostMap(path, logging.NewDiscard())
	tid, ok := hm.Lookup("web01")
	require.True(t, ok)
	assert.Equal(t, "acme", tid)
}

func TestHostMap_LookupIsCaseAndWhitespaceInsensitive(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "hostmap.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"Host-01":"acme"}`), 0o644))

	hm := LoadHostMap(path, logging.NewDiscard())

	tid, ok := hm.Lookup("host-01")
	require.True(t, ok)
	assert.Equal(t, "acme", tid)

	tid, ok = hm.Lookup("  Host 01  ")
	require.True(t, ok)
	assert.Equal(t, "acme", tid)
}
