package normalize

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrepare_FillsTimestampDatasetSchemaVersion(t *testing.T) {
	p := Preparer{}
	doc := p.Prepare(map[string]interface{}{})

	assert.NotEmpty(t, doc["@timestamp"])
	assert.Equal(t, "syslog.generic", doc["dataset"])
	assert.Equal(t, "1.0.0", doc["schema_version"])
	assert.NotEmpty(t, doc["event_id"])
}

func TestPrepare_PresentButEmptyTimestampTreatedAsAbsent(t *testing.T) {
	p := Preparer{}
	doc := p.Prepare(map[string]interface{}{"@timestamp": ""})

	ts, ok := doc["@timestamp"].(string)
	require.True(t, ok)
	assert.NotEmpty(t, ts)
}

func TestPrepare_CoercesNaiveTimestampAssumingUTC(t *testing.T) {
	p := Preparer{}
	doc := p.Prepare(map[string]interface{}{"@timestamp": "2025-11-12T14:38:19"})

	assert.Equal(t, "2025-11-12T14:38:19+00:00", doc["@timestamp"])
}

func TestPrepare_FillsDefaultTenantWhenConfigured(t *testing.T) {
	p := Preparer{DefaultTenant: "acme"}
	doc := p.Prepare(map[string]interface{}{})
	assert.Equal(t, "acme", doc["tenant_id"])
}

func TestPrepare_DoesNotOverrideExistingTenant(t *testing.T) {
	p := Preparer{DefaultTenant: "acme"}
	doc := p.Prepare(map[string]interface{}{"tenant_id": "ghost"})
	assert.Equal(t, "ghost", doc["tenant_id"])
}

func TestPrepare_IsIdempotent(t *testing.T) {
	p := Preparer{}
	first := p.Prepare(map[string]interface{}{"tenant_id": "acme"})
	second := p.Prepare(first)

	for k, v := range first {
		if k == "@timestamp" {
			continue
		}
		assert.Equal(t, v, second[k], "field %q changed on re-preparation", k)
	}
}

func TestPrepare_RecursivelyCoercesNestedTimestampKeys(t *testing.T) {
	p := Preparer{}
	doc := p.Prepare(map[string]interface{}{
		"original": map[string]interface{}{
			"observed_at": "2025-11-12T14:38:19",
		},
	})

	original, ok := doc["original"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, "2025-11-12T14:38:19+00:00", original["observed_at"])
}
