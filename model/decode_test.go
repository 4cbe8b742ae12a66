package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecode_RoundTrip(t *testing.T) {
	port := 443
	doc := map[string]interface{}{
		"tenant_id":      "acme",
		"@timestamp":     "2025-11-12T14:38:19.127000+00:00",
		"dataset":        "syslog.generic",
		"schema_version": "1.0.0",
		"severity":       "critical",
		"source":         map[string]interface{}{"ip": "1.2.3.4", "port": float64(port)},
	}

	evt, err := Decode(doc)
	require.NoError(t, err)
	assert.Equal(t, "acme", evt.TenantID)
	assert.Equal(t, "critical", evt.Severity)
	require.NotNil(t, evt.Source)
	assert.Equal(t, "1.2.3.4", evt.Source.IP)
	require.NotNil(t, evt.Source.Port)
	assert.Equal(t, port, *evt.Source.Port)

	back, err := evt.ToMap()
	require.NoError(t, err)
	assert.Equal(t, "acme", back["tenant_id"])
}

func TestIsKnownSeverity(t *testing.T) {
	assert.True(t, IsKnownSeverity("critical"))
	assert.True(t, IsKnownSeverity("info"))
	assert.False(t, IsKnownSeverity("bogus"))
}
