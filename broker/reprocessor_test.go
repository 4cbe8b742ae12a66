package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFixEvent_NullSeverityScenario(t *testing.T) {
	evt := map[string]interface{}{
		"tenant_id": "acme",
		"message":   "x",
		"severity":  nil,
	}

	fixed := fixEvent(evt, "info")

	assert.Equal(t, "acme", fixed["tenant_id"])
	assert.Equal(t, "info", fixed["severity"])
	assert.Equal(t, true, fixed["dlq_reprocess"])
}

func TestFixEvent_FillsMissingTenant(t *testing.T) {
	evt := map[string]interface{}{"message": "x"}
	fixed := fixEvent(evt, "info")
	assert.Equal(t, "default", fixed["tenant_id"])
}

func TestFixEvent_PreservesExistingTimestamp(t *testing.T) {
	evt := map[string]interface{}{
		"tenant_id":  "acme",
		"message":    "x",
		"@timestamp": "2025-01-01T00:00:00+00:00",
	}
	fixed := fixEvent(evt, "info")
	assert.Equal(t, "2025-01-01T00:00:00+00:00", fixed["@timestamp"])
}
