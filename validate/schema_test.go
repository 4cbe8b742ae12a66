package validate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sebastian25gb/nubla-siem/logging"
)

const testSchema = `{
	"$schema": "http://json-schema.org/draft-07/schema#",
	"type": "object",
	"required": ["tenant_id", "@timestamp"],
	"properties": {
		"tenant_id": {"type": "string"},
		"@timestamp": {"type": "string"},
		"severity": {"type": "string", "enum": ["critical","high","medium","low","info"]}
	}
}`

func writeSchema(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "event.schema.json")
	require.NoError(t, os.WriteFile(path, []byte(testSchema), 0o644))
	return path
}

func TestValidate_PassesValidDocument(t *testing.T) {
	v, err := Load(writeSchema(t))
	require.NoError(t, err)

	errs := v.Validate(map[string]interface{}{
		"tenant_id":  "acme",
		"@timestamp": "2025-11-12T14:38:19+00:00",
		"severity":   "critical",
	})
	assert.Empty(t, errs)
}

func TestValidate_FlagsMissingRequiredField(t *testing.T) {
	v, err := Load(writeSchema(t))
	require.NoError(t, err)

	errs := v.Validate(map[string]interface{}{"tenant_id": "acme"})
	assert.NotEmpty(t, errs)
}

func TestValidate_FlagsUnknownSeverity(t *testing.T) {
	v, err := Load(writeSchema(t))
	require.NoError(t, err)

	errs := v.Validate(map[string]interface{}{
		"tenant_id":  "acme",
		"@timestamp": "2025-11-12T14:38:19+00:00",
		"severity":   "bogus",
	})
	assert.NotEmpty(t, errs)
}

func TestLoadOptional_DegradedModeOnMissingPath(t *testing.T) {
	v := LoadOptional("", logging.NewDiscard())
	assert.Nil(t, v)
	assert.Empty(t, v.Validate(map[string]interface{}{}))
}

func TestLoadOptional_DegradedModeOnBadSchema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	require.NoError(t, os.WriteFile(path, []byte("not json"), 0o644))

	v := LoadOptional(path, logging.NewDiscard())
	assert.Nil(t, v)
}
