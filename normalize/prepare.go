package normalize

import (
	"time"

	"github.com/google/uuid"

	"github.com/Sebastian25gb/nubla-siem/model"
)

// Preparer fills defaults and coerces timestamps on a normalized document.
// It is idempotent: preparing an already-prepared event is a no-op
// (besides the @timestamp-generation exception every other stage shares).
type Preparer struct {
	// DefaultTenant is filled into tenant_id when the input lacks one and
	// the process has a configured default (empty disables this).
	DefaultTenant string
}

// Prepare fills in defaults (dataset, schema_version, tenant_id,
// @timestamp) and coerces datetime-shaped fields to RFC-3339 UTC. It also
// assigns a stable event_id (a random UUID) the first time an event is
// prepared, which the search backend client uses as the document ID so a
// retried index request after a transient failure overwrites rather than
// duplicates.
func (p Preparer) Prepare(doc map[string]interface{}) map[string]interface{} {
	out := map[string]interface{}{}
	for k, v := range doc {
		out[k] = v
	}

	if !hasNonEmptyTimestamp(out, "@timestamp") {
		if ts := stringField(out, "timestamp"); ts != "" {
			out["@timestamp"] = ts
		} else {
			out["@timestamp"] = model.NowUTC()
		}
	} else {
		out["@timestamp"] = coerceTimestamp(out["@timestamp"])
	}

	out = coerceDatetimesRecursive(out)

	if stringField(out, "dataset") == "" {
		out["dataset"] = model.DefaultDataset
	}
	if stringField(out, "schema_version") == "" {
		out["schema_version"] = model.DefaultSchemaVersion
	}
	if stringField(out, "tenant_id") == "" && p.DefaultTenant != "" {
		out["tenant_id"] = p.DefaultTenant
	}

	if stringField(out, "event_id") == "" {
		out["event_id"] = uuid.New().String()
	}

	return out
}

// hasNonEmptyTimestamp treats a present-but-empty value as absent.
func hasNonEmptyTimestamp(doc map[string]interface{}, key string) bool {
	v, ok := doc[key]
	if !ok || v == nil {
		return false
	}
	if s, ok := v.(string); ok {
		return s != ""
	}
	return true
}

// coerceTimestamp normalizes an existing @timestamp value to RFC-3339 UTC.
// A naive (zone-less) timestamp is assumed to already be UTC.
func coerceTimestamp(v interface{}) interface{} {
	s, ok := v.(string)
	if !ok {
		return model.NowUTC()
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return model.FormatUTC(t)
	}
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return model.FormatUTC(t)
	}
	if t, err := time.Parse("2006-01-02 15:04:05", s); err == nil {
		return model.FormatUTC(t)
	}
	return s
}

// coerceDatetimesRecursive walks the document and coerces any value whose
// key looks like a datetime field into RFC-3339 UTC. Go's decoded JSON
// values are always strings/numbers/bools/maps/slices (never a native
// datetime type), so in practice this only affects string fields that
// already look like timestamps; it intentionally does not try to guess
// arbitrary strings are dates.
func coerceDatetimesRecursive(doc map[string]interface{}) map[string]interface{} {
	for k, v := range doc {
		switch vv := v.(type) {
		case map[string]interface{}:
			doc[k] = coerceDatetimesRecursive(vv)
		case string:
			if looksLikeTimestampKey(k) {
				doc[k] = coerceTimestamp(vv)
			}
		}
	}
	return doc
}

func looksLikeTimestampKey(k string) bool {
	switch k {
	case "@timestamp", "timestamp", "observed_at", "ingested_at":
		return true
	}
	return false
}
