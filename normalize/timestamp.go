package normalize

import (
	"time"

	"github.com/Sebastian25gb/nubla-siem/model"
)

// extractTimestamp prefers eventtime (epoch nanoseconds), else composes
// date+time+tz, else falls back to an existing @timestamp/timestamp field
// on the raw payload, else "now (UTC)".
func extractTimestamp(kv map[string]string, raw map[string]interface{}) string {
	if es, ok := kv["eventtime"]; ok {
		if ns, ok := parseInt64Defensive(es); ok {
			return model.FormatUTC(time.Unix(0, ns))
		}
		// eventtime present but not a number: fall through to other sources.
	}

	if date, dok := kv["date"]; dok {
		if tm, tok := kv["time"]; tok {
			tz := kv["tz"]
			if tz == "" {
				tz = "+0000"
			}
			if t, err := time.Parse("2006-01-02 15:04:05 -0700", date+" "+tm+" "+tz); err == nil {
				return model.FormatUTC(t)
			}
		}
	}

	if v := stringField(raw, "@timestamp"); v != "" {
		return v
	}
	if v := stringField(raw, "timestamp"); v != "" {
		return v
	}

	return model.NowUTC()
}

func stringField(m map[string]interface{}, key string) string {
	if v, ok := m[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
