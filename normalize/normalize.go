package normalize

import (
	"strings"

	"github.com/Sebastian25gb/nubla-siem/model"
)

// Normalize accepts a decoded JSON message body and returns a new document
// with vendor fields parsed and mapped onto the canonical schema. If the
// payload has no string "message" field, it is returned unchanged — a
// decoded JSON object is always a map in Go, so the only passthrough case
// that can occur here is "no usable message".
//
// To stay idempotent (Normalize(Normalize(x)) == Normalize(x)), re-parsing
// already-normalized input must see the same vendor line it saw the first
// time, not the shorter message the first pass already extracted. So the
// line actually tokenized is original.message_raw when present, falling
// back to the input's message field otherwise.
func Normalize(raw map[string]interface{}) map[string]interface{} {
	message, hasMessage := raw["message"].(string)
	if !hasMessage {
		return raw
	}

	doc := map[string]interface{}{}
	for k, v := range raw {
		doc[k] = v
	}

	rawLine := message
	if orig, ok := raw["original"].(map[string]interface{}); ok {
		if mr, ok := orig["message_raw"].(string); ok {
			rawLine = mr
		}
	}

	kv := parseKV(rawLine)

	host := firstNonEmpty(kv["devname"], kv["devid"], stringField(raw, "host"))
	if host != "" {
		doc["host"] = host
	}
	if hn := stringField(raw, "host_name"); hn != "" {
		doc["host_name"] = hn
	}

	rawSeverity := firstNonEmpty(kv["severity"], stringField(raw, "severity"))
	if rawSeverity != "" {
		doc["severity_original"] = rawSeverity
		doc["severity"] = strings.ToLower(rawSeverity)
	}

	finalMessage := firstNonEmpty(kv["msg"], kv["message"])
	if finalMessage != "" {
		doc["message"] = finalMessage
	} else {
		doc["message"] = rawLine
	}

	if ip, ok := kv["srcip"]; ok {
		setNested(doc, "source.ip", ip)
	}
	if ip, ok := kv["dstip"]; ok {
		setNested(doc, "destination.ip", ip)
	}
	if p, ok := kv["srcport"]; ok {
		if n, ok := parseIntDefensive(p); ok && n >= 0 && n <= 65535 {
			setNested(doc, "source.port", n)
		}
	}
	if p, ok := kv["dstport"]; ok {
		if n, ok := parseIntDefensive(p); ok && n >= 0 && n <= 65535 {
			setNested(doc, "destination.port", n)
		}
	}
	if proto, ok := kv["proto"]; ok && proto != "" {
		setNested(doc, "network.protocol", strings.ToLower(proto))
	}

	if v, ok := kv["attack"]; ok {
		setNested(doc, "threat.name", v)
	}
	if v, ok := kv["attackid"]; ok {
		setNested(doc, "threat.id", v)
	}
	if v, ok := kv["crscore"]; ok {
		if n, ok := parseIntDefensive(v); ok {
			setNested(doc, "threat.score", n)
		}
	}
	if v, ok := kv["craction"]; ok {
		setNested(doc, "threat.action", v)
	}

	if v, ok := kv["policyid"]; ok {
		setNested(doc, "rule.id", v)
	}

	if v, ok := kv["count"]; ok {
		if n, ok := parseIntDefensive(v); ok && n >= 0 {
			setNested(doc, "event.count", n)
		}
	}

	if v, ok := kv["srccountry"]; ok && v != "" {
		setNested(doc, "source.geo.country_iso_code", v)
	}
	if v, ok := kv["dstcountry"]; ok && v != "" {
		setNested(doc, "destination.geo.country_iso_code", v)
	}

	if m := ppsPattern.FindStringSubmatch(rawLine); m != nil {
		if n, ok := parseIntDefensive(m[1]); ok && n >= 0 {
			setNested(doc, "flow.packets_per_second", n)
		}
	}

	doc["@timestamp"] = extractTimestamp(kv, raw)

	doc["original"] = map[string]interface{}{
		"message_raw": rawLine,
		"raw_kv":      kv,
	}

	if tid := stringField(raw, "tenant_id"); tid != "" {
		doc["tenant_id"] = tid
	} else {
		doc["tenant_id"] = model.DefaultTenantID
	}
	if ds := stringField(raw, "dataset"); ds != "" {
		doc["dataset"] = ds
	} else {
		doc["dataset"] = model.DefaultDataset
	}
	if sv := stringField(raw, "schema_version"); sv != "" {
		doc["schema_version"] = sv
	} else {
		doc["schema_version"] = model.DefaultSchemaVersion
	}

	return doc
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
