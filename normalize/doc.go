package normalize

// setNested assigns value at a dotted path within doc, creating
// intermediate maps as needed (e.g. setNested(doc, "source.ip", "1.2.3.4")
// produces doc["source"].(map[string]interface{})["ip"] = "1.2.3.4").
func setNested(doc map[string]interface{}, path string, value interface{}) {
	parts := splitDotted(path)
	cur := doc
	for i, p := range parts {
		if i == len(parts)-1 {
			cur[p] = value
			return
		}
		next, ok := cur[p].(map[string]interface{})
		if !ok {
			next = map[string]interface{}{}
			cur[p] = next
		}
		cur = next
	}
}

func splitDotted(s string) []string {
	var out []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			out = append(out, s[start:i])
			start = i + 1
		}
	}
	out = append(out, s[start:])
	return out
}
