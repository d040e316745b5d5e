package logging

import "encoding/json"

// SafeJSON renders v as compact JSON for log lines, truncating to limit
// characters. Unserializable values never fail a log call.
func SafeJSON(v interface{}, limit int) string {
	raw, err := json.Marshal(v)
	if err != nil {
		return "<unserializable>"
	}
	if limit > 0 && len(raw) > limit {
		return string(raw[:limit]) + "...(truncated)"
	}
	return string(raw)
}

// ShortURL truncates long URLs so log lines stay readable.
func ShortURL(u string) string {
	const maxLen = 160
	if u == "" {
		return "<unknown>"
	}
	if len(u) <= maxLen {
		return u
	}
	return u[:maxLen] + "..."
}
