package cmd

import "encoding/json"

// parseValue interprets raw as JSON when it parses, otherwise as a plain
// string. `42` stores a number, `"42"` and `hello` both store strings.
func parseValue(raw string) any {
	var v any
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return raw
	}
	return v
}

// formatValue renders a stored value for display. Bare strings print
// without quotes, everything else as its JSON form.
func formatValue(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}
