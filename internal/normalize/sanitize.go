package normalize

import (
	"encoding/json"
	"strings"
)

// Sanitize recursively walks a decoded JSON value and speculatively parses
// any string that looks like an embedded JSON object or array. Parse failures
// leave the original string untouched; no error is ever raised. Applying
// Sanitize twice yields the same value as applying it once.
func Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = Sanitize(item)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = Sanitize(item)
		}
		return out
	case string:
		trimmed := strings.TrimSpace(val)
		if looksLikeJSON(trimmed) {
			var parsed any
			if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
				return Sanitize(parsed)
			}
		}
		return val
	default:
		return v
	}
}

// SanitizeRecord sanitizes a record in place semantics-wise, always returning
// a non-nil map so lookups never have to guard against nil.
func SanitizeRecord(m map[string]any) map[string]any {
	if m == nil {
		return map[string]any{}
	}
	return Sanitize(m).(map[string]any)
}

func looksLikeJSON(s string) bool {
	if len(s) < 2 {
		return false
	}
	return (strings.HasPrefix(s, "{") && strings.HasSuffix(s, "}")) ||
		(strings.HasPrefix(s, "[") && strings.HasSuffix(s, "]"))
}
