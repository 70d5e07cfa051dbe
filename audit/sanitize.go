package audit

import (
	"encoding/json"
	"strings"
)

// RedactionMarker replaces every sensitive leaf value in logged payloads.
const RedactionMarker = "[REDACTED]"

// Sanitizer redacts sensitive fields from arbitrary JSON-shaped payloads
// before they are persisted to the correlation log. Matching is a
// case-insensitive substring test against a data-driven pattern list, so new
// sensitive fields are a configuration change, not a code change.
type Sanitizer struct {
	patterns []string
}

func NewSanitizer(patterns []string) *Sanitizer {
	lowered := make([]string, 0, len(patterns))
	for _, p := range patterns {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			lowered = append(lowered, p)
		}
	}
	return &Sanitizer{patterns: lowered}
}

func (s *Sanitizer) sensitive(key string) bool {
	k := strings.ToLower(key)
	for _, p := range s.patterns {
		if strings.Contains(k, p) {
			return true
		}
	}
	return false
}

// Sanitize deep-copies v, replacing the value of every map entry whose key
// matches a sensitive pattern with the redaction marker. Nested maps and
// slices are walked recursively; everything else is preserved as-is.
func (s *Sanitizer) Sanitize(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, inner := range val {
			if s.sensitive(k) {
				out[k] = RedactionMarker
				continue
			}
			out[k] = s.Sanitize(inner)
		}
		return out
	case []any:
		out := make([]any, len(val))
		for i, inner := range val {
			out[i] = s.Sanitize(inner)
		}
		return out
	default:
		return v
	}
}

// SanitizeJSON redacts a raw JSON document. Non-JSON input is dropped rather
// than logged unredacted.
func (s *Sanitizer) SanitizeJSON(raw []byte) []byte {
	if len(raw) == 0 {
		return nil
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil
	}
	out, err := json.Marshal(s.Sanitize(v))
	if err != nil {
		return nil
	}
	return out
}
