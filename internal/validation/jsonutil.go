package validation

import (
	"encoding/json"
	"regexp"
	"strings"
)

// fenceRe matches a fenced code block with an optional language tag.
var fenceRe = regexp.MustCompile("(?s)^```[a-zA-Z0-9_-]*\\s*\n(.*?)\n?```\\s*$")

// stripCodeFence removes a surrounding fenced code block, with or without a
// language tag, leaving the inner text. Outputs without a fence pass through
// unchanged.
func stripCodeFence(output string) string {
	trimmed := strings.TrimSpace(output)
	if match := fenceRe.FindStringSubmatch(trimmed); match != nil {
		return strings.TrimSpace(match[1])
	}
	return trimmed
}

// isJSON reports whether s parses as any JSON value: object, array, string,
// number, boolean, or null.
func isJSON(s string) bool {
	s = strings.TrimSpace(s)
	if s == "" {
		return false
	}
	return json.Valid([]byte(s))
}

// extractJSON locates a JSON object or array inside the output. A fenced
// code block is preferred if present; otherwise the first parseable object
// or array substring wins.
func extractJSON(output string) (string, bool) {
	fenced := stripCodeFence(output)
	if fenced != strings.TrimSpace(output) {
		if candidate, ok := firstJSONValue(fenced); ok {
			return candidate, true
		}
	}

	return firstJSONValue(output)
}

// firstJSONValue scans for the first '{' or '[' that starts a valid JSON
// document.
func firstJSONValue(s string) (string, bool) {
	for i := 0; i < len(s); i++ {
		if s[i] != '{' && s[i] != '[' {
			continue
		}
		decoder := json.NewDecoder(strings.NewReader(s[i:]))
		var value json.RawMessage
		if err := decoder.Decode(&value); err == nil {
			return string(value), true
		}
	}
	return "", false
}
