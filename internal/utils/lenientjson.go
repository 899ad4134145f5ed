package utils

import (
	"encoding/json"
	"regexp"
	"strings"
)

var codeFenceRe = regexp.MustCompile("(?i)```[a-z]*")

// StripCodeFences removes markdown code fences the model sometimes wraps
// around its JSON output.
func StripCodeFences(raw string) string {
	return strings.TrimSpace(codeFenceRe.ReplaceAllString(raw, ""))
}

// ExtractJSON unmarshals model output into out, tolerating free text around
// the JSON body. It first tries the whole (fence-stripped) string, then the
// first balanced {...} block. Returns false if nothing parseable was found;
// callers fall back to their documented conservative default.
func ExtractJSON(raw string, out interface{}) bool {
	cleaned := StripCodeFences(raw)
	if cleaned == "" {
		return false
	}
	if json.Unmarshal([]byte(cleaned), out) == nil {
		return true
	}
	block, ok := firstBalancedObject(cleaned)
	if !ok {
		return false
	}
	return json.Unmarshal([]byte(block), out) == nil
}

// firstBalancedObject returns the first {...} block with balanced braces,
// ignoring braces inside JSON string literals.
func firstBalancedObject(s string) (string, bool) {
	start := strings.IndexByte(s, '{')
	if start < 0 {
		return "", false
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(s); i++ {
		c := s[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return s[start : i+1], true
			}
		}
	}
	return "", false
}
