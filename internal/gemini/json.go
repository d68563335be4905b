package gemini

import (
	"encoding/json"
	"fmt"
	"strings"
)

// BestEffortJSON extracts a JSON object from raw model output. It tries,
// in order: direct parse, the outermost {...} span, and the content of a
// ``` fenced block. The returned bytes are valid JSON.
func BestEffortJSON(raw string) (json.RawMessage, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, fmt.Errorf("empty model output")
	}

	if js, ok := tryParse(trimmed); ok {
		return js, nil
	}

	if span := outermostObject(trimmed); span != "" {
		if js, ok := tryParse(span); ok {
			return js, nil
		}
	}

	if inner := stripFences(trimmed); inner != trimmed {
		if js, ok := tryParse(inner); ok {
			return js, nil
		}
		if span := outermostObject(inner); span != "" {
			if js, ok := tryParse(span); ok {
				return js, nil
			}
		}
	}

	return nil, fmt.Errorf("no valid JSON object in model output")
}

func tryParse(s string) (json.RawMessage, bool) {
	var v any
	if err := json.Unmarshal([]byte(s), &v); err != nil {
		return nil, false
	}
	return json.RawMessage(s), true
}

// outermostObject returns the substring from the first '{' to the last
// '}', or "" when no such span exists.
func outermostObject(s string) string {
	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start == -1 || end == -1 || end <= start {
		return ""
	}
	return s[start : end+1]
}

// stripFences removes a surrounding markdown code fence, with or without
// a language tag.
func stripFences(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	body := s[3:]
	if nl := strings.Index(body, "\n"); nl != -1 {
		// Drop the language tag line if the fence opener has one.
		first := strings.TrimSpace(body[:nl])
		if first == "" || !strings.ContainsAny(first, "{}") {
			body = body[nl+1:]
		}
	}
	body = strings.TrimSuffix(strings.TrimSpace(body), "```")
	return strings.TrimSpace(body)
}
