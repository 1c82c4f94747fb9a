// Package llmjson decodes JSON that was produced by a language model and may be
// wrapped in markdown fences, surrounded by prose, or carry a trailing comma.
package llmjson

import (
	"errors"
	"strings"

	json "github.com/goccy/go-json"
)

// ErrNoJSON is returned when the text contains no object or array.
var ErrNoJSON = errors.New("no JSON structure found")

// Extract returns the JSON payload embedded in text.
func Extract(text string) (string, error) {
	start := strings.IndexAny(text, "{[")
	if start == -1 {
		return "", ErrNoJSON
	}
	s := strings.TrimSpace(text[start:])

	if strings.HasSuffix(s, "```") {
		s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
	}
	if strings.HasPrefix(s, "```json") {
		s = strings.TrimSpace(s[len("```json"):])
	} else if strings.HasPrefix(s, "```") {
		s = strings.TrimSpace(s[3:])
	}

	if strings.HasSuffix(s, ",}") {
		s = s[:len(s)-2] + "}"
	} else if strings.HasSuffix(s, ",]") {
		s = s[:len(s)-2] + "]"
	}

	if strings.HasPrefix(s, "{") {
		if last := strings.LastIndex(s, "}"); last > -1 {
			s = s[:last+1]
		}
	} else if strings.HasPrefix(s, "[") {
		if last := strings.LastIndex(s, "]"); last > -1 {
			s = s[:last+1]
		}
	}
	return s, nil
}

// Parse leniently decodes model output into v.
func Parse(text string, v any) error {
	s, err := Extract(text)
	if err != nil {
		return err
	}
	return json.Unmarshal([]byte(s), v)
}

// ParseOr decodes text into a T, returning fallback when decoding fails.
func ParseOr[T any](text string, fallback T) T {
	var v T
	if err := Parse(text, &v); err != nil {
		return fallback
	}
	return v
}

// Object decodes text into a generic object. A non-object payload or any
// decoding failure yields an empty, non-nil map.
func Object(text string) map[string]any {
	m := map[string]any{}
	if err := Parse(text, &m); err != nil || m == nil {
		return map[string]any{}
	}
	return m
}

// Merge overlays src onto a copy of base.
func Merge(base, src map[string]any) map[string]any {
	out := make(map[string]any, len(base)+len(src))
	for k, v := range base {
		out[k] = v
	}
	for k, v := range src {
		out[k] = v
	}
	return out
}

// CleanFences strips a leading markdown code fence and its language tag.
// Empty input becomes "{}" so callers always have something to decode.
func CleanFences(text string) string {
	s := strings.TrimSpace(text)
	if s == "" {
		return "{}"
	}
	if strings.HasPrefix(s, "```") {
		parts := strings.Split(s, "```")
		s = parts[1]
		s = strings.TrimPrefix(s, "json")
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return "{}"
	}
	return s
}
