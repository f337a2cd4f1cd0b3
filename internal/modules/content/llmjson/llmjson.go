// Package llmjson recovers a JSON object from model output that may be wrapped
// in markdown fences, returned as a one-element array, or surrounded by prose.
package llmjson

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
)

var ErrNoObject = errors.New("llmjson: no JSON object recoverable")

// Parse returns the first JSON object it can recover from text. It tries, in
// order: the whole (fence-stripped) payload as an object, the first element of
// a top-level array, and the substring between the first '{' and the last '}'.
func Parse(text string) (map[string]any, error) {
	s := StripFences(text)
	if s == "" {
		return nil, fmt.Errorf("%w: empty payload", ErrNoObject)
	}

	var v any
	if err := json.Unmarshal([]byte(s), &v); err == nil {
		if obj, ok := asObject(v); ok {
			return obj, nil
		}
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start >= 0 && end > start {
		var obj map[string]any
		if err := json.Unmarshal([]byte(s[start:end+1]), &obj); err == nil && obj != nil {
			return obj, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrNoObject, preview(s))
}

// ParseOrEmpty is Parse that degrades to an empty object.
func ParseOrEmpty(text string) map[string]any {
	obj, err := Parse(text)
	if err != nil {
		return map[string]any{}
	}
	return obj
}

// StripFences removes a leading ```json (or bare ```) fence and its closing fence.
func StripFences(text string) string {
	s := strings.TrimSpace(text)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		// Drop the language tag line.
		if tag := strings.TrimSpace(s[:nl]); !strings.ContainsAny(tag, "{[") {
			s = s[nl+1:]
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

func asObject(v any) (map[string]any, bool) {
	switch t := v.(type) {
	case map[string]any:
		return t, true
	case []any:
		if len(t) == 0 {
			return nil, false
		}
		obj, ok := t[0].(map[string]any)
		return obj, ok
	default:
		return nil, false
	}
}

func preview(s string) string {
	const max = 80
	r := []rune(s)
	if len(r) <= max {
		return s
	}
	return string(r[:max]) + "..."
}

// String reads a string field, trimming whitespace. Numbers are formatted.
func String(m map[string]any, keys ...string) string {
	for _, k := range keys {
		switch v := m[k].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strings.TrimSpace(fmt.Sprintf("%g", v))
		}
	}
	return ""
}

// Float reads a numeric field. Strings must be a whole number or a clock
// reading (MM:SS or HH:MM:SS), which is returned in seconds.
func Float(m map[string]any, keys ...string) (float64, bool) {
	for _, k := range keys {
		switch v := m[k].(type) {
		case float64:
			return v, true
		case string:
			if f, ok := parseNumber(strings.TrimSpace(v)); ok {
				return f, true
			}
		}
	}
	return 0, false
}

func parseNumber(s string) (float64, bool) {
	if strings.Contains(s, ":") {
		return parseClock(s)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

func parseClock(s string) (float64, bool) {
	parts := strings.Split(s, ":")
	if len(parts) > 3 {
		return 0, false
	}
	var total float64
	for i, p := range parts {
		last := i == len(parts)-1
		var f float64
		if last {
			v, err := strconv.ParseFloat(p, 64)
			if err != nil || strings.Trim(p, "0123456789.") != "" {
				return 0, false
			}
			f = v
		} else {
			v, err := strconv.ParseUint(p, 10, 32)
			if err != nil {
				return 0, false
			}
			f = float64(v)
		}
		if i > 0 && f >= 60 {
			return 0, false
		}
		total = total*60 + f
	}
	return total, true
}

// Objects reads a list of objects, skipping non-object entries.
func Objects(m map[string]any, keys ...string) []map[string]any {
	for _, k := range keys {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]map[string]any, 0, len(arr))
		for _, it := range arr {
			if obj, ok := it.(map[string]any); ok {
				out = append(out, obj)
			}
		}
		return out
	}
	return nil
}

// Strings reads a list of strings; non-string scalars are formatted.
func Strings(m map[string]any, keys ...string) []string {
	for _, k := range keys {
		arr, ok := m[k].([]any)
		if !ok {
			continue
		}
		out := make([]string, 0, len(arr))
		for _, it := range arr {
			switch v := it.(type) {
			case string:
				out = append(out, v)
			case float64, bool:
				out = append(out, fmt.Sprint(v))
			}
		}
		return out
	}
	return nil
}
