// Package config holds the value conversions shared by the ConfigStore
// adapters. TOML decodes integers as int64, floats as float64 and arrays
// as []any; values set in-process keep their Go types.
package config

import (
	"strings"
	"time"
)

// String returns v if it is a string.
func String(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

// Int converts integer and float values.
func Int(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}

// Float converts float values and widens integers.
func Float(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case float32:
		return float64(n)
	case int:
		return float64(n)
	case int64:
		return float64(n)
	default:
		return 0
	}
}

// Bool returns v if it is a bool.
func Bool(v any) bool {
	if b, ok := v.(bool); ok {
		return b
	}
	return false
}

// Duration parses strings such as "30s" and accepts time.Duration values.
// Bare integers are read as seconds.
func Duration(v any) time.Duration {
	switch d := v.(type) {
	case time.Duration:
		return d
	case string:
		parsed, err := time.ParseDuration(strings.TrimSpace(d))
		if err != nil {
			return 0
		}
		return parsed
	case int, int64:
		return time.Duration(Int(d)) * time.Second
	default:
		return 0
	}
}

// StringSlice converts []string and []any of strings.
func StringSlice(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		result := make([]string, 0, len(s))
		for _, item := range s {
			if str, ok := item.(string); ok {
				result = append(result, str)
			}
		}
		return result
	default:
		return nil
	}
}
