package compiler

import (
	"math"
	"strconv"
	"strings"
)

// Coerce converts a raw directive value into a typed value. A value holding a
// comma outside double quotes becomes a list whose elements are coerced as
// scalars; empty elements are dropped.
func Coerce(raw string) any {
	s := strings.TrimSpace(raw)
	if parts, ok := splitList(s); ok {
		out := make([]any, 0, len(parts))
		for _, part := range parts {
			v := coerceScalar(part)
			if str, isStr := v.(string); isStr && str == "" {
				continue
			}
			out = append(out, v)
		}
		return out
	}
	return coerceScalar(s)
}

// coerceScalar tries escapes, booleans and numbers in that order and falls
// back to the raw string. Double-quoted values are unquoted and stay strings.
func coerceScalar(raw string) any {
	s := strings.TrimSpace(raw)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return s[1 : len(s)-1]
	}
	switch s {
	case `\n`:
		return "\n"
	case `\t`:
		return "\t"
	case `\s`:
		return " "
	case "true":
		return true
	case "false":
		return false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return s
}

// splitList splits on commas that are not inside double quotes. It reports
// false when there is no such comma.
func splitList(s string) ([]string, bool) {
	var (
		parts   []string
		inQuote bool
		start   int
	)
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case ',':
			if !inQuote {
				parts = append(parts, strings.TrimSpace(s[start:i]))
				start = i + 1
			}
		}
	}
	if parts == nil {
		return nil, false
	}
	return append(parts, strings.TrimSpace(s[start:])), true
}
