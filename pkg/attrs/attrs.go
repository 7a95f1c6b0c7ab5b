// Package attrs reads values back out of slog-style key/value slices so the
// same attribute list can feed a log line and an audit event.
package attrs

import "fmt"

// Extract returns the value stored under key when it has type T.
// The slice should be formatted as [key1, value1, key2, value2, ...].
func Extract[T any](attrs []any, key string) (T, bool) {
	var zero T
	for i := 0; i < len(attrs)-1; i += 2 {
		k, ok := attrs[i].(string)
		if !ok || k != key {
			continue
		}
		v, ok := attrs[i+1].(T)
		if !ok {
			return zero, false
		}
		return v, true
	}
	return zero, false
}

type nillable interface {
	IsNil() bool
}

// ExtractString returns the value under key as a string. Strings are returned
// as-is and fmt.Stringer values (typed IDs) are formatted. Missing keys, nil
// IDs and other types yield "".
func ExtractString(attrs []any, key string) string {
	if s, ok := Extract[string](attrs, key); ok {
		return s
	}
	if n, ok := Extract[nillable](attrs, key); ok && n.IsNil() {
		return ""
	}
	if s, ok := Extract[fmt.Stringer](attrs, key); ok {
		return s.String()
	}
	return ""
}
