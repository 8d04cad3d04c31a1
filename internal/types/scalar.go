package types

import (
	"encoding/json"
	"time"
)

/*
 * Scalar domain normalization.
 *
 * Metadata values and condition values share one dynamic scalar domain:
 * string | float64 | bool | time.Time | nil. JSON has no date type, so any
 * string that parses fully as RFC 3339 is promoted to time.Time at decode
 * boundaries. Normalization is applied uniformly to condition values,
 * ingested event metadata and bootstrap visit fields so chronological
 * comparisons work end to end.
 */

// NormalizeScalar maps a freshly decoded JSON value into the scalar domain.
// Numbers (including json.Number) become float64, RFC 3339 strings become
// time.Time. Non-scalar values pass through unchanged and are caught by
// validation.
func NormalizeScalar(v any) any {
	switch x := v.(type) {
	case float64, bool, nil, time.Time:
		return x
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		f, err := x.Float64()
		if err != nil {
			return x.String()
		}
		return f
	case string:
		if t, ok := ParseDate(x); ok {
			return t
		}
		return x
	default:
		return v
	}
}

// ParseDate reports whether s is a full RFC 3339 timestamp and returns it.
func ParseDate(s string) (time.Time, bool) {
	// Fast reject: RFC 3339 is at least "2006-01-02T15:04:05Z" long and
	// carries 'T' at index 10.
	if len(s) < 20 || s[10] != 'T' {
		return time.Time{}, false
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// IsScalar reports whether v belongs to the scalar domain.
func IsScalar(v any) bool {
	switch v.(type) {
	case string, float64, bool, time.Time, nil:
		return true
	default:
		return false
	}
}

// IsOrdered reports whether v supports chronological or numeric ordering.
func IsOrdered(v any) bool {
	switch v.(type) {
	case float64, time.Time:
		return true
	default:
		return false
	}
}
