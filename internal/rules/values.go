// internal/rules/values.go
package rules

import (
	"time"
)

/*
 * Scalar comparison logic.
 *
 * Values reaching these helpers are already normalized into the scalar
 * domain (string | float64 | bool | time.Time | nil) by internal/types
 * decode boundaries.
 *
 * Equality is strict type-and-value: no cross-type coercion, numbers
 * compare as float64, dates compare as instants (time.Equal, so equal
 * instants in different zones are equal).
 *
 * Ordering is defined only between two numbers or two dates; any null,
 * missing or mixed-type operand pair is incomparable and never matches.
 * Strict inequality only, no equality case.
 */

// scalarEqual performs strict type-and-value equality.
func scalarEqual(a, b any) bool {
	ta, aIsTime := a.(time.Time)
	tb, bIsTime := b.(time.Time)
	if aIsTime || bIsTime {
		if !aIsTime || !bIsTime {
			return false
		}
		return ta.Equal(tb)
	}
	return a == b
}

// scalarCompare performs three-way ordering (-1/0/1) over two numbers or
// two dates. The second result is false for incomparable operands.
func scalarCompare(a, b any) (int, bool) {
	switch av := a.(type) {
	case float64:
		bv, ok := b.(float64)
		if !ok {
			return 0, false
		}
		switch {
		case av < bv:
			return -1, true
		case av > bv:
			return 1, true
		default:
			return 0, true
		}
	case time.Time:
		bv, ok := b.(time.Time)
		if !ok {
			return 0, false
		}
		switch {
		case av.Before(bv):
			return -1, true
		case av.After(bv):
			return 1, true
		default:
			return 0, true
		}
	default:
		return 0, false
	}
}
