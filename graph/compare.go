package graph

import (
	"strings"
	"time"
)

// Compare compares two non-null values and returns:
//
//	-1 if left < right
//	 0 if left == right
//	 1 if left > right
//
// Integers and floats are promoted to a common numeric type. Comparing
// values of incompatible kinds (e.g. a string against a number) returns a
// TypeMismatch error instead of silently coercing.
func Compare(left, right Value) (int, error) {
	switch l := left.(type) {
	case int:
		return compareNumeric(float64(l), right)
	case int64:
		return compareNumeric(float64(l), right)
	case float64:
		return compareNumeric(l, right)
	case string:
		if r, ok := right.(string); ok {
			return strings.Compare(l, r), nil
		}
	case bool:
		if r, ok := right.(bool); ok {
			if !l && r {
				return -1, nil
			} else if l && !r {
				return 1, nil
			}
			return 0, nil
		}
	case time.Time:
		if r, ok := right.(time.Time); ok {
			if l.Before(r) {
				return -1, nil
			} else if l.After(r) {
				return 1, nil
			}
			return 0, nil
		}
	}
	return 0, Errorf(TypeMismatch, "cannot compare %T with %T", left, right)
}

// compareNumeric compares a float64 against any numeric value
func compareNumeric(left float64, right Value) (int, error) {
	r, ok := AsFloat(right)
	if !ok {
		return 0, Errorf(TypeMismatch, "cannot compare number with %T", right)
	}
	if left < r {
		return -1, nil
	} else if left > r {
		return 1, nil
	}
	return 0, nil
}

// ValuesEqual checks two values for equality as used by join keys and
// aggregate group keys. Numeric values compare across int/float. Values of
// incompatible kinds are simply unequal, and null equals only null.
func ValuesEqual(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if IsNumeric(a) && IsNumeric(b) {
		af, _ := AsFloat(a)
		bf, _ := AsFloat(b)
		return af == bf
	}
	if at, ok := a.(time.Time); ok {
		if bt, ok := b.(time.Time); ok {
			return at.Equal(bt)
		}
		return false
	}
	return a == b
}

// SortCompare imposes a total order over all values for ORDER BY. Nulls
// sort after every non-null value; values of different kinds order by kind
// rank so that a mixed column still sorts deterministically.
func SortCompare(a, b Value) int {
	if a == nil || b == nil {
		if a == nil && b == nil {
			return 0
		}
		if a == nil {
			return 1
		}
		return -1
	}
	ra, rb := kindRank(a), kindRank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	if c, err := Compare(a, b); err == nil {
		return c
	}
	return strings.Compare(FormatValue(a), FormatValue(b))
}

// kindRank orders value kinds: numbers, strings, bools, times, everything else.
func kindRank(v Value) int {
	switch v.(type) {
	case int, int64, float64:
		return 0
	case string:
		return 1
	case bool:
		return 2
	case time.Time:
		return 3
	}
	return 4
}
