package graph

import (
	"fmt"
	"strconv"
	"time"
)

// Value represents any scalar that can appear in a table column or query
// result. A nil Value is the null value.
type Value = interface{}

// Valid value types:
// - string
// - int64
// - float64
// - bool
// - time.Time
// - nil (null)

// IsNumeric reports whether a value is an integer or a float.
func IsNumeric(v Value) bool {
	switch v.(type) {
	case int, int64, float64:
		return true
	}
	return false
}

// AsFloat converts a numeric value to float64.
// The second return is false for non-numeric values.
func AsFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	}
	return 0, false
}

// FormatValue renders a value the way result tables and plan dumps show it.
func FormatValue(v Value) string {
	if v == nil {
		return "null"
	}
	switch val := v.(type) {
	case string:
		return val
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(val)
	case time.Time:
		return val.Format("2006-01-02 15:04:05")
	default:
		return fmt.Sprintf("%v", v)
	}
}
