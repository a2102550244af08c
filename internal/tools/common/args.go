package common

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// StringArg returns the trimmed string argument name, or "" when it is
// missing or not a string.
func StringArg(args map[string]interface{}, name string) string {
	v, ok := args[name].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(v)
}

// IntArg returns the integer argument name, or def when it is absent.
// JSON numbers arrive as float64; numeric strings are accepted too.
// Fractional and negative values are rejected.
func IntArg(args map[string]interface{}, name string, def int) (int, error) {
	raw, ok := args[name]
	if !ok || raw == nil {
		return def, nil
	}

	var n float64
	switch v := raw.(type) {
	case float64:
		n = v
	case int:
		n = float64(v)
	case int64:
		n = float64(v)
	case string:
		if strings.TrimSpace(v) == "" {
			return def, nil
		}
		i, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer, got %q", name, v)
		}
		n = float64(i)
	default:
		return 0, fmt.Errorf("%s must be an integer, got %T", name, raw)
	}

	if n != math.Trunc(n) || n < 0 || n > math.MaxInt32 {
		return 0, fmt.Errorf("%s must be a non-negative integer, got %v", name, raw)
	}
	return int(n), nil
}
