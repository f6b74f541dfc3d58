package types

import (
	"strconv"
	"strings"
)

// The wire format is dynamically shaped per endpoint, so responses are kept
// as generic trees (maps, slices, scalars) until a merge rule claims a key.
// The helpers below replace chained lookups with an explicit
// get-with-default over such trees.

// GetNested walks path through nested maps and returns the value found, or
// def when any step is missing or not a map.
func GetNested(m map[string]any, def any, path ...string) any {
	cur := any(m)
	for _, key := range path {
		mm, ok := cur.(map[string]any)
		if !ok {
			return def
		}
		cur, ok = mm[key]
		if !ok {
			return def
		}
	}
	if cur == nil {
		return def
	}
	return cur
}

// GetString returns the string at path, or def.
func GetString(m map[string]any, def string, path ...string) string {
	v := GetNested(m, def, path...)
	if s, ok := v.(string); ok {
		return s
	}
	return def
}

// GetMap returns the map at path, or nil.
func GetMap(m map[string]any, path ...string) map[string]any {
	v := GetNested(m, nil, path...)
	if mm, ok := v.(map[string]any); ok {
		return mm
	}
	return nil
}

// GetSlice returns the slice at path, or nil.
func GetSlice(m map[string]any, path ...string) []any {
	v := GetNested(m, nil, path...)
	if s, ok := v.([]any); ok {
		return s
	}
	return nil
}

// GetFloat returns the number at path, accepting numeric strings, or def.
func GetFloat(m map[string]any, def float64, path ...string) float64 {
	if f, ok := AsFloat(GetNested(m, nil, path...)); ok {
		return f
	}
	return def
}

// GetInt returns the integer at path, accepting numeric strings, or def.
func GetInt(m map[string]any, def int, path ...string) int {
	if f, ok := AsFloat(GetNested(m, nil, path...)); ok {
		return int(f)
	}
	return def
}

// GetBool returns the flag at path, accepting "1"/"true"/1, or def.
func GetBool(m map[string]any, def bool, path ...string) bool {
	if b, ok := AsBool(GetNested(m, nil, path...)); ok {
		return b
	}
	return def
}

// AsFloat coerces wire values to float64. Endpoints report numbers
// inconsistently as JSON numbers or as decimal strings.
func AsFloat(v any) (float64, bool) {
	switch t := v.(type) {
	case float64:
		return t, true
	case float32:
		return float64(t), true
	case int:
		return float64(t), true
	case int64:
		return float64(t), true
	case string:
		s := strings.TrimSpace(t)
		if s == "" || s == "--" {
			return 0, false
		}
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// AsInt coerces wire values to int.
func AsInt(v any) (int, bool) {
	f, ok := AsFloat(v)
	if !ok {
		return 0, false
	}
	return int(f), true
}

// AsBool coerces wire presence flags to bool. Accepts real booleans, the
// strings "1"/"0"/"true"/"false" and numeric 0/1.
func AsBool(v any) (bool, bool) {
	switch t := v.(type) {
	case bool:
		return t, true
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "1", "true", "yes":
			return true, true
		case "0", "false", "no", "":
			return false, true
		}
		return false, false
	case float64:
		return t != 0, true
	case int:
		return t != 0, true
	}
	return false, false
}

// AsString coerces scalars to their string form.
func AsString(v any) (string, bool) {
	switch t := v.(type) {
	case string:
		return t, true
	case float64:
		if t == float64(int64(t)) {
			return strconv.FormatInt(int64(t), 10), true
		}
		return strconv.FormatFloat(t, 'f', -1, 64), true
	case int:
		return strconv.Itoa(t), true
	case bool:
		return strconv.FormatBool(t), true
	}
	return "", false
}

// IsEmptyValue reports whether a wire value counts as "absent" for merge
// rules that only overwrite with non-empty data.
func IsEmptyValue(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(t) == ""
	case map[string]any:
		return len(t) == 0
	case []any:
		return len(t) == 0
	}
	return false
}
