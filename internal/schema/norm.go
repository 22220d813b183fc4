package schema

import (
	"github.com/goccy/go-yaml"
)

// normalize converts decoder-specific container types into plain
// map[string]any / []any trees so the builder sees one shape regardless
// of the document format.
func normalize(v any) any {
	switch t := v.(type) {
	case yaml.MapSlice:
		m := make(map[string]any, len(t))
		for _, item := range t {
			if key, ok := item.Key.(string); ok {
				m[key] = normalize(item.Value)
			}
		}
		return m
	case map[string]any:
		for k, val := range t {
			t[k] = normalize(val)
		}
		return t
	case map[any]any:
		m := make(map[string]any, len(t))
		for k, val := range t {
			if key, ok := k.(string); ok {
				m[key] = normalize(val)
			}
		}
		return m
	case []any:
		for i, val := range t {
			t[i] = normalize(val)
		}
		return t
	default:
		return v
	}
}

func asMap(v any) (map[string]any, bool) {
	m, ok := normalize(v).(map[string]any)
	return m, ok
}

func asSlice(v any) ([]any, bool) {
	s, ok := normalize(v).([]any)
	return s, ok
}

func asString(v any) (string, bool) {
	s, ok := v.(string)
	return s, ok
}

func asBool(v any) (bool, bool) {
	b, ok := v.(bool)
	return b, ok
}

// asInt accepts the integer representations the three decoders produce.
func asInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		return int64(t), true
	case float64:
		n := int64(t)
		if float64(n) != t {
			return 0, false
		}
		return n, true
	}
	return 0, false
}
