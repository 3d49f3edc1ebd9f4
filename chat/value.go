package chat

import "strconv"

// Action is one raw transcript record. Transcripts mix several schemas, so
// records stay generic and are read through the accessors below.
type Action = map[string]any

func asMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// mapAt returns m[key] when it is an object.
func mapAt(m map[string]any, key string) (map[string]any, bool) {
	if m == nil {
		return nil, false
	}
	return asMap(m[key])
}

// listAt returns m[key] when it is a list.
func listAt(m map[string]any, key string) ([]any, bool) {
	if m == nil {
		return nil, false
	}
	l, ok := m[key].([]any)
	return l, ok
}

// stringAt returns m[key] when it is a string, else "".
func stringAt(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}

// int64At reads an integer field that may be encoded as a JSON number or a
// numeric string (timestampUsec and videoOffsetTimeMsec appear both ways).
func int64At(m map[string]any, key string) (int64, bool) {
	if m == nil {
		return 0, false
	}
	switch v := m[key].(type) {
	case float64:
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n, true
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return int64(f), true
		}
	}
	return 0, false
}
