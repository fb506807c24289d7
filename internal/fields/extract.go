package fields

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"asana2sql/cli/internal/asana"
)

// String extracts the value at path as text. Non-string scalars are formatted.
func String(path string) Extractor {
	return func(t asana.Task) any {
		v, ok := t.Lookup(path)
		if !ok {
			return nil
		}
		switch v := v.(type) {
		case string:
			return v
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		case bool:
			return strconv.FormatBool(v)
		case map[string]any, []any:
			return nil
		default:
			return fmt.Sprint(v)
		}
	}
}

// Bool extracts a boolean.
func Bool(path string) Extractor {
	return func(t asana.Task) any {
		v, ok := t.Lookup(path)
		if !ok {
			return nil
		}
		b, ok := v.(bool)
		if !ok {
			return nil
		}
		return b
	}
}

// Int extracts an integral number as int64. Fractional numbers are absent.
func Int(path string) Extractor {
	return func(t asana.Task) any {
		v, ok := t.Lookup(path)
		if !ok {
			return nil
		}
		switch n := v.(type) {
		case float64:
			if n != math.Trunc(n) {
				return nil
			}
			return int64(n)
		case int:
			return int64(n)
		case int64:
			return n
		}
		return nil
	}
}

// Float extracts a number as float64.
func Float(path string) Extractor {
	return func(t asana.Task) any {
		v, ok := t.Lookup(path)
		if !ok {
			return nil
		}
		f, ok := v.(float64)
		if !ok {
			return nil
		}
		return f
	}
}

// Timestamp parses an RFC 3339 timestamp into UTC. Unparseable values are absent.
func Timestamp(path string) Extractor {
	return func(t asana.Task) any {
		s, ok := lookupString(t, path)
		if !ok {
			return nil
		}
		ts, err := time.Parse(time.RFC3339Nano, s)
		if err != nil {
			return nil
		}
		return ts.UTC()
	}
}

// Date parses a YYYY-MM-DD date.
func Date(path string) Extractor {
	return func(t asana.Task) any {
		s, ok := lookupString(t, path)
		if !ok {
			return nil
		}
		d, err := time.Parse(time.DateOnly, s)
		if err != nil {
			return nil
		}
		return d
	}
}

// Join collects key from every object of the array at path and joins the
// values with ", ". An empty array yields "".
func Join(path, key string) Extractor {
	return func(t asana.Task) any {
		v, ok := t.Lookup(path)
		if !ok {
			return nil
		}
		items, ok := v.([]any)
		if !ok {
			return nil
		}
		parts := make([]string, 0, len(items))
		for _, item := range items {
			m, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if s, ok := m[key].(string); ok && s != "" {
				parts = append(parts, s)
			}
		}
		return strings.Join(parts, ", ")
	}
}

func lookupString(t asana.Task, path string) (string, bool) {
	v, ok := t.Lookup(path)
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}
