// Package source decodes the line-delimited JSON inputs of the catalog.
package source

import (
	"math"

	"github.com/goccy/go-json"
)

// Record is one decoded JSON object. Accessors treat a value of the wrong
// JSON type the same as a missing value.
type Record map[string]any

// String returns the value of key if it is a JSON string.
func (r Record) String(key string) (string, bool) {
	s, ok := r[key].(string)
	return s, ok
}

// NonEmpty returns the value of key if it is a non-empty JSON string.
func (r Record) NonEmpty(key string) (string, bool) {
	s, ok := r.String(key)
	if !ok || s == "" {
		return "", false
	}
	return s, true
}

// Optional returns a pointer to the value of key, or nil when the value is
// missing, not a string, or empty.
func (r Record) Optional(key string) *string {
	s, ok := r.NonEmpty(key)
	if !ok {
		return nil
	}
	return &s
}

// Int returns the value of key if it is a JSON number with an integral value.
func (r Record) Int(key string) (int64, bool) {
	switch v := r[key].(type) {
	case json.Number:
		if n, err := v.Int64(); err == nil {
			return n, true
		}
		f, err := v.Float64()
		if err != nil {
			return 0, false
		}
		return integral(f)
	case float64:
		return integral(v)
	default:
		return 0, false
	}
}

// Records returns the JSON objects stored in the array under key. Elements
// that are not objects are skipped.
func (r Record) Records(key string) []Record {
	items, ok := r[key].([]any)
	if !ok {
		return nil
	}
	out := make([]Record, 0, len(items))
	for _, item := range items {
		if obj, ok := item.(map[string]any); ok {
			out = append(out, Record(obj))
		}
	}
	return out
}

func integral(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f > math.MaxInt64 || f < math.MinInt64 {
		return 0, false
	}
	return int64(f), true
}
