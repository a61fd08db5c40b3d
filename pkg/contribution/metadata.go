package contribution

import (
	"encoding/json"
	"fmt"
	"math"
)

// Well-known metadata keys.
const (
	MetaTitle      = "title"
	MetaAuthor     = "author"
	MetaRepository = "repository"
)

// Metadata is display data attached to an event. Values are restricted to
// string, number and bool; readers ignore keys they do not know.
type Metadata map[string]any

// Set stores v under key. Only primitive values are accepted.
func (m Metadata) Set(key string, v any) error {
	switch val := v.(type) {
	case string, bool, float64:
		m[key] = val
	case int:
		m[key] = float64(val)
	case int64:
		m[key] = float64(val)
	case float32:
		m[key] = float64(val)
	default:
		return fmt.Errorf("%w: metadata %q has unsupported type %T", ErrInvalidInput, key, v)
	}
	return nil
}

// GetString returns the string value under key.
func (m Metadata) GetString(key string) (string, bool) {
	s, ok := m[key].(string)
	return s, ok
}

// GetNumber returns the numeric value under key.
func (m Metadata) GetNumber(key string) (float64, bool) {
	n, ok := m[key].(float64)
	return n, ok
}

// UnmarshalJSON keeps primitive values and silently drops nested objects,
// arrays, nulls and non-finite numbers.
func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	out := make(Metadata, len(raw))
	for k, v := range raw {
		switch val := v.(type) {
		case string, bool:
			out[k] = val
		case float64:
			if !math.IsInf(val, 0) && !math.IsNaN(val) {
				out[k] = val
			}
		}
	}
	*m = out
	return nil
}
