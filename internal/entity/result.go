package entity

import (
	"encoding/json"
	"fmt"
)

// Result is one measurement inside a test entry. Data carries the decoded
// resultData document: either a {value, error?, unit?} mapping, a bare
// scalar, or nil.
type Result struct {
	ResultName     string   `json:"result_name"`
	Location       *string  `json:"location,omitempty"`
	ResultTags     []string `json:"result_tags,omitempty"`
	Data           any      `json:"result_data,omitempty"`
	DatasheetReady *bool    `json:"datasheet_ready,omitempty"`
}

// LocationName returns the location or "" when the result carries none.
func (r *Result) LocationName() string {
	if r.Location == nil {
		return ""
	}
	return *r.Location
}

// HasTag reports whether the result carries the given tag.
func (r *Result) HasTag(tag string) bool {
	for _, t := range r.ResultTags {
		if t == tag {
			return true
		}
	}
	return false
}

// IsDatasheetReady reports the datasheetReady flag; an absent flag counts
// as not ready.
func (r *Result) IsDatasheetReady() bool {
	return r.DatasheetReady != nil && *r.DatasheetReady
}

// Value unwraps the resultData shape. For a {value, error?, unit?} mapping
// it exposes the scalar under "value"; any other non-nil shape passes
// through unchanged. ok is false when the data is nil (a null resultData
// never yields a row).
func (r *Result) Value() (v any, ok bool) {
	if r.Data == nil {
		return nil, false
	}
	if m, isMap := r.Data.(map[string]any); isMap {
		if inner, has := m["value"]; has {
			if inner == nil {
				return nil, false
			}
			return inner, true
		}
		return m, true
	}
	return r.Data, true
}

// ErrorValue returns the measurement error when resultData carries one.
func (r *Result) ErrorValue() *float64 {
	if m, isMap := r.Data.(map[string]any); isMap {
		if e, has := m["error"]; has {
			if f, ok := AsFloat(e); ok {
				return &f
			}
		}
	}
	return nil
}

// Unit returns the measurement unit or "".
func (r *Result) Unit() string {
	if m, isMap := r.Data.(map[string]any); isMap {
		if u, has := m["unit"]; has {
			if s, ok := u.(string); ok {
				return s
			}
		}
	}
	return ""
}

// AsFloat coerces a decoded JSON scalar into a float64. Strings are not
// coerced; a string-valued measurement is categorical, not numeric.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

// FormatScalar renders a non-numeric scalar for report cells.
func FormatScalar(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprintf("%v", v)
}
