// Package normalize converts loosely-typed upstream payloads into the
// explorer's canonical records. Nothing in here fails on missing or
// malformed optional fields; absent values become zero, empty or nil.
package normalize

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Field returns the value of the first key present in m with a non-nil value.
func Field(m map[string]any, keys ...string) (any, bool) {
	if m == nil {
		return nil, false
	}
	for _, k := range keys {
		if v, ok := m[k]; ok && v != nil {
			return v, true
		}
	}
	return nil, false
}

// Object returns v as a JSON object, or nil.
func Object(v any) map[string]any {
	m, _ := v.(map[string]any)
	return m
}

// List returns v as a JSON array, or nil.
func List(v any) []any {
	l, _ := v.([]any)
	return l
}

// String renders a scalar as a string; objects, arrays and nil give "".
func String(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case json.Number:
		return x.String()
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	default:
		return ""
	}
}

// Number converts a JSON scalar to a finite float64. Anything else,
// including NaN and infinities, gives 0.
func Number(v any) float64 {
	f, ok := parseNumber(v)
	if !ok {
		return 0
	}
	return f
}

// OptNumber is Number that reports absence as nil instead of 0.
func OptNumber(v any) *float64 {
	f, ok := parseNumber(v)
	if !ok {
		return nil
	}
	return &f
}

// OptInt converts a JSON scalar to an int64 pointer, nil when not numeric.
func OptInt(v any) *int64 {
	f, ok := parseNumber(v)
	if !ok {
		return nil
	}
	n := int64(f)
	return &n
}

func parseNumber(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int64:
		f = float64(x)
	case json.Number:
		p, err := strconv.ParseFloat(x.String(), 64)
		if err != nil {
			return 0, false
		}
		f = p
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		p, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = p
	default:
		return 0, false
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// MaxDecimals bounds the decimals accepted from upstream payloads.
const MaxDecimals = 255

// clampDecimals bounds d to [0, MaxDecimals].
func clampDecimals(d int) int {
	if d < 0 {
		return 0
	}
	if d > MaxDecimals {
		return MaxDecimals
	}
	return d
}

// Scale divides a raw integer quantity by 10^decimals. String and json.Number
// inputs are shifted exactly before conversion so large supplies keep their
// leading digits. Non-numeric or non-finite inputs give 0. Decimals outside
// [0, MaxDecimals] are clamped.
func Scale(v any, decimals int) float64 {
	decimals = clampDecimals(decimals)
	var s string
	switch x := v.(type) {
	case string:
		s = strings.TrimSpace(x)
	case json.Number:
		s = x.String()
	default:
		f, ok := parseNumber(v)
		if !ok {
			return 0
		}
		if decimals == 0 {
			return f
		}
		return finite(f / math.Pow10(decimals))
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0
	}
	f, _ := d.Shift(int32(-decimals)).Float64()
	return finite(f)
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
