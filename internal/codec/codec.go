// Package codec interprets the schema and layout plan directly: it
// encodes and decodes values against the same fixed-width binary and
// ordered-JSON contracts the generated code implements. The CLI encode
// and decode commands and the contract tests are built on it.
package codec

import (
	"fortio.org/safecast"

	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

// Codec is a schema-interpreted implementation of the generated-code
// contracts. It is read-only and safe for concurrent use.
type Codec struct {
	defs *schema.Set
	plan *layout.Plan
}

// New creates a codec over a validated schema and computed plan.
func New(defs *schema.Set, plan *layout.Plan) *Codec {
	return &Codec{defs: defs, plan: plan}
}

// coerceInt accepts the integer shapes markup decoders and callers hand
// us: Go ints, the three decoder widths, and whole floats.
func coerceInt(v any) (int64, bool) {
	switch t := v.(type) {
	case int:
		return int64(t), true
	case int8:
		return int64(t), true
	case int16:
		return int64(t), true
	case int32:
		return int64(t), true
	case int64:
		return t, true
	case uint64:
		n, err := safecast.Conv[int64](t)
		if err != nil {
			return 0, false
		}
		return n, true
	case float64:
		n := int64(t)
		if float64(n) != t {
			return 0, false
		}
		return n, true
	}
	return 0, false
}

func coerceMap(v any) (map[string]any, bool) {
	m, ok := v.(map[string]any)
	return m, ok
}

// enumValueOf resolves an enum symbol label to its numeric value.
func enumValueOf(def *schema.Definition, label string) (int64, bool) {
	for _, v := range def.Values {
		if v.Label == label {
			return v.Value, true
		}
	}
	return 0, false
}

// enumLabelOf resolves a numeric value back to its symbol label.
func enumLabelOf(def *schema.Definition, value int64) (string, bool) {
	for _, v := range def.Values {
		if v.Value == value {
			return v.Label, true
		}
	}
	return "", false
}
