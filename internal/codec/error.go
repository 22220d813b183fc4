package codec

import "fmt"

// DecodeErrorKind enumerates the ways malformed wire or text input can be
// rejected. Decoding never silently defaults a value.
type DecodeErrorKind uint8

const (
	// DecodeUnknownTag: a group tag value matches no variant.
	DecodeUnknownTag DecodeErrorKind = iota + 1
	// DecodeInvalidLength: input length differs from the fixed width.
	DecodeInvalidLength
	// DecodeUnknownSymbol: a value matches no declared enum symbol.
	DecodeUnknownSymbol
	// DecodeMissingField: a required key is absent from a text object.
	DecodeMissingField
	// DecodeBadValue: a field is present but has the wrong shape.
	DecodeBadValue
)

func (k DecodeErrorKind) String() string {
	switch k {
	case DecodeUnknownTag:
		return "unknown tag"
	case DecodeInvalidLength:
		return "invalid length"
	case DecodeUnknownSymbol:
		return "unknown symbol"
	case DecodeMissingField:
		return "missing field"
	case DecodeBadValue:
		return "bad value"
	}
	return "unknown"
}

// DecodeError is returned to callers of Decode/Unmarshal; it is the
// runtime error contract of the generated codecs as well.
type DecodeError struct {
	Kind   DecodeErrorKind
	Type   string // entity being decoded
	Field  string // member or symbol, when applicable
	Detail string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("decode %s: %s", e.Type, e.Kind)
	if e.Field != "" {
		s += fmt.Sprintf(" (field `%s`)", e.Field)
	}
	if e.Detail != "" {
		s += ": " + e.Detail
	}
	return s
}

func decodeErrf(kind DecodeErrorKind, typeName, field, format string, args ...any) *DecodeError {
	return &DecodeError{
		Kind:   kind,
		Type:   typeName,
		Field:  field,
		Detail: fmt.Sprintf(format, args...),
	}
}

// EncodeError reports a value that cannot be serialized against the
// schema (unknown type, missing member, out-of-range value).
type EncodeError struct {
	Type   string
	Field  string
	Detail string
}

func (e *EncodeError) Error() string {
	if e == nil {
		return "<nil>"
	}
	s := fmt.Sprintf("encode %s", e.Type)
	if e.Field != "" {
		s += fmt.Sprintf(" (field `%s`)", e.Field)
	}
	return s + ": " + e.Detail
}

func encodeErrf(typeName, field, format string, args ...any) *EncodeError {
	return &EncodeError{Type: typeName, Field: field, Detail: fmt.Sprintf(format, args...)}
}
