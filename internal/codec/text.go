package codec

import (
	"bytes"
	"encoding/json"
	"strconv"

	"structwriter/internal/schema"
)

// MarshalStateJSON serializes a state record (a bit_field, or a structure
// of scalar members) as a JSON object. Keys follow declaration order,
// which is part of the compatibility contract. Booleans are JSON
// booleans and enum members are their symbol labels, never numeric tags.
//
// The JSON view is independent of the packed bit layout: both are
// supported representations of the same record.
func (c *Codec) MarshalStateJSON(typeName string, value any) ([]byte, error) {
	def, ok := c.defs.Lookup(typeName)
	if !ok {
		return nil, encodeErrf(typeName, "", "unknown type")
	}
	m, ok := coerceMap(value)
	if !ok {
		return nil, encodeErrf(typeName, "", "state value must be a map")
	}

	fields, err := c.stateFields(def)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range fields {
		v, present := m[f.name]
		if !present {
			return nil, encodeErrf(def.Name, f.name, "member is missing from value")
		}
		if i > 0 {
			buf.WriteByte(',')
		}
		key, _ := json.Marshal(f.name)
		buf.Write(key)
		buf.WriteByte(':')
		if err := c.marshalStateField(&buf, def, f, v); err != nil {
			return nil, err
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalStateJSON is the inverse mapping. A missing required key is a
// DecodeError of kind MissingField; a text value matching no declared
// enum symbol is UnknownSymbol.
func (c *Codec) UnmarshalStateJSON(typeName string, data []byte) (any, error) {
	def, ok := c.defs.Lookup(typeName)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, typeName, "", "unknown type")
	}
	fields, err := c.stateFields(def)
	if err != nil {
		return nil, err
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, decodeErrf(DecodeBadValue, typeName, "", "malformed JSON: %v", err)
	}

	out := make(map[string]any, len(fields))
	for _, f := range fields {
		v, present := raw[f.name]
		if !present {
			return nil, decodeErrf(DecodeMissingField, def.Name, f.name, "required key is absent")
		}
		decoded, err := c.unmarshalStateField(def, f, v)
		if err != nil {
			return nil, err
		}
		out[f.name] = decoded
	}
	return out, nil
}

type stateField struct {
	name     string
	typeName string
}

// stateFields lists the serializable members of a record in declaration
// order. Reserved bit spans never appear in the text form.
func (c *Codec) stateFields(def *schema.Definition) ([]stateField, error) {
	switch def.Kind {
	case schema.KindBitField:
		fields := make([]stateField, 0, len(def.Bits))
		for _, m := range def.Bits {
			fields = append(fields, stateField{name: m.Name, typeName: m.Type})
		}
		return fields, nil
	case schema.KindStructure:
		fields := make([]stateField, 0, len(def.Members))
		for _, m := range def.Members {
			fields = append(fields, stateField{name: m.Name, typeName: m.Type})
		}
		return fields, nil
	}
	return nil, encodeErrf(def.Name, "", "%s `%s` has no text representation", def.Kind, def.Name)
}

func (c *Codec) marshalStateField(buf *bytes.Buffer, def *schema.Definition, f stateField, value any) error {
	switch f.typeName {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return encodeErrf(def.Name, f.name, "expected a boolean")
		}
		buf.WriteString(strconv.FormatBool(b))
		return nil
	case "uint", "int":
		n, ok := coerceInt(value)
		if !ok {
			return encodeErrf(def.Name, f.name, "expected an integer")
		}
		buf.WriteString(strconv.FormatInt(n, 10))
		return nil
	case "str":
		s, ok := value.(string)
		if !ok {
			return encodeErrf(def.Name, f.name, "expected a string")
		}
		escaped, _ := json.Marshal(s)
		buf.Write(escaped)
		return nil
	}
	target, ok := c.defs.Lookup(f.typeName)
	if !ok || target.Kind != schema.KindEnum {
		return encodeErrf(def.Name, f.name, "type `%s` has no text representation", f.typeName)
	}
	label, ok := value.(string)
	if !ok {
		return encodeErrf(def.Name, f.name, "expected a symbol label of enum `%s`", f.typeName)
	}
	if _, known := enumValueOf(target, label); !known {
		return encodeErrf(def.Name, f.name, "`%s` is not a symbol of enum `%s`", label, f.typeName)
	}
	escaped, _ := json.Marshal(label)
	buf.Write(escaped)
	return nil
}

func (c *Codec) unmarshalStateField(def *schema.Definition, f stateField, value any) (any, error) {
	switch f.typeName {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return nil, decodeErrf(DecodeBadValue, def.Name, f.name, "expected a JSON boolean")
		}
		return b, nil
	case "uint", "int":
		n, ok := coerceInt(value)
		if !ok {
			return nil, decodeErrf(DecodeBadValue, def.Name, f.name, "expected a JSON number")
		}
		return n, nil
	case "str":
		s, ok := value.(string)
		if !ok {
			return nil, decodeErrf(DecodeBadValue, def.Name, f.name, "expected a JSON string")
		}
		return s, nil
	}
	target, ok := c.defs.Lookup(f.typeName)
	if !ok || target.Kind != schema.KindEnum {
		return nil, decodeErrf(DecodeBadValue, def.Name, f.name, "type `%s` has no text representation", f.typeName)
	}
	label, ok := value.(string)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, f.name, "expected a JSON string")
	}
	if _, known := enumValueOf(target, label); !known {
		return nil, decodeErrf(DecodeUnknownSymbol, def.Name, f.name,
			"`%s` matches no symbol of enum `%s`", label, f.typeName)
	}
	return label, nil
}
