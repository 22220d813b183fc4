package codec

import (
	"bytes"

	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

// Encode serializes a value of the named type into its fixed-width byte
// form: big-endian multi-byte fields, members in declaration order, zero
// fill up to the fixed width.
//
// Value shapes mirror the definition documents: structures and bit fields
// are maps keyed by member name, enums are symbol labels, and a group
// value is a single-key map naming the payload structure.
func (c *Codec) Encode(typeName string, value any) ([]byte, error) {
	def, ok := c.defs.Lookup(typeName)
	if !ok {
		return nil, encodeErrf(typeName, "", "unknown type")
	}
	switch def.Kind {
	case schema.KindGroup:
		return c.encodeGroup(def, value)
	case schema.KindStructure:
		sl, ok := c.plan.Struct(def.Name)
		if !ok {
			return nil, encodeErrf(typeName, "", "no layout computed")
		}
		buf := make([]byte, sl.Size)
		if err := c.encodeStructInto(def, value, buf); err != nil {
			return nil, err
		}
		return buf, nil
	case schema.KindEnum:
		buf := make([]byte, def.Size)
		if err := c.encodeEnumInto(def, value, buf); err != nil {
			return nil, err
		}
		return buf, nil
	case schema.KindBitField:
		return c.encodeBitfield(def, value)
	}
	return nil, encodeErrf(typeName, "", "type kind %s cannot be encoded", def.Kind)
}

// Decode reconstructs a value of the named type from its fixed-width byte
// form. Any length mismatch, unknown tag or unknown enum value is
// reported as a *DecodeError; nothing is defaulted.
func (c *Codec) Decode(typeName string, data []byte) (any, error) {
	def, ok := c.defs.Lookup(typeName)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, typeName, "", "unknown type")
	}
	switch def.Kind {
	case schema.KindGroup:
		return c.decodeGroup(def, data)
	case schema.KindStructure:
		sl, ok := c.plan.Struct(def.Name)
		if !ok {
			return nil, decodeErrf(DecodeBadValue, typeName, "", "no layout computed")
		}
		if len(data) != sl.Size {
			return nil, decodeErrf(DecodeInvalidLength, typeName, "",
				"expected %d bytes, got %d", sl.Size, len(data))
		}
		return c.decodeStruct(def, data)
	case schema.KindEnum:
		if len(data) != def.Size {
			return nil, decodeErrf(DecodeInvalidLength, typeName, "",
				"expected %d bytes, got %d", def.Size, len(data))
		}
		return c.decodeEnum(def, data)
	case schema.KindBitField:
		if len(data) != def.Size {
			return nil, decodeErrf(DecodeInvalidLength, typeName, "",
				"expected %d bytes, got %d", def.Size, len(data))
		}
		return c.decodeBitfield(def, data)
	}
	return nil, decodeErrf(DecodeBadValue, typeName, "", "type kind %s cannot be decoded", def.Kind)
}

func (c *Codec) encodeGroup(def *schema.Definition, value any) ([]byte, error) {
	sl, ok := c.plan.Slice(def.Name)
	if !ok {
		return nil, encodeErrf(def.Name, "", "no slice layout computed")
	}
	m, ok := coerceMap(value)
	if !ok || len(m) != 1 {
		return nil, encodeErrf(def.Name, "", "group value must be a single-key map naming the payload structure")
	}
	var payloadName string
	var payloadValue any
	for k, v := range m {
		payloadName, payloadValue = k, v
	}
	variant, ok := variantByType(sl, payloadName)
	if !ok {
		return nil, encodeErrf(def.Name, payloadName, "`%s` is not a member of group `%s`", payloadName, def.Name)
	}

	buf := make([]byte, sl.TotalSize)
	putUint(buf[:sl.TagSize], uint64(variant.Tag))

	payloadDef, ok := c.defs.Lookup(variant.Type)
	if !ok {
		return nil, encodeErrf(def.Name, payloadName, "payload type `%s` is undefined", variant.Type)
	}
	if err := c.encodeStructInto(payloadDef, payloadValue, buf[sl.TagSize:sl.TagSize+variant.PayloadSize]); err != nil {
		return nil, err
	}
	return buf, nil
}

func (c *Codec) decodeGroup(def *schema.Definition, data []byte) (any, error) {
	sl, ok := c.plan.Slice(def.Name)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, "", "no slice layout computed")
	}
	if len(data) != sl.TotalSize {
		return nil, decodeErrf(DecodeInvalidLength, def.Name, "",
			"expected %d bytes, got %d", sl.TotalSize, len(data))
	}
	tag := getUint(data[:sl.TagSize])
	variant, ok := sl.VariantByTag(int(tag))
	if !ok {
		return nil, decodeErrf(DecodeUnknownTag, def.Name, "",
			"tag %d matches no variant of `%s`", tag, def.Name)
	}
	payloadDef, ok := c.defs.Lookup(variant.Type)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, "", "payload type `%s` is undefined", variant.Type)
	}
	payload, err := c.decodeStruct(payloadDef, data[sl.TagSize:sl.TagSize+variant.PayloadSize])
	if err != nil {
		return nil, err
	}
	return map[string]any{variant.Type: payload}, nil
}

func (c *Codec) encodeStructInto(def *schema.Definition, value any, buf []byte) error {
	sl, ok := c.plan.Struct(def.Name)
	if !ok {
		return encodeErrf(def.Name, "", "no layout computed")
	}
	m, ok := coerceMap(value)
	if !ok {
		if len(sl.Spans) == 0 && value == nil {
			return nil
		}
		return encodeErrf(def.Name, "", "structure value must be a map")
	}
	for _, span := range sl.Spans {
		v, present := m[span.Name]
		if !present {
			return encodeErrf(def.Name, span.Name, "member is missing from value")
		}
		if err := c.encodeMember(def, span.Name, span.Type, v, buf[span.Start:span.End]); err != nil {
			return err
		}
	}
	return nil
}

func (c *Codec) encodeMember(def *schema.Definition, memberName, typeName string, value any, buf []byte) error {
	if schema.IsPrimitive(typeName) {
		return encodePrimitive(def.Name, memberName, typeName, value, buf)
	}
	target, ok := c.defs.Lookup(typeName)
	if !ok {
		return encodeErrf(def.Name, memberName, "type `%s` is undefined", typeName)
	}
	switch target.Kind {
	case schema.KindEnum:
		return c.encodeEnumInto(target, value, buf)
	case schema.KindStructure:
		return c.encodeStructInto(target, value, buf)
	case schema.KindBitField:
		packed, err := c.encodeBitfield(target, value)
		if err != nil {
			return err
		}
		copy(buf, packed)
		return nil
	case schema.KindGroup:
		nested, err := c.encodeGroup(target, value)
		if err != nil {
			return err
		}
		copy(buf, nested)
		return nil
	}
	return encodeErrf(def.Name, memberName, "type `%s` cannot be a member", typeName)
}

func (c *Codec) decodeStruct(def *schema.Definition, data []byte) (map[string]any, error) {
	sl, ok := c.plan.Struct(def.Name)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, "", "no layout computed")
	}
	out := make(map[string]any, len(sl.Spans))
	for _, span := range sl.Spans {
		v, err := c.decodeMember(def, span.Name, span.Type, data[span.Start:span.End])
		if err != nil {
			return nil, err
		}
		out[span.Name] = v
	}
	return out, nil
}

func (c *Codec) decodeMember(def *schema.Definition, memberName, typeName string, data []byte) (any, error) {
	if schema.IsPrimitive(typeName) {
		return decodePrimitive(def.Name, memberName, typeName, data)
	}
	target, ok := c.defs.Lookup(typeName)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, memberName, "type `%s` is undefined", typeName)
	}
	switch target.Kind {
	case schema.KindEnum:
		return c.decodeEnum(target, data)
	case schema.KindStructure:
		return c.decodeStruct(target, data)
	case schema.KindBitField:
		return c.decodeBitfield(target, data)
	case schema.KindGroup:
		return c.decodeGroup(target, data)
	}
	return nil, decodeErrf(DecodeBadValue, def.Name, memberName, "type `%s` cannot be a member", typeName)
}

func (c *Codec) encodeEnumInto(def *schema.Definition, value any, buf []byte) error {
	label, ok := value.(string)
	if !ok {
		return encodeErrf(def.Name, "", "enum value must be a symbol label string")
	}
	n, ok := enumValueOf(def, label)
	if !ok {
		return encodeErrf(def.Name, label, "`%s` is not a symbol of enum `%s`", label, def.Name)
	}
	putUint(buf, uint64(n)&widthMask(len(buf)*8))
	return nil
}

func (c *Codec) decodeEnum(def *schema.Definition, data []byte) (string, error) {
	raw := getUint(data)
	n := int64(raw)
	if def.Signed {
		n = signExtend(raw, len(data)*8)
	}
	label, ok := enumLabelOf(def, n)
	if !ok {
		return "", decodeErrf(DecodeUnknownSymbol, def.Name, "",
			"value %d matches no symbol of enum `%s`", n, def.Name)
	}
	return label, nil
}

func variantByType(sl *layout.SliceLayout, typeName string) (layout.Variant, bool) {
	for _, v := range sl.Variants {
		if v.Type == typeName {
			return v, true
		}
	}
	return layout.Variant{}, false
}

// putUint writes v big-endian across the whole buffer.
func putUint(buf []byte, v uint64) {
	for i := len(buf) - 1; i >= 0; i-- {
		buf[i] = byte(v)
		v >>= 8
	}
}

// getUint reads a big-endian unsigned value spanning the whole buffer.
func getUint(buf []byte) uint64 {
	var v uint64
	for _, b := range buf {
		v = v<<8 | uint64(b)
	}
	return v
}

func signExtend(v uint64, bits int) int64 {
	if bits <= 0 || bits >= 64 {
		return int64(v)
	}
	shift := 64 - bits
	return int64(v<<shift) >> shift
}

func widthMask(bits int) uint64 {
	if bits >= 64 {
		return ^uint64(0)
	}
	return 1<<bits - 1
}

func encodePrimitive(entity, member, typeName string, value any, buf []byte) error {
	size := len(buf)
	switch typeName {
	case "int":
		n, ok := coerceInt(value)
		if !ok {
			return encodeErrf(entity, member, "expected an integer")
		}
		if size < 8 {
			limit := int64(1) << (size*8 - 1)
			if n < -limit || n >= limit {
				return encodeErrf(entity, member, "%d does not fit in %d signed byte(s)", n, size)
			}
		}
		putUint(buf, uint64(n)&widthMask(size*8))
	case "uint":
		n, ok := coerceInt(value)
		if !ok || n < 0 {
			return encodeErrf(entity, member, "expected a non-negative integer")
		}
		if size < 8 && uint64(n) >= 1<<(size*8) {
			return encodeErrf(entity, member, "%d does not fit in %d byte(s)", n, size)
		}
		putUint(buf, uint64(n))
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return encodeErrf(entity, member, "expected a boolean")
		}
		if b {
			putUint(buf, 1)
		}
	case "bytes":
		raw, ok := value.([]byte)
		if !ok {
			return encodeErrf(entity, member, "expected %d raw bytes", size)
		}
		if len(raw) != size {
			return encodeErrf(entity, member, "expected %d bytes, got %d", size, len(raw))
		}
		copy(buf, raw)
	case "str":
		s, ok := value.(string)
		if !ok {
			return encodeErrf(entity, member, "expected a string")
		}
		// Over-long strings are truncated to the field width; the
		// remainder is zero filled.
		copy(buf, s)
	default:
		return encodeErrf(entity, member, "unhandled primitive `%s`", typeName)
	}
	return nil
}

func decodePrimitive(entity, member, typeName string, data []byte) (any, error) {
	switch typeName {
	case "int":
		return signExtend(getUint(data), len(data)*8), nil
	case "uint":
		return int64(getUint(data)), nil
	case "bool":
		return getUint(data) != 0, nil
	case "bytes":
		out := make([]byte, len(data))
		copy(out, data)
		return out, nil
	case "str":
		return string(bytes.TrimRight(data, "\x00")), nil
	}
	return nil, decodeErrf(DecodeBadValue, entity, member, "unhandled primitive `%s`", typeName)
}
