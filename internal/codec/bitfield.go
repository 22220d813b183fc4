package codec

import (
	"structwriter/internal/schema"
)

// Bit fields pack LSB-first: a span starting at bit N occupies bit N%8 of
// byte N/8. Multi-byte fields are therefore little-endian, so a span
// never straddles bytes in a surprising order.

func (c *Codec) encodeBitfield(def *schema.Definition, value any) ([]byte, error) {
	bl, ok := c.plan.Bitfield(def.Name)
	if !ok {
		return nil, encodeErrf(def.Name, "", "no bitfield layout computed")
	}
	if bl.Size > 8 {
		return nil, encodeErrf(def.Name, "", "bit fields wider than 8 bytes are not supported")
	}
	m, ok := coerceMap(value)
	if !ok {
		return nil, encodeErrf(def.Name, "", "bit_field value must be a map")
	}

	var accum uint64
	for _, span := range bl.Spans {
		if span.Reserved {
			continue
		}
		v, present := m[span.Name]
		if !present {
			return nil, encodeErrf(def.Name, span.Name, "member is missing from value")
		}
		raw, err := c.bitSpanValue(def, span.Name, span.Type, span.Bits, v)
		if err != nil {
			return nil, err
		}
		accum |= (raw & widthMask(span.Bits)) << span.Start
	}

	buf := make([]byte, bl.Size)
	for i := range buf {
		buf[i] = byte(accum >> (8 * i))
	}
	return buf, nil
}

func (c *Codec) bitSpanValue(def *schema.Definition, member, typeName string, width int, value any) (uint64, error) {
	switch typeName {
	case "bool":
		b, ok := value.(bool)
		if !ok {
			return 0, encodeErrf(def.Name, member, "expected a boolean")
		}
		if b {
			return 1, nil
		}
		return 0, nil
	case "uint":
		n, ok := coerceInt(value)
		if !ok || n < 0 {
			return 0, encodeErrf(def.Name, member, "expected a non-negative integer")
		}
		if uint64(n) > widthMask(width) {
			return 0, encodeErrf(def.Name, member, "%d does not fit in %d bit(s)", n, width)
		}
		return uint64(n), nil
	case "int":
		n, ok := coerceInt(value)
		if !ok {
			return 0, encodeErrf(def.Name, member, "expected an integer")
		}
		if (n >= 0 && uint64(n) > widthMask(width)) || n < -1<<(width-1) {
			return 0, encodeErrf(def.Name, member, "%d does not fit in %d bit(s)", n, width)
		}
		return uint64(n), nil
	}
	target, ok := c.defs.Lookup(typeName)
	if !ok || target.Kind != schema.KindEnum {
		return 0, encodeErrf(def.Name, member, "bit span type `%s` must be an enum or flag", typeName)
	}
	label, ok := value.(string)
	if !ok {
		return 0, encodeErrf(def.Name, member, "expected a symbol label of enum `%s`", typeName)
	}
	n, ok := enumValueOf(target, label)
	if !ok {
		return 0, encodeErrf(def.Name, member, "`%s` is not a symbol of enum `%s`", label, typeName)
	}
	return uint64(n), nil
}

func (c *Codec) decodeBitfield(def *schema.Definition, data []byte) (map[string]any, error) {
	bl, ok := c.plan.Bitfield(def.Name)
	if !ok {
		return nil, decodeErrf(DecodeBadValue, def.Name, "", "no bitfield layout computed")
	}
	if bl.Size > 8 {
		return nil, decodeErrf(DecodeBadValue, def.Name, "",
			"bit fields wider than 8 bytes are not supported")
	}
	if len(data) != bl.Size {
		return nil, decodeErrf(DecodeInvalidLength, def.Name, "",
			"expected %d bytes, got %d", bl.Size, len(data))
	}

	var accum uint64
	for i, b := range data {
		accum |= uint64(b) << (8 * i)
	}

	out := make(map[string]any, len(bl.Spans))
	for _, span := range bl.Spans {
		if span.Reserved {
			continue
		}
		raw := (accum >> span.Start) & widthMask(span.Bits)
		v, err := c.bitSpanDecode(def, span.Name, span.Type, span.Bits, raw)
		if err != nil {
			return nil, err
		}
		out[span.Name] = v
	}
	return out, nil
}

func (c *Codec) bitSpanDecode(def *schema.Definition, member, typeName string, width int, raw uint64) (any, error) {
	switch typeName {
	case "bool":
		return raw != 0, nil
	case "uint":
		return int64(raw), nil
	case "int":
		return signExtend(raw, width), nil
	}
	target, ok := c.defs.Lookup(typeName)
	if !ok || target.Kind != schema.KindEnum {
		return nil, decodeErrf(DecodeBadValue, def.Name, member,
			"bit span type `%s` must be an enum or flag", typeName)
	}
	n := int64(raw)
	if target.Signed {
		n = signExtend(raw, width)
	}
	label, ok := enumLabelOf(target, n)
	if !ok {
		return nil, decodeErrf(DecodeUnknownSymbol, def.Name, member,
			"value %d matches no symbol of enum `%s`", n, typeName)
	}
	return label, nil
}
