// Package layout computes byte and bit layouts for the merged schema:
// member offsets for structures, packed spans for bit fields and the
// fixed-width slice layout for groups.
package layout

// MemberSpan is the byte range of one structure member.
type MemberSpan struct {
	Name  string
	Type  string
	Start int
	End   int
}

// StructLayout is the serialized form of a structure: members at their
// natural byte widths, in declaration order.
type StructLayout struct {
	Size  int
	Spans []MemberSpan
}

// BitSpan is one packed span of a bit field. Reserved spans fill the gaps
// between authored members and the trailing padding.
type BitSpan struct {
	Name     string
	Type     string
	Start    int
	Bits     int
	Reserved bool
}

// Last returns the index of the highest bit covered by the span.
func (s BitSpan) Last() int {
	return s.Start + s.Bits - 1
}

// BitfieldLayout assigns every bit of a bit field to a span.
type BitfieldLayout struct {
	Size  int // bytes
	Spans []BitSpan
}

// Variant is one member of a group with its effective tag value.
type Variant struct {
	Name        string // variant name inside the group
	Type        string // payload structure name
	Tag         int
	PayloadSize int
}

// SliceLayout is the fixed-width encoding of a group: tag bytes followed
// by the largest payload, zero-filled. Every variant encodes to TotalSize
// bytes.
type SliceLayout struct {
	TagSize     int
	PayloadSize int // max payload across variants
	TotalSize   int
	Variants    []Variant
}

// VariantByTag returns the variant carrying the given tag value.
func (l *SliceLayout) VariantByTag(tag int) (Variant, bool) {
	for _, v := range l.Variants {
		if v.Tag == tag {
			return v, true
		}
	}
	return Variant{}, false
}

// VariantByName returns the variant with the given name.
func (l *SliceLayout) VariantByName(name string) (Variant, bool) {
	for _, v := range l.Variants {
		if v.Name == name {
			return v, true
		}
	}
	return Variant{}, false
}

// Plan holds every computed layout for one generation run. It is
// read-only after Compute returns.
type Plan struct {
	structs   map[string]*StructLayout
	bitfields map[string]*BitfieldLayout
	slices    map[string]*SliceLayout
	sizes     map[string]int
}

// Struct returns the layout of a structure.
func (p *Plan) Struct(name string) (*StructLayout, bool) {
	l, ok := p.structs[name]
	return l, ok
}

// Bitfield returns the layout of a bit field.
func (p *Plan) Bitfield(name string) (*BitfieldLayout, bool) {
	l, ok := p.bitfields[name]
	return l, ok
}

// Slice returns the fixed-slice layout of a group.
func (p *Plan) Slice(name string) (*SliceLayout, bool) {
	l, ok := p.slices[name]
	return l, ok
}

// SizeOf returns the serialized byte width of a named type.
func (p *Plan) SizeOf(name string) (int, bool) {
	n, ok := p.sizes[name]
	return n, ok
}
