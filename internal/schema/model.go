// Package schema builds the in-memory model of definition documents:
// structures, enums, bit fields and groups (tagged unions).
package schema

// Kind discriminates the authored definition kinds.
type Kind uint8

const (
	KindStructure Kind = iota + 1
	KindEnum
	KindGroup
	KindBitField
)

func (k Kind) String() string {
	switch k {
	case KindStructure:
		return "structure"
	case KindEnum:
		return "enum"
	case KindGroup:
		return "group"
	case KindBitField:
		return "bit_field"
	}
	return "unknown"
}

// FileInfo is the `file` pseudo-entity: prose for the output header.
type FileInfo struct {
	Brief       string
	Description string
}

// GroupRef records a structure's membership in a group: the variant name
// inside the group and an optional authored tag value.
type GroupRef struct {
	Name     string
	Value    int
	HasValue bool
}

// Member is one field of a structure.
type Member struct {
	Name        string
	Type        string
	Description string
	Size        int // bytes; authored for primitives, validated against named types
	HasSize     bool
}

// EnumValue is one symbol of an enum. Unvalued symbols continue from the
// previous value plus one.
type EnumValue struct {
	Label       string
	DisplayName string
	Description string
	Value       int64
	HasValue    bool
}

// BitFieldMember is one packed span of a bit field. Bits == 0 means the
// width is derived during planning (1 for flags, minimal width for enums).
type BitFieldMember struct {
	Name        string
	Type        string
	Description string
	Start       int
	Bits        int
}

// Definition is a single named entity from a definition document.
type Definition struct {
	Name        string
	DisplayName string
	Description string
	Kind        Kind

	Size    int // bytes; for groups this is the tag width
	HasSize bool

	Signed  bool             // enum only
	Members []Member         // structure only
	Values  []EnumValue      // enum only
	Bits    []BitFieldMember // bit_field only

	// Groups maps group name to this structure's variant binding.
	Groups map[string]GroupRef

	// File is the document the definition came from, for diagnostics.
	File string
}

// Set is the merged, validated collection of definitions. It is immutable
// after Build returns.
type Set struct {
	File   FileInfo
	order  []string
	byName map[string]*Definition
}

// Lookup returns the definition with the given name.
func (s *Set) Lookup(name string) (*Definition, bool) {
	if s == nil {
		return nil, false
	}
	d, ok := s.byName[name]
	return d, ok
}

// Names returns entity names in declaration order across all documents.
func (s *Set) Names() []string {
	if s == nil {
		return nil
	}
	return s.order
}

// Len returns the number of definitions.
func (s *Set) Len() int {
	if s == nil {
		return 0
	}
	return len(s.order)
}

// GroupMembers returns the structures bound to the named group in
// declaration order. Layout planning sorts variants by tag value; the
// declaration index is what default tags are derived from.
func (s *Set) GroupMembers(group string) []*Definition {
	if s == nil {
		return nil
	}
	var members []*Definition
	for _, name := range s.order {
		d := s.byName[name]
		if _, ok := d.Groups[group]; ok {
			members = append(members, d)
		}
	}
	return members
}

// IsPrimitive reports whether a member type name is a built-in scalar
// rather than a reference to another definition.
func IsPrimitive(typeName string) bool {
	switch typeName {
	case "int", "uint", "bool", "bytes", "str":
		return true
	}
	return false
}
