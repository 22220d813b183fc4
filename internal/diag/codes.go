package diag

import (
	"fmt"
)

type Code uint16

const (
	UnknownCode Code = 0

	// Schema errors (definition documents)
	SchemaInfo                Code = 1000
	SchemaUnsupportedFormat   Code = 1001
	SchemaMalformedDocument   Code = 1002
	SchemaDuplicateDefinition Code = 1003
	SchemaUnknownKind         Code = 1004
	SchemaMissingAttribute    Code = 1005
	SchemaEmptyEnum           Code = 1006
	SchemaDuplicateLabel      Code = 1007
	SchemaDuplicateMember     Code = 1008
	SchemaDuplicateTagValue   Code = 1009
	SchemaBadAttribute        Code = 1010

	// Layout errors (planning)
	LayoutInfo            Code = 2000
	LayoutUnresolvedType  Code = 2001
	LayoutSizeMismatch    Code = 2002
	LayoutBitOverlap      Code = 2003
	LayoutBitOverflow     Code = 2004
	LayoutTagOverflow     Code = 2005
	LayoutEmptyGroup      Code = 2006
	LayoutRecursiveType   Code = 2007
	LayoutTagCollision    Code = 2008
	LayoutBitFieldTooWide Code = 2009

	// Generation errors (templates and backends)
	GenInfo            Code = 3000
	GenUnknownLanguage Code = 3001
	GenUnknownEntity   Code = 3002
	GenBadTemplate     Code = 3003
	GenRenderFailed    Code = 3004
	GenWriteFailed     Code = 3005
)

func (c Code) String() string {
	return fmt.Sprintf("SW%04d", uint16(c))
}

// Family returns the pipeline stage a code belongs to.
func (c Code) Family() string {
	switch {
	case c >= 1000 && c < 2000:
		return "schema"
	case c >= 2000 && c < 3000:
		return "layout"
	case c >= 3000 && c < 4000:
		return "generation"
	}
	return "unknown"
}
