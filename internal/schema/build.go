package schema

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"structwriter/internal/diag"
)

// fileEntity is the reserved top-level key carrying output-file prose.
const fileEntity = "file"

var titleCaser = cases.Title(language.English)

// Load reads, merges and validates all definition documents. The returned
// Set is only usable when ok is true; diagnostics explain every failure.
func Load(ctx context.Context, paths []string, r diag.Reporter) (*Set, bool) {
	docs, ok := LoadDocuments(ctx, paths, r)
	if !ok {
		return nil, false
	}
	return Build(docs, r)
}

// Build merges decoded documents into a validated Set. Merging is
// order-preserving: entities keep the order they appear in, across
// documents in argument order. Redefining an existing name is an error.
func Build(docs []Document, r diag.Reporter) (*Set, bool) {
	set := &Set{byName: make(map[string]*Definition)}
	b := builder{set: set, reporter: r}
	for _, doc := range docs {
		b.addDocument(doc)
	}
	b.validate()
	return set, !b.failed
}

type builder struct {
	set      *Set
	reporter diag.Reporter
	failed   bool
	fileSeen string // document that defined the `file` entity
}

func (b *builder) errorf(code diag.Code, ctx diag.Context, format string, args ...any) {
	b.failed = true
	diag.ReportError(b.reporter, code, ctx, fmt.Sprintf(format, args...))
}

func (b *builder) addDocument(doc Document) {
	for _, name := range doc.Order {
		raw, ok := asMap(doc.Defs[name])
		if !ok {
			b.errorf(diag.SchemaMalformedDocument,
				diag.Context{File: doc.Path, Entity: name},
				"definition `%s` must be a table", name)
			continue
		}
		if name == fileEntity {
			b.addFileInfo(doc.Path, raw)
			continue
		}
		b.addDefinition(doc.Path, name, raw)
	}
}

func (b *builder) addFileInfo(path string, raw map[string]any) {
	if b.fileSeen != "" {
		b.errorf(diag.SchemaDuplicateDefinition,
			diag.Context{File: path, Entity: fileEntity},
			"`file` is already defined in %s", b.fileSeen)
		return
	}
	b.fileSeen = path
	b.set.File.Brief, _ = asString(raw["brief"])
	b.set.File.Description, _ = asString(raw["description"])
}

func (b *builder) addDefinition(path, name string, raw map[string]any) {
	ctx := diag.Context{File: path, Entity: name}
	if prev, dup := b.set.byName[name]; dup {
		b.errorf(diag.SchemaDuplicateDefinition, ctx,
			"`%s` is already defined in %s", name, prev.File)
		return
	}

	kindStr, ok := asString(raw["type"])
	if !ok {
		b.errorf(diag.SchemaMissingAttribute, ctx, "definition `%s` is missing `type`", name)
		return
	}

	def := &Definition{
		Name:        name,
		Description: stringOr(raw, "description", ""),
		DisplayName: stringOr(raw, "display_name", defaultDisplayName(name)),
		File:        path,
	}
	if size, sized := asInt(raw["size"]); sized {
		def.Size = int(size)
		def.HasSize = true
	}

	switch kindStr {
	case "structure":
		def.Kind = KindStructure
		b.parseMembers(def, raw, ctx)
		b.parseGroupRefs(def, raw, ctx)
	case "enum":
		def.Kind = KindEnum
		def.Signed, _ = asBool(raw["signed"])
		b.parseEnumValues(def, raw, ctx)
	case "group":
		def.Kind = KindGroup
	case "bit_field":
		def.Kind = KindBitField
		b.parseBitFieldMembers(def, raw, ctx)
	default:
		b.errorf(diag.SchemaUnknownKind, ctx, "definition `%s` has unknown type `%s`", name, kindStr)
		return
	}

	b.set.byName[name] = def
	b.set.order = append(b.set.order, name)
}

func (b *builder) parseMembers(def *Definition, raw map[string]any, ctx diag.Context) {
	rawMembers, present := raw["members"]
	if !present {
		// Unit structure (zero sized), like an empty reset command.
		return
	}
	list, ok := asSlice(rawMembers)
	if !ok {
		b.errorf(diag.SchemaBadAttribute, ctx, "`members` of `%s` must be an array", def.Name)
		return
	}
	if len(list) == 0 {
		b.errorf(diag.SchemaMissingAttribute, ctx, "structure `%s` declares an empty member list", def.Name)
		return
	}
	seen := make(map[string]struct{}, len(list))
	for i, rawMember := range list {
		m, ok := asMap(rawMember)
		if !ok {
			b.errorf(diag.SchemaMalformedDocument, ctx, "member %d of `%s` must be a table", i, def.Name)
			continue
		}
		member := Member{
			Name:        stringOr(m, "name", ""),
			Type:        stringOr(m, "type", ""),
			Description: stringOr(m, "description", ""),
		}
		mctx := diag.Context{File: ctx.File, Entity: def.Name, Member: member.Name}
		if member.Name == "" || member.Type == "" {
			b.errorf(diag.SchemaMissingAttribute, mctx,
				"member %d of `%s` needs `name` and `type`", i, def.Name)
			continue
		}
		if _, dup := seen[member.Name]; dup {
			b.errorf(diag.SchemaDuplicateMember, mctx,
				"member `%s` appears twice in `%s`", member.Name, def.Name)
			continue
		}
		seen[member.Name] = struct{}{}
		if size, sized := asInt(m["size"]); sized {
			member.Size = int(size)
			member.HasSize = true
		} else if IsPrimitive(member.Type) {
			b.errorf(diag.SchemaMissingAttribute, mctx,
				"member `%s` of `%s` has primitive type `%s` and needs an explicit `size`",
				member.Name, def.Name, member.Type)
			continue
		}
		def.Members = append(def.Members, member)
	}
}

func (b *builder) parseGroupRefs(def *Definition, raw map[string]any, ctx diag.Context) {
	rawGroups, present := raw["groups"]
	if !present {
		return
	}
	groups, ok := asMap(rawGroups)
	if !ok {
		b.errorf(diag.SchemaBadAttribute, ctx, "`groups` of `%s` must be a table", def.Name)
		return
	}
	def.Groups = make(map[string]GroupRef, len(groups))
	for groupName, rawRef := range groups {
		ref, ok := asMap(rawRef)
		if !ok {
			b.errorf(diag.SchemaBadAttribute, ctx,
				"group entry `%s` of `%s` must be a table", groupName, def.Name)
			continue
		}
		gr := GroupRef{Name: stringOr(ref, "name", def.Name)}
		if v, has := asInt(ref["value"]); has {
			gr.Value = int(v)
			gr.HasValue = true
		}
		def.Groups[groupName] = gr
	}
}

func (b *builder) parseEnumValues(def *Definition, raw map[string]any, ctx diag.Context) {
	list, ok := asSlice(raw["values"])
	if !ok || len(list) == 0 {
		b.errorf(diag.SchemaEmptyEnum, ctx, "enum `%s` declares no values", def.Name)
		return
	}
	seen := make(map[string]struct{}, len(list))
	next := int64(0)
	for i, rawValue := range list {
		m, ok := asMap(rawValue)
		if !ok {
			b.errorf(diag.SchemaMalformedDocument, ctx, "value %d of `%s` must be a table", i, def.Name)
			continue
		}
		v := EnumValue{
			Label:       stringOr(m, "label", ""),
			DisplayName: stringOr(m, "display_name", ""),
			Description: stringOr(m, "description", ""),
		}
		if v.Label == "" {
			b.errorf(diag.SchemaMissingAttribute, ctx, "value %d of `%s` needs a `label`", i, def.Name)
			continue
		}
		if _, dup := seen[v.Label]; dup {
			b.errorf(diag.SchemaDuplicateLabel, ctx,
				"label `%s` appears twice in enum `%s`", v.Label, def.Name)
			continue
		}
		seen[v.Label] = struct{}{}
		if value, has := asInt(m["value"]); has {
			v.Value = value
			v.HasValue = true
			next = value
		} else {
			v.Value = next
		}
		next++
		def.Values = append(def.Values, v)
	}
}

func (b *builder) parseBitFieldMembers(def *Definition, raw map[string]any, ctx diag.Context) {
	list, ok := asSlice(raw["members"])
	if !ok || len(list) == 0 {
		b.errorf(diag.SchemaMissingAttribute, ctx, "bit_field `%s` declares no members", def.Name)
		return
	}
	seen := make(map[string]struct{}, len(list))
	for i, rawMember := range list {
		m, ok := asMap(rawMember)
		if !ok {
			b.errorf(diag.SchemaMalformedDocument, ctx, "member %d of `%s` must be a table", i, def.Name)
			continue
		}
		member := BitFieldMember{
			Name:        stringOr(m, "name", ""),
			Type:        stringOr(m, "type", ""),
			Description: stringOr(m, "description", ""),
		}
		mctx := diag.Context{File: ctx.File, Entity: def.Name, Member: member.Name}
		if member.Name == "" || member.Type == "" {
			b.errorf(diag.SchemaMissingAttribute, mctx,
				"member %d of `%s` needs `name` and `type`", i, def.Name)
			continue
		}
		if _, dup := seen[member.Name]; dup {
			b.errorf(diag.SchemaDuplicateMember, mctx,
				"member `%s` appears twice in `%s`", member.Name, def.Name)
			continue
		}
		seen[member.Name] = struct{}{}
		start, has := asInt(m["start"])
		if !has {
			b.errorf(diag.SchemaMissingAttribute, mctx,
				"member `%s` of `%s` needs a `start` bit", member.Name, def.Name)
			continue
		}
		member.Start = int(start)
		if bits, hasBits := asInt(m["bits"]); hasBits {
			member.Bits = int(bits)
		}
		def.Bits = append(def.Bits, member)
	}
}

// validate runs the cross-entity checks that do not need layout widths.
func (b *builder) validate() {
	for _, name := range b.set.order {
		def := b.set.byName[name]
		ctx := diag.Context{File: def.File, Entity: def.Name}
		switch def.Kind {
		case KindStructure:
			if !def.HasSize {
				b.errorf(diag.SchemaMissingAttribute, ctx, "structure `%s` is missing `size`", def.Name)
			}
		case KindEnum, KindBitField:
			if !def.HasSize {
				b.errorf(diag.SchemaMissingAttribute, ctx, "%s `%s` is missing `size`", def.Kind, def.Name)
			}
		}
	}
	b.validateGroupTags()
}

// validateGroupTags checks that authored tag values are unique per group
// and that group references point at declared groups.
func (b *builder) validateGroupTags() {
	type tagKey struct {
		group string
		value int
	}
	tags := make(map[tagKey]string)
	for _, name := range b.set.order {
		def := b.set.byName[name]
		for groupName, ref := range def.Groups {
			ctx := diag.Context{File: def.File, Entity: def.Name}
			groupDef, ok := b.set.byName[groupName]
			if !ok || groupDef.Kind != KindGroup {
				b.errorf(diag.SchemaUnknownKind, ctx,
					"`%s` references `%s`, which is not a group", def.Name, groupName)
				continue
			}
			if !ref.HasValue {
				continue
			}
			key := tagKey{group: groupName, value: ref.Value}
			if prev, dup := tags[key]; dup {
				b.errorf(diag.SchemaDuplicateTagValue, ctx,
					"tag value %d in group `%s` is used by both `%s` and `%s`",
					ref.Value, groupName, prev, def.Name)
				continue
			}
			tags[key] = def.Name
		}
	}
}

func stringOr(m map[string]any, key, fallback string) string {
	if s, ok := asString(m[key]); ok {
		return s
	}
	return fallback
}

// defaultDisplayName derives prose from an entity name when the document
// omits display_name: "temperature_units" becomes "Temperature Units".
func defaultDisplayName(name string) string {
	return titleCaser.String(strings.ReplaceAll(name, "_", " "))
}
