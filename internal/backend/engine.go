package backend

import (
	"fmt"
	"path/filepath"
	"strings"

	"structwriter/internal/layout"
	"structwriter/internal/render"
	"structwriter/internal/schema"
)

// Hooks lets a backend replace parts of the generic template-driven
// rendering with language-specific generation.
type Hooks struct {
	// Group renders a tagged union. When nil the engine synthesizes a
	// tag enum plus a container structure from templates alone.
	Group func(e *Engine, def *schema.Definition) (string, error)
	// EnumEnv extends the template environment of an enum before its
	// fragments render.
	EnumEnv func(e *Engine, def *schema.Definition, env map[string]any)
}

// Engine walks the schema in declaration order, renders each entity from
// the template tree and assembles the output file. Entities render their
// member types first, and never render twice.
type Engine struct {
	Defs       *schema.Set
	Plan       *layout.Plan
	Templates  map[string]any
	OutputPath string
	Hooks      Hooks

	rendered map[string]bool
}

// NewEngine builds an engine for one generation run.
func NewEngine(req Request, hooks Hooks) *Engine {
	return &Engine{
		Defs:       req.Defs,
		Plan:       req.Plan,
		Templates:  req.Templates,
		OutputPath: req.OutputPath,
		Hooks:      hooks,
		rendered:   make(map[string]bool),
	}
}

// RenderFile renders the whole output: file prose, groups first, the
// remaining entities in declaration order, file footer. A `file.order`
// list in the template pins entity order ahead of the default walk;
// naming an unknown entity there is an error.
func (e *Engine) RenderFile() (string, error) {
	var b strings.Builder
	fileEnv := map[string]any{
		"file":     fileInfoEnv(e.Defs),
		"out_file": outFileEnv(e.OutputPath),
	}
	e.writeFragment(&b, fileEnv, "file", "description")
	e.writeFragment(&b, fileEnv, "file", "header")

	pinned, err := e.pinnedOrder()
	if err != nil {
		return "", err
	}
	for _, name := range pinned {
		s, err := e.RenderDefinition(name)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}
	for _, name := range e.Defs.Names() {
		if def, _ := e.Defs.Lookup(name); def.Kind == schema.KindGroup {
			s, err := e.RenderDefinition(name)
			if err != nil {
				return "", err
			}
			b.WriteString(s)
		}
	}
	for _, name := range e.Defs.Names() {
		s, err := e.RenderDefinition(name)
		if err != nil {
			return "", err
		}
		b.WriteString(s)
	}

	e.writeFragment(&b, fileEnv, "file", "footer")
	return b.String(), nil
}

func (e *Engine) pinnedOrder() ([]string, error) {
	section, ok := render.Section(e.Templates, "file")
	if !ok {
		return nil, nil
	}
	raw, ok := section["order"]
	if !ok {
		return nil, nil
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("template `file.order` must be an array of entity names")
	}
	names := make([]string, 0, len(list))
	for _, item := range list {
		name, ok := item.(string)
		if !ok {
			return nil, fmt.Errorf("template `file.order` must be an array of entity names")
		}
		if _, defined := e.Defs.Lookup(name); !defined {
			return nil, &UnknownEntityError{Name: name}
		}
		names = append(names, name)
	}
	return names, nil
}

// RenderDefinition renders one entity (and its unrendered dependencies).
// Rendering the same name again yields the empty string.
func (e *Engine) RenderDefinition(name string) (string, error) {
	if e.rendered[name] {
		return "", nil
	}
	def, ok := e.Defs.Lookup(name)
	if !ok {
		return "", &UnknownEntityError{Name: name}
	}
	e.rendered[name] = true
	switch def.Kind {
	case schema.KindStructure:
		return e.renderStructure(def)
	case schema.KindEnum:
		return e.renderEnum(def)
	case schema.KindBitField:
		return e.renderBitField(def)
	case schema.KindGroup:
		if e.Hooks.Group != nil {
			return e.Hooks.Group(e, def)
		}
		return e.renderGroupGeneric(def)
	}
	return "", fmt.Errorf("entity `%s` has unknown kind", name)
}

func (e *Engine) renderStructure(def *schema.Definition) (string, error) {
	var b strings.Builder
	for _, m := range def.Members {
		if _, isDef := e.Defs.Lookup(m.Type); isDef {
			dep, err := e.RenderDefinition(m.Type)
			if err != nil {
				return "", err
			}
			b.WriteString(dep)
		}
	}

	structEnv := e.StructureEnv(def)
	e.attachSerialization(def, structEnv)
	env := map[string]any{"structure": structEnv}

	e.writeFragment(&b, env, "structure", "header")
	if err := e.renderStructureMembers(&b, def); err != nil {
		return "", err
	}
	e.writeFragment(&b, env, "structure", "footer")
	return b.String(), nil
}

func (e *Engine) renderStructureMembers(b *strings.Builder, def *schema.Definition) error {
	sl, _ := e.Plan.Struct(def.Name)
	if sl == nil || len(sl.Spans) == 0 {
		if tpl, ok := e.memberFragment("structure", "empty", "definition"); ok {
			b.WriteString(tpl.SafeRender(nil))
		}
		return nil
	}
	for i, span := range sl.Spans {
		m := def.Members[i]
		env := map[string]any{"member": memberEnv(m, span.End-span.Start)}
		tpl, ok := e.memberFragment("structure", m.Type, "definition")
		if !ok {
			return fmt.Errorf("no template for structure member type `%s`", m.Type)
		}
		b.WriteString(tpl.SafeRender(env))
	}
	return nil
}

// attachSerialization builds per-member serialize/deserialize fragments
// into the structure environment when the member templates provide them
// (the Rust templates do; the C header templates do not).
func (e *Engine) attachSerialization(def *schema.Definition, structEnv map[string]any) {
	sl, _ := e.Plan.Struct(def.Name)
	if sl == nil {
		return
	}
	for _, role := range []string{"serialize", "deserialize"} {
		var lines []string
		complete := true
		for i, span := range sl.Spans {
			tpl, ok := e.memberFragment("structure", def.Members[i].Type, role)
			if !ok {
				complete = false
				break
			}
			env := map[string]any{
				"member": memberEnv(def.Members[i], span.End-span.Start),
				"buffer": map[string]any{"start": span.Start, "end": span.End},
			}
			lines = append(lines, strings.TrimRight(tpl.SafeRender(env), "\n"))
		}
		if !complete {
			continue
		}
		key := "serialization"
		if role == "deserialize" {
			key = "deserialization"
		}
		structEnv[key] = strings.Join(lines, "\n")
	}
}

func (e *Engine) renderEnum(def *schema.Definition) (string, error) {
	var b strings.Builder
	env := map[string]any{"enumeration": e.EnumEnvOf(def)}
	if e.Hooks.EnumEnv != nil {
		e.Hooks.EnumEnv(e, def, env["enumeration"].(map[string]any))
	}

	e.writeFragment(&b, env, "enum", "header")
	for _, v := range def.Values {
		valueEnv := map[string]any{
			"enumeration": env["enumeration"],
			"value": map[string]any{
				"label":        v.Label,
				"value":        v.Value,
				"display_name": v.DisplayName,
				"description":  v.Description,
			},
		}
		role := "valued"
		if !v.HasValue {
			if _, ok := render.Fragment(e.Templates, "enum", "default"); ok {
				role = "default"
			}
		}
		e.writeFragment(&b, valueEnv, "enum", role)
	}
	e.writeFragment(&b, env, "enum", "footer")
	return b.String(), nil
}

func (e *Engine) renderBitField(def *schema.Definition) (string, error) {
	var b strings.Builder
	for _, m := range def.Bits {
		if _, isDef := e.Defs.Lookup(m.Type); isDef {
			dep, err := e.RenderDefinition(m.Type)
			if err != nil {
				return "", err
			}
			b.WriteString(dep)
		}
	}

	bl, ok := e.Plan.Bitfield(def.Name)
	if !ok {
		return "", fmt.Errorf("no bitfield layout for `%s`", def.Name)
	}
	bitEnv := map[string]any{
		"name":         def.Name,
		"display_name": def.DisplayName,
		"description":  def.Description,
		"size":         def.Size,
	}
	env := map[string]any{"bit_field": bitEnv}
	descriptions := make(map[string]string, len(def.Bits))
	for _, m := range def.Bits {
		descriptions[m.Name] = m.Description
	}

	e.writeFragment(&b, env, "bit_field", "header")
	for _, span := range bl.Spans {
		spanEnv := map[string]any{
			"bit_field": bitEnv,
			"member": map[string]any{
				"name":        span.Name,
				"type":        span.Type,
				"start":       span.Start,
				"bits":        span.Bits,
				"last":        span.Last(),
				"description": descriptions[span.Name],
			},
		}
		tpl, ok := e.memberFragment("bit_field", span.Type, "definition")
		if !ok {
			return "", fmt.Errorf("no template for bit_field member type `%s`", span.Type)
		}
		b.WriteString(tpl.SafeRender(spanEnv))
	}
	e.writeFragment(&b, env, "bit_field", "footer")
	return b.String(), nil
}

// renderGroupGeneric synthesizes the template-only view of a group: a tag
// enum, the member payload structures, and a container structure holding
// the tag plus a union of payloads.
func (e *Engine) renderGroupGeneric(def *schema.Definition) (string, error) {
	sl, ok := e.Plan.Slice(def.Name)
	if !ok || len(sl.Variants) == 0 {
		return "", nil
	}
	var b strings.Builder

	s, err := e.renderGroupTagEnum(def, sl)
	if err != nil {
		return "", err
	}
	b.WriteString(s)

	for _, v := range sl.Variants {
		dep, err := e.RenderDefinition(v.Type)
		if err != nil {
			return "", err
		}
		b.WriteString(dep)
	}

	containerEnv := map[string]any{
		"name":         def.Name,
		"display_name": def.DisplayName,
		"description":  def.Description,
		"size":         sl.TotalSize,
	}
	env := map[string]any{"structure": containerEnv}
	e.writeFragment(&b, env, "structure", "header")

	tagTpl, ok := e.memberFragment("structure", "tag", "definition")
	if !ok {
		return "", fmt.Errorf("no template for structure members")
	}
	b.WriteString(tagTpl.SafeRender(map[string]any{"member": map[string]any{
		"name":        "tag",
		"type":        e.TagEnumName(def.Name),
		"size":        sl.TagSize,
		"description": def.Name + " tag",
	}}))

	unionEnv := map[string]any{"union": map[string]any{"name": "value"}}
	e.writeFragment(&b, unionEnv, "structure", "members", "union", "header")
	for _, v := range sl.Variants {
		payload, _ := e.Defs.Lookup(v.Type)
		memberTpl, ok := e.memberFragment("structure", v.Type, "definition")
		if !ok {
			return "", fmt.Errorf("no template for structure members")
		}
		b.WriteString(memberTpl.SafeRender(map[string]any{"member": map[string]any{
			"name":        v.Name,
			"type":        v.Type,
			"size":        v.PayloadSize,
			"description": payload.Description,
		}}))
	}
	e.writeFragment(&b, unionEnv, "structure", "members", "union", "footer")
	e.writeFragment(&b, env, "structure", "footer")
	return b.String(), nil
}

func (e *Engine) renderGroupTagEnum(def *schema.Definition, sl *layout.SliceLayout) (string, error) {
	var b strings.Builder
	enumEnv := map[string]any{
		"name":         e.TagEnumName(def.Name),
		"display_name": def.Name + " tag",
		"description":  "Enumeration for " + def.Name + " tag",
		"size":         sl.TagSize,
	}
	env := map[string]any{"enumeration": enumEnv}
	e.writeFragment(&b, env, "enum", "header")
	for _, v := range sl.Variants {
		valueEnv := map[string]any{
			"enumeration": enumEnv,
			"value": map[string]any{
				"label":       v.Name,
				"value":       v.Tag,
				"description": "@see " + e.StructureTypeName(v.Type),
			},
		}
		e.writeFragment(&b, valueEnv, "enum", "valued")
	}
	e.writeFragment(&b, env, "enum", "footer")
	return b.String(), nil
}

// TagEnumName is the synthesized name of a group's tag enum.
func (e *Engine) TagEnumName(group string) string {
	return group + "_tag"
}

// StructureTypeName renders the language's type-name template for a
// structure, e.g. `cmd_reset_t` for the C templates.
func (e *Engine) StructureTypeName(name string) string {
	tpl, ok := render.Fragment(e.Templates, "structure", "type_name")
	if !ok {
		return name
	}
	return tpl.SafeRender(map[string]any{"structure": map[string]any{"name": name}})
}

// StructureEnv builds the template environment of a structure.
func (e *Engine) StructureEnv(def *schema.Definition) map[string]any {
	names := make([]string, len(def.Members))
	for i, m := range def.Members {
		names[i] = m.Name
	}
	return map[string]any{
		"name":         def.Name,
		"display_name": def.DisplayName,
		"description":  def.Description,
		"size":         def.Size,
		"field_list":   strings.Join(names, ", "),
	}
}

// EnumEnvOf builds the template environment of an enum.
func (e *Engine) EnumEnvOf(def *schema.Definition) map[string]any {
	return map[string]any{
		"name":         def.Name,
		"display_name": def.DisplayName,
		"description":  def.Description,
		"size":         def.Size,
		"signed":       def.Signed,
	}
}

// memberFragment resolves a member template: the type-specific entry when
// present, the `default` entry otherwise. An entry may be plain fragment
// text (definition only) or a table of roles.
func (e *Engine) memberFragment(section, memberType, role string) (render.Template, bool) {
	members, ok := render.Section(e.Templates, section, "members")
	if !ok {
		return render.Template{}, false
	}
	for _, key := range []string{memberType, "default"} {
		entry, present := members[key]
		if !present {
			continue
		}
		switch v := entry.(type) {
		case string:
			if role == "definition" {
				return render.New(v), true
			}
		case map[string]any:
			if text, ok := v[role].(string); ok {
				return render.New(text), true
			}
		}
	}
	return render.Template{}, false
}

func (e *Engine) writeFragment(b *strings.Builder, env map[string]any, path ...string) {
	tpl, ok := render.Fragment(e.Templates, path...)
	if !ok {
		return
	}
	b.WriteString(tpl.SafeRender(env))
}

func memberEnv(m schema.Member, size int) map[string]any {
	return map[string]any{
		"name":        m.Name,
		"type":        m.Type,
		"size":        size,
		"description": m.Description,
	}
}

func fileInfoEnv(defs *schema.Set) map[string]any {
	return map[string]any{
		"brief":       defs.File.Brief,
		"description": defs.File.Description,
	}
}

func outFileEnv(path string) map[string]any {
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	upper := strings.ToUpper(stem)
	return map[string]any{
		"name":       base,
		"path":       path,
		"stem":       stem,
		"stem_upper": upper,
		"guard":      upper + "_H_",
	}
}
