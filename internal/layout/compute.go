package layout

import (
	"fmt"
	"math/bits"
	"sort"
	"strings"

	"structwriter/internal/diag"
	"structwriter/internal/schema"
)

// Engine computes layouts for a merged schema.
type Engine struct {
	defs *schema.Set
}

// New creates a layout engine over a validated schema.
func New(defs *schema.Set) *Engine {
	return &Engine{defs: defs}
}

// Compute derives every layout the schema needs. The returned Plan is
// only usable when ok is true.
func (e *Engine) Compute(r diag.Reporter) (*Plan, bool) {
	plan := &Plan{
		structs:   make(map[string]*StructLayout),
		bitfields: make(map[string]*BitfieldLayout),
		slices:    make(map[string]*SliceLayout),
		sizes:     make(map[string]int),
	}
	res := &resolver{defs: e.defs, plan: plan, reporter: r, inStack: make(map[string]bool)}

	for _, name := range e.defs.Names() {
		res.sizeOf(name)
	}
	for _, name := range e.defs.Names() {
		def, _ := e.defs.Lookup(name)
		switch def.Kind {
		case schema.KindStructure:
			res.structLayout(def)
		case schema.KindBitField:
			res.bitfieldLayout(def)
		case schema.KindGroup:
			res.sliceLayout(def)
		}
	}
	return plan, !res.failed
}

type resolver struct {
	defs     *schema.Set
	plan     *Plan
	reporter diag.Reporter
	failed   bool

	stack   []string
	inStack map[string]bool
}

func (r *resolver) errorf(code diag.Code, ctx diag.Context, format string, args ...any) {
	r.failed = true
	diag.ReportError(r.reporter, code, ctx, fmt.Sprintf(format, args...))
}

// sizeOf resolves the serialized byte width of a named type, caching the
// result. Recursive definitions are reported with their cycle path.
func (r *resolver) sizeOf(name string) (int, bool) {
	if size, ok := r.plan.sizes[name]; ok {
		return size, true
	}
	def, ok := r.defs.Lookup(name)
	if !ok {
		return 0, false
	}
	if r.inStack[name] {
		cycleStart := 0
		for i, n := range r.stack {
			if n == name {
				cycleStart = i
				break
			}
		}
		cycle := append(append([]string{}, r.stack[cycleStart:]...), name)
		r.errorf(diag.LayoutRecursiveType, diag.Context{File: def.File, Entity: name},
			"recursive definition has no fixed size (cycle: %s)", strings.Join(cycle, " -> "))
		return 0, false
	}
	r.stack = append(r.stack, name)
	r.inStack[name] = true
	size, ok := r.computeSize(def)
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.inStack, name)
	if ok {
		r.plan.sizes[name] = size
	}
	return size, ok
}

func (r *resolver) computeSize(def *schema.Definition) (int, bool) {
	ctx := diag.Context{File: def.File, Entity: def.Name}
	switch def.Kind {
	case schema.KindEnum, schema.KindBitField:
		return def.Size, true

	case schema.KindStructure:
		sum := 0
		ok := true
		for _, m := range def.Members {
			size, resolved := r.memberSize(def, m)
			if !resolved {
				ok = false
				continue
			}
			sum += size
		}
		if ok && def.HasSize && sum != def.Size {
			r.errorf(diag.LayoutSizeMismatch, ctx,
				"structure `%s` declares size %d, but its members total %d",
				def.Name, def.Size, sum)
		}
		if def.HasSize {
			return def.Size, ok
		}
		return sum, ok

	case schema.KindGroup:
		members := r.defs.GroupMembers(def.Name)
		maxPayload := 0
		ok := true
		for _, m := range members {
			size, resolved := r.sizeOf(m.Name)
			if !resolved {
				ok = false
				continue
			}
			if size > maxPayload {
				maxPayload = size
			}
		}
		return r.tagWidth(def, len(members)) + maxPayload, ok
	}
	return 0, false
}

func (r *resolver) memberSize(def *schema.Definition, m schema.Member) (int, bool) {
	if schema.IsPrimitive(m.Type) {
		return m.Size, true
	}
	size, ok := r.sizeOf(m.Type)
	if !ok {
		if !r.inStackError(m.Type) {
			r.errorf(diag.LayoutUnresolvedType,
				diag.Context{File: def.File, Entity: def.Name, Member: m.Name},
				"member `%s` of `%s` references undefined type `%s`",
				m.Name, def.Name, m.Type)
		}
		return 0, false
	}
	if m.HasSize && m.Size != size {
		r.errorf(diag.LayoutSizeMismatch,
			diag.Context{File: def.File, Entity: def.Name, Member: m.Name},
			"member `%s` of `%s` declares size %d, but `%s` is %d bytes",
			m.Name, def.Name, m.Size, m.Type, size)
		return 0, false
	}
	return size, true
}

// inStackError suppresses a second diagnostic when sizeOf already
// reported the cycle for this name.
func (r *resolver) inStackError(name string) bool {
	return r.inStack[name]
}

// tagWidth is the byte width of a group's tag: the authored group size
// when present, otherwise the minimum width covering the variant count.
func (r *resolver) tagWidth(def *schema.Definition, variantCount int) int {
	if def.HasSize {
		return def.Size
	}
	if variantCount <= 1 {
		return 1
	}
	return (bits.Len(uint(variantCount-1)) + 7) / 8
}

func (r *resolver) structLayout(def *schema.Definition) {
	l := &StructLayout{}
	start := 0
	for _, m := range def.Members {
		size, ok := r.memberSize(def, m)
		if !ok {
			return
		}
		l.Spans = append(l.Spans, MemberSpan{
			Name:  m.Name,
			Type:  m.Type,
			Start: start,
			End:   start + size,
		})
		start += size
	}
	l.Size = def.Size
	r.plan.structs[def.Name] = l
}

func (r *resolver) bitfieldLayout(def *schema.Definition) {
	ctx := diag.Context{File: def.File, Entity: def.Name}
	// The codec accumulates a packed record in a single 64-bit word, so
	// wider fields cannot be represented and are rejected up front.
	if def.Size > 8 {
		r.errorf(diag.LayoutBitFieldTooWide, ctx,
			"bit_field `%s` declares %d bytes; bit fields wider than 8 bytes are not supported",
			def.Name, def.Size)
		return
	}
	l := &BitfieldLayout{Size: def.Size}
	totalBits := def.Size * 8
	position := 0

	for _, m := range def.Bits {
		width, ok := r.bitWidth(def, m)
		if !ok {
			return
		}
		if m.Start < position {
			r.errorf(diag.LayoutBitOverlap,
				diag.Context{File: def.File, Entity: def.Name, Member: m.Name},
				"member `%s` of `%s` starts at bit %d, which overlaps the previous member",
				m.Name, def.Name, m.Start)
			return
		}
		if m.Start > position {
			l.Spans = append(l.Spans, reservedSpan(position, m.Start-position))
		}
		l.Spans = append(l.Spans, BitSpan{
			Name:  m.Name,
			Type:  m.Type,
			Start: m.Start,
			Bits:  width,
		})
		position = m.Start + width
	}
	if position > totalBits {
		r.errorf(diag.LayoutBitOverflow, ctx,
			"bit_field `%s` needs %d bits but declares %d bytes", def.Name, position, def.Size)
		return
	}
	if position < totalBits {
		l.Spans = append(l.Spans, reservedSpan(position, totalBits-position))
	}
	r.plan.bitfields[def.Name] = l
}

// bitWidth derives a packed member's width: the authored `bits` value,
// the minimum width of a referenced enum, or a single flag bit.
func (r *resolver) bitWidth(def *schema.Definition, m schema.BitFieldMember) (int, bool) {
	if m.Bits > 0 {
		return m.Bits, true
	}
	switch m.Type {
	case "bool", "uint", "int":
		return 1, true
	}
	target, ok := r.defs.Lookup(m.Type)
	if !ok || target.Kind != schema.KindEnum {
		r.errorf(diag.LayoutUnresolvedType,
			diag.Context{File: def.File, Entity: def.Name, Member: m.Name},
			"member `%s` of bit_field `%s` references `%s`, which is not an enum or flag type",
			m.Name, def.Name, m.Type)
		return 0, false
	}
	return enumBits(len(target.Values)), true
}

// enumBits is the minimum bit width covering a symbol count, at least 1.
func enumBits(count int) int {
	if count <= 2 {
		return 1
	}
	return bits.Len(uint(count - 1))
}

func reservedSpan(start, width int) BitSpan {
	return BitSpan{
		Name:     fmt.Sprintf("reserved_%d", start),
		Type:     "reserved",
		Start:    start,
		Bits:     width,
		Reserved: true,
	}
}

func (r *resolver) sliceLayout(def *schema.Definition) {
	ctx := diag.Context{File: def.File, Entity: def.Name}
	members := r.defs.GroupMembers(def.Name)
	if len(members) == 0 {
		diag.ReportWarning(r.reporter, diag.LayoutEmptyGroup, ctx,
			fmt.Sprintf("group `%s` has no members and generates nothing", def.Name))
		r.plan.slices[def.Name] = &SliceLayout{TagSize: r.tagWidth(def, 0)}
		return
	}

	l := &SliceLayout{TagSize: r.tagWidth(def, len(members))}
	seen := make(map[int]string, len(members))
	maxTag := 0
	ok := true
	for i, m := range members {
		ref := m.Groups[def.Name]
		tag := i
		if ref.HasValue {
			tag = ref.Value
		}
		if prev, dup := seen[tag]; dup {
			r.errorf(diag.LayoutTagCollision, ctx,
				"tag value %d in group `%s` is used by both `%s` and `%s`",
				tag, def.Name, prev, m.Name)
			ok = false
			continue
		}
		seen[tag] = m.Name
		if tag > maxTag {
			maxTag = tag
		}
		payload, resolved := r.sizeOf(m.Name)
		if !resolved {
			ok = false
			continue
		}
		if payload > l.PayloadSize {
			l.PayloadSize = payload
		}
		l.Variants = append(l.Variants, Variant{
			Name:        ref.Name,
			Type:        m.Name,
			Tag:         tag,
			PayloadSize: payload,
		})
	}
	if !ok {
		return
	}
	if maxTag >= 1<<(l.TagSize*8) {
		r.errorf(diag.LayoutTagOverflow, ctx,
			"group `%s` has tag value %d, which does not fit in %d byte(s)",
			def.Name, maxTag, l.TagSize)
		return
	}
	sort.Slice(l.Variants, func(i, j int) bool { return l.Variants[i].Tag < l.Variants[j].Tag })
	l.TotalSize = l.TagSize + l.PayloadSize
	r.plan.slices[def.Name] = l
}
