// Package rust generates Rust source: serde-ready structs and enums
// with fixed-width slice conversions, and groups as data-carrying enums
// with From/TryFrom wire impls.
package rust

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"

	"structwriter/internal/backend"
	"structwriter/internal/schema"
)

type renderer struct{}

func init() {
	backend.Register(renderer{})
}

func (renderer) Language() string { return "rust" }

func (renderer) DefaultTemplate() (map[string]any, error) {
	var tree map[string]any
	if _, err := toml.Decode(defaultTemplate, &tree); err != nil {
		return nil, err
	}
	return tree, nil
}

func (renderer) Render(req backend.Request) (string, error) {
	hooks := backend.Hooks{
		Group:   renderGroup,
		EnumEnv: extendEnumEnv,
	}
	return backend.NewEngine(req, hooks).RenderFile()
}

// extendEnumEnv adds the Rust integer repr and the TryFrom match arms to
// an enum's template environment.
func extendEnumEnv(e *backend.Engine, def *schema.Definition, env map[string]any) {
	prefix := "u"
	if def.Signed {
		prefix = "i"
	}
	env["repr_type"] = fmt.Sprintf("%s%d", prefix, def.Size*8)
	arms := make([]string, 0, len(def.Values))
	for _, v := range def.Values {
		arms = append(arms, fmt.Sprintf("%#x => Ok(%s::%s),", v.Value, def.Name, v.Label))
	}
	env["matches"] = strings.Join(arms, "\n")
}

// renderGroup emits a group as a data-carrying enum whose variants wrap
// the payload structures, plus the fixed-width slice conversions: tag
// bytes big-endian, payload bytes, zero fill up to the group width.
func renderGroup(e *backend.Engine, def *schema.Definition) (string, error) {
	sl, ok := e.Plan.Slice(def.Name)
	if !ok || len(sl.Variants) == 0 {
		return "", nil
	}
	var b strings.Builder
	for _, v := range sl.Variants {
		dep, err := e.RenderDefinition(v.Type)
		if err != nil {
			return "", err
		}
		b.WriteString(dep)
	}

	repr := fmt.Sprintf("u%d", sl.TagSize*8)
	fmt.Fprintf(&b, "/// %s\n", def.DisplayName)
	if def.Description != "" {
		fmt.Fprintf(&b, "/// %s\n", def.Description)
	}
	b.WriteString("#[derive(Debug, Clone, PartialEq)]\n")
	fmt.Fprintf(&b, "pub enum %s {\n", def.Name)
	for _, v := range sl.Variants {
		if payload, ok := e.Defs.Lookup(v.Type); ok && payload.Description != "" {
			fmt.Fprintf(&b, "/// %s\n", payload.Description)
		}
		fmt.Fprintf(&b, "%s(%s),\n", v.Name, v.Type)
	}
	b.WriteString("}\n")

	fmt.Fprintf(&b, "impl %s {\n", def.Name)
	fmt.Fprintf(&b, "pub fn tag(&self) -> %s {\nmatch self {\n", repr)
	for _, v := range sl.Variants {
		fmt.Fprintf(&b, "%s::%s(_) => %#x,\n", def.Name, v.Name, v.Tag)
	}
	b.WriteString("}\n}\n")
	fmt.Fprintf(&b, "pub const fn size() -> usize {\n%d\n}\n", sl.TotalSize)
	b.WriteString("}\n")

	fmt.Fprintf(&b, "pub type %s_slice = [u8; %d];\n", def.Name, sl.TotalSize)
	fmt.Fprintf(&b, "impl From<%s> for %s_slice {\n", def.Name, def.Name)
	fmt.Fprintf(&b, "fn from(value: %s) -> Self {\n", def.Name)
	fmt.Fprintf(&b, "let mut buf = [0_u8; %d];\nmatch value {\n", sl.TotalSize)
	for _, v := range sl.Variants {
		fmt.Fprintf(&b, "%s::%s(inner) => {\n", def.Name, v.Name)
		fmt.Fprintf(&b, "buf[..%d].copy_from_slice(&(%#x_%s).to_be_bytes());\n", sl.TagSize, v.Tag, repr)
		if v.PayloadSize > 0 {
			fmt.Fprintf(&b, "let inner_bytes: %s_slice = inner.into();\n", v.Type)
			fmt.Fprintf(&b, "buf[%d..%d].copy_from_slice(&inner_bytes);\n", sl.TagSize, sl.TagSize+v.PayloadSize)
		} else {
			b.WriteString("let _ = inner;\n")
		}
		b.WriteString("}\n")
	}
	b.WriteString("}\nbuf\n}\n}\n")

	fmt.Fprintf(&b, "impl TryFrom<&[u8]> for %s {\n", def.Name)
	b.WriteString("type Error = DecodeError;\n")
	b.WriteString("fn try_from(value: &[u8]) -> Result<Self, Self::Error> {\n")
	fmt.Fprintf(&b, "if value.len() != %d {\nreturn Err(DecodeError::InvalidLength);\n}\n", sl.TotalSize)
	fmt.Fprintf(&b, "match %s::from_be_bytes(value[..%d].try_into().unwrap()) {\n", repr, sl.TagSize)
	for _, v := range sl.Variants {
		fmt.Fprintf(&b, "%#x => Ok(%s::%s(%s::try_from(&value[%d..%d])?)),\n",
			v.Tag, def.Name, v.Name, v.Type, sl.TagSize, sl.TagSize+v.PayloadSize)
	}
	b.WriteString("_ => Err(DecodeError::UnknownTag),\n}\n}\n}\n\n")
	return b.String(), nil
}

const defaultTemplate = `
[file]
description = '''
//! ${file.brief}
//!
//! ${file.description}
//!
//! This file is auto-generated using struct-writer
'''
header = '''
#![allow(non_camel_case_types)]

/// Errors surfaced when decoding wire bytes.
#[derive(Debug, Clone, Copy, PartialEq, Eq)]
pub enum DecodeError {
UnknownTag,
InvalidLength,
UnknownSymbol,
MissingField,
}

'''

[structure]
type_name = '${structure.name}'

header = '''
/// ${structure.display_name}
/// ${structure.description}
#[derive(Debug, Clone, PartialEq, serde::Serialize, serde::Deserialize)]
pub struct ${structure.name} {
'''
footer = '''
}
pub type ${structure.name}_slice = [u8; ${structure.size}];
impl From<${structure.name}> for ${structure.name}_slice {
fn from(value: ${structure.name}) -> Self {
#[allow(unused_mut)]
let mut buf = [0_u8; ${structure.size}];
${structure.serialization}
buf
}
}
impl TryFrom<&[u8]> for ${structure.name} {
type Error = DecodeError;
#[allow(unused_variables)]
fn try_from(value: &[u8]) -> Result<Self, Self::Error> {
if value.len() != ${structure.size} {
return Err(DecodeError::InvalidLength);
}
${structure.deserialization}
Ok(${structure.name} { ${structure.field_list} })
}
}

'''

[structure.members]
empty = ''

[structure.members.default]
definition = '''
/// ${member.description}
pub ${member.name}: ${member.type},
'''
serialize = '''
let ${member.name}_bytes: ${member.type}_slice = value.${member.name}.clone().into();
buf[${buffer.start}..${buffer.end}].copy_from_slice(&${member.name}_bytes);
'''
deserialize = '''
let ${member.name} = ${member.type}::try_from(&value[${buffer.start}..${buffer.end}])?;
'''

[structure.members.int]
definition = '''
/// ${member.description}
pub ${member.name}: i${member.size*8},
'''
serialize = '''
buf[${buffer.start}..${buffer.end}].copy_from_slice(&value.${member.name}.to_be_bytes());
'''
deserialize = '''
let ${member.name} = i${member.size*8}::from_be_bytes(value[${buffer.start}..${buffer.end}].try_into().unwrap());
'''

[structure.members.uint]
definition = '''
/// ${member.description}
pub ${member.name}: u${member.size*8},
'''
serialize = '''
buf[${buffer.start}..${buffer.end}].copy_from_slice(&value.${member.name}.to_be_bytes());
'''
deserialize = '''
let ${member.name} = u${member.size*8}::from_be_bytes(value[${buffer.start}..${buffer.end}].try_into().unwrap());
'''

[structure.members.bool]
definition = '''
/// ${member.description}
pub ${member.name}: bool,
'''
serialize = '''
buf[${buffer.start}] = value.${member.name} as u8;
'''
deserialize = '''
let ${member.name} = value[${buffer.start}] != 0;
'''

[structure.members.bytes]
definition = '''
/// ${member.description}
pub ${member.name}: [u8; ${member.size}],
'''
serialize = '''
buf[${buffer.start}..${buffer.end}].copy_from_slice(&value.${member.name});
'''
deserialize = '''
let ${member.name} = value[${buffer.start}..${buffer.end}].try_into().unwrap();
'''

[structure.members.str]
definition = '''
/// ${member.description}
pub ${member.name}: [u8; ${member.size}],
'''
serialize = '''
buf[${buffer.start}..${buffer.end}].copy_from_slice(&value.${member.name});
'''
deserialize = '''
let ${member.name} = value[${buffer.start}..${buffer.end}].try_into().unwrap();
'''

[enum]
header = '''
/// ${enumeration.display_name}
/// ${enumeration.description}
#[derive(Debug, Clone, Copy, PartialEq, serde::Serialize, serde::Deserialize)]
#[serde(rename_all = "lowercase")]
#[repr(${enumeration.repr_type})]
pub enum ${enumeration.name} {
'''
default = '''
/// ${value.description}
${value.label},
'''
valued = '''
/// ${value.description}
${value.label} = ${value.value:#x},
'''
footer = '''
}
pub type ${enumeration.name}_slice = [u8; ${enumeration.size}];
impl From<${enumeration.name}> for ${enumeration.name}_slice {
fn from(value: ${enumeration.name}) -> Self {
(value as ${enumeration.repr_type}).to_be_bytes()
}
}
impl TryFrom<&[u8]> for ${enumeration.name} {
type Error = DecodeError;
fn try_from(value: &[u8]) -> Result<Self, Self::Error> {
if value.len() != ${enumeration.size} {
return Err(DecodeError::InvalidLength);
}
match ${enumeration.repr_type}::from_be_bytes(value.try_into().unwrap()) {
${enumeration.matches}
_ => Err(DecodeError::UnknownSymbol),
}
}
}

'''

[bit_field]
type_name = '${bit_field.name}'
header = '''
/// ${bit_field.display_name}
/// ${bit_field.description}
#[derive(Debug, Clone, PartialEq, serde::Serialize, serde::Deserialize)]
pub struct ${bit_field.name} {
'''
footer = '''
}

'''

[bit_field.members]
reserved = ''

[bit_field.members.default]
definition = '''
/// ${member.description}
pub ${member.name}: ${member.type},
'''

[bit_field.members.bool]
definition = '''
/// ${member.description}
pub ${member.name}: bool,
'''

[bit_field.members.uint]
definition = '''
/// ${member.description}
pub ${member.name}: u${bit_field.size*8},
'''

[bit_field.members.int]
definition = '''
/// ${member.description}
pub ${member.name}: i${bit_field.size*8},
'''
`
