package rust

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"structwriter/internal/backend"
	"structwriter/internal/diag"
	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

const thermostatTOML = `
[file]
brief = "Thermostat messages"
description = "Command and state definitions."

[temperature_units]
type = "enum"
description = "Units used for temperatures"
size = 1
values = [{ label = "c" }, { label = "f" }]

[cmd_reset]
type = "structure"
description = "Reset the thermostat"
size = 0
groups.commands = { name = "reset", value = 1 }

[cmd_temperature_set]
type = "structure"
description = "Set the target temperature"
size = 5
members = [
    { name = "temperature", type = "int", size = 4, description = "Target temperature" },
    { name = "units", type = "temperature_units", description = "Units for the target" },
]
groups.commands = { name = "temperature_set", value = 2 }

[commands]
type = "group"
description = "Commands accepted by the thermostat"
size = 1

[hvac_state]
type = "bit_field"
description = "Current heating and cooling state"
size = 1
members = [
    { name = "fan_enabled", type = "bool", start = 0, description = "Fan is on" },
    { name = "ac_enabled", type = "bool", start = 1, description = "AC is on" },
    { name = "heat_enabled", type = "bool", start = 2, description = "Heater is on" },
    { name = "units", type = "temperature_units", start = 3, description = "Units for display" },
]
`

func render(t *testing.T, toml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.toml")
	if err := os.WriteFile(path, []byte(toml), 0o644); err != nil {
		t.Fatal(err)
	}
	bag := diag.NewBag(50)
	r := diag.NewBagReporter(bag)
	set, ok := schema.Load(context.Background(), []string{path}, r)
	if !ok {
		t.Fatalf("schema failed: %v", bag.Items())
	}
	plan, ok := layout.New(set).Compute(r)
	if !ok {
		t.Fatalf("layout failed: %v", bag.Items())
	}

	ren, found := backend.Lookup("rust")
	if !found {
		t.Fatal("rust renderer not registered")
	}
	templates, err := ren.DefaultTemplate()
	if err != nil {
		t.Fatalf("DefaultTemplate: %v", err)
	}
	out, err := ren.Render(backend.Request{
		Defs:       set,
		Plan:       plan,
		Templates:  templates,
		OutputPath: "thermostat.rs",
	})
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	return out
}

func TestRender_Enum(t *testing.T) {
	out := render(t, thermostatTOML)
	for _, snippet := range []string{
		"#[repr(u8)]",
		"pub enum temperature_units {",
		"0x0 => Ok(temperature_units::c),",
		"0x1 => Ok(temperature_units::f),",
		"pub type temperature_units_slice = [u8; 1];",
		"_ => Err(DecodeError::UnknownSymbol),",
	} {
		if !strings.Contains(out, snippet) {
			t.Errorf("output missing %q", snippet)
		}
	}
}

func TestRender_SignedEnumRepr(t *testing.T) {
	out := render(t, `
[offsets]
type = "enum"
description = "Signed calibration offsets"
signed = true
size = 2
values = [
    { label = "below", value = -1 },
    { label = "zero", value = 0 },
]
`)
	if !strings.Contains(out, "#[repr(i16)]") {
		t.Errorf("signed enum did not get a signed repr:\n%s", out)
	}
	if !strings.Contains(out, "-0x1 => Ok(offsets::below),") {
		t.Errorf("negative match arm missing:\n%s", out)
	}
}

func TestRender_StructureSliceImpls(t *testing.T) {
	out := render(t, thermostatTOML)
	for _, snippet := range []string{
		"pub struct cmd_temperature_set {",
		"pub temperature: i32,",
		"pub units: temperature_units,",
		"pub type cmd_temperature_set_slice = [u8; 5];",
		"buf[0..4].copy_from_slice(&value.temperature.to_be_bytes());",
		"let units_bytes: temperature_units_slice = value.units.clone().into();",
		"let temperature = i32::from_be_bytes(value[0..4].try_into().unwrap());",
		"let units = temperature_units::try_from(&value[4..5])?;",
		"Ok(cmd_temperature_set { temperature, units })",
	} {
		if !strings.Contains(out, snippet) {
			t.Errorf("output missing %q", snippet)
		}
	}
}

func TestRender_GroupEnum(t *testing.T) {
	out := render(t, thermostatTOML)
	for _, snippet := range []string{
		"pub enum commands {",
		"reset(cmd_reset),",
		"temperature_set(cmd_temperature_set),",
		"pub type commands_slice = [u8; 6];",
		"commands::reset(_) => 0x1,",
		"buf[..1].copy_from_slice(&(0x1_u8).to_be_bytes());",
		"0x1 => Ok(commands::reset(cmd_reset::try_from(&value[1..1])?)),",
		"0x2 => Ok(commands::temperature_set(cmd_temperature_set::try_from(&value[1..6])?)),",
		"_ => Err(DecodeError::UnknownTag),",
	} {
		if !strings.Contains(out, snippet) {
			t.Errorf("output missing %q", snippet)
		}
	}
}

func TestRender_BitFieldIsSerdeOnly(t *testing.T) {
	out := render(t, thermostatTOML)
	for _, snippet := range []string{
		"pub struct hvac_state {",
		"pub fan_enabled: bool,",
		"pub units: temperature_units,",
	} {
		if !strings.Contains(out, snippet) {
			t.Errorf("output missing %q", snippet)
		}
	}
	// Reserved padding is a wire concern; it has no field in the record.
	if strings.Contains(out, "reserved_4") {
		t.Error("reserved span leaked into the Rust record")
	}
}

func TestRender_DecodeErrorDeclaredOnce(t *testing.T) {
	out := render(t, thermostatTOML)
	if n := strings.Count(out, "pub enum DecodeError {"); n != 1 {
		t.Errorf("DecodeError declared %d times", n)
	}
}
