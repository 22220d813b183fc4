package codec

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"

	"structwriter/internal/diag"
	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

const thermostatTOML = `
[temperature_units]
type = "enum"
size = 1
values = [{ label = "c" }, { label = "f" }]

[cmd_reset]
type = "structure"
size = 0
groups.commands = { name = "reset", value = 1 }

[cmd_temperature_set]
type = "structure"
size = 5
members = [
    { name = "temperature", type = "int", size = 4 },
    { name = "units", type = "temperature_units" },
]
groups.commands = { name = "temperature_set", value = 2 }

[commands]
type = "group"
size = 1

[hvac_state]
type = "bit_field"
size = 1
members = [
    { name = "fan_enabled", type = "bool", start = 0 },
    { name = "ac_enabled", type = "bool", start = 1 },
    { name = "heat_enabled", type = "bool", start = 2 },
    { name = "units", type = "temperature_units", start = 3 },
]
`

func newTestCodec(t *testing.T, content string) *Codec {
	t.Helper()
	path := filepath.Join(t.TempDir(), "defs.toml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
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
	return New(set, plan)
}

func TestEncode_GroupZeroFillsToFixedWidth(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	// The reset command has an empty payload, yet it still encodes to the
	// full group width: one tag byte plus the largest payload.
	got, err := c.Encode("commands", map[string]any{"cmd_reset": map[string]any{}})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{1, 0, 0, 0, 0, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(reset) = %v, want %v", got, want)
	}
}

func TestEncode_GroupPayload(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	got, err := c.Encode("commands", map[string]any{
		"cmd_temperature_set": map[string]any{
			"temperature": 75,
			"units":       "f",
		},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{2, 0, 0, 0, 75, 1}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode(temperature_set) = %v, want %v", got, want)
	}
}

func TestEncode_NegativeIntBigEndian(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	got, err := c.Encode("commands", map[string]any{
		"cmd_temperature_set": map[string]any{
			"temperature": -5,
			"units":       "c",
		},
	})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{2, 0xff, 0xff, 0xff, 0xfb, 0}
	if !bytes.Equal(got, want) {
		t.Errorf("Encode = %v, want %v", got, want)
	}
}

func TestDecode_GroupRoundTrip(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	value := map[string]any{
		"cmd_temperature_set": map[string]any{
			"temperature": int64(75),
			"units":       "f",
		},
	}
	data, err := c.Encode("commands", value)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	decoded, err := c.Decode("commands", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(value, decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecode_UnknownTag(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	_, err := c.Decode("commands", []byte{9, 0, 0, 0, 0, 0})
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Kind != DecodeUnknownTag {
		t.Fatalf("Decode = %v, want DecodeUnknownTag", err)
	}
}

func TestDecode_InvalidLength(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	for _, data := range [][]byte{{1}, {1, 0, 0, 0, 0, 0, 0}, nil} {
		_, err := c.Decode("commands", data)
		var derr *DecodeError
		if !errors.As(err, &derr) || derr.Kind != DecodeInvalidLength {
			t.Errorf("Decode(%d bytes) = %v, want DecodeInvalidLength", len(data), err)
		}
	}
}

func TestDecode_UnknownEnumValue(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	// Valid tag, but the units byte matches no symbol.
	_, err := c.Decode("commands", []byte{2, 0, 0, 0, 75, 9})
	var derr *DecodeError
	if !errors.As(err, &derr) || derr.Kind != DecodeUnknownSymbol {
		t.Fatalf("Decode = %v, want DecodeUnknownSymbol", err)
	}
}

func TestEncode_UnknownGroupMember(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	_, err := c.Encode("commands", map[string]any{"cmd_self_destruct": map[string]any{}})
	var eerr *EncodeError
	if !errors.As(err, &eerr) {
		t.Fatalf("Encode = %v, want *EncodeError", err)
	}
}

func TestEncode_IntRange(t *testing.T) {
	c := newTestCodec(t, `
[tiny]
type = "structure"
size = 1
members = [{ name = "n", type = "int", size = 1 }]
`)
	if _, err := c.Encode("tiny", map[string]any{"n": 127}); err != nil {
		t.Errorf("127 should fit in a signed byte: %v", err)
	}
	if _, err := c.Encode("tiny", map[string]any{"n": 128}); err == nil {
		t.Error("128 must not fit in a signed byte")
	}
	if _, err := c.Encode("tiny", map[string]any{"n": -128}); err != nil {
		t.Errorf("-128 should fit in a signed byte: %v", err)
	}
}

func TestEncodeDecode_StrPadding(t *testing.T) {
	c := newTestCodec(t, `
[label]
type = "structure"
size = 8
members = [{ name = "text", type = "str", size = 8 }]
`)
	data, err := c.Encode("label", map[string]any{"text": "abc"})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	want := []byte{'a', 'b', 'c', 0, 0, 0, 0, 0}
	if !bytes.Equal(data, want) {
		t.Fatalf("Encode = %v, want %v", data, want)
	}
	decoded, err := c.Decode("label", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	m := decoded.(map[string]any)
	if m["text"] != "abc" {
		t.Errorf("decoded text = %q, want %q", m["text"], "abc")
	}
}

func TestBitfield_PacksLSBFirst(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	state := map[string]any{
		"fan_enabled":  true,
		"ac_enabled":   true,
		"heat_enabled": false,
		"units":        "f",
	}
	data, err := c.Encode("hvac_state", state)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// fan bit 0, ac bit 1, units bit 3.
	want := []byte{0x0b}
	if !bytes.Equal(data, want) {
		t.Fatalf("Encode = %#x, want %#x", data, want)
	}

	decoded, err := c.Decode("hvac_state", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if diff := cmp.Diff(map[string]any(state), decoded); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestBitfield_MultiByteLittleEndian(t *testing.T) {
	c := newTestCodec(t, `
[wide]
type = "bit_field"
size = 2
members = [
    { name = "low", type = "uint", bits = 4, start = 0 },
    { name = "high", type = "uint", bits = 4, start = 12 },
]
`)
	data, err := c.Encode("wide", map[string]any{"low": 0x3, "high": 0x9})
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	// Bit 0 lives in byte 0; bit 12 lives in byte 1.
	want := []byte{0x03, 0x90}
	if !bytes.Equal(data, want) {
		t.Errorf("Encode = %#x, want %#x", data, want)
	}
}

func TestBitfield_ValueTooWide(t *testing.T) {
	c := newTestCodec(t, `
[state]
type = "bit_field"
size = 1
members = [{ name = "n", type = "uint", bits = 2, start = 0 }]
`)
	if _, err := c.Encode("state", map[string]any{"n": 4}); err == nil {
		t.Error("4 must not fit in 2 bits")
	}
}

func TestBitfield_SignedSpanRange(t *testing.T) {
	c := newTestCodec(t, `
[state]
type = "bit_field"
size = 1
members = [{ name = "offset", type = "int", bits = 2, start = 0 }]
`)
	// A 2-bit signed span covers -2..1; anything below the lower bound
	// must be rejected instead of wrapping.
	data, err := c.Encode("state", map[string]any{"offset": -2})
	if err != nil {
		t.Fatalf("-2 should fit in 2 signed bits: %v", err)
	}
	decoded, err := c.Decode("state", data)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if m := decoded.(map[string]any); m["offset"] != int64(-2) {
		t.Errorf("decoded offset = %v, want -2", m["offset"])
	}
	if _, err := c.Encode("state", map[string]any{"offset": -5}); err == nil {
		t.Error("-5 must not fit in 2 signed bits")
	}
}

func TestBitfield_NegativeUintRejected(t *testing.T) {
	c := newTestCodec(t, `
[state]
type = "bit_field"
size = 1
members = [{ name = "n", type = "uint", bits = 2, start = 0 }]
`)
	if _, err := c.Encode("state", map[string]any{"n": -1}); err == nil {
		t.Error("a negative value must not encode into a uint span")
	}
}

func TestEncode_MissingMember(t *testing.T) {
	c := newTestCodec(t, thermostatTOML)

	_, err := c.Encode("commands", map[string]any{
		"cmd_temperature_set": map[string]any{"temperature": 75},
	})
	var eerr *EncodeError
	if !errors.As(err, &eerr) || eerr.Field != "units" {
		t.Fatalf("Encode = %v, want EncodeError on field units", err)
	}
}
