package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestWriteFileAtomic(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.h")

	if err := writeFileAtomic(path, []byte("first\n")); err != nil {
		t.Fatalf("writeFileAtomic: %v", err)
	}
	if err := writeFileAtomic(path, []byte("second\n")); err != nil {
		t.Fatalf("writeFileAtomic overwrite: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "second\n" {
		t.Errorf("content = %q", data)
	}

	// No staging temp files may survive.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("directory holds %d entries, want just the output", len(entries))
	}
}

func TestLoadTemplateTree(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "overlay.toml")
	err := os.WriteFile(path, []byte("[structure]\nfooter = \"}; // custom\\n\"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	tree, err := loadTemplateTree(path)
	if err != nil {
		t.Fatalf("loadTemplateTree: %v", err)
	}
	structure, ok := tree["structure"].(map[string]any)
	if !ok {
		t.Fatalf("structure decoded as %T", tree["structure"])
	}
	if structure["footer"] != "}; // custom\n" {
		t.Errorf("footer = %q", structure["footer"])
	}
}

func TestLoadTemplateTree_UnsupportedFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "overlay.ini")
	if err := os.WriteFile(path, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := loadTemplateTree(path); err == nil {
		t.Fatal("loadTemplateTree should reject unknown formats")
	}
}

func TestReadValueDocument(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "value.toml")
	err := os.WriteFile(path, []byte("[cmd_temperature_set]\ntemperature = 75\nunits = \"f\"\n"), 0o644)
	if err != nil {
		t.Fatal(err)
	}
	v, err := readValueDocument(path)
	if err != nil {
		t.Fatalf("readValueDocument: %v", err)
	}
	m, ok := v.(map[string]any)
	if !ok {
		t.Fatalf("value decoded as %T", v)
	}
	if _, present := m["cmd_temperature_set"]; !present {
		t.Errorf("payload key missing: %v", m)
	}
}

func TestDecodeInputBytes_Hex(t *testing.T) {
	decodeInput = ""
	data, err := decodeInputBytes([]string{"0x0100 00 00 00 00"})
	if err != nil {
		t.Fatalf("decodeInputBytes: %v", err)
	}
	want := []byte{1, 0, 0, 0, 0, 0}
	if len(data) != len(want) {
		t.Fatalf("decoded %d bytes, want %d", len(data), len(want))
	}
	for i := range want {
		if data[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, data[i], want[i])
		}
	}
}

func TestDecodeInputBytes_NoInput(t *testing.T) {
	decodeInput = ""
	if _, err := decodeInputBytes(nil); err == nil {
		t.Fatal("decodeInputBytes should fail without input")
	}
}
