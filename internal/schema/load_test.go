package schema

import (
	"testing"
)

func TestLoadDocument_JSONKeepsKeyOrder(t *testing.T) {
	path := writeDoc(t, "defs.json", `{
  "zeta": { "type": "structure", "size": 0 },
  "alpha": { "type": "structure", "size": 0 },
  "mid": { "type": "group" }
}`)
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"zeta", "alpha", "mid"}
	for i, name := range want {
		if doc.Order[i] != name {
			t.Errorf("Order[%d] = %q, want %q", i, doc.Order[i], name)
		}
	}
}

func TestLoadDocument_YAMLKeepsKeyOrder(t *testing.T) {
	path := writeDoc(t, "defs.yaml", `
zeta:
  type: structure
  size: 0
alpha:
  type: enum
  size: 1
  values:
    - label: x
`)
	doc, err := LoadDocument(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(doc.Order) != 2 || doc.Order[0] != "zeta" || doc.Order[1] != "alpha" {
		t.Errorf("Order = %v", doc.Order)
	}
	// Nested YAML values must normalize to plain string-keyed maps.
	def, ok := doc.Defs["alpha"].(map[string]any)
	if !ok {
		t.Fatalf("alpha decoded as %T", doc.Defs["alpha"])
	}
	if def["type"] != "enum" {
		t.Errorf("alpha.type = %v", def["type"])
	}
}

func TestLoadDocument_UnsupportedExtension(t *testing.T) {
	path := writeDoc(t, "defs.ini", "[x]\n")
	if _, err := LoadDocument(path); err == nil {
		t.Fatal("LoadDocument should reject unknown formats")
	}
}

func TestLoadDocument_MalformedTOML(t *testing.T) {
	path := writeDoc(t, "defs.toml", "[broken\n")
	if _, err := LoadDocument(path); err == nil {
		t.Fatal("LoadDocument should surface decode failures")
	}
}
