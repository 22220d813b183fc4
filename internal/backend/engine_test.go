package backend

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"structwriter/internal/diag"
	"structwriter/internal/layout"
	"structwriter/internal/schema"
)

func testRequest(t *testing.T, toml string, templates map[string]any) Request {
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
	return Request{Defs: set, Plan: plan, Templates: templates, OutputPath: "out.h"}
}

const twoUnitsTOML = `
[a]
type = "structure"
size = 0

[b]
type = "structure"
size = 0
`

func unitTemplates() map[string]any {
	return map[string]any{
		"structure": map[string]any{
			"header": "S:${structure.name}\n",
			"members": map[string]any{
				"empty": "",
			},
		},
	}
}

func TestRenderFile_DeclarationOrder(t *testing.T) {
	req := testRequest(t, twoUnitsTOML, unitTemplates())
	out, err := NewEngine(req, Hooks{}).RenderFile()
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	if out != "S:a\nS:b\n" {
		t.Errorf("RenderFile = %q", out)
	}
}

func TestRenderFile_PinnedOrder(t *testing.T) {
	templates := unitTemplates()
	templates["file"] = map[string]any{"order": []any{"b"}}
	req := testRequest(t, twoUnitsTOML, templates)
	out, err := NewEngine(req, Hooks{}).RenderFile()
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	// Pinned entities come first; nothing renders twice.
	if out != "S:b\nS:a\n" {
		t.Errorf("RenderFile = %q", out)
	}
}

func TestRenderFile_PinnedOrderUnknownEntity(t *testing.T) {
	templates := unitTemplates()
	templates["file"] = map[string]any{"order": []any{"ghost"}}
	req := testRequest(t, twoUnitsTOML, templates)
	_, err := NewEngine(req, Hooks{}).RenderFile()
	var unknown *UnknownEntityError
	if !errors.As(err, &unknown) || unknown.Name != "ghost" {
		t.Fatalf("RenderFile = %v, want UnknownEntityError for ghost", err)
	}
}

func TestRenderStructure_MemberTypeFragmentWinsOverDefault(t *testing.T) {
	req := testRequest(t, `
[rec]
type = "structure"
size = 3
members = [
    { name = "n", type = "uint", size = 2 },
    { name = "flag", type = "bool", size = 1 },
]
`, map[string]any{
		"structure": map[string]any{
			"header": "",
			"members": map[string]any{
				"default": "default ${member.name};\n",
				"uint":    "uint${member.size*8} ${member.name};\n",
			},
		},
	})
	out, err := NewEngine(req, Hooks{}).RenderFile()
	if err != nil {
		t.Fatalf("RenderFile: %v", err)
	}
	if out != "uint16 n;\ndefault flag;\n" {
		t.Errorf("RenderFile = %q", out)
	}
}

type fakeRenderer struct{ lang string }

func (f fakeRenderer) Language() string                        { return f.lang }
func (f fakeRenderer) DefaultTemplate() (map[string]any, error) { return map[string]any{}, nil }
func (f fakeRenderer) Render(Request) (string, error)          { return "", nil }

func TestRegistry(t *testing.T) {
	Register(fakeRenderer{lang: "zz-test"})
	if _, ok := Lookup("zz-test"); !ok {
		t.Error("registered renderer not found")
	}
	if _, ok := Lookup("zz-missing"); ok {
		t.Error("Lookup invented a renderer")
	}
	found := false
	for _, lang := range Languages() {
		if lang == "zz-test" {
			found = true
		}
	}
	if !found {
		t.Errorf("Languages() = %v, missing zz-test", Languages())
	}
}
