package render

import "testing"

func TestMerge_OverridesSingleFragment(t *testing.T) {
	dst := map[string]any{
		"structure": map[string]any{
			"header": "typedef struct ${structure.name}_s{\n",
			"footer": "} ${structure.name}_t;\n",
		},
	}
	src := map[string]any{
		"structure": map[string]any{
			"footer": "}; // custom\n",
		},
	}
	out := Merge(dst, src)

	header, ok := Fragment(out, "structure", "header")
	if !ok {
		t.Fatal("header fragment lost after merge")
	}
	if got := header.SafeRender(nil); got != "typedef struct ${structure.name}_s{\n" {
		t.Errorf("header changed by merge: %q", got)
	}
	footer, _ := Fragment(out, "structure", "footer")
	if got := footer.SafeRender(nil); got != "}; // custom\n" {
		t.Errorf("footer not overridden: %q", got)
	}
}

func TestMerge_NilDestination(t *testing.T) {
	out := Merge(nil, map[string]any{"file": map[string]any{"header": "x"}})
	if _, ok := Fragment(out, "file", "header"); !ok {
		t.Error("fragment missing after merge into nil")
	}
}

func TestFragment_MissingPath(t *testing.T) {
	tree := map[string]any{"enum": map[string]any{"header": "..."}}
	if _, ok := Fragment(tree, "enum", "footer"); ok {
		t.Error("Fragment reported a missing path as present")
	}
	if _, ok := Fragment(tree, "enum"); ok {
		t.Error("Fragment treated a table as fragment text")
	}
}

func TestSection(t *testing.T) {
	tree := map[string]any{
		"structure": map[string]any{
			"members": map[string]any{"default": "x"},
		},
	}
	members, ok := Section(tree, "structure", "members")
	if !ok {
		t.Fatal("Section did not find structure.members")
	}
	if _, present := members["default"]; !present {
		t.Error("section content lost")
	}
}
