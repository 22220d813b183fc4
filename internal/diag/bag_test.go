package diag

import "testing"

func TestBag_AddHonorsCap(t *testing.T) {
	bag := NewBag(2)
	for i := 0; i < 3; i++ {
		added := bag.Add(Diagnostic{Severity: SevError, Code: SchemaMalformedDocument})
		if i < 2 && !added {
			t.Errorf("Add %d rejected below the cap", i)
		}
		if i == 2 && added {
			t.Error("Add accepted past the cap")
		}
	}
	if bag.Len() != 2 {
		t.Errorf("Len = %d, want 2", bag.Len())
	}
}

func TestBag_HasErrors(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevWarning, Code: LayoutEmptyGroup})
	if bag.HasErrors() {
		t.Error("warnings alone must not count as errors")
	}
	bag.Add(Diagnostic{Severity: SevError, Code: LayoutSizeMismatch})
	if !bag.HasErrors() {
		t.Error("HasErrors missed an error diagnostic")
	}
}

func TestBag_SortIsDeterministic(t *testing.T) {
	bag := NewBag(10)
	bag.Add(Diagnostic{Severity: SevWarning, Code: LayoutEmptyGroup, Primary: Context{File: "b.toml"}})
	bag.Add(Diagnostic{Severity: SevError, Code: SchemaUnknownKind, Primary: Context{File: "a.toml", Entity: "x"}})
	bag.Add(Diagnostic{Severity: SevError, Code: SchemaMissingAttribute, Primary: Context{File: "a.toml", Entity: "x"}})
	bag.Sort()

	items := bag.Items()
	if items[0].Primary.File != "a.toml" || items[2].Primary.File != "b.toml" {
		t.Errorf("file order wrong: %v", items)
	}
	// Same location: lower code first.
	if items[0].Code != SchemaMissingAttribute || items[1].Code != SchemaUnknownKind {
		t.Errorf("code order wrong: %v, %v", items[0].Code, items[1].Code)
	}
}

func TestBag_MergeGrowsCap(t *testing.T) {
	a := NewBag(1)
	a.Add(Diagnostic{Severity: SevError})
	b := NewBag(2)
	b.Add(Diagnostic{Severity: SevWarning})
	b.Add(Diagnostic{Severity: SevInfo})
	a.Merge(b)
	if a.Len() != 3 {
		t.Errorf("Len after merge = %d, want 3", a.Len())
	}
}

func TestCode_String(t *testing.T) {
	if got := SchemaDuplicateDefinition.String(); got != "SW1003" {
		t.Errorf("String = %q, want SW1003", got)
	}
	if got := LayoutTagCollision.Family(); got != "layout" {
		t.Errorf("Family = %q, want layout", got)
	}
	if got := GenWriteFailed.Family(); got != "generation" {
		t.Errorf("Family = %q, want generation", got)
	}
}

func TestReportHelpers_NilReporter(t *testing.T) {
	// Must not panic.
	ReportError(nil, SchemaInfo, Context{}, "x")
	ReportWarning(nil, SchemaInfo, Context{}, "x")
	var br *BagReporter
	br.Report(SchemaInfo, SevInfo, Context{}, "x", nil)
}
