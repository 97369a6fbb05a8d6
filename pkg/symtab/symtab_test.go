package symtab

import "testing"

func TestDefineAndLookupLocal(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "LOOP", 100, false); err != nil {
		t.Fatalf("define: %v", err)
	}
	v, ok := tab.Lookup("a.mac", "LOOP")
	if !ok || v != 100 {
		t.Fatalf("got %v, %v; want 100, true", v, ok)
	}
	if _, ok := tab.Lookup("b.mac", "LOOP"); ok {
		t.Fatal("local label from a.mac must not be visible from b.mac")
	}
}

func TestExternLabelVisibleEverywhere(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "START", 0, true); err != nil {
		t.Fatalf("define: %v", err)
	}
	if v, ok := tab.Lookup("b.mac", "START"); !ok || v != 0 {
		t.Fatalf("extern label must resolve from any file, got %v, %v", v, ok)
	}
}

func TestDuplicateLocalLabelRejected(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "X", 1, false); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := tab.Define("a.mac", "X", 2, false); err == nil {
		t.Fatal("expected duplicate-local error")
	}
}

func TestDuplicateGlobalLabelRejected(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "X", 1, true); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := tab.Define("b.mac", "X", 2, true); err == nil {
		t.Fatal("expected duplicate-global error")
	}
}

func TestExternCollidesWithExistingLocal(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "X", 1, false); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := tab.Define("b.mac", "X", 2, true); err == nil {
		t.Fatal("expected extern-vs-local collision error")
	}
}

func TestLocalCollidesWithExistingGlobal(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "X", 1, true); err != nil {
		t.Fatalf("define: %v", err)
	}
	if err := tab.Define("b.mac", "X", 2, false); err == nil {
		t.Fatal("expected local-vs-global collision error")
	}
}

func TestSameLocalNameInDifferentFilesCoexist(t *testing.T) {
	tab := New()
	if err := tab.Define("a.mac", "LOOP", 1, false); err != nil {
		t.Fatalf("define a: %v", err)
	}
	if err := tab.Define("b.mac", "LOOP", 2, false); err != nil {
		t.Fatalf("define b: %v", err)
	}
	va, _ := tab.Lookup("a.mac", "LOOP")
	vb, _ := tab.Lookup("b.mac", "LOOP")
	if va != 1 || vb != 2 {
		t.Fatalf("got %v, %v; want 1, 2", va, vb)
	}
}

func TestKeysCoverBareAndQualified(t *testing.T) {
	tab := New()
	tab.Define("a.mac", "START", 0, true)
	keys := tab.Keys()
	found := map[string]bool{}
	for _, k := range keys {
		found[k] = true
	}
	if !found["START"] || !found["a.mac:START"] {
		t.Fatalf("expected both bare and qualified keys, got %v", keys)
	}
}
