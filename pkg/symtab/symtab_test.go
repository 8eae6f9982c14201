package symtab

import (
	"testing"

	"fcc/pkg/types"
)

func TestAddAndLookup(t *testing.T) {
	tab := New()
	sym, err := tab.Add("x", types.Int)
	if err != nil {
		t.Fatalf("Add failed: %v", err)
	}
	got, ok := tab.Lookup("x")
	if !ok || got != sym {
		t.Fatalf("Lookup(x) = %v, %v, want %v, true", got, ok, sym)
	}
}

func TestAddDuplicateInSameScopeErrors(t *testing.T) {
	tab := New()
	if _, err := tab.Add("x", types.Int); err != nil {
		t.Fatalf("first Add failed: %v", err)
	}
	if _, err := tab.Add("x", types.Int); err == nil {
		t.Error("expected error redeclaring x in same scope")
	}
}

func TestShadowingAcrossScopes(t *testing.T) {
	tab := New()
	outer, _ := tab.Add("x", types.Int)
	tab.NewScope()
	inner, err := tab.Add("x", types.Char)
	if err != nil {
		t.Fatalf("shadowing Add should succeed: %v", err)
	}
	got, _ := tab.Lookup("x")
	if got != inner {
		t.Error("Lookup should find innermost scope's x")
	}
	tab.DestroyScope()
	got, _ = tab.Lookup("x")
	if got != outer {
		t.Error("Lookup after DestroyScope should find outer x")
	}
}

func TestLookupCurrentScopeOnlyChecksTop(t *testing.T) {
	tab := New()
	tab.Add("x", types.Int)
	tab.NewScope()
	if _, ok := tab.LookupCurrentScope("x"); ok {
		t.Error("LookupCurrentScope should not see outer scope's x")
	}
	if _, ok := tab.Lookup("x"); !ok {
		t.Error("Lookup should still see outer scope's x")
	}
}

func TestAddFunctionGoesToGlobalScope(t *testing.T) {
	tab := New()
	tab.NewScope()
	sym, err := tab.AddFunction("main", types.Int)
	if err != nil {
		t.Fatalf("AddFunction failed: %v", err)
	}
	if !sym.Type.IsFunc() {
		t.Error("function symbol should have FuncBit set")
	}
	tab.DestroyScope()
	got, ok := tab.Lookup("main")
	if !ok || got != sym {
		t.Error("function symbol should be visible from global scope after inner scope destroyed")
	}
}

func TestAddFunctionDuplicateErrors(t *testing.T) {
	tab := New()
	if _, err := tab.AddFunction("main", types.Int); err != nil {
		t.Fatalf("first AddFunction failed: %v", err)
	}
	if _, err := tab.AddFunction("main", types.Int); err == nil {
		t.Error("expected error redeclaring function main")
	}
}

func TestAddDefaultsToInt(t *testing.T) {
	tab := New()
	sym, _ := tab.Add("x", 0)
	if sym.Type != types.Int {
		t.Errorf("Add with zero typ = %v, want Int", sym.Type)
	}
}
