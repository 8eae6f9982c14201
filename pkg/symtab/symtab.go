// Package symtab implements the scoped symbol table from spec.md §4.2: a
// stack of name->symbol maps with topmost-scope insertion and top-to-bottom
// lookup.
package symtab

import (
	"fmt"

	"fcc/pkg/types"
)

// Symbol is a named declaration: an identifier and its type.
type Symbol struct {
	ID    string
	Type  types.Flags
	Extra *types.Struct // populated only for STRUCT-typed symbols
}

// Table is a stack of scopes, each a name->Symbol map. The bottom scope
// (index 0) is the global scope; functions are always added there.
type Table struct {
	scopes []map[string]*Symbol
}

// New creates a table with its global scope already open.
func New() *Table {
	t := &Table{}
	t.NewScope()
	return t
}

// NewScope pushes a fresh, empty scope onto the stack.
func (t *Table) NewScope() {
	t.scopes = append(t.scopes, make(map[string]*Symbol))
}

// DestroyScope drops all entries of the topmost scope and pops it.
func (t *Table) DestroyScope() {
	if len(t.scopes) == 0 {
		return
	}
	t.scopes = t.scopes[:len(t.scopes)-1]
}

// Lookup walks scopes top to bottom and returns the first match.
func (t *Table) Lookup(name string) (*Symbol, bool) {
	for i := len(t.scopes) - 1; i >= 0; i-- {
		if sym, ok := t.scopes[i][name]; ok {
			return sym, true
		}
	}
	return nil, false
}

// LookupCurrentScope checks only the topmost scope.
func (t *Table) LookupCurrentScope(name string) (*Symbol, bool) {
	if len(t.scopes) == 0 {
		return nil, false
	}
	sym, ok := t.scopes[len(t.scopes)-1][name]
	return sym, ok
}

// Add inserts name into the topmost scope. An empty typ defaults to
// (INT, nil). Redeclaring a name already present in the topmost scope is
// an error; a name shadowing an outer scope is allowed.
func (t *Table) Add(name string, typ types.Flags) (*Symbol, error) {
	if _, exists := t.LookupCurrentScope(name); exists {
		return nil, fmt.Errorf("%q already declared in this scope", name)
	}
	if typ == 0 {
		typ = types.Int
	}
	sym := &Symbol{ID: name, Type: typ}
	t.scopes[len(t.scopes)-1][name] = sym
	return sym, nil
}

// AddFunction inserts a function symbol into the global (bottom) scope,
// ORing in the function-property bit. Parameter types are not retained by
// the symbol itself (the ASG/AST track them via the parameter locals).
func (t *Table) AddFunction(name string, retType types.Flags) (*Symbol, error) {
	global := t.scopes[0]
	if _, exists := global[name]; exists {
		return nil, fmt.Errorf("function %q already declared", name)
	}
	sym := &Symbol{ID: name, Type: retType | types.FuncBit}
	global[name] = sym
	return sym, nil
}
