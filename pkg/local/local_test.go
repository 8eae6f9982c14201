package local

import (
	"testing"

	"fcc/pkg/asg"
	"fcc/pkg/ast"
	"fcc/pkg/symtab"
	"fcc/pkg/types"
)

func ident(name string, typ types.Flags) *ast.Identifier {
	return &ast.Identifier{Lexeme: name, Sym: &symtab.Symbol{ID: name, Type: typ}, Typ: typ}
}

func TestScanMarksUsedFromStatementNotDeclaration(t *testing.T) {
	a := ident("a", types.Int)
	b := ident("b", types.Int)

	declA := &asg.Declaration{Expr: a}
	declB := &asg.Declaration{Expr: b}
	useA := &asg.Statement{Expr: &ast.BinaryOp{Op: ast.OpAssign, Left: a, Right: &ast.Constant{Value: 5, Typ: types.Int}}}
	ret := &asg.Return{Value: a}

	var head asg.Node
	head = asg.Append(head, declA, func(string) {})
	head = asg.Append(head, declB, func(string) {})
	head = asg.Append(head, useA, func(string) {})
	head = asg.Append(head, ret, func(string) {})

	var warnings []string
	scanner := NewScanner()
	locals, total := scanner.Scan(head, func(msg string) { warnings = append(warnings, msg) })

	if len(locals) != 1 || locals[0].Name != "a" {
		t.Fatalf("locals = %v, want only 'a' used", locals)
	}
	if total != 4 {
		t.Errorf("total frame size = %d, want 4", total)
	}
	if len(warnings) != 1 {
		t.Fatalf("warnings = %v, want exactly one unused-variable warning", warnings)
	}
}

func TestDeclarationInitializerAloneDoesNotCountAsUse(t *testing.T) {
	a := ident("a", types.Int)
	declWithInit := &asg.Declaration{Expr: &ast.BinaryOp{Op: ast.OpAssign, Left: a, Right: &ast.Constant{Value: 1, Typ: types.Int}}}

	var head asg.Node
	head = asg.Append(head, declWithInit, func(string) {})

	var warned bool
	scanner := NewScanner()
	locals, _ := scanner.Scan(head, func(string) { warned = true })

	if len(locals) != 0 {
		t.Errorf("locals = %v, want none (initializer alone is not a use)", locals)
	}
	if !warned {
		t.Error("expected unused-variable warning for a declared-but-never-read local")
	}
}

func TestLayoutAlignmentAndRounding(t *testing.T) {
	c := ident("c", types.Char)
	i := ident("i", types.Int)

	declC := &asg.Declaration{Expr: c}
	declI := &asg.Declaration{Expr: i}
	use := &asg.Statement{Expr: &ast.BinaryOp{
		Op:   ast.OpAssign,
		Left: i,
		Right: &ast.BinaryOp{Op: ast.OpAdd, Left: c, Right: &ast.Constant{Value: 1, Typ: types.Int}},
	}}

	var head asg.Node
	head = asg.Append(head, declC, func(string) {})
	head = asg.Append(head, declI, func(string) {})
	head = asg.Append(head, use, func(string) {})

	scanner := NewScanner()
	locals, total := scanner.Scan(head, func(string) {})

	if len(locals) != 2 {
		t.Fatalf("locals = %v, want both c and i used", locals)
	}
	if locals[0].Offset != 1 {
		t.Errorf("c offset = %d, want 1", locals[0].Offset)
	}
	if locals[1].Offset != 8 {
		t.Errorf("i offset = %d, want 8 (aligned past char then +4)", locals[1].Offset)
	}
	if total != 8 {
		t.Errorf("total = %d, want 8 (already a multiple of 4)", total)
	}
}

// TestScanMarksUsedInsideLoopBody exercises a local referenced only inside
// a For.Body: int f(void){ int i,t; for(i=0;i<10;i=i+1) t=i; return 0; }
// A flat top-level walk never sees "t" since its only use lives inside the
// loop body, which branches off the main chain rather than continuing it.
func TestScanMarksUsedInsideLoopBody(t *testing.T) {
	i := ident("i", types.Int)
	tv := ident("t", types.Int)

	declI := &asg.Declaration{Expr: i}
	declT := &asg.Declaration{Expr: tv}

	var body asg.Node
	body = asg.Append(body, &asg.Statement{
		Expr: &ast.BinaryOp{Op: ast.OpAssign, Left: tv, Right: i},
	}, func(string) {})

	forNode := &asg.For{
		Init: &ast.BinaryOp{Op: ast.OpAssign, Left: i, Right: &ast.Constant{Value: 0, Typ: types.Int}},
		Cond: &ast.BinaryOp{Op: ast.OpLt, Left: i, Right: &ast.Constant{Value: 10, Typ: types.Int}},
		Post: &ast.BinaryOp{Op: ast.OpAssign, Left: i, Right: &ast.BinaryOp{Op: ast.OpAdd, Left: i, Right: &ast.Constant{Value: 1, Typ: types.Int}}},
		Body: body,
	}
	ret := &asg.Return{Value: &ast.Constant{Value: 0, Typ: types.Int}}

	var head asg.Node
	head = asg.Append(head, declI, func(string) {})
	head = asg.Append(head, declT, func(string) {})
	head = asg.Append(head, forNode, func(string) {})
	head = asg.Append(head, ret, func(string) {})

	var warnings []string
	scanner := NewScanner()
	locals, _ := scanner.Scan(head, func(msg string) { warnings = append(warnings, msg) })

	if len(locals) != 2 {
		t.Fatalf("locals = %v, want both i and t used (t is used only inside the loop body)", locals)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}

// TestScanMarksUsedInsideConditionalBranches is the if/else analogue: a
// local assigned only in one branch of a Conditional must still be marked
// used, since Conditional.Success/Failure also branch off the main chain.
func TestScanMarksUsedInsideConditionalBranches(t *testing.T) {
	c := ident("c", types.Int)
	x := ident("x", types.Int)

	var success asg.Node
	success = asg.Append(success, &asg.Statement{
		Expr: &ast.BinaryOp{Op: ast.OpAssign, Left: x, Right: &ast.Constant{Value: 1, Typ: types.Int}},
	}, func(string) {})

	cond := &asg.Conditional{Cond: c, Success: success}

	var head asg.Node
	head = asg.Append(head, &asg.Declaration{Expr: c}, func(string) {})
	head = asg.Append(head, &asg.Declaration{Expr: x}, func(string) {})
	head = asg.Append(head, cond, func(string) {})

	var warnings []string
	scanner := NewScanner()
	locals, _ := scanner.Scan(head, func(msg string) { warnings = append(warnings, msg) })

	if len(locals) != 2 {
		t.Fatalf("locals = %v, want both c and x used", locals)
	}
	if len(warnings) != 0 {
		t.Errorf("warnings = %v, want none", warnings)
	}
}
