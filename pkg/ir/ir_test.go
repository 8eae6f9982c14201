package ir

import (
	"testing"

	"fcc/pkg/ast"
	"fcc/pkg/symtab"
	"fcc/pkg/types"
)

func constInt(v int64) *ast.Constant { return &ast.Constant{Value: v, Typ: types.Int} }

func identInt(name string) *ast.Identifier {
	return &ast.Identifier{Lexeme: name, Sym: &symtab.Symbol{ID: name, Type: types.Int}, Typ: types.Int}
}

func TestParseExprTerminalProducesNoInstruction(t *testing.T) {
	seq := NewSequence()
	target, err := ParseExpr(seq, constInt(5), false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if target != -1 {
		t.Errorf("terminal target = %d, want -1", target)
	}
	if len(seq.Instrs) != 0 {
		t.Errorf("terminal should emit no instructions, got %d", len(seq.Instrs))
	}
}

func TestParseExprConditionalAppendsTest(t *testing.T) {
	seq := NewSequence()
	_, err := ParseExpr(seq, identInt("x"), true)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if len(seq.Instrs) != 1 || seq.Instrs[0].Tag != TagTest {
		t.Fatalf("expected a single TagTest instruction, got %+v", seq.Instrs)
	}
}

func TestParseExprConditionalSkipsTestForComparison(t *testing.T) {
	seq := NewSequence()
	cmp := &ast.BinaryOp{Op: ast.OpLt, Left: identInt("x"), Right: constInt(0), Typ: types.Int}
	_, err := ParseExpr(seq, cmp, true)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	for _, instr := range seq.Instrs {
		if instr.Tag == TagTest {
			t.Error("comparison root should not get a trailing TEST")
		}
	}
}

func TestLowerBinaryBothTerminals(t *testing.T) {
	seq := NewSequence()
	add := &ast.BinaryOp{Op: ast.OpAdd, Left: constInt(2), Right: constInt(3), Typ: types.Int}
	target, err := ParseExpr(seq, add, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if len(seq.Instrs) != 1 {
		t.Fatalf("expected exactly one instruction, got %d", len(seq.Instrs))
	}
	instr := seq.Instrs[0]
	if instr.Tag != TagAdd || instr.Target != target {
		t.Errorf("instr = %+v, want TagAdd targeting %d", instr, target)
	}
}

func TestLowerAssignToIdentifier(t *testing.T) {
	seq := NewSequence()
	x := identInt("x")
	assign := &ast.BinaryOp{Op: ast.OpAssign, Left: x, Right: constInt(7), Typ: types.Int}
	_, err := ParseExpr(seq, assign, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	if len(seq.Instrs) != 1 || seq.Instrs[0].Tag != TagAssign {
		t.Fatalf("expected one TagAssign instruction, got %+v", seq.Instrs)
	}
	if seq.Instrs[0].LHS.Kind != KindAstNode || seq.Instrs[0].LHS.Node != ast.Node(x) {
		t.Errorf("assign LHS should reference identifier x directly, got %+v", seq.Instrs[0].LHS)
	}
}

func TestLowerFuncEmitsPushesInReverseOrder(t *testing.T) {
	seq := NewSequence()
	fnSym := &symtab.Symbol{ID: "f", Type: types.Int | types.FuncBit}
	callee := &ast.Identifier{Lexeme: "f", Sym: fnSym, Typ: fnSym.Type}
	call := &ast.BinaryOp{
		Op:   ast.OpFunc,
		Left: callee,
		Args: []ast.Node{constInt(1), constInt(2), constInt(3)},
		Typ:  types.Int,
	}
	_, err := ParseExpr(seq, call, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}

	var pushes []int64
	for _, instr := range seq.Instrs {
		if instr.Tag == TagPush {
			pushes = append(pushes, instr.LHS.Node.(*ast.Constant).Value)
		}
	}
	want := []int64{3, 2, 1}
	if len(pushes) != len(want) {
		t.Fatalf("pushes = %v, want %v", pushes, want)
	}
	for i := range want {
		if pushes[i] != want[i] {
			t.Errorf("push[%d] = %d, want %d", i, pushes[i], want[i])
		}
	}
	if seq.Instrs[len(seq.Instrs)-1].Tag != TagFunc {
		t.Error("expected final instruction to be TagFunc")
	}
}

func TestLowerCommaReleasesLeftAndReturnsRight(t *testing.T) {
	seq := NewSequence()
	x := identInt("x")
	y := identInt("y")
	left := &ast.BinaryOp{Op: ast.OpAssign, Left: x, Right: constInt(1), Typ: types.Int}
	comma := &ast.BinaryOp{Op: ast.OpComma, Left: left, Right: y, Typ: types.Int}

	target, err := ParseExpr(seq, comma, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	// y is a terminal identifier, materialized via a synthetic UnaryPlus per
	// lowerComma's step 4 handling.
	last := seq.Instrs[len(seq.Instrs)-1]
	if last.Tag != TagUnaryPlus || last.Target != target {
		t.Errorf("expected trailing TagUnaryPlus materializing y, got %+v", last)
	}
}

func TestMemberAccessFoldsIntoNodeOffOperand(t *testing.T) {
	structs := types.NewRegistry()
	desc, err := structs.Create("point", []types.MemberSpec{
		{Name: "x", Type: types.Int},
		{Name: "y", Type: types.Int},
	})
	if err != nil {
		t.Fatalf("struct Create failed: %v", err)
	}
	ptSym := &symtab.Symbol{ID: "pt", Type: types.StructTag, Extra: desc}
	pt := &ast.Identifier{Lexeme: "pt", Sym: ptSym, Typ: types.StructTag}
	access := &ast.BinaryOp{Op: ast.OpMemberAccess, Left: pt, Right: &ast.Member{Name: "y"}, Typ: types.Int}

	assign := &ast.BinaryOp{Op: ast.OpAssign, Left: access, Right: constInt(9), Typ: types.Int}

	seq := NewSequence()
	_, err = ParseExpr(seq, assign, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}
	instr := seq.Instrs[0]
	if instr.LHS.Kind != KindNodeOff || instr.LHS.Offset != 4 {
		t.Errorf("assign LHS = %+v, want NodeOff offset 4 (pt.y)", instr.LHS)
	}
}

// TestArrowMemberAccessLowersToLoadThenRegOff exercises pp->y = 2: the base
// must be loaded into a temp (its pointer VALUE, not its frame slot) before
// the member offset is applied, which is exactly the RegOff addressing
// mode pkg/x86 already implements for a computed base.
func TestArrowMemberAccessLowersToLoadThenRegOff(t *testing.T) {
	structs := types.NewRegistry()
	desc, err := structs.Create("point", []types.MemberSpec{
		{Name: "x", Type: types.Int},
		{Name: "y", Type: types.Int},
	})
	if err != nil {
		t.Fatalf("struct Create failed: %v", err)
	}
	ptrType := types.StructTag.WithIndirection(1)
	ppSym := &symtab.Symbol{ID: "pp", Type: ptrType, Extra: desc}
	pp := &ast.Identifier{Lexeme: "pp", Sym: ppSym, Typ: ptrType}
	access := &ast.BinaryOp{Op: ast.OpMemberAccess, Left: pp, Right: &ast.Member{Name: "y"}, Typ: types.Int, ViaArrow: true}

	assign := &ast.BinaryOp{Op: ast.OpAssign, Left: access, Right: constInt(2), Typ: types.Int}

	seq := NewSequence()
	_, err = ParseExpr(seq, assign, false)
	if err != nil {
		t.Fatalf("ParseExpr failed: %v", err)
	}

	if len(seq.Instrs) != 2 {
		t.Fatalf("expected a TagLoad then TagAssign, got %d instructions: %+v", len(seq.Instrs), seq.Instrs)
	}
	load := seq.Instrs[0]
	if load.Tag != TagLoad || load.LHS.Kind != KindAstNode {
		t.Errorf("first instruction = %+v, want TagLoad of pp itself", load)
	}
	assignInstr := seq.Instrs[1]
	if assignInstr.LHS.Kind != KindRegOff || assignInstr.LHS.Offset != 4 {
		t.Errorf("assign LHS = %+v, want RegOff offset 4 (pp->y) holding the loaded temp", assignInstr.LHS)
	}
	if assignInstr.LHS.Temp != load.Target {
		t.Errorf("assign LHS temp = %d, want the load's target temp %d", assignInstr.LHS.Temp, load.Target)
	}
}

func TestTempPoolAcquireReleaseReuse(t *testing.T) {
	p := newTempPool()
	var acquired []int
	for i := 0; i < NumTempRegs; i++ {
		idx, err := p.acquire()
		if err != nil {
			t.Fatalf("acquire %d failed: %v", i, err)
		}
		acquired = append(acquired, idx)
	}
	if _, err := p.acquire(); err == nil {
		t.Error("expected pool exhaustion error on 32nd acquire")
	}
	p.release(acquired[0])
	idx, err := p.acquire()
	if err != nil {
		t.Fatalf("acquire after release failed: %v", err)
	}
	if idx != acquired[0] {
		t.Errorf("reacquired index = %d, want %d (smallest free)", idx, acquired[0])
	}
}
