// Package ir lowers a single expression AST into a linear list of
// three-address instructions over a bounded pool of virtual temp registers
// (spec.md §4.6). The teacher compiler has no analogous layer — this
// package is grounded directly on the three-address model described by
// the original implementation's ir.h (ir_operand/ir_instruction/
// NUM_TEMP_REGS) and expressed as Go sum types per spec.md §9.
package ir

import (
	"fmt"

	"fcc/pkg/ast"
	"fcc/pkg/types"
)

// NumTempRegs is the size of the virtual temp-register pool (spec.md §3).
const NumTempRegs = 31

// Tag identifies an IR instruction's operation. Every ast.Op has a
// matching Tag of the same name; three extra tags (Test, Push, Load) exist
// only in IR.
type Tag int

const (
	TagComma Tag = iota
	TagAssign
	TagLogicalOr
	TagLogicalAnd
	TagBitOr
	TagBitXor
	TagBitAnd
	TagEq
	TagNe
	TagLt
	TagGt
	TagLe
	TagGe
	TagShl
	TagShr
	TagAdd
	TagSub
	TagMult
	TagDiv
	TagMod
	TagAddress
	TagDereference
	TagUnaryPlus
	TagUnaryMinus
	TagNot
	TagLogicalNot
	TagFunc

	TagTest // sets flags from operand, no target
	TagPush // argument push
	TagLoad // load address/lvalue into temp
)

func tagFromOp(op ast.Op) Tag {
	// ast.Op and Tag share ordinal layout for every operator both model;
	// ast.OpMemberAccess has no IR tag because MEMBER always folds into a
	// NodeOff/RegOff operand before an instruction is emitted (lowerOp
	// materializes a member access that is a whole expression through
	// TagUnaryPlus).
	return Tag(op)
}

// OperandKind discriminates the four operand variants from spec.md §3.
type OperandKind int

const (
	KindAstNode OperandKind = iota
	KindTempReg
	KindNodeOff
	KindRegOff
)

// Operand is one operand of an IR instruction.
type Operand struct {
	Kind   OperandKind
	Node   ast.Node // KindAstNode, KindNodeOff (base identifier)
	Temp   int       // KindTempReg, KindRegOff (base temp)
	Offset int       // KindNodeOff, KindRegOff
}

func AstOperand(n ast.Node) Operand       { return Operand{Kind: KindAstNode, Node: n} }
func TempOperand(t int) Operand           { return Operand{Kind: KindTempReg, Temp: t} }
func NodeOffOperand(n ast.Node, off int) Operand { return Operand{Kind: KindNodeOff, Node: n, Offset: off} }
func RegOffOperand(t int, off int) Operand       { return Operand{Kind: KindRegOff, Temp: t, Offset: off} }

func (o Operand) String() string {
	switch o.Kind {
	case KindAstNode:
		return o.Node.String()
	case KindTempReg:
		return fmt.Sprintf("t%d", o.Temp)
	case KindNodeOff:
		return fmt.Sprintf("%s+%d", o.Node, o.Offset)
	case KindRegOff:
		return fmt.Sprintf("t%d+%d", o.Temp, o.Offset)
	}
	return "?"
}

// Instruction is one three-address IR instruction.
type Instruction struct {
	Tag    Tag
	Target int // temp register receiving the result, -1 if none
	Type   types.Flags
	LHS    Operand
	RHS    Operand // zero value when the op is unary or target-less
}

// Sequence is the linear instruction list built for one expression (or one
// function, by concatenation across statements).
type Sequence struct {
	Instrs []Instruction
	pool    *tempPool
}

func NewSequence() *Sequence {
	return &Sequence{pool: newTempPool()}
}

func (s *Sequence) emit(i Instruction) {
	s.Instrs = append(s.Instrs, i)
}

// tempPool is a table of free flags for the 31 virtual temp registers;
// acquire hands out the smallest free index, matching spec.md §4.6.
type tempPool struct {
	free [NumTempRegs]bool
}

func newTempPool() *tempPool {
	p := &tempPool{}
	for i := range p.free {
		p.free[i] = true
	}
	return p
}

// acquire returns the smallest free temp index, or an error if the pool is
// exhausted (spec.md §8: no well-typed expression needs more than 31 live
// at once, so exhaustion indicates a builder bug, not a user error).
func (p *tempPool) acquire() (int, error) {
	for i, free := range p.free {
		if free {
			p.free[i] = false
			return i, nil
		}
	}
	return 0, fmt.Errorf("temp register pool exhausted (%d live)", NumTempRegs)
}

func (p *tempPool) release(i int) {
	if i >= 0 && i < NumTempRegs {
		p.free[i] = true
	}
}

// isTerminal reports whether n needs no instruction to produce a value —
// it is packaged directly into an operand at the consuming site.
func isTerminal(n ast.Node) bool {
	switch n.(type) {
	case *ast.Constant, *ast.Identifier, *ast.StrLit:
		return true
	}
	return false
}

// memberOffset extracts (access, offset) from a MEMBER access node so it
// can fold into a NodeOff/RegOff operand instead of emitting an
// instruction. The access node itself (not just its base) is returned so
// callers can read ViaArrow. ok is false if n is not a MEMBER access.
func memberOffset(n ast.Node) (access *ast.BinaryOp, offset int, ok bool) {
	b, isOp := n.(*ast.BinaryOp)
	if !isOp || b.Op != ast.OpMemberAccess {
		return nil, 0, false
	}
	return b, memberByteOffset(b), true
}

// memberByteOffset returns the byte offset of a MEMBER access's member.
// pkg/ast already validated that the member exists but does not store its
// offset on the node, so the offset is looked up here by member name in
// the struct descriptor attached to the base identifier's symbol.
func memberByteOffset(b *ast.BinaryOp) int {
	// BinaryOp carries its resolved member type but not its offset; offsets
	// are looked up from the base's struct descriptor by member name here.
	m, ok := b.Right.(*ast.Member)
	if !ok {
		return 0
	}
	if id, ok := b.Left.(*ast.Identifier); ok && id.Sym.Extra != nil {
		if mem, found := id.Sym.Extra.Member(m.Name); found {
			return mem.Offset
		}
	}
	if parent, ok := b.Left.(*ast.BinaryOp); ok && parent.Op == ast.OpMemberAccess {
		if parentBase, poff, isMember := memberOffset(parent); isMember {
			_ = parentBase
			return poff
		}
	}
	return 0
}

// ParseExpr lowers expr into sequence, honoring conditionalFlag: when set
// and the root is not already a comparison, a trailing TEST instruction is
// appended so the emitter can read a flag-setting predicate directly. It
// returns the temp register holding the final value, or -1 if the root was
// a bare terminal (the caller packages the terminal directly; with
// conditionalFlag set the TEST reads the terminal as its operand).
func ParseExpr(seq *Sequence, expr ast.Node, conditionalFlag bool) (int, error) {
	target, err := lower(seq, expr)
	if err != nil {
		return -1, err
	}

	if conditionalFlag && !isComparison(expr) {
		operand := TempOperand(target)
		if target < 0 {
			operand = AstOperand(expr)
		}
		seq.emit(Instruction{Tag: TagTest, Target: -1, Type: types.Int, LHS: operand})
	}

	return target, nil
}

func isComparison(n ast.Node) bool {
	b, ok := n.(*ast.BinaryOp)
	if !ok {
		return false
	}
	switch b.Op {
	case ast.OpEq, ast.OpNe, ast.OpLt, ast.OpGt, ast.OpLe, ast.OpGe:
		return true
	}
	return false
}

// lower is the recursive step of the algorithm in spec.md §4.6. It
// returns the temp register holding expr's value, or -1 when expr is a
// terminal consumed in place by the caller.
func lower(seq *Sequence, expr ast.Node) (int, error) {
	switch n := expr.(type) {
	case *ast.Constant, *ast.Identifier, *ast.StrLit:
		return -1, nil // terminals produce no instruction (step 1)

	case *ast.Member:
		return -1, nil

	case *ast.BinaryOp:
		return lowerOp(seq, n)
	}
	return -1, fmt.Errorf("ir: cannot lower node type %T", expr)
}

func lowerOp(seq *Sequence, n *ast.BinaryOp) (int, error) {
	switch n.Op {
	case ast.OpFunc:
		return lowerFunc(seq, n)
	case ast.OpComma:
		return lowerComma(seq, n)
	case ast.OpAssign:
		return lowerAssign(seq, n)
	case ast.OpAddress, ast.OpDereference, ast.OpUnaryPlus, ast.OpUnaryMinus, ast.OpNot, ast.OpLogicalNot:
		return lowerUnary(seq, n)
	case ast.OpMemberAccess:
		off, baseTemp, ok := foldMember(seq, n)
		if !ok {
			return -1, fmt.Errorf("ir: cannot fold member access %s", n)
		}
		t, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: TagUnaryPlus, Target: t, Type: n.Typ, LHS: off})
		if baseTemp >= 0 {
			seq.pool.release(baseTemp)
		}
		return t, nil
	default:
		return lowerBinary(seq, n)
	}
}

// lowerFunc emits IR_PUSH for each argument in reverse source order (the
// AST's Args slice is already in source order; step 2 walks it right to
// left), then the call itself, allocating a fresh temp for the result.
func lowerFunc(seq *Sequence, n *ast.BinaryOp) (int, error) {
	for i := len(n.Args) - 1; i >= 0; i-- {
		arg := n.Args[i]
		argTemp, err := lower(seq, arg)
		if err != nil {
			return -1, err
		}
		operand := operandFor(arg, argTemp)
		seq.emit(Instruction{Tag: TagPush, Target: -1, Type: arg.Type(), LHS: operand})
	}

	result, err := seq.pool.acquire()
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{
		Tag:    TagFunc,
		Target: result,
		Type:   n.Type(),
		LHS:    AstOperand(n.Left),
	})
	return result, nil
}

// lowerComma recurses into Left for side effects and releases its temp,
// then returns Right's temp. A bare terminal on the right is wrapped in a
// synthetic UNARY_PLUS to materialize a temp, per step 4.
func lowerComma(seq *Sequence, n *ast.BinaryOp) (int, error) {
	leftTemp, err := lower(seq, n.Left)
	if err != nil {
		return -1, err
	}
	if leftTemp >= 0 {
		seq.pool.release(leftTemp)
	}

	if isTerminal(n.Right) {
		t, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: TagUnaryPlus, Target: t, Type: n.Right.Type(), LHS: AstOperand(n.Right)})
		return t, nil
	}
	return lower(seq, n.Right)
}

// lowerAssign handles the general case directly, and specially pre-lowers
// a DEREFERENCE-chain lhs into a LOAD of the deepest base followed by
// chained dereferences, per step 7.
func lowerAssign(seq *Sequence, n *ast.BinaryOp) (int, error) {
	if deref, ok := n.Left.(*ast.BinaryOp); ok && deref.Op == ast.OpDereference {
		baseTemp, err := lowerDerefChain(seq, deref)
		if err != nil {
			return -1, err
		}
		rhsOperand, rhsTemp, err := loweredOperand(seq, n.Right)
		if err != nil {
			return -1, err
		}
		target, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{
			Tag: TagAssign, Target: target, Type: n.Typ,
			LHS: RegOffOperand(baseTemp, 0),
			RHS: rhsOperand,
		})
		seq.pool.release(baseTemp)
		if rhsTemp >= 0 {
			seq.pool.release(rhsTemp)
		}
		return target, nil
	}

	lhsOperand, lhsTemp, err := lvalueOperand(seq, n.Left)
	if err != nil {
		return -1, err
	}
	rhsOperand, rhsTemp, err := loweredOperand(seq, n.Right)
	if err != nil {
		return -1, err
	}
	target, err := seq.pool.acquire()
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{Tag: TagAssign, Target: target, Type: n.Typ, LHS: lhsOperand, RHS: rhsOperand})
	if rhsTemp >= 0 {
		seq.pool.release(rhsTemp)
	}
	if lhsTemp >= 0 {
		seq.pool.release(lhsTemp)
	}
	return target, nil
}

// lowerDerefChain emits a LOAD of the deepest addressable base, then a
// chained series of DEREFERENCE applications, leaving the final address in
// a temp register.
func lowerDerefChain(seq *Sequence, deref *ast.BinaryOp) (int, error) {
	inner := deref.Left
	if innerDeref, ok := inner.(*ast.BinaryOp); ok && innerDeref.Op == ast.OpDereference {
		baseTemp, err := lowerDerefChain(seq, innerDeref)
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: TagDereference, Target: baseTemp, Type: deref.Typ, LHS: RegOffOperand(baseTemp, 0)})
		return baseTemp, nil
	}

	t, err := seq.pool.acquire()
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{Tag: TagLoad, Target: t, Type: inner.Type(), LHS: AstOperand(inner)})
	return t, nil
}

func lowerUnary(seq *Sequence, n *ast.BinaryOp) (int, error) {
	if off, baseTemp, ok := foldMember(seq, n.Left); ok {
		t, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: t, Type: n.Typ, LHS: off})
		if baseTemp >= 0 {
			seq.pool.release(baseTemp)
		}
		return t, nil
	}

	if isTerminal(n.Left) {
		t, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: t, Type: n.Typ, LHS: AstOperand(n.Left)})
		return t, nil
	}

	childTemp, err := lower(seq, n.Left)
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: childTemp, Type: n.Typ, LHS: TempOperand(childTemp)})
	return childTemp, nil
}

// lowerBinary implements steps 5 and 6: MEMBER folding, then the four
// terminal/expression combinations.
func lowerBinary(seq *Sequence, n *ast.BinaryOp) (int, error) {
	if off, baseTemp, ok := foldMember(seq, n.Left); ok {
		return lowerWithFoldedLeft(seq, n, off, baseTemp)
	}
	if off, baseTemp, ok := foldMember(seq, n.Right); ok {
		return lowerWithFoldedRight(seq, n, off, baseTemp)
	}

	leftIsTerm := isTerminal(n.Left)
	rightIsTerm := isTerminal(n.Right)

	switch {
	case leftIsTerm && rightIsTerm:
		t, err := seq.pool.acquire()
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: t, Type: n.Typ, LHS: AstOperand(n.Left), RHS: AstOperand(n.Right)})
		return t, nil

	case !leftIsTerm && rightIsTerm:
		leftTemp, err := lower(seq, n.Left)
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: leftTemp, Type: n.Typ, LHS: TempOperand(leftTemp), RHS: AstOperand(n.Right)})
		return leftTemp, nil

	case leftIsTerm && !rightIsTerm:
		rightTemp, err := lower(seq, n.Right)
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: rightTemp, Type: n.Typ, LHS: AstOperand(n.Left), RHS: TempOperand(rightTemp)})
		return rightTemp, nil

	default:
		leftTemp, err := lower(seq, n.Left)
		if err != nil {
			return -1, err
		}
		rightTemp, err := lower(seq, n.Right)
		if err != nil {
			return -1, err
		}
		seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: leftTemp, Type: n.Typ, LHS: TempOperand(leftTemp), RHS: TempOperand(rightTemp)})
		seq.pool.release(rightTemp)
		return leftTemp, nil
	}
}

func lowerWithFoldedLeft(seq *Sequence, n *ast.BinaryOp, leftOff Operand, leftBaseTemp int) (int, error) {
	rhsOperand, rhsTemp, err := loweredOperand(seq, n.Right)
	if err != nil {
		return -1, err
	}
	t, err := seq.pool.acquire()
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: t, Type: n.Typ, LHS: leftOff, RHS: rhsOperand})
	if rhsTemp >= 0 {
		seq.pool.release(rhsTemp)
	}
	if leftBaseTemp >= 0 {
		seq.pool.release(leftBaseTemp)
	}
	return t, nil
}

func lowerWithFoldedRight(seq *Sequence, n *ast.BinaryOp, rightOff Operand, rightBaseTemp int) (int, error) {
	lhsOperand, lhsTemp, err := loweredOperand(seq, n.Left)
	if err != nil {
		return -1, err
	}
	t, err := seq.pool.acquire()
	if err != nil {
		return -1, err
	}
	seq.emit(Instruction{Tag: tagFromOp(n.Op), Target: t, Type: n.Typ, LHS: lhsOperand, RHS: rightOff})
	if lhsTemp >= 0 {
		seq.pool.release(lhsTemp)
	}
	if rightBaseTemp >= 0 {
		seq.pool.release(rightBaseTemp)
	}
	return t, nil
}

// foldMember folds a MEMBER access into a NodeOff or RegOff operand, per
// step 5. `.` addresses the base identifier's own frame slot plus the
// member offset (NodeOff): no instruction needed. `->` addresses through a
// pointer VALUE, so the base must first be loaded into a temp (TagLoad)
// and the member offset applied to that temp (RegOff); the returned temp
// is the caller's to release once the resulting operand is consumed.
func foldMember(seq *Sequence, n ast.Node) (operand Operand, tempToRelease int, ok bool) {
	access, offset, isMember := memberOffset(n)
	if !isMember {
		return Operand{}, -1, false
	}
	id, isID := access.Left.(*ast.Identifier)
	if !isID {
		return Operand{}, -1, false
	}
	if !access.ViaArrow {
		return NodeOffOperand(id, offset), -1, true
	}

	t, err := seq.pool.acquire()
	if err != nil {
		return Operand{}, -1, false
	}
	seq.emit(Instruction{Tag: TagLoad, Target: t, Type: id.Typ, LHS: AstOperand(id)})
	return RegOffOperand(t, offset), t, true
}

// loweredOperand lowers n and packages it as an operand, returning the
// temp register used (or -1 for a terminal/folded-member operand that
// needs no release).
func loweredOperand(seq *Sequence, n ast.Node) (Operand, int, error) {
	if off, baseTemp, ok := foldMember(seq, n); ok {
		return off, baseTemp, nil
	}
	if isTerminal(n) {
		return AstOperand(n), -1, nil
	}
	t, err := lower(seq, n)
	if err != nil {
		return Operand{}, -1, err
	}
	return TempOperand(t), t, nil
}

// lvalueOperand packages an ASSIGN target that is not a dereference chain:
// an identifier, or a MEMBER access folded to NodeOff/RegOff. The returned
// temp (if >= 0) holds the loaded pointer base of an arrow access and must
// be released by the caller once the assignment instruction is emitted.
func lvalueOperand(seq *Sequence, n ast.Node) (Operand, int, error) {
	if off, baseTemp, ok := foldMember(seq, n); ok {
		return off, baseTemp, nil
	}
	if id, ok := n.(*ast.Identifier); ok {
		return AstOperand(id), -1, nil
	}
	return Operand{}, -1, fmt.Errorf("ir: unsupported assignment target %T", n)
}

// operandFor packages an already-lowered node as an operand: a temp if one
// was produced, otherwise the node itself (terminal case).
func operandFor(n ast.Node, temp int) Operand {
	if temp >= 0 {
		return TempOperand(temp)
	}
	return AstOperand(n)
}
