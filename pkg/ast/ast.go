// Package ast builds typed expression trees, diagnosing type errors
// on the fly and folding constants at construction time (spec.md §4.3).
//
// Node is a discriminated sum type via an unexported marker method, in the
// style the rest of this module uses for ASG and IR nodes: a closed set of
// concrete node types rather than one tagged struct with field unions.
package ast

import (
	"fmt"

	"fcc/pkg/symtab"
	"fcc/pkg/types"
)

// Node is any expression tree node. Every node caches its computed result
// type so downstream passes never re-derive it.
type Node interface {
	nodeMarker()
	Type() types.Flags
	String() string
}

// Constant is an integer literal, folded in place where possible.
type Constant struct {
	Value int64
	Typ   types.Flags
}

func (*Constant) nodeMarker()       {}
func (c *Constant) Type() types.Flags { return c.Typ }
func (c *Constant) String() string    { return fmt.Sprintf("%d", c.Value) }

// Identifier is a reference to a declared symbol.
type Identifier struct {
	Lexeme string
	Sym    *symtab.Symbol
	Typ    types.Flags
}

func (*Identifier) nodeMarker()       {}
func (i *Identifier) Type() types.Flags { return i.Typ }
func (i *Identifier) String() string    { return i.Lexeme }

// StrLit is a string literal; its Typ is always types.Strlit.
type StrLit struct {
	Value string
	Typ   types.Flags
}

func (*StrLit) nodeMarker()       {}
func (s *StrLit) Type() types.Flags { return s.Typ }
func (s *StrLit) String() string    { return fmt.Sprintf("%q", s.Value) }

// Member names a struct field accessed by an enclosing MemberAccess node; it
// carries no type of its own until resolved against a struct descriptor.
type Member struct {
	Name string
}

func (*Member) nodeMarker()       {}
func (*Member) Type() types.Flags { return 0 }
func (m *Member) String() string    { return m.Name }

// Op identifies an operator node's operation.
type Op int

const (
	OpComma Op = iota
	OpAssign
	OpLogicalOr
	OpLogicalAnd
	OpBitOr
	OpBitXor
	OpBitAnd
	OpEq
	OpNe
	OpLt
	OpGt
	OpLe
	OpGe
	OpShl
	OpShr
	OpAdd
	OpSub
	OpMult
	OpDiv
	OpMod
	OpAddress
	OpDereference
	OpUnaryPlus
	OpUnaryMinus
	OpNot
	OpLogicalNot
	OpFunc
	OpMemberAccess
)

var opNames = [...]string{
	OpComma: ",", OpAssign: "=", OpLogicalOr: "||", OpLogicalAnd: "&&",
	OpBitOr: "|", OpBitXor: "^", OpBitAnd: "&",
	OpEq: "==", OpNe: "!=", OpLt: "<", OpGt: ">", OpLe: "<=", OpGe: ">=",
	OpShl: "<<", OpShr: ">>", OpAdd: "+", OpSub: "-", OpMult: "*", OpDiv: "/", OpMod: "%",
	OpAddress: "&", OpDereference: "*", OpUnaryPlus: "+", OpUnaryMinus: "-",
	OpNot: "~", OpLogicalNot: "!", OpFunc: "call", OpMemberAccess: ".",
}

func (o Op) String() string {
	if int(o) >= 0 && int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// BinaryOp covers every operator node, unary and binary alike (unary ops
// simply leave Right nil). FUNC reuses it: Left is the callee identifier,
// Right is unused and Args holds the call's argument list.
type BinaryOp struct {
	Op    Op
	Left  Node
	Right Node
	Args  []Node // populated only when Op == OpFunc
	Typ   types.Flags

	// ViaArrow records that a MemberAccess reached its Member through `->`
	// rather than `.`, so pkg/ir can lower it as dereference-then-offset.
	ViaArrow bool
}

func (*BinaryOp) nodeMarker()       {}
func (b *BinaryOp) Type() types.Flags { return b.Typ }
func (b *BinaryOp) String() string {
	if b.Op == OpFunc {
		return fmt.Sprintf("%s(%v)", b.Left, b.Args)
	}
	if b.Right == nil {
		return fmt.Sprintf("(%s %s)", b.Op, b.Left)
	}
	return fmt.Sprintf("(%s %s %s)", b.Left, b.Op, b.Right)
}

// isLvalue reports whether n may appear on the left of ASSIGN or be the
// operand of ADDRESS: an IDENTIFIER (non-function), a DEREFERENCE, or a
// MEMBER access.
func isLvalue(n Node) bool {
	switch v := n.(type) {
	case *Identifier:
		return !v.Typ.IsFunc()
	case *BinaryOp:
		return v.Op == OpDereference || v.Op == OpMemberAccess
	}
	return false
}

func asConstant(n Node) (*Constant, bool) {
	c, ok := n.(*Constant)
	return c, ok
}

// Builder ties node construction to a symbol table, a struct registry and
// a warning callback, matching the stateful create_leaf/create_expr pair
// from spec.md §4.3.
type Builder struct {
	Syms    *symtab.Table
	Structs *types.Registry
	warn    func(string)
}

func NewBuilder(syms *symtab.Table, structs *types.Registry, warn func(string)) *Builder {
	return &Builder{Syms: syms, Structs: structs, warn: warn}
}

// warnf reports a non-fatal type warning (spec.md §7), a no-op if the
// caller passed a nil warn callback.
func (b *Builder) warnf(format string, args ...any) {
	if b.warn == nil {
		return
	}
	b.warn(fmt.Sprintf(format, args...))
}

// CreateIdentifier looks up name and returns an IDENTIFIER leaf, or an error
// if it is undeclared.
func (b *Builder) CreateIdentifier(lexeme string) (*Identifier, error) {
	sym, ok := b.Syms.Lookup(lexeme)
	if !ok {
		return nil, fmt.Errorf("undeclared identifier %q", lexeme)
	}
	return &Identifier{Lexeme: lexeme, Sym: sym, Typ: sym.Type}, nil
}

// CreateNewID inserts lexeme into the current scope as INT and returns it
// as an IDENTIFIER leaf (its type is refined later by set_declaration_type).
func (b *Builder) CreateNewID(lexeme string) (*Identifier, error) {
	sym, err := b.Syms.Add(lexeme, types.Int)
	if err != nil {
		return nil, err
	}
	return &Identifier{Lexeme: lexeme, Sym: sym, Typ: sym.Type}, nil
}

// CreateConstant builds a CONSTANT leaf from an already-parsed value.
func (b *Builder) CreateConstant(value int64, unsigned bool) *Constant {
	t := types.Int
	if unsigned {
		t = t.SetUnsigned(true)
	}
	return &Constant{Value: value, Typ: t}
}

// CreateStrLit builds a STRLIT leaf.
func (b *Builder) CreateStrLit(value string) *StrLit {
	return &StrLit{Value: value, Typ: types.Strlit}
}

// CreateMember builds a bare MEMBER leaf, carrying only a name until the
// enclosing MemberAccess resolves it against a struct descriptor.
func (b *Builder) CreateMember(name string) *Member {
	return &Member{Name: name}
}

// CreateMemberAccess validates `left.name` / `left->name` against the
// struct registry and returns a BinaryOp{Op: OpMemberAccess} carrying the
// member's resolved type.
func (b *Builder) CreateMemberAccess(left Node, name string, arrow bool) (*BinaryOp, error) {
	lt := left.Type()

	if arrow {
		if !lt.IsPointer() || lt.Indirection() != 1 || !lt.IsStruct() {
			return nil, fmt.Errorf("struct pointer member access requires a single-indirection struct pointer")
		}
	} else {
		if lt.IsPointer() {
			return nil, fmt.Errorf("non-struct member access: use -> on pointer types")
		}
		if !lt.IsStruct() {
			return nil, fmt.Errorf("non-struct member access")
		}
	}

	desc := structDescOf(b, left)
	if desc == nil {
		return nil, fmt.Errorf("struct undefined")
	}
	m, ok := desc.Member(name)
	if !ok {
		return nil, fmt.Errorf("unknown struct member %q", name)
	}

	return &BinaryOp{
		Op:       OpMemberAccess,
		Left:     left,
		Right:    &Member{Name: name},
		Typ:      m.Type,
		ViaArrow: arrow,
	}, nil
}

// structDescOf resolves the struct descriptor backing an lvalue's type.
// Only IDENTIFIER and MEMBER-chain nodes carry enough symbol information;
// this mirrors the teacher's symbol-identity (not pointer-identity) cache
// comparisons recommended in spec.md §9.
func structDescOf(b *Builder, n Node) *types.Struct {
	switch v := n.(type) {
	case *Identifier:
		if v.Sym.Extra != nil {
			return v.Sym.Extra
		}
	case *BinaryOp:
		if v.Op == OpMemberAccess {
			if m, ok := v.Right.(*Member); ok {
				if parent := structDescOf(b, v.Left); parent != nil {
					if mem, ok := parent.Member(m.Name); ok {
						return mem.Extra
					}
				}
			}
		}
	}
	return nil
}

// CreateExpr validates operand types for op and returns the resulting
// node, applying constant folding and pointer-arithmetic scaling per
// spec.md §4.3.
func (b *Builder) CreateExpr(op Op, lhs, rhs Node) (Node, error) {
	switch op {
	case OpAssign:
		return b.createAssign(lhs, rhs)
	case OpLogicalOr, OpLogicalAnd:
		return b.createLogical(op, lhs, rhs)
	case OpBitOr, OpBitXor, OpBitAnd, OpShl, OpShr:
		return b.createBitwise(op, lhs, rhs)
	case OpEq, OpNe, OpLt, OpGt, OpLe, OpGe:
		return b.createComparison(op, lhs, rhs)
	case OpAdd, OpSub:
		return b.createAdditive(op, lhs, rhs)
	case OpMult, OpDiv, OpMod:
		return b.createArith(op, lhs, rhs)
	case OpComma:
		return &BinaryOp{Op: OpComma, Left: lhs, Right: rhs, Typ: rhs.Type()}, nil
	}
	return nil, fmt.Errorf("unsupported binary operator %s", op)
}

func (b *Builder) createAssign(lhs, rhs Node) (Node, error) {
	if !isLvalue(lhs) {
		return nil, fmt.Errorf("left-hand side of assignment is not an lvalue")
	}
	lt, rt := lhs.Type(), rhs.Type()

	switch {
	case lt.IsPointer() && rt.IsPointer():
		if lt != rt && lt.Base() != types.Void && rt.Base() != types.Void {
			b.warnf("incompatible pointer types in assignment")
		}
	case lt.IsPointer() && rt.IsInteger():
		b.warnf("assignment to pointer from integer without a cast")
	case lt.IsPointer() && rt.IsStrlit():
		if lt.Base() != types.Char {
			return nil, fmt.Errorf("incompatible types in assignment")
		}
	}

	return &BinaryOp{Op: OpAssign, Left: lhs, Right: rhs, Typ: lt}, nil
}

func (b *Builder) createLogical(op Op, lhs, rhs Node) (Node, error) {
	if !operandOK(lhs) || !operandOK(rhs) {
		return nil, fmt.Errorf("%s requires integer or pointer operands", op)
	}
	if lc, lok := asConstant(lhs); lok {
		if rc, rok := asConstant(rhs); rok {
			return &Constant{Value: foldLogical(op, lc.Value, rc.Value), Typ: types.Int}, nil
		}
	}
	return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: types.Int}, nil
}

func operandOK(n Node) bool {
	t := n.Type()
	return t.IsInteger() || t.IsPointer()
}

func (b *Builder) createBitwise(op Op, lhs, rhs Node) (Node, error) {
	if !lhs.Type().IsInteger() || !rhs.Type().IsInteger() {
		return nil, fmt.Errorf("%s requires integer operands", op)
	}
	result := types.Convert(lhs.Type(), rhs.Type())
	if lc, lok := asConstant(lhs); lok {
		if rc, rok := asConstant(rhs); rok {
			return &Constant{Value: foldBitwise(op, lc.Value, rc.Value), Typ: result}, nil
		}
	}
	return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: result}, nil
}

func (b *Builder) createComparison(op Op, lhs, rhs Node) (Node, error) {
	lt, rt := lhs.Type(), rhs.Type()
	switch {
	case lt.IsInteger() && rt.IsInteger():
	case lt.IsPointer() && rt.IsPointer():
		if lt != rt {
			b.warnf("comparison of distinct pointer types")
		}
	case (lt.IsPointer() && rt.IsInteger()) || (lt.IsInteger() && rt.IsPointer()):
		b.warnf("comparison between pointer and integer without a cast")
	default:
		return nil, fmt.Errorf("%s requires comparable operands", op)
	}
	if lc, lok := asConstant(lhs); lok {
		if rc, rok := asConstant(rhs); rok {
			return &Constant{Value: foldComparison(op, lc.Value, rc.Value), Typ: types.Int}, nil
		}
	}
	return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: types.Int}, nil
}

func (b *Builder) createAdditive(op Op, lhs, rhs Node) (Node, error) {
	lt, rt := lhs.Type(), rhs.Type()

	switch {
	case lt.IsInteger() && rt.IsInteger():
		result := types.Convert(lt, rt)
		if lc, lok := asConstant(lhs); lok {
			if rc, rok := asConstant(rhs); rok {
				return &Constant{Value: foldArith(op, lc.Value, rc.Value), Typ: result}, nil
			}
		}
		return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: result}, nil

	case lt.IsPointer() && rt.IsInteger():
		scaled, err := b.scale(rhs, lt)
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: lhs, Right: scaled, Typ: lt}, nil

	case lt.IsInteger() && rt.IsPointer() && op == OpAdd:
		scaled, err := b.scale(lhs, rt)
		if err != nil {
			return nil, err
		}
		return &BinaryOp{Op: op, Left: scaled, Right: rhs, Typ: rt}, nil

	case lt.IsPointer() && rt.IsPointer() && op == OpSub:
		if lt != rt {
			return nil, fmt.Errorf("subtracting pointers of different types")
		}
		return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: types.Int}, nil

	default:
		return nil, fmt.Errorf("incompatible operand types for %s", op)
	}
}

// scale multiplies an integer operand by the size of ptrType's pointee,
// folding in place if it is already a CONSTANT, else synthesizing a MULT
// node, per spec.md §4.3's pointer additive scaling rule.
func (b *Builder) scale(n Node, ptrType types.Flags) (Node, error) {
	elemSize := types.Size(ptrType.Deref(), nil)
	if elemSize == 0 {
		elemSize = 1
	}
	if c, ok := asConstant(n); ok {
		return &Constant{Value: c.Value * int64(elemSize), Typ: c.Typ}, nil
	}
	sizeConst := &Constant{Value: int64(elemSize), Typ: types.Int}
	return &BinaryOp{Op: OpMult, Left: n, Right: sizeConst, Typ: n.Type()}, nil
}

func (b *Builder) createArith(op Op, lhs, rhs Node) (Node, error) {
	if !lhs.Type().IsInteger() || !rhs.Type().IsInteger() {
		return nil, fmt.Errorf("%s requires integer operands", op)
	}
	result := types.Convert(lhs.Type(), rhs.Type())
	if lc, lok := asConstant(lhs); lok {
		if rc, rok := asConstant(rhs); rok {
			if (op == OpDiv || op == OpMod) && rc.Value == 0 {
				return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: result}, nil
			}
			return &Constant{Value: foldArith(op, lc.Value, rc.Value), Typ: result}, nil
		}
	}
	return &BinaryOp{Op: op, Left: lhs, Right: rhs, Typ: result}, nil
}

// CreateUnary validates and builds ADDRESS/DEREFERENCE/UNARY_PLUS/
// UNARY_MINUS/NOT/LOGICAL_NOT nodes.
func (b *Builder) CreateUnary(op Op, operand Node) (Node, error) {
	switch op {
	case OpAddress:
		if !isLvalue(operand) {
			return nil, fmt.Errorf("operand of address-of is not an lvalue")
		}
		return &BinaryOp{Op: OpAddress, Left: operand, Typ: operand.Type().AddrOf()}, nil

	case OpDereference:
		t := operand.Type()
		if !t.IsPointer() || t.Base() == types.Void && t.Indirection() == 1 {
			return nil, fmt.Errorf("cannot dereference non-pointer or void* operand")
		}
		return &BinaryOp{Op: OpDereference, Left: operand, Typ: t.Deref()}, nil

	case OpUnaryPlus:
		if !operand.Type().IsInteger() {
			return nil, fmt.Errorf("unary + requires an integer operand")
		}
		return operand, nil // folded away; returns lhs unchanged

	case OpUnaryMinus, OpNot:
		if !operand.Type().IsInteger() {
			return nil, fmt.Errorf("%s requires an integer operand", op)
		}
		if c, ok := asConstant(operand); ok {
			return &Constant{Value: foldUnary(op, c.Value), Typ: c.Typ}, nil
		}
		return &BinaryOp{Op: op, Left: operand, Typ: operand.Type()}, nil

	case OpLogicalNot:
		if !operandOK(operand) {
			return nil, fmt.Errorf("! requires an integer or pointer operand")
		}
		if c, ok := asConstant(operand); ok {
			return &Constant{Value: foldUnary(op, c.Value), Typ: types.Int}, nil
		}
		return &BinaryOp{Op: op, Left: operand, Typ: types.Int}, nil
	}
	return nil, fmt.Errorf("unsupported unary operator %s", op)
}

// CreateFunc validates that callee is a function symbol and returns a FUNC
// node whose type is the callee's return type.
func (b *Builder) CreateFunc(callee *Identifier, args []Node) (*BinaryOp, error) {
	if !callee.Typ.IsFunc() {
		return nil, fmt.Errorf("%q is not a function", callee.Lexeme)
	}
	retType := callee.Typ &^ types.FuncBit
	return &BinaryOp{Op: OpFunc, Left: callee, Args: args, Typ: retType}, nil
}

// SetDeclarationType walks a declaration subtree, setting typ on every
// IDENTIFIER leaf while preserving the pointer indirection already stored
// from declarator syntax: the resulting indirection is the identifier's
// existing level plus typ's own. VOID is rejected for non-pointer variables.
func (b *Builder) SetDeclarationType(root Node, typ types.Flags) error {
	id, ok := root.(*Identifier)
	if !ok {
		return fmt.Errorf("declaration root must be an identifier")
	}
	indirection := id.Typ.Indirection() + typ.Indirection()
	final := typ.WithIndirection(indirection)
	if final.IsVoid() && indirection == 0 {
		return fmt.Errorf("variable %q declared void", id.Lexeme)
	}
	id.Typ = final
	id.Sym.Type = final
	return nil
}

// Cast rewrites expr's type to target. Permitted only between integer
// and/or pointer types, or to VOID.
func Cast(expr Node, target types.Flags) (Node, error) {
	t := expr.Type()
	ok := (t.IsInteger() || t.IsPointer()) && (target.IsInteger() || target.IsPointer() || target.IsVoid())
	if !ok {
		return nil, fmt.Errorf("invalid cast from %s to %s", t, target)
	}
	switch v := expr.(type) {
	case *Constant:
		return &Constant{Value: v.Value, Typ: target}, nil
	case *Identifier:
		return &Identifier{Lexeme: v.Lexeme, Sym: v.Sym, Typ: target}, nil
	case *BinaryOp:
		return &BinaryOp{Op: v.Op, Left: v.Left, Right: v.Right, Args: v.Args, Typ: target, ViaArrow: v.ViaArrow}, nil
	}
	return nil, fmt.Errorf("cannot cast node type %T", expr)
}

func foldArith(op Op, a, b int64) int64 {
	switch op {
	case OpAdd:
		return a + b
	case OpSub:
		return a - b
	case OpMult:
		return a * b
	case OpDiv:
		if b == 0 {
			return 0
		}
		return a / b
	case OpMod:
		if b == 0 {
			return 0
		}
		return a % b
	}
	return 0
}

func foldBitwise(op Op, a, b int64) int64 {
	switch op {
	case OpBitOr:
		return a | b
	case OpBitXor:
		return a ^ b
	case OpBitAnd:
		return a & b
	case OpShl:
		return a << uint(b)
	case OpShr:
		return a >> uint(b)
	}
	return 0
}

func foldComparison(op Op, a, b int64) int64 {
	var result bool
	switch op {
	case OpEq:
		result = a == b
	case OpNe:
		result = a != b
	case OpLt:
		result = a < b
	case OpGt:
		result = a > b
	case OpLe:
		result = a <= b
	case OpGe:
		result = a >= b
	}
	if result {
		return 1
	}
	return 0
}

func foldLogical(op Op, a, b int64) int64 {
	var result bool
	switch op {
	case OpLogicalAnd:
		result = a != 0 && b != 0
	case OpLogicalOr:
		result = a != 0 || b != 0
	}
	if result {
		return 1
	}
	return 0
}

func foldUnary(op Op, a int64) int64 {
	switch op {
	case OpUnaryMinus:
		return -a
	case OpNot:
		return ^a
	case OpLogicalNot:
		if a == 0 {
			return 1
		}
		return 0
	}
	return 0
}
