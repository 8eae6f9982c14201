// Package x86 translates IR instructions plus ASG control flow into x86
// instructions, tracking which GPR caches what, generating labels and
// jumps, and emitting AT&T-syntax text (spec.md §4.7). Grounded on the
// original implementation's x86.c (tmp_reg_push/pop, ir_to_x86_operand,
// load_value/load_tmp_reg) and re-expressed as Go sum types.
package x86

import (
	"fmt"

	"fcc/pkg/asg"
	"fcc/pkg/ast"
	"fcc/pkg/ir"
	"fcc/pkg/local"
	"fcc/pkg/section"
	"fcc/pkg/types"
)

// Gpr identifies one of the usable general-purpose registers, including
// the 8-bit sub-registers used by setCC.
type Gpr int

const (
	AX Gpr = iota
	BX
	CX
	DX
	SI
	DI
	AL
	AH
	CL
	CH
	gprAny = -1
)

var gprNames = map[Gpr]string{
	AX: "%eax", BX: "%ebx", CX: "%ecx", DX: "%edx", SI: "%esi", DI: "%edi",
	AL: "%al", AH: "%ah", CL: "%cl", CH: "%ch",
}

func (g Gpr) String() string { return gprNames[g] }

// cacheKind discriminates what value-kind a GPR currently caches.
type cacheKind int

const (
	cacheNone cacheKind = iota
	cacheNode           // caches an identifier, compared by symbol identity
	cacheTemp
)

type cacheEntry struct {
	kind cacheKind
	sym  any // *symtab.Symbol when kind == cacheNode
	temp int
	busy bool
}

// Emitter holds the mutable state of one function's x86 translation: the
// GPR cache table, the temp-register stack-offset pool, the locals it
// addresses, and a reference to the shared label counter and out buffer.
type Emitter struct {
	out       *section.Buffer
	locals    []*local.Local
	frameSize int
	labels    *int // shared across the whole translation unit

	gprCache  map[Gpr]*cacheEntry
	tmpOffset [ir.NumTempRegs]int // -1 = not in use; else byte offset from %esp
	lastPush  *Gpr                // most recent emitted instruction, if a push, for elision

	strings *StringTable
}

// StringTable assigns and caches `.data` labels for string literals,
// content-keyed so repeated literals share a label (spec.md §6's
// supplemented STRLIT lowering).
type StringTable struct {
	labels  map[string]string
	ordered []string
	counter int
}

func NewStringTable() *StringTable {
	return &StringTable{labels: make(map[string]string)}
}

func (s *StringTable) LabelFor(content string) string {
	if l, ok := s.labels[content]; ok {
		return l
	}
	l := fmt.Sprintf(".LC%d", s.counter)
	s.counter++
	s.labels[content] = l
	s.ordered = append(s.ordered, content)
	return l
}

// EmitData writes every registered string literal to the .data section.
func (s *StringTable) EmitData(out *section.Buffer) {
	for _, content := range s.ordered {
		out.WriteData("%s:\n\t.string %q\n", s.labels[content], content)
	}
}

func NewEmitter(out *section.Buffer, locals []*local.Local, frameSize int, labels *int, strings *StringTable) *Emitter {
	e := &Emitter{
		out: out, locals: locals, frameSize: frameSize, labels: labels, strings: strings,
		gprCache: make(map[Gpr]*cacheEntry),
	}
	for i := range e.tmpOffset {
		e.tmpOffset[i] = -1
	}
	return e
}

func (e *Emitter) findLocal(name string) *local.Local {
	for _, l := range e.locals {
		if l.Name == name {
			return l
		}
	}
	return nil
}

func (e *Emitter) newLabel() int {
	n := *e.labels
	*e.labels++
	return n
}

func sizeSuffix(size int) string {
	switch size {
	case 1:
		return "b"
	case 2:
		return "w"
	case 4:
		return "l"
	}
	return ""
}

// --- function prologue / epilogue ---

// BeginFunction emits the named label, push/movl prologue, and the frame
// adjustment if frameSize > 0.
func (e *Emitter) BeginFunction(name string) {
	e.out.WriteText("\n%s:\n\tpush %%ebp\n\tmovl %%esp, %%ebp\n", name)
	if e.frameSize > 0 {
		e.out.WriteText("\tsubl $%d, %%esp\n", e.frameSize)
	}
}

// EndFunction emits the frame teardown and epilogue.
func (e *Emitter) EndFunction() {
	if e.frameSize > 0 {
		e.out.WriteText("\taddl $%d, %%esp\n", e.frameSize)
	}
	e.out.WriteText("\tpop %%ebp\n\tret\n")
}

// --- operand lowering ---

// x86Operand is the lowered form of an IR operand, ready for
// String-formatting into an instruction line.
type x86Operand struct {
	text   string
	gpr    *Gpr // non-nil if this operand is (or was loaded into) a GPR
	size   int
}

// lowerOperand converts an IR operand into its x86 text form, per the
// table in spec.md §4.7.
func (e *Emitter) lowerOperand(op ir.Operand, forceAddress bool) x86Operand {
	switch op.Kind {
	case ir.KindTempReg:
		off := e.tmpOffset[op.Temp]
		return x86Operand{text: fmt.Sprintf("%d(%%esp)", off), size: 4}

	case ir.KindNodeOff:
		id := op.Node.(*ast.Identifier)
		l := e.findLocal(id.Lexeme)
		return x86Operand{text: fmt.Sprintf("-%d(%%ebp)", l.Offset-op.Offset), size: types.Size(l.Type, nil)}

	case ir.KindRegOff:
		gpr := e.loadTempIntoGpr(op.Temp, gprAny)
		return x86Operand{text: fmt.Sprintf("%d(%s)", op.Offset, gpr), gpr: &gpr, size: 4}

	case ir.KindAstNode:
		return e.lowerAstOperand(op.Node, forceAddress)
	}
	return x86Operand{}
}

func (e *Emitter) lowerAstOperand(n ast.Node, forceAddress bool) x86Operand {
	switch v := n.(type) {
	case *ast.Identifier:
		if !forceAddress {
			if gpr, ok := e.cachedGprFor(v); ok {
				return x86Operand{text: gpr.String(), gpr: &gpr, size: types.Size(v.Typ, nil)}
			}
		}
		l := e.findLocal(v.Lexeme)
		return x86Operand{text: fmt.Sprintf("-%d(%%ebp)", l.Offset), size: types.Size(v.Typ, nil)}

	case *ast.Constant:
		if v.Typ.IsUnsigned() {
			return x86Operand{text: fmt.Sprintf("$%d", uint64(v.Value)), size: 4}
		}
		return x86Operand{text: fmt.Sprintf("$%d", v.Value), size: 4}

	case *ast.StrLit:
		label := e.strings.LabelFor(v.Value)
		return x86Operand{text: fmt.Sprintf("$%s", label), size: 4}
	}
	return x86Operand{}
}

// cachedGprFor reports whether some GPR currently caches identifier id's
// value, comparing by symbol identity rather than AST node identity
// (spec.md §9's explicit recommendation).
func (e *Emitter) cachedGprFor(id *ast.Identifier) (Gpr, bool) {
	for g, c := range e.gprCache {
		if c.kind == cacheNode && c.sym == id.Sym {
			return g, true
		}
	}
	return 0, false
}

func (e *Emitter) invalidateGpr(g Gpr) {
	delete(e.gprCache, g)
}

func (e *Emitter) cacheIdentifier(g Gpr, id *ast.Identifier) {
	e.gprCache[g] = &cacheEntry{kind: cacheNode, sym: id.Sym}
}

// anyGet returns a free GPR in priority order AX -> DX -> CX.
func (e *Emitter) anyGet() Gpr {
	for _, g := range []Gpr{AX, DX, CX} {
		if _, busy := e.gprCache[g]; !busy {
			return g
		}
	}
	return AX
}

func resolveGpr(requested Gpr, e *Emitter) Gpr {
	if requested == gprAny {
		return e.anyGet()
	}
	return requested
}

// loadValue emits a mov from memory into gpr (or reuses the cache if it
// already holds the value), returning the GPR used.
func (e *Emitter) loadValue(op ir.Operand, requested Gpr) Gpr {
	g := resolveGpr(requested, e)
	operand := e.lowerOperand(op, false)
	if operand.gpr != nil && *operand.gpr == g {
		return g
	}
	e.out.WriteText("\tmov%s %s, %s\n", sizeSuffix(operand.size), operand.text, g)
	e.invalidateGpr(g)
	return g
}

// loadTempIntoGpr emits a pop or a mov depending on whether the temp is on
// the stack top, applying push/pop elision: if the most recently emitted
// instruction was a push of the same register this pop would target,
// delete that push and reuse the register directly.
func (e *Emitter) loadTempIntoGpr(temp int, requested Gpr) Gpr {
	off := e.tmpOffset[temp]
	if off == 0 {
		if e.lastPush != nil {
			g := *e.lastPush
			e.lastPush = nil
			e.tmpRegPop(temp, gprAny)
			if requested != gprAny && requested != g {
				e.out.WriteText("\tmovl %s, %s\n", g, requested)
				return requested
			}
			return g
		}
		g := requested
		if g == gprAny {
			g = AX
		}
		e.out.WriteText("\tpop %s\n", g)
		e.tmpRegPop(temp, gprAny)
		return g
	}

	g := requested
	if g == gprAny {
		g = AX
	}
	e.out.WriteText("\tmovl %d(%%esp), %s\n", off, g)
	e.tmpRegPop(temp, g)
	return g
}

// --- temp-register stack discipline ---

// tmpRegPush prepends 4 bytes to every live temp's offset, assigns offset
// 0 to i, and emits a push (unless gpr is the sentinel "none").
func (e *Emitter) tmpRegPush(i int, gpr Gpr, hasGpr bool) {
	for j := range e.tmpOffset {
		if e.tmpOffset[j] != -1 {
			e.tmpOffset[j] += 4
		}
	}
	e.tmpOffset[i] = 0
	if hasGpr {
		e.out.WriteText("\tpush %s\n", gpr)
		g := gpr
		e.lastPush = &g
	} else {
		e.lastPush = nil
	}
}

// tmpRegPop is the inverse of tmpRegPush: it un-prepends 4 bytes from every
// live temp's offset and frees i.
func (e *Emitter) tmpRegPop(i int, gpr Gpr) {
	for j := range e.tmpOffset {
		if e.tmpOffset[j] != -1 {
			e.tmpOffset[j] -= 4
		}
	}
	e.tmpOffset[i] = -1
	e.lastPush = nil
}

// pushResult stores an instruction's result (already in a GPR) into a
// fresh temp register slot.
func (e *Emitter) pushResult(target int, gpr Gpr) {
	e.tmpRegPush(target, gpr, true)
}

// --- instruction selection (spec.md §4.7) ---

// Lower translates one IR sequence into x86 text, in order.
func (e *Emitter) Lower(seq *ir.Sequence, conditional bool) error {
	for _, instr := range seq.Instrs {
		if err := e.lowerInstr(instr, conditional); err != nil {
			return err
		}
	}
	return nil
}

func (e *Emitter) lowerInstr(instr ir.Instruction, conditional bool) error {
	switch instr.Tag {
	case ir.TagAssign:
		return e.lowerAssign(instr)
	case ir.TagBitOr, ir.TagBitXor, ir.TagBitAnd, ir.TagAdd, ir.TagSub:
		return e.lowerGenericBinary(instr)
	case ir.TagShl, ir.TagShr:
		return e.lowerShift(instr)
	case ir.TagEq, ir.TagNe, ir.TagLt, ir.TagGt, ir.TagLe, ir.TagGe:
		return e.lowerComparison(instr, conditional)
	case ir.TagMult:
		return e.lowerMult(instr)
	case ir.TagDiv, ir.TagMod:
		return e.lowerDivMod(instr)
	case ir.TagAddress:
		return e.lowerAddress(instr)
	case ir.TagDereference:
		return e.lowerDereference(instr)
	case ir.TagUnaryMinus, ir.TagNot:
		return e.lowerUnaryInPlace(instr)
	case ir.TagLogicalNot:
		return e.lowerLogicalNot(instr, conditional)
	case ir.TagUnaryPlus:
		return e.lowerUnaryPlus(instr)
	case ir.TagFunc:
		return e.lowerFunc(instr)
	case ir.TagTest:
		return e.lowerTest(instr)
	case ir.TagPush:
		return e.lowerPush(instr)
	case ir.TagLoad:
		return e.lowerLoad(instr)
	case ir.TagLogicalOr, ir.TagLogicalAnd:
		return e.lowerGenericBinary(instr)
	}
	return fmt.Errorf("x86: unsupported IR tag %d", instr.Tag)
}

func (e *Emitter) lowerAssign(instr ir.Instruction) error {
	lhs := e.lowerOperand(instr.LHS, true)
	size := types.Size(instr.Type, nil)
	if size == 0 {
		size = 4
	}

	rhs := e.lowerOperand(instr.RHS, false)
	var rhsText string
	if rhs.gpr != nil {
		rhsText = rhs.gpr.String()
	} else if instr.RHS.Kind == ir.KindAstNode || instr.RHS.Kind == ir.KindTempReg {
		g := e.loadValue(instr.RHS, gprAny)
		rhsText = g.String()
	} else {
		rhsText = rhs.text
	}

	e.out.WriteText("\tmov%s %s, %s\n", sizeSuffix(size), rhsText, lhs.text)

	if id, ok := astIdentifierOf(instr.LHS); ok {
		if g, ok := gprFromText(rhsText); ok {
			e.cacheIdentifier(g, id)
		}
	}
	return nil
}

func astIdentifierOf(op ir.Operand) (*ast.Identifier, bool) {
	if op.Kind != ir.KindAstNode {
		return nil, false
	}
	id, ok := op.Node.(*ast.Identifier)
	return id, ok
}

func gprFromText(s string) (Gpr, bool) {
	for g, n := range gprNames {
		if n == s {
			return g, true
		}
	}
	return 0, false
}

var binaryMnemonic = map[ir.Tag]string{
	ir.TagBitOr: "or", ir.TagBitXor: "xor", ir.TagBitAnd: "and",
	ir.TagAdd: "add", ir.TagSub: "sub",
	ir.TagLogicalOr: "or", ir.TagLogicalAnd: "and",
}

func (e *Emitter) lowerGenericBinary(instr ir.Instruction) error {
	lg := e.loadValue(instr.LHS, gprAny)
	rhs := e.lowerOperand(instr.RHS, false)
	mnem := binaryMnemonic[instr.Tag]
	e.out.WriteText("\t%sl %s, %s\n", mnem, rhs.text, lg)
	e.invalidateGpr(lg)
	e.pushResult(instr.Target, lg)
	return nil
}

func (e *Emitter) lowerShift(instr ir.Instruction) error {
	lg := e.loadValue(instr.LHS, AX)

	var rhsText string
	if instr.RHS.Kind == ir.KindAstNode {
		if c, ok := instr.RHS.Node.(*ast.Constant); ok {
			rhsText = fmt.Sprintf("$%d", c.Value)
		}
	}
	if rhsText == "" {
		e.loadValue(instr.RHS, CL)
		rhsText = CL.String()
	}

	mnem := "shl"
	if instr.Tag == ir.TagShr {
		if instr.Type.IsUnsigned() {
			mnem = "shr"
		} else {
			mnem = "sar"
		}
	}
	e.out.WriteText("\t%sl %s, %s\n", mnem, rhsText, lg)
	e.invalidateGpr(lg)
	e.pushResult(instr.Target, lg)
	return nil
}

var inverseCmp = map[ir.Tag]string{
	ir.TagEq: "sete", ir.TagNe: "setne", ir.TagLt: "setl",
	ir.TagGt: "setg", ir.TagLe: "setle", ir.TagGe: "setge",
}

func (e *Emitter) lowerComparison(instr ir.Instruction, conditional bool) error {
	lg := e.loadValue(instr.LHS, gprAny)
	rhs := e.lowerOperand(instr.RHS, false)
	e.out.WriteText("\tcmpl %s, %s\n", rhs.text, lg)
	e.invalidateGpr(lg)

	if conditional {
		return nil
	}
	set := inverseCmp[instr.Tag]
	e.out.WriteText("\t%s %%al\n\tmovzbl %%al, %%eax\n", set)
	e.pushResult(instr.Target, AX)
	return nil
}

func (e *Emitter) lowerMult(instr ir.Instruction) error {
	lg := e.loadValue(instr.LHS, gprAny)
	rhs := e.lowerOperand(instr.RHS, false)
	e.out.WriteText("\timul %s, %s, %s\n", rhs.text, lg, lg)
	e.invalidateGpr(lg)
	e.pushResult(instr.Target, lg)
	return nil
}

func (e *Emitter) lowerDivMod(instr ir.Instruction) error {
	e.loadValue(instr.LHS, AX)
	e.out.WriteText("\tcdq\n")
	e.loadValue(instr.RHS, CX)
	e.out.WriteText("\tdivl %%ecx\n")
	e.invalidateGpr(AX)
	e.invalidateGpr(DX)
	if instr.Tag == ir.TagDiv {
		e.pushResult(instr.Target, AX)
	} else {
		e.pushResult(instr.Target, DX)
	}
	return nil
}

func (e *Emitter) lowerAddress(instr ir.Instruction) error {
	operand := e.lowerOperand(instr.LHS, true)
	e.out.WriteText("\tleal %s, %%eax\n", operand.text)
	e.invalidateGpr(AX)
	e.pushResult(instr.Target, AX)
	return nil
}

func (e *Emitter) lowerDereference(instr ir.Instruction) error {
	g := e.loadValue(instr.LHS, gprAny)
	e.out.WriteText("\tmovl (%s), %s\n", g, g)
	e.invalidateGpr(g)
	e.pushResult(instr.Target, g)
	return nil
}

func (e *Emitter) lowerUnaryInPlace(instr ir.Instruction) error {
	g := e.loadValue(instr.LHS, gprAny)
	mnem := "neg"
	if instr.Tag == ir.TagNot {
		mnem = "not"
	}
	e.out.WriteText("\t%sl %s\n", mnem, g)
	e.invalidateGpr(g)
	e.pushResult(instr.Target, g)
	return nil
}

func (e *Emitter) lowerLogicalNot(instr ir.Instruction, conditional bool) error {
	g := e.loadValue(instr.LHS, gprAny)
	e.out.WriteText("\tcmpl $0, %s\n", g)
	e.invalidateGpr(g)
	if conditional {
		return nil
	}
	e.out.WriteText("\tsetne %%al\n\tmovzbl %%al, %%eax\n")
	e.pushResult(instr.Target, AX)
	return nil
}

func (e *Emitter) lowerUnaryPlus(instr ir.Instruction) error {
	g := e.loadValue(instr.LHS, gprAny)
	e.pushResult(instr.Target, g)
	return nil
}

func (e *Emitter) lowerFunc(instr ir.Instruction) error {
	callee := instr.LHS.Node.(*ast.Identifier)
	e.out.WriteText("\tcall %s\n", callee.Lexeme)
	e.invalidateGpr(AX)
	e.invalidateGpr(CX)
	e.invalidateGpr(DX)
	e.pushResult(instr.Target, AX)
	return nil
}

func (e *Emitter) lowerTest(instr ir.Instruction) error {
	g := e.loadValue(instr.LHS, gprAny)
	e.out.WriteText("\ttest %s, %s\n", g, g)
	e.invalidateGpr(g)
	return nil
}

func (e *Emitter) lowerPush(instr ir.Instruction) error {
	operand := e.lowerOperand(instr.LHS, false)
	if operand.gpr != nil {
		e.out.WriteText("\tpush %s\n", operand.gpr)
	} else if instr.LHS.Kind == ir.KindAstNode {
		if _, isConst := instr.LHS.Node.(*ast.Constant); isConst {
			e.out.WriteText("\tpush %s\n", operand.text)
		} else {
			g := e.loadValue(instr.LHS, gprAny)
			e.out.WriteText("\tpush %s\n", g)
		}
	} else {
		g := e.loadValue(instr.LHS, gprAny)
		e.out.WriteText("\tpush %s\n", g)
	}
	return nil
}

func (e *Emitter) lowerLoad(instr ir.Instruction) error {
	g := e.loadValue(instr.LHS, AX)
	e.pushResult(instr.Target, g)
	return nil
}

// --- control-flow lowering (spec.md §4.7) ---

var inverseJump = map[ir.Tag]string{
	ir.TagTest: "jz", ir.TagLogicalNot: "jne",
	ir.TagEq: "jne", ir.TagNe: "je",
	ir.TagLt: "jge", ir.TagGt: "jle", ir.TagLe: "jg", ir.TagGe: "jl",
}

var forwardJump = map[ir.Tag]string{
	ir.TagTest: "jnz", ir.TagLogicalNot: "je",
	ir.TagEq: "je", ir.TagNe: "jne",
	ir.TagLt: "jl", ir.TagGt: "jg", ir.TagLe: "jle", ir.TagGe: "jge",
}

// lastCondTag reports which comparison (if any) a conditional expression's
// lowered sequence ends with, for selecting the inverse/forward jump.
func lastCondTag(seq *ir.Sequence) ir.Tag {
	if len(seq.Instrs) == 0 {
		return ir.TagTest
	}
	return seq.Instrs[len(seq.Instrs)-1].Tag
}

func (e *Emitter) emitLabel(n int) {
	e.out.WriteText(".L%d:\n", n)
}

// LowerConditional emits `if (cond) success [else failure]`.
func (e *Emitter) LowerConditional(cond *ir.Sequence, success, failure func() error) error {
	tag := lastCondTag(cond)
	if err := e.Lower(cond, true); err != nil {
		return err
	}
	jfail := e.newLabel()
	e.out.WriteText("\t%s .L%d\n", inverseJump[tag], jfail)

	if err := success(); err != nil {
		return err
	}

	if failure != nil {
		jend := e.newLabel()
		e.out.WriteText("\tjmp .L%d\n", jend)
		e.emitLabel(jfail)
		if err := failure(); err != nil {
			return err
		}
		e.emitLabel(jend)
	} else {
		e.emitLabel(jfail)
	}
	return nil
}

// LowerFor emits for (init; cond; post) body.
func (e *Emitter) LowerFor(init *ir.Sequence, cond *ir.Sequence, post *ir.Sequence, body func() error) error {
	if init != nil {
		if err := e.Lower(init, false); err != nil {
			return err
		}
	}
	jtest := e.newLabel()
	e.emitLabel(jtest)

	tag := lastCondTag(cond)
	if err := e.Lower(cond, true); err != nil {
		return err
	}
	jexit := e.newLabel()
	e.out.WriteText("\t%s .L%d\n", inverseJump[tag], jexit)

	if err := body(); err != nil {
		return err
	}
	if post != nil {
		if err := e.Lower(post, false); err != nil {
			return err
		}
	}
	e.out.WriteText("\tjmp .L%d\n", jtest)
	e.emitLabel(jexit)
	return nil
}

// LowerWhile emits while (cond) body.
func (e *Emitter) LowerWhile(cond *ir.Sequence, body func() error) error {
	jstart := e.newLabel()
	jexit := e.newLabel()

	tag := lastCondTag(cond)
	e.out.WriteText("\tjmp .L%d\n", jexit)
	e.emitLabel(jstart)

	if err := body(); err != nil {
		return err
	}

	e.emitLabel(jexit)
	if err := e.Lower(cond, true); err != nil {
		return err
	}
	e.out.WriteText("\t%s .L%d\n", forwardJump[tag], jstart)
	return nil
}

// LowerDoWhile emits do body while (cond);
func (e *Emitter) LowerDoWhile(cond *ir.Sequence, body func() error) error {
	jstart := e.newLabel()
	e.emitLabel(jstart)

	if err := body(); err != nil {
		return err
	}

	tag := lastCondTag(cond)
	if err := e.Lower(cond, true); err != nil {
		return err
	}
	e.out.WriteText("\t%s .L%d\n", forwardJump[tag], jstart)
	return nil
}

// LowerReturn emits the return-value move; the caller appends EndFunction.
func (e *Emitter) LowerReturn(value ast.Node, seq *ir.Sequence) error {
	if value == nil {
		return nil
	}
	if isTerminalNode(value) {
		e.loadValue(ir.AstOperand(value), AX)
		return nil
	}
	if err := e.Lower(seq, false); err != nil {
		return err
	}
	last := seq.Instrs[len(seq.Instrs)-1]
	e.loadValue(ir.TempOperand(last.Target), AX)
	return nil
}

func isTerminalNode(n ast.Node) bool {
	switch n.(type) {
	case *ast.Constant, *ast.Identifier, *ast.StrLit:
		return true
	}
	return false
}

// Declaration lowers a Declaration ASG node's initializer, if any.
func (e *Emitter) Declaration(d *asg.Declaration, seq *ir.Sequence) error {
	if d.Expr == nil {
		return nil
	}
	return e.Lower(seq, false)
}
