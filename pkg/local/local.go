// Package local walks a function's ASG to enumerate declared locals, mark
// usage, and compute aligned base-pointer-relative frame offsets
// (spec.md §4.5).
package local

import (
	"fmt"

	"github.com/samber/lo"

	"fcc/pkg/asg"
	"fcc/pkg/ast"
	"fcc/pkg/symtab"
	"fcc/pkg/types"
)

// Flag bits on a Local. Used is the only bit defined; which GPR holds a
// local is tracked by pkg/x86's own cache, not here.
const (
	Used = 1 << iota
)

// Local is one declared variable of a function: its name, frame offset
// (positive magnitude, distance below %ebp), type and flag bits. Only
// pkg/x86 negates Offset into a displacement.
type Local struct {
	Name   string
	Offset int
	Type   types.Flags
	Flags  int
	Sym    *symtab.Symbol
}

func (l *Local) IsUsed() bool { return l.Flags&Used != 0 }

// Scanner collects locals across a single function body and lays out
// their frame offsets.
type Scanner struct {
	locals []*Local
	byName map[string]*Local
}

func NewScanner() *Scanner {
	return &Scanner{byName: make(map[string]*Local)}
}

// Scan walks head, collecting declarations and marking usage, then returns
// the laid-out locals plus the total aligned frame size.
func (s *Scanner) Scan(head asg.Node, warn func(string)) ([]*Local, int) {
	walkNested(head, func(n asg.Node) {
		if decl, ok := n.(*asg.Declaration); ok {
			s.collectDeclared(decl.Expr)
		}
	})

	walkNested(head, func(n asg.Node) {
		for _, e := range exprsOf(n) {
			s.markUsed(e)
		}
	})

	return s.layout(warn)
}

// walkNested is asg.Walk extended to descend into nested control-flow
// bodies (Conditional.Success/Failure, For/While/DoWhile.Body), which
// asg.Walk itself does not follow since those bodies branch off the main
// .next() chain rather than continuing it. Declaration collection and
// usage marking both need the full tree: a local referenced only inside a
// loop or if body is otherwise invisible to either pass.
func walkNested(head asg.Node, visit func(asg.Node)) {
	asg.Walk(head, func(n asg.Node) {
		visit(n)
		switch v := n.(type) {
		case *asg.Conditional:
			walkNested(v.Success, visit)
			if v.Failure != nil {
				walkNested(v.Failure, visit)
			}
		case *asg.For:
			walkNested(v.Body, visit)
		case *asg.While:
			walkNested(v.Body, visit)
		case *asg.DoWhile:
			walkNested(v.Body, visit)
		}
	})
}

// collectDeclared registers every IDENTIFIER leaf in a declaration subtree
// as a local with its full type.
func (s *Scanner) collectDeclared(n ast.Node) {
	switch v := n.(type) {
	case *ast.Identifier:
		if _, exists := s.byName[v.Lexeme]; exists {
			return
		}
		l := &Local{Name: v.Lexeme, Type: v.Typ, Sym: v.Sym}
		s.locals = append(s.locals, l)
		s.byName[v.Lexeme] = l
	case *ast.BinaryOp:
		if v.Op == ast.OpAssign {
			s.collectDeclared(v.Left)
		}
	}
}

// markUsed walks an AST, marking the matching local USED for every
// IDENTIFIER leaf encountered.
func (s *Scanner) markUsed(n ast.Node) {
	switch v := n.(type) {
	case *ast.Identifier:
		if l, ok := s.byName[v.Lexeme]; ok {
			l.Flags |= Used
		}
	case *ast.BinaryOp:
		if v.Left != nil {
			s.markUsed(v.Left)
		}
		if v.Right != nil {
			s.markUsed(v.Right)
		}
		for _, a := range v.Args {
			s.markUsed(a)
		}
	}
}

// exprsOf extracts every ast.Node an ASG node carries, for the
// usage-marking walk. Declaration is excluded here (spec.md §4.5: only
// "other" ast-bearing nodes mark usage) so that initializing a local in
// its own declaration does not by itself count as a use.
func exprsOf(n asg.Node) []ast.Node {
	switch v := n.(type) {
	case *asg.Statement:
		return []ast.Node{v.Expr}
	case *asg.Conditional:
		return []ast.Node{v.Cond}
	case *asg.For:
		var out []ast.Node
		if v.Init != nil {
			out = append(out, v.Init)
		}
		if v.Cond != nil {
			out = append(out, v.Cond)
		}
		if v.Post != nil {
			out = append(out, v.Post)
		}
		return out
	case *asg.While:
		return []ast.Node{v.Cond}
	case *asg.DoWhile:
		return []ast.Node{v.Cond}
	case *asg.Return:
		if v.Value != nil {
			return []ast.Node{v.Value}
		}
	}
	return nil
}

// layout assigns frame offsets to used locals in insertion order: skip
// unused locals (warning), align the running total to the local's size,
// assign offset = total + size, accumulate; round the grand total to 4.
func (s *Scanner) layout(warn func(string)) ([]*Local, int) {
	used := lo.Filter(s.locals, func(l *Local, _ int) bool {
		if !l.IsUsed() {
			warn(fmt.Sprintf("unused variable %q", l.Name))
			return false
		}
		return true
	})

	total := lo.Reduce(used, func(running int, l *Local, _ int) int {
		size := types.Size(l.Type, nil)
		if size == 0 {
			size = 4
		}
		if rem := running % size; rem != 0 {
			running += size - rem
		}
		running += size
		l.Offset = running
		return running
	}, 0)

	if rem := total % 4; rem != 0 {
		total += 4 - rem
	}

	return used, total
}
