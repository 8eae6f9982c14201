// Package asg builds per-function control-flow graphs: a singly-linked
// sequence of statement/conditional/loop/return/declaration variants
// (spec.md §4.4).
package asg

import (
	"fcc/pkg/ast"
)

// Node is one control-flow variant in a function body. It is a sum type
// via an unexported marker, same as pkg/ast.
type Node interface {
	nodeMarker()
	next() Node
	setNext(Node)
}

type base struct {
	Next Node
}

func (b *base) next() Node      { return b.Next }
func (b *base) setNext(n Node)  { b.Next = n }

// Statement wraps a bare expression evaluated for its side effects.
type Statement struct {
	base
	Expr ast.Node
}

func (*Statement) nodeMarker() {}

// Declaration wraps a declaration subtree (usually an ASSIGN or a bare
// IDENTIFIER with no initializer).
type Declaration struct {
	base
	Expr ast.Node
}

func (*Declaration) nodeMarker() {}

// Conditional is if (Cond) Success [else Failure].
type Conditional struct {
	base
	Cond    ast.Node
	Success Node
	Failure Node // nil if there is no else branch
}

func (*Conditional) nodeMarker() {}

// For is for (Init; Cond; Post) Body.
type For struct {
	base
	Init ast.Node // may be nil
	Cond ast.Node // may be nil
	Post ast.Node // may be nil
	Body Node
}

func (*For) nodeMarker() {}

// While is while (Cond) Body.
type While struct {
	base
	Cond ast.Node
	Body Node
}

func (*While) nodeMarker() {}

// DoWhile is do Body while (Cond);
type DoWhile struct {
	base
	Cond ast.Node
	Body Node
}

func (*DoWhile) nodeMarker() {}

// Return is return [Value];
type Return struct {
	base
	Value ast.Node // nil for bare `return;`
}

func (*Return) nodeMarker() {}

// isReturn reports whether n is a Return node, used by Append to detect
// unreachable code.
func isReturn(n Node) bool {
	_, ok := n.(*Return)
	return ok
}

// Append walks to the tail of head and links node after it. If the tail is
// already a Return, it emits the unreachable-code warning text via warn and
// still links node (spec.md §4.4, §7's "unreachable code after return").
//
// head may be nil, in which case node becomes the new head.
func Append(head Node, node Node, warn func(string)) Node {
	if head == nil {
		return node
	}
	tail := head
	for tail.next() != nil {
		tail = tail.next()
	}
	if isReturn(tail) {
		warn("unreachable code after return")
	}
	tail.setNext(node)
	return head
}

// Walk calls fn for every node in the sequence starting at head, in order.
func Walk(head Node, fn func(Node)) {
	for n := head; n != nil; n = n.next() {
		fn(n)
	}
}

// Next exposes the next node in sequence; used by consumers outside this
// package (pkg/local, pkg/x86) that must walk the chain themselves.
func Next(n Node) Node { return n.next() }
