package asg

import (
	"testing"

	"fcc/pkg/ast"
)

func TestAppendOnNilHeadReturnsNode(t *testing.T) {
	n := &Statement{}
	got := Append(nil, n, func(string) { t.Error("warn should not fire") })
	if got != Node(n) {
		t.Errorf("Append(nil, n) = %v, want n", got)
	}
}

func TestAppendLinksAtTail(t *testing.T) {
	first := &Statement{}
	second := &Statement{}
	third := &Statement{}

	head := Append(nil, first, func(string) {})
	head = Append(head, second, func(string) {})
	head = Append(head, third, func(string) {})

	var order []Node
	Walk(head, func(n Node) { order = append(order, n) })
	if len(order) != 3 || order[0] != Node(first) || order[1] != Node(second) || order[2] != Node(third) {
		t.Errorf("Walk order = %v, want [first second third]", order)
	}
}

func TestAppendAfterReturnWarnsUnreachable(t *testing.T) {
	ret := &Return{}
	stmt := &Statement{}

	var warned string
	head := Append(nil, ret, func(string) {})
	head = Append(head, stmt, func(msg string) { warned = msg })

	if warned == "" {
		t.Error("expected unreachable-code warning appending after a Return")
	}

	var count int
	Walk(head, func(Node) { count++ })
	if count != 2 {
		t.Errorf("Walk count = %d, want 2 (node still linked despite warning)", count)
	}
}

func TestAppendWithoutReturnDoesNotWarn(t *testing.T) {
	a := &Statement{}
	b := &Statement{}
	var warned bool
	head := Append(nil, a, func(string) {})
	Append(head, b, func(string) { warned = true })
	if warned {
		t.Error("should not warn when tail is not a Return")
	}
}

func TestNextExposesLinkage(t *testing.T) {
	a := &Statement{}
	b := &Statement{Expr: &ast.Constant{}}
	head := Append(nil, a, func(string) {})
	head = Append(head, b, func(string) {})

	if Next(head) != Node(b) {
		t.Errorf("Next(head) = %v, want b", Next(head))
	}
	if Next(b) != nil {
		t.Error("Next(b) should be nil (tail)")
	}
}
