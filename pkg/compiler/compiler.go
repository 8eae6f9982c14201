// Package compiler orchestrates the whole pipeline for one translation
// unit: lex, parse, scan locals, lower to IR, emit x86, flush sections.
// Grounded on the teacher's compile.go driver shape (sequential calls,
// each wrapped with an error check), minus the teacher's preprocessor and
// assembler stages, which are out of this dialect's scope.
package compiler

import (
	"fmt"

	"fcc/pkg/asg"
	"fcc/pkg/ast"
	"fcc/pkg/diag"
	"fcc/pkg/ir"
	"fcc/pkg/lexer"
	"fcc/pkg/local"
	"fcc/pkg/parser"
	"fcc/pkg/section"
	"fcc/pkg/symtab"
	"fcc/pkg/types"
	"fcc/pkg/x86"
)

// Result carries the diagnostic sink (with its error and warning counts)
// so the caller (cmd/fcc) can decide the process exit code.
type Result struct {
	Sink *diag.Sink
}

// Compile runs the full pipeline over src, writing the resulting assembly
// to outPath. filename is used only for diagnostic prefixes.
func Compile(src, filename, outPath string) (*Result, error) {
	sink := diag.NewSink(filename)

	tokens, err := lexer.Lex(src)
	if err != nil {
		sink.Error(0, "%s", err)
		return &Result{Sink: sink}, err
	}

	syms := symtab.New()
	structs := types.NewRegistry()

	warn := func(line int, msg string) { sink.Warn(line, msg) }
	p := parser.New(tokens, syms, structs, warn)

	prog, err := p.ParseProgram()
	if err != nil {
		sink.Error(0, "%s", err)
		return &Result{Sink: sink}, err
	}

	out := section.New()
	strings := x86.NewStringTable()
	labelCounter := 0

	for _, fn := range prog.Functions {
		if err := translateFunction(fn, out, strings, &labelCounter, warn); err != nil {
			sink.Error(fn.Line, "%s", err)
			return &Result{Sink: sink}, err
		}
	}

	strings.EmitData(out)

	if err := out.FlushToFile(outPath); err != nil {
		sink.Error(0, "failed to write output: %s", err)
		return &Result{Sink: sink}, err
	}

	return &Result{Sink: sink}, nil
}

// translateFunction lowers one function's locals, body and return paths
// into x86, matching the driver responsibilities named in spec.md §2:
// "At end-of-function the driver scans locals, lowers each statement to
// IR, and feeds IR+ASG to the x86 emitter".
func translateFunction(fn *parser.Function, out *section.Buffer, strs *x86.StringTable, labelCounter *int, warn func(int, string)) error {
	scanner := local.NewScanner()
	locals, frameSize := scanner.Scan(fn.Body, func(msg string) { warn(fn.Line, msg) })

	e := x86.NewEmitter(out, locals, frameSize, labelCounter, strs)
	e.BeginFunction(fn.Name)

	if err := lowerBody(e, fn.Body); err != nil {
		return err
	}

	e.EndFunction()
	return nil
}

// lowerBody walks a function's ASG sequence, dispatching each variant to
// its x86 lowering.
func lowerBody(e *x86.Emitter, head asg.Node) error {
	for n := head; n != nil; n = asg.Next(n) {
		if err := lowerNode(e, n); err != nil {
			return err
		}
	}
	return nil
}

func lowerNode(e *x86.Emitter, n asg.Node) error {
	switch v := n.(type) {
	case *asg.Statement:
		return lowerExprStatement(e, v.Expr)

	case *asg.Declaration:
		return lowerExprStatement(e, v.Expr)

	case *asg.Conditional:
		condSeq := condExprSeq(v.Cond)
		return e.LowerConditional(condSeq,
			func() error { return lowerBody(e, v.Success) },
			failureThunk(e, v.Failure))

	case *asg.For:
		var initSeq, postSeq *ir.Sequence
		if v.Init != nil {
			initSeq = plainExprSeq(v.Init)
		}
		if v.Post != nil {
			postSeq = plainExprSeq(v.Post)
		}
		condSeq := condExprSeq(v.Cond)
		return e.LowerFor(initSeq, condSeq, postSeq, func() error { return lowerBody(e, v.Body) })

	case *asg.While:
		condSeq := condExprSeq(v.Cond)
		return e.LowerWhile(condSeq, func() error { return lowerBody(e, v.Body) })

	case *asg.DoWhile:
		condSeq := condExprSeq(v.Cond)
		return e.LowerDoWhile(condSeq, func() error { return lowerBody(e, v.Body) })

	case *asg.Return:
		var seq *ir.Sequence
		if v.Value != nil {
			seq = plainExprSeq(v.Value)
		}
		return e.LowerReturn(v.Value, seq)
	}
	return fmt.Errorf("compiler: unhandled ASG node %T", n)
}

func failureThunk(e *x86.Emitter, failure asg.Node) func() error {
	if failure == nil {
		return nil
	}
	return func() error { return lowerBody(e, failure) }
}

// lowerExprStatement lowers a bare expression (Statement or Declaration)
// and emits it without a conditional TEST.
func lowerExprStatement(e *x86.Emitter, expr ast.Node) error {
	if expr == nil {
		return nil
	}
	return e.Lower(plainExprSeq(expr), false)
}

// plainExprSeq lowers expr into a fresh IR sequence with no trailing TEST.
func plainExprSeq(expr ast.Node) *ir.Sequence {
	seq := ir.NewSequence()
	_, _ = ir.ParseExpr(seq, expr, false)
	return seq
}

// condExprSeq lowers expr into a fresh IR sequence in conditional context,
// appending a trailing TEST unless the root is already a comparison.
func condExprSeq(expr ast.Node) *ir.Sequence {
	seq := ir.NewSequence()
	_, _ = ir.ParseExpr(seq, expr, true)
	return seq
}
