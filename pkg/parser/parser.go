// Package parser drives the AST and ASG constructors from a flat token
// stream: recursive descent for statements and declarations, precedence
// climbing for expressions. Grounded on the teacher's parser.go grammar
// and structure, adapted to this dialect's type/struct/pointer surface and
// to building typed ast.Node/asg.Node trees instead of untyped Expr/Stmt.
//
// Grammar:
//
//	program     = (funcDecl | structDecl)* EOF
//	funcDecl    = typeSpec IDENTIFIER "(" params? ")" block
//	structDecl  = "struct" IDENTIFIER "{" memberDecl* "}" ";"
//	memberDecl  = typeSpec IDENTIFIER ";"
//	typeSpec    = ("int" | "char" | "unsigned" ("int" | "char")? | "void" | "struct" IDENTIFIER) "*"*
//	block       = "{" (varDecl | statement)* "}"
//	varDecl     = typeSpec IDENTIFIER ("=" assignment)? ("," "*"* IDENTIFIER ("=" assignment)?)* ";"
//	statement   = block | ifStmt | forStmt | whileStmt | doWhileStmt | returnStmt | exprStmt | ";"
//	exprStmt    = expression ";"
//	expression  = comma
//	comma       = assignment ("," assignment)*
//	assignment  = logicalOr ("=" assignment)?
//	logicalOr   = logicalAnd ("||" logicalAnd)*
//	logicalAnd  = bitOr ("&&" bitOr)*
//	bitOr       = bitXor ("|" bitXor)*
//	bitXor      = bitAnd ("^" bitAnd)*
//	bitAnd      = equality ("&" equality)*
//	equality    = relational (("=="|"!=") relational)*
//	relational  = shift (("<"|">"|"<="|">=") shift)*
//	shift       = additive (("<<"|">>") additive)*
//	additive    = term (("+"|"-") term)*
//	term        = unary (("*"|"/"|"%") unary)*
//	unary       = ("&"|"*"|"-"|"+"|"~"|"!") unary | postfix
//	postfix     = primary (("."|"->") IDENTIFIER | "(" args? ")")*
//	primary     = INTEGER | UNSIGNED_LIT | STRING | IDENTIFIER | "(" expression ")"
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"fcc/pkg/asg"
	"fcc/pkg/ast"
	"fcc/pkg/symtab"
	"fcc/pkg/token"
	"fcc/pkg/types"
)

// Function is one parsed function definition.
type Function struct {
	Name    string
	RetType types.Flags
	Params  []*ast.Identifier
	Body    asg.Node
	Line    int
}

// Program is the top-level result of a parse: the functions defined in the
// translation unit (struct declarations register directly into Structs as
// they are parsed, so they need no separate Program field).
type Program struct {
	Functions []*Function
}

// Parser consumes a flat token slice and builds function ASGs.
type Parser struct {
	tokens  []token.Token
	pos     int
	builder *ast.Builder
	syms    *symtab.Table
	structs *types.Registry
	warn    func(int, string)
}

func New(tokens []token.Token, syms *symtab.Table, structs *types.Registry, warn func(int, string)) *Parser {
	p := &Parser{
		tokens:  tokens,
		syms:    syms,
		structs: structs,
		warn:    warn,
	}
	p.builder = ast.NewBuilder(syms, structs, func(msg string) { p.warn(p.peek().Line, msg) })
	return p
}

func (p *Parser) peek() token.Token {
	if p.pos >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos]
}

func (p *Parser) peekAt(offset int) token.Token {
	if p.pos+offset >= len(p.tokens) {
		return token.Token{Type: token.EOF}
	}
	return p.tokens[p.pos+offset]
}

func (p *Parser) advance() token.Token {
	tok := p.peek()
	if p.pos < len(p.tokens) {
		p.pos++
	}
	return tok
}

func (p *Parser) expect(tt token.Type) (token.Token, error) {
	tok := p.advance()
	if tok.Type != tt {
		return tok, fmt.Errorf("line %d: expected %s, got %s (%q)", tok.Line, tt, tok.Type, tok.Lexeme)
	}
	return tok, nil
}

func (p *Parser) at(tt token.Type) bool { return p.peek().Type == tt }

// isTypeStart reports whether the current token begins a typeSpec.
func (p *Parser) isTypeStart() bool {
	switch p.peek().Type {
	case token.INT, token.CHAR, token.UNSIGNED, token.VOID, token.STRUCT:
		return true
	}
	return false
}

// ParseProgram parses the whole token stream into functions, registering
// struct declarations into the registry along the way.
func (p *Parser) ParseProgram() (*Program, error) {
	prog := &Program{}
	for !p.at(token.EOF) {
		if p.at(token.STRUCT) && p.peekAt(1).Type == token.IDENTIFIER && p.peekAt(2).Type == token.LBRACE {
			if err := p.parseStructDecl(); err != nil {
				return nil, err
			}
			continue
		}
		fn, err := p.parseFunction()
		if err != nil {
			return nil, err
		}
		prog.Functions = append(prog.Functions, fn)
	}
	return prog, nil
}

func (p *Parser) parseStructDecl() error {
	p.advance() // struct
	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return err
	}
	if _, err := p.expect(token.LBRACE); err != nil {
		return err
	}

	var specs []types.MemberSpec
	for !p.at(token.RBRACE) {
		typ, extra, err := p.parseTypeSpec()
		if err != nil {
			return err
		}
		indirection := 0
		for p.at(token.STAR) {
			p.advance()
			indirection++
		}
		memberTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return err
		}
		if _, err := p.expect(token.SEMICOLON); err != nil {
			return err
		}
		specs = append(specs, types.MemberSpec{
			Name:  memberTok.Lexeme,
			Type:  typ.WithIndirection(indirection),
			Extra: extra,
		})
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return err
	}

	_, err = p.structs.Create(nameTok.Lexeme, specs)
	return err
}

// parseTypeSpec parses the base type keyword(s), returning its Flags (with
// indirection always 0; callers apply pointer stars themselves) and, for
// STRUCT, the resolved descriptor.
func (p *Parser) parseTypeSpec() (types.Flags, *types.Struct, error) {
	switch p.peek().Type {
	case token.INT:
		p.advance()
		return types.Int, nil, nil
	case token.CHAR:
		p.advance()
		return types.Char, nil, nil
	case token.VOID:
		p.advance()
		return types.Void, nil, nil
	case token.UNSIGNED:
		p.advance()
		base := types.Int
		if p.at(token.INT) {
			p.advance()
		} else if p.at(token.CHAR) {
			p.advance()
			base = types.Char
		}
		return base.SetUnsigned(true), nil, nil
	case token.STRUCT:
		p.advance()
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return 0, nil, err
		}
		desc, ok := p.structs.Find(nameTok.Lexeme)
		if !ok {
			return 0, nil, fmt.Errorf("line %d: struct %q undefined", nameTok.Line, nameTok.Lexeme)
		}
		return types.StructTag, desc, nil
	}
	tok := p.peek()
	return 0, nil, fmt.Errorf("line %d: expected a type, got %s", tok.Line, tok.Type)
}

func (p *Parser) parseFunction() (*Function, error) {
	retType, _, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}
	indirection := 0
	for p.at(token.STAR) {
		p.advance()
		indirection++
	}
	retType = retType.WithIndirection(indirection)

	nameTok, err := p.expect(token.IDENTIFIER)
	if err != nil {
		return nil, err
	}
	if _, err := p.syms.AddFunction(nameTok.Lexeme, retType); err != nil {
		return nil, err
	}

	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.syms.NewScope()
	defer p.syms.DestroyScope()

	var params []*ast.Identifier
	if !p.at(token.RPAREN) {
		if p.at(token.VOID) && p.peekAt(1).Type == token.RPAREN {
			p.advance()
		} else {
			for {
				pt, pextra, err := p.parseTypeSpec()
				if err != nil {
					return nil, err
				}
				pind := 0
				for p.at(token.STAR) {
					p.advance()
					pind++
				}
				pnameTok, err := p.expect(token.IDENTIFIER)
				if err != nil {
					return nil, err
				}
				id, err := p.builder.CreateNewID(pnameTok.Lexeme)
				if err != nil {
					return nil, err
				}
				finalType := pt.WithIndirection(pind)
				if err := p.builder.SetDeclarationType(id, finalType); err != nil {
					return nil, err
				}
				if finalType.IsStruct() {
					id.Sym.Extra = pextra
				}
				params = append(params, id)
				if !p.at(token.COMMA) {
					break
				}
				p.advance()
			}
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}

	return &Function{Name: nameTok.Lexeme, RetType: retType, Params: params, Body: body, Line: nameTok.Line}, nil
}

func (p *Parser) parseBlock() (asg.Node, error) {
	if _, err := p.expect(token.LBRACE); err != nil {
		return nil, err
	}
	var head asg.Node
	for !p.at(token.RBRACE) {
		node, err := p.parseBlockItem()
		if err != nil {
			return nil, err
		}
		if node != nil {
			head = asg.Append(head, node, func(msg string) { p.warn(p.peek().Line, msg) })
		}
	}
	if _, err := p.expect(token.RBRACE); err != nil {
		return nil, err
	}
	return head, nil
}

func (p *Parser) parseBlockItem() (asg.Node, error) {
	if p.isTypeStart() {
		return p.parseVarDecl()
	}
	return p.parseStatement()
}

func (p *Parser) parseVarDecl() (asg.Node, error) {
	baseType, extra, err := p.parseTypeSpec()
	if err != nil {
		return nil, err
	}

	var head asg.Node
	for {
		indirection := 0
		for p.at(token.STAR) {
			p.advance()
			indirection++
		}
		nameTok, err := p.expect(token.IDENTIFIER)
		if err != nil {
			return nil, err
		}
		id, err := p.builder.CreateNewID(nameTok.Lexeme)
		if err != nil {
			return nil, err
		}
		finalType := baseType.WithIndirection(indirection)
		if err := p.builder.SetDeclarationType(id, finalType); err != nil {
			return nil, err
		}
		if finalType.IsStruct() {
			id.Sym.Extra = extra
		}

		var declExpr ast.Node = id
		if p.at(token.ASSIGN) {
			p.advance()
			rhs, err := p.parseAssignment()
			if err != nil {
				return nil, err
			}
			assign, err := p.builder.CreateExpr(ast.OpAssign, id, rhs)
			if err != nil {
				return nil, err
			}
			declExpr = assign
		}
		head = asg.Append(head, &asg.Declaration{Expr: declExpr}, func(msg string) { p.warn(nameTok.Line, msg) })

		if !p.at(token.COMMA) {
			break
		}
		p.advance()
	}

	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return head, nil
}

func (p *Parser) parseStatement() (asg.Node, error) {
	switch p.peek().Type {
	case token.LBRACE:
		p.syms.NewScope()
		defer p.syms.DestroyScope()
		return p.parseBlock()
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.WHILE:
		return p.parseWhile()
	case token.DO:
		return p.parseDoWhile()
	case token.RETURN:
		return p.parseReturn()
	case token.SEMICOLON:
		p.advance()
		return nil, nil
	}
	expr, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &asg.Statement{Expr: expr}, nil
}

func (p *Parser) parseIf() (asg.Node, error) {
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	success, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	var failure asg.Node
	if p.at(token.ELSE) {
		p.advance()
		failure, err = p.parseStatement()
		if err != nil {
			return nil, err
		}
	}
	return &asg.Conditional{Cond: cond, Success: success, Failure: failure}, nil
}

func (p *Parser) parseFor() (asg.Node, error) {
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	p.syms.NewScope()
	defer p.syms.DestroyScope()

	var init ast.Node
	if !p.at(token.SEMICOLON) {
		var err error
		init, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	var cond ast.Node
	if !p.at(token.SEMICOLON) {
		var err error
		cond, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}

	var post ast.Node
	if !p.at(token.RPAREN) {
		var err error
		post, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}

	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &asg.For{Init: init, Cond: cond, Post: post, Body: body}, nil
}

func (p *Parser) parseWhile() (asg.Node, error) {
	p.advance()
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	return &asg.While{Cond: cond, Body: body}, nil
}

func (p *Parser) parseDoWhile() (asg.Node, error) {
	p.advance()
	body, err := p.parseStatement()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.WHILE); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.RPAREN); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &asg.DoWhile{Cond: cond, Body: body}, nil
}

func (p *Parser) parseReturn() (asg.Node, error) {
	p.advance()
	var value ast.Node
	if !p.at(token.SEMICOLON) {
		var err error
		value, err = p.parseExpression()
		if err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(token.SEMICOLON); err != nil {
		return nil, err
	}
	return &asg.Return{Value: value}, nil
}

// --- expression parsing: precedence climbing ---

func (p *Parser) parseExpression() (ast.Node, error) {
	return p.parseComma()
}

func (p *Parser) parseComma() (ast.Node, error) {
	expr, err := p.parseAssignment()
	if err != nil {
		return nil, err
	}
	for p.at(token.COMMA) {
		p.advance()
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		expr, err = p.builder.CreateExpr(ast.OpComma, expr, rhs)
		if err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseAssignment() (ast.Node, error) {
	expr, err := p.parseLogicalOr()
	if err != nil {
		return nil, err
	}
	if p.at(token.ASSIGN) {
		p.advance()
		rhs, err := p.parseAssignment()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateExpr(ast.OpAssign, expr, rhs)
	}
	return expr, nil
}

func (p *Parser) parseLogicalOr() (ast.Node, error) {
	expr, err := p.parseLogicalAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.OR_LOGICAL) {
		p.advance()
		rhs, err := p.parseLogicalAnd()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(ast.OpLogicalOr, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseLogicalAnd() (ast.Node, error) {
	expr, err := p.parseBitOr()
	if err != nil {
		return nil, err
	}
	for p.at(token.AND_LOGICAL) {
		p.advance()
		rhs, err := p.parseBitOr()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(ast.OpLogicalAnd, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseBitOr() (ast.Node, error) {
	expr, err := p.parseBitXor()
	if err != nil {
		return nil, err
	}
	for p.at(token.PIPE) {
		p.advance()
		rhs, err := p.parseBitXor()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(ast.OpBitOr, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseBitXor() (ast.Node, error) {
	expr, err := p.parseBitAnd()
	if err != nil {
		return nil, err
	}
	for p.at(token.CARET) {
		p.advance()
		rhs, err := p.parseBitAnd()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(ast.OpBitXor, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseBitAnd() (ast.Node, error) {
	expr, err := p.parseEquality()
	if err != nil {
		return nil, err
	}
	for p.at(token.AMP) {
		p.advance()
		rhs, err := p.parseEquality()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(ast.OpBitAnd, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseEquality() (ast.Node, error) {
	expr, err := p.parseRelational()
	if err != nil {
		return nil, err
	}
	for p.at(token.EQUALS) || p.at(token.NOT_EQ) {
		op := ast.OpEq
		if p.peek().Type == token.NOT_EQ {
			op = ast.OpNe
		}
		p.advance()
		rhs, err := p.parseRelational()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(op, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseRelational() (ast.Node, error) {
	expr, err := p.parseShift()
	if err != nil {
		return nil, err
	}
	for {
		var op ast.Op
		switch p.peek().Type {
		case token.LESS:
			op = ast.OpLt
		case token.GREATER:
			op = ast.OpGt
		case token.LESS_EQ:
			op = ast.OpLe
		case token.GREATER_EQ:
			op = ast.OpGe
		default:
			return expr, nil
		}
		p.advance()
		rhs, err := p.parseShift()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(op, expr, rhs); err != nil {
			return nil, err
		}
	}
}

func (p *Parser) parseShift() (ast.Node, error) {
	expr, err := p.parseAdditive()
	if err != nil {
		return nil, err
	}
	for p.at(token.SHL) || p.at(token.SHR) {
		op := ast.OpShl
		if p.peek().Type == token.SHR {
			op = ast.OpShr
		}
		p.advance()
		rhs, err := p.parseAdditive()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(op, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseAdditive() (ast.Node, error) {
	expr, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	for p.at(token.PLUS) || p.at(token.MINUS) {
		op := ast.OpAdd
		if p.peek().Type == token.MINUS {
			op = ast.OpSub
		}
		p.advance()
		rhs, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(op, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseTerm() (ast.Node, error) {
	expr, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for p.at(token.STAR) || p.at(token.SLASH) || p.at(token.PERCENT) {
		var op ast.Op
		switch p.peek().Type {
		case token.STAR:
			op = ast.OpMult
		case token.SLASH:
			op = ast.OpDiv
		case token.PERCENT:
			op = ast.OpMod
		}
		p.advance()
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		if expr, err = p.builder.CreateExpr(op, expr, rhs); err != nil {
			return nil, err
		}
	}
	return expr, nil
}

func (p *Parser) parseUnary() (ast.Node, error) {
	switch p.peek().Type {
	case token.AMP:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpAddress, operand)
	case token.STAR:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpDereference, operand)
	case token.MINUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpUnaryMinus, operand)
	case token.PLUS:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpUnaryPlus, operand)
	case token.TILDE:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpNot, operand)
	case token.NOT:
		p.advance()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return p.builder.CreateUnary(ast.OpLogicalNot, operand)
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Node, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		switch p.peek().Type {
		case token.DOT:
			p.advance()
			nameTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if expr, err = p.builder.CreateMemberAccess(expr, nameTok.Lexeme, false); err != nil {
				return nil, err
			}
		case token.ARROW:
			p.advance()
			nameTok, err := p.expect(token.IDENTIFIER)
			if err != nil {
				return nil, err
			}
			if expr, err = p.builder.CreateMemberAccess(expr, nameTok.Lexeme, true); err != nil {
				return nil, err
			}
		case token.LPAREN:
			id, ok := expr.(*ast.Identifier)
			if !ok {
				return nil, fmt.Errorf("line %d: call target is not a function", p.peek().Line)
			}
			p.advance()
			var args []ast.Node
			if !p.at(token.RPAREN) {
				for {
					arg, err := p.parseAssignment()
					if err != nil {
						return nil, err
					}
					args = append(args, arg)
					if !p.at(token.COMMA) {
						break
					}
					p.advance()
				}
			}
			if _, err := p.expect(token.RPAREN); err != nil {
				return nil, err
			}
			call, err := p.builder.CreateFunc(id, args)
			if err != nil {
				return nil, err
			}
			expr = call
		default:
			return expr, nil
		}
	}
}

func (p *Parser) parsePrimary() (ast.Node, error) {
	tok := p.peek()
	switch tok.Type {
	case token.INTEGER:
		p.advance()
		v, err := parseIntLiteral(tok.Lexeme)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", tok.Line, err)
		}
		return p.builder.CreateConstant(v, isUnsignedLexeme(tok.Lexeme)), nil
	case token.UNSIGNED_LIT:
		p.advance()
		v, err := parseIntLiteral(tok.Lexeme)
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", tok.Line, err)
		}
		return p.builder.CreateConstant(v, true), nil
	case token.STRING:
		p.advance()
		return p.builder.CreateStrLit(tok.Lexeme), nil
	case token.IDENTIFIER:
		p.advance()
		return p.builder.CreateIdentifier(tok.Lexeme)
	case token.LPAREN:
		p.advance()
		expr, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN); err != nil {
			return nil, err
		}
		return expr, nil
	}
	return nil, fmt.Errorf("line %d: unexpected token %s (%q)", tok.Line, tok.Type, tok.Lexeme)
}

// parseIntLiteral parses a decimal, octal (0-prefixed) or hex (0x-prefixed)
// literal, matching the original dialect's scanning rules.
func parseIntLiteral(lexeme string) (int64, error) {
	base := 10
	if strings.HasPrefix(lexeme, "0x") || strings.HasPrefix(lexeme, "0X") {
		base = 16
		lexeme = lexeme[2:]
	} else if len(lexeme) > 1 && lexeme[0] == '0' {
		base = 8
		lexeme = lexeme[1:]
	}
	return strconv.ParseInt(lexeme, base, 64)
}

// isUnsignedLexeme implements the Open-Question decision recorded in
// SPEC_FULL.md §6: a literal is unsigned if its first character is '0' and
// it has more than one character (octal/hex), kept for source fidelity.
// u/U-suffixed literals are already routed to token.UNSIGNED_LIT by the
// lexer and never reach this path.
func isUnsignedLexeme(lexeme string) bool {
	return len(lexeme) > 1 && lexeme[0] == '0'
}
