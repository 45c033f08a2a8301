// Package parser implements the Kaleidoscope parser.
//
// The parser turns a token stream (from pkg/lexer) into a sequence of
// top-level AST nodes (pkg/ast): extern declarations and function
// definitions, including the anonymous function the parser wraps
// around a bare top-level expression.
//
// Resumability:
//
// A REPL feeds the parser one line at a time, and a single top-level
// construct can legitimately span several lines (an unfinished `if`,
// an open paren, a binary expression whose next operand hasn't been
// typed yet). Parse does not treat "ran out of tokens mid-construct"
// as a syntax error: it rewinds to the start of the construct it was
// attempting and returns the unconsumed tokens as a remainder, which
// the driver prepends to the next line's tokens and retries. Only a
// genuinely malformed construct (wrong token in the wrong place, with
// more input available to prove it) is a hard error.
//
// This tri-state outcome — parsed, needs more input, malformed — is
// threaded through the recursive-descent functions below via a single
// sentinel error value, errNotComplete, rather than a three-armed
// result type: Go's (value, error) idiom already distinguishes
// "succeeded" from "failed", and errNotComplete is just a specific
// failure that every caller recognizes and propagates instead of
// wrapping.
//
// Operator precedence:
//
// Binary operator parsing is precedence climbing over a mutable
// table (Settings): a `def binary OP PREC (a b) ...` declaration
// registers OP at precedence PREC before its own body is parsed, so
// an operator may use itself recursively. `def unary OP (a) ...`
// works the same way without a declared precedence — parseUnary always
// treats a leading operator symbol as a prefix application.
package parser

import (
	"fmt"

	"github.com/kristofer/kaleidoscope/pkg/ast"
	"github.com/kristofer/kaleidoscope/pkg/lexer"
)

// errNotComplete signals that the token stream ran out in the middle
// of a construct. It never escapes this package: Parse catches it and
// turns it into a remainder, ParseAll catches it and turns it into a
// terminal "unexpected end of input" error.
var errNotComplete = fmt.Errorf("kaleidoscope/parser: not complete")

// Parser parses one token stream against a shared Settings table. A
// new Parser is cheap to create; Settings is what must survive across
// a REPL's repeated, possibly-retried Parse calls.
type Parser struct {
	settings *Settings
	toks     []lexer.Token
	pos      int
}

// New creates a Parser over toks, sharing the given Settings.
func New(settings *Settings, toks []lexer.Token) *Parser {
	return &Parser{settings: settings, toks: toks}
}

func (p *Parser) cur() lexer.Token {
	if p.pos >= len(p.toks) {
		return lexer.Token{Kind: lexer.TokenEOF}
	}
	return p.toks[p.pos]
}

func (p *Parser) advance() lexer.Token {
	t := p.cur()
	if p.pos < len(p.toks) {
		p.pos++
	}
	return t
}

func (p *Parser) mark() int        { return p.pos }
func (p *Parser) rewind(mark int)  { p.pos = mark }

// peekOperator reports whether the current token is usable as an
// operator symbol (built-in or user-defined) and, if so, what symbol.
func (p *Parser) peekOperator() (string, bool) {
	t := p.cur()
	if t.Kind != lexer.TokenOperator {
		return "", false
	}
	return t.Op, true
}

// Parse consumes as many complete top-level constructs as it can from
// the front of the token stream and returns them. If the stream ends
// mid-construct, Parse rewinds to the start of that construct and
// returns the tokens from there onward as remainder, with a nil error
// — this is the "not complete yet" outcome, not a failure. A non-nil
// error means a construct was unambiguously malformed.
func (p *Parser) Parse() (results []ast.TopLevel, remainder []lexer.Token, err error) {
	for {
		for p.cur().Kind == lexer.TokenDelimiter {
			p.advance()
		}
		if p.cur().Kind == lexer.TokenEOF {
			return results, nil, nil
		}

		m := p.mark()
		node, perr := p.parseTopLevel()
		if perr == errNotComplete {
			p.rewind(m)
			rest := p.toks[p.pos:]
			if n := len(rest); n > 0 && rest[n-1].Kind == lexer.TokenEOF {
				rest = rest[:n-1]
			}
			return results, rest, nil
		}
		if perr != nil {
			return results, nil, perr
		}
		results = append(results, node)
	}
}

func (p *Parser) skipToNextDelimiter() {
	for p.cur().Kind != lexer.TokenEOF && p.cur().Kind != lexer.TokenDelimiter {
		p.advance()
	}
	if p.cur().Kind == lexer.TokenDelimiter {
		p.advance()
	}
}

func (p *Parser) parseTopLevel() (ast.TopLevel, error) {
	switch p.cur().Kind {
	case lexer.TokenExtern:
		return p.parseExtern()
	case lexer.TokenDef:
		return p.parseDef()
	case lexer.TokenEOF:
		return nil, errNotComplete
	default:
		return p.parseTopLevelExpr()
	}
}

func (p *Parser) parseExtern() (ast.TopLevel, error) {
	p.advance() // 'extern'
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	return &ast.ExternDecl{Proto: proto}, nil
}

func (p *Parser) parseDef() (ast.TopLevel, error) {
	p.advance() // 'def'
	proto, err := p.parsePrototype()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Proto: proto, Body: body}, nil
}

func (p *Parser) parseTopLevelExpr() (ast.TopLevel, error) {
	expr, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Function{Proto: &ast.Prototype{}, Body: expr}, nil
}

// parsePrototype parses a plain `name(args...)`, or a
// `unary OP(arg)` / `binary OP [prec](a b)` operator declaration. A
// binary declaration registers its precedence in Settings immediately,
// before the caller goes on to parse the function's body.
func (p *Parser) parsePrototype() (*ast.Prototype, error) {
	proto := &ast.Prototype{}

	switch p.cur().Kind {
	case lexer.TokenIdent:
		proto.Name = p.advance().Ident

	case lexer.TokenUnary:
		p.advance()
		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		op, ok := p.peekOperator()
		if !ok {
			return nil, fmt.Errorf("expected unary operator symbol")
		}
		p.advance()
		proto.Name = "unary" + op
		proto.IsOperator = true
		proto.IsUnary = true

	case lexer.TokenBinary:
		p.advance()
		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		op, ok := p.peekOperator()
		if !ok {
			return nil, fmt.Errorf("expected binary operator symbol")
		}
		p.advance()

		prec := 30
		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		if p.cur().Kind == lexer.TokenNumber {
			prec = int(p.advance().Number)
		}

		proto.Name = "binary" + op
		proto.IsOperator = true
		proto.Precedence = prec
		p.settings.SetPrecedence(op, prec)

	case lexer.TokenEOF:
		return nil, errNotComplete

	default:
		return nil, fmt.Errorf("expected function name in prototype")
	}

	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenLeftParen {
		return nil, fmt.Errorf("expected '(' in prototype")
	}
	p.advance()

	for p.cur().Kind == lexer.TokenIdent {
		proto.Args = append(proto.Args, p.advance().Ident)
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenRightParen {
		return nil, fmt.Errorf("expected ')' in prototype")
	}
	p.advance()

	if proto.IsOperator && proto.IsUnary && len(proto.Args) != 1 {
		return nil, fmt.Errorf("unary operator %q must take exactly one argument", proto.Name)
	}
	if proto.IsOperator && !proto.IsUnary && len(proto.Args) != 2 {
		return nil, fmt.Errorf("binary operator %q must take exactly two arguments", proto.Name)
	}

	return proto, nil
}

// parseExpr parses a unary expression followed by as much of a binary
// operator chain as precedence allows.
func (p *Parser) parseExpr() (ast.Expr, error) {
	lhs, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return p.parseBinOpRHS(0, lhs)
}

// parseBinOpRHS implements precedence climbing: exprPrec is the
// minimum precedence this call is willing to fold into lhs. It only
// ever increases across a recursive call (when a higher-precedence
// operator follows), never decreases, which is what keeps a chain
// like `a + b * c - d` grouping as `(a + (b*c)) - d` instead of
// drifting left or right arbitrarily.
func (p *Parser) parseBinOpRHS(exprPrec int, lhs ast.Expr) (ast.Expr, error) {
	for {
		if p.cur().Kind == lexer.TokenEOF {
			return lhs, nil
		}
		op, ok := p.peekOperator()
		if !ok {
			return lhs, nil
		}
		prec, known := p.settings.Precedence(op)
		if !known || prec < exprPrec {
			return lhs, nil
		}
		p.advance() // consume operator

		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		rhs, err := p.parseUnary()
		if err != nil {
			return nil, err
		}

		if nextOp, ok := p.peekOperator(); ok {
			if nextPrec, known := p.settings.Precedence(nextOp); known && nextPrec > prec {
				rhs, err = p.parseBinOpRHS(prec+1, rhs)
				if err != nil {
					return nil, err
				}
			}
		}

		lhs = &ast.BinaryExpr{Op: op, LHS: lhs, RHS: rhs}
	}
}

// parseUnary applies a user-defined unary operator if the current
// token is an operator symbol at all (there is no ambiguity with
// binary use, since parseUnary is only ever called at the start of an
// operand, before any binary operator could apply); otherwise it
// falls through to a primary expression.
func (p *Parser) parseUnary() (ast.Expr, error) {
	op, ok := p.peekOperator()
	if !ok {
		return p.parsePrimary()
	}
	p.advance()
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	operand, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	return &ast.UnaryExpr{Op: op, Operand: operand}, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	switch p.cur().Kind {
	case lexer.TokenIdent:
		return p.parseIdentExpr()
	case lexer.TokenNumber:
		return &ast.NumberExpr{Value: p.advance().Number}, nil
	case lexer.TokenLeftParen:
		return p.parseParenExpr()
	case lexer.TokenIf:
		return p.parseIfExpr()
	case lexer.TokenFor:
		return p.parseForExpr()
	case lexer.TokenEOF:
		return nil, errNotComplete
	default:
		return nil, fmt.Errorf("unexpected token %s when expecting an expression", p.cur())
	}
}

func (p *Parser) parseIdentExpr() (ast.Expr, error) {
	name := p.advance().Ident
	if p.cur().Kind != lexer.TokenLeftParen {
		return &ast.VariableExpr{Name: name}, nil
	}
	p.advance() // '('

	var args []ast.Expr
	for p.cur().Kind != lexer.TokenRightParen {
		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		arg, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		args = append(args, arg)

		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		if p.cur().Kind == lexer.TokenComma {
			p.advance()
			continue
		}
		break
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenRightParen {
		return nil, fmt.Errorf("expected ')' or ',' in argument list")
	}
	p.advance()
	return &ast.CallExpr{Callee: name, Args: args}, nil
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	p.advance() // '('
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	inner, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenRightParen {
		return nil, fmt.Errorf("expected ')'")
	}
	p.advance()
	return inner, nil
}

func (p *Parser) parseIfExpr() (ast.Expr, error) {
	p.advance() // 'if'
	cond, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenThen {
		return nil, fmt.Errorf("expected 'then'")
	}
	p.advance()

	thenExpr, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenElse {
		return nil, fmt.Errorf("expected 'else'")
	}
	p.advance()

	elseExpr, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}
	return &ast.IfExpr{Cond: cond, Then: thenExpr, Else: elseExpr}, nil
}

func (p *Parser) parseForExpr() (ast.Expr, error) {
	p.advance() // 'for'
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenIdent {
		return nil, fmt.Errorf("expected identifier after 'for'")
	}
	varName := p.advance().Ident

	if op, ok := p.peekOperator(); !ok || op != "=" {
		if p.cur().Kind == lexer.TokenEOF {
			return nil, errNotComplete
		}
		return nil, fmt.Errorf("expected '=' after for-loop variable")
	}
	p.advance()

	start, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenComma {
		return nil, fmt.Errorf("expected ',' after for-loop start value")
	}
	p.advance()

	end, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}

	var step ast.Expr = &ast.NumberExpr{Value: 1.0}
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind == lexer.TokenComma {
		p.advance()
		step, err = p.parseGuarded()
		if err != nil {
			return nil, err
		}
	}

	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	if p.cur().Kind != lexer.TokenIn {
		return nil, fmt.Errorf("expected 'in' after for-loop range")
	}
	p.advance()

	body, err := p.parseGuarded()
	if err != nil {
		return nil, err
	}
	return &ast.LoopExpr{Var: varName, Start: start, End: end, Step: step, Body: body}, nil
}

// parseGuarded parses an expression after checking that input remains
// at all, saving every call site above from repeating that check.
func (p *Parser) parseGuarded() (ast.Expr, error) {
	if p.cur().Kind == lexer.TokenEOF {
		return nil, errNotComplete
	}
	return p.parseExpr()
}
