package compiler

import (
	"strconv"
)

// ---------------------------------------------------------------------------
// Parser: Recursive descent parser for nuqta
// ---------------------------------------------------------------------------

// Parser builds a Program from a token slice. Syntax errors are collected
// as diagnostics; after an error the parser skips past the next '.' and
// resumes with the next top-level item.
type Parser struct {
	tokens    []Token
	pos       int
	curToken  Token
	peekToken Token
	prevToken Token
	diags     diagList
}

// bailout unwinds the parser to the top-level loop after a syntax error.
type bailout struct{}

// NewParser creates a parser over tokens. A trailing EOF is added when the
// slice does not already end with one.
func NewParser(tokens []Token) *Parser {
	if len(tokens) == 0 || tokens[len(tokens)-1].Type != TokenEOF {
		var end Position
		if len(tokens) > 0 {
			end = tokens[len(tokens)-1].End
		} else {
			end = Position{Line: 1, Column: 1}
		}
		tokens = append(append([]Token(nil), tokens...), Token{Type: TokenEOF, Pos: end, End: end})
	}
	p := &Parser{
		tokens: tokens,
		pos:    -1,
		diags:  diagList{stage: StageParse},
	}
	p.nextToken()
	return p
}

// nextToken advances to the next token. It never moves past EOF.
func (p *Parser) nextToken() {
	p.prevToken = p.curToken
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.curToken = p.tokens[p.pos]
	if p.pos+1 < len(p.tokens) {
		p.peekToken = p.tokens[p.pos+1]
	} else {
		p.peekToken = p.curToken
	}
}

// curTokenIs checks if the current token is of the given type.
func (p *Parser) curTokenIs(t TokenType) bool {
	return p.curToken.Type == t
}

// match consumes the current token if it is one of types.
func (p *Parser) match(types ...TokenType) bool {
	for _, t := range types {
		if p.curTokenIs(t) {
			p.nextToken()
			return true
		}
	}
	return false
}

// expect consumes a token of type t or fails the current item.
func (p *Parser) expect(t TokenType, code Code, what string) Token {
	if p.curTokenIs(t) {
		tok := p.curToken
		p.nextToken()
		return tok
	}
	p.fail(code, "%s, got %s", what, p.describe(p.curToken))
	return Token{}
}

func (p *Parser) describe(tok Token) string {
	switch tok.Type {
	case TokenEOF:
		return "end of input"
	case TokenIdentifier, TokenIntLit, TokenFloatLit, TokenBoolLit, TokenUnknown:
		return strconv.Quote(tok.Literal)
	case TokenStringLit:
		return "string " + strconv.Quote(tok.Literal)
	}
	return "'" + tok.Type.String() + "'"
}

// fail records an error at the current token and abandons the current
// top-level item.
func (p *Parser) fail(code Code, format string, args ...any) {
	if p.curTokenIs(TokenEOF) && code == FailedToFindToken {
		code = UnexpectedEOF
	}
	p.diags.errorAt(p.curToken.Pos, code, format, args...)
	panic(bailout{})
}

// synchronize skips to just past the next '.' or to EOF.
func (p *Parser) synchronize() {
	for !p.curTokenIs(TokenEOF) && !p.curTokenIs(TokenDot) {
		p.nextToken()
	}
	if p.curTokenIs(TokenDot) {
		p.nextToken()
	}
}

func (p *Parser) spanFrom(start Position) Span {
	return MakeSpan(start, p.prevToken.End)
}

// Diagnostics returns accumulated parse diagnostics.
func (p *Parser) Diagnostics() []Diagnostic {
	return p.diags.items
}

// ---------------------------------------------------------------------------
// Top-level parsing
// ---------------------------------------------------------------------------

// ParseProgram parses every top-level item until EOF.
func (p *Parser) ParseProgram() *Program {
	prog := &Program{}
	start := p.curToken.Pos
	for !p.curTokenIs(TokenEOF) {
		if stmt := p.parseTopLevel(); stmt != nil {
			prog.Stmts = append(prog.Stmts, stmt)
		}
	}
	prog.SpanVal = MakeSpan(start, p.curToken.End)
	return prog
}

func (p *Parser) parseTopLevel() (stmt Stmt) {
	defer func() {
		if r := recover(); r != nil {
			if _, ok := r.(bailout); !ok {
				panic(r)
			}
			p.synchronize()
			stmt = nil
		}
	}()

	if p.curTokenIs(TokenFunction) {
		return p.parseFunctionDecl()
	}
	return p.parseStatement()
}

// parseFunctionDecl parses `fn type? name(type a, type b) { ... } .`.
func (p *Parser) parseFunctionDecl() *FunctionDecl {
	start := p.curToken.Pos
	p.nextToken() // fn

	fn := &FunctionDecl{ReturnType: TypeInt}
	if p.curToken.Type.IsTypeKeyword() {
		fn.ReturnType = typeFromToken(p.curToken.Type)
		p.nextToken()
	}

	name := p.expect(TokenIdentifier, ExpectedIdentifier, "expected function name")
	fn.Name = name.Literal
	fn.NamePos = name.Pos

	p.expect(TokenLParen, FailedToFindToken, "expected '(' after function name")
	if !p.curTokenIs(TokenRParen) {
		for {
			if !p.curToken.Type.IsTypeKeyword() {
				p.fail(ExpectedTypeToken, "expected parameter type, got %s", p.describe(p.curToken))
			}
			typ := typeFromToken(p.curToken.Type)
			p.nextToken()
			pname := p.expect(TokenIdentifier, ExpectedIdentifier, "expected parameter name")
			fn.Params = append(fn.Params, Param{Type: typ, Name: pname.Literal, Pos: pname.Pos})
			if !p.match(TokenComma) {
				break
			}
		}
	}
	p.expect(TokenRParen, FailedToFindToken, "expected ')' after parameters")

	fn.Body = p.parseBlock("function body")
	p.expect(TokenDot, FailedToFindToken, "expected '.' after function declaration")
	fn.SpanVal = p.spanFrom(start)
	return fn
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (p *Parser) parseStatement() Stmt {
	start := p.curToken.Pos

	switch {
	case p.curToken.Type.IsTypeKeyword():
		return p.parseVarDecl()

	case p.curTokenIs(TokenReturn):
		p.nextToken()
		ret := &ReturnStmt{}
		if !p.curTokenIs(TokenDot) {
			ret.Value = p.parseExpression()
		}
		p.expect(TokenDot, FailedToFindToken, "expected '.' after return statement")
		ret.SpanVal = p.spanFrom(start)
		return ret

	case p.curTokenIs(TokenBreak):
		p.nextToken()
		p.match(TokenDot)
		return &BreakStmt{SpanVal: p.spanFrom(start)}

	case p.curTokenIs(TokenContinue):
		p.nextToken()
		p.match(TokenDot)
		return &ContinueStmt{SpanVal: p.spanFrom(start)}

	case p.curTokenIs(TokenIf):
		return p.parseIf()

	case p.curTokenIs(TokenWhile):
		p.nextToken()
		p.expect(TokenLParen, FailedToFindToken, "expected '(' after 'while'")
		cond := p.parseExpression()
		p.expect(TokenRParen, FailedToFindToken, "expected ')' after condition")
		body := p.parseBlock("while body")
		return &WhileStmt{SpanVal: p.spanFrom(start), Cond: cond, Body: body}

	case p.curTokenIs(TokenFor):
		return p.parseFor()

	case p.curTokenIs(TokenLBrace):
		return p.parseBlock("block")

	case p.curTokenIs(TokenFunction):
		p.fail(FailedToFindToken, "function declarations are only allowed at top level")
	}

	expr := p.parseExpression()
	p.expect(TokenDot, FailedToFindToken, "expected '.' after expression")
	return &ExprStmt{SpanVal: p.spanFrom(start), Expr: expr}
}

// parseVarDecl parses `type name (= init)? .`.
func (p *Parser) parseVarDecl() *VarDecl {
	start := p.curToken.Pos
	decl := &VarDecl{Type: typeFromToken(p.curToken.Type)}
	p.nextToken()

	name := p.expect(TokenIdentifier, ExpectedIdentifier, "expected variable name")
	decl.Name = name.Literal
	decl.NamePos = name.Pos
	if p.match(TokenAssign) {
		decl.Init = p.parseExpression()
	}
	p.expect(TokenDot, FailedToFindToken, "expected '.' after variable declaration")
	decl.SpanVal = p.spanFrom(start)
	return decl
}

// parseBlock parses `{ stmts }`.
func (p *Parser) parseBlock(what string) *Block {
	start := p.curToken.Pos
	p.expect(TokenLBrace, FailedToFindToken, "expected '{' before "+what)

	block := &Block{}
	for !p.curTokenIs(TokenRBrace) && !p.curTokenIs(TokenEOF) {
		block.Stmts = append(block.Stmts, p.parseStatement())
	}
	p.expect(TokenRBrace, FailedToFindToken, "expected '}' after "+what)
	block.SpanVal = p.spanFrom(start)
	return block
}

func (p *Parser) parseIf() *IfStmt {
	start := p.curToken.Pos
	p.nextToken() // if

	p.expect(TokenLParen, FailedToFindToken, "expected '(' after 'if'")
	cond := p.parseExpression()
	p.expect(TokenRParen, FailedToFindToken, "expected ')' after if condition")

	stmt := &IfStmt{Cond: cond, Then: p.parseBlock("if body")}
	if p.match(TokenElse) {
		stmt.Else = p.parseBlock("else body")
	}
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

// parseFor parses `for (init . cond . update) { ... }`.
func (p *Parser) parseFor() *ForStmt {
	start := p.curToken.Pos
	p.nextToken() // for

	p.expect(TokenLParen, FailedToFindToken, "expected '(' after 'for'")
	stmt := &ForStmt{}

	switch {
	case p.curToken.Type.IsTypeKeyword():
		stmt.Init = p.parseVarDecl()
	case p.curTokenIs(TokenDot):
		p.nextToken()
	default:
		initStart := p.curToken.Pos
		expr := p.parseExpression()
		p.expect(TokenDot, FailedToFindToken, "expected '.' after for init")
		stmt.Init = &ExprStmt{SpanVal: p.spanFrom(initStart), Expr: expr}
	}

	if !p.curTokenIs(TokenDot) {
		stmt.Cond = p.parseExpression()
	}
	p.expect(TokenDot, FailedToFindToken, "expected '.' after for condition")

	if !p.curTokenIs(TokenRParen) {
		stmt.Update = p.parseExpression()
	}
	p.expect(TokenRParen, FailedToFindToken, "expected ')' after for clauses")

	stmt.Body = p.parseBlock("for body")
	stmt.SpanVal = p.spanFrom(start)
	return stmt
}

// ---------------------------------------------------------------------------
// Expressions, lowest precedence first
// ---------------------------------------------------------------------------

func (p *Parser) parseExpression() Expr {
	return p.parseAssignment()
}

// parseAssignment is right-associative: a = b = 1 is a = (b = 1).
func (p *Parser) parseAssignment() Expr {
	start := p.curToken.Pos
	expr := p.parseLogicalOr()

	if p.curTokenIs(TokenAssign) {
		assignTok := p.curToken
		p.nextToken()
		value := p.parseAssignment()
		if ident, ok := expr.(*Identifier); ok {
			return &Assignment{SpanVal: p.spanFrom(start), Target: ident.Name, Value: value}
		}
		p.diags.errorAt(assignTok.Pos, InvalidAssignmentTarget, "invalid assignment target")
		return value
	}
	return expr
}

// parseBinaryLevel parses one left-associative precedence level.
func (p *Parser) parseBinaryLevel(next func() Expr, ops ...TokenType) Expr {
	start := p.curToken.Pos
	expr := next()
	for {
		op := p.curToken
		if !p.match(ops...) {
			return expr
		}
		right := next()
		expr = &BinaryOp{SpanVal: p.spanFrom(start), Op: op.Literal, Left: expr, Right: right}
	}
}

func (p *Parser) parseLogicalOr() Expr {
	return p.parseBinaryLevel(p.parseLogicalAnd, TokenOrOr)
}

func (p *Parser) parseLogicalAnd() Expr {
	return p.parseBinaryLevel(p.parseEquality, TokenAndAnd)
}

func (p *Parser) parseEquality() Expr {
	return p.parseBinaryLevel(p.parseComparison, TokenEq, TokenNotEq)
}

func (p *Parser) parseComparison() Expr {
	return p.parseBinaryLevel(p.parseBitwise, TokenLess, TokenGreater, TokenLessEq, TokenGreaterEq)
}

func (p *Parser) parseBitwise() Expr {
	return p.parseBinaryLevel(p.parseAdditive, TokenAmp, TokenPipe, TokenCaret)
}

func (p *Parser) parseAdditive() Expr {
	return p.parseBinaryLevel(p.parseMultiplicative, TokenPlus, TokenMinus)
}

func (p *Parser) parseMultiplicative() Expr {
	return p.parseBinaryLevel(p.parseUnary, TokenStar, TokenSlash, TokenPercent)
}

func (p *Parser) parseUnary() Expr {
	if p.curTokenIs(TokenMinus) || p.curTokenIs(TokenBang) {
		op := p.curToken
		p.nextToken()
		operand := p.parseUnary()
		return &UnaryOp{SpanVal: p.spanFrom(op.Pos), Op: op.Literal, Operand: operand}
	}
	return p.parsePrimary()
}

func (p *Parser) parsePrimary() Expr {
	tok := p.curToken
	switch tok.Type {
	case TokenIntLit:
		p.nextToken()
		v, err := strconv.ParseInt(tok.Literal, 10, 64)
		if err != nil {
			p.diags.errorAt(tok.Pos, InvalidLiteral, "integer literal %s out of range", tok.Literal)
		}
		return &IntLiteral{SpanVal: MakeSpan(tok.Pos, tok.End), Value: v}

	case TokenFloatLit:
		p.nextToken()
		v, err := strconv.ParseFloat(tok.Literal, 64)
		if err != nil {
			p.diags.errorAt(tok.Pos, InvalidLiteral, "float literal %s out of range", tok.Literal)
		}
		return &FloatLiteral{SpanVal: MakeSpan(tok.Pos, tok.End), Value: v}

	case TokenStringLit:
		p.nextToken()
		return &StringLiteral{SpanVal: MakeSpan(tok.Pos, tok.End), Value: tok.Literal}

	case TokenBoolLit:
		p.nextToken()
		return &BoolLiteral{SpanVal: MakeSpan(tok.Pos, tok.End), Value: tok.Literal == "true"}

	case TokenIdentifier:
		p.nextToken()
		return p.parseIdentifierSuffix(tok)

	case TokenLParen:
		p.nextToken()
		expr := p.parseExpression()
		p.expect(TokenRParen, FailedToFindToken, "expected ')' after expression")
		return expr
	}

	p.fail(ExpectedExpr, "expected expression, got %s", p.describe(tok))
	return nil
}

// parseIdentifierSuffix handles a bare name, a call name(args) or an
// element access name[index].
func (p *Parser) parseIdentifierSuffix(name Token) Expr {
	ident := &Identifier{SpanVal: MakeSpan(name.Pos, name.End), Name: name.Literal}

	switch {
	case p.match(TokenLParen):
		call := &FunctionCall{Name: name.Literal}
		if !p.curTokenIs(TokenRParen) {
			for {
				call.Args = append(call.Args, p.parseExpression())
				if !p.match(TokenComma) {
					break
				}
			}
		}
		p.expect(TokenRParen, FailedToFindToken, "expected ')' after arguments")
		call.SpanVal = p.spanFrom(name.Pos)
		return call

	case p.match(TokenLBracket):
		index := p.parseExpression()
		p.expect(TokenRBracket, FailedToFindToken, "expected ']' after array index")
		return &ArrayAccess{SpanVal: p.spanFrom(name.Pos), Array: ident, Index: index}
	}
	return ident
}

// ---------------------------------------------------------------------------
// Entry points
// ---------------------------------------------------------------------------

// Parse builds a Program from tokens. It always returns a program, possibly
// partial, together with every syntax diagnostic.
func Parse(tokens []Token) (*Program, []Diagnostic) {
	p := NewParser(tokens)
	prog := p.ParseProgram()
	return prog, p.Diagnostics()
}

// ParseSource lexes and parses src. Lexical diagnostics come first.
func ParseSource(src string) (*Program, []Diagnostic) {
	tokens, lexDiags := Tokenize(src)
	prog, parseDiags := Parse(tokens)
	return prog, append(lexDiags, parseDiags...)
}
