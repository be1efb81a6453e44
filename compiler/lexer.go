package compiler

import (
	"strings"
	"unicode/utf8"

	"github.com/tliron/commonlog"
)

// ---------------------------------------------------------------------------
// Lexer: Tokenizer for nuqta source
// ---------------------------------------------------------------------------

var lexLog = commonlog.GetLogger("nuqta.lexer")

// Lexer tokenizes nuqta source code. It never fails: anything it cannot
// classify becomes a TokenUnknown plus a diagnostic.
type Lexer struct {
	input string
	pos   int // byte offset of the next unread character
	line  int // 1-based
	col   int // 1-based, counted in runes
	diags diagList
}

// NewLexer creates a new lexer for the given input.
func NewLexer(input string) *Lexer {
	return &Lexer{
		input: input,
		line:  1,
		col:   1,
		diags: diagList{stage: StageLex},
	}
}

// Diagnostics returns the problems found so far.
func (l *Lexer) Diagnostics() []Diagnostic {
	return l.diags.items
}

func (l *Lexer) position() Position {
	return Position{Offset: l.pos, Line: l.line, Column: l.col}
}

// peek returns the byte n positions ahead, or 0 past the end.
func (l *Lexer) peek(n int) byte {
	if l.pos+n >= len(l.input) {
		return 0
	}
	return l.input[l.pos+n]
}

// advance consumes one rune.
func (l *Lexer) advance() {
	if l.pos >= len(l.input) {
		return
	}
	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	l.pos += size
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
}

func (l *Lexer) atEOF() bool {
	return l.pos >= len(l.input)
}

func (l *Lexer) token(typ TokenType, literal string, start Position) Token {
	return Token{Type: typ, Literal: literal, Pos: start, End: l.position()}
}

func (l *Lexer) warn(pos Position, code Code, format string, args ...any) {
	l.diags.warnAt(pos, code, format, args...)
	lexLog.Warningf("line %d, column %d: "+format, append([]any{pos.Line, pos.Column}, args...)...)
}

func (l *Lexer) errorAt(pos Position, code Code, format string, args ...any) {
	l.diags.errorAt(pos, code, format, args...)
	lexLog.Warningf("line %d, column %d: "+format, append([]any{pos.Line, pos.Column}, args...)...)
}

// NextToken returns the next token. Once the input is exhausted it keeps
// returning EOF.
func (l *Lexer) NextToken() Token {
	l.skipWhitespaceAndComments()

	start := l.position()
	if l.atEOF() {
		return l.token(TokenEOF, "", start)
	}

	ch := l.input[l.pos]
	switch {
	case ch == '"':
		return l.readString(start)
	case isIdentStart(ch):
		return l.readWord(start)
	case isDigit(ch):
		return l.readNumber(start)
	}

	if l.pos+1 < len(l.input) {
		if typ, ok := twoCharOps[l.input[l.pos:l.pos+2]]; ok {
			lit := l.input[l.pos : l.pos+2]
			l.advance()
			l.advance()
			return l.token(typ, lit, start)
		}
	}
	if typ, ok := oneCharOps[ch]; ok {
		l.advance()
		return l.token(typ, string(ch), start)
	}

	r, size := utf8.DecodeRuneInString(l.input[l.pos:])
	lit := l.input[l.pos : l.pos+size]
	l.advance()
	l.warn(start, UnknownCharacter, "unknown character %q", r)
	return l.token(TokenUnknown, lit, start)
}

// skipWhitespaceAndComments skips whitespace, // line comments and
// /* block */ comments.
func (l *Lexer) skipWhitespaceAndComments() {
	for !l.atEOF() {
		ch := l.input[l.pos]
		switch {
		case ch == ' ' || ch == '\t' || ch == '\n' || ch == '\r':
			l.advance()
		case ch == '/' && l.peek(1) == '/':
			for !l.atEOF() && l.input[l.pos] != '\n' {
				l.advance()
			}
		case ch == '/' && l.peek(1) == '*':
			start := l.position()
			l.advance()
			l.advance()
			for !l.atEOF() && !(l.input[l.pos] == '*' && l.peek(1) == '/') {
				l.advance()
			}
			if l.atEOF() {
				l.errorAt(start, UnterminatedComment, "unterminated block comment")
				return
			}
			l.advance()
			l.advance()
		default:
			return
		}
	}
}

// readString reads a double-quoted string literal. The token literal is the
// unescaped contents without quotes.
func (l *Lexer) readString(start Position) Token {
	l.advance() // opening "

	var sb strings.Builder
	for !l.atEOF() {
		ch := l.input[l.pos]
		if ch == '"' {
			l.advance()
			return l.token(TokenStringLit, sb.String(), start)
		}
		if ch == '\\' && l.pos+1 < len(l.input) {
			l.advance()
			switch esc := l.input[l.pos]; esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case '\\':
				sb.WriteByte('\\')
			case '"':
				sb.WriteByte('"')
			default:
				r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
				sb.WriteRune(r)
			}
			l.advance()
			continue
		}
		r, _ := utf8.DecodeRuneInString(l.input[l.pos:])
		sb.WriteRune(r)
		l.advance()
	}

	l.errorAt(start, UnterminatedString, "unterminated string literal")
	return l.token(TokenStringLit, sb.String(), start)
}

// readWord reads a bool literal, keyword or identifier.
func (l *Lexer) readWord(start Position) Token {
	from := l.pos
	for !l.atEOF() && isIdentPart(l.input[l.pos]) {
		l.advance()
	}
	word := l.input[from:l.pos]

	if canon, ok := boolLiterals[word]; ok {
		return l.token(TokenBoolLit, canon, start)
	}
	if typ, ok := keywords[word]; ok {
		return l.token(typ, word, start)
	}
	return l.token(TokenIdentifier, word, start)
}

// readNumber reads an int or float literal. A float needs digits on both
// sides of the point, so `1.` is an int followed by a terminator. A digit
// run glued to an identifier (2bad) is reported and returned as one
// unknown token.
func (l *Lexer) readNumber(start Position) Token {
	from := l.pos
	typ := TokenIntLit

	for !l.atEOF() && isDigit(l.input[l.pos]) {
		l.advance()
	}
	if !l.atEOF() && l.input[l.pos] == '.' && isDigit(l.peek(1)) {
		typ = TokenFloatLit
		l.advance()
		for !l.atEOF() && isDigit(l.input[l.pos]) {
			l.advance()
		}
	}

	if !l.atEOF() && isIdentStart(l.input[l.pos]) {
		for !l.atEOF() && isIdentPart(l.input[l.pos]) {
			l.advance()
		}
		lit := l.input[from:l.pos]
		l.errorAt(start, MalformedNumber, "malformed number %q: digits followed by identifier characters", lit)
		return l.token(TokenUnknown, lit, start)
	}

	return l.token(typ, l.input[from:l.pos], start)
}

// Helper functions

func isIdentStart(ch byte) bool {
	return ch == '_' || (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z')
}

func isIdentPart(ch byte) bool {
	return isIdentStart(ch) || isDigit(ch)
}

func isDigit(ch byte) bool {
	return ch >= '0' && ch <= '9'
}

// Tokenize returns all tokens from the input, ending with exactly one
// TokenEOF, together with any lexical diagnostics.
func Tokenize(input string) ([]Token, []Diagnostic) {
	l := NewLexer(input)
	var tokens []Token
	for {
		tok := l.NextToken()
		tokens = append(tokens, tok)
		if tok.Type == TokenEOF {
			break
		}
	}
	return tokens, l.Diagnostics()
}
