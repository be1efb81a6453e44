package compiler

import "fmt"

// ---------------------------------------------------------------------------
// Token types for the nuqta lexer
// ---------------------------------------------------------------------------

// TokenType represents the type of a token.
type TokenType int

const (
	// Special tokens
	TokenEOF TokenType = iota
	TokenUnknown

	// Keywords. Aliases (ginti, wapsi, agar, ...) map onto these.
	TokenFunction
	TokenReturn
	TokenIf
	TokenElse
	TokenWhile
	TokenFor
	TokenBreak
	TokenContinue
	TokenInt
	TokenFloatType
	TokenStringType
	TokenBoolType

	// Literals
	TokenIdentifier // foo, _bar
	TokenIntLit     // 42
	TokenFloatLit   // 3.14
	TokenStringLit  // "hello"
	TokenBoolLit    // true, false, sahi, galat

	// Operators
	TokenAssign     // =
	TokenEq         // ==
	TokenNotEq      // !=
	TokenLess       // <
	TokenGreater    // >
	TokenLessEq     // <=
	TokenGreaterEq  // >=
	TokenPlus       // +
	TokenMinus      // -
	TokenStar       // *
	TokenSlash      // /
	TokenPercent    // %
	TokenAndAnd     // &&
	TokenOrOr       // ||
	TokenBang       // !
	TokenAmp        // &
	TokenPipe       // |
	TokenCaret      // ^

	// Delimiters
	TokenLParen    // (
	TokenRParen    // )
	TokenLBrace    // {
	TokenRBrace    // }
	TokenLBracket  // [
	TokenRBracket  // ]
	TokenSemicolon // ;
	TokenComma     // ,
	TokenDot       // .
)

var tokenNames = map[TokenType]string{
	TokenEOF:        "EOF",
	TokenUnknown:    "UNKNOWN",
	TokenFunction:   "fn",
	TokenReturn:     "return",
	TokenIf:         "if",
	TokenElse:       "else",
	TokenWhile:      "while",
	TokenFor:        "for",
	TokenBreak:      "break",
	TokenContinue:   "continue",
	TokenInt:        "int",
	TokenFloatType:  "float",
	TokenStringType: "string",
	TokenBoolType:   "bool",
	TokenIdentifier: "IDENTIFIER",
	TokenIntLit:     "INT",
	TokenFloatLit:   "FLOAT",
	TokenStringLit:  "STRING",
	TokenBoolLit:    "BOOL",
	TokenAssign:     "=",
	TokenEq:         "==",
	TokenNotEq:      "!=",
	TokenLess:       "<",
	TokenGreater:    ">",
	TokenLessEq:     "<=",
	TokenGreaterEq:  ">=",
	TokenPlus:       "+",
	TokenMinus:      "-",
	TokenStar:       "*",
	TokenSlash:      "/",
	TokenPercent:    "%",
	TokenAndAnd:     "&&",
	TokenOrOr:       "||",
	TokenBang:       "!",
	TokenAmp:        "&",
	TokenPipe:       "|",
	TokenCaret:      "^",
	TokenLParen:     "(",
	TokenRParen:     ")",
	TokenLBrace:     "{",
	TokenRBrace:     "}",
	TokenLBracket:   "[",
	TokenRBracket:   "]",
	TokenSemicolon:  ";",
	TokenComma:      ",",
	TokenDot:        ".",
}

func (t TokenType) String() string {
	if name, ok := tokenNames[t]; ok {
		return name
	}
	return fmt.Sprintf("Token(%d)", t)
}

// IsTypeKeyword reports whether t names one of the four value types.
func (t TokenType) IsTypeKeyword() bool {
	switch t {
	case TokenInt, TokenFloatType, TokenStringType, TokenBoolType:
		return true
	}
	return false
}

// Token represents a lexical token.
type Token struct {
	Type    TokenType
	Literal string   // the raw text (string literals: the unescaped value)
	Pos     Position // start position
	End     Position // position just past the last consumed byte
}

func (t Token) String() string {
	if t.Type == TokenEOF {
		return "EOF"
	}
	if len(t.Literal) > 20 {
		return fmt.Sprintf("%s(%q...)", t.Type, t.Literal[:20])
	}
	return fmt.Sprintf("%s(%q)", t.Type, t.Literal)
}

// keywords maps every reserved spelling to its token type. The Urdu
// spellings share token types with their English counterparts.
var keywords = map[string]TokenType{
	"fn":       TokenFunction,
	"function": TokenFunction,
	"return":   TokenReturn,
	"if":       TokenIf,
	"else":     TokenElse,
	"while":    TokenWhile,
	"for":      TokenFor,
	"break":    TokenBreak,
	"continue": TokenContinue,
	"int":      TokenInt,
	"float":    TokenFloatType,
	"string":   TokenStringType,
	"bool":     TokenBoolType,

	"ginti":  TokenInt,
	"wapsi":  TokenReturn,
	"agar":   TokenIf,
	"warna":  TokenElse,
	"duhrao": TokenFor,
	"jab":    TokenWhile,
	"toro":   TokenBreak,
	"rakho":  TokenContinue,
}

// boolLiterals maps boolean spellings to their canonical literal text.
var boolLiterals = map[string]string{
	"true":  "true",
	"false": "false",
	"sahi":  "true",
	"galat": "false",
}

// Keywords returns every reserved spelling, including aliases and boolean
// literals. The order is unspecified.
func Keywords() []string {
	out := make([]string, 0, len(keywords)+len(boolLiterals))
	for k := range keywords {
		out = append(out, k)
	}
	for k := range boolLiterals {
		out = append(out, k)
	}
	return out
}

// twoCharOps lists operators matched before any single-character fallback.
var twoCharOps = map[string]TokenType{
	"==": TokenEq,
	"!=": TokenNotEq,
	"<=": TokenLessEq,
	">=": TokenGreaterEq,
	"&&": TokenAndAnd,
	"||": TokenOrOr,
}

var oneCharOps = map[byte]TokenType{
	'(': TokenLParen,
	')': TokenRParen,
	'{': TokenLBrace,
	'}': TokenRBrace,
	'[': TokenLBracket,
	']': TokenRBracket,
	';': TokenSemicolon,
	',': TokenComma,
	'.': TokenDot,
	'+': TokenPlus,
	'-': TokenMinus,
	'*': TokenStar,
	'/': TokenSlash,
	'%': TokenPercent,
	'=': TokenAssign,
	'<': TokenLess,
	'>': TokenGreater,
	'!': TokenBang,
	'&': TokenAmp,
	'|': TokenPipe,
	'^': TokenCaret,
}
