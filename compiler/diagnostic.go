package compiler

import (
	"fmt"
	"strings"
)

// Stage names the pipeline stage that produced a diagnostic.
type Stage string

const (
	StageLex   Stage = "lex"
	StageParse Stage = "parse"
	StageScope Stage = "scope"
	StageType  Stage = "type"
	StageIR    Stage = "ir"
)

// Severity distinguishes hard errors from warnings.
type Severity int

const (
	SeverityError Severity = iota
	SeverityWarning
)

// Code identifies the kind of problem a diagnostic reports.
type Code string

// Lexical codes.
const (
	UnknownCharacter    Code = "UnknownCharacter"
	UnterminatedString  Code = "UnterminatedString"
	UnterminatedComment Code = "UnterminatedComment"
	MalformedNumber     Code = "MalformedNumber"
)

// Syntactic codes.
const (
	UnexpectedEOF           Code = "UnexpectedEOF"
	FailedToFindToken       Code = "FailedToFindToken"
	ExpectedTypeToken       Code = "ExpectedTypeToken"
	ExpectedIdentifier      Code = "ExpectedIdentifier"
	ExpectedExpr            Code = "ExpectedExpr"
	InvalidAssignmentTarget Code = "InvalidAssignmentTarget"
	InvalidLiteral          Code = "InvalidLiteral"
)

// Scope codes.
const (
	UndeclaredVariableAccessed    Code = "UndeclaredVariableAccessed"
	UndefinedFunctionCalled       Code = "UndefinedFunctionCalled"
	VariableRedefinition          Code = "VariableRedefinition"
	FunctionPrototypeRedefinition Code = "FunctionPrototypeRedefinition"
)

// Type codes.
const (
	ErroneousVarDecl          Code = "ErroneousVarDecl"
	FnCallParamCount          Code = "FnCallParamCount"
	FnCallParamType           Code = "FnCallParamType"
	ErroneousReturnType       Code = "ErroneousReturnType"
	ExpressionTypeMismatch    Code = "ExpressionTypeMismatch"
	NonBooleanCondStmt        Code = "NonBooleanCondStmt"
	ErroneousBreak            Code = "ErroneousBreak"
	ReturnStmtNotFound        Code = "ReturnStmtNotFound"
	AttemptedBoolOpOnNonBools Code = "AttemptedBoolOpOnNonBools"
	AttemptedBitOpOnNonInts   Code = "AttemptedBitOpOnNonNumeric"
	AttemptedAddOpOnNonNums   Code = "AttemptedAddOpOnNonNumeric"
	UnsupportedConstruct      Code = "UnsupportedConstruct"
)

// IR codes.
const (
	LoweringFailed Code = "LoweringFailed"
)

// Diagnostic is a single problem found while compiling.
type Diagnostic struct {
	Stage    Stage
	Code     Code
	Severity Severity
	Pos      Position // zero when no position is known
	Message  string
}

func (d Diagnostic) String() string {
	var b strings.Builder
	if d.Severity == SeverityWarning {
		b.WriteString("warning: ")
	}
	if d.Pos.Line > 0 {
		fmt.Fprintf(&b, "line %d, column %d: ", d.Pos.Line, d.Pos.Column)
	}
	b.WriteString(d.Message)
	return b.String()
}

// IsError reports whether the diagnostic is an error rather than a warning.
func (d Diagnostic) IsError() bool {
	return d.Severity == SeverityError
}

// HasErrors reports whether any diagnostic in diags is an error.
func HasErrors(diags []Diagnostic) bool {
	for _, d := range diags {
		if d.IsError() {
			return true
		}
	}
	return false
}

// diagList accumulates diagnostics for one stage.
type diagList struct {
	stage Stage
	items []Diagnostic
}

func (l *diagList) errorAt(pos Position, code Code, format string, args ...any) {
	l.items = append(l.items, Diagnostic{
		Stage:    l.stage,
		Code:     code,
		Severity: SeverityError,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	})
}

func (l *diagList) warnAt(pos Position, code Code, format string, args ...any) {
	l.items = append(l.items, Diagnostic{
		Stage:    l.stage,
		Code:     code,
		Severity: SeverityWarning,
		Pos:      pos,
		Message:  fmt.Sprintf(format, args...),
	})
}
