// Package tac lowers a checked nuqta program into three-address code.
package tac

import "strings"

// Op is a quad opcode.
type Op string

const (
	OpAdd       Op = "+"
	OpSub       Op = "-"
	OpMul       Op = "*"
	OpDiv       Op = "/"
	OpRem       Op = "%"
	OpLess      Op = "<"
	OpGreater   Op = ">"
	OpLessEq    Op = "<="
	OpGreaterEq Op = ">="
	OpEq        Op = "=="
	OpNotEq     Op = "!="
	OpBitAnd    Op = "&"
	OpBitOr     Op = "|"
	OpBitXor    Op = "^"
	OpAnd       Op = "&&"
	OpOr        Op = "||"

	OpCopy    Op = "copy"
	OpNeg     Op = "neg"
	OpNot     Op = "not"
	OpCall    Op = "call"
	OpLabel   Op = "label"
	OpGoto    Op = "goto"
	OpIfFalse Op = "if_false"
	OpReturn  Op = "return"
)

// binaryOps are the opcodes that take two operands and produce a value.
var binaryOps = map[Op]bool{
	OpAdd: true, OpSub: true, OpMul: true, OpDiv: true, OpRem: true,
	OpLess: true, OpGreater: true, OpLessEq: true, OpGreaterEq: true, OpEq: true, OpNotEq: true,
	OpBitAnd: true, OpBitOr: true, OpBitXor: true, OpAnd: true, OpOr: true,
}

// IsBinary reports whether op combines two operands.
func (op Op) IsBinary() bool {
	return binaryOps[op]
}

// IsComparison reports whether op yields a boolean from two operands.
func (op Op) IsComparison() bool {
	switch op {
	case OpLess, OpGreater, OpLessEq, OpGreaterEq, OpEq, OpNotEq:
		return true
	}
	return false
}

// Quad is one three-address instruction. Jump and label quads carry their
// label in Result; call carries the callee in Arg1.
type Quad struct {
	Op     Op
	Arg1   string
	Arg2   string
	Result string
}

// String renders q in the TAC text form.
func (q Quad) String() string {
	switch {
	case q.Op == OpLabel:
		return q.Result + ":"
	case q.Op == OpGoto:
		return "goto " + q.Result
	case q.Op == OpIfFalse:
		return "if_false " + q.Arg1 + " goto " + q.Result
	case q.Op == OpReturn:
		if q.Arg1 == "" {
			return "return"
		}
		return "return " + q.Arg1
	case q.Op == OpCopy:
		return q.Result + " = " + q.Arg1
	case q.Op == OpCall:
		return q.Result + " = call " + q.Arg1
	case q.Op == OpNeg || q.Op == OpNot:
		return q.Result + " = " + string(q.Op) + " " + q.Arg1
	case q.Op.IsBinary():
		return q.Result + " = " + q.Arg1 + " " + string(q.Op) + " " + q.Arg2
	}
	return "(" + string(q.Op) + ", " + q.Arg1 + ", " + q.Arg2 + ", " + q.Result + ")"
}

// Format renders quads one per line. Labels sit flush left; everything
// else is indented by two spaces.
func Format(quads []Quad) string {
	var sb strings.Builder
	for _, q := range quads {
		if q.Op != OpLabel {
			sb.WriteString("  ")
		}
		sb.WriteString(q.String())
		sb.WriteByte('\n')
	}
	return sb.String()
}
