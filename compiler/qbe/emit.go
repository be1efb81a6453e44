// Package qbe lowers three-address code to QBE-flavoured pseudo assembly.
package qbe

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/chazu/nuqta/compiler/tac"
)

var arithOps = map[tac.Op]string{
	tac.OpAdd:    "add",
	tac.OpSub:    "sub",
	tac.OpMul:    "mul",
	tac.OpDiv:    "div",
	tac.OpRem:    "rem",
	tac.OpBitAnd: "and",
	tac.OpBitOr:  "or",
	tac.OpBitXor: "xor",
	tac.OpAnd:    "and",
	tac.OpOr:     "or",
}

var cmpOps = map[tac.Op]string{
	tac.OpEq:        "ceql",
	tac.OpNotEq:     "cnel",
	tac.OpLess:      "csltl",
	tac.OpGreater:   "csgtl",
	tac.OpLessEq:    "cslel",
	tac.OpGreaterEq: "csgel",
}

type stringEntry struct {
	value string
	label string
}

// emitter holds the per-call state of Emit.
type emitter struct {
	body      strings.Builder
	strings   []stringEntry
	bools     int
	fallthrus int
}

// Emit lowers quads into one exported $main function. String operands are
// hoisted into data definitions ahead of the function. The output depends
// only on quads.
//
// Registers and labels that Emit makes up, including the renamed _tN
// temporaries, start with a dot (%.t0, %.b0, @.start, @.ft0). Identifiers
// cannot contain a dot, so these never collide with user names.
func Emit(quads []tac.Quad) string {
	e := &emitter{}
	e.line("export function l $main() {")
	e.line("@.start")
	for _, q := range quads {
		e.quad(q)
	}
	e.line("  ret 0")
	e.line("}")

	var out strings.Builder
	for _, s := range e.strings {
		fmt.Fprintf(&out, "data $%s = { b %s, b 0 }\n", s.label, strconv.Quote(s.value))
	}
	if len(e.strings) > 0 {
		out.WriteByte('\n')
	}
	out.WriteString(e.body.String())
	return out.String()
}

func (e *emitter) line(s string) {
	e.body.WriteString(s)
	e.body.WriteByte('\n')
}

func (e *emitter) inst(format string, args ...any) {
	e.line("  " + fmt.Sprintf(format, args...))
}

// addString returns the data label for value, reusing an existing one.
func (e *emitter) addString(value string) string {
	for _, s := range e.strings {
		if s.value == value {
			return "$" + s.label
		}
	}
	label := fmt.Sprintf("str%d", len(e.strings))
	e.strings = append(e.strings, stringEntry{value: value, label: label})
	return "$" + label
}

// operand maps a TAC operand to backend syntax.
func (e *emitter) operand(name string) string {
	switch {
	case name == "true":
		return "1"
	case name == "false":
		return "0"
	case name == "":
		return ""
	case strings.HasPrefix(name, `"`):
		if s, err := strconv.Unquote(name); err == nil {
			return e.addString(s)
		}
		return e.addString(strings.Trim(name, `"`))
	case isNumber(name):
		return name
	case strings.HasPrefix(name, "_t"):
		return "%." + name[1:]
	}
	return "%" + name
}

func isNumber(s string) bool {
	_, err := strconv.ParseFloat(s, 64)
	return err == nil && s[0] != '+' && !strings.ContainsAny(s, "nN")
}

func (e *emitter) quad(q tac.Quad) {
	switch q.Op {
	case tac.OpLabel:
		e.line("@" + q.Result)

	case tac.OpGoto:
		e.inst("jmp @%s", q.Result)

	case tac.OpIfFalse:
		ft := fmt.Sprintf("@.ft%d", e.fallthrus)
		e.fallthrus++
		e.inst("jnz %s, %s, @%s", e.operand(q.Arg1), ft, q.Result)
		e.line(ft)

	case tac.OpReturn:
		if q.Arg1 == "" {
			e.inst("ret")
			return
		}
		e.inst("ret %s", e.operand(q.Arg1))

	case tac.OpCopy:
		e.inst("%s =l copy %s", e.operand(q.Result), e.operand(q.Arg1))

	case tac.OpNeg:
		e.inst("%s =l neg %s", e.operand(q.Result), e.operand(q.Arg1))

	case tac.OpNot:
		b := e.newBool()
		e.inst("%s =w ceql %s, 0", b, e.operand(q.Arg1))
		e.inst("%s =l extsw %s", e.operand(q.Result), b)

	case tac.OpCall:
		e.inst("%s =l call $%s()", e.operand(q.Result), q.Arg1)

	default:
		if op, ok := arithOps[q.Op]; ok {
			e.inst("%s =l %s %s, %s", e.operand(q.Result), op, e.operand(q.Arg1), e.operand(q.Arg2))
			return
		}
		if op, ok := cmpOps[q.Op]; ok {
			b := e.newBool()
			e.inst("%s =w %s %s, %s", b, op, e.operand(q.Arg1), e.operand(q.Arg2))
			e.inst("%s =l extsw %s", e.operand(q.Result), b)
			return
		}
		e.inst("# unhandled quad: (%s, %s, %s, %s)", q.Op, q.Arg1, q.Arg2, q.Result)
	}
}

func (e *emitter) newBool() string {
	name := fmt.Sprintf("%%.b%d", e.bools)
	e.bools++
	return name
}
