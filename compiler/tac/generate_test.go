package tac

import (
	"errors"
	"strconv"
	"strings"
	"testing"

	"github.com/chazu/nuqta/compiler"
)

func lower(t *testing.T, src string) []Quad {
	t.Helper()
	prog, diags := compiler.ParseSource(src)
	if len(diags) > 0 {
		t.Fatalf("ParseSource(%q): %v", src, diags)
	}
	quads, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate(%q): %v", src, err)
	}
	return quads
}

func TestGenerate(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{
			"declaration",
			"int x = 1 + 2 .",
			"  _t0 = 1 + 2\n  x = _t0\n",
		},
		{
			"declaration without initializer",
			"int x .",
			"",
		},
		{
			"literal copy",
			`bool b = galat . string s = "a" . float f = 2.0 .`,
			"  b = false\n  s = \"a\"\n  f = 2.0\n",
		},
		{
			"unary",
			"int a . int b = -a . bool n = !sahi .",
			"  _t0 = neg a\n  b = _t0\n  _t1 = not true\n  n = _t1\n",
		},
		{
			"if without else",
			"bool c . if (c) { c = galat . }",
			"  if_false c goto _L0\n  c = false\n_L0:\n",
		},
		{
			"call evaluates arguments",
			"f(1 + 2) .",
			"  _t0 = 1 + 2\n  _t1 = call f\n",
		},
		{
			"bare return",
			"fn f() { return . } .",
			"  goto _L0\nf:\n  return\n_L0:\n",
		},
		{
			"nested loops break innermost",
			"while (sahi) { while (galat) { break . } break . }",
			"_L0:\n  if_false true goto _L1\n_L2:\n  if_false false goto _L3\n  goto _L3\n  goto _L2\n_L3:\n  goto _L1\n  goto _L0\n_L1:\n",
		},
		{
			"continue in while",
			"while (sahi) { continue . }",
			"_L0:\n  if_false true goto _L1\n  goto _L0\n  goto _L0\n_L1:\n",
		},
		{
			"empty for",
			"for (. . ) { }",
			"_L0:\n_L1:\n  goto _L0\n_L2:\n",
		},
		{
			"shadowed names share storage",
			"int x = 1 . { float x = 2.5 . }",
			"  x = 1\n  x = 2.5\n",
		},
		{
			"assignment value",
			"int a . int b . a = b = 2 + 3 .",
			"  _t0 = 2 + 3\n  b = _t0\n  a = b\n",
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := Format(lower(t, tc.input))
			if got != tc.want {
				t.Errorf("TAC for %q\n--- got ---\n%s--- want ---\n%s", tc.input, got, tc.want)
			}
		})
	}
}

// Break and continue outside a loop are rejected by the type checker; the
// generator drops them rather than jumping nowhere.
func TestGenerateStrayBreak(t *testing.T) {
	quads := lower(t, "break . continue .")
	if len(quads) != 0 {
		t.Errorf("quads = %v, want none", quads)
	}
}

func TestGenerateArrayAccessUnsupported(t *testing.T) {
	prog, _ := compiler.ParseSource("int v . int w = v[0] .")
	quads, err := Generate(prog)
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("error %v does not wrap ErrUnsupported", err)
	}

	var lerr *LoweringError
	if !errors.As(err, &lerr) {
		t.Fatalf("error %T is not a *LoweringError", err)
	}
	if lerr.What != "array access" || lerr.Pos.Line != 1 || lerr.Pos.Column != 17 {
		t.Errorf("LoweringError = %+v", lerr)
	}
	if got := err.Error(); got != "line 1, column 17: array access: unsupported construct" {
		t.Errorf("Error() = %q", got)
	}
	if len(quads) != 0 {
		t.Errorf("truncated quads = %v, want none", quads)
	}
}

// Quads emitted before a failure are returned.
func TestGenerateTruncatesAtFailure(t *testing.T) {
	prog, _ := compiler.ParseSource("int a = 1 . int v . a = v[a] .")
	quads, err := Generate(prog)
	if !errors.Is(err, ErrUnsupported) {
		t.Fatalf("err = %v", err)
	}
	if got := Format(quads); got != "  a = 1\n" {
		t.Errorf("truncated TAC = %q", got)
	}
}

func TestGenerateMissingExpression(t *testing.T) {
	prog := &compiler.Program{Stmts: []compiler.Stmt{&compiler.ExprStmt{}}}
	_, err := Generate(prog)
	var lerr *LoweringError
	if !errors.As(err, &lerr) || lerr.What != "missing expression" {
		t.Errorf("err = %v, want missing expression", err)
	}
}

var wellFormedPrograms = []string{
	"int x = 1 + 2 * 3 - 4 .",
	"int x = 1 . if (x < 2) { x = 3 . } else { x = 4 . }",
	"int i = 0 . while (i < 10) { if (i == 5) { break . } i = i + 1 . }",
	"for (int i = 0 . i < 3 . i = i + 1) { for (int j = 0 . j < i . j = j + 1) { continue . } }",
	"fn int sq(int v) { return v * v . } . fn int sum(int a, int b) { return sq(a) + sq(b) . } . int r = sum(1, 2) .",
	"bool a = sahi . bool b = !a && (a || galat) .",
}

// Every jump target is defined exactly once and every temporary is
// assigned exactly once, in numbering order.
func TestGenerateLabelsAndTemps(t *testing.T) {
	for _, src := range wellFormedPrograms {
		quads := lower(t, src)

		defined := make(map[string]int)
		for _, q := range quads {
			if q.Op == OpLabel {
				defined[q.Result]++
			}
		}
		for name, n := range defined {
			if n != 1 {
				t.Errorf("%q: label %s defined %d times", src, name, n)
			}
		}
		for _, q := range quads {
			if (q.Op == OpGoto || q.Op == OpIfFalse) && defined[q.Result] != 1 {
				t.Errorf("%q: jump to undefined label %s", src, q.Result)
			}
		}

		next := 0
		for _, q := range quads {
			if !strings.HasPrefix(q.Result, "_t") {
				continue
			}
			want := "_t" + strconv.Itoa(next)
			if q.Result != want {
				t.Errorf("%q: temp %s assigned where %s was expected", src, q.Result, want)
			}
			next++
		}
	}
}

func TestGenerateDeterministic(t *testing.T) {
	for _, src := range wellFormedPrograms {
		first := Format(lower(t, src))
		second := Format(lower(t, src))
		if first != second {
			t.Errorf("%q: reruns differ\n%s\n%s", src, first, second)
		}
	}
}

func TestQuadString(t *testing.T) {
	tests := []struct {
		q    Quad
		want string
	}{
		{Quad{Op: OpLabel, Result: "_L0"}, "_L0:"},
		{Quad{Op: OpGoto, Result: "_L1"}, "goto _L1"},
		{Quad{Op: OpIfFalse, Arg1: "_t0", Result: "_L2"}, "if_false _t0 goto _L2"},
		{Quad{Op: OpReturn}, "return"},
		{Quad{Op: OpReturn, Arg1: "x"}, "return x"},
		{Quad{Op: OpCopy, Arg1: "1", Result: "x"}, "x = 1"},
		{Quad{Op: OpCall, Arg1: "f", Result: "_t3"}, "_t3 = call f"},
		{Quad{Op: OpNeg, Arg1: "a", Result: "_t0"}, "_t0 = neg a"},
		{Quad{Op: OpNot, Arg1: "b", Result: "_t0"}, "_t0 = not b"},
		{Quad{Op: OpGreaterEq, Arg1: "a", Arg2: "b", Result: "_t1"}, "_t1 = a >= b"},
		{Quad{Op: OpOr, Arg1: "a", Arg2: "b", Result: "_t1"}, "_t1 = a || b"},
		{Quad{Op: Op("phi"), Arg1: "a", Arg2: "b", Result: "c"}, "(phi, a, b, c)"},
	}
	for _, tc := range tests {
		if got := tc.q.String(); got != tc.want {
			t.Errorf("String() = %q, want %q", got, tc.want)
		}
	}
}

func TestOpClasses(t *testing.T) {
	for _, op := range []Op{OpAdd, OpRem, OpBitXor, OpAnd, OpEq, OpLessEq} {
		if !op.IsBinary() {
			t.Errorf("%s is not binary", op)
		}
	}
	for _, op := range []Op{OpCopy, OpNeg, OpNot, OpCall, OpLabel, OpGoto, OpIfFalse, OpReturn} {
		if op.IsBinary() {
			t.Errorf("%s is binary", op)
		}
	}
	if !OpNotEq.IsComparison() || OpAdd.IsComparison() || OpAnd.IsComparison() {
		t.Error("IsComparison wrong")
	}
}
