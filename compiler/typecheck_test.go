package compiler

import (
	"testing"
)

// checkSource runs scope analysis and type checking over src and returns
// every semantic diagnostic in pipeline order.
func checkSource(t *testing.T, src string) (*TypeResult, []Diagnostic) {
	t.Helper()
	prog := mustParse(t, src)
	table := NewScopeTable()
	diags := AnalyzeScopes(prog, table)
	res, typeDiags := CheckTypes(prog, table)
	return res, append(diags, typeDiags...)
}

func TestTypeChecker(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  []Code
	}{
		{"int arithmetic", "int x = 1 + 2 * 3 .", nil},
		{"float arithmetic", "float f = 1.5 * 2.0 .", nil},
		{"mixed arithmetic is float", "float f = 1 + 2.0 .", nil},
		{"float into int", "int x = 1 + 2.0 .", []Code{ErroneousVarDecl}},
		{"int into float", "float f = 1 .", []Code{ErroneousVarDecl}},
		{"string into bool", `bool b = "yes" .`, []Code{ErroneousVarDecl}},
		{"assignment mismatch", "int x = 1 . x = 2.5 .", []Code{ExpressionTypeMismatch}},
		{"chained assignment", "int a . int b . a = b = 3 .", nil},
		{"logical on ints", "bool b = 1 && sahi .", []Code{AttemptedBoolOpOnNonBools}},
		{"logical on bools", "bool b = sahi || galat && true .", nil},
		{"bitwise on float", "int x = 1.5 & 2 .", []Code{AttemptedBitOpOnNonInts}},
		{"bitwise on ints", "int x = 6 ^ 3 | 1 .", nil},
		{"adding strings", `string s = "a" + "b" .`, []Code{AttemptedAddOpOnNonNums}},
		{"comparing int with float", "bool b = 1 < 2.0 .", []Code{ExpressionTypeMismatch}},
		{"comparing strings", `bool b = "a" == "b" .`, nil},
		{"negating bool", "int n = -sahi .", []Code{AttemptedAddOpOnNonNums}},
		{"not on int", "bool b = !1 .", []Code{AttemptedBoolOpOnNonBools}},
		{"int if condition", "if (1) { }", []Code{NonBooleanCondStmt}},
		{"int while condition", "int n = 1 . while (n) { n = n - 1 . }", []Code{NonBooleanCondStmt}},
		{"int for condition", "for (. 1 . ) { }", []Code{NonBooleanCondStmt}},
		{"for without condition", "for (. . ) { break . }", nil},
		{"break outside loop", "break .", []Code{ErroneousBreak}},
		{"continue outside loop", "continue .", []Code{ErroneousBreak}},
		{"break in nested if", "while (sahi) { if (galat) { break . } }", nil},
		{"continue in for", "for (int i = 0 . i < 3 . i = i + 1) { continue . }", nil},
		{"break in function outside loop", "while (sahi) { } fn f() { break . return 1 . } .", []Code{ErroneousBreak}},
		{"missing return", "fn f() { int a = 1 . } .", []Code{ReturnStmtNotFound}},
		{"return in branch counts", "fn f(bool c) { if (c) { return 1 . } } .", nil},
		{"wrong return type", "fn float f() { return 1 . } .", []Code{ErroneousReturnType}},
		{"bare return is int", "fn f() { return . } .", nil},
		{"bare return in float function", "fn float f() { return . } .", []Code{ErroneousReturnType}},
		{"too many arguments", "fn int g(int a) { return a . } . int r = g(1, 2) .", []Code{FnCallParamCount}},
		{"too few arguments", "fn int g(int a, int b) { return a . } . g(1) .", []Code{FnCallParamCount}},
		{"argument type", "fn int g(int a) { return a . } . int r = g(1.5) .", []Code{FnCallParamType}},
		{"call result type", "fn float g() { return 1.0 . } . int r = g() .", []Code{ErroneousVarDecl}},
		{"call before definition", "float r = g() . fn float g() { return 0.5 . } .", nil},
		{"recursion", "fn int f(int n) { if (n < 1) { return 0 . } return n * f(n - 1) . } .", nil},
		{"array access", "int v . int w = v[0] .", []Code{UnsupportedConstruct}},
		{"undeclared stays quiet", "int x = y + 1 .", []Code{UndeclaredVariableAccessed}},
		{"undefined call stays quiet", "int x = h(1) + 1 .", []Code{UndefinedFunctionCalled}},
		{"shadowed type", "int x = 1 . { float x = 2.5 . float y = x * 2.0 . }", nil},
		{"parameter types", "fn float scale(float v, int k) { return v * 2.0 . } .", nil},
		{"for variable type", "for (float f = 0.0 . f < 1.0 . f = f + 0.5) { }", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, diags := checkSource(t, tc.input)
			if got := codesOf(diags); !sameCodes(got, tc.want) {
				t.Errorf("codes = %v, want %v (%v)", got, tc.want, diags)
			}
		})
	}
}

func TestTypeCheckerStageAndPosition(t *testing.T) {
	_, diags := checkSource(t, "int ok = 1 .\nint x = 1 + 2.0 .")
	if len(diags) != 1 {
		t.Fatalf("diagnostics = %v", diags)
	}
	d := diags[0]
	if d.Stage != StageType {
		t.Errorf("stage = %s, want type", d.Stage)
	}
	if d.Pos.Line != 2 || d.Pos.Column != 5 {
		t.Errorf("position = %d:%d, want 2:5", d.Pos.Line, d.Pos.Column)
	}
	if d.Message != "cannot initialize int x with a value of type float" {
		t.Errorf("message = %q", d.Message)
	}
}

func TestTypeResult(t *testing.T) {
	res, diags := checkSource(t, "fn float half(float v, int unused) { return v / 2.0 . } . float h = half(3.0, 1) .")
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v", diags)
	}

	sig, ok := res.Signatures["half"]
	if !ok {
		t.Fatal("missing signature for half")
	}
	if sig.ReturnType != TypeFloat {
		t.Errorf("return type = %v", sig.ReturnType)
	}
	if len(sig.ParamTypes) != 2 || sig.ParamTypes[0] != TypeFloat || sig.ParamTypes[1] != TypeInt {
		t.Errorf("param types = %v", sig.ParamTypes)
	}

	var calls int
	for expr, ti := range res.Exprs {
		if call, ok := expr.(*FunctionCall); ok {
			calls++
			if call.Name != "half" || ti != Known(TypeFloat) {
				t.Errorf("call %s typed %v", call.Name, ti)
			}
		}
	}
	if calls != 1 {
		t.Errorf("recorded %d calls, want 1", calls)
	}
	if res.Table == nil || res.Table.Len() < 2 {
		t.Error("result table missing or without function scopes")
	}
}

func TestTypeInfo(t *testing.T) {
	if !Known(TypeInt).IsNumeric() || !Known(TypeFloat).IsNumeric() || Known(TypeBool).IsNumeric() {
		t.Error("IsNumeric wrong")
	}
	if !Known(TypeInt).IsInteger() || Known(TypeFloat).IsInteger() {
		t.Error("IsInteger wrong")
	}
	if Unknown().IsBoolean() || !Known(TypeBool).IsBoolean() {
		t.Error("IsBoolean wrong")
	}
	if Unknown().Matches(Unknown()) {
		t.Error("unknown types match")
	}
	if !Known(TypeString).Matches(Known(TypeString)) {
		t.Error("string does not match string")
	}
	if Unknown().String() != "unknown" || Known(TypeFloat).String() != "float" {
		t.Errorf("String() = %s, %s", Unknown(), Known(TypeFloat))
	}
}
