package compiler

// ---------------------------------------------------------------------------
// Type checking: operator rules, calls, returns and loop placement
// ---------------------------------------------------------------------------

// FunctionSignature describes a top-level function.
type FunctionSignature struct {
	Name       string
	ReturnType Type
	ParamTypes []Type
}

// TypeResult is what the type checker learned about a program.
type TypeResult struct {
	Signatures map[string]*FunctionSignature
	// Exprs records the computed type of every expression visited.
	Exprs map[Expr]TypeInfo
	// Table is the scope table the checker read globals from.
	Table *ScopeTable
}

// TypeChecker is the second semantic pass. It reuses the global scope built
// by the scope analyzer and pushes its own child scopes for blocks,
// function parameters and for headers.
type TypeChecker struct {
	table      *ScopeTable
	cur        ScopeID
	signatures map[string]*FunctionSignature
	exprs      map[Expr]TypeInfo

	returnType Type
	loopDepth  int
	sawReturn  bool

	diags diagList
}

// NewTypeChecker creates a checker reading globals from table.
func NewTypeChecker(table *ScopeTable) *TypeChecker {
	return &TypeChecker{
		table:      table,
		cur:        GlobalScope,
		signatures: make(map[string]*FunctionSignature),
		exprs:      make(map[Expr]TypeInfo),
		returnType: TypeInt,
		diags:      diagList{stage: StageType},
	}
}

// CheckTypes type-checks prog against the global scope in table, which must
// already have been filled by AnalyzeScopes.
func CheckTypes(prog *Program, table *ScopeTable) (*TypeResult, []Diagnostic) {
	c := NewTypeChecker(table)
	c.Check(prog)
	return &TypeResult{Signatures: c.signatures, Exprs: c.exprs, Table: table}, c.diags.items
}

// Check runs both passes: signatures first, then every item.
func (c *TypeChecker) Check(prog *Program) {
	for _, fn := range prog.Functions() {
		if _, exists := c.signatures[fn.Name]; exists {
			continue
		}
		sig := &FunctionSignature{Name: fn.Name, ReturnType: fn.ReturnType}
		for _, p := range fn.Params {
			sig.ParamTypes = append(sig.ParamTypes, p.Type)
		}
		c.signatures[fn.Name] = sig
	}

	for _, stmt := range prog.Stmts {
		if fn, ok := stmt.(*FunctionDecl); ok {
			c.checkFunctionDecl(fn)
			continue
		}
		c.checkStmt(stmt)
	}
}

func (c *TypeChecker) push() {
	c.cur = c.table.Push(c.cur)
}

func (c *TypeChecker) pop() {
	if p := c.table.Parent(c.cur); p != NoScope {
		c.cur = p
	}
}

// declareLocal records a variable in the checker's own scope. The global
// scope is read-only here; redefinitions were reported by scope analysis.
func (c *TypeChecker) declareLocal(name string, typ Type, pos Position) {
	if c.cur == GlobalScope {
		return
	}
	c.table.Declare(c.cur, &Symbol{Name: name, Type: typ, IsDefined: true, Pos: pos})
}

func (c *TypeChecker) checkFunctionDecl(fn *FunctionDecl) {
	savedReturn, savedSaw, savedDepth := c.returnType, c.sawReturn, c.loopDepth
	c.returnType = fn.ReturnType
	c.sawReturn = false
	c.loopDepth = 0

	c.push()
	for _, p := range fn.Params {
		c.declareLocal(p.Name, p.Type, p.Pos)
	}
	if fn.Body != nil {
		c.checkStmt(fn.Body)
	}
	c.pop()

	if !c.sawReturn {
		c.diags.errorAt(fn.NamePos, ReturnStmtNotFound, "function %s has no return statement", fn.Name)
	}
	c.returnType, c.sawReturn, c.loopDepth = savedReturn, savedSaw, savedDepth
}

func (c *TypeChecker) checkStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *VarDecl:
		if s.Init != nil {
			init := c.checkExpr(s.Init)
			if init.Valid && init.Type != s.Type {
				c.diags.errorAt(s.NamePos, ErroneousVarDecl,
					"cannot initialize %s %s with a value of type %s", s.Type, s.Name, init.Type)
			}
		}
		c.declareLocal(s.Name, s.Type, s.NamePos)

	case *ExprStmt:
		c.checkExpr(s.Expr)

	case *ReturnStmt:
		c.sawReturn = true
		got := Known(TypeInt) // a bare return counts as returning int
		if s.Value != nil {
			got = c.checkExpr(s.Value)
		}
		if got.Valid && got.Type != c.returnType {
			c.diags.errorAt(s.SpanVal.Start, ErroneousReturnType,
				"return type %s does not match declared %s", got.Type, c.returnType)
		}

	case *BreakStmt:
		if c.loopDepth == 0 {
			c.diags.errorAt(s.SpanVal.Start, ErroneousBreak, "break outside of a loop")
		}

	case *ContinueStmt:
		if c.loopDepth == 0 {
			c.diags.errorAt(s.SpanVal.Start, ErroneousBreak, "continue outside of a loop")
		}

	case *Block:
		c.push()
		for _, inner := range s.Stmts {
			c.checkStmt(inner)
		}
		c.pop()

	case *IfStmt:
		c.checkCondition(s.Cond, "if")
		c.checkStmt(s.Then)
		if s.Else != nil {
			c.checkStmt(s.Else)
		}

	case *WhileStmt:
		c.checkCondition(s.Cond, "while")
		c.loopDepth++
		c.checkStmt(s.Body)
		c.loopDepth--

	case *ForStmt:
		c.push()
		if s.Init != nil {
			c.checkStmt(s.Init)
		}
		if s.Cond != nil {
			c.checkCondition(s.Cond, "for")
		}
		if s.Update != nil {
			c.checkExpr(s.Update)
		}
		c.loopDepth++
		c.checkStmt(s.Body)
		c.loopDepth--
		c.pop()

	case *FunctionDecl:
		c.checkFunctionDecl(s)
	}
}

func (c *TypeChecker) checkCondition(cond Expr, what string) {
	ti := c.checkExpr(cond)
	if ti.Valid && ti.Type != TypeBool {
		c.diags.errorAt(cond.Span().Start, NonBooleanCondStmt, "%s condition must be bool, got %s", what, ti.Type)
	}
}

// checkExpr types expr and records the result.
func (c *TypeChecker) checkExpr(expr Expr) TypeInfo {
	ti := c.typeOf(expr)
	c.exprs[expr] = ti
	return ti
}

func (c *TypeChecker) typeOf(expr Expr) TypeInfo {
	switch e := expr.(type) {
	case *IntLiteral:
		return Known(TypeInt)
	case *FloatLiteral:
		return Known(TypeFloat)
	case *StringLiteral:
		return Known(TypeString)
	case *BoolLiteral:
		return Known(TypeBool)

	case *Identifier:
		sym, ok := c.table.Lookup(c.cur, e.Name)
		if !ok || sym.IsFunction {
			return Unknown()
		}
		return Known(sym.Type)

	case *BinaryOp:
		return c.checkBinary(e)

	case *UnaryOp:
		operand := c.checkExpr(e.Operand)
		if !operand.Valid {
			return Unknown()
		}
		switch e.Op {
		case "-":
			if !operand.IsNumeric() {
				c.diags.errorAt(e.SpanVal.Start, AttemptedAddOpOnNonNums, "cannot negate a value of type %s", operand.Type)
				return Unknown()
			}
			return operand
		case "!":
			if !operand.IsBoolean() {
				c.diags.errorAt(e.SpanVal.Start, AttemptedBoolOpOnNonBools, "operator ! needs bool, got %s", operand.Type)
				return Unknown()
			}
			return Known(TypeBool)
		}
		return Unknown()

	case *Assignment:
		value := c.checkExpr(e.Value)
		sym, ok := c.table.Lookup(c.cur, e.Target)
		if !ok || sym.IsFunction {
			return Unknown()
		}
		target := Known(sym.Type)
		if !value.Valid {
			return Unknown()
		}
		if !target.Matches(value) {
			c.diags.errorAt(e.SpanVal.Start, ExpressionTypeMismatch,
				"cannot assign %s to %s of type %s", value.Type, e.Target, target.Type)
			return Unknown()
		}
		return target

	case *FunctionCall:
		return c.checkCall(e)

	case *ArrayAccess:
		c.checkExpr(e.Array)
		c.checkExpr(e.Index)
		c.diags.errorAt(e.SpanVal.Start, UnsupportedConstruct, "array access is not supported")
		return Unknown()
	}
	return Unknown()
}

func (c *TypeChecker) checkBinary(e *BinaryOp) TypeInfo {
	left := c.checkExpr(e.Left)
	right := c.checkExpr(e.Right)
	if !left.Valid || !right.Valid {
		return Unknown()
	}

	switch e.Op {
	case "+", "-", "*", "/", "%":
		if !left.IsNumeric() || !right.IsNumeric() {
			c.diags.errorAt(e.SpanVal.Start, AttemptedAddOpOnNonNums,
				"operator %s needs numeric operands, got %s and %s", e.Op, left.Type, right.Type)
			return Unknown()
		}
		if left.Type == TypeFloat || right.Type == TypeFloat {
			return Known(TypeFloat)
		}
		return Known(TypeInt)

	case "&&", "||":
		if !left.IsBoolean() || !right.IsBoolean() {
			c.diags.errorAt(e.SpanVal.Start, AttemptedBoolOpOnNonBools,
				"operator %s needs bool operands, got %s and %s", e.Op, left.Type, right.Type)
			return Unknown()
		}
		return Known(TypeBool)

	case "&", "|", "^":
		if !left.IsInteger() || !right.IsInteger() {
			c.diags.errorAt(e.SpanVal.Start, AttemptedBitOpOnNonInts,
				"operator %s needs int operands, got %s and %s", e.Op, left.Type, right.Type)
			return Unknown()
		}
		return Known(TypeInt)

	case "<", ">", "<=", ">=", "==", "!=":
		if !left.Matches(right) {
			c.diags.errorAt(e.SpanVal.Start, ExpressionTypeMismatch,
				"cannot compare %s with %s", left.Type, right.Type)
			return Unknown()
		}
		return Known(TypeBool)
	}
	return Unknown()
}

// checkCall checks arity, then each argument against the signature.
// Unknown callees were reported by scope analysis.
func (c *TypeChecker) checkCall(call *FunctionCall) TypeInfo {
	args := make([]TypeInfo, len(call.Args))
	for i, arg := range call.Args {
		args[i] = c.checkExpr(arg)
	}

	sig, ok := c.signatures[call.Name]
	if !ok {
		return Unknown()
	}
	if len(call.Args) != len(sig.ParamTypes) {
		c.diags.errorAt(call.SpanVal.Start, FnCallParamCount,
			"%s expects %d arguments, got %d", call.Name, len(sig.ParamTypes), len(call.Args))
		return Unknown()
	}

	failed := false
	for i, arg := range args {
		if !arg.Valid {
			failed = true
			continue
		}
		if arg.Type != sig.ParamTypes[i] {
			c.diags.errorAt(call.Args[i].Span().Start, FnCallParamType,
				"argument %d of %s: want %s, got %s", i+1, call.Name, sig.ParamTypes[i], arg.Type)
			failed = true
		}
	}
	if failed {
		return Unknown()
	}
	return Known(sig.ReturnType)
}

// Diagnostics returns accumulated type diagnostics.
func (c *TypeChecker) Diagnostics() []Diagnostic {
	return c.diags.items
}
