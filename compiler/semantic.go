package compiler

// ---------------------------------------------------------------------------
// Scope analysis: declarations, lookups and redefinitions
// ---------------------------------------------------------------------------

// ScopeAnalyzer walks a program pre-order, declaring names as it meets
// them and reporting undeclared or redefined symbols.
type ScopeAnalyzer struct {
	table *ScopeTable
	cur   ScopeID
	diags diagList
}

// NewScopeAnalyzer creates an analyzer that declares globals into table.
func NewScopeAnalyzer(table *ScopeTable) *ScopeAnalyzer {
	return &ScopeAnalyzer{
		table: table,
		cur:   GlobalScope,
		diags: diagList{stage: StageScope},
	}
}

// AnalyzeScopes runs scope analysis over prog. The global scope of table is
// left populated for the type checker.
func AnalyzeScopes(prog *Program, table *ScopeTable) []Diagnostic {
	a := NewScopeAnalyzer(table)
	a.Analyze(prog)
	return a.diags.items
}

// Diagnostics returns accumulated scope diagnostics.
func (a *ScopeAnalyzer) Diagnostics() []Diagnostic {
	return a.diags.items
}

// Analyze declares every top-level function first, so calls may precede
// the callee's definition, then walks each item in order.
func (a *ScopeAnalyzer) Analyze(prog *Program) {
	for _, fn := range prog.Functions() {
		sym := &Symbol{
			Name:       fn.Name,
			Type:       fn.ReturnType,
			IsFunction: true,
			IsDefined:  true,
			Pos:        fn.NamePos,
			Params:     fn.Params,
		}
		if !a.table.Declare(GlobalScope, sym) {
			a.diags.errorAt(fn.NamePos, FunctionPrototypeRedefinition, "function %s redefined", fn.Name)
		}
	}

	for _, stmt := range prog.Stmts {
		if fn, ok := stmt.(*FunctionDecl); ok {
			a.analyzeFunctionBody(fn)
			continue
		}
		a.analyzeStmt(stmt)
	}
}

func (a *ScopeAnalyzer) push() {
	a.cur = a.table.Push(a.cur)
}

func (a *ScopeAnalyzer) pop() {
	if p := a.table.Parent(a.cur); p != NoScope {
		a.cur = p
	}
}

func (a *ScopeAnalyzer) analyzeStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case *VarDecl:
		sym := &Symbol{Name: s.Name, Type: s.Type, IsDefined: true, Pos: s.NamePos}
		if !a.table.Declare(a.cur, sym) {
			a.diags.errorAt(s.NamePos, VariableRedefinition, "variable %s redefined in the same scope", s.Name)
		}
		if s.Init != nil {
			a.analyzeExpr(s.Init)
		}

	case *ExprStmt:
		a.analyzeExpr(s.Expr)

	case *ReturnStmt:
		if s.Value != nil {
			a.analyzeExpr(s.Value)
		}

	case *BreakStmt, *ContinueStmt:

	case *Block:
		a.push()
		for _, inner := range s.Stmts {
			a.analyzeStmt(inner)
		}
		a.pop()

	case *IfStmt:
		a.analyzeExpr(s.Cond)
		a.analyzeStmt(s.Then)
		if s.Else != nil {
			a.analyzeStmt(s.Else)
		}

	case *WhileStmt:
		a.analyzeExpr(s.Cond)
		a.analyzeStmt(s.Body)

	case *ForStmt:
		a.push()
		if s.Init != nil {
			a.analyzeStmt(s.Init)
		}
		if s.Cond != nil {
			a.analyzeExpr(s.Cond)
		}
		if s.Update != nil {
			a.analyzeExpr(s.Update)
		}
		a.analyzeStmt(s.Body)
		a.pop()

	case *FunctionDecl:
		// The parser rejects nested declarations; hand-built trees get
		// local function semantics.
		sym := &Symbol{Name: s.Name, Type: s.ReturnType, IsFunction: true, IsDefined: true, Pos: s.NamePos, Params: s.Params}
		if !a.table.Declare(a.cur, sym) {
			a.diags.errorAt(s.NamePos, FunctionPrototypeRedefinition, "function %s redefined", s.Name)
		}
		a.analyzeFunctionBody(s)
	}
}

// analyzeFunctionBody opens a parameter scope and walks the body, which
// opens its own block scope inside it.
func (a *ScopeAnalyzer) analyzeFunctionBody(fn *FunctionDecl) {
	a.push()
	for _, p := range fn.Params {
		sym := &Symbol{Name: p.Name, Type: p.Type, IsDefined: true, Pos: p.Pos}
		if !a.table.Declare(a.cur, sym) {
			a.diags.errorAt(p.Pos, VariableRedefinition, "parameter %s declared twice", p.Name)
		}
	}
	if fn.Body != nil {
		a.analyzeStmt(fn.Body)
	}
	a.pop()
}

func (a *ScopeAnalyzer) analyzeExpr(expr Expr) {
	switch e := expr.(type) {
	case *IntLiteral, *FloatLiteral, *StringLiteral, *BoolLiteral:

	case *Identifier:
		if _, ok := a.table.Lookup(a.cur, e.Name); !ok {
			a.diags.errorAt(e.SpanVal.Start, UndeclaredVariableAccessed, "undeclared variable %s", e.Name)
		}

	case *Assignment:
		if _, ok := a.table.Lookup(a.cur, e.Target); !ok {
			a.diags.errorAt(e.SpanVal.Start, UndeclaredVariableAccessed, "assignment to undeclared variable %s", e.Target)
		}
		a.analyzeExpr(e.Value)

	case *FunctionCall:
		if sym, ok := a.table.Lookup(a.cur, e.Name); !ok || !sym.IsFunction {
			a.diags.errorAt(e.SpanVal.Start, UndefinedFunctionCalled, "call to undefined function %s", e.Name)
		}
		for _, arg := range e.Args {
			a.analyzeExpr(arg)
		}

	case *BinaryOp:
		a.analyzeExpr(e.Left)
		a.analyzeExpr(e.Right)

	case *UnaryOp:
		a.analyzeExpr(e.Operand)

	case *ArrayAccess:
		a.analyzeExpr(e.Array)
		a.analyzeExpr(e.Index)
	}
}
