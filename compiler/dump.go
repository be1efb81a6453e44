package compiler

import (
	"strconv"
	"strings"
)

// Dump renders prog as s-expressions, one top-level item per line.
func Dump(prog *Program) string {
	var sb strings.Builder
	for _, stmt := range prog.Stmts {
		dumpStmt(&sb, stmt)
		sb.WriteByte('\n')
	}
	return sb.String()
}

// DumpExpr renders a single expression.
func DumpExpr(expr Expr) string {
	var sb strings.Builder
	dumpExpr(&sb, expr)
	return sb.String()
}

func dumpStmt(sb *strings.Builder, stmt Stmt) {
	switch s := stmt.(type) {
	case *VarDecl:
		sb.WriteString("(var " + s.Type.String() + " " + s.Name)
		if s.Init != nil {
			sb.WriteByte(' ')
			dumpExpr(sb, s.Init)
		}
		sb.WriteByte(')')
	case *ExprStmt:
		dumpExpr(sb, s.Expr)
	case *ReturnStmt:
		sb.WriteString("(return")
		if s.Value != nil {
			sb.WriteByte(' ')
			dumpExpr(sb, s.Value)
		}
		sb.WriteByte(')')
	case *BreakStmt:
		sb.WriteString("(break)")
	case *ContinueStmt:
		sb.WriteString("(continue)")
	case *Block:
		sb.WriteString("(block")
		for _, inner := range s.Stmts {
			sb.WriteByte(' ')
			dumpStmt(sb, inner)
		}
		sb.WriteByte(')')
	case *IfStmt:
		sb.WriteString("(if ")
		dumpExpr(sb, s.Cond)
		sb.WriteByte(' ')
		dumpStmt(sb, s.Then)
		if s.Else != nil {
			sb.WriteByte(' ')
			dumpStmt(sb, s.Else)
		}
		sb.WriteByte(')')
	case *WhileStmt:
		sb.WriteString("(while ")
		dumpExpr(sb, s.Cond)
		sb.WriteByte(' ')
		dumpStmt(sb, s.Body)
		sb.WriteByte(')')
	case *ForStmt:
		sb.WriteString("(for ")
		if s.Init != nil {
			dumpStmt(sb, s.Init)
		} else {
			sb.WriteString("_")
		}
		sb.WriteByte(' ')
		dumpOptExpr(sb, s.Cond)
		sb.WriteByte(' ')
		dumpOptExpr(sb, s.Update)
		sb.WriteByte(' ')
		dumpStmt(sb, s.Body)
		sb.WriteByte(')')
	case *FunctionDecl:
		sb.WriteString("(fn " + s.ReturnType.String() + " " + s.Name + " (")
		for i, p := range s.Params {
			if i > 0 {
				sb.WriteByte(' ')
			}
			sb.WriteString(p.Type.String() + " " + p.Name)
		}
		sb.WriteString(") ")
		dumpStmt(sb, s.Body)
		sb.WriteByte(')')
	}
}

func dumpOptExpr(sb *strings.Builder, expr Expr) {
	if expr == nil {
		sb.WriteString("_")
		return
	}
	dumpExpr(sb, expr)
}

func dumpExpr(sb *strings.Builder, expr Expr) {
	switch e := expr.(type) {
	case *IntLiteral:
		sb.WriteString(strconv.FormatInt(e.Value, 10))
	case *FloatLiteral:
		sb.WriteString(FormatFloat(e.Value))
	case *StringLiteral:
		sb.WriteString(strconv.Quote(e.Value))
	case *BoolLiteral:
		sb.WriteString(strconv.FormatBool(e.Value))
	case *Identifier:
		sb.WriteString(e.Name)
	case *BinaryOp:
		sb.WriteString("(" + e.Op + " ")
		dumpExpr(sb, e.Left)
		sb.WriteByte(' ')
		dumpExpr(sb, e.Right)
		sb.WriteByte(')')
	case *UnaryOp:
		sb.WriteString("(" + e.Op + " ")
		dumpExpr(sb, e.Operand)
		sb.WriteByte(')')
	case *Assignment:
		sb.WriteString("(= " + e.Target + " ")
		dumpExpr(sb, e.Value)
		sb.WriteByte(')')
	case *FunctionCall:
		sb.WriteString("(call " + e.Name)
		for _, arg := range e.Args {
			sb.WriteByte(' ')
			dumpExpr(sb, arg)
		}
		sb.WriteByte(')')
	case *ArrayAccess:
		sb.WriteString("(index ")
		dumpExpr(sb, e.Array)
		sb.WriteByte(' ')
		dumpExpr(sb, e.Index)
		sb.WriteByte(')')
	default:
		sb.WriteString("?")
	}
}

// FormatFloat renders v in its shortest form, keeping a decimal point so
// the text still reads as a float.
func FormatFloat(v float64) string {
	s := strconv.FormatFloat(v, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eEnN") {
		s += ".0"
	}
	return s
}
