package tac

import (
	"errors"
	"fmt"
	"strconv"

	"github.com/chazu/nuqta/compiler"
)

// ErrUnsupported is wrapped by Generate when it meets a node it cannot lower.
var ErrUnsupported = errors.New("unsupported construct")

// Generator lowers statements to quads. Counters and loop stacks belong to
// one Generate call.
type Generator struct {
	quads     []Quad
	temps     int
	labels    int
	breaks    []string
	continues []string
}

// Generate lowers prog to quads. On error the returned quads are the ones
// emitted before the failure and must be treated as truncated.
func Generate(prog *compiler.Program) ([]Quad, error) {
	g := &Generator{}
	for _, stmt := range prog.Stmts {
		if err := g.stmt(stmt); err != nil {
			return g.quads, err
		}
	}
	return g.quads, nil
}

func (g *Generator) newTemp() string {
	name := "_t" + strconv.Itoa(g.temps)
	g.temps++
	return name
}

func (g *Generator) newLabel() string {
	name := "_L" + strconv.Itoa(g.labels)
	g.labels++
	return name
}

func (g *Generator) emit(op Op, arg1, arg2, result string) {
	g.quads = append(g.quads, Quad{Op: op, Arg1: arg1, Arg2: arg2, Result: result})
}

func (g *Generator) label(name string) {
	g.emit(OpLabel, "", "", name)
}

func (g *Generator) jump(target string) {
	g.emit(OpGoto, "", "", target)
}

// LoweringError reports the node Generate could not lower. It unwraps to
// ErrUnsupported.
type LoweringError struct {
	Pos  compiler.Position
	What string
}

func (e *LoweringError) Error() string {
	return fmt.Sprintf("line %d, column %d: %s: %v", e.Pos.Line, e.Pos.Column, e.What, ErrUnsupported)
}

func (e *LoweringError) Unwrap() error {
	return ErrUnsupported
}

func unsupported(n compiler.Node, what string) error {
	return &LoweringError{Pos: n.Span().Start, What: what}
}

// ---------------------------------------------------------------------------
// Statements
// ---------------------------------------------------------------------------

func (g *Generator) stmt(stmt compiler.Stmt) error {
	switch s := stmt.(type) {
	case *compiler.VarDecl:
		if s.Init == nil {
			return nil
		}
		v, err := g.expr(s.Init)
		if err != nil {
			return err
		}
		g.emit(OpCopy, v, "", s.Name)

	case *compiler.ExprStmt:
		_, err := g.expr(s.Expr)
		return err

	case *compiler.ReturnStmt:
		v := ""
		if s.Value != nil {
			var err error
			if v, err = g.expr(s.Value); err != nil {
				return err
			}
		}
		g.emit(OpReturn, v, "", "")

	case *compiler.BreakStmt:
		if n := len(g.breaks); n > 0 {
			g.jump(g.breaks[n-1])
		}

	case *compiler.ContinueStmt:
		if n := len(g.continues); n > 0 {
			g.jump(g.continues[n-1])
		}

	case *compiler.Block:
		return g.block(s)

	case *compiler.IfStmt:
		return g.ifStmt(s)

	case *compiler.WhileStmt:
		return g.whileStmt(s)

	case *compiler.ForStmt:
		return g.forStmt(s)

	case *compiler.FunctionDecl:
		// Top-level flow jumps over the body.
		skip := g.newLabel()
		g.jump(skip)
		g.label(s.Name)
		if err := g.block(s.Body); err != nil {
			return err
		}
		g.label(skip)

	case nil:

	default:
		return unsupported(stmt, fmt.Sprintf("statement %T", stmt))
	}
	return nil
}

func (g *Generator) block(b *compiler.Block) error {
	if b == nil {
		return nil
	}
	for _, s := range b.Stmts {
		if err := g.stmt(s); err != nil {
			return err
		}
	}
	return nil
}

// ifStmt: cond; if_false else-or-end; then; [goto end; else:; else-body;] end:
func (g *Generator) ifStmt(s *compiler.IfStmt) error {
	cond, err := g.expr(s.Cond)
	if err != nil {
		return err
	}
	end := g.newLabel()
	target := end
	var elseLabel string
	if s.Else != nil {
		elseLabel = g.newLabel()
		target = elseLabel
	}

	g.emit(OpIfFalse, cond, "", target)
	if err := g.block(s.Then); err != nil {
		return err
	}
	if s.Else != nil {
		g.jump(end)
		g.label(elseLabel)
		if err := g.block(s.Else); err != nil {
			return err
		}
	}
	g.label(end)
	return nil
}

// whileStmt: start:; cond; if_false end; body; goto start; end:
func (g *Generator) whileStmt(s *compiler.WhileStmt) error {
	start := g.newLabel()
	end := g.newLabel()

	g.label(start)
	cond, err := g.expr(s.Cond)
	if err != nil {
		return err
	}
	g.emit(OpIfFalse, cond, "", end)

	g.pushLoop(end, start)
	err = g.block(s.Body)
	g.popLoop()
	if err != nil {
		return err
	}

	g.jump(start)
	g.label(end)
	return nil
}

// forStmt: init; start:; cond; if_false end; body; cont:; update; goto start; end:
func (g *Generator) forStmt(s *compiler.ForStmt) error {
	if s.Init != nil {
		if err := g.stmt(s.Init); err != nil {
			return err
		}
	}
	start := g.newLabel()
	cont := g.newLabel()
	end := g.newLabel()

	g.label(start)
	if s.Cond != nil {
		cond, err := g.expr(s.Cond)
		if err != nil {
			return err
		}
		g.emit(OpIfFalse, cond, "", end)
	}

	g.pushLoop(end, cont)
	err := g.block(s.Body)
	g.popLoop()
	if err != nil {
		return err
	}

	g.label(cont)
	if s.Update != nil {
		if _, err := g.expr(s.Update); err != nil {
			return err
		}
	}
	g.jump(start)
	g.label(end)
	return nil
}

func (g *Generator) pushLoop(breakTo, continueTo string) {
	g.breaks = append(g.breaks, breakTo)
	g.continues = append(g.continues, continueTo)
}

func (g *Generator) popLoop() {
	g.breaks = g.breaks[:len(g.breaks)-1]
	g.continues = g.continues[:len(g.continues)-1]
}

// ---------------------------------------------------------------------------
// Expressions
// ---------------------------------------------------------------------------

// expr lowers e and returns the operand holding its value.
func (g *Generator) expr(e compiler.Expr) (string, error) {
	switch e := e.(type) {
	case *compiler.IntLiteral:
		return strconv.FormatInt(e.Value, 10), nil
	case *compiler.FloatLiteral:
		return compiler.FormatFloat(e.Value), nil
	case *compiler.StringLiteral:
		return strconv.Quote(e.Value), nil
	case *compiler.BoolLiteral:
		return strconv.FormatBool(e.Value), nil
	case *compiler.Identifier:
		return e.Name, nil

	case *compiler.BinaryOp:
		left, err := g.expr(e.Left)
		if err != nil {
			return "", err
		}
		right, err := g.expr(e.Right)
		if err != nil {
			return "", err
		}
		op := Op(e.Op)
		if !op.IsBinary() {
			return "", unsupported(e, "operator "+e.Op)
		}
		result := g.newTemp()
		g.emit(op, left, right, result)
		return result, nil

	case *compiler.UnaryOp:
		operand, err := g.expr(e.Operand)
		if err != nil {
			return "", err
		}
		var op Op
		switch e.Op {
		case "-":
			op = OpNeg
		case "!":
			op = OpNot
		default:
			return "", unsupported(e, "unary operator "+e.Op)
		}
		result := g.newTemp()
		g.emit(op, operand, "", result)
		return result, nil

	case *compiler.Assignment:
		v, err := g.expr(e.Value)
		if err != nil {
			return "", err
		}
		g.emit(OpCopy, v, "", e.Target)
		return e.Target, nil

	case *compiler.FunctionCall:
		// Arguments are evaluated for their effects; passing them is not modeled.
		for _, arg := range e.Args {
			if _, err := g.expr(arg); err != nil {
				return "", err
			}
		}
		result := g.newTemp()
		g.emit(OpCall, e.Name, "", result)
		return result, nil

	case *compiler.ArrayAccess:
		return "", unsupported(e, "array access")

	case nil:
		return "", &LoweringError{What: "missing expression"}
	}
	return "", unsupported(e, fmt.Sprintf("expression %T", e))
}
