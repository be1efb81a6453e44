package hash

import (
	"encoding/binary"
	"math"

	"github.com/chazu/nuqta/compiler"
)

// ---------------------------------------------------------------------------
// Deterministic binary serialization of a nuqta AST.
//
// Encoding conventions:
//   - First byte: HashVersion
//   - Integers: big-endian fixed-width int64
//   - Floats: IEEE 754 big-endian 8B
//   - Strings: uint32 big-endian length + UTF-8 bytes
//   - Booleans and types: single byte
//   - Children: serialized inline, absent optional children as TagNone
//
// Source positions are never written, so reformatting a program does not
// change its serialization.
// ---------------------------------------------------------------------------

// Serialize produces a deterministic byte serialization of prog.
func Serialize(prog *compiler.Program) []byte {
	s := &serializer{buf: make([]byte, 0, 256)}
	s.writeByte(HashVersion)
	s.writeByte(TagProgram)
	s.writeUint32(uint32(len(prog.Stmts)))
	for _, stmt := range prog.Stmts {
		s.stmt(stmt)
	}
	return s.buf
}

type serializer struct {
	buf []byte
}

func (s *serializer) writeByte(b byte) {
	s.buf = append(s.buf, b)
}

func (s *serializer) writeUint32(v uint32) {
	var b [4]byte
	binary.BigEndian.PutUint32(b[:], v)
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeInt64(v int64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], uint64(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeFloat64(v float64) {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	s.buf = append(s.buf, b[:]...)
}

func (s *serializer) writeString(v string) {
	s.writeUint32(uint32(len(v)))
	s.buf = append(s.buf, v...)
}

func (s *serializer) writeBool(v bool) {
	if v {
		s.writeByte(1)
	} else {
		s.writeByte(0)
	}
}

func (s *serializer) writeType(t compiler.Type) {
	s.writeByte(byte(t))
}

func (s *serializer) block(b *compiler.Block) {
	if b == nil {
		s.writeByte(TagNone)
		return
	}
	s.writeByte(TagBlock)
	s.writeUint32(uint32(len(b.Stmts)))
	for _, stmt := range b.Stmts {
		s.stmt(stmt)
	}
}

func (s *serializer) optExpr(e compiler.Expr) {
	if e == nil {
		s.writeByte(TagNone)
		return
	}
	s.expr(e)
}

func (s *serializer) stmt(stmt compiler.Stmt) {
	switch n := stmt.(type) {
	case *compiler.VarDecl:
		s.writeByte(TagVarDecl)
		s.writeType(n.Type)
		s.writeString(n.Name)
		s.optExpr(n.Init)

	case *compiler.ExprStmt:
		s.writeByte(TagExprStmt)
		s.expr(n.Expr)

	case *compiler.ReturnStmt:
		s.writeByte(TagReturn)
		s.optExpr(n.Value)

	case *compiler.BreakStmt:
		s.writeByte(TagBreak)

	case *compiler.ContinueStmt:
		s.writeByte(TagContinue)

	case *compiler.Block:
		s.block(n)

	case *compiler.IfStmt:
		s.writeByte(TagIf)
		s.expr(n.Cond)
		s.block(n.Then)
		s.block(n.Else)

	case *compiler.WhileStmt:
		s.writeByte(TagWhile)
		s.expr(n.Cond)
		s.block(n.Body)

	case *compiler.ForStmt:
		s.writeByte(TagFor)
		if n.Init == nil {
			s.writeByte(TagNone)
		} else {
			s.stmt(n.Init)
		}
		s.optExpr(n.Cond)
		s.optExpr(n.Update)
		s.block(n.Body)

	case *compiler.FunctionDecl:
		s.writeByte(TagFunctionDecl)
		s.writeType(n.ReturnType)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Params)))
		for _, p := range n.Params {
			s.writeType(p.Type)
			s.writeString(p.Name)
		}
		s.block(n.Body)

	default:
		s.writeByte(TagNone)
	}
}

func (s *serializer) expr(e compiler.Expr) {
	switch n := e.(type) {
	case *compiler.IntLiteral:
		s.writeByte(TagIntLiteral)
		s.writeInt64(n.Value)

	case *compiler.FloatLiteral:
		s.writeByte(TagFloatLiteral)
		s.writeFloat64(n.Value)

	case *compiler.StringLiteral:
		s.writeByte(TagStringLiteral)
		s.writeString(n.Value)

	case *compiler.BoolLiteral:
		s.writeByte(TagBoolLiteral)
		s.writeBool(n.Value)

	case *compiler.Identifier:
		s.writeByte(TagIdentifier)
		s.writeString(n.Name)

	case *compiler.BinaryOp:
		s.writeByte(TagBinaryOp)
		s.writeString(n.Op)
		s.expr(n.Left)
		s.expr(n.Right)

	case *compiler.UnaryOp:
		s.writeByte(TagUnaryOp)
		s.writeString(n.Op)
		s.expr(n.Operand)

	case *compiler.Assignment:
		s.writeByte(TagAssignment)
		s.writeString(n.Target)
		s.expr(n.Value)

	case *compiler.FunctionCall:
		s.writeByte(TagFunctionCall)
		s.writeString(n.Name)
		s.writeUint32(uint32(len(n.Args)))
		for _, arg := range n.Args {
			s.expr(arg)
		}

	case *compiler.ArrayAccess:
		s.writeByte(TagArrayAccess)
		s.expr(n.Array)
		s.expr(n.Index)

	default:
		s.writeByte(TagNone)
	}
}
