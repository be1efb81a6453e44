package hash

// ---------------------------------------------------------------------------
// Frozen tag bytes for the hashing AST serialization format.
//
// Once assigned, a tag byte must never change meaning. Adding new tags is
// fine; changing existing ones invalidates every cached artifact.
// ---------------------------------------------------------------------------

// HashVersion is the version prefix for the serialization format.
const HashVersion byte = 1

// AST node type tags.
const (
	TagReservedZero byte = 0x00

	// Expressions
	TagIntLiteral    byte = 0x01
	TagFloatLiteral  byte = 0x02
	TagStringLiteral byte = 0x03
	TagBoolLiteral   byte = 0x04
	TagIdentifier    byte = 0x05
	TagBinaryOp      byte = 0x06
	TagUnaryOp       byte = 0x07
	TagAssignment    byte = 0x08
	TagFunctionCall  byte = 0x09
	TagArrayAccess   byte = 0x0A

	// Statements
	TagVarDecl      byte = 0x10
	TagExprStmt     byte = 0x11
	TagReturn       byte = 0x12
	TagBreak        byte = 0x13
	TagContinue     byte = 0x14
	TagBlock        byte = 0x15
	TagIf           byte = 0x16
	TagWhile        byte = 0x17
	TagFor          byte = 0x18
	TagFunctionDecl byte = 0x19

	TagProgram byte = 0x20

	// Marks an absent optional child.
	TagNone byte = 0xFF
)

// allTags lists every defined tag for uniqueness verification in tests.
var allTags = []byte{
	TagReservedZero,
	TagIntLiteral, TagFloatLiteral, TagStringLiteral, TagBoolLiteral,
	TagIdentifier, TagBinaryOp, TagUnaryOp, TagAssignment, TagFunctionCall,
	TagArrayAccess,
	TagVarDecl, TagExprStmt, TagReturn, TagBreak, TagContinue, TagBlock,
	TagIf, TagWhile, TagFor, TagFunctionDecl,
	TagProgram, TagNone,
}
