package compiler

// Type is one of the four value types, or TypeUnknown.
type Type int

const (
	TypeUnknown Type = iota
	TypeInt
	TypeFloat
	TypeString
	TypeBool
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeFloat:
		return "float"
	case TypeString:
		return "string"
	case TypeBool:
		return "bool"
	}
	return "unknown"
}

// typeFromToken maps a type keyword to its Type.
func typeFromToken(t TokenType) Type {
	switch t {
	case TokenInt:
		return TypeInt
	case TokenFloatType:
		return TypeFloat
	case TokenStringType:
		return TypeString
	case TokenBoolType:
		return TypeBool
	}
	return TypeUnknown
}

// TypeInfo is the result of typing an expression. An invalid TypeInfo means
// the problem has already been reported and callers must stay quiet.
type TypeInfo struct {
	Type  Type
	Valid bool
}

// Known returns a valid TypeInfo for t.
func Known(t Type) TypeInfo {
	return TypeInfo{Type: t, Valid: true}
}

// Unknown returns the invalid TypeInfo.
func Unknown() TypeInfo {
	return TypeInfo{Type: TypeUnknown}
}

func (ti TypeInfo) IsNumeric() bool {
	return ti.Valid && (ti.Type == TypeInt || ti.Type == TypeFloat)
}

func (ti TypeInfo) IsInteger() bool {
	return ti.Valid && ti.Type == TypeInt
}

func (ti TypeInfo) IsBoolean() bool {
	return ti.Valid && ti.Type == TypeBool
}

// Matches reports whether both infos are valid and name the same type.
func (ti TypeInfo) Matches(other TypeInfo) bool {
	return ti.Valid && other.Valid && ti.Type == other.Type
}

func (ti TypeInfo) String() string {
	if !ti.Valid {
		return "unknown"
	}
	return ti.Type.String()
}
