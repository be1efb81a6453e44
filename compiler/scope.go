package compiler

import "sort"

// ---------------------------------------------------------------------------
// Scope table: an arena of lexical scopes linked by parent index
// ---------------------------------------------------------------------------

// ScopeID indexes a scope in a ScopeTable.
type ScopeID int

const (
	// NoScope is the parent of the global scope.
	NoScope ScopeID = -1
	// GlobalScope is always the first scope in a table.
	GlobalScope ScopeID = 0
)

// Symbol is a declared name.
type Symbol struct {
	Name       string
	Type       Type // declared type; return type for functions
	IsFunction bool
	IsDefined  bool
	Pos        Position
	Params     []Param // functions only
}

type scope struct {
	parent  ScopeID
	symbols map[string]*Symbol
}

// ScopeTable owns every scope created during analysis. Scopes are never
// freed; leaving a scope just means no longer using its ID.
type ScopeTable struct {
	scopes []scope
}

// NewScopeTable returns a table holding only the global scope.
func NewScopeTable() *ScopeTable {
	t := &ScopeTable{}
	t.Push(NoScope)
	return t
}

// Push creates a child of parent and returns its ID.
func (t *ScopeTable) Push(parent ScopeID) ScopeID {
	t.scopes = append(t.scopes, scope{parent: parent, symbols: make(map[string]*Symbol)})
	return ScopeID(len(t.scopes) - 1)
}

// Parent returns the enclosing scope of id, or NoScope.
func (t *ScopeTable) Parent(id ScopeID) ScopeID {
	return t.scopes[id].parent
}

// Len returns the number of scopes ever created.
func (t *ScopeTable) Len() int {
	return len(t.scopes)
}

// Declare adds sym to scope id. It returns false, leaving the table
// unchanged, when the name already exists in that same scope.
func (t *ScopeTable) Declare(id ScopeID, sym *Symbol) bool {
	s := t.scopes[id]
	if _, exists := s.symbols[sym.Name]; exists {
		return false
	}
	s.symbols[sym.Name] = sym
	return true
}

// LookupLocal finds name in scope id only.
func (t *ScopeTable) LookupLocal(id ScopeID, name string) (*Symbol, bool) {
	sym, ok := t.scopes[id].symbols[name]
	return sym, ok
}

// Lookup walks from id outwards until name is found.
func (t *ScopeTable) Lookup(id ScopeID, name string) (*Symbol, bool) {
	for id != NoScope {
		if sym, ok := t.scopes[id].symbols[name]; ok {
			return sym, true
		}
		id = t.scopes[id].parent
	}
	return nil, false
}

// Symbols returns the symbols declared directly in scope id, sorted by name.
func (t *ScopeTable) Symbols(id ScopeID) []*Symbol {
	out := make([]*Symbol, 0, len(t.scopes[id].symbols))
	for _, sym := range t.scopes[id].symbols {
		out = append(out, sym)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
