package internal

// Signature is the function table entry of a declared function.
type Signature struct {
	Name   string
	Return Type
	Params []*Param
	Body   *Block
	Pos    Pos
}

// Info is the result of type checking: the static type of every expression, and the function
// table. The tree itself is never annotated.
type Info struct {
	Types map[Expr]Type
	Funcs map[string]*Signature
}

func NewInfo() *Info {
	return &Info{Types: map[Expr]Type{}, Funcs: map[string]*Signature{}}
}

// TypeOf returns the type recorded for expr.
func (info *Info) TypeOf(expr Expr) (Type, bool) {
	tp, ok := info.Types[expr]
	return tp, ok
}

const printFuncName = "print"

// VariableSymbolTable is a stack of scopes, innermost last. Variables are found by their resolved
// name; duplicates are detected on the name as written, since resolution already made the
// resolved names distinct.
type VariableSymbolTable struct {
	scopes []*variableScope
}

type variableScope struct {
	types   map[string]Type
	origins map[string]bool
}

func (table *VariableSymbolTable) Push() {
	table.scopes = append(table.scopes, &variableScope{types: map[string]Type{}, origins: map[string]bool{}})
}

func (table *VariableSymbolTable) Pop() {
	table.scopes = table.scopes[:len(table.scopes)-1]
}

// Declare binds name in the innermost scope. It returns false when origin is already declared in
// that scope.
func (table *VariableSymbolTable) Declare(name, origin string, tp Type) bool {
	scope := table.scopes[len(table.scopes)-1]
	if origin == "" {
		origin = name
	}
	if scope.origins[origin] {
		return false
	}
	scope.origins[origin] = true
	scope.types[name] = tp
	return true
}

// LookUp walks the scopes from the innermost outward.
func (table *VariableSymbolTable) LookUp(name string) (Type, bool) {
	for i := len(table.scopes) - 1; i >= 0; i-- {
		if tp, ok := table.scopes[i].types[name]; ok {
			return tp, true
		}
	}
	return 0, false
}

func (table *VariableSymbolTable) Depth() int {
	return len(table.scopes)
}
