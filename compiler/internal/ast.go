package internal

import "fmt"

// In this file, we defined all ast of the trac42 language. A program is a list of function
// declarations, there is no global variable and no type other than int and bool.
//
// Nodes are a closed set: Expr and Stmt are implemented only by the types below, passes switch on
// the concrete type. A node never appears twice in a tree, passes build new nodes instead of
// changing the ones they were given.

// Pos is the 1-based line and column of the leftmost token of a node.
type Pos struct {
	Line   int
	Column int
}

func (p Pos) Position() Pos {
	return p
}

// Location renders the position the way diagnostics quote it.
func (p Pos) Location() string {
	return fmt.Sprintf("line %d column %d", p.Line, p.Column)
}

type Node interface {
	Position() Pos
}

type Expr interface {
	Node
	exprNode()
}

type Stmt interface {
	Node
	stmtNode()
}

type Type int

const (
	TypeInt Type = iota
	TypeBool
	TypeVoid
)

func (t Type) String() string {
	switch t {
	case TypeInt:
		return "int"
	case TypeBool:
		return "bool"
	case TypeVoid:
		return "void"
	}
	return fmt.Sprintf("Type(%d)", int(t))
}

type Operator int

const (
	OpAdd Operator = iota
	OpSub
	OpMul
	OpDiv
	OpMod
	OpLess
	OpGreater
	OpLessEqual
	OpGreaterEqual
	OpEqual
	OpNotEqual
	OpAnd
	OpOr
	OpNot
	OpNeg
)

var operatorNames = [...]string{
	OpAdd:          "+",
	OpSub:          "-",
	OpMul:          "*",
	OpDiv:          "/",
	OpMod:          "%",
	OpLess:         "<",
	OpGreater:      ">",
	OpLessEqual:    "<=",
	OpGreaterEqual: ">=",
	OpEqual:        "==",
	OpNotEqual:     "!=",
	OpAnd:          "&&",
	OpOr:           "||",
	OpNot:          "!",
	OpNeg:          "-",
}

func (op Operator) String() string {
	if op < 0 || int(op) >= len(operatorNames) {
		return fmt.Sprintf("Operator(%d)", int(op))
	}
	return operatorNames[op]
}

func (op Operator) IsArithmetic() bool {
	return op >= OpAdd && op <= OpMod
}

func (op Operator) IsComparison() bool {
	return op >= OpLess && op <= OpGreaterEqual
}

func (op Operator) IsEquality() bool {
	return op == OpEqual || op == OpNotEqual
}

func (op Operator) IsLogical() bool {
	return op == OpAnd || op == OpOr
}

// Expressions.

type Identifier struct {
	Pos
	Name string
}

type IntegerLiteral struct {
	Pos
	Value int64
}

type BooleanLiteral struct {
	Pos
	Value bool
}

type BinaryOp struct {
	Pos
	Op    Operator
	Left  Expr
	Right Expr
}

type UnaryOp struct {
	Pos
	Op      Operator
	Operand Expr
}

type ParenBlock struct {
	Pos
	Inner Expr
}

type FunctionCall struct {
	Pos
	Name string
	Args *ArgumentList
}

// ArgumentList is the possibly empty list of call arguments.
type ArgumentList struct {
	Pos
	Args []Expr
}

func (*Identifier) exprNode()     {}
func (*IntegerLiteral) exprNode() {}
func (*BooleanLiteral) exprNode() {}
func (*BinaryOp) exprNode()       {}
func (*UnaryOp) exprNode()        {}
func (*ParenBlock) exprNode()     {}
func (*FunctionCall) exprNode()   {}

// Statements.

type Param struct {
	Pos
	Type Type
	Name string
}

type ParameterList struct {
	Pos
	Params []*Param
}

type FunctionDecl struct {
	Pos
	Name       string
	ReturnType Type
	Params     *ParameterList
	Body       *Block
}

type ExpressionStatement struct {
	Pos
	X Expr
}

// Sequence is a linked list of statements, Tail is nil on the last element.
type Sequence struct {
	Pos
	Head Stmt
	Tail Stmt
}

type Assignment struct {
	Pos
	Name  string
	Value Expr
}

type Block struct {
	Pos
	Body Stmt
}

type If struct {
	Pos
	Cond Expr
	Then Stmt
	Else Stmt // nil when there is no else branch
}

type While struct {
	Pos
	Cond Expr
	Body Stmt
}

type Return struct {
	Pos
	Value Expr // nil for a bare return
}

// VarDecl declares a local. Origin is the name as written in the source, Name the name after scope
// resolution.
type VarDecl struct {
	Pos
	Type   Type
	Name   string
	Origin string
}

// Empty is left behind by the optimizer where a statement was removed.
type Empty struct {
	Pos
}

func (*FunctionDecl) stmtNode()        {}
func (*ExpressionStatement) stmtNode() {}
func (*Sequence) stmtNode()            {}
func (*Assignment) stmtNode()          {}
func (*Block) stmtNode()               {}
func (*If) stmtNode()                  {}
func (*While) stmtNode()               {}
func (*Return) stmtNode()              {}
func (*VarDecl) stmtNode()             {}
func (*Empty) stmtNode()               {}

type Program struct {
	Funcs []*FunctionDecl
}

// Seq links stmts into a Sequence, dropping Empty statements. It returns an Empty positioned at
// pos when nothing is left, and the statement itself when one is left.
func Seq(pos Pos, stmts ...Stmt) Stmt {
	var kept []Stmt
	for _, stmt := range stmts {
		if stmt == nil {
			continue
		}
		if _, ok := stmt.(*Empty); ok {
			continue
		}
		kept = append(kept, stmt)
	}
	if len(kept) == 0 {
		return &Empty{Pos: pos}
	}
	var tail Stmt
	for i := len(kept) - 1; i >= 0; i-- {
		if tail == nil {
			tail = kept[i]
			continue
		}
		tail = &Sequence{Pos: kept[i].Position(), Head: kept[i], Tail: tail}
	}
	return tail
}

// Flatten returns the statements of a sequence in order. Any other statement is returned alone.
func Flatten(stmt Stmt) []Stmt {
	var ret []Stmt
	for stmt != nil {
		seq, ok := stmt.(*Sequence)
		if !ok {
			ret = append(ret, stmt)
			break
		}
		ret = append(ret, Flatten(seq.Head)...)
		stmt = seq.Tail
	}
	return ret
}

// IsEmpty reports whether stmt does nothing: an Empty, or a block or sequence of them.
func IsEmpty(stmt Stmt) bool {
	switch s := stmt.(type) {
	case nil, *Empty:
		return true
	case *Block:
		return IsEmpty(s.Body)
	case *Sequence:
		return IsEmpty(s.Head) && IsEmpty(s.Tail)
	}
	return false
}

// HasEffect reports whether evaluating expr may do more than produce a value: call a function, or
// fault on a divisor which is not a known non zero literal.
func HasEffect(expr Expr) bool {
	switch e := expr.(type) {
	case *FunctionCall:
		return true
	case *BinaryOp:
		if e.Op == OpDiv || e.Op == OpMod {
			if divisor, ok := e.Right.(*IntegerLiteral); !ok || divisor.Value == 0 {
				return true
			}
		}
		return HasEffect(e.Left) || HasEffect(e.Right)
	case *UnaryOp:
		return HasEffect(e.Operand)
	case *ParenBlock:
		return HasEffect(e.Inner)
	}
	return false
}

// Function returns the declaration named name, or nil.
func (prog *Program) Function(name string) *FunctionDecl {
	for _, fn := range prog.Funcs {
		if fn.Name == name {
			return fn
		}
	}
	return nil
}
