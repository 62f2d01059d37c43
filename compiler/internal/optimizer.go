package internal

import (
	"fmt"
)

// The optimizer rewrites a resolved and type checked program until nothing more can be folded.
//
// One attempt walks every function once, tracking for each variable the literal it is known to
// hold (if any) and whether it has definitely been written. Reads of known variables become
// literals, which feeds constant folding, dead branch elimination and algebraic simplification.
// A local that is no longer read at the end of an attempt is deleted by the next attempt, which
// may expose more folding; the loop stops when an attempt finds nothing to delete.

// Use is the first dynamic use of a variable, as needed by the code generator.
type Use int

const (
	UseUnused Use = iota
	UseRead
	UseWrite
)

func (u Use) String() string {
	switch u {
	case UseRead:
		return "read"
	case UseWrite:
		return "write"
	}
	return "unused"
}

// maxOptimizeAttempts bounds the attempts of one Optimize call.
var maxOptimizeAttempts = 64

type Optimized struct {
	Program  *Program
	Warnings []string
	// FirstUse holds, for every declaration left in Program, whether it may be read before it is
	// written.
	FirstUse map[*VarDecl]Use
	Attempts int
}

// Optimize returns an optimized copy of prog together with the warnings found on the way.
func Optimize(prog *Program) *Optimized {
	warnings := &warningSet{seen: map[string]bool{}}
	deletable := map[*VarDecl]bool{}
	ret := &Optimized{}
	for {
		ret.Attempts++
		att := &attempt{
			deletable: deletable,
			warnings:  warnings,
			reads:     map[*VarDecl]int{},
			firstUse:  map[*VarDecl]Use{},
		}
		prog = att.optimizeProgram(prog)
		deletable = att.eligible()
		if len(deletable) == 0 || ret.Attempts >= maxOptimizeAttempts {
			ret.FirstUse = att.firstUse
			break
		}
	}
	ret.Program = prog
	ret.Warnings = warnings.list
	return ret
}

type warningSet struct {
	seen map[string]bool
	list []string
}

func (set *warningSet) add(format string, args ...interface{}) {
	msg := fmt.Sprintf(format, args...)
	if set.seen[msg] {
		return
	}
	set.seen[msg] = true
	set.list = append(set.list, msg)
}

// varState is what an attempt knows about a variable at a point of the program.
type varState struct {
	decl    *VarDecl // nil for parameters
	known   Expr     // *IntegerLiteral or *BooleanLiteral, nil when unknown
	written bool     // written on every path reaching this point
	deleted bool
}

type knowledge map[string]varState

func (env knowledge) copy() knowledge {
	ret := make(knowledge, len(env))
	for name, state := range env {
		ret[name] = state
	}
	return ret
}

// merge joins the knowledge of two paths meeting after a branch. Names declared inside the
// branches are out of scope after it and dropped.
func (env knowledge) merge(left, right knowledge) knowledge {
	ret := make(knowledge, len(env))
	for name := range env {
		l, r := left[name], right[name]
		state := l
		if !sameLiteral(l.known, r.known) {
			state.known = nil
		}
		state.written = l.written && r.written
		ret[name] = state
	}
	return ret
}

type attempt struct {
	deletable map[*VarDecl]bool
	warnings  *warningSet
	env       knowledge
	decls     []*VarDecl
	reads     map[*VarDecl]int
	firstUse  map[*VarDecl]Use
}

// eligible returns the declarations with no dynamic read left.
func (att *attempt) eligible() map[*VarDecl]bool {
	ret := map[*VarDecl]bool{}
	for _, decl := range att.decls {
		if att.reads[decl] == 0 {
			ret[decl] = true
		}
	}
	return ret
}

func (att *attempt) optimizeProgram(prog *Program) *Program {
	ret := &Program{}
	for _, fn := range prog.Funcs {
		ret.Funcs = append(ret.Funcs, att.optimizeFunction(fn))
	}
	return ret
}

func (att *attempt) optimizeFunction(fn *FunctionDecl) *FunctionDecl {
	att.env = knowledge{}
	if fn.Params != nil {
		for _, param := range fn.Params.Params {
			att.env[param.Name] = varState{written: true}
		}
	}
	ret := &FunctionDecl{Pos: fn.Pos, Name: fn.Name, ReturnType: fn.ReturnType, Params: fn.Params}
	if fn.Body != nil {
		body, _ := att.optimizeStmt(fn.Body.Body)
		ret.Body = &Block{Pos: fn.Body.Pos, Body: body}
	}
	return ret
}

// optimizeStmt returns the rewritten statement and whether control never continues after it,
// because it returns or loops forever.
func (att *attempt) optimizeStmt(stmt Stmt) (Stmt, bool) {
	switch s := stmt.(type) {
	case nil:
		return nil, false
	case *Empty:
		return s, false
	case *Sequence:
		return att.optimizeSequence(s)
	case *Block:
		body, terminated := att.optimizeStmt(s.Body)
		if IsEmpty(body) {
			return &Empty{Pos: s.Pos}, terminated
		}
		return &Block{Pos: s.Pos, Body: body}, terminated
	case *VarDecl:
		return att.optimizeVarDecl(s), false
	case *Assignment:
		return att.optimizeAssignment(s), false
	case *ExpressionStatement:
		x := att.optimizeExpr(s.X)
		if !HasEffect(x) {
			return &Empty{Pos: s.Pos}, false
		}
		return &ExpressionStatement{Pos: s.Pos, X: x}, false
	case *Return:
		return &Return{Pos: s.Pos, Value: att.optimizeExpr(s.Value)}, true
	case *If:
		return att.optimizeIf(s)
	case *While:
		return att.optimizeWhile(s)
	}
	// Nested functions never pass the type checker.
	return stmt, false
}

// optimizeSequence drops everything after a statement which never continues.
func (att *attempt) optimizeSequence(s *Sequence) (Stmt, bool) {
	var stmts []Stmt
	terminated := false
	for _, stmt := range Flatten(s) {
		var optimized Stmt
		optimized, terminated = att.optimizeStmt(stmt)
		stmts = append(stmts, optimized)
		if terminated {
			break
		}
	}
	return Seq(s.Pos, stmts...), terminated
}

func (att *attempt) optimizeVarDecl(s *VarDecl) Stmt {
	state := varState{decl: s, known: defaultValue(s.Type, s.Pos)}
	if att.deletable[s] {
		state.deleted = true
		att.env[s.Name] = state
		return &Empty{Pos: s.Pos}
	}
	att.env[s.Name] = state
	att.decls = append(att.decls, s)
	return s
}

func (att *attempt) optimizeAssignment(s *Assignment) Stmt {
	if id, ok := s.Value.(*Identifier); ok && id.Name == s.Name {
		return &Empty{Pos: s.Pos}
	}
	value := att.optimizeExpr(s.Value)
	state := att.env[s.Name]
	state.known = nil
	if isLiteral(value) {
		state.known = value
	}
	state.written = true
	if state.decl != nil && att.firstUse[state.decl] == UseUnused {
		att.firstUse[state.decl] = UseWrite
	}
	att.env[s.Name] = state
	if state.deleted {
		if HasEffect(value) {
			return &ExpressionStatement{Pos: s.Pos, X: value}
		}
		return &Empty{Pos: s.Pos}
	}
	return &Assignment{Pos: s.Pos, Name: s.Name, Value: value}
}

func (att *attempt) optimizeIf(s *If) (Stmt, bool) {
	cond := att.optimizeExpr(s.Cond)
	if lit, ok := cond.(*BooleanLiteral); ok {
		taken := s.Then
		if !lit.Value {
			taken = s.Else
		}
		if taken == nil {
			return &Empty{Pos: s.Pos}, false
		}
		return att.optimizeStmt(taken)
	}
	before := att.env
	att.env = before.copy()
	then, thenTerminated := att.optimizeStmt(s.Then)
	thenEnv := att.env
	att.env = before.copy()
	var elseStmt Stmt
	elseTerminated := false
	if s.Else != nil {
		elseStmt, elseTerminated = att.optimizeStmt(s.Else)
	}
	elseEnv := att.env
	switch {
	case thenTerminated && elseTerminated:
		att.env = before
	case thenTerminated:
		att.env = before.merge(elseEnv, elseEnv)
	case elseTerminated:
		att.env = before.merge(thenEnv, thenEnv)
	default:
		att.env = before.merge(thenEnv, elseEnv)
	}
	if IsEmpty(elseStmt) {
		elseStmt = nil
	}
	if IsEmpty(then) && elseStmt == nil {
		if HasEffect(cond) {
			return &ExpressionStatement{Pos: s.Pos, X: cond}, false
		}
		return &Empty{Pos: s.Pos}, false
	}
	if IsEmpty(then) {
		then = &Empty{Pos: s.Then.Position()}
	}
	return &If{Pos: s.Pos, Cond: cond, Then: then, Else: elseStmt}, thenTerminated && elseTerminated
}

func (att *attempt) optimizeWhile(s *While) (Stmt, bool) {
	// Whatever the body assigns is unknown at the guard from the second iteration on.
	for name := range assignedNames(s.Body, map[string]bool{}) {
		if state, ok := att.env[name]; ok {
			state.known = nil
			att.env[name] = state
		}
	}
	cond := att.optimizeExpr(s.Cond)
	lit, isLit := cond.(*BooleanLiteral)
	if isLit && !lit.Value {
		return &Empty{Pos: s.Pos}, false
	}
	after := att.env
	att.env = after.copy()
	body, _ := att.optimizeStmt(s.Body)
	att.env = after
	if IsEmpty(body) {
		body = &Empty{Pos: s.Body.Position()}
	}
	if !isLit {
		return &While{Pos: s.Pos, Cond: cond, Body: body}, false
	}
	if IsEmpty(body) {
		att.warnings.add("Infinite empty loop detected on line %d column %d", s.Line, s.Column)
	} else {
		att.warnings.add("Infinite loop detected on line %d column %d", s.Line, s.Column)
	}
	return &While{Pos: s.Pos, Cond: cond, Body: body}, true
}

func (att *attempt) optimizeExpr(expr Expr) Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *IntegerLiteral:
		return &IntegerLiteral{Pos: e.Pos, Value: e.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Pos: e.Pos, Value: e.Value}
	case *Identifier:
		return att.optimizeIdentifier(e)
	case *ParenBlock:
		inner := att.optimizeExpr(e.Inner)
		if isLiteral(inner) {
			return withPos(inner, e.Pos)
		}
		return &ParenBlock{Pos: e.Pos, Inner: inner}
	case *UnaryOp:
		operand := att.optimizeExpr(e.Operand)
		switch lit := operand.(type) {
		case *BooleanLiteral:
			if e.Op == OpNot {
				return &BooleanLiteral{Pos: e.Pos, Value: !lit.Value}
			}
		case *IntegerLiteral:
			if e.Op == OpNeg {
				return &IntegerLiteral{Pos: e.Pos, Value: -lit.Value}
			}
		}
		return &UnaryOp{Pos: e.Pos, Op: e.Op, Operand: operand}
	case *BinaryOp:
		return att.optimizeBinaryOp(e)
	case *FunctionCall:
		args := &ArgumentList{}
		if e.Args != nil {
			args.Pos = e.Args.Pos
			for _, arg := range e.Args.Args {
				args.Args = append(args.Args, att.optimizeExpr(arg))
			}
		}
		return &FunctionCall{Pos: e.Pos, Name: e.Name, Args: args}
	}
	return expr
}

func (att *attempt) optimizeIdentifier(e *Identifier) Expr {
	state, ok := att.env[e.Name]
	if !ok {
		return &Identifier{Pos: e.Pos, Name: e.Name}
	}
	if state.known != nil {
		return withPos(state.known, e.Pos)
	}
	if state.decl != nil {
		att.reads[state.decl]++
		if !state.written {
			att.firstUse[state.decl] = UseRead
		}
	}
	return &Identifier{Pos: e.Pos, Name: e.Name}
}

func (att *attempt) optimizeBinaryOp(e *BinaryOp) Expr {
	left := att.optimizeExpr(e.Left)
	right := att.optimizeExpr(e.Right)
	if (e.Op == OpDiv || e.Op == OpMod) && isIntLiteral(right, 0) {
		att.warnings.add("Division or Modulus by 0 found on line %d column %d", e.Line, e.Column)
		return &BinaryOp{Pos: e.Pos, Op: e.Op, Left: left, Right: right}
	}
	if isLiteral(left) && isLiteral(right) {
		if folded := foldBinary(e.Op, left, right, e.Pos); folded != nil {
			return folded
		}
	}
	if simplified := simplifyBinary(e.Op, left, right, e.Pos); simplified != nil {
		return simplified
	}
	return &BinaryOp{Pos: e.Pos, Op: e.Op, Left: left, Right: right}
}

// foldBinary evaluates op on two literals the way the machine does.
func foldBinary(op Operator, left, right Expr, pos Pos) Expr {
	if l, ok := left.(*IntegerLiteral); ok {
		r, ok := right.(*IntegerLiteral)
		if !ok {
			return nil
		}
		switch op {
		case OpAdd:
			return &IntegerLiteral{Pos: pos, Value: l.Value + r.Value}
		case OpSub:
			return &IntegerLiteral{Pos: pos, Value: l.Value - r.Value}
		case OpMul:
			return &IntegerLiteral{Pos: pos, Value: l.Value * r.Value}
		case OpDiv:
			return &IntegerLiteral{Pos: pos, Value: l.Value / r.Value}
		case OpMod:
			return &IntegerLiteral{Pos: pos, Value: l.Value % r.Value}
		case OpLess:
			return &BooleanLiteral{Pos: pos, Value: l.Value < r.Value}
		case OpGreater:
			return &BooleanLiteral{Pos: pos, Value: l.Value > r.Value}
		case OpLessEqual:
			return &BooleanLiteral{Pos: pos, Value: l.Value <= r.Value}
		case OpGreaterEqual:
			return &BooleanLiteral{Pos: pos, Value: l.Value >= r.Value}
		case OpEqual:
			return &BooleanLiteral{Pos: pos, Value: l.Value == r.Value}
		case OpNotEqual:
			return &BooleanLiteral{Pos: pos, Value: l.Value != r.Value}
		}
		return nil
	}
	l, ok := left.(*BooleanLiteral)
	if !ok {
		return nil
	}
	r, ok := right.(*BooleanLiteral)
	if !ok {
		return nil
	}
	switch op {
	case OpAnd:
		return &BooleanLiteral{Pos: pos, Value: l.Value && r.Value}
	case OpOr:
		return &BooleanLiteral{Pos: pos, Value: l.Value || r.Value}
	case OpEqual:
		return &BooleanLiteral{Pos: pos, Value: l.Value == r.Value}
	case OpNotEqual:
		return &BooleanLiteral{Pos: pos, Value: l.Value != r.Value}
	}
	return nil
}

// simplifyBinary applies the identities which need only one known operand. The machine evaluates
// both operands of && and ||, so an operand is only dropped when it has no effect.
func simplifyBinary(op Operator, left, right Expr, pos Pos) Expr {
	switch op {
	case OpAdd:
		if isIntLiteral(right, 0) {
			return left
		}
		if isIntLiteral(left, 0) {
			return right
		}
	case OpSub:
		if isIntLiteral(right, 0) {
			return left
		}
	case OpMul:
		if isIntLiteral(right, 1) {
			return left
		}
		if isIntLiteral(left, 1) {
			return right
		}
		if isIntLiteral(right, 0) && !HasEffect(left) {
			return &IntegerLiteral{Pos: pos, Value: 0}
		}
		if isIntLiteral(left, 0) && !HasEffect(right) {
			return &IntegerLiteral{Pos: pos, Value: 0}
		}
	case OpDiv:
		if isIntLiteral(right, 1) {
			return left
		}
	case OpAnd, OpOr:
		// identity is the operand value that leaves the other unchanged, true for && and false for ||.
		identity := op == OpAnd
		if isBoolLiteral(left, identity) {
			return right
		}
		if isBoolLiteral(right, identity) {
			return left
		}
		if isBoolLiteral(left, !identity) && !HasEffect(right) {
			return &BooleanLiteral{Pos: pos, Value: !identity}
		}
		if isBoolLiteral(right, !identity) && !HasEffect(left) {
			return &BooleanLiteral{Pos: pos, Value: !identity}
		}
	}
	return nil
}

// assignedNames collects the variables assigned anywhere in stmt.
func assignedNames(stmt Stmt, names map[string]bool) map[string]bool {
	switch s := stmt.(type) {
	case *Assignment:
		names[s.Name] = true
	case *Sequence:
		assignedNames(s.Head, names)
		assignedNames(s.Tail, names)
	case *Block:
		assignedNames(s.Body, names)
	case *If:
		assignedNames(s.Then, names)
		assignedNames(s.Else, names)
	case *While:
		assignedNames(s.Body, names)
	}
	return names
}

func defaultValue(tp Type, pos Pos) Expr {
	if tp == TypeBool {
		return &BooleanLiteral{Pos: pos, Value: false}
	}
	return &IntegerLiteral{Pos: pos, Value: 0}
}

func isLiteral(expr Expr) bool {
	switch expr.(type) {
	case *IntegerLiteral, *BooleanLiteral:
		return true
	}
	return false
}

func isIntLiteral(expr Expr, value int64) bool {
	lit, ok := expr.(*IntegerLiteral)
	return ok && lit.Value == value
}

func isBoolLiteral(expr Expr, value bool) bool {
	lit, ok := expr.(*BooleanLiteral)
	return ok && lit.Value == value
}

func sameLiteral(a, b Expr) bool {
	switch l := a.(type) {
	case *IntegerLiteral:
		r, ok := b.(*IntegerLiteral)
		return ok && l.Value == r.Value
	case *BooleanLiteral:
		r, ok := b.(*BooleanLiteral)
		return ok && l.Value == r.Value
	}
	return false
}

// withPos returns a fresh copy of a literal placed at pos.
func withPos(lit Expr, pos Pos) Expr {
	switch l := lit.(type) {
	case *IntegerLiteral:
		return &IntegerLiteral{Pos: pos, Value: l.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Pos: pos, Value: l.Value}
	}
	return lit
}
