package internal

import "fmt"

// The scope resolver gives every local binding of a function its own name, so that later passes
// can key variables by name alone:
//
//	int f(int a) { int x; { int x; x = a; } return x; }
//
// becomes
//
//	int f(int a) { int x; { int x_1; x_1 = a; } return x; }
//
// Parameters are the first bindings of a function and keep their names. Function names are never
// renamed.

type resolveScope struct {
	renames map[string]string
}

type resolver struct {
	scopes []*resolveScope
	// counts and used span the whole function so sibling scopes never hand out the same name.
	counts map[string]int
	used   map[string]bool
}

// Resolve returns a renamed copy of prog. It never fails: names without a declaration are left as
// written for the type checker to report.
func Resolve(prog *Program) *Program {
	ret := &Program{}
	for _, fn := range prog.Funcs {
		r := &resolver{}
		ret.Funcs = append(ret.Funcs, r.resolveFunction(fn))
	}
	return ret
}

func (r *resolver) resolveFunction(fn *FunctionDecl) *FunctionDecl {
	r.counts, r.used = map[string]int{}, map[string]bool{}
	r.pushScope()
	defer r.popScope()
	params := &ParameterList{}
	if fn.Params != nil {
		params.Pos = fn.Params.Pos
		for _, param := range fn.Params.Params {
			r.bind(param.Name, param.Name)
			params.Params = append(params.Params, &Param{Pos: param.Pos, Type: param.Type, Name: param.Name})
		}
	}
	ret := &FunctionDecl{Pos: fn.Pos, Name: fn.Name, ReturnType: fn.ReturnType, Params: params}
	if fn.Body != nil {
		ret.Body = r.resolveStmt(fn.Body).(*Block)
	}
	return ret
}

func (r *resolver) pushScope() {
	r.scopes = append(r.scopes, &resolveScope{renames: map[string]string{}})
}

func (r *resolver) popScope() {
	r.scopes = r.scopes[:len(r.scopes)-1]
}

func (r *resolver) bind(name, display string) {
	r.scopes[len(r.scopes)-1].renames[name] = display
	r.counts[name]++
	r.used[display] = true
}

// declare computes the display name of a new binding of name in the innermost scope.
func (r *resolver) declare(name string) string {
	display := name
	for count := r.counts[name]; ; count++ {
		if count > 0 {
			display = fmt.Sprintf("%s_%d", name, count)
		}
		if !r.used[display] {
			break
		}
	}
	r.bind(name, display)
	return display
}

// lookup walks the scopes from the innermost outward.
func (r *resolver) lookup(name string) string {
	for i := len(r.scopes) - 1; i >= 0; i-- {
		if display, ok := r.scopes[i].renames[name]; ok {
			return display
		}
	}
	return name
}

func (r *resolver) resolveStmt(stmt Stmt) Stmt {
	switch s := stmt.(type) {
	case nil:
		return nil
	case *Block:
		r.pushScope()
		defer r.popScope()
		return &Block{Pos: s.Pos, Body: r.resolveStmt(s.Body)}
	case *Sequence:
		head := r.resolveStmt(s.Head)
		return &Sequence{Pos: s.Pos, Head: head, Tail: r.resolveStmt(s.Tail)}
	case *VarDecl:
		return &VarDecl{Pos: s.Pos, Type: s.Type, Name: r.declare(s.Name), Origin: s.Origin}
	case *Assignment:
		return &Assignment{Pos: s.Pos, Name: r.lookup(s.Name), Value: r.resolveExpr(s.Value)}
	case *ExpressionStatement:
		return &ExpressionStatement{Pos: s.Pos, X: r.resolveExpr(s.X)}
	case *If:
		ret := &If{Pos: s.Pos, Cond: r.resolveExpr(s.Cond), Then: r.resolveBranch(s.Then)}
		ret.Else = r.resolveBranch(s.Else)
		return ret
	case *While:
		return &While{Pos: s.Pos, Cond: r.resolveExpr(s.Cond), Body: r.resolveBranch(s.Body)}
	case *Return:
		return &Return{Pos: s.Pos, Value: r.resolveExpr(s.Value)}
	case *Empty:
		return &Empty{Pos: s.Pos}
	case *FunctionDecl:
		// Nested functions are not part of the language, the type checker rejects them.
		return s
	}
	panic(fmt.Sprintf("resolver: unknown statement %T", stmt))
}

// resolveBranch resolves the body of an if or while, which is a scope of its own even without
// braces.
func (r *resolver) resolveBranch(stmt Stmt) Stmt {
	if stmt == nil {
		return nil
	}
	r.pushScope()
	defer r.popScope()
	return r.resolveStmt(stmt)
}

func (r *resolver) resolveExpr(expr Expr) Expr {
	switch e := expr.(type) {
	case nil:
		return nil
	case *Identifier:
		return &Identifier{Pos: e.Pos, Name: r.lookup(e.Name)}
	case *IntegerLiteral:
		return &IntegerLiteral{Pos: e.Pos, Value: e.Value}
	case *BooleanLiteral:
		return &BooleanLiteral{Pos: e.Pos, Value: e.Value}
	case *BinaryOp:
		return &BinaryOp{Pos: e.Pos, Op: e.Op, Left: r.resolveExpr(e.Left), Right: r.resolveExpr(e.Right)}
	case *UnaryOp:
		return &UnaryOp{Pos: e.Pos, Op: e.Op, Operand: r.resolveExpr(e.Operand)}
	case *ParenBlock:
		return &ParenBlock{Pos: e.Pos, Inner: r.resolveExpr(e.Inner)}
	case *FunctionCall:
		args := &ArgumentList{}
		if e.Args != nil {
			args.Pos = e.Args.Pos
			for _, arg := range e.Args.Args {
				args.Args = append(args.Args, r.resolveExpr(arg))
			}
		}
		return &FunctionCall{Pos: e.Pos, Name: e.Name, Args: args}
	}
	panic(fmt.Sprintf("resolver: unknown expression %T", expr))
}
