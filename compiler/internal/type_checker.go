package internal

// The type checker runs on a resolved program. Signatures are registered before any body is
// checked so functions may call functions declared later in the file.

type typeChecker struct {
	info *Info
	vars *VariableSymbolTable
	fn   *Signature
}

// Check type checks prog and returns the types of its expressions and its function table. The
// first error aborts checking.
func Check(prog *Program) (*Info, error) {
	checker := &typeChecker{info: NewInfo(), vars: &VariableSymbolTable{}}
	if err := checker.registerFunctions(prog); err != nil {
		return nil, err
	}
	for _, fn := range prog.Funcs {
		if err := checker.checkFunction(checker.info.Funcs[fn.Name]); err != nil {
			return nil, err
		}
	}
	return checker.info, nil
}

func (checker *typeChecker) registerFunctions(prog *Program) error {
	for _, fn := range prog.Funcs {
		if fn.Name == printFuncName {
			return makeSemanticError(DuplicateDeclaration, fn, "function %s is a builtin", fn.Name)
		}
		if prev, exist := checker.info.Funcs[fn.Name]; exist {
			return makeSemanticError(DuplicateDeclaration, fn, "function %s already declared at %s", fn.Name,
				prev.Pos.Location())
		}
		sig := &Signature{Name: fn.Name, Return: fn.ReturnType, Body: fn.Body, Pos: fn.Pos}
		if fn.Params != nil {
			sig.Params = fn.Params.Params
		}
		seen := map[string]bool{}
		for _, param := range sig.Params {
			if param.Type == TypeVoid {
				return makeSemanticError(TypeMismatch, param, "parameter %s cannot be void", param.Name)
			}
			if seen[param.Name] {
				return makeSemanticError(DuplicateDeclaration, param, "parameter %s already declared", param.Name)
			}
			seen[param.Name] = true
		}
		checker.info.Funcs[fn.Name] = sig
	}
	mainSig, exist := checker.info.Funcs["main"]
	if !exist {
		return makeSemanticError(UndeclaredFunction, Pos{Line: 1, Column: 1}, "function main is not declared")
	}
	if len(mainSig.Params) != 0 {
		return makeSemanticError(ArityMismatch, mainSig.Pos, "function main must not take parameters")
	}
	return nil
}

func (checker *typeChecker) checkFunction(sig *Signature) error {
	checker.fn = sig
	checker.vars.Push()
	defer checker.vars.Pop()
	for _, param := range sig.Params {
		checker.vars.Declare(param.Name, param.Name, param.Type)
	}
	if sig.Body == nil {
		return nil
	}
	return checker.checkStmt(sig.Body)
}

func (checker *typeChecker) checkStmt(stmt Stmt) error {
	switch s := stmt.(type) {
	case nil, *Empty:
		return nil
	case *Block:
		checker.vars.Push()
		defer checker.vars.Pop()
		return checker.checkStmt(s.Body)
	case *Sequence:
		if err := checker.checkStmt(s.Head); err != nil {
			return err
		}
		return checker.checkStmt(s.Tail)
	case *VarDecl:
		if s.Type == TypeVoid {
			return makeSemanticError(TypeMismatch, s, "variable %s cannot be void", s.Origin)
		}
		if !checker.vars.Declare(s.Name, s.Origin, s.Type) {
			return makeSemanticError(DuplicateDeclaration, s, "variable %s already declared in this scope", s.Origin)
		}
		return nil
	case *Assignment:
		return checker.checkAssignment(s)
	case *ExpressionStatement:
		_, err := checker.checkExpr(s.X, true)
		return err
	case *If:
		if err := checker.checkCondition(s.Cond, "if"); err != nil {
			return err
		}
		if err := checker.checkBranch(s.Then); err != nil {
			return err
		}
		return checker.checkBranch(s.Else)
	case *While:
		if err := checker.checkCondition(s.Cond, "while"); err != nil {
			return err
		}
		return checker.checkBranch(s.Body)
	case *Return:
		return checker.checkReturn(s)
	case *FunctionDecl:
		return makeSemanticError(TypeMismatch, s, "function %s declared inside function %s", s.Name, checker.fn.Name)
	}
	return makeInternalError("type checker: unknown statement %T", stmt)
}

func (checker *typeChecker) checkBranch(stmt Stmt) error {
	if stmt == nil {
		return nil
	}
	checker.vars.Push()
	defer checker.vars.Pop()
	return checker.checkStmt(stmt)
}

func (checker *typeChecker) checkAssignment(s *Assignment) error {
	varTP, exist := checker.vars.LookUp(s.Name)
	if !exist {
		return makeSemanticError(UndeclaredVariable, s, "variable %s is not declared", s.Name)
	}
	valueTP, err := checker.checkExpr(s.Value, false)
	if err != nil {
		return err
	}
	if valueTP != varTP {
		return makeSemanticError(TypeMismatch, s, "cannot assign %s to variable %s of type %s", valueTP, s.Name, varTP)
	}
	return nil
}

func (checker *typeChecker) checkCondition(cond Expr, stmtName string) error {
	tp, err := checker.checkExpr(cond, false)
	if err != nil {
		return err
	}
	if tp != TypeBool {
		return makeSemanticError(ConditionNotBoolean, cond, "%s condition must be bool, got %s", stmtName, tp)
	}
	return nil
}

func (checker *typeChecker) checkReturn(s *Return) error {
	want := checker.fn.Return
	if s.Value == nil {
		if want != TypeVoid {
			return makeSemanticError(TypeMismatch, s, "function %s must return %s", checker.fn.Name, want)
		}
		return nil
	}
	if want == TypeVoid {
		return makeSemanticError(TypeMismatch, s, "void function %s cannot return a value", checker.fn.Name)
	}
	got, err := checker.checkExpr(s.Value, false)
	if err != nil {
		return err
	}
	if got != want {
		return makeSemanticError(TypeMismatch, s, "function %s returns %s, got %s", checker.fn.Name, want, got)
	}
	return nil
}

// checkExpr returns the type of expr. Only an expression statement may have a void call as its
// value, asStatement says whether expr is one.
func (checker *typeChecker) checkExpr(expr Expr, asStatement bool) (tp Type, err error) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		tp = TypeInt
	case *BooleanLiteral:
		tp = TypeBool
	case *Identifier:
		var exist bool
		if tp, exist = checker.vars.LookUp(e.Name); !exist {
			return 0, makeSemanticError(UndeclaredVariable, e, "variable %s is not declared", e.Name)
		}
	case *ParenBlock:
		tp, err = checker.checkExpr(e.Inner, false)
	case *UnaryOp:
		tp, err = checker.checkUnaryOp(e)
	case *BinaryOp:
		tp, err = checker.checkBinaryOp(e)
	case *FunctionCall:
		tp, err = checker.checkFunctionCall(e)
		if err == nil && tp == TypeVoid && !asStatement {
			return 0, makeSemanticError(TypeMismatch, e, "void function %s used as a value", e.Name)
		}
	default:
		return 0, makeInternalError("type checker: unknown expression %T", expr)
	}
	if err != nil {
		return 0, err
	}
	checker.info.Types[expr] = tp
	return tp, nil
}

func (checker *typeChecker) checkUnaryOp(e *UnaryOp) (Type, error) {
	operandTP, err := checker.checkExpr(e.Operand, false)
	if err != nil {
		return 0, err
	}
	want := TypeInt
	if e.Op == OpNot {
		want = TypeBool
	}
	if operandTP != want {
		return 0, makeSemanticError(TypeMismatch, e, "operator %s expects %s, got %s", e.Op, want, operandTP)
	}
	return want, nil
}

func (checker *typeChecker) checkBinaryOp(e *BinaryOp) (Type, error) {
	leftTP, err := checker.checkExpr(e.Left, false)
	if err != nil {
		return 0, err
	}
	rightTP, err := checker.checkExpr(e.Right, false)
	if err != nil {
		return 0, err
	}
	switch {
	case e.Op.IsArithmetic() || e.Op.IsComparison():
		if leftTP != TypeInt || rightTP != TypeInt {
			return 0, makeSemanticError(TypeMismatch, e, "operator %s expects int operands, got %s and %s", e.Op,
				leftTP, rightTP)
		}
		if e.Op.IsArithmetic() {
			return TypeInt, nil
		}
		return TypeBool, nil
	case e.Op.IsEquality():
		if leftTP != rightTP {
			return 0, makeSemanticError(TypeMismatch, e, "operator %s expects operands of the same type, got %s and %s",
				e.Op, leftTP, rightTP)
		}
		return TypeBool, nil
	case e.Op.IsLogical():
		if leftTP != TypeBool || rightTP != TypeBool {
			return 0, makeSemanticError(TypeMismatch, e, "operator %s expects bool operands, got %s and %s", e.Op,
				leftTP, rightTP)
		}
		return TypeBool, nil
	}
	return 0, makeInternalError("type checker: unknown binary operator %s", e.Op)
}

func (checker *typeChecker) checkFunctionCall(e *FunctionCall) (Type, error) {
	var args []Expr
	if e.Args != nil {
		args = e.Args.Args
	}
	if e.Name == printFuncName {
		for _, arg := range args {
			if _, err := checker.checkExpr(arg, false); err != nil {
				return 0, err
			}
		}
		return TypeVoid, nil
	}
	sig, exist := checker.info.Funcs[e.Name]
	if !exist {
		return 0, makeSemanticError(UndeclaredFunction, e, "function %s is not declared", e.Name)
	}
	if len(args) != len(sig.Params) {
		return 0, makeSemanticError(ArityMismatch, e, "function %s expects %d arguments, got %d", e.Name,
			len(sig.Params), len(args))
	}
	for i, arg := range args {
		argTP, err := checker.checkExpr(arg, false)
		if err != nil {
			return 0, err
		}
		if argTP != sig.Params[i].Type {
			return 0, makeSemanticError(TypeMismatch, e, "argument %d of function %s expects %s, got %s", i+1, e.Name,
				sig.Params[i].Type, argTP)
		}
	}
	return sig.Return, nil
}
