package internal

import (
	"fmt"

	"github.com/xiaobogaga/trac42/assembler"
)

// Calling convention. The stack grows downward and a frame looks like:
//
//	FP+2+n  return value slot (non void functions only)
//	FP+1+n  last argument
//	...
//	FP+2    first argument
//	FP+1    return address
//	FP      saved FP
//	FP-1    first local
//	...
//
// The caller reserves the return slot with DECL 1, pushes the arguments from last to first, calls
// with BSR and pops the arguments afterwards, leaving the result on top. The callee LINKs, stores
// its result through the return slot, UNLINKs and RTSs.

type frame struct {
	offsets      map[string]int64
	types        map[string]Type
	nextOffset   int64
	returnOffset int64
}

func newFrame(sig *Signature) *frame {
	f := &frame{offsets: map[string]int64{}, types: map[string]Type{}, nextOffset: -1}
	offset := int64(2)
	for _, param := range sig.Params {
		f.offsets[param.Name], f.types[param.Name] = offset, param.Type
		offset++
	}
	f.returnOffset = offset
	return f
}

func (f *frame) declare(name string, tp Type) int64 {
	offset := f.nextOffset
	f.offsets[name], f.types[name] = offset, tp
	f.nextOffset--
	return offset
}

// unwind forgets the locals declared below offset and returns how many there were.
func (f *frame) unwind(offset int64) int64 {
	for name, off := range f.offsets {
		if off < 0 && off > f.nextOffset && off <= offset {
			delete(f.offsets, name)
			delete(f.types, name)
		}
	}
	delta := offset - f.nextOffset
	f.nextOffset = offset
	return delta
}

type codeGenerator struct {
	info     *Info
	firstUse map[*VarDecl]Use
	program  *assembler.Program
	labels   map[string]int
	frame    *frame
	fn       *Signature
	// lastWasReturn is set when the last compiled statement always returns, so nothing after it
	// can run.
	lastWasReturn bool
}

// internalFault carries an ErrInternal out of the recursive descent.
type internalFault struct {
	err error
}

// Generate compiles a type checked program into a linked instruction stream. info must describe
// prog itself, firstUse tells which declarations need their default value stored.
func Generate(prog *Program, info *Info, firstUse map[*VarDecl]Use) (program *assembler.Program, err error) {
	gen := &codeGenerator{info: info, firstUse: firstUse, program: assembler.NewProgram(), labels: map[string]int{}}
	defer func() {
		if r := recover(); r != nil {
			fault, ok := r.(internalFault)
			if !ok {
				panic(r)
			}
			program, err = nil, fault.err
		}
	}()
	gen.generateProgram(prog)
	if err := gen.program.Link(); err != nil {
		return nil, makeInternalError("%v", err)
	}
	return gen.program, nil
}

func (gen *codeGenerator) fault(format string, args ...interface{}) {
	panic(internalFault{err: makeInternalError("code generator: "+format, args...)})
}

// Program layout:
// DECL 1       (when main returns a value)
// BSR main
// END
// functions...
func (gen *codeGenerator) generateProgram(prog *Program) {
	mainSig, exist := gen.info.Funcs["main"]
	if !exist {
		gen.fault("function main not found")
	}
	// Function labels are registered first so control flow labels never take their names.
	for _, fn := range prog.Funcs {
		gen.labels[fn.Name] = 0
	}
	if mainSig.Return != TypeVoid {
		gen.program.Emit(assembler.DECL, 1)
	}
	gen.program.EmitTarget(assembler.BSR, "main")
	gen.program.Emit(assembler.END, 0)
	for _, fn := range prog.Funcs {
		if fn.Body == nil {
			continue
		}
		gen.generateFunction(fn)
	}
}

// LABEL name
// LINK
// body
// UNLINK     (when the body does not end with a return)
// RTS
func (gen *codeGenerator) generateFunction(fn *FunctionDecl) {
	sig, exist := gen.info.Funcs[fn.Name]
	if !exist {
		gen.fault("function %s has no signature", fn.Name)
	}
	gen.fn, gen.frame, gen.lastWasReturn = sig, newFrame(sig), false
	gen.program.EmitTarget(assembler.LABEL, fn.Name)
	gen.program.Emit(assembler.LINK, 0)
	// UNLINK drops the locals of the outermost block, no POP needed.
	gen.generateStatementCode(fn.Body.Body)
	if !gen.lastWasReturn {
		gen.program.Emit(assembler.UNLINK, 0)
		gen.program.Emit(assembler.RTS, 0)
	}
}

// newLabel renames base with a per base counter: base, base_1, base_2...
func (gen *codeGenerator) newLabel(base string) string {
	count, exist := gen.labels[base]
	if !exist {
		gen.labels[base] = 0
		return base
	}
	for {
		count++
		label := fmt.Sprintf("%s_%d", base, count)
		if _, taken := gen.labels[label]; !taken {
			gen.labels[base] = count
			return label
		}
	}
}

func (gen *codeGenerator) generateStatementCode(stmt Stmt) {
	switch s := stmt.(type) {
	case nil, *Empty:
	case *Sequence:
		for _, sub := range Flatten(s) {
			gen.generateStatementCode(sub)
		}
	case *Block:
		gen.generateScopeCode(s.Body)
	case *VarDecl:
		gen.generateVarDeclCode(s)
	case *Assignment:
		gen.generateAssignmentCode(s)
	case *ExpressionStatement:
		gen.generateExpressionCode(s.X)
		if gen.typeOf(s.X) != TypeVoid {
			gen.program.Emit(assembler.POP, 1)
		}
		gen.lastWasReturn = false
	case *If:
		gen.generateIfStatementCode(s)
	case *While:
		gen.generateWhileStatementCode(s)
	case *Return:
		gen.generateReturnStatementCode(s)
	default:
		gen.fault("unexpected statement %T at %s", stmt, stmt.Position().Location())
	}
}

// generateScopeCode compiles stmt and pops the locals it declared, unless control cannot reach the
// end of the scope.
func (gen *codeGenerator) generateScopeCode(stmt Stmt) {
	saved := gen.frame.nextOffset
	gen.generateStatementCode(stmt)
	if delta := gen.frame.unwind(saved); delta > 0 && !gen.lastWasReturn {
		gen.program.Emit(assembler.POP, delta)
	}
}

// DECL 1
// LVAL offset(FP); PUSH default; ASS   (when the variable may be read before written)
func (gen *codeGenerator) generateVarDeclCode(s *VarDecl) {
	offset := gen.frame.declare(s.Name, s.Type)
	gen.program.Emit(assembler.DECL, 1)
	if gen.firstUse[s] == UseRead {
		gen.program.Emit(assembler.LVAL, offset)
		if s.Type == TypeBool {
			gen.program.EmitBool(false)
		} else {
			gen.program.Emit(assembler.PUSHINT, 0)
		}
		gen.program.Emit(assignOpcode(s.Type), 0)
	}
	gen.lastWasReturn = false
}

// LVAL offset(FP)
// value
// ASSINT | ASSBOOL
func (gen *codeGenerator) generateAssignmentCode(s *Assignment) {
	offset, tp := gen.lookUpVariable(s.Name, s)
	gen.program.Emit(assembler.LVAL, offset)
	gen.generateExpressionCode(s.Value)
	gen.program.Emit(assignOpcode(tp), 0)
	gen.lastWasReturn = false
}

// cond
// BRF else | end_if
// then
// BRA end_if       (with an else branch, unless then returned)
// LABEL else
// else
// LABEL end_if
func (gen *codeGenerator) generateIfStatementCode(s *If) {
	gen.generateExpressionCode(s.Cond)
	endLabel := gen.newLabel("end_if")
	falseLabel := endLabel
	if s.Else != nil {
		falseLabel = gen.newLabel("else")
	}
	gen.program.EmitTarget(assembler.BRF, falseLabel)
	gen.lastWasReturn = false
	gen.generateScopeCode(s.Then)
	thenReturned := gen.lastWasReturn
	elseReturned := false
	if s.Else != nil {
		if !thenReturned {
			gen.program.EmitTarget(assembler.BRA, endLabel)
		}
		gen.program.EmitTarget(assembler.LABEL, falseLabel)
		gen.lastWasReturn = false
		gen.generateScopeCode(s.Else)
		elseReturned = gen.lastWasReturn
	}
	gen.program.EmitTarget(assembler.LABEL, endLabel)
	gen.lastWasReturn = thenReturned && elseReturned
}

// LABEL while_do
// cond
// BRF end_while
// body
// BRA while_do     (unless the body returned)
// LABEL end_while
func (gen *codeGenerator) generateWhileStatementCode(s *While) {
	doLabel, endLabel := gen.newLabel("while_do"), gen.newLabel("end_while")
	gen.program.EmitTarget(assembler.LABEL, doLabel)
	gen.generateExpressionCode(s.Cond)
	gen.program.EmitTarget(assembler.BRF, endLabel)
	gen.lastWasReturn = false
	gen.generateScopeCode(s.Body)
	if !gen.lastWasReturn {
		gen.program.EmitTarget(assembler.BRA, doLabel)
	}
	gen.program.EmitTarget(assembler.LABEL, endLabel)
	gen.lastWasReturn = false
}

// LVAL return(FP); value; ASSINT | ASSBOOL   (when a value is returned)
// UNLINK
// RTS
func (gen *codeGenerator) generateReturnStatementCode(s *Return) {
	if s.Value != nil {
		gen.program.Emit(assembler.LVAL, gen.frame.returnOffset)
		gen.generateExpressionCode(s.Value)
		gen.program.Emit(assignOpcode(gen.fn.Return), 0)
	}
	gen.program.Emit(assembler.UNLINK, 0)
	gen.program.Emit(assembler.RTS, 0)
	gen.lastWasReturn = true
}

// generateExpressionCode leaves the value of expr on top of the stack, a postorder traversal.
func (gen *codeGenerator) generateExpressionCode(expr Expr) {
	switch e := expr.(type) {
	case *IntegerLiteral:
		gen.program.Emit(assembler.PUSHINT, e.Value)
	case *BooleanLiteral:
		gen.program.EmitBool(e.Value)
	case *Identifier:
		offset, tp := gen.lookUpVariable(e.Name, e)
		if tp == TypeBool {
			gen.program.Emit(assembler.RVALBOOL, offset)
		} else {
			gen.program.Emit(assembler.RVALINT, offset)
		}
	case *ParenBlock:
		gen.generateExpressionCode(e.Inner)
	case *UnaryOp:
		gen.generateExpressionCode(e.Operand)
		if e.Op == OpNot {
			gen.program.Emit(assembler.NOT, 0)
		} else {
			gen.program.Emit(assembler.NEG, 0)
		}
	case *BinaryOp:
		gen.generateExpressionCode(e.Left)
		gen.generateExpressionCode(e.Right)
		gen.generateOpCode(e)
	case *FunctionCall:
		gen.generateFuncCallCode(e)
	default:
		gen.fault("unexpected expression %T", expr)
	}
}

// Comparisons the machine lacks are built from the ones it has:
// a > b is !(a <= b), a >= b is !(a < b), a != b is !(a == b).
func (gen *codeGenerator) generateOpCode(e *BinaryOp) {
	eq := assembler.EQINT
	if gen.typeOf(e.Left) == TypeBool {
		eq = assembler.EQBOOL
	}
	ops := map[Operator][]assembler.Opcode{
		OpAdd:          {assembler.ADD},
		OpSub:          {assembler.SUB},
		OpMul:          {assembler.MULT},
		OpDiv:          {assembler.DIV},
		OpMod:          {assembler.MOD},
		OpLess:         {assembler.LTINT},
		OpLessEqual:    {assembler.LEINT},
		OpGreater:      {assembler.LEINT, assembler.NOT},
		OpGreaterEqual: {assembler.LTINT, assembler.NOT},
		OpEqual:        {eq},
		OpNotEqual:     {eq, assembler.NOT},
		OpAnd:          {assembler.AND},
		OpOr:           {assembler.OR},
	}[e.Op]
	if len(ops) == 0 {
		gen.fault("unknown binary operator %s", e.Op)
	}
	for _, op := range ops {
		gen.program.Emit(op, 0)
	}
}

// print(a1..an):  an..a1 pushed, then WRITE; POP 1 for each.
// f(a1..an):      DECL 1 (non void f), an..a1 pushed, BSR f, POP n.
func (gen *codeGenerator) generateFuncCallCode(e *FunctionCall) {
	var args []Expr
	if e.Args != nil {
		args = e.Args.Args
	}
	for i := len(args) - 1; i >= 0; i-- {
		if e.Name != printFuncName && i == len(args)-1 {
			gen.reserveReturnSlot(e.Name)
		}
		gen.generateExpressionCode(args[i])
	}
	if e.Name == printFuncName {
		for _, arg := range args {
			if gen.typeOf(arg) == TypeBool {
				gen.program.Emit(assembler.WRITEBOOL, 0)
			} else {
				gen.program.Emit(assembler.WRITEINT, 0)
			}
			gen.program.Emit(assembler.POP, 1)
		}
		return
	}
	if len(args) == 0 {
		gen.reserveReturnSlot(e.Name)
	}
	gen.program.EmitTarget(assembler.BSR, e.Name)
	if len(args) > 0 {
		gen.program.Emit(assembler.POP, int64(len(args)))
	}
}

func (gen *codeGenerator) reserveReturnSlot(name string) {
	sig, exist := gen.info.Funcs[name]
	if !exist {
		gen.fault("function %s has no signature", name)
	}
	if sig.Return != TypeVoid {
		gen.program.Emit(assembler.DECL, 1)
	}
}

func (gen *codeGenerator) lookUpVariable(name string, node Node) (int64, Type) {
	offset, exist := gen.frame.offsets[name]
	if !exist {
		gen.fault("variable %s has no frame slot at %s", name, node.Position().Location())
	}
	return offset, gen.frame.types[name]
}

func (gen *codeGenerator) typeOf(expr Expr) Type {
	tp, exist := gen.info.TypeOf(expr)
	if !exist {
		gen.fault("expression at %s has no type", expr.Position().Location())
	}
	return tp
}

func assignOpcode(tp Type) assembler.Opcode {
	if tp == TypeBool {
		return assembler.ASSBOOL
	}
	return assembler.ASSINT
}
