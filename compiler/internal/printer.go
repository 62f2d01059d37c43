package internal

import (
	"fmt"
	"strings"
)

const indentUnit = "    "

type printer struct {
	sb     strings.Builder
	indent int
}

// Format renders node back to source text. Resolved names are printed as they are, so the output
// of a later pass parses again into an equivalent program.
func Format(node interface{}) string {
	p := &printer{}
	switch n := node.(type) {
	case *Program:
		for i, fn := range n.Funcs {
			if i > 0 {
				p.sb.WriteString("\n")
			}
			p.printFunction(fn)
		}
	case *FunctionDecl:
		p.printFunction(n)
	case Stmt:
		p.printStmt(n)
	case Expr:
		p.sb.WriteString(formatExpr(n, 0))
	default:
		p.sb.WriteString(fmt.Sprintf("<%T>", node))
	}
	return p.sb.String()
}

func (p *printer) line(format string, args ...interface{}) {
	p.sb.WriteString(strings.Repeat(indentUnit, p.indent))
	p.sb.WriteString(fmt.Sprintf(format, args...))
	p.sb.WriteString("\n")
}

func (p *printer) printFunction(fn *FunctionDecl) {
	var params []string
	if fn.Params != nil {
		for _, param := range fn.Params.Params {
			params = append(params, fmt.Sprintf("%s %s", param.Type, param.Name))
		}
	}
	head := fmt.Sprintf("%s %s(%s)", fn.ReturnType, fn.Name, strings.Join(params, ", "))
	if fn.Body == nil {
		p.line("%s;", head)
		return
	}
	p.line("%s {", head)
	p.printBody(fn.Body.Body)
	p.line("}")
}

func (p *printer) printBody(stmt Stmt) {
	p.indent++
	for _, sub := range Flatten(stmt) {
		p.printStmt(sub)
	}
	p.indent--
}

// printBranch prints head and opens a brace around the statement following it.
func (p *printer) printBranch(head string, stmt Stmt) {
	body := stmt
	if block, ok := stmt.(*Block); ok {
		body = block.Body
	}
	p.line("%s {", head)
	p.printBody(body)
}

func (p *printer) printStmt(stmt Stmt) {
	switch s := stmt.(type) {
	case nil, *Empty:
	case *Sequence:
		for _, sub := range Flatten(s) {
			p.printStmt(sub)
		}
	case *Block:
		p.line("{")
		p.printBody(s.Body)
		p.line("}")
	case *VarDecl:
		p.line("%s %s;", s.Type, s.Name)
	case *Assignment:
		p.line("%s = %s;", s.Name, formatExpr(s.Value, 0))
	case *ExpressionStatement:
		p.line("%s;", formatExpr(s.X, 0))
	case *Return:
		if s.Value == nil {
			p.line("return;")
			return
		}
		p.line("return %s;", formatExpr(s.Value, 0))
	case *If:
		p.printBranch(fmt.Sprintf("if (%s)", formatExpr(s.Cond, 0)), s.Then)
		if s.Else != nil {
			p.printBranch("} else", s.Else)
		}
		p.line("}")
	case *While:
		p.printBranch(fmt.Sprintf("while (%s)", formatExpr(s.Cond, 0)), s.Body)
		p.line("}")
	case *FunctionDecl:
		p.printFunction(s)
	default:
		p.line("<%T>", stmt)
	}
}

// operatorPriority follows the parser's binding strength.
func operatorPriority(op Operator) int {
	switch op {
	case OpOr:
		return 1
	case OpAnd:
		return 2
	case OpEqual, OpNotEqual:
		return 3
	case OpLess, OpGreater, OpLessEqual, OpGreaterEqual:
		return 4
	case OpAdd, OpSub:
		return 5
	}
	return 6
}

// formatExpr renders expr, adding parentheses when it binds looser than minPriority requires.
func formatExpr(expr Expr, minPriority int) string {
	switch e := expr.(type) {
	case *IntegerLiteral:
		return fmt.Sprintf("%d", e.Value)
	case *BooleanLiteral:
		return fmt.Sprintf("%t", e.Value)
	case *Identifier:
		return e.Name
	case *ParenBlock:
		return "(" + formatExpr(e.Inner, 0) + ")"
	case *UnaryOp:
		return e.Op.String() + formatExpr(e.Operand, 7)
	case *BinaryOp:
		priority := operatorPriority(e.Op)
		// Operators are left associative, so the right operand needs parentheses at equal priority.
		ret := formatExpr(e.Left, priority) + " " + e.Op.String() + " " + formatExpr(e.Right, priority+1)
		if priority < minPriority {
			return "(" + ret + ")"
		}
		return ret
	case *FunctionCall:
		var args []string
		if e.Args != nil {
			for _, arg := range e.Args.Args {
				args = append(args, formatExpr(arg, 0))
			}
		}
		return fmt.Sprintf("%s(%s)", e.Name, strings.Join(args, ", "))
	}
	return fmt.Sprintf("<%T>", expr)
}
