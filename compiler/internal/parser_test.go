package internal

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parseTestExpression(t *testing.T, content string) Expr {
	tokenizer := &Tokenizer{}
	tokens, err := tokenizer.Tokenize(bytes.NewReader([]byte(content)))
	require.Nil(t, err)
	parser := &Parser{currentTokens: tokens}
	expr, err := parser.parseExpression()
	require.Nil(t, err, content)
	assert.False(t, parser.hasRemainTokens(), content)
	return expr
}

func parseTestProgram(t *testing.T, content string) *Program {
	prog, err := ParseProgram(strings.NewReader(content))
	require.Nil(t, err, content)
	return prog
}

func TestParser_ParseExpression(t *testing.T) {
	testData := []struct {
		content  string
		expected string
	}{
		{content: "a + b", expected: "(a + b)"},
		{content: "a + b * c", expected: "(a + (b * c))"},
		{content: "a * b + c * d", expected: "((a * b) + (c * d))"},
		{content: "a - b - c", expected: "((a - b) - c)"},
		{content: "a / b % c", expected: "((a / b) % c)"},
		{content: "a < b + c", expected: "(a < (b + c))"},
		{content: "a == b < c", expected: "(a == (b < c))"},
		{content: "a || b && c", expected: "(a || (b && c))"},
		{content: "a && b || c && d", expected: "((a && b) || (c && d))"},
		{content: "a + b * c - d", expected: "((a + (b * c)) - d)"},
		{content: "a < b * c + d", expected: "(a < ((b * c) + d))"},
		{content: "-a * b", expected: "(-a * b)"},
		{content: "!a && b", expected: "(!a && b)"},
		{content: "(a + b) * c", expected: "([(a + b)] * c)"},
		{content: "f(a, b + 1) + g()", expected: "(f(a, (b + 1)) + g())"},
		{content: "--1", expected: "--1"},
		{content: "true != false", expected: "(true != false)"},
	}
	for _, data := range testData {
		expr := parseTestExpression(t, data.content)
		assert.Equal(t, data.expected, dumpExpr(expr), data.content)
	}
}

// dumpExpr shows the tree shape of an expression, parenthesizing every binary operation and
// marking parenthesized blocks with brackets.
func dumpExpr(expr Expr) string {
	switch e := expr.(type) {
	case *BinaryOp:
		return "(" + dumpExpr(e.Left) + " " + e.Op.String() + " " + dumpExpr(e.Right) + ")"
	case *UnaryOp:
		return e.Op.String() + dumpExpr(e.Operand)
	case *ParenBlock:
		return "[" + dumpExpr(e.Inner) + "]"
	case *FunctionCall:
		var args []string
		for _, arg := range e.Args.Args {
			args = append(args, dumpExpr(arg))
		}
		return e.Name + "(" + strings.Join(args, ", ") + ")"
	}
	return formatExpr(expr, 0)
}

func TestParser_ExpressionPositions(t *testing.T) {
	expr := parseTestExpression(t, "a + b * c")
	binary, ok := expr.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, Pos{Line: 1, Column: 1}, binary.Pos)
	right, ok := binary.Right.(*BinaryOp)
	require.True(t, ok)
	assert.Equal(t, Pos{Line: 1, Column: 5}, right.Pos)
	assert.Equal(t, Pos{Line: 1, Column: 9}, right.Right.Position())
}

func TestParser_ParseProgram(t *testing.T) {
	src := `int add(int a, int b) {
    return a + b;
}

void main() {
    int x;
    bool flag;
    x = add(1, 2);
    flag = x > 2;
    if (flag) print(x); else { print(false); }
    while (x > 0) x = x - 1;
    { int y; }
    add(x, x);
    return;
}
`
	prog := parseTestProgram(t, src)
	require.Len(t, prog.Funcs, 2)

	add := prog.Funcs[0]
	assert.Equal(t, "add", add.Name)
	assert.Equal(t, TypeInt, add.ReturnType)
	require.Len(t, add.Params.Params, 2)
	assert.Equal(t, "b", add.Params.Params[1].Name)
	assert.Equal(t, Pos{Line: 1, Column: 16}, add.Params.Params[1].Pos)

	main := prog.Function("main")
	require.NotNil(t, main)
	assert.Equal(t, TypeVoid, main.ReturnType)
	assert.Empty(t, main.Params.Params)
	stmts := Flatten(main.Body.Body)
	require.Len(t, stmts, 9)
	assert.IsType(t, &VarDecl{}, stmts[0])
	assert.IsType(t, &VarDecl{}, stmts[1])
	assert.IsType(t, &Assignment{}, stmts[2])
	assert.IsType(t, &Assignment{}, stmts[3])
	ifStmt, ok := stmts[4].(*If)
	require.True(t, ok)
	assert.IsType(t, &ExpressionStatement{}, ifStmt.Then)
	assert.IsType(t, &Block{}, ifStmt.Else)
	assert.IsType(t, &While{}, stmts[5])
	assert.IsType(t, &Block{}, stmts[6])
	assert.IsType(t, &ExpressionStatement{}, stmts[7])
	ret, ok := stmts[8].(*Return)
	require.True(t, ok)
	assert.Nil(t, ret.Value)
	assert.Equal(t, Pos{Line: 14, Column: 5}, ret.Pos)

	decl := stmts[0].(*VarDecl)
	assert.Equal(t, "x", decl.Name)
	assert.Equal(t, "x", decl.Origin)
}

func TestParser_EmptyBodies(t *testing.T) {
	prog := parseTestProgram(t, "int main() { {} { {} } }")
	assert.True(t, IsEmpty(prog.Funcs[0].Body))
}

func TestParser_Errors(t *testing.T) {
	testData := []struct {
		content string
		msg     string
	}{
		{content: "main() {}", msg: "expect a type"},
		{content: "int () {}", msg: "expect function name"},
		{content: "int main( {}", msg: "expect a type"},
		{content: "int main(void a) {}", msg: "expect a type"},
		{content: "int main() { int x }", msg: "expect ;"},
		{content: "int main() { x = ; }", msg: "expect an expression"},
		{content: "int main() { 1 = 2; }", msg: "only a variable can be assigned"},
		{content: "int main() { if x {} }", msg: "expect ("},
		{content: "int main() { return 0;", msg: "expect }"},
		{content: "int main() { f(1,; }", msg: "expect an expression"},
		{content: "int main() { void x; }", msg: "expect an expression"},
	}
	for _, data := range testData {
		_, err := ParseProgram(strings.NewReader(data.content))
		var syntaxErr *SyntaxError
		if assert.True(t, errors.As(err, &syntaxErr), data.content) {
			assert.Contains(t, syntaxErr.Msg, data.msg, data.content)
		}
	}
}
