package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResolve_Renames(t *testing.T) {
	testData := []struct {
		content  string
		expected string
	}{
		{
			content: "int f(int a) { int x; { int x; x = a; } return x; }",
			expected: `int f(int a) {
    int x;
    {
        int x_1;
        x_1 = a;
    }
    return x;
}
`,
		},
		{
			content: "void g() { { int x; x = 1; } { int x; x = 2; } }",
			expected: `void g() {
    {
        int x;
        x = 1;
    }
    {
        int x_1;
        x_1 = 2;
    }
}
`,
		},
		{
			content: "void g() { int x; int x_1; { int x; print(x, x_1); } }",
			expected: `void g() {
    int x;
    int x_1;
    {
        int x_2;
        print(x_2, x_1);
    }
}
`,
		},
		{
			content: "void g(bool b) { int x; if (b) { int x; x = 1; } else x = 2; while (b) { bool b; b = !b; } }",
			expected: `void g(bool b) {
    int x;
    if (b) {
        int x_1;
        x_1 = 1;
    } else {
        x = 2;
    }
    while (b) {
        bool b_1;
        b_1 = !b_1;
    }
}
`,
		},
		{
			content: "int h(int a) { int a; a = 1; return a; }",
			expected: `int h(int a) {
    int a_1;
    a_1 = 1;
    return a_1;
}
`,
		},
		{
			content: "int u() { return missing + f(1); }",
			expected: `int u() {
    return missing + f(1);
}
`,
		},
	}
	for _, data := range testData {
		prog := parseTestProgram(t, data.content)
		assert.Equal(t, data.expected, Format(Resolve(prog)), data.content)
	}
}

func TestResolve_CountsRestartPerFunction(t *testing.T) {
	prog := parseTestProgram(t, "void a() { int x; { int x; } } void b() { int x; { int x; } }")
	resolved := Resolve(prog)
	for _, fn := range resolved.Funcs {
		stmts := Flatten(fn.Body.Body)
		require.Len(t, stmts, 2)
		assert.Equal(t, "x", stmts[0].(*VarDecl).Name, fn.Name)
		assert.Equal(t, "x_1", stmts[1].(*Block).Body.(*VarDecl).Name, fn.Name)
	}
}

func TestResolve_KeepsOriginAndCopies(t *testing.T) {
	prog := parseTestProgram(t, "void a() { int x; { int x; } }")
	resolved := Resolve(prog)
	inner := Flatten(resolved.Funcs[0].Body.Body)[1].(*Block).Body.(*VarDecl)
	assert.Equal(t, "x_1", inner.Name)
	assert.Equal(t, "x", inner.Origin)

	original := Flatten(prog.Funcs[0].Body.Body)[1].(*Block).Body.(*VarDecl)
	assert.Equal(t, "x", original.Name)
	assert.NotSame(t, original, inner)
}
