package internal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func optimizeTestProgram(t *testing.T, content string) *Optimized {
	prog, _, err := checkTestProgram(t, content)
	require.Nil(t, err, content)
	return Optimize(prog)
}

func TestOptimize_Rewrites(t *testing.T) {
	testData := []struct {
		name     string
		content  string
		function string
		expected string
	}{
		{
			name:     "propagate and delete",
			content:  "int main(){ int x; x = 2 + 3; print(x); return 0; }",
			function: "main",
			expected: "int main() {\n    print(5);\n    return 0;\n}\n",
		},
		{
			name:     "chain of deletions",
			content:  "int main() { int a; int b; a = 2; b = a * 3; return b; }",
			function: "main",
			expected: "int main() {\n    return 6;\n}\n",
		},
		{
			name:     "literal condition takes a branch",
			content:  "int main() { int a; a = 4; if (a > 3) { print(1); } else { print(2); } return a * 1 + 0; }",
			function: "main",
			expected: "int main() {\n    {\n        print(1);\n    }\n    return 4;\n}\n",
		},
		{
			name:     "false condition without else",
			content:  "void main() { if (false) print(1); print(2); }",
			function: "main",
			expected: "void main() {\n    print(2);\n}\n",
		},
		{
			name:     "false condition takes else",
			content:  "void main() { if (1 > 2) print(1); else print(2); }",
			function: "main",
			expected: "void main() {\n    print(2);\n}\n",
		},
		{
			name:     "code after return",
			content:  "int f() { return 1; print(2); return 3; } int main() { return f(); }",
			function: "f",
			expected: "int f() {\n    return 1;\n}\n",
		},
		{
			name:     "code after both branches return",
			content:  "int f(bool c) { if (c) { return 1; } else { return 2; } print(3); } int main() { return f(true); }",
			function: "f",
			expected: "int f(bool c) {\n    if (c) {\n        return 1;\n    } else {\n        return 2;\n    }\n}\n",
		},
		{
			name:     "same value on both paths",
			content:  "int f(bool c) { int x; if (c) { x = 1; } else { x = 1; } return x; } int main() { return f(true); }",
			function: "f",
			expected: "int f(bool c) {\n    return 1;\n}\n",
		},
		{
			name:     "different values on both paths",
			content:  "int f(bool c) { int x; if (c) { x = 1; } else { x = 2; } return x; } int main() { return f(true); }",
			function: "f",
			expected: "int f(bool c) {\n    int x;\n    if (c) {\n        x = 1;\n    } else {\n        x = 2;\n    }\n    return x;\n}\n",
		},
		{
			name:     "loop variables are not propagated",
			content:  "void main() { int i; i = 0; while (i < 3) { print(i); i = i + 1; } }",
			function: "main",
			expected: "void main() {\n    int i;\n    i = 0;\n    while (i < 3) {\n        print(i);\n        i = i + 1;\n    }\n}\n",
		},
		{
			name:     "false loop",
			content:  "void main() { while (false) { print(1); } print(2); }",
			function: "main",
			expected: "void main() {\n    print(2);\n}\n",
		},
		{
			name:     "code after infinite loop",
			content:  "void main() { while (true) { print(1); } print(2); }",
			function: "main",
			expected: "void main() {\n    while (true) {\n        print(1);\n    }\n}\n",
		},
		{
			name:     "identities",
			content:  "int f(int a) { return a * 1 + 0 - 0; } int main() { return f(1); }",
			function: "f",
			expected: "int f(int a) {\n    return a;\n}\n",
		},
		{
			name:     "multiply by zero",
			content:  "int f(int a) { return 0 * a + a * 0; } int main() { return f(1); }",
			function: "f",
			expected: "int f(int a) {\n    return 0;\n}\n",
		},
		{
			name:     "negation and parentheses",
			content:  "int main() { return -(2 - 5); }",
			function: "main",
			expected: "int main() {\n    return 3;\n}\n",
		},
		{
			name:     "short circuit keeps calls",
			content:  "bool t() { print(1); return true; } void main() { print(false && t()); print(true || 1 < 2); }",
			function: "main",
			expected: "void main() {\n    print(false && t());\n    print(true);\n}\n",
		},
		{
			name:     "boolean identities",
			content:  "void f(bool b) { print(b && true, false || b, b || true, !!b); } void main() { f(true); }",
			function: "f",
			expected: "void f(bool b) {\n    print(b, b, true, !!b);\n}\n",
		},
		{
			name:     "self assignment",
			content:  "int f(int a) { a = a; return a; } int main() { return f(1); }",
			function: "f",
			expected: "int f(int a) {\n    return a;\n}\n",
		},
		{
			name:     "pure expression statements",
			content:  "void main() { 1 + 2; { } }",
			function: "main",
			expected: "void main() {\n}\n",
		},
		{
			name:     "unread variable keeps the call of its value",
			content:  "int g() { print(7); return 7; } void main() { int x; x = g(); }",
			function: "main",
			expected: "void main() {\n    g();\n}\n",
		},
		{
			name:     "division by zero statements are kept",
			content:  "void main() { 5 / 0; print(1); }",
			function: "main",
			expected: "void main() {\n    5 / 0;\n    print(1);\n}\n",
		},
		{
			name:     "unread variable keeps a faulting value",
			content:  "void main() { int x; x = 7 % 0; print(1); }",
			function: "main",
			expected: "void main() {\n    7 % 0;\n    print(1);\n}\n",
		},
		{
			name:     "unknown divisors are kept",
			content:  "void f(int a, int b) { a / b; a / 2; 0 * (a % b); print(false && a % b == 0); } void main() { f(1, 1); }",
			function: "f",
			expected: "void f(int a, int b) {\n    a / b;\n    0 * (a % b);\n    print(false && a % b == 0);\n}\n",
		},
		{
			name:     "comparison folding",
			content:  "void main() { print(1 < 2, 2 <= 1, 3 > 2, 3 >= 4, 1 == 1, true != true, 7 % 3, 7 / 2); }",
			function: "main",
			expected: "void main() {\n    print(true, false, true, false, true, false, 1, 3);\n}\n",
		},
	}
	for _, data := range testData {
		t.Run(data.name, func(t *testing.T) {
			optimized := optimizeTestProgram(t, data.content)
			fn := optimized.Program.Function(data.function)
			require.NotNil(t, fn)
			assert.Equal(t, data.expected, Format(fn))
		})
	}
}

func TestOptimize_Warnings(t *testing.T) {
	testData := []struct {
		content  string
		expected []string
	}{
		{
			content:  "int main(){ while(true){} }",
			expected: []string{"Infinite empty loop detected on line 1 column 13"},
		},
		{
			content:  "void main() { while (true) { print(1); } }",
			expected: []string{"Infinite loop detected on line 1 column 15"},
		},
		{
			content:  "int main(){ bool b; int y; y = 5 / 0; print(y); return 0; }",
			expected: []string{"Division or Modulus by 0 found on line 1 column 32"},
		},
		{
			content: "void main() { print(1 / 0); print(1 % 0); }",
			expected: []string{
				"Division or Modulus by 0 found on line 1 column 21",
				"Division or Modulus by 0 found on line 1 column 35",
			},
		},
		{
			// A divisor known through a variable counts too.
			content:  "void main() { int z; z = 0; print(4 / z); }",
			expected: []string{"Division or Modulus by 0 found on line 1 column 35"},
		},
		{
			// A loop left through a return is reported all the same.
			content:  "int main() { int i; while (true) { i = i + 1; if (i > 2) { return i; } } }",
			expected: []string{"Infinite loop detected on line 1 column 21"},
		},
		{
			content: "void main() { 5 / 0; int x; x = 7 % 0; print(1); }",
			expected: []string{
				"Division or Modulus by 0 found on line 1 column 15",
				"Division or Modulus by 0 found on line 1 column 33",
			},
		},
		{
			content:  "int main() { int x; x = 1; return x; }",
			expected: nil,
		},
	}
	for _, data := range testData {
		optimized := optimizeTestProgram(t, data.content)
		assert.Equal(t, data.expected, optimized.Warnings, data.content)
	}
}

func TestOptimize_DivisionByZeroIsKept(t *testing.T) {
	optimized := optimizeTestProgram(t, "int main(){ bool b; int y; y = 5 / 0; print(y); return 0; }")
	assert.Equal(t, "int main() {\n    int y;\n    y = 5 / 0;\n    print(y);\n    return 0;\n}\n",
		Format(optimized.Program.Function("main")))
	decl := Flatten(optimized.Program.Function("main").Body.Body)[0].(*VarDecl)
	assert.Equal(t, UseWrite, optimized.FirstUse[decl])
}

func TestOptimize_FirstUse(t *testing.T) {
	testData := []struct {
		content  string
		expected Use
	}{
		{content: "int f(bool c) { int x; if (c) { x = 1; } return x; } int main() { return f(true); }", expected: UseRead},
		{content: "int f(bool c) { int x; if (c) { x = 1; } else { x = 2; } return x; } int main() { return f(true); }",
			expected: UseWrite},
		{content: "int f(int n) { int x; while (n > 0) { x = n; n = n - 1; } return x; } int main() { return f(2); }",
			expected: UseRead},
		{content: "int f(int n) { int x; x = n; return x; } int main() { return f(2); }", expected: UseWrite},
	}
	for _, data := range testData {
		optimized := optimizeTestProgram(t, data.content)
		decl, ok := Flatten(optimized.Program.Function("f").Body.Body)[0].(*VarDecl)
		require.True(t, ok, data.content)
		assert.Equal(t, data.expected, optimized.FirstUse[decl], data.content)
	}
}

func TestOptimize_Attempts(t *testing.T) {
	optimized := optimizeTestProgram(t, "int main() { return 0; }")
	assert.Equal(t, 1, optimized.Attempts)

	optimized = optimizeTestProgram(t, "int main() { int a; int b; a = 2; b = a * 3; return b; }")
	assert.Equal(t, 2, optimized.Attempts)
}

func TestOptimize_AttemptsAreCapped(t *testing.T) {
	saved := maxOptimizeAttempts
	maxOptimizeAttempts = 1
	defer func() { maxOptimizeAttempts = saved }()

	optimized := optimizeTestProgram(t, "int main() { int a; int b; a = 2; b = a * 3; return b; }")
	assert.Equal(t, 1, optimized.Attempts)
	// The unread declarations found by the only attempt are left in place.
	assert.Equal(t, "int main() {\n    int a;\n    int b;\n    a = 2;\n    b = 6;\n    return 6;\n}\n",
		Format(optimized.Program.Function("main")))
	for _, stmt := range Flatten(optimized.Program.Function("main").Body.Body)[:2] {
		assert.Equal(t, UseWrite, optimized.FirstUse[stmt.(*VarDecl)])
	}
}

func TestOptimize_DoesNotChangeItsInput(t *testing.T) {
	prog, _, err := checkTestProgram(t, "int main(){ int x; x = 2 + 3; print(x); return 0; }")
	require.Nil(t, err)
	before := Format(prog)
	Optimize(prog)
	assert.Equal(t, before, Format(prog))
}
