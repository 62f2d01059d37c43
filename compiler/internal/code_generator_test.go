package internal

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaobogaga/trac42/assembler"
)

func generateTestListing(t *testing.T, content string, optimize bool) string {
	result, err := Compile(strings.NewReader(content), Options{Optimize: optimize})
	require.Nil(t, err, content)
	require.True(t, result.Program.Linked())
	return result.Program.String()
}

func TestGenerate_Listings(t *testing.T) {
	testData := []struct {
		name     string
		content  string
		optimize bool
		expected []string
	}{
		{
			name:     "folded print",
			content:  "int main(){ int x; x = 2 + 3; print(x); return 0; }",
			optimize: true,
			expected: []string{
				"DECL 1", "BSR 3", "END",
				"[main]", "LINK",
				"PUSHINT 5", "WRITEINT", "POP 1",
				"LVAL 2(FP)", "PUSHINT 0", "ASSINT", "UNLINK", "RTS",
			},
		},
		{
			name:     "call with arguments",
			content:  "int add(int a, int b) { return a + b; } int main() { return add(1, 2); }",
			optimize: false,
			expected: []string{
				"DECL 1", "BSR 12", "END",
				"[add]", "LINK",
				"LVAL 4(FP)", "RVALINT 2(FP)", "RVALINT 3(FP)", "ADD", "ASSINT", "UNLINK", "RTS",
				"[main]", "LINK",
				"LVAL 2(FP)", "DECL 1", "PUSHINT 2", "PUSHINT 1", "BSR 3", "POP 2", "ASSINT", "UNLINK", "RTS",
			},
		},
		{
			name: "loop with nested scopes",
			content: `void main() {
    int i;
    i = 0;
    while (i < 2) {
        if (i == 0) print(true); else { int j; j = i; print(j); }
        i = i + 1;
    }
}`,
			optimize: false,
			expected: []string{
				"BSR 2", "END",
				"[main]", "LINK",
				"DECL 1", "LVAL -1(FP)", "PUSHINT 0", "ASSINT",
				"LVAL -1(FP)", "PUSHINT 0", "ASSINT",
				"[while_do]", "RVALINT -1(FP)", "PUSHINT 2", "LTINT", "BRF 43",
				"RVALINT -1(FP)", "PUSHINT 0", "EQINT", "BRF 24",
				"PUSHBOOL true", "WRITEBOOL", "POP 1", "BRA 36",
				"[else]",
				"DECL 1", "LVAL -2(FP)", "PUSHINT 0", "ASSINT",
				"LVAL -2(FP)", "RVALINT -1(FP)", "ASSINT",
				"RVALINT -2(FP)", "WRITEINT", "POP 1",
				"POP 1",
				"[end_if]",
				"LVAL -1(FP)", "RVALINT -1(FP)", "PUSHINT 1", "ADD", "ASSINT",
				"BRA 11",
				"[end_while]", "UNLINK", "RTS",
			},
		},
		{
			name:     "labels are numbered across functions",
			content:  "void f(bool c) { if (c) print(1); } void main() { if (true) print(2); f(false); }",
			optimize: false,
			expected: []string{
				"BSR 12", "END",
				"[f]", "LINK",
				"RVALBOOL 2(FP)", "BRF 9", "PUSHINT 1", "WRITEINT", "POP 1", "[end_if]",
				"UNLINK", "RTS",
				"[main]", "LINK",
				"PUSHBOOL true", "BRF 19", "PUSHINT 2", "WRITEINT", "POP 1", "[end_if_1]",
				"PUSHBOOL false", "BSR 2", "POP 1",
				"UNLINK", "RTS",
			},
		},
		{
			name:     "infinite empty loop",
			content:  "int main(){ while(true){} }",
			optimize: true,
			expected: []string{
				"DECL 1", "BSR 3", "END",
				"[main]", "LINK",
				"[while_do]", "PUSHBOOL true", "BRF 9", "BRA 5", "[end_while]",
				"UNLINK", "RTS",
			},
		},
		{
			name:     "returns on every path",
			content:  "int sign(int n) { if (n < 0) { return -1; } else { return 1; } } int main() { return sign(-5); }",
			optimize: false,
			expected: []string{
				"DECL 1", "BSR 22", "END",
				"[sign]", "LINK",
				"RVALINT 2(FP)", "PUSHINT 0", "LTINT", "BRF 15",
				"LVAL 3(FP)", "PUSHINT 1", "NEG", "ASSINT", "UNLINK", "RTS",
				"[else]",
				"LVAL 3(FP)", "PUSHINT 1", "ASSINT", "UNLINK", "RTS",
				"[end_if]",
				"[main]", "LINK",
				"LVAL 2(FP)", "DECL 1", "PUSHINT 5", "NEG", "BSR 3", "POP 1", "ASSINT", "UNLINK", "RTS",
			},
		},
	}
	for _, data := range testData {
		t.Run(data.name, func(t *testing.T) {
			got := generateTestListing(t, data.content, data.optimize)
			var lines []string
			for _, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
				parts := strings.SplitN(line, "\t", 2)
				require.Len(t, parts, 2, line)
				lines = append(lines, parts[1])
			}
			assert.Equal(t, data.expected, lines)
		})
	}
}

func TestGenerate_ExactListing(t *testing.T) {
	got := generateTestListing(t, "int main(){ int x; x = 2 + 3; print(x); return 0; }", true)
	assert.Equal(t, "0\tDECL 1\n1\tBSR 3\n2\tEND\n3\t[main]\n4\tLINK\n5\tPUSHINT 5\n6\tWRITEINT\n7\tPOP 1\n"+
		"8\tLVAL 2(FP)\n9\tPUSHINT 0\n10\tASSINT\n11\tUNLINK\n12\tRTS\n", got)
}

func TestGenerate_DefaultValues(t *testing.T) {
	// Read before written: the default is stored.
	got := generateTestListing(t, "void main() { bool b; print(b); }", false)
	assert.Contains(t, got, "4\tDECL 1\n5\tLVAL -1(FP)\n6\tPUSHBOOL false\n7\tASSBOOL\n8\tRVALBOOL -1(FP)\n")

	// Written first: the slot is only reserved.
	got = generateTestListing(t, "int f(int n) { int x; x = n * 2; return x; } int main() { return f(2); }", true)
	assert.Contains(t, got, "4\tLINK\n5\tDECL 1\n6\tLVAL -1(FP)\n7\tRVALINT 2(FP)\n8\tPUSHINT 2\n9\tMULT\n10\tASSINT\n")
}

func TestGenerate_Operators(t *testing.T) {
	content := "void f(int a, bool p) { print(a > 1, a >= 1, a != 1, p != true, p == false, a % 2, a / 2 * 3 - a, " +
		"p && !p || p); } void main() { f(1, true); }"
	got := generateTestListing(t, content, false)
	var ops []string
	for _, line := range strings.Split(strings.TrimRight(got, "\n"), "\n") {
		ops = append(ops, strings.SplitN(line, "\t", 2)[1])
	}
	joined := strings.Join(ops, ";")
	expectedSequences := []string{
		"RVALINT 2(FP);PUSHINT 1;LEINT;NOT",
		"RVALINT 2(FP);PUSHINT 1;LTINT;NOT",
		"RVALINT 2(FP);PUSHINT 1;EQINT;NOT",
		"RVALBOOL 3(FP);PUSHBOOL true;EQBOOL;NOT",
		"RVALBOOL 3(FP);PUSHBOOL false;EQBOOL",
		"RVALINT 2(FP);PUSHINT 2;MOD",
		"RVALINT 2(FP);PUSHINT 2;DIV;PUSHINT 3;MULT;RVALINT 2(FP);SUB",
		"RVALBOOL 3(FP);RVALBOOL 3(FP);NOT;AND;RVALBOOL 3(FP);OR",
	}
	for _, sequence := range expectedSequences {
		assert.Contains(t, joined, sequence)
	}
	// Arguments are pushed last first and printed first to last.
	assert.Contains(t, joined, "WRITEBOOL;POP 1;WRITEBOOL;POP 1;WRITEBOOL;POP 1;WRITEBOOL;POP 1;WRITEBOOL;POP 1;"+
		"WRITEINT;POP 1;WRITEINT;POP 1;WRITEBOOL;POP 1;UNLINK")
}

func TestGenerate_DiscardedResult(t *testing.T) {
	got := generateTestListing(t, "int one() { return 1; } void main() { one(); }", false)
	assert.Contains(t, got, "11\tDECL 1\n12\tBSR 2\n13\tPOP 1\n14\tUNLINK\n")
}

func TestGenerate_InternalErrors(t *testing.T) {
	prog := parseTestProgram(t, "int main() { return x; }")
	info := NewInfo()
	info.Funcs["main"] = &Signature{Name: "main", Return: TypeInt}
	_, err := Generate(prog, info, nil)
	assert.ErrorIs(t, err, ErrInternal)

	_, err = Generate(&Program{}, NewInfo(), nil)
	assert.ErrorIs(t, err, ErrInternal)
}

func TestGenerate_LabelsDoNotTakeFunctionNames(t *testing.T) {
	got := generateTestListing(t, "void else_1() { } void main() { if (true) { } else { } if (true) { } else { } else_1(); }",
		false)
	program, err := assembler.Parse(strings.NewReader(got))
	require.Nil(t, err)
	_, ok := program.LabelIndex("else_2")
	assert.True(t, ok)
}
