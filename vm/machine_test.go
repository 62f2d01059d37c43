package vm

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xiaobogaga/trac42/assembler"
)

func run(t *testing.T, listing string, opts ...Option) (string, *Machine, error) {
	t.Helper()
	program, err := assembler.Parse(strings.NewReader(listing))
	require.Nil(t, err)
	out := &bytes.Buffer{}
	m := NewMachine(program, append([]Option{WithOutput(out)}, opts...)...)
	err = m.Run()
	return out.String(), m, err
}

func TestMachine_Print(t *testing.T) {
	out, _, err := run(t, `
BSR main
END
[main]
LINK
PUSHBOOL false
PUSHINT 42
WRITEINT
POP 1
WRITEBOOL
POP 1
UNLINK
RTS
`)
	require.Nil(t, err)
	assert.Equal(t, "42\nfalse\n", out)
}

func TestMachine_CallWithReturnValue(t *testing.T) {
	// int sub(int a, int b) { return a - b; }  main() { print(sub(10, 3)); return 7; }
	out, m, err := run(t, `
DECL 1
BSR main
END
[sub]
LINK
LVAL 4(FP)
RVALINT 2(FP)
RVALINT 3(FP)
SUB
ASSINT
UNLINK
RTS
[main]
LINK
DECL 1
PUSHINT 3
PUSHINT 10
BSR sub
POP 2
WRITEINT
POP 1
LVAL 2(FP)
PUSHINT 7
ASSINT
UNLINK
RTS
`)
	require.Nil(t, err)
	assert.Equal(t, "7\n", out)
	v, ok := m.ExitValue()
	assert.True(t, ok)
	assert.Equal(t, int64(7), v)
}

func TestMachine_LoopAndLocals(t *testing.T) {
	// int i; while (i < 3) { print(i); i = i + 1; }
	out, _, err := run(t, `
BSR main
END
[main]
LINK
DECL 1
[while_do]
RVALINT -1(FP)
PUSHINT 3
LTINT
BRF end_while
RVALINT -1(FP)
WRITEINT
POP 1
LVAL -1(FP)
RVALINT -1(FP)
PUSHINT 1
ADD
ASSINT
BRA while_do
[end_while]
POP 1
UNLINK
RTS
`)
	require.Nil(t, err)
	assert.Equal(t, "0\n1\n2\n", out)
}

func TestMachine_Operators(t *testing.T) {
	testData := []struct {
		code string
		want string
	}{
		{"PUSHINT 7\nPUSHINT 2\nDIV\nWRITEINT", "3\n"},
		{"PUSHINT -7\nPUSHINT 2\nMOD\nWRITEINT", "-1\n"},
		{"PUSHINT 6\nPUSHINT 7\nMULT\nNEG\nWRITEINT", "-42\n"},
		{"PUSHINT 2\nPUSHINT 2\nLEINT\nWRITEBOOL", "true\n"},
		{"PUSHINT 2\nPUSHINT 2\nLTINT\nWRITEBOOL", "false\n"},
		{"PUSHBOOL true\nPUSHBOOL false\nOR\nNOT\nWRITEBOOL", "false\n"},
		{"PUSHBOOL true\nPUSHBOOL true\nAND\nWRITEBOOL", "true\n"},
		{"PUSHBOOL true\nPUSHBOOL true\nEQBOOL\nWRITEBOOL", "true\n"},
		{"PUSHINT 1\nPUSHINT 3\nSUB\nWRITEINT", "-2\n"},
	}
	for _, data := range testData {
		out, _, err := run(t, data.code+"\nEND\n")
		require.Nil(t, err)
		assert.Equal(t, data.want, out)
	}
}

func TestMachine_Faults(t *testing.T) {
	_, _, err := run(t, "PUSHINT 1\nPUSHINT 0\nDIV\nEND\n")
	assert.True(t, errors.Is(err, ErrRuntime))

	_, _, err = run(t, "[loop]\nBRA loop\n", WithStepLimit(100))
	assert.True(t, errors.Is(err, ErrRuntime))

	_, _, err = run(t, "[loop]\nPUSHINT 1\nBRA loop\n", WithStackSize(8))
	assert.True(t, errors.Is(err, ErrRuntime))

	_, _, err = run(t, "POP 1\nEND\n")
	assert.True(t, errors.Is(err, ErrRuntime))
}
