package assembler

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strconv"

	"github.com/xiaobogaga/trac42/util"
)

// A listing reader turning the printed form of a program back into instructions.
//
// Each line is one of:
// * [label]                  a label marker
// * OPCODE                   an instruction without argument
// * OPCODE 5 / OPCODE -1(FP) an instruction with a literal or frame relative argument
// * BSR main / BRA 12        a jump to a label or to an absolute index
// and may be prefixed by its index, as printed by Program.String. Text after // is a comment.

type Assembler struct {
	line    int
	program *Program
}

func NewAssembler() *Assembler {
	return &Assembler{line: 1, program: NewProgram()}
}

// Parse reads a whole listing and returns the linked program.
func Parse(rd io.Reader) (*Program, error) {
	return NewAssembler().Parse(rd)
}

func (asm *Assembler) Parse(rd io.Reader) (*Program, error) {
	bfReader := bufio.NewReader(rd)
	for {
		line, err := bfReader.ReadBytes('\n')
		if err != nil && err != io.EOF {
			return nil, err
		}
		if trimmed, hasRemainCharacter := asm.trimLine(line); hasRemainCharacter {
			if tErr := asm.transformLine(trimmed); tErr != nil {
				return nil, tErr
			}
		}
		if err == io.EOF {
			break
		}
		asm.line++
	}
	// Targets may name labels declared further down, so they are resolved once every line is read.
	if err := asm.program.Link(); err != nil {
		return nil, asm.makeSyntaxErr(err.Error())
	}
	return asm.program, nil
}

// trimLine removes spaces and comments, then returns whether the line still has characters.
func (asm *Assembler) trimLine(line []byte) ([]byte, bool) {
	index := bytes.Index(line, []byte("//"))
	if index != -1 {
		line = line[:index]
	}
	line = bytes.TrimSpace(line)
	return line, len(line) > 0
}

func (asm *Assembler) transformLine(line []byte) error {
	fields := bytes.Fields(line)
	if util.IsNumber(fields[0][0]) {
		idx, err := strconv.Atoi(string(fields[0]))
		if err != nil {
			return asm.makeSyntaxErr("incorrect index " + string(fields[0]))
		}
		if idx != asm.program.Len() {
			return asm.makeSyntaxErr(fmt.Sprintf("index %d out of order, expect %d", idx, asm.program.Len()))
		}
		fields = fields[1:]
		if len(fields) == 0 {
			return asm.makeSyntaxErr("missing instruction")
		}
	}
	if fields[0][0] == '[' {
		return asm.transformLabel(fields)
	}
	return asm.transformInstruction(fields)
}

func (asm *Assembler) transformLabel(fields [][]byte) error {
	field := fields[0]
	if len(fields) != 1 || len(field) < 3 || field[len(field)-1] != ']' {
		return asm.makeSyntaxErr("incorrect label format")
	}
	name := string(field[1 : len(field)-1])
	if !util.IsIdentifier(name) {
		return asm.makeSyntaxErr("incorrect label name " + name)
	}
	asm.program.EmitTarget(LABEL, name)
	return nil
}

func (asm *Assembler) transformInstruction(fields [][]byte) error {
	op, ok := opcodeMap[string(fields[0])]
	if !ok {
		return asm.makeSyntaxErr("unknown opcode " + string(fields[0]))
	}
	switch {
	case op == LABEL:
		if len(fields) != 2 || !util.IsIdentifier(string(fields[1])) {
			return asm.makeSyntaxErr("LABEL expects a name")
		}
		asm.program.EmitTarget(LABEL, string(fields[1]))
	case op.IsJump():
		if len(fields) != 2 {
			return asm.makeSyntaxErr(op.String() + " expects a target")
		}
		return asm.transformJump(op, string(fields[1]))
	case op.HasArg():
		if len(fields) != 2 {
			return asm.makeSyntaxErr(op.String() + " expects an argument")
		}
		arg, err := asm.parseArgument(op, string(fields[1]))
		if err != nil {
			return err
		}
		asm.program.Emit(op, arg)
	default:
		if len(fields) != 1 {
			return asm.makeSyntaxErr(op.String() + " takes no argument")
		}
		asm.program.Emit(op, 0)
	}
	return nil
}

func (asm *Assembler) transformJump(op Opcode, target string) error {
	if util.IsIdentifier(target) {
		asm.program.EmitTarget(op, target)
		return nil
	}
	addr, err := strconv.Atoi(target)
	if err != nil || addr < 0 {
		return asm.makeSyntaxErr("incorrect target " + target)
	}
	asm.program.Emit(op, 0)
	asm.program.Instructions[asm.program.Len()-1].Addr = addr
	return nil
}

func (asm *Assembler) parseArgument(op Opcode, arg string) (int64, error) {
	if op == PUSHBOOL {
		switch arg {
		case "true":
			return 1, nil
		case "false":
			return 0, nil
		}
		return 0, asm.makeSyntaxErr("PUSHBOOL expects true or false")
	}
	if op.IsFrameRelative() {
		if len(arg) < 5 || arg[len(arg)-4:] != "(FP)" {
			return 0, asm.makeSyntaxErr(op.String() + " expects an n(FP) argument")
		}
		arg = arg[:len(arg)-4]
	}
	if !util.IsInteger(arg) {
		return 0, asm.makeSyntaxErr("incorrect integer " + arg)
	}
	return strconv.ParseInt(arg, 10, 64)
}

func (asm *Assembler) makeSyntaxErr(msg string) error {
	return errors.New(fmt.Sprintf("syntax err at line %d: %s", asm.line, msg))
}
