package assembler

import (
	"fmt"
	"strconv"
)

// Opcode is an instruction of the trac42 stack machine.
//
// The machine addresses a downward growing stack through a frame pointer (FP). Parameters live
// above the frame (positive offsets), locals below it (negative offsets).
type Opcode int

const (
	PUSHINT  Opcode = iota // push integer literal
	PUSHBOOL               // push boolean literal
	RVALINT                // push the integer stored at FP+arg
	RVALBOOL               // push the boolean stored at FP+arg
	LVAL                   // push the address FP+arg
	ASSINT                 // pop value, pop address, store
	ASSBOOL                // pop value, pop address, store
	ADD
	SUB
	MULT
	DIV
	MOD
	EQINT
	EQBOOL
	LTINT
	LEINT
	NOT
	NEG
	AND
	OR
	WRITEINT  // print the top of stack, does not pop
	WRITEBOOL // print the top of stack, does not pop
	DECL      // reserve arg slots
	POP       // drop arg slots
	LINK      // push FP, FP = SP
	UNLINK    // SP = FP, pop FP
	BSR       // push return address, jump
	RTS       // pop return address, jump
	BRA       // jump
	BRF       // pop, jump when false
	LABEL     // marker, executes as a no-op
	END       // halt
)

var opcodeNames = [...]string{
	PUSHINT:   "PUSHINT",
	PUSHBOOL:  "PUSHBOOL",
	RVALINT:   "RVALINT",
	RVALBOOL:  "RVALBOOL",
	LVAL:      "LVAL",
	ASSINT:    "ASSINT",
	ASSBOOL:   "ASSBOOL",
	ADD:       "ADD",
	SUB:       "SUB",
	MULT:      "MULT",
	DIV:       "DIV",
	MOD:       "MOD",
	EQINT:     "EQINT",
	EQBOOL:    "EQBOOL",
	LTINT:     "LTINT",
	LEINT:     "LEINT",
	NOT:       "NOT",
	NEG:       "NEG",
	AND:       "AND",
	OR:        "OR",
	WRITEINT:  "WRITEINT",
	WRITEBOOL: "WRITEBOOL",
	DECL:      "DECL",
	POP:       "POP",
	LINK:      "LINK",
	UNLINK:    "UNLINK",
	BSR:       "BSR",
	RTS:       "RTS",
	BRA:       "BRA",
	BRF:       "BRF",
	LABEL:     "LABEL",
	END:       "END",
}

// opcodeMap is the mapping from mnemonic to opcode, used when reading listings.
var opcodeMap = map[string]Opcode{}

func init() {
	for op, name := range opcodeNames {
		opcodeMap[name] = Opcode(op)
	}
}

func (op Opcode) String() string {
	if op < 0 || int(op) >= len(opcodeNames) {
		return "Opcode(" + strconv.Itoa(int(op)) + ")"
	}
	return opcodeNames[op]
}

// IsJump reports whether op carries a branch or call target.
func (op Opcode) IsJump() bool {
	return op == BSR || op == BRA || op == BRF
}

// HasArg reports whether op carries a literal argument.
func (op Opcode) HasArg() bool {
	switch op {
	case PUSHINT, PUSHBOOL, RVALINT, RVALBOOL, LVAL, DECL, POP:
		return true
	}
	return false
}

// IsFrameRelative reports whether the argument of op is an FP offset.
func (op Opcode) IsFrameRelative() bool {
	return op == LVAL || op == RVALINT || op == RVALBOOL
}

// Instruction is one record of the instruction stream. Target holds the symbolic label of LABEL,
// BSR, BRA and BRF; Addr holds the absolute index of a jump once the program is linked.
type Instruction struct {
	Op     Opcode
	Arg    int64
	Target string
	Addr   int
}

func (ins Instruction) String() string {
	switch {
	case ins.Op == LABEL:
		return "[" + ins.Target + "]"
	case ins.Op.IsJump():
		if ins.Target != "" && ins.Addr < 0 {
			return fmt.Sprintf("%s %s", ins.Op, ins.Target)
		}
		return fmt.Sprintf("%s %d", ins.Op, ins.Addr)
	case ins.Op == PUSHBOOL:
		return fmt.Sprintf("%s %t", ins.Op, ins.Arg != 0)
	case ins.Op.IsFrameRelative():
		return fmt.Sprintf("%s %d(FP)", ins.Op, ins.Arg)
	case ins.Op.HasArg():
		return fmt.Sprintf("%s %d", ins.Op, ins.Arg)
	}
	return ins.Op.String()
}
