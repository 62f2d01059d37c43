package assembler

import (
	"bytes"
	"errors"
	"fmt"
	"io/ioutil"
)

// Program is an instruction stream. Jumps are emitted with symbolic targets and resolved to
// absolute indices by Link once every function has been emitted.
type Program struct {
	Instructions []Instruction
	labels       map[string]int
	linked       bool
}

func NewProgram() *Program {
	return &Program{}
}

func (p *Program) Len() int {
	return len(p.Instructions)
}

// Emit appends an instruction with a literal argument (ignored for opcodes without one).
func (p *Program) Emit(op Opcode, arg int64) {
	p.Instructions = append(p.Instructions, Instruction{Op: op, Arg: arg, Addr: -1})
	p.linked = false
}

// EmitBool appends a PUSHBOOL.
func (p *Program) EmitBool(v bool) {
	var arg int64
	if v {
		arg = 1
	}
	p.Emit(PUSHBOOL, arg)
}

// EmitTarget appends a LABEL or a jump to label.
func (p *Program) EmitTarget(op Opcode, label string) {
	p.Instructions = append(p.Instructions, Instruction{Op: op, Target: label, Addr: -1})
	p.linked = false
}

// Last returns the most recently emitted instruction, or false when the program is empty.
func (p *Program) Last() (Instruction, bool) {
	if len(p.Instructions) == 0 {
		return Instruction{}, false
	}
	return p.Instructions[len(p.Instructions)-1], true
}

// Link resolves the target of every BSR, BRA and BRF. The label table is built over the whole
// stream first, since calls and forward branches name labels that are emitted later.
func (p *Program) Link() error {
	labels := map[string]int{}
	for i, ins := range p.Instructions {
		if ins.Op != LABEL {
			continue
		}
		if _, exist := labels[ins.Target]; exist {
			return errors.New(fmt.Sprintf("link: duplicate label %s at %d", ins.Target, i))
		}
		labels[ins.Target] = i
	}
	for i := range p.Instructions {
		ins := &p.Instructions[i]
		if !ins.Op.IsJump() {
			continue
		}
		if ins.Target == "" {
			if ins.Addr < 0 || ins.Addr >= len(p.Instructions) {
				return errors.New(fmt.Sprintf("link: %s at %d jumps out of program to %d", ins.Op, i, ins.Addr))
			}
			continue
		}
		addr, exist := labels[ins.Target]
		if !exist {
			return errors.New(fmt.Sprintf("link: undefined label %s referenced at %d", ins.Target, i))
		}
		ins.Addr = addr
	}
	p.labels = labels
	p.linked = true
	return nil
}

func (p *Program) Linked() bool {
	return p.linked
}

// LabelIndex returns the index of label in a linked program.
func (p *Program) LabelIndex(label string) (int, bool) {
	idx, ok := p.labels[label]
	return idx, ok
}

// String renders the listing, one "<index>\t<instruction>" line per instruction.
func (p *Program) String() string {
	bf := bytes.Buffer{}
	for i, ins := range p.Instructions {
		bf.WriteString(fmt.Sprintf("%d\t%s\n", i, ins))
	}
	return bf.String()
}

func (p *Program) SaveTo(filePath string) error {
	return ioutil.WriteFile(filePath, []byte(p.String()), 0666)
}
