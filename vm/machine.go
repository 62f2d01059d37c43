package vm

import (
	"errors"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/xiaobogaga/trac42/assembler"
)

// A simple interpreter for linked trac42 programs.
//
// Memory is one array of words used as a stack which grows downward: a push decrements SP and
// stores at the new SP. LINK saves FP and points it at the new top, so inside a function
// FP+1 holds the return address, FP+2.. the arguments and FP-1.. the locals.

// ErrRuntime is wrapped by every fault raised while executing a program.
var ErrRuntime = errors.New("runtime error")

const (
	defaultStackSize = 1 << 16
	defaultStepLimit = 50000000
)

type Machine struct {
	program   *assembler.Program
	memory    []int64
	sp        int
	fp        int
	pc        int
	steps     int
	stepLimit int
	output    io.Writer
	tracer    *log.Logger
	halted    bool
}

type Option func(*Machine)

// WithOutput sets where WRITEINT and WRITEBOOL print. Defaults to stdout.
func WithOutput(w io.Writer) Option {
	return func(m *Machine) { m.output = w }
}

// WithStackSize sets the number of memory words.
func WithStackSize(words int) Option {
	return func(m *Machine) { m.memory = make([]int64, words) }
}

// WithStepLimit bounds the number of executed instructions; 0 disables the bound.
func WithStepLimit(steps int) Option {
	return func(m *Machine) { m.stepLimit = steps }
}

// WithTracer logs every executed instruction.
func WithTracer(logger *log.Logger) Option {
	return func(m *Machine) { m.tracer = logger }
}

func NewMachine(program *assembler.Program, opts ...Option) *Machine {
	m := &Machine{
		program:   program,
		stepLimit: defaultStepLimit,
		output:    os.Stdout,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.memory == nil {
		m.memory = make([]int64, defaultStackSize)
	}
	m.sp, m.fp = len(m.memory), len(m.memory)
	return m
}

// Run executes the program from index 0 until END.
func (m *Machine) Run() error {
	if !m.program.Linked() {
		if err := m.program.Link(); err != nil {
			return err
		}
	}
	for !m.halted {
		if m.pc < 0 || m.pc >= m.program.Len() {
			return m.fault("pc %d out of program", m.pc)
		}
		if m.stepLimit > 0 && m.steps >= m.stepLimit {
			return m.fault("step limit %d exceeded", m.stepLimit)
		}
		m.steps++
		ins := m.program.Instructions[m.pc]
		if m.tracer != nil {
			m.tracer.Printf("vm: %d\t%s\tsp=%d fp=%d", m.pc, ins, m.sp, m.fp)
		}
		if err := m.step(ins); err != nil {
			return err
		}
	}
	return nil
}

// Steps returns how many instructions were executed.
func (m *Machine) Steps() int {
	return m.steps
}

// ExitValue returns the word on top of the stack after END, which is the result slot of a
// non-void main.
func (m *Machine) ExitValue() (int64, bool) {
	if !m.halted || m.sp >= len(m.memory) {
		return 0, false
	}
	return m.memory[m.sp], true
}

func (m *Machine) step(ins assembler.Instruction) (err error) {
	next := m.pc + 1
	switch ins.Op {
	case assembler.PUSHINT, assembler.PUSHBOOL:
		err = m.push(ins.Arg)
	case assembler.RVALINT, assembler.RVALBOOL:
		var v int64
		if v, err = m.load(m.fp + int(ins.Arg)); err == nil {
			err = m.push(v)
		}
	case assembler.LVAL:
		err = m.push(int64(m.fp + int(ins.Arg)))
	case assembler.ASSINT, assembler.ASSBOOL:
		err = m.assign()
	case assembler.ADD, assembler.SUB, assembler.MULT, assembler.DIV, assembler.MOD,
		assembler.EQINT, assembler.EQBOOL, assembler.LTINT, assembler.LEINT, assembler.AND, assembler.OR:
		err = m.binary(ins.Op)
	case assembler.NOT, assembler.NEG:
		err = m.unary(ins.Op)
	case assembler.WRITEINT, assembler.WRITEBOOL:
		err = m.write(ins.Op)
	case assembler.DECL:
		for i := int64(0); i < ins.Arg && err == nil; i++ {
			err = m.push(0)
		}
	case assembler.POP:
		if m.sp+int(ins.Arg) > len(m.memory) || ins.Arg < 0 {
			return m.fault("pop %d on a stack of %d words", ins.Arg, len(m.memory)-m.sp)
		}
		m.sp += int(ins.Arg)
	case assembler.LINK:
		if err = m.push(int64(m.fp)); err == nil {
			m.fp = m.sp
		}
	case assembler.UNLINK:
		m.sp = m.fp
		var fp int64
		if fp, err = m.pop(); err == nil {
			m.fp = int(fp)
		}
	case assembler.BSR:
		err = m.push(int64(next))
		next = ins.Addr
	case assembler.RTS:
		var ret int64
		if ret, err = m.pop(); err == nil {
			next = int(ret)
		}
	case assembler.BRA:
		next = ins.Addr
	case assembler.BRF:
		var cond int64
		if cond, err = m.pop(); err == nil && cond == 0 {
			next = ins.Addr
		}
	case assembler.LABEL:
	case assembler.END:
		m.halted = true
	default:
		return m.fault("unknown opcode %s", ins.Op)
	}
	m.pc = next
	return err
}

func (m *Machine) push(v int64) error {
	if m.sp <= 0 {
		return m.fault("stack overflow")
	}
	m.sp--
	m.memory[m.sp] = v
	return nil
}

func (m *Machine) pop() (int64, error) {
	if m.sp >= len(m.memory) {
		return 0, m.fault("stack underflow")
	}
	v := m.memory[m.sp]
	m.sp++
	return v, nil
}

func (m *Machine) load(addr int) (int64, error) {
	if addr < 0 || addr >= len(m.memory) {
		return 0, m.fault("bad address %d", addr)
	}
	return m.memory[addr], nil
}

func (m *Machine) assign() error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	addr, err := m.pop()
	if err != nil {
		return err
	}
	if addr < 0 || addr >= int64(len(m.memory)) {
		return m.fault("bad address %d", addr)
	}
	m.memory[addr] = v
	return nil
}

func (m *Machine) binary(op assembler.Opcode) error {
	right, err := m.pop()
	if err != nil {
		return err
	}
	left, err := m.pop()
	if err != nil {
		return err
	}
	var v int64
	switch op {
	case assembler.ADD:
		v = left + right
	case assembler.SUB:
		v = left - right
	case assembler.MULT:
		v = left * right
	case assembler.DIV, assembler.MOD:
		if right == 0 {
			return m.fault("division by zero")
		}
		if op == assembler.DIV {
			v = left / right
		} else {
			v = left % right
		}
	case assembler.EQINT, assembler.EQBOOL:
		v = boolWord(left == right)
	case assembler.LTINT:
		v = boolWord(left < right)
	case assembler.LEINT:
		v = boolWord(left <= right)
	case assembler.AND:
		v = boolWord(left != 0 && right != 0)
	case assembler.OR:
		v = boolWord(left != 0 || right != 0)
	}
	return m.push(v)
}

func (m *Machine) unary(op assembler.Opcode) error {
	v, err := m.pop()
	if err != nil {
		return err
	}
	if op == assembler.NOT {
		return m.push(boolWord(v == 0))
	}
	return m.push(-v)
}

func (m *Machine) write(op assembler.Opcode) error {
	if m.sp >= len(m.memory) {
		return m.fault("stack underflow")
	}
	v := m.memory[m.sp]
	if op == assembler.WRITEBOOL {
		_, err := fmt.Fprintln(m.output, v != 0)
		return err
	}
	_, err := fmt.Fprintln(m.output, v)
	return err
}

func (m *Machine) fault(format string, args ...interface{}) error {
	return fmt.Errorf("%w at %d: %s", ErrRuntime, m.pc, fmt.Sprintf(format, args...))
}

func boolWord(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
