package internal

import (
	"io"
	"io/ioutil"
	"log"

	"github.com/xiaobogaga/trac42/assembler"
)

type Options struct {
	// Optimize runs the optimizer between type checking and code generation.
	Optimize bool
	// Logger receives one line per stage. Nil discards them.
	Logger *log.Logger
}

type Result struct {
	// AST is the program handed to the code generator.
	AST       *Program
	Program   *assembler.Program
	Warnings  []string
	Optimized *Optimized // nil when not optimizing
}

// Compile runs the whole pipeline over the source read from rd and returns the linked program.
func Compile(rd io.Reader, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = log.New(ioutil.Discard, "", 0)
	}
	logger.Println("compiler: start parser")
	prog, err := ParseProgram(rd)
	if err != nil {
		return nil, err
	}
	logger.Println("compiler: start scope resolver")
	prog = Resolve(prog)
	logger.Println("compiler: start type checker")
	info, err := Check(prog)
	if err != nil {
		return nil, err
	}
	ret := &Result{AST: prog}
	var firstUse map[*VarDecl]Use
	if opts.Optimize {
		logger.Println("compiler: start optimizer")
		ret.Optimized = Optimize(prog)
		ret.AST, ret.Warnings, firstUse = ret.Optimized.Program, ret.Optimized.Warnings, ret.Optimized.FirstUse
		logger.Printf("compiler: optimizer reached a fixed point after %d attempts", ret.Optimized.Attempts)
		for _, warning := range ret.Warnings {
			logger.Printf("compiler: warning: %s", warning)
		}
		// The optimized tree holds new expression nodes, their types are recomputed.
		logger.Println("compiler: start type checker on optimized program")
		if info, err = Check(ret.AST); err != nil {
			return nil, makeInternalError("optimized program fails type checking: %v", err)
		}
	} else {
		firstUse = allRead(prog)
	}
	logger.Println("compiler: start generate codes")
	if ret.Program, err = Generate(ret.AST, info, firstUse); err != nil {
		return nil, err
	}
	return ret, nil
}

// allRead marks every declaration of an unoptimized program as possibly read before written.
func allRead(prog *Program) map[*VarDecl]Use {
	ret := map[*VarDecl]Use{}
	var visit func(stmt Stmt)
	visit = func(stmt Stmt) {
		switch s := stmt.(type) {
		case *VarDecl:
			ret[s] = UseRead
		case *Sequence:
			visit(s.Head)
			visit(s.Tail)
		case *Block:
			visit(s.Body)
		case *If:
			visit(s.Then)
			visit(s.Else)
		case *While:
			visit(s.Body)
		}
	}
	for _, fn := range prog.Funcs {
		if fn.Body != nil {
			visit(fn.Body)
		}
	}
	return ret
}
