package internal

import (
	"errors"
	"fmt"
)

type ErrorKind int

const (
	UndeclaredVariable ErrorKind = iota
	UndeclaredFunction
	DuplicateDeclaration
	TypeMismatch
	ArityMismatch
	ConditionNotBoolean
)

var errorKindNames = map[ErrorKind]string{
	UndeclaredVariable:   "UndeclaredVariable",
	UndeclaredFunction:   "UndeclaredFunction",
	DuplicateDeclaration: "DuplicateDeclaration",
	TypeMismatch:         "TypeMismatch",
	ArityMismatch:        "ArityMismatch",
	ConditionNotBoolean:  "ConditionNotBoolean",
}

func (k ErrorKind) String() string {
	if name, ok := errorKindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("ErrorKind(%d)", int(k))
}

// CompileError is a diagnostic about the user's program found by the type checker.
type CompileError struct {
	Kind ErrorKind
	Pos  Pos
	Msg  string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s: %s at %s", e.Kind, e.Msg, e.Pos.Location())
}

func makeSemanticError(kind ErrorKind, node Node, format string, msg ...interface{}) error {
	return &CompileError{Kind: kind, Pos: node.Position(), Msg: fmt.Sprintf(format, msg...)}
}

// SyntaxError is returned by the tokenizer and the parser.
type SyntaxError struct {
	Pos  Pos
	Near string
	Msg  string
}

func (e *SyntaxError) Error() string {
	if e.Near == "" {
		return fmt.Sprintf("syntax error at %s: %s", e.Pos.Location(), e.Msg)
	}
	return fmt.Sprintf("syntax error near %s at %s: %s", e.Near, e.Pos.Location(), e.Msg)
}

// ErrInternal marks faults of the compiler itself. They never happen on a program that passed
// type checking.
var ErrInternal = errors.New("internal compiler error")

func makeInternalError(format string, msg ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, msg...))
}

// IsKind reports whether err is a CompileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var compileErr *CompileError
	return errors.As(err, &compileErr) && compileErr.Kind == kind
}
