// Package compiler lowers the AST to executable code: normalization into
// A-normal form, recursion resolution, TAC generation and assembly into
// the VM's instruction words.
package compiler

import (
	"fmt"

	"github.com/larkvm/lark/internal/token"
)

// CodeError is a user-visible compile-time mistake. The first one aborts
// the pipeline.
type CodeError struct {
	Line    int
	Column  int
	Message string
}

func (e *CodeError) Error() string {
	return fmt.Sprintf("compile error at %d:%d: %s", e.Line, e.Column, e.Message)
}

func codeErrorf(tok token.Token, format string, args ...interface{}) error {
	return &CodeError{Line: tok.Line, Column: tok.Column, Message: fmt.Sprintf(format, args...)}
}

// InternalError is a violated compiler invariant (partial application of a
// closure, unknown variable at codegen, register overflow). Fatal.
type InternalError struct {
	Message string
}

func (e *InternalError) Error() string {
	return "internal compiler error: " + e.Message
}

func internalErrorf(format string, args ...interface{}) error {
	return &InternalError{Message: fmt.Sprintf(format, args...)}
}
