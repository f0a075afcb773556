// Package pipeline chains the compilation stages over a shared context.
package pipeline

import (
	"github.com/google/uuid"

	"github.com/larkvm/lark/internal/ast"
	"github.com/larkvm/lark/internal/vm"
)

// Context carries one run through the stages. Every run gets a fresh id so
// diagnostics from different inputs can be told apart.
type Context struct {
	RunID  string
	File   string
	Source string

	Program  *ast.Program
	Compiled *vm.Program

	Errors []error
}

func NewContext(source string) *Context {
	return &Context{RunID: uuid.NewString(), Source: source}
}

func (c *Context) AddError(err error) {
	c.Errors = append(c.Errors, err)
}

// Failed reports whether any stage recorded an error.
func (c *Context) Failed() bool { return len(c.Errors) > 0 }

// Processor is one pipeline stage.
type Processor interface {
	Process(ctx *Context) *Context
}

// Pipeline represents a sequence of processing stages.
type Pipeline struct {
	processors []Processor
}

func New(processors ...Processor) *Pipeline {
	return &Pipeline{processors: processors}
}

// Run executes the stages in order. The first error stops the pipeline;
// there is no recovery inside it.
func (p *Pipeline) Run(ctx *Context) *Context {
	for _, processor := range p.processors {
		if ctx.Failed() {
			break
		}
		ctx = processor.Process(ctx)
	}
	return ctx
}
