// Package embed is the embeddable entry point: compile and run Lark
// source in-process.
package embed

import (
	"fmt"

	"github.com/larkvm/lark/internal/compiler"
	"github.com/larkvm/lark/internal/parser"
	"github.com/larkvm/lark/internal/pipeline"
	"github.com/larkvm/lark/internal/vm"
)

// Result is a finished evaluation. The machine is retained so the value
// can be rendered against its const table and heap.
type Result struct {
	RunID   string
	Value   vm.Value
	machine *vm.VM
}

// String renders the value in diagnostic form.
func (r Result) String() string {
	return r.machine.Render(r.Value)
}

// Compile runs the front half only: source to loadable program.
func Compile(source string) (*vm.Program, error) {
	ctx := pipeline.New(parser.Processor{}, compiler.Processor{}).
		Run(pipeline.NewContext(source))
	if ctx.Failed() {
		return nil, ctx.Errors[0]
	}
	return ctx.Compiled, nil
}

// Run compiles and executes source and returns the program result.
func Run(source string) (Result, error) {
	ctx := pipeline.New(parser.Processor{}, compiler.Processor{}).
		Run(pipeline.NewContext(source))
	if ctx.Failed() {
		return Result{RunID: ctx.RunID}, ctx.Errors[0]
	}
	machine := vm.New(ctx.Compiled)
	value, err := machine.Run()
	if err != nil {
		return Result{RunID: ctx.RunID}, fmt.Errorf("run %s: %w", ctx.RunID, err)
	}
	return Result{RunID: ctx.RunID, Value: value, machine: machine}, nil
}
