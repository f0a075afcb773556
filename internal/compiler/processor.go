package compiler

import (
	"github.com/larkvm/lark/internal/pipeline"
)

// Processor is the compile stage of the pipeline: normalization through
// assembly.
type Processor struct{}

func (Processor) Process(ctx *pipeline.Context) *pipeline.Context {
	prog, err := Compile(ctx.Program)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Compiled = prog
	return ctx
}
