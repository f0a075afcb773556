package parser

import (
	"github.com/larkvm/lark/internal/pipeline"
)

// Processor is the parse stage of the pipeline.
type Processor struct{}

func (Processor) Process(ctx *pipeline.Context) *pipeline.Context {
	prog, err := Parse(ctx.Source)
	if err != nil {
		ctx.AddError(err)
		return ctx
	}
	ctx.Program = prog
	return ctx
}
