package compiler

import (
	"github.com/larkvm/lark/internal/ast"
	"github.com/larkvm/lark/internal/vm"
)

// Compile runs the whole back half of the pipeline: normalization,
// recursion resolution, code generation and assembly. The first error
// aborts; there is no recovery inside the pipeline.
func Compile(prog *ast.Program) (*vm.Program, error) {
	syms := NewSymbolTable()
	pool := NewConstPool()

	nst, err := Normalize(prog, syms, pool)
	if err != nil {
		return nil, err
	}
	if err := Resolve(nst); err != nil {
		return nil, err
	}
	funcs, err := Generate(nst, pool)
	if err != nil {
		return nil, err
	}
	code, err := Assemble(funcs)
	if err != nil {
		return nil, err
	}
	return &vm.Program{
		Code:    code,
		Consts:  pool.Words(),
		Symbols: syms.Names(),
	}, nil
}
