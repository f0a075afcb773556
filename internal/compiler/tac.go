package compiler

import "github.com/larkvm/lark/internal/vm"

// Tac is one three-address instruction over the virtual register file,
// still carrying symbolic function references. The assembler packs it into
// an instruction word once per-function addresses are known.
type Tac struct {
	Op         vm.Opcode
	R0, R1, R2 int
	Imm        int
	FuncRef    int // function index for load_f; -1 otherwise
}

func rrr(op vm.Opcode, r0, r1, r2 int) Tac {
	return Tac{Op: op, R0: r0, R1: r1, R2: r2, FuncRef: -1}
}

func ri(op vm.Opcode, r0, imm int) Tac {
	return Tac{Op: op, R0: r0, Imm: imm, FuncRef: -1}
}

func loadFunc(r0, funcIdx int) Tac {
	return Tac{Op: vm.OpLoadF, R0: r0, FuncRef: funcIdx}
}
