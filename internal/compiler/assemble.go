package compiler

import "github.com/larkvm/lark/internal/vm"

// Assemble flattens the per-function TAC listings into one instruction
// stream. Two passes: the first records each function's absolute offset,
// the second packs words, substituting function references with resolved
// addresses.
func Assemble(funcs [][]Tac) ([]vm.Instruction, error) {
	addrs := make([]int, len(funcs))
	offset := 0
	for i, f := range funcs {
		addrs[i] = offset
		offset += len(f)
	}

	code := make([]vm.Instruction, 0, offset)
	for _, f := range funcs {
		for _, t := range f {
			in, err := encode(t, addrs)
			if err != nil {
				return nil, err
			}
			code = append(code, in)
		}
	}
	return code, nil
}

func encode(t Tac, addrs []int) (vm.Instruction, error) {
	switch t.Op {
	case vm.OpLoadF:
		if t.FuncRef < 0 || t.FuncRef >= len(addrs) {
			return 0, internalErrorf("load_f references unknown function %d", t.FuncRef)
		}
		return encodeRI(t.Op, t.R0, addrs[t.FuncRef])

	case vm.OpLoadI, vm.OpLoadPS, vm.OpLoadCS, vm.OpLoadC, vm.OpLoadStr,
		vm.OpCopySym, vm.OpJmp:
		return encodeRI(t.Op, t.R0, t.Imm)

	case vm.OpFunHeader:
		return encodeRI(t.Op, t.R0, t.Imm)

	default:
		return vm.RRR(t.Op, t.R0, t.R1, t.R2), nil
	}
}

func encodeRI(op vm.Opcode, r0, imm int) (vm.Instruction, error) {
	if imm < 0 || imm > vm.MaxImmediate {
		return 0, internalErrorf("%s immediate %d exceeds the 21-bit field", op, imm)
	}
	return vm.RI(op, r0, imm), nil
}
