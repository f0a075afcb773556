package vm

import (
	"fmt"
	"strings"
)

// Disassemble returns a human-readable listing of the instruction stream.
func Disassemble(prog *Program, name string) string {
	var sb strings.Builder

	sb.WriteString(fmt.Sprintf("== %s ==\n", name))
	for offset, in := range prog.Code {
		disassembleInstruction(&sb, offset, in)
	}
	return sb.String()
}

func disassembleInstruction(sb *strings.Builder, offset int, in Instruction) {
	sb.WriteString(fmt.Sprintf("%04d ", offset))

	switch in.Op() {
	case OpFunHeader:
		sb.WriteString(fmt.Sprintf("fun_header free=%d arity=%d\n", in.R0(), in.Imm()))
	case OpLoadI, OpLoadPS, OpLoadCS, OpLoadC, OpLoadF, OpLoadStr, OpCopySym:
		sb.WriteString(fmt.Sprintf("%-13s r%-2d %d\n", in.Op(), in.R0(), in.Imm()))
	case OpJmp:
		sb.WriteString(fmt.Sprintf("%-13s +%d\n", in.Op(), in.Imm()))
	case OpRet:
		sb.WriteString(fmt.Sprintf("%-13s r%d\n", in.Op(), in.R0()))
	case OpMove, OpNot:
		sb.WriteString(fmt.Sprintf("%-13s r%-2d r%d\n", in.Op(), in.R0(), in.R1()))
	case OpSetArg, OpSetClVal, OpSetSymField:
		sb.WriteString(fmt.Sprintf("%-13s %-3d r%-2d %d\n", in.Op(), in.R0(), in.R1(), in.R2()))
	default:
		sb.WriteString(fmt.Sprintf("%-13s r%-2d r%-2d %d\n", in.Op(), in.R0(), in.R1(), in.R2()))
	}
}
