package vm

import (
	"errors"
	"fmt"
)

var errNoCode = errors.New("program has no code")

// Program is the loadable unit the assembler produces: a flat instruction
// stream, the const table, and the symbol-name list. Function index 0 is
// the entry point and always sits at instruction offset 0. All three parts
// are read-only once execution starts.
type Program struct {
	Code    []Instruction
	Consts  ConstTable
	Symbols []string
}

// frameSize is the per-frame register bank. The 5-bit register fields fix
// it at 32; the code generator enforces the same cap.
const frameSize = 32

// Initial sizes for the register file and frame stack.
const initialRegCount = frameSize * 64
const initialFrameCount = 256

// Maximum call depth before the VM traps. Saturated tail calls reuse their
// frame and never count against this.
const maxFrameCount = 1 << 16

// callFrame records how to come back from the function it belongs to. The
// entry frame has returnIP -1. pending carries over-saturated arguments
// that are re-applied to the return value when the frame pops.
type callFrame struct {
	rb        int // base index into the flat register file
	returnIP  int
	resultReg int // destination register in the caller's bank
	pending   []Value
}

// VM executes a Program. It is strictly single-threaded: one instruction
// pointer, one register file, one heap.
type VM struct {
	prog   *Program
	consts ConstTable

	regs []Value
	rb   int
	ip   int

	frames     []callFrame
	frameCount int

	heap []Value

	// halted latches when the entry frame delivers the program result.
	halted bool
	result Value
}

// New creates a VM for the given program.
func New(prog *Program) *VM {
	return &VM{
		prog:   prog,
		consts: prog.Consts,
		regs:   make([]Value, initialRegCount),
		frames: make([]callFrame, initialFrameCount),
		heap:   make([]Value, 0, 1024),
	}
}

// RuntimeTrap is a fatal execution error. The VM does not restart after
// trapping.
type RuntimeTrap struct {
	IP      int
	Message string
}

func (t *RuntimeTrap) Error() string {
	return fmt.Sprintf("runtime trap at %04d: %s", t.IP, t.Message)
}

func (m *VM) trap(format string, args ...interface{}) error {
	return &RuntimeTrap{IP: m.ip - 1, Message: fmt.Sprintf(format, args...)}
}

// SymbolName resolves a symbol id for diagnostics and rendering.
func (m *VM) SymbolName(id int) string {
	if id >= 0 && id < len(m.prog.Symbols) {
		return m.prog.Symbols[id]
	}
	return fmt.Sprintf("sym#%d", id)
}

func (m *VM) ensureRegs(upto int) {
	if upto <= len(m.regs) {
		return
	}
	grown := make([]Value, upto+initialRegCount)
	copy(grown, m.regs)
	m.regs = grown
}

func (m *VM) pushFrame(f callFrame) error {
	if m.frameCount >= maxFrameCount {
		return m.trap("call stack overflow (%d frames)", m.frameCount)
	}
	if m.frameCount == len(m.frames) {
		grown := make([]callFrame, len(m.frames)*2)
		copy(grown, m.frames)
		m.frames = grown
	}
	m.frames[m.frameCount] = f
	m.frameCount++
	m.rb = f.rb
	m.ensureRegs(f.rb + 2*frameSize)
	return nil
}

// Run executes from the entry function and returns the program result.
func (m *VM) Run() (Value, error) {
	if len(m.prog.Code) == 0 {
		return 0, errNoCode
	}
	m.frameCount = 0
	m.heap = m.heap[:0]
	m.halted = false
	if err := m.pushFrame(callFrame{rb: 0, returnIP: -1, resultReg: 0}); err != nil {
		return 0, err
	}
	// The entry function starts at offset 0 with its fun_header.
	m.ip = 1
	return m.exec()
}
