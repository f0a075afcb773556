package vm

// linkage is the return continuation a call hands to its callee: where to
// resume, which caller register receives the result, and any over-saturated
// arguments still waiting to be applied to that result.
type linkage struct {
	returnIP  int
	resultReg int
	pending   []Value
}

// stagedArgs copies the n argument slots staged by set_arg out of the
// register file. The copy keeps them stable across the base-pointer shift.
func (m *VM) stagedArgs(n int) []Value {
	if n == 0 {
		return nil
	}
	args := make([]Value, n)
	copy(args, m.regs[m.rb+frameSize:m.rb+frameSize+n])
	return args
}

// callee is a resolved application target.
type callee struct {
	codeAddr int
	arity    int
	captures []Value
}

// resolveCallee unwraps partial-application records and splits a callable
// value into code address, arity and captured values. Partial applications
// prepend their stored arguments.
func (m *VM) resolveCallee(v Value, args []Value) (callee, []Value, error) {
	for v.Tag() == TagClosure && m.heap[v.Addr()].IsPapHeader() {
		rec := v.Addr()
		k := m.heap[rec].PapArgCount()
		merged := make([]Value, 0, k+len(args))
		merged = append(merged, m.heap[rec+2:rec+2+k]...)
		merged = append(merged, args...)
		args = merged
		v = m.heap[rec+1]
	}

	var c callee
	rec := -1
	switch v.Tag() {
	case TagFunction:
		c.codeAddr = v.Addr()
	case TagClosure:
		rec = v.Addr()
		code := m.heap[rec]
		if code.Tag() != TagFunction {
			return c, nil, m.trap("corrupt closure record at heap %d", rec)
		}
		c.codeAddr = code.Addr()
	default:
		return c, nil, m.trap("value of type %s is not callable", v.Tag())
	}

	if c.codeAddr >= len(m.prog.Code) {
		return c, nil, m.trap("call target %04d out of bounds", c.codeAddr)
	}
	header := m.prog.Code[c.codeAddr]
	if header.Op() != OpFunHeader {
		return c, nil, m.trap("call target %04d has no function header", c.codeAddr)
	}
	c.arity = header.Imm()
	if rec >= 0 {
		c.captures = m.heap[rec+1 : rec+1+header.R0()]
	}
	return c, args, nil
}

// applyValue applies v to args with the given return linkage. Exact
// saturation enters the function in a frame over baseRB; under-saturation
// builds a partial application and delivers it as a result;
// over-saturation enters with the formal arity and queues the rest on the
// new frame.
func (m *VM) applyValue(v Value, args []Value, l linkage, baseRB int) error {
	given := args
	c, args, err := m.resolveCallee(v, args)
	if err != nil {
		return err
	}

	switch {
	case len(args) == c.arity:
		return m.enter(c, args, l, baseRB)

	case len(args) < c.arity:
		// v still holds any stored arguments of its own, so the new record
		// keeps only the arguments given here.
		pap := ClosureValue(m.allocPap(v, given))
		return m.deliver(pap, l, baseRB)

	default: // len(args) > c.arity
		extra := args[c.arity:]
		pending := make([]Value, 0, len(extra)+len(l.pending))
		pending = append(pending, extra...)
		pending = append(pending, l.pending...)
		return m.enter(c, args[:c.arity], linkage{
			returnIP:  l.returnIP,
			resultReg: l.resultReg,
			pending:   pending,
		}, baseRB)
	}
}

// enter pushes a frame for a saturated call and jumps past the callee's
// fun_header. Captured values land at registers 0..f-1, arguments at
// f..f+n-1, matching the code generator's bank layout.
func (m *VM) enter(c callee, args []Value, l linkage, baseRB int) error {
	if err := m.pushFrame(callFrame{
		rb:        baseRB,
		returnIP:  l.returnIP,
		resultReg: l.resultReg,
		pending:   l.pending,
	}); err != nil {
		return err
	}
	copy(m.regs[baseRB:], c.captures)
	copy(m.regs[baseRB+len(c.captures):], args)
	m.ip = c.codeAddr + 1
	return nil
}

// deliver hands a finished value to the linkage: applies queued
// over-saturated arguments if any, finishes the program when no caller
// remains, and otherwise writes the caller's result register.
func (m *VM) deliver(v Value, l linkage, baseRB int) error {
	if len(l.pending) > 0 {
		return m.applyValue(v, l.pending, linkage{
			returnIP:  l.returnIP,
			resultReg: l.resultReg,
		}, baseRB)
	}
	if m.frameCount == 0 {
		m.halted = true
		m.result = v
		return nil
	}
	caller := m.frames[m.frameCount-1]
	m.rb = caller.rb
	m.regs[caller.rb+l.resultReg] = v
	m.ip = l.returnIP
	return nil
}

// doReturn pops the current frame and delivers v through its linkage. The
// popped frame's bank is reused for any pending re-application.
func (m *VM) doReturn(v Value) error {
	top := m.frames[m.frameCount-1]
	m.frameCount--
	return m.deliver(v, linkage{
		returnIP:  top.returnIP,
		resultReg: top.resultReg,
		pending:   top.pending,
	}, top.rb)
}
