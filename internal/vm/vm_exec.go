package vm

// exec is the fetch/decode/dispatch loop. It runs until the entry frame
// returns or an instruction traps.
func (m *VM) exec() (Value, error) {
	code := m.prog.Code
	for {
		if m.ip < 0 || m.ip >= len(code) {
			return 0, m.trap("instruction pointer out of bounds (%d)", m.ip)
		}
		in := code[m.ip]
		m.ip++

		switch in.Op() {
		case OpRet:
			if err := m.doReturn(m.reg(in.R0())); err != nil {
				return 0, err
			}

		case OpLoadI:
			m.setReg(in.R0(), NumberValue(int32(in.Imm())))

		case OpLoadPS:
			m.setReg(in.R0(), SymbolValue(in.Imm()))

		case OpLoadCS:
			m.setReg(in.R0(), CompoundValue(in.Imm()))

		case OpLoadC:
			imm := in.Imm()
			if imm >= len(m.consts) {
				return 0, m.trap("const address %d out of range", imm)
			}
			m.setReg(in.R0(), m.consts[imm])

		case OpLoadF:
			m.setReg(in.R0(), FunctionValue(in.Imm()))

		case OpLoadStr:
			m.setReg(in.R0(), StringValue(in.Imm()))

		case OpAdd, OpSub, OpMul, OpDiv:
			if err := m.arith(in); err != nil {
				return 0, err
			}

		case OpMove:
			m.setReg(in.R0(), m.reg(in.R1()))

		case OpEq:
			m.setReg(in.R0(), BoolValue(m.reg(in.R1()) == m.reg(in.R2())))

		case OpLt, OpGt:
			a, b := m.reg(in.R1()), m.reg(in.R2())
			if a.Tag() != TagNumber || b.Tag() != TagNumber {
				return 0, m.trap("%s needs numbers, got %s and %s", in.Op(), a.Tag(), b.Tag())
			}
			if in.Op() == OpLt {
				m.setReg(in.R0(), BoolValue(a.Number() < b.Number()))
			} else {
				m.setReg(in.R0(), BoolValue(a.Number() > b.Number()))
			}

		case OpAnd, OpOr:
			a, err := m.boolReg(in.R1())
			if err != nil {
				return 0, err
			}
			b, err := m.boolReg(in.R2())
			if err != nil {
				return 0, err
			}
			if in.Op() == OpAnd {
				m.setReg(in.R0(), BoolValue(a && b))
			} else {
				m.setReg(in.R0(), BoolValue(a || b))
			}

		case OpNot:
			a, err := m.boolReg(in.R1())
			if err != nil {
				return 0, err
			}
			m.setReg(in.R0(), BoolValue(!a))

		case OpSetArg:
			dst, src, span := in.R0(), in.R1(), in.R2()
			for j := 0; j <= span; j++ {
				m.regs[m.rb+frameSize+dst+j] = m.reg(src + j)
			}

		case OpCall, OpGenAp:
			args := m.stagedArgs(in.R2())
			if err := m.applyValue(m.reg(in.R1()), args, linkage{
				returnIP:  m.ip,
				resultReg: in.R0(),
			}, m.rb+frameSize); err != nil {
				return 0, err
			}

		case OpTailCall, OpTailGenAp:
			args := m.stagedArgs(in.R2())
			callee := m.reg(in.R1())
			top := m.frames[m.frameCount-1]
			m.frameCount--
			if err := m.applyValue(callee, args, linkage{
				returnIP:  top.returnIP,
				resultReg: top.resultReg,
				pending:   top.pending,
			}, top.rb); err != nil {
				return 0, err
			}

		case OpPartAp:
			args := m.stagedArgs(in.R2())
			m.setReg(in.R0(), ClosureValue(m.allocPap(m.reg(in.R1()), args)))

		case OpMakeCl:
			captures := m.stagedArgs(in.R2())
			code := m.reg(in.R1())
			if code.Tag() != TagFunction {
				return 0, m.trap("make_cl needs a function, got %s", code.Tag())
			}
			m.setReg(in.R0(), ClosureValue(m.allocClosure(code, captures)))

		case OpSetClVal:
			cl := m.reg(in.R0())
			if cl.Tag() != TagClosure {
				return 0, m.trap("set_cl_val needs a closure, got %s", cl.Tag())
			}
			m.heap[cl.Addr()+1+in.R2()] = m.reg(in.R1())

		case OpCopySym:
			m.setReg(in.R0(), HeapSymValue(m.copySymbol(in.Imm())))

		case OpSetSymField:
			sym := m.reg(in.R0())
			if sym.Tag() != TagHeapSym {
				return 0, m.trap("set_sym_field needs a heap symbol, got %s", sym.Tag())
			}
			m.heap[sym.Addr()+1+in.R2()] = m.reg(in.R1())

		case OpJmp:
			m.ip += in.Imm()

		case OpMatch:
			subject := m.reg(in.R0())
			pat := m.reg(in.R1())
			branch, err := m.matchSubject(subject, pat.Addr(), in.R2())
			if err != nil {
				return 0, err
			}
			m.ip += branch

		case OpLookup:
			v, err := m.lookupField(m.reg(in.R1()), m.reg(in.R2()))
			if err != nil {
				return 0, err
			}
			m.setReg(in.R0(), v)

		case OpFunHeader:
			// Only reached by falling through, never by a call; skip.

		default:
			return 0, m.trap("illegal opcode %d", in.Op())
		}

		if m.halted {
			return m.result, nil
		}
	}
}

func (m *VM) reg(i int) Value { return m.regs[m.rb+i] }

func (m *VM) setReg(i int, v Value) { m.regs[m.rb+i] = v }

func (m *VM) boolReg(i int) (bool, error) {
	v := m.reg(i)
	switch v {
	case TrueValue:
		return true, nil
	case FalseValue:
		return false, nil
	}
	return false, m.trap("expected a boolean, got %s", v.Tag())
}

func (m *VM) arith(in Instruction) error {
	a, b := m.reg(in.R1()), m.reg(in.R2())
	if a.Tag() != TagNumber || b.Tag() != TagNumber {
		return m.trap("%s needs numbers, got %s and %s", in.Op(), a.Tag(), b.Tag())
	}
	x, y := a.Number(), b.Number()
	var r int32
	switch in.Op() {
	case OpAdd:
		r = x + y
	case OpSub:
		r = x - y
	case OpMul:
		r = x * y
	case OpDiv:
		if y == 0 {
			return m.trap("division by zero")
		}
		r = x / y
	}
	m.setReg(in.R0(), NumberValue(r))
	return nil
}

// lookupField scans the (key, value) payload pairs of a module record.
func (m *VM) lookupField(mod, key Value) (Value, error) {
	var payload []Value
	switch mod.Tag() {
	case TagHeapSym:
		header := m.heap[mod.Addr()]
		payload = m.heap[mod.Addr()+1 : mod.Addr()+1+header.HeaderArity()]
	case TagCompound:
		_, arity, p := m.consts.CompoundAt(mod.Addr())
		_ = arity
		payload = p
	default:
		return 0, m.trap("lookup needs a module, got %s", mod.Tag())
	}
	for i := 0; i+1 < len(payload); i += 2 {
		if payload[i] == key {
			return payload[i+1], nil
		}
	}
	return 0, m.trap("module has no field %q", m.SymbolName(int(key.Payload())))
}
