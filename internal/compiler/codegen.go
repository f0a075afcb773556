package compiler

import "github.com/larkvm/lark/internal/vm"

// maxRegisters is the per-frame register bank; the 5-bit register fields
// make it a firm limit and exceeding it is a compile error.
const maxRegisters = 32

// ctKind tags the compile-time constants that drive local emission
// decisions for ConstantFreeVar materialization. These are distinct from
// const-table entries.
type ctKind uint8

const (
	ctNumber ctKind = iota
	ctSymbol
	ctCompound
	ctString
	ctLambda
)

type ctConst struct {
	kind ctKind
	num  int32
	id   int // symbol id
	addr int // const-table address
	fn   int // function index
}

type generator struct {
	pool  *ConstPool
	funcs [][]Tac
}

// Generate lowers a resolved NST into per-function TAC listings. Function
// index 0 is the entry.
func Generate(top Expr, pool *ConstPool) ([][]Tac, error) {
	g := &generator{pool: pool}
	entry := &Lambda{Body: top, SelfSlot: -1}
	if _, err := g.compileFunction(entry, nil); err != nil {
		return nil, err
	}
	return g.funcs, nil
}

// funcScope is the per-function emission state: the register maps, the
// direct-call set, and the chained compile-time constants.
type funcScope struct {
	gen    *generator
	parent *funcScope

	params map[string]int
	frees  map[string]int
	locals map[string]int

	// direct marks registers holding a static function address, callable
	// with call/tail_call instead of the generic apply path.
	direct map[int]bool

	consts map[string]ctConst

	nextReg  int
	capFloor int // registers at and above this are reserved capture slots

	code []Tac
}

func (g *generator) compileFunction(l *Lambda, parent *funcScope) (int, error) {
	idx := len(g.funcs)
	g.funcs = append(g.funcs, nil)

	fs := &funcScope{
		gen:      g,
		parent:   parent,
		params:   make(map[string]int),
		frees:    make(map[string]int),
		locals:   make(map[string]int),
		direct:   make(map[int]bool),
		consts:   make(map[string]ctConst),
		capFloor: maxRegisters,
	}
	for i, f := range l.Free {
		fs.frees[f.Name] = i
	}
	for i, p := range l.Params {
		fs.params[p] = len(l.Free) + i
	}
	fs.nextReg = len(l.Free) + len(l.Params)

	fs.emit(ri(vm.OpFunHeader, len(l.Free), len(l.Params)))

	target, err := fs.newReg()
	if err != nil {
		return 0, err
	}
	done, err := fs.compileExpr(l.Body, target, true)
	if err != nil {
		return 0, err
	}
	if !done {
		fs.emit(rrr(vm.OpRet, target, 0, 0))
	}

	g.funcs[idx] = fs.code
	return idx, nil
}

func (fs *funcScope) emit(t Tac) {
	fs.code = append(fs.code, t)
}

func (fs *funcScope) newReg() (int, error) {
	if fs.nextReg >= fs.capFloor {
		return 0, internalErrorf("register bank exhausted (%d registers)", maxRegisters)
	}
	r := fs.nextReg
	fs.nextReg++
	return r, nil
}

func (fs *funcScope) regOfVar(v Var) (int, error) {
	switch v.Kind {
	case LocalVar:
		if r, ok := fs.locals[v.Name]; ok {
			return r, nil
		}
	case FunParam:
		if r, ok := fs.params[v.Name]; ok {
			return r, nil
		}
	case DynamicFreeVar:
		if r, ok := fs.frees[v.Name]; ok {
			return r, nil
		}
	}
	return 0, internalErrorf("unknown variable %q (%s) at codegen", v.Name, v.Kind)
}

// regOfName resolves a free-variable capture in the enclosing function:
// the name may be a local, a parameter, or a capture of the enclosing
// function itself.
func (fs *funcScope) regOfName(name string) (int, error) {
	if r, ok := fs.locals[name]; ok {
		return r, nil
	}
	if r, ok := fs.params[name]; ok {
		return r, nil
	}
	if r, ok := fs.frees[name]; ok {
		return r, nil
	}
	return 0, internalErrorf("unknown capture %q at codegen", name)
}

// findConst walks the scope chain for the compile-time constant bound to
// name, as ConstantFreeVar materialization requires.
func (fs *funcScope) findConst(name string) (ctConst, bool) {
	for s := fs; s != nil; s = s.parent {
		if c, ok := s.consts[name]; ok {
			return c, true
		}
	}
	return ctConst{}, false
}

// compileExpr emits code leaving the expression's value in target. tail
// marks result position; the return value reports whether every emitted
// path already ended in a tail call, making the caller's ret dead.
func (fs *funcScope) compileExpr(e Expr, target int, tail bool) (bool, error) {
	switch e := e.(type) {
	case *Let:
		reg, err := fs.newReg()
		if err != nil {
			return false, err
		}
		ct, _, err := fs.emitAtom(e.Atom, reg, false)
		if err != nil {
			return false, err
		}
		fs.locals[e.Name] = reg
		if ct != nil {
			fs.consts[e.Name] = *ct
			if ct.kind == ctLambda {
				fs.direct[reg] = true
			}
		}
		return fs.compileExpr(e.Body, target, tail)

	case *AtomExpr:
		_, done, err := fs.emitAtom(e.Atom, target, tail)
		return done, err
	}
	return false, internalErrorf("unhandled NST expression %T", e)
}

// emitAtom emits one atom into target. It reports the compile-time
// constant the atom denotes (if any) and whether emission ended in a tail
// call.
func (fs *funcScope) emitAtom(a Atom, target int, tail bool) (*ctConst, bool, error) {
	switch a := a.(type) {
	case *Number:
		fs.emitLoadNumber(target, a.Value)
		return &ctConst{kind: ctNumber, num: a.Value}, false, nil

	case *PlainSymbol:
		fs.emit(ri(vm.OpLoadPS, target, a.ID))
		return &ctConst{kind: ctSymbol, id: a.ID}, false, nil

	case *Str:
		fs.emit(ri(vm.OpLoadStr, target, a.Addr))
		return &ctConst{kind: ctString, addr: a.Addr}, false, nil

	case *CompoundSymbol:
		if len(a.Fills) == 0 {
			fs.emit(ri(vm.OpLoadCS, target, a.Addr))
			return &ctConst{kind: ctCompound, addr: a.Addr}, false, nil
		}
		fs.emit(ri(vm.OpCopySym, target, a.Addr))
		for _, fill := range a.Fills {
			reg, err := fs.regOfVar(fill.Var)
			if err != nil {
				return nil, false, err
			}
			fs.emit(rrr(vm.OpSetSymField, target, reg, fill.Slot))
		}
		return nil, false, nil

	case *PrimOp:
		return nil, false, fs.emitPrim(a, target)

	case *VarRef:
		return fs.emitVar(a.Var, target)

	case *Lambda:
		return fs.emitLambda(a, target)

	case *FunAp:
		done, err := fs.emitCall(a.Fn, a.Args, target, tail)
		return nil, done, err

	case *PartAp:
		if err := fs.emitArgs(a.Args); err != nil {
			return nil, false, err
		}
		fnReg, err := fs.regOfVar(a.Fn)
		if err != nil {
			return nil, false, err
		}
		fs.emit(rrr(vm.OpPartAp, target, fnReg, len(a.Args)))
		return nil, false, nil

	case *Match:
		done, err := fs.emitMatch(a, target, tail)
		return nil, done, err

	case *Module:
		fs.emit(ri(vm.OpCopySym, target, a.Addr))
		for _, f := range a.Fields {
			reg, err := fs.regOfVar(f.Var)
			if err != nil {
				return nil, false, err
			}
			fs.emit(rrr(vm.OpSetSymField, target, reg, f.Slot))
		}
		return nil, false, nil

	case *ModuleLookup:
		modReg, err := fs.regOfVar(a.Mod)
		if err != nil {
			return nil, false, err
		}
		symReg, err := fs.newReg()
		if err != nil {
			return nil, false, err
		}
		fs.emit(ri(vm.OpLoadPS, symReg, a.SymID))
		fs.emit(rrr(vm.OpLookup, target, modReg, symReg))
		return nil, false, nil
	}
	return nil, false, internalErrorf("unhandled atom %T", a)
}

// emitLoadNumber loads small non-negative numbers inline and routes the
// rest through the const table.
func (fs *funcScope) emitLoadNumber(target int, v int32) {
	if v >= 0 && int(v) <= vm.MaxImmediate {
		fs.emit(ri(vm.OpLoadI, target, int(v)))
		return
	}
	fs.emit(ri(vm.OpLoadC, target, fs.gen.pool.AddPlain(vm.NumberValue(v))))
}

var primTacOps = map[PrimKind]vm.Opcode{
	PrimAdd: vm.OpAdd,
	PrimSub: vm.OpSub,
	PrimMul: vm.OpMul,
	PrimDiv: vm.OpDiv,
	PrimLt:  vm.OpLt,
	PrimGt:  vm.OpGt,
	PrimEq:  vm.OpEq,
	PrimAnd: vm.OpAnd,
	PrimOr:  vm.OpOr,
	PrimNot: vm.OpNot,
}

func (fs *funcScope) emitPrim(a *PrimOp, target int) error {
	op := primTacOps[a.Op]
	regs := make([]int, len(a.Args))
	for i, arg := range a.Args {
		r, err := fs.regOfVar(arg)
		if err != nil {
			return err
		}
		regs[i] = r
	}
	if a.Op == PrimNot {
		fs.emit(rrr(op, target, regs[0], 0))
		return nil
	}
	fs.emit(rrr(op, target, regs[0], regs[1]))
	return nil
}

// emitVar materializes a variable use. Dynamic variables move between
// registers; a ConstantFreeVar re-emits the constant recorded in an outer
// scope.
func (fs *funcScope) emitVar(v Var, target int) (*ctConst, bool, error) {
	switch v.Kind {
	case LocalVar, FunParam, DynamicFreeVar:
		reg, err := fs.regOfVar(v)
		if err != nil {
			return nil, false, err
		}
		fs.emit(rrr(vm.OpMove, target, reg, 0))
		if c, ok := fs.consts[v.Name]; ok && v.Kind == LocalVar {
			return &c, false, nil
		}
		return nil, false, nil

	case ConstantFreeVar:
		c, ok := fs.findConst(v.Name)
		if !ok {
			return nil, false, internalErrorf("constant free variable %q has no recorded constant", v.Name)
		}
		switch c.kind {
		case ctNumber:
			fs.emitLoadNumber(target, c.num)
		case ctSymbol:
			fs.emit(ri(vm.OpLoadPS, target, c.id))
		case ctCompound:
			fs.emit(ri(vm.OpLoadCS, target, c.addr))
		case ctString:
			fs.emit(ri(vm.OpLoadStr, target, c.addr))
		case ctLambda:
			fs.emit(loadFunc(target, c.fn))
		}
		return &c, false, nil

	case RecursiveVar:
		return nil, false, internalErrorf("recursive reference %q survived resolution", v.Name)
	}
	return nil, false, internalErrorf("unhandled var kind %s", v.Kind)
}

// emitLambda compiles the nested function and materializes it: a bare
// function address for zero-capture lambdas, otherwise a closure built
// from staged captures, with the self-reference slot patched after
// allocation.
func (fs *funcScope) emitLambda(l *Lambda, target int) (*ctConst, bool, error) {
	fnIdx, err := fs.gen.compileFunction(l, fs)
	if err != nil {
		return nil, false, err
	}

	if len(l.Free) == 0 {
		fs.emit(loadFunc(target, fnIdx))
		return &ctConst{kind: ctLambda, fn: fnIdx}, false, nil
	}

	for i, f := range l.Free {
		if i == l.SelfSlot {
			// The self slot is patched by set_cl_val once the record
			// exists; stage anything register-shaped meanwhile.
			fs.emit(rrr(vm.OpSetArg, i, target, 0))
			continue
		}
		reg, err := fs.regOfName(f.Name)
		if err != nil {
			return nil, false, err
		}
		fs.emit(rrr(vm.OpSetArg, i, reg, 0))
	}
	fs.emit(loadFunc(target, fnIdx))
	fs.emit(rrr(vm.OpMakeCl, target, target, len(l.Free)))
	if l.SelfSlot >= 0 {
		fs.emit(rrr(vm.OpSetClVal, target, target, l.SelfSlot))
	}
	return nil, false, nil
}

func (fs *funcScope) emitArgs(args []Var) error {
	for i, arg := range args {
		reg, err := fs.regOfVar(arg)
		if err != nil {
			return err
		}
		fs.emit(rrr(vm.OpSetArg, i, reg, 0))
	}
	return nil
}

// emitCall stages the arguments and dispatches on (direct-call register,
// tail position) to pick the call instruction.
func (fs *funcScope) emitCall(fn Var, args []Var, target int, tail bool) (bool, error) {
	if err := fs.emitArgs(args); err != nil {
		return false, err
	}
	fnReg, err := fs.regOfVar(fn)
	if err != nil {
		return false, err
	}

	op := vm.OpGenAp
	if fs.direct[fnReg] {
		op = vm.OpCall
		if tail {
			op = vm.OpTailCall
		}
	} else if tail {
		op = vm.OpTailGenAp
	}
	fs.emit(rrr(op, target, fnReg, len(args)))
	return tail, nil
}
