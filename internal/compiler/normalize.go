package compiler

import (
	"fmt"

	"github.com/larkvm/lark/internal/ast"
	"github.com/larkvm/lark/internal/vm"
)

// The normalizer lowers the AST into A-normal form with a continuation
// discipline: every non-trivial sub-expression is hoisted into a fresh
// let-bound local whose atom is the sub-expression's normalized form.

type cont func(Atom) (Expr, error)

func atomCont(a Atom) (Expr, error) { return &AtomExpr{Atom: a}, nil }

type primSpec struct {
	kind  PrimKind
	arity int
}

var primOps = map[string]primSpec{
	"+":   {PrimAdd, 2},
	"add": {PrimAdd, 2},
	"-":   {PrimSub, 2},
	"sub": {PrimSub, 2},
	"*":   {PrimMul, 2},
	"mul": {PrimMul, 2},
	"/":   {PrimDiv, 2},
	"div": {PrimDiv, 2},
	"<":   {PrimLt, 2},
	"lt":  {PrimLt, 2},
	">":   {PrimGt, 2},
	"gt":  {PrimGt, 2},
	"==":  {PrimEq, 2},
	"eq":  {PrimEq, 2},
	"&&":  {PrimAnd, 2},
	"and": {PrimAnd, 2},
	"||":  {PrimOr, 2},
	"or":  {PrimOr, 2},
	"!":   {PrimNot, 1},
	"not": {PrimNot, 1},
}

// maxCompoundArity is bound by the 8-bit arity field of the cell header.
const maxCompoundArity = 255

type Normalizer struct {
	syms    *SymbolTable
	arities *ArityTable
	pool    *ConstPool
	ctx     *contextStack
	tmp     int
}

// Normalize runs pass 1 over a program: A-normalization with free-variable
// classification. RecursiveVar placeholders are left for Resolve.
func Normalize(prog *ast.Program, syms *SymbolTable, pool *ConstPool) (Expr, error) {
	n := &Normalizer{
		syms:    syms,
		arities: NewArityTable(),
		pool:    pool,
		ctx:     newContextStack(),
	}
	if len(prog.Statements) == 0 {
		return nil, codeErrorf(prog.Tok(), "empty program")
	}
	return n.normStatements(prog.Statements, atomCont)
}

func (n *Normalizer) gensym() string {
	n.tmp++
	return fmt.Sprintf("$v:%d", n.tmp)
}

// isConstantAtom reports whether an atom is a compile-time constant: a
// plain literal, a constant compound symbol, or a non-closure lambda.
func isConstantAtom(a Atom) bool {
	switch a := a.(type) {
	case *Number, *PlainSymbol, *Str:
		return true
	case *CompoundSymbol:
		return len(a.Fills) == 0
	case *Lambda:
		return len(a.Free) == 0 && !a.selfUsed
	}
	return false
}

// normStatements lowers a statement sequence; the last statement's value
// is the sequence's value.
func (n *Normalizer) normStatements(stmts []ast.Statement, k cont) (Expr, error) {
	stmt := stmts[0]
	last := len(stmts) == 1

	switch stmt := stmt.(type) {
	case *ast.ValStatement:
		name := stmt.Name.Value
		return n.normExpr(stmt.Value, name, func(a Atom) (Expr, error) {
			n.ctx.top().bind(name, LocalVar, isConstantAtom(a))
			var body Expr
			var err error
			if last {
				body, err = k(&VarRef{Var: Var{Name: name, Kind: LocalVar}})
			} else {
				body, err = n.normStatements(stmts[1:], k)
			}
			if err != nil {
				return nil, err
			}
			return &Let{Name: name, Atom: a, Body: body}, nil
		})

	case *ast.ExpressionStatement:
		if last {
			return n.normExpr(stmt.Expression, "", k)
		}
		return n.normExpr(stmt.Expression, "", func(a Atom) (Expr, error) {
			tmp := n.gensym()
			n.ctx.top().bind(tmp, LocalVar, isConstantAtom(a))
			body, err := n.normStatements(stmts[1:], k)
			if err != nil {
				return nil, err
			}
			return &Let{Name: tmp, Atom: a, Body: body}, nil
		})
	}
	return nil, internalErrorf("unhandled statement %T", stmt)
}

// normExpr lowers one expression. name is the binding name when the
// expression is the right-hand side of a val, used for recursion and
// arity registration.
func (n *Normalizer) normExpr(e ast.Expression, name string, k cont) (Expr, error) {
	switch e := e.(type) {
	case *ast.NumberLiteral:
		if e.Value < vm.MinNumber || e.Value > vm.MaxNumber {
			return nil, codeErrorf(e.Token, "number %d does not fit the 28-bit value domain", e.Value)
		}
		return k(&Number{Value: int32(e.Value)})

	case *ast.StringLiteral:
		return k(&Str{Addr: n.pool.AddString(e.Value)})

	case *ast.SymbolLiteral:
		return k(&PlainSymbol{ID: n.syms.Intern(e.Name)})

	case *ast.Identifier:
		return n.normIdent(e, k)

	case *ast.FieldAccess:
		symID := n.syms.Intern(e.Field)
		return n.nameExpr(e.Module, func(mod Var) (Expr, error) {
			return k(&ModuleLookup{Mod: mod, SymID: symID})
		})

	case *ast.CallExpression:
		return n.normCall(e, k)

	case *ast.LambdaExpression:
		atom, err := n.normLambda(name, identNames(e.Params), e.Body, false)
		if err != nil {
			return nil, err
		}
		return k(atom)

	case *ast.BlockExpression:
		if len(e.Statements) == 0 {
			return nil, codeErrorf(e.Token, "empty block")
		}
		return n.normStatements(e.Statements, k)

	case *ast.MatchExpression:
		return n.normMatch(e, k)

	case *ast.ModuleExpression:
		return n.normModule(e, k)
	}
	return nil, internalErrorf("unhandled expression %T", e)
}

func identNames(ids []*ast.Identifier) []string {
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Value
	}
	return names
}

// normIdent emits a variable use. Direct vars pass through; a constant
// free var is let-bound under a synthetic name once per scope and reused;
// a recursive var is let-bound for the resolver to rewrite.
func (n *Normalizer) normIdent(e *ast.Identifier, k cont) (Expr, error) {
	v, ok := n.ctx.lookup(e.Value)
	if !ok {
		return nil, codeErrorf(e.Token, "unknown identifier %q", e.Value)
	}

	switch v.Kind {
	case LocalVar, FunParam, DynamicFreeVar:
		return k(&VarRef{Var: v})

	case ConstantFreeVar:
		cur := n.ctx.top()
		if alias, ok := cur.constAliases[e.Value]; ok {
			return k(&VarRef{Var: Var{Name: alias, Kind: LocalVar}})
		}
		alias := "$locconst:" + e.Value
		cur.constAliases[e.Value] = alias
		cur.bind(alias, LocalVar, true)
		body, err := k(&VarRef{Var: Var{Name: alias, Kind: LocalVar}})
		if err != nil {
			return nil, err
		}
		return &Let{Name: alias, Atom: &VarRef{Var: v}, Body: body}, nil

	case RecursiveVar:
		tmp := n.gensym()
		n.ctx.top().bind(tmp, LocalVar, false)
		body, err := k(&VarRef{Var: Var{Name: tmp, Kind: LocalVar}})
		if err != nil {
			return nil, err
		}
		return &Let{Name: tmp, Atom: &VarRef{Var: v}, Body: body}, nil
	}
	return nil, internalErrorf("unhandled var kind %s", v.Kind)
}

// nameExpr hoists an expression into a variable unless it already is one.
func (n *Normalizer) nameExpr(e ast.Expression, k func(Var) (Expr, error)) (Expr, error) {
	return n.normExpr(e, "", func(a Atom) (Expr, error) {
		if vr, ok := a.(*VarRef); ok {
			switch vr.Var.Kind {
			case LocalVar, FunParam, DynamicFreeVar:
				return k(vr.Var)
			}
		}
		tmp := n.gensym()
		n.ctx.top().bind(tmp, LocalVar, isConstantAtom(a))
		body, err := k(Var{Name: tmp, Kind: LocalVar})
		if err != nil {
			return nil, err
		}
		return &Let{Name: tmp, Atom: a, Body: body}, nil
	})
}

func (n *Normalizer) nameExprList(exprs []ast.Expression, k func([]Var) (Expr, error)) (Expr, error) {
	vars := make([]Var, 0, len(exprs))
	var step func(int) (Expr, error)
	step = func(i int) (Expr, error) {
		if i == len(exprs) {
			return k(vars)
		}
		return n.nameExpr(exprs[i], func(v Var) (Expr, error) {
			vars = append(vars, v)
			return step(i + 1)
		})
	}
	return step(0)
}

// normCall lowers an application: primitive op, compound-symbol
// construction, or function application with the saturation rules.
func (n *Normalizer) normCall(call *ast.CallExpression, k cont) (Expr, error) {
	if sym, ok := call.Function.(*ast.SymbolLiteral); ok {
		return n.normCompound(sym, call.Args, k)
	}

	if id, ok := call.Function.(*ast.Identifier); ok {
		if prim, isPrim := primOps[id.Value]; isPrim && len(call.Args) == prim.arity {
			return n.nameExprList(call.Args, func(args []Var) (Expr, error) {
				return k(&PrimOp{Op: prim.kind, Args: args})
			})
		}
		return n.normKnownCall(id, call.Args, k)
	}

	// Computed callee: arity unknown, defer saturation to gen_ap.
	return n.nameExpr(call.Function, func(fn Var) (Expr, error) {
		return n.nameExprList(call.Args, func(args []Var) (Expr, error) {
			return k(&FunAp{Fn: fn, Args: args})
		})
	})
}

// normKnownCall applies an identifier head using the arity table to pick
// between saturated application, partial application and re-application of
// an over-saturated result.
func (n *Normalizer) normKnownCall(id *ast.Identifier, argExprs []ast.Expression, k cont) (Expr, error) {
	arity, known := n.arities.Get(id.Value)

	return n.nameExpr(id, func(fn Var) (Expr, error) {
		return n.nameExprList(argExprs, func(args []Var) (Expr, error) {
			if !known || len(args) == arity.Params {
				return k(&FunAp{Fn: fn, Args: args})
			}

			if len(args) < arity.Params {
				if arity.Frees > 0 {
					return nil, internalErrorf("static partial application of closure %q", id.Value)
				}
				return k(&PartAp{Fn: fn, Args: args})
			}

			// Over-saturated: consume the formal arity, then apply the
			// result to the remaining arguments.
			tmp := n.gensym()
			n.ctx.top().bind(tmp, LocalVar, false)
			body, err := k(&FunAp{Fn: Var{Name: tmp, Kind: LocalVar}, Args: args[arity.Params:]})
			if err != nil {
				return nil, err
			}
			return &Let{
				Name: tmp,
				Atom: &FunAp{Fn: fn, Args: args[:arity.Params]},
				Body: body,
			}, nil
		})
	})
}

// staticConstant recognizes fully static symbols: numbers, plain symbols,
// and compound symbols all of whose arguments are static.
func (n *Normalizer) staticConstant(e ast.Expression) (constant, bool, error) {
	switch e := e.(type) {
	case *ast.NumberLiteral:
		if e.Value < vm.MinNumber || e.Value > vm.MaxNumber {
			return nil, false, codeErrorf(e.Token, "number %d does not fit the 28-bit value domain", e.Value)
		}
		return cNumber{Value: int32(e.Value)}, true, nil
	case *ast.SymbolLiteral:
		return cPlainSymbol{ID: n.syms.Intern(e.Name)}, true, nil
	case *ast.CallExpression:
		sym, ok := e.Function.(*ast.SymbolLiteral)
		if !ok {
			return nil, false, nil
		}
		if len(e.Args) > maxCompoundArity {
			return nil, false, codeErrorf(e.Token, "compound symbol arity %d exceeds %d", len(e.Args), maxCompoundArity)
		}
		children := make([]constant, len(e.Args))
		for i, arg := range e.Args {
			c, static, err := n.staticConstant(arg)
			if err != nil || !static {
				return nil, false, err
			}
			children[i] = c
		}
		return cCompound{SymID: n.syms.Intern(sym.Name), Children: children}, true, nil
	}
	return nil, false, nil
}

// normCompound lowers a compound-symbol construction. Fully static
// compounds are encoded into the const table; otherwise a template cell is
// built with placeholders and the dynamic slots are filled at run time.
func (n *Normalizer) normCompound(sym *ast.SymbolLiteral, args []ast.Expression, k cont) (Expr, error) {
	if len(args) > maxCompoundArity {
		return nil, codeErrorf(sym.Token, "compound symbol arity %d exceeds %d", len(args), maxCompoundArity)
	}
	symID := n.syms.Intern(sym.Name)

	children := make([]constant, len(args))
	static := true
	for i, arg := range args {
		c, isStatic, err := n.staticConstant(arg)
		if err != nil {
			return nil, err
		}
		if !isStatic {
			static = false
			break
		}
		children[i] = c
	}

	if static {
		word := n.pool.AddConstant(cCompound{SymID: symID, Children: children})
		return k(&CompoundSymbol{Addr: word.Addr()})
	}

	payload := make([]vm.Value, len(args))
	var fills []SlotFill
	var step func(int) (Expr, error)
	step = func(i int) (Expr, error) {
		if i == len(args) {
			addr := n.pool.AddCompoundWords(symID, payload)
			return k(&CompoundSymbol{Addr: addr, Fills: fills})
		}
		c, isStatic, err := n.staticConstant(args[i])
		if err != nil {
			return nil, err
		}
		if isStatic {
			payload[i] = n.pool.AddConstant(c)
			return step(i + 1)
		}
		return n.nameExpr(args[i], func(v Var) (Expr, error) {
			payload[i] = vm.NumberValue(0)
			fills = append(fills, SlotFill{Slot: i, Var: v})
			return step(i + 1)
		})
	}
	return step(0)
}

// normLambda normalizes a lambda or match-branch body in a fresh scope and
// pulls its dynamic free variables up into the enclosing scope.
func (n *Normalizer) normLambda(name string, params []string, body ast.Expression, isBranch bool) (Atom, error) {
	n.ctx.push(params, name)
	bodyExpr, err := n.normExpr(body, "", atomCont)
	if err != nil {
		n.ctx.pop()
		return nil, err
	}
	s := n.ctx.pop()

	frees := make([]Var, len(s.freeOrder))
	enclosing := n.ctx.top()
	for i, fn := range s.freeOrder {
		frees[i] = Var{Name: fn, Kind: DynamicFreeVar}
		if _, bound := enclosing.bindings[fn]; bound {
			continue
		}
		if enclosing.selfName == fn {
			continue
		}
		enclosing.addFree(fn)
	}

	if name != "" {
		n.arities.Set(name, len(frees), len(params))
	}
	return &Lambda{
		Name:     name,
		Free:     frees,
		Params:   params,
		Body:     bodyExpr,
		SelfSlot: -1,
		IsBranch: isBranch,
		selfUsed: s.usedSelf,
	}, nil
}

// normMatch lowers a match: the subject is name-hoisted, each branch body
// becomes a branch lambda over its matched vars, and the pattern roots are
// encoded into one match-data cell.
func (n *Normalizer) normMatch(m *ast.MatchExpression, k cont) (Expr, error) {
	return n.nameExpr(m.Subject, func(subject Var) (Expr, error) {
		roots := make([]constant, len(m.Branches))
		captures := make([][]string, len(m.Branches))
		maxCaps := 0
		for i, arm := range m.Branches {
			slot := 0
			names, c, err := n.encodePattern(arm.Pattern, &slot)
			if err != nil {
				return nil, err
			}
			roots[i] = c
			captures[i] = names
			if len(names) > maxCaps {
				maxCaps = len(names)
			}
		}
		patAddr := n.pool.AddMatchData(roots)

		branchVars := make([]Var, len(m.Branches))
		branchCaps := make([]int, len(m.Branches))
		var step func(int) (Expr, error)
		step = func(i int) (Expr, error) {
			if i == len(m.Branches) {
				return k(&Match{
					MaxCaps:    maxCaps,
					Subject:    subject,
					PatAddr:    patAddr,
					Branches:   branchVars,
					BranchCaps: branchCaps,
				})
			}
			atom, err := n.normLambda("", captures[i], m.Branches[i].Body, true)
			if err != nil {
				return nil, err
			}
			tmp := n.gensym()
			n.ctx.top().bind(tmp, LocalVar, isConstantAtom(atom))
			branchVars[i] = Var{Name: tmp, Kind: LocalVar}
			branchCaps[i] = len(captures[i])
			body, err := step(i + 1)
			if err != nil {
				return nil, err
			}
			return &Let{Name: tmp, Atom: atom, Body: body}, nil
		}
		return step(0)
	})
}

// normModule lowers a module literal: bindings are let-bound in order, a
// template cell of (key, placeholder) pairs is built, and the value slots
// are filled from the bindings at run time.
func (n *Normalizer) normModule(m *ast.ModuleExpression, k cont) (Expr, error) {
	moduleSym := n.syms.Intern("module")
	if 2*len(m.Bindings) > maxCompoundArity {
		return nil, codeErrorf(m.Token, "module has too many bindings (%d)", len(m.Bindings))
	}

	fields := make([]ModuleField, len(m.Bindings))
	payload := make([]vm.Value, 2*len(m.Bindings))

	var step func(int) (Expr, error)
	step = func(i int) (Expr, error) {
		if i == len(m.Bindings) {
			addr := n.pool.AddCompoundWords(moduleSym, payload)
			return k(&Module{Addr: addr, Fields: fields})
		}
		b := m.Bindings[i]
		name := b.Name.Value
		return n.normExpr(b.Value, name, func(a Atom) (Expr, error) {
			n.ctx.top().bind(name, LocalVar, isConstantAtom(a))
			payload[2*i] = vm.SymbolValue(n.syms.Intern(name))
			payload[2*i+1] = vm.NumberValue(0)
			fields[i] = ModuleField{Slot: 2*i + 1, Var: Var{Name: name, Kind: LocalVar}}
			body, err := step(i + 1)
			if err != nil {
				return nil, err
			}
			return &Let{Name: name, Atom: a, Body: body}, nil
		})
	}
	return step(0)
}
