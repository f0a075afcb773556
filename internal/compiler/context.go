package compiler

// The context stack models lexical scopes during normalization. Entering a
// lambda or match branch pushes a scope seeded with its formal parameters;
// let-bindings accumulate in the scope of the enclosing function.

type binding struct {
	v        Var
	constant bool
}

type scope struct {
	bindings map[string]*binding

	// Dynamic free names referenced from inside this scope, in first-use
	// order. The order fixes the closure's capture slots.
	frees     map[string]bool
	freeOrder []string

	// selfName is the binding name of the lambda this scope belongs to;
	// usedSelf flips when a lookup resolved to it.
	selfName string
	usedSelf bool

	// constAliases maps an outer constant's name to the local synthetic
	// binding that materializes it in this scope.
	constAliases map[string]string
}

func newScope(params []string, selfName string) *scope {
	s := &scope{
		bindings:     make(map[string]*binding),
		frees:        make(map[string]bool),
		selfName:     selfName,
		constAliases: make(map[string]string),
	}
	for _, p := range params {
		s.bindings[p] = &binding{v: Var{Name: p, Kind: FunParam}}
	}
	return s
}

func (s *scope) bind(name string, kind VarKind, constant bool) {
	s.bindings[name] = &binding{v: Var{Name: name, Kind: kind}, constant: constant}
}

func (s *scope) addFree(name string) {
	if !s.frees[name] {
		s.frees[name] = true
		s.freeOrder = append(s.freeOrder, name)
	}
}

type contextStack struct {
	scopes []*scope
}

func newContextStack() *contextStack {
	return &contextStack{scopes: []*scope{newScope(nil, "")}}
}

func (c *contextStack) top() *scope { return c.scopes[len(c.scopes)-1] }

func (c *contextStack) push(params []string, selfName string) {
	c.scopes = append(c.scopes, newScope(params, selfName))
}

func (c *contextStack) pop() *scope {
	s := c.top()
	c.scopes = c.scopes[:len(c.scopes)-1]
	return s
}

// lookup resolves a name against the scope chain. Inside the current scope
// a binding resolves directly; a dynamic outer binding becomes a
// DynamicFreeVar recorded on the current scope; a constant outer binding
// becomes a ConstantFreeVar; a lambda's own name becomes a RecursiveVar.
// An unknown name is reported with ok=false.
func (c *contextStack) lookup(name string) (Var, bool) {
	cur := c.top()
	if cur.frees[name] {
		return Var{Name: name, Kind: DynamicFreeVar}, true
	}
	if b, ok := cur.bindings[name]; ok {
		return b.v, true
	}
	if cur.selfName == name {
		cur.usedSelf = true
		return Var{Name: name, Kind: RecursiveVar}, true
	}

	for i := len(c.scopes) - 2; i >= 0; i-- {
		s := c.scopes[i]
		if b, ok := s.bindings[name]; ok {
			if b.constant {
				return Var{Name: name, Kind: ConstantFreeVar}, true
			}
			cur.addFree(name)
			return Var{Name: name, Kind: DynamicFreeVar}, true
		}
		if s.frees[name] {
			cur.addFree(name)
			return Var{Name: name, Kind: DynamicFreeVar}, true
		}
		if s.selfName == name {
			s.usedSelf = true
			return Var{Name: name, Kind: RecursiveVar}, true
		}
	}
	return Var{}, false
}
