package compiler

// The recursion resolver is pass 2: a post-order rewrite that replaces
// RecursiveVar references with dynamic free variables and augments each
// affected lambda's free-var list with a self-reference slot. Deciding
// whether a self-name is dynamic needs the full body, which is why this
// runs after normalization rather than during it.

// Resolve rewrites the NST in place. A recursive name that no enclosing
// lambda can bind is an internal error: normalization only produces
// RecursiveVar for names that some lambda on the scope chain owns.
func Resolve(e Expr) error {
	needed, err := resolveExpr(e)
	if err != nil {
		return err
	}
	if len(needed) > 0 {
		return internalErrorf("unresolved recursive reference %q", needed[0])
	}
	return nil
}

func resolveExpr(e Expr) ([]string, error) {
	switch e := e.(type) {
	case *Let:
		needed, err := resolveAtom(e.Atom)
		if err != nil {
			return nil, err
		}
		fromBody, err := resolveExpr(e.Body)
		if err != nil {
			return nil, err
		}
		return union(needed, fromBody), nil
	case *AtomExpr:
		return resolveAtom(e.Atom)
	}
	return nil, internalErrorf("unhandled NST expression %T", e)
}

func resolveAtom(a Atom) ([]string, error) {
	switch a := a.(type) {
	case *VarRef:
		if a.Var.Kind == RecursiveVar {
			a.Var.Kind = DynamicFreeVar
			return []string{a.Var.Name}, nil
		}
		return nil, nil

	case *Lambda:
		needed, err := resolveExpr(a.Body)
		if err != nil {
			return nil, err
		}
		var escaping []string
		for _, name := range needed {
			idx := freeIndex(a.Free, name)
			if idx < 0 {
				idx = len(a.Free)
				a.Free = append(a.Free, Var{Name: name, Kind: DynamicFreeVar})
			}
			if name == a.Name {
				a.SelfSlot = idx
				continue
			}
			escaping = append(escaping, name)
		}
		return escaping, nil
	}
	return nil, nil
}

func freeIndex(frees []Var, name string) int {
	for i, f := range frees {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func union(a, b []string) []string {
	for _, name := range b {
		found := false
		for _, have := range a {
			if have == name {
				found = true
				break
			}
		}
		if !found {
			a = append(a, name)
		}
	}
	return a
}
