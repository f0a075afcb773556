package compiler

import (
	"fmt"

	"github.com/larkvm/lark/internal/ast"
	"github.com/larkvm/lark/internal/vm"
)

// encodePattern turns a branch pattern into its constant-tree form and the
// list of captured names. slot threads the positional capture index across
// the branch: each variable (and wildcard) takes the next slot.
func (n *Normalizer) encodePattern(p ast.Pattern, slot *int) ([]string, constant, error) {
	switch p := p.(type) {
	case *ast.NumberPattern:
		if p.Value < vm.MinNumber || p.Value > vm.MaxNumber {
			return nil, nil, codeErrorf(p.Token, "number %d does not fit the 28-bit value domain", p.Value)
		}
		return nil, cNumber{Value: int32(p.Value)}, nil

	case *ast.SymbolPattern:
		symID := n.syms.Intern(p.Name)
		if len(p.Args) == 0 {
			return nil, cPlainSymbol{ID: symID}, nil
		}
		if len(p.Args) > maxCompoundArity {
			return nil, nil, codeErrorf(p.Token, "compound pattern arity %d exceeds %d", len(p.Args), maxCompoundArity)
		}
		var names []string
		children := make([]constant, len(p.Args))
		for i, arg := range p.Args {
			sub, c, err := n.encodePattern(arg, slot)
			if err != nil {
				return nil, nil, err
			}
			names = append(names, sub...)
			children[i] = c
		}
		return names, cCompound{SymID: symID, Children: children}, nil

	case *ast.VarPattern:
		c := cMatchVar{Slot: *slot}
		*slot++
		return []string{p.Name}, c, nil

	case *ast.WildcardPattern:
		// Wildcards still take a capture slot; the synthetic name keeps
		// branch parameters unique.
		name := fmt.Sprintf("$_%d", *slot)
		c := cMatchVar{Slot: *slot}
		*slot++
		return []string{name}, c, nil
	}
	return nil, nil, internalErrorf("unhandled pattern %T", p)
}
