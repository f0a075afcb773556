package vm

// The match engine walks const-table pattern cells against a subject value.
// A match-data cell is a match-header(n) followed by n pattern roots; each
// root is a literal word, a match-var word, or a compound-symbol cell
// reference whose children may themselves be any of the three.

// matchSubject tries each branch in order and returns the index of the
// first whose pattern matches. Captured sub-values are written into the
// registers starting at capBase as a side effect of the walk.
func (m *VM) matchSubject(subject Value, patAddr, capBase int) (int, error) {
	if patAddr < 0 || patAddr >= len(m.consts) {
		return 0, m.trap("match pattern address %d out of range", patAddr)
	}
	header := m.consts[patAddr]
	if !header.IsMatchHeader() {
		return 0, m.trap("no match header at const %d", patAddr)
	}
	n := header.BranchCount()
	for k := 0; k < n; k++ {
		if m.matchValue(subject, m.consts[patAddr+1+k], capBase) {
			return k, nil
		}
	}
	return 0, m.trap("no pattern matched %s", m.Render(subject))
}

// matchValue reports whether pat matches v, writing captures as it goes.
// Atomic patterns compare bitwise; compound patterns compare symbol id and
// arity, then recurse over the payload slots.
func (m *VM) matchValue(v, pat Value, capBase int) bool {
	if pat.IsMatchVar() {
		m.setReg(capBase+pat.CaptureSlot(), v)
		return true
	}
	if pat.Tag() != TagCompound {
		return v == pat
	}

	symID, arity, children := m.consts.CompoundAt(pat.Addr())
	var payload []Value
	switch v.Tag() {
	case TagCompound:
		sid, sar, p := m.consts.CompoundAt(v.Addr())
		if sid != symID || sar != arity {
			return false
		}
		payload = p
	case TagHeapSym:
		header := m.heap[v.Addr()]
		if header.HeaderSymbolID() != symID || header.HeaderArity() != arity {
			return false
		}
		payload = m.heap[v.Addr()+1 : v.Addr()+1+arity]
	default:
		return false
	}

	for i := 0; i < arity; i++ {
		if !m.matchValue(payload[i], children[i], capBase) {
			return false
		}
	}
	return true
}
