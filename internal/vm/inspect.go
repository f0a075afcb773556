package vm

import (
	"fmt"
	"strings"
)

// Render formats a value for diagnostics and the REPL, decoding compound
// payloads through the const table and heap.
func (m *VM) Render(v Value) string {
	switch v.Tag() {
	case TagNumber:
		return fmt.Sprintf("number %d", v.Number())
	case TagSymbol:
		return fmt.Sprintf("plain-symbol %q []", m.SymbolName(v.Addr()))
	case TagCompound:
		_, arity, payload := m.consts.CompoundAt(v.Addr())
		return m.renderCompound(m.consts[v.Addr()], arity, payload)
	case TagHeapSym:
		header := m.heap[v.Addr()]
		arity := header.HeaderArity()
		return m.renderCompound(header, arity, m.heap[v.Addr()+1:v.Addr()+1+arity])
	case TagFunction:
		return fmt.Sprintf("function @%04d", v.Addr())
	case TagClosure:
		if m.heap[v.Addr()].IsPapHeader() {
			return fmt.Sprintf("partial-application @%d", v.Addr())
		}
		return fmt.Sprintf("closure @%d", v.Addr())
	case TagString:
		return fmt.Sprintf("string %q", m.consts.StringAt(v.Addr()))
	}
	return fmt.Sprintf("%s %d", v.Tag(), v.Payload())
}

func (m *VM) renderCompound(header Value, arity int, payload []Value) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "compound-symbol %q [", m.SymbolName(header.HeaderSymbolID()))
	for i := 0; i < arity; i++ {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(m.Render(payload[i]))
	}
	sb.WriteString("]")
	return sb.String()
}
