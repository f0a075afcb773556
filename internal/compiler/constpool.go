package compiler

import "github.com/larkvm/lark/internal/vm"

// constant is a compile-time constant tree, the unit of const-table
// encoding. Pattern trees reuse the same shapes plus cMatchVar leaves.
type constant interface{ constNode() }

type cNumber struct{ Value int32 }
type cPlainSymbol struct{ ID int }
type cCompound struct {
	SymID    int
	Children []constant
}
type cMatchVar struct{ Slot int }

func (cNumber) constNode()      {}
func (cPlainSymbol) constNode() {}
func (cCompound) constNode()    {}
func (cMatchVar) constNode()    {}

// ConstPool builds the flat const-table word stream. Plain one-word cells
// and strings are deduplicated; compound and match cells are appended as
// encountered. Addresses are word offsets into the finished stream.
type ConstPool struct {
	words   []vm.Value
	plains  map[vm.Value]int
	strings map[string]int
}

func NewConstPool() *ConstPool {
	return &ConstPool{
		plains:  make(map[vm.Value]int),
		strings: make(map[string]int),
	}
}

// Words returns the finished stream.
func (p *ConstPool) Words() vm.ConstTable { return p.words }

// AddPlain stores a single tagged word and returns its address. Identical
// words share a cell.
func (p *ConstPool) AddPlain(v vm.Value) int {
	if addr, ok := p.plains[v]; ok {
		return addr
	}
	addr := len(p.words)
	p.words = append(p.words, v)
	p.plains[v] = addr
	return addr
}

// AddString stores a string cell (header + packed characters) and returns
// the header address.
func (p *ConstPool) AddString(s string) int {
	if addr, ok := p.strings[s]; ok {
		return addr
	}
	addr := len(p.words)
	p.words = append(p.words, vm.StringHeader(len(s)))
	p.words = append(p.words, vm.PackString(s)...)
	p.strings[s] = addr
	return addr
}

// AddCompoundWords stores a compound-symbol cell with pre-encoded payload
// words (used for templates whose dynamic slots hold placeholders).
func (p *ConstPool) AddCompoundWords(symID int, payload []vm.Value) int {
	addr := len(p.words)
	p.words = append(p.words, vm.DataSymbolHeader(symID, len(payload)))
	p.words = append(p.words, payload...)
	return addr
}

// encode flattens a constant tree. Compound children are emitted as their
// own cells first; the returned word is the in-cell representation.
func (p *ConstPool) encode(c constant) vm.Value {
	switch c := c.(type) {
	case cNumber:
		return vm.NumberValue(c.Value)
	case cPlainSymbol:
		return vm.SymbolValue(c.ID)
	case cMatchVar:
		return vm.MatchVarWord(c.Slot)
	case cCompound:
		payload := make([]vm.Value, len(c.Children))
		for i, child := range c.Children {
			payload[i] = p.encode(child)
		}
		return vm.CompoundValue(p.AddCompoundWords(c.SymID, payload))
	}
	panic("unreachable constant kind")
}

// AddConstant encodes a constant tree and returns its value word.
func (p *ConstPool) AddConstant(c constant) vm.Value { return p.encode(c) }

// AddMatchData stores a match-data cell: match-header(n) followed by one
// encoded root word per branch. Nested compound cells land before the
// header so the cell itself stays contiguous.
func (p *ConstPool) AddMatchData(roots []constant) int {
	encoded := make([]vm.Value, len(roots))
	for i, r := range roots {
		encoded[i] = p.encode(r)
	}
	addr := len(p.words)
	p.words = append(p.words, vm.MatchHeader(len(roots)))
	p.words = append(p.words, encoded...)
	return addr
}
