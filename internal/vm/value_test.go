package vm

import "testing"

func TestNumberValueRoundTrip(t *testing.T) {
	cases := []int32{0, 1, 55, -1, -7, MaxNumber, MinNumber}
	for _, n := range cases {
		v := NumberValue(n)
		if v.Tag() != TagNumber {
			t.Errorf("NumberValue(%d).Tag() = %s, want number", n, v.Tag())
		}
		if got := v.Number(); got != n {
			t.Errorf("NumberValue(%d).Number() = %d", n, got)
		}
	}
}

func TestNumberWrapsTo28Bits(t *testing.T) {
	v := NumberValue(MaxNumber + 1)
	if got := v.Number(); got != MinNumber {
		t.Errorf("MaxNumber+1 wrapped to %d, want %d", got, MinNumber)
	}
}

func TestTagsAreDistinguishable(t *testing.T) {
	number := NumberValue(44)
	symbol := SymbolValue(44)
	if number == symbol {
		t.Fatal("number and symbol with equal payloads compare equal")
	}
	if symbol.Tag() != TagSymbol {
		t.Errorf("symbol tag = %s", symbol.Tag())
	}
	if symbol.Payload() != 44 {
		t.Errorf("symbol payload = %d", symbol.Payload())
	}
}

func TestEqualityIsBitwise(t *testing.T) {
	if SymbolValue(3) != SymbolValue(3) {
		t.Error("identical symbols differ")
	}
	if FunctionValue(9) == ClosureValue(9) {
		t.Error("function and closure with equal payloads compare equal")
	}
}

func TestDataSymbolHeader(t *testing.T) {
	h := DataSymbolHeader(300, 7)
	if !h.IsDataSymbolHeader() {
		t.Fatal("header kind lost")
	}
	if h.HeaderSymbolID() != 300 || h.HeaderArity() != 7 {
		t.Errorf("header decoded to (%d, %d), want (300, 7)", h.HeaderSymbolID(), h.HeaderArity())
	}
}

func TestHeaderKindsAreDisjoint(t *testing.T) {
	headers := []Value{
		DataSymbolHeader(1, 2),
		MatchHeader(2),
		MatchVarWord(2),
		StringHeader(2),
		PapHeader(2),
	}
	checks := []func(Value) bool{
		Value.IsDataSymbolHeader,
		Value.IsMatchHeader,
		Value.IsMatchVar,
		Value.IsStringHeader,
		Value.IsPapHeader,
	}
	for i, h := range headers {
		for j, check := range checks {
			if got := check(h); got != (i == j) {
				t.Errorf("header %d check %d = %v", i, j, got)
			}
		}
	}
}

func TestMatchVarSlot(t *testing.T) {
	if MatchVarWord(5).CaptureSlot() != 5 {
		t.Error("capture slot lost")
	}
}

func TestPackStringRoundTrip(t *testing.T) {
	cases := []string{"", "a", "spot", "hello, world", "12345"}
	for _, s := range cases {
		words := PackString(s)
		if want := (len(s) + 3) / 4; len(words) != want {
			t.Errorf("PackString(%q) used %d words, want %d", s, len(words), want)
		}
		if got := UnpackString(words, len(s)); got != s {
			t.Errorf("round trip of %q gave %q", s, got)
		}
	}
}

func TestInstructionPacking(t *testing.T) {
	in := RRR(OpAdd, 3, 17, 31)
	if in.Op() != OpAdd || in.R0() != 3 || in.R1() != 17 || in.R2() != 31 {
		t.Errorf("RRR decoded to %s r%d r%d r%d", in.Op(), in.R0(), in.R1(), in.R2())
	}

	ri := RI(OpLoadI, 31, MaxImmediate)
	if ri.Op() != OpLoadI || ri.R0() != 31 || ri.Imm() != MaxImmediate {
		t.Errorf("RI decoded to %s r%d %d", ri.Op(), ri.R0(), ri.Imm())
	}

	header := RI(OpFunHeader, 4, 2)
	if header.Op() != OpFunHeader || header.R0() != 4 || header.Imm() != 2 {
		t.Errorf("fun_header decoded to %s free=%d arity=%d", header.Op(), header.R0(), header.Imm())
	}
}

func TestBoolValues(t *testing.T) {
	if BoolValue(true) != SymbolValue(SymbolTrue) || BoolValue(false) != SymbolValue(SymbolFalse) {
		t.Error("booleans are not the reserved symbols")
	}
}
