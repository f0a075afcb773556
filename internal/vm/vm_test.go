package vm

import (
	"strings"
	"testing"
)

// execute runs a hand-assembled program and fails the test on any trap.
func execute(t *testing.T, code []Instruction, consts []Value) Value {
	t.Helper()
	m := New(&Program{Code: code, Consts: consts, Symbols: []string{"false", "true"}})
	result, err := m.Run()
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	return result
}

func executeErr(t *testing.T, code []Instruction, consts []Value) error {
	t.Helper()
	m := New(&Program{Code: code, Consts: consts, Symbols: []string{"false", "true"}})
	_, err := m.Run()
	if err == nil {
		t.Fatal("expected a runtime trap")
	}
	return err
}

func TestLoadsANumberIntoARegister(t *testing.T) {
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 0, 55),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(55) {
		t.Errorf("result = %x, want number 55", result)
	}
	if result.Tag() != TagNumber {
		t.Errorf("tag = %s", result.Tag())
	}
}

func TestAddsTwoNumbers(t *testing.T) {
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 5),
		RI(OpLoadI, 2, 32),
		RRR(OpAdd, 0, 1, 2),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(37) {
		t.Errorf("result = %x, want number 37", result)
	}
}

func TestMovesARegister(t *testing.T) {
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 2, 37),
		RRR(OpMove, 0, 2, 0),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(37) {
		t.Errorf("result = %x, want number 37", result)
	}
}

func TestDirectlyCallsAFunction(t *testing.T) {
	// Callee at 6 adds 100 to its single argument.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 38),
		RRR(OpSetArg, 0, 1, 0),
		RI(OpLoadF, 3, 6),
		RRR(OpCall, 0, 3, 1),
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 0, 1),
		RI(OpLoadI, 2, 100),
		RRR(OpAdd, 0, 0, 2),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(138) {
		t.Errorf("result = %x, want number 138", result)
	}
}

func TestCallsAClosure(t *testing.T) {
	// Closure captures 80; callee subtracts the capture from its arg.
	// Captures land below parameters: capture at r0, arg at r1.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 80),
		RRR(OpSetArg, 0, 1, 0),
		RI(OpLoadF, 2, 9),
		RRR(OpMakeCl, 2, 2, 1),
		RI(OpLoadI, 3, 115),
		RRR(OpSetArg, 0, 3, 0),
		RRR(OpGenAp, 0, 2, 1),
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 1, 1),
		RRR(OpSub, 0, 1, 0),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(35) {
		t.Errorf("result = %x, want number 35", result)
	}
}

func TestClosureEscapesUpwards(t *testing.T) {
	// fn1 builds and returns a closure over 24; the entry applies it to 80.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadF, 1, 7),
		RRR(OpCall, 1, 1, 0),
		RI(OpLoadI, 2, 80),
		RRR(OpSetArg, 0, 2, 0),
		RRR(OpGenAp, 0, 1, 1),
		RRR(OpRet, 0, 0, 0),
		// fn1: make closure over fn2 capturing 24
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 24),
		RRR(OpSetArg, 0, 1, 0),
		RI(OpLoadF, 0, 13),
		RRR(OpMakeCl, 0, 0, 1),
		RRR(OpRet, 0, 0, 0),
		// fn2: arg - capture
		RI(OpFunHeader, 1, 1),
		RRR(OpSub, 0, 1, 0),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(56) {
		t.Errorf("result = %x, want number 56", result)
	}
}

func TestLoadsAConstant(t *testing.T) {
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadC, 0, 0),
		RRR(OpRet, 0, 0, 0),
	}, []Value{SymbolValue(33)})
	if result != SymbolValue(33) {
		t.Errorf("result = %x, want symbol 33", result)
	}
}

func TestJumpsForward(t *testing.T) {
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 0, 66),
		RI(OpJmp, 0, 1),
		RRR(OpRet, 0, 0, 0),
		RI(OpLoadI, 0, 70),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(70) {
		t.Errorf("result = %x, want number 70", result)
	}
}

// matchProgram dispatches the subject in r1 against the pattern cell at
// const 0 and loads 111 from the first branch, 222 from the second.
func matchProgram(load Instruction) []Instruction {
	return []Instruction{
		RI(OpFunHeader, 0, 0),
		load,
		RI(OpLoadI, 2, 0),
		RRR(OpMatch, 1, 2, 0),
		RI(OpJmp, 0, 1),
		RI(OpJmp, 0, 2),
		RI(OpLoadI, 0, 111),
		RRR(OpRet, 0, 0, 0),
		RI(OpLoadI, 0, 222),
		RRR(OpRet, 0, 0, 0),
	}
}

func TestMatchesANumber(t *testing.T) {
	consts := []Value{
		MatchHeader(2),
		NumberValue(11),
		NumberValue(22),
	}
	result := execute(t, matchProgram(RI(OpLoadI, 1, 22)), consts)
	if result != NumberValue(222) {
		t.Errorf("result = %x, want number 222 (second branch)", result)
	}
}

func TestMatchesASymbol(t *testing.T) {
	consts := []Value{
		MatchHeader(2),
		SymbolValue(11),
		SymbolValue(22),
	}
	result := execute(t, matchProgram(RI(OpLoadPS, 1, 11)), consts)
	if result != NumberValue(111) {
		t.Errorf("result = %x, want number 111 (first branch)", result)
	}
}

func TestMatchesACompoundSymbol(t *testing.T) {
	consts := []Value{
		MatchHeader(2),
		CompoundValue(3),
		CompoundValue(6),
		DataSymbolHeader(1, 2), // branch 1 pattern: sym(55, 66)
		NumberValue(55),
		NumberValue(66),
		DataSymbolHeader(1, 2), // branch 2 pattern: sym(55, 77)
		NumberValue(55),
		NumberValue(77),
		DataSymbolHeader(1, 2), // subject: sym(55, 77)
		NumberValue(55),
		NumberValue(77),
	}
	result := execute(t, matchProgram(RI(OpLoadCS, 1, 9)), consts)
	if result != NumberValue(222) {
		t.Errorf("result = %x, want number 222 (second branch)", result)
	}
}

func TestBindsAValueInAMatch(t *testing.T) {
	consts := []Value{
		MatchHeader(2),
		CompoundValue(3),
		CompoundValue(6),
		DataSymbolHeader(1, 2),
		NumberValue(55),
		NumberValue(66),
		DataSymbolHeader(1, 2),
		NumberValue(55),
		MatchVarWord(0), // capture the second payload slot
		DataSymbolHeader(1, 2),
		NumberValue(55),
		NumberValue(77),
	}
	// Captures start at r4; the second branch returns the captured value.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadCS, 1, 9),
		RI(OpLoadI, 2, 0),
		RRR(OpMatch, 1, 2, 4),
		RI(OpJmp, 0, 1),
		RI(OpJmp, 0, 2),
		RI(OpLoadI, 0, 22),
		RRR(OpRet, 0, 0, 0),
		RRR(OpMove, 0, 4, 0),
		RRR(OpRet, 0, 0, 0),
	}, consts)
	if result != NumberValue(77) {
		t.Errorf("result = %x, want the captured number 77", result)
	}
}

func TestUnmatchedSubjectTraps(t *testing.T) {
	consts := []Value{
		MatchHeader(1),
		NumberValue(1),
	}
	err := executeErr(t, matchProgram(RI(OpLoadI, 1, 2)), consts)
	if !strings.Contains(err.Error(), "no pattern matched") {
		t.Errorf("trap = %q", err)
	}
}

func TestGenApUnderSaturationBuildsAPartialApplication(t *testing.T) {
	// fn at 11 subtracts its second arg from its first. Apply to one arg
	// via gen_ap, then apply the result to the second.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadF, 1, 11),
		RI(OpLoadI, 2, 90),
		RRR(OpSetArg, 0, 2, 0),
		RRR(OpGenAp, 3, 1, 1),
		RI(OpLoadI, 2, 34),
		RRR(OpSetArg, 0, 2, 0),
		RRR(OpGenAp, 0, 3, 1),
		RRR(OpRet, 0, 0, 0),
		RI(OpLoadI, 0, 0), // never reached
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 0, 2),
		RRR(OpSub, 0, 0, 1),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(56) {
		t.Errorf("result = %x, want number 56", result)
	}
}

func TestGenApOverSaturationReappliesTheResult(t *testing.T) {
	// fn1 at 8 returns a closure over its argument; applying fn1 to two
	// args at once must thread the second into the returned closure.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadF, 1, 8),
		RI(OpLoadI, 2, 100),
		RRR(OpSetArg, 0, 2, 0),
		RI(OpLoadI, 2, 42),
		RRR(OpSetArg, 1, 2, 0),
		RRR(OpGenAp, 0, 1, 2),
		RRR(OpRet, 0, 0, 0),
		// fn1(x): closure capturing x over fn2
		RI(OpFunHeader, 0, 1),
		RRR(OpSetArg, 0, 0, 0),
		RI(OpLoadF, 1, 13),
		RRR(OpMakeCl, 1, 1, 1),
		RRR(OpRet, 1, 0, 0),
		// fn2(y) with capture x: x - y
		RI(OpFunHeader, 1, 1),
		RRR(OpSub, 0, 0, 1),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(58) {
		t.Errorf("result = %x, want number 58", result)
	}
}

func TestTailCallReusesTheFrame(t *testing.T) {
	// fn at 6 tail-calls fn2 at 10; the chain must deliver fn2's value
	// straight to the entry's result register.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadF, 1, 6),
		RRR(OpCall, 0, 1, 0),
		RRR(OpRet, 0, 0, 0),
		RI(OpLoadI, 0, 0), // padding, never reached
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 0, 0),
		RI(OpLoadF, 1, 10),
		RRR(OpTailCall, 0, 1, 0),
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 0, 7),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(7) {
		t.Errorf("result = %x, want number 7", result)
	}
}

func TestSetClValPatchesACaptureSlot(t *testing.T) {
	// Build a closure with a junk capture, patch it, then call.
	result := execute(t, []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 0),
		RRR(OpSetArg, 0, 1, 0),
		RI(OpLoadF, 2, 9),
		RRR(OpMakeCl, 2, 2, 1),
		RI(OpLoadI, 3, 41),
		RRR(OpSetClVal, 2, 3, 0),
		RRR(OpGenAp, 0, 2, 0),
		RRR(OpRet, 0, 0, 0),
		RI(OpFunHeader, 1, 0),
		RRR(OpMove, 0, 0, 0),
		RRR(OpRet, 0, 0, 0),
	}, nil)
	if result != NumberValue(41) {
		t.Errorf("result = %x, want number 41", result)
	}
}

func TestCopySymAndSetSymField(t *testing.T) {
	consts := []Value{
		DataSymbolHeader(1, 2),
		NumberValue(1),
		NumberValue(2),
	}
	code := []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpCopySym, 0, 0),
		RI(OpLoadI, 1, 9),
		RRR(OpSetSymField, 0, 1, 1),
		RRR(OpRet, 0, 0, 0),
	}
	m := New(&Program{Code: code, Consts: consts, Symbols: []string{"false", "true"}})
	result, err := m.Run()
	if err != nil {
		t.Fatalf("runtime error: %s", err)
	}
	if result.Tag() != TagHeapSym {
		t.Fatalf("result tag = %s, want heap-compound-symbol", result.Tag())
	}
	if got := m.Render(result); got != `compound-symbol "true" [number 1, number 9]` {
		t.Errorf("rendered %q", got)
	}
}

func TestArithmeticTraps(t *testing.T) {
	divByZero := []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 4),
		RI(OpLoadI, 2, 0),
		RRR(OpDiv, 0, 1, 2),
		RRR(OpRet, 0, 0, 0),
	}
	if err := executeErr(t, divByZero, nil); !strings.Contains(err.Error(), "division by zero") {
		t.Errorf("trap = %q", err)
	}

	addSymbol := []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 4),
		RI(OpLoadPS, 2, 0),
		RRR(OpAdd, 0, 1, 2),
		RRR(OpRet, 0, 0, 0),
	}
	if err := executeErr(t, addSymbol, nil); !strings.Contains(err.Error(), "needs numbers") {
		t.Errorf("trap = %q", err)
	}
}

func TestCallingANumberTraps(t *testing.T) {
	code := []Instruction{
		RI(OpFunHeader, 0, 0),
		RI(OpLoadI, 1, 4),
		RRR(OpGenAp, 0, 1, 0),
		RRR(OpRet, 0, 0, 0),
	}
	if err := executeErr(t, code, nil); !strings.Contains(err.Error(), "not callable") {
		t.Errorf("trap = %q", err)
	}
}
