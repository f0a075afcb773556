package embed_test

import (
	"strings"
	"testing"

	"github.com/larkvm/lark/internal/vm"
	"github.com/larkvm/lark/pkg/embed"
)

func run(t *testing.T, source string) embed.Result {
	t.Helper()
	result, err := embed.Run(source)
	if err != nil {
		t.Fatalf("run error: %s", err)
	}
	return result
}

func assertNumber(t *testing.T, source string, want int32) {
	t.Helper()
	result := run(t, source)
	if result.Value != vm.NumberValue(want) {
		t.Errorf("%q = %s, want number %d", source, result, want)
	}
}

func assertRendered(t *testing.T, source, want string) {
	t.Helper()
	result := run(t, source)
	if got := result.String(); got != want {
		t.Errorf("%q rendered %q, want %q", source, got, want)
	}
}

func TestNumberLiteral(t *testing.T) {
	assertNumber(t, "4815", 4815)
}

func TestPlainSymbolLiteral(t *testing.T) {
	assertRendered(t, ":spot", `plain-symbol "spot" []`)
}

func TestCompoundSymbolLiteral(t *testing.T) {
	assertRendered(t, ":sym 2 3", `compound-symbol "sym" [number 2, number 3]`)
}

func TestValBindings(t *testing.T) {
	assertNumber(t, "val a = 4\nval b = 7\nadd a b", 11)
}

func TestClosureCapture(t *testing.T) {
	assertNumber(t, `val make-adder (x) = { val (y) = add x y }
val adder = make-adder 22
adder 55`, 77)
}

func TestNestedFreeVariables(t *testing.T) {
	assertNumber(t, `val make-sub (x y z w) = { val (a) = sub (sub z y) (sub x a) }
val test = make-sub 33 55 99 160
test 24`, 35)
}

func TestNestedClosuresCaptureOuterConstants(t *testing.T) {
	assertNumber(t, `val base = 1800
val f (x) = {
  val g (y) = {
    val h (z) = add base (add (add x y) z)
    h
  }
  g
}
(f 30) 20 12`, 1862)
}

func TestPartialApplication(t *testing.T) {
	assertNumber(t, `val add3 (a b c) = add a (add b c)
val add2 = add3 1
val add1 = add2 2
add1 3`, 6)
}

func TestOverSaturation(t *testing.T) {
	assertNumber(t, `val make-adder (x) = { val (y) = add x y }
make-adder 40 2`, 42)
}

func TestOverSaturationOfUnknownCallee(t *testing.T) {
	assertNumber(t, `val f (x) = {
  val g (y) = {
    val h (z) = add x (add y z)
    h
  }
  g
}
(f 1) 2 3`, 6)
}

func TestPrimitiveOperators(t *testing.T) {
	assertNumber(t, "mul 6 7", 42)
	assertNumber(t, "div 45 6", 7)
	assertNumber(t, "sub 3 8", -5)
	assertRendered(t, "lt 2 3", `plain-symbol "true" []`)
	assertRendered(t, "gt 2 3", `plain-symbol "false" []`)
	assertRendered(t, "eq :spot :spot", `plain-symbol "true" []`)
	assertRendered(t, "eq :spot :dot", `plain-symbol "false" []`)
	assertRendered(t, "and (lt 1 2) (gt 1 2)", `plain-symbol "false" []`)
	assertRendered(t, "or (lt 1 2) (gt 1 2)", `plain-symbol "true" []`)
	assertRendered(t, "not (lt 1 2)", `plain-symbol "false" []`)
	assertRendered(t, "+ 1 2", "number 3")
	assertRendered(t, "== 1 2", `plain-symbol "false" []`)
}

func TestMatchFirstBranchWins(t *testing.T) {
	assertNumber(t, `match 22 {
  11 -> 1
  22 -> 2
  _ -> 3
}`, 2)
}

func TestMatchBindsCaptures(t *testing.T) {
	assertNumber(t, `match (:pair 3 9) {
  :pair 3 b -> b
  _ -> 0
}`, 9)
}

func TestMatchNestedCompoundPattern(t *testing.T) {
	assertNumber(t, `match (:cons 1 (:cons 2 :nil)) {
  :cons a (:cons b _) -> add a b
  _ -> 0
}`, 3)
}

func TestMatchOnSymbols(t *testing.T) {
	assertNumber(t, `val pick (s) = match s {
  :left -> 1
  :right -> 2
  _ -> 0
}
pick :right`, 2)
}

func TestMatchBranchUsesEnclosingScope(t *testing.T) {
	assertNumber(t, `val scale (k v) = match v {
  :box n -> mul k n
  _ -> 0
}
scale 3 (:box 14)`, 42)
}

func TestRecursion(t *testing.T) {
	assertNumber(t, `val fact (n) = match n {
  0 -> 1
  m -> mul m (fact (sub m 1))
}
fact 5`, 120)
}

func TestTailRecursionKeepsTheStackBounded(t *testing.T) {
	// 200000 iterations overflows the frame stack unless tail calls
	// reuse frames.
	assertNumber(t, `val loop (acc n) = match n {
  0 -> acc
  m -> loop (add acc 1) (sub m 1)
}
loop 0 200000`, 200000)
}

func TestStrings(t *testing.T) {
	assertRendered(t, `"hello, world"`, `string "hello, world"`)
}

func TestConstTableDedupesStrings(t *testing.T) {
	prog, err := embed.Compile(`val a = "spot"
val b = "spot"
eq a b`)
	if err != nil {
		t.Fatalf("compile error: %s", err)
	}
	count := 0
	for _, w := range prog.Consts {
		if w.IsStringHeader() {
			count++
		}
	}
	if count != 1 {
		t.Errorf("identical strings encoded %d times", count)
	}
	assertRendered(t, `val a = "spot"
val b = "spot"
eq a b`, `plain-symbol "true" []`)
}

func TestDynamicCompoundSymbol(t *testing.T) {
	assertRendered(t, `val wrap (x) = :sym 1 x
wrap (add 2 3)`, `compound-symbol "sym" [number 1, number 5]`)
}

func TestCompoundRoundTrip(t *testing.T) {
	// A static compound literal decodes exactly as written.
	assertRendered(t, ":tree (:leaf 1) (:leaf 2)",
		`compound-symbol "tree" [compound-symbol "leaf" [number 1], compound-symbol "leaf" [number 2]]`)
}

func TestModules(t *testing.T) {
	assertNumber(t, `val m = module {
  val a = 5
  val double (x) = mul x 2
}
m.double (m.a)`, 10)
}

func TestModuleLookupMissingFieldTraps(t *testing.T) {
	_, err := embed.Run(`val m = module {
  val a = 5
}
m.b`)
	if err == nil {
		t.Fatal("expected a runtime trap")
	}
	if !strings.Contains(err.Error(), "no field") {
		t.Errorf("trap = %q", err)
	}
}

func TestBlocksEvaluateToLastStatement(t *testing.T) {
	assertNumber(t, `val f (x) = {
  val a = add x 1
  val b = add a 1
  add a b
}
f 1`, 5)
}

func TestFunctionAsArgument(t *testing.T) {
	assertNumber(t, `val apply-twice (f x) = f (f x)
val inc (n) = add n 1
apply-twice inc 40`, 42)
}

func TestUnmatchedSubjectTraps(t *testing.T) {
	_, err := embed.Run("match 5 {\n1 -> 1\n2 -> 2\n}")
	if err == nil {
		t.Fatal("expected a runtime trap")
	}
	if !strings.Contains(err.Error(), "no pattern matched") {
		t.Errorf("trap = %q", err)
	}
}

func TestArithmeticOnSymbolTraps(t *testing.T) {
	_, err := embed.Run("add 1 :spot")
	if err == nil {
		t.Fatal("expected a runtime trap")
	}
	if !strings.Contains(err.Error(), "needs numbers") {
		t.Errorf("trap = %q", err)
	}
}

func TestApplyingANumberTraps(t *testing.T) {
	_, err := embed.Run("val f = 4\nf 1")
	if err == nil {
		t.Fatal("expected a runtime trap")
	}
	if !strings.Contains(err.Error(), "not callable") {
		t.Errorf("trap = %q", err)
	}
}

func TestCompileErrorSurfaces(t *testing.T) {
	_, err := embed.Run("add missing 1")
	if err == nil {
		t.Fatal("expected a compile error")
	}
	if !strings.Contains(err.Error(), "unknown identifier") {
		t.Errorf("error = %q", err)
	}
}

func TestRunIDIsAssigned(t *testing.T) {
	result := run(t, "1")
	if result.RunID == "" {
		t.Error("run id missing")
	}
}
