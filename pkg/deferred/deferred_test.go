package deferred

import "testing"

func mustEval(t *testing.T, d *Deferred) interface{} {
	t.Helper()
	v, err := d.Eval(nil)
	if err != nil {
		t.Fatalf("eval: %v", err)
	}
	return v
}

func TestLiteralCachedImmediately(t *testing.T) {
	d := NewLiteral(5, TInt)
	if !d.IsCached() {
		t.Fatal("literal should be cached immediately")
	}
	if v := mustEval(t, d); v != 5 {
		t.Fatalf("got %v, want 5", v)
	}
}

func TestFusionOfConsecutiveAdds(t *testing.T) {
	leaf := NewComputed(func(ctx Context) (interface{}, error) { return 10, nil }, TInt)
	d := leaf.Add(1).Add(2).Add(3)
	if len(d.pending) != 1 {
		t.Fatalf("expected a single fused pending op, got %d", len(d.pending))
	}
	if v := mustEval(t, d); v != 16 {
		t.Fatalf("got %v, want 16", v)
	}
}

func TestSubtractionFusesAsNegatedAdd(t *testing.T) {
	leaf := NewComputed(func(ctx Context) (interface{}, error) { return 100, nil }, TInt)
	d := leaf.Add(5).Sub(3)
	if len(d.pending) != 1 {
		t.Fatalf("expected fusion of +5 and -3 into a single +2, got %d entries", len(d.pending))
	}
	if v := mustEval(t, d); v != 102 {
		t.Fatalf("got %v, want 102", v)
	}
}

func TestMultiplyAndBitwiseFuseSeparatelyFromAdd(t *testing.T) {
	leaf := NewComputed(func(ctx Context) (interface{}, error) { return 2, nil }, TInt)
	d := leaf.Add(1).Mul(3)
	if len(d.pending) != 2 {
		t.Fatalf("expected two distinct pending ops (+, *), got %d", len(d.pending))
	}
	if v := mustEval(t, d); v != 9 { // (2+1)*3
		t.Fatalf("got %v, want 9", v)
	}
}

func TestIdempotentEvaluation(t *testing.T) {
	calls := 0
	d := NewComputed(func(ctx Context) (interface{}, error) {
		calls++
		return 7, nil
	}, TInt)
	mustEval(t, d)
	mustEval(t, d)
	if calls != 1 {
		t.Fatalf("leaf computation ran %d times, want 1", calls)
	}
}

func TestRecursiveDefinitionDetected(t *testing.T) {
	var self *Deferred
	self = NewComputed(func(ctx Context) (interface{}, error) {
		return self.Eval(ctx)
	}, TInt)
	_, err := self.Eval(nil)
	if _, ok := err.(RecursiveError); !ok {
		t.Fatalf("expected RecursiveError, got %v", err)
	}
}

func TestBinaryNodeBetweenTwoUncachedThunks(t *testing.T) {
	a := NewComputed(func(ctx Context) (interface{}, error) { return 3, nil }, TInt)
	b := NewComputed(func(ctx Context) (interface{}, error) { return 4, nil }, TInt)
	sum := a.Add(b)
	if v := mustEval(t, sum); v != 7 {
		t.Fatalf("got %v, want 7", v)
	}
}

func TestIfKnownCondition(t *testing.T) {
	cond := NewLiteral(true, TBool)
	r := If(cond, NewLiteral(1, TInt), NewLiteral(2, TInt))
	if v := mustEval(t, r); v != 1 {
		t.Fatalf("got %v, want 1", v)
	}
}

func TestRepeatProducesList(t *testing.T) {
	r := Repeat(NewLiteral(3, TInt), NewLiteral(0, TInt))
	v := mustEval(t, r)
	list, ok := v.([]int)
	if !ok || len(list) != 3 {
		t.Fatalf("got %v, want []int of length 3", v)
	}
}

func TestMapRewritesLabelLeaf(t *testing.T) {
	leaf := NewComputed(func(ctx Context) (interface{}, error) { return 1, nil }, TInt)
	leaf = leaf.WithLeafMapper(func(f func(string) string) *Deferred {
		renamed := f("X")
		return NewLiteral(len(renamed), TInt)
	})
	mapped := leaf.Map(func(s string) string { return s + ": .REPEAT(abc)[0]" })
	v := mustEval(t, mapped)
	if v != len("X: .REPEAT(abc)[0]") {
		t.Fatalf("map hook did not run: got %v", v)
	}
}

func TestMapRecursesThroughOperatorNode(t *testing.T) {
	label := NewComputed(func(ctx Context) (interface{}, error) { return 1, nil }, TInt)
	renamedSeen := ""
	label = label.WithLeafMapper(func(f func(string) string) *Deferred {
		renamedSeen = f("LBL")
		return NewLiteral(5, TInt)
	})
	sum := label.Add(10)
	mapped := sum.Map(func(s string) string { return s + "!" })
	v := mustEval(t, mapped)
	if v != 15 {
		t.Fatalf("got %v, want 15", v)
	}
	if renamedSeen != "LBL!" {
		t.Fatalf("leaf mapper did not receive renaming through operator node: %q", renamedSeen)
	}
}

func TestRaiseFailsOnEval(t *testing.T) {
	d := Raise(errDivByZero)
	_, err := d.Eval(nil)
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestDivFloorsTowardNegativeInfinity(t *testing.T) {
	leaf := NewLiteral(-7, TInt)
	d := leaf.Div(2)
	if v := mustEval(t, d); v != -4 {
		t.Fatalf("got %v, want -4", v)
	}
}
