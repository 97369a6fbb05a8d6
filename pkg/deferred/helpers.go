package deferred

// If returns whichTrue/whichFalse directly when cond is already resolvable,
// else a branch thunk evaluated lazily (spec.md §4.1).
func If(cond, whichTrue, whichFalse *Deferred) *Deferred {
	if cond.cached {
		if b, _ := cond.cache.(bool); b {
			return whichTrue
		}
		return whichFalse
	}

	resType := whichTrue.typ
	if whichTrue.typ == TRaise {
		resType = whichFalse.typ
	} else if whichFalse.typ == TRaise {
		resType = whichTrue.typ
	} else if whichTrue.typ != whichFalse.typ {
		resType = TAny
	}

	return NewComputed(func(ctx Context) (interface{}, error) {
		v, err := cond.Eval(ctx)
		if err != nil {
			return nil, err
		}
		b, _ := v.(bool)
		if b {
			return whichTrue.Eval(ctx)
		}
		return whichFalse.Eval(ctx)
	}, resType)
}

// Repeat produces a deferred list of length count filled with a single
// evaluation of item (the item is evaluated once, not once per slot —
// matching Deferred.Repeat in the original compiler).
func Repeat(count *Deferred, item *Deferred) *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		n, err := count.Eval(ctx)
		if err != nil {
			return nil, err
		}
		ni, ok := asInt(n)
		if !ok {
			return nil, typeError("REPEAT count")
		}
		v, err := item.Eval(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]int, 0, ni)
		for i := 0; i < ni; i++ {
			iv, ok := asInt(v)
			if !ok {
				return nil, typeError("REPEAT item")
			}
			out = append(out, iv)
		}
		return out, nil
	}, TList)
}

// Raise builds a thunk that fails with err whenever it's evaluated.
func Raise(err error) *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		return nil, err
	}, TRaise)
}

// And/Or short-circuit once the left operand resolves.
func And(a, b *Deferred) *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		av, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if ab, _ := av.(bool); !ab {
			return false, nil
		}
		bv, err := b.Eval(ctx)
		if err != nil {
			return nil, err
		}
		bb, _ := bv.(bool)
		return bb, nil
	}, TBool)
}

func Or(a, b *Deferred) *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		av, err := a.Eval(ctx)
		if err != nil {
			return nil, err
		}
		if ab, _ := av.(bool); ab {
			return true, nil
		}
		bv, err := b.Eval(ctx)
		if err != nil {
			return nil, err
		}
		bb, _ := bv.(bool)
		return bb, nil
	}, TBool)
}

// Same conservatively reports whether a and b are provably equal constants.
// It never evaluates a thunk with pending computation just to compare it.
func Same(a, b *Deferred) bool {
	if a == b {
		return true
	}
	if a.cached && b.cached {
		return a.cache == b.cache
	}
	return false
}
