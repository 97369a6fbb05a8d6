package deferred

// addPendingMath appends one algebraic operation, fusing it into the last
// pending entry when the operator and direction match (spec.md §4.1:
// "consecutive +k1 and +k2 fuse to +(k1+k2); -k is rewritten to +(-k); *, &,
// |, ^, <<, >> fuse similarly"). If d is already cached, the operation is
// folded into the cache immediately instead (idempotent-cache invariant).
func (d *Deferred) addPendingMath(text string, apply func(a, b int) (int, error), other int, reverse bool) {
	if d.cached {
		iv, ok := asInt(d.cache)
		if !ok {
			return
		}
		var folded int
		var err error
		if reverse {
			folded, err = apply(other, iv)
		} else {
			folded, err = apply(iv, other)
		}
		if err == nil {
			d.cache = folded
		}
		return
	}

	if d.typ != TInt {
		d.pending = append(d.pending, pendingOp{text: text, apply: apply, operand: other, reverse: reverse})
		return
	}

	// Rewrite non-reversed "-k" as "+(-k)" so it fuses with a preceding "+".
	if !reverse && text == "-" {
		text = "+"
		apply = addInts
		other = -other
	}

	if n := len(d.pending); n > 0 {
		last := &d.pending[n-1]
		if last.text == text && !last.reverse && !reverse {
			switch text {
			case "+", "<<", ">>":
				last.operand += other
				return
			case "*":
				last.operand *= other
				return
			case "&":
				last.operand &= other
				return
			case "|":
				last.operand |= other
				return
			case "^":
				last.operand ^= other
				return
			}
		}
	}

	d.pending = append(d.pending, pendingOp{text: text, apply: apply, operand: other, reverse: reverse})
}

func addInts(a, b int) (int, error) { return a + b, nil }
func subInts(a, b int) (int, error) { return a - b, nil }
func mulInts(a, b int) (int, error) { return a * b, nil }
func divInts(a, b int) (int, error) {
	if b == 0 {
		return 0, errDivByZero
	}
	return floorDiv(a, b), nil
}
func modInts(a, b int) (int, error) {
	if b == 0 {
		return 0, errDivByZero
	}
	m := a % b
	if m != 0 && (m < 0) != (b < 0) {
		m += b
	}
	return m, nil
}
func shlInts(a, b int) (int, error) { return a << uint(b), nil }
func shrInts(a, b int) (int, error) { return a >> uint(b), nil }
func andInts(a, b int) (int, error) { return a & b, nil }
func orInts(a, b int) (int, error)  { return a | b, nil }
func xorInts(a, b int) (int, error) { return a ^ b, nil }

func floorDiv(a, b int) int {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

var errDivByZero = divByZeroError{}

type divByZeroError struct{}

func (divByZeroError) Error() string { return "division by zero" }

// infix implements the three-way dispatch spec.md §4.1 describes: fold
// immediately if both sides are cached ints, append pending math if the
// right side is a concrete value, or build a binary-operator tree node
// otherwise.
func (d *Deferred) infix(text string, apply func(a, b int) (int, error), other interface{}, resType Type) *Deferred {
	if od, ok := other.(*Deferred); ok {
		if od.cached {
			iv, ok := asInt(od.cache)
			if !ok {
				return buildBinaryNode(d, od, apply, resType)
			}
			nd := NewFrom(d, resType)
			nd.addPendingMath(text, apply, iv, false)
			return nd
		}
		return buildBinaryNode(d, od, apply, resType)
	}

	iv, ok := asInt(other)
	if !ok {
		return Raise(typeError(text))
	}
	nd := NewFrom(d, resType)
	nd.addPendingMath(text, apply, iv, false)
	return nd
}

func buildBinaryNode(l, r *Deferred, apply func(a, b int) (int, error), resType Type) *Deferred {
	nd := NewComputed(func(ctx Context) (interface{}, error) {
		lv, err := l.Eval(ctx)
		if err != nil {
			return nil, err
		}
		li, ok := asInt(lv)
		if !ok {
			return nil, typeError("left operand")
		}
		rv, err := r.Eval(ctx)
		if err != nil {
			return nil, err
		}
		ri, ok := asInt(rv)
		if !ok {
			return nil, typeError("right operand")
		}
		return apply(li, ri)
	}, resType)
	return nd.WithChildren([]*Deferred{l, r}, func(children []*Deferred) *Deferred {
		return buildBinaryNode(children[0], children[1], apply, resType)
	})
}

type typeErr string

func (e typeErr) Error() string { return string(e) }
func typeError(where string) error {
	return typeErr("deferred arithmetic on non-integer value: " + where)
}

func (d *Deferred) Add(other interface{}) *Deferred { return d.infix("+", addInts, other, TInt) }
func (d *Deferred) Sub(other interface{}) *Deferred { return d.infix("-", subInts, other, TInt) }
func (d *Deferred) Mul(other interface{}) *Deferred { return d.infix("*", mulInts, other, TInt) }
func (d *Deferred) Div(other interface{}) *Deferred { return d.infix("/", divInts, other, TInt) }
func (d *Deferred) Mod(other interface{}) *Deferred { return d.infix("%", modInts, other, TInt) }
func (d *Deferred) Shl(other interface{}) *Deferred { return d.infix("<<", shlInts, other, TInt) }
func (d *Deferred) Shr(other interface{}) *Deferred { return d.infix(">>", shrInts, other, TInt) }
func (d *Deferred) And(other interface{}) *Deferred { return d.infix("&", andInts, other, TInt) }
func (d *Deferred) Or(other interface{}) *Deferred  { return d.infix("|", orInts, other, TInt) }
func (d *Deferred) Xor(other interface{}) *Deferred { return d.infix("^", xorInts, other, TInt) }

func (d *Deferred) Neg() *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		v, err := d.Eval(ctx)
		if err != nil {
			return nil, err
		}
		iv, ok := asInt(v)
		if !ok {
			return nil, typeError("negate")
		}
		return -iv, nil
	}, TInt).WithChildren([]*Deferred{d}, func(c []*Deferred) *Deferred { return c[0].Neg() })
}

func (d *Deferred) Pos() *Deferred { return d }

func (d *Deferred) Invert() *Deferred {
	return NewComputed(func(ctx Context) (interface{}, error) {
		v, err := d.Eval(ctx)
		if err != nil {
			return nil, err
		}
		iv, ok := asInt(v)
		if !ok {
			return nil, typeError("invert")
		}
		return ^iv, nil
	}, TInt).WithChildren([]*Deferred{d}, func(c []*Deferred) *Deferred { return c[0].Invert() })
}

func cmp(pred func(a, b int) bool) func(a, b int) (int, error) {
	return func(a, b int) (int, error) {
		if pred(a, b) {
			return 1, nil
		}
		return 0, nil
	}
}

func (d *Deferred) compare(other interface{}, pred func(a, b int) bool) *Deferred {
	raw := d.infix("cmp", cmp(pred), other, TBool)
	return raw.Then(func(v interface{}) (interface{}, error) {
		iv, _ := asInt(v)
		return iv != 0, nil
	}, TBool)
}

func (d *Deferred) Eq(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a == b }) }
func (d *Deferred) Ne(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a != b }) }
func (d *Deferred) Lt(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a < b }) }
func (d *Deferred) Gt(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a > b }) }
func (d *Deferred) Le(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a <= b }) }
func (d *Deferred) Ge(other interface{}) *Deferred { return d.compare(other, func(a, b int) bool { return a >= b }) }
