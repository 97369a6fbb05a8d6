// Package deferred implements the lazy-evaluation substrate used for label
// addresses, PC-relative offsets and computed sizes (spec.md §4.1).
//
// Go has no operator overloading, so arithmetic is exposed through named
// combinator methods (Add, Sub, ...) instead of mimicking Python's infix
// dispatch — per the design note in spec.md §9. Internally the thunk is a
// tagged tree: a leaf or binary-op computation, plus a short list of
// "pending" algebraic operations that fuse eagerly instead of growing the
// tree (spec.md §4.1's "eager fusion keeps graphs shallow").
package deferred

import "fmt"

// Type tags the kind of value a Deferred produces once evaluated. Fusion of
// pending arithmetic only applies to TInt-tagged thunks (see addPendingMath).
type Type int

const (
	TInt Type = iota
	TBool
	TList
	TAny
	TRaise
)

// Context is the opaque evaluation environment passed down to every leaf
// computation. In this program it is always a *compiler.Compiler, but this
// package stays decoupled from pkg/compiler to avoid an import cycle
// (compiler depends on deferred, not the reverse).
type Context interface{}

// RecursiveError is returned when a Deferred is evaluated while already
// being evaluated — spec.md §4.1 / §7's "recursive-definition" diagnostic.
type RecursiveError struct{}

func (RecursiveError) Error() string { return "deferred value is recursively defined" }

type pendingOp struct {
	text    string
	apply   func(a, b int) (int, error)
	operand int
	reverse bool
}

// Deferred is a lazy thunk over an int, bool, []int or arbitrary value.
type Deferred struct {
	typ Type

	cached bool
	cache  interface{}

	// compute produces the pre-pending-math result. nil for a cached leaf
	// created directly from a literal.
	compute func(ctx Context) (interface{}, error)

	pending []pendingOp

	evaluating bool

	// mapLeaf, when non-nil, lets Map rewrite this node's label reference
	// directly (set by the label-leaf constructor in pkg/ast).
	mapLeaf func(f func(string) string) *Deferred

	// children/rebuild let Map recurse through operator nodes generically
	// without pkg/deferred knowing anything about labels.
	children []*Deferred
	rebuild  func(children []*Deferred) *Deferred
}

// NewLiteral builds an already-cached Deferred from a concrete value.
func NewLiteral(v interface{}, typ Type) *Deferred {
	return &Deferred{typ: typ, cached: true, cache: v}
}

// NewComputed builds an uncached Deferred from a computation.
func NewComputed(f func(ctx Context) (interface{}, error), typ Type) *Deferred {
	return &Deferred{typ: typ, compute: f}
}

// NewFrom shallow-copies d: same cache/cached/compute, a fresh copy of the
// pending-math slice, and its own evaluating flag. Used by the arithmetic
// combinators, mirroring Deferred(self, res_type) in the original.
func NewFrom(d *Deferred, typ Type) *Deferred {
	cp := &Deferred{
		typ:      typ,
		cached:   d.cached,
		cache:    d.cache,
		compute:  d.compute,
		mapLeaf:  d.mapLeaf,
		children: d.children,
		rebuild:  d.rebuild,
	}
	cp.pending = append(cp.pending, d.pending...)
	return cp
}

// Type reports this thunk's result-type tag.
func (d *Deferred) Type() Type { return d.typ }

// IsCached reports whether this thunk has already been evaluated (or was
// built directly from a literal).
func (d *Deferred) IsCached() bool { return d.cached }

// CachedValue returns the cached value and true, or (nil, false) if this
// thunk hasn't been evaluated yet.
func (d *Deferred) CachedValue() (interface{}, bool) {
	if d.cached {
		return d.cache, true
	}
	return nil, false
}

// Eval evaluates the thunk against ctx, caching the result. Evaluating an
// already-cached thunk is idempotent: the cached value is returned without
// re-running the leaf computation (spec.md §4.1, §8 invariant 6).
func (d *Deferred) Eval(ctx Context) (interface{}, error) {
	if d.cached {
		return d.cache, nil
	}
	if d.evaluating {
		return nil, RecursiveError{}
	}
	d.evaluating = true
	defer func() { d.evaluating = false }()

	var result interface{}
	var err error
	if d.compute != nil {
		result, err = d.compute(ctx)
		if err != nil {
			return nil, err
		}
	}

	for _, p := range d.pending {
		iv, ok := asInt(result)
		if !ok {
			return nil, fmt.Errorf("pending arithmetic %s applied to non-integer value %v", p.text, result)
		}
		var folded int
		if p.reverse {
			folded, err = p.apply(p.operand, iv)
		} else {
			folded, err = p.apply(iv, p.operand)
		}
		if err != nil {
			return nil, err
		}
		result = folded
	}

	for {
		inner, ok := result.(*Deferred)
		if !ok {
			break
		}
		result, err = inner.Eval(ctx)
		if err != nil {
			return nil, err
		}
	}

	d.cached = true
	d.cache = result
	return result, nil
}

func asInt(v interface{}) (int, bool) {
	switch n := v.(type) {
	case int:
		return n, true
	case int64:
		return int(n), true
	}
	return 0, false
}

// Then queues a post-conversion: f runs on the evaluated value, and the
// result is re-tagged as typ. If the thunk is already cached, f runs
// immediately.
func (d *Deferred) Then(f func(v interface{}) (interface{}, error), typ Type) *Deferred {
	if d.cached {
		v, err := f(d.cache)
		if err != nil {
			return Raise(err)
		}
		return NewLiteral(v, typ)
	}
	return NewComputed(func(ctx Context) (interface{}, error) {
		v, err := d.Eval(ctx)
		if err != nil {
			return nil, err
		}
		return f(v)
	}, typ)
}

// Map rewrites every label leaf in this thunk's tree via f, producing a new
// Deferred. Used by .REPEAT unrolling to give each iteration's locally
// defined labels a unique suffix (spec.md §4.4).
func (d *Deferred) Map(f func(string) string) *Deferred {
	var base *Deferred
	switch {
	case d.mapLeaf != nil:
		base = d.mapLeaf(f)
	case len(d.children) > 0:
		mapped := make([]*Deferred, len(d.children))
		for i, c := range d.children {
			mapped[i] = c.Map(f)
		}
		base = d.rebuild(mapped)
	default:
		return d
	}

	if len(d.pending) == 0 {
		return base
	}
	nd := NewFrom(base, d.typ)
	for _, p := range d.pending {
		nd.addPendingMath(p.text, p.apply, p.operand, p.reverse)
	}
	return nd
}

// WithLeafMapper attaches a Map hook to a leaf Deferred (used by the label
// constructor ast.NewLabelDeferred — see the mapLeaf field's comment).
func (d *Deferred) WithLeafMapper(m func(f func(string) string) *Deferred) *Deferred {
	d.mapLeaf = m
	return d
}

// WithChildren attaches the operator-node plumbing Map needs to recurse
// through an internal binary/unary node.
func (d *Deferred) WithChildren(children []*Deferred, rebuild func([]*Deferred) *Deferred) *Deferred {
	d.children = children
	d.rebuild = rebuild
	return d
}
