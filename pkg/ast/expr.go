package ast

import (
	"fmt"

	"github.com/oisee/pdpy11go/pkg/deferred"
)

// LabelResolver is the context a label-leaf Deferred needs at Eval time. A
// *compiler.Compiler satisfies this structurally, so pkg/ast and pkg/parser
// never import pkg/compiler (avoiding the cycle noted in deferred's doc
// comment: compiler depends on deferred/ast, never the reverse).
type LabelResolver interface {
	ResolveLabel(fileID, name string, pos Position) (int, error)
}

// NewLabelDeferred builds a lazy reference to a label, resolved against
// whatever deferred.Context Eval is called with (spec.md §3's "Expression").
// It carries a Map hook so .REPEAT unrolling can rename the label it points
// to without touching anything else in the surrounding expression tree.
func NewLabelDeferred(fileID, name string, pos Position) *deferred.Deferred {
	d := deferred.NewComputed(func(ctx deferred.Context) (interface{}, error) {
		lr, ok := ctx.(LabelResolver)
		if !ok {
			return nil, fmt.Errorf("label %q referenced outside a resolvable context", name)
		}
		return lr.ResolveLabel(fileID, name, pos)
	}, deferred.TInt)
	return d.WithLeafMapper(func(f func(string) string) *deferred.Deferred {
		return NewLabelDeferred(fileID, f(name), pos)
	})
}

// StaticAllocResolver lets STATIC_ALLOC(n)/STATIC_ALLOC_BYTE(n) pseudo
// expressions bump-allocate an address at evaluation time (spec.md
// GLOSSARY's "Static alloc").
type StaticAllocResolver interface {
	AllocateStatic(byteLength int) (int, error)
}

// NewStaticAllocDeferred builds a thunk that evaluates byteLength, then
// bump-allocates that many bytes against whatever Context Eval is called
// with. Idempotent caching (deferred.Deferred's built-in cache) gives the
// same "allocate once" semantics as the original's manual cache slot.
func NewStaticAllocDeferred(byteLength *deferred.Deferred) *deferred.Deferred {
	return deferred.NewComputed(func(ctx deferred.Context) (interface{}, error) {
		sa, ok := ctx.(StaticAllocResolver)
		if !ok {
			return nil, fmt.Errorf("STATIC_ALLOC used outside a resolvable context")
		}
		n, err := byteLength.Eval(ctx)
		if err != nil {
			return nil, err
		}
		ni, ok := n.(int)
		if !ok {
			return nil, fmt.Errorf("STATIC_ALLOC length did not evaluate to an integer")
		}
		return sa.AllocateStatic(ni)
	}, deferred.TInt)
}
