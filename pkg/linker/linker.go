// Package linker implements the fixpoint label resolution and write-log
// painting step of spec.md §4.5: forcing every label in the symbol table,
// evaluating the write log in order into a growing byte image, then
// slicing from link-address to the end.
package linker

import (
	"fmt"
	"sort"

	"github.com/golang/glog"

	"github.com/oisee/pdpy11go/pkg/compiler"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

// Image is one compiled unit's linked output: the byte payload starting at
// LinkAddress, plus the non-global/non-synthetic local labels for a
// listing (spec.md §4.5 "Listing output").
type Image struct {
	LinkAddress int
	FinalAddress int // one past the last written byte
	Bytes       []byte
	Labels      []LabelEntry
}

// LabelEntry is one listing line's data (spec.md §4.5).
type LabelEntry struct {
	Address int
	Name    string
}

// Link forces every symbol, paints c's write log into a byte array, and
// slices it from c.LinkAddress to the end.
func Link(c *compiler.Compiler) (*Image, error) {
	glog.Infof("linking")
	if err := forceEvalAllLabels(c); err != nil {
		return nil, err
	}

	img, final, err := paint(c)
	if err != nil {
		return nil, err
	}

	start := c.LinkAddress
	if start > len(img) {
		start = len(img)
	}
	labels := listing(c, start)

	return &Image{
		LinkAddress:  c.LinkAddress,
		FinalAddress: final,
		Bytes:        img[start:],
		Labels:       labels,
	}, nil
}

// forceEvalAllLabels evaluates every stored symbol once so "label not
// found"/recursive-definition errors surface deterministically before any
// byte is painted (spec.md §4.5 step 1).
func forceEvalAllLabels(c *compiler.Compiler) error {
	for _, key := range c.Sym.Keys() {
		v, _ := c.Sym.Get(key)
		d, ok := v.(*deferred.Deferred)
		if !ok {
			continue
		}
		if _, err := d.Eval(c); err != nil {
			if _, rec := err.(deferred.RecursiveError); rec {
				return &compiler.Diagnostic{Kind: compiler.KindRecursive, Message: fmt.Sprintf("label %q is recursively defined", key)}
			}
			return &compiler.Diagnostic{Kind: compiler.KindEvaluate, Message: err.Error()}
		}
	}
	return nil
}

// paint evaluates every write entry and lays it into a growing byte array,
// later writes overwriting earlier ones on overlap (spec.md §4.5 step 2,
// §5 "later one wins").
func paint(c *compiler.Compiler) ([]byte, int, error) {
	var img []byte
	final := 0

	grow := func(n int) {
		if n > len(img) {
			bigger := make([]byte, n)
			copy(bigger, img)
			img = bigger
		}
	}

	for _, w := range c.Writes {
		v, err := w.Value.Eval(c)
		if err != nil {
			return nil, 0, &compiler.Diagnostic{Kind: compiler.KindEvaluate, Message: err.Error()}
		}
		switch t := v.(type) {
		case int:
			size := w.Size
			if size == 0 {
				size = 1
			}
			grow(w.Address + size)
			img[w.Address] = byte(t)
			if size == 2 {
				img[w.Address+1] = byte(t >> 8)
			}
			if w.Address+size > final {
				final = w.Address + size
			}
		case []int:
			grow(w.Address + len(t))
			for i, b := range t {
				img[w.Address+i] = byte(b)
			}
			if w.Address+len(t) > final {
				final = w.Address + len(t)
			}
		default:
			return nil, 0, &compiler.Diagnostic{Kind: compiler.KindEvaluate, Message: "write entry did not evaluate to a byte or byte list"}
		}
	}
	return img, final, nil
}

// listing collects every local, non-extern label at or past start, sorted
// by address (spec.md §4.5). Repeat-unrolled and synthetic "."-labels are
// excluded by name shape.
func listing(c *compiler.Compiler, start int) []LabelEntry {
	var out []LabelEntry
	for _, key := range c.Sym.Keys() {
		name, isLocal := splitQualified(key)
		if !isLocal || isSynthetic(name) {
			continue
		}
		if _, global := c.Sym.Get(name); global {
			continue // extern/global labels are also stored under a qualified key
		}
		v, _ := c.Sym.Get(key)
		d, ok := v.(*deferred.Deferred)
		if !ok {
			continue
		}
		addr, err := d.Eval(c)
		if err != nil {
			continue
		}
		n, ok := addr.(int)
		if !ok || n < start {
			continue
		}
		out = append(out, LabelEntry{Address: n, Name: name})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Address < out[j].Address })
	return out
}

func splitQualified(key string) (name string, isLocal bool) {
	for i := 0; i < len(key); i++ {
		if key[i] == ':' {
			return key[i+1:], true
		}
	}
	return key, false
}

func isSynthetic(name string) bool {
	if len(name) == 0 {
		return false
	}
	if name[0] == '.' {
		return true
	}
	for i := 0; i+len(": .REPEAT(") <= len(name); i++ {
		if name[i:i+len(": .REPEAT(")] == ": .REPEAT(" {
			return true
		}
	}
	return false
}
