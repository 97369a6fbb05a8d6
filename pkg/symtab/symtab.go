// Package symtab implements the flat, string-keyed label table described in
// spec.md §4.4. A label's storage key encodes its scope directly, rather
// than nesting scopes: a global/extern label is stored under its bare name,
// while every label (global or local) is also stored under
// "{file}:{name}" so that same-named locals in different files never
// collide (spec.md §4.4, §8 invariant 3).
package symtab

import "fmt"

// DuplicateError reports a label collision, matching the two messages
// spec.md §4.4 calls out: a bare global colliding with another global, or
// with a local of the same name in some other file.
type DuplicateError struct {
	Name   string
	File   string
	Detail string
}

func (e DuplicateError) Error() string {
	if e.File != "" {
		return fmt.Sprintf("duplicate label %q: %s (conflicts with label defined in %s)", e.Name, e.Detail, e.File)
	}
	return fmt.Sprintf("duplicate label %q: %s", e.Name, e.Detail)
}

// Table is a flat symbol table. The zero value is not usable; use New.
type Table struct {
	labels map[string]interface{}
}

// New returns an empty Table.
func New() *Table {
	return &Table{labels: make(map[string]interface{})}
}

// Define registers name, defined in file, as referring to value. When
// extern is true the label is additionally visible under its bare name
// (spec.md §4.4's ".EXTERN" promotion rule); local labels are only ever
// visible under their "{file}:{name}" qualified key.
//
// Collisions are rejected per spec.md §4.4:
//   - an extern label whose bare name collides with an existing global, or
//     with ANY file's local label of the same name;
//   - a non-extern label whose bare name collides with an existing global
//     (defined by some earlier .EXTERN);
//   - any label (extern or not) colliding with an already-defined local of
//     the same name in the same file.
func (t *Table) Define(file, name string, value interface{}, extern bool) error {
	if extern {
		suffix := ":" + name
		for key := range t.labels {
			if hasSuffix(key, suffix) {
				owner := key[:len(key)-len(suffix)]
				return DuplicateError{Name: name, File: owner, Detail: "global label collides with a local label"}
			}
		}
		if _, ok := t.labels[name]; ok {
			return DuplicateError{Name: name, Detail: "duplicate global label"}
		}
		t.labels[name] = value
	} else {
		if _, ok := t.labels[name]; ok {
			return DuplicateError{Name: name, File: file, Detail: "local label collides with an existing global label"}
		}
	}

	localName := file + ":" + name
	if _, ok := t.labels[localName]; ok {
		return DuplicateError{Name: name, File: file, Detail: "duplicate local label"}
	}
	t.labels[localName] = value
	return nil
}

// Lookup resolves name as referenced from file: the file-local qualified
// key is tried first, then the bare (global/extern) key.
func (t *Table) Lookup(file, name string) (interface{}, bool) {
	if v, ok := t.labels[file+":"+name]; ok {
		return v, true
	}
	v, ok := t.labels[name]
	return v, ok
}

// Keys returns every stored key (bare and qualified) for fixpoint
// resolution passes over the whole table (spec.md §4.5's link step).
func (t *Table) Keys() []string {
	keys := make([]string, 0, len(t.labels))
	for k := range t.labels {
		keys = append(keys, k)
	}
	return keys
}

// Get returns the raw value stored under key (a key as returned by Keys),
// bypassing scope resolution.
func (t *Table) Get(key string) (interface{}, bool) {
	v, ok := t.labels[key]
	return v, ok
}

func hasSuffix(s, suffix string) bool {
	return len(s) >= len(suffix) && s[len(s)-len(suffix):] == suffix
}
