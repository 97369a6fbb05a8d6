// Package compiler drives parsing of every included file, interprets
// directives, tracks PC/link-PC, encodes instructions and appends to the
// write log (spec.md §4.4). It is the only package that implements
// ast.LabelResolver and ast.StaticAllocResolver, keeping pkg/ast and
// pkg/parser decoupled from it.
package compiler

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/golang/glog"

	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
	"github.com/oisee/pdpy11go/pkg/parser"
	"github.com/oisee/pdpy11go/pkg/symtab"
)

// Options is the CLI/config layer's input to New (spec.md §1.4).
type Options struct {
	Syntax        string // "pdp11asm" | "pdpy11"
	LinkAddress   int
	Defines       map[string]interface{} // int or string, from -D
	ProjectRoot   string
	ForceFormat   string
	OutputPath    string
	EmitListing   bool
	SublimeErrors bool
}

// Kind tags a Diagnostic's place in spec.md §7's error taxonomy.
type Kind int

const (
	KindSyntax Kind = iota
	KindSemantic
	KindEvaluate
	KindRecursive
	KindIO
)

// Diagnostic is the one error type every fallible operation in this package
// surfaces (spec.md §7: "all errors are fatal").
type Diagnostic struct {
	Kind    Kind
	File    string
	Line    int
	Column  int
	Message string
	Stack   []string
	Snippet string
}

func (d *Diagnostic) Error() string {
	if len(d.Stack) == 0 {
		return fmt.Sprintf("%s:%d:%d: %s", d.File, d.Line, d.Column, d.Message)
	}
	return fmt.Sprintf("%s:%d:%d: %s (while parsing %s)", d.File, d.Line, d.Column, d.Message, strings.Join(d.Stack, " > "))
}

// Sublime renders the single-line `file:::line:::col:::msg` form --sublime
// selects (spec.md §6).
func (d *Diagnostic) Sublime() string {
	return fmt.Sprintf("%s:::%d:::%d:::%s", d.File, d.Line, d.Column, d.Message)
}

func diagFromPos(kind Kind, pos ast.Position, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, File: pos.File, Line: pos.Line, Column: pos.Column, Message: fmt.Sprintf(format, args...)}
}

// WriteEntry is one entry of the ordered write log (spec.md §3). Value
// evaluates to either an int (painted as Size little-endian bytes) or an
// []int (painted as raw bytes, Size ignored).
type WriteEntry struct {
	Address int
	Value   *deferred.Deferred
	Size    int
}

// BuildTarget is one make_* directive's recorded request (spec.md §3).
type BuildTarget struct {
	Format string // "raw" | "bin" | "sav" | "turbo-wav" | "wav"
	Path   string
	Name2  string // BK filename field for turbo-wav/wav
}

type externPolicy int

const (
	externNamesOnly externPolicy = iota
	externAll
	externNone
)

// fileScope is the per-file state saved/restored around an .INCLUDE (spec.md
// §4.4: "saves current extern policy ... restores policy on file exit").
type fileScope struct {
	policy  externPolicy
	names   map[string]bool
	convert bool // CONVERT1251TOKOI8R
}

// FileReader abstracts filesystem access so tests can supply in-memory
// sources without touching disk.
type FileReader func(path string) (string, error)

// Compiler is the driver; one instance per run (spec.md §5: "the compiler
// owns the symbol table, write log and build list for the lifetime of one
// invocation").
type Compiler struct {
	Opts Options
	Sym  *symtab.Table

	Writes  []WriteEntry
	Targets []BuildTarget

	PC          int
	LinkPC      int
	LinkAddress int

	staticAllocNext int
	repeatCounter   int

	includeRoot string
	onceSeen    map[string]bool

	scope fileScope

	read FileReader
}

// New builds a Compiler ready to compile the include-root files of one run.
func New(opts Options, read FileReader) *Compiler {
	c := &Compiler{
		Opts:        opts,
		Sym:         symtab.New(),
		LinkAddress: opts.LinkAddress,
		PC:          opts.LinkAddress,
		LinkPC:      opts.LinkAddress,
		onceSeen:    make(map[string]bool),
		read:        read,
	}
	c.PC, c.LinkPC, c.LinkAddress = opts.LinkAddress, opts.LinkAddress, opts.LinkAddress
	for name, v := range opts.Defines {
		c.Sym.Define("", name, deferred.NewLiteral(v, deferred.TAny), true)
	}
	return c
}

func (c *Compiler) dialect() parser.Dialect {
	if c.Opts.Syntax == "pdp11asm" {
		return parser.DialectPDP11ASM
	}
	return parser.DialectPDPY11
}

// ResolveLabel implements ast.LabelResolver.
func (c *Compiler) ResolveLabel(fileID, name string, pos ast.Position) (int, error) {
	v, ok := c.Sym.Lookup(fileID, name)
	if !ok {
		return 0, diagFromPos(KindEvaluate, pos, "label %q not found", name)
	}
	d, ok := v.(*deferred.Deferred)
	if !ok {
		return 0, diagFromPos(KindEvaluate, pos, "label %q has no integer value", name)
	}
	val, err := d.Eval(c)
	if err != nil {
		if _, rec := err.(deferred.RecursiveError); rec {
			return 0, diagFromPos(KindRecursive, pos, "label %q is recursively defined", name)
		}
		return 0, err
	}
	n, ok := val.(int)
	if !ok {
		return 0, diagFromPos(KindEvaluate, pos, "label %q did not evaluate to an integer", name)
	}
	return n, nil
}

// AllocateStatic implements ast.StaticAllocResolver.
func (c *Compiler) AllocateStatic(byteLength int) (int, error) {
	addr := c.staticAllocNext
	c.staticAllocNext += byteLength
	return addr, nil
}

// ResetForRoot clears the per-root write log, build targets and PC/link-PC
// state while keeping the shared symbol table's extern entries, so project
// mode can compile multiple include-roots in sequence (spec.md §4.5 step 4).
// onceSeen is deliberately NOT reset here: a .ONCE guard is per build, not
// per root, exactly like the original's `included_before` set, which is
// initialized once and never cleared inside its per-root loop.
func (c *Compiler) ResetForRoot() {
	c.Writes = nil
	c.Targets = nil
	c.PC, c.LinkPC, c.LinkAddress = c.Opts.LinkAddress, c.Opts.LinkAddress, c.Opts.LinkAddress
}

// Run compiles fileID as the current include-root, appending its writes to
// c.Writes and any make_* requests to c.Targets.
func (c *Compiler) Run(fileID string) error {
	glog.Infof("compiling %s as include root", fileID)
	c.includeRoot = fileID
	src, err := c.read(fileID)
	if err != nil {
		return &Diagnostic{Kind: KindIO, File: fileID, Message: err.Error()}
	}
	return c.compileFile(fileID, src)
}

// compileFile parses fileID's source and dispatches every event, restoring
// the extern-policy/conversion scope on exit (spec.md §4.4).
func (c *Compiler) compileFile(fileID, src string) error {
	saved := c.scope
	c.scope = fileScope{names: make(map[string]bool)}
	defer func() { c.scope = saved }()

	glog.Infof("parsing %s", fileID)
	isRoot := fileID == c.includeRoot
	p := parser.NewParser(fileID, src, c.dialect())

	for {
		ev, err := p.NextEvent()
		if err != nil {
			return toSyntaxDiagnostic(err)
		}
		if ev.Kind == parser.EventEOF {
			return nil
		}

		if err := c.defineLabels(fileID, ev.Labels, ev.Pos); err != nil {
			return err
		}

		switch ev.Kind {
		case parser.EventAssignment:
			extern := c.isExtern(ev.AssignName)
			if err := c.Sym.Define(fileID, ev.AssignName, ev.AssignExpr, extern); err != nil {
				return diagFromPos(KindSemantic, ev.Pos, "%s", err)
			}
		case parser.EventInstruction:
			if err := c.compileInstruction(fileID, ev); err != nil {
				return err
			}
		case parser.EventRepeat:
			if err := c.compileRepeat(fileID, ev); err != nil {
				return err
			}
		case parser.EventDirective:
			stop, err := c.handleDirective(fileID, isRoot, ev)
			if err != nil {
				return err
			}
			if stop {
				return nil
			}
		}
	}
}

func toSyntaxDiagnostic(err error) error {
	if se, ok := err.(*parser.SyntaxError); ok {
		return &Diagnostic{Kind: KindSyntax, File: se.Pos.File, Line: se.Pos.Line, Column: se.Pos.Column,
			Message: se.Message, Stack: se.Stages, Snippet: se.Pos.Snippet}
	}
	return err
}

// defineLabels installs every label attached to one statement at the
// current link-PC (spec.md §4.4's "Label definition").
func (c *Compiler) defineLabels(fileID string, labels []string, pos ast.Position) error {
	for _, name := range labels {
		extern := c.isExtern(name)
		if err := c.Sym.Define(fileID, name, deferred.NewLiteral(c.LinkPC, deferred.TInt), extern); err != nil {
			return diagFromPos(KindSemantic, pos, "%s", err)
		}
	}
	return nil
}

func (c *Compiler) isExtern(name string) bool {
	switch c.scope.policy {
	case externAll:
		return true
	case externNone:
		return false
	default:
		return c.scope.names[name]
	}
}

func (c *Compiler) emitWord(word *deferred.Deferred) {
	c.Writes = append(c.Writes, WriteEntry{Address: c.PC, Value: word, Size: 2})
	c.PC += 2
	c.LinkPC += 2
}

func (c *Compiler) emitByte(b *deferred.Deferred) {
	c.Writes = append(c.Writes, WriteEntry{Address: c.PC, Value: b, Size: 1})
	c.PC++
	c.LinkPC++
}

func (c *Compiler) emitBytes(bytes []int) {
	if len(bytes) == 0 {
		return
	}
	c.Writes = append(c.Writes, WriteEntry{Address: c.PC, Value: deferred.NewLiteral(bytes, deferred.TList)})
	c.PC += len(bytes)
	c.LinkPC += len(bytes)
}

func (c *Compiler) emitZeros(n int) {
	if n <= 0 {
		return
	}
	c.emitBytes(make([]int, n))
}

// evalNow evaluates expr immediately against this Compiler, for directives
// whose effect on PC must be known at compile time (BLKB/BLKW/EVEN/ALIGN/
// .LINK/.REPEAT count).
func (c *Compiler) evalNow(expr *deferred.Deferred, pos ast.Position, what string) (int, error) {
	v, err := expr.Eval(c)
	if err != nil {
		return 0, diagFromPos(KindSemantic, pos, "%s must be known at compile time: %v", what, err)
	}
	n, ok := v.(int)
	if !ok {
		return 0, diagFromPos(KindSemantic, pos, "%s did not evaluate to an integer", what)
	}
	return n, nil
}

// resolveIncludePath resolves path relative to the including file's
// directory (spec.md §4.4).
func resolveIncludePath(fromFile, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(filepath.Dir(fromFile), path)
}

func defaultTargetPath(fileID, ext string) string {
	base := strings.TrimSuffix(fileID, filepath.Ext(fileID))
	return base + ext
}
