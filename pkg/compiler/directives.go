package compiler

import (
	"github.com/golang/glog"

	"github.com/oisee/pdpy11go/internal/koi8"
	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
	"github.com/oisee/pdpy11go/pkg/parser"
)

// handleDirective dispatches one EventDirective. The bool result tells
// compileFile to stop reading fileID (END reached, .ONCE re-entry, or a
// pdp11asm-dialect .INCLUDE that hands control fully to the included file).
func (c *Compiler) handleDirective(fileID string, isRoot bool, ev parser.Event) (bool, error) {
	switch ev.Name {
	case "PDP11":
		return false, nil
	case "I8080":
		return false, diagFromPos(KindSemantic, ev.Pos, ".I8080 syntax is not supported")
	case "EVEN":
		if c.LinkPC%2 != 0 {
			c.emitByte(deferred.NewLiteral(0, deferred.TInt))
		}
		return false, nil
	case "ONCE":
		if c.onceSeen[fileID] {
			return true, nil // already entered this file once this build; stop here, as if EOF
		}
		c.onceSeen[fileID] = true
		return false, nil
	case "END":
		return true, nil
	case "SYNTAX":
		return false, nil // the lexer's Dialect field is already flipped by the parser
	case "DECIMALNUMBERS":
		return false, nil // likewise applied directly to the lexer
	case "CONVERT1251TOKOI8R":
		c.scope.convert = ev.Flag
		return false, nil
	case "LINK":
		n, err := c.evalNow(ev.Exprs[0], ev.Pos, ".LINK address")
		if err != nil {
			return false, err
		}
		if isRoot {
			c.PC, c.LinkPC, c.LinkAddress = n, n, n
		} else {
			glog.Warningf("%s: .LINK inside an included file moves only the link address; output PC is unaffected", ev.Pos)
			c.LinkPC = n
		}
		return false, nil
	case "EXTERN":
		c.applyExtern(ev.Names)
		return false, nil
	case "BYTE":
		for _, e := range ev.Exprs {
			c.emitByte(maskByte(e, ev.Pos))
		}
		return false, nil
	case "WORD":
		for _, e := range ev.Exprs {
			c.emitWord(maskWord(e, ev.Pos))
		}
		return false, nil
	case "DWORD":
		for _, e := range ev.Exprs {
			lo := e.Then(func(v interface{}) (interface{}, error) { return v.(int) & 0xFFFF, nil }, deferred.TInt)
			hi := e.Then(func(v interface{}) (interface{}, error) { return (v.(int) >> 16) & 0xFFFF, nil }, deferred.TInt)
			c.emitWord(lo)
			c.emitWord(hi)
		}
		return false, nil
	case "BLKB":
		n, err := c.evalNow(ev.Exprs[0], ev.Pos, ".BLKB count")
		if err != nil {
			return false, err
		}
		c.emitZeros(n)
		return false, nil
	case "BLKW":
		n, err := c.evalNow(ev.Exprs[0], ev.Pos, ".BLKW count")
		if err != nil {
			return false, err
		}
		c.emitZeros(n * 2)
		return false, nil
	case "ALIGN":
		n, err := c.evalNow(ev.Exprs[0], ev.Pos, ".ALIGN boundary")
		if err != nil {
			return false, err
		}
		if n <= 0 {
			return false, diagFromPos(KindSemantic, ev.Pos, ".ALIGN boundary must be positive")
		}
		for c.LinkPC%n != 0 {
			c.emitByte(deferred.NewLiteral(0, deferred.TInt))
		}
		return false, nil
	case "ASCII", "ASCIZ":
		bytes, err := c.encodeText(ev.Str, ev.Pos)
		if err != nil {
			return false, err
		}
		if ev.Name == "ASCIZ" {
			bytes = append(bytes, 0)
		}
		c.emitBytes(bytes)
		return false, nil
	case "INCLUDE", "RAW_INCLUDE":
		return c.handleInclude(fileID, ev)
	case "INSERT_FILE":
		path := resolveIncludePath(fileID, ev.Str)
		src, err := c.read(path)
		if err != nil {
			return false, &Diagnostic{Kind: KindIO, File: path, Message: err.Error()}
		}
		c.emitBytes(stringToBytes(src))
		return false, nil
	case "MAKE_RAW":
		c.addTarget("raw", fileID, ev, ".raw")
		return false, nil
	case "MAKE_BIN":
		c.addTarget("bin", fileID, ev, ".bin")
		return false, nil
	case "MAKE_SAV":
		c.addTarget("sav", fileID, ev, ".sav")
		return false, nil
	case "MAKE_TURBO_WAV":
		c.addTarget("turbo-wav", fileID, ev, ".wav")
		return false, nil
	case "MAKE_WAV":
		c.addTarget("wav", fileID, ev, ".wav")
		return false, nil
	default:
		return false, diagFromPos(KindSemantic, ev.Pos, "unhandled directive .%s", ev.Name)
	}
}

func (c *Compiler) addTarget(format, fileID string, ev parser.Event, defaultExt string) {
	if fileID != c.includeRoot {
		glog.Warningf("%s: make_%s outside the include root is ignored", ev.Pos, format)
		return
	}
	path := ev.Str
	if path == "" {
		path = defaultTargetPath(fileID, defaultExt)
	}
	c.Targets = append(c.Targets, BuildTarget{Format: format, Path: path, Name2: ev.Str2})
}

func (c *Compiler) applyExtern(names []string) {
	switch {
	case len(names) == 1 && names[0] == "ALL":
		c.scope.policy = externAll
	case len(names) == 1 && names[0] == "NONE":
		c.scope.policy = externNone
	default:
		c.scope.policy = externNamesOnly
		for _, n := range names {
			c.scope.names[n] = true
		}
	}
}

func (c *Compiler) encodeText(s string, pos ast.Position) ([]int, error) {
	var bytes []byte
	var err error
	if c.scope.convert {
		bytes, err = koi8.FromWindows1251([]byte(s))
	} else {
		bytes, err = koi8.Encode(s)
	}
	if err != nil {
		return nil, diagFromPos(KindSemantic, pos, "cannot encode string: %v", err)
	}
	out := make([]int, len(bytes))
	for i, b := range bytes {
		out[i] = int(b)
	}
	return out, nil
}

func stringToBytes(s string) []int {
	raw := []byte(s)
	out := make([]int, len(raw))
	for i, b := range raw {
		out[i] = int(b)
	}
	return out
}

func maskByte(e *deferred.Deferred, pos ast.Position) *deferred.Deferred {
	return e.Then(func(v interface{}) (interface{}, error) {
		n := v.(int)
		if n < -128 || n > 255 {
			return nil, diagFromPos(KindEvaluate, pos, ".BYTE value out of range: %d", n)
		}
		return n & 0xFF, nil
	}, deferred.TInt)
}

func maskWord(e *deferred.Deferred, pos ast.Position) *deferred.Deferred {
	return e.Then(func(v interface{}) (interface{}, error) {
		n := v.(int)
		if n < -32768 || n > 65535 {
			return nil, diagFromPos(KindEvaluate, pos, ".WORD value out of range: %d", n)
		}
		return n & 0xFFFF, nil
	}, deferred.TInt)
}

// handleInclude resolves and recursively compiles an .INCLUDE/.RAW_INCLUDE
// target (spec.md §4.4). In the pdp11asm dialect .INCLUDE hands control
// entirely to the included file: the including file is not resumed.
//
// Every .INCLUDE of a given path is compiled unconditionally, matching the
// original's `include`/`addFile`/`compileFile` chain, which carries no path
// dedup of its own. A file that wants idempotence on repeated inclusion
// opts in with its own leading .ONCE directive (handled in the "ONCE" case
// above); .INCLUDE itself never guesses at that on the includer's behalf.
func (c *Compiler) handleInclude(fileID string, ev parser.Event) (bool, error) {
	path := resolveIncludePath(fileID, ev.Str)

	if ev.Name == "RAW_INCLUDE" {
		src, err := c.read(path)
		if err != nil {
			return false, &Diagnostic{Kind: KindIO, File: path, Message: err.Error()}
		}
		c.emitBytes(stringToBytes(src))
		return false, nil
	}

	src, err := c.read(path)
	if err != nil {
		return false, &Diagnostic{Kind: KindIO, File: path, Message: err.Error()}
	}
	if err := c.compileFile(path, src); err != nil {
		return false, err
	}
	return c.dialect() == parser.DialectPDP11ASM, nil
}
