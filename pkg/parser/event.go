package parser

import (
	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

// EventKind tags which fields of Event are meaningful (spec.md §2's "lazy
// sequence of (directive-or-mnemonic, arg-tree, labels-attached) events").
type EventKind int

const (
	EventEOF EventKind = iota
	EventDirective
	EventAssignment
	EventInstruction
	EventRepeat
)

// Event is one labeled statement. Only the fields relevant to Kind are
// populated; pkg/compiler's handler switches on Kind then Name/Mnemonic.
type Event struct {
	Pos    ast.Position
	Labels []string

	Kind EventKind

	// EventDirective
	Name  string                // canonical keyword, no leading dot (e.g. "LINK", "BYTE", "EXTERN")
	Exprs []*deferred.Deferred  // BYTE/WORD/DWORD list; LINK/BLKB/BLKW/ALIGN single-element
	Str   string                // INCLUDE/RAW_INCLUDE/INSERT_FILE path, ASCII/ASCIZ text, SYNTAX dialect name, make_* path
	Str2  string                // make_turbo_wav/make_wav optional BK filename
	Names []string              // EXTERN name list ("ALL"/"NONE" or explicit names)
	Flag  bool                  // DECIMALNUMBERS / CONVERT1251TOKOI8R argument, defaults true

	// EventAssignment
	AssignName string
	AssignExpr *deferred.Deferred

	// EventInstruction
	Mnemonic string
	Operands []ast.Arg

	// EventRepeat
	RepeatCount *deferred.Deferred
	RepeatBody  []Event
}
