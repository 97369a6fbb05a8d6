// Package ast holds the small value types shared by the parser, encoder and
// compiler: source positions, the interned register set and the four
// addressing-mode argument variants an instruction operand can take.
package ast

import "fmt"

// Position is a (file, line, column, source-slice) tuple attached to every
// parse event and every deferred value, for diagnostics.
type Position struct {
	File    string
	Line    int
	Column  int
	Snippet string
}

func (p Position) String() string {
	return fmt.Sprintf("%s (line %d, column %d)", p.File, p.Line, p.Column)
}
