package compiler

import (
	"github.com/oisee/pdpy11go/pkg/deferred"
	"github.com/oisee/pdpy11go/pkg/encoder"
	"github.com/oisee/pdpy11go/pkg/parser"
)

// compileInstruction encodes one EventInstruction's words and appends them
// to the write log, desugaring PUSH/POP first (spec.md §4.3).
func (c *Compiler) compileInstruction(fileID string, ev parser.Event) error {
	entry, ok := encoder.Lookup(ev.Mnemonic)
	if !ok {
		return diagFromPos(KindSemantic, ev.Pos, "unknown mnemonic %q", ev.Mnemonic)
	}

	if entry.Desugar != nil {
		desugared, err := entry.Desugar(ev.Operands)
		if err != nil {
			return diagFromPos(KindSemantic, ev.Pos, "%s", err)
		}
		for _, d := range desugared {
			sub := ev
			sub.Mnemonic = d.Mnemonic
			sub.Operands = d.Args
			if err := c.compileInstruction(fileID, sub); err != nil {
				return err
			}
		}
		return nil
	}

	// linkPC is this instruction's own first word's link address -- branch
	// and SOB deltas are relative to linkPC+2 (spec.md §4.3).
	linkPC := c.LinkPC

	switch len(entry.ArgTypes) {
	case 0:
		c.emitAll(encoder.EncodeZeroArg(entry.Opcode))
	case 1:
		switch entry.ArgTypes[0] {
		case encoder.A:
			c.emitAll(encoder.EncodeOneA(entry.Opcode, ev.Operands[0], linkPC))
		case encoder.D:
			delta := ev.Operands[0].Addr.Sub(linkPC + 2)
			c.emitAll(encoder.EncodeBranch(entry.Opcode, delta, ev.Pos))
		case encoder.I:
			c.emitAll(encoder.EncodeImm(entry.Opcode, entry.MaxImm, ev.Operands[0].Value, ev.Pos))
		}
	case 2:
		switch {
		case entry.ArgTypes[0] == encoder.A && entry.ArgTypes[1] == encoder.A:
			c.emitAll(encoder.EncodeTwoA(entry.Opcode, ev.Operands[0], ev.Operands[1], linkPC))
		case entry.ArgTypes[0] == encoder.R && entry.ArgTypes[1] == encoder.A:
			c.emitAll(encoder.EncodeRA(entry.Opcode, ev.Operands[0].Reg, ev.Operands[1], linkPC))
		case entry.ArgTypes[0] == encoder.A && entry.ArgTypes[1] == encoder.R:
			c.emitAll(encoder.EncodeAR(entry.Opcode, ev.Operands[0], ev.Operands[1].Reg, linkPC))
		case entry.ArgTypes[0] == encoder.R && entry.ArgTypes[1] == encoder.D:
			delta := deferred.NewLiteral(linkPC+2, deferred.TInt).Sub(ev.Operands[1].Addr)
			c.emitAll(encoder.EncodeSOB(entry.Opcode, ev.Operands[0].Reg, delta, ev.Pos))
		}
	}
	return nil
}

// emitAll appends every encoded word of one instruction to the write log,
// advancing PC/link-PC by 2 per word (spec.md §4.3).
func (c *Compiler) emitAll(words []*deferred.Deferred) {
	for _, w := range words {
		c.emitWord(w)
	}
}
