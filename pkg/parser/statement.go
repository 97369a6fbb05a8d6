package parser

import (
	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
	"github.com/oisee/pdpy11go/pkg/encoder"
)

// directiveAliases maps every accepted spelling (spec.md §4.2's grammar
// list) to a canonical, dot-free keyword.
var directiveAliases = map[string]string{
	"ORG": "LINK", ".LINK": "LINK", "LINK": "LINK", ".LA": "LINK", "LA": "LINK",
	".INCLUDE": "INCLUDE", "INCLUDE": "INCLUDE",
	".RAW_INCLUDE": "RAW_INCLUDE", "RAW_INCLUDE": "RAW_INCLUDE",
	".PDP11": "PDP11", "PDP11": "PDP11",
	".I8080": "I8080", "I8080": "I8080",
	".SYNTAX": "SYNTAX", "SYNTAX": "SYNTAX",
	".BYTE": "BYTE", "BYTE": "BYTE", "DB": "BYTE", ".DB": "BYTE",
	".WORD": "WORD", "WORD": "WORD", "DW": "WORD", ".DW": "WORD",
	".DWORD": "DWORD", "DWORD": "DWORD",
	".END": "END", "END": "END",
	".BLKB": "BLKB", "BLKB": "BLKB", "DS": "BLKB", ".DS": "BLKB",
	".BLKW": "BLKW", "BLKW": "BLKW",
	".EVEN": "EVEN", "EVEN": "EVEN",
	"ALIGN": "ALIGN", ".ALIGN": "ALIGN",
	".ASCII": "ASCII", "ASCII": "ASCII",
	".ASCIZ": "ASCIZ", "ASCIZ": "ASCIZ",
	"MAKE_RAW":            "MAKE_RAW",
	"MAKE_BK0010_ROM":     "MAKE_BIN",
	"MAKE_BIN":            "MAKE_BIN",
	"MAKE_SAV":            "MAKE_SAV",
	"MAKE_TURBO_WAV":      "MAKE_TURBO_WAV",
	"MAKE_WAV":            "MAKE_WAV",
	"CONVERT1251TOKOI8R":  "CONVERT1251TOKOI8R",
	"DECIMALNUMBERS":      "DECIMALNUMBERS",
	"INSERT_FILE":         "INSERT_FILE",
	".REPEAT": "REPEAT", "REPEAT": "REPEAT",
	".EXTERN": "EXTERN", "EXTERN": "EXTERN",
	".ONCE": "ONCE", "ONCE": "ONCE",
}

// directivesWithNoArgs never read an operand list.
var directivesWithNoArgs = map[string]bool{
	"PDP11": true, "I8080": true, "END": true, "EVEN": true, "ONCE": true,
}

// directivesWithExprList read a comma-separated expression list.
var directivesWithExprList = map[string]bool{"BYTE": true, "WORD": true, "DWORD": true}

// directivesWithOneExpr read exactly one expression.
var directivesWithOneExpr = map[string]bool{"LINK": true, "BLKB": true, "BLKW": true, "ALIGN": true}

// directivesWithString read one quoted string.
var directivesWithString = map[string]bool{
	"INCLUDE": true, "RAW_INCLUDE": true, "INSERT_FILE": true, "ASCII": true, "ASCIZ": true,
}

// directivesWithOptionalPath read zero or one quoted output path.
var directivesWithOptionalPath = map[string]bool{
	"MAKE_RAW": true, "MAKE_BIN": true, "MAKE_SAV": true, "MAKE_TURBO_WAV": true, "MAKE_WAV": true,
}

// NextEvent parses and returns the next top-level statement, or an
// EventEOF event once only whitespace/comments remain.
func (p *Parser) NextEvent() (Event, error) {
	if p.lx.IsEOF() {
		return Event{Kind: EventEOF}, nil
	}
	return p.parseOneStatement()
}

func (p *Parser) parseOneStatement() (Event, error) {
	p.lx.SkipWhitespace()
	pos := p.currentPos()
	p.CurrentLabels = nil

	for {
		mark := p.lx.Mark()
		lbl, ok := p.tryLabelPrefix()
		if !ok {
			p.lx.Reset(mark)
			break
		}
		p.CurrentLabels = append(p.CurrentLabels, lbl)
		p.lx.SkipWhitespace()
	}
	labels := append([]string(nil), p.CurrentLabels...)

	if p.lx.IsEOF() {
		return Event{Kind: EventEOF, Labels: labels, Pos: pos}, nil
	}

	mark := p.lx.Mark()
	prefix := ""
	if p.lx.NeedPunct('.') == nil {
		prefix = "."
	}
	lit, err := p.lx.NeedLiteral()
	if err != nil {
		return Event{}, p.lx.errorf("statement", "expected directive, label or mnemonic")
	}

	if name, ok := directiveAliases[prefix+lit]; ok {
		return p.parseDirective(name, pos, labels)
	}
	if prefix != "" {
		p.lx.Reset(mark)
		return Event{}, p.lx.errorf("statement", "unknown directive %q", prefix+lit)
	}

	// Assignment: NAME = expr | NAME EQU expr.
	if p.lx.NeedPunct('=') == nil {
		expr, err := p.NeedExpression(false)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventAssignment, Pos: pos, Labels: p.currentStatementLabels(), AssignName: lit, AssignExpr: expr}, nil
	}
	eqMark := p.lx.Mark()
	if eqLit, eqErr := p.lx.NeedLiteral(); eqErr == nil && eqLit == "EQU" {
		expr, err := p.NeedExpression(false)
		if err != nil {
			return Event{}, err
		}
		return Event{Kind: EventAssignment, Pos: pos, Labels: p.currentStatementLabels(), AssignName: lit, AssignExpr: expr}, nil
	}
	p.lx.Reset(eqMark)

	// Mnemonic (real instruction or metacommand).
	entry, ok := encoder.Lookup(lit)
	if !ok {
		p.lx.Reset(mark)
		return Event{}, p.lx.errorf("statement", "unknown mnemonic %q", lit)
	}
	operands := make([]ast.Arg, 0, len(entry.ArgTypes))
	for i, at := range entry.ArgTypes {
		if i > 0 {
			if err := p.lx.NeedPunct(','); err != nil {
				return Event{}, err
			}
		}
		arg, err := p.needOperand(at)
		if err != nil {
			return Event{}, err
		}
		operands = append(operands, arg)
	}
	return Event{Kind: EventInstruction, Pos: pos, Labels: p.currentStatementLabels(), Mnemonic: lit, Operands: operands}, nil
}

// currentStatementLabels snapshots p.CurrentLabels, which may have grown
// past the label-prefix list if a "." token minted a synthetic label while
// parsing this statement's own expressions (spec.md §4.2).
func (p *Parser) currentStatementLabels() []string {
	return append([]string(nil), p.CurrentLabels...)
}

func (p *Parser) needOperand(at encoder.ArgType) (ast.Arg, error) {
	switch at {
	case encoder.A:
		return p.NeedAddressingOperand()
	case encoder.D:
		expr, err := p.NeedExpression(false)
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.NewD(expr), nil
	case encoder.I:
		expr, err := p.NeedExpression(false)
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.NewI(expr), nil
	case encoder.R:
		reg, err := p.NeedRegister()
		if err != nil {
			return ast.Arg{}, err
		}
		return ast.NewR(reg), nil
	default:
		return ast.Arg{}, p.lx.errorf("operand", "unknown argument type")
	}
}

// tryLabelPrefix recognizes one "NAME:" or digit-label ":" prefix, updating
// lx.LastLabel when a textual label is seen (spec.md §3's sub-label anchor).
func (p *Parser) tryLabelPrefix() (string, bool) {
	mark := p.lx.Mark()
	if lbl, err := p.lx.NeedIntegerLabel(); err == nil {
		if p.lx.NeedPunct(':') == nil {
			name := p.CurrentLabels0OrLast() + ": " + lbl
			return name, true
		}
		p.lx.Reset(mark)
	}
	if lit, err := p.lx.NeedLiteral(); err == nil {
		if p.lx.NeedPunct(':') == nil {
			p.lx.LastLabel = lit
			return lit, true
		}
	}
	p.lx.Reset(mark)
	return "", false
}

func (p *Parser) parseDirective(name string, pos ast.Position, labels []string) (result Event, rerr error) {
	ev := Event{Kind: EventDirective, Pos: pos, Labels: labels, Name: name}
	defer func() {
		// A "." token minted during this directive's own expression
		// arguments grows p.CurrentLabels past the label-prefix list
		// (spec.md §4.2); REPEAT bodies reset it via recursion, so keep
		// REPEAT's pre-recursion snapshot instead.
		if rerr == nil && result.Kind != EventRepeat {
			result.Labels = p.currentStatementLabels()
		}
	}()

	switch {
	case directivesWithNoArgs[name]:
		return ev, nil

	case name == "REPEAT":
		count, err := p.NeedExpression(false)
		if err != nil {
			return Event{}, err
		}
		if err := p.lx.NeedPunct('{'); err != nil {
			return Event{}, err
		}
		body, err := p.parseRepeatBody()
		if err != nil {
			return Event{}, err
		}
		ev.Kind = EventRepeat
		ev.RepeatCount = count
		ev.RepeatBody = body
		return ev, nil

	case name == "SYNTAX":
		lit, err := p.lx.NeedLiteral()
		if err != nil {
			return Event{}, err
		}
		switch lit {
		case "PDP11ASM":
			p.lx.Dialect = DialectPDP11ASM
		case "PDPY11":
			p.lx.Dialect = DialectPDPY11
		default:
			return Event{}, p.lx.errorf("syntax", "unknown dialect %q", lit)
		}
		ev.Str = lit
		return ev, nil

	case name == "EXTERN":
		mark := p.lx.Mark()
		if lit, err := p.lx.NeedLiteral(); err == nil && (lit == "ALL" || lit == "NONE") {
			ev.Names = []string{lit}
			return ev, nil
		}
		p.lx.Reset(mark)
		var names []string
		for {
			name, err := p.lx.NeedLiteral()
			if err != nil {
				break
			}
			names = append(names, name)
			if p.lx.NeedPunct(',') != nil {
				break
			}
		}
		ev.Names = names
		return ev, nil

	case name == "DECIMALNUMBERS" || name == "CONVERT1251TOKOI8R":
		ev.Flag = true
		mark := p.lx.Mark()
		if b, err := p.lx.NeedBool(); err == nil {
			ev.Flag = b
		} else {
			p.lx.Reset(mark)
		}
		if name == "DECIMALNUMBERS" {
			p.lx.DecimalNumbers = ev.Flag
		}
		return ev, nil

	case directivesWithExprList[name]:
		list, err := p.needExprList()
		if err != nil {
			return Event{}, err
		}
		ev.Exprs = list
		return ev, nil

	case directivesWithOneExpr[name]:
		expr, err := p.NeedExpression(false)
		if err != nil {
			return Event{}, err
		}
		ev.Exprs = []*deferred.Deferred{expr}
		return ev, nil

	case directivesWithString[name]:
		s, err := p.lx.NeedString()
		if err != nil {
			return Event{}, err
		}
		ev.Str = s
		return ev, nil

	case directivesWithOptionalPath[name]:
		mark := p.lx.Mark()
		if s, err := p.lx.NeedString(); err == nil {
			ev.Str = s
			mark2 := p.lx.Mark()
			if p.lx.NeedPunct(',') == nil {
				if s2, err := p.lx.NeedString(); err == nil {
					ev.Str2 = s2
				} else {
					p.lx.Reset(mark2)
				}
			}
		} else {
			p.lx.Reset(mark)
		}
		return ev, nil

	default:
		return Event{}, p.lx.errorf("directive", "unhandled directive %q", name)
	}
}

// parseRepeatBody parses statements until the matching '}'.
func (p *Parser) parseRepeatBody() ([]Event, error) {
	var events []Event
	for {
		p.lx.SkipWhitespace()
		if p.lx.NeedPunct('}') == nil {
			return events, nil
		}
		if p.lx.IsEOF() {
			return nil, p.lx.errorf("repeat", "unterminated .REPEAT block")
		}
		ev, err := p.parseOneStatement()
		if err != nil {
			return nil, err
		}
		if ev.Kind == EventEOF {
			return nil, p.lx.errorf("repeat", "unterminated .REPEAT block")
		}
		events = append(events, ev)
	}
}

func (p *Parser) needExprList() ([]*deferred.Deferred, error) {
	var list []*deferred.Deferred
	for {
		e, err := p.NeedExpression(false)
		if err != nil {
			return nil, err
		}
		list = append(list, e)
		if p.lx.NeedPunct(',') != nil {
			break
		}
	}
	return list, nil
}
