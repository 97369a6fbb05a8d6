package parser

import (
	"fmt"
	"sync/atomic"

	"github.com/oisee/pdpy11go/internal/koi8"
	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

// dotCounter numbers the synthetic labels the "." (current address) token
// mints, mirroring Parser.last_mark being shared process-wide in the
// original (spec.md §3, §4.2: "." is both punctuation and the current
// address token).
var dotCounter uint64

// operator entries for the pdpy11 shunting-yard grammar, listed from lowest
// to highest precedence; a larger priority binds tighter ("<<"/">>" at 3
// live in needOperatorToken) (spec.md §4.2).
type opInfo struct {
	priority int
	apply    func(l, r *deferred.Deferred) *deferred.Deferred
}

var pdpy11Operators = map[rune]opInfo{
	'|':  {0, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Or(r) }},
	'^':  {1, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Xor(r) }},
	'&':  {2, func(l, r *deferred.Deferred) *deferred.Deferred { return l.And(r) }},
	'+':  {4, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Add(r) }},
	'-':  {4, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Sub(r) }},
	'*':  {5, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Mul(r) }},
	'/':  {5, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Div(r) }},
	'%':  {5, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Mod(r) }},
}

type token struct {
	text     string
	priority int
	apply    func(l, r *deferred.Deferred) *deferred.Deferred
}

// needOperatorToken recognizes one of the fixed pdpy11 operator spellings,
// trying the two-rune forms ("<<", ">>") before the one-rune ones.
func (p *Parser) needOperatorToken() (token, bool) {
	mark := p.lx.Mark()
	if p.lx.NeedPunct('<') == nil {
		if p.lx.NeedPunct('<') == nil {
			return token{"<<", 3, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Shl(r) }}, true
		}
		p.lx.Reset(mark)
	}
	if p.lx.NeedPunct('>') == nil {
		if p.lx.NeedPunct('>') == nil {
			return token{">>", 3, func(l, r *deferred.Deferred) *deferred.Deferred { return l.Shr(r) }}, true
		}
		p.lx.Reset(mark)
	}
	for _, r := range []rune{'|', '^', '&', '+', '-', '*', '/', '%'} {
		if p.lx.NeedPunct(r) == nil {
			info := pdpy11Operators[r]
			return token{string(r), info.priority, info.apply}, true
		}
	}
	return token{}, false
}

// Parser wraps a Lexer with statement-level state: the file id expressions
// attach to, the labels accumulated for the statement under construction
// (the "." token adds a synthetic one), and the anchor for integer
// sub-labels (spec.md §3).
type Parser struct {
	lx            *Lexer
	FileID        string
	CurrentLabels []string
}

// NewParser builds a Parser over code for fileID.
func NewParser(fileID, code string, dialect Dialect) *Parser {
	return &Parser{lx: NewLexer(fileID, code, dialect), FileID: fileID}
}

func (p *Parser) Lexer() *Lexer { return p.lx }

// NeedExpression parses one expression in whichever dialect p.lx.Dialect
// selects. isLabel hints that a bare leading integer should be read as an
// integer sub-label rather than a literal (spec.md §3's "last named label"
// rule), mirroring needExpression(isLabel=...) in the original.
func (p *Parser) NeedExpression(isLabel bool) (*deferred.Deferred, error) {
	if p.lx.Dialect == DialectPDP11ASM {
		return p.needExpressionPDP11Asm(isLabel)
	}
	return p.needExpressionPDPY11(isLabel)
}

func (p *Parser) needExpressionPDP11Asm(isLabel bool) (*deferred.Deferred, error) {
	value, err := p.needValue(isLabel)
	if err != nil {
		return nil, err
	}
	for {
		mark := p.lx.Mark()
		switch {
		case p.lx.NeedPunct('+') == nil:
			rhs, err := p.needValue(isLabel)
			if err != nil {
				return nil, err
			}
			value = value.Add(rhs)
		case p.lx.NeedPunct('-') == nil:
			rhs, err := p.needValue(isLabel)
			if err != nil {
				return nil, err
			}
			value = value.Sub(rhs)
		case p.lx.NeedPunct('*') == nil:
			rhs, err := p.needValue(isLabel)
			if err != nil {
				return nil, err
			}
			value = value.Mul(rhs)
		case p.lx.NeedPunct('/') == nil:
			rhs, err := p.needValue(isLabel)
			if err != nil {
				return nil, err
			}
			value = value.Div(rhs)
		default:
			p.lx.Reset(mark)
			return value, nil
		}
	}
}

func (p *Parser) needExpressionPDPY11(isLabel bool) (*deferred.Deferred, error) {
	var values []*deferred.Deferred
	var ops []token

	// Open parentheses are pushed onto ops as sentinel tokens.
	const openParen = "("

	for {
		for p.lx.NeedPunct('(') == nil {
			ops = append(ops, token{text: openParen})
		}

		v, err := p.needValue(isLabel)
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		isLabel = false // only the first leaf may be treated as a label

		for containsOpenParen(ops) && p.lx.NeedPunct(')') == nil {
			for len(ops) > 0 {
				top := ops[len(ops)-1]
				ops = ops[:len(ops)-1]
				if top.text == openParen {
					break
				}
				values = applyTop(values, top)
			}
		}

		op, ok := p.needOperatorToken()
		if !ok {
			break
		}
		for len(ops) > 0 {
			top := ops[len(ops)-1]
			if top.text == openParen {
				break
			}
			if top.priority < op.priority {
				break
			}
			// left-associative: pop on equal or higher priority
			ops = ops[:len(ops)-1]
			values = applyTop(values, top)
		}
		ops = append(ops, op)
	}

	for len(ops) > 0 {
		top := ops[len(ops)-1]
		ops = ops[:len(ops)-1]
		if top.text == openParen {
			return nil, p.lx.errorf("expression", "unmatched '('")
		}
		values = applyTop(values, top)
	}

	if len(values) != 1 {
		return nil, p.lx.errorf("expression", "malformed expression")
	}
	return values[0], nil
}

func containsOpenParen(ops []token) bool {
	for _, t := range ops {
		if t.text == "(" {
			return true
		}
	}
	return false
}

func applyTop(values []*deferred.Deferred, op token) []*deferred.Deferred {
	n := len(values)
	r, l := values[n-1], values[n-2]
	values = values[:n-2]
	return append(values, op.apply(l, r))
}

// needValue parses one operand leaf: a KOI8 char literal, an integer
// sub-label, a plain integer, the "." current-address token, or a bare
// label name (spec.md §4.2's needValue).
func (p *Parser) needValue(isLabel bool) (*deferred.Deferred, error) {
	pos := p.currentPos()

	if s, err := p.lx.NeedString(); err == nil {
		bts, encErr := koi8.Encode(s)
		if encErr != nil {
			return nil, p.lx.errorf("value", "cannot encode string to KOI8-R: %v", encErr)
		}
		switch len(bts) {
		case 1:
			return deferred.NewLiteral(int(bts[0]), deferred.TInt), nil
		case 2:
			return deferred.NewLiteral(int(bts[0])|(int(bts[1])<<8), deferred.TInt), nil
		default:
			return nil, p.lx.errorf("value", "cannot fit %d characters in 1 word: %q", len(bts), s)
		}
	}

	if isLabel {
		if lbl, err := p.lx.NeedIntegerLabel(); err == nil {
			name := fmt.Sprintf("%s: %s", p.CurrentLabels0OrLast(), lbl)
			return ast.NewLabelDeferred(p.FileID, name, pos), nil
		}
	} else if d, ok, err := p.tryNumericIntegerLabel(pos); err != nil {
		return nil, err
	} else if ok {
		return d, nil
	}

	if n, err := p.lx.NeedInteger(); err == nil {
		return deferred.NewLiteral(n, deferred.TInt), nil
	}

	if p.lx.NeedPunct('.') == nil {
		return p.markDot(pos), nil
	}

	mark := p.lx.Mark()
	lit, err := p.lx.NeedLiteral()
	if err != nil {
		return nil, p.lx.errorf("value", "expected integer, string, '.', label or STATIC_ALLOC")
	}
	if lit == "STATIC_ALLOC" || lit == "STATIC_ALLOC_BYTE" {
		if perr := p.lx.NeedPunct('('); perr != nil {
			p.lx.Reset(mark)
			return nil, perr
		}
		length, lerr := p.NeedExpression(false)
		if lerr != nil {
			return nil, lerr
		}
		if perr := p.lx.NeedPunct(')'); perr != nil {
			return nil, perr
		}
		byteLen := lit == "STATIC_ALLOC_BYTE"
		return staticAllocDeferred(length, byteLen), nil
	}
	if _, isReg := ast.LookupRegister(lit); isReg {
		p.lx.Reset(mark)
		return nil, p.lx.errorf("value", "expected value, got register %q", lit)
	}
	return ast.NewLabelDeferred(p.FileID, lit, pos), nil
}

// tryNumericIntegerLabel implements needValue's disambiguation between a
// plain integer and an integer sub-label: a digit-led token that reads as
// pure digits or a 0x/0b/0o-prefixed integer is only treated as a label if
// immediately followed by ':'; anything else digit-led is unconditionally a
// label (spec.md §3, §4.2).
func (p *Parser) tryNumericIntegerLabel(pos ast.Position) (*deferred.Deferred, bool, error) {
	mark := p.lx.Mark()
	lbl, err := p.lx.NeedIntegerLabel()
	if err != nil {
		return nil, false, nil
	}
	if looksNumeric(lbl) {
		if err := p.lx.NeedPunct(':'); err != nil {
			p.lx.Reset(mark)
			return nil, false, nil
		}
	}
	name := fmt.Sprintf("%s: %s", p.CurrentLabels0OrLast(), lbl)
	return ast.NewLabelDeferred(p.FileID, name, pos), true, nil
}

// staticAllocDeferred builds the STATIC_ALLOC[_BYTE](length) pseudo
// expression: word allocations need length*2 bytes, byte allocations need
// length rounded up to even (spec.md GLOSSARY).
func staticAllocDeferred(length *deferred.Deferred, isByte bool) *deferred.Deferred {
	var byteLength *deferred.Deferred
	if isByte {
		byteLength = length.Add(length.Mod(2))
	} else {
		byteLength = length.Mul(2)
	}
	return ast.NewStaticAllocDeferred(byteLength)
}

func looksNumeric(s string) bool {
	if s == "" {
		return false
	}
	if s[0] >= '0' && s[0] <= '9' {
		allDigits := true
		for _, r := range s {
			if r < '0' || r > '9' {
				allDigits = false
				break
			}
		}
		if allDigits {
			return true
		}
	}
	lower := s
	return hasAnyPrefix(lower, "0X", "0B", "0O")
}

func hasAnyPrefix(s string, prefixes ...string) bool {
	for _, p := range prefixes {
		if len(s) >= len(p) && s[:len(p)] == p {
			return true
		}
	}
	return false
}

// CurrentLabels0OrLast returns the most recent textual label in the file,
// the anchor integer sub-labels attach to (spec.md §3). Falls back to the
// current statement's own labels only if no named label has been seen yet.
func (p *Parser) CurrentLabels0OrLast() string {
	if p.lx.LastLabel != "" {
		return p.lx.LastLabel
	}
	if n := len(p.CurrentLabels); n > 0 {
		return p.CurrentLabels[n-1]
	}
	return ""
}

func (p *Parser) markDot(pos ast.Position) *deferred.Deferred {
	id := atomic.AddUint64(&dotCounter, 1) - 1
	name := fmt.Sprintf(".%d", id)
	p.CurrentLabels = append(p.CurrentLabels, name)
	return ast.NewLabelDeferred(p.FileID, name, pos)
}

func (p *Parser) currentPos() ast.Position {
	return ast.Position{File: p.FileID}
}
