package ast

import (
	"fmt"

	"github.com/oisee/pdpy11go/pkg/deferred"
)

// Mode enumerates the eight PDP-11 addressing modes an A operand can take,
// in the order spec.md §3/§4.3 lists them (the order fixes each mode's
// 3-bit field value: Rn=0, (Rn)=1, (Rn)+=2, @(Rn)+=3, -(Rn)=4, @-(Rn)=5,
// N(Rn)=6, @N(Rn)=7).
type Mode int

const (
	ModeRn Mode = iota
	ModeDeferredReg
	ModeAutoInc
	ModeAutoIncDeferred
	ModeAutoDec
	ModeAutoDecDeferred
	ModeIndex
	ModeIndexDeferred
)

func (m Mode) String() string {
	switch m {
	case ModeRn:
		return "Rn"
	case ModeDeferredReg:
		return "(Rn)"
	case ModeAutoInc:
		return "(Rn)+"
	case ModeAutoIncDeferred:
		return "@(Rn)+"
	case ModeAutoDec:
		return "-(Rn)"
	case ModeAutoDecDeferred:
		return "@-(Rn)"
	case ModeIndex:
		return "N(Rn)"
	case ModeIndexDeferred:
		return "@N(Rn)"
	default:
		return "?"
	}
}

// HasImmediateWord reports whether this mode always carries an extra 16-bit
// word after the instruction word, i.e. the two index modes. It looks at the
// mode alone, so it reports false for #expr ((PC)+) and @#expr (@(PC)+)
// operands even though those carry an immediate word too; the encoder
// checks Arg.Imm instead.
func (m Mode) HasImmediateWord() bool {
	return m == ModeIndex || m == ModeIndexDeferred
}

// Arg is the sum type of the four operand variants spec.md §3 defines. Only
// one of the typed accessors is meaningful, selected by Kind.
type Arg struct {
	kind argKind

	// A
	Reg  *Register
	Mode Mode
	Imm  *deferred.Deferred // non-nil iff Mode needs an immediate word, or IsOffset shortcut

	// IsOffset marks an Imm that was parsed as a lone PC-relative shortcut
	// expression (pdpy11 dialect): at emission time it must be rewritten to
	// expr - (linkPC + 2) instead of used verbatim (spec.md §4.2/§4.3).
	IsOffset bool

	// D
	Addr *deferred.Deferred

	// I
	Value *deferred.Deferred

	// R uses Reg above.
}

type argKind int

const (
	KindA argKind = iota
	KindD
	KindI
	KindR
)

func (a Arg) Kind() argKind { return a.kind }

func NewA(reg *Register, mode Mode, imm *deferred.Deferred) Arg {
	return Arg{kind: KindA, Reg: reg, Mode: mode, Imm: imm}
}

func NewD(addr *deferred.Deferred) Arg {
	return Arg{kind: KindD, Addr: addr}
}

func NewI(value *deferred.Deferred) Arg {
	return Arg{kind: KindI, Value: value}
}

func NewR(reg *Register) Arg {
	return Arg{kind: KindR, Reg: reg}
}

func (a Arg) IsA() bool { return a.kind == KindA }
func (a Arg) IsD() bool { return a.kind == KindD }
func (a Arg) IsI() bool { return a.kind == KindI }
func (a Arg) IsR() bool { return a.kind == KindR }

func (a Arg) String() string {
	switch a.kind {
	case KindA:
		return fmt.Sprintf("A(%s,%s)", a.Reg.Name, a.Mode)
	case KindD:
		return "D(...)"
	case KindI:
		return "I(...)"
	case KindR:
		return fmt.Sprintf("R(%s)", a.Reg.Name)
	default:
		return "?"
	}
}
