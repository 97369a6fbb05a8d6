// Package encoder implements the PDP-11 instruction encoder of spec.md
// §4.3: a command table mapping mnemonics to argument-type tuples and base
// opcodes, the addressing-mode/register field encoders, and the
// branch/SOB/immediate range checks. It has no knowledge of parsing or of
// the write log; pkg/compiler drives it.
package encoder

import "github.com/oisee/pdpy11go/pkg/ast"

// ArgType is one of the four operand-kind tags a command-table entry's
// argtype tuple is drawn from (spec.md §3, §4.3).
type ArgType int

const (
	A ArgType = iota
	D
	I
	R
)

// Desugared is one instruction a metacommand (PUSH, POP, ...) expands to.
type Desugared struct {
	Mnemonic string
	Args     []ast.Arg
}

// Entry is one command-table row. Exactly one of Opcode's two uses applies:
// for ordinary instructions it's the base opcode; for the three I-commands
// (EMT/TRAP/MARK) MaxImm additionally bounds the immediate field.
type Entry struct {
	ArgTypes []ArgType
	Opcode   int
	MaxImm   int // 0 means "no immediate field", used only when ArgTypes == [I]

	// Desugar is set only for metacommands (PUSH/POP): it rewrites the
	// parsed operands into one or more real instructions instead of
	// encoding directly (spec.md §4.3).
	Desugar func(args []ast.Arg) ([]Desugared, error)
}

var table = map[string]Entry{
	// Zero-argument instructions.
	"HALT": {Opcode: 0o000000}, "WAIT": {Opcode: 0o000001}, "RTI": {Opcode: 0o000002},
	"BPT": {Opcode: 0o000003}, "IOT": {Opcode: 0o000004}, "RESET": {Opcode: 0o000005},
	"RTT": {Opcode: 0o000006}, "START": {Opcode: 0o000012}, "STEP": {Opcode: 0o000016},
	"NOP": {Opcode: 0o000240}, "CLC": {Opcode: 0o000241}, "CLV": {Opcode: 0o000242},
	"CLZ": {Opcode: 0o000244}, "CLN": {Opcode: 0o000250}, "CCC": {Opcode: 0o000257},
	"SEC": {Opcode: 0o000261}, "SEV": {Opcode: 0o000262}, "SEZ": {Opcode: 0o000264},
	"SEN": {Opcode: 0o000270}, "SCC": {Opcode: 0o000277}, "RET": {Opcode: 0o000207},

	// One-A-operand instructions.
	"JMP": {ArgTypes: []ArgType{A}, Opcode: 0o000100},
	"CALL": {ArgTypes: []ArgType{A}, Opcode: 0o004700}, // JSR PC, dst
	"SWAB": {ArgTypes: []ArgType{A}, Opcode: 0o000300},
	"CLR": {ArgTypes: []ArgType{A}, Opcode: 0o005000}, "CLRB": {ArgTypes: []ArgType{A}, Opcode: 0o105000},
	"COM": {ArgTypes: []ArgType{A}, Opcode: 0o005100}, "COMB": {ArgTypes: []ArgType{A}, Opcode: 0o105100},
	"INC": {ArgTypes: []ArgType{A}, Opcode: 0o005200}, "INCB": {ArgTypes: []ArgType{A}, Opcode: 0o105200},
	"DEC": {ArgTypes: []ArgType{A}, Opcode: 0o005300}, "DECB": {ArgTypes: []ArgType{A}, Opcode: 0o105300},
	"NEG": {ArgTypes: []ArgType{A}, Opcode: 0o005400}, "NEGB": {ArgTypes: []ArgType{A}, Opcode: 0o105400},
	"ADC": {ArgTypes: []ArgType{A}, Opcode: 0o005500}, "ADCB": {ArgTypes: []ArgType{A}, Opcode: 0o105500},
	"SBC": {ArgTypes: []ArgType{A}, Opcode: 0o005600}, "SBCB": {ArgTypes: []ArgType{A}, Opcode: 0o105600},
	"TST": {ArgTypes: []ArgType{A}, Opcode: 0o005700}, "TSTB": {ArgTypes: []ArgType{A}, Opcode: 0o105700},
	"ROR": {ArgTypes: []ArgType{A}, Opcode: 0o006000}, "RORB": {ArgTypes: []ArgType{A}, Opcode: 0o106000},
	"ROL": {ArgTypes: []ArgType{A}, Opcode: 0o006100}, "ROLB": {ArgTypes: []ArgType{A}, Opcode: 0o106100},
	"ASR": {ArgTypes: []ArgType{A}, Opcode: 0o006200}, "ASRB": {ArgTypes: []ArgType{A}, Opcode: 0o106200},
	"ASL": {ArgTypes: []ArgType{A}, Opcode: 0o006300}, "ASLB": {ArgTypes: []ArgType{A}, Opcode: 0o106300},
	"SXT": {ArgTypes: []ArgType{A}, Opcode: 0o006700},
	"MTPS": {ArgTypes: []ArgType{A}, Opcode: 0o106400}, "MFPS": {ArgTypes: []ArgType{A}, Opcode: 0o106700},

	// Branch instructions (D operand).
	"BR": {ArgTypes: []ArgType{D}, Opcode: 0o000400}, "BNE": {ArgTypes: []ArgType{D}, Opcode: 0o001000},
	"BEQ": {ArgTypes: []ArgType{D}, Opcode: 0o001400}, "BGE": {ArgTypes: []ArgType{D}, Opcode: 0o002000},
	"BLT": {ArgTypes: []ArgType{D}, Opcode: 0o002400}, "BGT": {ArgTypes: []ArgType{D}, Opcode: 0o003000},
	"BLE": {ArgTypes: []ArgType{D}, Opcode: 0o003400}, "BPL": {ArgTypes: []ArgType{D}, Opcode: 0o100000},
	"BMI": {ArgTypes: []ArgType{D}, Opcode: 0o100400}, "BHI": {ArgTypes: []ArgType{D}, Opcode: 0o101000},
	"BVS": {ArgTypes: []ArgType{D}, Opcode: 0o102000}, "BVC": {ArgTypes: []ArgType{D}, Opcode: 0o102400},
	"BCC": {ArgTypes: []ArgType{D}, Opcode: 0o103000}, "BHIS": {ArgTypes: []ArgType{D}, Opcode: 0o103000},
	"BLO": {ArgTypes: []ArgType{D}, Opcode: 0o103400}, "BCS": {ArgTypes: []ArgType{D}, Opcode: 0o103400},
	"BLOS": {ArgTypes: []ArgType{D}, Opcode: 0o101400},

	// Immediate instructions (masked, range-checked against MaxImm).
	"EMT":  {ArgTypes: []ArgType{I}, Opcode: 0o104000, MaxImm: 0o377},
	"TRAP": {ArgTypes: []ArgType{I}, Opcode: 0o104400, MaxImm: 0o377},
	"MARK": {ArgTypes: []ArgType{I}, Opcode: 0o006400, MaxImm: 0o77},

	// Two-A-operand instructions.
	"MOV": {ArgTypes: []ArgType{A, A}, Opcode: 0o010000}, "MOVB": {ArgTypes: []ArgType{A, A}, Opcode: 0o110000},
	"CMP": {ArgTypes: []ArgType{A, A}, Opcode: 0o020000}, "CMPB": {ArgTypes: []ArgType{A, A}, Opcode: 0o120000},
	"BIT": {ArgTypes: []ArgType{A, A}, Opcode: 0o030000}, "BITB": {ArgTypes: []ArgType{A, A}, Opcode: 0o130000},
	"BIC": {ArgTypes: []ArgType{A, A}, Opcode: 0o040000}, "BICB": {ArgTypes: []ArgType{A, A}, Opcode: 0o140000},
	"BIS": {ArgTypes: []ArgType{A, A}, Opcode: 0o050000}, "BISB": {ArgTypes: []ArgType{A, A}, Opcode: 0o150000},
	"ADD": {ArgTypes: []ArgType{A, A}, Opcode: 0o060000}, "SUB": {ArgTypes: []ArgType{A, A}, Opcode: 0o160000},

	// (R, A) register-source instructions.
	"JSR": {ArgTypes: []ArgType{R, A}, Opcode: 0o004000},
	"XOR": {ArgTypes: []ArgType{R, A}, Opcode: 0o074000},

	// (A, R) register-destination instructions.
	"MUL":  {ArgTypes: []ArgType{A, R}, Opcode: 0o070000},
	"DIV":  {ArgTypes: []ArgType{A, R}, Opcode: 0o071000},
	"ASH":  {ArgTypes: []ArgType{A, R}, Opcode: 0o072000},
	"ASHC": {ArgTypes: []ArgType{A, R}, Opcode: 0o073000},

	// (R, D) SOB.
	"SOB": {ArgTypes: []ArgType{R, D}, Opcode: 0o077000},

	// Metacommands.
	"PUSH": {ArgTypes: []ArgType{A}, Desugar: desugarPush},
	"POP":  {ArgTypes: []ArgType{A}, Desugar: desugarPop},
}

// Lookup resolves a mnemonic (already upper-cased by the lexer) to its
// table entry.
func Lookup(mnemonic string) (Entry, bool) {
	e, ok := table[mnemonic]
	return e, ok
}

// desugarPush implements "PUSH src" as "MOV src, -(SP)" (spec.md §4.3).
func desugarPush(args []ast.Arg) ([]Desugared, error) {
	dst := ast.NewA(ast.SP, ast.ModeAutoDec, nil)
	return []Desugared{{Mnemonic: "MOV", Args: []ast.Arg{args[0], dst}}}, nil
}

// desugarPop implements "POP dst" as "MOV (SP)+, dst" (spec.md §4.3).
func desugarPop(args []ast.Arg) ([]Desugared, error) {
	src := ast.NewA(ast.SP, ast.ModeAutoInc, nil)
	return []Desugared{{Mnemonic: "MOV", Args: []ast.Arg{src, args[0]}}}, nil
}
