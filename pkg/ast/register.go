package ast

// Register is an interned singleton from the fixed PDP-11 register set
// {R0..R5, SP=R6, PC=R7}. SP and PC are aliases for R6 and R7 and are
// identity-equal to them: comparing two *Register with == is always
// correct, matching the util.py R class's name-cache-based interning.
type Register struct {
	// Name is the canonical name used when printing the register back
	// (R6/R7, never SP/PC, so disassembly-style output is stable).
	Name string
	// Index is the 3-bit register number used by the instruction encoder.
	Index uint8
}

var (
	R0 = &Register{Name: "R0", Index: 0}
	R1 = &Register{Name: "R1", Index: 1}
	R2 = &Register{Name: "R2", Index: 2}
	R3 = &Register{Name: "R3", Index: 3}
	R4 = &Register{Name: "R4", Index: 4}
	R5 = &Register{Name: "R5", Index: 5}
	R6 = &Register{Name: "R6", Index: 6}
	R7 = &Register{Name: "R7", Index: 7}

	// SP and PC are aliases: same pointer as R6/R7.
	SP = R6
	PC = R7
)

// registersByName resolves any of the ten accepted spellings to the
// interned Register it names.
var registersByName = map[string]*Register{
	"R0": R0, "R1": R1, "R2": R2, "R3": R3,
	"R4": R4, "R5": R5, "R6": R6, "R7": R7,
	"SP": SP, "PC": PC,
}

// LookupRegister returns the interned register for name (already
// upper-cased by the lexer), or false if name isn't a register.
func LookupRegister(name string) (*Register, bool) {
	r, ok := registersByName[name]
	return r, ok
}
