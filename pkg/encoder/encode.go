package encoder

import (
	"fmt"

	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

// EncodeRegister returns an A/R operand's 3-bit register field.
func EncodeRegister(reg *ast.Register) int {
	return int(reg.Index)
}

// EncodeAddr returns an A operand's 6-bit field: mode in the top 3 bits,
// register in the bottom 3 (spec.md §4.3).
func EncodeAddr(arg ast.Arg) int {
	return int(arg.Mode)<<3 | int(arg.Reg.Index)
}

// ImmediateWord returns the extra word an A operand contributes after the
// instruction word, or nil if its mode carries none. linkPC is the link
// address of this instruction's own first word — always known concretely
// at encode time, unlike the label values arg.Imm may reference (spec.md
// §4.3's PC-relative addressing rule).
func ImmediateWord(arg ast.Arg, linkPC int) *deferred.Deferred {
	if arg.Imm == nil {
		return nil
	}
	if arg.IsOffset {
		return RelocatePCOffset(arg.Imm, linkPC)
	}
	return arg.Imm
}

// RelocatePCOffset rewrites a lone PC-relative operand expression into the
// word actually stored after the instruction: expr - (linkPC + 2).
func RelocatePCOffset(expr *deferred.Deferred, linkPC int) *deferred.Deferred {
	return expr.Then(func(v interface{}) (interface{}, error) {
		vi, ok := v.(int)
		if !ok {
			return nil, fmt.Errorf("PC-relative operand did not evaluate to an integer")
		}
		return (vi - (linkPC + 2)) & 0xFFFF, nil
	}, deferred.TInt)
}

// BranchOffset range-checks a branch target delta and folds it to the
// signed byte-pair count an 8-bit branch displacement field stores: the
// delta must be even and fit in [-256, 254] (spec.md §4.3).
func BranchOffset(delta *deferred.Deferred, pos ast.Position) *deferred.Deferred {
	return delta.Then(func(v interface{}) (interface{}, error) {
		d := v.(int)
		if d%2 != 0 {
			return nil, fmt.Errorf("%s: branch target is not word-aligned (offset %d)", pos, d)
		}
		if d < -256 || d > 254 {
			return nil, fmt.Errorf("%s: branch target out of range (offset %d)", pos, d)
		}
		return (d / 2) & 0xFF, nil
	}, deferred.TInt)
}

// SobOffset range-checks an SOB backward-only displacement: the delta must
// be even and fit in [0, 126] counted as a positive byte-pair count
// subtracted from PC (spec.md §4.3).
func SobOffset(delta *deferred.Deferred, pos ast.Position) *deferred.Deferred {
	return delta.Then(func(v interface{}) (interface{}, error) {
		d := v.(int)
		if d%2 != 0 {
			return nil, fmt.Errorf("%s: SOB target is not word-aligned (offset %d)", pos, d)
		}
		if d < 0 || d > 126 {
			return nil, fmt.Errorf("%s: SOB target out of range (offset %d)", pos, d)
		}
		return (d / 2) & 0x3F, nil
	}, deferred.TInt)
}

// ImmediateField range-checks an EMT/TRAP/MARK immediate operand against
// its table-supplied maximum.
func ImmediateField(value *deferred.Deferred, max int, pos ast.Position) *deferred.Deferred {
	return value.Then(func(v interface{}) (interface{}, error) {
		n := v.(int)
		if n < 0 || n > max {
			return nil, fmt.Errorf("%s: immediate operand out of range: %d (max %d)", pos, n, max)
		}
		return n, nil
	}, deferred.TInt)
}

// EncodeZeroArg, EncodeOneA, EncodeBranch, EncodeImm, EncodeTwoA, EncodeRA,
// EncodeAR and EncodeSOB each build the list of words one instruction
// occupies, given its already-validated operands. The instruction word
// itself is always words[0]; subsequent words are any operand immediates.
// pkg/compiler calls the one matching an Entry.ArgTypes shape.

func EncodeZeroArg(opcode int) []*deferred.Deferred {
	return []*deferred.Deferred{deferred.NewLiteral(opcode, deferred.TInt)}
}

func EncodeOneA(opcode int, dst ast.Arg, linkPC int) []*deferred.Deferred {
	word := deferred.NewLiteral(opcode|EncodeAddr(dst), deferred.TInt)
	words := []*deferred.Deferred{word}
	if imm := ImmediateWord(dst, linkPC); imm != nil {
		words = append(words, imm)
	}
	return words
}

func EncodeBranch(opcode int, target *deferred.Deferred, pos ast.Position) []*deferred.Deferred {
	word := BranchOffset(target, pos).Then(func(v interface{}) (interface{}, error) {
		return opcode | v.(int), nil
	}, deferred.TInt)
	return []*deferred.Deferred{word}
}

func EncodeImm(opcode, max int, value *deferred.Deferred, pos ast.Position) []*deferred.Deferred {
	word := ImmediateField(value, max, pos).Then(func(v interface{}) (interface{}, error) {
		return opcode | v.(int), nil
	}, deferred.TInt)
	return []*deferred.Deferred{word}
}

func EncodeTwoA(opcode int, src, dst ast.Arg, linkPC int) []*deferred.Deferred {
	word := deferred.NewLiteral(opcode|EncodeAddr(src)<<6|EncodeAddr(dst), deferred.TInt)
	words := []*deferred.Deferred{word}
	if imm := ImmediateWord(src, linkPC); imm != nil {
		words = append(words, imm)
	}
	if imm := ImmediateWord(dst, linkPC); imm != nil {
		words = append(words, imm)
	}
	return words
}

// EncodeRA encodes the (R, A) shape (e.g. JSR reg, dst).
func EncodeRA(opcode int, reg *ast.Register, dst ast.Arg, linkPC int) []*deferred.Deferred {
	word := deferred.NewLiteral(opcode|EncodeRegister(reg)<<6|EncodeAddr(dst), deferred.TInt)
	words := []*deferred.Deferred{word}
	if imm := ImmediateWord(dst, linkPC); imm != nil {
		words = append(words, imm)
	}
	return words
}

// EncodeAR encodes the (A, R) shape (e.g. MUL src, reg).
func EncodeAR(opcode int, src ast.Arg, reg *ast.Register, linkPC int) []*deferred.Deferred {
	word := deferred.NewLiteral(opcode|EncodeRegister(reg)<<6|EncodeAddr(src), deferred.TInt)
	words := []*deferred.Deferred{word}
	if imm := ImmediateWord(src, linkPC); imm != nil {
		words = append(words, imm)
	}
	return words
}

// EncodeSOB encodes "SOB reg, target".
func EncodeSOB(opcode int, reg *ast.Register, target *deferred.Deferred, pos ast.Position) []*deferred.Deferred {
	word := SobOffset(target, pos).Then(func(v interface{}) (interface{}, error) {
		return opcode | EncodeRegister(reg)<<6 | v.(int), nil
	}, deferred.TInt)
	return []*deferred.Deferred{word}
}
