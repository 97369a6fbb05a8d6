package encoder

import (
	"testing"

	"github.com/oisee/pdpy11go/pkg/ast"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

func TestHaltEncodesToZero(t *testing.T) {
	e, ok := Lookup("HALT")
	if !ok {
		t.Fatal("HALT not in table")
	}
	words := EncodeZeroArg(e.Opcode)
	v, err := words[0].Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	if v.(int) != 0 {
		t.Fatalf("want 0, got %v", v)
	}
}

func TestMovImmediateToRegister(t *testing.T) {
	e, ok := Lookup("MOV")
	if !ok {
		t.Fatal("MOV not in table")
	}
	src := ast.NewA(ast.PC, ast.ModeAutoInc, deferred.NewLiteral(12345, deferred.TInt))
	dst := ast.NewA(ast.R0, ast.ModeRn, nil)
	words := EncodeTwoA(e.Opcode, src, dst, 0o1000)
	if len(words) != 2 {
		t.Fatalf("want 2 words (instruction + immediate), got %d", len(words))
	}
	instr, err := words[0].Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	// src field: mode=2 (Rn)+, reg=7 (PC) -> 0o27; dst field: Rn, R0 -> 0o00.
	want := e.Opcode | 0o27<<6 | 0o00
	if instr.(int) != want {
		t.Fatalf("want %o, got %o", want, instr.(int))
	}
	imm, err := words[1].Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	if imm.(int) != 12345 {
		t.Fatalf("want 12345, got %v", imm)
	}
}

func TestBranchForwardInRange(t *testing.T) {
	e, ok := Lookup("BR")
	if !ok {
		t.Fatal("BR not in table")
	}
	target := deferred.NewLiteral(10, deferred.TInt)
	words := EncodeBranch(e.Opcode, target, ast.Position{})
	v, err := words[0].Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := e.Opcode | (10 / 2)
	if v.(int) != want {
		t.Fatalf("want %o, got %o", want, v.(int))
	}
}

func TestBranchOddOffsetRejected(t *testing.T) {
	target := deferred.NewLiteral(3, deferred.TInt)
	words := EncodeBranch(0o000400, target, ast.Position{File: "a.asm", Line: 1})
	if _, err := words[0].Eval(nil); err == nil {
		t.Fatal("expected error for odd branch offset")
	}
}

func TestBranchOutOfRangeRejected(t *testing.T) {
	target := deferred.NewLiteral(1000, deferred.TInt)
	words := EncodeBranch(0o000400, target, ast.Position{File: "a.asm", Line: 1})
	if _, err := words[0].Eval(nil); err == nil {
		t.Fatal("expected error for out-of-range branch offset")
	}
}

func TestSobEncodesBackwardDisplacement(t *testing.T) {
	e, ok := Lookup("SOB")
	if !ok {
		t.Fatal("SOB not in table")
	}
	target := deferred.NewLiteral(20, deferred.TInt)
	words := EncodeSOB(e.Opcode, ast.R1, target, ast.Position{})
	v, err := words[0].Eval(nil)
	if err != nil {
		t.Fatal(err)
	}
	want := e.Opcode | EncodeRegister(ast.R1)<<6 | (20 / 2)
	if v.(int) != want {
		t.Fatalf("want %o, got %o", want, v.(int))
	}
}

func TestEmtImmediateRangeChecked(t *testing.T) {
	e, ok := Lookup("EMT")
	if !ok {
		t.Fatal("EMT not in table")
	}
	ok1 := EncodeImm(e.Opcode, e.MaxImm, deferred.NewLiteral(0o17, deferred.TInt), ast.Position{})
	if _, err := ok1[0].Eval(nil); err != nil {
		t.Fatal(err)
	}
	bad := EncodeImm(e.Opcode, e.MaxImm, deferred.NewLiteral(0o400, deferred.TInt), ast.Position{File: "a.asm"})
	if _, err := bad[0].Eval(nil); err == nil {
		t.Fatal("expected range error for EMT operand above 0o377")
	}
}

func TestPushDesugarsToMovWithPredecrementSP(t *testing.T) {
	e, ok := Lookup("PUSH")
	if !ok {
		t.Fatal("PUSH not in table")
	}
	src := ast.NewA(ast.R2, ast.ModeRn, nil)
	out, err := e.Desugar([]ast.Arg{src})
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 1 || out[0].Mnemonic != "MOV" {
		t.Fatalf("want single MOV, got %+v", out)
	}
	dst := out[0].Args[1]
	if dst.Reg != ast.SP || dst.Mode != ast.ModeAutoDec {
		t.Fatalf("want -(SP) destination, got %s", dst)
	}
}

func TestPopDesugarsToMovWithPostincrementSP(t *testing.T) {
	e, ok := Lookup("POP")
	if !ok {
		t.Fatal("POP not in table")
	}
	dst := ast.NewA(ast.R3, ast.ModeRn, nil)
	out, err := e.Desugar([]ast.Arg{dst})
	if err != nil {
		t.Fatal(err)
	}
	src := out[0].Args[0]
	if src.Reg != ast.SP || src.Mode != ast.ModeAutoInc {
		t.Fatalf("want (SP)+ source, got %s", src)
	}
}
