package compiler

import (
	"fmt"
	"testing"
)

func readerFor(files map[string]string) FileReader {
	return func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return src, nil
	}
}

func compileSrc(t *testing.T, src string) *Compiler {
	t.Helper()
	c := New(Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{"a.mac": src}))
	if err := c.Run("a.mac"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return c
}

func wordAt(t *testing.T, c *Compiler, addr int) int {
	t.Helper()
	for _, w := range c.Writes {
		if w.Address == addr && w.Size == 2 {
			v, err := w.Value.Eval(c)
			if err != nil {
				t.Fatalf("eval word at %o: %v", addr, err)
			}
			return v.(int)
		}
	}
	t.Fatalf("no word write at address %o", addr)
	return 0
}

func TestHaltEncodesZero(t *testing.T) {
	c := compileSrc(t, "HALT\n")
	if v := wordAt(t, c, 0o1000); v != 0 {
		t.Fatalf("want 0, got %o", v)
	}
}

func TestLabelForwardReferenceResolves(t *testing.T) {
	c := compileSrc(t, "BR TARGET\nHALT\nTARGET: HALT\n")
	v := wordAt(t, c, 0o1000)
	// BR opcode is 0o000400; target 0o1004 is 2 bytes ahead of linkPC+2=0o1002.
	if v != 0o000400|((0o1004-0o1002)/2) {
		t.Fatalf("unexpected BR encoding: %o", v)
	}
}

func TestByteAndWordDirectivesAdvancePC(t *testing.T) {
	c := compileSrc(t, ".BYTE 1, 2\n.WORD 300\n")
	if c.PC != 0o1000+2+2 {
		t.Fatalf("want PC advanced by 4, got %o", c.PC)
	}
	// 300 has no radix mark, so it is read as octal.
	if v := wordAt(t, c, 0o1002); v != 0o300 {
		t.Fatalf("want 0o300, got %o", v)
	}
}

func TestAssignmentDefinesSymbol(t *testing.T) {
	c := compileSrc(t, "FOO = 42\n.WORD FOO\n")
	// 42 has no radix mark, so it is read as octal.
	if v := wordAt(t, c, 0o1000); v != 0o42 {
		t.Fatalf("want 0o42, got %o", v)
	}
}

func TestRepeatUnrollsAndRenamesLabels(t *testing.T) {
	c := compileSrc(t, ".REPEAT 3 {\nLOOP: INC R0\n}\n")
	// 3 iterations of a single one-word instruction (INC R0, mode Rn => no
	// immediate word), each 2 bytes.
	if c.PC != 0o1000+6 {
		t.Fatalf("want PC advanced by 6, got %o", c.PC)
	}
	if _, ok := c.Sym.Lookup("a.mac", "LOOP: .REPEAT(0)[0]"); !ok {
		t.Fatal("want renamed label for iteration 0")
	}
	if _, ok := c.Sym.Lookup("a.mac", "LOOP: .REPEAT(0)[2]"); !ok {
		t.Fatal("want renamed label for iteration 2")
	}
}

func TestLinkDirectiveInRootMovesLinkAddressAndPC(t *testing.T) {
	// "1000." is decimal 1000 (the trailing '.' forces decimal), which differs
	// from the default link address 0o1000 (decimal 512).
	c := compileSrc(t, ".LINK 1000.\nHALT\n")
	if c.LinkAddress != 1000 {
		t.Fatalf(".LINK did not move the link address, got %d", c.LinkAddress)
	}
	if c.LinkPC != 1002 {
		t.Fatalf(".LINK did not move link-PC, got %d", c.LinkPC)
	}
	if c.PC != 1002 {
		t.Fatalf(".LINK did not move PC, got %d", c.PC)
	}
}

func TestIncludeWithoutOnceCompilesEachTime(t *testing.T) {
	c := New(Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{
		"a.mac": ".INCLUDE \"m.mac\"\n.INCLUDE \"m.mac\"\n",
		"m.mac": ".WORD 5\n",
	}))
	if err := c.Run("a.mac"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// m.mac carries no .ONCE of its own, so each .INCLUDE compiles it again:
	// two words, 4 bytes, matching the original's unconditional include.
	if c.PC != 0o1000+4 {
		t.Fatalf("want PC advanced by 4 (two inclusions), got %o", c.PC)
	}
	wordAt(t, c, 0o1000)
	wordAt(t, c, 0o1002)
}

func TestOnceGuardsReentryOfSameFile(t *testing.T) {
	c := New(Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{
		"a.mac": ".INCLUDE \"m.mac\"\n.INCLUDE \"m.mac\"\n",
		"m.mac": ".ONCE\n.WORD 5\n",
	}))
	if err := c.Run("a.mac"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	// m.mac opts into idempotence with its own .ONCE: the second inclusion
	// re-enters the file, sees itself already in the once-set, and stops
	// before reaching .WORD, so only one word is emitted.
	if c.PC != 0o1000+2 {
		t.Fatalf("want PC advanced by 2 (one inclusion only), got %o", c.PC)
	}
	wordAt(t, c, 0o1000)
}

func TestOnceGuardPersistsAcrossProjectRoots(t *testing.T) {
	c := New(Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{
		"root1.mac": ".INCLUDE \"shared.mac\"\n",
		"root2.mac": ".INCLUDE \"shared.mac\"\n",
		"shared.mac": ".ONCE\n.EXTERN ALL\nK: HALT\n",
	}))
	if err := c.Run("root1.mac"); err != nil {
		t.Fatalf("root1 compile failed: %v", err)
	}
	c.ResetForRoot()
	// shared.mac's own .ONCE guard must still be in effect for root2: if
	// ResetForRoot cleared the once-set, root2 would re-enter shared.mac and
	// try to redefine the extern symbol K a second time, which the symbol
	// table correctly rejects as a duplicate global.
	if err := c.Run("root2.mac"); err != nil {
		t.Fatalf("root2 compile failed (once-guard did not persist across roots): %v", err)
	}
	if _, ok := c.Sym.Lookup("root2.mac", "K"); !ok {
		t.Fatal("want K still visible as an extern symbol from root1's compilation")
	}
}

func TestExternAllMarksSymbolExtern(t *testing.T) {
	c := New(Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{"a.mac": ".EXTERN ALL\nFOO: HALT\n"}))
	if err := c.Run("a.mac"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	if _, ok := c.Sym.Lookup("other.mac", "FOO"); !ok {
		t.Fatal("want FOO visible as extern from an unrelated file")
	}
}
