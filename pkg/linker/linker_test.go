package linker

import (
	"fmt"
	"testing"

	"github.com/oisee/pdpy11go/pkg/compiler"
	"github.com/oisee/pdpy11go/pkg/deferred"
)

func readerFor(files map[string]string) compiler.FileReader {
	return func(path string) (string, error) {
		src, ok := files[path]
		if !ok {
			return "", fmt.Errorf("no such file: %s", path)
		}
		return src, nil
	}
}

func compileSrc(t *testing.T, src string) *compiler.Compiler {
	t.Helper()
	c := compiler.New(compiler.Options{Syntax: "pdpy11", LinkAddress: 0o1000}, readerFor(map[string]string{"a.mac": src}))
	if err := c.Run("a.mac"); err != nil {
		t.Fatalf("compile failed: %v", err)
	}
	return c
}

func TestLinkSlicesFromLinkAddress(t *testing.T) {
	c := compileSrc(t, "HALT\n")
	img, err := Link(c)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if img.LinkAddress != 0o1000 {
		t.Fatalf("want link address 01000, got %o", img.LinkAddress)
	}
	if len(img.Bytes) != 2 || img.Bytes[0] != 0 || img.Bytes[1] != 0 {
		t.Fatalf("want a single zero word, got %v", img.Bytes)
	}
}

func TestLinkLaterWriteWinsOnOverlap(t *testing.T) {
	c := compileSrc(t, ".BYTE 1, 2\n")
	// Append an overlapping write the way a re-assembly at the same address
	// would: the later entry in the write log wins.
	c.Writes = append(c.Writes, compiler.WriteEntry{
		Address: 0o1000,
		Value:   deferred.NewLiteral(9, deferred.TInt),
		Size:    1,
	})
	img, err := Link(c)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if img.Bytes[0] != 9 || img.Bytes[1] != 2 {
		t.Fatalf("want [9 2], got %v", img.Bytes)
	}
}

func TestListingExcludesSyntheticAndExternLabels(t *testing.T) {
	c := compileSrc(t, ".EXTERN ALL\nFOO: HALT\nBAR: HALT\n")
	img, err := Link(c)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	names := map[string]bool{}
	for _, l := range img.Labels {
		names[l.Name] = true
	}
	if names["FOO"] || names["BAR"] {
		t.Fatalf("want extern FOO and BAR left out of the listing, got %v", img.Labels)
	}
}

func TestListingSortedByAddress(t *testing.T) {
	c := compileSrc(t, "SECOND: HALT\nFIRST: HALT\n")
	img, err := Link(c)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}
	if len(img.Labels) < 2 {
		t.Fatalf("want at least 2 labels, got %d", len(img.Labels))
	}
	for i := 1; i < len(img.Labels); i++ {
		if img.Labels[i].Address < img.Labels[i-1].Address {
			t.Fatalf("labels not sorted by address: %v", img.Labels)
		}
	}
}

func TestLinkRecursiveLabelErrors(t *testing.T) {
	c := compileSrc(t, "FOO = FOO\n")
	if _, err := Link(c); err == nil {
		t.Fatal("want an error for a recursively-defined symbol")
	}
}
