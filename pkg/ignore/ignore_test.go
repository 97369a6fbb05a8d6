package ignore

import "testing"

func TestRootedPatternMatchesOnlyFromTop(t *testing.T) {
	m := Parse("/build\n")
	if !m.Match("build/out.bin") {
		t.Fatal("want rooted pattern to match top-level build/")
	}
	if m.Match("src/build/out.bin") {
		t.Fatal("rooted pattern must not match nested build/")
	}
}

func TestDirectoryPatternMatchesAnyDepth(t *testing.T) {
	m := Parse("obj/\n")
	if !m.Match("a/obj/x.o") {
		t.Fatal("want unrooted directory pattern to match at any depth")
	}
}

func TestBareNameMatchesComponentAnywhere(t *testing.T) {
	m := Parse("scratch.mac\n")
	if !m.Match("sub/dir/scratch.mac") {
		t.Fatal("want bare pattern to match as a path component anywhere")
	}
	if m.Match("sub/dir/other.asm") {
		t.Fatal("must not match an unrelated path")
	}
}

func TestCommentsAndBlankLinesIgnored(t *testing.T) {
	m := Parse("# comment\n\n  \nfoo\n")
	if len(m.patterns) != 1 {
		t.Fatalf("want exactly one pattern, got %d", len(m.patterns))
	}
}
