package pcfg

import (
	"os"
	"path/filepath"
	"testing"
)

func writeGrammarFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "terminals"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	structures := "L4 D2\t0x1.8p-1\tA\n" +
		"L4 D2\t0x1.0p-2\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "structures.txt"), []byte(structures), 0o644); err != nil {
		t.Fatalf("WriteFile structures.txt: %v", err)
	}
	l4 := "pass\t0x1.0p-1\tA\nword\t0x1.0p-1\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "terminals", "L4.txt"), []byte(l4), 0o644); err != nil {
		t.Fatalf("WriteFile L4.txt: %v", err)
	}
	d2 := "12\t0x1.0p-1\tA\n34\t0x1.0p-2\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "terminals", "D2.txt"), []byte(d2), 0o644); err != nil {
		t.Fatalf("WriteFile D2.txt: %v", err)
	}
	return dir
}

func TestLoadGrammar(t *testing.T) {
	dir := writeGrammarFixture(t)
	g, err := LoadGrammar(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	defer g.Close()

	if len(g.Structures) != 2 {
		t.Fatalf("got %d structures, want 2", len(g.Structures))
	}
	if g.Nonterminal("L4") == nil || g.Nonterminal("D2") == nil {
		t.Fatalf("expected both L4 and D2 nonterminals to be loaded")
	}

	matches := g.MatchingStructures("LLLLDD")
	if len(matches) != 2 {
		t.Fatalf("MatchingStructures(LLLLDD) returned %d, want 2", len(matches))
	}

	if len(g.MatchingStructures("UUUUDD")) != 0 {
		t.Errorf("MatchingStructures(UUUUDD) should be empty: structures.txt has no uppercase structure")
	}
}

func TestLoadGrammarRejectsMissingStructures(t *testing.T) {
	dir := t.TempDir()
	if _, err := LoadGrammar(dir, LoadOptions{}); err == nil {
		t.Fatal("expected error for missing structures.txt")
	}
}

func TestGrammarNonterminals(t *testing.T) {
	dir := writeGrammarFixture(t)
	g, err := LoadGrammar(dir, LoadOptions{})
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	defer g.Close()

	nts := g.Nonterminals()
	if len(nts) != 2 {
		t.Fatalf("got %d nonterminals, want 2", len(nts))
	}
	if nts["L4"] != g.Nonterminal("L4") || nts["D2"] != g.Nonterminal("D2") {
		t.Error("Nonterminals() map entries should be identical to Nonterminal(stem) lookups")
	}
}
