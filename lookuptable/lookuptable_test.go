package lookuptable

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTableFixture(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "table.txt")
	content := "0x1.0p-1\t5\n" +
		"0x1.0p-2\t8\n" +
		"0x1.0p-4\t10\n" +
		"Total count\t10\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoadAndRank(t *testing.T) {
	path := writeTableFixture(t)
	table, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer table.Close()

	if got, want := table.TotalCount.String(), "10"; got != want {
		t.Errorf("TotalCount = %s, want %s", got, want)
	}

	cases := []struct {
		prob float64
		want string
	}{
		{0x1.0p-1, "1"}, // highest level: rank starts at 1
		{0x1.0p-2, "6"}, // one past the level above's cumulative (5)
		{0x1.0p-4, "9"}, // one past 8
	}
	for _, c := range cases {
		rank, err := table.Rank(c.prob)
		if err != nil {
			t.Fatalf("Rank(%v): %v", c.prob, err)
		}
		if got := rank.String(); got != c.want {
			t.Errorf("Rank(%v) = %s, want %s", c.prob, got, c.want)
		}
	}
}

func TestRankAboveTable(t *testing.T) {
	path := writeTableFixture(t)
	table, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer table.Close()

	if _, err := table.Rank(0x1.8p-1); err != ErrNotInTable {
		t.Errorf("Rank(above table) error = %v, want ErrNotInTable", err)
	}
}

func TestRankBelowTable(t *testing.T) {
	path := writeTableFixture(t)
	table, err := Load(path, Options{})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer table.Close()

	if _, err := table.Rank(0x1.0p-20); err != ErrNotInTable {
		t.Errorf("Rank(below table) error = %v, want ErrNotInTable", err)
	}
}

func TestRankIsMonotonicWithCache(t *testing.T) {
	path := writeTableFixture(t)
	table, err := Load(path, Options{RankCacheEntries: 8})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer table.Close()

	var prevRank, prevProb float64
	probs := []float64{0x1.0p-1, 0x1.0p-2, 0x1.0p-4}
	for i, p := range probs {
		r, err := table.Rank(p)
		if err != nil {
			t.Fatalf("Rank(%v): %v", p, err)
		}
		rf, _ := r.ToUint64()
		if i > 0 && float64(rf) <= prevRank {
			t.Errorf("rank not increasing as probability decreases: prob %v -> rank %v, prev prob %v -> rank %v", p, rf, prevProb, prevRank)
		}
		prevRank = float64(rf)
		prevProb = p
	}

	// second call for the same probability must hit the cache and
	// agree with the first.
	again, err := table.Rank(probs[1])
	if err != nil {
		t.Fatalf("Rank (cached): %v", err)
	}
	if got, want := again.String(), "6"; got != want {
		t.Errorf("cached Rank = %s, want %s", got, want)
	}
}

func TestLoadRejectsUnsortedTable(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	content := "0x1.0p-2\t5\n0x1.0p-1\t8\n" // ascending probability: invalid
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path, Options{}); err == nil {
		t.Fatal("expected error for unsorted table")
	}
}

func TestLoadRejectsNonIncreasingCumulative(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.txt")
	content := "0x1.0p-1\t8\n0x1.0p-2\t8\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	if _, err := Load(path, Options{}); err == nil {
		t.Fatal("expected error for non-increasing cumulative counts")
	}
}
