package guessservice

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/cupslab/guesscalc/hexfloat"
	"github.com/cupslab/guesscalc/lookuptable"
	"github.com/cupslab/guesscalc/pcfg"
	"github.com/cupslab/guesscalc/resultcache"
)

// writeFixture builds a tiny grammar (one seen-only L3 structure with
// probability 0.75*0.5 = 0.375, one D2 structure whose probability is
// far below the table's lowest level) and a lookup table that covers
// only the L3 level, so D2 queries are guaranteed to miss on rank.
func writeFixture(t *testing.T) (*pcfg.Grammar, *lookuptable.Table) {
	t.Helper()
	dir := t.TempDir()
	if err := os.Mkdir(filepath.Join(dir, "terminals"), 0o755); err != nil {
		t.Fatalf("Mkdir: %v", err)
	}
	structures := "L3\t0x1.8p-1\tA\n" + "D2\t0x1.0p-5\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "structures.txt"), []byte(structures), 0o644); err != nil {
		t.Fatalf("WriteFile structures.txt: %v", err)
	}
	l3 := "cat\t0x1.0p-1\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "terminals", "L3.txt"), []byte(l3), 0o644); err != nil {
		t.Fatalf("WriteFile L3.txt: %v", err)
	}
	d2 := "42\t0x1.0p-5\tA\n"
	if err := os.WriteFile(filepath.Join(dir, "terminals", "D2.txt"), []byte(d2), 0o644); err != nil {
		t.Fatalf("WriteFile D2.txt: %v", err)
	}

	g, err := pcfg.LoadGrammar(dir, pcfg.LoadOptions{})
	if err != nil {
		t.Fatalf("LoadGrammar: %v", err)
	}
	t.Cleanup(func() { g.Close() })

	tablePath := filepath.Join(dir, "table.txt")
	// 0x1.8p-1 is the top level (never queried directly here); the L3
	// parse's actual probability (0.75 * 0.5 = 0.375 = 0x1.8p-2) is the
	// second level, so Rank(0.375) = 3 + 1 = 4.
	tableContent := "0x1.8p-1\t3\n" + "0x1.8p-2\t7\n" + "Total count\t7\n"
	if err := os.WriteFile(tablePath, []byte(tableContent), 0o644); err != nil {
		t.Fatalf("WriteFile table.txt: %v", err)
	}
	table, err := lookuptable.Load(tablePath, lookuptable.Options{})
	if err != nil {
		t.Fatalf("lookuptable.Load: %v", err)
	}
	t.Cleanup(func() { table.Close() })

	return g, table
}

func newFixtureService(t *testing.T) *Service {
	t.Helper()
	g, table := writeFixture(t)
	return &Service{Grammar: g, Table: table}
}

func rec(password string) Record {
	return Record{UserID: "u1", Policy: "p1", Password: []byte(password)}
}

func TestQuerySuccess(t *testing.T) {
	s := newFixtureService(t)
	res := s.Query(rec("cat"))
	if res.Code != 0 {
		t.Fatalf("Code = %d, want 0", res.Code)
	}
	if got, want := res.GuessNumber.String(), "4"; got != want {
		t.Errorf("GuessNumber = %s, want %s", got, want)
	}
	if got, want := string(res.Sources), "A"; got != want {
		t.Errorf("Sources = %s, want %s", got, want)
	}
	if res.PatternID == "" {
		t.Error("expected a non-empty PatternID on a successful parse")
	}
	if res.UserID != "u1" || res.Policy != "p1" {
		t.Errorf("UserID/Policy = %q/%q, want u1/p1", res.UserID, res.Policy)
	}
}

func TestQueryBeyondCutoff(t *testing.T) {
	s := newFixtureService(t)
	res := s.Query(rec("42"))
	if res.Code != pcfg.CodeBeyondCutoff {
		t.Fatalf("Code = %d, want %d (CodeBeyondCutoff)", res.Code, pcfg.CodeBeyondCutoff)
	}
	// A parse was found even though the rank lookup missed: probability,
	// pattern id, and source tags must still be populated.
	if res.Probability == 0 {
		t.Error("expected nonzero Probability on a beyond-cutoff result")
	}
	if res.PatternID == "" {
		t.Error("expected a non-empty PatternID on a beyond-cutoff result")
	}
	if string(res.Sources) != "A" {
		t.Errorf("Sources = %q, want A", res.Sources)
	}
}

func TestQueryNoStructure(t *testing.T) {
	s := newFixtureService(t)
	res := s.Query(rec("wxyz"))
	if res.Code != pcfg.CodeNoStructure {
		t.Fatalf("Code = %d, want %d (CodeNoStructure)", res.Code, pcfg.CodeNoStructure)
	}
	if res.Probability != 0 || res.PatternID != "" {
		t.Errorf("expected zero Probability/PatternID with no parse, got %v/%q", res.Probability, res.PatternID)
	}
}

func TestFormatRowSuccess(t *testing.T) {
	s := newFixtureService(t)
	ok := s.Query(rec("cat"))
	fields := strings.Split(FormatRow(ok), "\t")
	if len(fields) != 7 {
		t.Fatalf("FormatRow(success) = %d fields, want 7: %q", len(fields), FormatRow(ok))
	}
	if fields[0] != "u1" || fields[1] != "p1" || fields[2] != "cat" || fields[5] != "4" || fields[6] != "A" {
		t.Errorf("FormatRow(success) fields = %v", fields)
	}
	if fields[4] != ok.PatternID {
		t.Errorf("FormatRow(success) pattern field = %q, want %q", fields[4], ok.PatternID)
	}
	if prob, err := hexfloat.Parse(fields[3]); err != nil || prob != ok.Probability {
		t.Errorf("FormatRow(success) probability field = %q, want round-trippable %v", fields[3], ok.Probability)
	}
}

func TestFormatRowBeyondCutoff(t *testing.T) {
	s := newFixtureService(t)
	res := s.Query(rec("42"))
	fields := strings.Split(FormatRow(res), "\t")
	if len(fields) != 7 {
		t.Fatalf("FormatRow(beyond-cutoff) = %d fields, want 7: %q", len(fields), FormatRow(res))
	}
	// rank field carries the negative code, but probability/pattern are
	// still the real computed values, not the no-parse sentinel/empty.
	if fields[5] != "-2" {
		t.Errorf("rank field = %q, want -2", fields[5])
	}
	if fields[3] == hexfloat.Sentinel {
		t.Error("probability field should not be the no-parse sentinel when a parse was found")
	}
	if fields[4] == "" {
		t.Error("pattern field should not be empty when a parse was found")
	}
}

func TestFormatRowNoStructure(t *testing.T) {
	s := newFixtureService(t)
	res := s.Query(rec("wxyz"))
	if got, want := FormatRow(res), "u1\tp1\twxyz\t-1\t\t-4\t"; got != want {
		t.Errorf("FormatRow(no-structure) = %q, want %q", got, want)
	}
}

func TestQueryUsesResultCache(t *testing.T) {
	s := newFixtureService(t)
	cacheDir := t.TempDir()
	cache, err := resultcache.Open(cacheDir)
	if err != nil {
		t.Fatalf("resultcache.Open: %v", err)
	}
	defer cache.Close()
	s.Cache = cache
	s.GrammarFingerprint = 99

	first := s.Query(rec("cat"))
	row, found, err := cache.Get(99, []byte("cat"))
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !found {
		t.Fatal("expected Query to have memoized its result")
	}
	if row.GuessNumber != first.GuessNumber.String() {
		t.Errorf("cached GuessNumber = %s, want %s", row.GuessNumber, first.GuessNumber.String())
	}
	if row.PatternID != first.PatternID {
		t.Errorf("cached PatternID = %s, want %s", row.PatternID, first.PatternID)
	}

	// A second query, with a different user-id/policy, must still
	// resolve via the cache path (resultFromRow) and keep the
	// per-query label fields distinct from the cached grammar result.
	second := s.Query(Record{UserID: "u2", Policy: "p2", Password: []byte("cat")})
	if !resultsEqual(first, second) {
		t.Errorf("second Query = %+v, want identical (password-derived fields) to first %+v", second, first)
	}
	if second.UserID != "u2" || second.Policy != "p2" {
		t.Errorf("second Query UserID/Policy = %q/%q, want u2/p2", second.UserID, second.Policy)
	}
}

func TestVerifyShardDeterminism(t *testing.T) {
	s := newFixtureService(t)
	records := []Record{rec("cat"), rec("42"), rec("wxyz"), rec("cat"), rec("42")}
	if err := VerifyShardDeterminism(s, records, 3); err != nil {
		t.Errorf("VerifyShardDeterminism: %v", err)
	}
}
