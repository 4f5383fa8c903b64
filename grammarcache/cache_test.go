package grammarcache

import (
	"os"
	"path/filepath"
	"testing"
)

func TestRoundTrip(t *testing.T) {
	idx := &Index{
		Nonterminals: []NonterminalRecord{
			{
				FileStem:         "L4",
				Fingerprint:      0xdeadbeef,
				SeenBeforeUnseen: true,
				Seen: []SeenGroupRecord{
					{Probability: 0.5, Lines: []LineRecord{{Start: 0}, {Start: 9}}},
				},
				Unseen: []UnseenGroupRecord{
					{Probability: 0.1, Masks: []string{"LLLL", "DDDD"}},
				},
			},
		},
	}
	b, err := idx.MarshalMsg(nil)
	if err != nil {
		t.Fatalf("MarshalMsg: %v", err)
	}

	got := &Index{}
	if _, err := got.UnmarshalMsg(b); err != nil {
		t.Fatalf("UnmarshalMsg: %v", err)
	}
	if len(got.Nonterminals) != 1 {
		t.Fatalf("got %d records, want 1", len(got.Nonterminals))
	}
	rec := got.Nonterminals[0]
	if rec.FileStem != "L4" || rec.Fingerprint != 0xdeadbeef {
		t.Errorf("got %+v", rec)
	}
	if len(rec.Seen) != 1 || len(rec.Seen[0].Lines) != 2 {
		t.Fatalf("seen groups = %+v", rec.Seen)
	}
	if rec.Seen[0].Lines[1].Start != 9 {
		t.Errorf("line start = %d, want 9", rec.Seen[0].Lines[1].Start)
	}
	if len(rec.Unseen) != 1 || len(rec.Unseen[0].Masks) != 2 || rec.Unseen[0].Masks[1] != "DDDD" {
		t.Fatalf("unseen groups = %+v", rec.Unseen)
	}
}

func TestFindAndPut(t *testing.T) {
	idx := &Index{}
	idx.Put(NonterminalRecord{FileStem: "L4", Fingerprint: 1})
	idx.Put(NonterminalRecord{FileStem: "D2", Fingerprint: 2})
	idx.Put(NonterminalRecord{FileStem: "L4", Fingerprint: 3}) // replaces first

	if r := idx.Find("L4"); r == nil || r.Fingerprint != 3 {
		t.Fatalf("Find(L4) = %+v, want Fingerprint 3", r)
	}
	if r := idx.Find("D2"); r == nil || r.Fingerprint != 2 {
		t.Fatalf("Find(D2) = %+v, want Fingerprint 2", r)
	}
	if idx.Find("missing") != nil {
		t.Error("Find(missing) should be nil")
	}
	if len(idx.Nonterminals) != 2 {
		t.Errorf("got %d records, want 2 (Put should replace, not append)", len(idx.Nonterminals))
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	idx := &Index{Nonterminals: []NonterminalRecord{{FileStem: "L4", Fingerprint: 42}}}
	if err := Save(dir, idx); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, FileName)); err != nil {
		t.Fatalf("index file not written: %v", err)
	}

	got, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got.Nonterminals) != 1 || got.Nonterminals[0].Fingerprint != 42 {
		t.Fatalf("got %+v", got)
	}
}

func TestLoadMissingFileReturnsEmptyIndex(t *testing.T) {
	dir := t.TempDir()
	idx, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(idx.Nonterminals) != 0 {
		t.Errorf("expected empty index, got %+v", idx)
	}
}

func TestFingerprintDiffersOnContentChange(t *testing.T) {
	a := Fingerprint([]byte("hello"))
	b := Fingerprint([]byte("hellp"))
	if a == b {
		t.Error("Fingerprint collided on different content")
	}
	if Fingerprint([]byte("hello")) != a {
		t.Error("Fingerprint is not deterministic")
	}
}
