package pcfg

import "testing"

func TestParseRepresentation(t *testing.T) {
	r, err := ParseRepresentation("L5")
	if err != nil {
		t.Fatalf("ParseRepresentation: %v", err)
	}
	if r.Class != 'L' || r.Length != 5 {
		t.Errorf("got %+v, want Class=L Length=5", r)
	}
	if got, want := r.String(), "L5"; got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
	if got, want := r.Signature(), "LLLLL"; got != want {
		t.Errorf("Signature() = %q, want %q", got, want)
	}
}

func TestParseRepresentationRejectsBadInput(t *testing.T) {
	bad := []string{"", "L", "X5", "L0", "L-1", "Labc"}
	for _, s := range bad {
		if _, err := ParseRepresentation(s); err == nil {
			t.Errorf("ParseRepresentation(%q): expected error", s)
		}
	}
}

func TestFileStemSharesUpperLower(t *testing.T) {
	u, _ := ParseRepresentation("U6")
	l, _ := ParseRepresentation("L6")
	if u.FileStem() != l.FileStem() {
		t.Errorf("U6.FileStem() = %q, L6.FileStem() = %q, want equal", u.FileStem(), l.FileStem())
	}
	if u.FileStem() != "L6" {
		t.Errorf("FileStem() = %q, want %q", u.FileStem(), "L6")
	}
}

func TestFileStemLeavesOtherClassesAlone(t *testing.T) {
	d, _ := ParseRepresentation("D3")
	if got, want := d.FileStem(), "D3"; got != want {
		t.Errorf("FileStem() = %q, want %q", got, want)
	}
}
