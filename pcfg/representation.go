package pcfg

import (
	"strconv"

	"github.com/pkg/errors"
)

// Representation identifies one nonterminal within a structure: a USLD
// class letter and a run length, e.g. "L5" for five lowercase
// characters. Structures are sequences of Representations; the
// concatenation of each Representation's expanded signature (its class
// letter repeated Length times) must equal USLD(password) for the
// structure to apply.
type Representation struct {
	Class  byte
	Length int
}

// ParseRepresentation parses a representation string such as "L5" or
// "U12".
func ParseRepresentation(s string) (Representation, error) {
	if len(s) < 2 {
		return Representation{}, errors.Errorf("pcfg: bad representation %q", s)
	}
	class := s[0]
	switch class {
	case 'U', 'L', 'S', 'D':
	default:
		return Representation{}, errors.Errorf("pcfg: bad representation class in %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n <= 0 {
		return Representation{}, errors.Errorf("pcfg: bad representation length in %q", s)
	}
	return Representation{Class: class, Length: n}, nil
}

// String renders the representation back to its canonical form.
func (r Representation) String() string {
	return string(r.Class) + strconv.Itoa(r.Length)
}

// Signature is the expanded USLD signature this representation
// contributes to a structure: its class letter repeated Length times.
func (r Representation) Signature() string {
	buf := make([]byte, r.Length)
	for i := range buf {
		buf[i] = r.Class
	}
	return string(buf)
}

// FileStem is the key under which the Nonterminal's backing terminal
// file is named and cached: the representation's class with any U
// replaced by L, since terminals are always stored lowercased, so an
// uppercase and a lowercase nonterminal of the same length share one
// file and one loaded Nonterminal.
func (r Representation) FileStem() string {
	class := r.Class
	if class == 'U' {
		class = 'L'
	}
	return string(class) + strconv.Itoa(r.Length)
}
