package pcfg

// BreakByte is the reserved byte used internally to mark a
// pre-tokenized split point. A password containing it is a hard
// reject: it is an internal-only separator, never a legal character in
// a submitted password.
const BreakByte = 0x01

// classOf maps a single byte to its USLD class: Uppercase, Lowercase,
// Symbol, Digit.
func classOf(b byte) byte {
	switch {
	case b >= 'A' && b <= 'Z':
		return 'U'
	case b >= 'a' && b <= 'z':
		return 'L'
	case b >= '0' && b <= '9':
		return 'D'
	default:
		return 'S'
	}
}

// Signature computes the USLD representation of s. ok is false if s
// contains the reserved break byte, in which case the password is
// deemed unparseable.
func Signature(s []byte) (sig string, ok bool) {
	buf := make([]byte, len(s))
	for i, b := range s {
		if b == BreakByte {
			return "", false
		}
		buf[i] = classOf(b)
	}
	return string(buf), true
}

// symbolAlphabet is the canonical, sorted set of "anything else
// printable-non-alphanumeric" characters an S-class position may take:
// every printable ASCII byte (0x21-0x7E) that is not a letter or
// digit. Sorting is by byte value, which fixes the lexicographic
// ordering unseen groups rely on for first_string and within-group
// ranking.
var symbolAlphabet = func() []byte {
	var out []byte
	for b := byte(0x21); b < 0x7F; b++ {
		if classOf(b) == 'S' {
			out = append(out, b)
		}
	}
	return out
}()

// upperAlphabet, lowerAlphabet, digitAlphabet are the canonical sorted
// character sets for the U, L, D classes respectively.
var (
	upperAlphabet = rangeAlphabet('A', 'Z')
	lowerAlphabet = rangeAlphabet('a', 'z')
	digitAlphabet = rangeAlphabet('0', '9')
)

func rangeAlphabet(lo, hi byte) []byte {
	out := make([]byte, 0, int(hi-lo)+1)
	for b := lo; b <= hi; b++ {
		out = append(out, b)
	}
	return out
}

// alphabetForClass returns the canonical sorted character set for a
// USLD class byte ('U', 'L', 'S', 'D'). It panics on any other input;
// callers must validate the class byte first (buildUnseenEntry does).
func alphabetForClass(class byte) []byte {
	switch class {
	case 'U':
		return upperAlphabet
	case 'L':
		return lowerAlphabet
	case 'D':
		return digitAlphabet
	case 'S':
		return symbolAlphabet
	default:
		panic("pcfg: bad USLD class byte")
	}
}
