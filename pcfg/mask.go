package pcfg

import (
	"sort"

	"github.com/pkg/errors"

	"github.com/cupslab/guesscalc/bignum"
)

// buildUnseenEntry parses a generator mask into its per-position
// alphabets and index weights. A mask position is one
// of the four USLD class letters, meaning "the canonical alphabet for
// that class", or any other byte, meaning "the literal single-character
// alphabet {byte}" (the "extended with explicit characters" case).
func buildUnseenEntry(mask string) (unseenEntry, error) {
	if mask == "" {
		return unseenEntry{}, errors.New("pcfg: empty generator mask")
	}
	alphabets := make([][]byte, len(mask))
	for i := 0; i < len(mask); i++ {
		c := mask[i]
		switch c {
		case 'U', 'L', 'D', 'S':
			alphabets[i] = alphabetForClass(c)
		default:
			alphabets[i] = []byte{c}
		}
	}
	weights := make([]bignum.Num, len(mask))
	running := bignum.FromUint64(1)
	for i := len(mask) - 1; i >= 0; i-- {
		// weights[i] must snapshot running's value independently: Num
		// wraps a big.Int whose backing word slice is shared by a plain
		// struct copy, and running.MulUint64 below mutates in place.
		weights[i].Assign(running)
		running.MulUint64(uint64(len(alphabets[i])))
	}
	count := bignum.FromUint64(1)
	for _, a := range alphabets {
		count.MulUint64(uint64(len(a)))
	}
	return unseenEntry{mask: mask, alphabets: alphabets, weights: weights, count: count}, nil
}

// sortedUnique is a small helper used by tests to confirm an alphabet
// is sorted and free of duplicates, mirroring the invariant the
// terminal-group file format relies on for seen terminals.
func sortedUnique(b []byte) bool {
	return sort.SliceIsSorted(b, func(i, j int) bool { return b[i] < b[j] }) && func() bool {
		for i := 1; i < len(b); i++ {
			if b[i] == b[i-1] {
				return false
			}
		}
		return true
	}()
}
