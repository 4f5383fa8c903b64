package pcfg

import (
	"strconv"
	"strings"

	"github.com/cupslab/guesscalc/bignum"
)

// GroupChoice records which terminal group, and which position within
// it, a structure's nonterminal resolved to.
type GroupChoice struct {
	Rep         Representation
	GroupIndex  int
	WithinIndex bignum.Num
	Probability float64
	Count       bignum.Num
	Sources     sourceSet
}

// Parse is one valid derivation of a password under the grammar: a
// structure, a vector of group choices (one per nonterminal of the
// structure), and the resulting probability.
type Parse struct {
	Structure   *Structure
	Groups      []GroupChoice
	Probability float64
	Sources     sourceSet
}

// StringCount returns the pattern string-count: the product of each
// chosen group's CountStrings. It is not needed to
// answer a single query (the lookup table already encodes it), but is
// exposed for tests asserting probability/count conservation and for
// any external table-building tooling that links against this
// package.
func (p Parse) StringCount() bignum.Num {
	n := bignum.FromUint64(1)
	for _, g := range p.Groups {
		n.Mul(g.Count)
	}
	return n
}

// PatternID renders a stable identifier for (Structure, Groups): the
// space-joined representation list, then the comma-joined group-index
// vector. Two parses with the same PatternID are, by construction, the
// same pattern: patterns are keyed by structure and per-nonterminal
// group choice, not by the literal string.
func (p Parse) PatternID() string {
	reps := make([]string, len(p.Structure.Reps))
	for i, r := range p.Structure.Reps {
		reps[i] = r.String()
	}
	idx := make([]string, len(p.Groups))
	for i, g := range p.Groups {
		idx[i] = strconv.Itoa(g.GroupIndex)
	}
	return strings.Join(reps, " ") + "|" + strings.Join(idx, ",")
}

// structureKey is a tie-break sort key: lexicographic order of the
// structure's nonterminal representation list.
func (p Parse) structureKey() string {
	reps := make([]string, len(p.Structure.Reps))
	for i, r := range p.Structure.Reps {
		reps[i] = r.String()
	}
	return strings.Join(reps, " ")
}

// groupIndexLess reports whether a's group-index vector is less than
// b's, lexicographically. Vectors are always the same length when
// compared (they come from the same structureKey).
func groupIndexLess(a, b Parse) bool {
	for i := range a.Groups {
		if a.Groups[i].GroupIndex != b.Groups[i].GroupIndex {
			return a.Groups[i].GroupIndex < b.Groups[i].GroupIndex
		}
	}
	return false
}

// BestParse selects the deterministic best parse: maximum probability,
// ties broken by (a) lexicographic structure representation, then (b)
// ascending group-index vector.
func BestParse(candidates []Parse) (Parse, bool) {
	if len(candidates) == 0 {
		return Parse{}, false
	}
	best := candidates[0]
	for _, c := range candidates[1:] {
		switch {
		case c.Probability > best.Probability:
			best = c
		case c.Probability < best.Probability:
			// keep best
		case c.structureKey() < best.structureKey():
			best = c
		case c.structureKey() > best.structureKey():
			// keep best
		case groupIndexLess(c, best):
			best = c
		}
	}
	return best, true
}
