package pcfg

import (
	"bytes"
	"sort"

	"github.com/cupslab/guesscalc/bignum"
)

// LookupStatus reports whether a TerminalGroup's lookup found the
// query string.
type LookupStatus int

const (
	// NotFound means the group did not accept the string.
	NotFound LookupStatus = iota
	// CanParse means the group accepted the string.
	CanParse
)

// GroupKind distinguishes the two TerminalGroup representations. A
// tagged variant is used here (a single struct switching on Kind)
// rather than an interface with two implementations: the set of
// operations is fixed and small (count, probability, first, lookup,
// iterate), and every group is created once at load time and never
// grows a third kind, so a closed switch is clearer than dispatch.
type GroupKind int

const (
	// SeenKind groups are backed by an explicit, mapped list of lines.
	SeenKind GroupKind = iota
	// UnseenKind groups are backed by a generator mask and enumerated
	// implicitly.
	UnseenKind
)

// sourceSet is a set of single-character source tags. Tags form a
// prefix code; Bytes renders them in ascending byte order, which is
// also how GuessNumberService combines tags across the nonterminals of
// a single parse.
type sourceSet struct {
	bits uint64            // tags below 64 live here without an allocation
	wide map[byte]struct{} // every other tag byte, including ASCII letters
}

func newSourceSet(tags []byte) sourceSet {
	var s sourceSet
	for _, t := range tags {
		s.add(t)
	}
	return s
}

func (s *sourceSet) add(t byte) {
	if t < 64 {
		s.bits |= 1 << uint(t)
		return
	}
	if s.wide == nil {
		s.wide = make(map[byte]struct{})
	}
	s.wide[t] = struct{}{}
}

func (s sourceSet) union(other sourceSet) sourceSet {
	out := sourceSet{bits: s.bits | other.bits}
	for t := range s.wide {
		out.add(t)
	}
	for t := range other.wide {
		out.add(t)
	}
	return out
}

// Bytes renders the set in ascending byte order.
func (s sourceSet) Bytes() []byte {
	var out []byte
	for i := byte(0); i < 64; i++ {
		if s.bits&(1<<uint(i)) != 0 {
			out = append(out, i)
		}
	}
	var wide []byte
	for t := range s.wide {
		wide = append(wide, t)
	}
	sort.Slice(wide, func(i, j int) bool { return wide[i] < wide[j] })
	out = append(out, wide...)
	return out
}

// LookupResult is what TerminalGroup.Lookup returns (Nonterminal.Lookup
// returns TerminalLookupData): whether the string parses under this group, its position
// within the group, and the source tags that contributed it.
type LookupResult struct {
	Status  LookupStatus
	Index   bignum.Num
	Sources sourceSet
}

// StringIterator yields a TerminalGroup's strings in canonical order.
// It is finite and non-restartable; call NewIterator again to start
// over.
type StringIterator interface {
	Next() (s string, ok bool)
}

// TerminalGroup is a maximal run of equal-probability terminals under
// one Nonterminal. Groups never outlive the
// Nonterminal that owns their backing storage: a Seen group borrows a
// byte range of the Nonterminal's memory-mapped file, an Unseen group
// borrows nothing (it is purely computed) but is still only valid for
// the lifetime of the owning Nonterminal by convention.
type TerminalGroup struct {
	Kind        GroupKind
	probability float64

	// Seen fields.
	seenData       []byte // the mapped byte range covering exactly this group's lines
	seenLineStarts []int  // byte offset of each line's start within seenData
	seenGroupStart int    // absolute offset of seenData within the owning Nonterminal's mapping; used only to serialize a grammarcache record

	// Unseen fields. A group in the unseen section is, like a seen
	// group, a maximal contiguous run of equal-probability lines; each
	// line supplies its own generator mask, so one group may bundle
	// several independent masks that happen to share a probability
	// level. Masks are tried in file order and offsets are cumulative,
	// mirroring "first-hit wins" across seen groups.
	unseenEntries []unseenEntry
	unseenOffset  []bignum.Num // unseenOffset[i] = count of strings in entries[0:i]
	unseenTag     byte         // 0 if no synthetic tag; else the "UNSEEN" source tag byte
}

// unseenEntry is one generator mask within an unseen-section group.
type unseenEntry struct {
	mask      string
	alphabets [][]byte     // per-position sorted character sets, derived from mask
	weights   []bignum.Num // weights[i] = product of |alphabets[j]| for j>i
	count     bignum.Num
}

// CountStrings returns the number of strings this group contains.
func (g *TerminalGroup) CountStrings() bignum.Num {
	switch g.Kind {
	case SeenKind:
		return bignum.FromUint64(uint64(len(g.seenLineStarts)))
	default:
		total := bignum.Zero()
		for _, e := range g.unseenEntries {
			total.Add(e.count)
		}
		return total
	}
}

// Probability returns the group's probability, parsed once at load.
func (g *TerminalGroup) Probability() float64 {
	return g.probability
}

// FirstString returns the canonical lexicographic minimum string in
// the group.
func (g *TerminalGroup) FirstString() string {
	switch g.Kind {
	case SeenKind:
		term, _, _ := g.parseSeenLine(g.seenLineStarts[0])
		return term
	default:
		best := ""
		for i, e := range g.unseenEntries {
			buf := make([]byte, len(e.alphabets))
			for j, a := range e.alphabets {
				buf[j] = a[0]
			}
			s := string(buf)
			if i == 0 || s < best {
				best = s
			}
		}
		return best
	}
}

// Lookup reports whether s (already downcased by the caller) parses
// under this group.
func (g *TerminalGroup) Lookup(s string) LookupResult {
	if g.Kind == SeenKind {
		return g.lookupSeen(s)
	}
	return g.lookupUnseen(s)
}

// NewIterator returns a fresh iterator over the group's strings in
// canonical order.
func (g *TerminalGroup) NewIterator() StringIterator {
	if g.Kind == SeenKind {
		return &seenIterator{g: g}
	}
	return newUnseenIterator(g)
}

// --- Seen ---

// parseSeenLine splits the line starting at byte offset `start` of
// seenData into (terminal, probability-field, source-ids), without
// allocating beyond the two string copies the caller actually keeps.
func (g *TerminalGroup) parseSeenLine(start int) (term string, probField string, sources sourceSet) {
	end := len(g.seenData)
	for i := start; i < len(g.seenData); i++ {
		if g.seenData[i] == '\n' {
			end = i
			break
		}
	}
	line := g.seenData[start:end]
	tab1 := bytes.IndexByte(line, '\t')
	term = string(line[:tab1])
	rest := line[tab1+1:]
	tab2 := bytes.IndexByte(rest, '\t')
	if tab2 < 0 {
		probField = string(rest)
		return
	}
	probField = string(rest[:tab2])
	sources = newSourceSet(rest[tab2+1:])
	return
}

func (g *TerminalGroup) lookupSeen(s string) LookupResult {
	n := len(g.seenLineStarts)
	i := sort.Search(n, func(i int) bool {
		term, _, _ := g.parseSeenLine(g.seenLineStarts[i])
		return term >= s
	})
	if i >= n {
		return LookupResult{Status: NotFound}
	}
	term, _, sources := g.parseSeenLine(g.seenLineStarts[i])
	if term != s {
		return LookupResult{Status: NotFound}
	}
	return LookupResult{Status: CanParse, Index: bignum.FromUint64(uint64(i)), Sources: sources}
}

type seenIterator struct {
	g   *TerminalGroup
	idx int
}

func (it *seenIterator) Next() (string, bool) {
	if it.idx >= len(it.g.seenLineStarts) {
		return "", false
	}
	term, _, _ := it.g.parseSeenLine(it.g.seenLineStarts[it.idx])
	it.idx++
	return term, true
}

// --- Unseen ---

// indexWithinEntry computes the rank of s (which must already be known
// to match e position-wise) within e's Cartesian product.
func indexWithinEntry(e *unseenEntry, s string) (bignum.Num, bool) {
	idx := bignum.Zero()
	for i := 0; i < len(s); i++ {
		alpha := e.alphabets[i]
		pos := sort.Search(len(alpha), func(k int) bool { return alpha[k] >= s[i] })
		if pos >= len(alpha) || alpha[pos] != s[i] {
			return bignum.Num{}, false
		}
		term := bignum.FromUint64(uint64(pos))
		term.Mul(e.weights[i])
		idx.Add(term)
	}
	return idx, true
}

func (g *TerminalGroup) lookupUnseen(s string) LookupResult {
	for ei := range g.unseenEntries {
		e := &g.unseenEntries[ei]
		if len(s) != len(e.mask) {
			continue
		}
		within, ok := indexWithinEntry(e, s)
		if !ok {
			continue
		}
		var idx bignum.Num
		idx.Assign(g.unseenOffset[ei])
		idx.Add(within)
		var sources sourceSet
		if g.unseenTag != 0 {
			sources.add(g.unseenTag)
		}
		return LookupResult{Status: CanParse, Index: idx, Sources: sources}
	}
	return LookupResult{Status: NotFound}
}

type unseenIterator struct {
	g        *TerminalGroup
	entryIdx int
	indices  []int
	done     bool
}

func newUnseenIterator(g *TerminalGroup) *unseenIterator {
	it := &unseenIterator{g: g}
	if len(g.unseenEntries) > 0 {
		it.indices = make([]int, len(g.unseenEntries[0].alphabets))
	} else {
		it.done = true
	}
	return it
}

func (it *unseenIterator) Next() (string, bool) {
	for {
		if it.done {
			return "", false
		}
		e := &it.g.unseenEntries[it.entryIdx]
		if len(it.indices) == 0 {
			it.advanceEntry()
			continue
		}
		buf := make([]byte, len(e.alphabets))
		for i, a := range e.alphabets {
			buf[i] = a[it.indices[i]]
		}
		// advance odometer, least significant (rightmost) position first
		carried := true
		for i := len(it.indices) - 1; i >= 0; i-- {
			it.indices[i]++
			if it.indices[i] < len(e.alphabets[i]) {
				carried = false
				break
			}
			it.indices[i] = 0
		}
		if carried {
			it.advanceEntry()
		}
		return string(buf), true
	}
}

// advanceEntry moves to the next mask entry in the group, or marks the
// iterator done if this was the last one.
func (it *unseenIterator) advanceEntry() {
	it.entryIdx++
	if it.entryIdx >= len(it.g.unseenEntries) {
		it.done = true
		return
	}
	it.indices = make([]int, len(it.g.unseenEntries[it.entryIdx].alphabets))
}
