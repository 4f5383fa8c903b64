package pcfg

import (
	"bytes"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupslab/guesscalc/bignum"
	"github.com/cupslab/guesscalc/grammarcache"
	"github.com/cupslab/guesscalc/hexfloat"
	"github.com/cupslab/guesscalc/internal/mmapfile"
)

// TerminalStatus is the outcome of a Nonterminal.Lookup call.
type TerminalStatus int

const (
	// TerminalFound means some group under the nonterminal accepted
	// the substring.
	TerminalFound TerminalStatus = iota
	// TerminalNotFound means no group — seen or unseen — accepted the
	// substring at all.
	TerminalNotFound
	// TerminalCantBeGenerated means the nonterminal has an unseen
	// group whose mask matches the substring's length, but the
	// substring's characters fall outside that mask's per-position
	// alphabets: the grammar's brute-force fallback exists but
	// specifically cannot produce this string. Parses reports it as
	// CodeCantGenerate rather than CodeNoTerminal.
	TerminalCantBeGenerated
)

// TerminalLookupData is what Nonterminal.Lookup returns.
type TerminalLookupData struct {
	Status      TerminalStatus
	GroupIndex  int
	WithinIndex bignum.Num
	Probability float64
	Sources     sourceSet
}

// Nonterminal is one PCFG nonterminal, identified by its file stem. It
// owns a memory-mapped terminal file; its TerminalGroups borrow (but
// never outlive) that mapping.
type Nonterminal struct {
	FileStem  string
	groups    []TerminalGroup
	mapping   *mmapfile.Mapping
	hasUnseen bool
}

// LoadOptions configures optional, grammar-wide Nonterminal loading
// behavior.
type LoadOptions struct {
	// UnseenSourceTag, if nonzero, is the synthetic source tag applied
	// to every string produced by an unseen group. Zero means unseen
	// groups carry no source tag.
	UnseenSourceTag byte
	// UseGrammarCache enables the msgp side-car index
	// (grammarcache.FileName) for LoadGrammar: nonterminal group
	// boundaries are read from and written to the cache instead of
	// always re-scanning every terminal file.
	UseGrammarCache bool
	Log             *logrus.Logger
}

func (o LoadOptions) logger() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

// LoadNonterminal maps path (a terminals/<stem>.txt file) and parses it
// into groups.
func LoadNonterminal(path, fileStem string, opts LoadOptions) (*Nonterminal, error) {
	m, err := mmapfile.Open(path)
	if err != nil {
		if exhausted := asResourceExhausted(err); exhausted != nil {
			return nil, exhausted
		}
		return nil, errors.Wrapf(err, "pcfg: loading nonterminal %s", fileStem)
	}
	nt := &Nonterminal{FileStem: fileStem, mapping: m}
	if err := nt.parse(m.Data, path, opts); err != nil {
		m.Close()
		return nil, err
	}
	opts.logger().WithFields(logrus.Fields{
		"nonterminal": fileStem,
		"groups":      len(nt.groups),
		"file":        path,
	}).Debug("loaded nonterminal")
	return nt, nil
}

// Close releases the underlying mapping. Groups borrowed from it must
// not be used afterward.
func (nt *Nonterminal) Close() error {
	return nt.mapping.Close()
}

// loadNonterminalCached maps path and either reconstructs its groups
// from a valid cached record in idx (fingerprint match) or falls back
// to a full parse, in which case it records a fresh entry into idx for
// the caller to persist.
func loadNonterminalCached(path, fileStem string, opts LoadOptions, idx *grammarcache.Index) (*Nonterminal, error) {
	m, err := mmapfile.Open(path)
	if err != nil {
		if exhausted := asResourceExhausted(err); exhausted != nil {
			return nil, exhausted
		}
		return nil, errors.Wrapf(err, "pcfg: loading nonterminal %s", fileStem)
	}
	nt := &Nonterminal{FileStem: fileStem, mapping: m}
	fp := grammarcache.Fingerprint(m.Data)

	if rec := idx.Find(fileStem); rec != nil && rec.Fingerprint == fp {
		if err := nt.loadFromRecord(rec, opts); err == nil {
			opts.logger().WithField("nonterminal", fileStem).Debug("loaded nonterminal from cache")
			return nt, nil
		}
		// A cache record that fails to reconstruct (e.g. hand-edited
		// masks) is treated as stale, not fatal.
	}

	if err := nt.parse(m.Data, path, opts); err != nil {
		m.Close()
		return nil, err
	}
	idx.Put(nt.toRecord(fp))
	return nt, nil
}

// toRecord captures nt's already-parsed group boundaries for
// persistence. It must be called before the mapping is closed.
func (nt *Nonterminal) toRecord(fingerprint uint64) grammarcache.NonterminalRecord {
	rec := grammarcache.NonterminalRecord{
		FileStem:         nt.FileStem,
		Fingerprint:      fingerprint,
		SeenBeforeUnseen: true,
	}
	for i := range nt.groups {
		g := &nt.groups[i]
		switch g.Kind {
		case SeenKind:
			lines := make([]grammarcache.LineRecord, len(g.seenLineStarts))
			for j, rel := range g.seenLineStarts {
				lines[j] = grammarcache.LineRecord{Start: int64(g.seenGroupStart + rel)}
			}
			rec.Seen = append(rec.Seen, grammarcache.SeenGroupRecord{
				Probability: g.probability,
				Lines:       lines,
			})
		case UnseenKind:
			masks := make([]string, len(g.unseenEntries))
			for j, e := range g.unseenEntries {
				masks[j] = e.mask
			}
			rec.Unseen = append(rec.Unseen, grammarcache.UnseenGroupRecord{
				Probability: g.probability,
				Masks:       masks,
			})
		}
	}
	return rec
}

// loadFromRecord rebuilds nt.groups from a cached record against the
// already-mapped file, skipping the line-boundary scan entirely.
func (nt *Nonterminal) loadFromRecord(rec *grammarcache.NonterminalRecord, opts LoadOptions) error {
	data := nt.mapping.Data
	nt.groups = nt.groups[:0]
	nt.hasUnseen = false

	for _, sg := range rec.Seen {
		if len(sg.Lines) == 0 {
			continue
		}
		groupStart := int(sg.Lines[0].Start)
		starts := make([]int, len(sg.Lines))
		for i, ln := range sg.Lines {
			starts[i] = int(ln.Start) - groupStart
		}
		lastAbs := int(sg.Lines[len(sg.Lines)-1].Start)
		end := lastAbs
		for end < len(data) && data[end] != '\n' {
			end++
		}
		nt.groups = append(nt.groups, TerminalGroup{
			Kind:           SeenKind,
			probability:    sg.Probability,
			seenData:       data[groupStart:end],
			seenLineStarts: starts,
			seenGroupStart: groupStart,
		})
	}

	for _, ug := range rec.Unseen {
		entries := make([]unseenEntry, 0, len(ug.Masks))
		offsets := make([]bignum.Num, 0, len(ug.Masks))
		running := bignum.Zero()
		for _, mask := range ug.Masks {
			e, err := buildUnseenEntry(mask)
			if err != nil {
				return errors.Wrapf(err, "pcfg: %s: cached mask %q", nt.FileStem, mask)
			}
			var snapshot bignum.Num
			snapshot.Assign(running)
			offsets = append(offsets, snapshot)
			running.Add(e.count)
			entries = append(entries, e)
		}
		nt.groups = append(nt.groups, TerminalGroup{
			Kind:          UnseenKind,
			probability:   ug.Probability,
			unseenEntries: entries,
			unseenOffset:  offsets,
			unseenTag:     opts.UnseenSourceTag,
		})
		nt.hasUnseen = true
	}
	return nil
}

// Groups returns the nonterminal's terminal groups in load order,
// which is also the stable index order Pattern encoding relies on.
func (nt *Nonterminal) Groups() []TerminalGroup {
	return nt.groups
}

type rawLine struct {
	start, end int // byte offsets within data, end exclusive, newline not included
}

func splitLines(data []byte) []rawLine {
	var lines []rawLine
	start := 0
	for i, b := range data {
		if b == '\n' {
			lines = append(lines, rawLine{start: start, end: i})
			start = i + 1
		}
	}
	if start < len(data) {
		lines = append(lines, rawLine{start: start, end: len(data)})
	}
	return lines
}

func (nt *Nonterminal) parse(data []byte, path string, opts LoadOptions) error {
	lines := splitLines(data)

	section := 0 // 0 = seen, 1 = unseen
	var groupLines []rawLine
	var groupProb string

	flushSeen := func() error {
		if len(groupLines) == 0 {
			return nil
		}
		prob, err := hexfloat.Parse(groupProb)
		if err != nil {
			return errors.Wrapf(err, "pcfg: %s: bad probability %q", path, groupProb)
		}
		g, err := nt.buildSeenGroup(data, groupLines, prob)
		if err != nil {
			return errors.Wrapf(err, "pcfg: %s", path)
		}
		nt.groups = append(nt.groups, g)
		groupLines = nil
		return nil
	}

	flushUnseen := func() error {
		if len(groupLines) == 0 {
			return nil
		}
		prob, err := hexfloat.Parse(groupProb)
		if err != nil {
			return errors.Wrapf(err, "pcfg: %s: bad probability %q", path, groupProb)
		}
		g, err := nt.buildUnseenGroup(data, groupLines, prob, opts.UnseenSourceTag)
		if err != nil {
			return errors.Wrapf(err, "pcfg: %s", path)
		}
		nt.groups = append(nt.groups, g)
		nt.hasUnseen = true
		groupLines = nil
		return nil
	}

	for _, ln := range lines {
		if ln.start == ln.end {
			// blank line: section separator
			if err := flushSeen(); err != nil {
				return err
			}
			section = 1
			continue
		}
		line := data[ln.start:ln.end]
		tab1 := bytes.IndexByte(line, '\t')
		if tab1 < 0 {
			return errors.Errorf("pcfg: %s: malformed line at byte offset %d (no tab)", path, ln.start)
		}
		rest := line[tab1+1:]
		tab2 := bytes.IndexByte(rest, '\t')
		var probField string
		if tab2 < 0 {
			probField = string(rest)
		} else {
			probField = string(rest[:tab2])
		}

		if len(groupLines) > 0 && probField != groupProb {
			var err error
			if section == 0 {
				err = flushSeen()
			} else {
				err = flushUnseen()
			}
			if err != nil {
				return err
			}
		}
		groupProb = probField
		groupLines = append(groupLines, ln)
	}
	if section == 0 {
		if err := flushSeen(); err != nil {
			return err
		}
	} else {
		if err := flushUnseen(); err != nil {
			return err
		}
	}
	return nil
}

func (nt *Nonterminal) buildSeenGroup(data []byte, lines []rawLine, prob float64) (TerminalGroup, error) {
	groupStart := lines[0].start
	groupEnd := lines[len(lines)-1].end
	seenData := data[groupStart:groupEnd]
	starts := make([]int, len(lines))
	for i, ln := range lines {
		starts[i] = ln.start - groupStart
	}
	return TerminalGroup{
		Kind:           SeenKind,
		probability:    prob,
		seenData:       seenData,
		seenLineStarts: starts,
		seenGroupStart: groupStart,
	}, nil
}

func (nt *Nonterminal) buildUnseenGroup(data []byte, lines []rawLine, prob float64, tag byte) (TerminalGroup, error) {
	entries := make([]unseenEntry, 0, len(lines))
	offsets := make([]bignum.Num, 0, len(lines))
	running := bignum.Zero()
	for _, ln := range lines {
		line := data[ln.start:ln.end]
		tab1 := bytes.IndexByte(line, '\t')
		rest := line[tab1+1:]
		tab2 := bytes.IndexByte(rest, '\t')
		if tab2 < 0 {
			return TerminalGroup{}, errors.Errorf("byte offset %d: unseen line missing generator mask column", ln.start)
		}
		mask := string(rest[tab2+1:])
		entry, err := buildUnseenEntry(mask)
		if err != nil {
			return TerminalGroup{}, errors.Wrapf(err, "byte offset %d", ln.start)
		}
		var snapshot bignum.Num
		snapshot.Assign(running)
		offsets = append(offsets, snapshot)
		running.Add(entry.count)
		entries = append(entries, entry)
	}
	return TerminalGroup{
		Kind:          UnseenKind,
		probability:   prob,
		unseenEntries: entries,
		unseenOffset:  offsets,
		unseenTag:     tag,
	}, nil
}

// Lookup resolves a candidate substring against this nonterminal's
// groups, seen groups first, falling back to unseen groups. s is the
// candidate substring exactly as sliced from the password (not yet
// downcased); the caller has already matched its length and classes
// against the structure's signature.
func (nt *Nonterminal) Lookup(s string) TerminalLookupData {
	lower := strings.ToLower(s)
	for i := range nt.groups {
		res := nt.groups[i].Lookup(lower)
		if res.Status == CanParse {
			return TerminalLookupData{
				Status:      TerminalFound,
				GroupIndex:  i,
				WithinIndex: res.Index,
				Probability: nt.groups[i].Probability(),
				Sources:     res.Sources,
			}
		}
	}
	if nt.hasUnseen {
		for i := range nt.groups {
			if nt.groups[i].Kind != UnseenKind {
				continue
			}
			for _, e := range nt.groups[i].unseenEntries {
				if len(e.mask) == len(lower) {
					return TerminalLookupData{Status: TerminalCantBeGenerated}
				}
			}
		}
	}
	return TerminalLookupData{Status: TerminalNotFound}
}
