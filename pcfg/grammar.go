package pcfg

import (
	"bytes"
	stderrors "errors"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupslab/guesscalc/grammarcache"
	"github.com/cupslab/guesscalc/hexfloat"
	"github.com/cupslab/guesscalc/internal/mmapfile"
)

// asResourceExhausted returns err's *mmapfile.ResourceExhaustedError if
// it is (or wraps) one, so LoadGrammar/LoadNonterminal can surface it
// unwrapped to the caller instead of folding it into a generic
// pkg/errors-wrapped diagnostic: github.com/pkg/errors v0.8.1 predates
// Unwrap support, so wrapping it here would hide it from a caller's
// errors.As.
func asResourceExhausted(err error) *mmapfile.ResourceExhaustedError {
	var exhausted *mmapfile.ResourceExhaustedError
	if stderrors.As(err, &exhausted) {
		return exhausted
	}
	return nil
}

// Structure is one PCFG production: an ordered sequence of nonterminal
// representations with a structure probability.
type Structure struct {
	Reps        []Representation
	Probability float64
	Sources     sourceSet

	// signature is the concatenation of each Rep's expanded USLD
	// signature; cached at load time since every password query
	// recomputes it otherwise.
	signature string
}

// Grammar is the set of structures and their backing nonterminals. It
// is loaded once and is immutable and safe for concurrent read-only
// queries for the rest of the process's life.
type Grammar struct {
	Structures   []Structure
	nonterminals map[string]*Nonterminal
}

// LoadGrammar reads structures.txt and every terminals/<stem>.txt file
// it references from dir. It validates the whole directory up front
// (see Validate), so a malformed grammar is reported as a single
// diagnostic listing every bad line rather than aborting at the
// first one found during the real parse below.
func LoadGrammar(dir string, opts LoadOptions) (*Grammar, error) {
	if err := Validate(dir); err != nil {
		return nil, err
	}

	structuresPath := filepath.Join(dir, "structures.txt")
	m, err := mmapfile.Open(structuresPath)
	if err != nil {
		if exhausted := asResourceExhausted(err); exhausted != nil {
			return nil, exhausted
		}
		return nil, errors.Wrap(err, "pcfg: loading structures.txt")
	}
	defer m.Close()

	g := &Grammar{nonterminals: make(map[string]*Nonterminal)}
	stems := make(map[string]bool)

	for _, ln := range splitLines(m.Data) {
		if ln.start == ln.end {
			continue
		}
		line := m.Data[ln.start:ln.end]
		tab1 := bytes.IndexByte(line, '\t')
		if tab1 < 0 {
			return nil, errors.Errorf("pcfg: structures.txt: malformed line at byte offset %d", ln.start)
		}
		repsField := string(line[:tab1])
		rest := line[tab1+1:]
		tab2 := bytes.IndexByte(rest, '\t')
		var probField, sourceField string
		if tab2 < 0 {
			probField = string(rest)
		} else {
			probField = string(rest[:tab2])
			sourceField = string(rest[tab2+1:])
		}

		prob, err := hexfloat.Parse(probField)
		if err != nil {
			return nil, errors.Wrapf(err, "pcfg: structures.txt: byte offset %d: bad probability %q", ln.start, probField)
		}

		var reps []Representation
		var sig strings.Builder
		for _, tok := range strings.Fields(repsField) {
			rep, err := ParseRepresentation(tok)
			if err != nil {
				return nil, errors.Wrapf(err, "pcfg: structures.txt: byte offset %d", ln.start)
			}
			reps = append(reps, rep)
			sig.WriteString(rep.Signature())
			stems[rep.FileStem()] = true
		}

		g.Structures = append(g.Structures, Structure{
			Reps:        reps,
			Probability: prob,
			Sources:     newSourceSet([]byte(sourceField)),
			signature:   sig.String(),
		})
	}

	var idx *grammarcache.Index
	if opts.UseGrammarCache {
		idx, err = grammarcache.Load(dir)
		if err != nil {
			return nil, err
		}
	}

	for stem := range stems {
		path := filepath.Join(dir, "terminals", stem+".txt")
		var nt *Nonterminal
		var err error
		if opts.UseGrammarCache {
			nt, err = loadNonterminalCached(path, stem, opts, idx)
		} else {
			nt, err = LoadNonterminal(path, stem, opts)
		}
		if err != nil {
			return nil, err
		}
		g.nonterminals[stem] = nt
	}

	if opts.UseGrammarCache {
		if err := grammarcache.Save(dir, idx); err != nil {
			opts.logger().WithError(err).Warn("grammarcache: failed to persist index")
		}
	}

	opts.logger().WithFields(logrus.Fields{
		"structures":   len(g.Structures),
		"nonterminals": len(g.nonterminals),
		"dir":          dir,
	}).Info("loaded grammar")
	return g, nil
}

// Close releases every nonterminal's mapping.
func (g *Grammar) Close() error {
	var first error
	for _, nt := range g.nonterminals {
		if err := nt.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// Nonterminal returns the loaded Nonterminal backing a given file
// stem, or nil if the grammar never referenced it.
func (g *Grammar) Nonterminal(stem string) *Nonterminal {
	return g.nonterminals[stem]
}

// Nonterminals returns every loaded nonterminal keyed by file stem, for
// callers that need to enumerate them (e.g. an inspection report);
// query paths never need this and go through Nonterminal instead.
func (g *Grammar) Nonterminals() map[string]*Nonterminal {
	return g.nonterminals
}

// MatchingStructures returns every structure whose expanded USLD
// signature equals sig.
func (g *Grammar) MatchingStructures(sig string) []*Structure {
	var out []*Structure
	for i := range g.Structures {
		if g.Structures[i].signature == sig {
			out = append(out, &g.Structures[i])
		}
	}
	return out
}
