package pcfg

// Negative result codes. They are summed when multiple causes apply
// across the set of structures attempted for a password.
const (
	CodeBeyondCutoff = -2
	CodeNoStructure  = -4
	CodeNoTerminal   = -8
	CodeCantGenerate = -32
)

// Parses enumerates every valid parse of password under the grammar.
// If no structure's signature matches, or every matching structure
// fails to fully resolve, parses is empty and code reports why (the
// sum of applicable negative codes, excluding CodeBeyondCutoff, which
// only applies after a lookup-table query).
func (g *Grammar) Parses(password []byte) (parses []Parse, code int) {
	sig, ok := Signature(password)
	if !ok {
		return nil, CodeNoStructure
	}
	structures := g.MatchingStructures(sig)
	if len(structures) == 0 {
		return nil, CodeNoStructure
	}

	var sawNotFound, sawCantGen bool
	for _, st := range structures {
		groups, status, ok := g.tryStructure(st, password)
		if ok {
			prob := st.Probability
			sources := st.Sources
			for _, gc := range groups {
				prob *= gc.Probability
				sources = sources.union(gc.Sources)
			}
			parses = append(parses, Parse{
				Structure:   st,
				Groups:      groups,
				Probability: prob,
				Sources:     sources,
			})
			continue
		}
		switch status {
		case TerminalNotFound:
			sawNotFound = true
		case TerminalCantBeGenerated:
			sawCantGen = true
		}
	}

	if len(parses) > 0 {
		return parses, 0
	}
	if !sawNotFound && !sawCantGen {
		return nil, CodeNoStructure
	}
	if sawNotFound {
		code += CodeNoTerminal
	}
	if sawCantGen {
		code += CodeCantGenerate
	}
	return nil, code
}

// tryStructure attempts to split password according to st's
// representation lengths and resolve every nonterminal. ok is true iff
// every nonterminal resolved to a terminal group.
func (g *Grammar) tryStructure(st *Structure, password []byte) (groups []GroupChoice, status TerminalStatus, ok bool) {
	offset := 0
	groups = make([]GroupChoice, 0, len(st.Reps))
	for _, rep := range st.Reps {
		substr := password[offset : offset+rep.Length]
		offset += rep.Length

		nt := g.nonterminals[rep.FileStem()]
		if nt == nil {
			return nil, TerminalNotFound, false
		}
		res := nt.Lookup(string(substr))
		if res.Status != TerminalFound {
			return nil, res.Status, false
		}
		groups = append(groups, GroupChoice{
			Rep:         rep,
			GroupIndex:  res.GroupIndex,
			WithinIndex: res.WithinIndex,
			Probability: res.Probability,
			Count:       nt.groups[res.GroupIndex].CountStrings(),
			Sources:     res.Sources,
		})
	}
	return groups, TerminalFound, true
}
