package main

import (
	"flag"
	"os"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/cupslab/guesscalc/bignum"
	"github.com/cupslab/guesscalc/pcfg"
)

var cmdinspect = &cmd{
	desc:  "print per-nonterminal group statistics for a loaded grammar",
	usage: "pcfglookup inspect --grammar DIR [-v]",
	do:    inspect,
}

var inspectGrammarDir string

func init() {
	cmdinspect.fs.StringVar(&inspectGrammarDir, "grammar", "", "grammar directory (structures.txt + terminals/)")
}

func inspect(fs *flag.FlagSet) {
	if inspectGrammarDir == "" {
		fs.Usage()
	}

	log := logger()
	grammar, err := pcfg.LoadGrammar(inspectGrammarDir, pcfg.LoadOptions{UseGrammarCache: true, Log: log})
	if err != nil {
		fatalLoadErr(inspectGrammarDir, err)
	}
	defer grammar.Close()

	stems := make([]string, 0, len(grammar.Nonterminals()))
	for stem := range grammar.Nonterminals() {
		stems = append(stems, stem)
	}
	sort.Strings(stems)

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"nonterminal", "groups", "seen", "unseen", "strings"})
	for _, stem := range stems {
		nt := grammar.Nonterminal(stem)
		groups := nt.Groups()
		var seen, unseen int
		total := bignum.Zero()
		for i := range groups {
			switch groups[i].Kind {
			case pcfg.SeenKind:
				seen++
			case pcfg.UnseenKind:
				unseen++
			}
			count := groups[i].CountStrings()
			total.Add(count)
		}
		table.Append([]string{
			stem,
			strconv.Itoa(len(groups)),
			strconv.Itoa(seen),
			strconv.Itoa(unseen),
			total.String(),
		})
	}
	table.Render()
}
