package main

import (
	"flag"
	"fmt"

	"github.com/cupslab/guesscalc/lookuptable"
)

var cmdtotals = &cmd{
	desc:  "print a lookup table's totals line without running a batch",
	usage: "pcfglookup totals --table FILE [-v]",
	do:    totals,
}

var totalsTablePath string

func init() {
	cmdtotals.fs.StringVar(&totalsTablePath, "table", "", "lookup table file")
}

func totals(fs *flag.FlagSet) {
	if totalsTablePath == "" {
		fs.Usage()
	}

	table, err := lookuptable.Load(totalsTablePath, lookuptable.Options{Log: logger()})
	if err != nil {
		fatalLoadErr(totalsTablePath, err)
	}
	defer table.Close()

	fmt.Printf("Total count\t%s\n", table.TotalCount.String())
}
