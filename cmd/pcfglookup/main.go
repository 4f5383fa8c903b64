// Command pcfglookup is the guess-calculator core binary: it loads a
// grammar and lookup table once per process and answers guess-number
// queries over a batch of test passwords. Grammar/table construction
// and the sort+prefix-sum pipeline that produces the lookup table are
// out of scope; this binary only ingests their finished output.
package main

import (
	"flag"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"
)

type cmd struct {
	desc  string // command description
	usage string
	do    func(fs *flag.FlagSet) // do it
	fs    flag.FlagSet
}

func fatal(args ...interface{}) {
	fmt.Fprintln(os.Stderr, args...)
	os.Exit(1)
}

func fatalf(f string, args ...interface{}) {
	if len(f) == 0 || f[len(f)-1] != '\n' {
		f += "\n"
	}
	fmt.Fprintf(os.Stderr, f, args...)
	os.Exit(1)
}

var verbose bool

var subcommands = map[string]*cmd{
	"lookup":  cmdlookup,
	"inspect": cmdinspect,
	"totals":  cmdtotals,
}

// logger returns a process-wide logrus.Logger at Debug level under -v,
// Info level otherwise.
func logger() *logrus.Logger {
	log := logrus.New()
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.InfoLevel)
	}
	return log
}

func usage() {
	fmt.Println("usage: pcfglookup <cmd> <args...>")
	fmt.Println("subcommands:")
	var out [][2]string
	for name, c := range subcommands {
		out = append(out, [2]string{name, c.desc})
	}
	sort.Slice(out, func(i, j int) bool { return out[i][0] < out[j][0] })
	for i := range out {
		fmt.Printf("%10s    %s\n", out[i][0], out[i][1])
	}
	os.Exit(1)
}

func main() {
	args := os.Args
	if len(args) == 1 || args[1] == "help" {
		usage()
	}
	c, ok := subcommands[args[1]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown subcommand %q\n", args[1])
		usage()
	}

	// every subcommand gets a "-v" flag for debug-level logging
	c.fs.BoolVar(&verbose, "v", false, "verbose")
	c.fs.Usage = func() {
		fmt.Fprintln(os.Stderr, "usage:", c.usage)
		c.fs.PrintDefaults()
		os.Exit(1)
	}
	if err := c.fs.Parse(args[2:]); err != nil {
		return
	}
	c.do(&c.fs)
}
