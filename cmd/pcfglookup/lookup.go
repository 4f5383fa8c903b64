package main

import (
	"bufio"
	stderrors "errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/OneOfOne/xxhash"

	"github.com/cupslab/guesscalc/guessservice"
	"github.com/cupslab/guesscalc/internal/mmapfile"
	"github.com/cupslab/guesscalc/lookuptable"
	"github.com/cupslab/guesscalc/pcfg"
	"github.com/cupslab/guesscalc/resultcache"
)

// fatalLoadErr reports a failed grammar/table load, classifying a
// resource-limit failure (too many open files, mmap count exceeded)
// as a ResourceExhaustion instead of a generic LoadError so the
// printed diagnostic carries OS-limit remediation guidance.
func fatalLoadErr(path string, err error) {
	var exhausted *mmapfile.ResourceExhaustedError
	if stderrors.As(err, &exhausted) {
		fatal(guessservice.NewResourceExhaustion(exhausted.Limit, err))
		return
	}
	fatal(guessservice.NewLoadError(path, -1, err))
}

var cmdlookup = &cmd{
	desc:  "answer guess-number queries for a batch of test passwords",
	usage: "pcfglookup lookup --grammar DIR --table FILE --input FILE [--single-column] [--resume-cache DIR] [-v]",
	do:    lookup,
}

var (
	lookupGrammarDir       string
	lookupTablePath        string
	lookupInputPath        string
	lookupSingleColumn     bool
	lookupResumeCache      string
	lookupRankCacheEntries int
)

func init() {
	cmdlookup.fs.StringVar(&lookupGrammarDir, "grammar", "", "grammar directory (structures.txt + terminals/)")
	cmdlookup.fs.StringVar(&lookupTablePath, "table", "", "lookup table file")
	cmdlookup.fs.StringVar(&lookupInputPath, "input", "", "test password file")
	cmdlookup.fs.BoolVar(&lookupSingleColumn, "single-column", false, "input file has a bare password per line instead of user-id\\tpolicy\\tpassword")
	cmdlookup.fs.StringVar(&lookupResumeCache, "resume-cache", "", "optional result-cache directory for resumable batch runs")
	cmdlookup.fs.IntVar(&lookupRankCacheEntries, "rank-cache-entries", 4096, "size of the in-memory probability-to-rank LRU cache")
}

func lookup(fs *flag.FlagSet) {
	if lookupGrammarDir == "" || lookupTablePath == "" || lookupInputPath == "" {
		fs.Usage()
	}

	log := logger()

	grammar, err := pcfg.LoadGrammar(lookupGrammarDir, pcfg.LoadOptions{UseGrammarCache: true, Log: log})
	if err != nil {
		fatalLoadErr(lookupGrammarDir, err)
	}
	defer grammar.Close()

	table, err := lookuptable.Load(lookupTablePath, lookuptable.Options{RankCacheEntries: lookupRankCacheEntries, Log: log})
	if err != nil {
		fatalLoadErr(lookupTablePath, err)
	}
	defer table.Close()

	svc := &guessservice.Service{Grammar: grammar, Table: table, Log: log}

	if lookupResumeCache != "" {
		cache, err := resultcache.Open(lookupResumeCache)
		if err != nil {
			fatalf("opening resume cache: %s", err)
		}
		defer cache.Close()
		svc.Cache = cache
		svc.GrammarFingerprint = fingerprintSources(filepath.Join(lookupGrammarDir, "structures.txt"), lookupTablePath)
	}

	in, err := os.Open(lookupInputPath)
	if err != nil {
		fatalf("opening input file: %s", err)
	}
	defer in.Close()

	out := bufio.NewWriter(os.Stdout)
	defer out.Flush()

	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "" {
			continue
		}
		rec, ok := parseRecordLine(line, lookupSingleColumn)
		if !ok {
			fatalf("input file: malformed line %q", line)
		}
		res := svc.Query(rec)
		fmt.Fprintln(out, guessservice.FormatRow(res))
	}
	if err := scanner.Err(); err != nil {
		fatalf("reading input file: %s", err)
	}
}

// parseRecordLine splits one input line into a Record. In single-column
// mode the whole line is the password and UserID/Policy are left empty;
// otherwise the line is user-id\tpolicy\tpassword exactly.
func parseRecordLine(line string, singleColumn bool) (guessservice.Record, bool) {
	if singleColumn {
		return guessservice.Record{Password: []byte(line)}, true
	}
	fields := strings.SplitN(line, "\t", 3)
	if len(fields) != 3 {
		return guessservice.Record{}, false
	}
	return guessservice.Record{UserID: fields[0], Policy: fields[1], Password: []byte(fields[2])}, true
}

// fingerprintSources hashes the (size, mtime) metadata of each named
// file rather than its full content: structures.txt is small but a
// lookup table can be very large, and the fingerprint only needs to
// detect "this grammar/table pair changed since the cache was last
// written", not reproduce the files themselves.
func fingerprintSources(paths ...string) uint64 {
	var buf []byte
	for _, p := range paths {
		fi, err := os.Stat(p)
		if err != nil {
			continue
		}
		buf = append(buf, []byte(fmt.Sprintf("%s:%d:%d;", p, fi.Size(), fi.ModTime().UnixNano()))...)
	}
	return xxhash.Checksum64(buf)
}
