package pcfg

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/cupslab/guesscalc/hexfloat"
)

// LineProblem is one malformed line found by Validate.
type LineProblem struct {
	Path   string
	Offset int64
	Err    error
}

// ValidationError collects every LineProblem a Validate pass found, so
// an operator fixing a grammar directory sees every problem at once
// instead of one error at a time.
type ValidationError struct {
	Problems []LineProblem
}

func (v *ValidationError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "pcfg: %d malformed line(s) found:", len(v.Problems))
	for _, p := range v.Problems {
		if p.Offset < 0 {
			fmt.Fprintf(&b, "\n  %s: %s", p.Path, p.Err)
			continue
		}
		fmt.Fprintf(&b, "\n  %s (byte offset %d): %s", p.Path, p.Offset, p.Err)
	}
	return b.String()
}

// Validate scans every line of dir's structures.txt, and every line of
// every terminals/<stem>.txt file it references, for syntactic
// well-formedness (a tab-separated shape with a parseable
// probability field), collecting every problem it finds rather than
// stopping at the first one. LoadGrammar calls this before doing its
// real, incremental parse, so a malformed grammar directory is
// reported in a single diagnostic.
func Validate(dir string) error {
	structuresPath := filepath.Join(dir, "structures.txt")
	data, err := os.ReadFile(structuresPath)
	if err != nil {
		return errors.Wrap(err, "pcfg: validate: reading structures.txt")
	}

	var problems []LineProblem
	stems := make(map[string]bool)
	offset := int64(0)
	for _, line := range bytes.Split(data, []byte("\n")) {
		n := int64(len(line))
		if len(line) == 0 {
			offset += n + 1
			continue
		}
		tab1 := bytes.IndexByte(line, '\t')
		if tab1 < 0 {
			problems = append(problems, LineProblem{structuresPath, offset, errors.New("missing tab separator")})
			offset += n + 1
			continue
		}
		repsField := string(line[:tab1])
		rest := line[tab1+1:]
		tab2 := bytes.IndexByte(rest, '\t')
		probField := rest
		if tab2 >= 0 {
			probField = rest[:tab2]
		}
		if _, err := hexfloat.Parse(string(probField)); err != nil {
			problems = append(problems, LineProblem{structuresPath, offset, errors.Wrap(err, "bad probability")})
		}
		for _, tok := range strings.Fields(repsField) {
			rep, err := ParseRepresentation(tok)
			if err != nil {
				problems = append(problems, LineProblem{structuresPath, offset, err})
				continue
			}
			stems[rep.FileStem()] = true
		}
		offset += n + 1
	}

	for stem := range stems {
		path := filepath.Join(dir, "terminals", stem+".txt")
		problems = append(problems, validateTerminalFile(path)...)
	}

	if len(problems) > 0 {
		return &ValidationError{Problems: problems}
	}
	return nil
}

func validateTerminalFile(path string) []LineProblem {
	data, err := os.ReadFile(path)
	if err != nil {
		return []LineProblem{{path, -1, err}}
	}
	var problems []LineProblem
	offset := int64(0)
	for _, line := range bytes.Split(data, []byte("\n")) {
		n := int64(len(line))
		if len(line) == 0 {
			offset += n + 1
			continue
		}
		tab1 := bytes.IndexByte(line, '\t')
		if tab1 < 0 {
			problems = append(problems, LineProblem{path, offset, errors.New("missing tab separator")})
			offset += n + 1
			continue
		}
		rest := line[tab1+1:]
		tab2 := bytes.IndexByte(rest, '\t')
		probField := rest
		if tab2 >= 0 {
			probField = rest[:tab2]
		}
		if _, err := hexfloat.Parse(string(probField)); err != nil {
			problems = append(problems, LineProblem{path, offset, errors.Wrap(err, "bad probability")})
		}
		offset += n + 1
	}
	return problems
}
