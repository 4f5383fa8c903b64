// Package lookuptable loads and queries the sorted, prefix-summed
// lookup table that converts a pattern probability into a guess
// number. The table itself is built externally by a sort+prefix-sum
// pipeline that is out of scope for this package; this package only
// ingests the finished file.
package lookuptable

import (
	"bytes"
	stderrors "errors"
	"sort"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupslab/guesscalc/bignum"
	"github.com/cupslab/guesscalc/hexfloat"
	"github.com/cupslab/guesscalc/internal/mmapfile"
)

// ErrNotInTable is returned by Rank when a probability falls below
// every tabulated pattern, lies above the first row, or the table has
// no rows.
var ErrNotInTable = errors.New("lookuptable: probability not in table")

type row struct {
	probability float64
	cumulative  bignum.Num
}

// Table is a loaded lookup table. It is immutable for its lifetime and
// safe for concurrent read-only queries.
type Table struct {
	rows       []row
	TotalCount bignum.Num

	mapping *mmapfile.Mapping
	cache   *lru.Cache[float64, bignum.Num]
}

// Options configures Table loading and querying.
type Options struct {
	// RankCacheEntries sizes the LRU memoization layer in front of the
	// binary search. Zero disables the cache.
	RankCacheEntries int
	Log              *logrus.Logger
}

func (o Options) logger() *logrus.Logger {
	if o.Log != nil {
		return o.Log
	}
	return logrus.StandardLogger()
}

// Load reads a lookup table file produced by the external
// table-generation pipeline.
func Load(path string, opts Options) (*Table, error) {
	m, err := mmapfile.Open(path)
	if err != nil {
		var exhausted *mmapfile.ResourceExhaustedError
		if stderrors.As(err, &exhausted) {
			return nil, exhausted
		}
		return nil, errors.Wrap(err, "lookuptable: loading table")
	}
	t := &Table{mapping: m}
	if err := t.parse(m.Data, path); err != nil {
		m.Close()
		return nil, err
	}
	if opts.RankCacheEntries > 0 {
		c, err := lru.New[float64, bignum.Num](opts.RankCacheEntries)
		if err != nil {
			m.Close()
			return nil, errors.Wrap(err, "lookuptable: creating rank cache")
		}
		t.cache = c
	}
	opts.logger().WithFields(logrus.Fields{
		"rows": len(t.rows),
		"file": path,
	}).Info("loaded lookup table")
	return t, nil
}

// Close releases the underlying mapping.
func (t *Table) Close() error {
	return t.mapping.Close()
}

const totalsPrefix = "Total count\t"

func (t *Table) parse(data []byte, path string) error {
	start := 0
	for i := 0; i <= len(data); i++ {
		if i < len(data) && data[i] != '\n' {
			continue
		}
		line := data[start:i]
		start = i + 1
		if len(line) == 0 {
			continue
		}
		if bytes.HasPrefix(line, []byte(totalsPrefix)) {
			countStr := string(line[len(totalsPrefix):])
			n, err := parseBigDecimal(countStr)
			if err != nil {
				return errors.Wrapf(err, "lookuptable: %s: bad total count %q", path, countStr)
			}
			t.TotalCount = n
			continue
		}
		tab := bytes.IndexByte(line, '\t')
		if tab < 0 {
			return errors.Errorf("lookuptable: %s: malformed line at byte offset %d", path, start-len(line)-1)
		}
		probField := string(line[:tab])
		cumField := string(line[tab+1:])

		prob, err := hexfloat.Parse(probField)
		if err != nil {
			return errors.Wrapf(err, "lookuptable: %s: bad probability %q", path, probField)
		}
		cum, err := parseBigDecimal(cumField)
		if err != nil {
			return errors.Wrapf(err, "lookuptable: %s: bad cumulative count %q", path, cumField)
		}
		if len(t.rows) > 0 {
			prev := t.rows[len(t.rows)-1]
			if prob > prev.probability {
				return errors.Errorf("lookuptable: %s: probabilities not sorted descending at byte offset %d", path, start-len(line)-1)
			}
			if cum.Compare(prev.cumulative) <= 0 {
				return errors.Errorf("lookuptable: %s: cumulative counts not strictly increasing at byte offset %d", path, start-len(line)-1)
			}
		}
		t.rows = append(t.rows, row{probability: prob, cumulative: cum})
	}
	return nil
}

// Rank returns the guess number at which strings of the given pattern
// probability begin appearing, i.e. the pattern-head rank.
// ErrNotInTable is returned when prob is strictly less than the
// table's last real row, strictly greater than its first row, or the
// table is empty.
func (t *Table) Rank(prob float64) (bignum.Num, error) {
	if t.cache != nil {
		if cached, ok := t.cache.Get(prob); ok {
			return cached, nil
		}
	}
	rank, err := t.rank(prob)
	if err == nil && t.cache != nil {
		t.cache.Add(prob, rank)
	}
	return rank, err
}

func (t *Table) rank(prob float64) (bignum.Num, error) {
	if len(t.rows) == 0 {
		return bignum.Num{}, ErrNotInTable
	}
	if prob > t.rows[0].probability {
		return bignum.Num{}, ErrNotInTable
	}
	if prob < t.rows[len(t.rows)-1].probability {
		return bignum.Num{}, ErrNotInTable
	}
	// rows are sorted descending by probability and each row's
	// cumulative count already includes its own level's strings; the
	// first guess number at a probability level is one past the
	// cumulative count of the level above it.
	i := sort.Search(len(t.rows), func(i int) bool {
		return t.rows[i].probability <= prob
	})
	if i == 0 {
		return bignum.FromUint64(1), nil
	}
	var rank bignum.Num
	rank.Assign(t.rows[i-1].cumulative)
	rank.AddUint64(1)
	return rank, nil
}

// parseBigDecimal parses an unsigned base-10 integer into a Num,
// without going through a machine-integer intermediate (cumulative
// counts can exceed 2^64-1 for large grammars).
func parseBigDecimal(s string) (bignum.Num, error) {
	if s == "" {
		return bignum.Num{}, errors.New("empty integer")
	}
	n := bignum.Zero()
	ten := bignum.FromUint64(10)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return bignum.Num{}, errors.Errorf("not a decimal digit: %q", s)
		}
		n.Mul(ten)
		n.AddUint64(uint64(c - '0'))
	}
	return n, nil
}
