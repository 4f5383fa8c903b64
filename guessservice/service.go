// Package guessservice orchestrates a single guess-number query: parse
// a password record under a grammar, select its best parse, and rank
// that parse's probability against a lookup table. It is the only
// layer that combines pcfg's parse-level failure codes with the lookup
// table's own "probability below cutoff" failure, and the only layer
// that knows about the optional on-disk result memoization.
package guessservice

import (
	"strconv"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/cupslab/guesscalc/bignum"
	"github.com/cupslab/guesscalc/hexfloat"
	"github.com/cupslab/guesscalc/lookuptable"
	"github.com/cupslab/guesscalc/pcfg"
	"github.com/cupslab/guesscalc/resultcache"
)

// Record is one test-password line: a user/policy label pair (carried
// through to the output row verbatim, never interpreted) and the
// password itself.
type Record struct {
	UserID   string
	Policy   string
	Password []byte
}

// Result is the outcome of one query, carrying enough information to
// render an output row directly. Probability and PatternID are only
// meaningful when a parse was found at all (Code is 0 or
// pcfg.CodeBeyondCutoff); for every other code they are the zero value
// and FormatRow renders them as the empty/sentinel fields.
type Result struct {
	UserID      string
	Policy      string
	Password    []byte
	Probability float64
	PatternID   string
	GuessNumber bignum.Num
	Code        int
	Sources     []byte
}

func (r Result) hasParse() bool {
	return r.Code == 0 || r.Code == pcfg.CodeBeyondCutoff
}

// Service answers guess-number queries against one loaded grammar and
// lookup table. It is immutable after construction and safe for
// concurrent use: every field it touches per-query is either read-only
// (Grammar, Table) or itself internally synchronized (the result
// cache, the lookup table's rank LRU).
type Service struct {
	Grammar *pcfg.Grammar
	Table   *lookuptable.Table

	// GrammarFingerprint identifies the exact grammar build the cache
	// keys are scoped to: a lookup table is only valid against the
	// grammar it was built from. It has no meaning beyond cache-key
	// scoping.
	GrammarFingerprint uint64
	Cache              *resultcache.Store

	Log *logrus.Logger
}

func (s *Service) logger() *logrus.Logger {
	if s.Log != nil {
		return s.Log
	}
	return logrus.StandardLogger()
}

// Query answers one guess-number request. It never returns an error:
// every failure mode is represented in the returned Result's Code,
// matching the external CLI's contract of always emitting one output
// row per input record. UserID and Policy are passed through
// unconditionally; only the password's grammar/table resolution is
// cached or recomputed.
func (s *Service) Query(rec Record) Result {
	var res Result
	if s.Cache != nil {
		if row, found, err := s.Cache.Get(s.GrammarFingerprint, rec.Password); err == nil && found {
			res = resultFromRow(rec.Password, row)
		} else {
			res = s.compute(rec.Password)
			if err := s.Cache.Put(s.GrammarFingerprint, rec.Password, rowFromResult(res)); err != nil {
				s.logger().WithError(err).Warn("resultcache: failed to memoize result")
			}
		}
	} else {
		res = s.compute(rec.Password)
	}
	res.UserID = rec.UserID
	res.Policy = rec.Policy
	return res
}

func (s *Service) compute(password []byte) Result {
	parses, code := s.Grammar.Parses(password)
	if len(parses) == 0 {
		return Result{Password: password, Code: code}
	}

	best, _ := pcfg.BestParse(parses)
	patternID := best.PatternID()
	sources := best.Sources.Bytes()

	rank, err := s.Table.Rank(best.Probability)
	if err != nil {
		return Result{
			Password:    password,
			Probability: best.Probability,
			PatternID:   patternID,
			Code:        pcfg.CodeBeyondCutoff,
			Sources:     sources,
		}
	}

	return Result{
		Password:    password,
		Probability: best.Probability,
		PatternID:   patternID,
		GuessNumber: rank,
		Code:        0,
		Sources:     sources,
	}
}

func resultFromRow(password []byte, row resultcache.Row) Result {
	r := Result{Password: password, Code: row.Code, PatternID: row.PatternID, Sources: []byte(row.Sources)}
	if row.Probability != hexfloat.Sentinel {
		r.Probability = hexfloat.MustParse(row.Probability)
	}
	if row.GuessNumber != hexfloat.Sentinel {
		n, err := parseDecimal(row.GuessNumber)
		if err == nil {
			r.GuessNumber = n
		}
	}
	return r
}

func rowFromResult(r Result) resultcache.Row {
	row := resultcache.Row{Code: r.Code, Sources: string(r.Sources)}
	if r.hasParse() {
		row.Probability = hexfloat.Format(r.Probability)
		row.PatternID = r.PatternID
	} else {
		row.Probability = hexfloat.Sentinel
	}
	if r.Code == 0 {
		row.GuessNumber = r.GuessNumber.String()
	} else {
		row.GuessNumber = hexfloat.Sentinel
	}
	return row
}

// FormatRow renders r as the tab-separated output row:
// user-id, policy, password, probability (hex-float or -1), pattern id
// (or empty), rank (or negative failure-code sum), source tags.
func FormatRow(r Result) string {
	prob := hexfloat.Sentinel
	pattern := ""
	if r.hasParse() {
		prob = hexfloat.Format(r.Probability)
		pattern = r.PatternID
	}
	rank := strconv.Itoa(r.Code)
	if r.Code == 0 {
		rank = r.GuessNumber.String()
	}
	return r.UserID + "\t" + r.Policy + "\t" + string(r.Password) + "\t" +
		prob + "\t" + pattern + "\t" + rank + "\t" + string(r.Sources)
}

// VerifyShardDeterminism recomputes every record in records once as a
// baseline, then again grouped into shardCount shards (by index modulo
// shardCount, so a shard's records are processed in a different
// relative order and interleaving than the baseline run), and reports
// an error at the first record whose result differs between the two
// runs. It bypasses the result cache on both runs, so it catches
// accidental cross-query mutable-state sharing in the compute path
// itself (the class of bug that motivated it: a Num struct copy that
// aliases another query's backing storage) rather than cache-layer
// bugs.
func VerifyShardDeterminism(s *Service, records []Record, shardCount int) error {
	if shardCount <= 0 {
		return errors.New("guessservice: shardCount must be positive")
	}
	baseline := make([]Result, len(records))
	for i, rec := range records {
		baseline[i] = s.compute(rec.Password)
	}
	for shard := 0; shard < shardCount; shard++ {
		for i, rec := range records {
			if i%shardCount != shard {
				continue
			}
			got := s.compute(rec.Password)
			if !resultsEqual(got, baseline[i]) {
				return errors.Errorf("guessservice: shard determinism violated for %q: shard result %+v != baseline %+v", rec.Password, got, baseline[i])
			}
		}
	}
	return nil
}

func resultsEqual(a, b Result) bool {
	if string(a.Password) != string(b.Password) || a.Code != b.Code {
		return false
	}
	if a.hasParse() != b.hasParse() {
		return false
	}
	if a.hasParse() && (a.Probability != b.Probability || a.PatternID != b.PatternID) {
		return false
	}
	if string(a.Sources) != string(b.Sources) {
		return false
	}
	if a.Code == 0 && a.GuessNumber.Compare(b.GuessNumber) != 0 {
		return false
	}
	return true
}

func parseDecimal(s string) (bignum.Num, error) {
	n := bignum.Zero()
	ten := bignum.FromUint64(10)
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c < '0' || c > '9' {
			return bignum.Num{}, errors.Errorf("guessservice: malformed cached guess number %q", s)
		}
		n.Mul(ten)
		n.AddUint64(uint64(c - '0'))
	}
	return n, nil
}
