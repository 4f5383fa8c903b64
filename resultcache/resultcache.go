// Package resultcache memoizes GuessNumberService query results on
// disk, keyed by (grammar fingerprint, password). A guess-number
// calculation over a large grammar can be expensive enough that
// re-running the exact same password against the exact same grammar
// build is worth avoiding; this cache makes that a point lookup.
//
// The store is a goleveldb database: an on-disk, crash-safe,
// sorted key-value store, used here purely as an embedded KV layer
// (no ordering/iteration semantics of the grammar itself live here).
package resultcache

import (
	"encoding/binary"

	"github.com/pkg/errors"
	"github.com/syndtr/goleveldb/leveldb"
)

// Row is the cached form of one query result: a guess-number answer
// or failure, in the same textual vocabulary GuessNumberService emits
// as an output row (hex-float probability, decimal guess number).
type Row struct {
	// Probability is a hex-float literal, or hexfloat.Sentinel if the
	// password had no valid parse.
	Probability string
	// PatternID is the stable (Structure, Groups) identifier of the
	// best parse, or empty if no parse was found.
	PatternID string
	// GuessNumber is a decimal integer, or hexfloat.Sentinel if no
	// guess number applies.
	GuessNumber string
	// Code is the combined negative result code (0 on success).
	Code int
	// Sources is the ascending-byte-order source tag string.
	Sources string
}

// Store is an opened result cache.
type Store struct {
	db *leveldb.DB
}

// Open opens (creating if absent) a result cache at path.
func Open(path string) (*Store, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "resultcache: opening %s", path)
	}
	return &Store{db: db}, nil
}

// Close releases the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// key packs (fingerprint, password) into a single lookup key: an
// 8-byte big-endian fingerprint prefix (so all rows from one grammar
// build sort contiguously) followed by the raw password bytes.
func key(fingerprint uint64, password []byte) []byte {
	k := make([]byte, 8+len(password))
	binary.BigEndian.PutUint64(k[:8], fingerprint)
	copy(k[8:], password)
	return k
}

// Get looks up a memoized result. found is false on a cache miss; err
// is non-nil only for a genuine storage failure.
func (s *Store) Get(fingerprint uint64, password []byte) (row Row, found bool, err error) {
	v, err := s.db.Get(key(fingerprint, password), nil)
	if err == leveldb.ErrNotFound {
		return Row{}, false, nil
	}
	if err != nil {
		return Row{}, false, errors.Wrap(err, "resultcache: get")
	}
	row, err = decodeRow(v)
	if err != nil {
		// A corrupt entry is treated as a miss rather than a fatal
		// error: the caller will simply recompute it.
		return Row{}, false, nil
	}
	return row, true, nil
}

// Put memoizes a result.
func (s *Store) Put(fingerprint uint64, password []byte, row Row) error {
	if err := s.db.Put(key(fingerprint, password), encodeRow(row), nil); err != nil {
		return errors.Wrap(err, "resultcache: put")
	}
	return nil
}

// Snapshot returns a point-in-time read view, useful for a long batch
// run that should not observe concurrent writes from another process
// sharing the same cache directory mid-run.
func (s *Store) Snapshot() (*leveldb.Snapshot, error) {
	return s.db.GetSnapshot()
}

// encodeRow / decodeRow use a plain tab-separated record of the five
// Row fields (probability, pattern id, guess number, code, sources);
// guessservice parses it back into a Result, from which FormatRow
// renders the output row.
func encodeRow(r Row) []byte {
	buf := make([]byte, 0, len(r.Probability)+len(r.PatternID)+len(r.GuessNumber)+len(r.Sources)+8)
	buf = append(buf, r.Probability...)
	buf = append(buf, '\t')
	buf = append(buf, r.PatternID...)
	buf = append(buf, '\t')
	buf = append(buf, r.GuessNumber...)
	buf = append(buf, '\t')
	buf = appendInt(buf, r.Code)
	buf = append(buf, '\t')
	buf = append(buf, r.Sources...)
	return buf
}

func appendInt(buf []byte, v int) []byte {
	neg := v < 0
	if neg {
		v = -v
		buf = append(buf, '-')
	}
	start := len(buf)
	if v == 0 {
		return append(buf, '0')
	}
	for v > 0 {
		buf = append(buf, byte('0'+v%10))
		v /= 10
	}
	// digits were appended least-significant first; reverse in place.
	for i, j := start, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return buf
}

func decodeRow(v []byte) (Row, error) {
	fields := splitN(v, '\t', 5)
	if len(fields) != 5 {
		return Row{}, errors.Errorf("resultcache: malformed row %q", v)
	}
	code, err := parseInt(fields[3])
	if err != nil {
		return Row{}, errors.Wrapf(err, "resultcache: malformed code in row %q", v)
	}
	return Row{
		Probability: string(fields[0]),
		PatternID:   string(fields[1]),
		GuessNumber: string(fields[2]),
		Code:        code,
		Sources:     string(fields[4]),
	}, nil
}

func splitN(b []byte, sep byte, n int) [][]byte {
	out := make([][]byte, 0, n)
	start := 0
	for i := 0; i < len(b) && len(out) < n-1; i++ {
		if b[i] == sep {
			out = append(out, b[start:i])
			start = i + 1
		}
	}
	out = append(out, b[start:])
	return out
}

func parseInt(b []byte) (int, error) {
	if len(b) == 0 {
		return 0, errors.New("empty integer")
	}
	neg := false
	i := 0
	if b[0] == '-' {
		neg = true
		i = 1
	}
	if i == len(b) {
		return 0, errors.Errorf("not an integer: %q", b)
	}
	n := 0
	for ; i < len(b); i++ {
		if b[i] < '0' || b[i] > '9' {
			return 0, errors.Errorf("not an integer: %q", b)
		}
		n = n*10 + int(b[i]-'0')
	}
	if neg {
		n = -n
	}
	return n, nil
}
