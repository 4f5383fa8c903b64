// Package hexfloat parses and emits IEEE-754 double-precision values in
// hexadecimal floating-point notation, the representation used
// bit-exactly for every probability stored on disk (structure
// probabilities, terminal group probabilities, lookup table rows) and
// in guess-number query output.
package hexfloat

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Sentinel is the literal string used in place of a probability when
// none applies (e.g. a password that could not be parsed at all).
const Sentinel = "-1"

// literalPattern matches "[+-]?(0x)?[01]\.[0-9a-fA-F]+p[+-]?\d+", the
// grammar given in the spec for hex-float literals. The optional "0x"
// sits outside the capture groups; Parse always re-inserts it.
var literalPattern = regexp.MustCompile(`^([+-]?)(?:0x)?([01]\.[0-9a-fA-F]+p[+-]?[0-9]+)$`)

// Parse decodes a hex-float literal, or the sentinel "-1", into a
// float64. The leading "0x" is optional, matching files produced by
// the training pipeline, which sometimes omit it.
func Parse(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if s == Sentinel {
		return -1, nil
	}
	m := literalPattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Errorf("hexfloat: invalid literal %q", s)
	}
	normalized := m[1] + "0x" + m[2]
	f, err := strconv.ParseFloat(normalized, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "hexfloat: invalid literal %q", s)
	}
	return f, nil
}

// MustParse is Parse but panics on error; useful for literal fixtures
// in tests.
func MustParse(s string) float64 {
	f, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return f
}

// Format renders f in canonical "0x1.MMMMp±E" form, bit-exact and
// round-trippable through Parse. The value -1 is treated as the
// sentinel and rendered literally as "-1" rather than as a hex float,
// matching how probability fields report "no parse".
func Format(f float64) string {
	if f == -1 {
		return Sentinel
	}
	s := strconv.FormatFloat(f, 'x', -1, 64)
	if !strings.Contains(s, ".") {
		if idx := strings.IndexByte(s, 'p'); idx >= 0 {
			s = s[:idx] + ".0" + s[idx:]
		}
	}
	return s
}
