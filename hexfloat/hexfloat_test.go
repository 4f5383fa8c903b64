package hexfloat_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cupslab/guesscalc/hexfloat"
)

func TestParseCanonical(t *testing.T) {
	f, err := hexfloat.Parse("0x1.0p-1")
	require.NoError(t, err)
	require.Equal(t, 0.5, f)
}

func TestParseMissingPrefix(t *testing.T) {
	f, err := hexfloat.Parse("1.0p-1")
	require.NoError(t, err)
	require.Equal(t, 0.5, f)
}

func TestParseSentinel(t *testing.T) {
	f, err := hexfloat.Parse("-1")
	require.NoError(t, err)
	require.Equal(t, -1.0, f)
}

func TestParseInvalid(t *testing.T) {
	_, err := hexfloat.Parse("not-a-float")
	require.Error(t, err)
}

func TestFormatSentinel(t *testing.T) {
	require.Equal(t, "-1", hexfloat.Format(-1))
}

func TestRoundTrip(t *testing.T) {
	values := []float64{
		0.5, 1.0, 0.25, 0x1.0p-20, 0x1.abcdp-10, math.SmallestNonzeroFloat64,
		1, 0x1.fffffffffffffp-2,
	}
	for _, v := range values {
		s := hexfloat.Format(v)
		got, err := hexfloat.Parse(s)
		require.NoError(t, err)
		require.Equal(t, v, got, "round trip of %v via %q", v, s)
	}
}

func TestRoundTripFromLiteral(t *testing.T) {
	// Structure probability in S1 fixture: 0.5 * 1.0 = 0x1.0p-1
	f, err := hexfloat.Parse("0x1.0p-1")
	require.NoError(t, err)
	s := hexfloat.Format(f)
	f2, err := hexfloat.Parse(s)
	require.NoError(t, err)
	require.Equal(t, f, f2)
}
