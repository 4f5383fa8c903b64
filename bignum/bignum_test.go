package bignum_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/cupslab/guesscalc/bignum"
)

func TestZeroValue(t *testing.T) {
	var n bignum.Num
	require.True(t, n.IsZero())
	u, err := n.ToUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(0), u)
}

func TestAddMul(t *testing.T) {
	n := bignum.FromUint64(3)
	n.AddUint64(4)
	n.MulUint64(5)
	u, err := n.ToUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(35), u)
}

func TestCompare(t *testing.T) {
	a := bignum.FromUint64(10)
	b := bignum.FromUint64(20)
	require.Equal(t, -1, a.Compare(b))
	require.Equal(t, 1, b.Compare(a))
	require.Equal(t, 0, a.Compare(a))
}

func TestOverflow(t *testing.T) {
	n := bignum.FromUint64(math.MaxUint64)
	n.AddUint64(1)
	_, err := n.ToUint64()
	require.ErrorIs(t, err, bignum.ErrOverflow)
}

func TestUnseenGroupScaleDoesNotOverflow(t *testing.T) {
	// 26^19 comfortably exceeds 2^64-1; BigNum must not silently wrap.
	n := bignum.FromUint64(26)
	acc := bignum.FromUint64(1)
	for i := 0; i < 19; i++ {
		acc.Mul(n)
	}
	_, err := acc.ToUint64()
	require.ErrorIs(t, err, bignum.ErrOverflow)
}

func TestClearAndAssign(t *testing.T) {
	n := bignum.FromUint64(42)
	var m bignum.Num
	m.Assign(n)
	n.Clear()
	require.True(t, n.IsZero())
	u, err := m.ToUint64()
	require.NoError(t, err)
	require.Equal(t, uint64(42), u)
}
