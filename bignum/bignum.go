// Package bignum provides an arbitrary-precision nonnegative integer
// used everywhere the guess calculator counts strings: a terminal group
// generated from a mask can hold more than 2^64 strings, and cumulative
// guess counts in a lookup table can exceed machine-word range long
// before they exceed anything math/big can't hold.
package bignum

import (
	"math/big"

	"github.com/pkg/errors"
)

// ErrOverflow is returned by ToUint64 when the value does not fit in a
// uint64. Callers that convert a Num to a machine integer must have
// already asserted the value is bounded (e.g. picking a random string
// within a group whose count_strings() is known to be small); this
// error indicates that assertion was wrong.
var ErrOverflow = errors.New("bignum: value overflows uint64")

// Num is a nonnegative arbitrary-precision integer. The zero value is
// ready to use and represents zero.
type Num struct {
	v big.Int
}

// Zero returns a Num initialized to 0.
func Zero() Num {
	return Num{}
}

// FromUint64 returns a Num initialized to n.
func FromUint64(n uint64) Num {
	var num Num
	num.v.SetUint64(n)
	return num
}

// Clear resets n to 0.
func (n *Num) Clear() {
	n.v.SetInt64(0)
}

// Assign sets n to the value of src, copying it (Num values must not
// alias each other's internal state after assignment).
func (n *Num) Assign(src Num) {
	n.v.Set(&src.v)
}

// SetFromUint64 sets n to v.
func (n *Num) SetFromUint64(v uint64) {
	n.v.SetUint64(v)
}

// Add sets n = n + other.
func (n *Num) Add(other Num) {
	n.v.Add(&n.v, &other.v)
}

// AddUint64 sets n = n + v.
func (n *Num) AddUint64(v uint64) {
	var tmp big.Int
	tmp.SetUint64(v)
	n.v.Add(&n.v, &tmp)
}

// Mul sets n = n * other.
func (n *Num) Mul(other Num) {
	n.v.Mul(&n.v, &other.v)
}

// MulUint64 sets n = n * v.
func (n *Num) MulUint64(v uint64) {
	var tmp big.Int
	tmp.SetUint64(v)
	n.v.Mul(&n.v, &tmp)
}

// Compare returns -1, 0, or +1 as n is less than, equal to, or greater
// than other.
func (n Num) Compare(other Num) int {
	return n.v.Cmp(&other.v)
}

// IsZero reports whether n is 0.
func (n Num) IsZero() bool {
	return n.v.Sign() == 0
}

// ToUint64 narrows n to a uint64, returning ErrOverflow if n exceeds
// 2^64-1. This is the only place a Num crosses into machine-integer
// territory; callers are expected to have already bounded the
// magnitude and to treat ErrOverflow as a programming error, not a
// recoverable condition.
func (n Num) ToUint64() (uint64, error) {
	if !n.v.IsUint64() {
		return 0, errors.Wrapf(ErrOverflow, "value %s", n.v.String())
	}
	return n.v.Uint64(), nil
}

// String renders n in decimal, mostly for diagnostics and test output.
func (n Num) String() string {
	return n.v.String()
}

// Big exposes the underlying *big.Int for read-only interop (e.g.
// formatting, or feeding a math/big API the caller already owns). The
// returned pointer must not be mutated.
func (n *Num) Big() *big.Int {
	return &n.v
}
