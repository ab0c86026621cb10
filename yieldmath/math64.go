// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package yieldmath implements the fixed-point curve math for a
// time-decaying constant-power invariant x^a + y^a = C. Reserves and
// trade amounts are unsigned 128-bit integers carried as *big.Int;
// curve parameters are Q64 rationals (value scaled by 2^64); the
// logarithm and exponential primitives work in Q128 internally.
//
// Every function is pure. Nothing in this package knows about
// balances, ownership, or liquidity shares.
package yieldmath

import (
	"errors"
	"math/big"
)

// Fixed-point scales.
var (
	// One64 is 1.0 in Q64, the scale used for curve parameters.
	One64 = new(big.Int).Lsh(big.NewInt(1), 64)

	// one128 is 1.0 in Q128, the internal scale of log2/exp2.
	one128 = new(big.Int).Lsh(big.NewInt(1), 128)

	two128 = new(big.Int).Lsh(big.NewInt(1), 129)

	// Max128 is the capacity ceiling for reserves and amounts.
	Max128 = new(big.Int).Sub(one128, big.NewInt(1))

	// minExponent is the smallest usable curve exponent, 2^-20 in Q64.
	// Below this the 1/a amplification makes the guard band meaningless.
	minExponent = new(big.Int).Lsh(big.NewInt(1), 44)

	maxExp2Arg = new(big.Int).Lsh(big.NewInt(129), 128)
)

var (
	ErrAmountOverflow   = errors.New("amount exceeds 128-bit capacity")
	ErrExponentTooSmall = errors.New("curve exponent too small for time to maturity")
	ErrReservesTooSmall = errors.New("reserves too small for requested amount")
	ErrNegativeAmount   = errors.New("negative amount")
)

// exp2Roots[i] is 2^(2^-(i+1)) in Q128, built by iterated integer
// square roots at package load.
var exp2Roots [128]*big.Int

func init() {
	// 2^(1/2) in Q128 = isqrt(2 * 2^256).
	v := new(big.Int).Lsh(big.NewInt(1), 257)
	v.Sqrt(v)
	exp2Roots[0] = v
	for i := 1; i < 128; i++ {
		next := new(big.Int).Lsh(exp2Roots[i-1], 128)
		next.Sqrt(next)
		exp2Roots[i] = next
	}
}

// log2Q128 returns log2(x) in Q128 for integer x >= 1. The result is
// exact in its integer part and within one ulp per squaring step in
// its fraction, an absolute error below 2^-121.
func log2Q128(x *big.Int) *big.Int {
	n := x.BitLen() - 1
	result := new(big.Int).Lsh(big.NewInt(int64(n)), 128)

	// Normalize the mantissa to [1, 2) in Q128; the shift is exact.
	m := new(big.Int).Lsh(x, uint(128-n))
	if m.Cmp(one128) == 0 {
		return result
	}

	// Extract fraction bits by repeated squaring.
	for i := 127; i >= 0; i-- {
		m.Mul(m, m)
		m.Rsh(m, 128)
		if m.Cmp(two128) >= 0 {
			m.Rsh(m, 1)
			result.SetBit(result, i, 1)
		}
		if m.Cmp(one128) == 0 {
			break
		}
	}
	return result
}

// exp2Q128 returns 2^(e/2^128) scaled by 2^128, for e >= 0. The
// integer part of the exponent must be at most 128.
func exp2Q128(e *big.Int) (*big.Int, error) {
	if e.Cmp(maxExp2Arg) > 0 {
		return nil, ErrAmountOverflow
	}
	n := new(big.Int).Rsh(e, 128)

	r := new(big.Int).Set(one128)
	for i := 0; i < 128; i++ {
		if e.Bit(127-i) == 1 {
			r.Mul(r, exp2Roots[i])
			r.Rsh(r, 128)
		}
	}
	return r.Lsh(r, uint(n.Uint64())), nil
}

// powRatio computes x^(n/d) for integer x and positive Q-agnostic
// integers n, d. The result carries a guard band of one part in 2^100
// plus one unit, applied toward zero when up is false and away from
// zero when up is true, so that callers always round in the
// pool-favoring direction regardless of the primitives' residual
// error.
func powRatio(x, n, d *big.Int, up bool) (*big.Int, error) {
	if x.Sign() < 0 {
		return nil, ErrNegativeAmount
	}
	if x.Sign() == 0 {
		return new(big.Int), nil
	}
	if x.BitLen() == 1 && x.Bit(0) == 1 {
		// 1^(n/d) is exact; skip the guard band.
		return big.NewInt(1), nil
	}

	l := log2Q128(x)
	e := new(big.Int).Mul(l, n)
	if up {
		// Ceiling division biases the exponent upward.
		e.Add(e, new(big.Int).Sub(d, big.NewInt(1)))
	}
	e.Div(e, d)

	r, err := exp2Q128(e)
	if err != nil {
		return nil, err
	}

	v := new(big.Int)
	if up {
		v.Add(r, new(big.Int).Sub(one128, big.NewInt(1)))
		v.Rsh(v, 128)
		band := new(big.Int).Rsh(v, 100)
		v.Add(v, band)
		v.Add(v, big.NewInt(1))
	} else {
		v.Rsh(r, 128)
		band := new(big.Int).Rsh(v, 100)
		v.Sub(v, band)
		v.Sub(v, big.NewInt(1))
		if v.Sign() < 0 {
			v.SetInt64(0)
		}
	}
	return v, nil
}

// Exponent returns the curve exponent a = 1 - k*t*g in Q64 for t
// seconds to maturity and Q64 parameters k and g. t == 0 yields
// exactly One64, degenerating the curve to a constant sum. The call
// fails once k*t*g leaves too little exponent to price against.
func Exponent(secondsToMaturity uint64, k, g *big.Int) (*big.Int, error) {
	decay := new(big.Int).Mul(k, new(big.Int).SetUint64(secondsToMaturity))
	decay.Mul(decay, g)
	decay.Rsh(decay, 64)

	a := new(big.Int).Sub(One64, decay)
	if a.Cmp(minExponent) < 0 {
		return nil, ErrExponentTooSmall
	}
	return a, nil
}

// checkAmount validates that v is a representable non-negative
// 128-bit quantity.
func checkAmount(v *big.Int) error {
	if v.Sign() < 0 {
		return ErrNegativeAmount
	}
	if v.Cmp(Max128) > 0 {
		return ErrAmountOverflow
	}
	return nil
}
