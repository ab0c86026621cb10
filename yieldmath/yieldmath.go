// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package yieldmath

import "math/big"

// The four solvers below all price against the invariant
//
//	stable^a + bond^a = C,  a = 1 - k*t*g
//
// where bond is the pool's virtual bond reserve. Outputs are rounded
// down and inputs are rounded up, so integer truncation always favors
// the pool. Accuracy versus the real-valued solution is bounded by
// the powRatio guard band (one part in 2^100 per power, amplified by
// at most 1/a through the inverse power), on top of the one-unit
// integer granularity of each curve term.

// BondOutForStableIn solves for the bond tokens paid out when
// stableIn stablecoin is sold into the pool.
func BondOutForStableIn(stableReserve, bondReserve, stableIn *big.Int, secondsToMaturity uint64, k, g *big.Int) (*big.Int, error) {
	if err := checkTriple(stableReserve, bondReserve, stableIn); err != nil {
		return nil, err
	}
	a, err := Exponent(secondsToMaturity, k, g)
	if err != nil {
		return nil, err
	}

	newStable := new(big.Int).Add(stableReserve, stableIn)
	if newStable.Cmp(Max128) > 0 {
		return nil, ErrAmountOverflow
	}

	// Constant-sum limit at maturity: one for one.
	if a.Cmp(One64) == 0 {
		if stableIn.Cmp(bondReserve) > 0 {
			return nil, ErrReservesTooSmall
		}
		return new(big.Int).Set(stableIn), nil
	}

	za, err := powRatio(stableReserve, a, One64, false)
	if err != nil {
		return nil, err
	}
	ya, err := powRatio(bondReserve, a, One64, false)
	if err != nil {
		return nil, err
	}
	zxa, err := powRatio(newStable, a, One64, true)
	if err != nil {
		return nil, err
	}

	sum := za.Add(za, ya)
	sum.Sub(sum, zxa)
	if sum.Sign() < 0 {
		return nil, ErrReservesTooSmall
	}

	root, err := powRatio(sum, One64, a, true)
	if err != nil {
		return nil, err
	}

	out := new(big.Int).Sub(bondReserve, root)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

// StableInForBondOut solves for the stablecoin that must be sold in
// to take bondOut bond tokens from the pool.
func StableInForBondOut(stableReserve, bondReserve, bondOut *big.Int, secondsToMaturity uint64, k, g *big.Int) (*big.Int, error) {
	if err := checkTriple(stableReserve, bondReserve, bondOut); err != nil {
		return nil, err
	}
	a, err := Exponent(secondsToMaturity, k, g)
	if err != nil {
		return nil, err
	}

	newBond := new(big.Int).Sub(bondReserve, bondOut)
	if newBond.Sign() < 0 {
		return nil, ErrReservesTooSmall
	}

	if a.Cmp(One64) == 0 {
		return new(big.Int).Set(bondOut), nil
	}

	za, err := powRatio(stableReserve, a, One64, true)
	if err != nil {
		return nil, err
	}
	ya, err := powRatio(bondReserve, a, One64, true)
	if err != nil {
		return nil, err
	}
	yxa, err := powRatio(newBond, a, One64, false)
	if err != nil {
		return nil, err
	}

	sum := za.Add(za, ya)
	sum.Sub(sum, yxa)

	root, err := powRatio(sum, One64, a, true)
	if err != nil {
		return nil, err
	}

	in := root.Sub(root, stableReserve)
	if in.Sign() < 0 {
		in.SetInt64(0)
	}
	if in.Cmp(Max128) > 0 {
		return nil, ErrAmountOverflow
	}
	return in, nil
}

// StableOutForBondIn solves for the stablecoin paid out when bondIn
// bond tokens are sold into the pool.
func StableOutForBondIn(stableReserve, bondReserve, bondIn *big.Int, secondsToMaturity uint64, k, g *big.Int) (*big.Int, error) {
	if err := checkTriple(stableReserve, bondReserve, bondIn); err != nil {
		return nil, err
	}
	a, err := Exponent(secondsToMaturity, k, g)
	if err != nil {
		return nil, err
	}

	newBond := new(big.Int).Add(bondReserve, bondIn)
	if newBond.Cmp(Max128) > 0 {
		return nil, ErrAmountOverflow
	}

	if a.Cmp(One64) == 0 {
		if bondIn.Cmp(stableReserve) > 0 {
			return nil, ErrReservesTooSmall
		}
		return new(big.Int).Set(bondIn), nil
	}

	za, err := powRatio(stableReserve, a, One64, false)
	if err != nil {
		return nil, err
	}
	ya, err := powRatio(bondReserve, a, One64, false)
	if err != nil {
		return nil, err
	}
	yxa, err := powRatio(newBond, a, One64, true)
	if err != nil {
		return nil, err
	}

	sum := za.Add(za, ya)
	sum.Sub(sum, yxa)
	if sum.Sign() < 0 {
		return nil, ErrReservesTooSmall
	}

	root, err := powRatio(sum, One64, a, true)
	if err != nil {
		return nil, err
	}

	out := new(big.Int).Sub(stableReserve, root)
	if out.Sign() < 0 {
		out.SetInt64(0)
	}
	return out, nil
}

// BondInForStableOut solves for the bond tokens that must be sold in
// to take stableOut stablecoin from the pool.
func BondInForStableOut(stableReserve, bondReserve, stableOut *big.Int, secondsToMaturity uint64, k, g *big.Int) (*big.Int, error) {
	if err := checkTriple(stableReserve, bondReserve, stableOut); err != nil {
		return nil, err
	}
	a, err := Exponent(secondsToMaturity, k, g)
	if err != nil {
		return nil, err
	}

	newStable := new(big.Int).Sub(stableReserve, stableOut)
	if newStable.Sign() < 0 {
		return nil, ErrReservesTooSmall
	}

	if a.Cmp(One64) == 0 {
		return new(big.Int).Set(stableOut), nil
	}

	za, err := powRatio(stableReserve, a, One64, true)
	if err != nil {
		return nil, err
	}
	ya, err := powRatio(bondReserve, a, One64, true)
	if err != nil {
		return nil, err
	}
	zxa, err := powRatio(newStable, a, One64, false)
	if err != nil {
		return nil, err
	}

	sum := za.Add(za, ya)
	sum.Sub(sum, zxa)

	root, err := powRatio(sum, One64, a, true)
	if err != nil {
		return nil, err
	}

	in := root.Sub(root, bondReserve)
	if in.Sign() < 0 {
		in.SetInt64(0)
	}
	if in.Cmp(Max128) > 0 {
		return nil, ErrAmountOverflow
	}
	return in, nil
}

func checkTriple(a, b, c *big.Int) error {
	if err := checkAmount(a); err != nil {
		return err
	}
	if err := checkAmount(b); err != nil {
		return err
	}
	return checkAmount(c)
}
