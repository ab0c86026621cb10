// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package yieldmath

import (
	"errors"
	"math/big"
	"testing"
)

func bigInt(s string) *big.Int {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		panic("bad bigInt literal: " + s)
	}
	return v
}

// =========================================================================
// log2 / exp2 Tests
// =========================================================================

func TestLog2Q128_PowersOfTwo(t *testing.T) {
	for _, n := range []uint{0, 1, 7, 32, 64, 100, 127} {
		x := new(big.Int).Lsh(big.NewInt(1), n)
		got := log2Q128(x)
		want := new(big.Int).Lsh(big.NewInt(int64(n)), 128)
		if got.Cmp(want) != 0 {
			t.Errorf("log2(2^%d): got %v, want %v", n, got, want)
		}
	}
}

func TestLog2Exp2_RoundTrip(t *testing.T) {
	cases := []*big.Int{
		big.NewInt(3),
		big.NewInt(10),
		big.NewInt(1000000007),
		bigInt("1000000000000000000"),
		bigInt("123456789123456789123456789"),
	}
	for _, x := range cases {
		r, err := exp2Q128(log2Q128(x))
		if err != nil {
			t.Fatalf("exp2(log2(%v)): %v", x, err)
		}
		got := r.Rsh(r, 128)
		diff := new(big.Int).Sub(x, got)
		// Both primitives truncate downward, so the round trip may
		// lose at most a unit but never gains one.
		if diff.Sign() < 0 || diff.Cmp(big.NewInt(1)) > 0 {
			t.Errorf("exp2(log2(%v)) = %v, want within one below", x, got)
		}
	}
}

func TestExp2Q128_Integers(t *testing.T) {
	for _, n := range []int64{0, 1, 5, 64, 128} {
		e := new(big.Int).Lsh(big.NewInt(n), 128)
		r, err := exp2Q128(e)
		if err != nil {
			t.Fatalf("exp2(%d): %v", n, err)
		}
		got := r.Rsh(r, 128)
		want := new(big.Int).Lsh(big.NewInt(1), uint(n))
		if got.Cmp(want) != 0 {
			t.Errorf("exp2(%d): got %v, want %v", n, got, want)
		}
	}
}

func TestExp2Q128_Overflow(t *testing.T) {
	e := new(big.Int).Lsh(big.NewInt(130), 128)
	if _, err := exp2Q128(e); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}
}

func TestExp2Q128_Half(t *testing.T) {
	// 2^(1/2): the square of the result must land just below 2.
	r, err := exp2Q128(new(big.Int).Lsh(big.NewInt(1), 127))
	if err != nil {
		t.Fatalf("exp2(1/2): %v", err)
	}
	sq := new(big.Int).Mul(r, r)
	sq.Rsh(sq, 128)
	two := new(big.Int).Lsh(big.NewInt(1), 129)
	if sq.Cmp(two) > 0 {
		t.Errorf("sqrt2 squared exceeds 2: %v", sq)
	}
	slack := new(big.Int).Sub(two, sq)
	if slack.BitLen() > 66 {
		t.Errorf("sqrt2 squared too far below 2, slack %v", slack)
	}
}

// =========================================================================
// powRatio Tests
// =========================================================================

func TestPowRatio_Degenerate(t *testing.T) {
	out, err := powRatio(big.NewInt(0), big.NewInt(3), big.NewInt(4), false)
	if err != nil || out.Sign() != 0 {
		t.Errorf("0^(3/4): got %v, %v", out, err)
	}
	out, err = powRatio(big.NewInt(1), big.NewInt(3), big.NewInt(4), true)
	if err != nil || out.Cmp(big.NewInt(1)) != 0 {
		t.Errorf("1^(3/4): got %v, %v", out, err)
	}
	if _, err = powRatio(big.NewInt(-1), big.NewInt(1), big.NewInt(1), false); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}

func TestPowRatio_SquareRootExact(t *testing.T) {
	x := new(big.Int).Lsh(big.NewInt(1), 64)
	root := new(big.Int).Lsh(big.NewInt(1), 32)

	down, err := powRatio(x, big.NewInt(1), big.NewInt(2), false)
	if err != nil {
		t.Fatalf("powRatio down: %v", err)
	}
	want := new(big.Int).Sub(root, big.NewInt(1))
	if down.Cmp(want) != 0 {
		t.Errorf("(2^64)^(1/2) down: got %v, want %v", down, want)
	}

	up, err := powRatio(x, big.NewInt(1), big.NewInt(2), true)
	if err != nil {
		t.Fatalf("powRatio up: %v", err)
	}
	want = new(big.Int).Add(root, big.NewInt(1))
	if up.Cmp(want) != 0 {
		t.Errorf("(2^64)^(1/2) up: got %v, want %v", up, want)
	}
}

func TestPowRatio_GuardBandBrackets(t *testing.T) {
	// x^1 must bracket x within the guard band on either side.
	x := bigInt("123456789123456789123456789123456789")
	band := new(big.Int).Rsh(x, 100)
	band.Add(band, big.NewInt(2))

	down, err := powRatio(x, big.NewInt(7), big.NewInt(7), false)
	if err != nil {
		t.Fatalf("powRatio down: %v", err)
	}
	if down.Cmp(x) > 0 {
		t.Errorf("down-rounded x^1 above x: %v", down)
	}
	if diff := new(big.Int).Sub(x, down); diff.Cmp(band) > 0 {
		t.Errorf("down-rounded x^1 off by %v, band %v", diff, band)
	}

	up, err := powRatio(x, big.NewInt(7), big.NewInt(7), true)
	if err != nil {
		t.Fatalf("powRatio up: %v", err)
	}
	if up.Cmp(x) < 0 {
		t.Errorf("up-rounded x^1 below x: %v", up)
	}
	if diff := new(big.Int).Sub(up, x); diff.Cmp(band) > 0 {
		t.Errorf("up-rounded x^1 off by %v, band %v", diff, band)
	}
}

// =========================================================================
// Exponent Tests
// =========================================================================

func TestExponent_AtMaturity(t *testing.T) {
	a, err := Exponent(0, testK, testG1)
	if err != nil {
		t.Fatalf("Exponent(0): %v", err)
	}
	if a.Cmp(One64) != 0 {
		t.Errorf("expected One64 at maturity, got %v", a)
	}
}

func TestExponent_OneYear(t *testing.T) {
	// k*t = 1/4, g = 950/1000: a should be 0.7625 give or take
	// parameter truncation.
	a, err := Exponent(secondsPerYear, testK, testG1)
	if err != nil {
		t.Fatalf("Exponent(1y): %v", err)
	}
	lo := new(big.Int).Div(new(big.Int).Mul(One64, big.NewInt(76)), big.NewInt(100))
	hi := new(big.Int).Div(new(big.Int).Mul(One64, big.NewInt(77)), big.NewInt(100))
	if a.Cmp(lo) < 0 || a.Cmp(hi) > 0 {
		t.Errorf("Exponent(1y) = %v, want in [%v, %v]", a, lo, hi)
	}
}

func TestExponent_TooSmall(t *testing.T) {
	// Five years at the sell-side fee pushes k*t*g past 1.
	if _, err := Exponent(5*secondsPerYear, testK, testG1); !errors.Is(err, ErrExponentTooSmall) {
		t.Errorf("expected ErrExponentTooSmall, got %v", err)
	}
	// Four years at the buy-side fee already does.
	if _, err := Exponent(4*secondsPerYear, testK, testG2); !errors.Is(err, ErrExponentTooSmall) {
		t.Errorf("expected ErrExponentTooSmall, got %v", err)
	}
}

func TestCheckAmount(t *testing.T) {
	if err := checkAmount(Max128); err != nil {
		t.Errorf("Max128 should be accepted: %v", err)
	}
	over := new(big.Int).Add(Max128, big.NewInt(1))
	if err := checkAmount(over); !errors.Is(err, ErrAmountOverflow) {
		t.Errorf("expected ErrAmountOverflow, got %v", err)
	}
	if err := checkAmount(big.NewInt(-1)); !errors.Is(err, ErrNegativeAmount) {
		t.Errorf("expected ErrNegativeAmount, got %v", err)
	}
}
