// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package pool implements the reserve-and-liquidity ledger of a
// YieldSpace market: a stablecoin traded against a fixed-maturity
// zero-coupon bond token on a time-decaying constant-power curve.
//
// Pricing always reads the virtual bond reserve (actual bond balance
// plus outstanding liquidity-share supply); transfers always act on
// the actual ledger balances. The two must never be collapsed.
package pool

import (
	"errors"
	"math/big"
	"time"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
)

// Curve parameters, Q64 rationals fixed for the life of the process.
var (
	// K is the per-second curve decay rate, 1 / (4 * 365 days).
	K = new(big.Int).Div(new(big.Int).Lsh(big.NewInt(1), 64), big.NewInt(126_144_000))

	// G1 skews the exponent when stablecoin is sold into the pool.
	G1 = q64Frac(950, 1000)

	// G2 skews the exponent when bond tokens are sold into the pool.
	G2 = q64Frac(1000, 950)
)

func q64Frac(num, den int64) *big.Int {
	v := new(big.Int).Lsh(big.NewInt(num), 64)
	return v.Div(v, big.NewInt(den))
}

// Errors, one per failure kind. Every operation is all-or-nothing:
// on any of these the pool's observable state is unchanged.
var (
	ErrAlreadyInitialized = errors.New("pool already initialized")
	ErrNotInitialized     = errors.New("pool not initialized")
	ErrTooLate            = errors.New("past maturity")
	ErrReserveOverflow    = errors.New("reserve exceeds 128-bit capacity")
	ErrCurveInvariant     = errors.New("bond reserves too low")
	ErrSlippage           = errors.New("slippage bound not met")
	ErrNotAuthorized      = errors.New("caller is not principal or delegate")
	ErrTransferFailed     = errors.New("asset ledger transfer failed")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrNoBondReserves     = errors.New("no bond reserves to size against")
	ErrSamePool           = errors.New("cannot roll into the same pool")
	ErrLedgerMismatch     = errors.New("pools do not share a stablecoin ledger")
)

// Ledger is the fungible-asset collaborator contract. Amounts are
// non-negative integers below 2^128. Every call either fully applies
// or returns an error with no effect.
type Ledger interface {
	// Transfer moves amount from the caller's own balance.
	Transfer(from, to common.Address, amount *big.Int) error
	// TransferFrom moves amount from a third-party balance under the
	// operator's allowance.
	TransferFrom(operator, from, to common.Address, amount *big.Int) error
	BalanceOf(account common.Address) *big.Int
}

// BondLedger is the bond-token collaborator: a Ledger that also
// carries the bond's maturity, read once at pool construction.
type BondLedger interface {
	Ledger
	Maturity() uint64
}

// DelegateRegistry authorizes an operator to act for a principal.
type DelegateRegistry interface {
	IsDelegate(principal, operator common.Address) bool
}

// Clock supplies the current unix time. Maturity gating is a read of
// the clock, never a stored state transition.
type Clock interface {
	Now() uint64
}

// SystemClock reads the wall clock.
type SystemClock struct{}

func (SystemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// TradeEvent reports a completed swap. Negative deltas were debited
// from From into the pool; positive deltas were credited to To.
type TradeEvent struct {
	Maturity    uint64
	From        common.Address
	To          common.Address
	StableDelta *big.Int
	BondDelta   *big.Int
}

// LiquidityEvent reports a share mint or burn. ShareDelta is positive
// on mint and negative on burn.
type LiquidityEvent struct {
	Maturity    uint64
	From        common.Address
	To          common.Address
	StableDelta *big.Int
	BondDelta   *big.Int
	ShareDelta  *big.Int
}

// EventSink receives the pool's two event streams. Sinks are invoked
// synchronously after an operation has fully committed.
type EventSink interface {
	HandleTrade(TradeEvent)
	HandleLiquidity(LiquidityEvent)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) HandleTrade(TradeEvent)         {}
func (NopSink) HandleLiquidity(LiquidityEvent) {}

// LogSink writes events to a structured logger, for embedders that
// want an event trail without their own sink.
type LogSink struct {
	Log log.Logger
}

func (s LogSink) HandleTrade(e TradeEvent) {
	s.Log.Info("trade",
		"maturity", e.Maturity, "from", e.From, "to", e.To,
		"stableDelta", e.StableDelta, "bondDelta", e.BondDelta)
}

func (s LogSink) HandleLiquidity(e LiquidityEvent) {
	s.Log.Info("liquidity",
		"maturity", e.Maturity, "from", e.From, "to", e.To,
		"stableDelta", e.StableDelta, "bondDelta", e.BondDelta,
		"shareDelta", e.ShareDelta)
}
