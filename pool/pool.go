// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"

	"github.com/luxfi/yieldspace/yieldmath"
)

// Config carries the pool's construction parameters. Stable, Bond and
// Address are required; the rest default to inert implementations.
type Config struct {
	// Address is the account under which the pool holds its reserves
	// on the two asset ledgers.
	Address common.Address

	Stable Ledger
	Bond   BondLedger

	ShareName   string
	ShareSymbol string

	Delegates DelegateRegistry
	Clock     Clock
	Sink      EventSink
	Log       log.Logger
}

// Pool is one stablecoin/bond-token market at a fixed maturity.
// All mutating operations are serialized behind a single lock; each
// either fully commits or leaves no trace.
type Pool struct {
	mu sync.RWMutex

	addr     common.Address
	stable   Ledger
	bond     BondLedger
	maturity uint64

	shares    *ShareLedger
	delegates DelegateRegistry
	clock     Clock
	sink      EventSink
	log       log.Logger
}

// New constructs a pool over the given ledgers. The maturity is read
// from the bond ledger once and never changes.
func New(cfg Config) (*Pool, error) {
	if cfg.Stable == nil || cfg.Bond == nil {
		return nil, fmt.Errorf("%w: missing asset ledger", ErrInvalidAmount)
	}
	if cfg.Address == (common.Address{}) {
		return nil, fmt.Errorf("%w: missing pool address", ErrInvalidAmount)
	}
	p := &Pool{
		addr:      cfg.Address,
		stable:    cfg.Stable,
		bond:      cfg.Bond,
		maturity:  cfg.Bond.Maturity(),
		shares:    newShareLedger(cfg.ShareName, cfg.ShareSymbol),
		delegates: cfg.Delegates,
		clock:     cfg.Clock,
		sink:      cfg.Sink,
		log:       cfg.Log,
	}
	if p.clock == nil {
		p.clock = SystemClock{}
	}
	if p.sink == nil {
		p.sink = NopSink{}
	}
	if p.log == nil {
		p.log = log.NewTestLogger(log.InfoLevel)
	}
	return p, nil
}

// Address returns the account under which the pool holds reserves.
func (p *Pool) Address() common.Address { return p.addr }

// Maturity returns the bond maturity timestamp fixed at construction.
func (p *Pool) Maturity() uint64 { return p.maturity }

// Shares exposes the pool-owned liquidity share ledger.
func (p *Pool) Shares() *ShareLedger { return p.shares }

// StableReserves returns the actual stablecoin balance held.
func (p *Pool) StableReserves() *big.Int {
	return p.stable.BalanceOf(p.addr)
}

// ActualBondReserves returns the raw bond ledger balance held.
func (p *Pool) ActualBondReserves() *big.Int {
	return p.bond.BalanceOf(p.addr)
}

// VirtualBondReserves returns the bond reserve used for pricing:
// the actual bond balance plus the outstanding share supply.
func (p *Pool) VirtualBondReserves() *big.Int {
	v := p.bond.BalanceOf(p.addr)
	return v.Add(v, p.shares.TotalSupply())
}

// Init seeds the pool with stablecoin-only liquidity, minting shares
// one for one. The share supply term alone makes the initial virtual
// bond reserve equal the seeded stablecoin. Valid exactly once,
// before maturity.
func (p *Pool) Init(caller common.Address, stableIn *big.Int) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if stableIn.Sign() <= 0 || stableIn.Cmp(yieldmath.Max128) > 0 {
		return ErrInvalidAmount
	}
	if p.shares.TotalSupply().Sign() != 0 {
		return ErrAlreadyInitialized
	}
	if _, err := p.timeToMaturity(); err != nil {
		return err
	}

	if err := p.stable.TransferFrom(p.addr, caller, p.addr, stableIn); err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	p.shares.mint(caller, stableIn)

	p.log.Debug("pool initialized", "maturity", p.maturity, "stableIn", stableIn)
	p.sink.HandleLiquidity(LiquidityEvent{
		Maturity:    p.maturity,
		From:        caller,
		To:          caller,
		StableDelta: new(big.Int).Neg(stableIn),
		BondDelta:   new(big.Int),
		ShareDelta:  new(big.Int).Set(stableIn),
	})
	return nil
}

// =========================================================================
// Previews
// =========================================================================

// PreviewSellStable quotes the bond tokens out for selling stableIn.
func (p *Pool) PreviewSellStable(stableIn *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, err := p.tradeClock()
	if err != nil {
		return nil, err
	}
	return p.previewSellStableAt(p.StableReserves(), p.VirtualBondReserves(), stableIn, t)
}

// PreviewBuyBond quotes the stablecoin in required to take bondOut.
func (p *Pool) PreviewBuyBond(bondOut *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, err := p.tradeClock()
	if err != nil {
		return nil, err
	}
	return p.previewBuyBondAt(p.StableReserves(), p.VirtualBondReserves(), bondOut, t)
}

// PreviewSellBond quotes the stablecoin out for selling bondIn.
func (p *Pool) PreviewSellBond(bondIn *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, err := p.tradeClock()
	if err != nil {
		return nil, err
	}
	return p.previewSellBondAt(p.StableReserves(), p.VirtualBondReserves(), bondIn, t)
}

// PreviewBuyStable quotes the bond tokens in required to take stableOut.
func (p *Pool) PreviewBuyStable(stableOut *big.Int) (*big.Int, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	t, err := p.tradeClock()
	if err != nil {
		return nil, err
	}
	return p.previewBuyStableAt(p.StableReserves(), p.VirtualBondReserves(), stableOut, t)
}

// previewSellStableAt prices a stable-in trade against explicit
// reserves and re-validates the forward-rate floor: the virtual bond
// reserve must not drop below the stablecoin reserve.
func (p *Pool) previewSellStableAt(stable, virtualBond, stableIn *big.Int, t uint64) (*big.Int, error) {
	bondOut, err := yieldmath.BondOutForStableIn(stable, virtualBond, stableIn, t, K, G1)
	if err != nil {
		return nil, mapMathErr(err)
	}
	if err := checkForwardRate(stable, virtualBond, stableIn, bondOut); err != nil {
		return nil, err
	}
	return bondOut, nil
}

func (p *Pool) previewBuyBondAt(stable, virtualBond, bondOut *big.Int, t uint64) (*big.Int, error) {
	stableIn, err := yieldmath.StableInForBondOut(stable, virtualBond, bondOut, t, K, G1)
	if err != nil {
		return nil, mapMathErr(err)
	}
	if err := checkForwardRate(stable, virtualBond, stableIn, bondOut); err != nil {
		return nil, err
	}
	return stableIn, nil
}

// Bond-in trades move both reserves in the safe direction, so only
// the capacity ceiling needs revalidating.
func (p *Pool) previewSellBondAt(stable, virtualBond, bondIn *big.Int, t uint64) (*big.Int, error) {
	stableOut, err := yieldmath.StableOutForBondIn(stable, virtualBond, bondIn, t, K, G2)
	if err != nil {
		return nil, mapMathErr(err)
	}
	return stableOut, nil
}

func (p *Pool) previewBuyStableAt(stable, virtualBond, stableOut *big.Int, t uint64) (*big.Int, error) {
	bondIn, err := yieldmath.BondInForStableOut(stable, virtualBond, stableOut, t, K, G2)
	if err != nil {
		return nil, mapMathErr(err)
	}
	newVirtual := new(big.Int).Add(virtualBond, bondIn)
	if newVirtual.Cmp(yieldmath.Max128) > 0 {
		return nil, ErrReserveOverflow
	}
	return bondIn, nil
}

// checkForwardRate enforces that removing bondOut and adding stableIn
// keeps virtualBond' >= stable', bounding the implied forward rate to
// be non-negative.
func checkForwardRate(stable, virtualBond, stableIn, bondOut *big.Int) error {
	newStable := new(big.Int).Add(stable, stableIn)
	if newStable.Cmp(yieldmath.Max128) > 0 {
		return ErrReserveOverflow
	}
	newVirtual := new(big.Int).Sub(virtualBond, bondOut)
	if newVirtual.Cmp(newStable) < 0 {
		return ErrCurveInvariant
	}
	return nil
}

// =========================================================================
// Trades
// =========================================================================

// SellStable pulls stableIn from from and pays the priced bond
// tokens to to.
func (p *Pool) SellStable(caller, from, to common.Address, stableIn *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bondOut, err := p.tradePrologue(caller, from, stableIn, p.previewSellStableAt)
	if err != nil {
		return nil, err
	}
	if err := p.swap(from, to, p.stable, stableIn, p.bond, bondOut); err != nil {
		return nil, err
	}
	p.emitTrade(from, to, neg(stableIn), bondOut)
	return bondOut, nil
}

// BuyBond pulls the priced stablecoin from from and pays bondOut to to.
func (p *Pool) BuyBond(caller, from, to common.Address, bondOut *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stableIn, err := p.tradePrologue(caller, from, bondOut, p.previewBuyBondAt)
	if err != nil {
		return nil, err
	}
	if err := p.swap(from, to, p.stable, stableIn, p.bond, bondOut); err != nil {
		return nil, err
	}
	p.emitTrade(from, to, neg(stableIn), bondOut)
	return stableIn, nil
}

// SellBond pulls bondIn from from and pays the priced stablecoin to to.
func (p *Pool) SellBond(caller, from, to common.Address, bondIn *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	stableOut, err := p.tradePrologue(caller, from, bondIn, p.previewSellBondAt)
	if err != nil {
		return nil, err
	}
	if err := p.swap(from, to, p.bond, bondIn, p.stable, stableOut); err != nil {
		return nil, err
	}
	p.emitTrade(from, to, stableOut, neg(bondIn))
	return stableOut, nil
}

// BuyStable pulls the priced bond tokens from from and pays stableOut to to.
func (p *Pool) BuyStable(caller, from, to common.Address, stableOut *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	bondIn, err := p.tradePrologue(caller, from, stableOut, p.previewBuyStableAt)
	if err != nil {
		return nil, err
	}
	if err := p.swap(from, to, p.bond, bondIn, p.stable, stableOut); err != nil {
		return nil, err
	}
	p.emitTrade(from, to, stableOut, neg(bondIn))
	return bondIn, nil
}

type previewFn func(stable, virtualBond, amount *big.Int, t uint64) (*big.Int, error)

// tradePrologue runs the shared gating and pricing for the four trade
// directions. The executing trade uses the very same preview that
// quotes it, so quote and execution cannot diverge.
func (p *Pool) tradePrologue(caller, from common.Address, amount *big.Int, preview previewFn) (*big.Int, error) {
	if err := p.authorize(caller, from); err != nil {
		return nil, err
	}
	if amount.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if p.shares.TotalSupply().Sign() == 0 {
		return nil, ErrNotInitialized
	}
	t, err := p.tradeClock()
	if err != nil {
		return nil, err
	}
	return preview(p.StableReserves(), p.VirtualBondReserves(), amount, t)
}

// swap pulls the in-leg and pushes the out-leg. A failed push unwinds
// the pull so the operation stays all-or-nothing.
func (p *Pool) swap(from, to common.Address, inLedger Ledger, inAmount *big.Int, outLedger Ledger, outAmount *big.Int) error {
	if err := inLedger.TransferFrom(p.addr, from, p.addr, inAmount); err != nil {
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	if err := outLedger.Transfer(p.addr, to, outAmount); err != nil {
		if rbErr := inLedger.Transfer(p.addr, from, inAmount); rbErr != nil {
			p.log.Error("rollback failed after push failure", "err", rbErr)
		}
		return fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	return nil
}

// =========================================================================
// Internal plumbing
// =========================================================================

// timeToMaturity returns seconds remaining, failing once the clock
// has reached maturity.
func (p *Pool) timeToMaturity() (uint64, error) {
	now := p.clock.Now()
	if now >= p.maturity {
		return 0, ErrTooLate
	}
	return p.maturity - now, nil
}

// tradeClock is timeToMaturity under its trade-path name; previews
// and trades share the same gate.
func (p *Pool) tradeClock() (uint64, error) {
	return p.timeToMaturity()
}

func (p *Pool) authorize(caller, from common.Address) error {
	if caller == from {
		return nil
	}
	if p.delegates != nil && p.delegates.IsDelegate(from, caller) {
		return nil
	}
	return ErrNotAuthorized
}

func (p *Pool) emitTrade(from, to common.Address, stableDelta, bondDelta *big.Int) {
	p.log.Debug("trade", "maturity", p.maturity, "stableDelta", stableDelta, "bondDelta", bondDelta)
	p.sink.HandleTrade(TradeEvent{
		Maturity:    p.maturity,
		From:        from,
		To:          to,
		StableDelta: stableDelta,
		BondDelta:   bondDelta,
	})
}

func mapMathErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, yieldmath.ErrAmountOverflow):
		return fmt.Errorf("%w: %s", ErrReserveOverflow, err)
	case errors.Is(err, yieldmath.ErrReservesTooSmall):
		return fmt.Errorf("%w: %s", ErrCurveInvariant, err)
	case errors.Is(err, yieldmath.ErrNegativeAmount):
		return fmt.Errorf("%w: %s", ErrInvalidAmount, err)
	default:
		return err
	}
}

func neg(v *big.Int) *big.Int { return new(big.Int).Neg(v) }

func mulDivFloor(a, b, c *big.Int) *big.Int {
	v := new(big.Int).Mul(a, b)
	return v.Div(v, c)
}

func mulDivCeil(a, b, c *big.Int) *big.Int {
	v := new(big.Int).Mul(a, b)
	v.Add(v, new(big.Int).Sub(c, big.NewInt(1)))
	return v.Div(v, c)
}
