// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"
)

// Roll operations migrate value from a pool at one maturity into this
// one within a single step. The source pool must trade the same
// stablecoin ledger; its bond token is a different asset and never
// enters this pool's reserves. Both operations verify that the value
// consumed here never exceeds the stablecoin actually withdrawn from
// the source pool.

// RollLiquidity burns sharesIn in src, forwards the redeemed source
// bond tokens to to, and re-deposits the stablecoin proceeds here as
// a one-sided mint sized by bondToBuy. Minted shares go to to and
// must reach minSharesOut. Any stablecoin left over after the mint is
// returned to to.
func (p *Pool) RollLiquidity(caller, from, to common.Address, src *Pool, sharesIn, bondToBuy, minSharesOut *big.Int) (*big.Int, error) {
	if err := p.checkRollSource(src); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorize(caller, from); err != nil {
		return nil, err
	}
	if _, err := p.timeToMaturity(); err != nil {
		return nil, err
	}

	// Snapshot before the foreign proceeds land at our address.
	stableBefore := p.StableReserves()

	stableOut, bondOut, err := src.Burn(caller, from, p.addr, sharesIn)
	if err != nil {
		return nil, err
	}
	received := new(big.Int).Sub(p.StableReserves(), stableBefore)
	if received.Cmp(stableOut) > 0 {
		// Never count more than the source pool reports paying out.
		received.Set(stableOut)
	}

	// The source bond leg belongs to the caller, not to this pool.
	if bondOut.Sign() > 0 {
		if err := src.bond.Transfer(p.addr, to, bondOut); err != nil {
			p.refundStable(from, received)
			return nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
	}

	sizing, err := p.sizeMint(stableBefore, p.ActualBondReserves(), p.shares.TotalSupply(), new(big.Int), bondToBuy)
	if err != nil {
		p.refundStable(from, received)
		return nil, err
	}
	if sizing.stableTotal.Cmp(received) > 0 {
		p.refundStable(from, received)
		return nil, fmt.Errorf("%w: mint needs %s stablecoin, proceeds %s", ErrSlippage, sizing.stableTotal, received)
	}
	if sizing.shares.Cmp(minSharesOut) < 0 {
		p.refundStable(from, received)
		return nil, fmt.Errorf("%w: shares out %s below minimum %s", ErrSlippage, sizing.shares, minSharesOut)
	}

	leftover := new(big.Int).Sub(received, sizing.stableTotal)
	if leftover.Sign() > 0 {
		if err := p.stable.Transfer(p.addr, to, leftover); err != nil {
			p.refundStable(from, received)
			return nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
	}
	p.shares.mint(to, sizing.shares)

	p.log.Debug("liquidity rolled",
		"fromMaturity", src.maturity, "toMaturity", p.maturity,
		"sharesIn", sharesIn, "sharesOut", sizing.shares, "stableUsed", sizing.stableTotal)
	p.sink.HandleLiquidity(LiquidityEvent{
		Maturity:    p.maturity,
		From:        from,
		To:          to,
		StableDelta: neg(sizing.stableTotal),
		BondDelta:   new(big.Int),
		ShareDelta:  new(big.Int).Set(sizing.shares),
	})
	return sizing.shares, nil
}

// RollBondToken sells bondIn of the source pool's bond there and uses
// the stablecoin proceeds to buy this pool's bond, paid to to. The
// bond tokens bought here must reach minBondOut.
func (p *Pool) RollBondToken(caller, from, to common.Address, src *Pool, bondIn, minBondOut *big.Int) (*big.Int, error) {
	if err := p.checkRollSource(src); err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorize(caller, from); err != nil {
		return nil, err
	}
	if p.shares.TotalSupply().Sign() == 0 {
		return nil, ErrNotInitialized
	}
	t, err := p.timeToMaturity()
	if err != nil {
		return nil, err
	}

	stableBefore := p.StableReserves()
	virtualBond := p.VirtualBondReserves()

	proceeds, err := src.SellBond(caller, from, p.addr, bondIn)
	if err != nil {
		return nil, err
	}
	received := new(big.Int).Sub(p.StableReserves(), stableBefore)
	if received.Cmp(proceeds) > 0 {
		received.Set(proceeds)
	}

	// Price against the snapshot so the freshly arrived proceeds do
	// not distort their own quote.
	bondOut, err := p.previewSellStableAt(stableBefore, virtualBond, received, t)
	if err != nil {
		p.refundStable(from, received)
		return nil, err
	}
	if bondOut.Cmp(minBondOut) < 0 {
		p.refundStable(from, received)
		return nil, fmt.Errorf("%w: bond out %s below minimum %s", ErrSlippage, bondOut, minBondOut)
	}
	if err := p.bond.Transfer(p.addr, to, bondOut); err != nil {
		p.refundStable(from, received)
		return nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}

	p.log.Debug("bond rolled",
		"fromMaturity", src.maturity, "toMaturity", p.maturity,
		"bondIn", bondIn, "bondOut", bondOut, "stableThrough", received)
	p.emitTrade(from, to, neg(received), bondOut)
	return bondOut, nil
}

func (p *Pool) checkRollSource(src *Pool) error {
	if src == nil || src == p {
		return ErrSamePool
	}
	if src.stable != p.stable {
		return ErrLedgerMismatch
	}
	return nil
}

// refundStable hands foreign proceeds back to their owner when a
// composite aborts after the source leg has committed.
func (p *Pool) refundStable(owner common.Address, amount *big.Int) {
	if amount.Sign() <= 0 {
		return
	}
	if err := p.stable.Transfer(p.addr, owner, amount); err != nil {
		p.log.Error("refund failed after aborted roll", "owner", owner, "amount", amount, "err", err)
	}
}
