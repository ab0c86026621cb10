// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"fmt"
	"math/big"

	"github.com/luxfi/geth/common"

	"github.com/luxfi/yieldspace/yieldmath"
)

// Liquidity sizing policy: shares are proportional to the actual bond
// reserve snapshotted after any virtual trade has been folded in.
// Shares and redemption outputs truncate toward zero; the stablecoin
// a minter must pair in rounds up. Truncation always favors the pool
// over the liquidity provider.

// mintSizing is the outcome of the pure mint computation.
type mintSizing struct {
	shares        *big.Int // shares to mint
	stableForBond *big.Int // stable paying for the virtual bond buy
	stableMatch   *big.Int // stable paired against the minted shares
	stableTotal   *big.Int // stableForBond + stableMatch
}

// sizeMint computes a (trade-and-)mint against explicit reserves.
// bondToBuy > 0 folds a hypothetical bond buy into the reserves first;
// no state changes here.
func (p *Pool) sizeMint(stableRes, bondActual, supply, bondIn, bondToBuy *big.Int) (*mintSizing, error) {
	if supply.Sign() == 0 {
		return nil, ErrNotInitialized
	}
	if bondIn.Sign() < 0 || bondToBuy.Sign() < 0 {
		return nil, ErrInvalidAmount
	}

	stableRes = new(big.Int).Set(stableRes)
	bondActual = new(big.Int).Set(bondActual)
	stableForBond := new(big.Int)

	if bondToBuy.Sign() > 0 {
		t, err := p.timeToMaturity()
		if err != nil {
			return nil, err
		}
		if bondActual.Cmp(bondToBuy) < 0 {
			return nil, fmt.Errorf("%w: bond reserve below requested buy", ErrCurveInvariant)
		}
		virtual := new(big.Int).Add(bondActual, supply)
		stableForBond, err = p.previewBuyBondAt(stableRes, virtual, bondToBuy, t)
		if err != nil {
			return nil, err
		}
		stableRes.Add(stableRes, stableForBond)
		bondActual.Sub(bondActual, bondToBuy)
	}

	if bondActual.Sign() == 0 {
		return nil, ErrNoBondReserves
	}

	net := new(big.Int).Add(bondIn, bondToBuy)
	shares := mulDivFloor(supply, net, bondActual)
	stableMatch := mulDivCeil(stableRes, shares, supply)
	stableTotal := new(big.Int).Add(stableForBond, stableMatch)

	newStable := new(big.Int).Add(stableRes, stableMatch)
	if newStable.Cmp(yieldmath.Max128) > 0 {
		return nil, ErrReserveOverflow
	}
	newVirtual := new(big.Int).Add(bondActual, net)
	newVirtual.Add(newVirtual, supply)
	newVirtual.Add(newVirtual, shares)
	if newVirtual.Cmp(yieldmath.Max128) > 0 {
		return nil, ErrReserveOverflow
	}

	return &mintSizing{
		shares:        shares,
		stableForBond: stableForBond,
		stableMatch:   stableMatch,
		stableTotal:   stableTotal,
	}, nil
}

// Mint adds proportional liquidity: bondIn bond tokens plus the
// matching stablecoin, bounded by maxStableIn. Shares go to to.
func (p *Pool) Mint(caller, from, to common.Address, bondIn, maxStableIn *big.Int) (*big.Int, error) {
	return p.TradeAndMint(caller, from, to, bondIn, new(big.Int), maxStableIn)
}

// TradeAndMint generalizes Mint with an optional one-sided sizing
// step: if bondToBuy is nonzero, a hypothetical bond buy is priced
// first (preview only) and its stablecoin cost folded into the
// proportional computation, letting a depositor join with stablecoin
// alone. Transfers, and the share mint, apply atomically at the end.
func (p *Pool) TradeAndMint(caller, from, to common.Address, bondIn, bondToBuy, maxStableIn *big.Int) (*big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorize(caller, from); err != nil {
		return nil, err
	}

	sizing, err := p.sizeMint(p.StableReserves(), p.ActualBondReserves(), p.shares.TotalSupply(), bondIn, bondToBuy)
	if err != nil {
		return nil, err
	}
	if sizing.stableTotal.Cmp(maxStableIn) > 0 {
		return nil, fmt.Errorf("%w: need %s stablecoin, max %s", ErrSlippage, sizing.stableTotal, maxStableIn)
	}

	if err := p.stable.TransferFrom(p.addr, from, p.addr, sizing.stableTotal); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	if bondIn.Sign() > 0 {
		if err := p.bond.TransferFrom(p.addr, from, p.addr, bondIn); err != nil {
			if rbErr := p.stable.Transfer(p.addr, from, sizing.stableTotal); rbErr != nil {
				p.log.Error("rollback failed after bond pull failure", "err", rbErr)
			}
			return nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
	}
	p.shares.mint(to, sizing.shares)

	p.log.Debug("liquidity minted",
		"maturity", p.maturity, "shares", sizing.shares,
		"stableIn", sizing.stableTotal, "bondIn", bondIn, "bondBought", bondToBuy)
	p.sink.HandleLiquidity(LiquidityEvent{
		Maturity:    p.maturity,
		From:        from,
		To:          to,
		StableDelta: neg(sizing.stableTotal),
		BondDelta:   neg(bondIn),
		ShareDelta:  new(big.Int).Set(sizing.shares),
	})
	return sizing.shares, nil
}

// burnSizing is the outcome of the pure burn computation.
type burnSizing struct {
	stableOut *big.Int
	bondOut   *big.Int
}

// sizeBurn computes a proportional redemption, optionally folding a
// sale of part of the redeemed bond leg back into the pool.
func (p *Pool) sizeBurn(stableRes, bondActual, supply, sharesBurned, bondToSell *big.Int) (*burnSizing, error) {
	if supply.Sign() == 0 {
		return nil, ErrNotInitialized
	}
	if sharesBurned.Sign() < 0 || bondToSell.Sign() < 0 {
		return nil, ErrInvalidAmount
	}
	if sharesBurned.Cmp(supply) > 0 {
		return nil, fmt.Errorf("%w: burn exceeds supply", ErrInvalidAmount)
	}

	stableOut := mulDivFloor(stableRes, sharesBurned, supply)
	bondOut := mulDivFloor(bondActual, sharesBurned, supply)

	if bondToSell.Sign() > 0 {
		// Selling redeemed bonds is a trade; it stays maturity-gated
		// even though the burn itself is not.
		t, err := p.timeToMaturity()
		if err != nil {
			return nil, err
		}
		if bondToSell.Cmp(bondOut) > 0 {
			return nil, fmt.Errorf("%w: cannot sell more than redeemed", ErrInvalidAmount)
		}
		foldedStable := new(big.Int).Sub(stableRes, stableOut)
		foldedVirtual := new(big.Int).Sub(bondActual, bondOut)
		foldedVirtual.Add(foldedVirtual, new(big.Int).Sub(supply, sharesBurned))
		extra, err := p.previewSellBondAt(foldedStable, foldedVirtual, bondToSell, t)
		if err != nil {
			return nil, err
		}
		stableOut.Add(stableOut, extra)
		bondOut.Sub(bondOut, bondToSell)
	}

	return &burnSizing{stableOut: stableOut, bondOut: bondOut}, nil
}

// Burn redeems sharesBurned for the proportional cut of both actual
// reserves, truncated toward zero. Available at any time, including
// after maturity.
func (p *Pool) Burn(caller, from, to common.Address, sharesBurned *big.Int) (*big.Int, *big.Int, error) {
	return p.BurnAndTrade(caller, from, to, sharesBurned, new(big.Int), new(big.Int))
}

// BurnAndTrade redeems and optionally sells bondToSell of the
// redeemed bond leg back into the pool in the same atomic step. The
// combined stablecoin proceeds must reach minStableOut.
func (p *Pool) BurnAndTrade(caller, from, to common.Address, sharesBurned, bondToSell, minStableOut *big.Int) (*big.Int, *big.Int, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.authorize(caller, from); err != nil {
		return nil, nil, err
	}

	sizing, err := p.sizeBurn(p.StableReserves(), p.ActualBondReserves(), p.shares.TotalSupply(), sharesBurned, bondToSell)
	if err != nil {
		return nil, nil, err
	}
	if sizing.stableOut.Cmp(minStableOut) < 0 {
		return nil, nil, fmt.Errorf("%w: stablecoin out %s below minimum %s", ErrSlippage, sizing.stableOut, minStableOut)
	}

	// Burn first so a share race cannot slip between check and apply;
	// pushes after it are unwound by re-minting on failure.
	if err := p.shares.burn(from, sharesBurned); err != nil {
		return nil, nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	if err := p.stable.Transfer(p.addr, to, sizing.stableOut); err != nil {
		p.shares.mint(from, sharesBurned)
		return nil, nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
	}
	if sizing.bondOut.Sign() > 0 {
		if err := p.bond.Transfer(p.addr, to, sizing.bondOut); err != nil {
			if rbErr := p.stable.Transfer(to, p.addr, sizing.stableOut); rbErr != nil {
				p.log.Error("rollback failed after bond push failure", "err", rbErr)
			}
			p.shares.mint(from, sharesBurned)
			return nil, nil, fmt.Errorf("%w: %s", ErrTransferFailed, err)
		}
	}

	p.log.Debug("liquidity burned",
		"maturity", p.maturity, "shares", sharesBurned,
		"stableOut", sizing.stableOut, "bondOut", sizing.bondOut, "bondSold", bondToSell)
	p.sink.HandleLiquidity(LiquidityEvent{
		Maturity:    p.maturity,
		From:        from,
		To:          to,
		StableDelta: new(big.Int).Set(sizing.stableOut),
		BondDelta:   new(big.Int).Set(sizing.bondOut),
		ShareDelta:  neg(sharesBurned),
	})
	return sizing.stableOut, sizing.bondOut, nil
}
