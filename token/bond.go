// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
)

var (
	ErrNotMatured = errors.New("bond not yet matured")
)

// Clock supplies the current unix time for maturity checks.
type Clock interface {
	Now() uint64
}

type systemClock struct{}

func (systemClock) Now() uint64 { return uint64(time.Now().Unix()) }

// Bond is a zero-coupon bond token: a fungible ledger with a fixed
// maturity after which it redeems one for one against its underlying
// stablecoin out of a treasury account.
type Bond struct {
	*Token

	maturity   uint64
	underlying *Token
	treasury   common.Address
	clock      Clock
}

// NewBond creates a bond ledger maturing at maturity. Redemptions pay
// from treasury's balance on the underlying ledger; the treasury must
// be funded (and must approve nothing - redemption is a trusted
// ledger-level move). A nil clock reads the wall clock.
func NewBond(db database.Database, id common.Address, name, symbol string, maturity uint64, underlying *Token, treasury common.Address, clock Clock) *Bond {
	if clock == nil {
		clock = systemClock{}
	}
	return &Bond{
		Token:      NewToken(db, id, name, symbol),
		maturity:   maturity,
		underlying: underlying,
		treasury:   treasury,
		clock:      clock,
	}
}

// Maturity returns the redemption timestamp fixed at creation.
func (b *Bond) Maturity() uint64 { return b.maturity }

// Redeem burns amount of matured bonds held by holder and pays the
// same amount of the underlying stablecoin from the treasury.
func (b *Bond) Redeem(holder common.Address, amount *big.Int) error {
	if b.clock.Now() < b.maturity {
		return ErrNotMatured
	}
	v, err := toWord(amount)
	if err != nil {
		return err
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if err := b.burn(holder, v); err != nil {
		return err
	}
	if err := b.underlying.Transfer(b.treasury, holder, amount); err != nil {
		// Put the burned bonds back; redemption is all-or-nothing.
		balKey := b.balanceKey(holder)
		bal := b.read(balKey)
		_ = b.write(balKey, bal.Add(bal, v))
		supplyKey := makeKey(supplyPrefix, b.id.Bytes())
		supply := b.read(supplyKey)
		_ = b.write(supplyKey, supply.Add(supply, v))
		return fmt.Errorf("redemption transfer failed: %w", err)
	}
	return nil
}
