// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package token

import (
	"math/big"
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

type stubClock struct{ now uint64 }

func (c *stubClock) Now() uint64 { return c.now }

var bondTreasury = common.HexToAddress("0xE000000000000000000000000000000000000009")

func TestBond_Redeem(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	clock := &stubClock{now: 1000}

	underlying := NewToken(db, tokenA, "Lux Dollar", "LUSD")
	bond := NewBond(db, tokenB, "LUSD Bond", "LUSDB", 2000, underlying, bondTreasury, clock)
	require.Equal(t, uint64(2000), bond.Maturity())

	require.NoError(t, underlying.Mint(bondTreasury, big.NewInt(1000)))
	require.NoError(t, bond.Mint(userX, big.NewInt(300)))

	require.ErrorIs(t, bond.Redeem(userX, big.NewInt(100)), ErrNotMatured)

	clock.now = 2000
	require.NoError(t, bond.Redeem(userX, big.NewInt(100)))
	require.Equal(t, big.NewInt(200), bond.BalanceOf(userX))
	require.Equal(t, big.NewInt(200), bond.TotalSupply())
	require.Equal(t, big.NewInt(100), underlying.BalanceOf(userX))
	require.Equal(t, big.NewInt(900), underlying.BalanceOf(bondTreasury))

	require.ErrorIs(t, bond.Redeem(userX, big.NewInt(500)), ErrInsufficientBalance)
}

func TestBond_RedeemUnfundedTreasury(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	clock := &stubClock{now: 3000}

	underlying := NewToken(db, tokenA, "Lux Dollar", "LUSD")
	bond := NewBond(db, tokenB, "LUSD Bond", "LUSDB", 2000, underlying, bondTreasury, clock)
	require.NoError(t, bond.Mint(userX, big.NewInt(300)))

	err := bond.Redeem(userX, big.NewInt(100))
	require.Error(t, err)
	// The burn is unwound when the treasury cannot pay.
	require.Equal(t, big.NewInt(300), bond.BalanceOf(userX))
	require.Equal(t, big.NewInt(300), bond.TotalSupply())
}
