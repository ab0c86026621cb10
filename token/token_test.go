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

var (
	tokenA = common.HexToAddress("0xD000000000000000000000000000000000000001")
	tokenB = common.HexToAddress("0xD000000000000000000000000000000000000002")
	userX  = common.HexToAddress("0xE000000000000000000000000000000000000001")
	userY  = common.HexToAddress("0xE000000000000000000000000000000000000002")
	userZ  = common.HexToAddress("0xE000000000000000000000000000000000000003")
)

func TestToken_MintAndTransfer(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	tok := NewToken(db, tokenA, "Lux Dollar", "LUSD")

	require.NoError(t, tok.Mint(userX, big.NewInt(1000)))
	require.Equal(t, big.NewInt(1000), tok.BalanceOf(userX))
	require.Equal(t, big.NewInt(1000), tok.TotalSupply())

	require.NoError(t, tok.Transfer(userX, userY, big.NewInt(400)))
	require.Equal(t, big.NewInt(600), tok.BalanceOf(userX))
	require.Equal(t, big.NewInt(400), tok.BalanceOf(userY))
	require.Equal(t, big.NewInt(1000), tok.TotalSupply())

	err := tok.Transfer(userX, userY, big.NewInt(601))
	require.ErrorIs(t, err, ErrInsufficientBalance)
	require.Equal(t, big.NewInt(600), tok.BalanceOf(userX))
}

func TestToken_TransferFromAllowance(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	tok := NewToken(db, tokenA, "Lux Dollar", "LUSD")
	require.NoError(t, tok.Mint(userX, big.NewInt(1000)))

	err := tok.TransferFrom(userZ, userX, userY, big.NewInt(100))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	require.NoError(t, tok.Approve(userX, userZ, big.NewInt(300)))
	require.Equal(t, big.NewInt(300), tok.Allowance(userX, userZ))

	require.NoError(t, tok.TransferFrom(userZ, userX, userY, big.NewInt(100)))
	require.Equal(t, big.NewInt(200), tok.Allowance(userX, userZ))
	require.Equal(t, big.NewInt(100), tok.BalanceOf(userY))

	err = tok.TransferFrom(userZ, userX, userY, big.NewInt(201))
	require.ErrorIs(t, err, ErrInsufficientAllowance)

	// Moving one's own funds needs no allowance.
	require.NoError(t, tok.TransferFrom(userX, userX, userY, big.NewInt(50)))
}

func TestToken_AmountValidation(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	tok := NewToken(db, tokenA, "Lux Dollar", "LUSD")

	require.ErrorIs(t, tok.Mint(userX, big.NewInt(-1)), ErrAmountOverflow)
	over := new(big.Int).Lsh(big.NewInt(1), 256)
	require.ErrorIs(t, tok.Transfer(userX, userY, over), ErrAmountOverflow)
}

func TestToken_SharedDatabaseNamespacing(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	a := NewToken(db, tokenA, "A", "A")
	b := NewToken(db, tokenB, "B", "B")

	require.NoError(t, a.Mint(userX, big.NewInt(500)))
	require.Equal(t, big.NewInt(500), a.BalanceOf(userX))
	require.Zero(t, b.BalanceOf(userX).Sign())
	require.Zero(t, b.TotalSupply().Sign())
}
