// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package token provides working implementations of the pool's asset
// ledger collaborators: an ERC20-style fungible token and a
// fixed-maturity zero-coupon bond, both persisted in a key-value
// database. These are trusted-caller ledgers: authorization beyond
// balances and allowances is the embedding system's concern.
package token

import (
	"errors"
	"fmt"
	"math/big"
	"sync"

	"github.com/holiman/uint256"
	"github.com/luxfi/database"
	"github.com/luxfi/geth/common"
	"github.com/zeebo/blake3"
)

// Storage key prefixes.
var (
	balancePrefix   = []byte("tok/bal")
	allowancePrefix = []byte("tok/alw")
	supplyPrefix    = []byte("tok/sup")
)

var (
	ErrInsufficientBalance   = errors.New("insufficient balance")
	ErrInsufficientAllowance = errors.New("insufficient allowance")
	ErrAmountOverflow        = errors.New("amount out of range")
	ErrSupplyOverflow        = errors.New("supply overflow")
)

// makeKey derives a storage key from a prefix and identifier parts.
func makeKey(prefix []byte, parts ...[]byte) []byte {
	h := blake3.New()
	h.Write(prefix)
	for _, part := range parts {
		h.Write(part)
	}
	key := make([]byte, 32)
	h.Digest().Read(key)
	return key
}

// Token is a fungible asset ledger with ERC20 transfer semantics,
// balances stored as 256-bit words in the backing database.
type Token struct {
	mu sync.RWMutex

	db     database.Database
	id     common.Address
	name   string
	symbol string
}

// NewToken creates a ledger identified by id over db. The id
// namespaces this token's keys so many tokens can share a database.
func NewToken(db database.Database, id common.Address, name, symbol string) *Token {
	return &Token{db: db, id: id, name: name, symbol: symbol}
}

func (t *Token) ID() common.Address { return t.id }
func (t *Token) Name() string       { return t.name }
func (t *Token) Symbol() string     { return t.symbol }

// TotalSupply returns the outstanding token supply.
func (t *Token) TotalSupply() *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(makeKey(supplyPrefix, t.id.Bytes())).ToBig()
}

// BalanceOf returns account's balance.
func (t *Token) BalanceOf(account common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(t.balanceKey(account)).ToBig()
}

// Allowance returns spender's remaining allowance over owner's funds.
func (t *Token) Allowance(owner, spender common.Address) *big.Int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.read(t.allowanceKey(owner, spender)).ToBig()
}

// Mint credits amount to to, growing the supply.
func (t *Token) Mint(to common.Address, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	supplyKey := makeKey(supplyPrefix, t.id.Bytes())
	supply, overflow := new(uint256.Int).AddOverflow(t.read(supplyKey), v)
	if overflow {
		return ErrSupplyOverflow
	}
	balKey := t.balanceKey(to)
	bal := new(uint256.Int).Add(t.read(balKey), v)
	if err := t.write(supplyKey, supply); err != nil {
		return err
	}
	return t.write(balKey, bal)
}

// Approve sets spender's allowance over owner's funds.
func (t *Token) Approve(owner, spender common.Address, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.write(t.allowanceKey(owner, spender), v)
}

// Transfer moves amount from from's own balance to to.
func (t *Token) Transfer(from, to common.Address, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.move(from, to, v)
}

// TransferFrom moves amount out of from's balance under operator's
// allowance. An operator moving its own funds needs no allowance.
func (t *Token) TransferFrom(operator, from, to common.Address, amount *big.Int) error {
	v, err := toWord(amount)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	if operator != from {
		alwKey := t.allowanceKey(from, operator)
		allowance := t.read(alwKey)
		if allowance.Lt(v) {
			return fmt.Errorf("%w: %s of %s", ErrInsufficientAllowance, v, allowance)
		}
		if err := t.move(from, to, v); err != nil {
			return err
		}
		return t.write(alwKey, new(uint256.Int).Sub(allowance, v))
	}
	return t.move(from, to, v)
}

func (t *Token) move(from, to common.Address, v *uint256.Int) error {
	fromKey := t.balanceKey(from)
	fromBal := t.read(fromKey)
	if fromBal.Lt(v) {
		return fmt.Errorf("%w: %s of %s", ErrInsufficientBalance, v, fromBal)
	}
	if from == to || v.IsZero() {
		return nil
	}
	toKey := t.balanceKey(to)
	toBal := new(uint256.Int).Add(t.read(toKey), v)
	if err := t.write(fromKey, new(uint256.Int).Sub(fromBal, v)); err != nil {
		return err
	}
	return t.write(toKey, toBal)
}

func (t *Token) balanceKey(account common.Address) []byte {
	return makeKey(balancePrefix, t.id.Bytes(), account.Bytes())
}

func (t *Token) allowanceKey(owner, spender common.Address) []byte {
	return makeKey(allowancePrefix, t.id.Bytes(), owner.Bytes(), spender.Bytes())
}

func (t *Token) read(key []byte) *uint256.Int {
	raw, err := t.db.Get(key)
	if err != nil || len(raw) != 32 {
		return new(uint256.Int)
	}
	var word [32]byte
	copy(word[:], raw)
	return new(uint256.Int).SetBytes32(word[:])
}

func (t *Token) write(key []byte, v *uint256.Int) error {
	word := v.Bytes32()
	return t.db.Put(key, word[:])
}

// burn debits amount from from and shrinks the supply. Used by the
// bond's par redemption.
func (t *Token) burn(from common.Address, v *uint256.Int) error {
	balKey := t.balanceKey(from)
	bal := t.read(balKey)
	if bal.Lt(v) {
		return fmt.Errorf("%w: %s of %s", ErrInsufficientBalance, v, bal)
	}
	supplyKey := makeKey(supplyPrefix, t.id.Bytes())
	supply := new(uint256.Int).Sub(t.read(supplyKey), v)
	if err := t.write(balKey, new(uint256.Int).Sub(bal, v)); err != nil {
		return err
	}
	return t.write(supplyKey, supply)
}

func toWord(amount *big.Int) (*uint256.Int, error) {
	if amount.Sign() < 0 {
		return nil, ErrAmountOverflow
	}
	v, overflow := uint256.FromBig(amount)
	if overflow {
		return nil, ErrAmountOverflow
	}
	return v, nil
}
