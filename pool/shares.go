// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package pool

import (
	"errors"
	"math/big"
	"sync"

	"github.com/luxfi/geth/common"
)

// Share ledger errors.
var (
	ErrInsufficientShares    = errors.New("insufficient share balance")
	ErrInsufficientAllowance = errors.New("insufficient share allowance")
)

// ShareLedger is the pool-owned fungible ledger of liquidity shares.
// Shares are created and destroyed only by the owning pool's mint and
// burn paths; holders may transfer and approve them freely.
type ShareLedger struct {
	mu sync.RWMutex

	name   string
	symbol string

	supply     *big.Int
	balances   map[common.Address]*big.Int
	allowances map[common.Address]map[common.Address]*big.Int
}

func newShareLedger(name, symbol string) *ShareLedger {
	return &ShareLedger{
		name:       name,
		symbol:     symbol,
		supply:     new(big.Int),
		balances:   make(map[common.Address]*big.Int),
		allowances: make(map[common.Address]map[common.Address]*big.Int),
	}
}

func (s *ShareLedger) Name() string   { return s.name }
func (s *ShareLedger) Symbol() string { return s.symbol }

// TotalSupply returns the outstanding share supply.
func (s *ShareLedger) TotalSupply() *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return new(big.Int).Set(s.supply)
}

// BalanceOf returns the share balance of account.
func (s *ShareLedger) BalanceOf(account common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if b, ok := s.balances[account]; ok {
		return new(big.Int).Set(b)
	}
	return new(big.Int)
}

// Transfer moves amount of shares from from's balance to to.
func (s *ShareLedger) Transfer(from, to common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.move(from, to, amount)
}

// Approve sets spender's allowance over owner's shares.
func (s *ShareLedger) Approve(owner, spender common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	inner, ok := s.allowances[owner]
	if !ok {
		inner = make(map[common.Address]*big.Int)
		s.allowances[owner] = inner
	}
	inner[spender] = new(big.Int).Set(amount)
	return nil
}

// Allowance returns spender's remaining allowance over owner's shares.
func (s *ShareLedger) Allowance(owner, spender common.Address) *big.Int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if inner, ok := s.allowances[owner]; ok {
		if a, ok := inner[spender]; ok {
			return new(big.Int).Set(a)
		}
	}
	return new(big.Int)
}

// TransferFrom moves shares out of from's balance under operator's
// allowance.
func (s *ShareLedger) TransferFrom(operator, from, to common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if operator != from {
		inner := s.allowances[from]
		a, ok := inner[operator]
		if !ok || a.Cmp(amount) < 0 {
			return ErrInsufficientAllowance
		}
		if err := s.move(from, to, amount); err != nil {
			return err
		}
		a.Sub(a, amount)
		return nil
	}
	return s.move(from, to, amount)
}

func (s *ShareLedger) move(from, to common.Address, amount *big.Int) error {
	if amount.Sign() < 0 {
		return ErrInvalidAmount
	}
	b, ok := s.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	b.Sub(b, amount)
	s.credit(to, amount)
	return nil
}

func (s *ShareLedger) credit(to common.Address, amount *big.Int) {
	if b, ok := s.balances[to]; ok {
		b.Add(b, amount)
		return
	}
	s.balances[to] = new(big.Int).Set(amount)
}

// mint and burn are reserved for the owning pool.

func (s *ShareLedger) mint(to common.Address, amount *big.Int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.supply.Add(s.supply, amount)
	s.credit(to, amount)
}

func (s *ShareLedger) burn(from common.Address, amount *big.Int) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.balances[from]
	if !ok || b.Cmp(amount) < 0 {
		return ErrInsufficientShares
	}
	b.Sub(b, amount)
	s.supply.Sub(s.supply, amount)
	return nil
}
