// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package registry indexes constructed pools by their market identity
// so integrators and roll operations can locate the counterpart pool
// for a pair and maturity.
package registry

import (
	"encoding/binary"
	"errors"
	"sync"

	"github.com/luxfi/geth/common"
	log "github.com/luxfi/log"
	"github.com/zeebo/blake3"

	"github.com/luxfi/yieldspace/pool"
)

var (
	ErrDuplicatePool = errors.New("pool already registered for market")
	ErrPoolNotFound  = errors.New("no pool registered for market")
)

// PoolID derives the market identifier from the two ledger ids and
// the bond maturity.
func PoolID(stable, bond common.Address, maturity uint64) common.Hash {
	h := blake3.New()
	h.Write(stable.Bytes())
	h.Write(bond.Bytes())
	var ts [8]byte
	binary.BigEndian.PutUint64(ts[:], maturity)
	h.Write(ts[:])
	var id common.Hash
	h.Digest().Read(id[:])
	return id
}

// Registry is a thread-safe index of live pools.
type Registry struct {
	mu    sync.RWMutex
	pools map[common.Hash]*pool.Pool
	log   log.Logger
}

func New(logger log.Logger) *Registry {
	if logger == nil {
		logger = log.NewTestLogger(log.InfoLevel)
	}
	return &Registry{pools: make(map[common.Hash]*pool.Pool), log: logger}
}

// Create constructs a pool from cfg and registers it under the given
// ledger ids in one step.
func (r *Registry) Create(stable, bond common.Address, cfg pool.Config) (*pool.Pool, error) {
	p, err := pool.New(cfg)
	if err != nil {
		return nil, err
	}
	if err := r.Register(stable, bond, p); err != nil {
		return nil, err
	}
	return p, nil
}

// Register adds p under the market formed by the given ledger ids and
// p's own maturity.
func (r *Registry) Register(stable, bond common.Address, p *pool.Pool) error {
	id := PoolID(stable, bond, p.Maturity())

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.pools[id]; ok {
		return ErrDuplicatePool
	}
	r.pools[id] = p
	r.log.Info("pool registered", "stable", stable, "bond", bond, "maturity", p.Maturity())
	return nil
}

// Lookup returns the pool for a pair and maturity.
func (r *Registry) Lookup(stable, bond common.Address, maturity uint64) (*pool.Pool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.pools[PoolID(stable, bond, maturity)]
	if !ok {
		return nil, ErrPoolNotFound
	}
	return p, nil
}

// Pools returns a snapshot of all registered pools.
func (r *Registry) Pools() []*pool.Pool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*pool.Pool, 0, len(r.pools))
	for _, p := range r.pools {
		out = append(out, p)
	}
	return out
}
