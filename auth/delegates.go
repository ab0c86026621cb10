// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

// Package auth holds the delegation authority: a registry of which
// operators may act on a principal's behalf in pool operations.
package auth

import (
	"sync"

	"github.com/luxfi/geth/common"
)

// Registry tracks principal -> operator approvals.
type Registry struct {
	mu        sync.RWMutex
	delegates map[common.Address]map[common.Address]bool
}

func NewRegistry() *Registry {
	return &Registry{delegates: make(map[common.Address]map[common.Address]bool)}
}

// Approve lets operator act for principal until revoked.
func (r *Registry) Approve(principal, operator common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	inner, ok := r.delegates[principal]
	if !ok {
		inner = make(map[common.Address]bool)
		r.delegates[principal] = inner
	}
	inner[operator] = true
}

// Revoke withdraws operator's approval for principal.
func (r *Registry) Revoke(principal, operator common.Address) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.delegates[principal], operator)
}

// IsDelegate reports whether operator may act for principal.
func (r *Registry) IsDelegate(principal, operator common.Address) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.delegates[principal][operator]
}
