// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package registry

import (
	"testing"

	"github.com/luxfi/database/memdb"
	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/yieldspace/pool"
	"github.com/luxfi/yieldspace/token"
)

var (
	regStableID = common.HexToAddress("0xCCCC000000000000000000000000000000000011")
	regBondID   = common.HexToAddress("0xCCCC000000000000000000000000000000000012")
	regTreasury = common.HexToAddress("0xCCCC000000000000000000000000000000000013")
)

type stubClock struct{ now uint64 }

func (c *stubClock) Now() uint64 { return c.now }

func newTestPool(t *testing.T, addr common.Address, maturity uint64) (*pool.Pool, *token.Token, *token.Bond) {
	t.Helper()
	db := memdb.New()
	t.Cleanup(func() { db.Close() })

	clock := &stubClock{now: 1000}
	stable := token.NewToken(db, regStableID, "Lux Dollar", "LUSD")
	bond := token.NewBond(db, regBondID, "LUSD Bond", "LUSDB", maturity, stable, regTreasury, clock)
	p, err := pool.New(pool.Config{Address: addr, Stable: stable, Bond: bond, Clock: clock})
	require.NoError(t, err)
	return p, stable, bond
}

func TestPoolID_Distinct(t *testing.T) {
	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")

	base := PoolID(a, b, 100)
	require.Equal(t, base, PoolID(a, b, 100))
	require.NotEqual(t, base, PoolID(b, a, 100))
	require.NotEqual(t, base, PoolID(a, b, 101))
}

func TestRegistry_RegisterAndLookup(t *testing.T) {
	addr := common.HexToAddress("0xAAAA000000000000000000000000000000000011")
	p, stable, bond := newTestPool(t, addr, 5000)

	r := New(nil)
	require.NoError(t, r.Register(stable.ID(), bond.ID(), p))

	got, err := r.Lookup(stable.ID(), bond.ID(), 5000)
	require.NoError(t, err)
	require.Same(t, p, got)

	_, err = r.Lookup(stable.ID(), bond.ID(), 6000)
	require.ErrorIs(t, err, ErrPoolNotFound)

	require.ErrorIs(t, r.Register(stable.ID(), bond.ID(), p), ErrDuplicatePool)
	require.Len(t, r.Pools(), 1)
}

func TestRegistry_Create(t *testing.T) {
	db := memdb.New()
	defer db.Close()
	clock := &stubClock{now: 1000}
	stable := token.NewToken(db, regStableID, "Lux Dollar", "LUSD")
	bond := token.NewBond(db, regBondID, "LUSD Bond", "LUSDB", 5000, stable, regTreasury, clock)

	r := New(nil)
	addr := common.HexToAddress("0xAAAA000000000000000000000000000000000012")
	p, err := r.Create(stable.ID(), bond.ID(), pool.Config{Address: addr, Stable: stable, Bond: bond, Clock: clock})
	require.NoError(t, err)

	got, err := r.Lookup(stable.ID(), bond.ID(), 5000)
	require.NoError(t, err)
	require.Same(t, p, got)

	// A second market at the same identity is rejected before a pool
	// can shadow the first.
	_, err = r.Create(stable.ID(), bond.ID(), pool.Config{Address: addr, Stable: stable, Bond: bond, Clock: clock})
	require.ErrorIs(t, err, ErrDuplicatePool)
}
