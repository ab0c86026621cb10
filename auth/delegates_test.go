// Copyright (C) 2025, Lux Industries Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package auth

import (
	"testing"

	"github.com/luxfi/geth/common"
	"github.com/stretchr/testify/require"
)

func TestRegistry_ApproveRevoke(t *testing.T) {
	principal := common.HexToAddress("0x1111111111111111111111111111111111111111")
	operator := common.HexToAddress("0x2222222222222222222222222222222222222222")
	stranger := common.HexToAddress("0x3333333333333333333333333333333333333333")

	r := NewRegistry()
	require.False(t, r.IsDelegate(principal, operator))

	r.Approve(principal, operator)
	require.True(t, r.IsDelegate(principal, operator))
	require.False(t, r.IsDelegate(principal, stranger))
	// Delegation is directional.
	require.False(t, r.IsDelegate(operator, principal))

	r.Revoke(principal, operator)
	require.False(t, r.IsDelegate(principal, operator))

	// Revoking an absent pair is a no-op.
	r.Revoke(stranger, operator)
}
