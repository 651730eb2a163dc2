// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package svm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/forkd/sol"
)

func TestTokenAccountPackUnpack(t *testing.T) {
	src := TokenAccount{
		Mint:   sol.BytesToAddress([]byte("mint")),
		Owner:  sol.BytesToAddress([]byte("owner")),
		Amount: 1_000_000,
		State:  TokenStateInitialized,
	}

	data := src.Pack()
	require.Len(t, data, TokenAccountLen)

	decoded, err := UnpackTokenAccount(data)
	require.NoError(t, err)
	assert.Equal(t, &src, decoded)
}

func TestUnpackTokenAccountBadLength(t *testing.T) {
	_, err := UnpackTokenAccount(make([]byte, 10))
	assert.Error(t, err)
}
