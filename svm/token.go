// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package svm

import (
	"encoding/binary"

	"github.com/pkg/errors"

	"github.com/forkpoint/forkd/sol"
)

const (
	// TokenAccountLen byte length of a packed token account.
	TokenAccountLen = 165

	// DefaultTokenAccountLamports lamports given to a synthesized token
	// account so it stays above the rent-exempt threshold.
	DefaultTokenAccountLamports = 1_000_000
)

// token account states
const (
	TokenStateUninitialized byte = iota
	TokenStateInitialized
	TokenStateFrozen
)

// TokenAccount the unpacked form of a token program account.
type TokenAccount struct {
	Mint   sol.Address
	Owner  sol.Address
	Amount uint64
	State  byte
}

// Pack serializes the token account into the token program's fixed
// 165-byte account layout:
//
//	mint(32) owner(32) amount(8) delegate(4+32) state(1)
//	isNative(4+8) delegatedAmount(8) closeAuthority(4+32)
//
// Optional fields are packed as absent.
func (t *TokenAccount) Pack() []byte {
	data := make([]byte, TokenAccountLen)
	copy(data[0:32], t.Mint[:])
	copy(data[32:64], t.Owner[:])
	binary.LittleEndian.PutUint64(data[64:72], t.Amount)
	data[108] = t.State
	return data
}

// UnpackTokenAccount deserializes a packed token account.
func UnpackTokenAccount(data []byte) (*TokenAccount, error) {
	if len(data) != TokenAccountLen {
		return nil, errors.Errorf("invalid token account data length %d", len(data))
	}
	var t TokenAccount
	copy(t.Mint[:], data[0:32])
	copy(t.Owner[:], data[32:64])
	t.Amount = binary.LittleEndian.Uint64(data[64:72])
	t.State = data[108]
	return &t, nil
}
