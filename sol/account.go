// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import "github.com/pkg/errors"

// ErrAccountNotFound reported when an address exists neither locally nor on
// the remote ledger. Distinct from transport failures reaching the remote.
var ErrAccountNotFound = errors.New("account not found")

// Account state of a single ledger account.
type Account struct {
	Lamports   uint64
	Owner      Address
	Data       []byte
	Executable bool
	RentEpoch  uint64
}

// NewAccount creates a zero-balance account owned by the given program.
func NewAccount(owner Address) *Account {
	return &Account{Owner: owner}
}

// Copy returns a deep copy of the account.
func (a *Account) Copy() *Account {
	cpy := *a
	cpy.Data = append([]byte(nil), a.Data...)
	return &cpy
}
