// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// AddressLength length of address in bytes.
	AddressLength = 32
)

// Address on-ledger account address.
type Address [AddressLength]byte

var (
	// SystemProgramID the system program, owner of plain balance accounts.
	SystemProgramID = Address{}

	// TokenProgramID the token program, owner of token balance accounts.
	TokenProgramID = MustParseAddress("TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA")
)

// String implements the stringer interface.
func (a Address) String() string {
	return base58.Encode(a[:])
}

// Bytes returns byte slice form of address.
func (a Address) Bytes() []byte {
	return a[:]
}

// IsZero returns whether the address is all zero bytes.
func (a Address) IsZero() bool {
	return a == Address{}
}

// MarshalText implements encoding.TextMarshaler.
func (a Address) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Address) UnmarshalText(text []byte) error {
	parsed, err := ParseAddress(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress converts a base58 string presented address into Address type.
func ParseAddress(s string) (Address, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return Address{}, errors.WithMessage(err, "invalid address")
	}
	if len(b) != AddressLength {
		return Address{}, errors.Errorf("invalid address length %d", len(b))
	}
	var addr Address
	copy(addr[:], b)
	return addr, nil
}

// MustParseAddress equivalent to ParseAddress, panics on error.
func MustParseAddress(s string) Address {
	addr, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return addr
}

// BytesToAddress converts bytes slice into address.
// If b is larger than address length, b will be cropped from the left.
func BytesToAddress(b []byte) Address {
	var addr Address
	if len(b) > AddressLength {
		b = b[len(b)-AddressLength:]
	}
	copy(addr[AddressLength-len(b):], b)
	return addr
}
