// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import (
	"github.com/mr-tron/base58"
	"github.com/pkg/errors"
)

const (
	// SignatureLength length of transaction signature in bytes.
	SignatureLength = 64
)

// Signature transaction signature, used here as the transaction's unique token.
type Signature [SignatureLength]byte

// String implements the stringer interface.
func (s Signature) String() string {
	return base58.Encode(s[:])
}

// IsZero returns whether the signature is all zero bytes.
func (s Signature) IsZero() bool {
	return s == Signature{}
}

// MarshalText implements encoding.TextMarshaler.
func (s Signature) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Signature) UnmarshalText(text []byte) error {
	parsed, err := ParseSignature(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseSignature converts a base58 string presented signature into Signature type.
func ParseSignature(str string) (Signature, error) {
	b, err := base58.Decode(str)
	if err != nil {
		return Signature{}, errors.WithMessage(err, "invalid signature")
	}
	if len(b) != SignatureLength {
		return Signature{}, errors.Errorf("invalid signature length %d", len(b))
	}
	var sig Signature
	copy(sig[:], b)
	return sig, nil
}
