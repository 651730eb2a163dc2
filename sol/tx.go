// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package sol

import (
	"encoding/base64"
	"encoding/binary"
	"encoding/json"

	"github.com/pkg/errors"
)

// system program instruction tags
const (
	SystemInstructionCreateAccount uint32 = 0
	SystemInstructionTransfer      uint32 = 2
)

// Instruction a single program invocation within a transaction.
// Account and program references are indexes into the transaction's key list.
type Instruction struct {
	ProgramIndex   uint8   `json:"programIndex"`
	AccountIndexes []uint8 `json:"accountIndexes"`
	Data           []byte  `json:"data"`
}

// Transaction a signed transaction against the ledger.
// Keys[0] is the fee payer. The signature is treated as an opaque unique
// token; no signature verification happens inside a fork sandbox.
type Transaction struct {
	Signature       Signature     `json:"signature"`
	Keys            []Address     `json:"keys"`
	Instructions    []Instruction `json:"instructions"`
	RecentBlockhash string        `json:"recentBlockhash"`
}

// Validate checks structural well-formedness of the transaction.
func (t *Transaction) Validate() error {
	if t.Signature.IsZero() {
		return errors.New("tx: missing signature")
	}
	if len(t.Keys) == 0 {
		return errors.New("tx: no account keys")
	}
	if len(t.Instructions) == 0 {
		return errors.New("tx: no instructions")
	}
	for i, ins := range t.Instructions {
		if int(ins.ProgramIndex) >= len(t.Keys) {
			return errors.Errorf("tx: instruction %d: program index out of range", i)
		}
		for _, ai := range ins.AccountIndexes {
			if int(ai) >= len(t.Keys) {
				return errors.Errorf("tx: instruction %d: account index out of range", i)
			}
		}
	}
	return nil
}

// EncodeBase64 encodes the transaction into its wire form, base64 over
// canonical JSON.
func (t *Transaction) EncodeBase64() (string, error) {
	b, err := json.Marshal(t)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// DecodeTransaction decodes and validates a wire-form transaction.
func DecodeTransaction(txBase64 string) (*Transaction, error) {
	raw, err := base64.StdEncoding.DecodeString(txBase64)
	if err != nil {
		return nil, errors.WithMessage(err, "tx: invalid base64")
	}
	var tx Transaction
	if err := json.Unmarshal(raw, &tx); err != nil {
		return nil, errors.WithMessage(err, "tx: invalid encoding")
	}
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	return &tx, nil
}

// NewTransfer builds a system-program transfer transaction moving lamports
// from one account to another.
func NewTransfer(sig Signature, from, to Address, lamports uint64) *Transaction {
	data := make([]byte, 12)
	binary.LittleEndian.PutUint32(data[:4], SystemInstructionTransfer)
	binary.LittleEndian.PutUint64(data[4:], lamports)

	return &Transaction{
		Signature: sig,
		Keys:      []Address{from, to, SystemProgramID},
		Instructions: []Instruction{{
			ProgramIndex:   2,
			AccountIndexes: []uint8{0, 1},
			Data:           data,
		}},
	}
}
