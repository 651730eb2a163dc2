// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package forks

import (
	"github.com/forkpoint/forkd/sol"
)

// ExecuteRequest body of execute/simulate requests. The transaction travels
// base64 encoded, same as it would be submitted to a real node.
type ExecuteRequest struct {
	TxBase64 string `json:"tx_base64"`
}

// SetLamportsRequest body of set_lamports requests.
type SetLamportsRequest struct {
	Pubkey   string `json:"pubkey"`
	Lamports uint64 `json:"lamports"`
}

// SetTokenBalanceRequest body of set_token_balance requests.
type SetTokenBalanceRequest struct {
	TokenAccount string `json:"token_account"`
	Mint         string `json:"mint"`
	Owner        string `json:"owner"`
	Amount       uint64 `json:"amount"`
}

// Account JSON presentation of an account record.
type Account struct {
	Lamports   uint64      `json:"lamports"`
	Owner      sol.Address `json:"owner"`
	Data       []byte      `json:"data"`
	Executable bool        `json:"executable"`
	RentEpoch  uint64      `json:"rentEpoch"`
}

func convertAccount(acc *sol.Account) *Account {
	return &Account{
		Lamports:   acc.Lamports,
		Owner:      acc.Owner,
		Data:       acc.Data,
		Executable: acc.Executable,
		RentEpoch:  acc.RentEpoch,
	}
}
