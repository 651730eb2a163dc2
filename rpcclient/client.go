// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package rpcclient provides an HTTP client for the remote ledger's JSON-RPC
// endpoint. It fetches current on-chain account state, the live slot and the
// latest blockhash; forks hydrate their overlays through it on cache miss.
package rpcclient

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	lru "github.com/hashicorp/golang-lru"
	"github.com/pkg/errors"

	"github.com/forkpoint/forkd/log"
	"github.com/forkpoint/forkd/metrics"
	"github.com/forkpoint/forkd/sol"
)

const (
	// DefaultTimeout bound on a single remote call.
	DefaultTimeout = 5 * time.Second

	// programCacheSize capacity of the shared executable-account cache.
	programCacheSize = 256
)

var (
	logger = log.WithContext("pkg", "rpcclient")

	metricFetchCounter = metrics.LazyLoadCounterVec("rpc_fetch_count", []string{"outcome"})
)

func countFetch(outcome string) {
	metricFetchCounter().AddWithLabel(1, map[string]string{"outcome": outcome})
}

// Client talks to a remote ledger node over JSON-RPC.
// Executable accounts (program code, effectively immutable) are cached
// across calls; everything else is fetched fresh every time.
type Client struct {
	url      string
	c        *http.Client
	timeout  time.Duration
	programs *lru.Cache
}

// New creates a new Client against the given RPC URL.
func New(url string) *Client {
	return NewWithHTTP(url, &http.Client{}, DefaultTimeout)
}

func NewWithHTTP(url string, c *http.Client, timeout time.Duration) *Client {
	programs, err := lru.New(programCacheSize)
	if err != nil {
		panic(err)
	}
	return &Client{
		url:      url,
		c:        c,
		timeout:  timeout,
		programs: programs,
	}
}

type rpcRequest struct {
	JSONRPC string `json:"jsonrpc"`
	ID      int    `json:"id"`
	Method  string `json:"method"`
	Params  []any  `json:"params,omitempty"`
}

type rpcError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

func (c *Client) call(ctx context.Context, method string, params []any, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(rpcRequest{JSONRPC: "2.0", ID: 1, Method: method, Params: params})
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.c.Do(req)
	if err != nil {
		return errors.WithMessagef(err, "%s failed", method)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.Errorf("%s: http status %d", method, resp.StatusCode)
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.WithMessagef(err, "%s read body", method)
	}
	var rpcResp rpcResponse
	if err := json.Unmarshal(raw, &rpcResp); err != nil {
		return errors.WithMessagef(err, "%s unmarshal", method)
	}
	if rpcResp.Error != nil {
		return errors.Errorf("%s: rpc error %d: %s", method, rpcResp.Error.Code, rpcResp.Error.Message)
	}
	return json.Unmarshal(rpcResp.Result, result)
}

type accountInfo struct {
	Lamports   uint64   `json:"lamports"`
	Owner      string   `json:"owner"`
	Data       []string `json:"data"` // [base64 payload, "base64"]
	Executable bool     `json:"executable"`
	RentEpoch  uint64   `json:"rentEpoch"`
}

type accountInfoResult struct {
	Value *accountInfo `json:"value"`
}

// GetAccount fetches the current on-chain state of an address.
// Returns an error wrapping sol.ErrAccountNotFound if the address does not
// exist on the ledger; any other error is a transport failure.
func (c *Client) GetAccount(ctx context.Context, addr sol.Address) (*sol.Account, error) {
	if cached, ok := c.programs.Get(addr); ok {
		countFetch("cache_hit")
		return cached.(*sol.Account).Copy(), nil
	}

	var result accountInfoResult
	params := []any{addr.String(), map[string]string{"encoding": "base64"}}
	if err := c.call(ctx, "getAccountInfo", params, &result); err != nil {
		countFetch("error")
		return nil, err
	}
	if result.Value == nil {
		countFetch("notfound")
		return nil, errors.WithMessage(sol.ErrAccountNotFound, addr.String())
	}
	countFetch("ok")

	acc, err := result.Value.toAccount()
	if err != nil {
		return nil, errors.WithMessagef(err, "account %s", addr)
	}
	if acc.Executable {
		c.programs.Add(addr, acc.Copy())
	}
	logger.Debug("fetched remote account", "addr", addr, "lamports", acc.Lamports)
	return acc, nil
}

func (a *accountInfo) toAccount() (*sol.Account, error) {
	owner, err := sol.ParseAddress(a.Owner)
	if err != nil {
		return nil, errors.WithMessage(err, "owner")
	}
	var data []byte
	if len(a.Data) > 0 && a.Data[0] != "" {
		if data, err = base64.StdEncoding.DecodeString(a.Data[0]); err != nil {
			return nil, errors.WithMessage(err, "data")
		}
	}
	return &sol.Account{
		Lamports:   a.Lamports,
		Owner:      owner,
		Data:       data,
		Executable: a.Executable,
		RentEpoch:  a.RentEpoch,
	}, nil
}

// GetSlot fetches the ledger's current slot.
func (c *Client) GetSlot(ctx context.Context) (uint64, error) {
	var slot uint64
	if err := c.call(ctx, "getSlot", nil, &slot); err != nil {
		return 0, err
	}
	return slot, nil
}

type latestBlockhashResult struct {
	Value struct {
		Blockhash string `json:"blockhash"`
	} `json:"value"`
}

// GetLatestBlockhash fetches the ledger's most recent blockhash.
func (c *Client) GetLatestBlockhash(ctx context.Context) (string, error) {
	var result latestBlockhashResult
	if err := c.call(ctx, "getLatestBlockhash", nil, &result); err != nil {
		return "", err
	}
	if result.Value.Blockhash == "" {
		return "", fmt.Errorf("getLatestBlockhash: empty result")
	}
	return result.Value.Blockhash, nil
}
