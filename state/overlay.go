// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package state implements the per-fork account overlay: a read-through
// cache from address to account record, hydrated lazily from the remote
// ledger, with local overrides taking precedence over later fetches.
package state

import (
	"context"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/forkpoint/forkd/log"
	"github.com/forkpoint/forkd/sol"
)

var logger = log.WithContext("pkg", "state")

// Origin says where an overlay record came from.
type Origin byte

const (
	// OriginFetched record hydrated from the remote ledger.
	OriginFetched Origin = iota
	// OriginLocal record written locally; wins over any later fetch.
	OriginLocal
)

// Record an account entry in the overlay.
type Record struct {
	Account sol.Account
	Origin  Origin
}

// Fetcher fetches current on-chain account state. Implementations must
// return an error wrapping sol.ErrAccountNotFound for absent addresses and
// bound each call with a timeout.
type Fetcher interface {
	GetAccount(ctx context.Context, addr sol.Address) (*sol.Account, error)
}

// Overlay per-fork account state overlay.
//
// The internal lock guards only the map; it is never held across a remote
// fetch. Concurrent Gets for the same uncached address are collapsed into a
// single remote call.
type Overlay struct {
	lock    sync.Mutex
	entries map[sol.Address]*Record
	fetcher Fetcher
	group   singleflight.Group
}

// New creates an empty overlay backed by the given fetcher.
func New(fetcher Fetcher) *Overlay {
	return &Overlay{
		entries: make(map[sol.Address]*Record),
		fetcher: fetcher,
	}
}

// Cached returns the overlay entry for addr without triggering a fetch.
func (o *Overlay) Cached(addr sol.Address) (*Record, bool) {
	o.lock.Lock()
	defer o.lock.Unlock()
	rec, ok := o.entries[addr]
	if !ok {
		return nil, false
	}
	return rec.copy(), true
}

// Get returns the overlay entry for addr, hydrating it from the remote
// ledger on local miss. The fetched result is stored tagged OriginFetched
// and served from the overlay on every later access. Remote not-found and
// transport failures are reported as-is; nothing is stored in either case.
func (o *Overlay) Get(ctx context.Context, addr sol.Address) (*Record, error) {
	if rec, ok := o.Cached(addr); ok {
		return rec, nil
	}

	v, err, _ := o.group.Do(addr.String(), func() (any, error) {
		// another flight may have hydrated it meanwhile
		if rec, ok := o.Cached(addr); ok {
			return rec, nil
		}
		acc, err := o.fetcher.GetAccount(ctx, addr)
		if err != nil {
			return nil, err
		}
		rec := &Record{Account: *acc, Origin: OriginFetched}

		o.lock.Lock()
		// a local write that raced the fetch wins
		if existing, ok := o.entries[addr]; ok {
			rec = existing
		} else {
			o.entries[addr] = rec
		}
		o.lock.Unlock()

		logger.Trace("hydrated account", "addr", addr)
		return rec.copy(), nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Record), nil
}

// Set overwrites the entry for addr with a local record. Creates the entry
// if absent; always succeeds.
func (o *Overlay) Set(addr sol.Address, acc sol.Account) {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.entries[addr] = &Record{Account: *acc.Copy(), Origin: OriginLocal}
}

// ApplyEffects commits a batch of account deltas produced by a successful
// execution. All written records are tagged OriginLocal so a later stale
// remote fetch can never clobber engine-produced state.
func (o *Overlay) ApplyEffects(deltas map[sol.Address]*sol.Account) {
	o.lock.Lock()
	defer o.lock.Unlock()
	for addr, acc := range deltas {
		o.entries[addr] = &Record{Account: *acc.Copy(), Origin: OriginLocal}
	}
}

// Len returns the number of entries held by the overlay.
func (o *Overlay) Len() int {
	o.lock.Lock()
	defer o.lock.Unlock()
	return len(o.entries)
}

// Reset drops all entries, releasing the overlay's memory.
func (o *Overlay) Reset() {
	o.lock.Lock()
	defer o.lock.Unlock()
	o.entries = make(map[sol.Address]*Record)
}

func (r *Record) copy() *Record {
	return &Record{Account: *r.Account.Copy(), Origin: r.Origin}
}
