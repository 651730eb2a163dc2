// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package fork implements the fork lifecycle core: the Fork aggregate, the
// concurrent fork registry with TTL-based reaping, and the dispatcher that
// maps inbound operations onto forks.
package fork

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/forkpoint/forkd/log"
	"github.com/forkpoint/forkd/state"
	"github.com/forkpoint/forkd/svm"
)

var logger = log.WithContext("pkg", "fork")

// fork life-cycle states. Transitions are one way:
// active -> expired -> destroyed.
const (
	statusActive int32 = iota
	statusExpired
	statusDestroyed
)

// Fork an isolated, time-boxed, mutable snapshot session over remote
// ledger state. It owns its account overlay and transaction log; the
// registry owns the fork.
//
// Mutating operations (execute, balance writes) take the write lock;
// simulate and account reads take the read lock, so reads on one fork
// never block each other.
type Fork struct {
	id        string
	createdAt time.Time
	expiresAt time.Time

	overlay *state.Overlay
	txlog   *txLog
	engine  svm.Engine

	// guarded by lock
	slot      uint64
	blockhash string

	status atomic.Int32
	lock   sync.RWMutex
}

// Info a point-in-time snapshot of fork metadata.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	ExpiresAt time.Time `json:"expiresAt"`
	Slot      uint64    `json:"slot"`
	Blockhash string    `json:"blockhash,omitempty"`
	Accounts  int       `json:"accounts"`
}

func newFork(id string, ttl time.Duration, overlay *state.Overlay, engine svm.Engine, slot uint64, blockhash string) *Fork {
	now := time.Now()
	return &Fork{
		id:        id,
		createdAt: now,
		expiresAt: now.Add(ttl),
		overlay:   overlay,
		txlog:     newTxLog(),
		engine:    engine,
		slot:      slot,
		blockhash: blockhash,
	}
}

// ID returns the fork's globally unique identifier.
func (f *Fork) ID() string { return f.id }

// CreatedAt returns the fork's creation time.
func (f *Fork) CreatedAt() time.Time { return f.createdAt }

// ExpiresAt returns the absolute expiry deadline. Activity never extends it.
func (f *Fork) ExpiresAt() time.Time { return f.expiresAt }

// Slot returns the fork's logical height.
func (f *Fork) Slot() uint64 {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return f.slot
}

// Info returns a metadata snapshot.
func (f *Fork) Info() *Info {
	f.lock.RLock()
	defer f.lock.RUnlock()
	return &Info{
		ID:        f.id,
		CreatedAt: f.createdAt,
		ExpiresAt: f.expiresAt,
		Slot:      f.slot,
		Blockhash: f.blockhash,
		Accounts:  f.overlay.Len(),
	}
}

func (f *Fork) expired(now time.Time) bool {
	return !now.Before(f.expiresAt)
}

// usable reports whether new operations may start on the fork.
func (f *Fork) usable(now time.Time) bool {
	return f.status.Load() == statusActive && !f.expired(now)
}

// retire marks the fork expired so no new operation starts on it.
// Only the first caller wins; the winner must follow up with destroy.
func (f *Fork) retire() bool {
	return f.status.CompareAndSwap(statusActive, statusExpired)
}

// destroy waits out in-flight operations, then releases the overlay and
// the transaction log. Terminal.
func (f *Fork) destroy() {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.status.Store(statusDestroyed)
	f.overlay.Reset()
	f.txlog.close()
}
