// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import (
	"sync"
	"time"

	"github.com/forkpoint/forkd/sol"
)

// Kind how a transaction was admitted.
type Kind string

const (
	KindExecute  Kind = "execute"
	KindSimulate Kind = "simulate"
)

// TransactionRecord one simulate/execute attempt. Immutable once appended.
type TransactionRecord struct {
	Signature sol.Signature `json:"signature"`
	Slot      uint64        `json:"slot"`
	Kind      Kind          `json:"kind"`
	Success   bool          `json:"success"`
	Logs      []string      `json:"logs"`
	Err       string        `json:"error,omitempty"`
	Time      time.Time     `json:"time"`
}

// txLog append-only ordered record of transaction attempts on one fork.
// Append order matches the order operations were admitted on the fork.
type txLog struct {
	lock    sync.Mutex
	records []TransactionRecord
	subs    map[chan TransactionRecord]struct{}
	closed  bool
}

func newTxLog() *txLog {
	return &txLog{
		subs: make(map[chan TransactionRecord]struct{}),
	}
}

func (l *txLog) append(rec TransactionRecord) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return
	}
	l.records = append(l.records, rec)
	for ch := range l.subs {
		select {
		case ch <- rec:
		default: // slow subscriber, drop
		}
	}
}

// slice returns records of the given kind in append order.
// An empty kind returns everything.
func (l *txLog) slice(kind Kind) []TransactionRecord {
	l.lock.Lock()
	defer l.lock.Unlock()
	out := make([]TransactionRecord, 0, len(l.records))
	for _, rec := range l.records {
		if kind == "" || rec.Kind == kind {
			out = append(out, rec)
		}
	}
	return out
}

// subscribe registers a channel receiving records as they are appended.
// The channel is closed when the log is destroyed.
func (l *txLog) subscribe() chan TransactionRecord {
	l.lock.Lock()
	defer l.lock.Unlock()
	ch := make(chan TransactionRecord, 64)
	if l.closed {
		close(ch)
		return ch
	}
	l.subs[ch] = struct{}{}
	return ch
}

func (l *txLog) unsubscribe(ch chan TransactionRecord) {
	l.lock.Lock()
	defer l.lock.Unlock()
	if _, ok := l.subs[ch]; ok {
		delete(l.subs, ch)
		close(ch)
	}
}

// close drops records and terminates all subscribers.
func (l *txLog) close() {
	l.lock.Lock()
	defer l.lock.Unlock()
	if l.closed {
		return
	}
	l.closed = true
	l.records = nil
	for ch := range l.subs {
		close(ch)
	}
	l.subs = make(map[chan TransactionRecord]struct{})
}
