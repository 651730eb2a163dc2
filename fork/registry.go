// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import (
	"context"
	"sync"
	"time"

	"github.com/pborman/uuid"

	"github.com/forkpoint/forkd/co"
	"github.com/forkpoint/forkd/state"
	"github.com/forkpoint/forkd/svm"
)

const (
	// DefaultTTL fixed fork lifetime, absolute from creation.
	DefaultTTL = 15 * time.Minute

	// DefaultReapInterval how often the reaper scans for expired forks.
	DefaultReapInterval = 30 * time.Second
)

// Remote the remote-ledger collaborator forks hydrate from.
type Remote interface {
	state.Fetcher
	GetSlot(ctx context.Context) (uint64, error)
	GetLatestBlockhash(ctx context.Context) (string, error)
}

// Options registry options.
type Options struct {
	TTL          time.Duration
	ReapInterval time.Duration
}

// Registry the concurrent keyed collection of live forks. It exclusively
// owns every Fork; nothing outside holds a fork past one dispatched
// operation. Close is required to be called at end.
type Registry struct {
	remote Remote
	engine svm.Engine
	ttl    time.Duration
	reapIv time.Duration

	lock  sync.RWMutex
	forks map[string]*Fork

	ctx    context.Context
	cancel func()
	goes   co.Goes
}

// NewRegistry creates a registry and starts its expiry reaper.
func NewRegistry(remote Remote, engine svm.Engine, opts Options) *Registry {
	if opts.TTL == 0 {
		opts.TTL = DefaultTTL
	}
	if opts.ReapInterval == 0 {
		opts.ReapInterval = DefaultReapInterval
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &Registry{
		remote: remote,
		engine: engine,
		ttl:    opts.TTL,
		reapIv: opts.ReapInterval,
		forks:  make(map[string]*Fork),
		ctx:    ctx,
		cancel: cancel,
	}
	r.goes.Go(r.housekeeping)
	return r
}

// Create constructs a new active fork and returns it. The fork's clock is
// seeded from the remote ledger's live slot and blockhash; if the remote is
// unreachable the fork is still created at slot zero, since creation must
// not depend on mainnet availability.
func (r *Registry) Create(ctx context.Context) *Fork {
	var (
		slot      uint64
		blockhash string
	)
	if s, err := r.remote.GetSlot(ctx); err != nil {
		logger.Warn("unable to seed fork slot from remote", "err", err)
	} else {
		slot = s
		if bh, err := r.remote.GetLatestBlockhash(ctx); err != nil {
			logger.Warn("unable to seed fork blockhash from remote", "err", err)
		} else {
			blockhash = bh
		}
	}

	id := uuid.NewRandom().String()
	f := newFork(id, r.ttl, state.New(r.remote), r.engine, slot, blockhash)

	r.lock.Lock()
	r.forks[id] = f
	r.lock.Unlock()

	metricForksCreated().Add(1)
	metricLiveForks().Add(1)
	logger.Info("fork created", "id", id, "slot", slot, "expires", f.expiresAt)
	return f
}

// Get returns the fork for id. Unknown, expired and destroyed ids all
// report ErrForkNotFound.
func (r *Registry) Get(id string) (*Fork, error) {
	r.lock.RLock()
	f, ok := r.forks[id]
	r.lock.RUnlock()
	if !ok || !f.usable(time.Now()) {
		return nil, ErrForkNotFound
	}
	return f, nil
}

// Delete destroys the fork for id and removes it from the registry.
// A second delete of the same id is just another ErrForkNotFound.
func (r *Registry) Delete(id string) error {
	f, ok := r.remove(id)
	if !ok {
		return ErrForkNotFound
	}
	f.retire()
	f.destroy()
	metricLiveForks().Add(-1)
	metricForksRemoved().AddWithLabel(1, map[string]string{"reason": "deleted"})
	logger.Info("fork deleted", "id", id)
	return nil
}

// remove detaches the fork from the registry. Only one caller can win the
// removal of a given id, which keeps destroy single-shot even when explicit
// delete races the reaper.
func (r *Registry) remove(id string) (*Fork, bool) {
	r.lock.Lock()
	defer r.lock.Unlock()
	f, ok := r.forks[id]
	if !ok {
		return nil, false
	}
	delete(r.forks, id)
	return f, true
}

// Len returns the number of forks held, including expired not-yet-reaped ones.
func (r *Registry) Len() int {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return len(r.forks)
}

// Close stops the reaper and destroys all forks.
func (r *Registry) Close() {
	r.cancel()
	r.goes.Wait()

	r.lock.Lock()
	forks := r.forks
	r.forks = make(map[string]*Fork)
	r.lock.Unlock()

	for _, f := range forks {
		f.retire()
		f.destroy()
	}
	metricLiveForks().Set(0)
}
