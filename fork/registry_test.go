// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/forkd/sol"
	"github.com/forkpoint/forkd/svm"
)

// fakeRemote an in-memory stand-in for the remote ledger.
type fakeRemote struct {
	lock     sync.Mutex
	accounts map[sol.Address]*sol.Account
	fetches  map[sol.Address]int32
	slot     uint64
	down     bool
}

func newFakeRemote() *fakeRemote {
	return &fakeRemote{
		accounts: make(map[sol.Address]*sol.Account),
		fetches:  make(map[sol.Address]int32),
		slot:     1000,
	}
}

func (r *fakeRemote) set(addr sol.Address, acc *sol.Account) {
	r.lock.Lock()
	defer r.lock.Unlock()
	r.accounts[addr] = acc
}

func (r *fakeRemote) fetchCount(addr sol.Address) int32 {
	r.lock.Lock()
	defer r.lock.Unlock()
	return r.fetches[addr]
}

func (r *fakeRemote) GetAccount(_ context.Context, addr sol.Address) (*sol.Account, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return nil, errors.New("connection refused")
	}
	r.fetches[addr]++
	acc, ok := r.accounts[addr]
	if !ok {
		return nil, errors.WithMessage(sol.ErrAccountNotFound, addr.String())
	}
	return acc.Copy(), nil
}

func (r *fakeRemote) GetSlot(context.Context) (uint64, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return 0, errors.New("connection refused")
	}
	return atomic.LoadUint64(&r.slot), nil
}

func (r *fakeRemote) GetLatestBlockhash(context.Context) (string, error) {
	r.lock.Lock()
	defer r.lock.Unlock()
	if r.down {
		return "", errors.New("connection refused")
	}
	return "9sHcv6xwn9YkB8nxTUGKDwPwNnmqVp5oLXZPG8eSxtxp", nil
}

func newTestRegistry(remote Remote) *Registry {
	return NewRegistry(remote, svm.NewSystemEngine(), Options{
		TTL:          time.Minute,
		ReapInterval: time.Hour, // reap manually in tests
	})
}

func TestRegistryCreateGetDelete(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	f := reg.Create(context.Background())
	assert.NotEmpty(t, f.ID())
	assert.Equal(t, uint64(1000), f.Slot())
	assert.Equal(t, time.Minute, f.ExpiresAt().Sub(f.CreatedAt()))

	got, err := reg.Get(f.ID())
	require.NoError(t, err)
	assert.Same(t, f, got)

	require.NoError(t, reg.Delete(f.ID()))
	_, err = reg.Get(f.ID())
	assert.ErrorIs(t, err, ErrForkNotFound)

	// second delete is just another not-found
	assert.ErrorIs(t, reg.Delete(f.ID()), ErrForkNotFound)
}

func TestRegistryGetUnknown(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	_, err := reg.Get("never-issued")
	assert.ErrorIs(t, err, ErrForkNotFound)
}

func TestRegistryUniqueIDs(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		f := reg.Create(context.Background())
		assert.False(t, seen[f.ID()])
		seen[f.ID()] = true
	}
	assert.Equal(t, 100, reg.Len())
}

func TestRegistryCreateWithRemoteDown(t *testing.T) {
	remote := newFakeRemote()
	remote.down = true
	reg := newTestRegistry(remote)
	defer reg.Close()

	// creation must not depend on mainnet availability
	f := reg.Create(context.Background())
	assert.Equal(t, uint64(0), f.Slot())
}

func TestRegistryExpiry(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	f := reg.Create(context.Background())

	// expired forks disappear from lookup even before the reaper runs
	f.expiresAt = time.Now().Add(-time.Second)
	_, err := reg.Get(f.ID())
	assert.ErrorIs(t, err, ErrForkNotFound)
	assert.Equal(t, 1, reg.Len())

	reaped := reg.reap(time.Now())
	assert.Equal(t, 1, reaped)
	assert.Equal(t, 0, reg.Len())
}

func TestRegistryReapSkipsLive(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	live := reg.Create(context.Background())
	dead := reg.Create(context.Background())
	dead.expiresAt = time.Now().Add(-time.Second)

	assert.Equal(t, 1, reg.reap(time.Now()))

	_, err := reg.Get(live.ID())
	assert.NoError(t, err)
	_, err = reg.Get(dead.ID())
	assert.ErrorIs(t, err, ErrForkNotFound)
}

func TestRegistryReapRacesExplicitDelete(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	defer reg.Close()

	f := reg.Create(context.Background())
	f.expiresAt = time.Now().Add(-time.Second)

	require.NoError(t, reg.Delete(f.ID()))
	// the reaper tolerates candidates already deleted
	assert.Equal(t, 0, reg.reap(time.Now()))
}

func TestRegistryClose(t *testing.T) {
	reg := newTestRegistry(newFakeRemote())
	f := reg.Create(context.Background())

	reg.Close()
	_, err := reg.Get(f.ID())
	assert.ErrorIs(t, err, ErrForkNotFound)
}
