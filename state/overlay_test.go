// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package state_test

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
	"github.com/forkpoint/forkd/state"
)

type fakeFetcher struct {
	lock     sync.Mutex
	accounts map[sol.Address]*sol.Account
	fetches  int32
	delay    time.Duration
	err      error
}

func (f *fakeFetcher) GetAccount(_ context.Context, addr sol.Address) (*sol.Account, error) {
	atomic.AddInt32(&f.fetches, 1)
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if f.err != nil {
		return nil, f.err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	acc, ok := f.accounts[addr]
	if !ok {
		return nil, errors.WithMessage(sol.ErrAccountNotFound, addr.String())
	}
	return acc.Copy(), nil
}

func (f *fakeFetcher) fetchCount() int32 {
	return atomic.LoadInt32(&f.fetches)
}

func TestOverlayReadThrough(t *testing.T) {
	addr := sol.BytesToAddress([]byte("acc1"))
	fetcher := &fakeFetcher{accounts: map[sol.Address]*sol.Account{
		addr: {Lamports: 42, Owner: sol.SystemProgramID},
	}}
	overlay := state.New(fetcher)

	rec, err := overlay.Get(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(42), rec.Account.Lamports)
	assert.Equal(t, state.OriginFetched, rec.Origin)

	// second access served from the overlay
	_, err = overlay.Get(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetcher.fetchCount())
}

func TestOverlayLocalOverrideWins(t *testing.T) {
	addr := sol.BytesToAddress([]byte("acc1"))
	fetcher := &fakeFetcher{accounts: map[sol.Address]*sol.Account{
		addr: {Lamports: 42, Owner: sol.SystemProgramID},
	}}
	overlay := state.New(fetcher)

	overlay.Set(addr, sol.Account{Lamports: 7, Owner: sol.SystemProgramID})

	rec, err := overlay.Get(context.Background(), addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), rec.Account.Lamports)
	assert.Equal(t, state.OriginLocal, rec.Origin)
	assert.Equal(t, int32(0), fetcher.fetchCount())
}

func TestOverlayNotFound(t *testing.T) {
	overlay := state.New(&fakeFetcher{})

	_, err := overlay.Get(context.Background(), sol.BytesToAddress([]byte("nope")))
	assert.True(t, errors.Is(err, sol.ErrAccountNotFound))

	// not-found results are not cached
	assert.Equal(t, 0, overlay.Len())
}

func TestOverlayFetchError(t *testing.T) {
	fetcher := &fakeFetcher{err: errors.New("connection refused")}
	overlay := state.New(fetcher)

	_, err := overlay.Get(context.Background(), sol.BytesToAddress([]byte("acc1")))
	require.Error(t, err)
	assert.False(t, errors.Is(err, sol.ErrAccountNotFound))
	assert.Equal(t, 0, overlay.Len())
}

func TestOverlaySingleFlight(t *testing.T) {
	addr := sol.BytesToAddress([]byte("hot"))
	fetcher := &fakeFetcher{
		accounts: map[sol.Address]*sol.Account{
			addr: {Lamports: 1, Owner: sol.SystemProgramID},
		},
		delay: 50 * time.Millisecond,
	}
	overlay := state.New(fetcher)

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			rec, err := overlay.Get(context.Background(), addr)
			assert.NoError(t, err)
			assert.Equal(t, uint64(1), rec.Account.Lamports)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), fetcher.fetchCount())
}

func TestOverlayApplyEffects(t *testing.T) {
	a := sol.BytesToAddress([]byte("a"))
	b := sol.BytesToAddress([]byte("b"))
	overlay := state.New(&fakeFetcher{})

	overlay.ApplyEffects(map[sol.Address]*sol.Account{
		a: {Lamports: 10, Owner: sol.SystemProgramID},
		b: {Lamports: 20, Owner: sol.SystemProgramID},
	})

	rec, ok := overlay.Cached(a)
	require.True(t, ok)
	assert.Equal(t, state.OriginLocal, rec.Origin)
	assert.Equal(t, uint64(10), rec.Account.Lamports)
	assert.Equal(t, 2, overlay.Len())

	overlay.Reset()
	assert.Equal(t, 0, overlay.Len())
}
