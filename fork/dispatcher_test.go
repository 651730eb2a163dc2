// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/forkpoint/forkd/sol"
	"github.com/forkpoint/forkd/svm"
)

func testSig(b byte) sol.Signature {
	var sig sol.Signature
	sig[0] = b
	return sig
}

func newTestDispatcher(t *testing.T, remote Remote) (*Dispatcher, string) {
	t.Helper()
	reg := newTestRegistry(remote)
	t.Cleanup(reg.Close)
	d := NewDispatcher(reg)
	return d, d.CreateFork(context.Background()).ID
}

func TestDispatcherGetAccountHydratesOnce(t *testing.T) {
	remote := newFakeRemote()
	addr := sol.BytesToAddress([]byte("onchain"))
	remote.set(addr, &sol.Account{Lamports: 500, Owner: sol.SystemProgramID})

	d, id := newTestDispatcher(t, remote)

	acc, err := d.GetAccount(context.Background(), id, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(500), acc.Lamports)

	_, err = d.GetAccount(context.Background(), id, addr)
	require.NoError(t, err)
	assert.Equal(t, int32(1), remote.fetchCount(addr))
}

func TestDispatcherGetAccountNotFound(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	_, err := d.GetAccount(context.Background(), id, sol.BytesToAddress([]byte("ghost")))
	assert.True(t, errors.Is(err, sol.ErrAccountNotFound))
}

func TestDispatcherSetLamportsOverridesRemote(t *testing.T) {
	remote := newFakeRemote()
	addr := sol.BytesToAddress([]byte("acc"))
	other := sol.BytesToAddress([]byte("other"))
	remote.set(addr, &sol.Account{Lamports: 1, Owner: sol.SystemProgramID})
	remote.set(other, &sol.Account{Lamports: 2, Owner: sol.SystemProgramID})

	d, id := newTestDispatcher(t, remote)

	require.NoError(t, d.SetLamports(id, addr, 1_000_000))

	// an unrelated hydration must not clobber the local override
	_, err := d.GetAccount(context.Background(), id, other)
	require.NoError(t, err)

	acc, err := d.GetAccount(context.Background(), id, addr)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), acc.Lamports)
	assert.Equal(t, sol.SystemProgramID, acc.Owner)
	assert.Equal(t, int32(0), remote.fetchCount(addr))
}

func TestDispatcherSetTokenBalance(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	tokenAccount := sol.BytesToAddress([]byte("token-acc"))
	mint := sol.BytesToAddress([]byte("mint"))
	owner := sol.BytesToAddress([]byte("owner"))

	require.NoError(t, d.SetTokenBalance(id, tokenAccount, mint, owner, 1_000_000))

	acc, err := d.GetAccount(context.Background(), id, tokenAccount)
	require.NoError(t, err)
	assert.Equal(t, sol.TokenProgramID, acc.Owner)
	assert.Equal(t, uint64(svm.DefaultTokenAccountLamports), acc.Lamports)

	unpacked, err := svm.UnpackTokenAccount(acc.Data)
	require.NoError(t, err)
	assert.Equal(t, mint, unpacked.Mint)
	assert.Equal(t, owner, unpacked.Owner)
	assert.Equal(t, uint64(1_000_000), unpacked.Amount)
	assert.Equal(t, svm.TokenStateInitialized, unpacked.State)
}

func TestDispatcherExecuteTransfer(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))
	require.NoError(t, d.SetLamports(id, a, 1_000_000))

	rec, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(1), a, b, 100_000))
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, KindExecute, rec.Kind)

	accA, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(900_000), accA.Lamports)

	accB, err := d.GetAccount(context.Background(), id, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), accB.Lamports)

	records, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
}

func TestDispatcherExecuteOverdraw(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))
	require.NoError(t, d.SetLamports(id, a, 50))

	rec, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(1), a, b, 100))
	require.Error(t, err)
	_, ok := svm.IsExecutionError(err)
	assert.True(t, ok)
	require.NotNil(t, rec)
	assert.False(t, rec.Success)
	assert.NotEmpty(t, rec.Logs)

	// nothing was committed
	accA, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(50), accA.Lamports)

	// the failed attempt is still on record
	records, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.False(t, records[0].Success)
}

func TestDispatcherSlotMonotonic(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))
	require.NoError(t, d.SetLamports(id, a, 1000))

	rec1, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(1), a, b, 10))
	require.NoError(t, err)
	rec2, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(2), a, b, 10))
	require.NoError(t, err)
	assert.Greater(t, rec2.Slot, rec1.Slot)

	records, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, rec1.Slot, records[0].Slot)
	assert.Equal(t, rec2.Slot, records[1].Slot)
}

func TestDispatcherSimulateCommitsNothing(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))
	require.NoError(t, d.SetLamports(id, a, 1000))

	info, err := d.ForkInfo(id)
	require.NoError(t, err)
	slotBefore := info.Slot

	rec, err := d.Simulate(context.Background(), id, sol.NewTransfer(testSig(1), a, b, 100))
	require.NoError(t, err)
	assert.True(t, rec.Success)
	assert.Equal(t, KindSimulate, rec.Kind)
	assert.NotEmpty(t, rec.Logs)

	accA, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1000), accA.Lamports)

	info, err = d.ForkInfo(id)
	require.NoError(t, err)
	assert.Equal(t, slotBefore, info.Slot)

	simulated, err := d.ListTransactions(id, KindSimulate)
	require.NoError(t, err)
	assert.Len(t, simulated, 1)
	executed, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	assert.Empty(t, executed)
}

func TestDispatcherDeletedForkRejectsEverything(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())
	require.NoError(t, d.DeleteFork(id))

	a := sol.BytesToAddress([]byte("A"))

	assert.ErrorIs(t, d.SetLamports(id, a, 1), ErrForkNotFound)
	assert.ErrorIs(t, d.SetTokenBalance(id, a, a, a, 1), ErrForkNotFound)
	_, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(1), a, a, 1))
	assert.ErrorIs(t, err, ErrForkNotFound)
	_, err = d.Simulate(context.Background(), id, sol.NewTransfer(testSig(1), a, a, 1))
	assert.ErrorIs(t, err, ErrForkNotFound)
	_, err = d.GetAccount(context.Background(), id, a)
	assert.ErrorIs(t, err, ErrForkNotFound)
	_, err = d.ListTransactions(id, "")
	assert.ErrorIs(t, err, ErrForkNotFound)
	_, err = d.ForkInfo(id)
	assert.ErrorIs(t, err, ErrForkNotFound)
}

func TestDispatcherForkIsolation(t *testing.T) {
	remote := newFakeRemote()
	reg := newTestRegistry(remote)
	defer reg.Close()
	d := NewDispatcher(reg)

	id1 := d.CreateFork(context.Background()).ID
	id2 := d.CreateFork(context.Background()).ID

	a := sol.BytesToAddress([]byte("A"))
	require.NoError(t, d.SetLamports(id1, a, 42))

	// fork 2 must not see fork 1's overrides
	_, err := d.GetAccount(context.Background(), id2, a)
	assert.True(t, errors.Is(err, sol.ErrAccountNotFound))
}

func TestDispatcherConcurrentExecutes(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))
	require.NoError(t, d.SetLamports(id, a, 1_000_000))

	const n = 32
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := d.Execute(context.Background(), id, sol.NewTransfer(testSig(byte(i+1)), a, b, 1000))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	accA, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000-n*1000), accA.Lamports)

	// log order matches slot order, slots strictly increase by one
	records, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	require.Len(t, records, n)
	for i := 1; i < n; i++ {
		assert.Equal(t, records[i-1].Slot+1, records[i].Slot)
	}
}

// the end-to-end scenario: fund, inspect, transfer, inspect, list.
func TestDispatcherScenario(t *testing.T) {
	d, id := newTestDispatcher(t, newFakeRemote())

	a := sol.BytesToAddress([]byte("A"))
	b := sol.BytesToAddress([]byte("B"))

	require.NoError(t, d.SetLamports(id, a, 1_000_000))

	acc, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(1_000_000), acc.Lamports)
	assert.Equal(t, sol.SystemProgramID, acc.Owner)

	_, err = d.Execute(context.Background(), id, sol.NewTransfer(testSig(7), a, b, 100_000))
	require.NoError(t, err)

	accA, err := d.GetAccount(context.Background(), id, a)
	require.NoError(t, err)
	assert.Equal(t, uint64(900_000), accA.Lamports)

	accB, err := d.GetAccount(context.Background(), id, b)
	require.NoError(t, err)
	assert.Equal(t, uint64(100_000), accB.Lamports)

	records, err := d.ListTransactions(id, KindExecute)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.True(t, records[0].Success)
	assert.Equal(t, testSig(7), records[0].Signature)
}
