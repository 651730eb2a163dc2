// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package fork

import (
	"context"
	"strconv"
	"time"

	"github.com/pkg/errors"

	"github.com/forkpoint/forkd/sol"
	"github.com/forkpoint/forkd/svm"
)

// Dispatcher maps inbound operations onto forks: resolve the fork, take
// the access level the operation needs, run it against the overlay and the
// engine, record the outcome. Every method takes the fork id first and
// reports ErrForkNotFound uniformly for unknown, expired and destroyed ids.
type Dispatcher struct {
	reg *Registry
}

// NewDispatcher creates a dispatcher over the given registry.
func NewDispatcher(reg *Registry) *Dispatcher {
	return &Dispatcher{reg: reg}
}

// CreateFork creates a fresh fork and returns its metadata.
func (d *Dispatcher) CreateFork(ctx context.Context) *Info {
	return d.reg.Create(ctx).Info()
}

// ForkInfo returns fork metadata.
func (d *Dispatcher) ForkInfo(id string) (*Info, error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return f.Info(), nil
}

// DeleteFork destroys a fork.
func (d *Dispatcher) DeleteFork(id string) error {
	return d.reg.Delete(id)
}

// overlayView adapts a fork's overlay to the engine's view contract.
// Addresses absent from both the overlay and the remote ledger are
// presented as zero-value system-owned accounts, the state any untouched
// address logically has.
type overlayView struct {
	ctx context.Context
	f   *Fork
}

func (v *overlayView) Account(addr sol.Address) (*sol.Account, error) {
	rec, err := v.f.overlay.Get(v.ctx, addr)
	if err != nil {
		if errors.Is(err, sol.ErrAccountNotFound) {
			return sol.NewAccount(sol.SystemProgramID), nil
		}
		return nil, err
	}
	return &rec.Account, nil
}

// Execute runs a transaction on the fork and commits its effects.
// Executes on one fork are totally ordered by write-lock acquisition; the
// fork's slot advances once per success, and the transaction log's append
// order matches that same order. A failed execute commits nothing.
func (d *Dispatcher) Execute(ctx context.Context, id string, tx *sol.Transaction) (*TransactionRecord, error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status.Load() != statusActive {
		return nil, ErrForkNotFound
	}

	receipt, err := f.engine.Execute(&overlayView{ctx, f}, tx)
	if err != nil {
		if ee, ok := svm.IsExecutionError(err); ok {
			rec := d.record(f, tx, KindExecute, f.slot, ee)
			return rec, err
		}
		// remote fetch failed mid-run; nothing was admitted or mutated
		return nil, err
	}

	f.overlay.ApplyEffects(receipt.Deltas)
	f.slot++
	rec := TransactionRecord{
		Signature: tx.Signature,
		Slot:      f.slot,
		Kind:      KindExecute,
		Success:   true,
		Logs:      receipt.Logs,
		Time:      time.Now(),
	}
	f.txlog.append(rec)
	countTx(KindExecute, true)
	logger.Debug("executed tx", "fork", id, "sig", tx.Signature, "slot", f.slot)
	return &rec, nil
}

// Simulate runs a transaction on the fork without committing anything.
// Simulations take shared access and run in parallel with other reads.
func (d *Dispatcher) Simulate(ctx context.Context, id string, tx *sol.Transaction) (*TransactionRecord, error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.status.Load() != statusActive {
		return nil, ErrForkNotFound
	}

	receipt, err := f.engine.Simulate(&overlayView{ctx, f}, tx)
	if err != nil {
		if ee, ok := svm.IsExecutionError(err); ok {
			rec := d.record(f, tx, KindSimulate, f.slot, ee)
			return rec, err
		}
		return nil, err
	}

	rec := TransactionRecord{
		Signature: tx.Signature,
		Slot:      f.slot,
		Kind:      KindSimulate,
		Success:   true,
		Logs:      receipt.Logs,
		Time:      time.Now(),
	}
	f.txlog.append(rec)
	countTx(KindSimulate, true)
	return &rec, nil
}

// record appends a failed-attempt record carrying the engine's logs.
func (d *Dispatcher) record(f *Fork, tx *sol.Transaction, kind Kind, slot uint64, ee *svm.ExecutionError) *TransactionRecord {
	rec := TransactionRecord{
		Signature: tx.Signature,
		Slot:      slot,
		Kind:      kind,
		Success:   false,
		Logs:      ee.Logs,
		Err:       ee.Reason,
		Time:      time.Now(),
	}
	f.txlog.append(rec)
	countTx(kind, false)
	return &rec
}

// GetAccount returns the fork's view of an address, hydrating the overlay
// from the remote ledger on first access.
func (d *Dispatcher) GetAccount(ctx context.Context, id string, addr sol.Address) (*sol.Account, error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, err
	}
	f.lock.RLock()
	defer f.lock.RUnlock()
	if f.status.Load() != statusActive {
		return nil, ErrForkNotFound
	}

	rec, err := f.overlay.Get(ctx, addr)
	if err != nil {
		return nil, err
	}
	return &rec.Account, nil
}

// SetLamports sets the lamport balance of an address, synthesizing a
// zero-value system-owned account if the fork has no local entry yet.
// Deliberately local-only: it never consults the remote ledger and always
// succeeds on a live fork.
func (d *Dispatcher) SetLamports(id string, addr sol.Address, lamports uint64) error {
	f, err := d.reg.Get(id)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status.Load() != statusActive {
		return ErrForkNotFound
	}

	acc := sol.NewAccount(sol.SystemProgramID)
	if rec, ok := f.overlay.Cached(addr); ok {
		acc = &rec.Account
	}
	acc.Lamports = lamports
	f.overlay.Set(addr, *acc)
	logger.Debug("set lamports", "fork", id, "addr", addr, "lamports", lamports)
	return nil
}

// SetTokenBalance rewrites a token account so that it holds the given
// amount of the given mint for the given owner. An absent account is
// synthesized with enough lamports to be rent exempt.
func (d *Dispatcher) SetTokenBalance(id string, tokenAccount, mint, owner sol.Address, amount uint64) error {
	f, err := d.reg.Get(id)
	if err != nil {
		return err
	}
	f.lock.Lock()
	defer f.lock.Unlock()
	if f.status.Load() != statusActive {
		return ErrForkNotFound
	}

	acc := &sol.Account{Lamports: svm.DefaultTokenAccountLamports}
	if rec, ok := f.overlay.Cached(tokenAccount); ok {
		acc = &rec.Account
	}
	tokenAcc := svm.TokenAccount{
		Mint:   mint,
		Owner:  owner,
		Amount: amount,
		State:  svm.TokenStateInitialized,
	}
	acc.Data = tokenAcc.Pack()
	acc.Owner = sol.TokenProgramID
	acc.Executable = false
	acc.RentEpoch = 0
	f.overlay.Set(tokenAccount, *acc)
	logger.Debug("set token balance", "fork", id, "account", tokenAccount, "mint", mint, "amount", amount)
	return nil
}

// ListTransactions returns the fork's transaction records of the given
// kind in append order. An empty kind returns all records.
func (d *Dispatcher) ListTransactions(id string, kind Kind) ([]TransactionRecord, error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, err
	}
	return f.txlog.slice(kind), nil
}

// SubscribeTransactions streams the fork's transaction records as they are
// appended. The returned cancel func must be called when done; the channel
// also closes when the fork is destroyed.
func (d *Dispatcher) SubscribeTransactions(id string) (<-chan TransactionRecord, func(), error) {
	f, err := d.reg.Get(id)
	if err != nil {
		return nil, nil, err
	}
	ch := f.txlog.subscribe()
	return ch, func() { f.txlog.unsubscribe(ch) }, nil
}

func countTx(kind Kind, success bool) {
	metricTxCounter().AddWithLabel(1, map[string]string{
		"kind":    string(kind),
		"success": strconv.FormatBool(success),
	})
}
