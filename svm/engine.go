// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

// Package svm defines the execution engine boundary of a fork and the
// builtin deterministic system-program engine.
package svm

import (
	"errors"
	"strings"

	"github.com/forkpoint/forkd/sol"
)

// View read access to the account state a transaction runs against.
// The fork's overlay supplies it; missing addresses are presented as
// zero-value system-owned accounts.
type View interface {
	Account(addr sol.Address) (*sol.Account, error)
}

// Receipt outcome of a successful run.
// Deltas holds the post-state of every account the transaction touched;
// committing them is the caller's decision (execute commits, simulate
// discards).
type Receipt struct {
	Deltas map[sol.Address]*sol.Account
	Logs   []string
}

// ExecutionError reported when the engine admits a transaction but its
// execution fails. Carries the engine's log output up to the failure.
type ExecutionError struct {
	Reason string
	Logs   []string
}

func (e *ExecutionError) Error() string {
	return "execution failed: " + e.Reason
}

// IsExecutionError returns the typed execution error if err is one.
func IsExecutionError(err error) (*ExecutionError, bool) {
	var ee *ExecutionError
	if errors.As(err, &ee) {
		return ee, true
	}
	return nil, false
}

// Engine interprets a signed transaction against an account state view.
// Both methods are deterministic given the view. Execute returns the
// deltas to commit; Simulate runs identically but reports no deltas.
type Engine interface {
	Execute(view View, tx *sol.Transaction) (*Receipt, error)
	Simulate(view View, tx *sol.Transaction) (*Receipt, error)
}

func programLog(program sol.Address, parts ...string) string {
	return "Program " + program.String() + " " + strings.Join(parts, " ")
}
