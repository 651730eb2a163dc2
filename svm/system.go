// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package svm

import (
	"encoding/binary"
	"fmt"

	"github.com/forkpoint/forkd/sol"
)

// SystemEngine the builtin engine: interprets system-program instructions
// (lamport transfers). Anything else fails execution with its reason in the
// logs, same as a real ledger would reject an unknown program invocation.
type SystemEngine struct{}

// NewSystemEngine creates the builtin system-program engine.
func NewSystemEngine() *SystemEngine {
	return &SystemEngine{}
}

// Execute runs the transaction and returns the resulting account deltas.
func (e *SystemEngine) Execute(view View, tx *sol.Transaction) (*Receipt, error) {
	return e.run(view, tx)
}

// Simulate runs the transaction but reports logs only, no deltas.
func (e *SystemEngine) Simulate(view View, tx *sol.Transaction) (*Receipt, error) {
	receipt, err := e.run(view, tx)
	if err != nil {
		return nil, err
	}
	return &Receipt{Logs: receipt.Logs}, nil
}

func (e *SystemEngine) run(view View, tx *sol.Transaction) (*Receipt, error) {
	deltas := make(map[sol.Address]*sol.Account)
	var logs []string

	// later instructions observe earlier instructions' deltas
	load := func(addr sol.Address) (*sol.Account, error) {
		if acc, ok := deltas[addr]; ok {
			return acc, nil
		}
		acc, err := view.Account(addr)
		if err != nil {
			return nil, err
		}
		cpy := acc.Copy()
		deltas[addr] = cpy
		return cpy, nil
	}

	for i, ins := range tx.Instructions {
		program := tx.Keys[ins.ProgramIndex]
		logs = append(logs, programLog(program, "invoke [1]"))

		if program != sol.SystemProgramID {
			logs = append(logs, programLog(program, "failed: unsupported program"))
			return nil, &ExecutionError{
				Reason: fmt.Sprintf("instruction %d: unsupported program %s", i, program),
				Logs:   logs,
			}
		}
		if err := e.runSystemInstruction(tx, &ins, load); err != nil {
			if ee, ok := IsExecutionError(err); ok {
				logs = append(logs, programLog(program, "failed: "+ee.Reason))
				ee.Logs = logs
				return nil, ee
			}
			return nil, err
		}
		logs = append(logs, programLog(program, "success"))
	}

	return &Receipt{Deltas: deltas, Logs: logs}, nil
}

type loadFunc func(sol.Address) (*sol.Account, error)

func (e *SystemEngine) runSystemInstruction(tx *sol.Transaction, ins *sol.Instruction, load loadFunc) error {
	if len(ins.Data) < 4 {
		return &ExecutionError{Reason: "instruction data too short"}
	}
	tag := binary.LittleEndian.Uint32(ins.Data[:4])

	switch tag {
	case sol.SystemInstructionTransfer:
		if len(ins.Data) < 12 {
			return &ExecutionError{Reason: "transfer: malformed data"}
		}
		if len(ins.AccountIndexes) < 2 {
			return &ExecutionError{Reason: "transfer: requires 2 accounts"}
		}
		lamports := binary.LittleEndian.Uint64(ins.Data[4:12])

		from, err := load(tx.Keys[ins.AccountIndexes[0]])
		if err != nil {
			return err
		}
		to, err := load(tx.Keys[ins.AccountIndexes[1]])
		if err != nil {
			return err
		}
		if from.Lamports < lamports {
			return &ExecutionError{
				Reason: fmt.Sprintf("transfer: insufficient lamports %d, need %d", from.Lamports, lamports),
			}
		}
		from.Lamports -= lamports
		to.Lamports += lamports
		return nil
	default:
		return &ExecutionError{Reason: fmt.Sprintf("unsupported system instruction %d", tag)}
	}
}
