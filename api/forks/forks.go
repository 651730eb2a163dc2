// Copyright (c) 2025 The forkd developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package forks

import (
	"encoding/json"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/forkpoint/forkd/api/restutil"
	"github.com/forkpoint/forkd/fork"
	"github.com/forkpoint/forkd/sol"
)

// Forks the /forks resource: fork lifecycle plus all per-fork operations.
type Forks struct {
	dispatcher *fork.Dispatcher
}

// New creates the forks resource over the given dispatcher.
func New(dispatcher *fork.Dispatcher) *Forks {
	return &Forks{dispatcher}
}

func (f *Forks) handleCreateFork(w http.ResponseWriter, req *http.Request) error {
	info := f.dispatcher.CreateFork(req.Context())
	return restutil.WriteJSON(w, info)
}

func (f *Forks) handleGetFork(w http.ResponseWriter, req *http.Request) error {
	info, err := f.dispatcher.ForkInfo(mux.Vars(req)["id"])
	if err != nil {
		return convertForkError(err)
	}
	return restutil.WriteJSON(w, info)
}

func (f *Forks) handleDeleteFork(w http.ResponseWriter, req *http.Request) error {
	if err := f.dispatcher.DeleteFork(mux.Vars(req)["id"]); err != nil {
		return convertForkError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (f *Forks) handleExecute(w http.ResponseWriter, req *http.Request) error {
	tx, err := f.parseTx(req)
	if err != nil {
		return err
	}
	rec, err := f.dispatcher.Execute(req.Context(), mux.Vars(req)["id"], tx)
	if err != nil {
		return convertTxError(w, rec, err)
	}
	return restutil.WriteJSON(w, rec)
}

func (f *Forks) handleSimulate(w http.ResponseWriter, req *http.Request) error {
	tx, err := f.parseTx(req)
	if err != nil {
		return err
	}
	rec, err := f.dispatcher.Simulate(req.Context(), mux.Vars(req)["id"], tx)
	if err != nil {
		return convertTxError(w, rec, err)
	}
	return restutil.WriteJSON(w, rec)
}

func (f *Forks) parseTx(req *http.Request) (*sol.Transaction, error) {
	var body ExecuteRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return nil, restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	tx, err := sol.DecodeTransaction(body.TxBase64)
	if err != nil {
		return nil, restutil.BadRequest(err)
	}
	return tx, nil
}

func (f *Forks) handleGetAccount(w http.ResponseWriter, req *http.Request) error {
	addr, err := sol.ParseAddress(mux.Vars(req)["address"])
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "address"))
	}
	acc, err := f.dispatcher.GetAccount(req.Context(), mux.Vars(req)["id"], addr)
	if err != nil {
		if errors.Is(err, sol.ErrAccountNotFound) {
			return restutil.NotFound(err)
		}
		return convertForkError(err)
	}
	return restutil.WriteJSON(w, convertAccount(acc))
}

func (f *Forks) handleSetLamports(w http.ResponseWriter, req *http.Request) error {
	var body SetLamportsRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	addr, err := sol.ParseAddress(body.Pubkey)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "pubkey"))
	}
	if err := f.dispatcher.SetLamports(mux.Vars(req)["id"], addr, body.Lamports); err != nil {
		return convertForkError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (f *Forks) handleSetTokenBalance(w http.ResponseWriter, req *http.Request) error {
	var body SetTokenBalanceRequest
	if err := restutil.ParseJSON(req.Body, &body); err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "body"))
	}
	tokenAccount, err := sol.ParseAddress(body.TokenAccount)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "token_account"))
	}
	mint, err := sol.ParseAddress(body.Mint)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "mint"))
	}
	owner, err := sol.ParseAddress(body.Owner)
	if err != nil {
		return restutil.BadRequest(errors.WithMessage(err, "owner"))
	}
	if err := f.dispatcher.SetTokenBalance(mux.Vars(req)["id"], tokenAccount, mint, owner, body.Amount); err != nil {
		return convertForkError(err)
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (f *Forks) handleListTransactions(w http.ResponseWriter, req *http.Request) error {
	var kind fork.Kind
	switch q := req.URL.Query().Get("kind"); q {
	case "executed":
		kind = fork.KindExecute
	case "simulated":
		kind = fork.KindSimulate
	case "":
	default:
		return restutil.BadRequest(errors.Errorf("kind: invalid value %q", q))
	}
	records, err := f.dispatcher.ListTransactions(mux.Vars(req)["id"], kind)
	if err != nil {
		return convertForkError(err)
	}
	return restutil.WriteJSON(w, records)
}

func convertForkError(err error) error {
	if errors.Is(err, fork.ErrForkNotFound) {
		return restutil.NotFound(err)
	}
	return err
}

// convertTxError writes the failed-attempt record with 422 when the engine
// rejected the transaction, so the caller still gets the engine's logs.
// Other errors (unknown fork, remote transport failure) pass through.
func convertTxError(w http.ResponseWriter, rec *fork.TransactionRecord, err error) error {
	if rec != nil {
		w.Header().Set("Content-Type", restutil.JSONContentType)
		w.WriteHeader(http.StatusUnprocessableEntity)
		return json.NewEncoder(w).Encode(rec)
	}
	return convertForkError(err)
}

// Mount mounts the resource under the given path prefix.
func (f *Forks) Mount(root *mux.Router, pathPrefix string) {
	sub := root.PathPrefix(pathPrefix).Subrouter()

	sub.Path("").
		Methods(http.MethodPost).
		Name("forks_create").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleCreateFork))
	sub.Path("/{id}").
		Methods(http.MethodGet).
		Name("forks_get").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleGetFork))
	sub.Path("/{id}").
		Methods(http.MethodDelete).
		Name("forks_delete").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleDeleteFork))
	sub.Path("/{id}/execute").
		Methods(http.MethodPost).
		Name("forks_execute").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleExecute))
	sub.Path("/{id}/simulate").
		Methods(http.MethodPost).
		Name("forks_simulate").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleSimulate))
	sub.Path("/{id}/accounts/{address}").
		Methods(http.MethodGet).
		Name("forks_get_account").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleGetAccount))
	sub.Path("/{id}/set_lamports").
		Methods(http.MethodPost).
		Name("forks_set_lamports").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleSetLamports))
	sub.Path("/{id}/set_token_balance").
		Methods(http.MethodPost).
		Name("forks_set_token_balance").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleSetTokenBalance))
	sub.Path("/{id}/transactions").
		Methods(http.MethodGet).
		Name("forks_list_transactions").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleListTransactions))
	sub.Path("/{id}/subscriptions/txs").
		Methods(http.MethodGet).
		Name("forks_subscribe_transactions").
		HandlerFunc(restutil.WrapHandlerFunc(f.handleSubscribeTransactions))
}
