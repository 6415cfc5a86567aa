// Copyright 2025 Blink Labs Software
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package api

import (
	"net/http"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/ledger"
)

func (a *API) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req CreateOrderRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	seller, err := ledger.ParseAddress(req.Seller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.node.CreateOrder(r.Context(), caller, req.Amount, req.OrderID, seller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeReceipt(w, receipt)
}

func (a *API) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	orderID, err := uintParam(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	order, err := a.node.Order(orderID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newOrderResponse(order))
}

// orderAction handles the order endpoints that take only the order ID
func (a *API) orderAction(
	fn func(r *http.Request, caller ledger.Address, orderID uint64) (*chain.Receipt, error),
) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, err := requireCaller(r)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		orderID, err := uintParam(r, "id")
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		receipt, err := fn(r, caller, orderID)
		if err != nil {
			a.writeError(w, r, err)
			return
		}
		a.writeReceipt(w, receipt)
	}
}

func (a *API) handleCompleteOrder(w http.ResponseWriter, r *http.Request) {
	a.orderAction(func(r *http.Request, caller ledger.Address, orderID uint64) (*chain.Receipt, error) {
		return a.node.CompleteOrder(r.Context(), caller, orderID)
	})(w, r)
}

func (a *API) handleDisputeOrder(w http.ResponseWriter, r *http.Request) {
	a.orderAction(func(r *http.Request, caller ledger.Address, orderID uint64) (*chain.Receipt, error) {
		return a.node.DisputeOrder(r.Context(), caller, orderID)
	})(w, r)
}

func (a *API) handleRefundOrder(w http.ResponseWriter, r *http.Request) {
	a.orderAction(func(r *http.Request, caller ledger.Address, orderID uint64) (*chain.Receipt, error) {
		return a.node.RefundOrder(r.Context(), caller, orderID)
	})(w, r)
}

func (a *API) handleWithdraw(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.node.Withdraw(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeReceipt(w, receipt)
}

func (a *API) handleGetBalance(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	bal, err := a.node.Balance(addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceResponse{
		Address: addr.String(),
		Balance: bal,
	})
}

func (a *API) handleAudit(w http.ResponseWriter, r *http.Request) {
	report, err := a.node.Audit()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newAuditResponse(report))
}
