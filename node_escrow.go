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

package bazaar

import (
	"context"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
)

func escrowCall(operation string, fn func(*ledger.Context) error) chain.Call {
	return chain.Call{
		Ledger:    escrow.LedgerName,
		Operation: operation,
		Fn:        fn,
	}
}

// CreateOrder escrows amount from caller for a new order paying seller
func (n *Node) CreateOrder(
	ctx context.Context,
	caller ledger.Address,
	amount uint64,
	orderID uint64,
	seller ledger.Address,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		amount,
		escrowCall("createOrder", func(c *ledger.Context) error {
			return n.escrow.CreateOrder(c, orderID, seller)
		}),
	)
}

func (n *Node) CompleteOrder(
	ctx context.Context,
	caller ledger.Address,
	orderID uint64,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		escrowCall("completeOrder", func(c *ledger.Context) error {
			return n.escrow.CompleteOrder(c, orderID)
		}),
	)
}

func (n *Node) DisputeOrder(
	ctx context.Context,
	caller ledger.Address,
	orderID uint64,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		escrowCall("disputeOrder", func(c *ledger.Context) error {
			return n.escrow.DisputeOrder(c, orderID)
		}),
	)
}

func (n *Node) RefundOrder(
	ctx context.Context,
	caller ledger.Address,
	orderID uint64,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		escrowCall("refundOrder", func(c *ledger.Context) error {
			return n.escrow.RefundOrder(c, orderID)
		}),
	)
}

// Withdraw pays out the whole balance of caller
func (n *Node) Withdraw(
	ctx context.Context,
	caller ledger.Address,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		escrowCall("withdraw", n.escrow.Withdraw),
	)
}

func (n *Node) Order(orderID uint64) (*escrow.Order, error) {
	var order *escrow.Order
	err := n.view(func(store ledger.Store) error {
		var err error
		order, err = escrow.GetOrder(store, orderID)
		return err
	})
	return order, err
}

func (n *Node) Balance(addr ledger.Address) (uint64, error) {
	var balance uint64
	err := n.view(func(store ledger.Store) error {
		var err error
		balance, err = escrow.GetBalance(store, addr)
		return err
	})
	return balance, err
}

// Audit checks that every deposited unit is still held, credited or paid out
func (n *Node) Audit() (*escrow.AuditReport, error) {
	var report *escrow.AuditReport
	err := n.view(func(store ledger.Store) error {
		var err error
		report, err = escrow.Audit(store)
		return err
	})
	return report, err
}
