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

package escrow

import (
	"encoding/binary"

	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	orderKeyPrefix   = "escrow/order/"
	balanceKeyPrefix = "escrow/balance/"
	totalsKey        = "escrow/totals"
)

// Order is one escrowed deposit. Amount never changes after creation, and
// at most one of Completed and Refunded is ever set
type Order struct {
	cbor.StructAsArray
	ID        uint64
	Buyer     ledger.Address
	Seller    ledger.Address
	Amount    uint64
	Completed bool
	Disputed  bool
	Refunded  bool
	CreatedAt uint64
	SettledAt uint64
}

// Settled reports whether the order reached a terminal state
func (o *Order) Settled() bool {
	return o.Completed || o.Refunded
}

// Status returns a readable order state
func (o *Order) Status() string {
	switch {
	case o.Completed:
		return "completed"
	case o.Refunded:
		return "refunded"
	case o.Disputed:
		return "disputed"
	default:
		return "created"
	}
}

// Totals are the ledger-wide counters used to audit conservation of funds
type Totals struct {
	cbor.StructAsArray
	Deposited uint64
	Withdrawn uint64
}

type balance struct {
	cbor.StructAsArray
	Amount uint64
}

func orderKey(orderID uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(orderKeyPrefix), orderID)
}

func balanceKey(addr ledger.Address) []byte {
	return append([]byte(balanceKeyPrefix), string(addr)...)
}

func loadOrder(store ledger.Store, orderID uint64) (*Order, error) {
	if orderID == 0 {
		return nil, ErrInvalidOrderID
	}
	order := &Order{}
	found, err := ledger.GetRecord(store, orderKey(orderID), order)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func saveOrder(store ledger.Store, order *Order) error {
	return ledger.PutRecord(store, orderKey(order.ID), order)
}

func loadBalance(store ledger.Store, addr ledger.Address) (uint64, error) {
	var bal balance
	if _, err := ledger.GetRecord(store, balanceKey(addr), &bal); err != nil {
		return 0, err
	}
	return bal.Amount, nil
}

func saveBalance(store ledger.Store, addr ledger.Address, amount uint64) error {
	return ledger.PutRecord(store, balanceKey(addr), &balance{Amount: amount})
}

func loadTotals(store ledger.Store) (*Totals, error) {
	totals := &Totals{}
	if _, err := ledger.GetRecord(store, []byte(totalsKey), totals); err != nil {
		return nil, err
	}
	return totals, nil
}

func saveTotals(store ledger.Store, totals *Totals) error {
	return ledger.PutRecord(store, []byte(totalsKey), totals)
}
