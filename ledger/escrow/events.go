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
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
)

const (
	OrderCreatedEventType   event.EventType = "escrow.order.created"
	OrderCompletedEventType event.EventType = "escrow.order.completed"
	OrderDisputedEventType  event.EventType = "escrow.order.disputed"
	OrderRefundedEventType  event.EventType = "escrow.order.refunded"
	FundsWithdrawnEventType event.EventType = "escrow.funds.withdrawn"
)

type OrderCreatedEvent struct {
	OrderID uint64
	Buyer   ledger.Address
	Seller  ledger.Address
	Amount  uint64
}

func (OrderCreatedEvent) Type() event.EventType { return OrderCreatedEventType }

func (e OrderCreatedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:       LedgerName,
		Subject:      e.OrderID,
		Account:      e.Buyer,
		Counterparty: e.Seller,
		Amount:       e.Amount,
	}
}

// OrderCompletedEvent also carries the split of the order amount
type OrderCompletedEvent struct {
	OrderID      uint64
	Seller       ledger.Address
	SellerAmount uint64
	Fee          uint64
}

func (OrderCompletedEvent) Type() event.EventType { return OrderCompletedEventType }

func (e OrderCompletedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Subject: e.OrderID,
		Account: e.Seller,
		Amount:  e.SellerAmount,
	}
}

type OrderDisputedEvent struct {
	OrderID uint64
	By      ledger.Address
}

func (OrderDisputedEvent) Type() event.EventType { return OrderDisputedEventType }

func (e OrderDisputedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Subject: e.OrderID,
		Account: e.By,
	}
}

type OrderRefundedEvent struct {
	OrderID uint64
	Buyer   ledger.Address
	Amount  uint64
}

func (OrderRefundedEvent) Type() event.EventType { return OrderRefundedEventType }

func (e OrderRefundedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Subject: e.OrderID,
		Account: e.Buyer,
		Amount:  e.Amount,
	}
}

type FundsWithdrawnEvent struct {
	Account ledger.Address
	Amount  uint64
}

func (FundsWithdrawnEvent) Type() event.EventType { return FundsWithdrawnEventType }

func (e FundsWithdrawnEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Account: e.Account,
		Amount:  e.Amount,
	}
}
