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
	"fmt"
	"math/bits"

	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/gouroboros/cbor"
)

// AuditReport summarizes where every deposited unit currently is
type AuditReport struct {
	Deposited  uint64
	Withdrawn  uint64
	Balances   uint64 // sum of withdrawable balances
	Held       uint64 // sum of amounts of unsettled orders
	Orders     uint64
	OpenOrders uint64
	Balanced   bool
}

// Audit walks all orders and balances and checks that
// deposited == balances + withdrawn + held
func Audit(store ledger.Store) (*AuditReport, error) {
	totals, err := loadTotals(store)
	if err != nil {
		return nil, err
	}
	report := &AuditReport{
		Deposited: totals.Deposited,
		Withdrawn: totals.Withdrawn,
	}
	overflow := false
	add := func(sum *uint64, v uint64) {
		var carry uint64
		*sum, carry = bits.Add64(*sum, v, 0)
		if carry != 0 {
			overflow = true
		}
	}
	err = store.Iterate(
		[]byte(balanceKeyPrefix),
		func(key, val []byte) error {
			var bal balance
			if _, err := cbor.Decode(val, &bal); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			add(&report.Balances, bal.Amount)
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	err = store.Iterate(
		[]byte(orderKeyPrefix),
		func(key, val []byte) error {
			var order Order
			if _, err := cbor.Decode(val, &order); err != nil {
				return fmt.Errorf("decode %s: %w", key, err)
			}
			report.Orders++
			if !order.Settled() {
				report.OpenOrders++
				add(&report.Held, order.Amount)
			}
			return nil
		},
	)
	if err != nil {
		return nil, err
	}
	accounted := report.Balances
	add(&accounted, report.Withdrawn)
	add(&accounted, report.Held)
	report.Balanced = !overflow && accounted == report.Deposited
	return report, nil
}
