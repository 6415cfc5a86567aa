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

package database

import (
	"github.com/blinklabs-io/bazaar/database/models"
)

// AddCall appends a call record to the journal
func (d *Database) AddCall(call *models.LedgerCall, txn *Txn) error {
	if txn == nil {
		return d.metadata.AddCall(call, nil)
	}
	return d.metadata.AddCall(call, txn.Metadata())
}

// AddEvents appends the events of one call to the journal
func (d *Database) AddEvents(events []models.LedgerEvent, txn *Txn) error {
	if txn == nil {
		return d.metadata.AddEvents(events, nil)
	}
	return d.metadata.AddEvents(events, txn.Metadata())
}

// LastCall returns the most recent journal entry, or nil for an empty journal
func (d *Database) LastCall() (*models.LedgerCall, error) {
	return d.metadata.GetLastCall(nil)
}

// Calls returns a page of the call journal in sequence order
func (d *Database) Calls(after uint64, limit int) ([]models.LedgerCall, error) {
	return d.metadata.GetCalls(after, limit, nil)
}

// Events returns a page of the event journal, optionally for one ledger
func (d *Database) Events(
	ledger string,
	after uint64,
	limit int,
) ([]models.LedgerEvent, error) {
	return d.metadata.GetEvents(ledger, after, limit, nil)
}
