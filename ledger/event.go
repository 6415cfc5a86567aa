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

package ledger

import (
	"github.com/blinklabs-io/bazaar/event"
)

// Event is emitted by a ledger operation and published after commit
type Event interface {
	Type() event.EventType
	Record() EventRecord
}

// EventRecord is the flattened form of an event kept in the event journal
type EventRecord struct {
	Ledger       string
	Subject      uint64 // order or proposal ID
	Account      Address
	Counterparty Address
	Amount       uint64
	Support      bool
	Description  string
}
