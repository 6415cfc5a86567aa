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

package chain

import (
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
)

const (
	CallCommittedEventType event.EventType = "chain.call.committed"
	CallRevertedEventType  event.EventType = "chain.call.reverted"
)

// Receipt describes a committed call
type Receipt struct {
	Seq       uint64
	Timestamp uint64
	Ledger    string
	Operation string
	Caller    ledger.Address
	Value     uint64
	Events    []ledger.Event
}

// CallCommittedEvent is published after a call and its events are durable
type CallCommittedEvent struct {
	Receipt *Receipt
}

// CallRevertedEvent is published after a failed call has been journaled
type CallRevertedEvent struct {
	Seq       uint64
	Timestamp uint64
	Ledger    string
	Operation string
	Caller    ledger.Address
	Kind      ledger.Kind
	Code      string
	Message   string
}
