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

	"github.com/blinklabs-io/bazaar/api"
	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
)

// Make sure Node satisfies the interface the API server needs
var _ api.APINode = (*Node)(nil)

func (n *Node) submit(
	ctx context.Context,
	caller ledger.Address,
	value uint64,
	call chain.Call,
) (*chain.Receipt, error) {
	if n.chain == nil {
		return nil, ErrNodeNotStarted
	}
	return n.chain.Submit(ctx, caller, value, call)
}

func (n *Node) view(fn func(ledger.Store) error) error {
	if n.chain == nil {
		return ErrNodeNotStarted
	}
	return n.chain.View(fn)
}

// Chain returns the chain serializer, or nil before Start
func (n *Node) Chain() *chain.Chain {
	return n.chain
}

// EventBus returns the bus committed events are published on
func (n *Node) EventBus() *event.EventBus {
	return n.eventBus
}

// BlockTime returns the timestamp the next call would execute at
func (n *Node) BlockTime() uint64 {
	if n.chain == nil {
		return 0
	}
	return n.chain.Now()
}

// Calls returns a page of the call journal after the given sequence number
func (n *Node) Calls(after uint64, limit int) ([]models.LedgerCall, error) {
	if n.db == nil {
		return nil, ErrNodeNotStarted
	}
	return n.db.Calls(after, limit)
}

// Events returns a page of the event journal after the given event ID. An
// empty ledger name selects events of every ledger
func (n *Node) Events(
	ledgerName string,
	after uint64,
	limit int,
) ([]models.LedgerEvent, error) {
	if n.db == nil {
		return nil, ErrNodeNotStarted
	}
	return n.db.Events(ledgerName, after, limit)
}
