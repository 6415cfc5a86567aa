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
	"context"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
)

// APINode is what the API server needs from the node. Mutating calls go
// through the chain and return the receipt of the committed call
type APINode interface {
	CreateOrder(
		ctx context.Context,
		caller ledger.Address,
		amount uint64,
		orderID uint64,
		seller ledger.Address,
	) (*chain.Receipt, error)
	CompleteOrder(ctx context.Context, caller ledger.Address, orderID uint64) (*chain.Receipt, error)
	DisputeOrder(ctx context.Context, caller ledger.Address, orderID uint64) (*chain.Receipt, error)
	RefundOrder(ctx context.Context, caller ledger.Address, orderID uint64) (*chain.Receipt, error)
	Withdraw(ctx context.Context, caller ledger.Address) (*chain.Receipt, error)
	Order(orderID uint64) (*escrow.Order, error)
	Balance(addr ledger.Address) (uint64, error)
	Audit() (*escrow.AuditReport, error)

	JoinDAO(ctx context.Context, caller ledger.Address) (*chain.Receipt, error)
	CreateProposal(
		ctx context.Context,
		caller ledger.Address,
		description string,
	) (uint64, *chain.Receipt, error)
	Vote(
		ctx context.Context,
		caller ledger.Address,
		proposalID uint64,
		support bool,
	) (*chain.Receipt, error)
	ExecuteProposal(ctx context.Context, caller ledger.Address, proposalID uint64) (*chain.Receipt, error)
	GovernanceState() (*governance.State, error)
	Member(addr ledger.Address) (*governance.Member, error)
	Proposal(proposalID uint64) (*governance.Proposal, error)
	ProposalVote(proposalID uint64, voter ledger.Address) (*governance.Vote, bool, error)

	// BlockTime is the timestamp the next call would execute at
	BlockTime() uint64
	Calls(after uint64, limit int) ([]models.LedgerCall, error)
	Events(ledger string, after uint64, limit int) ([]models.LedgerEvent, error)
	EventBus() *event.EventBus
}
