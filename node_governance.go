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
	"github.com/blinklabs-io/bazaar/ledger/governance"
)

func governanceCall(operation string, fn func(*ledger.Context) error) chain.Call {
	return chain.Call{
		Ledger:    governance.LedgerName,
		Operation: operation,
		Fn:        fn,
	}
}

func (n *Node) JoinDAO(
	ctx context.Context,
	caller ledger.Address,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		governanceCall("joinDAO", n.governance.JoinDAO),
	)
}

// CreateProposal opens a proposal and returns its ID
func (n *Node) CreateProposal(
	ctx context.Context,
	caller ledger.Address,
	description string,
) (uint64, *chain.Receipt, error) {
	var proposalID uint64
	receipt, err := n.submit(
		ctx,
		caller,
		0,
		governanceCall("createProposal", func(c *ledger.Context) error {
			var err error
			proposalID, err = n.governance.CreateProposal(c, description)
			return err
		}),
	)
	if err != nil {
		return 0, nil, err
	}
	return proposalID, receipt, nil
}

func (n *Node) Vote(
	ctx context.Context,
	caller ledger.Address,
	proposalID uint64,
	support bool,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		governanceCall("vote", func(c *ledger.Context) error {
			return n.governance.Vote(c, proposalID, support)
		}),
	)
}

func (n *Node) ExecuteProposal(
	ctx context.Context,
	caller ledger.Address,
	proposalID uint64,
) (*chain.Receipt, error) {
	return n.submit(
		ctx,
		caller,
		0,
		governanceCall("executeProposal", func(c *ledger.Context) error {
			return n.governance.ExecuteProposal(c, proposalID)
		}),
	)
}

// GovernanceState returns the DAO-wide member and proposal counters
func (n *Node) GovernanceState() (*governance.State, error) {
	var state *governance.State
	err := n.view(func(store ledger.Store) error {
		var err error
		state, err = governance.GetState(store)
		return err
	})
	return state, err
}

func (n *Node) Member(addr ledger.Address) (*governance.Member, error) {
	var member *governance.Member
	err := n.view(func(store ledger.Store) error {
		var err error
		member, err = governance.GetMember(store, addr)
		return err
	})
	return member, err
}

func (n *Node) Proposal(proposalID uint64) (*governance.Proposal, error) {
	var proposal *governance.Proposal
	err := n.view(func(store ledger.Store) error {
		var err error
		proposal, err = governance.GetProposal(store, proposalID)
		return err
	})
	return proposal, err
}

// ProposalVote returns the vote voter cast on a proposal, if any
func (n *Node) ProposalVote(
	proposalID uint64,
	voter ledger.Address,
) (*governance.Vote, bool, error) {
	var vote *governance.Vote
	var found bool
	err := n.view(func(store ledger.Store) error {
		var err error
		vote, found, err = governance.GetVote(store, proposalID, voter)
		return err
	})
	return vote, found, err
}
