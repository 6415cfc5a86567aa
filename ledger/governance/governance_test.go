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

package governance_test

import (
	"strings"
	"testing"
	"time"

	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/governance"
	"github.com/blinklabs-io/bazaar/ledger/ledgertest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const threeDays = uint64(3 * 24 * 60 * 60)

func newGovernance(t *testing.T) (*governance.Governance, *ledgertest.Runner) {
	t.Helper()
	gov, err := governance.New(governance.Config{})
	require.NoError(t, err)
	return gov, ledgertest.NewRunner()
}

func join(t *testing.T, gov *governance.Governance, r *ledgertest.Runner, addr ledger.Address) {
	t.Helper()
	_, err := r.Call(addr, 0, gov.JoinDAO)
	require.NoError(t, err)
}

func propose(
	t *testing.T,
	gov *governance.Governance,
	r *ledgertest.Runner,
	addr ledger.Address,
	description string,
) uint64 {
	t.Helper()
	var id uint64
	_, err := r.Call(addr, 0, func(c *ledger.Context) error {
		var err error
		id, err = gov.CreateProposal(c, description)
		return err
	})
	require.NoError(t, err)
	return id
}

func vote(
	gov *governance.Governance,
	r *ledgertest.Runner,
	addr ledger.Address,
	id uint64,
	support bool,
) error {
	_, err := r.Call(addr, 0, func(c *ledger.Context) error {
		return gov.Vote(c, id, support)
	})
	return err
}

func execute(gov *governance.Governance, r *ledgertest.Runner, addr ledger.Address, id uint64) error {
	_, err := r.Call(addr, 0, func(c *ledger.Context) error {
		return gov.ExecuteProposal(c, id)
	})
	return err
}

func TestNewDefaults(t *testing.T) {
	gov, err := governance.New(governance.Config{})
	require.NoError(t, err)
	assert.Equal(t, governance.DefaultVotingPeriod, gov.Config().VotingPeriod)
	assert.Equal(t, uint64(governance.DefaultMinVotingPower), gov.Config().MinVotingPower)

	_, err = governance.New(governance.Config{VotingPeriod: time.Millisecond})
	require.Error(t, err)
	_, err = governance.New(governance.Config{VotingPeriod: 90 * time.Second})
	require.NoError(t, err)
	for _, period := range []time.Duration{1500 * time.Millisecond, time.Hour + time.Nanosecond} {
		_, err = governance.New(governance.Config{VotingPeriod: period})
		require.ErrorContains(t, err, "whole number of seconds", period.String())
	}
}

func TestJoinDAO(t *testing.T) {
	gov, r := newGovernance(t)
	alice := ledgertest.Address("alice")

	events, err := r.Call(alice, 0, gov.JoinDAO)
	require.NoError(t, err)
	assert.Equal(t, []ledger.Event{governance.MemberAddedEvent{Member: alice, VotingPower: 1}}, events)

	_, err = r.Call(alice, 0, gov.JoinDAO)
	require.ErrorIs(t, err, governance.ErrAlreadyMember)

	member, err := governance.GetMember(r.Store, alice)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), member.VotingPower)
	assert.Equal(t, r.Now, member.JoinedAt)

	_, err = governance.GetMember(r.Store, ledgertest.Address("bob"))
	require.ErrorIs(t, err, governance.ErrMemberNotFound)

	_, err = r.Call(ledgertest.Address("bob"), 1, gov.JoinDAO)
	require.ErrorIs(t, err, ledger.ErrUnexpectedValue)

	state, err := governance.GetState(r.Store)
	require.NoError(t, err)
	assert.Equal(t, uint64(1), state.MemberCount)
}

func TestCreateProposal(t *testing.T) {
	gov, r := newGovernance(t)
	alice := ledgertest.Address("alice")
	join(t, gov, r, alice)

	_, err := r.Call(ledgertest.Address("bob"), 0, func(c *ledger.Context) error {
		_, err := gov.CreateProposal(c, "lower fees")
		return err
	})
	require.ErrorIs(t, err, governance.ErrNotMember)

	testDefs := []struct {
		description string
		err         error
	}{
		{"", governance.ErrEmptyDescription},
		{"   ", governance.ErrEmptyDescription},
		{strings.Repeat("x", 4097), governance.ErrDescriptionTooLong},
	}
	for _, testDef := range testDefs {
		_, err := r.Call(alice, 0, func(c *ledger.Context) error {
			_, err := gov.CreateProposal(c, testDef.description)
			return err
		})
		require.ErrorIs(t, err, testDef.err)
	}

	first := propose(t, gov, r, alice, "lower fees")
	second := propose(t, gov, r, alice, "raise fees")
	assert.Equal(t, uint64(1), first)
	assert.Equal(t, uint64(2), second)

	proposal, err := governance.GetProposal(r.Store, first)
	require.NoError(t, err)
	assert.Equal(t, alice, proposal.Proposer)
	assert.Equal(t, "lower fees", proposal.Description)
	assert.Equal(t, r.Now+threeDays, proposal.EndTime)
	assert.Equal(t, governance.ProposalStatusOpen, proposal.Status(r.Now))

	_, err = governance.GetProposal(r.Store, 3)
	require.ErrorIs(t, err, governance.ErrProposalNotFound)
	_, err = governance.GetProposal(r.Store, 0)
	require.ErrorIs(t, err, governance.ErrInvalidProposalID)

	state, err := governance.GetState(r.Store)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), state.ProposalCount)
}

func TestScenarioProposalLifecycle(t *testing.T) {
	gov, r := newGovernance(t)
	alice := ledgertest.Address("alice")
	bob := ledgertest.Address("bob")
	join(t, gov, r, alice)
	join(t, gov, r, bob)
	start := r.Now
	id := propose(t, gov, r, alice, "fund the audit")

	r.Now = start + 60
	require.NoError(t, vote(gov, r, alice, id, true))
	r.Now = start + threeDays - 1
	events, err := r.Call(bob, 0, func(c *ledger.Context) error {
		return gov.Vote(c, id, true)
	})
	require.NoError(t, err)
	assert.Equal(t, []ledger.Event{governance.VoteCastEvent{
		ProposalID: id,
		Voter:      bob,
		Support:    true,
		Weight:     1,
	}}, events)

	// Voting still open
	require.ErrorIs(t, execute(gov, r, bob, id), governance.ErrVotingNotEnded)

	r.Now = start + threeDays + 1
	proposal, err := governance.GetProposal(r.Store, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), proposal.ForVotes)
	assert.Equal(t, uint64(0), proposal.AgainstVotes)
	assert.Equal(t, governance.ProposalStatusPassed, proposal.Status(r.Now))

	events, err = r.Call(ledgertest.Address("anyone"), 0, func(c *ledger.Context) error {
		return gov.ExecuteProposal(c, id)
	})
	require.NoError(t, err)
	assert.Equal(t, []ledger.Event{governance.ProposalExecutedEvent{
		ProposalID: id,
		ForVotes:   2,
	}}, events)
	err = execute(gov, r, alice, id)
	require.ErrorIs(t, err, governance.ErrAlreadyExecuted)

	proposal, err = governance.GetProposal(r.Store, id)
	require.NoError(t, err)
	assert.True(t, proposal.Executed)
	assert.Equal(t, governance.ProposalStatusExecuted, proposal.Status(r.Now))
}

func TestVoteFailureOrder(t *testing.T) {
	gov, r := newGovernance(t)
	alice := ledgertest.Address("alice")
	outsider := ledgertest.Address("outsider")
	join(t, gov, r, alice)
	start := r.Now
	id := propose(t, gov, r, alice, "expand")

	// Non-member is reported before a missing proposal
	require.ErrorIs(t, vote(gov, r, outsider, 99, true), governance.ErrNotMember)
	require.ErrorIs(t, vote(gov, r, alice, 99, true), governance.ErrProposalNotFound)

	require.NoError(t, vote(gov, r, alice, id, false))
	require.ErrorIs(t, vote(gov, r, alice, id, false), governance.ErrAlreadyVoted)
	require.ErrorIs(t, vote(gov, r, alice, id, true), governance.ErrAlreadyVoted)

	// Voting closes exactly at the end time, ahead of the duplicate check
	r.Now = start + threeDays
	require.ErrorIs(t, vote(gov, r, alice, id, true), governance.ErrVotingEnded)

	proposal, err := governance.GetProposal(r.Store, id)
	require.NoError(t, err)
	assert.Equal(t, uint64(0), proposal.ForVotes)
	assert.Equal(t, uint64(1), proposal.AgainstVotes)

	voted, err := governance.HasVoted(r.Store, id, alice)
	require.NoError(t, err)
	assert.True(t, voted)
	voted, err = governance.HasVoted(r.Store, id, outsider)
	require.NoError(t, err)
	assert.False(t, voted)
	v, found, err := governance.GetVote(r.Store, id, alice)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, v.Support)
	assert.Equal(t, uint64(1), v.Weight)
}

func TestExecuteRequiresMajority(t *testing.T) {
	gov, r := newGovernance(t)
	alice := ledgertest.Address("alice")
	bob := ledgertest.Address("bob")
	join(t, gov, r, alice)
	join(t, gov, r, bob)
	start := r.Now
	tied := propose(t, gov, r, alice, "tie")
	rejected := propose(t, gov, r, alice, "reject")
	empty := propose(t, gov, r, alice, "no votes")

	require.NoError(t, vote(gov, r, alice, tied, true))
	require.NoError(t, vote(gov, r, bob, tied, false))
	require.NoError(t, vote(gov, r, alice, rejected, false))

	r.Now = start + threeDays
	for _, id := range []uint64{tied, rejected, empty} {
		err := execute(gov, r, alice, id)
		require.ErrorIs(t, err, governance.ErrProposalRejected, "proposal %d", id)
		proposal, err := governance.GetProposal(r.Store, id)
		require.NoError(t, err)
		assert.False(t, proposal.Executed)
		assert.Equal(t, governance.ProposalStatusRejected, proposal.Status(r.Now))
	}
	require.ErrorIs(t, execute(gov, r, alice, 42), governance.ErrProposalNotFound)
}
