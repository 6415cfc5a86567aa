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

// Package governance implements the DAO ledger: membership, proposals and
// one vote per member per proposal, weighted by voting power.
package governance

import (
	"errors"
	"math/bits"
	"strings"
	"time"

	"github.com/blinklabs-io/bazaar/ledger"
)

const LedgerName = "governance"

const (
	DefaultVotingPeriod         = 72 * time.Hour
	DefaultMinVotingPower       = 1
	DefaultMaxDescriptionLength = 4096
)

type Config struct {
	VotingPeriod         time.Duration
	MinVotingPower       uint64
	MaxDescriptionLength int
}

type Governance struct {
	config Config
}

// New creates the governance ledger. Zero config values take their defaults
func New(config Config) (*Governance, error) {
	if config.VotingPeriod == 0 {
		config.VotingPeriod = DefaultVotingPeriod
	}
	if config.MinVotingPower == 0 {
		config.MinVotingPower = DefaultMinVotingPower
	}
	if config.MaxDescriptionLength == 0 {
		config.MaxDescriptionLength = DefaultMaxDescriptionLength
	}
	if config.VotingPeriod < time.Second {
		return nil, errors.New("governance: voting period must be at least one second")
	}
	// Proposal end times are whole block-time seconds
	if config.VotingPeriod%time.Second != 0 {
		return nil, errors.New("governance: voting period must be a whole number of seconds")
	}
	if config.MaxDescriptionLength < 0 {
		return nil, errors.New("governance: max description length must be positive")
	}
	return &Governance{config: config}, nil
}

func (g *Governance) Config() Config {
	return g.config
}

func (g *Governance) votingPeriodSeconds() uint64 {
	return uint64(g.config.VotingPeriod / time.Second)
}

func guard(c *ledger.Context, fn func() error) error {
	if err := c.Enter(); err != nil {
		return err
	}
	defer c.Exit()
	if err := c.RequireCaller(); err != nil {
		return err
	}
	if err := c.NonPayable(); err != nil {
		return err
	}
	return fn()
}

// JoinDAO admits the caller as a member with the minimum voting power
func (g *Governance) JoinDAO(c *ledger.Context) error {
	return guard(c, func() error {
		store := c.Store()
		caller := c.Caller()
		if _, found, err := loadMember(store, caller); err != nil {
			return err
		} else if found {
			return ErrAlreadyMember
		}
		state, err := loadState(store)
		if err != nil {
			return err
		}
		member := &Member{
			Address:     caller,
			VotingPower: g.config.MinVotingPower,
			JoinedAt:    c.Timestamp(),
		}
		if err := ledger.PutRecord(store, memberKey(caller), member); err != nil {
			return err
		}
		state.MemberCount++
		if err := saveState(store, state); err != nil {
			return err
		}
		c.Emit(MemberAddedEvent{
			Member:      caller,
			VotingPower: member.VotingPower,
		})
		return nil
	})
}

// CreateProposal opens a proposal for voting and returns its ID
func (g *Governance) CreateProposal(
	c *ledger.Context,
	description string,
) (uint64, error) {
	var proposalID uint64
	err := guard(c, func() error {
		store := c.Store()
		if _, found, err := loadMember(store, c.Caller()); err != nil {
			return err
		} else if !found {
			return ErrNotMember
		}
		if strings.TrimSpace(description) == "" {
			return ErrEmptyDescription
		}
		if len(description) > g.config.MaxDescriptionLength {
			return ErrDescriptionTooLong
		}
		state, err := loadState(store)
		if err != nil {
			return err
		}
		now := c.Timestamp()
		endTime, carry := bits.Add64(now, g.votingPeriodSeconds(), 0)
		if carry != 0 {
			return ledger.ErrAmountOverflow.With("end time")
		}
		state.ProposalCount++
		proposal := &Proposal{
			ID:          state.ProposalCount,
			Proposer:    c.Caller(),
			Description: description,
			CreatedAt:   now,
			EndTime:     endTime,
		}
		if err := saveProposal(store, proposal); err != nil {
			return err
		}
		if err := saveState(store, state); err != nil {
			return err
		}
		c.Emit(ProposalCreatedEvent{
			ProposalID:  proposal.ID,
			Proposer:    proposal.Proposer,
			Description: description,
			EndTime:     endTime,
		})
		proposalID = proposal.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return proposalID, nil
}

// Vote records the caller's vote, weighted by their voting power
func (g *Governance) Vote(
	c *ledger.Context,
	proposalID uint64,
	support bool,
) error {
	return guard(c, func() error {
		store := c.Store()
		caller := c.Caller()
		member, found, err := loadMember(store, caller)
		if err != nil {
			return err
		}
		if !found {
			return ErrNotMember
		}
		proposal, err := loadProposal(store, proposalID)
		if err != nil {
			return err
		}
		if c.Timestamp() >= proposal.EndTime {
			return ErrVotingEnded
		}
		if _, voted, err := loadVote(store, proposalID, caller); err != nil {
			return err
		} else if voted {
			return ErrAlreadyVoted
		}
		tally := &proposal.AgainstVotes
		if support {
			tally = &proposal.ForVotes
		}
		sum, carry := bits.Add64(*tally, member.VotingPower, 0)
		if carry != 0 {
			return ledger.ErrAmountOverflow.With("vote tally")
		}
		*tally = sum
		vote := &Vote{Support: support, Weight: member.VotingPower}
		if err := ledger.PutRecord(store, voteKey(proposalID, caller), vote); err != nil {
			return err
		}
		if err := saveProposal(store, proposal); err != nil {
			return err
		}
		c.Emit(VoteCastEvent{
			ProposalID: proposalID,
			Voter:      caller,
			Support:    support,
			Weight:     member.VotingPower,
		})
		return nil
	})
}

// ExecuteProposal marks a passed proposal as executed. Anyone may call it
// once voting has ended
func (g *Governance) ExecuteProposal(c *ledger.Context, proposalID uint64) error {
	return guard(c, func() error {
		store := c.Store()
		proposal, err := loadProposal(store, proposalID)
		if err != nil {
			return err
		}
		if c.Timestamp() < proposal.EndTime {
			return ErrVotingNotEnded
		}
		if proposal.Executed {
			return ErrAlreadyExecuted
		}
		// Ties do not pass
		if proposal.ForVotes <= proposal.AgainstVotes {
			return ErrProposalRejected
		}
		proposal.Executed = true
		if err := saveProposal(store, proposal); err != nil {
			return err
		}
		c.Emit(ProposalExecutedEvent{
			ProposalID:   proposalID,
			ForVotes:     proposal.ForVotes,
			AgainstVotes: proposal.AgainstVotes,
		})
		return nil
	})
}

func GetProposal(store ledger.Store, proposalID uint64) (*Proposal, error) {
	return loadProposal(store, proposalID)
}

// HasVoted reports whether voter voted on the proposal
func HasVoted(store ledger.Store, proposalID uint64, voter ledger.Address) (bool, error) {
	if proposalID == 0 {
		return false, ErrInvalidProposalID
	}
	_, voted, err := loadVote(store, proposalID, voter)
	return voted, err
}

// GetVote returns the recorded vote of voter, if any
func GetVote(store ledger.Store, proposalID uint64, voter ledger.Address) (*Vote, bool, error) {
	if proposalID == 0 {
		return nil, false, ErrInvalidProposalID
	}
	return loadVote(store, proposalID, voter)
}

// GetMember returns the member record for addr, or ErrMemberNotFound
func GetMember(store ledger.Store, addr ledger.Address) (*Member, error) {
	member, found, err := loadMember(store, addr)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrMemberNotFound
	}
	return member, nil
}

func GetState(store ledger.Store) (*State, error) {
	return loadState(store)
}
