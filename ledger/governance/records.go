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

package governance

import (
	"encoding/binary"

	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/gouroboros/cbor"
)

const (
	stateKey          = "gov/state"
	memberKeyPrefix   = "gov/member/"
	proposalKeyPrefix = "gov/proposal/"
	voteKeyPrefix     = "gov/vote/"
)

const (
	ProposalStatusOpen     = "open"
	ProposalStatusPassed   = "passed"
	ProposalStatusRejected = "rejected"
	ProposalStatusExecuted = "executed"
)

// State holds the governance counters
type State struct {
	cbor.StructAsArray
	ProposalCount uint64
	MemberCount   uint64
}

type Member struct {
	cbor.StructAsArray
	Address     ledger.Address
	VotingPower uint64
	JoinedAt    uint64
}

type Proposal struct {
	cbor.StructAsArray
	ID           uint64
	Proposer     ledger.Address
	Description  string
	ForVotes     uint64
	AgainstVotes uint64
	CreatedAt    uint64
	EndTime      uint64
	Executed     bool
}

// Status derives the proposal state at the given time
func (p *Proposal) Status(now uint64) string {
	switch {
	case p.Executed:
		return ProposalStatusExecuted
	case now < p.EndTime:
		return ProposalStatusOpen
	case p.ForVotes > p.AgainstVotes:
		return ProposalStatusPassed
	default:
		return ProposalStatusRejected
	}
}

// Vote is one entry of the (proposal, voter) relation
type Vote struct {
	cbor.StructAsArray
	Support bool
	Weight  uint64
}

func memberKey(addr ledger.Address) []byte {
	return append([]byte(memberKeyPrefix), string(addr)...)
}

func proposalKey(proposalID uint64) []byte {
	return binary.BigEndian.AppendUint64([]byte(proposalKeyPrefix), proposalID)
}

func voteKey(proposalID uint64, voter ledger.Address) []byte {
	key := binary.BigEndian.AppendUint64([]byte(voteKeyPrefix), proposalID)
	key = append(key, '/')
	return append(key, string(voter)...)
}

func loadState(store ledger.Store) (*State, error) {
	state := &State{}
	if _, err := ledger.GetRecord(store, []byte(stateKey), state); err != nil {
		return nil, err
	}
	return state, nil
}

func saveState(store ledger.Store, state *State) error {
	return ledger.PutRecord(store, []byte(stateKey), state)
}

func loadMember(store ledger.Store, addr ledger.Address) (*Member, bool, error) {
	member := &Member{}
	found, err := ledger.GetRecord(store, memberKey(addr), member)
	if err != nil || !found {
		return nil, false, err
	}
	return member, true, nil
}

func loadProposal(store ledger.Store, proposalID uint64) (*Proposal, error) {
	if proposalID == 0 {
		return nil, ErrInvalidProposalID
	}
	proposal := &Proposal{}
	found, err := ledger.GetRecord(store, proposalKey(proposalID), proposal)
	if err != nil {
		return nil, err
	}
	if !found {
		return nil, ErrProposalNotFound
	}
	return proposal, nil
}

func saveProposal(store ledger.Store, proposal *Proposal) error {
	return ledger.PutRecord(store, proposalKey(proposal.ID), proposal)
}

func loadVote(store ledger.Store, proposalID uint64, voter ledger.Address) (*Vote, bool, error) {
	vote := &Vote{}
	found, err := ledger.GetRecord(store, voteKey(proposalID, voter), vote)
	if err != nil || !found {
		return nil, false, err
	}
	return vote, true, nil
}
