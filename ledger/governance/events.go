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
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
)

const (
	MemberAddedEventType      event.EventType = "governance.member.added"
	ProposalCreatedEventType  event.EventType = "governance.proposal.created"
	VoteCastEventType         event.EventType = "governance.vote.cast"
	ProposalExecutedEventType event.EventType = "governance.proposal.executed"
)

type MemberAddedEvent struct {
	Member      ledger.Address
	VotingPower uint64
}

func (MemberAddedEvent) Type() event.EventType { return MemberAddedEventType }

func (e MemberAddedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Account: e.Member,
		Amount:  e.VotingPower,
	}
}

type ProposalCreatedEvent struct {
	ProposalID  uint64
	Proposer    ledger.Address
	Description string
	EndTime     uint64
}

func (ProposalCreatedEvent) Type() event.EventType { return ProposalCreatedEventType }

func (e ProposalCreatedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:      LedgerName,
		Subject:     e.ProposalID,
		Account:     e.Proposer,
		Amount:      e.EndTime,
		Description: e.Description,
	}
}

type VoteCastEvent struct {
	ProposalID uint64
	Voter      ledger.Address
	Support    bool
	Weight     uint64
}

func (VoteCastEvent) Type() event.EventType { return VoteCastEventType }

func (e VoteCastEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Subject: e.ProposalID,
		Account: e.Voter,
		Amount:  e.Weight,
		Support: e.Support,
	}
}

type ProposalExecutedEvent struct {
	ProposalID   uint64
	ForVotes     uint64
	AgainstVotes uint64
}

func (ProposalExecutedEvent) Type() event.EventType { return ProposalExecutedEventType }

func (e ProposalExecutedEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{
		Ledger:  LedgerName,
		Subject: e.ProposalID,
		Amount:  e.ForVotes,
	}
}
