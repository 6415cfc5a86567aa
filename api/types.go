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
	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

type CreateOrderRequest struct {
	OrderID uint64 `json:"orderId"`
	Seller  string `json:"seller"`
	Amount  uint64 `json:"amount"`
}

type CreateProposalRequest struct {
	Description string `json:"description"`
}

// VoteRequest uses a pointer so a missing choice is rejected rather than
// read as a vote against
type VoteRequest struct {
	Support *bool `json:"support"`
}

type EventResponse struct {
	Type         string `json:"type"`
	Ledger       string `json:"ledger"`
	Subject      uint64 `json:"subject,omitempty"`
	Account      string `json:"account,omitempty"`
	Counterparty string `json:"counterparty,omitempty"`
	Amount       uint64 `json:"amount"`
	Support      bool   `json:"support,omitempty"`
	Description  string `json:"description,omitempty"`
}

type ReceiptResponse struct {
	Seq       uint64          `json:"seq"`
	Timestamp uint64          `json:"timestamp"`
	Ledger    string          `json:"ledger"`
	Operation string          `json:"operation"`
	Caller    string          `json:"caller"`
	Value     uint64          `json:"value"`
	Events    []EventResponse `json:"events"`
}

type CreateProposalResponse struct {
	ProposalID uint64          `json:"proposalId"`
	Receipt    ReceiptResponse `json:"receipt"`
}

type OrderResponse struct {
	OrderID   uint64 `json:"orderId"`
	Buyer     string `json:"buyer"`
	Seller    string `json:"seller"`
	Amount    uint64 `json:"amount"`
	Status    string `json:"status"`
	Completed bool   `json:"completed"`
	Disputed  bool   `json:"disputed"`
	Refunded  bool   `json:"refunded"`
	CreatedAt uint64 `json:"createdAt"`
	SettledAt uint64 `json:"settledAt,omitempty"`
}

type BalanceResponse struct {
	Address string `json:"address"`
	Balance uint64 `json:"balance"`
}

type AuditResponse struct {
	Deposited  uint64 `json:"deposited"`
	Withdrawn  uint64 `json:"withdrawn"`
	Balances   uint64 `json:"balances"`
	Held       uint64 `json:"held"`
	Orders     uint64 `json:"orders"`
	OpenOrders uint64 `json:"openOrders"`
	Balanced   bool   `json:"balanced"`
}

type GovernanceStateResponse struct {
	MemberCount   uint64 `json:"memberCount"`
	ProposalCount uint64 `json:"proposalCount"`
}

type MemberResponse struct {
	Address     string `json:"address"`
	VotingPower uint64 `json:"votingPower"`
	JoinedAt    uint64 `json:"joinedAt"`
}

type ProposalResponse struct {
	ProposalID   uint64 `json:"proposalId"`
	Proposer     string `json:"proposer"`
	Description  string `json:"description"`
	ForVotes     uint64 `json:"forVotes"`
	AgainstVotes uint64 `json:"againstVotes"`
	CreatedAt    uint64 `json:"createdAt"`
	EndTime      uint64 `json:"endTime"`
	Executed     bool   `json:"executed"`
	Status       string `json:"status"`
}

type VoteResponse struct {
	ProposalID uint64 `json:"proposalId"`
	Voter      string `json:"voter"`
	Voted      bool   `json:"voted"`
	Support    *bool  `json:"support,omitempty"`
	Weight     uint64 `json:"weight,omitempty"`
}

type CallResponse struct {
	Seq          uint64 `json:"seq"`
	Timestamp    uint64 `json:"timestamp"`
	Ledger       string `json:"ledger"`
	Operation    string `json:"operation"`
	Caller       string `json:"caller"`
	Value        uint64 `json:"value"`
	Status       string `json:"status"`
	ErrorKind    string `json:"errorKind,omitempty"`
	ErrorCode    string `json:"errorCode,omitempty"`
	ErrorMessage string `json:"errorMessage,omitempty"`
	EventCount   uint32 `json:"eventCount"`
}

type JournalEventResponse struct {
	ID         uint64 `json:"id"`
	Seq        uint64 `json:"seq"`
	EventIndex uint32 `json:"eventIndex"`
	Timestamp  uint64 `json:"timestamp"`
	EventResponse
}

// CallsPage is one page of the call journal. Next is the cursor for the
// following page, zero when the page is empty
type CallsPage struct {
	Calls []CallResponse `json:"calls"`
	Next  uint64         `json:"next"`
}

type EventsPage struct {
	Events []JournalEventResponse `json:"events"`
	Next   uint64                 `json:"next"`
}

func newEventResponse(evt ledger.Event) EventResponse {
	rec := evt.Record()
	return EventResponse{
		Type:         string(evt.Type()),
		Ledger:       rec.Ledger,
		Subject:      rec.Subject,
		Account:      rec.Account.String(),
		Counterparty: rec.Counterparty.String(),
		Amount:       rec.Amount,
		Support:      rec.Support,
		Description:  rec.Description,
	}
}

func newReceiptResponse(receipt *chain.Receipt) ReceiptResponse {
	ret := ReceiptResponse{
		Seq:       receipt.Seq,
		Timestamp: receipt.Timestamp,
		Ledger:    receipt.Ledger,
		Operation: receipt.Operation,
		Caller:    receipt.Caller.String(),
		Value:     receipt.Value,
		Events:    make([]EventResponse, 0, len(receipt.Events)),
	}
	for _, evt := range receipt.Events {
		ret.Events = append(ret.Events, newEventResponse(evt))
	}
	return ret
}

func newOrderResponse(order *escrow.Order) OrderResponse {
	return OrderResponse{
		OrderID:   order.ID,
		Buyer:     order.Buyer.String(),
		Seller:    order.Seller.String(),
		Amount:    order.Amount,
		Status:    order.Status(),
		Completed: order.Completed,
		Disputed:  order.Disputed,
		Refunded:  order.Refunded,
		CreatedAt: order.CreatedAt,
		SettledAt: order.SettledAt,
	}
}

func newAuditResponse(report *escrow.AuditReport) AuditResponse {
	return AuditResponse{
		Deposited:  report.Deposited,
		Withdrawn:  report.Withdrawn,
		Balances:   report.Balances,
		Held:       report.Held,
		Orders:     report.Orders,
		OpenOrders: report.OpenOrders,
		Balanced:   report.Balanced,
	}
}

func newProposalResponse(proposal *governance.Proposal, now uint64) ProposalResponse {
	return ProposalResponse{
		ProposalID:   proposal.ID,
		Proposer:     proposal.Proposer.String(),
		Description:  proposal.Description,
		ForVotes:     proposal.ForVotes,
		AgainstVotes: proposal.AgainstVotes,
		CreatedAt:    proposal.CreatedAt,
		EndTime:      proposal.EndTime,
		Executed:     proposal.Executed,
		Status:       proposal.Status(now),
	}
}

func newCallResponse(call *models.LedgerCall) CallResponse {
	return CallResponse{
		Seq:          call.Seq,
		Timestamp:    call.Timestamp,
		Ledger:       call.Ledger,
		Operation:    call.Operation,
		Caller:       call.Caller,
		Value:        uint64(call.Value),
		Status:       call.Status,
		ErrorKind:    call.ErrorKind,
		ErrorCode:    call.ErrorCode,
		ErrorMessage: call.ErrorMessage,
		EventCount:   call.EventCount,
	}
}

func newJournalEventResponse(evt *models.LedgerEvent) JournalEventResponse {
	return JournalEventResponse{
		ID:         uint64(evt.ID),
		Seq:        evt.Seq,
		EventIndex: evt.EventIndex,
		Timestamp:  evt.Timestamp,
		EventResponse: EventResponse{
			Type:         evt.Type,
			Ledger:       evt.Ledger,
			Subject:      evt.Subject,
			Account:      evt.Account,
			Counterparty: evt.Counterparty,
			Amount:       uint64(evt.Amount),
			Support:      evt.Support,
			Description:  evt.Description,
		},
	}
}
