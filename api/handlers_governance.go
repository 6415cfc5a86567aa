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
	"net/http"
)

func (a *API) handleJoinDAO(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.node.JoinDAO(r.Context(), caller)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeReceipt(w, receipt)
}

func (a *API) handleGetGovernanceState(w http.ResponseWriter, r *http.Request) {
	state, err := a.node.GovernanceState()
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, GovernanceStateResponse{
		MemberCount:   state.MemberCount,
		ProposalCount: state.ProposalCount,
	})
}

func (a *API) handleGetMember(w http.ResponseWriter, r *http.Request) {
	addr, err := addressParam(r, "address")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	member, err := a.node.Member(addr)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, MemberResponse{
		Address:     member.Address.String(),
		VotingPower: member.VotingPower,
		JoinedAt:    member.JoinedAt,
	})
}

func (a *API) handleCreateProposal(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req CreateProposalRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	proposalID, receipt, err := a.node.CreateProposal(r.Context(), caller, req.Description)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, CreateProposalResponse{
		ProposalID: proposalID,
		Receipt:    newReceiptResponse(receipt),
	})
}

func (a *API) handleGetProposal(w http.ResponseWriter, r *http.Request) {
	proposalID, err := uintParam(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	proposal, err := a.node.Proposal(proposalID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newProposalResponse(proposal, a.node.BlockTime()))
}

func (a *API) handleVote(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	proposalID, err := uintParam(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	var req VoteRequest
	if err := decodeBody(w, r, &req); err != nil {
		a.writeError(w, r, err)
		return
	}
	if req.Support == nil {
		a.writeError(w, r, ErrInvalidBody.With("support is required"))
		return
	}
	receipt, err := a.node.Vote(r.Context(), caller, proposalID, *req.Support)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeReceipt(w, receipt)
}

func (a *API) handleGetVote(w http.ResponseWriter, r *http.Request) {
	proposalID, err := uintParam(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	voter, err := addressParam(r, "address")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	// Unknown proposals are a 404 rather than "not voted"
	if _, err := a.node.Proposal(proposalID); err != nil {
		a.writeError(w, r, err)
		return
	}
	vote, voted, err := a.node.ProposalVote(proposalID, voter)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := VoteResponse{
		ProposalID: proposalID,
		Voter:      voter.String(),
		Voted:      voted,
	}
	if voted {
		support := vote.Support
		resp.Support = &support
		resp.Weight = vote.Weight
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *API) handleExecuteProposal(w http.ResponseWriter, r *http.Request) {
	caller, err := requireCaller(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	proposalID, err := uintParam(r, "id")
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	receipt, err := a.node.ExecuteProposal(r.Context(), caller, proposalID)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	a.writeReceipt(w, receipt)
}
