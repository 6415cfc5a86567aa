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

import "github.com/blinklabs-io/bazaar/ledger"

var (
	ErrAlreadyMember = ledger.NewError(
		ledger.KindStateConflict,
		"ALREADY_MEMBER",
		"caller is already a member",
	)
	ErrNotMember = ledger.NewError(
		ledger.KindAuthorization,
		"NOT_MEMBER",
		"caller is not a member",
	)
	ErrMemberNotFound = ledger.NewError(
		ledger.KindNotFound,
		"MEMBER_NOT_FOUND",
		"member not found",
	)
	ErrEmptyDescription = ledger.NewError(
		ledger.KindValidation,
		"EMPTY_DESCRIPTION",
		"proposal description is required",
	)
	ErrDescriptionTooLong = ledger.NewError(
		ledger.KindValidation,
		"DESCRIPTION_TOO_LONG",
		"proposal description is too long",
	)
	ErrInvalidProposalID = ledger.NewError(
		ledger.KindValidation,
		"INVALID_PROPOSAL_ID",
		"proposal ID must be non-zero",
	)
	ErrProposalNotFound = ledger.NewError(
		ledger.KindNotFound,
		"PROPOSAL_NOT_FOUND",
		"proposal not found",
	)
	ErrVotingEnded = ledger.NewError(
		ledger.KindStateConflict,
		"VOTING_ENDED",
		"voting period has ended",
	)
	ErrAlreadyVoted = ledger.NewError(
		ledger.KindStateConflict,
		"ALREADY_VOTED",
		"caller has already voted",
	)
	ErrVotingNotEnded = ledger.NewError(
		ledger.KindStateConflict,
		"VOTING_NOT_ENDED",
		"voting period has not ended",
	)
	ErrAlreadyExecuted = ledger.NewError(
		ledger.KindStateConflict,
		"PROPOSAL_ALREADY_EXECUTED",
		"proposal already executed",
	)
	ErrProposalRejected = ledger.NewError(
		ledger.KindStateConflict,
		"PROPOSAL_NOT_PASSED",
		"proposal did not pass",
	)
)
