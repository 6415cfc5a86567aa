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

package escrow

import "github.com/blinklabs-io/bazaar/ledger"

var (
	ErrInvalidOrderID = ledger.NewError(
		ledger.KindValidation,
		"INVALID_ORDER_ID",
		"order ID must be non-zero",
	)
	ErrZeroAmount = ledger.NewError(
		ledger.KindValidation,
		"ZERO_AMOUNT",
		"deposit must be greater than zero",
	)
	ErrInvalidSeller = ledger.NewError(
		ledger.KindValidation,
		"INVALID_SELLER",
		"seller address is required",
	)
	ErrOrderExists = ledger.NewError(
		ledger.KindValidation,
		"ORDER_EXISTS",
		"order already exists",
	)
	ErrOrderNotFound = ledger.NewError(
		ledger.KindNotFound,
		"ORDER_NOT_FOUND",
		"order not found",
	)
	ErrNotBuyer = ledger.NewError(
		ledger.KindAuthorization,
		"NOT_BUYER",
		"caller is not the buyer",
	)
	ErrNotSeller = ledger.NewError(
		ledger.KindAuthorization,
		"NOT_SELLER",
		"caller is not the seller",
	)
	ErrNotParticipant = ledger.NewError(
		ledger.KindAuthorization,
		"NOT_PARTICIPANT",
		"caller is neither buyer nor seller",
	)
	ErrAlreadyCompleted = ledger.NewError(
		ledger.KindStateConflict,
		"ORDER_ALREADY_COMPLETED",
		"order already completed",
	)
	ErrAlreadyRefunded = ledger.NewError(
		ledger.KindStateConflict,
		"ORDER_ALREADY_REFUNDED",
		"order already refunded",
	)
	ErrAlreadyDisputed = ledger.NewError(
		ledger.KindStateConflict,
		"ORDER_ALREADY_DISPUTED",
		"order already disputed",
	)
	ErrOrderDisputed = ledger.NewError(
		ledger.KindStateConflict,
		"ORDER_DISPUTED",
		"order is disputed",
	)
	ErrNoBalance = ledger.NewError(
		ledger.KindStateConflict,
		"NO_BALANCE",
		"no balance",
	)
	ErrTransferFailed = ledger.NewError(
		ledger.KindTransfer,
		"TRANSFER_FAILED",
		"transfer failed",
	)
)
