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
	"encoding/json"
	"errors"
	"net/http"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/ledger"
)

var (
	ErrInvalidParameter = ledger.NewError(
		ledger.KindValidation,
		"INVALID_PARAMETER",
		"invalid parameter",
	)
	ErrInvalidBody = ledger.NewError(
		ledger.KindValidation,
		"INVALID_BODY",
		"invalid request body",
	)
)

const (
	codeRateLimited = "RATE_LIMITED"
	codeUnavailable = "UNAVAILABLE"
	codeInternal    = "INTERNAL"
)

// statusForKind maps a ledger error kind to the HTTP status it is served with
func statusForKind(kind ledger.Kind) int {
	switch kind {
	case ledger.KindValidation:
		return http.StatusBadRequest
	case ledger.KindAuthorization:
		return http.StatusForbidden
	case ledger.KindNotFound:
		return http.StatusNotFound
	case ledger.KindStateConflict, ledger.KindReentrancy:
		return http.StatusConflict
	case ledger.KindTransfer:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON writes a JSON response with the given status code
func writeJSON(
	w http.ResponseWriter,
	status int,
	v any,
) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck,errchkjson
	json.NewEncoder(w).Encode(v)
}

func writeErrorResponse(
	w http.ResponseWriter,
	status int,
	code string,
	kind string,
	message string,
) {
	writeJSON(w, status, ErrorResponse{
		Code:    code,
		Kind:    kind,
		Message: message,
	})
}

// writeError classifies err and writes the error response. Errors without
// a ledger kind are logged and hidden from the client
func (a *API) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var lErr *ledger.Error
	if errors.As(err, &lErr) {
		writeErrorResponse(
			w,
			statusForKind(lErr.Kind),
			lErr.Code,
			string(lErr.Kind),
			err.Error(),
		)
		return
	}
	switch {
	case errors.Is(err, chain.ErrChainStopped),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		writeErrorResponse(
			w,
			http.StatusServiceUnavailable,
			codeUnavailable,
			"",
			err.Error(),
		)
		return
	}
	a.logger.Error(
		"request failed",
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	writeErrorResponse(
		w,
		http.StatusInternalServerError,
		codeInternal,
		"",
		"internal error",
	)
}
