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
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/go-chi/chi/v5"
)

// requireCaller returns the validated caller of a mutating request
func requireCaller(r *http.Request) (ledger.Address, error) {
	raw := strings.TrimSpace(r.Header.Get(CallerHeader))
	if raw == "" {
		return "", ledger.ErrMissingCaller
	}
	return ledger.ParseAddress(raw)
}

func uintParam(r *http.Request, name string) (uint64, error) {
	val, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	if err != nil {
		return 0, ErrInvalidParameter.With(name)
	}
	return val, nil
}

func addressParam(r *http.Request, name string) (ledger.Address, error) {
	return ledger.ParseAddress(chi.URLParam(r, name))
}

// decodeBody decodes a JSON request body into dest. An empty body leaves
// dest untouched
func decodeBody(w http.ResponseWriter, r *http.Request, dest any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return ErrInvalidBody.With(err.Error())
	}
	return nil
}

func (a *API) writeReceipt(w http.ResponseWriter, receipt *chain.Receipt) {
	writeJSON(w, http.StatusOK, newReceiptResponse(receipt))
}
