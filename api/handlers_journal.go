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

	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
)

func (a *API) handleCalls(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePage(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	calls, err := a.node.Calls(params.After, params.Limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page := CallsPage{
		Calls: make([]CallResponse, 0, len(calls)),
	}
	for i := range calls {
		page.Calls = append(page.Calls, newCallResponse(&calls[i]))
		page.Next = calls[i].Seq
	}
	writeJSON(w, http.StatusOK, page)
}

func (a *API) handleEvents(w http.ResponseWriter, r *http.Request) {
	params, err := ParsePage(r)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	ledgerName := r.URL.Query().Get("ledger")
	switch ledgerName {
	case "", escrow.LedgerName, governance.LedgerName:
	default:
		a.writeError(w, r, ErrInvalidParameter.With("ledger"))
		return
	}
	events, err := a.node.Events(ledgerName, params.After, params.Limit)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	page := EventsPage{
		Events: make([]JournalEventResponse, 0, len(events)),
	}
	for i := range events {
		page.Events = append(page.Events, newJournalEventResponse(&events[i]))
		page.Next = uint64(events[i].ID)
	}
	writeJSON(w, http.StatusOK, page)
}
