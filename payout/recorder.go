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

// Package payout provides the transferers that move withdrawn funds out of
// the escrow ledger.
package payout

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/blinklabs-io/bazaar/ledger"
)

// Transfer is one payout handed to a transferer
type Transfer struct {
	Seq    uint64
	To     ledger.Address
	Amount uint64
}

// Recorder is a transferer that keeps payouts in memory and logs them. It
// is used when no external payout endpoint is configured
type Recorder struct {
	logger    *slog.Logger
	mu        sync.Mutex
	transfers []Transfer
	rejects   map[ledger.Address]error
}

func NewRecorder(logger *slog.Logger) *Recorder {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Recorder{
		logger:  logger,
		rejects: make(map[ledger.Address]error),
	}
}

// Transfer records the payout, or fails with the error registered for the
// recipient via Reject
func (r *Recorder) Transfer(
	ctx context.Context,
	to ledger.Address,
	amount uint64,
) error {
	var seq uint64
	if c, ok := ledger.FromContext(ctx); ok {
		seq = c.Seq()
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if err, ok := r.rejects[to]; ok {
		return err
	}
	r.transfers = append(
		r.transfers,
		Transfer{Seq: seq, To: to, Amount: amount},
	)
	r.logger.Info(
		fmt.Sprintf("paid out %d to %s", amount, to),
		"component", "payout",
		"seq", seq,
	)
	return nil
}

// Reject makes later transfers to addr fail with err. A nil err clears it
func (r *Recorder) Reject(addr ledger.Address, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err == nil {
		delete(r.rejects, addr)
		return
	}
	r.rejects[addr] = err
}

// Transfers returns a copy of the recorded payouts in order
func (r *Recorder) Transfers() []Transfer {
	r.mu.Lock()
	defer r.mu.Unlock()
	ret := make([]Transfer, len(r.transfers))
	copy(ret, r.transfers)
	return ret
}

// Total returns the sum paid out to addr
func (r *Recorder) Total(addr ledger.Address) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var total uint64
	for _, t := range r.transfers {
		if t.To == addr {
			total += t.Amount
		}
	}
	return total
}
