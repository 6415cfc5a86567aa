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

// Package ledgertest provides in-memory helpers for testing ledger operations
package ledgertest

import (
	"bytes"
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/blinklabs-io/bazaar/ledger"
	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// Address derives a deterministic testnet enterprise address from a name
func Address(name string) ledger.Address {
	keyHash := lcommon.Blake2b224Hash([]byte(name))
	addr, err := lcommon.NewAddressFromParts(
		lcommon.AddressTypeKeyNone,
		lcommon.AddressNetworkTestnet,
		keyHash[:],
		nil,
	)
	if err != nil {
		panic(err)
	}
	return ledger.Address(addr.String())
}

// MemStore is a map-backed ledger.Store
type MemStore struct {
	mu   sync.Mutex
	data map[string][]byte
}

func NewMemStore() *MemStore {
	return &MemStore{data: make(map[string][]byte)}
}

func (m *MemStore) Get(key []byte) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	val, ok := m.data[string(key)]
	if !ok {
		return nil, ledger.ErrKeyNotFound
	}
	return bytes.Clone(val), nil
}

func (m *MemStore) Set(key, val []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[string(key)] = bytes.Clone(val)
	return nil
}

func (m *MemStore) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	m.mu.Lock()
	keys := slices.Sorted(maps.Keys(m.data))
	snapshot := maps.Clone(m.data)
	m.mu.Unlock()
	for _, k := range keys {
		if !bytes.HasPrefix([]byte(k), prefix) {
			continue
		}
		if err := fn([]byte(k), bytes.Clone(snapshot[k])); err != nil {
			return err
		}
	}
	return nil
}

// Snapshot returns a copy of the store contents
func (m *MemStore) Snapshot() map[string][]byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	return maps.Clone(m.data)
}

// Restore replaces the store contents with a snapshot
func (m *MemStore) Restore(snapshot map[string][]byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data = maps.Clone(snapshot)
}

// TransferFunc adapts a function to ledger.Transferer
type TransferFunc func(ctx context.Context, to ledger.Address, amount uint64) error

func (f TransferFunc) Transfer(ctx context.Context, to ledger.Address, amount uint64) error {
	return f(ctx, to, amount)
}

// Runner executes ledger calls against a MemStore with all-or-nothing
// semantics, standing in for the chain
type Runner struct {
	Store      *MemStore
	Transferer ledger.Transferer
	Now        uint64
	seq        uint64
}

func NewRunner() *Runner {
	return &Runner{
		Store: NewMemStore(),
		Now:   1_700_000_000,
	}
}

// Call runs fn as caller with the given attached value. State changes are
// discarded if fn fails. The emitted events are returned on success
func (r *Runner) Call(
	caller ledger.Address,
	value uint64,
	fn func(*ledger.Context) error,
) ([]ledger.Event, error) {
	r.seq++
	snapshot := r.Store.Snapshot()
	c := ledger.NewContext(
		context.Background(),
		r.Store,
		r.Transferer,
		ledger.CallInfo{
			Seq:       r.seq,
			Caller:    caller,
			Value:     value,
			Timestamp: r.Now,
		},
	)
	if err := fn(c); err != nil {
		r.Store.Restore(snapshot)
		return nil, err
	}
	return c.Events(), nil
}
