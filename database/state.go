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

package database

import (
	"github.com/blinklabs-io/bazaar/database/types"
)

// State exposes the state DB side of a transaction as a flat key/value map
type State struct {
	txn *Txn
}

// State returns the key/value view of the transaction
func (t *Txn) State() *State {
	return &State{txn: t}
}

// Get returns the value stored at key, or types.ErrBlobKeyNotFound
func (s *State) Get(key []byte) ([]byte, error) {
	if s.txn.state == nil {
		return nil, types.ErrBlobStoreUnavailable
	}
	return s.txn.db.Blob().Get(s.txn.state, key)
}

// Set stores val at key
func (s *State) Set(key, val []byte) error {
	if s.txn.state == nil {
		return types.ErrBlobStoreUnavailable
	}
	if !s.txn.writable {
		return types.ErrReadOnlyTxn
	}
	return s.txn.db.Blob().Set(s.txn.state, key, val)
}

// Iterate calls fn for every key with the given prefix in key order. The
// slices passed to fn are copies
func (s *State) Iterate(prefix []byte, fn func(key, val []byte) error) error {
	if s.txn.state == nil {
		return types.ErrBlobStoreUnavailable
	}
	iter := s.txn.db.Blob().NewIterator(
		s.txn.state,
		types.BlobIteratorOptions{Prefix: prefix},
	)
	defer iter.Close()
	if err := iter.Err(); err != nil {
		return err
	}
	for iter.Rewind(); iter.ValidForPrefix(prefix); iter.Next() {
		item := iter.Item()
		val, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		if err := fn(item.Key(), val); err != nil {
			return err
		}
	}
	return iter.Err()
}
