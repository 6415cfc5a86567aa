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

// Package ledger holds the primitives shared by the escrow and governance
// ledgers: caller identities, the call context, storage access, events and
// the error taxonomy.
package ledger

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/gouroboros/cbor"
)

// ErrKeyNotFound is returned by Store.Get for a missing key
var ErrKeyNotFound = types.ErrBlobKeyNotFound

// Store is the flat key/value view of ledger state a call runs against.
// Writes become visible to other callers only when the call commits
type Store interface {
	Get(key []byte) ([]byte, error)
	Set(key, val []byte) error
	Iterate(prefix []byte, fn func(key, val []byte) error) error
}

// GetRecord decodes the CBOR record at key into dest. It reports false when
// the key does not exist
func GetRecord(store Store, key []byte, dest any) (bool, error) {
	data, err := store.Get(key)
	if err != nil {
		if errors.Is(err, ErrKeyNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s: %w", key, err)
	}
	if _, err := cbor.Decode(data, dest); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

// PutRecord stores the CBOR encoding of src at key
func PutRecord(store Store, key []byte, src any) error {
	data, err := cbor.Encode(src)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := store.Set(key, data); err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	return nil
}
