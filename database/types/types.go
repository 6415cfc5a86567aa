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

package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"strconv"
)

// Uint64 is an amount column. It is stored as a decimal string because
// postgres and mysql have no unsigned 64-bit integer type
//
//nolint:recvcheck
type Uint64 uint64

func (u Uint64) Value() (driver.Value, error) {
	return strconv.FormatUint(uint64(u), 10), nil
}

func (u *Uint64) Scan(val any) error {
	var s string
	switch v := val.(type) {
	case string:
		s = v
	case []byte:
		// mysql hands back text columns as bytes
		s = string(v)
	default:
		return fmt.Errorf("cannot scan %T into Uint64", val)
	}
	parsed, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return fmt.Errorf("cannot scan %q into Uint64: %w", s, err)
	}
	*u = Uint64(parsed)
	return nil
}

var (
	// ErrBlobKeyNotFound means the state DB has no value at a key
	ErrBlobKeyNotFound = errors.New("blob key not found")
	// ErrBlobStoreUnavailable means a transaction has no state side
	ErrBlobStoreUnavailable = errors.New("blob store unavailable")
	// ErrNoStoreAvailable means a writable transaction opened neither side
	ErrNoStoreAvailable = errors.New("no store available")
	// ErrReadOnlyTxn means a write was attempted through a snapshot
	ErrReadOnlyTxn = errors.New("write in read-only transaction")
	ErrNilTxn      = errors.New("nil transaction")
	// ErrTxnWrongType means a transaction was handed to a store that did not
	// create it
	ErrTxnWrongType = errors.New("invalid transaction type")
)

// BlobItem is one key/value pair of an iteration. It is only valid while the
// transaction that produced it is open
type BlobItem interface {
	Key() []byte
	ValueCopy(dst []byte) ([]byte, error)
}

// BlobIterator walks keys of the state DB in order
type BlobIterator interface {
	Rewind()
	Seek(prefix []byte)
	Valid() bool
	ValidForPrefix(prefix []byte) bool
	Next()
	Item() BlobItem
	Close()
	Err() error
}

type BlobIteratorOptions struct {
	Prefix  []byte
	Reverse bool
}

// Txn is the transaction handle of a single store
type Txn interface {
	Commit() error
	Rollback() error
}
