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

package badger

import (
	"errors"

	"github.com/blinklabs-io/bazaar/database/types"
	badger "github.com/dgraph-io/badger/v4"
)

var errForeignTxn = errors.New("transaction belongs to another store")

// storeTxn is the types.Txn handed out by NewTransaction
type storeTxn struct {
	store *BlobStoreBadger
	tx    *badger.Txn
	done  bool
}

func (t *storeTxn) Commit() error {
	if t.done {
		return nil
	}
	t.done = true
	return t.tx.Commit()
}

func (t *storeTxn) Rollback() error {
	if !t.done {
		t.done = true
		t.tx.Discard()
	}
	return nil
}

// open returns the badger transaction behind txn if it is usable here
func (d *BlobStoreBadger) open(txn types.Txn) (*badger.Txn, error) {
	if txn == nil {
		return nil, types.ErrNilTxn
	}
	t, ok := txn.(*storeTxn)
	switch {
	case !ok:
		return nil, types.ErrTxnWrongType
	case t.store != d:
		return nil, errForeignTxn
	case t.done:
		return nil, errors.New("transaction already finished")
	}
	return t.tx, nil
}

type storeIterator struct {
	iter *badger.Iterator
	err  error
}

func (it *storeIterator) Rewind() {
	if it.iter != nil {
		it.iter.Rewind()
	}
}

func (it *storeIterator) Seek(prefix []byte) {
	if it.iter != nil {
		it.iter.Seek(prefix)
	}
}

func (it *storeIterator) Valid() bool {
	return it.iter != nil && it.iter.Valid()
}

func (it *storeIterator) ValidForPrefix(p []byte) bool {
	return it.iter != nil && it.iter.ValidForPrefix(p)
}

func (it *storeIterator) Next() {
	if it.iter != nil {
		it.iter.Next()
	}
}

func (it *storeIterator) Item() types.BlobItem {
	if it.iter == nil {
		return nil
	}
	return storeItem{item: it.iter.Item()}
}

func (it *storeIterator) Close() {
	if it.iter != nil {
		it.iter.Close()
	}
}

func (it *storeIterator) Err() error {
	return it.err
}

type storeItem struct {
	item *badger.Item
}

func (i storeItem) Key() []byte {
	return i.item.KeyCopy(nil)
}

func (i storeItem) ValueCopy(dst []byte) ([]byte, error) {
	return i.item.ValueCopy(dst)
}
