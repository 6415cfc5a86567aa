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

package database_test

import (
	"errors"
	"testing"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.New(nil)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func TestTxnCommitsBothStores(t *testing.T) {
	db := newTestDatabase(t)
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		if err := txn.State().Set([]byte("escrow/totals"), []byte{1}); err != nil {
			return err
		}
		return db.AddCall(&models.LedgerCall{
			Seq:       1,
			Ledger:    "escrow",
			Operation: "createOrder",
			Status:    models.CallStatusCommitted,
		}, txn)
	})
	require.NoError(t, err)

	txn := database.NewSnapshotTxn(db)
	defer txn.Release()
	val, err := txn.State().Get([]byte("escrow/totals"))
	require.NoError(t, err)
	assert.Equal(t, []byte{1}, val)
	last, err := db.LastCall()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(1), last.Seq)

	metadataTs, err := db.Metadata().GetCommitTimestamp()
	require.NoError(t, err)
	blobTs, err := db.Blob().GetCommitTimestamp()
	require.NoError(t, err)
	assert.Positive(t, metadataTs)
	assert.Equal(t, metadataTs, blobTs)
}

func TestTxnRollsBackBothStores(t *testing.T) {
	db := newTestDatabase(t)
	errBoom := errors.New("boom")
	err := db.Transaction(true).Do(func(txn *database.Txn) error {
		require.NoError(t, txn.State().Set([]byte("k"), []byte("v")))
		require.NoError(t, db.AddCall(&models.LedgerCall{
			Seq:       1,
			Ledger:    "escrow",
			Operation: "withdraw",
			Status:    models.CallStatusCommitted,
		}, txn))
		return errBoom
	})
	require.ErrorIs(t, err, errBoom)

	txn := database.NewSnapshotTxn(db)
	defer txn.Release()
	_, err = txn.State().Get([]byte("k"))
	require.ErrorIs(t, err, types.ErrBlobKeyNotFound)
	last, err := db.LastCall()
	require.NoError(t, err)
	assert.Nil(t, last)
}

func TestReadOnlyState(t *testing.T) {
	db := newTestDatabase(t)
	txn := database.NewSnapshotTxn(db)
	defer txn.Release()
	assert.False(t, txn.ReadWrite())
	require.ErrorIs(t, txn.State().Set([]byte("k"), nil), types.ErrReadOnlyTxn)
	// Committing a read-only transaction only releases it
	require.NoError(t, txn.Commit())
}

func TestStateIterate(t *testing.T) {
	db := newTestDatabase(t)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		for _, k := range []string{"gov/member/b", "gov/member/a", "gov/state", "escrow/totals"} {
			if err := txn.State().Set([]byte(k), []byte(k)); err != nil {
				return err
			}
		}
		return nil
	}))
	txn := database.NewSnapshotTxn(db)
	defer txn.Release()
	var keys []string
	require.NoError(t, txn.State().Iterate([]byte("gov/member/"), func(key, val []byte) error {
		assert.Equal(t, key, val)
		keys = append(keys, string(key))
		return nil
	}))
	assert.Equal(t, []string{"gov/member/a", "gov/member/b"}, keys)

	errStop := errors.New("stop")
	err := txn.State().Iterate([]byte("gov/"), func(key, val []byte) error {
		return errStop
	})
	require.ErrorIs(t, err, errStop)
}

func TestCommitTimestampMismatch(t *testing.T) {
	dir := t.TempDir()
	db, err := database.New(&database.Config{DataDir: dir})
	require.NoError(t, err)
	require.NoError(t, db.Transaction(true).Do(func(txn *database.Txn) error {
		return txn.State().Set([]byte("k"), []byte("v"))
	}))
	// Simulate a torn commit where only the state DB moved forward
	blobTxn := db.Blob().NewTransaction(true)
	require.NoError(t, db.Blob().SetCommitTimestamp(blobTxn, 1))
	require.NoError(t, blobTxn.Commit())
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dir})
	require.Error(t, err)
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
	assert.Equal(t, int64(1), tsErr.BlobTimestamp)
	// The database is still returned for inspection
	require.NotNil(t, db)
	require.NoError(t, db.Close())
}

func TestJournalPaging(t *testing.T) {
	db := newTestDatabase(t)
	for seq := uint64(1); seq <= 3; seq++ {
		require.NoError(t, db.AddCall(&models.LedgerCall{
			Seq:       seq,
			Ledger:    "governance",
			Operation: "joinDAO",
			Status:    models.CallStatusCommitted,
		}, nil))
		require.NoError(t, db.AddEvents([]models.LedgerEvent{{
			Seq:    seq,
			Ledger: "governance",
			Type:   "governance.member.added",
		}}, nil))
	}
	calls, err := db.Calls(2, 10)
	require.NoError(t, err)
	require.Len(t, calls, 1)
	assert.Equal(t, uint64(3), calls[0].Seq)
	events, err := db.Events("governance", 0, 2)
	require.NoError(t, err)
	assert.Len(t, events, 2)
	events, err = db.Events("escrow", 0, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}
