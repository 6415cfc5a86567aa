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

package postgres_test

import (
	"os"
	"testing"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata/postgres"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRequiresDsn(t *testing.T) {
	_, err := postgres.New()
	require.Error(t, err)
}

func TestJournal(t *testing.T) {
	dsn := os.Getenv("POSTGRES_DSN")
	if dsn == "" {
		t.Skip("POSTGRES_DSN not set")
	}
	store, err := postgres.New(postgres.WithDsn(dsn))
	require.NoError(t, err)
	defer store.Close()
	require.NoError(t, store.DB().Exec("DELETE FROM ledger_call").Error)

	txn := store.Transaction()
	require.NoError(t, store.AddCall(&models.LedgerCall{
		Seq:       1,
		Timestamp: 1700000000,
		Ledger:    "escrow",
		Operation: "createOrder",
		Value:     1000,
		Status:    models.CallStatusCommitted,
	}, txn))
	require.NoError(t, store.SetCommitTimestamp(txn, 42))
	require.NoError(t, txn.Commit())

	last, err := store.GetLastCall(nil)
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(1000), uint64(last.Value))
	ts, err := store.GetCommitTimestamp()
	require.NoError(t, err)
	assert.Equal(t, int64(42), ts)
}
