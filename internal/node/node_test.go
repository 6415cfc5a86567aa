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

package node_test

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/internal/config"
	"github.com/blinklabs-io/bazaar/internal/node"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/ledgertest"
	"github.com/blinklabs-io/bazaar/payout"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	buyer    = ledgertest.Address("buyer")
	seller   = ledgertest.Address("seller")
	platform = ledgertest.Address("platform")
)

func decodeLines[T any](t *testing.T, buf *bytes.Buffer) []T {
	t.Helper()
	var ret []T
	scanner := bufio.NewScanner(buf)
	for scanner.Scan() {
		var tmp T
		require.NoError(t, json.Unmarshal(scanner.Bytes(), &tmp))
		ret = append(ret, tmp)
	}
	require.NoError(t, scanner.Err())
	return ret
}

func TestNodeOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	_, err := node.NodeOptions(cfg, nil)
	require.Error(t, err, "platform wallet is required")

	cfg.Escrow.PlatformWallet = platform.String()
	opts, err := node.NodeOptions(cfg, nil)
	require.NoError(t, err)
	_, err = bazaar.New(bazaar.NewConfig(opts...))
	require.NoError(t, err)

	cfg.Escrow.PlatformWallet = "not-an-address"
	_, err = node.NodeOptions(cfg, nil)
	assert.Error(t, err)
}

func TestDumpJournal(t *testing.T) {
	dataDir := t.TempDir()
	n, err := bazaar.New(bazaar.NewConfig(
		bazaar.WithDatabasePath(dataDir),
		bazaar.WithPlatformWallet(platform),
		bazaar.WithClock(chain.NewManualClock(time.Unix(1_700_000_000, 0))),
		bazaar.WithTransferer(payout.NewRecorder(nil)),
	))
	require.NoError(t, err)
	ctx := context.Background()
	require.NoError(t, n.Start(ctx))
	for orderID := uint64(1); orderID <= 3; orderID++ {
		_, err := n.CreateOrder(ctx, buyer, 1000, orderID, seller)
		require.NoError(t, err)
	}
	// Reverted: order exists
	_, err = n.CreateOrder(ctx, buyer, 1000, 1, seller)
	require.Error(t, err)
	require.NoError(t, n.Stop())

	cfg := node.JournalConfig{
		DatabasePath:   dataDir,
		MetadataPlugin: config.DefaultMetadataPlugin,
	}
	var buf bytes.Buffer
	require.NoError(t, node.DumpJournal(cfg, nil, &buf, node.JournalOptions{}))
	calls := decodeLines[models.LedgerCall](t, &buf)
	require.Len(t, calls, 4)
	assert.Equal(t, uint64(4), calls[3].Seq)
	assert.True(t, calls[3].Reverted())

	buf.Reset()
	require.NoError(t, node.DumpJournal(cfg, nil, &buf, node.JournalOptions{
		After: 1,
		Limit: 2,
	}))
	calls = decodeLines[models.LedgerCall](t, &buf)
	require.Len(t, calls, 2)
	assert.Equal(t, uint64(2), calls[0].Seq)

	buf.Reset()
	require.NoError(t, node.DumpJournal(cfg, nil, &buf, node.JournalOptions{
		Events: true,
		Ledger: escrow.LedgerName,
	}))
	events := decodeLines[models.LedgerEvent](t, &buf)
	require.Len(t, events, 3)
	for _, evt := range events {
		assert.Equal(t, escrow.LedgerName, evt.Ledger)
	}
}
