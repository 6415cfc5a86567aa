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

package chain_test

import (
	"context"
	"encoding/binary"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/ledgertest"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

var (
	counterKey = []byte("test/counter")
	errDenied  = ledger.NewError(ledger.KindAuthorization, "DENIED", "denied")
)

type testEvent struct {
	Value uint64
}

func (testEvent) Type() event.EventType { return "test.incremented" }

func (e testEvent) Record() ledger.EventRecord {
	return ledger.EventRecord{Ledger: "test", Amount: e.Value}
}

func newTestDatabase(t *testing.T, dataDir string) *database.Database {
	t.Helper()
	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	return db
}

func newTestChain(t *testing.T, config chain.ChainConfig) *chain.Chain {
	t.Helper()
	if config.Database == nil {
		config.Database = newTestDatabase(t, "")
	}
	c, err := chain.New(config)
	require.NoError(t, err)
	t.Cleanup(c.Stop)
	return c
}

func readCounter(store ledger.Store) (uint64, error) {
	val, err := store.Get(counterKey)
	if errors.Is(err, ledger.ErrKeyNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return binary.BigEndian.Uint64(val), nil
}

// increment adds one to the counter and emits the new value
var increment = chain.Call{
	Ledger:    "test",
	Operation: "increment",
	Fn: func(c *ledger.Context) error {
		n, err := readCounter(c.Store())
		if err != nil {
			return err
		}
		n++
		if err := c.Store().Set(counterKey, binary.BigEndian.AppendUint64(nil, n)); err != nil {
			return err
		}
		c.Emit(testEvent{Value: n})
		return nil
	},
}

func TestSubmitAssignsSequence(t *testing.T) {
	clock := chain.NewManualClock(time.Unix(1_700_000_000, 0))
	c := newTestChain(t, chain.ChainConfig{Clock: clock})
	alice := ledgertest.Address("alice")

	for i := uint64(1); i <= 3; i++ {
		receipt, err := c.Submit(context.Background(), alice, 0, increment)
		require.NoError(t, err)
		assert.Equal(t, i, receipt.Seq)
		assert.Equal(t, uint64(1_700_000_000)+i-1, receipt.Timestamp)
		assert.Equal(t, alice, receipt.Caller)
		require.Len(t, receipt.Events, 1)
		assert.Equal(t, testEvent{Value: i}, receipt.Events[0])
		clock.Advance(time.Second)
	}
	assert.Equal(t, uint64(3), c.Seq())

	err := c.View(func(store ledger.Store) error {
		n, err := readCounter(store)
		require.NoError(t, err)
		assert.Equal(t, uint64(3), n)
		return nil
	})
	require.NoError(t, err)
}

func TestConcurrentSubmitsAreSerialized(t *testing.T) {
	c := newTestChain(t, chain.ChainConfig{})
	const callers = 25
	var wg sync.WaitGroup
	seqs := make(chan uint64, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			receipt, err := c.Submit(
				context.Background(),
				ledgertest.Address("caller"+string(rune('a'+i))),
				0,
				increment,
			)
			if assert.NoError(t, err) {
				seqs <- receipt.Seq
			}
		}()
	}
	wg.Wait()
	close(seqs)
	seen := make(map[uint64]bool)
	for seq := range seqs {
		assert.False(t, seen[seq], "duplicate seq %d", seq)
		seen[seq] = true
	}
	assert.Len(t, seen, callers)
	err := c.View(func(store ledger.Store) error {
		n, err := readCounter(store)
		require.NoError(t, err)
		assert.Equal(t, uint64(callers), n)
		return nil
	})
	require.NoError(t, err)
}

func TestFailedCallReverts(t *testing.T) {
	db := newTestDatabase(t, "")
	c := newTestChain(t, chain.ChainConfig{Database: db})
	alice := ledgertest.Address("alice")

	_, err := c.Submit(context.Background(), alice, 5, increment)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), alice, 0, chain.Call{
		Ledger:    "test",
		Operation: "denied",
		Fn: func(lc *ledger.Context) error {
			if err := increment.Fn(lc); err != nil {
				return err
			}
			return errDenied
		},
	})
	require.ErrorIs(t, err, errDenied)
	assert.Equal(t, uint64(2), c.Seq())

	err = c.View(func(store ledger.Store) error {
		n, err := readCounter(store)
		require.NoError(t, err)
		assert.Equal(t, uint64(1), n)
		return nil
	})
	require.NoError(t, err)

	calls, err := db.Calls(0, 10)
	require.NoError(t, err)
	require.Len(t, calls, 2)
	assert.Equal(t, models.CallStatusCommitted, calls[0].Status)
	assert.Equal(t, uint32(1), calls[0].EventCount)
	assert.Equal(t, uint64(5), uint64(calls[0].Value))
	assert.True(t, calls[1].Reverted())
	assert.Equal(t, uint64(2), calls[1].Seq)
	assert.Equal(t, "DENIED", calls[1].ErrorCode)
	assert.Equal(t, string(ledger.KindAuthorization), calls[1].ErrorKind)
	assert.Equal(t, "denied", calls[1].ErrorMessage)

	// Only the committed call left events behind
	events, err := db.Events("", 0, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, uint64(1), events[0].Seq)
	assert.Equal(t, "test.incremented", events[0].Type)
	assert.Equal(t, uint64(1), uint64(events[0].Amount))
}

func TestReentrantSubmit(t *testing.T) {
	c := newTestChain(t, chain.ChainConfig{})
	var innerErr error
	_, err := c.Submit(context.Background(), ledgertest.Address("alice"), 0, chain.Call{
		Ledger:    "test",
		Operation: "nested",
		Fn: func(lc *ledger.Context) error {
			_, innerErr = c.Submit(lc.Context(), lc.Caller(), 0, increment)
			return innerErr
		},
	})
	require.ErrorIs(t, innerErr, ledger.ErrReentrantCall)
	require.ErrorIs(t, err, ledger.ErrReentrantCall)
	assert.Equal(t, ledger.KindReentrancy, ledger.KindOf(err))
}

func TestTransfererSeesCall(t *testing.T) {
	var gotSeq uint64
	transferer := ledgertest.TransferFunc(
		func(ctx context.Context, to ledger.Address, amount uint64) error {
			lc, ok := ledger.FromContext(ctx)
			if assert.True(t, ok) {
				gotSeq = lc.Seq()
			}
			return nil
		},
	)
	c := newTestChain(t, chain.ChainConfig{Transferer: transferer})
	receipt, err := c.Submit(context.Background(), ledgertest.Address("alice"), 0, chain.Call{
		Ledger:    "test",
		Operation: "pay",
		Fn: func(lc *ledger.Context) error {
			return lc.Transfer(lc.Caller(), 10)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, receipt.Seq, gotSeq)
}

func TestQueuedCallCanceled(t *testing.T) {
	db := newTestDatabase(t, "")
	c := newTestChain(t, chain.ChainConfig{Database: db})
	alice := ledgertest.Address("alice")
	started := make(chan struct{})
	release := make(chan struct{})
	blocker := chain.Call{
		Ledger:    "test",
		Operation: "block",
		Fn: func(lc *ledger.Context) error {
			close(started)
			<-release
			return nil
		},
	}
	blockerDone := make(chan error, 1)
	go func() {
		_, err := c.Submit(context.Background(), alice, 0, blocker)
		blockerDone <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	queuedDone := make(chan error, 1)
	go func() {
		_, err := c.Submit(ctx, alice, 0, increment)
		queuedDone <- err
	}()
	cancel()
	require.ErrorIs(t, <-queuedDone, context.Canceled)
	close(release)
	require.NoError(t, <-blockerDone)

	// The canceled call never ran and never took a sequence number
	receipt, err := c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	assert.Equal(t, uint64(2), receipt.Seq)
	require.Len(t, receipt.Events, 1)
	assert.Equal(t, testEvent{Value: 1}, receipt.Events[0])
	calls, err := db.Calls(0, 10)
	require.NoError(t, err)
	assert.Len(t, calls, 2)
}

func TestStartedCallIgnoresCancel(t *testing.T) {
	c := newTestChain(t, chain.ChainConfig{})
	ctx, cancel := context.WithCancel(context.Background())
	receipt, err := c.Submit(ctx, ledgertest.Address("alice"), 0, chain.Call{
		Ledger:    "test",
		Operation: "cancelInside",
		Fn: func(lc *ledger.Context) error {
			cancel()
			assert.NoError(t, lc.Context().Err())
			return increment.Fn(lc)
		},
	})
	require.NoError(t, err)
	assert.Equal(t, uint64(1), receipt.Seq)
}

func TestClockIsMonotonic(t *testing.T) {
	clock := chain.NewManualClock(time.Unix(2_000, 0))
	c := newTestChain(t, chain.ChainConfig{Clock: clock})
	alice := ledgertest.Address("alice")

	receipt, err := c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), receipt.Timestamp)

	clock.Set(time.Unix(1_000, 0))
	assert.Equal(t, uint64(2_000), c.Now())
	receipt, err = c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_000), receipt.Timestamp)

	clock.Set(time.Unix(2_500, 0))
	receipt, err = c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	assert.Equal(t, uint64(2_500), receipt.Timestamp)
}

func TestRecoversPosition(t *testing.T) {
	dataDir := t.TempDir()
	clock := chain.NewManualClock(time.Unix(5_000, 0))
	alice := ledgertest.Address("alice")

	db, err := database.New(&database.Config{DataDir: dataDir})
	require.NoError(t, err)
	c, err := chain.New(chain.ChainConfig{Database: db, Clock: clock})
	require.NoError(t, err)
	for range 2 {
		_, err := c.Submit(context.Background(), alice, 0, increment)
		require.NoError(t, err)
	}
	c.Stop()
	require.NoError(t, db.Close())

	// Clock went backwards across the restart
	clock.Set(time.Unix(4_000, 0))
	db = newTestDatabase(t, dataDir)
	c = newTestChain(t, chain.ChainConfig{Database: db, Clock: clock})
	assert.Equal(t, uint64(2), c.Seq())
	receipt, err := c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	assert.Equal(t, uint64(3), receipt.Seq)
	assert.Equal(t, uint64(5_000), receipt.Timestamp)
	assert.Equal(t, testEvent{Value: 3}, receipt.Events[0])
}

func TestEventsPublishedAfterCommit(t *testing.T) {
	db := newTestDatabase(t, "")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	c, err := chain.New(chain.ChainConfig{Database: db, EventBus: bus})
	require.NoError(t, err)
	defer c.Stop()

	_, evtCh := bus.Subscribe("test.incremented")
	_, committedCh := bus.Subscribe(chain.CallCommittedEventType)
	_, revertedCh := bus.Subscribe(chain.CallRevertedEventType)

	receipt, err := c.Submit(context.Background(), ledgertest.Address("alice"), 0, increment)
	require.NoError(t, err)
	select {
	case evt := <-evtCh:
		assert.Equal(t, testEvent{Value: 1}, evt.Data)
		// The event is only published once it is durable
		err := c.View(func(store ledger.Store) error {
			n, err := readCounter(store)
			require.NoError(t, err)
			assert.Equal(t, uint64(1), n)
			return nil
		})
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("did not receive ledger event")
	}
	select {
	case evt := <-committedCh:
		committed, ok := evt.Data.(chain.CallCommittedEvent)
		require.True(t, ok)
		assert.Equal(t, receipt, committed.Receipt)
	case <-time.After(time.Second):
		t.Fatal("did not receive commit event")
	}

	_, err = c.Submit(context.Background(), ledgertest.Address("bob"), 0, chain.Call{
		Ledger:    "test",
		Operation: "denied",
		Fn: func(*ledger.Context) error {
			return errDenied
		},
	})
	require.ErrorIs(t, err, errDenied)
	select {
	case evt := <-revertedCh:
		reverted, ok := evt.Data.(chain.CallRevertedEvent)
		require.True(t, ok)
		assert.Equal(t, uint64(2), reverted.Seq)
		assert.Equal(t, "DENIED", reverted.Code)
		assert.Equal(t, ledger.KindAuthorization, reverted.Kind)
	case <-time.After(time.Second):
		t.Fatal("did not receive revert event")
	}
	select {
	case <-evtCh:
		t.Fatal("reverted call published a ledger event")
	default:
	}
}

func TestSubmitAfterStop(t *testing.T) {
	db := newTestDatabase(t, "")
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c, err := chain.New(chain.ChainConfig{Database: db})
	require.NoError(t, err)
	c.Stop()
	c.Stop()
	_, err = c.Submit(context.Background(), ledgertest.Address("alice"), 0, increment)
	require.ErrorIs(t, err, chain.ErrChainStopped)
	_, err = c.Submit(context.Background(), ledgertest.Address("alice"), 0, chain.Call{})
	require.ErrorIs(t, err, chain.ErrNilCall)
}

func TestChainMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := newTestChain(t, chain.ChainConfig{PromRegistry: reg})
	_, err := c.Submit(context.Background(), ledgertest.Address("alice"), 0, increment)
	require.NoError(t, err)
	_, err = c.Submit(context.Background(), ledgertest.Address("alice"), 0, chain.Call{
		Ledger:    "test",
		Operation: "denied",
		Fn:        func(*ledger.Context) error { return errDenied },
	})
	require.Error(t, err)

	families, err := reg.Gather()
	require.NoError(t, err)
	statuses := make(map[string]float64)
	var seq float64
	for _, family := range families {
		switch family.GetName() {
		case "chain_calls_total":
			for _, metric := range family.GetMetric() {
				for _, label := range metric.GetLabel() {
					if label.GetName() == "status" {
						statuses[label.GetValue()] += metric.GetCounter().GetValue()
					}
				}
			}
		case "chain_seq":
			seq = family.GetMetric()[0].GetGauge().GetValue()
		}
	}
	assert.Equal(t, map[string]float64{
		models.CallStatusCommitted: 1,
		models.CallStatusReverted:  1,
	}, statuses)
	assert.Equal(t, float64(2), seq)
}

var errJournalDown = errors.New("journal unavailable")

// flakyJournal fails the next journal commit once armed
type flakyJournal struct {
	metadata.MetadataStore
	failCommit atomic.Bool
}

type flakyTxn struct {
	types.Txn
	journal *flakyJournal
}

func (t *flakyTxn) Commit() error {
	if t.journal.failCommit.CompareAndSwap(true, false) {
		_ = t.Txn.Rollback()
		return errJournalDown
	}
	return t.Txn.Commit()
}

func unwrapTxn(txn types.Txn) types.Txn {
	if f, ok := txn.(*flakyTxn); ok {
		return f.Txn
	}
	return txn
}

func (j *flakyJournal) Transaction() types.Txn {
	return &flakyTxn{Txn: j.MetadataStore.Transaction(), journal: j}
}

func (j *flakyJournal) SetCommitTimestamp(txn types.Txn, ts int64) error {
	return j.MetadataStore.SetCommitTimestamp(unwrapTxn(txn), ts)
}

func (j *flakyJournal) AddCall(call *models.LedgerCall, txn types.Txn) error {
	return j.MetadataStore.AddCall(call, unwrapTxn(txn))
}

func (j *flakyJournal) AddEvents(events []models.LedgerEvent, txn types.Txn) error {
	return j.MetadataStore.AddEvents(events, unwrapTxn(txn))
}

func (j *flakyJournal) GetLastCall(txn types.Txn) (*models.LedgerCall, error) {
	return j.MetadataStore.GetLastCall(unwrapTxn(txn))
}

func (j *flakyJournal) GetCalls(after uint64, limit int, txn types.Txn) ([]models.LedgerCall, error) {
	return j.MetadataStore.GetCalls(after, limit, unwrapTxn(txn))
}

func (j *flakyJournal) GetEvents(
	ledgerName string,
	after uint64,
	limit int,
	txn types.Txn,
) ([]models.LedgerEvent, error) {
	return j.MetadataStore.GetEvents(ledgerName, after, limit, unwrapTxn(txn))
}

func TestJournalCommitFailureHaltsChain(t *testing.T) {
	dataDir := t.TempDir()
	store, err := metadata.New(metadata.PluginSqlite, dataDir, "", nil, nil)
	require.NoError(t, err)
	journal := &flakyJournal{MetadataStore: store}
	db, err := database.New(&database.Config{DataDir: dataDir, MetadataStore: journal})
	require.NoError(t, err)
	bus := event.NewEventBus(nil, nil)
	defer bus.Stop()
	c, err := chain.New(chain.ChainConfig{Database: db, EventBus: bus})
	require.NoError(t, err)
	alice := ledgertest.Address("alice")

	_, err = c.Submit(context.Background(), alice, 0, increment)
	require.NoError(t, err)
	_, evtCh := bus.Subscribe("test.incremented")
	_, revertedCh := bus.Subscribe(chain.CallRevertedEventType)

	journal.failCommit.Store(true)
	receipt, err := c.Submit(context.Background(), alice, 0, increment)
	assert.Nil(t, receipt)
	require.ErrorIs(t, err, chain.ErrChainHalted)
	require.ErrorIs(t, err, errJournalDown)
	var partialErr *database.PartialCommitError
	require.ErrorAs(t, err, &partialErr)
	assert.Empty(t, ledger.KindOf(err))
	require.ErrorIs(t, c.Halted(), chain.ErrChainHalted)
	assert.Equal(t, uint64(1), c.Seq())

	// Nothing was journaled or published for the torn call
	last, err := db.LastCall()
	require.NoError(t, err)
	require.NotNil(t, last)
	assert.Equal(t, uint64(1), last.Seq)
	select {
	case <-evtCh:
		t.Fatal("torn call published a ledger event")
	case <-revertedCh:
		t.Fatal("torn call was reported as reverted")
	default:
	}

	_, err = c.Submit(context.Background(), alice, 0, increment)
	require.ErrorIs(t, err, chain.ErrChainHalted)
	assert.Equal(t, uint64(1), c.Seq())

	c.Stop()
	require.NoError(t, db.Close())

	db, err = database.New(&database.Config{DataDir: dataDir})
	if db != nil {
		t.Cleanup(func() {
			_ = db.Close()
		})
	}
	var tsErr database.CommitTimestampError
	require.ErrorAs(t, err, &tsErr)
}
