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

// Package chain is the serial executor every ledger call goes through. It
// runs one call at a time in submission order, inside a single database
// transaction, and publishes the emitted events once the call commits.
package chain

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"
	"unicode/utf8"

	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultQueueSize = 256

	// maxErrorMessageLength matches the journal column size
	maxErrorMessageLength = 255
)

type ChainConfig struct {
	Database     *database.Database
	EventBus     *event.EventBus
	Transferer   ledger.Transferer
	Clock        Clock
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	QueueSize    int
}

// Call is one ledger operation to execute
type Call struct {
	Ledger    string
	Operation string
	Fn        func(*ledger.Context) error
}

const (
	requestQueued int32 = iota
	requestStarted
	requestCanceled
)

type result struct {
	receipt *Receipt
	err     error
}

type request struct {
	ctx    context.Context
	caller ledger.Address
	value  uint64
	call   Call
	state  atomic.Int32
	done   chan result
}

type Chain struct {
	config        ChainConfig
	db            *database.Database
	eventBus      *event.EventBus
	logger        *slog.Logger
	tracer        trace.Tracer
	metrics       *chainMetrics
	queue         chan *request
	stopCh        chan struct{}
	wg            sync.WaitGroup
	mu            sync.RWMutex
	stopped       bool
	haltMu        sync.Mutex
	haltErr       error
	seq           atomic.Uint64
	lastTimestamp atomic.Uint64
}

// New creates the chain, recovers its position from the call journal and
// starts the worker
func New(config ChainConfig) (*Chain, error) {
	if config.Database == nil {
		return nil, errors.New("chain: database is required")
	}
	if config.Logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		config.Logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	if config.Clock == nil {
		config.Clock = SystemClock{}
	}
	if config.QueueSize <= 0 {
		config.QueueSize = DefaultQueueSize
	}
	c := &Chain{
		config:   config,
		db:       config.Database,
		eventBus: config.EventBus,
		logger:   config.Logger,
		tracer:   otel.Tracer("github.com/blinklabs-io/bazaar/chain"),
		queue:    make(chan *request, config.QueueSize),
		stopCh:   make(chan struct{}),
	}
	lastCall, err := c.db.LastCall()
	if err != nil {
		return nil, fmt.Errorf("load last call: %w", err)
	}
	if lastCall != nil {
		c.seq.Store(lastCall.Seq)
		c.lastTimestamp.Store(lastCall.Timestamp)
		c.logger.Info(
			fmt.Sprintf(
				"recovered chain position at seq %d",
				lastCall.Seq,
			),
			"component", "chain",
		)
	}
	if config.PromRegistry != nil {
		c.metrics = &chainMetrics{}
		c.metrics.init(
			config.PromRegistry,
			func() float64 { return float64(len(c.queue)) },
		)
		c.metrics.seq.Set(float64(c.seq.Load()))
		c.metrics.blockTime.Set(float64(c.lastTimestamp.Load()))
	}
	c.wg.Add(1)
	go c.run()
	return c, nil
}

// Seq returns the sequence number of the last journaled call
func (c *Chain) Seq() uint64 {
	return c.seq.Load()
}

// Now returns the block timestamp the next call would get, without
// consuming it
func (c *Chain) Now() uint64 {
	return c.clampTimestamp(c.config.Clock.Now())
}

func (c *Chain) clampTimestamp(now time.Time) uint64 {
	var ts uint64
	if unix := now.Unix(); unix > 0 {
		ts = uint64(unix)
	}
	return max(ts, c.lastTimestamp.Load())
}

// Submit queues a call and waits for it to execute. A call whose ctx is
// canceled while queued is skipped and returns ctx.Err(). Once started, a
// call runs to completion regardless of ctx
func (c *Chain) Submit(
	ctx context.Context,
	caller ledger.Address,
	value uint64,
	call Call,
) (*Receipt, error) {
	if call.Fn == nil {
		return nil, ErrNilCall
	}
	// A call made from inside an executing call would wait on itself
	if _, ok := ledger.FromContext(ctx); ok {
		return nil, ledger.ErrReentrantCall
	}
	req := &request{
		ctx:    ctx,
		caller: caller,
		value:  value,
		call:   call,
		done:   make(chan result, 1),
	}
	if err := c.enqueue(req); err != nil {
		return nil, err
	}
	select {
	case res := <-req.done:
		return res.receipt, res.err
	case <-ctx.Done():
		if req.state.CompareAndSwap(requestQueued, requestCanceled) {
			return nil, ctx.Err()
		}
		// Already executing
		res := <-req.done
		return res.receipt, res.err
	}
}

func (c *Chain) enqueue(req *request) error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.stopped {
		return ErrChainStopped
	}
	if err := c.Halted(); err != nil {
		return err
	}
	select {
	case c.queue <- req:
		return nil
	case <-req.ctx.Done():
		return req.ctx.Err()
	}
}

// View runs fn against a read-only snapshot of the current state. Views do
// not wait for the writer
func (c *Chain) View(fn func(ledger.Store) error) error {
	txn := database.NewSnapshotTxn(c.db)
	defer txn.Release()
	return fn(txn.State())
}

// Stop fails all queued calls with ErrChainStopped and waits for the worker.
// A call already executing finishes first
func (c *Chain) Stop() {
	c.mu.Lock()
	if c.stopped {
		c.mu.Unlock()
		return
	}
	c.stopped = true
	close(c.stopCh)
	c.mu.Unlock()
	c.wg.Wait()
}

func (c *Chain) run() {
	defer c.wg.Done()
	for {
		select {
		case <-c.stopCh:
			c.drain()
			return
		case req := <-c.queue:
			// Stop wins over queued work
			select {
			case <-c.stopCh:
				req.done <- result{err: ErrChainStopped}
				c.drain()
				return
			default:
			}
			if !req.state.CompareAndSwap(requestQueued, requestStarted) {
				// Canceled while queued
				continue
			}
			if err := req.ctx.Err(); err != nil {
				req.done <- result{err: err}
				continue
			}
			if err := c.Halted(); err != nil {
				req.done <- result{err: err}
				continue
			}
			receipt, err := c.execute(req)
			req.done <- result{receipt: receipt, err: err}
		}
	}
}

func (c *Chain) drain() {
	for {
		select {
		case req := <-c.queue:
			req.done <- result{err: ErrChainStopped}
		default:
			return
		}
	}
}

func (c *Chain) execute(req *request) (*Receipt, error) {
	start := time.Now()
	seq := c.seq.Load() + 1
	ts := c.clampTimestamp(c.config.Clock.Now())
	ctx, span := c.tracer.Start(
		req.ctx,
		"chain.call",
		trace.WithAttributes(
			attribute.String("ledger", req.call.Ledger),
			attribute.String("operation", req.call.Operation),
			attribute.Int64("seq", int64(seq)), //nolint:gosec // sequence fits
		),
	)
	defer span.End()
	// Detach from caller cancellation so a started call always completes
	ctx = context.WithoutCancel(ctx)
	info := ledger.CallInfo{
		Seq:       seq,
		Caller:    req.caller,
		Value:     req.value,
		Timestamp: ts,
	}
	var events []ledger.Event
	txn := c.db.Transaction(true)
	err := txn.Do(func(txn *database.Txn) error {
		lctx := ledger.NewContext(ctx, txn.State(), c.config.Transferer, info)
		if err := req.call.Fn(lctx); err != nil {
			return err
		}
		events = lctx.Events()
		if err := c.db.AddCall(c.callRecord(req, info, len(events), nil), txn); err != nil {
			return fmt.Errorf("journal call: %w", err)
		}
		if len(events) > 0 {
			if err := c.db.AddEvents(eventRecords(info, events), txn); err != nil {
				return fmt.Errorf("journal events: %w", err)
			}
		}
		return nil
	})
	if c.metrics != nil {
		c.metrics.callDuration.WithLabelValues(
			req.call.Ledger,
			req.call.Operation,
		).Observe(time.Since(start).Seconds())
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		var partialErr *database.PartialCommitError
		if errors.As(err, &partialErr) {
			return nil, c.halt(info, err)
		}
		c.revert(req, info, err)
		return nil, err
	}
	c.advance(info)
	if c.metrics != nil {
		c.metrics.callsTotal.WithLabelValues(
			req.call.Ledger,
			req.call.Operation,
			models.CallStatusCommitted,
		).Inc()
	}
	receipt := &Receipt{
		Seq:       seq,
		Timestamp: ts,
		Ledger:    req.call.Ledger,
		Operation: req.call.Operation,
		Caller:    req.caller,
		Value:     req.value,
		Events:    events,
	}
	c.logger.Debug(
		fmt.Sprintf(
			"committed call %s.%s at seq %d",
			req.call.Ledger,
			req.call.Operation,
			seq,
		),
		"component", "chain",
		"caller", req.caller.String(),
		"events", len(events),
	)
	c.publish(receipt)
	return receipt, nil
}

// halt stops the chain after a partial commit. The call is neither journaled
// nor given a seq, so the commit timestamp mismatch is still there on the
// next start and the node refuses to run on the torn database
func (c *Chain) halt(info ledger.CallInfo, commitErr error) error {
	err := fmt.Errorf("%w at seq %d: %w", ErrChainHalted, info.Seq, commitErr)
	// Not under mu: enqueue holds it while waiting on a full queue
	c.haltMu.Lock()
	c.haltErr = err
	c.haltMu.Unlock()
	if c.metrics != nil {
		c.metrics.halted.Set(1)
	}
	c.logger.Error(
		"state committed without its journal entry, halting chain",
		"component", "chain",
		"seq", info.Seq,
		"error", commitErr,
	)
	return err
}

// Halted returns the error that halted the chain, or nil
func (c *Chain) Halted() error {
	c.haltMu.Lock()
	defer c.haltMu.Unlock()
	return c.haltErr
}

// revert journals a failed call in a transaction of its own. The state
// changes of the call have already been rolled back
func (c *Chain) revert(req *request, info ledger.CallInfo, callErr error) {
	record := c.callRecord(req, info, 0, callErr)
	txn := database.NewJournalTxn(c.db)
	err := txn.Do(func(txn *database.Txn) error {
		return c.db.AddCall(record, txn)
	})
	if err != nil {
		c.logger.Error(
			"failed to journal reverted call",
			"component", "chain",
			"seq", info.Seq,
			"error", err,
		)
		return
	}
	c.advance(info)
	if c.metrics != nil {
		c.metrics.callsTotal.WithLabelValues(
			req.call.Ledger,
			req.call.Operation,
			models.CallStatusReverted,
		).Inc()
	}
	logFn := c.logger.Debug
	if ledger.KindOf(callErr) == "" {
		logFn = c.logger.Error
	}
	logFn(
		fmt.Sprintf(
			"reverted call %s.%s at seq %d: %s",
			req.call.Ledger,
			req.call.Operation,
			info.Seq,
			callErr,
		),
		"component", "chain",
		"caller", req.caller.String(),
	)
	if c.eventBus != nil {
		evt := CallRevertedEvent{
			Seq:       info.Seq,
			Timestamp: info.Timestamp,
			Ledger:    req.call.Ledger,
			Operation: req.call.Operation,
			Caller:    req.caller,
			Kind:      ledger.KindOf(callErr),
			Code:      record.ErrorCode,
			Message:   record.ErrorMessage,
		}
		c.eventBus.Publish(
			CallRevertedEventType,
			event.NewEvent(CallRevertedEventType, evt),
		)
	}
}

func (c *Chain) advance(info ledger.CallInfo) {
	c.seq.Store(info.Seq)
	c.lastTimestamp.Store(info.Timestamp)
	if c.metrics != nil {
		c.metrics.seq.Set(float64(info.Seq))
		c.metrics.blockTime.Set(float64(info.Timestamp))
	}
}

func (c *Chain) publish(receipt *Receipt) {
	if c.eventBus == nil {
		return
	}
	for _, evt := range receipt.Events {
		c.eventBus.Publish(evt.Type(), event.NewEvent(evt.Type(), evt))
	}
	c.eventBus.Publish(
		CallCommittedEventType,
		event.NewEvent(CallCommittedEventType, CallCommittedEvent{Receipt: receipt}),
	)
}

func (c *Chain) callRecord(
	req *request,
	info ledger.CallInfo,
	eventCount int,
	callErr error,
) *models.LedgerCall {
	record := &models.LedgerCall{
		Seq:        info.Seq,
		Timestamp:  info.Timestamp,
		Ledger:     req.call.Ledger,
		Operation:  req.call.Operation,
		Caller:     req.caller.String(),
		Value:      types.Uint64(info.Value),
		Status:     models.CallStatusCommitted,
		EventCount: uint32(eventCount), //nolint:gosec // bounded by call
	}
	if callErr != nil {
		record.Status = models.CallStatusReverted
		record.ErrorKind = string(ledger.KindOf(callErr))
		record.ErrorCode = ledger.CodeOf(callErr)
		record.ErrorMessage = truncate(callErr.Error(), maxErrorMessageLength)
	}
	return record
}

func eventRecords(info ledger.CallInfo, events []ledger.Event) []models.LedgerEvent {
	ret := make([]models.LedgerEvent, 0, len(events))
	for idx, evt := range events {
		rec := evt.Record()
		ret = append(
			ret,
			models.LedgerEvent{
				Seq:          info.Seq,
				EventIndex:   uint32(idx), //nolint:gosec // bounded by call
				Timestamp:    info.Timestamp,
				Ledger:       rec.Ledger,
				Type:         string(evt.Type()),
				Subject:      rec.Subject,
				Account:      rec.Account.String(),
				Counterparty: rec.Counterparty.String(),
				Amount:       types.Uint64(rec.Amount),
				Support:      rec.Support,
				Description:  rec.Description,
			},
		)
	}
	return ret
}

// truncate cuts s to at most n bytes without splitting a UTF-8 sequence
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
