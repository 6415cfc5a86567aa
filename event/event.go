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

package event

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// EventQueueSize is the channel buffer of a Subscribe subscriber
const EventQueueSize = 20

// ErrSubscriberFull is returned by a channel subscriber whose buffer is
// full. The bus removes it and closes its channel
var ErrSubscriberFull = errors.New("subscriber buffer full")

type EventType string

type EventSubscriberId int

type Event struct {
	Timestamp time.Time
	Data      any
	Type      EventType
}

func NewEvent(eventType EventType, eventData any) Event {
	return Event{
		Type:      eventType,
		Timestamp: time.Now(),
		Data:      eventData,
	}
}

// Subscriber receives events from the bus. A Deliver error or panic removes
// the subscriber. Close must be idempotent
type Subscriber interface {
	Deliver(Event) error
	Close()
}

// EventBus fans events out to subscribers. Publish is synchronous, so
// subscribers of one type see events in publish order
type EventBus struct {
	subscribers map[EventType]map[EventSubscriberId]Subscriber
	metrics     *eventMetrics
	logger      *slog.Logger
	lastSubId   EventSubscriberId
	mu          sync.Mutex
	stopped     bool
}

func NewEventBus(
	promRegistry prometheus.Registerer,
	logger *slog.Logger,
) *EventBus {
	if logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	e := &EventBus{
		subscribers: make(map[EventType]map[EventSubscriberId]Subscriber),
		logger:      logger,
	}
	if promRegistry != nil {
		e.metrics = newEventMetrics(promRegistry)
	}
	return e
}

// channelSubscriber backs Subscribe. Deliver never blocks
type channelSubscriber struct {
	ch     chan Event
	mu     sync.Mutex
	closed bool
}

func (c *channelSubscriber) Deliver(evt Event) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return nil
	}
	select {
	case c.ch <- evt:
		return nil
	default:
		return ErrSubscriberFull
	}
}

func (c *channelSubscriber) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.ch)
	}
}

func subscriberKind(sub Subscriber) string {
	if _, ok := sub.(*channelSubscriber); ok {
		return "channel"
	}
	return "external"
}

// Subscribe returns a channel receiving events of one type. Unsubscribe and
// Stop close the channel. Publish runs on the chain worker and does not wait
// for readers: a subscriber that lets EventQueueSize events pile up is
// removed and its channel closed. On a stopped bus the id is 0 and the
// channel is already closed
func (e *EventBus) Subscribe(
	eventType EventType,
) (EventSubscriberId, <-chan Event) {
	sub := &channelSubscriber{ch: make(chan Event, EventQueueSize)}
	return e.RegisterSubscriber(eventType, sub), sub.ch
}

// RegisterSubscriber adds sub for events of one type and returns its id. A
// stopped bus closes sub and returns 0
func (e *EventBus) RegisterSubscriber(
	eventType EventType,
	sub Subscriber,
) EventSubscriberId {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		sub.Close()
		return 0
	}
	defer e.mu.Unlock()
	e.lastSubId++
	subs, ok := e.subscribers[eventType]
	if !ok {
		subs = make(map[EventSubscriberId]Subscriber)
		e.subscribers[eventType] = subs
	}
	subs[e.lastSubId] = sub
	if e.metrics != nil {
		e.metrics.subscribers.WithLabelValues(
			string(eventType),
			subscriberKind(sub),
		).Inc()
	}
	return e.lastSubId
}

// Unsubscribe removes and closes a subscriber. Unknown ids are ignored
func (e *EventBus) Unsubscribe(eventType EventType, subId EventSubscriberId) {
	e.mu.Lock()
	sub, ok := e.subscribers[eventType][subId]
	if ok {
		delete(e.subscribers[eventType], subId)
		if len(e.subscribers[eventType]) == 0 {
			delete(e.subscribers, eventType)
		}
		if e.metrics != nil {
			e.metrics.subscribers.WithLabelValues(
				string(eventType),
				subscriberKind(sub),
			).Dec()
		}
	}
	e.mu.Unlock()
	if ok {
		sub.Close()
	}
}

// Publish hands evt to every subscriber of eventType and returns once all
// of them have accepted it. Publishing on a stopped bus does nothing
func (e *EventBus) Publish(eventType EventType, evt Event) {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	ids := make([]EventSubscriberId, 0, len(e.subscribers[eventType]))
	subs := make([]Subscriber, 0, len(e.subscribers[eventType]))
	for id, sub := range e.subscribers[eventType] {
		ids = append(ids, id)
		subs = append(subs, sub)
	}
	e.mu.Unlock()
	for i, sub := range subs {
		err := deliver(sub, evt)
		if err == nil {
			continue
		}
		e.Unsubscribe(eventType, ids[i])
		if e.metrics != nil {
			e.metrics.deliveryErrors.WithLabelValues(
				string(eventType),
				subscriberKind(sub),
			).Inc()
		}
		e.logger.Debug(
			"event delivery error, subscriber removed",
			"component", "event",
			"type", eventType,
			"error", err,
		)
	}
	if e.metrics != nil {
		e.metrics.eventsTotal.WithLabelValues(string(eventType)).Inc()
	}
}

func deliver(sub Subscriber, evt Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("subscriber deliver panic: %v", r)
		}
	}()
	return sub.Deliver(evt)
}

// Stop closes every subscriber. Later subscriptions are refused and later
// events are dropped
func (e *EventBus) Stop() {
	e.mu.Lock()
	if e.stopped {
		e.mu.Unlock()
		return
	}
	e.stopped = true
	subs := e.subscribers
	e.subscribers = nil
	e.mu.Unlock()
	for _, evtTypeSubs := range subs {
		for _, sub := range evtTypeSubs {
			sub.Close()
		}
	}
	if e.metrics != nil {
		e.metrics.subscribers.Reset()
	}
}
