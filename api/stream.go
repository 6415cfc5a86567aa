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

package api

import (
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/gorilla/websocket"
)

const (
	streamBufferSize   = 64
	streamWriteTimeout = 10 * time.Second
)

var errSlowConsumer = errors.New("stream consumer is too slow")

// streamSubscriber hands events to one websocket connection. Deliver never
// blocks the publisher: a full buffer drops the subscriber
type streamSubscriber struct {
	ch     chan event.Event
	mu     sync.Mutex
	closed bool
}

func newStreamSubscriber() *streamSubscriber {
	return &streamSubscriber{
		ch: make(chan event.Event, streamBufferSize),
	}
}

func (s *streamSubscriber) Deliver(evt event.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	select {
	case s.ch <- evt:
		return nil
	default:
		return errSlowConsumer
	}
}

func (s *streamSubscriber) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	close(s.ch)
}

// handleStream upgrades to a websocket and sends a receipt for every call
// committed from then on
func (a *API) handleStream(w http.ResponseWriter, r *http.Request) {
	bus := a.node.EventBus()
	if bus == nil {
		writeErrorResponse(w, http.StatusServiceUnavailable, codeUnavailable, "", "event stream unavailable")
		return
	}
	// Subscribe before upgrading so no receipt committed after the client
	// sees the handshake is missed
	sub := newStreamSubscriber()
	subId := bus.RegisterSubscriber(chain.CallCommittedEventType, sub)
	if subId == 0 {
		writeErrorResponse(w, http.StatusServiceUnavailable, codeUnavailable, "", "event stream unavailable")
		return
	}
	defer bus.Unsubscribe(chain.CallCommittedEventType, subId)
	conn, err := a.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already replied to the client
		a.logger.Debug(
			"websocket upgrade failed",
			"error", err,
		)
		return
	}
	defer conn.Close()
	// Reads only detect the client going away
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				sub.Close()
				return
			}
		}
	}()
	for evt := range sub.ch {
		committed, ok := evt.Data.(chain.CallCommittedEvent)
		if !ok {
			continue
		}
		if err := conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout)); err != nil {
			return
		}
		if err := conn.WriteJSON(newReceiptResponse(committed.Receipt)); err != nil {
			a.logger.Debug(
				"stream write failed",
				"error", err,
			)
			return
		}
	}
	_ = conn.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseGoingAway, ""),
		time.Now().Add(time.Second),
	)
}
