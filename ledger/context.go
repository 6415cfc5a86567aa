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

package ledger

import (
	"context"
)

// Transferer moves funds out of the ledger to an external account. It is
// the only external call a ledger operation makes
type Transferer interface {
	Transfer(ctx context.Context, to Address, amount uint64) error
}

// CallInfo describes the call being executed
type CallInfo struct {
	Seq       uint64
	Caller    Address
	Value     uint64
	Timestamp uint64 // unix seconds
}

type contextKey struct{}

// Context is the environment of one ledger call. It is not safe for
// concurrent use; the chain executes one call at a time
type Context struct {
	ctx        context.Context
	store      Store
	transferer Transferer
	info       CallInfo
	events     []Event
	entered    bool
}

// NewContext creates the context for one call
func NewContext(
	ctx context.Context,
	store Store,
	transferer Transferer,
	info CallInfo,
) *Context {
	c := &Context{
		store:      store,
		transferer: transferer,
		info:       info,
	}
	c.ctx = context.WithValue(ctx, contextKey{}, c)
	return c
}

// FromContext returns the ledger call a context.Context was derived from
func FromContext(ctx context.Context) (*Context, bool) {
	c, ok := ctx.Value(contextKey{}).(*Context)
	return c, ok
}

func (c *Context) Context() context.Context {
	return c.ctx
}

func (c *Context) Store() Store {
	return c.store
}

func (c *Context) Info() CallInfo {
	return c.info
}

func (c *Context) Seq() uint64 {
	return c.info.Seq
}

func (c *Context) Caller() Address {
	return c.info.Caller
}

// Value is the amount of funds attached to the call
func (c *Context) Value() uint64 {
	return c.info.Value
}

func (c *Context) Timestamp() uint64 {
	return c.info.Timestamp
}

// Emit records an event. Events are published only if the call commits
func (c *Context) Emit(evt Event) {
	c.events = append(c.events, evt)
}

// Events returns the events emitted so far in emission order
func (c *Context) Events() []Event {
	return c.events
}

// Enter acquires the non-reentrant guard for an operation. It fails with
// ErrReentrantCall while another operation of the same call holds it
func (c *Context) Enter() error {
	if c.entered {
		return ErrReentrantCall
	}
	c.entered = true
	return nil
}

// Exit releases the guard taken by Enter
func (c *Context) Exit() {
	c.entered = false
}

// NonPayable rejects attached value for operations that do not take funds
func (c *Context) NonPayable() error {
	if c.info.Value > 0 {
		return ErrUnexpectedValue
	}
	return nil
}

// RequireCaller rejects calls without a caller identity
func (c *Context) RequireCaller() error {
	if c.info.Caller.IsZero() {
		return ErrMissingCaller
	}
	return nil
}

// Transfer sends funds through the configured transferer
func (c *Context) Transfer(to Address, amount uint64) error {
	if c.transferer == nil {
		return ErrNoTransferer
	}
	return c.transferer.Transfer(c.ctx, to, amount)
}

// ErrNoTransferer is returned by Transfer when no transferer is configured
var ErrNoTransferer = NewError(
	KindTransfer,
	"NO_TRANSFERER",
	"no transferer configured",
)
