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

// Package escrow implements the per-order escrow ledger. Deposits are held
// per order and released into pull-payment balances when an order is
// completed or refunded. Funds leave the ledger only through Withdraw.
package escrow

import (
	"errors"
	"fmt"
	"math/bits"

	"github.com/blinklabs-io/bazaar/ledger"
)

const LedgerName = "escrow"

const (
	DefaultFeeNumerator   = 25
	DefaultFeeDenominator = 1000
)

type Config struct {
	PlatformWallet ledger.Address
	FeeNumerator   uint64
	FeeDenominator uint64
}

// Escrow holds the ledger configuration. All state lives in the store of
// the call context
type Escrow struct {
	config Config
}

func New(config Config) (*Escrow, error) {
	if config.PlatformWallet.IsZero() {
		return nil, errors.New("escrow: platform wallet is required")
	}
	if config.FeeDenominator == 0 {
		return nil, errors.New("escrow: fee denominator must be non-zero")
	}
	if config.FeeNumerator > config.FeeDenominator {
		return nil, fmt.Errorf(
			"escrow: fee rate %d/%d exceeds 100%%",
			config.FeeNumerator,
			config.FeeDenominator,
		)
	}
	return &Escrow{config: config}, nil
}

func (e *Escrow) Config() Config {
	return e.config
}

// Fee returns floor(amount * numerator / denominator)
func (e *Escrow) Fee(amount uint64) uint64 {
	hi, lo := bits.Mul64(amount, e.config.FeeNumerator)
	// hi < denominator because numerator <= denominator
	fee, _ := bits.Div64(hi, lo, e.config.FeeDenominator)
	return fee
}

// guard runs fn under the non-reentrant guard after the checks every
// mutating operation shares
func guard(c *ledger.Context, payable bool, fn func() error) error {
	if err := c.Enter(); err != nil {
		return err
	}
	defer c.Exit()
	if err := c.RequireCaller(); err != nil {
		return err
	}
	if !payable {
		if err := c.NonPayable(); err != nil {
			return err
		}
	}
	return fn()
}

func credit(store ledger.Store, addr ledger.Address, amount uint64) error {
	bal, err := loadBalance(store, addr)
	if err != nil {
		return err
	}
	sum, carry := bits.Add64(bal, amount, 0)
	if carry != 0 {
		return ledger.ErrAmountOverflow
	}
	return saveBalance(store, addr, sum)
}

// CreateOrder escrows the value attached to the call for a new order. The
// caller becomes the buyer
func (e *Escrow) CreateOrder(
	c *ledger.Context,
	orderID uint64,
	seller ledger.Address,
) error {
	return guard(c, true, func() error {
		if orderID == 0 {
			return ErrInvalidOrderID
		}
		if seller.IsZero() {
			return ErrInvalidSeller
		}
		amount := c.Value()
		if amount == 0 {
			return ErrZeroAmount
		}
		store := c.Store()
		if _, err := loadOrder(store, orderID); err == nil {
			return ErrOrderExists
		} else if !errors.Is(err, ErrOrderNotFound) {
			return err
		}
		totals, err := loadTotals(store)
		if err != nil {
			return err
		}
		deposited, carry := bits.Add64(totals.Deposited, amount, 0)
		if carry != 0 {
			return ledger.ErrAmountOverflow
		}
		totals.Deposited = deposited
		order := &Order{
			ID:        orderID,
			Buyer:     c.Caller(),
			Seller:    seller,
			Amount:    amount,
			CreatedAt: c.Timestamp(),
		}
		if err := saveOrder(store, order); err != nil {
			return err
		}
		if err := saveTotals(store, totals); err != nil {
			return err
		}
		c.Emit(OrderCreatedEvent{
			OrderID: orderID,
			Buyer:   order.Buyer,
			Seller:  seller,
			Amount:  amount,
		})
		return nil
	})
}

// CompleteOrder releases the order to the seller less the platform fee
func (e *Escrow) CompleteOrder(c *ledger.Context, orderID uint64) error {
	return guard(c, false, func() error {
		store := c.Store()
		order, err := loadOrder(store, orderID)
		if err != nil {
			return err
		}
		if c.Caller() != order.Buyer {
			return ErrNotBuyer
		}
		switch {
		case order.Completed:
			return ErrAlreadyCompleted
		case order.Refunded:
			return ErrAlreadyRefunded
		case order.Disputed:
			return ErrOrderDisputed
		}
		fee := e.Fee(order.Amount)
		sellerAmount := order.Amount - fee
		order.Completed = true
		order.SettledAt = c.Timestamp()
		if err := saveOrder(store, order); err != nil {
			return err
		}
		if err := credit(store, order.Seller, sellerAmount); err != nil {
			return err
		}
		if err := credit(store, e.config.PlatformWallet, fee); err != nil {
			return err
		}
		c.Emit(OrderCompletedEvent{
			OrderID:      orderID,
			Seller:       order.Seller,
			SellerAmount: sellerAmount,
			Fee:          fee,
		})
		return nil
	})
}

// DisputeOrder flags an open order as disputed, which blocks completion
func (e *Escrow) DisputeOrder(c *ledger.Context, orderID uint64) error {
	return guard(c, false, func() error {
		store := c.Store()
		order, err := loadOrder(store, orderID)
		if err != nil {
			return err
		}
		if c.Caller() != order.Buyer && c.Caller() != order.Seller {
			return ErrNotParticipant
		}
		switch {
		case order.Completed:
			return ErrAlreadyCompleted
		case order.Refunded:
			return ErrAlreadyRefunded
		case order.Disputed:
			return ErrAlreadyDisputed
		}
		order.Disputed = true
		if err := saveOrder(store, order); err != nil {
			return err
		}
		c.Emit(OrderDisputedEvent{
			OrderID: orderID,
			By:      c.Caller(),
		})
		return nil
	})
}

// RefundOrder returns the full amount to the buyer. The seller may refund a
// disputed order
func (e *Escrow) RefundOrder(c *ledger.Context, orderID uint64) error {
	return guard(c, false, func() error {
		store := c.Store()
		order, err := loadOrder(store, orderID)
		if err != nil {
			return err
		}
		if c.Caller() != order.Seller {
			return ErrNotSeller
		}
		switch {
		case order.Completed:
			return ErrAlreadyCompleted
		case order.Refunded:
			return ErrAlreadyRefunded
		}
		order.Refunded = true
		order.SettledAt = c.Timestamp()
		if err := saveOrder(store, order); err != nil {
			return err
		}
		if err := credit(store, order.Buyer, order.Amount); err != nil {
			return err
		}
		c.Emit(OrderRefundedEvent{
			OrderID: orderID,
			Buyer:   order.Buyer,
			Amount:  order.Amount,
		})
		return nil
	})
}

// Withdraw pays out the caller's whole balance. The balance is zeroed before
// the transfer; a failed transfer fails the call so the chain reverts it
func (e *Escrow) Withdraw(c *ledger.Context) error {
	return guard(c, false, func() error {
		store := c.Store()
		caller := c.Caller()
		amount, err := loadBalance(store, caller)
		if err != nil {
			return err
		}
		if amount == 0 {
			return ErrNoBalance
		}
		if err := saveBalance(store, caller, 0); err != nil {
			return err
		}
		totals, err := loadTotals(store)
		if err != nil {
			return err
		}
		totals.Withdrawn += amount
		if err := saveTotals(store, totals); err != nil {
			return err
		}
		if err := c.Transfer(caller, amount); err != nil {
			if errors.Is(err, ledger.ErrReentrantCall) {
				return err
			}
			return fmt.Errorf("%w: %w", ErrTransferFailed, err)
		}
		c.Emit(FundsWithdrawnEvent{
			Account: caller,
			Amount:  amount,
		})
		return nil
	})
}

// GetOrder returns the order with the given ID
func GetOrder(store ledger.Store, orderID uint64) (*Order, error) {
	return loadOrder(store, orderID)
}

// GetBalance returns the withdrawable balance of an address
func GetBalance(store ledger.Store, addr ledger.Address) (uint64, error) {
	return loadBalance(store, addr)
}

// GetTotals returns the ledger-wide deposit and withdrawal counters
func GetTotals(store ledger.Store) (*Totals, error) {
	return loadTotals(store)
}
