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

// Package bazaar wires the escrow and governance ledgers onto the chain,
// the database and the HTTP API.
package bazaar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/blinklabs-io/bazaar/api"
	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database"
	"github.com/blinklabs-io/bazaar/event"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
	"github.com/blinklabs-io/bazaar/payout"
)

var ErrNodeNotStarted = errors.New("node not started")

type Node struct {
	eventBus      *event.EventBus
	db            *database.Database
	chain         *chain.Chain
	escrow        *escrow.Escrow
	governance    *governance.Governance
	transferer    ledger.Transferer
	api           *api.API
	shutdownFuncs []func(context.Context) error
	config        Config
	done          chan struct{}
	started       atomic.Bool
	shutdownOnce  sync.Once
}

func New(cfg Config) (*Node, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	esc, err := escrow.New(escrow.Config{
		PlatformWallet: cfg.platformWallet,
		FeeNumerator:   cfg.feeNumerator,
		FeeDenominator: cfg.feeDenominator,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	gov, err := governance.New(governance.Config{
		VotingPeriod:         cfg.votingPeriod,
		MinVotingPower:       cfg.minVotingPower,
		MaxDescriptionLength: cfg.maxDescriptionLength,
	})
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	n := &Node{
		config:     cfg,
		eventBus:   event.NewEventBus(cfg.promRegistry, cfg.logger),
		escrow:     esc,
		governance: gov,
		done:       make(chan struct{}),
	}
	return n, nil
}

// Start opens the database, starts the chain and, if configured, the API
// server. It returns once everything is running. Stop must be called to
// release resources even if Start fails
func (n *Node) Start(ctx context.Context) error {
	if !n.started.CompareAndSwap(false, true) {
		return errors.New("node already started")
	}
	// Configure tracing
	if n.config.tracing {
		if err := n.setupTracing(); err != nil {
			return err
		}
	}
	// Load database
	db, err := database.New(&database.Config{
		DataDir:        n.config.dataDir,
		MetadataPlugin: n.config.metadataPlugin,
		MetadataDsn:    n.config.metadataDsn,
		Logger:         n.config.logger,
		PromRegistry:   n.config.promRegistry,
	})
	if db != nil {
		n.db = db
	}
	if err != nil {
		var dbErr database.CommitTimestampError
		if errors.As(err, &dbErr) {
			// The state DB and the journal disagree about the last commit.
			// Executing more calls would extend a journal that no longer
			// describes the state
			n.config.logger.Error(
				"database commit timestamps do not match, refusing to start",
				"component", "node",
				"error", err,
			)
		}
		return fmt.Errorf("failed to open database: %w", err)
	}
	// Payouts
	n.transferer = n.config.transferer
	if n.transferer == nil {
		if n.config.payoutWebhookUrl != "" {
			webhook, err := payout.NewWebhook(
				n.config.payoutWebhookUrl,
				payout.WithWebhookLogger(n.config.logger),
			)
			if err != nil {
				return fmt.Errorf("failed to configure payout webhook: %w", err)
			}
			n.transferer = webhook
		} else {
			n.transferer = payout.NewRecorder(n.config.logger)
		}
	}
	// Start chain
	c, err := chain.New(chain.ChainConfig{
		Database:     n.db,
		EventBus:     n.eventBus,
		Transferer:   n.transferer,
		Clock:        n.config.clock,
		Logger:       n.config.logger,
		PromRegistry: n.config.promRegistry,
		QueueSize:    n.config.queueSize,
	})
	if err != nil {
		return fmt.Errorf("failed to start chain: %w", err)
	}
	n.chain = c
	n.config.logger.Info(
		fmt.Sprintf("chain started at seq %d", n.chain.Seq()),
		"component", "node",
	)
	// Configure API
	if n.config.apiListenAddress != "" {
		n.api = api.New(
			api.APIConfig{
				ListenAddress: n.config.apiListenAddress,
				RateLimit:     n.config.apiRateLimit,
				RateBurst:     n.config.apiRateBurst,
			},
			n,
			n.config.logger,
		)
		if err := n.api.Start(ctx); err != nil {
			return fmt.Errorf("failed to start API: %w", err)
		}
	}
	return nil
}

// Run starts the node and waits until ctx is done or the node is stopped
func (n *Node) Run(ctx context.Context) error {
	if err := n.Start(ctx); err != nil {
		return err
	}
	select {
	case <-ctx.Done():
	case <-n.done:
	}
	return nil
}

// APIAddr returns the address the API server listens on, or an empty
// string when the API is disabled
func (n *Node) APIAddr() string {
	if n.api == nil {
		return ""
	}
	return n.api.Addr()
}

// Transferer returns the transferer used for payouts
func (n *Node) Transferer() ledger.Transferer {
	return n.transferer
}

func (n *Node) Stop() error {
	var err error
	n.shutdownOnce.Do(func() {
		err = n.shutdown()
	})
	return err
}

func (n *Node) shutdown() error {
	// Create shutdown context with timeout (default 30s if not configured)
	shutdownTimeout := DefaultShutdownTimeout
	if n.config.shutdownTimeout > 0 {
		shutdownTimeout = n.config.shutdownTimeout
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var err error

	n.config.logger.Debug("starting graceful shutdown", "component", "node")

	// Phase 1: Stop accepting new work
	n.config.logger.Debug("shutdown phase 1: stopping new work", "component", "node")

	if n.api != nil {
		if stopErr := n.api.Stop(ctx); stopErr != nil {
			err = errors.Join(err, fmt.Errorf("API shutdown: %w", stopErr))
		}
	}

	// Phase 2: Drain queued calls
	n.config.logger.Debug("shutdown phase 2: draining calls", "component", "node")

	if n.chain != nil {
		n.chain.Stop()
	}

	// Phase 3: Close database
	n.config.logger.Debug("shutdown phase 3: closing database", "component", "node")

	if n.db != nil {
		if closeErr := n.db.Close(); closeErr != nil {
			err = errors.Join(
				err,
				fmt.Errorf("database close: %w", closeErr),
			)
		}
	}

	// Phase 4: Cleanup resources
	n.config.logger.Debug("shutdown phase 4: cleanup resources", "component", "node")

	// Call registered shutdown functions
	for _, fn := range n.shutdownFuncs {
		if fnErr := fn(ctx); fnErr != nil {
			err = errors.Join(err, fmt.Errorf("shutdown function: %w", fnErr))
		}
	}
	n.shutdownFuncs = nil

	// Stopping the bus also ends websocket streams
	if n.eventBus != nil {
		n.eventBus.Stop()
	}

	n.config.logger.Debug("graceful shutdown complete", "component", "node")
	close(n.done)
	return err
}
