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

// Package api serves the escrow and governance ledgers over HTTP, plus a
// websocket stream of committed calls.
package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
)

const (
	// CallerHeader carries the caller address of a request
	CallerHeader = "X-Bazaar-Caller"

	DefaultListenAddress = ":8080"
	DefaultRateLimit     = 20
	DefaultRateBurst     = 40

	maxBodyBytes = 1 << 20
)

type APIConfig struct {
	ListenAddress string
	// RateLimit is requests per second per caller. Negative disables limiting
	RateLimit float64
	RateBurst int
}

// API is the HTTP API server
type API struct {
	config     APIConfig
	logger     *slog.Logger
	node       APINode
	limiter    *RateLimiter
	upgrader   websocket.Upgrader
	httpServer *http.Server
	listener   net.Listener
	mu         sync.Mutex
}

// New creates a new API server instance
func New(
	cfg APIConfig,
	node APINode,
	logger *slog.Logger,
) *API {
	if logger == nil {
		logger = slog.New(
			slog.NewJSONHandler(io.Discard, nil),
		)
	}
	logger = logger.With("component", "api")
	if cfg.ListenAddress == "" {
		cfg.ListenAddress = DefaultListenAddress
	}
	if cfg.RateLimit == 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst == 0 {
		cfg.RateBurst = DefaultRateBurst
	}
	a := &API{
		config: cfg,
		logger: logger,
		node:   node,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
		},
	}
	if cfg.RateLimit > 0 {
		a.limiter = NewRateLimiter(cfg.RateLimit, cfg.RateBurst, logger)
	}
	return a
}

// Handler returns the API routes
func (a *API) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	if a.limiter != nil {
		r.Use(a.limiter.Handler)
	}
	r.Get("/health", a.handleHealth)
	r.Route("/v1", func(r chi.Router) {
		r.Route("/escrow", func(r chi.Router) {
			r.Post("/orders", a.handleCreateOrder)
			r.Get("/orders/{id}", a.handleGetOrder)
			r.Post("/orders/{id}/complete", a.handleCompleteOrder)
			r.Post("/orders/{id}/dispute", a.handleDisputeOrder)
			r.Post("/orders/{id}/refund", a.handleRefundOrder)
			r.Post("/withdraw", a.handleWithdraw)
			r.Get("/balances/{address}", a.handleGetBalance)
			r.Get("/audit", a.handleAudit)
		})
		r.Route("/governance", func(r chi.Router) {
			r.Get("/state", a.handleGetGovernanceState)
			r.Post("/members", a.handleJoinDAO)
			r.Get("/members/{address}", a.handleGetMember)
			r.Post("/proposals", a.handleCreateProposal)
			r.Get("/proposals/{id}", a.handleGetProposal)
			r.Post("/proposals/{id}/votes", a.handleVote)
			r.Get("/proposals/{id}/votes/{address}", a.handleGetVote)
			r.Post("/proposals/{id}/execute", a.handleExecuteProposal)
		})
		r.Route("/journal", func(r chi.Router) {
			r.Get("/calls", a.handleCalls)
			r.Get("/events", a.handleEvents)
		})
		r.Get("/stream", a.handleStream)
	})
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorResponse(w, http.StatusNotFound, "ROUTE_NOT_FOUND", "", "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeErrorResponse(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "", "method not allowed")
	})
	return r
}

// Start starts the HTTP server in a background goroutine
func (a *API) Start(
	ctx context.Context,
) error {
	a.mu.Lock()
	if a.httpServer != nil {
		a.mu.Unlock()
		return errors.New("server already started")
	}
	server := &http.Server{
		Addr:              a.config.ListenAddress,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 60 * time.Second,
	}
	a.httpServer = server
	a.mu.Unlock()

	// Start the server with deterministic error detection
	if err := a.startServer(server); err != nil {
		a.mu.Lock()
		a.httpServer = nil
		a.mu.Unlock()
		return err
	}

	a.logger.Info(
		"API listener started on " + a.Addr(),
	)

	// Monitor context for cancellation
	go func() {
		<-ctx.Done()
		//nolint:contextcheck
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			30*time.Second,
		)
		defer cancel()
		//nolint:contextcheck
		if err := a.Stop(shutdownCtx); err != nil {
			a.logger.Error(
				"failed to shutdown API server on context cancellation",
				"error", err,
			)
		}
	}()

	return nil
}

// Addr returns the address the server is listening on
func (a *API) Addr() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener != nil {
		return a.listener.Addr().String()
	}
	return a.config.ListenAddress
}

// Stop gracefully shuts down the HTTP server. Stream connections end when
// the event bus is stopped
func (a *API) Stop(
	ctx context.Context,
) error {
	a.mu.Lock()
	srv := a.httpServer
	a.httpServer = nil
	a.mu.Unlock()

	if srv != nil {
		a.logger.Debug(
			"shutting down API server",
		)
		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf(
				"failed to shutdown API server: %w",
				err,
			)
		}
	}
	return nil
}

// startServer binds the listening socket first so port conflicts are
// detected immediately, then serves in a background goroutine
func (a *API) startServer(
	server *http.Server,
) error {
	ln, err := net.Listen("tcp", server.Addr)
	if err != nil {
		return fmt.Errorf(
			"failed to listen for API server: %w",
			err,
		)
	}
	a.mu.Lock()
	a.listener = ln
	a.mu.Unlock()
	go func() {
		if err := server.Serve(ln); err != nil &&
			!errors.Is(err, http.ErrServerClosed) {
			a.logger.Error(
				"API server error",
				"error", err,
			)
		}
	}()
	return nil
}

func (a *API) handleHealth(
	w http.ResponseWriter,
	_ *http.Request,
) {
	writeJSON(w, http.StatusOK, map[string]any{
		"healthy":   true,
		"blockTime": a.node.BlockTime(),
	})
}
