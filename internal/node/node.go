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

package node

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	_ "net/http/pprof" // #nosec G108
	"os/signal"
	"syscall"
	"time"

	"github.com/blinklabs-io/bazaar"
	"github.com/blinklabs-io/bazaar/internal/config"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NodeOptions builds the node options described by cfg
func NodeOptions(
	cfg *config.Config,
	logger *slog.Logger,
) ([]bazaar.ConfigOptionFunc, error) {
	wallet, err := ledger.ParseAddress(cfg.Escrow.PlatformWallet)
	if err != nil {
		return nil, fmt.Errorf("invalid platform wallet: %w", err)
	}
	shutdownTimeout, err := cfg.ShutdownTimeoutDuration()
	if err != nil {
		return nil, err
	}
	if shutdownTimeout == 0 {
		shutdownTimeout = bazaar.DefaultShutdownTimeout
	}
	votingPeriod, err := cfg.VotingPeriodDuration()
	if err != nil {
		return nil, err
	}
	return []bazaar.ConfigOptionFunc{
		bazaar.WithLogger(logger),
		bazaar.WithDatabasePath(cfg.DatabasePath),
		bazaar.WithMetadataPlugin(cfg.MetadataPlugin),
		bazaar.WithMetadataDsn(cfg.MetadataDsn),
		bazaar.WithPlatformWallet(wallet),
		bazaar.WithFeeRate(cfg.Escrow.FeeNumerator, cfg.Escrow.FeeDenominator),
		bazaar.WithVotingPeriod(votingPeriod),
		bazaar.WithMinVotingPower(cfg.Governance.MinVotingPower),
		bazaar.WithMaxDescriptionLength(cfg.Governance.MaxDescriptionLength),
		bazaar.WithPayoutWebhook(cfg.Payout.WebhookUrl),
		bazaar.WithQueueSize(cfg.QueueSize),
		bazaar.WithAPIListenAddress(cfg.ApiListenAddress()),
		bazaar.WithAPIRateLimit(cfg.Api.RateLimit, cfg.Api.RateBurst),
		bazaar.WithTracing(cfg.Tracing),
		bazaar.WithTracingStdout(cfg.TracingStdout),
		bazaar.WithShutdownTimeout(shutdownTimeout),
		// Enable metrics with default prometheus registry
		bazaar.WithPrometheusRegistry(prometheus.DefaultRegisterer),
	}, nil
}

func Run(cfg *config.Config, logger *slog.Logger) error {
	logger.Debug(fmt.Sprintf("config: %+v", cfg), "component", "node")
	opts, err := NodeOptions(cfg, logger)
	if err != nil {
		return err
	}
	shutdownTimeout, _ := cfg.ShutdownTimeoutDuration()
	if shutdownTimeout == 0 {
		shutdownTimeout = bazaar.DefaultShutdownTimeout
	}
	n, err := bazaar.New(bazaar.NewConfig(opts...))
	if err != nil {
		return err
	}
	// Metrics and debug listener
	var metricsServer *http.Server
	metricsErrChan := make(chan error, 1)
	if cfg.MetricsPort > 0 {
		http.Handle("/metrics", promhttp.Handler())
		metricsAddr := fmt.Sprintf("%s:%d", cfg.BindAddr, cfg.MetricsPort)
		logger.Info(
			"serving prometheus metrics on "+metricsAddr,
			"component", "node",
		)
		metricsServer = &http.Server{
			Addr:              metricsAddr,
			ReadHeaderTimeout: 60 * time.Second,
			WriteTimeout:      30 * time.Second,
			IdleTimeout:       120 * time.Second,
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil &&
				!errors.Is(err, http.ErrServerClosed) {
				metricsErrChan <- fmt.Errorf(
					"failed to start metrics listener: %w",
					err,
				)
			}
		}()
	}
	stopMetrics := func() {
		if metricsServer == nil {
			return
		}
		shutdownCtx, cancel := context.WithTimeout(
			context.Background(),
			shutdownTimeout,
		)
		defer cancel()
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("metrics server shutdown error", "error", err)
		}
	}
	// Wait for interrupt/termination signal
	signalCtx, signalCtxStop := signal.NotifyContext(
		context.Background(),
		syscall.SIGINT,
		syscall.SIGTERM,
	)
	defer signalCtxStop()

	// Run node in goroutine
	errChan := make(chan error, 1)
	go func() {
		//nolint:contextcheck
		errChan <- n.Run(signalCtx)
	}()

	// Wait for signal or error
	select {
	case <-signalCtx.Done():
		logger.Info("signal received, initiating graceful shutdown")
		stopMetrics()
		if err := n.Stop(); err != nil {
			logger.Error("shutdown errors occurred", "error", err)
			return err
		}
		logger.Info("shutdown complete")
		return nil

	case err := <-metricsErrChan:
		logger.Error("metrics error", "error", err)
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred during error cleanup",
				"error",
				stopErr,
			)
		}
		return err

	case err := <-errChan:
		stopMetrics()
		if stopErr := n.Stop(); stopErr != nil {
			logger.Error(
				"shutdown errors occurred",
				"error",
				stopErr,
			)
			if err == nil {
				return stopErr
			}
		}
		if err != nil {
			logger.Error("node error", "error", err)
			return err
		}
		logger.Info("node stopped")
		return nil
	}
}
