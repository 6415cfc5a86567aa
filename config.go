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

package bazaar

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"time"

	"github.com/blinklabs-io/bazaar/chain"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata"
	"github.com/blinklabs-io/bazaar/ledger"
	"github.com/prometheus/client_golang/prometheus"
)

const DefaultShutdownTimeout = 30 * time.Second

type Config struct {
	promRegistry         prometheus.Registerer
	logger               *slog.Logger
	transferer           ledger.Transferer
	clock                chain.Clock
	dataDir              string
	metadataPlugin       string
	metadataDsn          string
	platformWallet       ledger.Address
	feeNumerator         uint64
	feeDenominator       uint64
	votingPeriod         time.Duration
	minVotingPower       uint64
	maxDescriptionLength int
	queueSize            int
	// API listen address (empty = disabled)
	apiListenAddress string
	apiRateLimit     float64
	apiRateBurst     int
	// Payout webhook URL (empty = payouts are only recorded)
	payoutWebhookUrl string
	tracing          bool
	tracingStdout    bool
	shutdownTimeout  time.Duration
}

func (c *Config) validate() error {
	if c.platformWallet.IsZero() {
		return errors.New("no platform wallet configured")
	}
	switch c.metadataPlugin {
	case "", metadata.PluginSqlite:
	case metadata.PluginPostgres, metadata.PluginMysql:
		if c.metadataDsn == "" {
			return fmt.Errorf(
				"metadata plugin %s requires a DSN",
				c.metadataPlugin,
			)
		}
	default:
		return fmt.Errorf("unknown metadata plugin: %s", c.metadataPlugin)
	}
	if c.payoutWebhookUrl != "" && c.transferer != nil {
		return errors.New("payout webhook and custom transferer are mutually exclusive")
	}
	if c.payoutWebhookUrl != "" {
		if _, err := url.Parse(c.payoutWebhookUrl); err != nil {
			return fmt.Errorf("invalid payout webhook URL: %w", err)
		}
	}
	if c.queueSize < 0 {
		return fmt.Errorf("invalid queue size: %d", c.queueSize)
	}
	return nil
}

// ConfigOptionFunc is a type that represents functions that modify the node config
type ConfigOptionFunc func(*Config)

// NewConfig creates a new bazaar config with the specified options
func NewConfig(opts ...ConfigOptionFunc) Config {
	c := Config{
		// Default logger will throw away logs
		// We do this so we don't have to add guards around every log operation
		logger: slog.New(slog.NewJSONHandler(io.Discard, nil)),
	}
	// Apply options
	for _, opt := range opts {
		opt(&c)
	}
	return c
}

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) ConfigOptionFunc {
	return func(c *Config) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithPrometheusRegistry specifies a prometheus.Registerer instance to add metrics to
func WithPrometheusRegistry(registry prometheus.Registerer) ConfigOptionFunc {
	return func(c *Config) {
		c.promRegistry = registry
	}
}

// WithDatabasePath specifies the persistent data directory to use. The default is to store everything in memory
func WithDatabasePath(dataDir string) ConfigOptionFunc {
	return func(c *Config) {
		c.dataDir = dataDir
	}
}

// WithMetadataPlugin specifies the journal storage plugin to use
func WithMetadataPlugin(plugin string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataPlugin = plugin
	}
}

// WithMetadataDsn specifies the connection string for the postgres and mysql journal plugins
func WithMetadataDsn(dsn string) ConfigOptionFunc {
	return func(c *Config) {
		c.metadataDsn = dsn
	}
}

// WithPlatformWallet specifies the address that receives escrow fees
func WithPlatformWallet(addr ledger.Address) ConfigOptionFunc {
	return func(c *Config) {
		c.platformWallet = addr
	}
}

// WithFeeRate specifies the platform fee as numerator/denominator. The default is 25/1000
func WithFeeRate(numerator, denominator uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.feeNumerator = numerator
		c.feeDenominator = denominator
	}
}

// WithVotingPeriod specifies how long proposals accept votes
func WithVotingPeriod(period time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.votingPeriod = period
	}
}

// WithMinVotingPower specifies the voting power granted to new members
func WithMinVotingPower(power uint64) ConfigOptionFunc {
	return func(c *Config) {
		c.minVotingPower = power
	}
}

// WithMaxDescriptionLength specifies the maximum proposal description length in bytes
func WithMaxDescriptionLength(length int) ConfigOptionFunc {
	return func(c *Config) {
		c.maxDescriptionLength = length
	}
}

// WithTransferer specifies the transferer that pays out withdrawals. The
// default records payouts in memory
func WithTransferer(transferer ledger.Transferer) ConfigOptionFunc {
	return func(c *Config) {
		c.transferer = transferer
	}
}

// WithPayoutWebhook specifies an HTTP endpoint that receives every payout
func WithPayoutWebhook(webhookUrl string) ConfigOptionFunc {
	return func(c *Config) {
		c.payoutWebhookUrl = webhookUrl
	}
}

// WithClock specifies the block clock. This is mostly useful for tests
func WithClock(clock chain.Clock) ConfigOptionFunc {
	return func(c *Config) {
		c.clock = clock
	}
}

// WithQueueSize specifies how many calls may wait for execution
func WithQueueSize(size int) ConfigOptionFunc {
	return func(c *Config) {
		c.queueSize = size
	}
}

// WithAPIListenAddress specifies the listen address for the HTTP API. An empty address disables the API
func WithAPIListenAddress(addr string) ConfigOptionFunc {
	return func(c *Config) {
		c.apiListenAddress = addr
	}
}

// WithAPIRateLimit specifies the per-caller request rate and burst. A negative rate disables limiting
func WithAPIRateLimit(rps float64, burst int) ConfigOptionFunc {
	return func(c *Config) {
		c.apiRateLimit = rps
		c.apiRateBurst = burst
	}
}

// WithTracing enables tracing. By default, spans are submitted to a HTTP(s) endpoint using OTLP. This can be configured
// using the OTEL_EXPORTER_OTLP_* env vars documented in the README for [go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracehttp]
func WithTracing(tracing bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracing = tracing
	}
}

// WithTracingStdout enables tracing output to stdout. This also requires tracing to enabled separately. This is mostly useful for debugging
func WithTracingStdout(stdout bool) ConfigOptionFunc {
	return func(c *Config) {
		c.tracingStdout = stdout
	}
}

// WithShutdownTimeout specifies the timeout for graceful shutdown. The default is 30 seconds
func WithShutdownTimeout(timeout time.Duration) ConfigOptionFunc {
	return func(c *Config) {
		c.shutdownTimeout = timeout
	}
}
