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

package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

type ctxKey string

const configContextKey ctxKey = "bazaar.config"

const (
	DefaultShutdownTimeout = "30s"
	DefaultVotingPeriod    = "72h"
	DefaultMetadataPlugin  = "sqlite"

	// EnvPrefix is the prefix of every environment variable read into the config
	EnvPrefix = "bazaar"
)

func WithContext(ctx context.Context, cfg *Config) context.Context {
	return context.WithValue(ctx, configContextKey, cfg)
}

func FromContext(ctx context.Context) *Config {
	cfg, ok := ctx.Value(configContextKey).(*Config)
	if !ok {
		return nil
	}
	return cfg
}

type Config struct {
	DatabasePath    string           `yaml:"databasePath"    split_words:"true"`
	MetadataPlugin  string           `yaml:"metadataPlugin"  split_words:"true"`
	MetadataDsn     string           `yaml:"metadataDsn"     split_words:"true"`
	BindAddr        string           `yaml:"bindAddr"        split_words:"true"`
	ShutdownTimeout string           `yaml:"shutdownTimeout" split_words:"true"`
	ApiPort         uint             `yaml:"apiPort"         split_words:"true"`
	MetricsPort     uint             `yaml:"metricsPort"     split_words:"true"`
	QueueSize       int              `yaml:"queueSize"       split_words:"true"`
	Tracing         bool             `yaml:"tracing"`
	TracingStdout   bool             `yaml:"tracingStdout"   split_words:"true"`
	Api             ApiConfig        `yaml:"api"`
	Escrow          EscrowConfig     `yaml:"escrow"`
	Governance      GovernanceConfig `yaml:"governance"`
	Payout          PayoutConfig     `yaml:"payout"`
}

type ApiConfig struct {
	// Requests per second per caller. Negative disables limiting
	RateLimit float64 `yaml:"rateLimit" split_words:"true"`
	RateBurst int     `yaml:"rateBurst" split_words:"true"`
}

type EscrowConfig struct {
	PlatformWallet string `yaml:"platformWallet" split_words:"true"`
	FeeNumerator   uint64 `yaml:"feeNumerator"   split_words:"true"`
	FeeDenominator uint64 `yaml:"feeDenominator" split_words:"true"`
}

type GovernanceConfig struct {
	VotingPeriod         string `yaml:"votingPeriod"         split_words:"true"`
	MinVotingPower       uint64 `yaml:"minVotingPower"       split_words:"true"`
	MaxDescriptionLength int    `yaml:"maxDescriptionLength" split_words:"true"`
}

type PayoutConfig struct {
	// Payouts are only recorded when no webhook is set
	WebhookUrl string `yaml:"webhookUrl" split_words:"true"`
}

// DefaultConfig returns the configuration used when nothing overrides it
func DefaultConfig() *Config {
	return &Config{
		DatabasePath:    ".bazaar",
		MetadataPlugin:  DefaultMetadataPlugin,
		BindAddr:        "0.0.0.0",
		ShutdownTimeout: DefaultShutdownTimeout,
		ApiPort:         8080,
		MetricsPort:     12799,
		QueueSize:       256,
		Api: ApiConfig{
			RateLimit: 20,
			RateBurst: 40,
		},
		Escrow: EscrowConfig{
			FeeNumerator:   25,
			FeeDenominator: 1000,
		},
		Governance: GovernanceConfig{
			VotingPeriod:         DefaultVotingPeriod,
			MinVotingPower:       1,
			MaxDescriptionLength: 4096,
		},
	}
}

var globalConfig = DefaultConfig()

// LoadConfig builds the config from the defaults, overlaid by the YAML file
// and then by BAZAAR_* environment variables. Without an explicit file,
// ~/.bazaar/bazaar.yaml and /etc/bazaar/bazaar.yaml are tried in order
func LoadConfig(configFile string) (*Config, error) {
	cfg := DefaultConfig()
	if configFile == "" {
		configFile = findConfigFile()
	}
	if configFile != "" {
		buf, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Overlay config values onto existing defaults
		if err := yaml.Unmarshal(buf, cfg); err != nil {
			return nil, fmt.Errorf("error parsing config file: %w", err)
		}
	}
	// Process environment variables
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("error processing environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	globalConfig = cfg
	return cfg, nil
}

func findConfigFile() string {
	// Check for config file in this path: ~/.bazaar/bazaar.yaml
	if homeDir, err := os.UserHomeDir(); err == nil {
		userPath := filepath.Join(homeDir, ".bazaar", "bazaar.yaml")
		if _, err := os.Stat(userPath); err == nil {
			return userPath
		}
	}
	// Try to check for /etc/bazaar/bazaar.yaml if still not found
	systemPath := "/etc/bazaar/bazaar.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}
	return ""
}

// Validate checks the values that can be checked without opening anything
func (c *Config) Validate() error {
	if _, err := c.ShutdownTimeoutDuration(); err != nil {
		return err
	}
	if _, err := c.VotingPeriodDuration(); err != nil {
		return err
	}
	if c.Escrow.FeeDenominator == 0 {
		return errors.New("escrow fee denominator must not be zero")
	}
	if c.Escrow.FeeNumerator > c.Escrow.FeeDenominator {
		return fmt.Errorf(
			"escrow fee %d/%d exceeds 100%%",
			c.Escrow.FeeNumerator,
			c.Escrow.FeeDenominator,
		)
	}
	if c.QueueSize < 0 {
		return fmt.Errorf("invalid queue size: %d", c.QueueSize)
	}
	return nil
}

func (c *Config) ShutdownTimeoutDuration() (time.Duration, error) {
	if c.ShutdownTimeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.ShutdownTimeout)
	if err != nil {
		return 0, fmt.Errorf("invalid shutdown timeout: %w", err)
	}
	return d, nil
}

func (c *Config) VotingPeriodDuration() (time.Duration, error) {
	if c.Governance.VotingPeriod == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(c.Governance.VotingPeriod)
	if err != nil {
		return 0, fmt.Errorf("invalid voting period: %w", err)
	}
	if d%time.Second != 0 {
		return 0, fmt.Errorf("invalid voting period %s: not a whole number of seconds", d)
	}
	return d, nil
}

// ApiListenAddress returns the API listen address, or an empty string when
// the API is disabled
func (c *Config) ApiListenAddress() string {
	if c.ApiPort == 0 {
		return ""
	}
	return fmt.Sprintf("%s:%d", c.BindAddr, c.ApiPort)
}

func GetConfig() *Config {
	return globalConfig
}
