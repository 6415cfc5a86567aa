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
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	tmpFile := filepath.Join(t.TempDir(), "test-bazaar.yaml")
	require.NoError(t, os.WriteFile(tmpFile, []byte(content), 0o600))
	return tmpFile
}

func TestLoadWithoutConfigFileUsesDefaults(t *testing.T) {
	// Keep a config in the user's home from leaking into the test
	t.Setenv("HOME", t.TempDir())
	if _, err := os.Stat("/etc/bazaar/bazaar.yaml"); err == nil {
		t.Skip("system config file present")
	}
	cfg, err := LoadConfig("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
	assert.Same(t, cfg, GetConfig())
}

func TestLoadOverlaysFile(t *testing.T) {
	tmpFile := writeConfigFile(t, `
databasePath: "/var/lib/bazaar"
apiPort: 9000
escrow:
  platformWallet: "addr_test1platform"
  feeNumerator: 30
governance:
  votingPeriod: "24h"
payout:
  webhookUrl: "https://payouts.example.com/hook"
`)
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)

	expected := DefaultConfig()
	expected.DatabasePath = "/var/lib/bazaar"
	expected.ApiPort = 9000
	expected.Escrow.PlatformWallet = "addr_test1platform"
	expected.Escrow.FeeNumerator = 30
	expected.Governance.VotingPeriod = "24h"
	expected.Payout.WebhookUrl = "https://payouts.example.com/hook"
	assert.Equal(t, expected, cfg)

	period, err := cfg.VotingPeriodDuration()
	require.NoError(t, err)
	assert.Equal(t, 24*time.Hour, period)
	assert.Equal(t, "0.0.0.0:9000", cfg.ApiListenAddress())
}

func TestLoadEnvironmentOverridesFile(t *testing.T) {
	tmpFile := writeConfigFile(t, `
metricsPort: 1000
escrow:
  platformWallet: "from-file"
`)
	t.Setenv("BAZAAR_METRICS_PORT", "2000")
	t.Setenv("BAZAAR_ESCROW_PLATFORM_WALLET", "from-env")
	t.Setenv("BAZAAR_API_RATE_LIMIT", "-1")
	cfg, err := LoadConfig(tmpFile)
	require.NoError(t, err)
	assert.Equal(t, uint(2000), cfg.MetricsPort)
	assert.Equal(t, "from-env", cfg.Escrow.PlatformWallet)
	assert.Equal(t, -1.0, cfg.Api.RateLimit)
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	tests := []string{
		`shutdownTimeout: "soon"`,
		"governance:\n  votingPeriod: \"forever\"",
		"governance:\n  votingPeriod: \"90.5s\"",
		"escrow:\n  feeDenominator: 0",
		"escrow:\n  feeNumerator: 2000",
		"queueSize: -5",
		"apiPort: [1, 2]",
	}
	for _, content := range tests {
		_, err := LoadConfig(writeConfigFile(t, content))
		assert.Error(t, err, content)
	}
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestApiDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ApiPort = 0
	assert.Empty(t, cfg.ApiListenAddress())
}

func TestContext(t *testing.T) {
	assert.Nil(t, FromContext(context.Background()))
	cfg := DefaultConfig()
	ctx := WithContext(context.Background(), cfg)
	assert.Same(t, cfg, FromContext(ctx))
}
