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

package sqlite

import (
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptions(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	reg := prometheus.NewRegistry()
	m := &MetadataStoreSqlite{}
	WithVacuumInterval(time.Hour)(m)
	WithDataDir("/tmp/test")(m)
	WithLogger(logger)(m)
	WithPromRegistry(reg)(m)
	assert.Equal(t, "/tmp/test", m.dataDir)
	assert.Same(t, logger, m.logger)
	assert.Equal(t, prometheus.Registerer(reg), m.promRegistry)
	assert.Equal(t, time.Hour, m.vacuumInterval)
}

func TestVacuumSchedule(t *testing.T) {
	d, err := New(WithDataDir(t.TempDir()))
	require.NoError(t, err)
	d.timerMutex.Lock()
	assert.NotNil(t, d.timerVacuum)
	d.timerMutex.Unlock()
	require.NoError(t, d.runVacuum())
	require.NoError(t, d.Close())

	d, err = New(WithDataDir(t.TempDir()), WithVacuumInterval(0))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })
	d.timerMutex.Lock()
	assert.Nil(t, d.timerVacuum)
	d.timerMutex.Unlock()
}
