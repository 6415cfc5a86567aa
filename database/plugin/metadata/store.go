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

package metadata

import (
	"fmt"
	"log/slog"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata/mysql"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata/postgres"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata/sqlite"
	"github.com/blinklabs-io/bazaar/database/types"
	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
)

const (
	PluginSqlite   = "sqlite"
	PluginPostgres = "postgres"
	PluginMysql    = "mysql"
)

type MetadataStore interface {
	// Database
	Close() error
	DB() *gorm.DB
	GetCommitTimestamp() (int64, error)
	SetCommitTimestamp(types.Txn, int64) error
	Transaction() types.Txn

	// Journal
	AddCall(*models.LedgerCall, types.Txn) error
	AddEvents([]models.LedgerEvent, types.Txn) error
	GetLastCall(types.Txn) (*models.LedgerCall, error)
	GetCalls(
		uint64, // after seq
		int, // limit
		types.Txn,
	) ([]models.LedgerCall, error)
	GetEvents(
		string, // ledger
		uint64, // after ID
		int, // limit
		types.Txn,
	) ([]models.LedgerEvent, error)
}

// New returns the metadata store selected by plugin name. The sqlite store
// uses dataDir (in-memory when empty), the others use dsn
func New(
	pluginName string,
	dataDir string,
	dsn string,
	logger *slog.Logger,
	promRegistry prometheus.Registerer,
) (MetadataStore, error) {
	var store MetadataStore
	var err error
	switch pluginName {
	case PluginSqlite, "":
		var s *sqlite.MetadataStoreSqlite
		s, err = sqlite.New(
			sqlite.WithDataDir(dataDir),
			sqlite.WithLogger(logger),
			sqlite.WithPromRegistry(promRegistry),
		)
		if s != nil && s.Store != nil {
			store = s
		}
	case PluginPostgres:
		var s *postgres.MetadataStorePostgres
		s, err = postgres.New(
			postgres.WithDsn(dsn),
			postgres.WithLogger(logger),
			postgres.WithPromRegistry(promRegistry),
		)
		if s != nil && s.Store != nil {
			store = s
		}
	case PluginMysql:
		var s *mysql.MetadataStoreMysql
		s, err = mysql.New(
			mysql.WithDsn(dsn),
			mysql.WithLogger(logger),
			mysql.WithPromRegistry(promRegistry),
		)
		if s != nil && s.Store != nil {
			store = s
		}
	default:
		return nil, fmt.Errorf("unknown metadata plugin: %s", pluginName)
	}
	if err != nil {
		if store != nil {
			_ = store.Close()
		}
		return nil, fmt.Errorf("open %s journal: %w", pluginName, err)
	}
	return store, nil
}
