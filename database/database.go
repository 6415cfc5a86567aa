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

package database

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/bazaar/database/plugin/blob"
	"github.com/blinklabs-io/bazaar/database/plugin/blob/badger"
	"github.com/blinklabs-io/bazaar/database/plugin/metadata"
	"github.com/prometheus/client_golang/prometheus"
)

// Config selects the storage backends
type Config struct {
	Logger       *slog.Logger
	PromRegistry prometheus.Registerer
	// DataDir holds the state DB and the sqlite journal. Both are kept in
	// memory when empty
	DataDir        string
	MetadataPlugin string
	MetadataDsn    string
	// MetadataStore is an already open journal. It replaces MetadataPlugin
	// and is closed with the database
	MetadataStore metadata.MetadataStore
}

// Database pairs the current-state blob store with the journal
type Database struct {
	logger   *slog.Logger
	blob     blob.BlobStore
	metadata metadata.MetadataStore
}

// Blob returns the underling blob store instance
func (d *Database) Blob() blob.BlobStore {
	return d.blob
}

// Logger returns the logger instance
func (d *Database) Logger() *slog.Logger {
	return d.logger
}

// Metadata returns the underlying metadata store instance
func (d *Database) Metadata() metadata.MetadataStore {
	return d.metadata
}

// Transaction starts a new database transaction and returns a handle to it
func (d *Database) Transaction(readWrite bool) *Txn {
	return NewTxn(d, readWrite)
}

// Close cleans up the database connections
func (d *Database) Close() error {
	var err error
	if d.metadata != nil {
		err = errors.Join(err, d.metadata.Close())
	}
	if d.blob != nil {
		err = errors.Join(err, d.blob.Close())
	}
	return err
}

func (d *Database) init() error {
	if d.logger == nil {
		// Create logger to throw away logs
		// We do this so we don't have to add guards around every log operation
		d.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	// Check commit timestamp
	if err := d.checkCommitTimestamp(); err != nil {
		return err
	}
	return nil
}

// New opens both stores. A database that fails the commit timestamp check
// is returned along with the error so that it can be inspected
func New(config *Config) (*Database, error) {
	if config == nil {
		config = &Config{}
	}
	metadataDb := config.MetadataStore
	if metadataDb == nil {
		var err error
		metadataDb, err = metadata.New(
			config.MetadataPlugin,
			config.DataDir,
			config.MetadataDsn,
			config.Logger,
			config.PromRegistry,
		)
		if err != nil {
			return nil, err
		}
	}
	blobDb, err := badger.New(
		badger.WithDataDir(config.DataDir),
		badger.WithLogger(config.Logger),
		badger.WithPromRegistry(config.PromRegistry),
	)
	if err != nil {
		_ = metadataDb.Close()
		return nil, fmt.Errorf("open state DB: %w", err)
	}
	db := &Database{
		logger:   config.Logger,
		blob:     blobDb,
		metadata: metadataDb,
	}
	if err := db.init(); err != nil {
		// Database is available for recovery, so return it with error
		return db, err
	}
	return db, nil
}
