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
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/blinklabs-io/bazaar/database"
)

// journalPageSize is the number of records fetched per query
const journalPageSize = 500

// JournalOptions selects what DumpJournal writes
type JournalOptions struct {
	// Ledger limits events to one ledger. Ignored for calls
	Ledger string
	After  uint64
	// Limit is the maximum number of records. Zero means no limit
	Limit  int
	Events bool
}

// DumpJournal writes the call or event journal as JSON lines. The node must
// not be running, since the state DB can only be opened by one process
func DumpJournal(
	cfg JournalConfig,
	logger *slog.Logger,
	w io.Writer,
	opts JournalOptions,
) error {
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	db, err := database.New(&database.Config{
		DataDir:        cfg.DatabasePath,
		MetadataPlugin: cfg.MetadataPlugin,
		MetadataDsn:    cfg.MetadataDsn,
		Logger:         logger,
	})
	if err != nil {
		if db != nil {
			// The journal of a torn commit is still worth a look
			logger.Warn(
				fmt.Sprintf("reading journal of inconsistent database: %s", err),
				"component", "node",
			)
		} else {
			return fmt.Errorf("opening database: %w", err)
		}
	}
	defer db.Close()
	enc := json.NewEncoder(w)
	after := opts.After
	written := 0
	for {
		pageSize := journalPageSize
		if opts.Limit > 0 && opts.Limit-written < pageSize {
			pageSize = opts.Limit - written
		}
		if pageSize == 0 {
			return nil
		}
		var count int
		if opts.Events {
			events, err := db.Events(opts.Ledger, after, pageSize)
			if err != nil {
				return err
			}
			for i := range events {
				if err := enc.Encode(&events[i]); err != nil {
					return err
				}
				after = uint64(events[i].ID)
			}
			count = len(events)
		} else {
			calls, err := db.Calls(after, pageSize)
			if err != nil {
				return err
			}
			for i := range calls {
				if err := enc.Encode(&calls[i]); err != nil {
					return err
				}
				after = calls[i].Seq
			}
			count = len(calls)
		}
		written += count
		if count < pageSize {
			return nil
		}
	}
}

// JournalConfig locates the database to read
type JournalConfig struct {
	DatabasePath   string
	MetadataPlugin string
	MetadataDsn    string
}
