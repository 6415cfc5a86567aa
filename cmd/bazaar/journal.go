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

package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/blinklabs-io/bazaar/internal/config"
	"github.com/blinklabs-io/bazaar/internal/node"
	"github.com/blinklabs-io/bazaar/ledger/escrow"
	"github.com/blinklabs-io/bazaar/ledger/governance"
	"github.com/spf13/cobra"
)

func journalCommand() *cobra.Command {
	opts := node.JournalOptions{}
	cmd := &cobra.Command{
		Use:   "journal",
		Short: "Print the call journal (or event journal with --events) as JSON lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := config.FromContext(cmd.Context())
			if cfg == nil {
				return errors.New("no config found in context")
			}
			switch opts.Ledger {
			case "", escrow.LedgerName, governance.LedgerName:
			default:
				return fmt.Errorf("unknown ledger: %s", opts.Ledger)
			}
			// Logs go to stderr to keep stdout parseable
			logger := slog.New(
				slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
					Level: slog.LevelWarn,
				}),
			)
			return node.DumpJournal(
				node.JournalConfig{
					DatabasePath:   cfg.DatabasePath,
					MetadataPlugin: cfg.MetadataPlugin,
					MetadataDsn:    cfg.MetadataDsn,
				},
				logger,
				cmd.OutOrStdout(),
				opts,
			)
		},
	}
	cmd.Flags().BoolVar(&opts.Events, "events", false, "print events instead of calls")
	cmd.Flags().StringVar(&opts.Ledger, "ledger", "", "only print events of this ledger")
	cmd.Flags().Uint64Var(&opts.After, "after", 0, "start after this call seq or event ID")
	cmd.Flags().IntVar(&opts.Limit, "limit", 0, "maximum number of records (0 for all)")
	return cmd
}
