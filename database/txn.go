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
	"sync"
	"time"

	"github.com/blinklabs-io/bazaar/database/types"
)

// Txn spans the state DB and the journal for one call. Either side may be
// absent: snapshots only open the state DB and reverted calls only touch the
// journal
type Txn struct {
	db       *Database
	state    types.Txn
	journal  types.Txn
	mu       sync.Mutex
	done     bool
	writable bool
}

// PartialCommitError means the state side of a transaction committed but the
// journal side did not. The commit timestamps of the two stores disagree
// until the database is repaired
type PartialCommitError struct {
	Err error
}

func (e *PartialCommitError) Error() string {
	return "journal commit failed after state commit: " + e.Err.Error()
}

func (e *PartialCommitError) Unwrap() error {
	return e.Err
}

// NewTxn opens both sides of a transaction
func NewTxn(db *Database, readWrite bool) *Txn {
	return newTxn(db, readWrite, true, true)
}

// NewSnapshotTxn opens a read-only view of the state DB. It never holds a
// journal connection, so views can run while a call is executing
func NewSnapshotTxn(db *Database) *Txn {
	return newTxn(db, false, true, false)
}

// NewJournalTxn opens a writable transaction on the journal alone
func NewJournalTxn(db *Database) *Txn {
	return newTxn(db, true, false, true)
}

func newTxn(db *Database, writable, withState, withJournal bool) *Txn {
	t := &Txn{db: db, writable: writable}
	if bs := db.Blob(); withState && bs != nil {
		t.state = bs.NewTransaction(writable)
	}
	if ms := db.Metadata(); withJournal && ms != nil {
		t.journal = ms.Transaction()
	}
	return t
}

func (t *Txn) DB() *Database {
	return t.db
}

// ReadWrite reports whether the transaction accepts writes
func (t *Txn) ReadWrite() bool {
	return t.writable
}

// Metadata returns the journal side, or nil
func (t *Txn) Metadata() types.Txn {
	return t.journal
}

// Blob returns the state side, or nil
func (t *Txn) Blob() types.Txn {
	return t.state
}

// Do runs fn and commits. An error from fn rolls the transaction back and is
// returned unwrapped so that ledger errors keep their identity
func (t *Txn) Do(fn func(*Txn) error) error {
	if err := fn(t); err != nil {
		if rbErr := t.Rollback(); rbErr != nil {
			return fmt.Errorf(
				"rollback failed: %w: original error: %w",
				rbErr,
				err,
			)
		}
		return err
	}
	if err := t.Commit(); err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Commit writes the state side before the journal side. Both carry the same
// commit timestamp, so a crash between the two is detected on the next open
func (t *Txn) Commit() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	if !t.writable {
		return t.discard()
	}
	if t.state == nil && t.journal == nil {
		return types.ErrNoStoreAvailable
	}
	if t.state != nil && t.journal != nil {
		ts := time.Now().UnixMilli()
		if err := t.db.updateCommitTimestamp(t, ts); err != nil {
			return errors.Join(
				fmt.Errorf("failed to update commit timestamp: %w", err),
				t.discard(),
			)
		}
	}
	if t.state != nil {
		if err := t.state.Commit(); err != nil {
			if t.journal != nil {
				_ = t.journal.Rollback()
			}
			return fmt.Errorf("state commit failed: %w", err)
		}
	}
	if t.journal == nil {
		return nil
	}
	if err := t.journal.Commit(); err != nil {
		t.db.logger.Error(
			"journal commit failed after state commit",
			"component", "database",
			"error", err,
		)
		_ = t.journal.Rollback()
		return &PartialCommitError{Err: err}
	}
	return nil
}

func (t *Txn) Rollback() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.done {
		return nil
	}
	t.done = true
	return t.discard()
}

func (t *Txn) discard() error {
	var errs []error
	if t.state != nil {
		if err := t.state.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("state rollback: %w", err))
		}
	}
	if t.journal != nil {
		if err := t.journal.Rollback(); err != nil {
			errs = append(errs, fmt.Errorf("journal rollback: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Release rolls back the transaction and logs any failure. Meant for defer
func (t *Txn) Release() {
	if err := t.Rollback(); err != nil {
		t.db.logger.Debug(
			"transaction release failed",
			"component", "database",
			"error", err,
			"read_write", t.writable,
		)
	}
}
