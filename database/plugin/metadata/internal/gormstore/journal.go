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

package gormstore

import (
	"errors"
	"fmt"

	"github.com/blinklabs-io/bazaar/database/models"
	"github.com/blinklabs-io/bazaar/database/types"
	"gorm.io/gorm"
)

// MaxPageSize bounds the number of rows returned by a single journal query
const MaxPageSize = 1000

func pageSize(limit int) int {
	if limit <= 0 || limit > MaxPageSize {
		return MaxPageSize
	}
	return limit
}

// AddCall appends a call record to the journal
func (s *Store) AddCall(call *models.LedgerCall, txn types.Txn) error {
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(call); result.Error != nil {
		return fmt.Errorf("add call %d: %w", call.Seq, result.Error)
	}
	return nil
}

// AddEvents appends the events of one call to the journal
func (s *Store) AddEvents(events []models.LedgerEvent, txn types.Txn) error {
	if len(events) == 0 {
		return nil
	}
	db, err := s.resolveDB(txn)
	if err != nil {
		return err
	}
	if result := db.Create(&events); result.Error != nil {
		return fmt.Errorf("add events: %w", result.Error)
	}
	return nil
}

// GetLastCall returns the call with the highest sequence number, or nil if
// the journal is empty
func (s *Store) GetLastCall(txn types.Txn) (*models.LedgerCall, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	ret := &models.LedgerCall{}
	result := db.Order("seq DESC").First(ret)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, result.Error
	}
	return ret, nil
}

// GetCalls returns up to limit calls with a sequence number above after, in
// sequence order
func (s *Store) GetCalls(
	after uint64,
	limit int,
	txn types.Txn,
) ([]models.LedgerCall, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	var ret []models.LedgerCall
	result := db.Where("seq > ?", after).
		Order("seq ASC").
		Limit(pageSize(limit)).
		Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}

// GetEvents returns up to limit events with an ID above after, in journal
// order. An empty ledger name matches every ledger
func (s *Store) GetEvents(
	ledger string,
	after uint64,
	limit int,
	txn types.Txn,
) ([]models.LedgerEvent, error) {
	db, err := s.resolveDB(txn)
	if err != nil {
		return nil, err
	}
	query := db.Where("id > ?", after)
	if ledger != "" {
		query = query.Where("ledger = ?", ledger)
	}
	var ret []models.LedgerEvent
	result := query.Order("id ASC").Limit(pageSize(limit)).Find(&ret)
	if result.Error != nil {
		return nil, result.Error
	}
	return ret, nil
}
