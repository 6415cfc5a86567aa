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

package models

import "github.com/blinklabs-io/bazaar/database/types"

// LedgerEvent is one event emitted by a committed call
type LedgerEvent struct {
	ID           uint         `gorm:"primarykey"`
	Seq          uint64       `gorm:"uniqueIndex:idx_event_position,priority:1;not null"`
	EventIndex   uint32       `gorm:"uniqueIndex:idx_event_position,priority:2;not null"`
	Timestamp    uint64       `gorm:"not null"`
	Ledger       string       `gorm:"size:32;index;not null"`
	Type         string       `gorm:"size:64;index;not null"`
	Subject      uint64       `gorm:"index"` // order or proposal ID
	Account      string       `gorm:"size:128;index"`
	Counterparty string       `gorm:"size:128"`
	Amount       types.Uint64 `gorm:"not null"`
	Support      bool
	Description  string `gorm:"type:text"`
}

func (LedgerEvent) TableName() string {
	return "ledger_event"
}
