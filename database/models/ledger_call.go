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

// Call status values
const (
	CallStatusCommitted = "committed"
	CallStatusReverted  = "reverted"
)

// LedgerCall is one row of the append-only call journal. Every call the
// chain executes gets a row, including calls that reverted
type LedgerCall struct {
	ID           uint         `gorm:"primarykey"`
	Seq          uint64       `gorm:"uniqueIndex;not null"`
	Timestamp    uint64       `gorm:"not null"`
	Ledger       string       `gorm:"size:32;index;not null"`
	Operation    string       `gorm:"size:64;not null"`
	Caller       string       `gorm:"size:128;index"`
	Value        types.Uint64 `gorm:"not null"`
	Status       string       `gorm:"size:16;index;not null"`
	ErrorKind    string       `gorm:"size:32"`
	ErrorCode    string       `gorm:"size:64"`
	ErrorMessage string       `gorm:"size:255"`
	EventCount   uint32
}

func (LedgerCall) TableName() string {
	return "ledger_call"
}

// Reverted reports whether the call was rolled back
func (c *LedgerCall) Reverted() bool {
	return c.Status == CallStatusReverted
}
