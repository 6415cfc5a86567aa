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

package ledger

import (
	"strings"

	lcommon "github.com/blinklabs-io/gouroboros/ledger/common"
)

// Address identifies a caller, counterparty or wallet. It holds the
// canonical bech32 form of a Cardano address
type Address string

func (a Address) String() string {
	return string(a)
}

// IsZero reports whether the address is empty
func (a Address) IsZero() bool {
	return a == ""
}

// ParseAddress validates a bech32 address and returns its canonical form
func ParseAddress(s string) (Address, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", ErrInvalidAddress
	}
	addr, err := lcommon.NewAddress(s)
	if err != nil {
		return "", ErrInvalidAddress.With(err.Error())
	}
	return Address(addr.String()), nil
}
