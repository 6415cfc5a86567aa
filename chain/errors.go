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

package chain

import (
	"errors"
)

var (
	ErrChainStopped = errors.New("chain stopped")

	// ErrChainHalted means a commit reached the state DB but not the journal.
	// The chain accepts no more calls and the node must be restarted
	ErrChainHalted = errors.New("chain halted")
	ErrNilCall     = errors.New("call has no function")
)
