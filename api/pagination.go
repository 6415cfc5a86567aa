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

package api

import (
	"net/http"
	"strconv"
)

const (
	DefaultPageLimit = 100
	MaxPageLimit     = 1000
)

// PageParams are the cursor query parameters of the journal endpoints
type PageParams struct {
	After uint64
	Limit int
}

// ParsePage parses ?after=&limit= and clamps the limit
func ParsePage(r *http.Request) (PageParams, error) {
	params := PageParams{
		Limit: DefaultPageLimit,
	}
	query := r.URL.Query()
	if afterParam := query.Get("after"); afterParam != "" {
		after, err := strconv.ParseUint(afterParam, 10, 64)
		if err != nil {
			return PageParams{}, ErrInvalidParameter.With("after")
		}
		params.After = after
	}
	if limitParam := query.Get("limit"); limitParam != "" {
		limit, err := strconv.Atoi(limitParam)
		if err != nil {
			return PageParams{}, ErrInvalidParameter.With("limit")
		}
		params.Limit = limit
	}
	// Bounds clamping
	if params.Limit < 1 {
		params.Limit = 1
	}
	if params.Limit > MaxPageLimit {
		params.Limit = MaxPageLimit
	}
	return params, nil
}
