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

package metadata_test

import (
	"testing"

	"github.com/blinklabs-io/bazaar/database/plugin/metadata"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	store, err := metadata.New(metadata.PluginSqlite, "", "", nil, nil)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	_, err = metadata.New("bogus", "", "", nil, nil)
	require.ErrorContains(t, err, "unknown metadata plugin")

	_, err = metadata.New(metadata.PluginPostgres, "", "", nil, nil)
	require.Error(t, err)
}
