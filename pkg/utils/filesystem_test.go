// Copyright 2025 Kadir Pekel
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

package utils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEnsureProjectDirCreatesHllSubdir(t *testing.T) {
	root := t.TempDir()
	dir, err := EnsureProjectDir(root)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(root, ".hll"), dir)

	info, statErr := os.Stat(dir)
	require.NoError(t, statErr)
	assert.True(t, info.IsDir())
}

func TestEnsureProjectDirIsIdempotent(t *testing.T) {
	root := t.TempDir()
	_, err := EnsureProjectDir(root)
	require.NoError(t, err)
	_, err = EnsureProjectDir(root)
	require.NoError(t, err)
}
