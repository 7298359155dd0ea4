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

package logging

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/config"
)

func TestOpenLogFileCreatesAndAppends(t *testing.T) {
	path := t.TempDir() + "/test.log"
	f, cleanup, err := OpenLogFile(path)
	assert.NoError(t, err)
	defer cleanup()
	assert.NotNil(t, f)
}

func TestInitFromConfigWritesToFile(t *testing.T) {
	path := t.TempDir() + "/test.log"
	cfg := &config.LoggerConfig{Level: "info", Format: "simple", File: path}
	cleanup, err := InitFromConfig(cfg)
	require.NoError(t, err)
	defer cleanup()

	GetLogger().Info("hello from test")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "hello from test")
}

func TestInitFromConfigDefaultsToStderr(t *testing.T) {
	cfg := &config.LoggerConfig{Level: "warn", Format: "simple"}
	cleanup, err := InitFromConfig(cfg)
	require.NoError(t, err)
	cleanup()
}
