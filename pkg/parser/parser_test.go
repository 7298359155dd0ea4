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

package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/schema"
)

func searchSchema(t *testing.T) schema.Schema {
	t.Helper()
	s, err := schema.Decode(map[string]any{
		"search": map[string]any{
			"type":       "object",
			"properties": map[string]any{"query": map[string]any{"type": "string"}},
			"required":   []any{"query"},
		},
	})
	require.NoError(t, err)
	return s
}

func TestParseFileRejectsUnknownActionArgument(t *testing.T) {
	src := "action search: \n    query = \"hi\"\n    bogus = 1\n"
	_, err := ParseFile("t.hll", "agent", src, ast.NewProgram(), searchSchema(t))
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Contains(t, perr.Msg, "bogus")
}

func TestParseFileAcceptsKnownActionArgument(t *testing.T) {
	src := "action search: \n    query = \"hi\"\n"
	_, err := ParseFile("t.hll", "agent", src, ast.NewProgram(), searchSchema(t))
	require.NoError(t, err)
}
