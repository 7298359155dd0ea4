package depgraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleGraph() *Graph {
	return &Graph{Modules: map[string]ModuleInfo{
		"root": {
			Children:     []string{"a", "b", "c"},
			Dependencies: []string{"shared"},
			Files:        []string{"main.hll"},
		},
		"a": {Files: []string{"a.hll"}},
		"b": {Files: []string{"b.hll"}},
		"c": {Files: []string{"c.hll"}},
	}}
}

func TestDecodeRoundTrip(t *testing.T) {
	raw, err := sampleGraph().Encode()
	require.NoError(t, err)

	g, err := Decode(raw)
	require.NoError(t, err)
	assert.True(t, g.ModuleExists("root"))
	assert.Equal(t, []string{"a", "b", "c"}, g.Children("root"))
}

func TestDecodeEmptyModulesIsNonNil(t *testing.T) {
	g, err := Decode([]byte(`{}`))
	require.NoError(t, err)
	assert.NotNil(t, g.Modules)
	assert.False(t, g.ModuleExists("root"))
}

func TestDecodeValue(t *testing.T) {
	v := map[string]any{
		"modules": map[string]any{
			"root": map[string]any{
				"children":     []any{"a"},
				"dependencies": []any{},
				"files":        []any{"main.hll"},
			},
		},
	}
	g, err := DecodeValue(v)
	require.NoError(t, err)
	assert.True(t, g.IsChild("root", "a"))
}

func TestIsChildAndIsDependency(t *testing.T) {
	g := sampleGraph()
	assert.True(t, g.IsChild("root", "b"))
	assert.False(t, g.IsChild("root", "z"))
	assert.True(t, g.IsDependency("root", "shared"))
	assert.False(t, g.IsDependency("root", "z"))
}

func TestFileExists(t *testing.T) {
	g := sampleGraph()
	assert.True(t, g.FileExists("root", "main.hll"))
	assert.False(t, g.FileExists("root", "other.hll"))
	assert.False(t, g.FileExists("unknown", "main.hll"))
}

func TestReversed(t *testing.T) {
	assert.Equal(t, []string{"c", "b", "a"}, Reversed([]string{"a", "b", "c"}))
	assert.Equal(t, []string{}, Reversed([]string{}))
}

func TestChildrenOfUnknownModuleIsNil(t *testing.T) {
	g := sampleGraph()
	assert.Nil(t, g.Children("nope"))
}
