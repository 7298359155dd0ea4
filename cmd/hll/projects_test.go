package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/symtab"
)

func TestLoadProjectsMissingFileIsEmpty(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	projects, err := loadProjects()
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestSaveThenLoadProjectsRoundTrip(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	want := map[string]string{"demo": "/tmp/demo", "other": "/tmp/other"}
	require.NoError(t, saveProjects(want))

	got, err := loadProjects()
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestProjectsIndexPath(t *testing.T) {
	t.Setenv("HOME", "/home/tester")
	path, err := projectsIndexPath()
	require.NoError(t, err)
	assert.Equal(t, filepath.Join("/home/tester", ".local", "share", "hll", "projects.json"), path)
}

func TestResolveProjectUnknown(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	_, err := resolveProject("ghost")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown project")
}

func TestResolveProjectKnown(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	require.NoError(t, saveProjects(map[string]string{"demo": "/srv/demo"}))

	root, err := resolveProject("demo")
	require.NoError(t, err)
	assert.Equal(t, "/srv/demo", root)
}

func newDialogueWithEntrypoints(labels []string, entry []string) *ast.Dialogue {
	dlg := ast.NewDialogue(0, "a.hll", "")
	entrySet := make(map[string]bool, len(entry))
	for _, e := range entry {
		entrySet[e] = true
	}
	for _, l := range labels {
		id := dlg.LabelNames.Register(l)
		if entrySet[l] {
			dlg.Entrypoints[id] = true
		}
	}
	return dlg
}

func TestResolveEntrypointExplicitLabel(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start", "loop"}, []string{"start"})
	id, err := resolveEntrypoint(dlg, "start")
	require.NoError(t, err)
	assert.Equal(t, dlg.LabelNames.Query("start"), id)
}

func TestResolveEntrypointExplicitLabelNotPublic(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start", "loop"}, []string{"start"})
	_, err := resolveEntrypoint(dlg, "loop")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not a public entrypoint")
}

func TestResolveEntrypointExplicitLabelUnknown(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start"}, []string{"start"})
	_, err := resolveEntrypoint(dlg, "nope")
	require.Error(t, err)
}

func TestResolveEntrypointImplicitSole(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start"}, []string{"start"})
	id, err := resolveEntrypoint(dlg, "")
	require.NoError(t, err)
	assert.Equal(t, dlg.LabelNames.Query("start"), id)
}

func TestResolveEntrypointImplicitNoneErrors(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start"}, nil)
	_, err := resolveEntrypoint(dlg, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no public entrypoints")
}

func TestResolveEntrypointImplicitMultipleErrors(t *testing.T) {
	dlg := newDialogueWithEntrypoints([]string{"start", "retry"}, []string{"start", "retry"})
	_, err := resolveEntrypoint(dlg, "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "multiple public entrypoints")
}

func TestResolveEntrypointNoneConstant(t *testing.T) {
	assert.Equal(t, -1, symtab.None)
}
