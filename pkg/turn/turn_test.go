package turn

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/ast"
	"github.com/kadirpekel/hll/pkg/parser"
)

func parseOne(t *testing.T, src string) (*ast.Dialogue, error) {
	t.Helper()
	prog := ast.NewProgram()
	return parser.ParseFile("t.hll", "agent", src, prog, nil)
}

func TestAnalyseMinimalProgramAccepts(t *testing.T) {
	dlg, err := parseOne(t, "*label start\nautoprompt\n    hi\nprompt\nawait reply\n")
	require.NoError(t, err)
	assert.NoError(t, Analyse("agent", dlg))
}

func TestAnalyseTwoAdjacentAgentTurnsFails(t *testing.T) {
	dlg, err := parseOne(t, "*label s\nautoprompt\n    x\nawait reply\nawait reply\n")
	require.NoError(t, err)
	err = Analyse("agent", dlg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Two adjacent agent turns")
	assert.Contains(t, err.Error(), "label 's'")
}

func TestAnalyseEndsOnUserTurnFails(t *testing.T) {
	dlg, err := parseOne(t, "*label s\nautoprompt\n    x\n")
	require.NoError(t, err)
	err = Analyse("agent", dlg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Control flow ends on user turn")
}
