package lexer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kadirpekel/hll/pkg/token"
)

func kinds(toks []token.Token) []token.Kind {
	out := make([]token.Kind, len(toks))
	for i, t := range toks {
		out[i] = t.Kind
	}
	return out
}

func TestLexMinimalProgram(t *testing.T) {
	src := "*label start\nautoprompt\n    hi\nprompt\nawait reply\n"
	toks, err := Lex("test.hll", src)
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.StarLabel, token.Identifier,
		token.Autoprompt, token.TextBlockLine,
		token.Prompt,
		token.Await, token.Reply,
		token.EOF,
	}, kinds(toks))
}

func TestLexAwaitInvalidSuccessor(t *testing.T) {
	_, err := Lex("test.hll", "await foo\n")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Failed to lex test.hll")
	assert.Contains(t, err.Error(), "line 1")
}

func TestLexCtrlFlow(t *testing.T) {
	toks, err := Lex("a.hll", "call B, entry\n")
	require.NoError(t, err)
	require.Equal(t, []token.Kind{token.Call, token.Identifier, token.Comma, token.Identifier, token.EOF}, kinds(toks))
	assert.Equal(t, "B", toks[1].Text)
	assert.Equal(t, "entry", toks[3].Text)
}

func TestLexActionListWithArgs(t *testing.T) {
	src := "await action search: \n    query = \"hi\"\n    limit = 3\n, noop\n"
	toks, err := Lex("a.hll", src)
	require.NoError(t, err)
	require.Equal(t, []token.Kind{
		token.Await, token.Action,
		token.ActionIdentifierWithArgs,
		token.ActionArgName, token.Equals, token.JSONValueLine, token.ActionArgNewline,
		token.ActionArgName, token.Equals, token.JSONValueLine, token.ActionArgNewline,
		token.FinalActionIdentifier,
		token.EOF,
	}, kinds(toks))
}

func TestLexTextBlockEmptyFails(t *testing.T) {
	_, err := Lex("a.hll", "info\nnotindented\n")
	require.Error(t, err)
}

func TestLexUnknownKeywordFails(t *testing.T) {
	_, err := Lex("a.hll", "bogus\n")
	require.Error(t, err)
}
