package symtab

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegisterAndQuery(t *testing.T) {
	r := New()

	id, ok := r.Register("alice"), 0
	require.Equal(t, 0, id)
	assert.Equal(t, id, r.Query("alice"))
	assert.Equal(t, "alice", r.NameOf(id))
	_ = ok
}

func TestRegisterDuplicateReturnsNone(t *testing.T) {
	r := New()
	require.NotEqual(t, None, r.Register("x"))
	assert.Equal(t, None, r.Register("x"))
	assert.Equal(t, 1, r.Len())
}

func TestQueryUnknownReturnsNone(t *testing.T) {
	r := New()
	assert.Equal(t, None, r.Query("missing"))
	assert.Equal(t, "", r.NameOf(42))
}

func TestMultipleRegistrationsAreMonotonic(t *testing.T) {
	r := New()
	a := r.Register("a")
	b := r.Register("b")
	c := r.Register("c")
	assert.Equal(t, 0, a)
	assert.Equal(t, 1, b)
	assert.Equal(t, 2, c)
	assert.True(t, r.Contains("b"))
	assert.False(t, r.Contains("z"))
}
